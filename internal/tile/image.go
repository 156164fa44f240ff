package tile

import (
	"fmt"
	"image"

	"github.com/pspoerri/img2tiles/internal/coord"
	"github.com/pspoerri/img2tiles/internal/raster"
)

// DefaultOpacity is applied to the source image when compositing tiles.
const DefaultOpacity = 0.7

// ImageOptions tunes an ImageRenderer.
type ImageOptions struct {
	// Opacity of the source over the transparent tile background. Values
	// outside (0, 1] select DefaultOpacity.
	Opacity float64

	// MemoryLimit caps the bytes of one level raster. 0 disables the check.
	MemoryLimit int64
}

// ImageRenderer cuts a georeferenced source image into tiles.
type ImageRenderer struct {
	src      image.Image
	bounds   coord.GeoBounds
	opacity  float64
	memLimit int64
}

// NewImageRenderer creates a renderer for src covering bounds.
func NewImageRenderer(src image.Image, bounds coord.GeoBounds, opts ImageOptions) *ImageRenderer {
	opacity := opts.Opacity
	if opacity <= 0 || opacity > 1 {
		opacity = DefaultOpacity
	}
	return &ImageRenderer{
		src:      src,
		bounds:   bounds,
		opacity:  opacity,
		memLimit: opts.MemoryLimit,
	}
}

func (r *ImageRenderer) Name() string { return "image" }

// PixelRect returns where the source footprint lands in global pixel space at
// zoom z. The rectangle may be empty or inverted for degenerate bounds.
func (r *ImageRenderer) PixelRect(z int) image.Rectangle {
	ur, ll := r.bounds.UpperRight, r.bounds.LowerLeft
	urX, urY := coord.LatLonToPixel(ur.Lat(), ur.Lon(), z)
	llX, llY := coord.LatLonToPixel(ll.Lat(), ll.Lon(), z)
	return image.Rectangle{Min: image.Pt(llX, urY), Max: image.Pt(urX, llY)}
}

// PrepareLevel resamples the source to the footprint's size at zoom z.
func (r *ImageRenderer) PrepareLevel(z int) (Level, error) {
	rect := r.PixelRect(z)
	w, h := rect.Max.X-rect.Min.X, rect.Max.Y-rect.Min.Y
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: zoom %d footprint is %dx%d pixels; the image must span at least one pixel (%.4g° of longitude at this zoom) in each direction",
			ErrInvalidBounds, z, w, h, 360/float64(coord.MapSize(z)))
	}
	if need := rasterBytes(w, h); r.memLimit > 0 && need > r.memLimit {
		return nil, fmt.Errorf("%w: zoom %d needs %.1f GB for %dx%d pixels",
			ErrLevelTooLarge, z, float64(need)/gib, w, h)
	}

	return &imageLevel{
		rect:   rect,
		tiles:  tileRange(rect),
		raster: raster.Resize(r.src, w, h),
		mask:   raster.OpacityMask(r.opacity),
	}, nil
}

// tileRange returns the half-open range of tiles touched by a pixel rectangle.
func tileRange(rect image.Rectangle) image.Rectangle {
	minX, minY := coord.PixelToTile(rect.Min.X, rect.Min.Y)
	maxX, maxY := coord.PixelToTile(rect.Max.X-1, rect.Max.Y-1)
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

type imageLevel struct {
	rect   image.Rectangle // footprint in global pixels
	tiles  image.Rectangle // tiles overlapping rect
	raster *image.RGBA     // source resampled to rect's size
	mask   image.Image
}

func (l *imageLevel) TileRange() image.Rectangle { return l.tiles }

func (l *imageLevel) IsValid(x, y int) bool {
	return image.Pt(x, y).In(l.tiles)
}

func (l *imageLevel) RenderTile(x, y int) (*image.RGBA, error) {
	px, py := coord.TileToPixel(x, y)
	tileRect := image.Rect(px, py, px+coord.TileSize, py+coord.TileSize)
	if !tileRect.Overlaps(l.rect) {
		return nil, nil
	}

	img := GetCanvas()
	// Raster pixel (0,0) sits at l.rect.Min in global space.
	raster.Composite(img, l.raster, tileRect.Min.Sub(l.rect.Min), l.mask)
	return img, nil
}

func (l *imageLevel) Release() {
	l.raster = nil
}
