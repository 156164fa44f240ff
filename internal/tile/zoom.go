package tile

import "github.com/pspoerri/img2tiles/internal/coord"

// NativeZoom returns the lowest zoom at which the footprint is at least as
// wide as the source image. Deeper levels only upsample.
func (r *ImageRenderer) NativeZoom() int {
	width := r.src.Bounds().Dx()
	for z := 1; z < coord.MaxZoom; z++ {
		if r.PixelRect(z).Dx() >= width {
			return z
		}
	}
	return coord.MaxZoom
}

// CenterInside reports whether the centre of the footprint, once snapped to
// the pixel grid of zoom z, still lies within the image bounds. It fails when
// the image is small compared to a pixel at z.
func (r *ImageRenderer) CenterInside(z int) bool {
	rect := r.PixelRect(z)
	lat, lon := coord.PixelToLatLon((rect.Min.X+rect.Max.X)/2, (rect.Min.Y+rect.Max.Y)/2, z)
	p, err := coord.FromDegrees(lat, lon)
	if err != nil {
		return false
	}
	return r.bounds.Contains(p)
}
