// Package raster holds the pixel operations used to build tiles: resampling a
// source image to a level's resolution, compositing it with reduced opacity,
// and drawing text and borders for debug tiles.
package raster

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// Resize returns src scaled to exactly w×h using a Catmull-Rom (bicubic)
// kernel. The result's bounds start at (0,0).
func Resize(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// OpacityMask returns a uniform alpha mask for opacity in [0, 1].
func OpacityMask(opacity float64) *image.Uniform {
	opacity = math.Max(0, math.Min(1, opacity))
	return image.NewUniform(color.Alpha{A: uint8(math.Round(opacity * 255))})
}

// Composite draws src over the whole of dst with src's sp aligned to dst's
// top-left corner. Pixels outside src stay untouched. The mask scales src's
// alpha; pass OpacityMask(1) for a plain copy.
func Composite(dst draw.Image, src image.Image, sp image.Point, mask image.Image) {
	draw.DrawMask(dst, dst.Bounds(), src, sp, mask, image.Point{}, draw.Over)
}

// StrokeRect fills a band of the given width just inside r.
func StrokeRect(dst draw.Image, r image.Rectangle, width int, c color.Color) {
	if width <= 0 || r.Empty() {
		return
	}
	src := image.NewUniform(c)
	bands := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width), // top
		image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y), // bottom
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y), // left
		image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y), // right
	}
	for _, b := range bands {
		draw.Draw(dst, b.Intersect(r), src, image.Point{}, draw.Src)
	}
}
