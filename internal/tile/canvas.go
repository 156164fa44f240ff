package tile

import (
	"image"
	"sync"

	"github.com/pspoerri/img2tiles/internal/coord"
)

var tileBounds = image.Rect(0, 0, coord.TileSize, coord.TileSize)

var canvasPool = sync.Pool{
	New: func() any { return image.NewRGBA(tileBounds) },
}

// GetCanvas returns a transparent tile-sized image, reusing a released one
// when available.
func GetCanvas() *image.RGBA {
	img := canvasPool.Get().(*image.RGBA)
	clear(img.Pix)
	return img
}

// PutCanvas hands a canvas back once its bytes have been encoded. Nil images
// and images of any other size are dropped.
func PutCanvas(img *image.RGBA) {
	if img == nil || img.Rect != tileBounds {
		return
	}
	canvasPool.Put(img)
}
