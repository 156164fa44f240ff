package tile

import (
	"fmt"
	"image"
	"image/color"

	"github.com/pspoerri/img2tiles/internal/raster"
)

var debugColor = color.RGBA{R: 0, G: 128, B: 128, A: 255}

const (
	debugFontSize    = 16
	debugBorderWidth = 3
)

// DebugRenderer labels every tile of the grid with its coordinates and draws
// its outline. It ignores geography.
type DebugRenderer struct{}

func (DebugRenderer) Name() string { return "debug" }

func (DebugRenderer) PrepareLevel(z int) (Level, error) {
	return debugLevel{z: z}, nil
}

type debugLevel struct {
	z int
}

func (l debugLevel) RenderTile(x, y int) (*image.RGBA, error) {
	// Faces are not safe for concurrent use.
	face, err := raster.NewFace(debugFontSize)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	img := GetCanvas()
	raster.DrawText(img, face, image.Pt(5, 5), fmt.Sprintf("z:%d x:%d y:%d", l.z, x, y), debugColor)
	raster.StrokeRect(img, img.Bounds(), debugBorderWidth, debugColor)
	return img, nil
}

func (debugLevel) Release() {}
