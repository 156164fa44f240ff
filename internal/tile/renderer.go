package tile

import (
	"errors"
	"image"
)

// ErrInvalidBounds is returned when the source footprint has no positive
// width or height in pixel space at some zoom level.
var ErrInvalidBounds = errors.New("invalid image bounds")

// Renderer produces tiles for a pyramid, one zoom level at a time.
type Renderer interface {
	// Name identifies the renderer in logs.
	Name() string

	// PrepareLevel computes everything tiles at zoom z share. It runs once
	// per level before any tile of that level is rendered.
	PrepareLevel(z int) (Level, error)
}

// Level is the per-zoom state returned by PrepareLevel. RenderTile is called
// concurrently from many goroutines and must only read the level's state.
type Level interface {
	// RenderTile returns the tile image, or nil if the tile should be
	// skipped. The image may come from GetCanvas; the caller returns it.
	RenderTile(x, y int) (*image.RGBA, error)

	// Release drops the level's buffers once all its tiles are done.
	Release()
}

// Validator is implemented by levels that can reject tiles cheaply before
// rendering. Levels without it treat every tile as valid.
type Validator interface {
	IsValid(x, y int) bool
}

// Extent is implemented by levels whose valid tiles all lie in a known
// tile-space rectangle. The generator only enumerates tiles inside it.
type Extent interface {
	TileRange() image.Rectangle
}
