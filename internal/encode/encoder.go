package encode

import (
	"fmt"
	"image"
)

// DefaultQuality is used by lossy encoders when no quality is configured.
const DefaultQuality = 85

// Encoder encodes a rendered tile into bytes.
type Encoder interface {
	// Encode encodes an image to bytes in the tile format.
	Encode(img image.Image) ([]byte, error)

	// Format returns the format name (e.g. "jpeg", "png", "webp").
	Format() string

	// FileExtension returns the file extension including the leading dot.
	FileExtension() string
}

// Formats lists the accepted values for NewEncoder.
var Formats = []string{"png", "jpeg", "webp"}

// NewEncoder creates an encoder for the given format and quality.
// An empty format selects PNG.
func NewEncoder(format string, quality int) (Encoder, error) {
	switch format {
	case "png", "":
		return &PNGEncoder{}, nil
	case "jpeg", "jpg":
		return &JPEGEncoder{Quality: quality}, nil
	case "webp":
		return newWebPEncoder(quality)
	default:
		return nil, fmt.Errorf("unsupported tile format: %q (supported: png, jpeg, webp)", format)
	}
}
