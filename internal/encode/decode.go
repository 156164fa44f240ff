package encode

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/gen2brain/webp"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// Decode reads a source raster. PNG, JPEG, GIF, TIFF, BMP and WebP are
// recognised by their magic bytes; the returned string names the format.
func Decode(r io.Reader) (image.Image, string, error) {
	br := bufio.NewReader(r)
	if isWebP(br) {
		img, err := webp.Decode(br)
		if err != nil {
			return nil, "", err
		}
		return img, "webp", nil
	}
	return image.Decode(br)
}

// RIFF....WEBP
func isWebP(br *bufio.Reader) bool {
	hdr, err := br.Peek(12)
	if err != nil {
		return false
	}
	return bytes.Equal(hdr[0:4], []byte("RIFF")) && bytes.Equal(hdr[8:12], []byte("WEBP"))
}

// LoadImage opens and decodes the raster at path.
func LoadImage(path string) (image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading image: %w", err)
	}
	defer f.Close()

	img, format, err := Decode(f)
	if err != nil {
		return nil, "", fmt.Errorf("decoding image %s: %w", path, err)
	}
	return img, format, nil
}
