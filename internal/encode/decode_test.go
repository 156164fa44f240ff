package encode

import (
	"bytes"
	"errors"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func TestDecode_Formats(t *testing.T) {
	src := testImage(48)

	tests := []struct {
		name   string
		encode func(w io.Writer, img image.Image) error
	}{
		{"png", func(w io.Writer, img image.Image) error { return png.Encode(w, img) }},
		{"jpeg", func(w io.Writer, img image.Image) error { return jpeg.Encode(w, img, nil) }},
		{"gif", func(w io.Writer, img image.Image) error { return gif.Encode(w, img, nil) }},
		{"tiff", func(w io.Writer, img image.Image) error { return tiff.Encode(w, img, nil) }},
		{"bmp", func(w io.Writer, img image.Image) error { return bmp.Encode(w, img) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tt.encode(&buf, src); err != nil {
				t.Fatalf("encode: %v", err)
			}
			img, format, err := Decode(&buf)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if format != tt.name {
				t.Errorf("format = %q, want %q", format, tt.name)
			}
			if img.Bounds() != src.Bounds() {
				t.Errorf("bounds = %v, want %v", img.Bounds(), src.Bounds())
			}
		})
	}
}

func TestDecode_Unknown(t *testing.T) {
	_, _, err := Decode(bytes.NewReader([]byte("definitely not an image")))
	if !errors.Is(err, image.ErrFormat) {
		t.Errorf("error = %v, want image.ErrFormat", err)
	}
}

func TestLoadImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "source.png")

	data, err := (&PNGEncoder{}).Encode(testImage(32))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	img, format, err := LoadImage(path)
	if err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	if format != "png" || img.Bounds().Dx() != 32 {
		t.Errorf("got %s %v, want png 32x32", format, img.Bounds())
	}

	_, _, err = LoadImage(filepath.Join(dir, "missing.png"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("missing file error = %v, want fs.ErrNotExist", err)
	}
}
