package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/pspoerri/img2tiles/internal/tile"
)

// execute runs a fresh root command and returns what it printed to stdout.
func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--no-progress", "--concurrency", "2"))
	if err := cmd.Execute(); err != nil {
		t.Fatalf("img2tiles %v: %v", args, err)
	}
	return out.String()
}

// writeSourceImage writes a small opaque PNG and returns its path.
func writeSourceImage(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.SetRGBA(10, 10, color.RGBA{R: 200, A: 255})

	path := filepath.Join(t.TempDir(), "source.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

// tileFiles lists the .png files below dir, relative and slash separated,
// failing on empty files.
func tileFiles(t *testing.T, dir string) []string {
	t.Helper()
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(path) != ".png" {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(dir, path)
		rel = filepath.ToSlash(rel)
		if info.Size() == 0 {
			t.Errorf("%s is empty", rel)
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	slices.Sort(files)
	return files
}

func TestRootCommand_DebugPyramid(t *testing.T) {
	dir := t.TempDir()
	out := execute(t, "-d", "-z", "2", "-o", dir, "-i", "missing.png", "-n", "1")

	if !strings.Contains(out, incompleteBoundsMessage) {
		t.Errorf("output %q lacks the incomplete bounds message", out)
	}
	if files := tileFiles(t, dir); len(files) != 4+16 {
		t.Errorf("wrote %d debug tiles, want 20", len(files))
	}
}

func TestRootCommand_ImageFlat(t *testing.T) {
	src := writeSourceImage(t)
	dir := t.TempDir()
	execute(t, "-i", src, "-n", "1", "-s", "-1", "-e", "1", "-w", "-1", "-z", "2", "-l", "flat", "-o", dir)

	want := []string{"0.png", "03.png", "1.png", "12.png", "2.png", "21.png", "3.png", "30.png"}
	if got := tileFiles(t, dir); !slices.Equal(got, want) {
		t.Errorf("tiles = %v, want %v", got, want)
	}
}

func TestRootCommand_ImageFolders(t *testing.T) {
	src := writeSourceImage(t)
	dir := t.TempDir()
	want := []string{
		"1/0/0.png", "1/0/1.png", "1/1/0.png", "1/1/1.png",
		"2/1/1.png", "2/1/2.png", "2/2/1.png", "2/2/2.png",
	}

	// The second run finds every directory in place.
	for run := 0; run < 2; run++ {
		execute(t, "-i", src, "-n", "1", "-s", "-1", "-e", "1", "-w", "-1", "-z", "2", "-o", dir)
		if got := tileFiles(t, dir); !slices.Equal(got, want) {
			t.Errorf("run %d: tiles = %v, want %v", run, got, want)
		}
	}
}

func TestAddStats(t *testing.T) {
	got := addStats(tile.Stats{TileCount: 2, EmptyTiles: 1, TotalBytes: 10}, tile.Stats{TileCount: 3, TotalBytes: 5})
	want := tile.Stats{TileCount: 5, EmptyTiles: 1, TotalBytes: 15}
	if got != want {
		t.Errorf("addStats = %+v, want %+v", got, want)
	}
}

func TestHumanSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 << 20, "5.0 MB"},
		{3 << 30, "3.0 GB"},
	}
	for _, tt := range tests {
		if got := humanSize(tt.in); got != tt.want {
			t.Errorf("humanSize(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
