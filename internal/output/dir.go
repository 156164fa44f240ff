package output

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DirWriter writes each tile to its own file below a root directory.
type DirWriter struct {
	layout Layout
	root   string
	ext    string
	dirs   sync.Map // directories already created
}

// NewDirWriter creates a writer for LayoutFolders or LayoutQuadKey.
func NewDirWriter(l Layout, root, ext string) *DirWriter {
	return &DirWriter{layout: l, root: root, ext: ext}
}

// Path returns the file a tile is written to.
func (w *DirWriter) Path(z, x, y int) string {
	return TilePath(w.layout, w.root, z, x, y, w.ext)
}

// WriteTile writes the tile, replacing any existing file. Parent directories
// are created on demand; concurrent creation of the same directory is fine.
func (w *DirWriter) WriteTile(z, x, y int, data []byte) error {
	path := w.Path(z, x, y)
	dir := filepath.Dir(path)
	if _, ok := w.dirs.Load(dir); !ok {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory: %w", err)
		}
		w.dirs.Store(dir, struct{}{})
	}
	return os.WriteFile(path, data, 0o644)
}

func (w *DirWriter) Close() error { return nil }
func (w *DirWriter) Abort()       {}
