// Package output stores encoded tiles in one of several layouts: plain
// directories (z/x/y or quadkey names) or single-file MBTiles and PMTiles
// archives.
package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/paulmach/orb"

	"github.com/pspoerri/img2tiles/internal/coord"
)

// ErrUnknownLayout is returned by ParseLayout for unrecognised names.
var ErrUnknownLayout = errors.New("unknown output layout")

// Layout selects how tiles are stored.
type Layout int

const (
	// LayoutFolders writes {root}/{z}/{x}/{y}{ext}.
	LayoutFolders Layout = iota
	// LayoutQuadKey writes {root}/{quadkey}{ext}.
	LayoutQuadKey
	// LayoutMBTiles writes an MBTiles 1.3 SQLite archive.
	LayoutMBTiles
	// LayoutPMTiles writes a PMTiles v3 archive.
	LayoutPMTiles
)

// Layouts lists the canonical layout names.
var Layouts = []string{"folders", "quadkey", "mbtiles", "pmtiles"}

// ParseLayout maps a layout name to a Layout. "flat" is accepted as an alias
// for "quadkey".
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "folders", "":
		return LayoutFolders, nil
	case "quadkey", "flat":
		return LayoutQuadKey, nil
	case "mbtiles":
		return LayoutMBTiles, nil
	case "pmtiles":
		return LayoutPMTiles, nil
	default:
		return 0, fmt.Errorf("%w: %q (supported: %s)", ErrUnknownLayout, s, strings.Join(Layouts, ", "))
	}
}

func (l Layout) String() string {
	if l < 0 || int(l) >= len(Layouts) {
		return "Layout(" + strconv.Itoa(int(l)) + ")"
	}
	return Layouts[l]
}

// IsArchive reports whether the layout writes a single file.
func (l Layout) IsArchive() bool {
	return l == LayoutMBTiles || l == LayoutPMTiles
}

// TilePath returns where a directory layout stores tile z/x/y.
func TilePath(l Layout, root string, z, x, y int, ext string) string {
	if l == LayoutQuadKey {
		return filepath.Join(root, coord.TileToQuadKey(x, y, z)+ext)
	}
	return filepath.Join(root, strconv.Itoa(z), strconv.Itoa(x), strconv.Itoa(y)+ext)
}

// Metadata describes a tileset for the archive layouts.
type Metadata struct {
	ID          string
	Name        string
	Description string
	Format      string // encoder format: png, jpeg or webp
	Bounds      orb.Bound
	MinZoom     int
	MaxZoom     int
}

func (m Metadata) boundsString() string {
	return fmt.Sprintf("%f,%f,%f,%f", m.Bounds.Min.Lon(), m.Bounds.Min.Lat(), m.Bounds.Max.Lon(), m.Bounds.Max.Lat())
}

func (m Metadata) centerString() string {
	c := m.Bounds.Center()
	return fmt.Sprintf("%f,%f,%d", c.Lon(), c.Lat(), (m.MinZoom+m.MaxZoom)/2)
}

// Writer stores tiles. WriteTile is safe for concurrent use. Close makes the
// output complete; Abort discards whatever an archive has buffered.
type Writer interface {
	WriteTile(z, x, y int, data []byte) error
	Close() error
	Abort()
}

// Open creates a writer for the layout. For directory layouts path is the
// root directory and ext the tile file extension; for archives path is the
// archive file.
func Open(l Layout, path, ext string, meta Metadata) (Writer, error) {
	switch l {
	case LayoutFolders, LayoutQuadKey:
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("creating directory: %w", err)
		}
		return NewDirWriter(l, path, ext), nil
	case LayoutMBTiles:
		return NewMBTilesWriter(path, meta)
	case LayoutPMTiles:
		return NewPMTilesWriter(path, meta)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownLayout, l)
	}
}
