package output

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

const mbtilesSchema = `
CREATE TABLE tiles (
	zoom_level INTEGER,
	tile_column INTEGER,
	tile_row INTEGER,
	tile_data BLOB,
	PRIMARY KEY (zoom_level, tile_column, tile_row)
);
CREATE TABLE metadata (
	name TEXT,
	value TEXT,
	PRIMARY KEY (name)
);`

// MBTilesWriter writes tiles into an MBTiles archive. All tiles go through a
// single transaction that is committed on Close.
type MBTilesWriter struct {
	mu     sync.Mutex
	path   string
	db     *sql.DB
	tx     *sql.Tx
	insert *sql.Stmt
	meta   Metadata
	done   bool
}

// NewMBTilesWriter creates the archive at path, replacing any existing file.
func NewMBTilesWriter(path string, meta Metadata) (*MBTilesWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating directory: %w", err)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("removing old archive: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	// One connection keeps the pragmas and the transaction on the same handle.
	db.SetMaxOpenConns(1)

	w := &MBTilesWriter{path: path, db: db, meta: meta}
	if err := w.setup(); err != nil {
		db.Close()
		return nil, err
	}
	return w, nil
}

func (w *MBTilesWriter) setup() error {
	for _, pragma := range []string{"PRAGMA synchronous=OFF", "PRAGMA locking_mode=EXCLUSIVE", "PRAGMA journal_mode=MEMORY"} {
		if _, err := w.db.Exec(pragma); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if _, err := w.db.Exec(mbtilesSchema); err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	stmt, err := tx.Prepare("INSERT OR REPLACE INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert: %w", err)
	}
	w.tx, w.insert = tx, stmt
	return nil
}

// tmsRow converts an XYZ row to the TMS row MBTiles stores (origin bottom-left).
func tmsRow(z, y int) int {
	return (1 << uint(z)) - 1 - y
}

// WriteTile stores a tile, replacing an earlier tile at the same position.
func (w *MBTilesWriter) WriteTile(z, x, y int, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return errors.New("mbtiles writer is closed")
	}
	if _, err := w.insert.Exec(z, x, tmsRow(z, y), data); err != nil {
		return fmt.Errorf("inserting tile: %w", err)
	}
	return nil
}

func (w *MBTilesWriter) metadataRows() map[string]string {
	format := w.meta.Format
	if format == "jpeg" {
		format = "jpg"
	}
	name := w.meta.Name
	if name == "" {
		name = "img2tiles"
	}
	return map[string]string{
		"id":          w.meta.ID,
		"name":        name,
		"description": w.meta.Description,
		"type":        "overlay",
		"version":     "1.1",
		"format":      format,
		"bounds":      w.meta.boundsString(),
		"center":      w.meta.centerString(),
		"minzoom":     strconv.Itoa(w.meta.MinZoom),
		"maxzoom":     strconv.Itoa(w.meta.MaxZoom),
	}
}

// Close writes the metadata table and commits all tiles.
func (w *MBTilesWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return nil
	}
	w.done = true

	for name, value := range w.metadataRows() {
		if _, err := w.tx.Exec("INSERT OR REPLACE INTO metadata (name, value) VALUES (?, ?)", name, value); err != nil {
			w.tx.Rollback()
			w.db.Close()
			return fmt.Errorf("writing metadata %s: %w", name, err)
		}
	}
	w.insert.Close()
	if err := w.tx.Commit(); err != nil {
		w.db.Close()
		return fmt.Errorf("committing tiles: %w", err)
	}
	return w.db.Close()
}

// Abort rolls back every tile written so far and removes the archive.
func (w *MBTilesWriter) Abort() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return
	}
	w.done = true
	w.insert.Close()
	w.tx.Rollback()
	w.db.Close()
	os.Remove(w.path)
	os.Remove(w.path + "-journal")
}
