package output

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
)

// PMTiles v3 constants.
const (
	pmHeaderSize = 127

	pmCompressionNone = 1
	pmCompressionGzip = 2

	pmTileTypeUnknown = 0
	pmTileTypePNG     = 2
	pmTileTypeJPEG    = 3
	pmTileTypeWebP    = 4

	pmMaxRootEntries = 16384
	pmLeafSize       = 4096
)

// pmEntry is one directory entry. A RunLength of 0 marks a leaf directory
// pointer; otherwise the data at Offset serves RunLength consecutive tile IDs.
type pmEntry struct {
	TileID    uint64
	Offset    uint64
	Length    uint32
	RunLength uint32
}

// pmTileID maps z/x/y to the PMTiles tile ID: the count of tiles on all
// lower zooms plus the Hilbert index within zoom z.
func pmTileID(z, x, y int) uint64 {
	acc := (uint64(1)<<(2*uint(z)) - 1) / 3
	return acc + hilbertIndex(uint64(x), uint64(y), uint64(1)<<uint(z))
}

func hilbertIndex(x, y, n uint64) uint64 {
	var d uint64
	for s := n / 2; s > 0; s /= 2 {
		var rx, ry uint64
		if x&s != 0 {
			rx = 1
		}
		if y&s != 0 {
			ry = 1
		}
		d += s * s * ((3 * rx) ^ ry)
		if ry == 0 {
			if rx == 1 {
				x = n - 1 - x
				y = n - 1 - y
			}
			x, y = y, x
		}
	}
	return d
}

func pmTileType(format string) uint8 {
	switch format {
	case "png":
		return pmTileTypePNG
	case "jpeg", "jpg":
		return pmTileTypeJPEG
	case "webp":
		return pmTileTypeWebP
	default:
		return pmTileTypeUnknown
	}
}

// PMTilesWriter writes a PMTiles v3 archive. Tile data is spooled to a temp
// file next to the archive; Close sorts it into tile-ID order and assembles
// the final file. Identical tiles are stored once.
type PMTilesWriter struct {
	path string
	meta Metadata

	mu        sync.Mutex
	tmp       *os.File
	tmpOffset uint64
	entries   map[uint64]pmEntry // tile ID → data location; later writes win
	dedup     map[uint64]pmEntry // FNV-64a of data → first location
	done      bool
}

// NewPMTilesWriter prepares an archive at path.
func NewPMTilesWriter(path string, meta Metadata) (*PMTilesWriter, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "pmtiles-tiles-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	return &PMTilesWriter{
		path:    path,
		meta:    meta,
		tmp:     tmp,
		entries: make(map[uint64]pmEntry),
		dedup:   make(map[uint64]pmEntry),
	}, nil
}

func (w *PMTilesWriter) WriteTile(z, x, y int, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	id := pmTileID(z, x, y)
	sum := contentHash(data)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return errors.New("pmtiles writer is closed")
	}

	e, seen := w.dedup[sum]
	if seen && e.Length == uint32(len(data)) {
		same, err := w.spooledEqual(e, data)
		if err != nil {
			return err
		}
		if same {
			e.TileID = id
			w.entries[id] = e
			return nil
		}
	}

	n, err := w.tmp.Write(data)
	if err != nil {
		return fmt.Errorf("spooling tile data: %w", err)
	}
	e = pmEntry{TileID: id, Offset: w.tmpOffset, Length: uint32(n), RunLength: 1}
	w.tmpOffset += uint64(n)
	if !seen {
		w.dedup[sum] = e
	}
	w.entries[id] = e
	return nil
}

func contentHash(data []byte) uint64 {
	h := fnv.New64a()
	h.Write(data)
	return h.Sum64()
}

// spooledEqual compares data with the bytes already spooled for e, so a hash
// collision never makes two different tiles share data.
func (w *PMTilesWriter) spooledEqual(e pmEntry, data []byte) (bool, error) {
	buf := make([]byte, e.Length)
	if _, err := w.tmp.ReadAt(buf, int64(e.Offset)); err != nil {
		return false, fmt.Errorf("reading spooled tile at offset %d: %w", e.Offset, err)
	}
	return bytes.Equal(buf, data), nil
}

// Close writes the archive and removes the temp file.
func (w *PMTilesWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return nil
	}
	w.done = true
	defer w.removeTemp()

	entries := make([]pmEntry, 0, len(w.entries))
	for _, e := range w.entries {
		entries = append(entries, e)
	}
	slices.SortFunc(entries, func(a, b pmEntry) int {
		switch {
		case a.TileID < b.TileID:
			return -1
		case a.TileID > b.TileID:
			return 1
		}
		return 0
	})

	clustered, dataLen, contents, err := w.cluster(entries)
	if err != nil {
		return fmt.Errorf("clustering tile data: %w", err)
	}
	defer func() {
		clustered.Close()
		os.Remove(clustered.Name())
	}()

	runs := mergeRuns(entries)
	rootDir, leafDirs, err := buildDirectories(runs)
	if err != nil {
		return fmt.Errorf("building directory: %w", err)
	}
	metaJSON, err := json.Marshal(w.metadataJSON())
	if err != nil {
		return fmt.Errorf("encoding metadata: %w", err)
	}
	metaBytes, err := gzipBytes(metaJSON)
	if err != nil {
		return fmt.Errorf("compressing metadata: %w", err)
	}

	// Layout: header, root directory, metadata, leaf directories, tile data.
	hdr := pmHeader{
		RootDirOffset:     pmHeaderSize,
		RootDirLength:     uint64(len(rootDir)),
		NumAddressedTiles: uint64(len(entries)),
		NumTileEntries:    uint64(len(runs)),
		NumTileContents:   uint64(contents),
		TileType:          pmTileType(w.meta.Format),
		MinZoom:           uint8(w.meta.MinZoom),
		MaxZoom:           uint8(w.meta.MaxZoom),
		Bounds:            w.meta.Bounds,
	}
	hdr.MetadataOffset = hdr.RootDirOffset + hdr.RootDirLength
	hdr.MetadataLength = uint64(len(metaBytes))
	hdr.LeafDirOffset = hdr.MetadataOffset + hdr.MetadataLength
	hdr.LeafDirLength = uint64(len(leafDirs))
	hdr.TileDataOffset = hdr.LeafDirOffset + hdr.LeafDirLength
	hdr.TileDataLength = dataLen

	out, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}
	for _, part := range [][]byte{hdr.serialize(), rootDir, metaBytes, leafDirs} {
		if _, err := out.Write(part); err != nil {
			out.Close()
			return fmt.Errorf("writing archive: %w", err)
		}
	}
	if _, err := clustered.Seek(0, io.SeekStart); err != nil {
		out.Close()
		return fmt.Errorf("seeking tile data: %w", err)
	}
	if _, err := io.Copy(out, clustered); err != nil {
		out.Close()
		return fmt.Errorf("copying tile data: %w", err)
	}
	return out.Close()
}

// cluster copies the referenced tile data into a new temp file in entry order
// and rewrites the entries' offsets. Shared data is copied once.
func (w *PMTilesWriter) cluster(entries []pmEntry) (*os.File, uint64, int, error) {
	out, err := os.CreateTemp(filepath.Dir(w.path), "pmtiles-clustered-*.tmp")
	if err != nil {
		return nil, 0, 0, err
	}

	moved := make(map[uint64]uint64) // old offset → new offset
	var offset uint64
	var buf []byte
	for i := range entries {
		e := &entries[i]
		if n, ok := moved[e.Offset]; ok {
			e.Offset = n
			continue
		}
		if cap(buf) < int(e.Length) {
			buf = make([]byte, e.Length)
		}
		buf = buf[:e.Length]
		if _, err := w.tmp.ReadAt(buf, int64(e.Offset)); err != nil {
			out.Close()
			os.Remove(out.Name())
			return nil, 0, 0, fmt.Errorf("reading tile at offset %d: %w", e.Offset, err)
		}
		if _, err := out.Write(buf); err != nil {
			out.Close()
			os.Remove(out.Name())
			return nil, 0, 0, err
		}
		moved[e.Offset] = offset
		e.Offset = offset
		offset += uint64(e.Length)
	}
	return out, offset, len(moved), nil
}

// mergeRuns folds consecutive tile IDs that share the same data into one
// entry with a longer run.
func mergeRuns(entries []pmEntry) []pmEntry {
	var runs []pmEntry
	for _, e := range entries {
		if n := len(runs); n > 0 {
			last := &runs[n-1]
			if e.TileID == last.TileID+uint64(last.RunLength) &&
				e.Offset == last.Offset && e.Length == last.Length {
				last.RunLength++
				continue
			}
		}
		e.RunLength = 1
		runs = append(runs, e)
	}
	return runs
}

// buildDirectories serializes entries into a root directory, splitting them
// into leaf directories when there are too many for the root.
func buildDirectories(entries []pmEntry) (root, leaves []byte, err error) {
	if len(entries) <= pmMaxRootEntries {
		root, err = serializeDirectory(entries)
		return root, nil, err
	}

	var leafBuf bytes.Buffer
	var pointers []pmEntry
	for chunk := range slices.Chunk(entries, pmLeafSize) {
		data, err := serializeDirectory(chunk)
		if err != nil {
			return nil, nil, err
		}
		pointers = append(pointers, pmEntry{
			TileID: chunk[0].TileID,
			Offset: uint64(leafBuf.Len()),
			Length: uint32(len(data)),
		})
		leafBuf.Write(data)
	}
	root, err = serializeDirectory(pointers)
	return root, leafBuf.Bytes(), err
}

// serializeDirectory writes the varint column layout and gzips it. An offset
// of 0 means "directly after the previous entry"; other offsets are stored
// plus one.
func serializeDirectory(entries []pmEntry) ([]byte, error) {
	var raw []byte
	raw = binary.AppendUvarint(raw, uint64(len(entries)))

	var lastID uint64
	for _, e := range entries {
		raw = binary.AppendUvarint(raw, e.TileID-lastID)
		lastID = e.TileID
	}
	for _, e := range entries {
		raw = binary.AppendUvarint(raw, uint64(e.RunLength))
	}
	for _, e := range entries {
		raw = binary.AppendUvarint(raw, uint64(e.Length))
	}
	for i, e := range entries {
		if i > 0 && e.Offset == entries[i-1].Offset+uint64(entries[i-1].Length) {
			raw = binary.AppendUvarint(raw, 0)
		} else {
			raw = binary.AppendUvarint(raw, e.Offset+1)
		}
	}
	return gzipBytes(raw)
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := gw.Write(data); err != nil {
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (w *PMTilesWriter) metadataJSON() map[string]string {
	name := w.meta.Name
	if name == "" {
		name = "img2tiles"
	}
	return map[string]string{
		"id":          w.meta.ID,
		"name":        name,
		"description": w.meta.Description,
		"format":      w.meta.Format,
		"type":        "overlay",
		"minzoom":     strconv.Itoa(w.meta.MinZoom),
		"maxzoom":     strconv.Itoa(w.meta.MaxZoom),
		"bounds":      w.meta.boundsString(),
		"center":      w.meta.centerString(),
	}
}

// Abort discards spooled tiles without writing the archive.
func (w *PMTilesWriter) Abort() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return
	}
	w.done = true
	w.removeTemp()
}

func (w *PMTilesWriter) removeTemp() {
	name := w.tmp.Name()
	w.tmp.Close()
	os.Remove(name)
}
