package output

import (
	"encoding/binary"
	"math"

	"github.com/paulmach/orb"
)

type pmHeader struct {
	RootDirOffset     uint64
	RootDirLength     uint64
	MetadataOffset    uint64
	MetadataLength    uint64
	LeafDirOffset     uint64
	LeafDirLength     uint64
	TileDataOffset    uint64
	TileDataLength    uint64
	NumAddressedTiles uint64
	NumTileEntries    uint64
	NumTileContents   uint64
	TileType          uint8
	MinZoom           uint8
	MaxZoom           uint8
	Bounds            orb.Bound
}

// serialize encodes the fixed 127-byte v3 header. The archive is always
// clustered, directories are gzipped and tiles are stored as encoded.
func (h *pmHeader) serialize() []byte {
	buf := make([]byte, 0, pmHeaderSize)
	buf = append(buf, "PMTiles"...)
	buf = append(buf, 3)
	for _, v := range []uint64{
		h.RootDirOffset, h.RootDirLength,
		h.MetadataOffset, h.MetadataLength,
		h.LeafDirOffset, h.LeafDirLength,
		h.TileDataOffset, h.TileDataLength,
		h.NumAddressedTiles, h.NumTileEntries, h.NumTileContents,
	} {
		buf = binary.LittleEndian.AppendUint64(buf, v)
	}
	buf = append(buf, 1, pmCompressionGzip, pmCompressionNone, h.TileType, h.MinZoom, h.MaxZoom)

	center := h.Bounds.Center()
	for _, v := range []float64{h.Bounds.Min.Lon(), h.Bounds.Min.Lat(), h.Bounds.Max.Lon(), h.Bounds.Max.Lat()} {
		buf = binary.LittleEndian.AppendUint32(buf, e7(v))
	}
	buf = append(buf, uint8((int(h.MinZoom)+int(h.MaxZoom))/2))
	buf = binary.LittleEndian.AppendUint32(buf, e7(center.Lon()))
	buf = binary.LittleEndian.AppendUint32(buf, e7(center.Lat()))
	return buf
}

func e7(v float64) uint32 {
	return uint32(int32(math.Round(v * 1e7)))
}
