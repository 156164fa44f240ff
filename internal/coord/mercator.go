package coord

import (
	"math"
	"strings"
)

const (
	// TileSize is the standard web map tile dimension.
	TileSize = 256
	// MaxZoom is the deepest level whose global pixel space still fits the quadkey scheme.
	MaxZoom = 23

	// MinLatitude and MaxLatitude bound the square Mercator map.
	MinLatitude  = -85.05112878
	MaxLatitude  = 85.05112878
	MinLongitude = -180.0
	MaxLongitude = 180.0

	// EarthRadiusMeters is the WGS84 equatorial radius used for ground resolution.
	EarthRadiusMeters = 6378137.0
)

// TileCount returns the number of tiles per axis at zoom level z.
func TileCount(z int) int {
	return 1 << uint(z)
}

// MapSize returns the width and height of the global pixel space at zoom level z.
func MapSize(z int) int {
	return TileSize << uint(z)
}

func clip(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// LatLonToPixel projects WGS84 degrees to global pixel coordinates at zoom z.
// Latitude is clamped to the Mercator range and the result to [0, MapSize(z)-1].
func LatLonToPixel(lat, lon float64, z int) (px, py int) {
	lat = clip(lat, MinLatitude, MaxLatitude)
	lon = clip(lon, MinLongitude, MaxLongitude)

	x := (lon + 180.0) / 360.0
	sinLat := math.Sin(lat * math.Pi / 180.0)
	y := 0.5 - math.Log((1+sinLat)/(1-sinLat))/(4*math.Pi)

	size := float64(MapSize(z))
	px = int(clip(x*size+0.5, 0, size-1))
	py = int(clip(y*size+0.5, 0, size-1))
	return
}

// PixelToLatLon converts global pixel coordinates at zoom z back to WGS84 degrees.
func PixelToLatLon(px, py, z int) (lat, lon float64) {
	size := float64(MapSize(z))
	x := clip(float64(px), 0, size-1)/size - 0.5
	y := 0.5 - clip(float64(py), 0, size-1)/size

	lat = 90.0 - 360.0*math.Atan(math.Exp(-y*2*math.Pi))/math.Pi
	lon = 360.0 * x
	return
}

// PixelToTile returns the tile containing a global pixel.
func PixelToTile(px, py int) (tx, ty int) {
	return px / TileSize, py / TileSize
}

// TileToPixel returns the global pixel at the top-left corner of a tile.
func TileToPixel(tx, ty int) (px, py int) {
	return tx * TileSize, ty * TileSize
}

// GroundResolution returns the meters covered by one pixel at the given latitude and zoom.
func GroundResolution(lat float64, z int) float64 {
	lat = clip(lat, MinLatitude, MaxLatitude)
	return math.Cos(lat*math.Pi/180.0) * 2 * math.Pi * EarthRadiusMeters / float64(MapSize(z))
}

// TileToQuadKey encodes a tile as a base-4 string of z digits. Each prefix of
// length k names the ancestor tile at zoom k.
func TileToQuadKey(tx, ty, z int) string {
	var qk strings.Builder
	qk.Grow(z)
	for i := z; i > 0; i-- {
		digit := byte('0')
		mask := 1 << uint(i-1)
		if tx&mask != 0 {
			digit++
		}
		if ty&mask != 0 {
			digit += 2
		}
		qk.WriteByte(digit)
	}
	return qk.String()
}
