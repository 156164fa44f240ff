package coord

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// ErrOutOfBounds is returned when a point fails latitude/longitude range validation.
var ErrOutOfBounds = errors.New("geographic point out of bounds")

// EarthRadiusKm is the mean radius used for great-circle distances.
const EarthRadiusKm = 6371.01

const (
	minLatRad = -math.Pi / 2
	maxLatRad = math.Pi / 2
	minLonRad = -math.Pi
	maxLonRad = math.Pi
)

// GeoPoint is a WGS84 coordinate kept in degrees with a cached radian form.
// The zero value is the point (0, 0).
type GeoPoint struct {
	degLat, degLon float64
	radLat, radLon float64
}

// DegreesToRadians converts degrees to radians after clamping the input to at
// most 90. The clamp applies to longitudes as well, so radian longitudes east
// of 90° saturate at π/2.
func DegreesToRadians(deg float64) float64 {
	return math.Min(deg, 90) * math.Pi / 180.0
}

// RadiansToDegrees converts radians to degrees.
func RadiansToDegrees(rad float64) float64 {
	return rad * 180.0 / math.Pi
}

// FromDegrees builds a point from degrees, clamping longitude to [-180, 180]
// and latitude to [-90, 90] first.
func FromDegrees(lat, lon float64) (GeoPoint, error) {
	lon = math.Max(-180, math.Min(180, lon))
	lat = math.Max(-90, math.Min(90, lat))
	p := GeoPoint{
		degLat: lat,
		degLon: lon,
		radLat: DegreesToRadians(lat),
		radLon: DegreesToRadians(lon),
	}
	if err := p.checkBounds(); err != nil {
		return GeoPoint{}, err
	}
	return p, nil
}

// FromRadians builds a point from radians without clamping.
func FromRadians(lat, lon float64) (GeoPoint, error) {
	p := GeoPoint{
		degLat: RadiansToDegrees(lat),
		degLon: RadiansToDegrees(lon),
		radLat: lat,
		radLon: lon,
	}
	if err := p.checkBounds(); err != nil {
		return GeoPoint{}, err
	}
	return p, nil
}

// NaN fails every comparison, so the checks are written to reject it.
func (p GeoPoint) checkBounds() error {
	if !(p.radLat >= minLatRad && p.radLat <= maxLatRad) ||
		!(p.radLon >= minLonRad && p.radLon <= maxLonRad) {
		return fmt.Errorf("%w: lat=%v lon=%v", ErrOutOfBounds, p.degLat, p.degLon)
	}
	return nil
}

func (p GeoPoint) Lat() float64        { return p.degLat }
func (p GeoPoint) Lon() float64        { return p.degLon }
func (p GeoPoint) LatRadians() float64 { return p.radLat }
func (p GeoPoint) LonRadians() float64 { return p.radLon }

// WithLatitude returns a copy of p with the latitude replaced.
func (p GeoPoint) WithLatitude(deg float64) GeoPoint {
	p.degLat = deg
	p.radLat = DegreesToRadians(deg)
	return p
}

// WithLongitude returns a copy of p with the longitude replaced.
func (p GeoPoint) WithLongitude(deg float64) GeoPoint {
	p.degLon = deg
	p.radLon = DegreesToRadians(deg)
	return p
}

// Point returns p as an orb point (lon, lat).
func (p GeoPoint) Point() orb.Point {
	return orb.Point{p.degLon, p.degLat}
}

func (p GeoPoint) String() string {
	return fmt.Sprintf("(%.6f, %.6f)", p.degLat, p.degLon)
}

// DistanceTo returns the great-circle distance to other in kilometers using
// the spherical law of cosines.
func (p GeoPoint) DistanceTo(other GeoPoint) float64 {
	c := math.Sin(p.radLat)*math.Sin(other.radLat) +
		math.Cos(p.radLat)*math.Cos(other.radLat)*math.Cos(p.radLon-other.radLon)
	// Rounding can push c just past ±1.
	c = math.Max(-1, math.Min(1, c))
	return math.Acos(c) * EarthRadiusKm
}

// IsInsidePolygon reports whether p lies inside the polygon using the even-odd
// rule. The last vertex connects back to the first.
func (p GeoPoint) IsInsidePolygon(polygon []GeoPoint) bool {
	inside := false
	j := len(polygon) - 1
	for i := range polygon {
		vi, vj := polygon[i], polygon[j]
		if (vi.degLat < p.degLat && vj.degLat >= p.degLat) ||
			(vj.degLat < p.degLat && vi.degLat >= p.degLat) {
			cross := vi.degLon + (p.degLat-vi.degLat)/(vj.degLat-vi.degLat)*(vj.degLon-vi.degLon)
			if cross < p.degLon {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// GeoBounds is the footprint of the source image: its upper-right and
// lower-left corners.
type GeoBounds struct {
	UpperRight GeoPoint
	LowerLeft  GeoPoint
}

// NewGeoBounds builds bounds from north/south latitudes and east/west longitudes.
func NewGeoBounds(north, south, east, west float64) (GeoBounds, error) {
	ur, err := FromDegrees(north, east)
	if err != nil {
		return GeoBounds{}, fmt.Errorf("upper-right corner: %w", err)
	}
	ll, err := FromDegrees(south, west)
	if err != nil {
		return GeoBounds{}, fmt.Errorf("lower-left corner: %w", err)
	}
	return GeoBounds{UpperRight: ur, LowerLeft: ll}, nil
}

// Bound returns the bounds as an orb.Bound (Min = south-west, Max = north-east).
func (b GeoBounds) Bound() orb.Bound {
	return orb.Bound{Min: b.LowerLeft.Point(), Max: b.UpperRight.Point()}
}

// Center returns the midpoint of the bounds in degrees.
func (b GeoBounds) Center() (lat, lon float64) {
	c := b.Bound().Center()
	return c.Lat(), c.Lon()
}

// Polygon returns the four corners in counter-clockwise order starting at the
// lower-left corner.
func (b GeoBounds) Polygon() []GeoPoint {
	return []GeoPoint{
		b.LowerLeft,
		b.LowerLeft.WithLongitude(b.UpperRight.degLon),
		b.UpperRight,
		b.UpperRight.WithLongitude(b.LowerLeft.degLon),
	}
}

// Contains reports whether a point lies inside the bounds.
func (b GeoBounds) Contains(p GeoPoint) bool {
	return p.IsInsidePolygon(b.Polygon())
}
