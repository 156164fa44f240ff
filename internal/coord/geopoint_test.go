package coord

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

func mustFromDegrees(lat, lon float64) GeoPoint {
	p, err := FromDegrees(lat, lon)
	if err != nil {
		panic(err)
	}
	return p
}

func TestFromDegrees(t *testing.T) {
	tests := []struct {
		name             string
		lat, lon         float64
		wantLat, wantLon float64
	}{
		{"origin", 0, 0, 0, 0},
		{"zurich", 47.3769, 8.5417, 47.3769, 8.5417},
		{"lat clamped north", 120, 10, 90, 10},
		{"lat clamped south", -95, 10, -90, 10},
		{"lon clamped east", 10, 200, 10, 180},
		{"lon clamped west", 10, -720, 10, -180},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := FromDegrees(tt.lat, tt.lon)
			if err != nil {
				t.Fatalf("FromDegrees(%v, %v): %v", tt.lat, tt.lon, err)
			}
			if p.Lat() != tt.wantLat || p.Lon() != tt.wantLon {
				t.Errorf("got (%v, %v), want (%v, %v)", p.Lat(), p.Lon(), tt.wantLat, tt.wantLon)
			}
		})
	}
}

func TestFromDegrees_NaN(t *testing.T) {
	for _, in := range [][2]float64{{math.NaN(), 0}, {0, math.NaN()}} {
		_, err := FromDegrees(in[0], in[1])
		if !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("FromDegrees(%v, %v) error = %v, want ErrOutOfBounds", in[0], in[1], err)
		}
	}
}

func TestFromRadians(t *testing.T) {
	p, err := FromRadians(math.Pi/4, -math.Pi/2)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(p.Lat()-45) > 1e-12 || math.Abs(p.Lon()+90) > 1e-12 {
		t.Errorf("got (%v, %v), want (45, -90)", p.Lat(), p.Lon())
	}

	bad := [][2]float64{
		{math.Pi, 0},
		{-math.Pi / 2 * 1.01, 0},
		{0, 4},
		{0, -3.5},
		{math.NaN(), 0},
	}
	for _, in := range bad {
		if _, err := FromRadians(in[0], in[1]); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("FromRadians(%v, %v) error = %v, want ErrOutOfBounds", in[0], in[1], err)
		}
	}
}

func TestDegreesToRadians_Clamp(t *testing.T) {
	if got := DegreesToRadians(45); math.Abs(got-math.Pi/4) > 1e-15 {
		t.Errorf("DegreesToRadians(45) = %v", got)
	}
	if got := DegreesToRadians(-180); math.Abs(got+math.Pi) > 1e-15 {
		t.Errorf("DegreesToRadians(-180) = %v", got)
	}
	// Inputs above 90 saturate.
	if got := DegreesToRadians(135); got != math.Pi/2 {
		t.Errorf("DegreesToRadians(135) = %v, want π/2", got)
	}
	p := mustFromDegrees(0, 135)
	if p.Lon() != 135 || p.LonRadians() != math.Pi/2 {
		t.Errorf("lon = %v (%v rad), want 135 (π/2 rad)", p.Lon(), p.LonRadians())
	}
}

func TestWithLatitudeLongitude(t *testing.T) {
	p := mustFromDegrees(10, 20)
	q := p.WithLatitude(-30).WithLongitude(60)

	if p.Lat() != 10 || p.Lon() != 20 {
		t.Errorf("original modified: (%v, %v)", p.Lat(), p.Lon())
	}
	if q.Lat() != -30 || q.Lon() != 60 {
		t.Errorf("got (%v, %v), want (-30, 60)", q.Lat(), q.Lon())
	}
	if q.LatRadians() != DegreesToRadians(-30) || q.LonRadians() != DegreesToRadians(60) {
		t.Errorf("radian cache out of sync: (%v, %v)", q.LatRadians(), q.LonRadians())
	}
}

func TestDistanceTo(t *testing.T) {
	zurich := mustFromDegrees(47.3769, 8.5417)
	london := mustFromDegrees(51.5074, -0.1278)

	if d := zurich.DistanceTo(zurich); d != 0 {
		t.Errorf("distance to self = %v, want 0", d)
	}
	d := zurich.DistanceTo(london)
	if math.Abs(d-776.235) > 0.01 {
		t.Errorf("zurich->london = %v km, want ~776.235", d)
	}
	if back := london.DistanceTo(zurich); math.Abs(back-d) > 1e-9 {
		t.Errorf("distance not symmetric: %v vs %v", d, back)
	}

	pole := mustFromDegrees(90, 0)
	equator := mustFromDegrees(0, 0)
	if got, want := pole.DistanceTo(equator), math.Pi/2*EarthRadiusKm; math.Abs(got-want) > 1e-6 {
		t.Errorf("pole->equator = %v, want %v", got, want)
	}
}

func TestIsInsidePolygon(t *testing.T) {
	square := []GeoPoint{
		mustFromDegrees(0, 0),
		mustFromDegrees(0, 10),
		mustFromDegrees(10, 10),
		mustFromDegrees(10, 0),
	}
	// Concave "L" shape.
	ell := []GeoPoint{
		mustFromDegrees(0, 0),
		mustFromDegrees(0, 20),
		mustFromDegrees(10, 20),
		mustFromDegrees(10, 10),
		mustFromDegrees(20, 10),
		mustFromDegrees(20, 0),
	}

	tests := []struct {
		name    string
		polygon []GeoPoint
		lat     float64
		lon     float64
		want    bool
	}{
		{"square center", square, 5, 5, true},
		{"square outside east", square, 5, 15, false},
		{"square outside north", square, 15, 5, false},
		{"square outside south", square, -1, 5, false},
		{"ell lower arm", ell, 5, 15, true},
		{"ell upper arm", ell, 15, 5, true},
		{"ell notch", ell, 15, 15, false},
		{"empty polygon", nil, 1, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mustFromDegrees(tt.lat, tt.lon)
			got := p.IsInsidePolygon(tt.polygon)
			if got != tt.want {
				t.Errorf("IsInsidePolygon = %v, want %v", got, tt.want)
			}
			if len(tt.polygon) == 0 {
				return
			}
			ring := make(orb.Ring, 0, len(tt.polygon)+1)
			for _, v := range tt.polygon {
				ring = append(ring, v.Point())
			}
			ring = append(ring, ring[0])
			if planar.RingContains(ring, p.Point()) != got {
				t.Errorf("disagrees with planar.RingContains for %v", p)
			}
		})
	}
}

func TestGeoBounds(t *testing.T) {
	b, err := NewGeoBounds(47.8, 45.8, 10.5, 5.9)
	if err != nil {
		t.Fatal(err)
	}
	if b.UpperRight.Lat() != 47.8 || b.UpperRight.Lon() != 10.5 {
		t.Errorf("upper-right = %v", b.UpperRight)
	}
	if b.LowerLeft.Lat() != 45.8 || b.LowerLeft.Lon() != 5.9 {
		t.Errorf("lower-left = %v", b.LowerLeft)
	}

	bound := b.Bound()
	if bound.Min != (orb.Point{5.9, 45.8}) || bound.Max != (orb.Point{10.5, 47.8}) {
		t.Errorf("Bound() = %v", bound)
	}
	lat, lon := b.Center()
	if math.Abs(lat-46.8) > 1e-9 || math.Abs(lon-8.2) > 1e-9 {
		t.Errorf("Center() = (%v, %v), want (46.8, 8.2)", lat, lon)
	}

	if !b.Contains(mustFromDegrees(46.9, 7.4)) {
		t.Error("bern should be inside")
	}
	if b.Contains(mustFromDegrees(48.1, 11.6)) {
		t.Error("munich should be outside")
	}

	if _, err := NewGeoBounds(math.NaN(), 0, 1, 0); !errors.Is(err, ErrOutOfBounds) {
		t.Errorf("NaN north: error = %v, want ErrOutOfBounds", err)
	}
}
