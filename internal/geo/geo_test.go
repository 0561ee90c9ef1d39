package geo

import (
	"math"
	"testing"
)

func TestDistanceIdentity(t *testing.T) {
	points := []Point{
		{0, 0},
		Reference,
		{-36.7939, 174.7743},
		{89.9, -179.9},
	}
	for _, p := range points {
		if d := Distance(p.Lat, p.Lng, p.Lat, p.Lng); d != 0 {
			t.Errorf("Distance(%v, %v) = %v, want 0", p, p, d)
		}
	}
}

func TestDistanceSymmetric(t *testing.T) {
	a := Point{-36.8436, 174.7595}
	b := Point{-36.9005, 174.9249}
	ab := a.DistanceTo(b)
	ba := b.DistanceTo(a)
	if math.Abs(ab-ba) > 1e-9 {
		t.Errorf("distance not symmetric: %v vs %v", ab, ba)
	}
	if ab <= 0 {
		t.Errorf("expected positive distance, got %v", ab)
	}
}

func TestDistanceKnownValues(t *testing.T) {
	tests := []struct {
		name string
		a, b Point
		want float64
		tol  float64
	}{
		{"one degree of latitude", Point{0, 0}, Point{1, 0}, 111.195, 0.01},
		{"antipodes", Point{0, 0}, Point{0, 180}, math.Pi * EarthRadiusKm, 0.001},
		{"auckland to wellington", Point{-36.8485, 174.7633}, Point{-41.2865, 174.7762}, 493.4, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.a.DistanceTo(tt.b)
			if math.Abs(got-tt.want) > tt.tol {
				t.Errorf("got %v, want %v ± %v", got, tt.want, tt.tol)
			}
		})
	}
}

func TestFormatDistance(t *testing.T) {
	tests := []struct {
		km   float64
		want string
	}{
		{0, "0 m"},
		{0.2346, "235 m"},
		{9.99, "10.0 km"},
		{0.9994, "999 m"},
		{1, "1.0 km"},
		{2.345, "2.3 km"},
		{9.94, "9.9 km"},
		{10, "10 km"},
		{12.6, "13 km"},
		{math.NaN(), "n/a"},
		{math.Inf(1), "n/a"},
		{-1, "n/a"},
	}
	for _, tt := range tests {
		if got := FormatDistance(tt.km); got != tt.want {
			t.Errorf("FormatDistance(%v) = %q, want %q", tt.km, got, tt.want)
		}
	}
}

func TestPointValid(t *testing.T) {
	tests := []struct {
		p    Point
		want bool
	}{
		{Reference, true},
		{Point{90, 180}, true},
		{Point{90.1, 0}, false},
		{Point{0, -180.5}, false},
		{Point{math.NaN(), 0}, false},
	}
	for _, tt := range tests {
		if got := tt.p.Valid(); got != tt.want {
			t.Errorf("%v.Valid() = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestSquaredDegreeDistanceOrdering(t *testing.T) {
	origin := Point{-36.8441, 174.7687}
	near := Point{-36.8457, 174.7705}
	far := Point{-36.9005, 174.9249}
	if SquaredDegreeDistance(origin, near) >= SquaredDegreeDistance(origin, far) {
		t.Error("nearer point should sort first")
	}
}
