package interp

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// square is the 2×2 grid used across these tests:
//
//	lat 11: 3 4
//	lat 10: 1 2
//	       lon 20 21
func square(t *testing.T, method Method) *Grid {
	t.Helper()
	g, err := NewGrid([]float64{10, 11}, []float64{20, 21}, mat.NewDense(2, 2, []float64{1, 2, 3, 4}), method)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	return g
}

func TestLinearCenterIsMean(t *testing.T) {
	got, err := square(t, Linear).At(10.5, 20.5)
	if err != nil {
		t.Fatalf("At: %v", err)
	}
	if got != 2.5 {
		t.Errorf("At(center) = %g, want 2.5", got)
	}
}

func TestLinearWeights(t *testing.T) {
	g := square(t, Linear)
	cases := []struct {
		lat, lon, want float64
	}{
		{10.25, 20.5, 2.0},   // 1.5*0.75 + 3.5*0.25
		{10.5, 20.25, 2.25},  // 1.25*0.5 + 3.25*0.5
		{10.1, 20.9, 2.1},    // 1.9*0.9 + 3.9*0.1
		{10.75, 20.75, 3.25}, // 1.75*0.25 + 3.75*0.75
	}
	for _, tc := range cases {
		got, err := g.At(tc.lat, tc.lon)
		if err != nil {
			t.Fatalf("At(%g, %g): %v", tc.lat, tc.lon, err)
		}
		if math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("At(%g, %g) = %g, want %g", tc.lat, tc.lon, got, tc.want)
		}
	}
}

func TestNearest(t *testing.T) {
	g := square(t, Nearest)
	cases := []struct {
		lat, lon, want float64
	}{
		{10.1, 20.1, 1},
		{10.1, 20.9, 2},
		{10.9, 20.1, 3},
		{10.9, 20.9, 4},
		// Exactly halfway goes to the lower node on both axes.
		{10.5, 20.5, 1},
		{10.5, 20.9, 2},
		{10.9, 20.5, 3},
	}
	for _, tc := range cases {
		got, err := g.At(tc.lat, tc.lon)
		if err != nil {
			t.Fatalf("At(%g, %g): %v", tc.lat, tc.lon, err)
		}
		if got != tc.want {
			t.Errorf("At(%g, %g) = %g, want %g", tc.lat, tc.lon, got, tc.want)
		}
	}
}

// A grid given north-to-south must answer exactly like the same grid given
// south-to-north.
func TestDescendingLatitudesMatchAscending(t *testing.T) {
	lats := []float64{50, 49, 48}
	lons := []float64{0, 1, 2, 3}
	vals := []float64{
		9, 10, 11, 12,
		5, 6, 7, 8,
		1, 2, 3, 4,
	}
	ascVals := []float64{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
	}
	for _, method := range []Method{Nearest, Linear} {
		desc, err := NewGrid(lats, lons, mat.NewDense(3, 4, vals), method)
		if err != nil {
			t.Fatalf("NewGrid(descending): %v", err)
		}
		asc, err := NewGrid([]float64{48, 49, 50}, lons, mat.NewDense(3, 4, ascVals), method)
		if err != nil {
			t.Fatalf("NewGrid(ascending): %v", err)
		}
		for _, p := range [][2]float64{{48.3, 0.2}, {49.5, 1.5}, {49.9, 2.7}, {48.5, 2.5}} {
			a, errA := asc.At(p[0], p[1])
			d, errD := desc.At(p[0], p[1])
			if errA != nil || errD != nil {
				t.Fatalf("%v At(%v): %v / %v", method, p, errA, errD)
			}
			if a != d {
				t.Errorf("%v At(%v): descending %g, ascending %g", method, p, d, a)
			}
		}
	}
	if lats[0] != 50 || vals[0] != 9 {
		t.Error("NewGrid modified its inputs")
	}
}

func TestDescendingLongitudes(t *testing.T) {
	g, err := NewGrid([]float64{0, 1}, []float64{3, 2, 1}, mat.NewDense(2, 3, []float64{
		3, 2, 1,
		6, 5, 4,
	}), Nearest)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	got, err := g.At(0.2, 1.2)
	if err != nil {
		t.Fatalf("At: %v", err)
	}
	if got != 1 {
		t.Errorf("At(0.2, 1.2) = %g, want 1", got)
	}
	if lons := g.Longitudes(); lons[0] != 1 || lons[2] != 3 {
		t.Errorf("Longitudes() = %v, want ascending", lons)
	}
}

func TestNaNPropagates(t *testing.T) {
	g, err := NewGrid([]float64{0, 1}, []float64{0, 1}, mat.NewDense(2, 2, []float64{math.NaN(), 1, 1, 1}), Linear)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	got, err := g.At(0.5, 0.5)
	if err != nil {
		t.Fatalf("At: %v", err)
	}
	if !math.IsNaN(got) {
		t.Errorf("At = %g, want NaN", got)
	}
}

func TestAtOutOfBounds(t *testing.T) {
	g := square(t, Nearest)
	cases := []struct {
		lat, lon float64
		label    string
	}{
		{10.5, 19.9, "longitude"},
		{10.5, 21.1, "longitude"},
		{10.5, 20, "longitude"}, // on the edge
		{9.9, 20.5, "latitude"},
		{11, 20.5, "latitude"},
		{12, 25, "longitude"}, // longitude is checked first
		{math.NaN(), 20.5, "latitude"},
	}
	for _, tc := range cases {
		_, err := g.At(tc.lat, tc.lon)
		var be *BoundsError
		if !errors.As(err, &be) {
			t.Errorf("At(%g, %g) error = %v, want *BoundsError", tc.lat, tc.lon, err)
			continue
		}
		if be.Label != tc.label {
			t.Errorf("At(%g, %g) label = %q, want %q", tc.lat, tc.lon, be.Label, tc.label)
		}
	}
}

func TestEvalAllowsEdges(t *testing.T) {
	g := square(t, Linear)
	got, err := g.Eval(11, 21)
	if err != nil {
		t.Fatalf("Eval(corner): %v", err)
	}
	if got != 4 {
		t.Errorf("Eval(11, 21) = %g, want 4", got)
	}
	if _, err := g.Eval(11.01, 21); err == nil {
		t.Error("Eval beyond the edge: expected error, got nil")
	}
}

func TestNewGridErrors(t *testing.T) {
	cases := []struct {
		name       string
		lats, lons []float64
		r, c       int
		method     Method
	}{
		{"shape mismatch", []float64{0, 1}, []float64{0, 1, 2}, 2, 2, Nearest},
		{"single latitude", []float64{0}, []float64{0, 1}, 1, 2, Nearest},
		{"not monotonic", []float64{0, 2, 1}, []float64{0, 1}, 3, 2, Nearest},
		{"repeated node", []float64{0, 1}, []float64{0, 0}, 2, 2, Linear},
		{"bad method", []float64{0, 1}, []float64{0, 1}, 2, 2, Method(7)},
	}
	for _, tc := range cases {
		if _, err := NewGrid(tc.lats, tc.lons, mat.NewDense(tc.r, tc.c, nil), tc.method); err == nil {
			t.Errorf("%s: expected error, got nil", tc.name)
		}
	}
}

func TestParseMethod(t *testing.T) {
	for _, m := range []Method{Nearest, Linear} {
		got, err := ParseMethod(m.String())
		if err != nil || got != m {
			t.Errorf("ParseMethod(%q) = %v, %v", m.String(), got, err)
		}
	}
	if _, err := ParseMethod("cubic"); err == nil {
		t.Error("ParseMethod(cubic): expected error, got nil")
	}
}
