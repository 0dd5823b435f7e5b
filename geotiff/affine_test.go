package geotiff

import (
	"math"
	"testing"
)

func TestAffineMulAppliesRightFirst(t *testing.T) {
	scale := Affine{A: 2, E: 3}
	shift := Translation(1, -1)

	cases := []struct {
		name string
		a    Affine
		want [2]float64
	}{
		{"scale then shift", shift.Mul(scale), [2]float64{2*4 + 1, 3*5 - 1}},
		{"shift then scale", scale.Mul(shift), [2]float64{2 * (4 + 1), 3 * (5 - 1)}},
		{"identity", Identity.Mul(scale), [2]float64{8, 15}},
	}
	for _, tc := range cases {
		x, y := tc.a.Apply(4, 5)
		if x != tc.want[0] || y != tc.want[1] {
			t.Errorf("%s: Apply(4, 5) = (%g, %g), want (%g, %g)", tc.name, x, y, tc.want[0], tc.want[1])
		}
	}
}

// Pixel centres mapped forward then back land within half a pixel of where
// they started, for north-up, rotated and sheared transforms.
func TestAffineRoundTrip(t *testing.T) {
	transforms := []Affine{
		{A: 0.25, C: -130, E: -0.25, F: 55},
		{A: 3000, C: -2.7e6, E: -3000, F: 1.6e6},
		{A: 0.5, B: 0.1, C: 10, D: -0.05, E: -0.5, F: 12},
	}
	for _, tr := range transforms {
		centre := tr.Mul(Translation(0.5, 0.5))
		inv, err := centre.Invert()
		if err != nil {
			t.Fatalf("Invert(%v): %v", centre, err)
		}
		for _, p := range [][2]float64{{0, 0}, {7, 3}, {1798, 1058}} {
			x, y := centre.Apply(p[0], p[1])
			col, row := inv.Apply(x, y)
			if math.Abs(col-p[0]) >= 0.5 || math.Abs(row-p[1]) >= 0.5 {
				t.Errorf("%v: pixel %v came back as (%g, %g)", tr, p, col, row)
			}
			if math.Round(col) != p[0] || math.Round(row) != p[1] {
				t.Errorf("%v: pixel %v rounds to (%g, %g)", tr, p, math.Round(col), math.Round(row))
			}
		}
	}
}

func TestAffineInvertDegenerate(t *testing.T) {
	for _, a := range []Affine{
		{},
		{A: 1, B: 2, D: 2, E: 4},
		{A: math.NaN(), E: 1},
	} {
		if _, err := a.Invert(); err == nil {
			t.Errorf("Invert(%v): expected an error", a)
		}
	}
}
