// Package interp evaluates a value grid defined on rectilinear latitude and
// longitude axes at arbitrary points.
package interp

import (
	"fmt"
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Method selects how values between grid nodes are produced.
type Method int

const (
	// Nearest picks the closest node; a point exactly halfway between two
	// nodes takes the lower one.
	Nearest Method = iota
	// Linear blends the four nodes of the enclosing cell.
	Linear
)

func (m Method) String() string {
	switch m {
	case Nearest:
		return "nearest"
	case Linear:
		return "linear"
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// ParseMethod accepts "nearest" and "linear".
func ParseMethod(s string) (Method, error) {
	switch s {
	case "nearest":
		return Nearest, nil
	case "linear":
		return Linear, nil
	}
	return 0, fmt.Errorf("unknown interpolation method %q (want nearest or linear)", s)
}

// Grid is a value grid on ascending latitude and longitude axes. Row i of
// the values belongs to lats[i], column j to lons[j].
type Grid struct {
	lats, lons []float64
	values     *mat.Dense
	method     Method
}

// NewGrid builds a Grid. Each axis must be strictly monotonic with at least
// two nodes; a descending axis is reversed together with the matching rows
// (latitude) or columns (longitude) of values. The inputs are not modified.
func NewGrid(lats, lons []float64, values *mat.Dense, method Method) (*Grid, error) {
	if method != Nearest && method != Linear {
		return nil, fmt.Errorf("unsupported interpolation method %v", method)
	}
	r, c := values.Dims()
	if r != len(lats) || c != len(lons) {
		return nil, fmt.Errorf("values are %dx%d but axes have %d latitudes and %d longitudes", r, c, len(lats), len(lons))
	}

	lats, flipRows, err := ascending("latitude", lats)
	if err != nil {
		return nil, err
	}
	lons, flipCols, err := ascending("longitude", lons)
	if err != nil {
		return nil, err
	}
	if flipRows || flipCols {
		values = flipped(values, flipRows, flipCols)
	}
	return &Grid{lats: lats, lons: lons, values: values, method: method}, nil
}

// ascending returns a copy of axis in ascending order and whether it had to
// be reversed.
func ascending(label string, axis []float64) ([]float64, bool, error) {
	if len(axis) < 2 {
		return nil, false, fmt.Errorf("%s axis needs at least 2 nodes, got %d", label, len(axis))
	}
	out := slices.Clone(axis)
	reversed := false
	if out[0] > out[1] {
		floats.Reverse(out)
		reversed = true
	}
	for i := 1; i < len(out); i++ {
		if !(out[i] > out[i-1]) {
			return nil, false, fmt.Errorf("%s axis is not strictly monotonic at index %d", label, i)
		}
	}
	return out, reversed, nil
}

func flipped(m *mat.Dense, rows, cols bool) *mat.Dense {
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		si := i
		if rows {
			si = r - 1 - i
		}
		for j := 0; j < c; j++ {
			sj := j
			if cols {
				sj = c - 1 - j
			}
			out.Set(i, j, m.At(si, sj))
		}
	}
	return out
}

// Latitudes returns the ascending latitude axis.
func (g *Grid) Latitudes() []float64 { return g.lats }

// Longitudes returns the ascending longitude axis.
func (g *Grid) Longitudes() []float64 { return g.lons }

// At bounds-checks (lat, lon) against the axes, longitude first, then
// evaluates the grid there.
func (g *Grid) At(lat, lon float64) (float64, error) {
	if err := CheckAxis("longitude", g.lons, lon); err != nil {
		return 0, err
	}
	if err := CheckAxis("latitude", g.lats, lat); err != nil {
		return 0, err
	}
	return g.Eval(lat, lon)
}

// Eval evaluates the grid at (y, x) in axis units without the open-interval
// check; points on the outer edge are allowed. Points beyond the edge are
// an error.
func (g *Grid) Eval(y, x float64) (float64, error) {
	i, ty, err := locate(g.lats, y)
	if err != nil {
		return 0, fmt.Errorf("latitude: %w", err)
	}
	j, tx, err := locate(g.lons, x)
	if err != nil {
		return 0, fmt.Errorf("longitude: %w", err)
	}

	if g.method == Nearest {
		if ty > 0.5 {
			i++
		}
		if tx > 0.5 {
			j++
		}
		return g.values.At(i, j), nil
	}

	v00 := g.values.At(i, j)
	v01 := g.values.At(i, j+1)
	v10 := g.values.At(i+1, j)
	v11 := g.values.At(i+1, j+1)
	return v00*(1-ty)*(1-tx) +
		v01*(1-ty)*tx +
		v10*ty*(1-tx) +
		v11*ty*tx, nil
}

// locate finds the cell [axis[i], axis[i+1]] holding v and the fractional
// offset t of v inside it.
func locate(axis []float64, v float64) (int, float64, error) {
	n := len(axis)
	if !(v >= axis[0] && v <= axis[n-1]) {
		return 0, 0, fmt.Errorf("%v is outside [%v, %v]", v, axis[0], axis[n-1])
	}
	i := sort.SearchFloat64s(axis, v) - 1
	i = max(0, min(i, n-2))
	t := (v - axis[i]) / (axis[i+1] - axis[i])
	return i, t, nil
}
