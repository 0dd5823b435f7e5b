package geotiff

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Affine maps pixel (col, row) coordinates to model (x, y) coordinates:
//
//	x = A*col + B*row + C
//	y = D*col + E*row + F
type Affine struct {
	A, B, C float64
	D, E, F float64
}

// Identity is the identity transform.
var Identity = Affine{A: 1, E: 1}

// Translation returns the transform that shifts by (xoff, yoff).
func Translation(xoff, yoff float64) Affine {
	return Affine{A: 1, C: xoff, E: 1, F: yoff}
}

// Apply transforms (x, y).
func (a Affine) Apply(x, y float64) (float64, float64) {
	return a.A*x + a.B*y + a.C, a.D*x + a.E*y + a.F
}

func (a Affine) dense() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		a.A, a.B, a.C,
		a.D, a.E, a.F,
		0, 0, 1,
	})
}

func fromDense(m mat.Matrix) Affine {
	return Affine{
		A: m.At(0, 0), B: m.At(0, 1), C: m.At(0, 2),
		D: m.At(1, 0), E: m.At(1, 1), F: m.At(1, 2),
	}
}

// Mul returns the composition a·b, which applies b first.
func (a Affine) Mul(b Affine) Affine {
	var m mat.Dense
	m.Mul(a.dense(), b.dense())
	return fromDense(&m)
}

// Invert returns the inverse transform. A degenerate transform is an error.
func (a Affine) Invert() (Affine, error) {
	if det := a.A*a.E - a.B*a.D; det == 0 || math.IsNaN(det) {
		return Affine{}, fmt.Errorf("affine transform %v is not invertible", a)
	}
	var inv mat.Dense
	if err := inv.Inverse(a.dense()); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) || math.IsInf(float64(cond), 1) {
			return Affine{}, fmt.Errorf("invert affine transform: %w", err)
		}
	}
	return fromDense(&inv), nil
}
