package grib2

import "gonum.org/v1/gonum/mat"

// Field is a decoded GRIB2 field. Values are stored row-major in scan
// order: Vals[j*Ni + i].
type Field struct {
	Grid Grid
	Vals []float64
}

// Matrix views the values as an Nj×Ni matrix: row j, column i. The matrix
// shares storage with Vals.
func (f *Field) Matrix() *mat.Dense {
	ni, nj := f.Grid.Dims()
	return mat.NewDense(nj, ni, f.Vals)
}
