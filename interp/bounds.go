package interp

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// BoundsError reports a query coordinate outside the open interval
// (Min, Max) spanned by a grid axis or a raster extent.
type BoundsError struct {
	Label    string // "latitude" or "longitude"
	Value    float64
	Min, Max float64
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("%s %v is out of bounds for [%v, %v]", e.Label, e.Value, e.Min, e.Max)
}

// CheckRange returns a *BoundsError unless min < v < max. Points exactly on
// an edge are rejected, and NaN is never in range.
func CheckRange(label string, v, min, max float64) error {
	if min < v && v < max {
		return nil
	}
	return &BoundsError{Label: label, Value: v, Min: min, Max: max}
}

// CheckAxis checks v against the extent of axis, which may be in any order.
func CheckAxis(label string, axis []float64, v float64) error {
	if len(axis) == 0 {
		return fmt.Errorf("%s axis is empty", label)
	}
	return CheckRange(label, v, floats.Min(axis), floats.Max(axis))
}
