package grib2

import (
	"fmt"
	"math"
)

// Section 6 bitmap indicators.
const (
	bitmapPresent = 0
	bitmapNone    = 255
)

// applyBitmap spreads packed values (one per set bit) over a grid of
// totalPoints, leaving NaN where the bitmap bit is clear.
// Bitmaps are MSB-first: bit 7 of byte 0 is grid point 0.
func applyBitmap(vals []float64, bitmap []byte, totalPoints int) ([]float64, error) {
	if len(bitmap)*8 < totalPoints {
		return nil, fmt.Errorf("bitmap: %d bytes cannot cover %d points", len(bitmap), totalPoints)
	}
	if set := countSetBits(bitmap, totalPoints); set != len(vals) {
		return nil, fmt.Errorf("bitmap: %d set bits but %d packed values", set, len(vals))
	}

	out := make([]float64, totalPoints)
	vi := 0
	for i := range out {
		if bitmapBit(bitmap, i) {
			out[i] = vals[vi]
			vi++
		} else {
			out[i] = math.NaN()
		}
	}
	return out, nil
}

// bitmapBit reports whether grid point i carries data.
func bitmapBit(bitmap []byte, i int) bool {
	b := i / 8
	if b >= len(bitmap) {
		return false
	}
	return bitmap[b]>>(7-uint(i%8))&1 == 1
}

func countSetBits(bitmap []byte, totalPoints int) int {
	n := 0
	for i := 0; i < totalPoints; i++ {
		if bitmapBit(bitmap, i) {
			n++
		}
	}
	return n
}
