package grib2

import (
	"encoding/binary"
	"fmt"
	"math"
)

// scaling is the value equation shared by the grid point packings:
// Y = (R + X·2^E) / 10^D.
type scaling struct {
	R    float64
	E, D int
}

func (s scaling) decoder() func(x float64) float64 {
	twoE := math.Ldexp(1, s.E)
	tenD := math.Pow(10, float64(s.D))
	return func(x float64) float64 { return (s.R + x*twoE) / tenD }
}

// readScaling decodes the reference value and the binary and decimal scale
// factors that open DRS templates 5.0, 5.2 and 5.3.
func readScaling(t []byte) scaling {
	return scaling{
		R: float64(math.Float32frombits(binary.BigEndian.Uint32(t[0:4]))),
		E: decodeScaleFactor(binary.BigEndian.Uint16(t[4:6])),
		D: decodeScaleFactor(binary.BigEndian.Uint16(t[6:8])),
	}
}

// SimplePacking holds DRS Template 5.0 (grid point data, simple packing).
type SimplePacking struct {
	scaling
	Nbits       int
	TypeOfValue byte
	N           int // packed values, Section 5 octets 6-9
}

// parseSimple decodes Section 5 with template 5.0.
func parseSimple(sec []byte) (SimplePacking, error) {
	const size = 11 + 10
	if len(sec) < size {
		return SimplePacking{}, fmt.Errorf("DRS 5.0: %d bytes, need %d", len(sec), size)
	}
	n := binary.BigEndian.Uint32(sec[5:9])
	if n > maxTotal {
		return SimplePacking{}, fmt.Errorf("DRS 5.0: %d packed values exceed the limit of %d", n, maxTotal)
	}
	t := sec[11:]
	if int(t[8]) > maxBitWidth {
		return SimplePacking{}, fmt.Errorf("DRS 5.0: %d bits per value exceed %d", t[8], maxBitWidth)
	}
	return SimplePacking{
		scaling:     readScaling(t),
		Nbits:       int(t[8]),
		TypeOfValue: t[9],
		N:           int(n),
	}, nil
}

// unpack decodes Section 7 (header included): N consecutive Nbits-wide
// integers. Zero bits per value means a constant field of R / 10^D.
func (p SimplePacking) unpack(sec7 []byte) ([]float64, error) {
	if len(sec7) < 5 {
		return nil, fmt.Errorf("section 7: %d bytes", len(sec7))
	}
	value := p.decoder()
	out := make([]float64, p.N)
	if p.Nbits == 0 {
		c := value(0)
		for i := range out {
			out[i] = c
		}
		return out, nil
	}
	br := newBitReader(sec7[5:])
	for i := range out {
		x, err := br.read(p.Nbits)
		if err != nil {
			return nil, fmt.Errorf("value %d of %d: %w", i, p.N, err)
		}
		out[i] = value(float64(x))
	}
	return out, nil
}

// decodeScaleFactor decodes a 2-byte sign-magnitude scale factor.
func decodeScaleFactor(raw uint16) int {
	if raw&0x8000 != 0 {
		return -int(raw & 0x7FFF)
	}
	return int(raw)
}
