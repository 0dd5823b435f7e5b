package grib2

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ComplexPacking holds DRS Templates 5.2 (complex packing) and 5.3 (complex
// packing with spatial differencing). SpatialOrder is 0 for template 5.2.
type ComplexPacking struct {
	scaling
	Nbits            int // bits per group reference value
	TypeOfValue      byte
	SplittingMethod  byte
	MissingMgmt      byte
	PrimaryMissing   float64
	SecondaryMissing float64
	NG               int // number of groups
	RefGroupWidth    int
	BitsGroupWidth   int
	RefGroupLength   uint32
	LengthIncrement  byte
	LenLastGroup     uint32
	BitsGroupLength  int
	SpatialOrder     int
	NOctetsExtra     int
}

// parseComplex decodes Section 5 with template 5.2 or 5.3.
func parseComplex(sec []byte, template int) (ComplexPacking, error) {
	need := 11 + 36
	if template == 3 {
		need = 11 + 38
	}
	if len(sec) < need {
		return ComplexPacking{}, fmt.Errorf("section 5 DRS 5.%d: too short (%d bytes)", template, len(sec))
	}
	t := sec[11:]

	ng := binary.BigEndian.Uint32(t[20:24])
	if ng < 1 || ng > maxNG {
		return ComplexPacking{}, fmt.Errorf("section 5: ng=%d out of valid range [1, %d]", ng, maxNG)
	}

	p := ComplexPacking{
		scaling:          readScaling(t),
		Nbits:            int(t[8]),
		TypeOfValue:      t[9],
		SplittingMethod:  t[10],
		MissingMgmt:      t[11],
		PrimaryMissing:   float64(math.Float32frombits(binary.BigEndian.Uint32(t[12:16]))),
		SecondaryMissing: float64(math.Float32frombits(binary.BigEndian.Uint32(t[16:20]))),
		NG:               int(ng),
		RefGroupWidth:    int(t[24]),
		BitsGroupWidth:   int(t[25]),
		RefGroupLength:   binary.BigEndian.Uint32(t[26:30]),
		LengthIncrement:  t[30],
		LenLastGroup:     binary.BigEndian.Uint32(t[31:35]),
		BitsGroupLength:  int(t[35]),
	}
	if template == 3 {
		p.SpatialOrder = int(t[36])
		p.NOctetsExtra = int(t[37])
	}

	for name, w := range map[string]int{
		"Nbits":           p.Nbits,
		"BitsGroupWidth":  p.BitsGroupWidth,
		"BitsGroupLength": p.BitsGroupLength,
	} {
		if w > maxBitWidth {
			return ComplexPacking{}, fmt.Errorf("section 5: %s=%d exceeds %d", name, w, maxBitWidth)
		}
	}
	return p, nil
}

// unpack decodes Section 7 (header included) for templates 5.2 and 5.3.
func (p ComplexPacking) unpack(sec7 []byte) ([]float64, error) {
	if len(sec7) < 5 {
		return nil, fmt.Errorf("complex: section 7 too short")
	}
	data := sec7[5:]

	order := p.SpatialOrder
	m := p.NOctetsExtra
	if order < 0 || order > 2 {
		return nil, fmt.Errorf("complex: unsupported spatial differencing order %d", order)
	}
	if order > 0 && (m < 1 || m > 4) {
		return nil, fmt.Errorf("complex: unsupported extra descriptor octets %d", m)
	}
	if p.NG < 1 || p.NG > maxNG {
		return nil, fmt.Errorf("complex: ng=%d out of valid range [1, %d]", p.NG, maxNG)
	}

	// Extra descriptors: initial values then the overall minimum.
	var initVals []int64
	var yMin int64
	extraBytes := 0
	if order > 0 {
		extraBytes = (order + 1) * m
		if len(data) < extraBytes {
			return nil, fmt.Errorf("complex: data too short for extra descriptors (%d < %d)", len(data), extraBytes)
		}
		initVals = make([]int64, order)
		for i := range initVals {
			initVals[i] = readSignMagOctets(data[i*m : i*m+m])
		}
		yMin = readSignMagOctets(data[order*m : order*m+m])
	}

	br := newBitReader(data[extraBytes:])
	ng := p.NG

	// Group references, widths and lengths each end on a byte boundary.
	grefs := make([]int64, ng)
	for i := range grefs {
		v, err := br.read(p.Nbits)
		if err != nil {
			return nil, fmt.Errorf("complex: reading gref[%d]: %w", i, err)
		}
		grefs[i] = int64(v)
	}
	br.align()

	widths := make([]int, ng)
	for i := range widths {
		v, err := br.read(p.BitsGroupWidth)
		if err != nil {
			return nil, fmt.Errorf("complex: reading width[%d]: %w", i, err)
		}
		widths[i] = p.RefGroupWidth + int(v)
		if widths[i] > maxBitWidth {
			return nil, fmt.Errorf("complex: group %d width %d exceeds %d", i, widths[i], maxBitWidth)
		}
	}
	br.align()

	lengths := make([]int, ng)
	total := 0
	for i := range lengths {
		v, err := br.read(p.BitsGroupLength)
		if err != nil {
			return nil, fmt.Errorf("complex: reading length[%d]: %w", i, err)
		}
		if i == ng-1 {
			// The last group length comes from Section 5, but its bits are still present.
			lengths[i] = int(p.LenLastGroup)
		} else {
			lengths[i] = int(v)*int(p.LengthIncrement) + int(p.RefGroupLength)
		}
		total += lengths[i]
		if total > maxTotal {
			return nil, fmt.Errorf("complex: total values %d exceed maximum %d", total, maxTotal)
		}
	}
	br.align()

	if total < order {
		return nil, fmt.Errorf("complex: %d values cannot hold %d initial values", total, order)
	}

	packed := make([]int64, 0, total)
	for g := 0; g < ng; g++ {
		for k := 0; k < lengths[g]; k++ {
			if widths[g] == 0 {
				packed = append(packed, grefs[g])
				continue
			}
			v, err := br.read(widths[g])
			if err != nil {
				return nil, fmt.Errorf("complex: reading group %d val %d: %w", g, k, err)
			}
			packed = append(packed, grefs[g]+int64(v))
		}
	}

	x := packed
	switch order {
	case 1:
		x = make([]int64, total)
		x[0] = initVals[0]
		for i := 1; i < total; i++ {
			x[i] = packed[i] + yMin + x[i-1]
		}
	case 2:
		x = make([]int64, total)
		x[0] = initVals[0]
		x[1] = initVals[1]
		for i := 2; i < total; i++ {
			x[i] = packed[i] + yMin + 2*x[i-1] - x[i-2]
		}
	}

	value := p.decoder()
	out := make([]float64, total)
	for i, v := range x {
		out[i] = value(float64(v))
	}
	return out, nil
}

// readSignMagOctets reads a big-endian sign-magnitude integer; the MSB is the sign.
func readSignMagOctets(b []byte) int64 {
	if len(b) == 0 {
		return 0
	}
	raw := readUintOctets(b)
	sign := uint64(1) << (uint(len(b))*8 - 1)
	if raw&sign != 0 {
		return -int64(raw &^ sign)
	}
	return int64(raw)
}

// readUintOctets reads a big-endian unsigned integer of any width up to 8 bytes.
func readUintOctets(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}
