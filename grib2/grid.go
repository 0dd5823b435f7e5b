package grib2

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Grid is a decoded grid definition (Section 3). Values of a field on any
// grid are stored row-major in scan order: vals[j*Ni + i].
type Grid interface {
	// Template returns the grid definition template number (3.N).
	Template() int
	// Dims returns the number of points along a parallel (Ni) and a meridian (Nj).
	Dims() (ni, nj int)
}

// Scanning mode flags (Flag Table 3.4).
const (
	scanNegativeI    = 0x80
	scanPositiveJ    = 0x40
	scanConsecutiveJ = 0x20
	scanAlternating  = 0x10
)

// parseSection3 decodes the grid definition section and dispatches on the
// template number.
func parseSection3(sec []byte) (Grid, error) {
	// sec[5]=source, sec[6:10]=number of points, sec[10]=list octets,
	// sec[11]=list interpretation, sec[12:14]=template, sec[14:]=template data
	if len(sec) < 14 {
		return nil, fmt.Errorf("section 3: too short (%d bytes)", len(sec))
	}
	if sec[5] != 0 {
		return nil, fmt.Errorf("section 3: unsupported grid definition source %d", sec[5])
	}
	if sec[10] != 0 {
		return nil, fmt.Errorf("section 3: quasi-regular grids are not supported")
	}
	switch tmpl := int(binary.BigEndian.Uint16(sec[12:14])); tmpl {
	case 0:
		g, err := parseLatLonGrid(sec)
		if err != nil {
			return nil, err
		}
		return g, nil
	case 30:
		g, err := parseLambertGrid(sec)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("section 3: unsupported grid definition template 3.%d (supported: 3.0, 3.30)", tmpl)
	}
}

// LatLonGrid holds GDT 3.0 (regular latitude/longitude, "equidistant
// cylindrical") parameters. Angles are in degrees as stored: longitudes
// keep the file's 0-360 convention.
type LatLonGrid struct {
	Ni, Nj   int
	La1, Lo1 float64 // first grid point
	La2, Lo2 float64 // last grid point
	Di, Dj   float64 // increments, degrees
	ScanMode byte
}

func (g *LatLonGrid) Template() int      { return 0 }
func (g *LatLonGrid) Dims() (ni, nj int) { return g.Ni, g.Nj }

func parseLatLonGrid(sec []byte) (*LatLonGrid, error) {
	if len(sec) < 14+58 {
		return nil, fmt.Errorf("section 3 GDT 3.0: too short (%d bytes)", len(sec))
	}
	t := sec[14:]
	u32 := func(off int) uint32 { return binary.BigEndian.Uint32(t[off : off+4]) }

	ni, nj := int(u32(16)), int(u32(20))
	if ni <= 0 || ni > maxGridDim || nj <= 0 || nj > maxGridDim {
		return nil, fmt.Errorf("section 3: invalid grid dimensions %dx%d (max %d)", ni, nj, maxGridDim)
	}

	// Angles count 1e-6 degree units unless a basic angle and subdivision
	// are given.
	perDegree := 1e6
	basic, sub := u32(24), u32(28)
	if basic != 0 && basic != math.MaxUint32 && sub != 0 && sub != math.MaxUint32 {
		perDegree = float64(sub) / float64(basic)
	}
	angle := func(off int) float64 { return float64(signMag32(u32(off))) / perDegree }

	scan := t[57]
	if scan&(scanConsecutiveJ|scanAlternating) != 0 {
		return nil, fmt.Errorf("section 3: unsupported scan mode 0x%02X", scan)
	}

	return &LatLonGrid{
		Ni:       ni,
		Nj:       nj,
		La1:      angle(32),
		Lo1:      angle(36),
		La2:      angle(41),
		Lo2:      angle(45),
		Di:       float64(u32(49)) / perDegree,
		Dj:       float64(u32(53)) / perDegree,
		ScanMode: scan,
	}, nil
}

// DistinctLatitudes returns the Nj latitudes in scan order: entry j is the
// latitude of value row j.
func (g *LatLonGrid) DistinctLatitudes() []float64 {
	return spaced(g.La1, g.La2, g.Nj)
}

// DistinctLongitudes returns the Ni longitudes in scan order: entry i is the
// longitude of value column i. A grid crossing the 0/360 meridian continues
// past it (e.g. 350 … 370) so the axis stays monotonic.
func (g *LatLonGrid) DistinctLongitudes() []float64 {
	lo2 := g.Lo2
	if g.ScanMode&scanNegativeI == 0 {
		for lo2 < g.Lo1 {
			lo2 += 360
		}
	} else {
		for lo2 > g.Lo1 {
			lo2 -= 360
		}
	}
	return spaced(g.Lo1, lo2, g.Ni)
}

// spaced returns n evenly spaced values from first to last inclusive.
func spaced(first, last float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = first
		return out
	}
	step := (last - first) / float64(n-1)
	for k := range out {
		out[k] = first + float64(k)*step
	}
	out[n-1] = last
	return out
}
