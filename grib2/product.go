package grib2

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// Fixed surface types (Code Table 4.5) that get special treatment.
const (
	SurfaceGround            = 1
	SurfaceIsobaric          = 100
	SurfaceMeanSea           = 101
	SurfaceHeightAboveGround = 103
	SurfaceMissing           = 255
)

// Product holds the Section 4 fields shared by the product definition
// templates this package reads (4.0, 4.1, 4.8, 4.11 and relatives).
type Product struct {
	Template     int
	Category     byte
	Number       byte
	TimeUnit     byte
	ForecastTime int64

	SurfaceType  byte
	SurfaceScale int
	SurfaceValue uint32

	// IntervalEnd is the end of the overall time interval (template 4.8),
	// zero when the template carries none.
	IntervalEnd time.Time
}

// parseSection4 decodes the product definition section.
func parseSection4(sec []byte) (Product, error) {
	// sec[5:7]=NV, sec[7:9]=template, sec[9]=category, sec[10]=number,
	// sec[17]=time unit, sec[18:22]=forecast time, sec[22]=surface type,
	// sec[23]=scale factor, sec[24:28]=scaled value
	if len(sec) < 9 {
		return Product{}, fmt.Errorf("section 4: too short (%d bytes)", len(sec))
	}
	tmpl := int(binary.BigEndian.Uint16(sec[7:9]))
	switch tmpl {
	case 0, 1, 2, 8, 11, 12, 15:
	default:
		return Product{}, fmt.Errorf("section 4: unsupported product definition template 4.%d", tmpl)
	}
	if len(sec) < 34 {
		return Product{}, fmt.Errorf("section 4 PDT 4.%d: too short (%d bytes)", tmpl, len(sec))
	}

	p := Product{
		Template:     tmpl,
		Category:     sec[9],
		Number:       sec[10],
		TimeUnit:     sec[17],
		ForecastTime: signMag32(binary.BigEndian.Uint32(sec[18:22])),
		SurfaceType:  sec[22],
		SurfaceScale: scaleFactor8(sec[23]),
		SurfaceValue: binary.BigEndian.Uint32(sec[24:28]),
	}

	if tmpl == 8 {
		// end of overall time interval: octets 35-41
		if len(sec) < 41 {
			return Product{}, fmt.Errorf("section 4 PDT 4.8: too short (%d bytes)", len(sec))
		}
		year := int(binary.BigEndian.Uint16(sec[34:36]))
		p.IntervalEnd = time.Date(year, time.Month(sec[36]), int(sec[37]),
			int(sec[38]), int(sec[39]), int(sec[40]), 0, time.UTC)
	}
	return p, nil
}

// scaleFactor8 decodes a 1-byte sign-magnitude scale factor; 0xFF (missing)
// reads as 0.
func scaleFactor8(b byte) int {
	switch {
	case b == 0xFF:
		return 0
	case b&0x80 != 0:
		return -int(b & 0x7F)
	}
	return int(b)
}

// Level returns the first fixed surface value the way ecCodes reports it:
// scaled value / 10^scale, isobaric surfaces converted from Pa to hPa.
// Missing surfaces report 0.
func (p Product) Level() int {
	if p.SurfaceType == SurfaceMissing || p.SurfaceValue == math.MaxUint32 {
		return 0
	}
	v := float64(p.SurfaceValue)
	if p.SurfaceScale != 0 {
		v /= math.Pow(10, float64(p.SurfaceScale))
	}
	if p.SurfaceType == SurfaceIsobaric {
		v /= 100
	}
	return int(math.Round(v))
}

// ForecastDuration converts ForecastTime using Code Table 4.4.
func (p Product) ForecastDuration() (time.Duration, error) {
	var unit time.Duration
	switch p.TimeUnit {
	case 0:
		unit = time.Minute
	case 1:
		unit = time.Hour
	case 2:
		unit = 24 * time.Hour
	case 10:
		unit = 3 * time.Hour
	case 11:
		unit = 6 * time.Hour
	case 12:
		unit = 12 * time.Hour
	case 13:
		unit = time.Second
	default:
		return 0, fmt.Errorf("unsupported forecast time unit %d", p.TimeUnit)
	}
	return time.Duration(p.ForecastTime) * unit, nil
}

// TypeOfLevel names the first fixed surface with ecCodes' typeOfLevel keys.
func (p Product) TypeOfLevel() string {
	switch p.SurfaceType {
	case SurfaceGround:
		return "surface"
	case 2:
		return "cloudBase"
	case 3:
		return "cloudTop"
	case 4:
		return "isothermZero"
	case 8:
		return "nominalTop"
	case 10:
		return "atmosphere"
	case SurfaceIsobaric:
		return "isobaricInhPa"
	case SurfaceMeanSea:
		return "meanSea"
	case 102:
		return "heightAboveSea"
	case SurfaceHeightAboveGround:
		return "heightAboveGround"
	case 104:
		return "sigma"
	case 105:
		return "hybrid"
	case 106:
		return "depthBelowLandLayer"
	case 107:
		return "theta"
	case 108:
		return "pressureFromGroundLayer"
	case 200:
		return "entireAtmosphere"
	default:
		return "unknown"
	}
}
