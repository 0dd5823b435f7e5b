// Package grib2test builds small GRIB2 messages for tests: Section 1
// reference time, a GDT 3.0 or 3.30 grid, PDT 4.0 and DRS 5.0 simple
// packing, with a Section 6 bitmap whenever a value is NaN.
package grib2test

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"time"
)

// LatLon is a regular latitude/longitude grid (GDT 3.0), angles in degrees.
type LatLon struct {
	Ni, Nj   int
	La1, Lo1 float64
	La2, Lo2 float64
	ScanMode byte
}

// Lambert is a Lambert conformal grid (GDT 3.30).
type Lambert struct {
	Ni, Nj         int
	La1, Lo1       float64
	LoV            float64
	Latin1, Latin2 float64
	Dx, Dy         float64 // metres
}

// Message describes one GRIB2 message. Exactly one of LatLon and Lambert
// must be set. Values are row-major in scan order.
type Message struct {
	Discipline    byte
	RefTime       time.Time
	Category      byte
	Number        byte
	ForecastHours uint32
	SurfaceType   byte
	SurfaceValue  uint32
	LatLon        *LatLon
	Lambert       *Lambert
	Values        []float64
	DecimalScale  int
}

// Bytes encodes the message.
func (m Message) Bytes() []byte {
	var present []float64
	var bitmap []byte
	for i, v := range m.Values {
		if math.IsNaN(v) {
			if bitmap == nil {
				bitmap = make([]byte, (len(m.Values)+7)/8)
				for k := 0; k < i; k++ {
					bitmap[k/8] |= 0x80 >> uint(k%8)
				}
			}
			continue
		}
		if bitmap != nil {
			bitmap[i/8] |= 0x80 >> uint(i%8)
		}
		present = append(present, v)
	}

	msg := make([]byte, 16)
	copy(msg, "GRIB")
	msg[6] = m.Discipline
	msg[7] = 2
	msg = append(msg, m.section1()...)
	msg = append(msg, m.section3()...)
	msg = append(msg, m.section4()...)
	sec5, sec7 := simplePack(present, m.DecimalScale)
	msg = append(msg, sec5...)
	msg = append(msg, section6(bitmap)...)
	msg = append(msg, sec7...)
	msg = append(msg, "7777"...)
	binary.BigEndian.PutUint64(msg[8:16], uint64(len(msg)))
	return msg
}

// WriteFile writes the concatenated messages to dir/name and returns the path.
func WriteFile(dir, name string, msgs ...Message) (string, error) {
	var buf []byte
	for _, m := range msgs {
		buf = append(buf, m.Bytes()...)
	}
	path := filepath.Join(dir, name)
	return path, os.WriteFile(path, buf, 0o644)
}

func header(n int, num byte) []byte {
	sec := make([]byte, n)
	binary.BigEndian.PutUint32(sec[0:4], uint32(n))
	sec[4] = num
	return sec
}

func (m Message) section1() []byte {
	sec := header(21, 1)
	binary.BigEndian.PutUint16(sec[5:7], 7) // NCEP
	sec[9] = 2                              // master tables version
	sec[11] = 1                             // start of forecast
	t := m.RefTime.UTC()
	binary.BigEndian.PutUint16(sec[12:14], uint16(t.Year()))
	sec[14] = byte(t.Month())
	sec[15] = byte(t.Day())
	sec[16] = byte(t.Hour())
	sec[17] = byte(t.Minute())
	sec[18] = byte(t.Second())
	sec[20] = 1 // forecast products
	return sec
}

func (m Message) section3() []byte {
	if m.Lambert != nil {
		g := m.Lambert
		sec := header(81, 3)
		binary.BigEndian.PutUint32(sec[6:10], uint32(g.Ni*g.Nj))
		binary.BigEndian.PutUint16(sec[12:14], 30)
		t := sec[14:]
		t[0] = 6
		binary.BigEndian.PutUint32(t[16:20], uint32(g.Ni))
		binary.BigEndian.PutUint32(t[20:24], uint32(g.Nj))
		binary.BigEndian.PutUint32(t[24:28], microDeg(g.La1))
		binary.BigEndian.PutUint32(t[28:32], microDeg(g.Lo1))
		binary.BigEndian.PutUint32(t[33:37], microDeg(g.Latin1))
		binary.BigEndian.PutUint32(t[37:41], microDeg(g.LoV))
		binary.BigEndian.PutUint32(t[41:45], uint32(math.Round(g.Dx*1e3)))
		binary.BigEndian.PutUint32(t[45:49], uint32(math.Round(g.Dy*1e3)))
		t[50] = 0x40
		binary.BigEndian.PutUint32(t[51:55], microDeg(g.Latin1))
		binary.BigEndian.PutUint32(t[55:59], microDeg(g.Latin2))
		return sec
	}

	g := m.LatLon
	sec := header(72, 3)
	binary.BigEndian.PutUint32(sec[6:10], uint32(g.Ni*g.Nj))
	t := sec[14:]
	t[0] = 6
	binary.BigEndian.PutUint32(t[16:20], uint32(g.Ni))
	binary.BigEndian.PutUint32(t[20:24], uint32(g.Nj))
	binary.BigEndian.PutUint32(t[28:32], math.MaxUint32) // no subdivisions
	binary.BigEndian.PutUint32(t[32:36], microDeg(g.La1))
	binary.BigEndian.PutUint32(t[36:40], microDeg(g.Lo1))
	t[40] = 0x30
	binary.BigEndian.PutUint32(t[41:45], microDeg(g.La2))
	binary.BigEndian.PutUint32(t[45:49], microDeg(g.Lo2))
	if g.Ni > 1 {
		binary.BigEndian.PutUint32(t[49:53], microDeg(math.Abs(g.Lo2-g.Lo1)/float64(g.Ni-1)))
	}
	if g.Nj > 1 {
		binary.BigEndian.PutUint32(t[53:57], microDeg(math.Abs(g.La2-g.La1)/float64(g.Nj-1)))
	}
	t[57] = g.ScanMode
	return sec
}

func (m Message) section4() []byte {
	sec := header(34, 4)
	sec[9] = m.Category
	sec[10] = m.Number
	sec[11] = 2 // forecast
	sec[17] = 1 // hours
	binary.BigEndian.PutUint32(sec[18:22], m.ForecastHours)
	sec[22] = m.SurfaceType
	binary.BigEndian.PutUint32(sec[24:28], m.SurfaceValue)
	sec[28] = 255
	sec[29] = 0xFF
	binary.BigEndian.PutUint32(sec[30:34], math.MaxUint32)
	return sec
}

func section6(bitmap []byte) []byte {
	if bitmap == nil {
		sec := header(6, 6)
		sec[5] = 255
		return sec
	}
	sec := header(6+len(bitmap), 6)
	copy(sec[6:], bitmap)
	return sec
}

// simplePack encodes vals with reference value min(vals·10^D), E=0 and the
// fewest bits holding the largest offset.
func simplePack(vals []float64, d int) (sec5, sec7 []byte) {
	scale := math.Pow(10, float64(d))
	ref := math.Inf(1)
	for _, v := range vals {
		ref = math.Min(ref, math.Round(v*scale))
	}
	if len(vals) == 0 {
		ref = 0
	}
	xs := make([]uint64, len(vals))
	var maxX uint64
	for i, v := range vals {
		xs[i] = uint64(math.Round(v*scale) - ref)
		if xs[i] > maxX {
			maxX = xs[i]
		}
	}
	nbits := 0
	for maxX>>uint(nbits) != 0 {
		nbits++
	}

	sec5 = header(21, 5)
	binary.BigEndian.PutUint32(sec5[5:9], uint32(len(vals)))
	binary.BigEndian.PutUint32(sec5[11:15], math.Float32bits(float32(ref)))
	dd := uint16(d)
	if d < 0 {
		dd = 0x8000 | uint16(-d)
	}
	binary.BigEndian.PutUint16(sec5[17:19], dd)
	sec5[19] = byte(nbits)

	data := make([]byte, (len(xs)*nbits+7)/8)
	pos := 0
	for _, x := range xs {
		for b := nbits - 1; b >= 0; b-- {
			if x>>uint(b)&1 == 1 {
				data[pos/8] |= 0x80 >> uint(pos%8)
			}
			pos++
		}
	}
	sec7 = header(5+len(data), 7)
	copy(sec7[5:], data)
	return sec5, sec7
}

// microDeg encodes degrees as a sign-magnitude count of 1e-6 degrees.
func microDeg(deg float64) uint32 {
	v := math.Round(math.Abs(deg) * 1e6)
	if deg < 0 {
		return 0x80000000 | uint32(v)
	}
	return uint32(v)
}
