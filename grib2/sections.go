package grib2

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Section0 is the 16-byte GRIB2 Indicator Section.
type Section0 struct {
	Discipline  byte
	Edition     byte
	TotalLength uint64
}

// Input sanity limits, all well above real operational products.
const (
	// maxNG caps the complex-packing group count before slices are sized by it.
	maxNG = 1 << 22

	// maxGridDim caps Ni and Nj.
	maxGridDim = 30000

	// maxTotal caps the number of values in one message (0.05° global is ~26M;
	// operational products in use stay well under this).
	maxTotal = 1 << 25

	// maxBitWidth: anything wider than the uint64 accumulator is nonsensical.
	maxBitWidth = 64
)

// parseSection0 decodes the indicator section.
func parseSection0(b []byte) (Section0, error) {
	if len(b) < 8 {
		return Section0{}, fmt.Errorf("section 0: need 16 bytes, got %d", len(b))
	}
	if string(b[0:4]) != "GRIB" {
		return Section0{}, fmt.Errorf("section 0: missing GRIB magic: %q", b[0:4])
	}
	if b[7] == 1 {
		return Section0{}, fmt.Errorf("section 0: GRIB edition 1 is not supported")
	}
	if b[7] != 2 {
		return Section0{}, fmt.Errorf("section 0: unsupported GRIB edition %d", b[7])
	}
	if len(b) < 16 {
		return Section0{}, fmt.Errorf("section 0: need 16 bytes, got %d", len(b))
	}
	return Section0{
		Discipline:  b[6],
		Edition:     b[7],
		TotalLength: binary.BigEndian.Uint64(b[8:16]),
	}, nil
}

// isEndMarker reports whether "7777" starts at off.
func isEndMarker(buf []byte, off int) bool {
	return off+4 <= len(buf) && string(buf[off:off+4]) == "7777"
}

// endSection is the number reported for the "7777" end marker.
const endSection = 8

// section is one length-prefixed section of a message. Data includes the
// 5-byte header so template offsets match the WMO tables.
type section struct {
	Num  byte
	Data []byte
	End  int // offset of the next section
}

// nextSection reads the section starting at off.
func nextSection(buf []byte, off int) (section, error) {
	if isEndMarker(buf, off) {
		return section{Num: endSection, Data: buf[off : off+4], End: off + 4}, nil
	}
	if off < 0 || off+5 > len(buf) {
		return section{}, fmt.Errorf("section header at offset %d: message has %d bytes", off, len(buf))
	}
	n := uint64(binary.BigEndian.Uint32(buf[off:]))
	num := buf[off+4]
	switch {
	case n < 5:
		return section{}, fmt.Errorf("section %d at offset %d: invalid length %d", num, off, n)
	case uint64(off)+n > uint64(len(buf)):
		return section{}, fmt.Errorf("section %d at offset %d: length %d runs past the message (%d bytes)", num, off, n, len(buf))
	}
	end := off + int(n)
	return section{Num: num, Data: buf[off:end], End: end}, nil
}

// Identification is the subset of Section 1 used for timestamps.
type Identification struct {
	Centre           uint16
	SubCentre        uint16
	RefSignificance  byte
	RefTime          time.Time
	ProductionStatus byte
	DataType         byte
}

// parseSection1 decodes the identification section.
func parseSection1(sec []byte) (Identification, error) {
	// sec[5:7]=centre, [7:9]=sub-centre, [9]=master tables, [10]=local tables,
	// [11]=significance of reference time, [12:14]=year, [14..18]=M D h m s,
	// [19]=production status, [20]=type of data
	if len(sec) < 21 {
		return Identification{}, fmt.Errorf("section 1: too short (%d bytes)", len(sec))
	}
	year := int(binary.BigEndian.Uint16(sec[12:14]))
	month, day := int(sec[14]), int(sec[15])
	hour, minute, second := int(sec[16]), int(sec[17]), int(sec[18])
	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 || second > 59 {
		return Identification{}, fmt.Errorf("section 1: invalid reference time %04d-%02d-%02d %02d:%02d:%02d",
			year, month, day, hour, minute, second)
	}
	return Identification{
		Centre:           binary.BigEndian.Uint16(sec[5:7]),
		SubCentre:        binary.BigEndian.Uint16(sec[7:9]),
		RefSignificance:  sec[11],
		RefTime:          time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC),
		ProductionStatus: sec[19],
		DataType:         sec[20],
	}, nil
}

// signMag32 decodes a 4-byte sign-magnitude integer (latitudes, longitudes).
func signMag32(raw uint32) int64 {
	if raw&0x80000000 != 0 {
		return -int64(raw & 0x7FFFFFFF)
	}
	return int64(raw)
}
