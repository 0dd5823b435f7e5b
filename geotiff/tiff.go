package geotiff

import (
	"encoding/binary"
	"fmt"
	"math"
)

// TIFF tags read by this package.
const (
	tagImageWidth          = 256
	tagImageLength         = 257
	tagBitsPerSample       = 258
	tagCompression         = 259
	tagStripOffsets        = 273
	tagSamplesPerPixel     = 277
	tagRowsPerStrip        = 278
	tagStripByteCounts     = 279
	tagPlanarConfiguration = 284
	tagPredictor           = 317
	tagTileWidth           = 322
	tagTileLength          = 323
	tagTileOffsets         = 324
	tagTileByteCounts      = 325
	tagSampleFormat        = 339

	tagModelPixelScale     = 33550
	tagModelTiepoint       = 33922
	tagModelTransformation = 34264
	tagGeoKeyDirectory     = 34735
	tagGeoDoubleParams     = 34736
	tagGeoASCIIParams      = 34737
	tagGDALMetadata        = 42112
	tagGDALNoData          = 42113
)

// TIFF field types.
const (
	dtByte      = 1
	dtASCII     = 2
	dtShort     = 3
	dtLong      = 4
	dtRational  = 5
	dtSByte     = 6
	dtUndefined = 7
	dtSShort    = 8
	dtSLong     = 9
	dtSRational = 10
	dtFloat     = 11
	dtDouble    = 12
)

var typeSize = map[uint16]int{
	dtByte: 1, dtASCII: 1, dtShort: 2, dtLong: 4, dtRational: 8,
	dtSByte: 1, dtUndefined: 1, dtSShort: 2, dtSLong: 4, dtSRational: 8,
	dtFloat: 4, dtDouble: 8,
}

// Input sanity limits.
const (
	maxIFDEntries = 4096
	maxDimension  = 1 << 20
	maxPixels     = 1 << 28
)

// entry is one IFD entry with its value bytes resolved.
type entry struct {
	typ   uint16
	count uint32
	raw   []byte
}

// ifd is the first image file directory of a classic TIFF.
type ifd struct {
	order   binary.ByteOrder
	entries map[uint16]entry
}

// parseHeader reads the 8-byte TIFF header and returns the byte order and
// the offset of the first IFD.
func parseHeader(b []byte) (binary.ByteOrder, uint32, error) {
	if len(b) < 8 {
		return nil, 0, fmt.Errorf("header: need 8 bytes, got %d", len(b))
	}
	var order binary.ByteOrder
	switch string(b[0:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, 0, fmt.Errorf("header: bad byte order mark %q", b[0:2])
	}
	switch magic := order.Uint16(b[2:4]); magic {
	case 42:
	case 43:
		return nil, 0, fmt.Errorf("header: BigTIFF is not supported")
	default:
		return nil, 0, fmt.Errorf("header: bad magic %d", magic)
	}
	return order, order.Uint32(b[4:8]), nil
}

// parseIFD reads the directory at off. Entry values stored out of line are
// bounds-checked against b.
func parseIFD(b []byte, order binary.ByteOrder, off uint32) (*ifd, error) {
	if uint64(off)+2 > uint64(len(b)) {
		return nil, fmt.Errorf("IFD at %d: out of bounds (file=%d)", off, len(b))
	}
	n := int(order.Uint16(b[off : off+2]))
	if n == 0 || n > maxIFDEntries {
		return nil, fmt.Errorf("IFD at %d: invalid entry count %d", off, n)
	}
	start := int(off) + 2
	if start+n*12 > len(b) {
		return nil, fmt.Errorf("IFD at %d: %d entries overflow file", off, n)
	}

	d := &ifd{order: order, entries: make(map[uint16]entry, n)}
	for i := 0; i < n; i++ {
		e := b[start+i*12 : start+i*12+12]
		tag := order.Uint16(e[0:2])
		typ := order.Uint16(e[2:4])
		count := order.Uint32(e[4:8])
		size, ok := typeSize[typ]
		if !ok {
			continue // unknown types are skipped, as libtiff does
		}
		total := uint64(size) * uint64(count)
		var raw []byte
		if total <= 4 {
			raw = e[8 : 8+total]
		} else {
			voff := uint64(order.Uint32(e[8:12]))
			if voff+total > uint64(len(b)) {
				return nil, fmt.Errorf("IFD tag %d: value at %d (%d bytes) overflows file", tag, voff, total)
			}
			raw = b[voff : voff+total]
		}
		d.entries[tag] = entry{typ: typ, count: count, raw: raw}
	}
	return d, nil
}

func (d *ifd) has(tag uint16) bool {
	_, ok := d.entries[tag]
	return ok
}

// uints returns an integer-typed tag as uint64 values.
func (d *ifd) uints(tag uint16) ([]uint64, error) {
	e, ok := d.entries[tag]
	if !ok {
		return nil, fmt.Errorf("tag %d missing", tag)
	}
	out := make([]uint64, e.count)
	for i := range out {
		switch e.typ {
		case dtByte, dtUndefined:
			out[i] = uint64(e.raw[i])
		case dtShort:
			out[i] = uint64(d.order.Uint16(e.raw[i*2:]))
		case dtLong:
			out[i] = uint64(d.order.Uint32(e.raw[i*4:]))
		default:
			return nil, fmt.Errorf("tag %d: type %d is not an unsigned integer", tag, e.typ)
		}
	}
	return out, nil
}

// uint returns the first value of an integer tag, or def when absent.
func (d *ifd) uint(tag uint16, def uint64) (uint64, error) {
	if !d.has(tag) {
		return def, nil
	}
	v, err := d.uints(tag)
	if err != nil {
		return 0, err
	}
	if len(v) == 0 {
		return 0, fmt.Errorf("tag %d: no values", tag)
	}
	return v[0], nil
}

// floats returns a DOUBLE or FLOAT tag as float64 values.
func (d *ifd) floats(tag uint16) ([]float64, error) {
	e, ok := d.entries[tag]
	if !ok {
		return nil, fmt.Errorf("tag %d missing", tag)
	}
	out := make([]float64, e.count)
	for i := range out {
		switch e.typ {
		case dtDouble:
			out[i] = math.Float64frombits(d.order.Uint64(e.raw[i*8:]))
		case dtFloat:
			out[i] = float64(math.Float32frombits(d.order.Uint32(e.raw[i*4:])))
		default:
			return nil, fmt.Errorf("tag %d: type %d is not floating point", tag, e.typ)
		}
	}
	return out, nil
}

// ascii returns an ASCII tag without its trailing NULs.
func (d *ifd) ascii(tag uint16) (string, bool) {
	e, ok := d.entries[tag]
	if !ok || e.typ != dtASCII {
		return "", false
	}
	s := e.raw
	for len(s) > 0 && s[len(s)-1] == 0 {
		s = s[:len(s)-1]
	}
	return string(s), true
}
