package grib2

import "fmt"

// bitReader reads big-endian bit fields from packed data, most significant
// bit of each byte first.
type bitReader struct {
	buf []byte
	pos int // in bits
}

func newBitReader(b []byte) *bitReader { return &bitReader{buf: b} }

// read returns the next n bits, 0 <= n <= maxBitWidth. Reading past the end
// of the buffer is an error and leaves the position unchanged.
func (r *bitReader) read(n int) (uint64, error) {
	switch {
	case n == 0:
		return 0, nil
	case n < 0 || n > maxBitWidth:
		return 0, fmt.Errorf("bit width %d outside [0, %d]", n, maxBitWidth)
	case r.pos+n > 8*len(r.buf):
		return 0, fmt.Errorf("reading %d bits at bit %d runs past %d bytes", n, r.pos, len(r.buf))
	}
	var v uint64
	for n > 0 {
		left := 8 - r.pos%8 // unread bits in the current byte
		take := min(left, n)
		chunk := uint64(r.buf[r.pos/8]>>(left-take)) & (1<<take - 1)
		v = v<<take | chunk
		r.pos += take
		n -= take
	}
	return v, nil
}

// align skips to the next byte boundary.
func (r *bitReader) align() {
	r.pos = (r.pos + 7) &^ 7
}
