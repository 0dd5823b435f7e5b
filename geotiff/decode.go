package geotiff

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/image/tiff/lzw"
)

// Compression schemes.
const (
	compressionNone       = 1
	compressionLZW        = 5
	compressionDeflate    = 8
	compressionOldDeflate = 32946
)

// Predictors.
const (
	predictorNone       = 1
	predictorHorizontal = 2
	predictorFloat      = 3
)

// SampleFormat is the TIFF SampleFormat of the raster cells.
type SampleFormat int

const (
	Uint  SampleFormat = 1
	Int   SampleFormat = 2
	Float SampleFormat = 3
)

func (f SampleFormat) String() string {
	switch f {
	case Uint:
		return "uint"
	case Int:
		return "int"
	case Float:
		return "float"
	}
	return fmt.Sprintf("SampleFormat(%d)", int(f))
}

// layout describes how the raster is cut into compressed blocks. Strips
// are blocks as wide as the image.
type layout struct {
	width, height  int
	samples        int
	bits           int
	format         SampleFormat
	compression    int
	predictor      int
	planar         int
	tiled          bool
	blockW, blockH int
	offsets        []uint64
	counts         []uint64
}

func parseLayout(d *ifd) (*layout, error) {
	w, err := d.uint(tagImageWidth, 0)
	if err != nil {
		return nil, err
	}
	h, err := d.uint(tagImageLength, 0)
	if err != nil {
		return nil, err
	}
	if w == 0 || h == 0 || w > maxDimension || h > maxDimension || w*h > maxPixels {
		return nil, fmt.Errorf("unsupported raster size %dx%d", w, h)
	}
	l := &layout{width: int(w), height: int(h)}

	spp, err := d.uint(tagSamplesPerPixel, 1)
	if err != nil {
		return nil, err
	}
	if spp == 0 || spp > 256 {
		return nil, fmt.Errorf("invalid samples per pixel %d", spp)
	}
	l.samples = int(spp)

	bits, err := d.uints(tagBitsPerSample)
	if err != nil {
		return nil, err
	}
	if len(bits) == 0 {
		return nil, fmt.Errorf("BitsPerSample has no values")
	}
	for _, b := range bits[1:] {
		if b != bits[0] {
			return nil, fmt.Errorf("mixed bits per sample %v", bits)
		}
	}
	l.bits = int(bits[0])

	sf, err := d.uint(tagSampleFormat, uint64(Uint))
	if err != nil {
		return nil, err
	}
	l.format = SampleFormat(sf)
	switch {
	case (l.format == Uint || l.format == Int) && (l.bits == 8 || l.bits == 16 || l.bits == 32):
	case l.format == Float && (l.bits == 32 || l.bits == 64):
	default:
		return nil, fmt.Errorf("unsupported sample type: %v with %d bits", l.format, l.bits)
	}

	c, err := d.uint(tagCompression, compressionNone)
	if err != nil {
		return nil, err
	}
	switch c {
	case compressionNone, compressionLZW, compressionDeflate, compressionOldDeflate:
		l.compression = int(c)
	default:
		return nil, fmt.Errorf("unsupported compression %d", c)
	}

	p, err := d.uint(tagPredictor, predictorNone)
	if err != nil {
		return nil, err
	}
	switch {
	case p == predictorNone:
	case p == predictorHorizontal && l.format != Float:
	case p == predictorFloat && l.format == Float:
	default:
		return nil, fmt.Errorf("unsupported predictor %d for %v samples", p, l.format)
	}
	l.predictor = int(p)

	pc, err := d.uint(tagPlanarConfiguration, 1)
	if err != nil {
		return nil, err
	}
	if pc != 1 && pc != 2 {
		return nil, fmt.Errorf("invalid planar configuration %d", pc)
	}
	l.planar = int(pc)

	if d.has(tagTileWidth) {
		l.tiled = true
		tw, err := d.uint(tagTileWidth, 0)
		if err != nil {
			return nil, err
		}
		th, err := d.uint(tagTileLength, 0)
		if err != nil {
			return nil, err
		}
		if tw == 0 || th == 0 || tw > maxDimension || th > maxDimension {
			return nil, fmt.Errorf("invalid tile size %dx%d", tw, th)
		}
		l.blockW, l.blockH = int(tw), int(th)
		if l.offsets, err = d.uints(tagTileOffsets); err != nil {
			return nil, err
		}
		if l.counts, err = d.uints(tagTileByteCounts); err != nil {
			return nil, err
		}
	} else {
		rps, err := d.uint(tagRowsPerStrip, h)
		if err != nil {
			return nil, err
		}
		if rps == 0 || rps > h {
			rps = h
		}
		l.blockW, l.blockH = l.width, int(rps)
		if l.offsets, err = d.uints(tagStripOffsets); err != nil {
			return nil, err
		}
		if l.counts, err = d.uints(tagStripByteCounts); err != nil {
			return nil, err
		}
	}

	want := l.blocksAcross() * l.blocksDown()
	if l.planar == 2 {
		want *= l.samples
	}
	if len(l.offsets) < want || len(l.counts) < want {
		return nil, fmt.Errorf("need %d blocks, have %d offsets and %d byte counts", want, len(l.offsets), len(l.counts))
	}
	return l, nil
}

func (l *layout) blocksAcross() int { return (l.width + l.blockW - 1) / l.blockW }
func (l *layout) blocksDown() int   { return (l.height + l.blockH - 1) / l.blockH }

// pixelStride is the number of samples between two pixels of one band
// inside a decoded block.
func (l *layout) pixelStride() int {
	if l.planar == 2 {
		return 1
	}
	return l.samples
}

// readBand decodes band (1-based) of the raster into row-major values.
func (l *layout) readBand(data []byte, order binary.ByteOrder, band int) ([]float64, error) {
	if band < 1 || band > l.samples {
		return nil, fmt.Errorf("band %d out of range [1, %d]", band, l.samples)
	}
	bps := l.bits / 8
	stride := l.pixelStride()
	sample := band - 1
	first := 0
	if l.planar == 2 {
		sample = 0
		first = (band - 1) * l.blocksAcross() * l.blocksDown()
	}

	out := make([]float64, l.width*l.height)
	for by := 0; by < l.blocksDown(); by++ {
		for bx := 0; bx < l.blocksAcross(); bx++ {
			idx := first + by*l.blocksAcross() + bx
			rows := l.blockH
			if !l.tiled {
				rows = min(l.blockH, l.height-by*l.blockH)
			}
			rowBytes := l.blockW * stride * bps
			buf, err := l.block(data, idx, rows*rowBytes)
			if err != nil {
				return nil, fmt.Errorf("block %d: %w", idx, err)
			}
			if err := l.unpredict(buf, order, rowBytes, stride); err != nil {
				return nil, fmt.Errorf("block %d: %w", idx, err)
			}

			for r := 0; r < rows; r++ {
				y := by*l.blockH + r
				if y >= l.height {
					break
				}
				for c := 0; c < l.blockW; c++ {
					x := bx*l.blockW + c
					if x >= l.width {
						break
					}
					off := r*rowBytes + (c*stride+sample)*bps
					out[y*l.width+x] = l.sampleAt(buf[off:off+bps], order)
				}
			}
		}
	}
	return out, nil
}

// block returns the decompressed bytes of block idx, at least size long.
func (l *layout) block(data []byte, idx, size int) ([]byte, error) {
	off, n := l.offsets[idx], l.counts[idx]
	if off+n > uint64(len(data)) {
		return nil, fmt.Errorf("data at %d (%d bytes) overflows file (%d bytes)", off, n, len(data))
	}
	src := data[off : off+n]

	var r io.Reader
	switch l.compression {
	case compressionNone:
		if len(src) < size {
			return nil, fmt.Errorf("have %d bytes, need %d", len(src), size)
		}
		// Copy so that predictors never write into the mapped file.
		return bytes.Clone(src[:size]), nil
	case compressionLZW:
		lr := lzw.NewReader(bytes.NewReader(src), lzw.MSB, 8)
		defer lr.Close()
		r = lr
	case compressionDeflate, compressionOldDeflate:
		zr, err := zlib.NewReader(bytes.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("deflate: %w", err)
		}
		defer zr.Close()
		r = zr
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	return buf, nil
}

// unpredict reverses the predictor in place, row by row.
func (l *layout) unpredict(buf []byte, order binary.ByteOrder, rowBytes, stride int) error {
	bps := l.bits / 8
	switch l.predictor {
	case predictorHorizontal:
		for row := 0; row+rowBytes <= len(buf); row += rowBytes {
			b := buf[row : row+rowBytes]
			switch bps {
			case 1:
				for i := stride; i < len(b); i++ {
					b[i] += b[i-stride]
				}
			case 2:
				for i := stride * 2; i < len(b); i += 2 {
					order.PutUint16(b[i:], order.Uint16(b[i:])+order.Uint16(b[i-stride*2:]))
				}
			case 4:
				for i := stride * 4; i < len(b); i += 4 {
					order.PutUint32(b[i:], order.Uint32(b[i:])+order.Uint32(b[i-stride*4:]))
				}
			default:
				return fmt.Errorf("horizontal predictor with %d-bit samples", l.bits)
			}
		}
	case predictorFloat:
		n := rowBytes / bps
		tmp := make([]byte, rowBytes)
		for row := 0; row+rowBytes <= len(buf); row += rowBytes {
			b := buf[row : row+rowBytes]
			for i := stride; i < len(b); i++ {
				b[i] += b[i-stride]
			}
			copy(tmp, b)
			// Bytes arrive split into planes, most significant plane first.
			for k := 0; k < n; k++ {
				var u uint64
				for j := 0; j < bps; j++ {
					u = u<<8 | uint64(tmp[j*n+k])
				}
				if bps == 4 {
					order.PutUint32(b[k*4:], uint32(u))
				} else {
					order.PutUint64(b[k*8:], u)
				}
			}
		}
	}
	return nil
}

func (l *layout) sampleAt(b []byte, order binary.ByteOrder) float64 {
	switch l.format {
	case Float:
		if l.bits == 32 {
			return float64(math.Float32frombits(order.Uint32(b)))
		}
		return math.Float64frombits(order.Uint64(b))
	case Int:
		switch l.bits {
		case 8:
			return float64(int8(b[0]))
		case 16:
			return float64(int16(order.Uint16(b)))
		default:
			return float64(int32(order.Uint32(b)))
		}
	default:
		switch l.bits {
		case 8:
			return float64(b[0])
		case 16:
			return float64(order.Uint16(b))
		default:
			return float64(order.Uint32(b))
		}
	}
}
