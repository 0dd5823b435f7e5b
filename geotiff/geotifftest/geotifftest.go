// Package geotifftest builds small GeoTIFF files for tests.
package geotifftest

import (
	"bytes"
	"cmp"
	"compress/lzw"
	"encoding/binary"
	"encoding/xml"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/klauspost/compress/zlib"
)

// Sample formats and compressions understood by Image.
const (
	FormatUint  = 1
	FormatInt   = 2
	FormatFloat = 3

	CompressionNone    = 1
	CompressionLZW     = 5
	CompressionDeflate = 8
)

// Image describes a GeoTIFF to build. Zero values pick one band of float32
// cells in a single uncompressed strip, little endian.
type Image struct {
	Width, Height int
	// Values holds one row-major slice of Width*Height values per band.
	Values [][]float64

	Format int // FormatUint, FormatInt or FormatFloat
	Bits   int

	Compression int
	// Predictor 2 (integer samples) or 3 (float samples).
	Predictor int
	// Planar 2 stores each band in its own blocks.
	Planar int
	// RowsPerStrip for stripped images; TileWidth/TileHeight switch to tiles.
	RowsPerStrip          int
	TileWidth, TileHeight int
	BigEndian             bool

	// Transform is the corner-based pixel-to-model transform {A, B, C, D,
	// E, F}; nil writes no georeferencing. A transform without rotation
	// is written as ModelPixelScale + ModelTiepoint, otherwise as
	// ModelTransformation.
	Transform *[6]float64
	// PixelIsPoint writes the tie point at the first pixel centre and
	// marks the raster as PixelIsPoint.
	PixelIsPoint bool
	EPSG         int

	// Metadata is written as dataset items of GDAL_METADATA and
	// BandMetadata[i] as items of band i+1.
	Metadata     map[string]string
	BandMetadata []map[string]string
	// Description adds a role="description" item to band 1.
	Description string
	NoData      string
}

type tiffEntry struct {
	tag   uint16
	typ   uint16
	count int
	data  []byte
}

// Bytes encodes the image.
func (im Image) Bytes() ([]byte, error) {
	w, h := im.Width, im.Height
	bands := len(im.Values)
	if w <= 0 || h <= 0 || bands == 0 {
		return nil, fmt.Errorf("geotifftest: need a positive size and at least one band")
	}
	for i, v := range im.Values {
		if len(v) != w*h {
			return nil, fmt.Errorf("geotifftest: band %d has %d values, want %d", i+1, len(v), w*h)
		}
	}
	format := cmp.Or(im.Format, FormatFloat)
	bits := cmp.Or(im.Bits, 32)
	compression := cmp.Or(im.Compression, CompressionNone)
	planar := cmp.Or(im.Planar, 1)
	bps := bits / 8

	var order binary.ByteOrder = binary.LittleEndian
	mark := "II"
	if im.BigEndian {
		order, mark = binary.BigEndian, "MM"
	}

	tiled := im.TileWidth > 0
	bw, bh := w, cmp.Or(im.RowsPerStrip, h)
	if tiled {
		bw, bh = im.TileWidth, im.TileHeight
	}
	across, down := (w+bw-1)/bw, (h+bh-1)/bh
	planes, stride := 1, bands
	if planar == 2 {
		planes, stride = bands, 1
	}

	var blocks [][]byte
	for p := 0; p < planes; p++ {
		for by := 0; by < down; by++ {
			for bx := 0; bx < across; bx++ {
				rows := bh
				if !tiled {
					rows = min(bh, h-by*bh)
				}
				rowBytes := bw * stride * bps
				buf := make([]byte, rows*rowBytes)
				for r := 0; r < rows; r++ {
					for c := 0; c < bw; c++ {
						x, y := bx*bw+c, by*bh+r
						if x >= w || y >= h {
							continue
						}
						for s := 0; s < stride; s++ {
							band := s
							if planar == 2 {
								band = p
							}
							off := r*rowBytes + (c*stride+s)*bps
							putSample(buf[off:off+bps], order, format, bits, im.Values[band][y*w+x])
						}
					}
				}
				predict(buf, order, im.Predictor, bps, rowBytes, stride)
				z, err := compress(buf, compression)
				if err != nil {
					return nil, err
				}
				blocks = append(blocks, z)
			}
		}
	}

	var out bytes.Buffer
	out.WriteString(mark)
	out.Write(u16(order, 42))
	out.Write(u32(order, 0)) // patched below
	var offsets, counts []uint32
	for _, b := range blocks {
		offsets = append(offsets, uint32(out.Len()))
		counts = append(counts, uint32(len(b)))
		out.Write(b)
	}
	if out.Len()%2 == 1 {
		out.WriteByte(0)
	}

	shorts := func(v ...int) []byte {
		var b []byte
		for _, x := range v {
			b = append(b, u16(order, uint16(x))...)
		}
		return b
	}
	longs := func(v ...uint32) []byte {
		var b []byte
		for _, x := range v {
			b = append(b, u32(order, x)...)
		}
		return b
	}
	doubles := func(v ...float64) []byte {
		var b []byte
		for _, x := range v {
			b = append(b, u64(order, math.Float64bits(x))...)
		}
		return b
	}
	ascii := func(s string) []byte { return append([]byte(s), 0) }
	repeat := func(v, n int) []int {
		out := make([]int, n)
		for i := range out {
			out[i] = v
		}
		return out
	}

	entries := []tiffEntry{
		{256, 4, 1, longs(uint32(w))},
		{257, 4, 1, longs(uint32(h))},
		{258, 3, bands, shorts(repeat(bits, bands)...)},
		{259, 3, 1, shorts(compression)},
		{262, 3, 1, shorts(1)},
		{277, 3, 1, shorts(bands)},
		{284, 3, 1, shorts(planar)},
		{339, 3, bands, shorts(repeat(format, bands)...)},
	}
	if im.Predictor > 1 {
		entries = append(entries, tiffEntry{317, 3, 1, shorts(im.Predictor)})
	}
	if tiled {
		entries = append(entries,
			tiffEntry{322, 4, 1, longs(uint32(bw))},
			tiffEntry{323, 4, 1, longs(uint32(bh))},
			tiffEntry{324, 4, len(offsets), longs(offsets...)},
			tiffEntry{325, 4, len(counts), longs(counts...)},
		)
	} else {
		entries = append(entries,
			tiffEntry{273, 4, len(offsets), longs(offsets...)},
			tiffEntry{278, 4, 1, longs(uint32(bh))},
			tiffEntry{279, 4, len(counts), longs(counts...)},
		)
	}

	if t := im.Transform; t != nil {
		a, b, c, d, e, f := t[0], t[1], t[2], t[3], t[4], t[5]
		rasterType := 1
		if im.PixelIsPoint {
			c, f = c+0.5*a+0.5*b, f+0.5*d+0.5*e
			rasterType = 2
		}
		if b == 0 && d == 0 {
			entries = append(entries,
				tiffEntry{33550, 12, 3, doubles(a, -e, 0)},
				tiffEntry{33922, 12, 6, doubles(0, 0, 0, c, f, 0)},
			)
		} else {
			entries = append(entries, tiffEntry{34264, 12, 16, doubles(
				a, b, 0, c,
				d, e, 0, f,
				0, 0, 0, 0,
				0, 0, 0, 1,
			)})
		}
		keys := []int{1024, 0, 1, 2, 1025, 0, 1, rasterType}
		if im.EPSG != 0 {
			keys = append(keys, 2048, 0, 1, im.EPSG)
		}
		dir := append([]int{1, 1, 0, len(keys) / 4}, keys...)
		entries = append(entries, tiffEntry{34735, 3, len(dir), shorts(dir...)})
	}
	if md := im.metadataXML(); md != "" {
		entries = append(entries, tiffEntry{42112, 2, len(md) + 1, ascii(md)})
	}
	if im.NoData != "" {
		entries = append(entries, tiffEntry{42113, 2, len(im.NoData) + 1, ascii(im.NoData)})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	ifdOff := out.Len()
	order.PutUint32(out.Bytes()[4:8], uint32(ifdOff))
	extra := ifdOff + 2 + 12*len(entries) + 4
	var ext bytes.Buffer
	out.Write(u16(order, uint16(len(entries))))
	for _, e := range entries {
		out.Write(u16(order, e.tag))
		out.Write(u16(order, e.typ))
		out.Write(u32(order, uint32(e.count)))
		if len(e.data) <= 4 {
			v := make([]byte, 4)
			copy(v, e.data)
			out.Write(v)
			continue
		}
		out.Write(u32(order, uint32(extra+ext.Len())))
		ext.Write(e.data)
		if ext.Len()%2 == 1 {
			ext.WriteByte(0)
		}
	}
	out.Write(u32(order, 0)) // no next IFD
	out.Write(ext.Bytes())
	return out.Bytes(), nil
}

// WriteFile encodes im into dir/name and returns the path.
func WriteFile(dir, name string, im Image) (string, error) {
	b, err := im.Bytes()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (im Image) metadataXML() string {
	if len(im.Metadata) == 0 && len(im.BandMetadata) == 0 && im.Description == "" {
		return ""
	}
	var b bytes.Buffer
	item := func(name, attrs, value string) {
		fmt.Fprintf(&b, "  <Item name=%q%s>", name, attrs)
		xml.EscapeText(&b, []byte(value))
		b.WriteString("</Item>\n")
	}
	b.WriteString("<GDALMetadata>\n")
	for _, k := range sortedKeys(im.Metadata) {
		item(k, "", im.Metadata[k])
	}
	if im.Description != "" {
		item("DESCRIPTION", ` sample="0" role="description"`, im.Description)
	}
	for i, m := range im.BandMetadata {
		for _, k := range sortedKeys(m) {
			item(k, fmt.Sprintf(` sample="%d"`, i), m[k])
		}
	}
	b.WriteString("</GDALMetadata>")
	return b.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func putSample(b []byte, order binary.ByteOrder, format, bits int, v float64) {
	switch {
	case format == FormatFloat && bits == 32:
		order.PutUint32(b, math.Float32bits(float32(v)))
	case format == FormatFloat:
		order.PutUint64(b, math.Float64bits(v))
	case bits == 8:
		if format == FormatInt {
			b[0] = byte(int8(v))
		} else {
			b[0] = byte(v)
		}
	case bits == 16:
		if format == FormatInt {
			order.PutUint16(b, uint16(int16(v)))
		} else {
			order.PutUint16(b, uint16(v))
		}
	default:
		if format == FormatInt {
			order.PutUint32(b, uint32(int32(v)))
		} else {
			order.PutUint32(b, uint32(v))
		}
	}
}

// predict applies predictor 2 or 3 to each row of buf in place.
func predict(buf []byte, order binary.ByteOrder, predictor, bps, rowBytes, stride int) {
	for row := 0; row+rowBytes <= len(buf); row += rowBytes {
		b := buf[row : row+rowBytes]
		switch predictor {
		case 2:
			for i := len(b) - bps; i >= stride*bps; i -= bps {
				j := i - stride*bps
				switch bps {
				case 1:
					b[i] -= b[j]
				case 2:
					order.PutUint16(b[i:], order.Uint16(b[i:])-order.Uint16(b[j:]))
				case 4:
					order.PutUint32(b[i:], order.Uint32(b[i:])-order.Uint32(b[j:]))
				}
			}
		case 3:
			n := len(b) / bps
			tmp := make([]byte, len(b))
			for k := 0; k < n; k++ {
				var u uint64
				if bps == 4 {
					u = uint64(order.Uint32(b[k*4:]))
				} else {
					u = order.Uint64(b[k*8:])
				}
				for j := 0; j < bps; j++ {
					tmp[j*n+k] = byte(u >> (8 * (bps - 1 - j)))
				}
			}
			for i := len(tmp) - 1; i >= stride; i-- {
				tmp[i] -= tmp[i-stride]
			}
			copy(b, tmp)
		}
	}
}

// compress encodes one block. LZW output is only valid for blocks small
// enough that the code width never grows past 9 bits, since TIFF LZW
// switches widths one code earlier than compress/lzw.
func compress(b []byte, compression int) ([]byte, error) {
	var out bytes.Buffer
	switch compression {
	case CompressionNone:
		return b, nil
	case CompressionDeflate:
		zw := zlib.NewWriter(&out)
		if _, err := zw.Write(b); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
	case CompressionLZW:
		lw := lzw.NewWriter(&out, lzw.MSB, 8)
		if _, err := lw.Write(b); err != nil {
			return nil, err
		}
		if err := lw.Close(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("geotifftest: unsupported compression %d", compression)
	}
	return out.Bytes(), nil
}

func u16(order binary.ByteOrder, v uint16) []byte {
	b := make([]byte, 2)
	order.PutUint16(b, v)
	return b
}

func u32(order binary.ByteOrder, v uint32) []byte {
	b := make([]byte, 4)
	order.PutUint32(b, v)
	return b
}

func u64(order binary.ByteOrder, v uint64) []byte {
	b := make([]byte, 8)
	order.PutUint64(b, v)
	return b
}
