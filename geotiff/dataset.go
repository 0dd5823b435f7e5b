// Package geotiff reads single-image GeoTIFF files: the raster of the first
// image file directory, its pixel-to-model affine transform, GDAL metadata
// tags and nodata value.
package geotiff

import (
	"encoding/binary"
	"fmt"
	"maps"
	"math"
	"os"

	"github.com/edsrzf/mmap-go"
	"gonum.org/v1/gonum/mat"
)

// BoundingBox is the model-space extent of a raster.
type BoundingBox struct {
	Left, Bottom, Right, Top float64
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("BoundingBox(left=%v, bottom=%v, right=%v, top=%v)", b.Left, b.Bottom, b.Right, b.Top)
}

// BandCountError is returned when a single-band raster is required but the
// file has Count bands.
type BandCountError struct {
	Count int
}

func (e *BandCountError) Error() string {
	return fmt.Sprintf("only single-band rasters are supported, found %d bands", e.Count)
}

// PixelRangeError reports a located pixel that falls outside the raster.
type PixelRangeError struct {
	X, Y          float64 // fractional pixel coordinates before rounding
	Width, Height int
}

func (e *PixelRangeError) Error() string {
	return fmt.Sprintf("pixel (%v, %v) is outside the %dx%d raster", e.X, e.Y, e.Width, e.Height)
}

// Dataset is an opened GeoTIFF.
type Dataset struct {
	Width, Height int
	// Count is the number of bands (samples per pixel).
	Count int
	// Bits and Format describe one raster cell.
	Bits   int
	Format SampleFormat
	// Transform maps pixel corners to model coordinates.
	Transform     Affine
	Georeferenced bool
	GeoKeys       GeoKeys
	NoData        float64
	HasNoData     bool

	data   []byte
	order  binary.ByteOrder
	layout *layout
	md     metadata

	f    *os.File
	mmap mmap.MMap
}

// Open maps path read-only and parses its first image. Close releases it.
func Open(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geotiff: open %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("geotiff: stat %s: %w", path, err)
	}
	if st.Size() == 0 {
		f.Close()
		return nil, fmt.Errorf("geotiff: %s is empty", path)
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("geotiff: mmap %s: %w", path, err)
	}
	d, err := Parse(m)
	if err != nil {
		m.Unmap()
		f.Close()
		return nil, fmt.Errorf("geotiff: %s: %w", path, err)
	}
	d.f, d.mmap = f, m
	return d, nil
}

// Parse reads a GeoTIFF held in memory. b must stay valid while the
// Dataset is used.
func Parse(b []byte) (*Dataset, error) {
	order, off, err := parseHeader(b)
	if err != nil {
		return nil, err
	}
	dir, err := parseIFD(b, order, off)
	if err != nil {
		return nil, err
	}
	l, err := parseLayout(dir)
	if err != nil {
		return nil, err
	}
	gk, err := parseGeoKeys(dir)
	if err != nil {
		return nil, err
	}
	t, georef, err := parseTransform(dir, gk)
	if err != nil {
		return nil, err
	}
	xmlText, _ := dir.ascii(tagGDALMetadata)
	md, err := parseGDALMetadata(xmlText)
	if err != nil {
		return nil, err
	}
	nodata, hasNoData, err := parseNoData(dir.ascii(tagGDALNoData))
	if err != nil {
		return nil, err
	}

	return &Dataset{
		Width:         l.width,
		Height:        l.height,
		Count:         l.samples,
		Bits:          l.bits,
		Format:        l.format,
		Transform:     t,
		Georeferenced: georef,
		GeoKeys:       gk,
		NoData:        nodata,
		HasNoData:     hasNoData,
		data:          b,
		order:         order,
		layout:        l,
		md:            md,
	}, nil
}

// Close unmaps the file. It is a no-op for datasets built with Parse.
func (d *Dataset) Close() error {
	if d.mmap == nil {
		return nil
	}
	err := d.mmap.Unmap()
	if cerr := d.f.Close(); err == nil {
		err = cerr
	}
	d.mmap, d.f, d.data = nil, nil, nil
	return err
}

// BandTags returns a copy of the metadata of band (1-based). A band without
// metadata yields an empty map.
func (d *Dataset) BandTags(band int) map[string]string {
	if m := d.md.bands[band]; m != nil {
		return maps.Clone(m)
	}
	return map[string]string{}
}

// ReadBand decodes band (1-based) into a Height×Width matrix.
func (d *Dataset) ReadBand(band int) (*mat.Dense, error) {
	if d.data == nil {
		return nil, fmt.Errorf("geotiff: dataset is closed")
	}
	vals, err := d.layout.readBand(d.data, d.order, band)
	if err != nil {
		return nil, fmt.Errorf("geotiff: band %d: %w", band, err)
	}
	return mat.NewDense(d.Height, d.Width, vals), nil
}

// Bounds returns the extent covered by the raster's outer pixel corners.
func (d *Dataset) Bounds() BoundingBox {
	w, h := float64(d.Width), float64(d.Height)
	b := BoundingBox{Left: math.Inf(1), Bottom: math.Inf(1), Right: math.Inf(-1), Top: math.Inf(-1)}
	for _, c := range [][2]float64{{0, 0}, {w, 0}, {0, h}, {w, h}} {
		x, y := d.Transform.Apply(c[0], c[1])
		b.Left, b.Right = min(b.Left, x), max(b.Right, x)
		b.Bottom, b.Top = min(b.Bottom, y), max(b.Top, y)
	}
	return b
}

// Locate returns the pixel whose centre is nearest to (lon, lat). Halfway
// cases round to even. A pixel outside the raster is a *PixelRangeError.
func (d *Dataset) Locate(lon, lat float64) (col, row int, err error) {
	inv, err := d.Transform.Mul(Translation(0.5, 0.5)).Invert()
	if err != nil {
		return 0, 0, err
	}
	x, y := inv.Apply(lon, lat)
	cx, cy := math.RoundToEven(x), math.RoundToEven(y)
	if !(cx >= 0 && cx < float64(d.Width) && cy >= 0 && cy < float64(d.Height)) {
		return 0, 0, &PixelRangeError{X: x, Y: y, Width: d.Width, Height: d.Height}
	}
	return int(cx), int(cy), nil
}
