package extract

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/geal-ai/gridpoint/geotiff"
	"github.com/geal-ai/gridpoint/geotiff/geotifftest"
	"github.com/geal-ai/gridpoint/interp"
)

var gribBandTags = map[string]string{
	geotiff.TagElement:   "TMP",
	geotiff.TagUnit:      "[C]",
	geotiff.TagValidTime: "1700003600 sec UTC",
	geotiff.TagRefTime:   "  1700000000 sec UTC",
	geotiff.TagComment:   "Temperature [C]",
}

// tempImage is a 4×3 raster of 0.5° pixels with its top-left corner at
// (10°E, 12°N). Pixel (col, row) holds 10*row + col.
func tempImage() geotifftest.Image {
	vals := make([]float64, 12)
	for i := range vals {
		vals[i] = float64(10*(i/4) + i%4)
	}
	return geotifftest.Image{
		Width: 4, Height: 3,
		Values:       [][]float64{vals},
		Transform:    &[6]float64{0.5, 0, 10, 0, -0.5, 12},
		EPSG:         4326,
		BandMetadata: []map[string]string{gribBandTags},
	}
}

func writeTIFF(t *testing.T, im geotifftest.Image) string {
	t.Helper()
	path, err := geotifftest.WriteFile(t.TempDir(), "test.tif", im)
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtractTIFF(t *testing.T) {
	path := writeTIFF(t, tempImage())
	q := &QuerySet{
		Columns: []string{"latitude", "longitude"},
		Rows: []QueryRow{
			{Lat: 11.9, Lon: 10.1, Values: []string{"11.9", "10.1"}},
			{Lat: 11.2, Lon: 11.6, Values: []string{"11.2", "11.6"}},
			{Lat: 10.6, Lon: 11.9, Values: []string{"10.6", "11.9"}},
		},
	}
	tbl, err := ExtractTIFF(path, q, nil)
	if err != nil {
		t.Fatalf("ExtractTIFF: %v", err)
	}
	if tbl.Kind != KindTIFF || len(tbl.Results) != 3 {
		t.Fatalf("table = %v with %d results", tbl.Kind, len(tbl.Results))
	}
	for i, want := range []float64{0, 13, 23} {
		if got := tbl.Results[i].Value; got != want {
			t.Errorf("row %d value = %g, want %g", i, got, want)
		}
	}

	r := tbl.Results[0]
	if r.Type != "TMP" || r.Unit != "[C]" || r.Level != nil || r.Format != Float32 {
		t.Errorf("result = %+v", r)
	}
	if !r.RefTime.Equal(time.Unix(1700000000, 0)) || !r.ValidTime.Equal(time.Unix(1700003600, 0)) {
		t.Errorf("times = %v / %v", r.ValidTime, r.RefTime)
	}
	if h := tbl.Header(); len(h) != 7 || h[4] != "ref_time" || h[5] != "latitude" {
		t.Errorf("Header() = %v", h)
	}
}

func TestExtractTIFFIntegerFormat(t *testing.T) {
	im := tempImage()
	im.Format, im.Bits = geotifftest.FormatInt, 16
	im.Compression = geotifftest.CompressionDeflate
	tbl, err := ExtractTIFF(writeTIFF(t, im), FromCoordinates(11.2, 11.6), nil)
	if err != nil {
		t.Fatalf("ExtractTIFF: %v", err)
	}
	r := tbl.Results[0]
	if r.Format != Integer || formatValue(r.Value, r.Format) != "13" {
		t.Errorf("value %g formatted as %q", r.Value, formatValue(r.Value, r.Format))
	}
}

func TestExtractTIFFOutOfBounds(t *testing.T) {
	path := writeTIFF(t, tempImage())
	cases := []struct {
		lat, lon float64
		label    string
	}{
		{11, 12.5, "longitude"},
		{11, 10, "longitude"},
		{12.1, 11, "latitude"},
		{10.5, 11, "latitude"},
		{20, 20, "longitude"},
	}
	for _, tc := range cases {
		_, err := ExtractTIFF(path, FromCoordinates(tc.lat, tc.lon), nil)
		var be *interp.BoundsError
		if !errors.As(err, &be) || be.Label != tc.label {
			t.Errorf("(%g, %g): error = %v, want %s bounds error", tc.lat, tc.lon, err, tc.label)
		}
	}
}

func TestExtractTIFFBandCount(t *testing.T) {
	im := tempImage()
	im.Values = append(im.Values, im.Values[0])
	_, err := ExtractTIFF(writeTIFF(t, im), FromCoordinates(11, 11), nil)
	var bce *geotiff.BandCountError
	if !errors.As(err, &bce) || bce.Count != 2 {
		t.Errorf("error = %v, want *geotiff.BandCountError with 2 bands", err)
	}
}

func TestExtractTIFFTags(t *testing.T) {
	without := func(name string) map[string]string {
		m := make(map[string]string)
		for k, v := range gribBandTags {
			if k != name {
				m[k] = v
			}
		}
		return m
	}

	for _, name := range []string{geotiff.TagElement, geotiff.TagUnit, geotiff.TagValidTime, geotiff.TagRefTime} {
		im := tempImage()
		im.BandMetadata = []map[string]string{without(name)}
		_, err := ExtractTIFF(writeTIFF(t, im), FromCoordinates(11, 11), nil)
		var mte *MissingTagError
		if !errors.As(err, &mte) || mte.Tag != name {
			t.Errorf("without %s: error = %v, want *MissingTagError", name, err)
		}
	}

	im := tempImage()
	tags := without("")
	tags[geotiff.TagValidTime] = "2023-11-14T23:13:20Z"
	im.BandMetadata = []map[string]string{tags}
	_, err := ExtractTIFF(writeTIFF(t, im), FromCoordinates(11, 11), nil)
	var tfe *geotiff.TimeFormatError
	if !errors.As(err, &tfe) || tfe.Value != "2023-11-14T23:13:20Z" {
		t.Errorf("bad time: error = %v, want *geotiff.TimeFormatError", err)
	}
}

func TestExtractTIFFSourceErrors(t *testing.T) {
	q := FromCoordinates(11, 11)
	_, err := ExtractTIFF(t.TempDir()+"/missing.tif", q, nil)
	var se *SourceError
	if !errors.As(err, &se) || !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: error = %v, want *SourceError wrapping os.ErrNotExist", err)
	}

	junk := t.TempDir() + "/junk.tif"
	if err := os.WriteFile(junk, []byte("GIF89a"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ExtractTIFF(junk, q, nil); !errors.As(err, &se) {
		t.Errorf("junk file: error = %v, want *SourceError", err)
	}
	if _, err := ExtractTIFF(junk, nil, nil); !errors.Is(err, ErrEmptyBatch) {
		t.Errorf("nil batch: error = %v, want ErrEmptyBatch", err)
	}
}
