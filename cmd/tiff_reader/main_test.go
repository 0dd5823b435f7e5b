package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/geal-ai/gridpoint/geotiff"
	"github.com/geal-ai/gridpoint/geotiff/geotifftest"
	"github.com/geal-ai/gridpoint/internal/config"
	"github.com/geal-ai/gridpoint/internal/exitcode"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range []string{config.EnvDebug, config.EnvLogLevel, config.EnvMethod, config.EnvTimeLayout} {
		t.Setenv(v, "")
	}
}

// writeFixture writes a 4×3 float32 raster of 0.5° pixels whose top-left
// corner is at (10°E, 12°N); pixel (col, row) holds 270 + 10*row + col.
func writeFixture(t *testing.T, bands int) string {
	t.Helper()
	vals := make([]float64, 12)
	for i := range vals {
		vals[i] = 270 + float64(10*(i/4)+i%4)
	}
	im := geotifftest.Image{
		Width: 4, Height: 3,
		Transform: &[6]float64{0.5, 0, 10, 0, -0.5, 12},
		EPSG:      4326,
		BandMetadata: []map[string]string{{
			geotiff.TagElement:   "TMP",
			geotiff.TagUnit:      "[K]",
			geotiff.TagValidTime: "1709316000 sec UTC",
			geotiff.TagRefTime:   "1709294400 sec UTC",
		}},
		Compression: geotifftest.CompressionDeflate,
		Predictor:   3,
	}
	for range bands {
		im.Values = append(im.Values, vals)
	}
	path, err := geotifftest.WriteFile(t.TempDir(), "fixture.tif", im)
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func runArgs(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRun_SinglePoint(t *testing.T) {
	clearEnv(t)
	path := writeFixture(t, 1)

	code, out, stderr := runArgs(t, path, "11.2", "11.6")
	if code != exitcode.Success {
		t.Fatalf("exit code %d, stderr:\n%s", code, stderr)
	}
	want := "type,value,unit,valid_time,ref_time,latitude,longitude\n" +
		"TMP,283.0,[K],2024-03-01 18:00:00,2024-03-01 12:00:00,11.2,11.6\n"
	if out != want {
		t.Errorf("output:\n%s\nwant:\n%s", out, want)
	}
}

func TestRun_TimeLayoutFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvTimeLayout, "2006-01-02T15:04:05Z07:00")
	path := writeFixture(t, 1)

	code, out, stderr := runArgs(t, path, "--pos", "11.9,10.1")
	if code != exitcode.Success {
		t.Fatalf("exit code %d, stderr:\n%s", code, stderr)
	}
	if !strings.Contains(out, "\nTMP,270.0,[K],2024-03-01T18:00:00Z,2024-03-01T12:00:00Z,11.9,10.1\n") {
		t.Errorf("output:\n%s", out)
	}
}

func TestRun_ExitCodes(t *testing.T) {
	clearEnv(t)
	path := writeFixture(t, 1)
	twoBands := writeFixture(t, 2)

	cases := []struct {
		name string
		args []string
		want int
	}{
		{"no query", []string{path}, exitcode.UsageError},
		{"conflicting query", []string{path, "11", "11", "--csv", "points.csv"}, exitcode.UsageError},
		{"bad format", []string{path, "11", "11", "--format", "xml"}, exitcode.UsageError},
		{"out of bounds", []string{path, "11", "12.5"}, exitcode.OutOfBoundsError},
		{"two bands", []string{twoBands, "11", "11"}, exitcode.DataError},
		{"missing file", []string{filepath.Join(t.TempDir(), "missing.tif"), "11", "11"}, exitcode.IOError},
		{"missing csv", []string{path, "--csv", filepath.Join(t.TempDir(), "points.csv")}, exitcode.IOError},
	}
	for _, tc := range cases {
		code, stdout, stderr := runArgs(t, tc.args...)
		if code != tc.want {
			t.Errorf("%s: exit code %d, want %d\n%s", tc.name, code, tc.want, stderr)
		}
		if tc.want == exitcode.UsageError && !strings.Contains(stderr, "Usage: tiff_reader") {
			t.Errorf("%s: no usage text on stderr:\n%s", tc.name, stderr)
		}
		if tc.want != exitcode.Success && stdout != "" {
			t.Errorf("%s: unexpected output %q", tc.name, stdout)
		}
	}
}
