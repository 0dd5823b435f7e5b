package extract

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestFromPosition(t *testing.T) {
	cases := []struct {
		in       string
		lat, lon float64
		cells    []string
	}{
		{" 50.5 ,-1.25", 50.5, -1.25, []string{"50.5", "-1.25"}},
		{"10.5,20", 10.5, 20, []string{"10.5", "20.0"}},
		{"1e1,-0", 10, 0, []string{"10.0", "-0.0"}},
	}
	for _, tc := range cases {
		q, err := FromPosition(tc.in)
		if err != nil {
			t.Errorf("FromPosition(%q): %v", tc.in, err)
			continue
		}
		if len(q.Rows) != 1 {
			t.Fatalf("FromPosition(%q): %d rows, want 1", tc.in, len(q.Rows))
		}
		r := q.Rows[0]
		if r.Lat != tc.lat || r.Lon != tc.lon {
			t.Errorf("FromPosition(%q) point = (%g, %g), want (%g, %g)", tc.in, r.Lat, r.Lon, tc.lat, tc.lon)
		}
		if !slices.Equal(q.Columns, []string{"latitude", "longitude"}) || !slices.Equal(r.Values, tc.cells) {
			t.Errorf("FromPosition(%q): columns %v values %v, want cells %v", tc.in, q.Columns, r.Values, tc.cells)
		}
		// Same cells as the positional form.
		if want := FromCoordinates(tc.lat, tc.lon).Rows[0].Values; !slices.Equal(r.Values, want) {
			t.Errorf("FromPosition(%q) cells %v, FromCoordinates cells %v", tc.in, r.Values, want)
		}
	}

	for _, in := range []string{"", "50.5", "50.5,1,2", "north,1", "1,east"} {
		_, err := FromPosition(in)
		var qe *QueryError
		if !errors.As(err, &qe) {
			t.Errorf("FromPosition(%q) error = %v, want *QueryError", in, err)
		}
	}
}

func TestFromCoordinates(t *testing.T) {
	q := FromCoordinates(50, -1.5)
	if got := q.Rows[0].Values; !slices.Equal(got, []string{"50.0", "-1.5"}) {
		t.Errorf("Values = %v, want [50.0 -1.5]", got)
	}
}

func TestLoadCSVPassthrough(t *testing.T) {
	in := "site,longitude,latitude,note\n" +
		"A,1.5,50.25,\"first, quoted\"\n" +
		"B,2,51,\n"
	q, err := LoadCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if !slices.Equal(q.Columns, []string{"site", "longitude", "latitude", "note"}) {
		t.Errorf("Columns = %v", q.Columns)
	}
	if len(q.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(q.Rows))
	}
	if r := q.Rows[0]; r.Lat != 50.25 || r.Lon != 1.5 || !slices.Equal(r.Values, []string{"A", "1.5", "50.25", "first, quoted"}) {
		t.Errorf("row 0 = %+v", r)
	}
	if r := q.Rows[1]; r.Lat != 51 || r.Lon != 2 || r.Values[1] != "2" {
		t.Errorf("row 1 = %+v", r)
	}
}

func TestLoadCSVByteOrderMark(t *testing.T) {
	q, err := LoadCSV(strings.NewReader("\ufefflatitude,longitude\n1,2\n"))
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if q.Columns[0] != "latitude" {
		t.Errorf("Columns[0] = %q", q.Columns[0])
	}
}

func TestLoadCSVErrors(t *testing.T) {
	cases := []struct {
		name string
		in   string
		line int
	}{
		{"empty", "", 0},
		{"header only", "latitude,longitude\n", 0},
		{"missing latitude", "lat,longitude\n1,2\n", 1},
		{"missing longitude", "latitude,Longitude\n1,2\n", 1},
		{"bad number", "latitude,longitude\n1,2\nx,3\n", 3},
		{"ragged row", "latitude,longitude\n1,2\n1,2,3\n", 3},
	}
	for _, tc := range cases {
		_, err := LoadCSV(strings.NewReader(tc.in))
		var qe *QueryError
		if !errors.As(err, &qe) {
			t.Errorf("%s: error = %v, want *QueryError", tc.name, err)
			continue
		}
		if qe.Line != tc.line {
			t.Errorf("%s: line = %d, want %d (%v)", tc.name, qe.Line, tc.line, err)
		}
	}
	if _, err := LoadCSV(strings.NewReader("")); !errors.Is(err, ErrEmptyBatch) {
		t.Errorf("empty input: error = %v, want ErrEmptyBatch", err)
	}
}

func TestLoadCSVFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "points.csv")
	if err := os.WriteFile(path, []byte("latitude,longitude\n10.5,20.5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	q, err := LoadCSVFile(path)
	if err != nil {
		t.Fatalf("LoadCSVFile: %v", err)
	}
	if len(q.Rows) != 1 || q.Rows[0].Lat != 10.5 {
		t.Errorf("rows = %+v", q.Rows)
	}
	if _, err := LoadCSVFile(filepath.Join(dir, "missing.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: error = %v, want os.ErrNotExist", err)
	}
}
