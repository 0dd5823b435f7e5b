package extract

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"
)

func TestFormatFloat(t *testing.T) {
	cases := []struct {
		v       float64
		bitSize int
		want    string
	}{
		{280, 64, "280.0"},
		{280.5, 64, "280.5"},
		{-0.25, 64, "-0.25"},
		{0, 64, "0.0"},
		{1e-5, 64, "1e-05"},
		{123456789, 64, "123456789.0"},
		{1e16, 64, "1e+16"},
		{float64(float32(273.15)), 32, "273.15"},
		{float64(float32(273.15)), 64, "273.1499938964844"},
		{math.NaN(), 64, ""},
		{math.Inf(-1), 64, "-inf"},
	}
	for _, tc := range cases {
		if got := formatFloat(tc.v, tc.bitSize); got != tc.want {
			t.Errorf("formatFloat(%v, %d) = %q, want %q", tc.v, tc.bitSize, got, tc.want)
		}
	}
	if got := formatValue(12, Integer); got != "12" {
		t.Errorf("formatValue(12, Integer) = %q, want 12", got)
	}
}

func sampleTable(kind Kind) *Table {
	ref := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	level := 2
	return &Table{
		Kind:    kind,
		Columns: []string{"latitude", "longitude", "site"},
		Results: []Result{
			{
				Type: "2 metre temperature", Value: 283, Unit: "K",
				ValidTime: ref.Add(6 * time.Hour), RefTime: ref, Level: &level,
				Query: QueryRow{Lat: 10.5, Lon: 20.5, Values: []string{"10.5", "20.5", "A"}},
			},
			{
				Type: "2 metre temperature", Value: math.NaN(), Unit: "K",
				ValidTime: ref.Add(6 * time.Hour), RefTime: ref, Level: &level,
				Query: QueryRow{Lat: 10.6, Lon: 20.6, Values: []string{"10.6", "20.6", "B, C"}},
			},
		},
	}
}

func TestWriteCSVGRIB(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleTable(KindGRIB), ""); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	want := "type,value,unit,valid_time,ref_time,level,latitude,longitude,site\n" +
		"2 metre temperature,283.0,K,2024-03-01 18:00:00,2024-03-01 12:00:00,2,10.5,20.5,A\n" +
		"2 metre temperature,,K,2024-03-01 18:00:00,2024-03-01 12:00:00,2,10.6,20.6,\"B, C\"\n"
	if got := buf.String(); got != want {
		t.Errorf("WriteCSV =\n%s\nwant\n%s", got, want)
	}
}

func TestWriteCSVTIFFHasNoLevel(t *testing.T) {
	tbl := sampleTable(KindTIFF)
	var buf bytes.Buffer
	if err := WriteCSV(&buf, tbl, time.RFC3339); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "type,value,unit,valid_time,ref_time,latitude,longitude,site" {
		t.Errorf("header = %q", lines[0])
	}
	if want := "2 metre temperature,283.0,K,2024-03-01T18:00:00Z,2024-03-01T12:00:00Z,10.5,20.5,A"; lines[1] != want {
		t.Errorf("row = %q, want %q", lines[1], want)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleTable(KindGRIB)); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var rows []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rows); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0]["value"] != 283.0 || rows[0]["level"] != 2.0 || rows[0]["valid_time"] != "2024-03-01T18:00:00Z" {
		t.Errorf("row 0 = %v", rows[0])
	}
	if v, ok := rows[1]["value"]; !ok || v != nil {
		t.Errorf("NaN value = %v, want null", v)
	}
	if in := rows[1]["input"].(map[string]any); in["site"] != "B, C" {
		t.Errorf("input = %v", in)
	}
}
