package grib2

import (
	"encoding/binary"
	"testing"
	"time"
)

func makeSection4(template uint16, n int) []byte {
	sec := make([]byte, n)
	binary.BigEndian.PutUint32(sec[0:4], uint32(n))
	sec[4] = 4
	binary.BigEndian.PutUint16(sec[7:9], template)
	return sec
}

func TestParseSection4Errors(t *testing.T) {
	cases := map[string][]byte{
		"too short":            {0, 0, 0, 8, 4, 0, 0, 0},
		"template 4.0 short":   makeSection4(0, 30),
		"unsupported template": makeSection4(30, 40), // satellite product
		"template 4.8 short":   makeSection4(8, 34),
	}
	for name, sec := range cases {
		if _, err := parseSection4(sec); err == nil {
			t.Errorf("%s: expected error, got nil", name)
		}
	}
}

func TestParseSection4Template8IntervalEnd(t *testing.T) {
	sec := makeSection4(8, 58)
	sec[9], sec[10] = 1, 8 // total precipitation
	sec[17] = 1
	binary.BigEndian.PutUint32(sec[18:22], 0)
	sec[22] = SurfaceGround
	binary.BigEndian.PutUint16(sec[34:36], 2024)
	sec[36], sec[37], sec[38] = 3, 1, 18

	p, err := parseSection4(sec)
	if err != nil {
		t.Fatalf("parseSection4: %v", err)
	}
	want := time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)
	if !p.IntervalEnd.Equal(want) {
		t.Errorf("IntervalEnd = %v, want %v", p.IntervalEnd, want)
	}

	m := &Message{Ident: Identification{RefTime: testRefTime}, Product: p}
	vt, err := m.ValidTime()
	if err != nil {
		t.Fatalf("ValidTime: %v", err)
	}
	if !vt.Equal(want) {
		t.Errorf("ValidTime = %v, want the interval end %v", vt, want)
	}
	if got := LookupParameter(0, p).ShortName; got != "tp" {
		t.Errorf("parameter = %q, want tp", got)
	}
}

func TestProductLevel(t *testing.T) {
	cases := []struct {
		name  string
		p     Product
		level int
	}{
		{"2 m above ground", Product{SurfaceType: SurfaceHeightAboveGround, SurfaceValue: 2}, 2},
		{"850 hPa", Product{SurfaceType: SurfaceIsobaric, SurfaceValue: 85000}, 850},
		{"scaled metres", Product{SurfaceType: SurfaceHeightAboveGround, SurfaceScale: 1, SurfaceValue: 100}, 10},
		{"negative scale", Product{SurfaceType: 106, SurfaceScale: -1, SurfaceValue: 3}, 30},
		{"missing surface", Product{SurfaceType: SurfaceMissing, SurfaceValue: 12}, 0},
		{"missing value", Product{SurfaceType: SurfaceGround, SurfaceValue: 0xFFFFFFFF}, 0},
	}
	for _, tc := range cases {
		if got := tc.p.Level(); got != tc.level {
			t.Errorf("%s: Level() = %d, want %d", tc.name, got, tc.level)
		}
	}
}

func TestScaleFactor8(t *testing.T) {
	cases := []struct {
		b    byte
		want int
	}{
		{0x00, 0},
		{0x02, 2},
		{0x81, -1},
		{0xFF, 0},
	}
	for _, tc := range cases {
		if got := scaleFactor8(tc.b); got != tc.want {
			t.Errorf("scaleFactor8(0x%02X) = %d, want %d", tc.b, got, tc.want)
		}
	}
}

func TestForecastDuration(t *testing.T) {
	cases := []struct {
		unit byte
		n    int64
		want time.Duration
	}{
		{0, 30, 30 * time.Minute},
		{1, 6, 6 * time.Hour},
		{2, 1, 24 * time.Hour},
		{10, 2, 6 * time.Hour},
		{11, 1, 6 * time.Hour},
		{12, 1, 12 * time.Hour},
		{13, 90, 90 * time.Second},
	}
	for _, tc := range cases {
		got, err := Product{TimeUnit: tc.unit, ForecastTime: tc.n}.ForecastDuration()
		if err != nil {
			t.Errorf("unit %d: %v", tc.unit, err)
			continue
		}
		if got != tc.want {
			t.Errorf("unit %d × %d = %v, want %v", tc.unit, tc.n, got, tc.want)
		}
	}
	if _, err := (Product{TimeUnit: 3}).ForecastDuration(); err == nil {
		t.Error("unit 3 (month): expected error, got nil")
	}
}

func TestParseSection1(t *testing.T) {
	sec := make([]byte, 21)
	binary.BigEndian.PutUint32(sec[0:4], 21)
	sec[4] = 1
	binary.BigEndian.PutUint16(sec[5:7], 98) // ECMWF
	binary.BigEndian.PutUint16(sec[12:14], 2023)
	sec[14], sec[15], sec[16], sec[17], sec[18] = 12, 31, 23, 30, 15

	id, err := parseSection1(sec)
	if err != nil {
		t.Fatalf("parseSection1: %v", err)
	}
	if want := time.Date(2023, 12, 31, 23, 30, 15, 0, time.UTC); !id.RefTime.Equal(want) {
		t.Errorf("RefTime = %v, want %v", id.RefTime, want)
	}
	if id.Centre != 98 {
		t.Errorf("Centre = %d, want 98", id.Centre)
	}

	sec[14] = 13
	if _, err := parseSection1(sec); err == nil {
		t.Error("month 13: expected error, got nil")
	}
	if _, err := parseSection1(sec[:20]); err == nil {
		t.Error("20-byte section: expected error, got nil")
	}
}
