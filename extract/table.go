package extract

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeLayout formats valid and reference times in CSV output.
const DefaultTimeLayout = "2006-01-02 15:04:05"

// ErrNoResults is returned when a source yields no rows, e.g. when the
// name and level filters match no GRIB message.
var ErrNoResults = errors.New("no results")

// Kind names the source a Table was extracted from.
type Kind int

const (
	KindGRIB Kind = iota
	KindTIFF
)

func (k Kind) String() string {
	if k == KindTIFF {
		return "tiff"
	}
	return "grib"
}

// ValueFormat is the storage type a value was read from; it decides how
// the value is printed.
type ValueFormat int

const (
	Float64 ValueFormat = iota
	Float32
	Integer
)

// Result is one extracted value at one query point.
type Result struct {
	Type      string
	Value     float64
	Format    ValueFormat
	Unit      string
	ValidTime time.Time
	RefTime   time.Time
	Level     *int // GRIB only
	Query     QueryRow
}

// Table is the ordered output of one extraction: source field order outer,
// query order inner. Columns are the query input columns.
type Table struct {
	Kind    Kind
	Columns []string
	Results []Result
}

// Header returns the CSV header row.
func (t *Table) Header() []string {
	h := []string{"type", "value", "unit", "valid_time", "ref_time"}
	if t.Kind == KindGRIB {
		h = append(h, "level")
	}
	return append(h, t.Columns...)
}

// WriteCSV writes t with a header row and no index column. NaN values are
// empty cells; times are UTC in layout (DefaultTimeLayout when empty).
func WriteCSV(w io.Writer, t *Table, layout string) error {
	if layout == "" {
		layout = DefaultTimeLayout
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header()); err != nil {
		return err
	}
	for _, r := range t.Results {
		rec := []string{
			r.Type,
			formatValue(r.Value, r.Format),
			r.Unit,
			r.ValidTime.UTC().Format(layout),
			r.RefTime.UTC().Format(layout),
		}
		if t.Kind == KindGRIB {
			level := ""
			if r.Level != nil {
				level = strconv.Itoa(*r.Level)
			}
			rec = append(rec, level)
		}
		rec = append(rec, r.Query.Values...)
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type jsonRow struct {
	Type      string            `json:"type"`
	Value     *float64          `json:"value"`
	Unit      string            `json:"unit"`
	ValidTime string            `json:"valid_time"`
	RefTime   string            `json:"ref_time"`
	Level     *int              `json:"level,omitempty"`
	Input     map[string]string `json:"input"`
}

// WriteJSON writes t as an indented JSON array. NaN values are null and
// times are RFC 3339 UTC.
func WriteJSON(w io.Writer, t *Table) error {
	rows := make([]jsonRow, len(t.Results))
	for i, r := range t.Results {
		row := jsonRow{
			Type:      r.Type,
			Unit:      r.Unit,
			ValidTime: r.ValidTime.UTC().Format(time.RFC3339),
			RefTime:   r.RefTime.UTC().Format(time.RFC3339),
			Level:     r.Level,
			Input:     make(map[string]string, len(t.Columns)),
		}
		if !math.IsNaN(r.Value) && !math.IsInf(r.Value, 0) {
			v := r.Value
			if r.Format == Float32 {
				v, _ = strconv.ParseFloat(formatFloat(v, 32), 64)
			}
			row.Value = &v
		}
		for j, c := range t.Columns {
			if j < len(r.Query.Values) {
				row.Input[c] = r.Query.Values[j]
			}
		}
		rows[i] = row
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func formatValue(v float64, f ValueFormat) string {
	switch f {
	case Integer:
		if math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'f', 0, 64)
	case Float32:
		return formatFloat(v, 32)
	}
	return formatFloat(v, 64)
}

// formatFloat prints the shortest representation of v that reads back to
// the same bitSize float: positional between 1e-4 and 1e16, otherwise in
// exponent form, and always with a fractional part. NaN is empty.
func formatFloat(v float64, bitSize int) string {
	switch {
	case math.IsNaN(v):
		return ""
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	if a := math.Abs(v); a != 0 && (a < 1e-4 || a >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, bitSize)
	}
	s := strconv.FormatFloat(v, 'f', -1, bitSize)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
