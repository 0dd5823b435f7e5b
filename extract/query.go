// Package extract samples raster sources at query points and assembles the
// results into a table, one row per (field, point) pair.
package extract

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Query column names.
const (
	ColumnLatitude  = "latitude"
	ColumnLongitude = "longitude"
)

// ErrEmptyBatch is returned when a query source holds no points.
var ErrEmptyBatch = errors.New("no query points")

// QueryRow is one query point. Values holds every input cell verbatim, in
// the order of QuerySet.Columns.
type QueryRow struct {
	Lat, Lon float64
	Values   []string
}

// QuerySet is an ordered batch of query points.
type QuerySet struct {
	Columns []string
	Rows    []QueryRow
}

// QueryError reports an unusable query input. Line is 1-based and 0 when
// the input has no lines.
type QueryError struct {
	Line int
	Err  error
}

func (e *QueryError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("query: %v", e.Err)
	}
	return fmt.Sprintf("query line %d: %v", e.Line, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// FromCoordinates returns a batch holding the single point (lat, lon).
func FromCoordinates(lat, lon float64) *QuerySet {
	return &QuerySet{
		Columns: []string{ColumnLatitude, ColumnLongitude},
		Rows: []QueryRow{{
			Lat:    lat,
			Lon:    lon,
			Values: []string{formatFloat(lat, 64), formatFloat(lon, 64)},
		}},
	}
}

// FromPosition parses "lat,lon" into a single-point batch, equivalent to
// FromCoordinates on the parsed pair.
func FromPosition(s string) (*QuerySet, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return nil, &QueryError{Err: fmt.Errorf("position %q: want LAT,LON", s)}
	}
	lat, err := parseCoordinate(ColumnLatitude, parts[0])
	if err != nil {
		return nil, &QueryError{Err: err}
	}
	lon, err := parseCoordinate(ColumnLongitude, parts[1])
	if err != nil {
		return nil, &QueryError{Err: err}
	}
	return FromCoordinates(lat, lon), nil
}

// LoadCSV reads a comma-separated batch with a header row. The header must
// name the latitude and longitude columns; every other column is carried
// through to the output unchanged.
func LoadCSV(r io.Reader) (*QuerySet, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &QueryError{Err: ErrEmptyBatch}
	}
	if err != nil {
		return nil, csvError(err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	latCol, lonCol := -1, -1
	for i, name := range header {
		switch name {
		case ColumnLatitude:
			latCol = i
		case ColumnLongitude:
			lonCol = i
		}
	}
	if latCol < 0 {
		return nil, &QueryError{Line: 1, Err: fmt.Errorf("missing column %q", ColumnLatitude)}
	}
	if lonCol < 0 {
		return nil, &QueryError{Line: 1, Err: fmt.Errorf("missing column %q", ColumnLongitude)}
	}

	q := &QuerySet{Columns: header}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvError(err)
		}
		line, _ := cr.FieldPos(latCol)
		lat, err := parseCoordinate(ColumnLatitude, rec[latCol])
		if err != nil {
			return nil, &QueryError{Line: line, Err: err}
		}
		lon, err := parseCoordinate(ColumnLongitude, rec[lonCol])
		if err != nil {
			return nil, &QueryError{Line: line, Err: err}
		}
		q.Rows = append(q.Rows, QueryRow{Lat: lat, Lon: lon, Values: rec})
	}
	if len(q.Rows) == 0 {
		return nil, &QueryError{Err: ErrEmptyBatch}
	}
	return q, nil
}

// LoadCSVFile opens path and reads it with LoadCSV.
func LoadCSVFile(path string) (*QuerySet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	q, err := LoadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return q, nil
}

func csvError(err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &QueryError{Line: pe.StartLine, Err: pe.Err}
	}
	return &QueryError{Err: err}
}

func parseCoordinate(label, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", label, s)
	}
	return v, nil
}
