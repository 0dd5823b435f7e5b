// Package cli holds the flags and plumbing shared by grib_reader and
// tiff_reader.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/geal-ai/gridpoint/extract"
	"github.com/geal-ai/gridpoint/internal/config"
	"github.com/geal-ai/gridpoint/internal/log"
)

// Query selects the query points: positional "lat lon", --pos or --csv.
type Query struct {
	Coords []float64 `arg:"" optional:"" placeholder:"LAT LON" help:"Query point as latitude then longitude. Use -- before negative values."`
	Pos    string    `placeholder:"LAT,LON" help:"Query point as \"lat,lon\"."`
	CSV    string    `name:"csv" type:"path" placeholder:"FILE" help:"CSV file of query points with latitude and longitude columns; other columns are copied to the output."`
}

// Check rejects missing or conflicting query selections. With optional
// set, no selection at all is accepted.
func (q *Query) Check(optional bool) error {
	if len(q.Coords) != 0 && len(q.Coords) != 2 {
		return fmt.Errorf("expected latitude and longitude, got %d positional values", len(q.Coords))
	}
	n := 0
	for _, set := range []bool{len(q.Coords) == 2, q.Pos != "", q.CSV != ""} {
		if set {
			n++
		}
	}
	switch {
	case n > 1:
		return errors.New("lat lon, --pos and --csv are mutually exclusive")
	case n == 0 && !optional:
		return errors.New("a query point is required: lat lon, --pos or --csv")
	}
	return nil
}

// Empty reports whether no query point was selected.
func (q *Query) Empty() bool {
	return len(q.Coords) == 0 && q.Pos == "" && q.CSV == ""
}

// Load builds the query batch.
func (q *Query) Load() (*extract.QuerySet, error) {
	switch {
	case q.CSV != "":
		return extract.LoadCSVFile(q.CSV)
	case q.Pos != "":
		return extract.FromPosition(q.Pos)
	}
	return extract.FromCoordinates(q.Coords[0], q.Coords[1]), nil
}

// Output selects where and how the result table is written.
type Output struct {
	Output string `short:"o" type:"path" placeholder:"FILE" help:"Write results to FILE instead of standard output."`
	Format string `enum:"csv,json" default:"csv" help:"Output format (${enum})."`
}

// Write encodes t to the -o file, or to stdout when none is set.
func (o *Output) Write(stdout io.Writer, t *extract.Table, layout string) error {
	if o.Output == "" {
		return o.encode(stdout, t, layout)
	}
	f, err := os.Create(o.Output)
	if err != nil {
		return err
	}
	if err := o.encode(f, t, layout); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", o.Output, err)
	}
	return f.Close()
}

func (o *Output) encode(w io.Writer, t *extract.Table, layout string) error {
	if o.Format == "json" {
		return extract.WriteJSON(w, t)
	}
	return extract.WriteCSV(w, t, layout)
}

// Env is the per-run state built after flag parsing.
type Env struct {
	Config *config.Config
	Log    *zap.SugaredLogger
	RunID  string
}

// Setup loads the environment configuration and builds a logger tagged
// with the tool name and a fresh run id. The --debug flag wins over
// GRIDPOINT_DEBUG being unset.
func Setup(tool string, debug bool, stderr io.Writer) (*Env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if debug {
		cfg.Debug = true
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("run id: %w", err)
	}
	l := log.New(stderr, cfg.Debug, cfg.LogLevel).With("tool", tool, "run_id", id.String())
	return &Env{Config: cfg, Log: l, RunID: id.String()}, nil
}
