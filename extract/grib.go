package extract

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/geal-ai/gridpoint/grib2"
	"github.com/geal-ai/gridpoint/interp"
)

// GRIBOptions selects the messages to sample and how to interpolate them.
// Empty Names or Levels match every message.
type GRIBOptions struct {
	Names  []string
	Levels []int
	Method interp.Method
}

// SourceError reports a raster file that could not be read or decoded.
type SourceError struct {
	Path string
	Err  error
}

func (e *SourceError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }

func (e *SourceError) Unwrap() error { return e.Err }

// ExtractGRIB samples every selected message of the GRIB2 file at path at
// every query point.
func ExtractGRIB(path string, q *QuerySet, opts GRIBOptions, log *zap.SugaredLogger) (*Table, error) {
	if q == nil || len(q.Rows) == 0 {
		return nil, ErrEmptyBatch
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	f, err := grib2.Open(path)
	if err != nil {
		return nil, &SourceError{Path: path, Err: err}
	}
	defer f.Close()

	all, err := f.Messages()
	if err != nil {
		return nil, &SourceError{Path: path, Err: err}
	}
	msgs := grib2.Select(all, opts.Names, opts.Levels)
	log.Debugw("opened GRIB file",
		"path", path,
		"size", humanize.Bytes(uint64(f.Size())),
		"messages", len(all),
		"selected", len(msgs),
	)
	if len(msgs) == 0 {
		return nil, fmt.Errorf("%s: no message matches names %q and levels %v: %w", path, opts.Names, opts.Levels, ErrNoResults)
	}

	t := &Table{Kind: KindGRIB, Columns: q.Columns}
	for _, m := range msgs {
		field, err := m.Field()
		if err != nil {
			return nil, &SourceError{Path: path, Err: fmt.Errorf("message %d: %w", m.Index, err)}
		}
		s, err := newSampler(field, opts.Method)
		if err != nil {
			return nil, &SourceError{Path: path, Err: fmt.Errorf("message %d: %w", m.Index, err)}
		}
		valid, err := m.ValidTime()
		if err != nil {
			return nil, &SourceError{Path: path, Err: fmt.Errorf("message %d: %w", m.Index, err)}
		}
		level := m.Level()
		log.Debugw("sampling message",
			"index", m.Index,
			"name", m.Name(),
			"level", level,
			"type_of_level", m.Product.TypeOfLevel(),
			"grid_template", field.Grid.Template(),
		)

		for _, row := range q.Rows {
			v, err := s.sample(row.Lat, row.Lon)
			if err != nil {
				return nil, err
			}
			t.Results = append(t.Results, Result{
				Type:      m.Name(),
				Value:     v,
				Format:    Float64,
				Unit:      m.Param.Units,
				ValidTime: valid,
				RefTime:   m.RefTime(),
				Level:     &level,
				Query:     row,
			})
		}
	}
	return t, nil
}

// sampler evaluates one decoded field at a point.
type sampler interface {
	sample(lat, lon float64) (float64, error)
}

func newSampler(f *grib2.Field, method interp.Method) (sampler, error) {
	switch g := f.Grid.(type) {
	case *grib2.LatLonGrid:
		grid, err := interp.NewGrid(g.DistinctLatitudes(), g.DistinctLongitudes(), f.Matrix(), method)
		if err != nil {
			return nil, err
		}
		return latLonSampler{grid}, nil
	case *grib2.LambertGrid:
		ni, nj := g.Dims()
		grid, err := interp.NewGrid(indexAxis(nj), indexAxis(ni), f.Matrix(), method)
		if err != nil {
			return nil, err
		}
		return lambertSampler{proj: g, grid: grid}, nil
	}
	return nil, fmt.Errorf("unsupported grid template 3.%d", f.Grid.Template())
}

type latLonSampler struct {
	grid *interp.Grid
}

func (s latLonSampler) sample(lat, lon float64) (float64, error) {
	return s.grid.At(lat, lon)
}

// lambertSampler projects points into fractional grid indices and
// interpolates in index space.
type lambertSampler struct {
	proj *grib2.LambertGrid
	grid *interp.Grid
}

func (s lambertSampler) sample(lat, lon float64) (float64, error) {
	if err := interp.CheckRange("latitude", lat, -90, 90); err != nil {
		return 0, err
	}
	fi, fj := s.proj.LatLonToFrac(lat, lon)
	cols, rows := s.grid.Longitudes(), s.grid.Latitudes()
	if err := interp.CheckRange("grid column", fi, cols[0], floats.Max(cols)); err != nil {
		return 0, fmt.Errorf("point (%v, %v) is outside the Lambert grid: %w", lat, lon, err)
	}
	if err := interp.CheckRange("grid row", fj, rows[0], floats.Max(rows)); err != nil {
		return 0, fmt.Errorf("point (%v, %v) is outside the Lambert grid: %w", lat, lon, err)
	}
	return s.grid.Eval(fj, fi)
}

func indexAxis(n int) []float64 {
	axis := make([]float64, n)
	for i := range axis {
		axis[i] = float64(i)
	}
	return axis
}
