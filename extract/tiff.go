package extract

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/geal-ai/gridpoint/geotiff"
	"github.com/geal-ai/gridpoint/interp"
)

// MissingTagError reports a band tag that the TIFF path needs but the
// file does not carry.
type MissingTagError struct {
	Tag string
}

func (e *MissingTagError) Error() string {
	return fmt.Sprintf("band 1 has no %s tag", e.Tag)
}

// ExtractTIFF reads the pixel under every query point of the single-band
// GeoTIFF at path. Type, unit and times come from the band's GRIB_* tags.
func ExtractTIFF(path string, q *QuerySet, log *zap.SugaredLogger) (*Table, error) {
	if q == nil || len(q.Rows) == 0 {
		return nil, ErrEmptyBatch
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	ds, err := geotiff.Open(path)
	if err != nil {
		return nil, &SourceError{Path: path, Err: err}
	}
	defer ds.Close()

	if ds.Count != 1 {
		return nil, &geotiff.BandCountError{Count: ds.Count}
	}
	bounds := ds.Bounds()
	log.Debugw("opened GeoTIFF",
		"path", path,
		"width", ds.Width,
		"height", ds.Height,
		"sample", fmt.Sprintf("%v%d", ds.Format, ds.Bits),
		"epsg", ds.GeoKeys.EPSG,
		"bounds", bounds.String(),
		"pixels", humanize.Comma(int64(ds.Width)*int64(ds.Height)),
	)
	if !ds.Georeferenced {
		log.Warnw("raster is not georeferenced, using the identity transform", "path", path)
	}

	vals, err := ds.ReadBand(1)
	if err != nil {
		return nil, &SourceError{Path: path, Err: err}
	}
	tags := ds.BandTags(1)
	format := Integer
	if ds.Format == geotiff.Float {
		format = Float64
		if ds.Bits == 32 {
			format = Float32
		}
	}

	t := &Table{Kind: KindTIFF, Columns: q.Columns}
	for _, row := range q.Rows {
		if err := interp.CheckRange("longitude", row.Lon, bounds.Left, bounds.Right); err != nil {
			return nil, err
		}
		if err := interp.CheckRange("latitude", row.Lat, bounds.Bottom, bounds.Top); err != nil {
			return nil, err
		}
		col, r, err := ds.Locate(row.Lon, row.Lat)
		if err != nil {
			return nil, err
		}
		v := vals.At(r, col)
		if ds.HasNoData && v == ds.NoData {
			log.Debugw("pixel holds the nodata value", "lat", row.Lat, "lon", row.Lon, "col", col, "row", r)
		}

		res := Result{Value: v, Format: format, Query: row}
		if res.Type, err = requireTag(tags, geotiff.TagElement); err != nil {
			return nil, err
		}
		if res.Unit, err = requireTag(tags, geotiff.TagUnit); err != nil {
			return nil, err
		}
		if res.ValidTime, err = timeTag(tags, geotiff.TagValidTime); err != nil {
			return nil, err
		}
		if res.RefTime, err = timeTag(tags, geotiff.TagRefTime); err != nil {
			return nil, err
		}
		t.Results = append(t.Results, res)
	}
	return t, nil
}

func requireTag(tags map[string]string, name string) (string, error) {
	v, ok := tags[name]
	if !ok {
		return "", &MissingTagError{Tag: name}
	}
	return v, nil
}

func timeTag(tags map[string]string, name string) (time.Time, error) {
	s, err := requireTag(tags, name)
	if err != nil {
		return time.Time{}, err
	}
	return geotiff.ParseTimeTag(s)
}
