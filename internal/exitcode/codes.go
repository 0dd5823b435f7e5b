package exitcode

import (
	"errors"
	"io/fs"

	"github.com/geal-ai/gridpoint/extract"
	"github.com/geal-ai/gridpoint/geotiff"
	"github.com/geal-ai/gridpoint/internal/config"
	"github.com/geal-ai/gridpoint/interp"
)

// Exit codes for the reader commands.
// Scripts can use these to tell bad input from bad data.
const (
	// Success - every query point was extracted
	Success = 0

	// UsageError - bad flags or arguments
	UsageError = 1

	// ConfigError - invalid environment configuration
	ConfigError = 2

	// OutOfBoundsError - a query point lies outside the raster
	OutOfBoundsError = 3

	// DataError - the raster or query file is unusable (wrong band count,
	// bad time tag, missing columns, nothing matched)
	DataError = 4

	// IOError - a file could not be opened, read or written
	IOError = 5

	// ApplicationError - anything else
	ApplicationError = 6
)

// FromError maps an error returned by the extraction pipeline to an exit code.
func FromError(err error) int {
	if err == nil {
		return Success
	}

	var (
		invalidEnv *config.ErrInvalidEnvVar
		bounds     *interp.BoundsError
		pixel      *geotiff.PixelRangeError
		bands      *geotiff.BandCountError
		timeFmt    *geotiff.TimeFormatError
		query      *extract.QueryError
		missingTag *extract.MissingTagError
		pathErr    *fs.PathError
		source     *extract.SourceError
	)
	switch {
	case errors.As(err, &invalidEnv):
		return ConfigError
	case errors.As(err, &bounds), errors.As(err, &pixel):
		return OutOfBoundsError
	case errors.As(err, &bands), errors.As(err, &timeFmt), errors.As(err, &missingTag),
		errors.As(err, &query), errors.Is(err, extract.ErrNoResults), errors.Is(err, extract.ErrEmptyBatch):
		return DataError
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission), errors.As(err, &pathErr):
		return IOError
	case errors.As(err, &source):
		return DataError
	}
	return ApplicationError
}
