// Command tiff_reader reads the pixel under latitude/longitude points of a
// single-band GeoTIFF exported from a GRIB message by GDAL.
//
// Usage:
//
//	tiff_reader [flags] <tiff-file> [<lat> <lon>]
//
// Examples:
//
//	tiff_reader t2m.tif 52.2 21.0
//	tiff_reader --csv stations.csv -o out.csv t2m.tif
//	tiff_reader --format json --pos=39.64,-106.37 t2m.tif
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"

	"github.com/geal-ai/gridpoint/extract"
	"github.com/geal-ai/gridpoint/internal/cli"
	"github.com/geal-ai/gridpoint/internal/exitcode"
)

const name = "tiff_reader"

type CLI struct {
	File string `arg:"" type:"path" placeholder:"TIFF-FILE" help:"Single-band GeoTIFF to read."`

	Query cli.Query  `embed:""`
	Out   cli.Output `embed:""`

	Debug bool `help:"Log at debug level in a human-readable format."`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var c CLI
	parser, err := kong.New(&c,
		kong.Name(name),
		kong.Description("Read single-band GeoTIFF pixels at latitude/longitude points."),
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		panic(err)
	}
	ctx, err := parser.Parse(args)
	if err != nil {
		var pe *kong.ParseError
		if errors.As(err, &pe) {
			ctx = pe.Context
		}
		return usageError(stderr, ctx, err)
	}
	if err := c.Query.Check(false); err != nil {
		return usageError(stderr, ctx, err)
	}

	env, err := cli.Setup(name, c.Debug, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "%s: error: %v\n", name, err)
		return exitcode.FromError(err)
	}
	defer env.Log.Sync()

	if err := c.run(env, stdout); err != nil {
		code := exitcode.FromError(err)
		env.Log.Errorw("extraction failed", "file", c.File, "error", err, "exit_code", code)
		return code
	}
	return exitcode.Success
}

func (c *CLI) run(env *cli.Env, stdout io.Writer) error {
	q, err := c.Query.Load()
	if err != nil {
		return err
	}
	t, err := extract.ExtractTIFF(c.File, q, env.Log)
	if err != nil {
		return err
	}
	if err := c.Out.Write(stdout, t, env.Config.TimeLayout); err != nil {
		return err
	}
	env.Log.Infow("extracted", "file", c.File, "points", len(q.Rows), "rows", len(t.Results))
	return nil
}

// usageError reports err followed by the usage text, both on stderr.
func usageError(stderr io.Writer, ctx *kong.Context, err error) int {
	fmt.Fprintf(stderr, "%s: error: %v\n", name, err)
	if ctx != nil {
		ctx.Stdout = stderr
		_ = ctx.PrintUsage(false)
	}
	return exitcode.UsageError
}
