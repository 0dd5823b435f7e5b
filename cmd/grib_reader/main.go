// Command grib_reader extracts GRIB2 field values at latitude/longitude
// points and writes one row per (message, point) pair.
//
// Usage:
//
//	grib_reader [flags] <grib-file> [<lat> <lon>]
//	grib_reader --list <grib-file>
//
// Examples:
//
//	grib_reader forecast.grib2 52.2 21.0
//	grib_reader --data "2 metre temperature" --method linear --pos 52.2,21.0 forecast.grib2
//	grib_reader --data t --level 850,500 --csv stations.csv -o out.csv forecast.grib2
//	grib_reader --format json forecast.grib2 -- 39.64 -106.37
//	grib_reader --list forecast.grib2
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"

	"github.com/geal-ai/gridpoint/extract"
	"github.com/geal-ai/gridpoint/grib2"
	"github.com/geal-ai/gridpoint/internal/cli"
	"github.com/geal-ai/gridpoint/internal/exitcode"
	"github.com/geal-ai/gridpoint/interp"
)

const name = "grib_reader"

type CLI struct {
	File string `arg:"" type:"path" placeholder:"GRIB-FILE" help:"GRIB2 file to read."`

	Query cli.Query  `embed:""`
	Out   cli.Output `embed:""`

	Data   []string `placeholder:"NAME" help:"Message names or short names to extract, e.g. \"2 metre temperature\" or 2t. Default: all."`
	Level  []int    `placeholder:"LEVEL" help:"Levels to extract, e.g. 2 or 850 (hPa for isobaric surfaces). Default: all."`
	Method string   `placeholder:"METHOD" help:"Interpolation method: nearest or linear (default from GRIDPOINT_METHOD, else nearest)."`
	List   bool     `help:"Print the message inventory. Without a query point, exit afterwards."`
	Debug  bool     `help:"Log at debug level in a human-readable format."`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	var c CLI
	parser, err := kong.New(&c,
		kong.Name(name),
		kong.Description("Extract GRIB2 values at latitude/longitude points."),
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
	if err := c.Query.Check(c.List); err != nil {
		return usageError(stderr, ctx, err)
	}
	if c.Method != "" {
		if _, err := interp.ParseMethod(c.Method); err != nil {
			return usageError(stderr, ctx, err)
		}
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

// usageError reports err followed by the usage text, both on stderr.
func usageError(stderr io.Writer, ctx *kong.Context, err error) int {
	fmt.Fprintf(stderr, "%s: error: %v\n", name, err)
	if ctx != nil {
		ctx.Stdout = stderr
		_ = ctx.PrintUsage(false)
	}
	return exitcode.UsageError
}

func (c *CLI) run(env *cli.Env, stdout io.Writer) error {
	if c.List {
		if err := printInventory(stdout, c.File, c.Data, c.Level); err != nil {
			return err
		}
		if c.Query.Empty() {
			return nil
		}
	}

	method := env.Config.Method
	if c.Method != "" {
		method, _ = interp.ParseMethod(c.Method)
	}

	q, err := c.Query.Load()
	if err != nil {
		return err
	}
	start := time.Now()
	t, err := extract.ExtractGRIB(c.File, q, extract.GRIBOptions{
		Names:  c.Data,
		Levels: c.Level,
		Method: method,
	}, env.Log)
	if err != nil {
		return err
	}
	if err := c.Out.Write(stdout, t, env.Config.TimeLayout); err != nil {
		return err
	}
	env.Log.Infow("extracted",
		"file", c.File,
		"points", len(q.Rows),
		"rows", len(t.Results),
		"method", method.String(),
		"elapsed", time.Since(start).String(),
	)
	return nil
}

// printInventory lists the messages of path that pass the name and level
// filters, one per line.
func printInventory(w io.Writer, path string, names []string, levels []int) error {
	f, err := grib2.Open(path)
	if err != nil {
		return &extract.SourceError{Path: path, Err: err}
	}
	defer f.Close()
	all, err := f.Messages()
	if err != nil {
		return &extract.SourceError{Path: path, Err: err}
	}
	msgs := grib2.Select(all, names, levels)

	maxName := 0
	for _, m := range msgs {
		maxName = max(maxName, len(m.Name()))
	}
	fmt.Fprintf(w, "%s: %d of %d messages, %s\n\n", path, len(msgs), len(all), humanize.Bytes(uint64(f.Size())))
	for _, m := range msgs {
		valid := "?"
		if vt, err := m.ValidTime(); err == nil {
			valid = vt.UTC().Format("2006-01-02 15:04Z")
		}
		ni, nj := m.Grid.Dims()
		fmt.Fprintf(w, "  %3d  %-*s  %-8s %-10s %5d %-26s ref %s  valid %s  grid 3.%d %dx%d\n",
			m.Index, maxName, m.Name(), m.Param.ShortName, "["+m.Param.Units+"]",
			m.Level(), m.Product.TypeOfLevel(),
			m.RefTime().UTC().Format("2006-01-02 15:04Z"), valid,
			m.Grid.Template(), ni, nj)
	}
	return nil
}
