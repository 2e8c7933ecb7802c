package job

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/vegasq/lazytab/frame"
	"github.com/vegasq/lazytab/internal/logging"
	"github.com/vegasq/lazytab/output"
	"github.com/vegasq/lazytab/query"
)

// RunOptions holds the defaults a run falls back to
type RunOptions struct {
	// Stdout receives pipelines without an output path
	Stdout io.Writer
	// Format is used when a pipeline sets neither format nor path
	Format string
	// Limit caps table output rows when a pipeline sets no limit
	Limit int
}

// Result is the collected table of one pipeline
type Result struct {
	Pipeline string
	Table    *frame.Table
	Path     string
}

// Run compiles the job, collects every pipeline concurrently and writes
// the results in pipeline order. Nothing is written if any pipeline fails.
func Run(ctx context.Context, j *Job, opts RunOptions) ([]Result, error) {
	frames, err := j.Compile()
	if err != nil {
		return nil, err
	}

	log := logging.GetLogger()
	start := time.Now()
	tables, err := query.CollectAll(ctx, frames...)
	if err != nil {
		return nil, j.collectError(err)
	}
	log.Info("job collected", "pipelines", len(tables), "elapsed", time.Since(start))

	results := make([]Result, 0, len(tables))
	for i, p := range j.Pipelines {
		res := Result{Pipeline: p.Name, Table: tables[i]}
		if p.Output.Skip {
			results = append(results, res)
			continue
		}
		path, err := j.write(p, tables[i], opts)
		if err != nil {
			return nil, fmt.Errorf("pipeline %q: %w", p.Name, err)
		}
		res.Path = path
		logging.WithPipeline(p.Name).Info("pipeline written",
			"rows", tables[i].NumRows(), "columns", tables[i].NumColumns(), "path", path)
		results = append(results, res)
	}
	return results, nil
}

// collectError names the pipeline behind a CollectAll error
func (j *Job) collectError(err error) error {
	var ce *query.CollectError
	if errors.As(err, &ce) && ce.Index < len(j.Pipelines) {
		return fmt.Errorf("pipeline %q: %w", j.Pipelines[ce.Index].Name, ce.Err)
	}
	return err
}

func (j *Job) write(p Pipeline, t *frame.Table, opts RunOptions) (string, error) {
	format := p.Output.Format
	path := p.Output.Path
	if path != "" && j.BaseDir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(j.BaseDir, path)
	}
	if format == "" && path != "" {
		var ok bool
		if format, ok = output.FormatForPath(path); !ok {
			return "", fmt.Errorf("cannot infer output format from %q", path)
		}
	}
	if format == "" {
		format = opts.Format
	}
	if format == "" {
		format = output.FormatTable
	}

	f, err := output.New(format, opts.Stdout)
	if err != nil {
		return "", err
	}
	configure(f, p.Output, opts)

	if path != "" {
		return path, output.WriteFormatted(path, t, f)
	}
	if opts.Stdout == nil {
		return "", fmt.Errorf("no output path and no writer")
	}
	if _, ok := f.(*output.TableFormatter); ok {
		if _, err := fmt.Fprintf(opts.Stdout, "%s\n", p.Name); err != nil {
			return "", err
		}
	}
	return "", f.Format(t)
}

// configure applies the per-format output settings
func configure(f output.Formatter, spec OutputSpec, opts RunOptions) {
	switch f := f.(type) {
	case *output.TableFormatter:
		f.MaxRows = spec.Limit
		if f.MaxRows == 0 {
			f.MaxRows = opts.Limit
		}
	case *output.ParquetFormatter:
		f.Compression = spec.Compression
	case *output.CSVFormatter:
		f.NullText = spec.NullText
	}
}
