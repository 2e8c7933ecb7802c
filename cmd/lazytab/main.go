package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/vegasq/lazytab/config"
	"github.com/vegasq/lazytab/frame"
	"github.com/vegasq/lazytab/internal/job"
	"github.com/vegasq/lazytab/internal/logging"
	"github.com/vegasq/lazytab/output"
	"github.com/vegasq/lazytab/query"
	"github.com/vegasq/lazytab/reader"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// options are the parsed command line flags
type options struct {
	configPath string
	format     string
	limit      int
	schema     bool
	outPath    string
	logLevel   string
	where      string
	explain    bool

	set map[string]bool
}

func parseFlags(args []string, stderr io.Writer) (*options, []string, error) {
	fs := flag.NewFlagSet("lazytab", flag.ContinueOnError)
	fs.SetOutput(stderr)

	o := &options{set: make(map[string]bool)}
	fs.StringVar(&o.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&o.format, "f", "", "Output format: "+strings.Join(output.Formats, ", "))
	fs.IntVar(&o.limit, "limit", 0, "Limit number of rows (0 = unlimited)")
	fs.BoolVar(&o.schema, "schema", false, "Show schema information instead of data")
	fs.StringVar(&o.outPath, "o", "", "Write the result to a file; format and compression follow the extension")
	fs.StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.StringVar(&o.where, "where", "", "Keep rows matching an expression (e.g. \"age > 30\")")
	fs.BoolVar(&o.explain, "explain", false, "Print the query plan instead of running it")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: lazytab [options] <job.yaml | data-file>\n\n")
		fmt.Fprintf(stderr, "Runs a YAML job file, or scans a CSV, Parquet or Arrow file and prints it.\n\n")
		fmt.Fprintf(stderr, "IMPORTANT: All flags must come BEFORE file arguments.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  lazytab data.parquet\n")
		fmt.Fprintf(stderr, "  lazytab -f csv -where \"age > 30\" data.csv.gz\n")
		fmt.Fprintf(stderr, "  lazytab -o out.parquet data.csv\n")
		fmt.Fprintf(stderr, "  lazytab -schema data.parquet\n")
		fmt.Fprintf(stderr, "  lazytab -config lazytab.yaml job.yaml\n")
	}

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	return o, fs.Args(), nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	o, rest, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if len(rest) != 1 {
		fmt.Fprintf(stderr, "Error: expected exactly one job or data file argument\n\n")
		return 2
	}

	if err := execute(ctx, o, rest[0], stdout, stderr); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func execute(ctx context.Context, o *options, target string, stdout, stderr io.Writer) error {
	if o.limit < 0 {
		return fmt.Errorf("-limit must be non-negative, got %d", o.limit)
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.set["f"] {
		cfg.Output.Format = o.format
	}
	if o.set["limit"] {
		cfg.Output.Limit = o.limit
	}
	if o.set["log-level"] {
		cfg.Logging.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := initLogging(cfg, stderr); err != nil {
		return err
	}
	defer func() { _ = logging.Close() }()
	cfg.Apply()

	if isJobFile(target) {
		if o.schema || o.outPath != "" || o.where != "" || o.explain {
			return fmt.Errorf("-schema, -o, -where and -explain apply to data files, not job files")
		}
		return runJob(ctx, cfg, target, stdout)
	}
	return scanFile(ctx, cfg, o, target, stdout)
}

// initLogging replaces any default logger with the configured one
func initLogging(cfg *config.Config, stderr io.Writer) error {
	_ = logging.Close()
	lc := cfg.LoggerConfig()
	if lc.OutputPath != "" {
		return logging.Init(lc)
	}
	return logging.InitWriter(stderr, lc.Level, lc.Format)
}

func isJobFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func runJob(ctx context.Context, cfg *config.Config, path string, stdout io.Writer) error {
	j, err := job.Load(path)
	if err != nil {
		return err
	}
	logging.Info("running job", "path", path, "pipelines", len(j.Pipelines))
	_, err = job.Run(ctx, j, job.RunOptions{
		Stdout: stdout,
		Format: cfg.Output.Format,
		Limit:  cfg.Output.Limit,
	})
	return err
}

func scanFile(ctx context.Context, cfg *config.Config, o *options, path string, stdout io.Writer) error {
	src, err := job.OpenSource(job.SourceSpec{Path: path}, "")
	if err != nil {
		return err
	}

	if o.schema {
		t, err := schemaTable(src)
		if err != nil {
			return err
		}
		return printTable(t, cfg, stdout)
	}

	lf := query.Scan(src)
	if o.where != "" {
		pred, err := query.ParseExpr(o.where)
		if err != nil {
			return fmt.Errorf("-where: %w", err)
		}
		lf = lf.Filter(pred)
	}
	// the table format caps rows itself and reports the full shape
	if o.set["limit"] && o.limit > 0 && (cfg.Output.Format != output.FormatTable || o.outPath != "") {
		lf = lf.Head(o.limit)
	}

	if o.explain {
		_, err := io.WriteString(stdout, lf.Explain())
		return err
	}

	t, err := lf.CollectContext(ctx)
	if err != nil {
		return err
	}
	logging.Debug("scan collected", "source", src.String(), "rows", t.NumRows())

	if o.outPath != "" {
		format := ""
		if o.set["f"] {
			format = o.format
		}
		if err := output.WriteFile(o.outPath, t, format); err != nil {
			return err
		}
		logging.Info("wrote result", "path", o.outPath, "rows", t.NumRows())
		return nil
	}
	return printTable(t, cfg, stdout)
}

func printTable(t *frame.Table, cfg *config.Config, stdout io.Writer) error {
	f, err := output.New(cfg.Output.Format, stdout)
	if err != nil {
		return err
	}
	if tf, ok := f.(*output.TableFormatter); ok {
		tf.MaxRows = cfg.Output.Limit
	}
	return f.Format(t)
}

// schemaTable describes a source's columns. Local parquet files list
// their physical and logical types as well.
func schemaTable(src query.Source) (*frame.Table, error) {
	if ps, ok := src.(*reader.ParquetSource); ok && !strings.ContainsAny(ps.Pattern, "*?[") {
		return parquetSchemaTable(ps.Pattern)
	}

	schema, err := src.Schema()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(schema))
	types := make([]string, len(schema))
	for i, f := range schema {
		names[i] = f.Name
		types[i] = f.Type.String()
	}
	return frame.NewTable(
		frame.FromStrings("name", names, nil),
		frame.FromStrings("type", types, nil),
	)
}

func parquetSchemaTable(path string) (*frame.Table, error) {
	infos, err := reader.ExtractSchemaInfo(path)
	if err != nil {
		return nil, err
	}
	n := len(infos)
	var (
		names, types, frameTypes, physical, logical = make([]string, n), make([]string, n), make([]string, n), make([]string, n), make([]string, n)
		required, optional, repeated                 = make([]bool, n), make([]bool, n), make([]bool, n)
		frameValid                                   = make([]bool, n)
	)
	for i, info := range infos {
		names[i], types[i], physical[i], logical[i] = info.Name, info.Type, info.PhysicalType, info.LogicalType
		frameTypes[i], frameValid[i] = info.FrameType, info.FrameType != ""
		required[i], optional[i], repeated[i] = info.Required, info.Optional, info.Repeated
	}
	return frame.NewTable(
		frame.FromStrings("name", names, nil),
		frame.FromStrings("type", types, nil),
		frame.FromStrings("frame_type", frameTypes, frameValid),
		frame.FromStrings("physical_type", physical, nil),
		frame.FromStrings("logical_type", logical, nil),
		frame.FromBools("required", required, nil),
		frame.FromBools("optional", optional, nil),
		frame.FromBools("repeated", repeated, nil),
	)
}
