package job

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/vegasq/lazytab/arrowio"
	"github.com/vegasq/lazytab/frame"
	"github.com/vegasq/lazytab/internal/codec"
	"github.com/vegasq/lazytab/query"
	"github.com/vegasq/lazytab/reader"
)

// compiler builds lazy frames for a job. Every source and pipeline is
// compiled once, so frames that share an input share its scan node.
type compiler struct {
	job      *Job
	frames   map[string]query.LazyFrame
	visiting map[string]bool
}

// Compile builds the lazy frame of every pipeline, in job order
func (j *Job) Compile() ([]query.LazyFrame, error) {
	c := &compiler{job: j, frames: make(map[string]query.LazyFrame), visiting: make(map[string]bool)}
	out := make([]query.LazyFrame, len(j.Pipelines))
	for i, p := range j.Pipelines {
		lf, err := c.resolve(p.Name)
		if err != nil {
			return nil, err
		}
		out[i] = lf
	}
	return out, nil
}

// CompilePipeline builds the lazy frame of one pipeline
func (j *Job) CompilePipeline(name string) (query.LazyFrame, error) {
	c := &compiler{job: j, frames: make(map[string]query.LazyFrame), visiting: make(map[string]bool)}
	for _, p := range j.Pipelines {
		if p.Name == name {
			return c.resolve(name)
		}
	}
	return query.LazyFrame{}, fmt.Errorf("unknown pipeline %q", name)
}

func (c *compiler) resolve(name string) (query.LazyFrame, error) {
	if lf, ok := c.frames[name]; ok {
		return lf, nil
	}
	if c.visiting[name] {
		return query.LazyFrame{}, fmt.Errorf("%w: pipeline %q depends on itself", query.ErrInvalidPlan, name)
	}

	if spec, ok := c.job.Sources[name]; ok {
		src, err := OpenSource(spec, c.job.BaseDir)
		if err != nil {
			return query.LazyFrame{}, fmt.Errorf("source %q: %w", name, err)
		}
		lf := query.Scan(src)
		c.frames[name] = lf
		return lf, nil
	}

	for _, p := range c.job.Pipelines {
		if p.Name != name {
			continue
		}
		c.visiting[name] = true
		lf, err := c.pipeline(p)
		delete(c.visiting, name)
		if err != nil {
			return query.LazyFrame{}, err
		}
		c.frames[name] = lf
		return lf, nil
	}
	return query.LazyFrame{}, fmt.Errorf("unknown source or pipeline %q", name)
}

func (c *compiler) pipeline(p Pipeline) (query.LazyFrame, error) {
	lf, err := c.resolve(p.From)
	if err != nil {
		return query.LazyFrame{}, fmt.Errorf("pipeline %q: %w", p.Name, err)
	}
	for i, s := range p.Steps {
		lf, err = c.step(lf, s)
		if err != nil {
			return query.LazyFrame{}, fmt.Errorf("pipeline %q step %d: %w", p.Name, i+1, err)
		}
	}
	return lf, nil
}

func (c *compiler) step(lf query.LazyFrame, s Step) (query.LazyFrame, error) {
	switch {
	case s.Select != nil:
		exprs, err := query.ParseExprs(s.Select)
		if err != nil {
			return lf, err
		}
		return lf.Select(exprs...), nil

	case s.Filter != "":
		pred, err := query.ParseExpr(s.Filter)
		if err != nil {
			return lf, err
		}
		return lf.Filter(pred), nil

	case s.WithColumns != nil:
		exprs, err := query.ParseExprs(s.WithColumns)
		if err != nil {
			return lf, err
		}
		return lf.WithColumns(exprs...), nil

	case s.GroupBy != nil:
		keys, err := query.ParseExprs(s.GroupBy)
		if err != nil {
			return lf, err
		}
		aggs, err := query.ParseExprs(s.Agg)
		if err != nil {
			return lf, err
		}
		return lf.GroupBy(keys...).Agg(aggs...), nil

	case s.Agg != nil:
		aggs, err := query.ParseExprs(s.Agg)
		if err != nil {
			return lf, err
		}
		return lf.Agg(aggs...), nil

	case s.Join != nil:
		return c.join(lf, s.Join)

	case s.Sort != nil:
		keys := make([]query.SortKey, len(s.Sort.By))
		for i, text := range s.Sort.By {
			k, err := query.ParseSortKey(text)
			if err != nil {
				return lf, err
			}
			k.Descending = k.Descending || s.Sort.Descending
			k.NullsLast = k.NullsLast || s.Sort.NullsLast
			keys[i] = k
		}
		return lf.Sort(keys...), nil

	case s.Slice != nil:
		return lf.Slice(s.Slice.Offset, s.Slice.Length), nil

	case s.Head != nil:
		return lf.Head(*s.Head), nil

	case s.Tail != nil:
		return lf.Tail(*s.Tail), nil

	case s.Unique != nil:
		keep := query.KeepFirst
		if s.Unique.Keep != "" {
			var err error
			if keep, err = query.ParseKeepStrategy(s.Unique.Keep); err != nil {
				return lf, err
			}
		}
		return lf.Unique(s.Unique.Subset, keep), nil

	case s.Concat != nil:
		others := make([]query.LazyFrame, len(s.Concat))
		for i, name := range s.Concat {
			other, err := c.resolve(name)
			if err != nil {
				return lf, err
			}
			others[i] = other
		}
		return lf.Concat(others...), nil

	case s.DropNulls != nil:
		return lf.DropNulls(*s.DropNulls...), nil

	case s.Rename != nil:
		return lf.Rename(s.Rename), nil

	case s.FrameAgg != "":
		kind, err := query.ParseAggKind(s.FrameAgg)
		if err != nil {
			return lf, err
		}
		return lf.FrameAgg(kind), nil
	}
	return lf, fmt.Errorf("empty step")
}

func (c *compiler) join(lf query.LazyFrame, js *JoinStep) (query.LazyFrame, error) {
	right, err := c.resolve(js.With)
	if err != nil {
		return lf, err
	}

	how := query.JoinInner
	if js.How != "" {
		if how, err = query.ParseJoinType(js.How); err != nil {
			return lf, err
		}
	}

	var opts []query.JoinOption
	if js.Suffix != "" {
		opts = append(opts, query.JoinSuffix(js.Suffix))
	}
	if js.NullsEqual {
		opts = append(opts, query.JoinNullsEqual())
	}

	switch {
	case how == query.JoinCross:
		return lf.CrossJoin(right, opts...), nil
	case len(js.On) > 0:
		return lf.JoinOn(right, js.On, how, opts...), nil
	}
	leftOn, err := query.ParseExprs(js.LeftOn)
	if err != nil {
		return lf, err
	}
	rightOn, err := query.ParseExprs(js.RightOn)
	if err != nil {
		return lf, err
	}
	return lf.Join(right, leftOn, rightOn, how, opts...), nil
}

// OpenSource builds the scan source a spec describes. Relative local paths
// are resolved against baseDir.
func OpenSource(spec SourceSpec, baseDir string) (query.Source, error) {
	path := spec.Path
	remote := strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://")
	if !remote && baseDir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}

	format := strings.ToLower(spec.Format)
	if format == "" {
		format = guessFormat(path)
	}

	switch format {
	case "csv", "tsv":
		opts, err := spec.csvOptions(format)
		if err != nil {
			return nil, err
		}
		return reader.NewCSVSource(path, opts), nil
	case "parquet":
		return reader.NewParquetSource(path), nil
	case "arrow", "ipc":
		return arrowio.NewIPCSource(path), nil
	case "":
		return nil, fmt.Errorf("cannot infer the format of %q; set format", spec.Path)
	}
	return nil, fmt.Errorf("unsupported source format %q", spec.Format)
}

func guessFormat(path string) string {
	switch strings.ToLower(filepath.Ext(codec.TrimExt(path))) {
	case ".csv":
		return "csv"
	case ".tsv", ".tab":
		return "tsv"
	case ".parquet", ".pq":
		return "parquet"
	case ".arrow", ".arrows", ".ipc":
		return "arrow"
	}
	return ""
}

func (s SourceSpec) csvOptions(format string) (reader.CSVOptions, error) {
	opts := reader.CSVOptions{
		NoHeader:   s.NoHeader,
		NullValues: s.NullValues,
		InferRows:  s.InferRows,
	}
	if format == "tsv" {
		opts.Delimiter = '\t'
	}
	if s.Delimiter != "" {
		d := s.Delimiter
		if d == `\t` {
			d = "\t"
		}
		r, size := utf8.DecodeRuneInString(d)
		if size != len(d) {
			return opts, fmt.Errorf("delimiter must be a single character, got %q", s.Delimiter)
		}
		opts.Delimiter = r
	}
	if len(s.Types) > 0 {
		opts.Types = make(map[string]frame.DataType, len(s.Types))
		for col, name := range s.Types {
			t, err := frame.ParseDataType(name)
			if err != nil {
				return opts, fmt.Errorf("column %q: %w", col, err)
			}
			opts.Types[col] = t
		}
	}
	return opts, nil
}
