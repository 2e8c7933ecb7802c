// Package job reads YAML job files and runs them.
//
// A job names its sources and a list of pipelines. Each pipeline starts from
// a source or an earlier pipeline, applies its steps in order and writes the
// result to a file or to the run's writer:
//
//	sources:
//	  product: {path: data/product.csv}
//	pipelines:
//	  - name: margin_rate
//	    from: product
//	    steps:
//	      - drop_nulls: []
//	      - select: ["cast(unit_price - unit_cost AS float64) / unit_price AS rate"]
//	      - frame_agg: mean
//	    output: {format: table}
//
// Expressions use the syntax of query.ParseExpr; sort keys use
// query.ParseSortKey.
package job

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Job is a parsed job file
type Job struct {
	Sources   map[string]SourceSpec `yaml:"sources"`
	Pipelines []Pipeline            `yaml:"pipelines"`

	// BaseDir resolves relative source and output paths. Load sets it to
	// the job file's directory.
	BaseDir string `yaml:"-"`
}

// SourceSpec describes a scan source
type SourceSpec struct {
	Path string `yaml:"path"`
	// Format is csv, tsv, parquet or arrow; empty guesses from the path.
	Format string `yaml:"format"`

	Delimiter  string            `yaml:"delimiter"`
	NoHeader   bool              `yaml:"no_header"`
	NullValues []string          `yaml:"null_values"`
	InferRows  int               `yaml:"infer_rows"`
	Types      map[string]string `yaml:"types"`
}

// Pipeline is a named chain of steps
type Pipeline struct {
	Name   string     `yaml:"name"`
	From   string     `yaml:"from"`
	Steps  []Step     `yaml:"steps"`
	Output OutputSpec `yaml:"output"`
}

// OutputSpec says where a pipeline result goes. An empty Path writes to
// the run's writer.
type OutputSpec struct {
	Path        string `yaml:"path"`
	Format      string `yaml:"format"`
	Limit       int    `yaml:"limit"`
	Compression string `yaml:"compression"`
	NullText    string `yaml:"null_text"`
	// Skip keeps the pipeline as an input for others without writing it.
	Skip bool `yaml:"skip"`
}

// Step is one operation. Exactly one field is set, except that group_by
// pairs with agg.
type Step struct {
	Select      []string          `yaml:"select"`
	Filter      string            `yaml:"filter"`
	WithColumns []string          `yaml:"with_columns"`
	GroupBy     []string          `yaml:"group_by"`
	Agg         []string          `yaml:"agg"`
	Join        *JoinStep         `yaml:"join"`
	Sort        *SortStep         `yaml:"sort"`
	Slice       *SliceStep        `yaml:"slice"`
	Head        *int              `yaml:"head"`
	Tail        *int              `yaml:"tail"`
	Unique      *UniqueStep       `yaml:"unique"`
	Concat      []string          `yaml:"concat"`
	DropNulls   *[]string         `yaml:"drop_nulls"`
	Rename      map[string]string `yaml:"rename"`
	FrameAgg    string            `yaml:"frame_agg"`
}

// JoinStep joins the current frame with a source or pipeline
type JoinStep struct {
	With       string   `yaml:"with"`
	On         []string `yaml:"on"`
	LeftOn     []string `yaml:"left_on"`
	RightOn    []string `yaml:"right_on"`
	How        string   `yaml:"how"`
	Suffix     string   `yaml:"suffix"`
	NullsEqual bool     `yaml:"nulls_equal"`
}

// SortStep sorts by one or more keys
type SortStep struct {
	By         []string `yaml:"by"`
	Descending bool     `yaml:"descending"`
	NullsLast  bool     `yaml:"nulls_last"`
}

// SliceStep keeps Length rows from Offset; a negative Offset counts from the end.
type SliceStep struct {
	Offset int `yaml:"offset"`
	Length int `yaml:"length"`
}

// UniqueStep removes duplicate rows
type UniqueStep struct {
	Subset []string `yaml:"subset"`
	Keep   string   `yaml:"keep"`
}

// Load reads and validates the job file at path
func Load(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read job file: %w", err)
	}
	j, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	j.BaseDir = filepath.Dir(path)
	return j, nil
}

// Parse decodes and validates a job. Unknown keys are rejected.
func Parse(data []byte) (*Job, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var j Job
	if err := dec.Decode(&j); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty job")
		}
		return nil, fmt.Errorf("failed to parse job: %w", err)
	}
	if err := j.Validate(); err != nil {
		return nil, err
	}
	return &j, nil
}

// Validate checks names, references and step shapes. Expressions are
// checked when the job is compiled.
func (j *Job) Validate() error {
	if len(j.Pipelines) == 0 {
		return fmt.Errorf("job has no pipelines")
	}
	for name, src := range j.Sources {
		if name == "" {
			return fmt.Errorf("source with an empty name")
		}
		if src.Path == "" {
			return fmt.Errorf("source %q has no path", name)
		}
	}

	seen := make(map[string]bool, len(j.Pipelines))
	for i, p := range j.Pipelines {
		if p.Name == "" {
			return fmt.Errorf("pipeline %d has no name", i+1)
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate pipeline %q", p.Name)
		}
		if _, ok := j.Sources[p.Name]; ok {
			return fmt.Errorf("pipeline %q shadows a source of the same name", p.Name)
		}
		seen[p.Name] = true
	}

	for _, p := range j.Pipelines {
		if err := j.checkRef(p.From); err != nil {
			return fmt.Errorf("pipeline %q: from: %w", p.Name, err)
		}
		for i, s := range p.Steps {
			if err := j.validateStep(s); err != nil {
				return fmt.Errorf("pipeline %q step %d: %w", p.Name, i+1, err)
			}
		}
	}
	return nil
}

func (j *Job) checkRef(name string) error {
	if name == "" {
		return fmt.Errorf("missing input name")
	}
	if _, ok := j.Sources[name]; ok {
		return nil
	}
	for _, p := range j.Pipelines {
		if p.Name == name {
			return nil
		}
	}
	return fmt.Errorf("unknown source or pipeline %q", name)
}

func (j *Job) validateStep(s Step) error {
	ops := s.operations()
	switch len(ops) {
	case 0:
		return fmt.Errorf("empty step")
	case 1:
	default:
		return fmt.Errorf("step sets more than one operation: %v", ops)
	}

	switch {
	case s.Join != nil:
		if err := j.checkRef(s.Join.With); err != nil {
			return fmt.Errorf("join: %w", err)
		}
	case s.Concat != nil:
		if len(s.Concat) == 0 {
			return fmt.Errorf("concat needs at least one input")
		}
		for _, name := range s.Concat {
			if err := j.checkRef(name); err != nil {
				return fmt.Errorf("concat: %w", err)
			}
		}
	case s.Sort != nil && len(s.Sort.By) == 0:
		return fmt.Errorf("sort needs at least one key")
	case s.GroupBy != nil && len(s.Agg) == 0:
		return fmt.Errorf("group_by needs agg")
	}
	return nil
}

// operations lists the operation names a step sets. group_by with agg
// counts once.
func (s Step) operations() []string {
	var ops []string
	add := func(set bool, name string) {
		if set {
			ops = append(ops, name)
		}
	}
	add(s.Select != nil, "select")
	add(s.Filter != "", "filter")
	add(s.WithColumns != nil, "with_columns")
	add(s.GroupBy != nil, "group_by")
	add(s.Agg != nil && s.GroupBy == nil, "agg")
	add(s.Join != nil, "join")
	add(s.Sort != nil, "sort")
	add(s.Slice != nil, "slice")
	add(s.Head != nil, "head")
	add(s.Tail != nil, "tail")
	add(s.Unique != nil, "unique")
	add(s.Concat != nil, "concat")
	add(s.DropNulls != nil, "drop_nulls")
	add(s.Rename != nil, "rename")
	add(s.FrameAgg != "", "frame_agg")
	return ops
}
