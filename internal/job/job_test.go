package job

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/lazytab/arrowio"
	"github.com/vegasq/lazytab/frame"
	"github.com/vegasq/lazytab/query"
	"github.com/vegasq/lazytab/reader"
)

const ordersCSV = `order_id,product,qty
1,tea,2
2,cup,1
3,tea,5
4,pot,1
5,cup,3
`

const productsCSV = `product,category
tea,drink
cup,ware
pot,ware
`

const productCSV = `product,unit_price,unit_cost
widget,4.0,2.5
gadget,10,
doohickey,,1.0
gizmo,8,6
`

// writeJob writes the job and its data files into a fresh directory
func writeJob(t *testing.T, job string) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"orders.csv":   ordersCSV,
		"products.csv": productsCSV,
		"product.csv":  productCSV,
		"job.yaml":     job,
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return filepath.Join(dir, "job.yaml")
}

func TestRunMarginRate(t *testing.T) {
	path := writeJob(t, `
sources:
  product: {path: product.csv}
pipelines:
  - name: margin_rate
    from: product
    steps:
      - drop_nulls: []
      - select: ["cast(unit_price - unit_cost AS float64) / unit_price AS rate"]
      - frame_agg: mean
`)
	j, err := Load(path)
	require.NoError(t, err)

	var out bytes.Buffer
	results, err := Run(context.Background(), j, RunOptions{Stdout: &out})
	require.NoError(t, err)
	require.Len(t, results, 1)

	v, err := results[0].Table.Value("rate", 0)
	require.NoError(t, err)
	rate, ok := v.AsFloat64()
	require.True(t, ok)
	assert.InDelta(t, 0.3125, rate, 1e-9)

	assert.True(t, strings.HasPrefix(out.String(), "margin_rate\n"))
	assert.Contains(t, out.String(), "shape: (1, 1)")
}

func TestRunJoinGroupSort(t *testing.T) {
	path := writeJob(t, `
sources:
  orders: {path: orders.csv}
  products: {path: products.csv, types: {product: str}}
pipelines:
  - name: by_category
    from: orders
    steps:
      - join: {with: products, on: [product]}
      - group_by: [category]
        agg: ["sum(qty) AS total", "count() AS n"]
      - sort: {by: ["total desc"]}
    output: {path: out/by_category.csv}
  - name: big
    from: by_category
    steps:
      - filter: total > 6
    output: {skip: true}
  - name: doubled
    from: orders
    steps:
      - concat: [orders]
      - unique: {subset: [product], keep: last}
      - rename: {qty: quantity}
      - with_columns: ["quantity * 10 AS scaled"]
      - sort: {by: [order_id]}
    output: {format: json}
`)
	require.NoError(t, os.Mkdir(filepath.Join(filepath.Dir(path), "out"), 0o755))
	j, err := Load(path)
	require.NoError(t, err)

	var out bytes.Buffer
	results, err := Run(context.Background(), j, RunOptions{Stdout: &out, Format: "csv"})
	require.NoError(t, err)
	require.Len(t, results, 3)

	written := filepath.Join(filepath.Dir(path), "out", "by_category.csv")
	assert.Equal(t, written, results[0].Path)
	data, err := os.ReadFile(written)
	require.NoError(t, err)
	assert.Equal(t, "category,total,n\ndrink,7,2\nware,5,3\n", string(data))

	assert.Equal(t, 1, results[1].Table.NumRows())
	assert.Empty(t, results[1].Path)

	assert.Equal(t,
		`{"order_id":3,"product":"tea","quantity":5,"scaled":50}`+"\n"+
			`{"order_id":4,"product":"pot","quantity":1,"scaled":10}`+"\n"+
			`{"order_id":5,"product":"cup","quantity":3,"scaled":30}`+"\n",
		out.String())
}

func TestRunFailureNamesPipeline(t *testing.T) {
	path := writeJob(t, `
sources:
  orders: {path: orders.csv}
pipelines:
  - name: fine
    from: orders
  - name: broken
    from: orders
    steps:
      - select: [ghost]
`)
	j, err := Load(path)
	require.NoError(t, err)

	var out bytes.Buffer
	_, err = Run(context.Background(), j, RunOptions{Stdout: &out})
	assert.ErrorIs(t, err, frame.ErrUnknownColumn)
	assert.ErrorContains(t, err, `pipeline "broken"`)
	assert.Empty(t, out.String(), "nothing is written when a pipeline fails")
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		job  string
		want string
	}{
		{"empty", "", "empty job"},
		{"no pipelines", "sources: {a: {path: a.csv}}", "no pipelines"},
		{"unknown key", "pipelines: [{name: p, from: a, stepz: []}]", "failed to parse job"},
		{"source without path", "sources: {a: {}}\npipelines: [{name: p, from: a}]", `source "a" has no path`},
		{"unnamed pipeline", "sources: {a: {path: a.csv}}\npipelines: [{from: a}]", "pipeline 1 has no name"},
		{"duplicate pipeline", "sources: {a: {path: a.csv}}\npipelines: [{name: p, from: a}, {name: p, from: a}]", `duplicate pipeline "p"`},
		{"shadowed source", "sources: {a: {path: a.csv}}\npipelines: [{name: a, from: a}]", "shadows a source"},
		{"unknown input", "pipelines: [{name: p, from: nowhere}]", `unknown source or pipeline "nowhere"`},
		{"empty step", "sources: {a: {path: a.csv}}\npipelines: [{name: p, from: a, steps: [{}]}]", "empty step"},
		{"two operations", "sources: {a: {path: a.csv}}\npipelines: [{name: p, from: a, steps: [{head: 1, filter: x}]}]", "more than one operation"},
		{"group_by without agg", "sources: {a: {path: a.csv}}\npipelines: [{name: p, from: a, steps: [{group_by: [x]}]}]", "group_by needs agg"},
		{"sort without keys", "sources: {a: {path: a.csv}}\npipelines: [{name: p, from: a, steps: [{sort: {}}]}]", "sort needs at least one key"},
		{"join unknown input", "sources: {a: {path: a.csv}}\npipelines: [{name: p, from: a, steps: [{join: {with: b, on: [x]}}]}]", "join: unknown source"},
		{"empty concat", "sources: {a: {path: a.csv}}\npipelines: [{name: p, from: a, steps: [{concat: []}]}]", "concat needs at least one input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.job))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		job  string
		want error
	}{
		{"cycle", "pipelines: [{name: a, from: b}, {name: b, from: a}]", query.ErrInvalidPlan},
		{"bad expression", "sources: {s: {path: s.csv}}\npipelines: [{name: p, from: s, steps: [{filter: 'nope('}]}]", nil},
		{"bad aggregate", "sources: {s: {path: s.csv}}\npipelines: [{name: p, from: s, steps: [{frame_agg: mode}]}]", query.ErrInvalidPlan},
		{"bad join type", "sources: {s: {path: s.csv}}\npipelines: [{name: p, from: s, steps: [{join: {with: s, on: [x], how: outer}}]}]", query.ErrInvalidJoin},
		{"bad keep", "sources: {s: {path: s.csv}}\npipelines: [{name: p, from: s, steps: [{unique: {keep: any}}]}]", query.ErrInvalidPlan},
		{"bad source format", "sources: {s: {path: s.xlsx}}\npipelines: [{name: p, from: s}]", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, err := Parse([]byte(tt.job))
			require.NoError(t, err)
			_, err = j.Compile()
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestCompilePipelineSharesSources(t *testing.T) {
	j, err := Parse([]byte(`
sources:
  s: {path: data.parquet}
pipelines:
  - {name: a, from: s, steps: [{head: 2}]}
  - {name: b, from: a, steps: [{tail: 1}]}
`))
	require.NoError(t, err)

	lf, err := j.CompilePipeline("b")
	require.NoError(t, err)
	explain := lf.Explain()
	assert.Contains(t, explain, "SCAN parquet data.parquet")
	assert.Equal(t, 2, strings.Count(explain, "SLICE"))

	_, err = j.CompilePipeline("missing")
	assert.ErrorContains(t, err, "unknown pipeline")
}

func TestOpenSource(t *testing.T) {
	tests := []struct {
		name string
		spec SourceSpec
		want any
	}{
		{"csv by extension", SourceSpec{Path: "a.csv"}, &reader.CSVSource{}},
		{"compressed csv", SourceSpec{Path: "a.csv.gz"}, &reader.CSVSource{}},
		{"tsv", SourceSpec{Path: "a.tsv"}, &reader.CSVSource{}},
		{"explicit csv", SourceSpec{Path: "a.data", Format: "CSV"}, &reader.CSVSource{}},
		{"parquet glob", SourceSpec{Path: "logs/*.parquet"}, &reader.ParquetSource{}},
		{"arrow", SourceSpec{Path: "a.arrows"}, &arrowio.IPCSource{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, err := OpenSource(tt.spec, "base")
			require.NoError(t, err)
			assert.IsType(t, tt.want, src)
		})
	}

	src, err := OpenSource(SourceSpec{Path: "https://example.com/a.parquet"}, "base")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a.parquet", src.(*reader.ParquetSource).Pattern)

	src, err = OpenSource(SourceSpec{Path: "a.tsv"}, "base")
	require.NoError(t, err)
	csv := src.(*reader.CSVSource)
	assert.Equal(t, filepath.Join("base", "a.tsv"), csv.Path)
	assert.Equal(t, '\t', csv.Options.Delimiter)

	_, err = OpenSource(SourceSpec{Path: "a.bin"}, "")
	assert.ErrorContains(t, err, "cannot infer the format")
	_, err = OpenSource(SourceSpec{Path: "a.bin", Format: "xml"}, "")
	assert.ErrorContains(t, err, "unsupported source format")
}

func TestCSVOptions(t *testing.T) {
	opts, err := SourceSpec{Delimiter: ";", NullValues: []string{"NA"}, Types: map[string]string{"zip": "str"}}.csvOptions("csv")
	require.NoError(t, err)
	assert.Equal(t, ';', opts.Delimiter)
	assert.Equal(t, frame.Utf8, opts.Types["zip"])

	opts, err = SourceSpec{Delimiter: `\t`}.csvOptions("csv")
	require.NoError(t, err)
	assert.Equal(t, '\t', opts.Delimiter)

	_, err = SourceSpec{Delimiter: ";;"}.csvOptions("csv")
	assert.ErrorContains(t, err, "single character")
	_, err = SourceSpec{Types: map[string]string{"a": "decimal"}}.csvOptions("csv")
	assert.ErrorContains(t, err, `column "a"`)
}

func TestRunOutputFormats(t *testing.T) {
	path := writeJob(t, `
sources:
  orders: {path: orders.csv}
pipelines:
  - name: as_parquet
    from: orders
    output: {path: orders.parquet, compression: zstd}
  - name: as_table
    from: orders
    output: {limit: 2}
`)
	j, err := Load(path)
	require.NoError(t, err)

	var out bytes.Buffer
	results, err := Run(context.Background(), j, RunOptions{Stdout: &out, Limit: 10})
	require.NoError(t, err)

	got, err := reader.NewParquetSource(results[0].Path).Read()
	require.NoError(t, err)
	assert.True(t, results[0].Table.Equal(got))
	assert.Contains(t, out.String(), "showing first 2 rows")

	j.Pipelines[0].Output = OutputSpec{Path: "orders.xlsx"}
	_, err = Run(context.Background(), j, RunOptions{Stdout: &out})
	assert.ErrorContains(t, err, "cannot infer output format")
}
