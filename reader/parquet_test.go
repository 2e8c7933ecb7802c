package reader

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/lazytab/frame"
	"github.com/vegasq/lazytab/query"
)

type person struct {
	ID    int64    `parquet:"id"`
	Name  string   `parquet:"name"`
	Score *float64 `parquet:"score,optional"`
	Age   int32    `parquet:"age"`
	OK    bool     `parquet:"ok"`
}

func people() []person {
	f := func(x float64) *float64 { return &x }
	return []person{
		{ID: 1, Name: "ann", Score: f(9.5), Age: 31, OK: true},
		{ID: 2, Name: "ben", Score: nil, Age: 42, OK: false},
		{ID: 3, Name: "cid", Score: f(7), Age: 27, OK: true},
	}
}

func TestParquetSourceSingleFile(t *testing.T) {
	path := writeParquet(t, "people.parquet", people())
	src := NewParquetSource(path)

	schema, err := src.Schema()
	require.NoError(t, err)
	assert.Equal(t, frame.Schema{
		{Name: "id", Type: frame.Int64},
		{Name: "name", Type: frame.Utf8},
		{Name: "score", Type: frame.Float64},
		{Name: "age", Type: frame.Int64},
		{Name: "ok", Type: frame.Boolean},
	}, schema)

	tbl, err := src.Read()
	require.NoError(t, err)
	assert.Equal(t, schema, tbl.Schema())
	assert.Equal(t, 3, tbl.NumRows())

	score, err := tbl.Column("score")
	require.NoError(t, err)
	assert.Equal(t, []frame.Value{frame.Float(9.5), frame.Null(frame.Float64), frame.Float(7)}, score.Values())

	age, err := tbl.Column("age")
	require.NoError(t, err)
	assert.Equal(t, []frame.Value{frame.Int(31), frame.Int(42), frame.Int(27)}, age.Values())

	assert.Equal(t, "parquet "+path, src.String())
}

func TestParquetSourceGlob(t *testing.T) {
	dir := t.TempDir()
	all := people()
	for i, name := range []string{"part-0.parquet", "part-1.parquet", "part-2.parquet"} {
		writeParquetAt(t, filepath.Join(dir, name), all[i:i+1])
	}
	writeParquetAt(t, filepath.Join(dir, "other.parquet"), all)

	src := NewParquetSource(filepath.Join(dir, "part-*.parquet"))
	schema, err := src.Schema()
	require.NoError(t, err)
	assert.Equal(t, FileColumn, schema[len(schema)-1].Name)

	tbl, err := src.Read()
	require.NoError(t, err)
	assert.Equal(t, schema, tbl.Schema())
	assert.Equal(t, 3, tbl.NumRows())

	files, err := tbl.Column(FileColumn)
	require.NoError(t, err)
	assert.Equal(t, []frame.Value{
		frame.Str(filepath.Join(dir, "part-0.parquet")),
		frame.Str(filepath.Join(dir, "part-1.parquet")),
		frame.Str(filepath.Join(dir, "part-2.parquet")),
	}, files.Values())
}

func TestParquetSourceErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		pattern string
		want    string
	}{
		{"no matches", filepath.Join(dir, "*.parquet"), "no files match pattern"},
		{"bad glob", filepath.Join(dir, "[.parquet"), "invalid glob pattern"},
		{"missing file", filepath.Join(dir, "missing.parquet"), "failed to open file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := NewParquetSource(tt.pattern)
			_, err := src.Schema()
			assert.ErrorContains(t, err, tt.want)
			_, err = src.Read()
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestParquetSourceRejectsNested(t *testing.T) {
	type row struct {
		ID   int64    `parquet:"id"`
		Tags []string `parquet:"tags"`
	}
	path := writeParquet(t, "nested.parquet", []row{{ID: 1, Tags: []string{"a"}}})

	_, err := NewParquetSource(path).Schema()
	assert.ErrorIs(t, err, frame.ErrTypeMismatch)
}

func TestParquetSourceOverHTTP(t *testing.T) {
	dir := t.TempDir()
	writeParquetAt(t, filepath.Join(dir, "people.parquet"), people())
	srv := httptest.NewServer(http.FileServer(http.Dir(dir)))
	defer srv.Close()

	src := NewParquetSource(srv.URL + "/people.parquet")
	tbl, err := src.Read()
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.NumRows())

	names, err := tbl.Column("name")
	require.NoError(t, err)
	assert.Equal(t, []frame.Value{frame.Str("ann"), frame.Str("ben"), frame.Str("cid")}, names.Values())
}

func TestParquetSourceInPlan(t *testing.T) {
	path := writeParquet(t, "people.parquet", people())

	got, err := query.Scan(NewParquetSource(path)).
		Filter(query.IsNotNull(query.Col("score"))).
		Select(query.Col("name"), query.Col("score")).
		Collect()
	require.NoError(t, err)
	assert.Equal(t, 2, got.NumRows())
	assert.Equal(t, []string{"name", "score"}, got.ColumnNames())
}

func TestReaderCloseTwice(t *testing.T) {
	path := writeParquet(t, "people.parquet", people())
	r, err := NewReader(path)
	require.NoError(t, err)
	assert.Equal(t, int64(3), r.NumRows())
	assert.NoError(t, r.Close())
	assert.NoError(t, r.Close())
}
