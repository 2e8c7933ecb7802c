package output

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/lazytab/frame"
)

func TestCSVFormatterFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewCSVFormatter(&buf).Format(sampleTable(t)))

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"id", "name", "score", "ok", "day", "at"},
		{"3", "'=SUM(A1)", "1.5", "true", "2024-01-15", "2024-03-05 14:07:09.123456"},
		{"1", "plain", "", "false", "", ""},
		{"", "", "-2.25", "", "1969-12-31", "2001-02-03 04:05:06"},
	}, records)
}

func TestCSVFormatterNullText(t *testing.T) {
	var buf bytes.Buffer
	f := NewCSVFormatter(&buf)
	f.NullText = "NA"
	tbl := frame.MustTable(frame.FromInt64s("a", []int64{1, 0}, []bool{true, false}))
	require.NoError(t, f.Format(tbl))
	assert.Equal(t, "a\n1\nNA\n", buf.String())
}

func TestCSVFormatterEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewCSVFormatter(&buf).Format(frame.EmptyTable(nil)))
	assert.Empty(t, buf.String())

	buf.Reset()
	require.NoError(t, NewCSVFormatter(&buf).Format(frame.EmptyTable(frame.Schema{{Name: "x", Type: frame.Int64}})))
	assert.Equal(t, "x\n", buf.String())
}

func TestCSVFormatterSpecialCharacters(t *testing.T) {
	tbl := frame.MustTable(
		frame.FromStrings("name", []string{"Alice, Bob"}, nil),
		frame.FromStrings("quote", []string{`He said "hello"`}, nil),
		frame.FromStrings("newline", []string{"line1\nline2"}, nil),
	)
	var buf bytes.Buffer
	require.NoError(t, NewCSVFormatter(&buf).Format(tbl))

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice, Bob", `He said "hello"`, "line1\nline2"}, records[1])
}

func TestSanitizeCell(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"plain", "plain"},
		{"=1+2", "'=1+2"},
		{"+cmd", "'+cmd"},
		{"-5", "'-5"},
		{"@SUM(A1)", "'@SUM(A1)"},
		{"|pipe", "'|pipe"},
		{"\tTab", "'\tTab"},
		{"=it's", "'=it''s"},
		{"a=b", "a=b"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeCell(tt.in))
		})
	}
}

func TestSetOutput(t *testing.T) {
	tbl := frame.MustTable(frame.FromInt64s("a", []int64{1}, nil))
	var first, second bytes.Buffer

	for _, f := range []Formatter{NewCSVFormatter(&first), NewJSONFormatter(&first), NewTableFormatter(&first)} {
		first.Reset()
		second.Reset()
		f.SetOutput(&second)
		require.NoError(t, f.Format(tbl))
		assert.Empty(t, first.String())
		assert.NotEmpty(t, second.String())
	}
}
