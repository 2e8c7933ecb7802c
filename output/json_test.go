package output

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vegasq/lazytab/frame"
)

func TestJSONFormatterFormat(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter(&buf).Format(sampleTable(t)))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t,
		`{"id":3,"name":"=SUM(A1)","score":1.5,"ok":true,"day":"2024-01-15","at":"2024-03-05T14:07:09.123456Z"}`,
		lines[0])
	assert.Equal(t,
		`{"id":1,"name":"plain","score":null,"ok":false,"day":null,"at":null}`,
		lines[1])
	assert.Equal(t,
		`{"id":null,"name":null,"score":-2.25,"ok":null,"day":"1969-12-31","at":"2001-02-03T04:05:06Z"}`,
		lines[2])

	for _, line := range lines {
		assert.True(t, json.Valid([]byte(line)), line)
	}
}

func TestJSONFormatterSpecialValues(t *testing.T) {
	tbl := frame.MustTable(
		frame.FromFloat64s("f", []float64{math.NaN(), math.Inf(1), 0.1}, nil),
		frame.FromStrings(`we"ird`, []string{"a\nb", "<tag>", "ü"}, nil),
	)
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter(&buf).Format(tbl))

	var rows []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var row map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &row))
		rows = append(rows, row)
	}
	require.Len(t, rows, 3)
	assert.Nil(t, rows[0]["f"])
	assert.Nil(t, rows[1]["f"])
	assert.Equal(t, 0.1, rows[2]["f"])
	assert.Equal(t, "a\nb", rows[0][`we"ird`])
	assert.Equal(t, "<tag>", rows[1][`we"ird`])
	assert.Equal(t, "ü", rows[2][`we"ird`])
}

func TestJSONFormatterEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter(&buf).Format(frame.EmptyTable(frame.Schema{{Name: "a", Type: frame.Int64}})))
	assert.Empty(t, buf.String())
}
