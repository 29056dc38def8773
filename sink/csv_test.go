package sink

import (
	"bytes"
	"compress/gzip"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halvorsen/sas7bdat/cell"
	"github.com/halvorsen/sas7bdat/dataset"
)

func driveCsvSink(t *testing.T, s RowSink, ctx Context, rows [][]cell.Value) {
	t.Helper()

	require.NoError(t, s.Begin(ctx))
	for _, row := range rows {
		require.NoError(t, s.WriteRow(row))
	}
	require.NoError(t, s.Close())
}

func TestCsvSink_HeaderAndValues(t *testing.T) {
	var buf bytes.Buffer
	s := NewCsvSink(&buf)

	ctx := Context{Columns: []dataset.Variable{{Name: "Column1"}, {Name: "Column2"}}}
	rows := [][]cell.Value{
		{cell.Float(0.636), cell.Str("pear")},
		{cell.Missing{Value: cell.SystemMissing{}}, cell.Str("")},
	}

	driveCsvSink(t, s, ctx, rows)

	assert.Equal(t, "Column1,Column2\n0.636,pear\n,\n", buf.String())
}

func TestCsvSink_WithoutHeaders(t *testing.T) {
	var buf bytes.Buffer
	s := NewCsvSink(&buf).WithHeaders(false)

	ctx := Context{Columns: []dataset.Variable{{Name: "A"}}}
	driveCsvSink(t, s, ctx, [][]cell.Value{{cell.Int32(7)}})

	assert.Equal(t, "7\n", buf.String())
}

func TestCsvSink_CustomDelimiter(t *testing.T) {
	var buf bytes.Buffer
	s := NewCsvSink(&buf).WithDelimiter('\t')

	ctx := Context{Columns: []dataset.Variable{{Name: "A"}, {Name: "B"}}}
	driveCsvSink(t, s, ctx, [][]cell.Value{{cell.Int32(1), cell.Int32(2)}})

	assert.Equal(t, "A\tB\n1\t2\n", buf.String())
}

func TestCsvSink_WrongColumnCount(t *testing.T) {
	var buf bytes.Buffer
	s := NewCsvSink(&buf)
	require.NoError(t, s.Begin(Context{Columns: []dataset.Variable{{Name: "A"}, {Name: "B"}}}))

	err := s.WriteRow([]cell.Value{cell.Int32(1)})
	assert.Error(t, err)
}

func TestCsvSink_DateAndDateTime(t *testing.T) {
	var buf bytes.Buffer
	s := NewCsvSink(&buf).WithHeaders(false)

	ctx := Context{Columns: []dataset.Variable{{Name: "D"}, {Name: "DT"}}}
	d := cell.Date(time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC))
	dt := cell.DateTime(time.Date(2020, 1, 15, 13, 30, 0, 0, time.UTC))

	driveCsvSink(t, s, ctx, [][]cell.Value{{d, dt}})

	assert.Equal(t, "2020-01-15,2020-01-15T13:30:00\n", buf.String())
}

func TestGzipCsvSink_RoundTrips(t *testing.T) {
	var buf bytes.Buffer
	s := NewGzipCsvSink(&buf)

	ctx := Context{Columns: []dataset.Variable{{Name: "A"}}}
	driveCsvSink(t, s, ctx, [][]cell.Value{{cell.Str("x")}})

	gz, err := gzip.NewReader(&buf)
	require.NoError(t, err)
	defer gz.Close()

	out, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Equal(t, "A\nx\n", string(out))
}
