package sink

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/halvorsen/sas7bdat/cell"
	"github.com/klauspost/compress/gzip"
)

const dateLayout = "2006-01-02"
const dateTimeLayout = "2006-01-02T15:04:05"

// CsvSink writes decoded rows as delimited text. Missing cells are written
// as empty fields. Wrap the destination writer in gzip.NewWriter (or use
// NewGzipCsvSink) to produce a compressed export.
type CsvSink struct {
	dst          io.Writer
	w            *csv.Writer
	delimiter    rune
	writeHeaders bool
	columnCount  int
	record       []string
}

// NewCsvSink builds a CsvSink writing comma-delimited text, with a header
// row, to dst.
func NewCsvSink(dst io.Writer) *CsvSink {
	return &CsvSink{dst: dst, writeHeaders: true}
}

// WithDelimiter sets the field delimiter (',' by default; '\t' for TSV).
func (s *CsvSink) WithDelimiter(r rune) *CsvSink {
	s.delimiter = r
	return s
}

// WithHeaders controls whether a header row of column names is written
// before the first data row.
func (s *CsvSink) WithHeaders(write bool) *CsvSink {
	s.writeHeaders = write
	return s
}

func (s *CsvSink) Begin(ctx Context) error {
	s.w = csv.NewWriter(s.dst)
	if s.delimiter != 0 {
		s.w.Comma = s.delimiter
	}

	s.columnCount = len(ctx.Columns)
	s.record = make([]string, s.columnCount)

	if !s.writeHeaders {
		return nil
	}

	header := make([]string, s.columnCount)
	for i, col := range ctx.Columns {
		header[i] = col.Name
	}

	return s.w.Write(header)
}

func (s *CsvSink) WriteRow(values []cell.Value) error {
	if len(values) != s.columnCount {
		return fmt.Errorf("sink: row has %d values, expected %d", len(values), s.columnCount)
	}

	for i, v := range values {
		field, err := encodeCsvValue(v)
		if err != nil {
			return err
		}
		s.record[i] = field
	}

	return s.w.Write(s.record)
}

func (s *CsvSink) Close() error {
	s.w.Flush()
	return s.w.Error()
}

func encodeCsvValue(v cell.Value) (string, error) {
	switch t := v.(type) {
	case cell.Float:
		return strconv.FormatFloat(float64(t), 'g', -1, 64), nil
	case cell.Int32:
		return strconv.FormatInt(int64(t), 10), nil
	case cell.Int64:
		return strconv.FormatInt(int64(t), 10), nil
	case cell.NumericString:
		return string(t), nil
	case cell.Str:
		return string(t), nil
	case cell.Bytes:
		return string(t), nil
	case cell.Date:
		return time.Time(t).Format(dateLayout), nil
	case cell.DateTime:
		return time.Time(t).Format(dateTimeLayout), nil
	case cell.Time:
		return time.Duration(t).String(), nil
	case cell.Missing:
		return "", nil
	default:
		return "", fmt.Errorf("sink: unhandled cell value type %T", v)
	}
}

// GzipCsvSink wraps a CsvSink so its output is gzip-compressed as it's
// written. Close flushes and closes both the CSV writer and the gzip
// stream.
type GzipCsvSink struct {
	*CsvSink
	gz *gzip.Writer
}

// NewGzipCsvSink builds a CsvSink whose output is gzip-compressed before
// reaching dst.
func NewGzipCsvSink(dst io.Writer) *GzipCsvSink {
	gz := gzip.NewWriter(dst)
	return &GzipCsvSink{CsvSink: NewCsvSink(gz), gz: gz}
}

func (s *GzipCsvSink) Close() error {
	if err := s.CsvSink.Close(); err != nil {
		return err
	}

	return s.gz.Close()
}
