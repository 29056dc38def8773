// Package sink defines destinations a decoded dataset's rows can be
// streamed into, and provides a delimited-text implementation.
package sink

import (
	"github.com/halvorsen/sas7bdat/cell"
	"github.com/halvorsen/sas7bdat/dataset"
)

// Context describes the shape of the rows a sink is about to receive: the
// full dataset metadata, and the (possibly projected) column descriptors
// that each row's values line up with.
type Context struct {
	Metadata dataset.Metadata
	Columns  []dataset.Variable
}

// RowSink consumes a decoded dataset one row at a time. Begin is called
// once before the first WriteRow, and Close once after the last. A stream
// that stops on an error (from Begin, WriteRow or the row source) returns
// that error without calling Close.
type RowSink interface {
	Begin(ctx Context) error
	WriteRow(values []cell.Value) error
	Close() error
}
