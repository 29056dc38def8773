package dataset

import (
	"strings"
	"time"

	"github.com/halvorsen/sas7bdat/format"
)

// Timestamps holds a dataset's creation and modification times, read from
// the header as SAS epoch seconds.
type Timestamps struct {
	Created  time.Time
	Modified time.Time
}

// Metadata is the full descriptor for a SAS7BDAT dataset: everything known
// about its shape and columns before any row has been read.
type Metadata struct {
	RowCount     uint64
	RowLength    uint32
	ColumnCount  uint32
	Version      format.Version
	Compression  format.Compression
	Endianness   format.Endianness
	PointerWidth format.PointerWidth
	Timestamps   Timestamps
	TableName    string
	FileLabel    string
	FileEncoding string
	Vendor       format.Vendor
	Variables    []Variable
	LabelSets    map[string]LabelSet
	ColumnList   []int16
}

// ColumnIndex returns the position of the named variable, matching on exact
// name or on the name with trailing space/NUL padding trimmed. It returns
// -1 if no variable matches.
func (m Metadata) ColumnIndex(name string) int {
	trimmed := strings.TrimRight(name, " \x00")
	for _, v := range m.Variables {
		if v.Name == name || strings.TrimRight(v.Name, " \x00") == trimmed {
			return int(v.Index)
		}
	}

	return -1
}

// Variable returns the descriptor for the named column.
func (m Metadata) Variable(name string) (Variable, bool) {
	idx := m.ColumnIndex(name)
	if idx < 0 {
		return Variable{}, false
	}

	return m.Variables[idx], true
}
