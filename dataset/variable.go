package dataset

import "github.com/halvorsen/sas7bdat/format"

// Format is a column's display/informat pairing: a name like "DATE9." or
// "$CHAR20.", optionally carrying a width and decimal-place count.
type Format struct {
	Name     string
	Width    *uint16
	Decimals *uint16
}

// Variable is one column's full descriptor, assembled from the column name,
// attributes, format, and label subheaders.
type Variable struct {
	Index         uint32
	Name          string
	Label         string
	Format        *Format
	Kind          format.VariableKind
	NumericKind   format.NumericKind
	Offset        uint64
	StorageWidth  int
	Missing       MissingPolicy
	Measure       format.Measure
	Alignment     format.Alignment
	DisplayWidth  *uint16
	Decimals      *uint16
	ValueLabelRef string // key in Metadata.LabelSets of the label set matched to this column's format
}
