package cell

import "github.com/halvorsen/sas7bdat/dataset"

// MissingValue is the closed sum type behind a Missing cell: which flavor
// of "no value" the stored bit pattern represented.
type MissingValue interface {
	isMissingValue()
}

// SystemMissing is SAS's plain "." sentinel: no further context.
type SystemMissing struct{}

func (SystemMissing) isMissingValue() {}

// TaggedMissing is one of SAS's lettered special-missing values (.A-.Z),
// carrying the column's declared literal for that tag when known.
type TaggedMissing struct {
	Tag     rune
	Literal dataset.MissingLiteral
}

func (TaggedMissing) isMissingValue() {}

// RangeMissing is a value that fell inside a column's declared
// missing-value range rather than matching a single tagged letter.
type RangeMissing struct {
	Lower, Upper dataset.MissingLiteral
}

func (RangeMissing) isMissingValue() {}
