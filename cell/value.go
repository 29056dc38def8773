// Package cell defines the decoded value types a row produces: one Value
// per column, already converted from its SAS wire representation into a Go
// native type.
package cell

import "time"

// Value is a closed sum type over the possible decoded forms of a SAS cell.
// Go has no enum-with-payload construct, so the variants below each embed
// an unexported marker method; the only way to implement Value from outside
// this package is to hold one of these concrete types.
type Value interface {
	isValue()
}

// Float is a standard IEEE-754 double-precision numeric cell.
type Float float64

func (Float) isValue() {}

// Int32 is a numeric cell materialized as a 32-bit integer rather than a
// float: its format declares zero decimals and its integral value fits in
// 32 bits.
type Int32 int32

func (Int32) isValue() {}

// Int64 is a numeric cell materialized as a 64-bit integer.
type Int64 int64

func (Int64) isValue() {}

// NumericString preserves a numeric cell's original textual formatting
// (leading zeros, fixed decimal places) instead of rounding it through a
// float.
type NumericString string

func (NumericString) isValue() {}

// Str is a character cell decoded from the dataset's declared encoding into
// UTF-8.
type Str string

func (Str) isValue() {}

// Bytes is a character cell whose decoding into text was deferred; the
// caller gets the raw, padding-trimmed bytes instead.
type Bytes []byte

func (Bytes) isValue() {}

// DateTime is a SAS datetime cell: seconds since 1960-01-01T00:00:00Z.
type DateTime time.Time

func (DateTime) isValue() {}

// Date is a SAS date cell: whole days since 1960-01-01, materialized at
// midnight UTC.
type Date time.Time

func (Date) isValue() {}

// Time is a SAS time-of-day cell: a duration since midnight.
type Time time.Duration

func (Time) isValue() {}

// Missing is a cell whose stored bit pattern denotes absence rather than a
// usable value.
type Missing struct {
	Value MissingValue
}

func (Missing) isValue() {}
