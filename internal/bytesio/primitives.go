// Package bytesio provides bounded, endian-aware primitive readers for the
// fixed-width integer and floating point fields that make up a SAS7BDAT or
// SAS7BCAT page.
//
// Every reader takes a slice whose length equals the value's size; passing a
// shorter slice is a programmer error and panics, exactly as
// encoding/binary.ByteOrder does. Callers are expected to have already
// bounds-checked the page against the subheader/row layout before reaching
// into it.
package bytesio

import (
	"math"

	"github.com/halvorsen/sas7bdat/endian"
)

// U16 reads an unsigned 16-bit integer from b[:2].
func U16(e endian.EndianEngine, b []byte) uint16 { return e.Uint16(b) }

// U32 reads an unsigned 32-bit integer from b[:4].
func U32(e endian.EndianEngine, b []byte) uint32 { return e.Uint32(b) }

// U64 reads an unsigned 64-bit integer from b[:8].
func U64(e endian.EndianEngine, b []byte) uint64 { return e.Uint64(b) }

// I16 reads a signed 16-bit integer from b[:2].
func I16(e endian.EndianEngine, b []byte) int16 { return int16(e.Uint16(b)) }

// F64 reads an IEEE-754 double from b[:8].
func F64(e endian.EndianEngine, b []byte) float64 {
	return math.Float64frombits(e.Uint64(b))
}

// PaddedBits returns the 8-byte-padded bit pattern for a SAS numeric cell
// of width 1..8 bytes. SAS stores short numerics as the high-order bytes of
// a full 8-byte double with the remaining low-order bytes implicitly zero;
// which end is "high order" depends on endianness, so the caller-supplied
// slice is left-padded (little-endian) or right-padded (big-endian) with
// zero bytes to reach 8 before being reinterpreted.
//
// width must be in [1, 8]; a width of 8 just reads the 8 bytes directly.
func PaddedBits(e endian.EndianEngine, b []byte, width int) uint64 {
	if width == 8 {
		return e.Uint64(b)
	}

	var buf [8]byte
	if e == endian.GetBigEndianEngine() {
		copy(buf[:width], b[:width])
	} else {
		copy(buf[8-width:], b[:width])
	}

	return e.Uint64(buf[:])
}

// F64FromShort reads a SAS numeric cell of width 1..8 bytes as an
// IEEE-754 double, via PaddedBits.
func F64FromShort(e endian.EndianEngine, b []byte, width int) float64 {
	return math.Float64frombits(PaddedBits(e, b, width))
}
