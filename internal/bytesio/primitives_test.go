package bytesio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/halvorsen/sas7bdat/endian"
)

func TestU16(t *testing.T) {
	assert.Equal(t, uint16(0x0102), U16(endian.GetBigEndianEngine(), []byte{0x01, 0x02}))
	assert.Equal(t, uint16(0x0201), U16(endian.GetLittleEndianEngine(), []byte{0x01, 0x02}))
}

func TestU32(t *testing.T) {
	assert.Equal(t, uint32(0x01020304), U32(endian.GetBigEndianEngine(), []byte{0x01, 0x02, 0x03, 0x04}))
}

func TestI16_NegativeValue(t *testing.T) {
	// 0xFFFF as big-endian is -1.
	assert.Equal(t, int16(-1), I16(endian.GetBigEndianEngine(), []byte{0xFF, 0xFF}))
}

func TestF64(t *testing.T) {
	want := 3.14159
	bits := math.Float64bits(want)
	buf := make([]byte, 8)
	endian.GetBigEndianEngine().PutUint64(buf, bits)

	assert.InDelta(t, want, F64(endian.GetBigEndianEngine(), buf), 1e-12)
}

func TestPaddedBits_FullWidth(t *testing.T) {
	e := endian.GetBigEndianEngine()
	buf := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	assert.Equal(t, e.Uint64(buf), PaddedBits(e, buf, 8))
}

func TestPaddedBits_BigEndianLeftAligns(t *testing.T) {
	e := endian.GetBigEndianEngine()
	// 3-byte big-endian numeric occupies the high-order bytes; missing
	// low-order bytes are implicitly zero.
	got := PaddedBits(e, []byte{0x40, 0x09, 0x21}, 3)
	want := e.Uint64([]byte{0x40, 0x09, 0x21, 0, 0, 0, 0, 0})

	assert.Equal(t, want, got)
}

func TestPaddedBits_LittleEndianRightAligns(t *testing.T) {
	e := endian.GetLittleEndianEngine()
	got := PaddedBits(e, []byte{0x40, 0x09, 0x21}, 3)
	want := e.Uint64([]byte{0, 0, 0, 0, 0, 0x40, 0x09, 0x21})

	assert.Equal(t, want, got)
}

func TestF64FromShort_RoundTripsThroughPadding(t *testing.T) {
	e := endian.GetBigEndianEngine()
	full := make([]byte, 8)
	e.PutUint64(full, math.Float64bits(84.0))

	// A width-8 read should reproduce the exact double.
	assert.InDelta(t, 84.0, F64FromShort(e, full, 8), 1e-9)
}
