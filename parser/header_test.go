package parser

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halvorsen/sas7bdat/endian"
	"github.com/halvorsen/sas7bdat/format"
)

// buildHeaderBuf constructs a minimal, structurally valid SAS7BDAT header
// buffer: just the fixed 288-byte probe region, which is also long enough to
// serve as the "full" header ParseHeader re-reads once it learns the
// declared header length.
func buildHeaderBuf(uses64, little bool, pageSize, pageCount uint32) []byte {
	e := endian.GetLittleEndianEngine()
	if !little {
		e = endian.GetBigEndianEngine()
	}

	buf := make([]byte, minHeaderProbe)
	copy(buf[0:32], magic[:])

	align1 := 0
	if uses64 {
		buf[align1Offset] = 0x33
		buf[align2Offset] = 0x33
		align1 = 4
	}
	totalAlign := align1
	if uses64 {
		totalAlign += 4
	}

	if little {
		buf[endiannessOffset] = 0x01
	} else {
		buf[endiannessOffset] = 0x00
	}

	e.PutUint32(buf[headerSizeOffset+align1:headerSizeOffset+align1+4], uint32(minHeaderProbe))
	e.PutUint32(buf[pageSizeOffset+totalAlign:pageSizeOffset+totalAlign+4], pageSize)
	e.PutUint32(buf[pageCountOffset+totalAlign:pageCountOffset+totalAlign+4], pageCount)

	return buf
}

func TestParseHeader_GeometryAcrossWidthsAndEndianness(t *testing.T) {
	cases := []struct {
		name   string
		uses64 bool
		little bool
	}{
		{"32-bit little-endian", false, true},
		{"32-bit big-endian", false, false},
		{"64-bit little-endian", true, true},
		{"64-bit big-endian", true, false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			buf := buildHeaderBuf(tc.uses64, tc.little, 4096, 3)

			h, err := ParseHeader(bytes.NewReader(buf))
			require.NoError(t, err)

			wantWidth := format.Pointer32
			wantPointerLen := subheaderPointerLenX86
			wantPageHeader := pageBitOffsetX86 + 8
			if tc.uses64 {
				wantWidth = format.Pointer64
				wantPointerLen = subheaderPointerLenX64
				wantPageHeader = pageBitOffsetX64 + 8
			}
			assert.Equal(t, wantWidth, h.PointerWidth)
			assert.Equal(t, wantPointerLen, h.SubheaderPointerSize)
			assert.Equal(t, wantPageHeader, h.PageHeaderSize)

			wantEndianness := format.BigEndian
			if tc.little {
				wantEndianness = format.LittleEndian
			}
			assert.Equal(t, wantEndianness, h.Endianness)

			assert.Equal(t, uint32(4096), h.PageSize)
			assert.Equal(t, uint64(3), h.PageCount)
			assert.Equal(t, uint64(minHeaderProbe), h.DataOffset)
		})
	}
}

func TestParseHeader_BadMagic(t *testing.T) {
	buf := buildHeaderBuf(false, true, 4096, 1)
	buf[0] = 0xFF

	_, err := ParseHeader(bytes.NewReader(buf))
	assert.Error(t, err)
}

func TestParseHeader_HeaderLengthTooSmall(t *testing.T) {
	buf := buildHeaderBuf(false, true, 4096, 1)
	e := endian.GetLittleEndianEngine()
	e.PutUint32(buf[headerSizeOffset:headerSizeOffset+4], 32)

	_, err := ParseHeader(bytes.NewReader(buf))
	assert.Error(t, err)
}

func TestParseHeader_ZeroPageSize(t *testing.T) {
	buf := buildHeaderBuf(false, true, 0, 1)

	_, err := ParseHeader(bytes.NewReader(buf))
	assert.Error(t, err)
}

func TestParseHeader_ShortRead(t *testing.T) {
	buf := buildHeaderBuf(false, true, 4096, 1)

	_, err := ParseHeader(bytes.NewReader(buf[:100]))
	assert.Error(t, err)
}
