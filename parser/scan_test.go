package parser

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halvorsen/sas7bdat/endian"
	"github.com/halvorsen/sas7bdat/format"
	"github.com/halvorsen/sas7bdat/internal/textstore"
	"github.com/halvorsen/sas7bdat/page"
	"github.com/halvorsen/sas7bdat/subheader"
)

// The helpers below hand-assemble a 32-bit little-endian SAS7BDAT page the
// way section/numeric_header_test.go in this project's teacher repo builds
// its fixtures: plain byte-slice literals and PutUintNN calls, not a
// round-trip through an encoder this package doesn't have.

const (
	testPageHeaderSize  = pageBitOffsetX86 + 8
	testPointerSize     = subheaderPointerLenX86
	testColumnTextBase  = 6  // sigLen(4) + 2-byte remainder field
	testColumnNameBase  = 20 // entryBase(uses64=false) in package subheader
	testColumnAttrsBase = 20
	testRowSizeLen      = 200
)

func buildColumnTextPayload(e endian.EndianEngine, sig uint32, blob string) []byte {
	payload := make([]byte, testColumnTextBase+len(blob))
	e.PutUint32(payload[0:4], sig)
	copy(payload[testColumnTextBase:], blob)
	return payload
}

func buildColumnNamePayload32(e endian.EndianEngine, sig uint32, refs []textstore.Ref) []byte {
	total := testColumnNameBase + len(refs)*8
	payload := make([]byte, total)
	e.PutUint32(payload[0:4], sig)
	e.PutUint16(payload[4:6], uint16(total-8))

	cursor := 12
	for _, r := range refs {
		e.PutUint16(payload[cursor:cursor+2], r.BlobIndex)
		e.PutUint16(payload[cursor+2:cursor+4], r.Offset)
		e.PutUint16(payload[cursor+4:cursor+6], r.Length)
		cursor += 8
	}

	return payload
}

func buildColumnAttrsPayload32(e endian.EndianEngine, sig uint32, entries []subheader.ColumnAttrsEntry) []byte {
	const rowSize = 12
	total := testColumnAttrsBase + len(entries)*rowSize
	payload := make([]byte, total)
	e.PutUint32(payload[0:4], sig)
	e.PutUint16(payload[4:6], uint16(total-8))

	cursor := 12
	for _, ent := range entries {
		e.PutUint32(payload[cursor:cursor+4], uint32(ent.Offset))
		e.PutUint32(payload[cursor+4:cursor+8], ent.Width)
		typeCode := byte(1)
		if ent.Kind == format.Character {
			typeCode = 2
		}
		payload[cursor+10] = typeCode
		cursor += rowSize
	}

	return payload
}

func buildRowSizePayload32(e endian.EndianEngine, sig uint32, rowLength, totalRows, rowsPerPage uint32, labelRef, compRef textstore.Ref) []byte {
	payload := make([]byte, testRowSizeLen)
	e.PutUint32(payload[0:4], sig)
	e.PutUint32(payload[20:24], rowLength)
	e.PutUint32(payload[24:28], totalRows)
	e.PutUint32(payload[60:64], rowsPerPage)

	labelOffset := testRowSizeLen - 130
	compOffset := testRowSizeLen - 118
	putRef := func(at int, r textstore.Ref) {
		e.PutUint16(payload[at:at+2], r.BlobIndex)
		e.PutUint16(payload[at+2:at+4], r.Offset)
		e.PutUint16(payload[at+4:at+6], r.Length)
	}
	putRef(labelOffset, labelRef)
	putRef(compOffset, compRef)

	return payload
}

type subheaderSpec struct {
	payload     []byte
	compression byte
}

// buildPage32 assembles one 32-bit page: its header, subheader pointer
// table, subheader bodies (in order), and trailing row bytes, the way a Mix
// or Data page packs them per spec.md's page layout.
func buildPage32(e endian.EndianEngine, rawType uint16, specs []subheaderSpec, rows [][]byte, pageSize int) []byte {
	buf := make([]byte, pageSize)
	bitOffset := testPageHeaderSize - 8
	e.PutUint16(buf[bitOffset:bitOffset+2], rawType)
	e.PutUint16(buf[bitOffset+2:bitOffset+4], 1)
	e.PutUint16(buf[bitOffset+4:bitOffset+6], uint16(len(specs)))

	cursor := testPageHeaderSize + len(specs)*testPointerSize
	offsets := make([]int, len(specs))
	for i, s := range specs {
		offsets[i] = cursor
		copy(buf[cursor:cursor+len(s.payload)], s.payload)
		cursor += len(s.payload)
	}

	ptrCursor := testPageHeaderSize
	lastEnd := testPageHeaderSize + len(specs)*testPointerSize
	for i, s := range specs {
		e.PutUint32(buf[ptrCursor:ptrCursor+4], uint32(offsets[i]))
		e.PutUint32(buf[ptrCursor+4:ptrCursor+8], uint32(len(s.payload)))
		buf[ptrCursor+8] = s.compression
		ptrCursor += testPointerSize
		if s.compression != page.PointerCompressionTruncated && s.compression != page.PointerCompressionCompressed {
			if end := offsets[i] + len(s.payload); end > lastEnd {
				lastEnd = end
			}
		}
	}

	dataStart := lastEnd
	if rem := dataStart % 8; rem != 0 {
		dataStart += 8 - rem
	}

	rowCursor := dataStart
	for _, row := range rows {
		copy(buf[rowCursor:rowCursor+len(row)], row)
		rowCursor += len(row)
	}

	return buf
}

func metadataSubheaders(e endian.EndianEngine) []subheaderSpec {
	textBlob := buildColumnTextPayload(e, sigColumnText, "X")
	nameSub := buildColumnNamePayload32(e, sigColumnName, []textstore.Ref{{BlobIndex: 0, Offset: 2, Length: 1}})
	attrsSub := buildColumnAttrsPayload32(e, sigColumnAttrs, []subheader.ColumnAttrsEntry{
		{Offset: 0, Width: 8, Kind: format.Numeric},
	})
	rowSizeSub := buildRowSizePayload32(e, sigRowSize32, 8, 1, 1, textstore.Ref{}, textstore.Ref{})

	return []subheaderSpec{
		{payload: textBlob},
		{payload: nameSub},
		{payload: attrsSub},
		{payload: rowSizeSub},
	}
}

func rowBytesFloat64(e endian.EndianEngine, v float64) []byte {
	row := make([]byte, 8)
	e.PutUint64(row, math.Float64bits(v))
	return row
}

func TestParseMetadata_SingleMixPage(t *testing.T) {
	e := endian.GetLittleEndianEngine()
	const pageSize = 512

	page0 := buildPage32(e, 0x0200, metadataSubheaders(e), [][]byte{rowBytesFloat64(e, 42)}, pageSize)
	header := buildHeaderBuf(false, true, pageSize, 1)
	file := append(append([]byte(nil), header...), page0...)

	layout, err := ParseMetadata(bytes.NewReader(file))
	require.NoError(t, err)

	require.Len(t, layout.Metadata.Variables, 1)
	assert.Equal(t, "X", layout.Metadata.Variables[0].Name)
	assert.Equal(t, uint64(1), layout.Metadata.RowCount)
	assert.Equal(t, uint32(8), layout.Metadata.RowLength)
	assert.Equal(t, format.CompressionNone, layout.Compression)

	cur, err := NewCursor(bytes.NewReader(file), layout.Header, layout.Metadata)
	require.NoError(t, err)
	row, ok, err := cur.Next()
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, row, 1)

	_, _, err = cur.Next()
	require.NoError(t, err)
}

// TestParseMetadata_SubheadersSplitAcrossTwoMetaPages exercises the walk
// across more than one page of type Meta: no single page carries every
// subheader kind, so the column is only fully resolved once the loop has
// consumed both of them.
func TestParseMetadata_SubheadersSplitAcrossTwoMetaPages(t *testing.T) {
	e := endian.GetLittleEndianEngine()
	const pageSize = 512

	all := metadataSubheaders(e)
	page0 := buildPage32(e, 0x0000, all[:2], nil, pageSize) // column text + name
	page1 := buildPage32(e, 0x0000, all[2:], nil, pageSize) // column attrs + row size
	header := buildHeaderBuf(false, true, pageSize, 2)

	file := append(append([]byte(nil), header...), page0...)
	file = append(file, page1...)

	layout, err := ParseMetadata(bytes.NewReader(file))
	require.NoError(t, err)
	require.Len(t, layout.Metadata.Variables, 1)
	assert.Equal(t, "X", layout.Metadata.Variables[0].Name)
	assert.Equal(t, uint64(1), layout.Metadata.RowCount)
	assert.Equal(t, format.CompressionNone, layout.Compression)
}

func TestParseMetadata_ClassifiesKnownAndUnknownCompression(t *testing.T) {
	cases := []struct {
		name    string
		literal string
		want    format.Compression
	}{
		{"RLE literal", rleCompressionLiteral, format.CompressionRLE},
		{"RDC literal", rdcCompressionLiteral, format.CompressionRDC},
		{"unrecognized literal", "SOMETHINGELSE", format.CompressionUnknown},
		{"blank literal", "", format.CompressionNone},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			e := endian.GetLittleEndianEngine()
			const pageSize = 512

			specs := metadataSubheaders(e)
			if tc.literal != "" {
				padded := tc.literal
				textBlob := buildColumnTextPayload(e, sigColumnText, "X"+padded)
				specs[0] = subheaderSpec{payload: textBlob}
				specs[3] = subheaderSpec{payload: buildRowSizePayload32(e, sigRowSize32, 8, 1, 1,
					textstore.Ref{}, textstore.Ref{BlobIndex: 0, Offset: 3, Length: uint16(len(padded))})}
			}

			page0 := buildPage32(e, 0x0200, specs, [][]byte{rowBytesFloat64(e, 1)}, pageSize)
			header := buildHeaderBuf(false, true, pageSize, 1)
			file := append(append([]byte(nil), header...), page0...)

			layout, err := ParseMetadata(bytes.NewReader(file))
			require.NoError(t, err)
			assert.Equal(t, tc.want, layout.Compression)
		})
	}
}

func TestParseMetadata_DataPageBeforeMetadataIsCorrupted(t *testing.T) {
	e := endian.GetLittleEndianEngine()
	const pageSize = 512

	dataPage := buildPage32(e, 0x0100, nil, [][]byte{rowBytesFloat64(e, 1)}, pageSize)
	header := buildHeaderBuf(false, true, pageSize, 1)
	file := append(append([]byte(nil), header...), dataPage...)

	_, err := ParseMetadata(bytes.NewReader(file))
	assert.Error(t, err)
}

func TestParseMetadata_NoMetadataSubheadersIsInvalid(t *testing.T) {
	e := endian.GetLittleEndianEngine()
	const pageSize = 512

	metaPage := buildPage32(e, 0x0000, nil, nil, pageSize)
	header := buildHeaderBuf(false, true, pageSize, 1)
	file := append(append([]byte(nil), header...), metaPage...)

	_, err := ParseMetadata(bytes.NewReader(file))
	assert.Error(t, err)
}
