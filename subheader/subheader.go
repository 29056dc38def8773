// Package subheader decodes the fixed-format records packed into a
// SAS7BDAT page: column text blobs, column name/attribute/format/label
// references, the row-size record, and the optional column list.
//
// Every parser here takes the subheader's raw payload (the bytes its
// pointer covers, starting at its signature) plus whichever of the
// signature's width (4 bytes for 32-bit files, 8 for 64-bit), the file's
// endian engine, and whether the file uses 64-bit offsets its layout
// needs. Layouts differ enough between the two
// pointer widths that each parser branches on uses64 rather than sharing a
// single byte-offset table.
package subheader

import (
	"fmt"

	"github.com/halvorsen/sas7bdat/endian"
	"github.com/halvorsen/sas7bdat/errs"
	"github.com/halvorsen/sas7bdat/format"
	"github.com/halvorsen/sas7bdat/internal/bytesio"
	"github.com/halvorsen/sas7bdat/internal/textstore"
)

const columnListHeaderLen = 30

// ParseTextRef parses a 6-byte (blob index, offset, length) triple used
// throughout the column subheaders to point into the text store.
func ParseTextRef(e endian.EndianEngine, b []byte) textstore.Ref {
	return textstore.Ref{
		BlobIndex: bytesio.U16(e, b[0:2]),
		Offset:    bytesio.U16(e, b[2:4]),
		Length:    bytesio.U16(e, b[4:6]),
	}
}

// ColumnText is a parsed "column text" subheader: its entire payload past
// the signature is one opaque blob that later text references index into.
func ColumnText(payload []byte, sigLen int) ([]byte, error) {
	if len(payload) < sigLen+2 {
		return nil, errs.CorruptedSubheader("column text", "too short")
	}

	return payload[sigLen:], nil
}

func expectedRemainder(payloadLen, sigLen int) (int, bool) {
	base := sigLen * 2
	if payloadLen < base {
		return 0, false
	}

	return payloadLen - base, true
}

func validateLengths(payload []byte, sigLen int, e endian.EndianEngine, baseLen int, what string) error {
	if len(payload) < baseLen {
		return errs.CorruptedSubheader(what, "too short")
	}

	remainder := int(bytesio.U16(e, payload[sigLen:sigLen+2]))
	expected, ok := expectedRemainder(len(payload), sigLen)
	if !ok {
		return errs.CorruptedSubheader(what, "length invalid")
	}
	if remainder != expected {
		return errs.CorruptedSubheader(what, "remainder mismatch")
	}

	return nil
}

func entryBase(uses64 bool) int {
	if uses64 {
		return 28
	}

	return 20
}

// ColumnNameEntry is one column's name reference, as recorded in a single
// "column name" subheader entry.
type ColumnNameEntry struct {
	NameRef textstore.Ref
}

// ColumnName parses a "column name" subheader into one entry per column it
// covers, in column order.
func ColumnName(payload []byte, sigLen int, e endian.EndianEngine, uses64 bool) ([]ColumnNameEntry, error) {
	const what = "column name"
	if err := validateLengths(payload, sigLen, e, entryBase(uses64), what); err != nil {
		return nil, err
	}

	const chunkWidth = 8
	entries := (len(payload) - entryBase(uses64)) / chunkWidth
	if entries == 0 {
		return nil, nil
	}

	expectedLen := sigLen + 8 + entries*chunkWidth
	if len(payload) < expectedLen {
		return nil, errs.CorruptedSubheader(what, "truncated")
	}

	out := make([]ColumnNameEntry, entries)
	cursor := sigLen + 8
	for i := 0; i < entries; i++ {
		out[i] = ColumnNameEntry{NameRef: ParseTextRef(e, payload[cursor:cursor+6])}
		cursor += chunkWidth
	}

	return out, nil
}

// ColumnAttrsEntry is one column's storage offset, width, type code, and
// display attributes, as recorded in a "column attributes" subheader entry.
type ColumnAttrsEntry struct {
	Offset    uint64
	Width     uint32
	Kind      format.VariableKind
	Measure   format.Measure
	Alignment format.Alignment
}

func columnKindFromTypeCode(code byte) (format.VariableKind, bool) {
	switch code {
	case 1:
		return format.Numeric, true
	case 2:
		return format.Character, true
	default:
		return 0, false
	}
}

// ColumnAttrs parses a "column attributes" subheader into one entry per
// column it covers.
func ColumnAttrs(payload []byte, sigLen int, e endian.EndianEngine, uses64 bool) ([]ColumnAttrsEntry, error) {
	const what = "column attributes"
	if err := validateLengths(payload, sigLen, e, entryBase(uses64), what); err != nil {
		return nil, err
	}

	rowSize := 12
	if uses64 {
		rowSize = 16
	}
	entries := (len(payload) - entryBase(uses64)) / rowSize
	if entries == 0 {
		return nil, nil
	}

	expectedLen := sigLen + 8 + entries*rowSize
	if len(payload) < expectedLen {
		return nil, errs.CorruptedSubheader(what, "truncated")
	}

	out := make([]ColumnAttrsEntry, entries)
	cursor := sigLen + 8
	for i := 0; i < entries; i++ {
		start := cursor
		var offsetVal uint64
		var widthVal uint32
		var typePos, nextCursor int
		var measurePos = -1

		if uses64 {
			offsetVal = bytesio.U64(e, payload[start:start+8])
			widthVal = bytesio.U32(e, payload[start+8:start+12])
			nextCursor = start + 16
			typePos = start + 14
			if p := start + 8 + 5; p < nextCursor {
				measurePos = p
			}
		} else {
			offsetVal = uint64(bytesio.U32(e, payload[start:start+4]))
			widthVal = bytesio.U32(e, payload[start+4:start+8])
			nextCursor = start + 12
			typePos = start + 10
			if p := start + 4 + 5; p < nextCursor {
				measurePos = p
			}
		}

		kind, ok := columnKindFromTypeCode(payload[typePos])
		if !ok {
			return nil, errs.CorruptedAt(errs.SectionColumn, i, "unknown column type code")
		}

		entry := ColumnAttrsEntry{Offset: offsetVal, Width: widthVal, Kind: kind}
		if measurePos >= 0 {
			b := payload[measurePos]
			switch b & 0x0F {
			case 1:
				entry.Measure = format.MeasureNominal
			case 2:
				entry.Measure = format.MeasureOrdinal
			case 3:
				entry.Measure = format.MeasureScale
			}
			switch (b >> 4) & 0x0F {
			case 1:
				entry.Alignment = format.AlignmentLeft
			case 2:
				entry.Alignment = format.AlignmentCenter
			case 3:
				entry.Alignment = format.AlignmentRight
			}
		}

		out[i] = entry
		cursor = nextCursor
	}

	return out, nil
}

// ColumnFormatEntry is one column's format name / label references (and,
// for 64-bit files, its declared display width and decimal count), as
// recorded in a single "column format" subheader.
type ColumnFormatEntry struct {
	FormatRef textstore.Ref
	LabelRef  textstore.Ref
	Width     *uint16
	Decimals  *uint16
}

// ColumnFormat parses a "column format" subheader. Each such subheader
// covers exactly one column.
func ColumnFormat(payload []byte, e endian.EndianEngine, uses64 bool) (ColumnFormatEntry, error) {
	minLen := 46
	if uses64 {
		minLen = 58
	}
	if len(payload) < minLen {
		return ColumnFormatEntry{}, errs.CorruptedSubheader("column format", "too short")
	}

	var entry ColumnFormatEntry
	if uses64 {
		entry.FormatRef = ParseTextRef(e, payload[46:52])
		entry.LabelRef = ParseTextRef(e, payload[52:58])
		width := bytesio.U16(e, payload[24:26])
		decimals := bytesio.U16(e, payload[26:28])
		entry.Width = &width
		entry.Decimals = &decimals
	} else {
		entry.FormatRef = ParseTextRef(e, payload[34:40])
		entry.LabelRef = ParseTextRef(e, payload[40:46])
	}

	return entry, nil
}

// ColumnSize parses a "column size" subheader, returning the file's
// declared column count.
func ColumnSize(payload []byte, e endian.EndianEngine, uses64 bool) (uint32, error) {
	minLen := 8
	if uses64 {
		minLen = 16
	}
	if len(payload) < minLen {
		return 0, errs.CorruptedSubheader("column size", "too short")
	}

	var raw uint64
	if uses64 {
		raw = bytesio.U64(e, payload[8:16])
	} else {
		raw = uint64(bytesio.U32(e, payload[4:8]))
	}
	if raw > 0xFFFFFFFF {
		return 0, errs.InvalidMetadata("column count exceeds supported range")
	}

	return uint32(raw), nil
}

// RowSize is the parsed contents of the "row size" subheader: row length,
// counts, and the compression/label text references.
type RowSize struct {
	RowLength   uint32
	TotalRows   uint64
	RowsPerPage uint64
	LabelRef    textstore.Ref
	Compression textstore.Ref
}

// ParseRowSize parses a "row size" subheader.
func ParseRowSize(payload []byte, e endian.EndianEngine, uses64 bool) (RowSize, error) {
	minLen := 190
	if uses64 {
		minLen = 250
	}
	if len(payload) < minLen {
		return RowSize{}, errs.CorruptedSubheader("row size", "too short")
	}

	var rowLengthRaw, totalRows, rowsPerPage uint64
	if uses64 {
		rowLengthRaw = bytesio.U64(e, payload[40:48])
		totalRows = bytesio.U64(e, payload[48:56])
		rowsPerPage = bytesio.U64(e, payload[120:128])
	} else {
		rowLengthRaw = uint64(bytesio.U32(e, payload[20:24]))
		totalRows = uint64(bytesio.U32(e, payload[24:28]))
		rowsPerPage = uint64(bytesio.U32(e, payload[60:64]))
	}
	if rowLengthRaw > 0xFFFFFFFF {
		return RowSize{}, errs.InvalidMetadata("row length exceeds supported range")
	}

	labelOffset := len(payload) - 130
	if labelOffset < 0 {
		return RowSize{}, errs.CorruptedSubheader("row size", "missing file label reference")
	}
	compressionOffset := len(payload) - 118
	if compressionOffset < 0 {
		return RowSize{}, errs.CorruptedSubheader("row size", "missing compression reference")
	}

	return RowSize{
		RowLength:   uint32(rowLengthRaw),
		TotalRows:   totalRows,
		RowsPerPage: rowsPerPage,
		LabelRef:    ParseTextRef(e, payload[labelOffset:labelOffset+6]),
		Compression: ParseTextRef(e, payload[compressionOffset:compressionOffset+6]),
	}, nil
}

// ColumnList parses a "column list" subheader, returning the 1-based
// column indices it enumerates.
//
// 64-bit aligned files use a different column list layout that no example
// file in the development corpus exercised; it is left unsupported and
// this returns (nil, nil) rather than a decode guess.
func ColumnList(payload []byte, sigLen int, e endian.EndianEngine, uses64 bool) ([]int16, error) {
	if uses64 || sigLen != 4 {
		return nil, nil
	}

	if len(payload) < columnListHeaderLen {
		return nil, errs.CorruptedSubheader("column list", "too short")
	}

	signature := bytesio.U32(e, payload[0:4])
	if signature != 0xFFFFFFFE {
		return nil, errs.CorruptedSubheader("column list", fmt.Sprintf("unexpected signature 0x%X", signature))
	}

	listLen := int(bytesio.U16(e, payload[18:20]))
	if listLen == 0 {
		return nil, nil
	}

	required := columnListHeaderLen + listLen*2
	if len(payload) < required {
		return nil, errs.CorruptedSubheader("column list", "truncated")
	}

	values := make([]int16, listLen)
	for i := 0; i < listLen; i++ {
		pos := columnListHeaderLen + i*2
		values[i] = bytesio.I16(e, payload[pos:pos+2])
	}

	return values, nil
}
