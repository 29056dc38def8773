package parser

import (
	"fmt"
	"strings"

	"github.com/halvorsen/sas7bdat/dataset"
	"github.com/halvorsen/sas7bdat/errs"
	"github.com/halvorsen/sas7bdat/format"
	"github.com/halvorsen/sas7bdat/internal/charset"
	"github.com/halvorsen/sas7bdat/internal/textstore"
	"github.com/halvorsen/sas7bdat/subheader"
)

// columnSlot accumulates the pieces of one column's descriptor as they
// arrive from whichever subheader kind carries them; column-attributes,
// column-name, and column-format subheaders are not guaranteed to appear in
// column order relative to each other, so a column's descriptor is only
// complete once every kind that can touch it has been seen.
type columnSlot struct {
	nameRef   textstore.Ref
	offset    uint64
	width     uint32
	kind      format.VariableKind
	measure   format.Measure
	alignment format.Alignment
	formatRef textstore.Ref
	labelRef  textstore.Ref
	fmtWidth  *uint16
	fmtDec    *uint16
	hasAttrs  bool
}

// columnBuilder accumulates subheader fragments into a fully resolved
// dataset.Metadata as a page scan walks through them.
type columnBuilder struct {
	text  *textstore.Store
	slots []columnSlot

	namesSeen uint32
	attrsSeen uint32
	fmtsSeen  uint32

	rowSize    subheader.RowSize
	haveRow    bool
	columnList []int16
}

func newColumnBuilder() *columnBuilder {
	return &columnBuilder{text: textstore.New()}
}

func (b *columnBuilder) ensureLen(n int) {
	for len(b.slots) < n {
		b.slots = append(b.slots, columnSlot{})
	}
}

func (b *columnBuilder) setColumnCount(n uint32) {
	b.ensureLen(int(n))
}

func (b *columnBuilder) addColumnText(blob []byte) {
	b.text.Push(blob)
}

func (b *columnBuilder) addColumnName(entries []subheader.ColumnNameEntry) {
	start := int(b.namesSeen)
	b.ensureLen(start + len(entries))
	for i, e := range entries {
		b.slots[start+i].nameRef = e.NameRef
	}
	b.namesSeen += uint32(len(entries))
}

func (b *columnBuilder) addColumnAttrs(entries []subheader.ColumnAttrsEntry) {
	start := int(b.attrsSeen)
	b.ensureLen(start + len(entries))
	for i, e := range entries {
		slot := &b.slots[start+i]
		slot.offset = e.Offset
		slot.width = e.Width
		slot.kind = e.Kind
		slot.measure = e.Measure
		slot.alignment = e.Alignment
		slot.hasAttrs = true
	}
	b.attrsSeen += uint32(len(entries))
}

func (b *columnBuilder) addColumnFormat(entry subheader.ColumnFormatEntry) {
	idx := int(b.fmtsSeen)
	b.ensureLen(idx + 1)
	slot := &b.slots[idx]
	slot.formatRef = entry.FormatRef
	slot.labelRef = entry.LabelRef
	slot.fmtWidth = entry.Width
	slot.fmtDec = entry.Decimals
	b.fmtsSeen++
}

func (b *columnBuilder) setRowSize(rs subheader.RowSize) {
	b.rowSize = rs
	b.haveRow = true
}

func (b *columnBuilder) appendColumnList(values []int16) {
	b.columnList = append(b.columnList, values...)
}

// resolveText returns the trimmed, decoded text a ref points at, or ""
// when the ref is absent or points outside the collected text blobs.
func (b *columnBuilder) resolveText(ref textstore.Ref, enc encodingCodec) string {
	if ref.IsZero() {
		return ""
	}

	raw, ok := b.text.Resolve(ref)
	if !ok {
		return ""
	}

	trimmed := charset.TrimPadding(raw)
	if len(trimmed) == 0 {
		return ""
	}

	decoded, err := enc.String(string(trimmed))
	if err != nil {
		return string(trimmed)
	}

	return decoded
}

// Resolve finalizes the accumulated fragments into a dataset.Metadata.
func (b *columnBuilder) Resolve(enc encodingCodec) (dataset.Metadata, error) {
	if !b.haveRow {
		return dataset.Metadata{}, errs.InvalidMetadata("row size subheader was never observed")
	}

	vars := make([]dataset.Variable, len(b.slots))
	for i, slot := range b.slots {
		if !slot.hasAttrs {
			return dataset.Metadata{}, errs.InvalidMetadata(fmt.Sprintf("column %d missing attributes", i))
		}

		v := dataset.Variable{
			Index:        uint32(i),
			Name:         b.resolveText(slot.nameRef, enc),
			Kind:         slot.kind,
			Offset:       slot.offset,
			StorageWidth: int(slot.width),
			Measure:      slot.measure,
			Alignment:    slot.alignment,
		}

		if fname := b.resolveText(slot.formatRef, enc); fname != "" {
			v.Format = &dataset.Format{Name: fname, Width: slot.fmtWidth, Decimals: slot.fmtDec}
			v.NumericKind = classifyNumericFormat(fname)
		}
		v.Label = b.resolveText(slot.labelRef, enc)
		v.DisplayWidth = slot.fmtWidth
		v.Decimals = slot.fmtDec

		vars[i] = v
	}

	md := dataset.Metadata{
		ColumnCount: uint32(len(vars)),
		RowCount:    b.rowSize.TotalRows,
		RowLength:   b.rowSize.RowLength,
		Variables:   vars,
		LabelSets:   make(map[string]dataset.LabelSet),
		ColumnList:  b.columnList,
	}

	return md, nil
}

// encodingCodec decodes a dataset's native byte encoding into UTF-8.
type encodingCodec interface {
	String(string) (string, error)
}

// classifyNumericFormat maps a format name to the NumericKind it implies
// for value decoding. Format names are matched by their alphabetic prefix,
// ignoring width/decimal suffixes (e.g. "DATETIME20." matches "DATETIME").
func classifyNumericFormat(name string) format.NumericKind {
	upper := strings.ToUpper(name)
	prefix := strings.TrimRight(upper, "0123456789.")

	switch {
	case containsAny(prefix, dateTimeFormatPrefixes):
		return format.NumericDateTime
	case containsAny(prefix, timeFormatPrefixes):
		return format.NumericTime
	case containsAny(prefix, dateFormatPrefixes):
		return format.NumericDate
	default:
		return format.NumericDouble
	}
}

func containsAny(prefix string, set map[string]struct{}) bool {
	_, ok := set[prefix]
	return ok
}

var dateFormatPrefixes = stringSet(
	"DATE", "DAY", "DDMMYY", "DOWNAME", "JULDAY", "JULIAN", "MMDDYY", "MMYY",
	"MONNAME", "MONTH", "MONYY", "QTR", "QTRR", "WEEKDATE", "WEEKDATX",
	"WEEKDAY", "WEEKV", "WORDDATE", "WORDDATX", "YEAR", "YYMM", "YYMMDD",
	"YYMON", "YYQ", "YYQR", "E8601DA",
)

var dateTimeFormatPrefixes = stringSet(
	"DATETIME", "DATEAMPM", "DTDATE", "DTMONYY", "DTWKDATX", "DTYEAR",
	"DTYYQC", "E8601DT", "MDYAMPM",
)

var timeFormatPrefixes = stringSet(
	"TIME", "HHMM", "HOUR", "MMSS", "TIMEAMPM", "E8601TM", "TOD",
)

func stringSet(values ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(values))
	for _, v := range values {
		m[v] = struct{}{}
	}

	return m
}
