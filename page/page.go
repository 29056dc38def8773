// Package page walks a SAS7BDAT page's subheader pointer table, the
// directory that tells the parser where each column-metadata record (or
// chunk of row data) lives within the page.
package page

import (
	"github.com/halvorsen/sas7bdat/endian"
	"github.com/halvorsen/sas7bdat/errs"
	"github.com/halvorsen/sas7bdat/internal/bytesio"
)

// Type classifies a page by the purpose of the data it carries.
type Type uint8

const (
	TypeUnknown Type = iota
	TypeMeta         // column-metadata subheaders only
	TypeData         // row data only
	TypeMix          // subheaders followed by row data
	TypeAMD          // metadata subheaders, compressed-data variant
)

const typeMask = 0x0F00

func classify(raw uint16) Type {
	switch raw & typeMask {
	case 0x0000:
		return TypeMeta
	case 0x0100:
		return TypeData
	case 0x0200, 0x0300:
		return TypeMix
	case 0x0400:
		return TypeAMD
	default:
		return TypeUnknown
	}
}

const (
	// PointerCompressionNone marks a pointer to an ordinary metadata
	// subheader.
	PointerCompressionNone = 0
	// PointerCompressionTruncated marks a pointer with no backing data;
	// callers skip it.
	PointerCompressionTruncated = 1
	// PointerCompressionCompressed marks a pointer whose referenced bytes
	// are themselves a compressed row, not a metadata subheader.
	PointerCompressionCompressed = 4
)

// Pointer is one entry from a page's subheader pointer table.
type Pointer struct {
	Offset      uint64
	Length      uint64
	Compression byte
	Type        byte
}

// Page is one page's header fields plus its raw bytes, ready for subheader
// or row-data extraction.
type Page struct {
	Kind           Type
	BlockCount     uint16
	SubheaderCount uint16
	Bytes          []byte
	headerSize     int
	pointerSize    int
	uses64         bool
}

// Parse reads a page's fixed header and subheader pointer table.
// pageHeaderSize and pointerSize come from the file's Header; uses64
// selects the 8-byte vs 4-byte pointer offset/length encoding.
func Parse(data []byte, e endian.EndianEngine, pageHeaderSize, pointerSize int, uses64 bool) (Page, error) {
	if len(data) < pageHeaderSize {
		return Page{}, errs.Corrupted(errs.SectionPage, "page shorter than page header")
	}

	bitOffset := pageHeaderSize - 8
	rawType := bytesio.U16(e, data[bitOffset:bitOffset+2])
	blockCount := bytesio.U16(e, data[bitOffset+2:bitOffset+4])
	subheaderCount := bytesio.U16(e, data[bitOffset+4:bitOffset+6])

	return Page{
		Kind:           classify(rawType),
		BlockCount:     blockCount,
		SubheaderCount: subheaderCount,
		Bytes:          data,
		headerSize:     pageHeaderSize,
		pointerSize:    pointerSize,
		uses64:         uses64,
	}, nil
}

// Pointers returns the page's subheader pointer table.
func (p Page) Pointers(e endian.EndianEngine) ([]Pointer, error) {
	out := make([]Pointer, 0, p.SubheaderCount)
	cursor := p.headerSize

	for i := 0; i < int(p.SubheaderCount); i++ {
		if cursor+p.pointerSize > len(p.Bytes) {
			return nil, errs.CorruptedAt(errs.SectionPage, i, "subheader pointer table truncated")
		}
		entry := p.Bytes[cursor : cursor+p.pointerSize]
		cursor += p.pointerSize

		var ptr Pointer
		if p.uses64 {
			ptr.Offset = bytesio.U64(e, entry[0:8])
			ptr.Length = bytesio.U64(e, entry[8:16])
			ptr.Compression = entry[16]
			ptr.Type = entry[17]
		} else {
			ptr.Offset = uint64(bytesio.U32(e, entry[0:4]))
			ptr.Length = uint64(bytesio.U32(e, entry[4:8]))
			ptr.Compression = entry[8]
			ptr.Type = entry[9]
		}

		out = append(out, ptr)
	}

	return out, nil
}

// Payload returns the bytes a pointer addresses within this page's buffer.
func (p Page) Payload(ptr Pointer) ([]byte, error) {
	start := ptr.Offset
	end := start + ptr.Length
	if end > uint64(len(p.Bytes)) || start > end {
		return nil, errs.Corrupted(errs.SectionPage, "subheader pointer out of bounds")
	}

	return p.Bytes[start:end], nil
}

// DataStart returns the byte offset within the page where row data begins,
// for Data and Mix pages: immediately after the subheader pointer table.
// This is exact for a Data page (SubheaderCount is always 0 there); a Mix
// page additionally packs the subheader bodies themselves between the
// pointer table and the row data, so callers walking an uncompressed Mix
// page must widen this floor with DataStartFrom.
func (p Page) DataStart() int {
	return p.headerSize + int(p.SubheaderCount)*p.pointerSize
}

// DataStartFrom widens DataStart's pointer-table-only floor to account for
// the subheader bodies a Mix page packs immediately after that table: row
// data cannot begin before the last ordinary subheader pointer's payload
// ends, rounded up to the 8-byte boundary SAS packs subheader bodies on.
// Truncated pointers (no backing bytes, spec §4.7) and compressed-row
// pointers (row payloads, not subheader bodies) are excluded from the scan.
func (p Page) DataStartFrom(pointers []Pointer) int {
	start := p.DataStart()
	for _, ptr := range pointers {
		if ptr.Compression == PointerCompressionTruncated || ptr.Compression == PointerCompressionCompressed {
			continue
		}
		if end := int(ptr.Offset + ptr.Length); end > start {
			start = end
		}
	}

	if rem := start % 8; rem != 0 {
		start += 8 - rem
	}

	return start
}
