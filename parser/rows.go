package parser

import (
	"fmt"
	"io"

	"github.com/halvorsen/sas7bdat/cell"
	"github.com/halvorsen/sas7bdat/dataset"
	"github.com/halvorsen/sas7bdat/format"
	"github.com/halvorsen/sas7bdat/internal/charset"
	"github.com/halvorsen/sas7bdat/page"
)

// rawRowSource walks a file's Data and Mix pages in order and yields each
// row's still-possibly-compressed bytes: a fixed rowLen slice straight out
// of the page for an uncompressed file, or a subheader-pointer payload for
// a compressed one. Either shape feeds directly into RowDecoder.Decode,
// which already knows how to pass bytes through a no-op, RLE, or RDC
// decompressor depending on the dataset's declared compression.
type rawRowSource struct {
	r           io.ReaderAt
	header      Header
	compression format.Compression
	rowLen      int
	totalRows   uint64

	rowsEmitted uint64
	pageIdx     uint64
	pageBuf     []byte

	pageLoaded bool
	curPage    page.Page
	cursor     int
	pointers   []page.Pointer
	pointerIdx int
}

func newRawRowSource(r io.ReaderAt, header Header, md dataset.Metadata) *rawRowSource {
	return &rawRowSource{
		r:           r,
		header:      header,
		compression: md.Compression,
		rowLen:      int(md.RowLength),
		totalRows:   md.RowCount,
		pageBuf:     make([]byte, header.PageSize),
	}
}

// next returns the next row's raw bytes, or ok=false once every declared
// row has been emitted or the page stream is exhausted.
func (s *rawRowSource) next() (raw []byte, ok bool, err error) {
	uses64 := s.header.PointerWidth == format.Pointer64

	for {
		if s.rowsEmitted >= s.totalRows {
			return nil, false, nil
		}

		if !s.pageLoaded {
			if s.pageIdx >= s.header.PageCount {
				return nil, false, nil
			}

			off := s.header.DataOffset + s.pageIdx*uint64(s.header.PageSize)
			if _, err := s.r.ReadAt(s.pageBuf, int64(off)); err != nil {
				return nil, false, fmt.Errorf("sas7bdat: reading page %d: %w", s.pageIdx, err)
			}

			pg, err := page.Parse(s.pageBuf, s.header.Endian, s.header.PageHeaderSize, s.header.SubheaderPointerSize, uses64)
			if err != nil {
				return nil, false, err
			}
			s.pageIdx++

			if pg.Kind != page.TypeData && pg.Kind != page.TypeMix {
				continue
			}

			s.curPage = pg
			s.pageLoaded = true

			s.pointers, err = pg.Pointers(s.header.Endian)
			if err != nil {
				return nil, false, err
			}
			s.pointerIdx = 0

			if s.compression == format.CompressionNone {
				// A Mix page packs its subheader bodies between the pointer
				// table and the row data; a Data page has no subheaders, so
				// this is just pg.DataStart() widened by nothing.
				s.cursor = pg.DataStartFrom(s.pointers)
			}
		}

		if s.compression == format.CompressionNone {
			if s.cursor+s.rowLen > len(s.curPage.Bytes) {
				s.pageLoaded = false
				continue
			}
			row := s.curPage.Bytes[s.cursor : s.cursor+s.rowLen]
			s.cursor += s.rowLen
			s.rowsEmitted++
			return row, true, nil
		}

		for s.pointerIdx < len(s.pointers) {
			ptr := s.pointers[s.pointerIdx]
			s.pointerIdx++
			if ptr.Compression != page.PointerCompressionCompressed {
				continue
			}
			payload, err := s.curPage.Payload(ptr)
			if err != nil {
				return nil, false, err
			}
			s.rowsEmitted++
			return payload, true, nil
		}
		s.pageLoaded = false
	}
}

// Cursor pairs a rawRowSource with the RowDecoder that turns its bytes into
// typed cell values, giving callers a single type to drive row-by-row.
type Cursor struct {
	src *rawRowSource
	dec *RowDecoder
}

// NewCursor builds a row cursor over an already-parsed file layout.
func NewCursor(r io.ReaderAt, header Header, md dataset.Metadata) (*Cursor, error) {
	codec := charset.NewCodec(charset.Resolve(header.FileEncoding))
	dec, err := NewRowDecoder(header.Endian, md.Variables, codec, md.Compression, int(md.RowLength))
	if err != nil {
		return nil, err
	}

	return &Cursor{src: newRawRowSource(r, header, md), dec: dec}, nil
}

// Next decodes the next row, reporting ok=false once the dataset is
// exhausted.
func (c *Cursor) Next() (row []cell.Value, ok bool, err error) {
	raw, ok, err := c.src.next()
	if err != nil || !ok {
		return nil, ok, err
	}

	row, err = c.dec.Decode(raw)
	if err != nil {
		return nil, false, err
	}

	return row, true, nil
}
