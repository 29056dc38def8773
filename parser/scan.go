package parser

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/halvorsen/sas7bdat/dataset"
	"github.com/halvorsen/sas7bdat/endian"
	"github.com/halvorsen/sas7bdat/errs"
	"github.com/halvorsen/sas7bdat/format"
	"github.com/halvorsen/sas7bdat/internal/charset"
	"github.com/halvorsen/sas7bdat/page"
	"github.com/halvorsen/sas7bdat/subheader"
)

const (
	sigRowSize32    = 0xF7F7F7F7
	sigColumnSize32 = 0xF6F6F6F6
	sigColumnAttrs  = 0xFFFFFFFC
	sigColumnText   = 0xFFFFFFFD
	sigColumnName   = 0xFFFFFFFF
	sigColumnList   = 0xFFFFFFFE
	sigColumnFormat = 0xFFFFFBFE

	sigRowSize64    = 0xF7F7F7F7F7F7F7F7
	sigColumnSize64 = 0xF6F6F6F6F6F6F6F6
	sigColumnAttrs64  = 0xFFFFFFFFFFFFFFFC
	sigColumnText64   = 0xFFFFFFFFFFFFFFFD
	sigColumnName64   = 0xFFFFFFFFFFFFFFFF
	sigColumnList64   = 0xFFFFFFFFFFFFFFFE
	sigColumnFormat64 = 0xFFFFFFFFFFFFFBFE

	rleCompressionLiteral = "SASYZCRL"
	rdcCompressionLiteral = "SASYZCR2"
)

// Layout is the complete result of walking a SAS7BDAT file's metadata
// pages: its header, resolved column metadata, and the byte offset where
// the data region (possibly still inside the trailing portion of a mix
// page) begins.
type Layout struct {
	Header      Header
	Metadata    dataset.Metadata
	Compression format.Compression
	FirstDataAt int64 // absolute file offset of the first still-unconsumed data page/row region
}

// ParseMetadata reads a SAS7BDAT header and walks pages, consuming their
// metadata subheaders, until the first Mix page, the first Data page, or the
// last page, then returns the resolved layout. Row data begins at the first
// Data or Mix page encountered during the walk; a Data page reached before
// the row size subheader has been seen is reported as corruption.
func ParseMetadata(r io.ReaderAt) (Layout, error) {
	header, err := ParseHeader(r)
	if err != nil {
		return Layout{}, err
	}

	codecEnc := charset.Resolve(header.FileEncoding)
	codec := charset.NewCodec(codecEnc)

	builder := newColumnBuilder()
	var compression format.Compression
	var sawMeta bool
	firstDataAt := int64(header.DataOffset) + int64(header.PageSize)

	buf := make([]byte, header.PageSize)
	for pageIdx := uint64(0); pageIdx < header.PageCount; pageIdx++ {
		off := header.DataOffset + pageIdx*uint64(header.PageSize)
		if _, err := r.ReadAt(buf, int64(off)); err != nil {
			return Layout{}, fmt.Errorf("sas7bdat: reading page %d: %w", pageIdx, err)
		}

		pg, err := page.Parse(buf, header.Endian, header.PageHeaderSize, header.SubheaderPointerSize, header.PointerWidth == format.Pointer64)
		if err != nil {
			return Layout{}, err
		}

		if pg.Kind == page.TypeData {
			if !builder.haveRow {
				return Layout{}, errs.Corrupted(errs.SectionPage, "data page encountered before metadata was fully assembled")
			}
			firstDataAt = int64(off)
			break
		}

		if pg.Kind != page.TypeMeta && pg.Kind != page.TypeMix && pg.Kind != page.TypeAMD {
			continue
		}

		pointers, err := pg.Pointers(header.Endian)
		if err != nil {
			return Layout{}, err
		}

		for _, ptr := range pointers {
			if ptr.Compression == page.PointerCompressionTruncated || ptr.Length == 0 {
				continue
			}
			if ptr.Compression == page.PointerCompressionCompressed {
				continue // row data pointer, not a metadata subheader
			}

			payload, err := pg.Payload(ptr)
			if err != nil {
				return Layout{}, err
			}

			kind, sigLen, ok := identifySubheader(header.Endian, payload, header.PointerWidth == format.Pointer64)
			if !ok {
				continue
			}
			sawMeta = true

			uses64 := header.PointerWidth == format.Pointer64
			switch kind {
			case kindColumnText:
				blob, err := subheader.ColumnText(payload, sigLen)
				if err != nil {
					return Layout{}, err
				}
				builder.addColumnText(blob)
			case kindColumnName:
				entries, err := subheader.ColumnName(payload, sigLen, header.Endian, uses64)
				if err != nil {
					return Layout{}, err
				}
				builder.addColumnName(entries)
			case kindColumnAttrs:
				entries, err := subheader.ColumnAttrs(payload, sigLen, header.Endian, uses64)
				if err != nil {
					return Layout{}, err
				}
				builder.addColumnAttrs(entries)
			case kindColumnFormat:
				entry, err := subheader.ColumnFormat(payload, header.Endian, uses64)
				if err != nil {
					return Layout{}, err
				}
				builder.addColumnFormat(entry)
			case kindColumnSize:
				count, err := subheader.ColumnSize(payload, header.Endian, uses64)
				if err != nil {
					return Layout{}, err
				}
				builder.setColumnCount(count)
			case kindRowSize:
				rs, err := subheader.ParseRowSize(payload, header.Endian, uses64)
				if err != nil {
					return Layout{}, err
				}
				builder.setRowSize(rs)
				compression = classifyCompression(builder.resolveText(rs.Compression, codec))
			case kindColumnList:
				values, err := subheader.ColumnList(payload, sigLen, header.Endian, uses64)
				if err != nil {
					return Layout{}, err
				}
				builder.appendColumnList(values)
			}
		}

		if pg.Kind == page.TypeMix {
			md, err := builder.Resolve(codec)
			if err != nil {
				return Layout{}, err
			}
			md.Compression = compression
			md.Endianness = header.Endianness
			md.PointerWidth = header.PointerWidth
			md.Version = header.Version
			md.TableName = header.TableName
			md.FileEncoding = header.FileEncoding
			md.Timestamps = headerTimestamps(header)

			return Layout{
				Header:      header,
				Metadata:    md,
				Compression: compression,
				FirstDataAt: int64(off) + int64(pg.DataStartFrom(pointers)),
			}, nil
		}
	}

	if !sawMeta {
		return Layout{}, errs.InvalidMetadata("no metadata subheaders found")
	}

	md, err := builder.Resolve(codec)
	if err != nil {
		return Layout{}, err
	}
	md.Compression = compression
	md.Endianness = header.Endianness
	md.PointerWidth = header.PointerWidth
	md.Version = header.Version
	md.TableName = header.TableName
	md.FileEncoding = header.FileEncoding
	md.Timestamps = headerTimestamps(header)

	return Layout{
		Header:      header,
		Metadata:    md,
		Compression: compression,
		FirstDataAt: firstDataAt,
	}, nil
}

// headerTimestamps converts a header's raw SAS-epoch-seconds creation and
// modification values into absolute times. A zero raw value (the common case
// for a field this format rarely populates reliably) maps to the epoch
// itself rather than being left ambiguous.
func headerTimestamps(h Header) dataset.Timestamps {
	return dataset.Timestamps{
		Created:  sasEpoch.Add(durationFromSeconds(h.Created)),
		Modified: sasEpoch.Add(durationFromSeconds(h.Modified)),
	}
}

func durationFromSeconds(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

func classifyCompression(name string) format.Compression {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "":
		return format.CompressionNone
	case rleCompressionLiteral:
		return format.CompressionRLE
	case rdcCompressionLiteral:
		return format.CompressionRDC
	default:
		return format.CompressionUnknown
	}
}

type subheaderKind int

const (
	kindUnknown subheaderKind = iota
	kindRowSize
	kindColumnSize
	kindColumnText
	kindColumnName
	kindColumnAttrs
	kindColumnFormat
	kindColumnList
)

func identifySubheader(e endian.EndianEngine, payload []byte, uses64 bool) (subheaderKind, int, bool) {
	if uses64 {
		if len(payload) < 8 {
			return kindUnknown, 0, false
		}
		sig := e.Uint64(payload[0:8])
		switch sig {
		case sigRowSize64:
			return kindRowSize, 8, true
		case sigColumnSize64:
			return kindColumnSize, 8, true
		case sigColumnAttrs64:
			return kindColumnAttrs, 8, true
		case sigColumnText64:
			return kindColumnText, 8, true
		case sigColumnName64:
			return kindColumnName, 8, true
		case sigColumnList64:
			return kindColumnList, 8, true
		case sigColumnFormat64:
			return kindColumnFormat, 8, true
		default:
			return kindUnknown, 0, false
		}
	}

	if len(payload) < 4 {
		return kindUnknown, 0, false
	}
	sig := e.Uint32(payload[0:4])
	switch sig {
	case sigRowSize32:
		return kindRowSize, 4, true
	case sigColumnSize32:
		return kindColumnSize, 4, true
	case sigColumnAttrs:
		return kindColumnAttrs, 4, true
	case sigColumnText:
		return kindColumnText, 4, true
	case sigColumnName:
		return kindColumnName, 4, true
	case sigColumnList:
		return kindColumnList, 4, true
	case sigColumnFormat:
		return kindColumnFormat, 4, true
	default:
		return kindUnknown, 0, false
	}
}
