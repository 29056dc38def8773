// Package parser assembles a SAS7BDAT/SAS7BCAT file's header, column
// metadata, and row stream from the primitives in endian, subheader, page,
// and compress.
package parser

import (
	"fmt"
	"io"

	"github.com/halvorsen/sas7bdat/endian"
	"github.com/halvorsen/sas7bdat/errs"
	"github.com/halvorsen/sas7bdat/format"
	"github.com/halvorsen/sas7bdat/internal/bytesio"
	"github.com/halvorsen/sas7bdat/internal/charset"
)

// magic is the fixed 32-byte signature every SAS7BDAT/SAS7BCAT file opens
// with.
var magic = [32]byte{
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xc2, 0xea, 0x81, 0x60,
	0xb3, 0x14, 0x11, 0xcf, 0xbd, 0x92, 0x08, 0x00,
	0x09, 0xc7, 0x31, 0x8c, 0x18, 0x1f, 0x10, 0x11,
}

const (
	align1Offset = 32
	align2Offset = 35

	endiannessOffset = 37
	platformOffset   = 39
	encodingOffset   = 70

	datasetNameOffset = 92
	datasetNameLen    = 64
	fileTypeOffset    = 156
	fileTypeLen       = 8

	dateCreatedOffset  = 164
	dateModifiedOffset = 172

	headerSizeOffset = 196

	pageSizeOffset  = 200
	pageCountOffset = 204

	sasReleaseOffset = 216
	sasReleaseLen    = 8

	pageBitOffsetX86 = 16
	pageBitOffsetX64 = 32

	subheaderPointerLenX86 = 12
	subheaderPointerLenX64 = 24

	minHeaderProbe = 288
)

// Header is a fully decoded SAS7BDAT/SAS7BCAT file header: everything
// needed to walk the page stream that follows it.
type Header struct {
	Endian               endian.EndianEngine
	Endianness           format.Endianness
	PointerWidth         format.PointerWidth
	PageSize             uint32
	PageCount            uint64
	PageHeaderSize       int
	SubheaderPointerSize int
	HeaderLength         uint32
	DataOffset           uint64
	Version              format.Version
	TableName            string
	FileEncoding         string
	Created              float64 // SAS epoch seconds, as stored; zero if unparseable
	Modified             float64
}

// ParseHeader reads and validates a SAS7BDAT/SAS7BCAT header from r,
// returning the geometry needed to walk the rest of the file.
func ParseHeader(r io.ReaderAt) (Header, error) {
	probe := make([]byte, minHeaderProbe)
	if _, err := r.ReadAt(probe, 0); err != nil {
		return Header{}, fmt.Errorf("sas7bdat: reading header: %w", err)
	}

	for i := range magic {
		if probe[i] != magic[i] {
			return Header{}, fmt.Errorf("%w: %w", errs.Corrupted(errs.SectionHeader, "signature mismatch"), errs.ErrBadMagic)
		}
	}

	var h Header

	uses64 := probe[align1Offset] == 0x33
	align1 := 0
	if probe[align2Offset] == 0x33 {
		align1 = 4
	}
	align2 := 0
	if uses64 {
		align2 = 4
	}
	totalAlign := align1 + align2

	if uses64 {
		h.PointerWidth = format.Pointer64
		h.PageHeaderSize = pageBitOffsetX64 + 8
		h.SubheaderPointerSize = subheaderPointerLenX64
	} else {
		h.PointerWidth = format.Pointer32
		h.PageHeaderSize = pageBitOffsetX86 + 8
		h.SubheaderPointerSize = subheaderPointerLenX86
	}

	if probe[endiannessOffset] == 0x01 {
		h.Endianness = format.LittleEndian
		h.Endian = endian.GetLittleEndianEngine()
	} else {
		h.Endianness = format.BigEndian
		h.Endian = endian.GetBigEndianEngine()
	}

	if name, ok := charset.SASEncodingName(probe[encodingOffset]); ok {
		h.FileEncoding = name
	}

	h.TableName = string(charset.TrimPadding(probe[datasetNameOffset : datasetNameOffset+datasetNameLen]))

	h.HeaderLength = bytesio.U32(h.Endian, probe[headerSizeOffset+align1:headerSizeOffset+align1+4])
	if h.HeaderLength < minHeaderProbe {
		return Header{}, errs.Corrupted(errs.SectionHeader, "header length smaller than fixed probe region")
	}

	full := make([]byte, h.HeaderLength)
	if _, err := r.ReadAt(full, 0); err != nil {
		return Header{}, fmt.Errorf("sas7bdat: reading full header: %w", err)
	}

	h.PageSize = bytesio.U32(h.Endian, full[pageSizeOffset+totalAlign:pageSizeOffset+totalAlign+4])
	pageCountRaw := bytesio.U32(h.Endian, full[pageCountOffset+totalAlign:pageCountOffset+totalAlign+4])
	h.PageCount = uint64(pageCountRaw)
	h.DataOffset = uint64(h.HeaderLength)

	release := charset.TrimPadding(full[sasReleaseOffset+totalAlign : sasReleaseOffset+totalAlign+sasReleaseLen])
	h.Version = parseVersion(string(release))

	if dateCreatedOffset+align1+8 <= len(full) {
		h.Created = bytesio.F64(h.Endian, full[dateCreatedOffset+align1:dateCreatedOffset+align1+8])
	}
	if dateModifiedOffset+align1+8 <= len(full) {
		h.Modified = bytesio.F64(h.Endian, full[dateModifiedOffset+align1:dateModifiedOffset+align1+8])
	}

	if h.PageSize == 0 {
		return Header{}, errs.Corrupted(errs.SectionHeader, "zero page size")
	}

	return h, nil
}

// parseVersion extracts "9.04.01M7"-shaped SAS release strings into their
// numeric components, tolerating the shorter and looser forms older files
// sometimes carry.
func parseVersion(release string) format.Version {
	var v format.Version
	var part, field int
	flush := func() {
		switch field {
		case 0:
			v.Major = uint16(part)
		case 1:
			v.Minor = uint16(part)
		case 2:
			v.Revision = uint16(part)
		}
		field++
		part = 0
	}

	for _, c := range release {
		switch {
		case c >= '0' && c <= '9':
			part = part*10 + int(c-'0')
		case c == '.':
			if field < 3 {
				flush()
			}
		default:
			if field < 3 {
				flush()
			}
			return v
		}
	}
	if field < 3 {
		flush()
	}

	return v
}
