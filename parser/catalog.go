package parser

import (
	"io"

	"github.com/halvorsen/sas7bdat/cell"
	"github.com/halvorsen/sas7bdat/dataset"
	"github.com/halvorsen/sas7bdat/endian"
	"github.com/halvorsen/sas7bdat/errs"
	"github.com/halvorsen/sas7bdat/format"
	"github.com/halvorsen/sas7bdat/internal/bytesio"
	"github.com/halvorsen/sas7bdat/internal/charset"
	"github.com/halvorsen/sas7bdat/internal/textstore"
	"github.com/halvorsen/sas7bdat/page"
	"github.com/halvorsen/sas7bdat/subheader"
)

// sigLabelSet32/64 marks a catalog label-set subheader: a format name
// followed by its value/label entries. It lives in the same all-F sentinel
// family as the dataset subheader signatures but never appears in a
// SAS7BDAT file, so catalogs get their own narrower recognizer rather than
// sharing identifySubheader's dispatch table.
const (
	sigLabelSet32 = 0xFFFFFFF7
	sigLabelSet64 = 0xFFFFFFFFFFFFFFF7
)

// labelSetHeaderLen is the fixed portion of a label-set subheader: its
// signature, a format-name text reference, a value-type byte (Numeric or
// Character, using the same codes column attributes subheaders use), one
// padding byte, and a uint16 entry count.
func labelSetHeaderLen(sigLen int) int { return sigLen + 6 + 1 + 1 + 2 }

const labelSetEntryWidth = 8 + 6 // 8-byte numeric key or string-key text ref, plus a 6-byte label text ref

// ParseCatalog reads a SAS7BCAT file, which shares its header and page
// container with SAS7BDAT but packs label-set subheaders instead of column
// metadata, into a dataset.Catalog.
func ParseCatalog(r io.ReaderAt) (dataset.Catalog, error) {
	header, err := ParseHeader(r)
	if err != nil {
		return dataset.Catalog{}, err
	}

	codec := charset.NewCodec(charset.Resolve(header.FileEncoding))
	text := textstore.New()
	sets := make(map[string]dataset.LabelSet)

	uses64 := header.PointerWidth == format.Pointer64
	sigLen := 4
	if uses64 {
		sigLen = 8
	}

	buf := make([]byte, header.PageSize)
	for pageIdx := uint64(0); pageIdx < header.PageCount; pageIdx++ {
		off := header.DataOffset + pageIdx*uint64(header.PageSize)
		if _, err := r.ReadAt(buf, int64(off)); err != nil {
			return dataset.Catalog{}, err
		}

		pg, err := page.Parse(buf, header.Endian, header.PageHeaderSize, header.SubheaderPointerSize, uses64)
		if err != nil {
			return dataset.Catalog{}, err
		}
		if pg.Kind != page.TypeMeta && pg.Kind != page.TypeMix && pg.Kind != page.TypeAMD {
			continue
		}

		pointers, err := pg.Pointers(header.Endian)
		if err != nil {
			return dataset.Catalog{}, err
		}

		for _, ptr := range pointers {
			if ptr.Compression == page.PointerCompressionTruncated || ptr.Length == 0 {
				continue
			}

			payload, err := pg.Payload(ptr)
			if err != nil {
				return dataset.Catalog{}, err
			}

			sig, ok := readSignature(header.Endian, payload, uses64)
			if !ok {
				continue
			}

			switch {
			case !uses64 && sig == sigColumnText:
				blob, err := subheader.ColumnText(payload, sigLen)
				if err != nil {
					return dataset.Catalog{}, err
				}
				text.Push(blob)
			case uses64 && sig == sigColumnText64:
				blob, err := subheader.ColumnText(payload, sigLen)
				if err != nil {
					return dataset.Catalog{}, err
				}
				text.Push(blob)
			case (!uses64 && sig == sigLabelSet32) || (uses64 && sig == sigLabelSet64):
				set, err := parseLabelSet(payload, header.Endian, uses64, sigLen, text, codec)
				if err != nil {
					return dataset.Catalog{}, err
				}
				sets[set.Name] = set
			}
		}
	}

	return dataset.Catalog{LabelSets: sets}, nil
}

func readSignature(e endian.EndianEngine, payload []byte, uses64 bool) (uint64, bool) {
	if uses64 {
		if len(payload) < 8 {
			return 0, false
		}
		return bytesio.U64(e, payload[0:8]), true
	}
	if len(payload) < 4 {
		return 0, false
	}
	return uint64(bytesio.U32(e, payload[0:4])), true
}

// numericLabelKey turns a label set's raw 8-byte numeric key into a
// dataset.ValueKey, recognizing the same tagged-missing bit pattern row
// decoding does (spec §4.8 step 3, §4.9): a catalog can register a label
// against a lettered special-missing value (".A") exactly as it would a
// normal number, and that registration is how AttachCatalog learns about
// tags that happen not to occur in the sampled rows themselves.
func numericLabelKey(bits uint64) dataset.ValueKey {
	if mv, isMissing := classifyMissingBits(bits); isMissing {
		if tagged, ok := mv.(cell.TaggedMissing); ok {
			return dataset.TaggedKey(tagged.Tag)
		}
	}

	return dataset.NumericKey(float64FromBits(bits))
}

func resolveCatalogText(text *textstore.Store, ref textstore.Ref, codec charset.Codec) string {
	raw, ok := text.Resolve(ref)
	if !ok {
		return ""
	}
	trimmed := charset.TrimPadding(raw)
	decoded, err := codec.String(string(trimmed))
	if err != nil {
		return string(trimmed)
	}
	return decoded
}

func parseLabelSet(payload []byte, e endian.EndianEngine, uses64 bool, sigLen int, text *textstore.Store, codec charset.Codec) (dataset.LabelSet, error) {
	headerLen := labelSetHeaderLen(sigLen)
	if len(payload) < headerLen {
		return dataset.LabelSet{}, errs.CorruptedSubheader("label set", "too short")
	}

	nameRef := subheader.ParseTextRef(e, payload[sigLen:sigLen+6])
	valueTypeByte := payload[sigLen+6]
	kind := format.Numeric
	if valueTypeByte == 2 {
		kind = format.Character
	}
	count := int(bytesio.U16(e, payload[sigLen+8:sigLen+10]))

	set := dataset.LabelSet{
		Name:      resolveCatalogText(text, nameRef, codec),
		ValueType: kind,
	}

	cursor := headerLen
	for i := 0; i < count && cursor+labelSetEntryWidth <= len(payload); i++ {
		var key dataset.ValueKey
		if kind == format.Character {
			keyRef := subheader.ParseTextRef(e, payload[cursor:cursor+6])
			key = dataset.StringKey(resolveCatalogText(text, keyRef, codec))
		} else {
			key = numericLabelKey(bytesio.U64(e, payload[cursor:cursor+8]))
		}

		labelRef := subheader.ParseTextRef(e, payload[cursor+8:cursor+14])
		label := resolveCatalogText(text, labelRef, codec)

		set.Labels = append(set.Labels, dataset.ValueLabel{Key: key, Label: label})
		cursor += labelSetEntryWidth
	}

	return set, nil
}

