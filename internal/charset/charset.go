// Package charset resolves the encoding label stored in a SAS7BDAT header
// (e.g. "WLATIN1", "UTF-8", "MACROMAN") to a golang.org/x/text/encoding
// codec, and trims the trailing NUL/space padding SAS uses for fixed-width
// text fields.
package charset

import (
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

// macAliases maps SAS's "MacXxx" encoding labels to a WHATWG label that
// htmlindex recognizes. x/text/encoding/charmap only ships Macintosh and
// MacintoshCyrillic codecs; the remaining legacy Mac code pages fall back to
// plain Macintosh, which is the closest available approximation for the
// Latin-alphabet variants and is still strictly better than refusing to
// decode at all.
var macAliases = map[string]string{
	"macroman":    "macintosh",
	"maccyrillic": "x-mac-cyrillic",
	"macarabic":   "macintosh",
	"machebrew":   "macintosh",
	"macgreek":    "macintosh",
	"macthai":     "macintosh",
	"macturkish":  "macintosh",
	"macukraine":  "macintosh",
	"maciceland":  "macintosh",
	"maccroatian": "macintosh",
	"macromania":  "macintosh",
}

// explicit holds codecs htmlindex either doesn't carry under the labels SAS
// uses, or that we want pinned rather than resolved through the WHATWG
// table.
var explicit = map[string]encoding.Encoding{
	"x-mac-cyrillic": charmap.MacintoshCyrillic,
	"macintosh":      charmap.Macintosh,
	"shift_jis":      japanese.ShiftJIS,
	"euc-jp":         japanese.EUCJP,
	"euc-kr":         korean.EUCKR,
	"gbk":            simplifiedchinese.GBK,
	"gb18030":        simplifiedchinese.GB18030,
	"big5":           traditionalchinese.Big5,
}

// Resolve maps a SAS encoding label to a codec. An empty, blank, or
// unrecognized label resolves to UTF-8 (encoding.Nop), matching SAS's own
// fallback when no encoding was recorded.
func Resolve(label string) encoding.Encoding {
	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		return encoding.Nop
	}

	if enc, ok := tryLabel(trimmed); ok {
		return enc
	}

	lower := strings.ToLower(trimmed)
	if enc, ok := tryLabel(lower); ok {
		return enc
	}

	if enc, ok := tryLabel(strings.ReplaceAll(lower, "_", "-")); ok {
		return enc
	}

	if alias, ok := macAliases[lower]; ok {
		if enc, ok := tryLabel(alias); ok {
			return enc
		}
	}

	return encoding.Nop
}

func tryLabel(label string) (encoding.Encoding, bool) {
	if enc, ok := explicit[label]; ok {
		return enc, true
	}

	if enc, err := htmlindex.Get(label); err == nil {
		return enc, true
	}

	return nil, false
}

// Codec decodes bytes in a dataset's declared encoding into UTF-8 strings.
type Codec struct {
	dec *encoding.Decoder
}

// NewCodec wraps a resolved encoding for repeated String conversions.
func NewCodec(enc encoding.Encoding) Codec {
	return Codec{dec: enc.NewDecoder()}
}

// String decodes s (interpreted as bytes in the codec's source encoding)
// into UTF-8.
func (c Codec) String(s string) (string, error) {
	if c.dec == nil {
		return s, nil
	}

	return c.dec.String(s)
}

// TrimPadding drops the trailing run of NUL and space bytes SAS pads
// fixed-width text fields with.
func TrimPadding(b []byte) []byte {
	end := len(b)
	for end > 0 && (b[end-1] == 0 || b[end-1] == ' ') {
		end--
	}

	return b[:end]
}
