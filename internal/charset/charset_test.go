package charset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

func TestResolve_EmptyLabelFallsBackToUTF8(t *testing.T) {
	assert.Equal(t, encoding.Nop, Resolve(""))
	assert.Equal(t, encoding.Nop, Resolve("   "))
}

func TestResolve_UnknownLabelFallsBackToUTF8(t *testing.T) {
	assert.Equal(t, encoding.Nop, Resolve("not-a-real-encoding"))
}

func TestResolve_KnownLabel(t *testing.T) {
	enc := Resolve("WINDOWS-1252")
	assert.Equal(t, charmap.Windows1252, enc)
}

func TestResolve_MacAlias(t *testing.T) {
	enc := Resolve("MACROMAN")
	assert.Equal(t, charmap.Macintosh, enc)
}

func TestResolve_CaseInsensitive(t *testing.T) {
	upper := Resolve("SHIFT_JIS")
	lower := Resolve("shift_jis")
	assert.Equal(t, upper, lower)
	assert.NotEqual(t, encoding.Nop, upper)
}

func TestCodec_String_RoundTripsASCII(t *testing.T) {
	codec := NewCodec(Resolve(""))

	out, err := codec.String("hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestTrimPadding(t *testing.T) {
	assert.Equal(t, []byte("abc"), TrimPadding([]byte("abc  \x00\x00")))
	assert.Equal(t, []byte(""), TrimPadding([]byte("   ")))
	assert.Equal(t, []byte("a b"), TrimPadding([]byte("a b")))
}
