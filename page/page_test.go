package page

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPage assembles a minimal page buffer: a pageHeaderSize-byte header
// whose last 8 bytes hold (rawType, blockCount, subheaderCount), followed by
// pointerCount 10-byte (4-byte offset/length) pointer entries, followed by
// filler bytes out to total.
func buildPage(e binary.ByteOrder, pageHeaderSize int, rawType uint16, subheaderCount uint16, pointers [][2]uint32, compressions []byte, total int) []byte {
	buf := make([]byte, total)
	bitOffset := pageHeaderSize - 8
	e.PutUint16(buf[bitOffset:], rawType)
	e.PutUint16(buf[bitOffset+2:], 0) // blockCount, unused by these tests
	e.PutUint16(buf[bitOffset+4:], subheaderCount)

	cursor := pageHeaderSize
	for i, p := range pointers {
		e.PutUint32(buf[cursor:], p[0])
		e.PutUint32(buf[cursor+4:], p[1])
		buf[cursor+8] = compressions[i]
		buf[cursor+9] = 0 // Type, unused by these tests
		cursor += 10
	}

	return buf
}

func TestParse_ClassifiesPageType(t *testing.T) {
	e := binary.LittleEndian
	buf := buildPage(e, 40, 0x0100, 0, nil, nil, 64)

	pg, err := Parse(buf, e, 40, 10, false)
	require.NoError(t, err)
	assert.Equal(t, TypeData, pg.Kind)
	assert.Equal(t, uint16(0), pg.SubheaderCount)
}

func TestParse_ShorterThanHeaderIsCorrupted(t *testing.T) {
	e := binary.LittleEndian
	_, err := Parse(make([]byte, 10), e, 40, 10, false)
	require.Error(t, err)
}

func TestDataStart_DataPageIsJustPastHeader(t *testing.T) {
	e := binary.LittleEndian
	buf := buildPage(e, 40, 0x0100, 0, nil, nil, 64)

	pg, err := Parse(buf, e, 40, 10, false)
	require.NoError(t, err)
	assert.Equal(t, 40, pg.DataStart())
}

func TestDataStartFrom_DataPageMatchesDataStart(t *testing.T) {
	e := binary.LittleEndian
	buf := buildPage(e, 40, 0x0100, 0, nil, nil, 64)

	pg, err := Parse(buf, e, 40, 10, false)
	require.NoError(t, err)

	pointers, err := pg.Pointers(e)
	require.NoError(t, err)
	assert.Equal(t, pg.DataStart(), pg.DataStartFrom(pointers))
}

func TestDataStartFrom_MixPageWidensPastSubheaderBodies(t *testing.T) {
	e := binary.LittleEndian
	// pointer table: headerSize(40) + 2*10 = 60. One subheader body runs
	// from byte 60 to byte 90 (30 bytes) -- well past the pointer table,
	// so DataStartFrom must widen to accommodate it, then round up to 8.
	pointers := [][2]uint32{
		{60, 30},
		{0, 0}, // truncated pointer, excluded from the scan
	}
	compressions := []byte{PointerCompressionNone, PointerCompressionTruncated}
	buf := buildPage(e, 40, 0x0200, 2, pointers, compressions, 128)

	pg, err := Parse(buf, e, 40, 10, false)
	require.NoError(t, err)
	assert.Equal(t, TypeMix, pg.Kind)
	assert.Equal(t, 60, pg.DataStart())

	parsed, err := pg.Pointers(e)
	require.NoError(t, err)
	require.Len(t, parsed, 2)

	got := pg.DataStartFrom(parsed)
	// 90 rounds up to the next 8-byte boundary.
	assert.Equal(t, 96, got)
}

func TestDataStartFrom_RoundsUpToEightByteBoundary(t *testing.T) {
	e := binary.LittleEndian
	pointers := [][2]uint32{
		{60, 25}, // ends at 85, not 8-aligned
	}
	compressions := []byte{PointerCompressionNone}
	buf := buildPage(e, 40, 0x0200, 1, pointers, compressions, 128)

	pg, err := Parse(buf, e, 40, 10, false)
	require.NoError(t, err)

	parsed, err := pg.Pointers(e)
	require.NoError(t, err)

	got := pg.DataStartFrom(parsed)
	assert.Equal(t, 88, got) // 85 rounded up to the next multiple of 8
}

func TestDataStartFrom_IgnoresCompressedRowPointers(t *testing.T) {
	e := binary.LittleEndian
	// A compressed-row pointer addresses row payload bytes, not a
	// subheader body; it must not push DataStartFrom's floor outward.
	pointers := [][2]uint32{
		{60, 10},
		{200, 500}, // compressed row data, far past any subheader body
	}
	compressions := []byte{PointerCompressionNone, PointerCompressionCompressed}
	buf := buildPage(e, 40, 0x0200, 2, pointers, compressions, 1024)

	pg, err := Parse(buf, e, 40, 10, false)
	require.NoError(t, err)

	parsed, err := pg.Pointers(e)
	require.NoError(t, err)

	got := pg.DataStartFrom(parsed)
	assert.Equal(t, 72, got) // max(60+10=70) rounded up to 72, not 700
}

func TestPointers_TruncatedTableIsCorrupted(t *testing.T) {
	e := binary.LittleEndian
	buf := buildPage(e, 40, 0x0200, 3, [][2]uint32{{0, 0}}, []byte{PointerCompressionNone}, 48)

	pg, err := Parse(buf, e, 40, 10, false)
	require.NoError(t, err)

	_, err = pg.Pointers(e)
	require.Error(t, err)
}

func TestPayload_OutOfBoundsIsCorrupted(t *testing.T) {
	e := binary.LittleEndian
	buf := buildPage(e, 40, 0x0100, 0, nil, nil, 64)

	pg, err := Parse(buf, e, 40, 10, false)
	require.NoError(t, err)

	_, err = pg.Payload(Pointer{Offset: 60, Length: 100})
	require.Error(t, err)
}
