package parser

import (
	"math"
	"time"

	"github.com/halvorsen/sas7bdat/cell"
	"github.com/halvorsen/sas7bdat/compress"
	"github.com/halvorsen/sas7bdat/dataset"
	"github.com/halvorsen/sas7bdat/endian"
	"github.com/halvorsen/sas7bdat/format"
	"github.com/halvorsen/sas7bdat/internal/bytesio"
	"github.com/halvorsen/sas7bdat/internal/charset"
	"github.com/halvorsen/sas7bdat/internal/collision"
	"github.com/halvorsen/sas7bdat/internal/hash"
	"github.com/halvorsen/sas7bdat/internal/pool"
)

// sasEpoch is the zero point every SAS date, time, and datetime value
// counts from.
var sasEpoch = time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC)

// RowDecoder converts one row's raw, already-decompressed bytes into a
// slice of cell.Value, one per column.
//
// Character columns are interned through a small per-decoder cache keyed
// by the xxHash of their raw bytes: SAS datasets frequently repeat the same
// short strings (codes, categories) across many rows, and sharing those
// Go strings avoids re-allocating them on every row. A collision.Tracker
// guards the cache against the rare case where two distinct raw values hash
// to the same bucket, so a collision can never surface as a silently wrong
// interned string. scratch is a reused decompression output buffer: every
// Decompress call overwrites it in place instead of allocating a fresh
// expectedLen-sized slice per row.
type RowDecoder struct {
	engine  endian.EndianEngine
	vars    []dataset.Variable
	codec   charset.Codec
	decomp  compress.Decompressor
	rowLen  int
	intern  map[uint64]string
	collide *collision.Tracker
	scratch *pool.ByteBuffer
}

// NewRowDecoder builds a decoder for a dataset's row layout.
func NewRowDecoder(e endian.EndianEngine, vars []dataset.Variable, codec charset.Codec, comp format.Compression, rowLen int) (*RowDecoder, error) {
	decomp, err := compress.ForCompression(comp)
	if err != nil {
		return nil, err
	}

	return &RowDecoder{
		engine:  e,
		vars:    vars,
		codec:   codec,
		decomp:  decomp,
		rowLen:  rowLen,
		intern:  make(map[uint64]string),
		collide: collision.NewTracker(),
		scratch: pool.NewByteBuffer(rowLen),
	}, nil
}

// Decode expands raw (a page's row bytes, compressed or not) and converts
// every column into a cell.Value.
func (d *RowDecoder) Decode(raw []byte) ([]cell.Value, error) {
	row, err := d.decomp.Decompress(d.scratch, raw, d.rowLen)
	if err != nil {
		return nil, err
	}

	out := make([]cell.Value, len(d.vars))
	for i, v := range d.vars {
		out[i] = d.decodeColumn(v, row)
	}

	return out, nil
}

func (d *RowDecoder) decodeColumn(v dataset.Variable, row []byte) cell.Value {
	offset := int(v.Offset)
	width := v.StorageWidth
	if offset < 0 || width <= 0 || offset+width > len(row) {
		return cell.Missing{Value: cell.SystemMissing{}}
	}
	field := row[offset : offset+width]

	if v.Kind == format.Character {
		return d.decodeCharacter(field)
	}

	return d.decodeNumeric(v, field)
}

func (d *RowDecoder) decodeCharacter(field []byte) cell.Value {
	trimmed := charset.TrimPadding(field)
	if len(trimmed) == 0 {
		return cell.Str("")
	}

	raw := string(trimmed)
	h := hash.ID(raw)

	if d.collide.Check(h, raw) {
		decoded, err := d.codec.String(raw)
		if err != nil {
			decoded = raw
		}

		return cell.Str(decoded)
	}

	if s, ok := d.intern[h]; ok {
		return cell.Str(s)
	}

	decoded, err := d.codec.String(raw)
	if err != nil {
		decoded = raw
	}
	d.intern[h] = decoded

	return cell.Str(decoded)
}

func (d *RowDecoder) decodeNumeric(v dataset.Variable, field []byte) cell.Value {
	bits := bytesio.PaddedBits(d.engine, field, len(field))

	if mv, isMissing := classifyMissingBits(bits); isMissing {
		return cell.Missing{Value: mv}
	}

	value := float64FromBits(bits)

	switch v.NumericKind {
	case format.NumericDate:
		return cell.Date(sasEpoch.AddDate(0, 0, int(value)))
	case format.NumericDateTime:
		return cell.DateTime(sasEpoch.Add(time.Duration(value * float64(time.Second))))
	case format.NumericTime:
		return cell.Time(time.Duration(value * float64(time.Second)))
	default:
		if iv, ok := asPreferredInteger(v, value); ok {
			return iv
		}
		return cell.Float(value)
	}
}

// asPreferredInteger reports whether value should be materialized as an
// Int32/Int64 rather than a Float: the variable's format must declare zero
// decimals (an explicit hint that the column displays as an integer, not
// just a double that happens to hold a round number), and the value itself
// must be integral and representable without loss.
func asPreferredInteger(v dataset.Variable, value float64) (cell.Value, bool) {
	if v.Format == nil || v.Format.Decimals == nil || *v.Format.Decimals != 0 {
		return nil, false
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || math.Trunc(value) != value {
		return nil, false
	}

	switch {
	case value >= math.MinInt32 && value <= math.MaxInt32:
		return cell.Int32(int32(value)), true
	case value >= math.MinInt64 && value < math.MaxInt64:
		return cell.Int64(int64(value)), true
	default:
		return nil, false
	}
}

// classifyMissingBits reports whether a padded 8-byte bit pattern is one of
// SAS's missing-value encodings: the low 56 bits all zero and the high
// byte naming the missing kind ('.' for system missing, 'A'-'Z' for a
// tagged missing, '_' for the underscore special-missing).
func classifyMissingBits(bits uint64) (cell.MissingValue, bool) {
	if bits&0x00FFFFFFFFFFFFFF != 0 {
		return nil, false
	}

	tag := byte(bits >> 56)
	switch {
	case tag == 0:
		return nil, false
	case tag == '.':
		return cell.SystemMissing{}, true
	case tag == '_':
		return cell.TaggedMissing{Tag: '_'}, true
	case tag >= 'A' && tag <= 'Z':
		return cell.TaggedMissing{Tag: rune(tag)}, true
	default:
		return nil, false
	}
}

func float64FromBits(bits uint64) float64 {
	return math.Float64frombits(bits)
}
