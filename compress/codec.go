// Package compress implements the two row-compression codecs SAS7BDAT
// files use: RLE (simple run-length encoding) and RDC (Ross Data
// Compression, a variant of LZRW with an inline bit-prefix).
//
// Unlike general-purpose compressors, a SAS row's decompressed length is
// always known in advance (it's the dataset's fixed row length), so
// Decompress takes it rather than discovering it from the stream.
package compress

import (
	"fmt"

	"github.com/halvorsen/sas7bdat/format"
	"github.com/halvorsen/sas7bdat/internal/pool"
)

// Decompressor expands one compressed row into exactly expectedLen bytes.
// scratch is a caller-owned buffer the decompressor may grow and reuse
// across calls instead of allocating a fresh output slice every row; its
// contents are undefined on entry and overwritten in full. For RLE and RDC
// the returned slice aliases scratch's backing array and is only valid until
// the next call to Decompress with the same scratch buffer;
// NoOpDecompressor leaves scratch untouched and returns data itself.
type Decompressor interface {
	Decompress(scratch *pool.ByteBuffer, data []byte, expectedLen int) ([]byte, error)
}

// ForCompression returns the Decompressor for a row size subheader's
// recorded compression kind.
func ForCompression(c format.Compression) (Decompressor, error) {
	switch c {
	case format.CompressionNone:
		return NoOpDecompressor{}, nil
	case format.CompressionRLE:
		return RLEDecompressor{}, nil
	case format.CompressionRDC:
		return RDCDecompressor{}, nil
	default:
		return nil, fmt.Errorf("compress: unsupported row compression %s", c)
	}
}
