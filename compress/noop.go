package compress

import (
	"fmt"

	"github.com/halvorsen/sas7bdat/internal/pool"
)

// NoOpDecompressor handles uncompressed rows: the stored bytes already are
// the row.
type NoOpDecompressor struct{}

var _ Decompressor = NoOpDecompressor{}

func (NoOpDecompressor) Decompress(_ *pool.ByteBuffer, data []byte, expectedLen int) ([]byte, error) {
	if len(data) != expectedLen {
		return nil, fmt.Errorf("compress: uncompressed row length mismatch: got %d, want %d", len(data), expectedLen)
	}

	return data, nil
}
