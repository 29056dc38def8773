package compress

import (
	"fmt"

	"github.com/halvorsen/sas7bdat/internal/pool"
)

// RDCDecompressor implements SAS's Ross Data Compression row codec: a
// 16-bit big-endian prefix precedes every 16 tokens, with each prefix bit
// selecting between a literal byte and a back-reference/fill marker pair.
type RDCDecompressor struct{}

var _ Decompressor = RDCDecompressor{}

func (RDCDecompressor) Decompress(scratch *pool.ByteBuffer, data []byte, expectedLen int) ([]byte, error) {
	scratch.SetLength(0)
	scratch.ExtendOrGrow(expectedLen)
	out := scratch.Bytes()
	outPos := 0
	i := 0

	for i+2 <= len(data) {
		prefix := uint16(data[i])<<8 | uint16(data[i+1])
		i += 2

		for bit := 0; bit < 16; bit++ {
			if prefix&(1<<(15-bit)) == 0 {
				if i >= len(data) {
					break
				}
				if outPos >= expectedLen {
					return nil, fmt.Errorf("compress: RDC output overflow")
				}
				out[outPos] = data[i]
				outPos++
				i++
				continue
			}

			if i+2 > len(data) {
				return nil, fmt.Errorf("compress: RDC marker exceeds input")
			}
			marker := data[i]
			next := data[i+1]
			i += 2

			var insertLen, copyLen, backOffset int
			var insertByte byte

			switch {
			case marker <= 0x0F:
				insertLen = 3 + int(marker)
				insertByte = next
			case marker>>4 == 1:
				if i >= len(data) {
					return nil, fmt.Errorf("compress: RDC insert length exceeds input")
				}
				insertLen = 19 + int(marker&0x0F) + int(next)*16
				insertByte = data[i]
				i++
			case marker>>4 == 2:
				if i >= len(data) {
					return nil, fmt.Errorf("compress: RDC copy length exceeds input")
				}
				copyLen = 16 + int(data[i])
				i++
				backOffset = 3 + int(marker&0x0F) + int(next)*16
			default:
				copyLen = int(marker >> 4)
				backOffset = 3 + int(marker&0x0F) + int(next)*16
			}

			switch {
			case insertLen > 0:
				if outPos+insertLen > expectedLen {
					return nil, fmt.Errorf("compress: RDC insert exceeds output length")
				}
				fillByte(out[outPos:outPos+insertLen], insertByte)
				outPos += insertLen
			case copyLen > 0:
				if backOffset == 0 || outPos < backOffset || outPos+copyLen > expectedLen {
					return nil, fmt.Errorf("compress: RDC copy invalid")
				}
				// copyLen may exceed backOffset: the source region can run into
				// bytes this same loop is still writing. Copy byte-by-byte (not
				// via a bulk slice copy) so that self-overlap replicates forward.
				start := outPos - backOffset
				for j := 0; j < copyLen; j++ {
					out[outPos+j] = out[start+j]
				}
				outPos += copyLen
			}
		}
	}

	if outPos != expectedLen {
		return nil, fmt.Errorf("compress: RDC output length mismatch: got %d, want %d", outPos, expectedLen)
	}

	return out, nil
}
