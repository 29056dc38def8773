package compress

import (
	"fmt"

	"github.com/halvorsen/sas7bdat/internal/pool"
)

// rleCommandOperand gives, per 4-bit command nibble, how many extra input
// bytes the command consumes beyond its own control byte.
var rleCommandOperand = [16]int{1, 1, 0, 0, 2, 1, 1, 1, 0, 0, 0, 0, 1, 0, 0, 0}

// RLEDecompressor implements SAS's run-length row compression: a control
// byte's high nibble selects a copy-from-input or fill-with-byte command,
// and the low nibble folds into that command's length.
type RLEDecompressor struct{}

var _ Decompressor = RLEDecompressor{}

func (RLEDecompressor) Decompress(scratch *pool.ByteBuffer, data []byte, expectedLen int) ([]byte, error) {
	scratch.SetLength(0)
	scratch.ExtendOrGrow(expectedLen)
	out := scratch.Bytes()
	outPos := 0
	i := 0

	for i < len(data) {
		control := data[i]
		i++

		command := int(control >> 4)
		if command >= len(rleCommandOperand) {
			return nil, fmt.Errorf("compress: unknown RLE command %d", command)
		}
		nibble := int(control & 0x0F)
		if i+rleCommandOperand[command] > len(data) {
			return nil, fmt.Errorf("compress: RLE command exceeds input length")
		}

		var copyLen, insertLen int
		var insertByte byte

		switch command {
		case 0:
			next := int(data[i])
			i++
			copyLen = next + 64 + nibble*256
		case 1:
			next := int(data[i])
			i++
			copyLen = next + 64 + nibble*256 + 4096
		case 2:
			copyLen = nibble + 96
		case 4:
			next := int(data[i])
			i++
			insertLen = next + 18 + nibble*256
			insertByte = data[i]
			i++
		case 5:
			next := int(data[i])
			i++
			insertLen = next + 17 + nibble*256
			insertByte = '@'
		case 6:
			next := int(data[i])
			i++
			insertLen = next + 17 + nibble*256
			insertByte = ' '
		case 7:
			next := int(data[i])
			i++
			insertLen = next + 17 + nibble*256
			insertByte = 0
		case 8:
			copyLen = nibble + 1
		case 9:
			copyLen = nibble + 17
		case 10:
			copyLen = nibble + 33
		case 11:
			copyLen = nibble + 49
		case 12:
			insertByte = data[i]
			i++
			insertLen = nibble + 3
		case 13:
			insertLen = nibble + 2
			insertByte = '@'
		case 14:
			insertLen = nibble + 2
			insertByte = ' '
		case 15:
			insertLen = nibble + 2
			insertByte = 0
		default:
			return nil, fmt.Errorf("compress: unknown RLE command %d", command)
		}

		if copyLen > 0 {
			if outPos+copyLen > expectedLen {
				return nil, fmt.Errorf("compress: RLE copy exceeds output length")
			}
			if i+copyLen > len(data) {
				return nil, fmt.Errorf("compress: RLE copy exceeds input length")
			}
			copy(out[outPos:outPos+copyLen], data[i:i+copyLen])
			i += copyLen
			outPos += copyLen
		}

		if insertLen > 0 {
			if outPos+insertLen > expectedLen {
				return nil, fmt.Errorf("compress: RLE insert exceeds output length")
			}
			fillByte(out[outPos:outPos+insertLen], insertByte)
			outPos += insertLen
		}
	}

	if outPos != expectedLen {
		return nil, fmt.Errorf("compress: RLE output length mismatch: got %d, want %d", outPos, expectedLen)
	}

	return out, nil
}

func fillByte(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}
