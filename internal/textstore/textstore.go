// Package textstore holds the column-text blobs a SAS7BDAT file scatters
// across one or more "column text" subheaders, and resolves the (blob,
// offset, length) references the other subheader kinds point into it with.
package textstore

// Ref locates a run of bytes inside a Store: the index of the text blob it
// came from, a byte offset into that blob, and a length. Column name,
// format, and label fields are all recorded this way rather than inline,
// since SAS deduplicates repeated strings across columns.
type Ref struct {
	BlobIndex uint16
	Offset    uint16
	Length    uint16
}

// IsZero reports whether the reference points at an empty string, which SAS
// uses to mean "absent" for optional fields like format and label.
func (r Ref) IsZero() bool { return r.Length == 0 }

// Store accumulates the text blobs discovered while walking a file's
// subheaders, in the order the page scan encountered them.
type Store struct {
	blobs [][]byte
}

// New returns an empty Store.
func New() *Store { return &Store{} }

// Push appends a text blob, returning the index later Refs address it by.
func (s *Store) Push(blob []byte) int {
	s.blobs = append(s.blobs, blob)
	return len(s.blobs) - 1
}

// Len reports how many blobs have been pushed.
func (s *Store) Len() int { return len(s.blobs) }

// Resolve returns the raw bytes a Ref addresses, or false if the reference
// names a blob index or byte range the store doesn't have.
func (s *Store) Resolve(ref Ref) ([]byte, bool) {
	idx := int(ref.BlobIndex)
	if idx < 0 || idx >= len(s.blobs) {
		return nil, false
	}

	blob := s.blobs[idx]
	start := int(ref.Offset)
	end := start + int(ref.Length)
	if start < 0 || end > len(blob) || start > end {
		return nil, false
	}

	return blob[start:end], true
}
