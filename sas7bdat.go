// Package sas7bdat decodes SAS7BDAT datasets and their companion SAS7BCAT
// value-label catalogs.
//
// # Core Features
//
//   - Header, page, and subheader discovery across 32-bit and 64-bit,
//     little- and big-endian SAS7BDAT files
//   - Column metadata assembly (names, formats, labels, measurement level)
//   - Row materialization with RLE and RDC row decompression
//   - SAS7BCAT value-label catalog attachment, including "$"-prefixed
//     character-format fallback matching
//   - Missing-value policy inference by scanning observed row data
//   - Row projection (by name or index) and windowing (skip/max row counts)
//   - ReaderOption construction hooks (WithCharsetOverride) for files whose
//     declared encoding can't be trusted
//
// # Basic Usage
//
//	r, err := sas7bdat.Open("clinical.sas7bdat")
//	if err != nil {
//	    return err
//	}
//	defer r.Close()
//
//	if err := r.AttachCatalog("clinical.sas7bcat"); err != nil {
//	    return err
//	}
//
//	it, err := r.Rows()
//	if err != nil {
//	    return err
//	}
//	for {
//	    row, ok, err := it.TryNext()
//	    if err != nil {
//	        return err
//	    }
//	    if !ok {
//	        break
//	    }
//	    name, _, _ := row.GetString("SUBJID")
//	    fmt.Println(name)
//	}
//
// # Package Structure
//
// This package is a thin facade over parser, dataset, cell, and subheader,
// which do the actual byte-level decoding. Reach for those directly when
// the facade's row/projection model doesn't fit (e.g. driving the page
// walk manually).
package sas7bdat

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/halvorsen/sas7bdat/cell"
	"github.com/halvorsen/sas7bdat/dataset"
	"github.com/halvorsen/sas7bdat/errs"
	"github.com/halvorsen/sas7bdat/internal/options"
	"github.com/halvorsen/sas7bdat/parser"
	"github.com/halvorsen/sas7bdat/sink"
)

// Reader is an opened SAS7BDAT dataset: its resolved metadata, plus enough
// state to mint row iterators against the underlying file.
//
// A Reader is not safe for concurrent row iteration: only one RowIterator
// may be active at a time, enforced by ErrIteratorBusy. Concurrent
// metadata reads (Metadata, the various Select/Rows constructors' argument
// validation) are safe.
type Reader struct {
	mu              sync.Mutex
	src             io.ReaderAt
	closer          io.Closer
	header          parser.Header
	md              dataset.Metadata
	busy            bool
	charsetOverride string
}

// Open opens the SAS7BDAT file at path and parses its header and column
// metadata.
func Open(path string, opts ...ReaderOption) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	r, err := newReader(f, f, opts)
	if err != nil {
		f.Close()
		return nil, err
	}

	return r, nil
}

// OpenReader parses header and column metadata from an already-open
// SAS7BDAT stream. The caller retains ownership of r and must close it
// themselves; Reader.Close is a no-op in this case.
func OpenReader(r io.ReadSeeker, opts ...ReaderOption) (*Reader, error) {
	ra, ok := r.(io.ReaderAt)
	if !ok {
		ra = newSeekerReaderAt(r)
	}

	return newReader(ra, nil, opts)
}

func newReader(ra io.ReaderAt, closer io.Closer, opts []ReaderOption) (*Reader, error) {
	layout, err := parser.ParseMetadata(ra)
	if err != nil {
		return nil, err
	}

	r := &Reader{
		src:    ra,
		closer: closer,
		header: layout.Header,
		md:     layout.Metadata,
	}

	if err := options.Apply(r, opts...); err != nil {
		return nil, err
	}

	return r, nil
}

// effectiveHeader returns the header a cursor should be built against:
// r.header, with charsetOverride substituted for FileEncoding if one was
// given at construction time via WithCharsetOverride.
func (r *Reader) effectiveHeader() parser.Header {
	if r.charsetOverride == "" {
		return r.header
	}

	h := r.header
	h.FileEncoding = r.charsetOverride

	return h
}

// Close releases the file Open opened. It is a no-op for a Reader built
// with OpenReader.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}

	return r.closer.Close()
}

// Metadata returns the dataset's resolved column metadata. The returned
// value is a copy; mutating it does not affect the Reader.
func (r *Reader) Metadata() dataset.Metadata {
	return r.md
}

// AttachCatalog parses a SAS7BCAT file and merges its value-label sets into
// the Reader's metadata, folding catalog-declared special-missing markers
// into each matched column's missing-value policy, then rescans the dataset
// with ScanMissingPolicies to record the missing values its rows contain.
func (r *Reader) AttachCatalog(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return r.AttachCatalogReader(f)
}

// AttachCatalogReader is AttachCatalog for an already-open catalog stream.
func (r *Reader) AttachCatalogReader(cat io.ReadSeeker) error {
	ra, ok := cat.(io.ReaderAt)
	if !ok {
		ra = newSeekerReaderAt(cat)
	}

	catalog, err := parser.ParseCatalog(ra)
	if err != nil {
		return err
	}

	r.md.ApplyCatalog(catalog)

	return r.ScanMissingPolicies()
}

// ScanMissingPolicies walks every row of the dataset once, recording which
// missing-value flavors (system, tagged, ranged) actually occur in each
// column. It is called automatically by AttachCatalog, but can be invoked
// directly to refresh missing-value policies without a catalog.
func (r *Reader) ScanMissingPolicies() error {
	if err := r.lock(); err != nil {
		return err
	}
	defer r.unlock()

	cur, err := parser.NewCursor(r.src, r.effectiveHeader(), r.md)
	if err != nil {
		return err
	}

	for {
		row, ok, err := cur.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		for i, v := range row {
			mv, isMissing := v.(cell.Missing)
			if !isMissing {
				continue
			}
			recordMissingObservation(&r.md.Variables[i].Missing, mv.Value)
		}
	}

	dedupMissingPolicies(r.md.Variables)

	return nil
}

func (r *Reader) lock() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.busy {
		return errs.ErrIteratorBusy
	}
	r.busy = true

	return nil
}

func (r *Reader) unlock() {
	r.mu.Lock()
	r.busy = false
	r.mu.Unlock()
}

// Rows returns an iterator over every row and every column.
//
// Every iterator this facade hands out, regardless of which constructor
// produced it, decodes lazily one row at a time: there is no buffered,
// whole-dataset variant to distinguish "rows" from "streaming rows" the
// way the format this package is modeled on does. RowsNamed, StreamRows,
// and StreamRowsWithProjection exist alongside Rows/RowsWithProjection for
// parity with that API and simply delegate to the same RowIterator.
func (r *Reader) Rows() (*RowIterator, error) {
	return r.SelectWith(NewSelection())
}

// RowsNamed returns an iterator over every row and every column, for
// callers who intend to look values up with Row.Get rather than Row.At.
func (r *Reader) RowsNamed() (*RowIterator, error) {
	return r.Rows()
}

// StreamRows is Rows; see the note on Rows.
func (r *Reader) StreamRows() (*RowIterator, error) {
	return r.Rows()
}

// RowsWithProjection returns an iterator restricted to the named columns,
// in the given order.
func (r *Reader) RowsWithProjection(names []string) (*RowIterator, error) {
	return r.SelectWith(NewSelection().WithColumnNames(names...))
}

// StreamRowsWithProjection is RowsWithProjection; see the note on Rows.
func (r *Reader) StreamRowsWithProjection(names []string) (*RowIterator, error) {
	return r.RowsWithProjection(names)
}

// SelectColumns returns an iterator restricted to the given zero-based
// column indices, in the given order.
func (r *Reader) SelectColumns(indices []int) (*RowIterator, error) {
	return r.SelectWith(NewSelection().Columns(indices...))
}

// RowsWindowed returns an iterator configured by sel's row-skip/row-cap
// bounds, every column included. It is SelectWith under a name matching
// this format's row-windowing vocabulary.
func (r *Reader) RowsWindowed(sel Selection) (*RowIterator, error) {
	return r.SelectWith(sel)
}

// SelectWith returns an iterator configured by an arbitrary Selection,
// combining row windowing and column projection.
func (r *Reader) SelectWith(sel Selection) (*RowIterator, error) {
	proj, err := sel.resolve(r.md)
	if err != nil {
		return nil, err
	}

	if err := r.lock(); err != nil {
		return nil, err
	}

	cur, err := parser.NewCursor(r.src, r.effectiveHeader(), r.md)
	if err != nil {
		r.unlock()
		return nil, err
	}

	it := &RowIterator{
		reader: r,
		cursor: cur,
		proj:   proj,
		vars:   proj.variables(r.md.Variables),
		skip:   sel.SkipRowsCount,
		max:    sel.MaxRowsCount,
	}

	return it, nil
}

// StreamInto drives every row of the dataset (optionally projected by sel)
// into dst, closing the iterator when done or on first error.
func (r *Reader) StreamInto(dst sink.RowSink, sel Selection) error {
	it, err := r.SelectWith(sel)
	if err != nil {
		return err
	}
	defer it.Close()

	ctx := sink.Context{Metadata: r.md, Columns: it.vars}
	if err := dst.Begin(ctx); err != nil {
		return err
	}

	for {
		row, ok, err := it.TryNext()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		if err := dst.WriteRow(row.Values()); err != nil {
			return err
		}
	}

	return dst.Close()
}

// RowIterator produces successive rows from a Reader, honoring whatever
// Selection it was constructed with. Only one RowIterator may be open on a
// Reader at a time; call Close to release it.
type RowIterator struct {
	reader *Reader
	cursor *parser.Cursor
	proj   projection
	vars   []dataset.Variable

	skip    uint64
	skipped bool
	max     *uint64
	emitted uint64
	closed  bool
}

// TryNext decodes the next row in the iterator's window, reporting
// ok=false once the window or the dataset is exhausted.
func (it *RowIterator) TryNext() (Row, bool, error) {
	if it.closed {
		return Row{}, false, fmt.Errorf("sas7bdat: iterator is closed")
	}

	if !it.skipped {
		for i := uint64(0); i < it.skip; i++ {
			if _, ok, err := it.cursor.Next(); err != nil {
				return Row{}, false, err
			} else if !ok {
				it.skipped = true
				return Row{}, false, nil
			}
		}
		it.skipped = true
	}

	if it.max != nil && it.emitted >= *it.max {
		return Row{}, false, nil
	}

	values, ok, err := it.cursor.Next()
	if err != nil || !ok {
		return Row{}, ok, err
	}
	it.emitted++

	return Row{vars: it.vars, values: it.proj.values(values)}, true, nil
}

// Close releases the Reader's exclusive iterator slot. It is safe to call
// more than once.
func (it *RowIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	it.reader.unlock()

	return nil
}

// seekerReaderAt adapts an io.ReadSeeker without its own ReadAt into
// io.ReaderAt by serializing seek+read pairs. Every call restores the
// stream's prior position first isn't needed here since ParseMetadata and
// RowIterator only ever issue sequential, already-offset reads through it.
type seekerReaderAt struct {
	mu sync.Mutex
	rs io.ReadSeeker
}

func newSeekerReaderAt(rs io.ReadSeeker) *seekerReaderAt {
	return &seekerReaderAt{rs: rs}
}

func (s *seekerReaderAt) ReadAt(p []byte, off int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.rs.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}

	return io.ReadFull(s.rs, p)
}
