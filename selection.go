package sas7bdat

import (
	"fmt"

	"github.com/halvorsen/sas7bdat/cell"
	"github.com/halvorsen/sas7bdat/dataset"
	"github.com/halvorsen/sas7bdat/errs"
)

// Selection narrows which rows and columns a row iterator produces: a
// starting offset, an optional row cap, and an optional column projection.
// The zero value selects every row and every column. Fields are exported
// for callers who want to build one by hand; the fluent setters below are
// the usual way to construct one (NewSelection().SkipRows(n).MaxRows(n)).
type Selection struct {
	SkipRowsCount uint64
	MaxRowsCount  *uint64
	ColumnIndices []int
	ColumnNames   []string
}

// NewSelection returns a Selection with no restrictions, ready to be
// narrowed with its fluent setters.
func NewSelection() Selection {
	return Selection{}
}

// SkipRows advances the starting position past the first n rows.
func (s Selection) SkipRows(n uint64) Selection {
	s.SkipRowsCount = n
	return s
}

// MaxRows caps the number of rows produced after skipping.
func (s Selection) MaxRows(n uint64) Selection {
	s.MaxRowsCount = &n
	return s
}

// Columns restricts the row to the given zero-based column indices, in the
// given order. Calling Columns replaces any prior ColumnNames projection.
func (s Selection) Columns(indices ...int) Selection {
	s.ColumnIndices = append([]int(nil), indices...)
	s.ColumnNames = nil
	return s
}

// WithColumnNames restricts the row to the named columns, in the given order.
// Names are matched the same way dataset.Metadata.ColumnIndex matches them:
// exact, or with trailing space/NUL padding trimmed. Calling WithColumnNames
// replaces any prior Columns projection.
func (s Selection) WithColumnNames(names ...string) Selection {
	s.ColumnNames = append([]string(nil), names...)
	s.ColumnIndices = nil
	return s
}

// projection is a resolved, validated column projection: the column indices
// to keep, in order, and nil when every column is kept.
type projection struct {
	indices []int
}

// resolve validates the Selection's column projection against md and
// returns the concrete index list a cursor should keep. Resolution happens
// once per iterator construction rather than per row.
func (s Selection) resolve(md dataset.Metadata) (projection, error) {
	switch {
	case s.ColumnNames != nil:
		return resolveNamedProjection(md, s.ColumnNames)
	case s.ColumnIndices != nil:
		return resolveIndexedProjection(md, s.ColumnIndices)
	default:
		return projection{}, nil
	}
}

func resolveNamedProjection(md dataset.Metadata, names []string) (projection, error) {
	seen := make(map[int]struct{}, len(names))
	indices := make([]int, 0, len(names))

	for _, name := range names {
		idx := md.ColumnIndex(name)
		if idx < 0 {
			return projection{}, fmt.Errorf("%w: %q", errs.ErrUnknownColumn, name)
		}
		if _, dup := seen[idx]; dup {
			return projection{}, fmt.Errorf("%w: %q", errs.ErrDuplicateColumn, name)
		}
		seen[idx] = struct{}{}
		indices = append(indices, idx)
	}

	return projection{indices: indices}, nil
}

func resolveIndexedProjection(md dataset.Metadata, raw []int) (projection, error) {
	seen := make(map[int]struct{}, len(raw))
	indices := make([]int, 0, len(raw))

	for _, idx := range raw {
		if idx < 0 || idx >= len(md.Variables) {
			return projection{}, fmt.Errorf("%w: %d", errs.ErrColumnOutOfRange, idx)
		}
		if _, dup := seen[idx]; dup {
			return projection{}, fmt.Errorf("%w: %d", errs.ErrDuplicateColumn, idx)
		}
		seen[idx] = struct{}{}
		indices = append(indices, idx)
	}

	return projection{indices: indices}, nil
}

// variables returns the projected subset of vars, in projection order. A
// nil projection (no restriction resolved) returns vars unchanged.
func (p projection) variables(vars []dataset.Variable) []dataset.Variable {
	if p.indices == nil {
		return vars
	}

	out := make([]dataset.Variable, len(p.indices))
	for i, idx := range p.indices {
		out[i] = vars[idx]
	}

	return out
}

// values returns the projected subset of a decoded row's cells, in the same
// order as variables. A nil projection returns row unchanged.
func (p projection) values(row []cell.Value) []cell.Value {
	if p.indices == nil {
		return row
	}

	out := make([]cell.Value, len(p.indices))
	for i, idx := range p.indices {
		out[i] = row[idx]
	}

	return out
}
