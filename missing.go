package sas7bdat

import (
	"github.com/halvorsen/sas7bdat/cell"
	"github.com/halvorsen/sas7bdat/dataset"
)

// recordMissingObservation folds one decoded missing cell into a column's
// running missing-value policy: which sentinel flavor was seen, and (for
// tagged/ranged flavors) which specific tag or boundary pair.
func recordMissingObservation(policy *dataset.MissingPolicy, mv cell.MissingValue) {
	switch m := mv.(type) {
	case cell.SystemMissing:
		policy.SystemMissing = true

	case cell.TaggedMissing:
		if m.Tag == '_' {
			policy.SystemMissing = true
		}
		if !hasTaggedMissing(policy.Tagged, m.Tag) {
			policy.Tagged = append(policy.Tagged, dataset.TaggedMissing{Tag: m.Tag, Literal: m.Literal})
		}

	case cell.RangeMissing:
		rng, ok := missingRangeFrom(m)
		if !ok {
			return
		}
		if !hasMissingRange(policy.Ranges, rng) {
			policy.Ranges = append(policy.Ranges, rng)
		}
	}
}

func missingRangeFrom(m cell.RangeMissing) (dataset.MissingRange, bool) {
	switch lower := m.Lower.(type) {
	case dataset.NumericLiteral:
		upper, ok := m.Upper.(dataset.NumericLiteral)
		if !ok {
			return nil, false
		}
		return dataset.NumericRange{Start: float64(lower), End: float64(upper)}, true
	case dataset.StringLiteral:
		upper, ok := m.Upper.(dataset.StringLiteral)
		if !ok {
			return nil, false
		}
		return dataset.StringRange{Start: string(lower), End: string(upper)}, true
	default:
		return nil, false
	}
}

func hasTaggedMissing(tagged []dataset.TaggedMissing, tag rune) bool {
	for _, t := range tagged {
		if t.Tag == tag {
			return true
		}
	}

	return false
}

func hasMissingRange(ranges []dataset.MissingRange, r dataset.MissingRange) bool {
	for _, existing := range ranges {
		if existing == r {
			return true
		}
	}

	return false
}

// dedupMissingPolicies removes duplicate tagged-missing and range entries
// that the catalog merge and the row scan may both have contributed for the
// same column.
func dedupMissingPolicies(vars []dataset.Variable) {
	for i := range vars {
		vars[i].Missing.Tagged = dedupTagged(vars[i].Missing.Tagged)
		vars[i].Missing.Ranges = dedupRanges(vars[i].Missing.Ranges)
	}
}

func dedupTagged(entries []dataset.TaggedMissing) []dataset.TaggedMissing {
	out := entries[:0]
	for _, e := range entries {
		if !hasTaggedMissing(out, e.Tag) {
			out = append(out, e)
		}
	}

	return out
}

func dedupRanges(entries []dataset.MissingRange) []dataset.MissingRange {
	out := entries[:0]
	for _, e := range entries {
		if !hasMissingRange(out, e) {
			out = append(out, e)
		}
	}

	return out
}
