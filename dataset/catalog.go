package dataset

import (
	"math"
	"strings"
)

// Catalog is the parsed contents of a SAS7BCAT value-label catalog: a set
// of named LabelSets keyed by their format name.
type Catalog struct {
	LabelSets map[string]LabelSet
}

// NormalizeFormatName collapses a format name to the form catalog lookups
// match against: trimmed, trailing-dot stripped, upper-cased.
func NormalizeFormatName(name string) string {
	return strings.ToUpper(strings.TrimRight(strings.TrimSpace(name), "."))
}

// buildLabelLookup indexes a catalog's label sets by normalized name, and
// again under a "$"-prefixed normalized name for sets whose name lacks the
// character-format marker, so a "$"-prefixed (character) format name still
// matches a catalog entry stored without the "$".
func buildLabelLookup(sets map[string]LabelSet) map[string]string {
	lookup := make(map[string]string, len(sets)*2)
	for name := range sets {
		normalized := NormalizeFormatName(name)
		if _, ok := lookup[normalized]; !ok {
			lookup[normalized] = name
		}

		if !strings.HasPrefix(normalized, "$") {
			prefixed := "$" + normalized
			if _, ok := lookup[prefixed]; !ok {
				lookup[prefixed] = name
			}
		}
	}

	return lookup
}

// ApplyCatalog merges a Catalog's label sets into Metadata and resolves
// each variable's ValueLabelRef by matching its format name, trying first
// the bare normalized name and then a "$"-prefixed form.
func (m *Metadata) ApplyCatalog(cat Catalog) {
	if m.LabelSets == nil {
		m.LabelSets = make(map[string]LabelSet, len(cat.LabelSets))
	}
	for name, set := range cat.LabelSets {
		m.LabelSets[name] = set
	}

	lookup := buildLabelLookup(m.LabelSets)
	for i := range m.Variables {
		v := &m.Variables[i]
		if v.Format == nil {
			continue
		}

		normalized := NormalizeFormatName(v.Format.Name)
		if matched, ok := lookup[normalized]; ok {
			v.ValueLabelRef = matched
		} else if !strings.HasPrefix(normalized, "$") {
			if matched, ok := lookup["$"+normalized]; ok {
				v.ValueLabelRef = matched
			}
		}

		if v.ValueLabelRef == "" {
			continue
		}
		if set, ok := m.LabelSets[v.ValueLabelRef]; ok {
			mergeLabelSetMissing(&v.Missing, set)
		}
	}
}

// mergeLabelSetMissing folds a label set's keys that read as SAS
// special-missing markers into the variable's missing policy, since
// catalogs sometimes document these as labeled values rather than leaving
// them to be inferred from row data: character sets spell a tag as a
// two-character string (".A"), numeric sets register a label directly
// against the tagged bit pattern (dataset.TaggedKey, produced by
// numericLabelKey in the catalog parser).
func mergeLabelSetMissing(policy *MissingPolicy, set LabelSet) {
	for _, vl := range set.Labels {
		switch key := vl.Key.(type) {
		case TaggedKey:
			tag := rune(key)
			if tag == '_' {
				policy.SystemMissing = true
			}
			if !containsTag(policy.Tagged, tag) {
				policy.Tagged = append(policy.Tagged, TaggedMissing{Tag: tag, Literal: NumericLiteral(math.NaN())})
			}
		case StringKey:
			s := string(key)
			if s == "." {
				policy.SystemMissing = true
				continue
			}

			if len(s) == 2 && s[0] == '.' {
				tag := rune(s[1])
				if !containsTag(policy.Tagged, tag) {
					policy.Tagged = append(policy.Tagged, TaggedMissing{Tag: tag, Literal: StringLiteral(s)})
				}
			}
		}
	}
}

func containsTag(tagged []TaggedMissing, tag rune) bool {
	for _, t := range tagged {
		if t.Tag == tag {
			return true
		}
	}

	return false
}
