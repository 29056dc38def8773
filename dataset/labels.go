package dataset

import "github.com/halvorsen/sas7bdat/format"

// ValueKey is the key side of a value-label mapping: the raw stored value a
// label was registered against, in whichever shape its catalog format used.
type ValueKey interface {
	isValueKey()
}

// NumericKey is a ValueKey for a floating-point format.
type NumericKey float64

func (NumericKey) isValueKey() {}

// IntegerKey is a ValueKey for an integer-valued format.
type IntegerKey int32

func (IntegerKey) isValueKey() {}

// TaggedKey is a ValueKey for one of SAS's lettered special-missing values.
type TaggedKey rune

func (TaggedKey) isValueKey() {}

// StringKey is a ValueKey for a character format.
type StringKey string

func (StringKey) isValueKey() {}

// ValueLabel pairs one stored value with the display label a catalog
// registered for it.
type ValueLabel struct {
	Key   ValueKey
	Label string
}

// LabelSet is a single named value-label format from a SAS7BCAT catalog,
// e.g. "$SEXFMT" mapping "M"/"F" to "Male"/"Female".
type LabelSet struct {
	Name      string
	ValueType format.VariableKind // Numeric or Character
	Labels    []ValueLabel
}

// Lookup returns the label registered for key, if any.
func (s LabelSet) Lookup(key ValueKey) (string, bool) {
	for _, vl := range s.Labels {
		if vl.Key == key {
			return vl.Label, true
		}
	}

	return "", false
}
