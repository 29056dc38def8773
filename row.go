package sas7bdat

import (
	"fmt"
	"math"
	"time"

	"github.com/halvorsen/sas7bdat/cell"
	"github.com/halvorsen/sas7bdat/dataset"
)

// Row is one decoded record, paired with the column descriptors needed to
// look values up by name.
type Row struct {
	vars   []dataset.Variable
	values []cell.Value
}

// Values returns the row's cells in column order. The returned slice is
// owned by the Row; callers that need to retain it past the next cursor
// advance should copy it.
func (r Row) Values() []cell.Value {
	return r.values
}

// Len returns the number of columns in the row.
func (r Row) Len() int {
	return len(r.values)
}

// At returns the cell at the given column index.
func (r Row) At(i int) cell.Value {
	return r.values[i]
}

// Column returns the variable descriptor for the column at index i.
func (r Row) Column(i int) dataset.Variable {
	return r.vars[i]
}

// Get returns the cell for the named column. It reports false if no column
// matches the name, using the same trimmed-name matching as
// dataset.Metadata.ColumnIndex.
func (r Row) Get(name string) (cell.Value, bool) {
	for i, v := range r.vars {
		if v.Name == name {
			return r.values[i], true
		}
	}

	trimmed := trimColumnName(name)
	for i, v := range r.vars {
		if trimColumnName(v.Name) == trimmed {
			return r.values[i], true
		}
	}

	return nil, false
}

func trimColumnName(name string) string {
	for len(name) > 0 && (name[len(name)-1] == ' ' || name[len(name)-1] == 0) {
		name = name[:len(name)-1]
	}

	return name
}

// GetFloat64 converts the named column's cell to a float64. Missing values
// return (0, false). Non-numeric cells are an error.
func (r Row) GetFloat64(name string) (float64, bool, error) {
	v, ok := r.Get(name)
	if !ok {
		return 0, false, fmt.Errorf("sas7bdat: no such column %q", name)
	}

	return valueAsFloat64(v)
}

func valueAsFloat64(v cell.Value) (float64, bool, error) {
	switch t := v.(type) {
	case cell.Float:
		return float64(t), true, nil
	case cell.Int32:
		return float64(t), true, nil
	case cell.Int64:
		return float64(t), true, nil
	case cell.NumericString:
		var f float64
		if _, err := fmt.Sscanf(string(t), "%g", &f); err != nil {
			return 0, true, fmt.Errorf("sas7bdat: %q is not numeric", string(t))
		}
		return f, true, nil
	case cell.Missing:
		return 0, false, nil
	default:
		return 0, true, fmt.Errorf("sas7bdat: value is not numeric")
	}
}

// GetInt64 converts the named column's cell to an int64. Missing values
// return (0, false). A numeric value with a fractional part is an error,
// matching the strict conversion rules typed row access uses elsewhere in
// the ecosystem this format comes from.
func (r Row) GetInt64(name string) (int64, bool, error) {
	v, ok := r.Get(name)
	if !ok {
		return 0, false, fmt.Errorf("sas7bdat: no such column %q", name)
	}

	switch t := v.(type) {
	case cell.Int32:
		return int64(t), true, nil
	case cell.Int64:
		return int64(t), true, nil
	case cell.Float:
		return floatToInt64(float64(t))
	case cell.Missing:
		return 0, false, nil
	default:
		return 0, true, fmt.Errorf("sas7bdat: value is not numeric")
	}
}

func floatToInt64(f float64) (int64, bool, error) {
	if math.Trunc(f) != f {
		return 0, true, fmt.Errorf("sas7bdat: %v has a fractional part, cannot convert to int64", f)
	}
	if f > math.MaxInt64 || f < math.MinInt64 {
		return 0, true, fmt.Errorf("sas7bdat: %v is out of int64 range", f)
	}

	return int64(f), true, nil
}

// GetString converts the named column's cell to a string. Missing values
// return ("", false). A non-character cell is an error.
func (r Row) GetString(name string) (string, bool, error) {
	v, ok := r.Get(name)
	if !ok {
		return "", false, fmt.Errorf("sas7bdat: no such column %q", name)
	}

	switch t := v.(type) {
	case cell.Str:
		return string(t), true, nil
	case cell.Bytes:
		return string(t), true, nil
	case cell.Missing:
		return "", false, nil
	default:
		return "", true, fmt.Errorf("sas7bdat: value is not a string")
	}
}

// GetTime converts the named column's cell to a time.Time, accepting Date,
// DateTime, and Time cells (the latter materialized on the SAS epoch day).
// Missing values return the zero time and false.
func (r Row) GetTime(name string) (time.Time, bool, error) {
	v, ok := r.Get(name)
	if !ok {
		return time.Time{}, false, fmt.Errorf("sas7bdat: no such column %q", name)
	}

	switch t := v.(type) {
	case cell.Date:
		return time.Time(t), true, nil
	case cell.DateTime:
		return time.Time(t), true, nil
	case cell.Time:
		return sasEpochDay.Add(time.Duration(t)), true, nil
	case cell.Missing:
		return time.Time{}, false, nil
	default:
		return time.Time{}, true, fmt.Errorf("sas7bdat: value is not a date/time")
	}
}

var sasEpochDay = time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC)

// Label looks up the named column's decoded value in its attached value
// label set, if the metadata carries one and a catalog was attached. It
// returns ("", false) when no label applies.
func (r Row) Label(name string, md dataset.Metadata) (string, bool) {
	idx := -1
	for i, v := range r.vars {
		if v.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", false
	}

	v := r.vars[idx]
	if v.ValueLabelRef == "" {
		return "", false
	}
	set, ok := md.LabelSets[v.ValueLabelRef]
	if !ok {
		return "", false
	}

	return labelForValue(set, r.values[idx])
}

func labelForValue(set dataset.LabelSet, value cell.Value) (string, bool) {
	switch t := value.(type) {
	case cell.Float:
		return set.Lookup(dataset.NumericKey(float64(t)))
	case cell.Int32:
		return set.Lookup(dataset.NumericKey(float64(t)))
	case cell.Int64:
		return set.Lookup(dataset.NumericKey(float64(t)))
	case cell.Str:
		return set.Lookup(dataset.StringKey(string(t)))
	default:
		return "", false
	}
}
