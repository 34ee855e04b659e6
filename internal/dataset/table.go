package dataset

import (
	"fmt"
	"math"
	"sort"
)

// Kind classifies a column for downstream processing.
type Kind int

const (
	// KindNumeric marks a continuous feature with a plausible range.
	KindNumeric Kind = iota
	// KindCategorical marks a feature drawn from a small fixed code set.
	KindCategorical
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindCategorical:
		return "categorical"
	default:
		return "unknown"
	}
}

// Missing returns the canonical missing-value marker.
func Missing() float64 {
	return math.NaN()
}

// IsMissing reports whether v is the missing-value marker.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// Column is a single named feature over all subjects.
type Column struct {
	Name   string
	Kind   Kind
	Values []float64
}

// Observed returns the number of non-missing values in the column.
func (c *Column) Observed() int {
	n := 0
	for _, v := range c.Values {
		if !IsMissing(v) {
			n++
		}
	}
	return n
}

// clone returns a deep copy of the column.
func (c *Column) clone() *Column {
	values := make([]float64, len(c.Values))
	copy(values, c.Values)
	return &Column{Name: c.Name, Kind: c.Kind, Values: values}
}

// Table is a row-per-subject, column-per-feature table keyed by an
// immutable subject identifier.
type Table struct {
	subjectIDs []int64
	columns    []*Column
	index      map[string]int
}

// New creates an empty table over the given subject identifiers.
// The identifier slice is copied; callers keep ownership of theirs.
func New(subjectIDs []int64) *Table {
	ids := make([]int64, len(subjectIDs))
	copy(ids, subjectIDs)
	return &Table{
		subjectIDs: ids,
		index:      make(map[string]int),
	}
}

// NumRows returns the number of subjects.
func (t *Table) NumRows() int {
	return len(t.subjectIDs)
}

// NumCols returns the number of feature columns (the identifier is not
// counted).
func (t *Table) NumCols() int {
	return len(t.columns)
}

// SubjectIDs returns a copy of the subject identifier column.
func (t *Table) SubjectIDs() []int64 {
	ids := make([]int64, len(t.subjectIDs))
	copy(ids, t.subjectIDs)
	return ids
}

// SubjectID returns the identifier of row i.
func (t *Table) SubjectID(i int) int64 {
	return t.subjectIDs[i]
}

// AddColumn appends a feature column. The values slice is copied.
func (t *Table) AddColumn(name string, kind Kind, values []float64) error {
	if len(values) != len(t.subjectIDs) {
		return fmt.Errorf("column %s: %d values for %d rows", name, len(values), len(t.subjectIDs))
	}
	if _, exists := t.index[name]; exists {
		return fmt.Errorf("column %s already exists", name)
	}
	vs := make([]float64, len(values))
	copy(vs, values)
	t.index[name] = len(t.columns)
	t.columns = append(t.columns, &Column{Name: name, Kind: kind, Values: vs})
	return nil
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the named column, or nil when absent. The returned
// column is the table's own storage; mutating its values mutates the
// table. Stages that must not alter their input clone the table first.
func (t *Table) Column(name string) *Column {
	i, ok := t.index[name]
	if !ok {
		return nil
	}
	return t.columns[i]
}

// Values returns a copy of the named column's values, or nil when the
// column is absent.
func (t *Table) Values(name string) []float64 {
	c := t.Column(name)
	if c == nil {
		return nil
	}
	vs := make([]float64, len(c.Values))
	copy(vs, c.Values)
	return vs
}

// SetColumn replaces the values of an existing column or adds a new one.
func (t *Table) SetColumn(name string, kind Kind, values []float64) error {
	if i, ok := t.index[name]; ok {
		if len(values) != len(t.subjectIDs) {
			return fmt.Errorf("column %s: %d values for %d rows", name, len(values), len(t.subjectIDs))
		}
		vs := make([]float64, len(values))
		copy(vs, values)
		t.columns[i] = &Column{Name: name, Kind: kind, Values: vs}
		return nil
	}
	return t.AddColumn(name, kind, values)
}

// DropColumn removes the named column. Dropping an absent column is a
// no-op and reports false.
func (t *Table) DropColumn(name string) bool {
	i, ok := t.index[name]
	if !ok {
		return false
	}
	t.columns = append(t.columns[:i], t.columns[i+1:]...)
	delete(t.index, name)
	for name, j := range t.index {
		if j > i {
			t.index[name] = j - 1
		}
	}
	return true
}

// RenameColumn renames a column in place. Renaming to a name that is
// already taken is an error.
func (t *Table) RenameColumn(from, to string) error {
	i, ok := t.index[from]
	if !ok {
		return fmt.Errorf("column %s not found", from)
	}
	if _, taken := t.index[to]; taken && to != from {
		return fmt.Errorf("column %s already exists", to)
	}
	delete(t.index, from)
	t.index[to] = i
	t.columns[i].Name = to
	return nil
}

// ColumnNames returns the column names in table order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := New(t.subjectIDs)
	out.columns = make([]*Column, len(t.columns))
	for i, c := range t.columns {
		out.columns[i] = c.clone()
		out.index[c.Name] = i
	}
	return out
}

// FilterRows returns a new table containing only the rows for which
// keep reports true. Column order is preserved. The receiver is left
// untouched; row filtering is reserved for explicit terminal steps.
func (t *Table) FilterRows(keep func(row int) bool) *Table {
	var rows []int
	for i := range t.subjectIDs {
		if keep(i) {
			rows = append(rows, i)
		}
	}
	ids := make([]int64, len(rows))
	for j, i := range rows {
		ids[j] = t.subjectIDs[i]
	}
	out := New(ids)
	for _, c := range t.columns {
		values := make([]float64, len(rows))
		for j, i := range rows {
			values[j] = c.Values[i]
		}
		// AddColumn cannot fail here: lengths match by construction.
		_ = out.AddColumn(c.Name, c.Kind, values)
	}
	return out
}

// SortedColumnNames returns the column names sorted alphabetically,
// for deterministic diagnostics output.
func (t *Table) SortedColumnNames() []string {
	names := t.ColumnNames()
	sort.Strings(names)
	return names
}
