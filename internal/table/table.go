// Package table implements the columnar spaxel table: a fixed number of
// rows (one per spaxel or spatial bin) and an ordered set of named,
// typed columns. Missing float values are NaN.
package table

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Kind enumerates the supported column types.
type Kind int

const (
	Float Kind = iota
	Int
	String
	Bool
)

func (k Kind) String() string {
	switch k {
	case Float:
		return "float"
	case Int:
		return "int"
	case String:
		return "string"
	case Bool:
		return "bool"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Column holds one named column. Exactly one of the value slices is
// populated, selected by Kind, and its length always equals the owning
// table's row count.
type Column struct {
	Name    string
	Kind    Kind
	Floats  []float64
	Ints    []int64
	Strings []string
	Bools   []bool
}

// Table is an ordered collection of equal-length columns.
type Table struct {
	nrows int
	cols  []*Column
	index map[string]int
}

// New creates an empty table with a fixed row count.
func New(nrows int) *Table {
	return &Table{
		nrows: nrows,
		index: make(map[string]int),
	}
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return t.nrows }

// NumColumns returns the column count.
func (t *Table) NumColumns() int { return len(t.cols) }

// ColumnNames returns the column names in insertion order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// SortedColumnNames returns the column names in lexical order.
func (t *Table) SortedColumnNames() []string {
	names := t.ColumnNames()
	sort.Strings(names)
	return names
}

// Has reports whether a column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns the named column, or nil if absent.
func (t *Table) Column(name string) *Column {
	i, ok := t.index[name]
	if !ok {
		return nil
	}
	return t.cols[i]
}

func (t *Table) add(c *Column) error {
	if _, ok := t.index[c.Name]; ok {
		return fmt.Errorf("table: duplicate column %q", c.Name)
	}
	t.index[c.Name] = len(t.cols)
	t.cols = append(t.cols, c)
	return nil
}

// AddFloat adds a float column. The slice is retained, not copied.
func (t *Table) AddFloat(name string, vals []float64) error {
	if len(vals) != t.nrows {
		return fmt.Errorf("table: column %q has %d rows, want %d", name, len(vals), t.nrows)
	}
	return t.add(&Column{Name: name, Kind: Float, Floats: vals})
}

// AddInt adds an int64 column.
func (t *Table) AddInt(name string, vals []int64) error {
	if len(vals) != t.nrows {
		return fmt.Errorf("table: column %q has %d rows, want %d", name, len(vals), t.nrows)
	}
	return t.add(&Column{Name: name, Kind: Int, Ints: vals})
}

// AddString adds a string column.
func (t *Table) AddString(name string, vals []string) error {
	if len(vals) != t.nrows {
		return fmt.Errorf("table: column %q has %d rows, want %d", name, len(vals), t.nrows)
	}
	return t.add(&Column{Name: name, Kind: String, Strings: vals})
}

// AddBool adds a bool column.
func (t *Table) AddBool(name string, vals []bool) error {
	if len(vals) != t.nrows {
		return fmt.Errorf("table: column %q has %d rows, want %d", name, len(vals), t.nrows)
	}
	return t.add(&Column{Name: name, Kind: Bool, Bools: vals})
}

// Float returns the float column's backing slice, for in-place mutation
// by derived-quantity code. The second result is false if the column is
// absent or not a float column.
func (t *Table) Float(name string) ([]float64, bool) {
	c := t.Column(name)
	if c == nil || c.Kind != Float {
		return nil, false
	}
	return c.Floats, true
}

// Int returns the int column's backing slice.
func (t *Table) Int(name string) ([]int64, bool) {
	c := t.Column(name)
	if c == nil || c.Kind != Int {
		return nil, false
	}
	return c.Ints, true
}

// Str returns the string column's backing slice.
func (t *Table) Str(name string) ([]string, bool) {
	c := t.Column(name)
	if c == nil || c.Kind != String {
		return nil, false
	}
	return c.Strings, true
}

// Bool returns the bool column's backing slice.
func (t *Table) Bool(name string) ([]bool, bool) {
	c := t.Column(name)
	if c == nil || c.Kind != Bool {
		return nil, false
	}
	return c.Bools, true
}

// EnsureFloat returns the named float column, creating it filled with
// NaN if it does not exist.
func (t *Table) EnsureFloat(name string) []float64 {
	if vals, ok := t.Float(name); ok {
		return vals
	}
	vals := NaNs(t.nrows)
	// Duplicate check already done by the lookup above.
	_ = t.AddFloat(name, vals)
	return vals
}

// Drop removes a column if present.
func (t *Table) Drop(name string) {
	i, ok := t.index[name]
	if !ok {
		return
	}
	t.cols = append(t.cols[:i], t.cols[i+1:]...)
	delete(t.index, name)
	for j := i; j < len(t.cols); j++ {
		t.index[t.cols[j].Name] = j
	}
}

// NaNs returns a float slice of length n filled with NaN.
func NaNs(n int) []float64 {
	vals := make([]float64, n)
	nan := math.NaN()
	for i := range vals {
		vals[i] = nan
	}
	return vals
}

// Component suffixes. Quantities measured per kinematic component carry
// the suffix " (component N)"; totals carry " (total)". Suffix-less
// columns (coordinates, catalogue quantities) have no component axis.
const TotalSuffix = " (total)"

// ComponentSuffix returns the suffix for the 1-based component n.
func ComponentSuffix(n int) string {
	return fmt.Sprintf(" (component %d)", n)
}

// Suffixed joins a base quantity name with a component suffix.
func Suffixed(base, suffix string) string {
	return base + suffix
}

// SplitSuffix splits a column name into its base quantity and component
// suffix. Names without a recognised suffix return suffix "".
func SplitSuffix(name string) (base, suffix string) {
	if strings.HasSuffix(name, TotalSuffix) {
		return strings.TrimSuffix(name, TotalSuffix), TotalSuffix
	}
	if i := strings.LastIndex(name, " (component "); i >= 0 && strings.HasSuffix(name, ")") {
		return name[:i], name[i:]
	}
	return name, ""
}

// View resolves base quantity names against one component suffix, so
// derived-quantity code can be written once and run per component.
type View struct {
	t      *Table
	suffix string
}

// ViewOf returns a view of t under the given suffix. An empty suffix
// resolves names verbatim.
func (t *Table) ViewOf(suffix string) *View {
	return &View{t: t, suffix: suffix}
}

// Suffix returns the view's component suffix.
func (v *View) Suffix() string { return v.suffix }

// Name returns the full column name for a base quantity.
func (v *View) Name(base string) string { return base + v.suffix }

// Has reports whether the suffixed column exists.
func (v *View) Has(base string) bool { return v.t.Has(v.Name(base)) }

// HasAll reports whether every suffixed column exists.
func (v *View) HasAll(bases ...string) bool {
	for _, b := range bases {
		if !v.t.Has(v.Name(b)) {
			return false
		}
	}
	return true
}

// Float returns the suffixed float column.
func (v *View) Float(base string) ([]float64, bool) {
	return v.t.Float(v.Name(base))
}

// Ensure returns the suffixed float column, creating it if absent.
func (v *View) Ensure(base string) []float64 {
	return v.t.EnsureFloat(v.Name(base))
}

// Value reads row i of the suffixed float column, NaN if absent.
func (v *View) Value(base string, i int) float64 {
	vals, ok := v.Float(base)
	if !ok {
		return math.NaN()
	}
	return vals[i]
}
