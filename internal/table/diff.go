package table

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// DiffOptions controls numeric comparison. A float cell matches when
// |a-b| <= AbsTol or |a-b| <= RelTol*max(|a|,|b|). NaN matches NaN.
type DiffOptions struct {
	AbsTol float64
	RelTol float64
	// MaxDeviations caps how many worst numeric deviations the report
	// lists per column.
	MaxDeviations int
}

// DefaultDiffOptions matches the regression-comparison defaults.
func DefaultDiffOptions() DiffOptions {
	return DiffOptions{AbsTol: 1e-9, RelTol: 1e-9, MaxDeviations: 5}
}

// Deviation records one mismatched float cell.
type Deviation struct {
	Column string
	Row    int
	Got    float64
	Want   float64
}

// DiffReport describes how two tables differ. Equal is true when the
// tables match within tolerance.
type DiffReport struct {
	Equal        bool
	RowCountGot  int
	RowCountWant int
	MissingCols  []string
	ExtraCols    []string
	KindDrift    []string
	CellDrift    []string
	Deviations   []Deviation
}

// String renders the report for CLI output, one finding per line.
func (r *DiffReport) String() string {
	if r.Equal {
		return "tables match"
	}
	var b strings.Builder
	if r.RowCountGot != r.RowCountWant {
		fmt.Fprintf(&b, "row count: got %d, want %d\n", r.RowCountGot, r.RowCountWant)
	}
	for _, c := range r.MissingCols {
		fmt.Fprintf(&b, "missing column: %s\n", c)
	}
	for _, c := range r.ExtraCols {
		fmt.Fprintf(&b, "unexpected column: %s\n", c)
	}
	for _, line := range r.KindDrift {
		fmt.Fprintf(&b, "kind drift: %s\n", line)
	}
	for _, line := range r.CellDrift {
		fmt.Fprintf(&b, "cell drift: %s\n", line)
	}
	for _, d := range r.Deviations {
		fmt.Fprintf(&b, "deviation: %s[%d]: got %g, want %g\n", d.Column, d.Row, d.Got, d.Want)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Diff compares got against want. want is the reference table; columns
// present only in got are reported as extra, not as matches.
func Diff(got, want *Table, opts DiffOptions) *DiffReport {
	r := &DiffReport{
		Equal:        true,
		RowCountGot:  got.NumRows(),
		RowCountWant: want.NumRows(),
	}
	if got.NumRows() != want.NumRows() {
		r.Equal = false
	}

	for _, name := range want.SortedColumnNames() {
		if !got.Has(name) {
			r.MissingCols = append(r.MissingCols, name)
			r.Equal = false
		}
	}
	for _, name := range got.SortedColumnNames() {
		if !want.Has(name) {
			r.ExtraCols = append(r.ExtraCols, name)
			r.Equal = false
		}
	}
	if got.NumRows() != want.NumRows() {
		return r
	}

	for _, name := range want.SortedColumnNames() {
		wc := want.Column(name)
		gc := got.Column(name)
		if gc == nil {
			continue
		}
		if gc.Kind != wc.Kind {
			r.KindDrift = append(r.KindDrift,
				fmt.Sprintf("%s: got %s, want %s", name, gc.Kind, wc.Kind))
			r.Equal = false
			continue
		}
		diffColumn(r, gc, wc, opts)
	}
	return r
}

func diffColumn(r *DiffReport, got, want *Column, opts DiffOptions) {
	switch want.Kind {
	case Float:
		var devs []Deviation
		for i := range want.Floats {
			if !floatsMatch(got.Floats[i], want.Floats[i], opts) {
				devs = append(devs, Deviation{
					Column: want.Name, Row: i,
					Got: got.Floats[i], Want: want.Floats[i],
				})
			}
		}
		if len(devs) == 0 {
			return
		}
		r.Equal = false
		sort.Slice(devs, func(i, j int) bool {
			return deviationSize(devs[i]) > deviationSize(devs[j])
		})
		n := opts.MaxDeviations
		if n <= 0 {
			n = 5
		}
		if len(devs) > n {
			r.CellDrift = append(r.CellDrift,
				fmt.Sprintf("%s: %d cells differ (worst %d shown)", want.Name, len(devs), n))
			devs = devs[:n]
		}
		r.Deviations = append(r.Deviations, devs...)
	case Int:
		for i := range want.Ints {
			if got.Ints[i] != want.Ints[i] {
				r.Equal = false
				r.CellDrift = append(r.CellDrift,
					fmt.Sprintf("%s[%d]: got %d, want %d", want.Name, i, got.Ints[i], want.Ints[i]))
			}
		}
	case String:
		for i := range want.Strings {
			if got.Strings[i] != want.Strings[i] {
				r.Equal = false
				r.CellDrift = append(r.CellDrift,
					fmt.Sprintf("%s[%d]: got %q, want %q", want.Name, i, got.Strings[i], want.Strings[i]))
			}
		}
	case Bool:
		for i := range want.Bools {
			if got.Bools[i] != want.Bools[i] {
				r.Equal = false
				r.CellDrift = append(r.CellDrift,
					fmt.Sprintf("%s[%d]: got %t, want %t", want.Name, i, got.Bools[i], want.Bools[i]))
			}
		}
	}
}

func floatsMatch(a, b float64, opts DiffOptions) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}
	if math.IsNaN(a) || math.IsNaN(b) {
		return false
	}
	if a == b {
		return true
	}
	d := math.Abs(a - b)
	if d <= opts.AbsTol {
		return true
	}
	return d <= opts.RelTol*math.Max(math.Abs(a), math.Abs(b))
}

func deviationSize(d Deviation) float64 {
	if math.IsNaN(d.Got) || math.IsNaN(d.Want) {
		return math.Inf(1)
	}
	return math.Abs(d.Got - d.Want)
}
