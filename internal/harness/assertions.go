package harness

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/ifukit/spaxelpipe/internal/store"
	"github.com/ifukit/spaxelpipe/internal/table"
)

// validIdentifier matches valid SQL identifiers (table/column names).
// Identifiers cannot be parameterized, so they are whitelisted instead.
var validIdentifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// AssertionError is returned when an assertion fails. It carries the
// expected and actual outcomes for the failure report.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion failed: %s\n  expected: %s\n  actual: %s",
		e.Type, e.Expected, e.Actual)
}

// EvaluateAssertions evaluates every assertion against the built table
// and dataset store, returning one message per failure.
func EvaluateAssertions(ctx context.Context, t *table.Table, st *store.Store, assertions []Assertion) []string {
	var errors []string
	for i, assertion := range assertions {
		var err error
		switch assertion.Type {
		case AssertColumnExists:
			err = assertColumnExists(t, assertion)
		case AssertRowCount:
			err = assertRowCount(t, assertion)
		case AssertSNRFloor:
			err = assertSNRFloor(t, assertion)
		case AssertFractionClassified:
			err = assertFractionClassified(t, assertion)
		case AssertBounds:
			err = assertBounds(t, assertion)
		case AssertFinalState:
			if st == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires a dataset store", i)
			} else {
				err = assertFinalState(ctx, st, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}
		if err != nil {
			errors = append(errors, err.Error())
		}
	}
	return errors
}

func assertColumnExists(t *table.Table, a Assertion) error {
	has := t.Has(a.Column)
	if a.Absent && has {
		return &AssertionError{
			Type:     AssertColumnExists,
			Expected: fmt.Sprintf("column %q absent", a.Column),
			Actual:   "column present",
		}
	}
	if !a.Absent && !has {
		return &AssertionError{
			Type:     AssertColumnExists,
			Expected: fmt.Sprintf("column %q present", a.Column),
			Actual:   fmt.Sprintf("not found among %d columns", t.NumColumns()),
		}
	}
	return nil
}

func assertRowCount(t *table.Table, a Assertion) error {
	n := t.NumRows()
	if a.MinRows > 0 && n < a.MinRows {
		return &AssertionError{
			Type:     AssertRowCount,
			Expected: fmt.Sprintf("at least %d rows", a.MinRows),
			Actual:   fmt.Sprintf("%d rows", n),
		}
	}
	if a.MaxRows > 0 && n > a.MaxRows {
		return &AssertionError{
			Type:     AssertRowCount,
			Expected: fmt.Sprintf("at most %d rows", a.MaxRows),
			Actual:   fmt.Sprintf("%d rows", n),
		}
	}
	return nil
}

// assertSNRFloor checks that no row keeps a measured flux for the line
// while sitting below the S/N floor. Rows masked by the quality cuts have
// NaN flux and are skipped.
func assertSNRFloor(t *table.Table, a Assertion) error {
	fluxName := a.Eline + table.TotalSuffix
	snrName := a.Eline + " S/N" + table.TotalSuffix
	flux, ok := t.Float(fluxName)
	if !ok {
		return &AssertionError{
			Type:     AssertSNRFloor,
			Expected: fmt.Sprintf("column %q present", fluxName),
			Actual:   "not found",
		}
	}
	snr, ok := t.Float(snrName)
	if !ok {
		return &AssertionError{
			Type:     AssertSNRFloor,
			Expected: fmt.Sprintf("column %q present", snrName),
			Actual:   "not found",
		}
	}

	floor := *a.Min
	for i, f := range flux {
		if math.IsNaN(f) {
			continue
		}
		if math.IsNaN(snr[i]) || snr[i] < floor {
			return &AssertionError{
				Type:     AssertSNRFloor,
				Expected: fmt.Sprintf("%s S/N >= %v wherever flux survives", a.Eline, floor),
				Actual:   fmt.Sprintf("row %d: flux %v with S/N %v", i, f, snr[i]),
			}
		}
	}
	return nil
}

func assertFractionClassified(t *table.Table, a Assertion) error {
	values, ok := t.Str(a.Column)
	if !ok {
		return &AssertionError{
			Type:     AssertFractionClassified,
			Expected: fmt.Sprintf("string column %q present", a.Column),
			Actual:   "not found",
		}
	}
	matched := 0
	for _, v := range values {
		if v == a.Label {
			matched++
		}
	}
	fraction := float64(matched) / float64(len(values))
	if fraction < a.MinFraction {
		return &AssertionError{
			Type:     AssertFractionClassified,
			Expected: fmt.Sprintf("at least %.0f%% of %q rows labelled %q", 100*a.MinFraction, a.Column, a.Label),
			Actual:   fmt.Sprintf("%d of %d rows (%.1f%%)", matched, len(values), 100*fraction),
		}
	}
	return nil
}

// assertBounds checks every finite value of a float column against
// [Min, Max]. NaN rows are missing data, not violations.
func assertBounds(t *table.Table, a Assertion) error {
	values, ok := t.Float(a.Column)
	if !ok {
		return &AssertionError{
			Type:     AssertBounds,
			Expected: fmt.Sprintf("float column %q present", a.Column),
			Actual:   "not found",
		}
	}
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if a.Min != nil && v < *a.Min {
			return &AssertionError{
				Type:     AssertBounds,
				Expected: fmt.Sprintf("%q >= %v", a.Column, *a.Min),
				Actual:   fmt.Sprintf("row %d: %v", i, v),
			}
		}
		if a.Max != nil && v > *a.Max {
			return &AssertionError{
				Type:     AssertBounds,
				Expected: fmt.Sprintf("%q <= %v", a.Column, *a.Max),
				Actual:   fmt.Sprintf("row %d: %v", i, v),
			}
		}
	}
	return nil
}

// assertFinalState queries the dataset store with parameterized SQL and
// validates expected values using subset semantics. Exactly one row must
// match the where clause.
func assertFinalState(ctx context.Context, st *store.Store, a Assertion) error {
	if !validIdentifier.MatchString(a.Table) {
		return fmt.Errorf("invalid table name %q: must match pattern %s", a.Table, validIdentifier.String())
	}

	whereSQL, whereArgs, err := buildWhereClause(a.Where)
	if err != nil {
		return err
	}
	query := fmt.Sprintf("SELECT * FROM %s", a.Table)
	if whereSQL != "" {
		query += " WHERE " + whereSQL
	}

	rows, err := st.Query(ctx, query, whereArgs...)
	if err != nil {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("query table %s", a.Table),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return fmt.Errorf("get columns: %w", err)
	}

	if !rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("row in %s where %s", a.Table, formatWhereClause(a.Where)),
			Actual:   "row not found",
		}
	}

	values := make([]interface{}, len(columns))
	valuePtrs := make([]interface{}, len(columns))
	for i := range values {
		valuePtrs[i] = &values[i]
	}
	if err := rows.Scan(valuePtrs...); err != nil {
		return fmt.Errorf("scan row: %w", err)
	}

	if rows.Next() {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("exactly one row in %s where %s", a.Table, formatWhereClause(a.Where)),
			Actual:   "multiple rows matched (assertion is ambiguous)",
		}
	}

	actualRow := make(map[string]interface{})
	for i, col := range columns {
		actualRow[col] = values[i]
	}

	for _, key := range sortedKeys(a.Expect) {
		expectedValue := a.Expect[key]
		actualValue, exists := actualRow[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist", key),
				Actual:   fmt.Sprintf("field %q not present in result columns: %v", key, columns),
			}
		}
		if !stateValuesEqual(expectedValue, actualValue) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q = %v (type %T)", key, expectedValue, expectedValue),
				Actual:   fmt.Sprintf("field %q = %v (type %T)", key, actualValue, actualValue),
			}
		}
	}
	return nil
}

// buildWhereClause constructs a parameterized WHERE clause. Keys are
// sorted for deterministic query generation; column names are whitelisted
// since identifiers cannot be parameterized.
func buildWhereClause(where map[string]interface{}) (string, []interface{}, error) {
	if len(where) == 0 {
		return "", nil, nil
	}
	keys := sortedKeys(where)

	clauses := make([]string, 0, len(keys))
	args := make([]interface{}, 0, len(keys))
	for _, key := range keys {
		if !validIdentifier.MatchString(key) {
			return "", nil, fmt.Errorf("invalid column name %q in where clause: must match pattern %s", key, validIdentifier.String())
		}
		clauses = append(clauses, fmt.Sprintf("%s = ?", key))
		args = append(args, where[key])
	}
	return strings.Join(clauses, " AND "), args, nil
}

func formatWhereClause(where map[string]interface{}) string {
	if len(where) == 0 {
		return "(no conditions)"
	}
	keys := sortedKeys(where)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, where[k]))
	}
	return strings.Join(parts, " AND ")
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// stateValuesEqual compares an expected YAML value with a scanned SQLite
// value. SQLite returns int64 for integers and stores booleans as 0/1.
func stateValuesEqual(expected, actual interface{}) bool {
	if expected == nil && actual == nil {
		return true
	}
	if expected == nil || actual == nil {
		return false
	}

	switch exp := expected.(type) {
	case string:
		actualStr, ok := actual.(string)
		return ok && exp == actualStr
	case int:
		switch act := actual.(type) {
		case int64:
			return int64(exp) == act
		case int:
			return exp == act
		}
		return false
	case int64:
		act, ok := actual.(int64)
		return ok && exp == act
	case float64:
		act, ok := actual.(float64)
		return ok && exp == act
	case bool:
		switch act := actual.(type) {
		case bool:
			return exp == act
		case int64:
			return exp == (act != 0)
		}
		return false
	}
	return fmt.Sprintf("%v", expected) == fmt.Sprintf("%v", actual)
}
