package harness

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifukit/spaxelpipe/internal/store"
	"github.com/ifukit/spaxelpipe/internal/table"
)

func floatPtr(v float64) *float64 { return &v }

func assertionTable(t *testing.T) *table.Table {
	t.Helper()
	tbl := table.New(4)
	require.NoError(t, tbl.AddFloat("HALPHA (total)", []float64{100, math.NaN(), 80, 60}))
	require.NoError(t, tbl.AddFloat("HALPHA S/N (total)", []float64{20, 2, 16, 12}))
	require.NoError(t, tbl.AddFloat("z", []float64{0.02, 0.02, 0.025, 0.025}))
	require.NoError(t, tbl.AddString("BPT (total)", []string{"SF", "Not classified", "SF", "Composite"}))
	return tbl
}

func evalOne(t *testing.T, tbl *table.Table, a Assertion) []string {
	t.Helper()
	return EvaluateAssertions(context.Background(), tbl, nil, []Assertion{a})
}

func TestColumnExistsAssertion(t *testing.T) {
	tbl := assertionTable(t)

	assert.Empty(t, evalOne(t, tbl, Assertion{Type: AssertColumnExists, Column: "HALPHA (total)"}))
	assert.Empty(t, evalOne(t, tbl, Assertion{Type: AssertColumnExists, Column: "A_V (total)", Absent: true}))

	errs := evalOne(t, tbl, Assertion{Type: AssertColumnExists, Column: "A_V (total)"})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "A_V (total)")

	errs = evalOne(t, tbl, Assertion{Type: AssertColumnExists, Column: "z", Absent: true})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "column present")
}

func TestRowCountAssertion(t *testing.T) {
	tbl := assertionTable(t)

	assert.Empty(t, evalOne(t, tbl, Assertion{Type: AssertRowCount, MinRows: 4, MaxRows: 4}))
	errs := evalOne(t, tbl, Assertion{Type: AssertRowCount, MinRows: 5})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "at least 5 rows")
}

func TestSNRFloorAssertion(t *testing.T) {
	tbl := assertionTable(t)

	// Row 1 is below the floor but masked, so the assertion holds.
	assert.Empty(t, evalOne(t, tbl, Assertion{Type: AssertSNRFloor, Eline: "HALPHA", Min: floatPtr(5)}))

	// Raising the floor above a surviving row's S/N fails.
	errs := evalOne(t, tbl, Assertion{Type: AssertSNRFloor, Eline: "HALPHA", Min: floatPtr(15)})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "S/N")
}

func TestFractionClassifiedAssertion(t *testing.T) {
	tbl := assertionTable(t)

	assert.Empty(t, evalOne(t, tbl, Assertion{
		Type: AssertFractionClassified, Column: "BPT (total)", Label: "SF", MinFraction: 0.5,
	}))
	errs := evalOne(t, tbl, Assertion{
		Type: AssertFractionClassified, Column: "BPT (total)", Label: "Seyfert", MinFraction: 0.1,
	})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Seyfert")
}

func TestBoundsAssertion(t *testing.T) {
	tbl := assertionTable(t)

	// NaN rows are missing data, not violations.
	assert.Empty(t, evalOne(t, tbl, Assertion{
		Type: AssertBounds, Column: "HALPHA (total)", Min: floatPtr(0), Max: floatPtr(200),
	}))
	errs := evalOne(t, tbl, Assertion{Type: AssertBounds, Column: "z", Max: floatPtr(0.021)})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "row 2")
}

func TestFinalStateAssertion(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(filepath.Join(t.TempDir(), "dataset.hd5"))
	require.NoError(t, err)
	defer st.Close()

	meta := store.DatasetMeta{
		RunID: "run-1", Survey: "sami", Binning: "default", Components: "1",
		Extcorr: false, MinSNR: 5, Filename: "sami_default_1-comp_minSNR=5.hd5",
	}
	tbl := assertionTable(t)
	_, _, err = st.WriteDataset(ctx, meta, tbl)
	require.NoError(t, err)

	errs := EvaluateAssertions(ctx, tbl, st, []Assertion{{
		Type:   AssertFinalState,
		Table:  "datasets",
		Where:  map[string]interface{}{"binning": "default"},
		Expect: map[string]interface{}{"survey": "sami", "min_snr": 5, "extcorr": false, "nrows": 4},
	}})
	assert.Empty(t, errs)

	errs = EvaluateAssertions(ctx, tbl, st, []Assertion{{
		Type:   AssertFinalState,
		Table:  "datasets",
		Where:  map[string]interface{}{"binning": "default"},
		Expect: map[string]interface{}{"min_snr": 8},
	}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], `"min_snr"`)

	// Identifiers outside the whitelist are rejected, not interpolated.
	errs = EvaluateAssertions(ctx, tbl, st, []Assertion{{
		Type:   AssertFinalState,
		Table:  "datasets; DROP TABLE datasets",
		Expect: map[string]interface{}{"survey": "sami"},
	}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "invalid table name")
}

func TestParseScenarioStrict(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
description: unknown field below
fixture:
  galaxies: 1
  seed: 1
build:
  binning: default
  components: "1"
assertion:
  - type: row_count
    min_rows: 1
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assertion")
}

func TestParseScenarioValidatesAssertions(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: bad-assertion
description: column_exists without a column
fixture:
  galaxies: 1
  seed: 1
build:
  binning: default
  components: "1"
assertions:
  - type: column_exists
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "column is required")

	_, err = ParseScenario([]byte(`
name: bad-type
description: unknown assertion type
fixture:
  galaxies: 1
  seed: 1
build:
  binning: default
  components: "1"
assertions:
  - type: trace_contains
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown assertion type")
}

func TestScenarioFiles(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.Len(t, paths, 6)

	seen := map[string]bool{}
	for _, path := range paths {
		s, err := LoadScenario(path)
		require.NoError(t, err, path)
		assert.False(t, seen[s.Name], "duplicate scenario name %s", s.Name)
		seen[s.Name] = true
	}
}

func TestRunScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		scenario, err := LoadScenario(path)
		require.NoError(t, err, path)

		t.Run(scenario.Name, func(t *testing.T) {
			result, err := Run(context.Background(), scenario, t.TempDir())
			require.NoError(t, err)
			assert.True(t, result.Pass, "assertion failures: %v", result.Errors)
			assert.True(t, result.Inserted)
			assert.NotEmpty(t, result.Fingerprint)
			AssertGolden(t, result)
		})
	}
}

func TestRunIdempotent(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", "default-1comp.yaml"))
	require.NoError(t, err)

	dir := t.TempDir()
	first, err := Run(context.Background(), scenario, dir)
	require.NoError(t, err)
	require.True(t, first.Inserted)

	// An identical rebuild collapses onto the stored dataset.
	second, err := Run(context.Background(), scenario, dir)
	require.NoError(t, err)
	assert.False(t, second.Inserted)
	assert.Equal(t, first.DatasetID, second.DatasetID)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
}
