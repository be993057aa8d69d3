package table

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndLookup(t *testing.T) {
	tbl := New(3)
	require.NoError(t, tbl.AddFloat("HALPHA (total)", []float64{1, 2, 3}))
	require.NoError(t, tbl.AddInt("ID", []int64{10, 11, 12}))
	require.NoError(t, tbl.AddString("BPT (total)", []string{"SF", "SF", "LINER"}))
	require.NoError(t, tbl.AddBool("Good?", []bool{true, true, false}))

	assert.Equal(t, 3, tbl.NumRows())
	assert.Equal(t, 4, tbl.NumColumns())
	assert.True(t, tbl.Has("HALPHA (total)"))
	assert.False(t, tbl.Has("HBETA (total)"))

	vals, ok := tbl.Float("HALPHA (total)")
	require.True(t, ok)
	assert.Equal(t, []float64{1, 2, 3}, vals)

	// Wrong-kind lookups miss.
	_, ok = tbl.Float("ID")
	assert.False(t, ok)
}

func TestAddRejectsLengthMismatch(t *testing.T) {
	tbl := New(4)
	err := tbl.AddFloat("x", []float64{1, 2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 rows, want 4")
}

func TestAddRejectsDuplicate(t *testing.T) {
	tbl := New(1)
	require.NoError(t, tbl.AddFloat("x", []float64{1}))
	err := tbl.AddFloat("x", []float64{2})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate column")
}

func TestEnsureFloatCreatesNaNColumn(t *testing.T) {
	tbl := New(2)
	vals := tbl.EnsureFloat("A_V")
	require.Len(t, vals, 2)
	assert.True(t, math.IsNaN(vals[0]))

	// Mutations through the returned slice are visible in the table.
	vals[0] = 0.5
	got, ok := tbl.Float("A_V")
	require.True(t, ok)
	assert.Equal(t, 0.5, got[0])

	// Second Ensure returns the same column.
	again := tbl.EnsureFloat("A_V")
	assert.Equal(t, 0.5, again[0])
	assert.Equal(t, 1, tbl.NumColumns())
}

func TestDrop(t *testing.T) {
	tbl := New(1)
	require.NoError(t, tbl.AddFloat("a", []float64{1}))
	require.NoError(t, tbl.AddFloat("b", []float64{2}))
	require.NoError(t, tbl.AddFloat("c", []float64{3}))

	tbl.Drop("b")
	assert.False(t, tbl.Has("b"))
	assert.Equal(t, []string{"a", "c"}, tbl.ColumnNames())

	// Index stays consistent after the shift.
	vals, ok := tbl.Float("c")
	require.True(t, ok)
	assert.Equal(t, 3.0, vals[0])
}

func TestSplitSuffix(t *testing.T) {
	cases := []struct {
		name, base, suffix string
	}{
		{"HALPHA (total)", "HALPHA", " (total)"},
		{"HALPHA (component 2)", "HALPHA", " (component 2)"},
		{"sigma_gas error (component 1)", "sigma_gas error", " (component 1)"},
		{"x (projected, arcsec)", "x (projected, arcsec)", ""},
		{"ID", "ID", ""},
	}
	for _, c := range cases {
		base, suffix := SplitSuffix(c.name)
		assert.Equal(t, c.base, base, c.name)
		assert.Equal(t, c.suffix, suffix, c.name)
	}
}

func TestComponentSuffix(t *testing.T) {
	assert.Equal(t, " (component 1)", ComponentSuffix(1))
	assert.Equal(t, "HALPHA (component 3)", Suffixed("HALPHA", ComponentSuffix(3)))
}

func TestViewResolvesSuffix(t *testing.T) {
	tbl := New(2)
	require.NoError(t, tbl.AddFloat("HALPHA (total)", []float64{5, 6}))
	require.NoError(t, tbl.AddFloat("HALPHA (component 1)", []float64{1, 2}))

	total := tbl.ViewOf(TotalSuffix)
	assert.True(t, total.Has("HALPHA"))
	assert.Equal(t, 5.0, total.Value("HALPHA", 0))

	c1 := tbl.ViewOf(ComponentSuffix(1))
	assert.Equal(t, 2.0, c1.Value("HALPHA", 1))

	c2 := tbl.ViewOf(ComponentSuffix(2))
	assert.False(t, c2.Has("HALPHA"))
	assert.True(t, math.IsNaN(c2.Value("HALPHA", 0)))

	assert.True(t, total.HasAll("HALPHA"))
	assert.False(t, total.HasAll("HALPHA", "HBETA"))
}
