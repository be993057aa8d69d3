package table

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffEqualTables(t *testing.T) {
	a := fixtureTable(t)
	b := fixtureTable(t)
	r := Diff(a, b, DefaultDiffOptions())
	assert.True(t, r.Equal)
	assert.Equal(t, "tables match", r.String())
}

func TestDiffNaNMatchesNaN(t *testing.T) {
	a := New(1)
	require.NoError(t, a.AddFloat("x", []float64{math.NaN()}))
	b := New(1)
	require.NoError(t, b.AddFloat("x", []float64{math.NaN()}))
	assert.True(t, Diff(a, b, DefaultDiffOptions()).Equal)
}

func TestDiffRowCountMismatch(t *testing.T) {
	a := New(2)
	b := New(3)
	r := Diff(a, b, DefaultDiffOptions())
	assert.False(t, r.Equal)
	assert.Contains(t, r.String(), "row count: got 2, want 3")
}

func TestDiffMissingAndExtraColumns(t *testing.T) {
	a := New(1)
	require.NoError(t, a.AddFloat("only_in_got", []float64{1}))
	b := New(1)
	require.NoError(t, b.AddFloat("only_in_want", []float64{1}))

	r := Diff(a, b, DefaultDiffOptions())
	assert.False(t, r.Equal)
	assert.Equal(t, []string{"only_in_want"}, r.MissingCols)
	assert.Equal(t, []string{"only_in_got"}, r.ExtraCols)
}

func TestDiffKindDrift(t *testing.T) {
	a := New(1)
	require.NoError(t, a.AddFloat("ncomponents", []float64{1}))
	b := New(1)
	require.NoError(t, b.AddInt("ncomponents", []int64{1}))

	r := Diff(a, b, DefaultDiffOptions())
	assert.False(t, r.Equal)
	require.Len(t, r.KindDrift, 1)
	assert.Contains(t, r.KindDrift[0], "got float, want int")
}

func TestDiffTolerance(t *testing.T) {
	a := New(1)
	require.NoError(t, a.AddFloat("x", []float64{1.0 + 1e-12}))
	b := New(1)
	require.NoError(t, b.AddFloat("x", []float64{1.0}))
	assert.True(t, Diff(a, b, DefaultDiffOptions()).Equal)

	tight := DiffOptions{AbsTol: 1e-15, RelTol: 1e-15, MaxDeviations: 5}
	assert.False(t, Diff(a, b, tight).Equal)
}

func TestDiffWorstDeviationsFirst(t *testing.T) {
	a := New(3)
	require.NoError(t, a.AddFloat("x", []float64{1.001, 2.1, 3.01}))
	b := New(3)
	require.NoError(t, b.AddFloat("x", []float64{1, 2, 3}))

	r := Diff(a, b, DiffOptions{AbsTol: 1e-6, RelTol: 0, MaxDeviations: 2})
	assert.False(t, r.Equal)
	require.Len(t, r.Deviations, 2)
	assert.Equal(t, 1, r.Deviations[0].Row)
	assert.Equal(t, 2, r.Deviations[1].Row)
	require.Len(t, r.CellDrift, 1)
	assert.Contains(t, r.CellDrift[0], "3 cells differ")
}

func TestDiffNaNAgainstValue(t *testing.T) {
	a := New(1)
	require.NoError(t, a.AddFloat("x", []float64{math.NaN()}))
	b := New(1)
	require.NoError(t, b.AddFloat("x", []float64{1}))
	r := Diff(a, b, DefaultDiffOptions())
	assert.False(t, r.Equal)
	require.Len(t, r.Deviations, 1)
}
