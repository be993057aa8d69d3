package table

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureTable(t *testing.T) *Table {
	t.Helper()
	tbl := New(3)
	require.NoError(t, tbl.AddFloat("HALPHA (total)", []float64{1.5, math.NaN(), 3.25}))
	require.NoError(t, tbl.AddInt("ID", []int64{100, 101, 102}))
	require.NoError(t, tbl.AddString("BPT (total)", []string{"SF", "Not classified", "SF"}))
	return tbl
}

func TestFingerprintStable(t *testing.T) {
	a := fixtureTable(t)
	b := fixtureTable(t)

	fa, err := a.Fingerprint()
	require.NoError(t, err)
	fb, err := b.Fingerprint()
	require.NoError(t, err)

	assert.Equal(t, fa, fb)
	assert.Len(t, fa, 64)
}

func TestFingerprintIgnoresInsertionOrder(t *testing.T) {
	a := New(2)
	require.NoError(t, a.AddFloat("x", []float64{1, 2}))
	require.NoError(t, a.AddFloat("y", []float64{3, 4}))

	b := New(2)
	require.NoError(t, b.AddFloat("y", []float64{3, 4}))
	require.NoError(t, b.AddFloat("x", []float64{1, 2}))

	assert.Equal(t, a.MustFingerprint(), b.MustFingerprint())
}

func TestFingerprintSensitivity(t *testing.T) {
	base := fixtureTable(t).MustFingerprint()

	changed := fixtureTable(t)
	vals, _ := changed.Float("HALPHA (total)")
	vals[0] = 1.5000001
	assert.NotEqual(t, base, changed.MustFingerprint())

	renamed := New(3)
	require.NoError(t, renamed.AddFloat("HBETA (total)", []float64{1.5, math.NaN(), 3.25}))
	require.NoError(t, renamed.AddInt("ID", []int64{100, 101, 102}))
	require.NoError(t, renamed.AddString("BPT (total)", []string{"SF", "Not classified", "SF"}))
	assert.NotEqual(t, base, renamed.MustFingerprint())
}

func TestFingerprintCollapsesNaNPayloads(t *testing.T) {
	// Different NaN bit patterns digest identically.
	a := New(1)
	require.NoError(t, a.AddFloat("x", []float64{math.NaN()}))

	b := New(1)
	weirdNaN := math.Float64frombits(0x7FF8000000000001)
	require.True(t, math.IsNaN(weirdNaN))
	require.NoError(t, b.AddFloat("x", []float64{weirdNaN}))

	assert.Equal(t, a.MustFingerprint(), b.MustFingerprint())
}

func TestColumnDigestDistinguishesStringBoundaries(t *testing.T) {
	a := New(2)
	require.NoError(t, a.AddString("s", []string{"ab", "c"}))
	b := New(2)
	require.NoError(t, b.AddString("s", []string{"a", "bc"}))
	assert.NotEqual(t, ColumnDigest(a.Column("s")), ColumnDigest(b.Column("s")))
}
