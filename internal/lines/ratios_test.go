package lines

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifukit/spaxelpipe/internal/table"
)

func ratioFixture(t *testing.T) *table.Table {
	t.Helper()
	tbl := table.New(1)
	add := func(name string, val float64) {
		require.NoError(t, tbl.AddFloat(name+" (total)", []float64{val}))
	}
	add("HALPHA", 100)
	add("HALPHA error", 5)
	add("HBETA", 35)
	add("HBETA error", 3)
	add("NII6583", 30)
	add("NII6583 error", 2)
	add("OIII5007", 20)
	add("OIII5007 error", 1.5)
	add("OII3726", 12)
	add("OII3726 error", 1)
	add("OII3729", 16)
	add("OII3729 error", 1)
	add("SII6716", 18)
	add("SII6716 error", 1.2)
	add("SII6731", 13)
	add("SII6731 error", 1.1)
	add("OI6300", 2)
	add("OI6300 error", 0.4)
	return tbl
}

func totalVal(t *testing.T, tbl *table.Table, name string) float64 {
	t.Helper()
	vals, ok := tbl.Float(name + " (total)")
	require.True(t, ok, name)
	return vals[0]
}

func TestComputeRatiosDoublets(t *testing.T) {
	tbl := ratioFixture(t)
	ComputeRatios(tbl, table.TotalSuffix)

	// Sums.
	assert.InDelta(t, 28.0, totalVal(t, tbl, "OII3726+OII3729"), 1e-12)
	assert.InDelta(t, 31.0, totalVal(t, tbl, "SII6716+SII6731"), 1e-12)
	assert.InDelta(t, math.Hypot(1.2, 1.1), totalVal(t, tbl, "SII6716+SII6731 error"), 1e-12)

	// Reconstructed doublet partners from the fixed quantum ratios.
	assert.InDelta(t, 30.0/RatioNII, totalVal(t, tbl, "NII6548"), 1e-12)
	assert.InDelta(t, 20.0/RatioOIII, totalVal(t, tbl, "OIII4959"), 1e-12)
	assert.InDelta(t, 2.0/RatioNII, totalVal(t, tbl, "NII6548 error"), 1e-12)
	assert.InDelta(t, 30.0+30.0/RatioNII, totalVal(t, tbl, "NII6548+NII6583"), 1e-12)
}

func TestComputeRatiosBPTAxes(t *testing.T) {
	tbl := ratioFixture(t)
	ComputeRatios(tbl, table.TotalSuffix)

	assert.InDelta(t, math.Log10(30.0/100.0), totalVal(t, tbl, "log N2"), 1e-12)
	assert.InDelta(t, math.Log10(31.0/100.0), totalVal(t, tbl, "log S2"), 1e-12)
	assert.InDelta(t, math.Log10(20.0/35.0), totalVal(t, tbl, "log O3"), 1e-12)
	assert.InDelta(t, math.Log10(2.0/100.0), totalVal(t, tbl, "log O1"), 1e-12)

	// Asymmetric log errors bracket the log ratio.
	n2 := totalVal(t, tbl, "N2")
	n2err := totalVal(t, tbl, "N2 error")
	wantErr := n2 * math.Hypot(2.0/30.0, 5.0/100.0)
	assert.InDelta(t, wantErr, n2err, 1e-12)
	assert.InDelta(t, math.Log10(n2)-math.Log10(n2-n2err), totalVal(t, tbl, "log N2 error (lower)"), 1e-12)
	assert.InDelta(t, math.Log10(n2+n2err)-math.Log10(n2), totalVal(t, tbl, "log N2 error (upper)"), 1e-12)
}

func TestComputeRatiosDiagnostics(t *testing.T) {
	tbl := ratioFixture(t)
	ComputeRatios(tbl, table.TotalSuffix)

	assert.InDelta(t, math.Log10(30.0/28.0), totalVal(t, tbl, "N2O2"), 1e-12)
	assert.InDelta(t, math.Log10((20.0/35.0)/(30.0/100.0)), totalVal(t, tbl, "O3N2"), 1e-12)

	o3sum := 20.0 + 20.0/RatioOIII
	assert.InDelta(t, math.Log10((o3sum+28.0)/35.0), totalVal(t, tbl, "R23"), 1e-12)

	want := math.Log10(30.0/31.0) + 0.264*math.Log10(30.0/100.0)
	assert.InDelta(t, want, totalVal(t, tbl, "Dopita+2016"), 1e-12)

	assert.InDelta(t, 18.0/13.0, totalVal(t, tbl, "[SII] ratio"), 1e-12)
	assert.InDelta(t, 16.0/12.0, totalVal(t, tbl, "[OII] ratio"), 1e-12)
}

func TestComputeRatiosPropagatesNaN(t *testing.T) {
	tbl := table.New(2)
	require.NoError(t, tbl.AddFloat("HALPHA (total)", []float64{100, math.NaN()}))
	require.NoError(t, tbl.AddFloat("NII6583 (total)", []float64{30, 30}))
	ComputeRatios(tbl, table.TotalSuffix)

	logN2, ok := tbl.Float("log N2 (total)")
	require.True(t, ok)
	assert.InDelta(t, math.Log10(0.3), logN2[0], 1e-12)
	assert.True(t, math.IsNaN(logN2[1]))

	// Ratios whose inputs are absent are not added.
	assert.False(t, tbl.Has("log O3 (total)"))
	assert.False(t, tbl.Has("R23 (total)"))
}

func TestComputeRatiosNegativeFluxGivesNaNLog(t *testing.T) {
	tbl := table.New(1)
	require.NoError(t, tbl.AddFloat("HALPHA (total)", []float64{100}))
	require.NoError(t, tbl.AddFloat("NII6583 (total)", []float64{-5}))
	ComputeRatios(tbl, table.TotalSuffix)

	assert.True(t, math.IsNaN(totalVal(t, tbl, "log N2")))
	assert.InDelta(t, -0.05, totalVal(t, tbl, "N2"), 1e-12)
}
