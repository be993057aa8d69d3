package lines

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifukit/spaxelpipe/internal/table"
)

func TestCCM89(t *testing.T) {
	// The curve is normalized to A(V)/A_V = 1 at 5495 A.
	k, err := ccm89(5495.0, 3.1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, k, 0.02)

	// Halpha suffers less extinction than Hbeta.
	kHa, err := ccm89(6562.8, 3.1)
	require.NoError(t, err)
	kHb, err := ccm89(4861.325, 3.1)
	require.NoError(t, err)
	assert.Less(t, kHa, kHb)
	assert.InDelta(t, 0.8177774968937198, kHa, 1e-12)
	assert.InDelta(t, 1.1641639384537243, kHb, 1e-12)

	// Near-IR branch covers SIII9531.
	kIR, err := ccm89(9531.1, 3.1)
	require.NoError(t, err)
	assert.Greater(t, kIR, 0.0)
	assert.Less(t, kIR, kHa)

	_, err = ccm89(100.0, 3.1)
	require.Error(t, err)
}

func TestComputeBalmerDecrement(t *testing.T) {
	tbl := table.New(2)
	require.NoError(t, tbl.AddFloat("HALPHA (total)", []float64{400, math.NaN()}))
	require.NoError(t, tbl.AddFloat("HALPHA error (total)", []float64{8, 1}))
	require.NoError(t, tbl.AddFloat("HBETA (total)", []float64{100, 50}))
	require.NoError(t, tbl.AddFloat("HBETA error (total)", []float64{2, 1}))

	ComputeBalmerDecrement(tbl, table.TotalSuffix)

	bd, ok := tbl.Float("Balmer decrement (total)")
	require.True(t, ok)
	assert.InDelta(t, 4.0, bd[0], 1e-12)
	assert.True(t, math.IsNaN(bd[1]))

	bde, ok := tbl.Float("Balmer decrement error (total)")
	require.True(t, ok)
	assert.InDelta(t, 4.0*math.Hypot(8.0/400, 2.0/100), bde[0], 1e-12)
}

func TestComputeExtinctionCorrection(t *testing.T) {
	tbl := table.New(3)
	// Row 0: strong decrement, high S/N. Row 1: decrement below Case B.
	// Row 2: low S/N decrement.
	require.NoError(t, tbl.AddFloat("HALPHA (total)", []float64{400, 250, 300}))
	require.NoError(t, tbl.AddFloat("HALPHA error (total)", []float64{8, 5, 200}))
	require.NoError(t, tbl.AddFloat("HBETA (total)", []float64{100, 100, 100}))
	require.NoError(t, tbl.AddFloat("HBETA error (total)", []float64{2, 2, 80}))
	require.NoError(t, tbl.AddFloat("HALPHA EW (total)", []float64{10, 10, 10}))

	opts := ExtinctionOptions{
		RestWavelengths: map[string]float64{"HALPHA": 6562.8, "HBETA": 4861.325},
		BalmerSNRMin:    5,
		RV:              3.1,
	}
	require.NoError(t, ComputeExtinctionCorrection(tbl, opts, table.TotalSuffix))

	av, ok := tbl.Float("A_V (total)")
	require.True(t, ok)
	assert.InDelta(t, 1.0515275767056897, av[0], 1e-9)
	assert.Equal(t, 0.0, av[1])
	assert.True(t, math.IsNaN(av[2]))

	// Row 0 fluxes scaled up, and the corrected decrement lands on the
	// Case B value.
	ha, _ := tbl.Float("HALPHA (total)")
	hb, _ := tbl.Float("HBETA (total)")
	assert.Greater(t, ha[0], 400.0)
	assert.InDelta(t, balmerIntrinsic, ha[0]/hb[0], 1e-9)

	// Row 1 (A_V = 0) and row 2 (A_V NaN) untouched.
	assert.Equal(t, 250.0, ha[1])
	assert.Equal(t, 300.0, ha[2])

	// Equivalent widths are never corrected.
	ew, _ := tbl.Float("HALPHA EW (total)")
	assert.Equal(t, []float64{10, 10, 10}, ew)

	// Errors scaled by the same factor as the fluxes.
	haErr, _ := tbl.Float("HALPHA error (total)")
	assert.InDelta(t, ha[0]/400.0, haErr[0]/8.0, 1e-12)
}

func TestComputeExtinctionCorrectionNoBalmerLines(t *testing.T) {
	tbl := table.New(1)
	require.NoError(t, tbl.AddFloat("NII6583 (total)", []float64{30}))
	err := ComputeExtinctionCorrection(tbl, ExtinctionOptions{
		RestWavelengths: map[string]float64{"NII6583": 6583.46},
	}, table.TotalSuffix)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Balmer decrement unavailable")
}
