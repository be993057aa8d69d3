package lines

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifukit/spaxelpipe/internal/table"
)

func TestComputeLuminosities(t *testing.T) {
	tbl := table.New(1)
	require.NoError(t, tbl.AddFloat("D_L (Mpc)", []float64{100}))
	require.NoError(t, tbl.AddFloat("Bin size (square kpc)", []float64{0.25}))
	require.NoError(t, tbl.AddFloat("HALPHA (total)", []float64{50}))
	require.NoError(t, tbl.AddFloat("HALPHA error (total)", []float64{5}))
	require.NoError(t, tbl.AddFloat("HALPHA (component 1)", []float64{30}))
	require.NoError(t, tbl.AddFloat("HALPHA error (component 1)", []float64{3}))

	ComputeLuminosities(tbl, 3, []string{"HALPHA"}, 1e-16)

	dcm := 100 * cmPerMpc
	scale := 1e-16 * 4 * math.Pi * dcm * dcm / 0.25

	lum, ok := tbl.Float("HALPHA luminosity (total)")
	require.True(t, ok)
	assert.InDelta(t, 50*scale, lum[0], 50*scale*1e-12)

	lumC1, ok := tbl.Float("HALPHA luminosity (component 1)")
	require.True(t, ok)
	assert.InDelta(t, 30*scale, lumC1[0], 30*scale*1e-12)

	lumErr, ok := tbl.Float("HALPHA luminosity error (total)")
	require.True(t, ok)
	assert.InDelta(t, 5*scale, lumErr[0], 5*scale*1e-12)

	// Components that were never fitted get no columns.
	assert.False(t, tbl.Has("HALPHA luminosity (component 2)"))
}

func TestComputeLuminositiesNeedsDistances(t *testing.T) {
	tbl := table.New(1)
	require.NoError(t, tbl.AddFloat("HALPHA (total)", []float64{50}))
	ComputeLuminosities(tbl, 1, []string{"HALPHA"}, 1e-16)
	assert.False(t, tbl.Has("HALPHA luminosity (total)"))
}

func TestComputeFWHM(t *testing.T) {
	tbl := table.New(2)
	require.NoError(t, tbl.AddFloat("sigma_gas (component 1)", []float64{50, math.NaN()}))
	require.NoError(t, tbl.AddFloat("sigma_gas error (component 1)", []float64{5, 1}))

	ComputeFWHM(tbl, 3)

	fwhm, ok := tbl.Float("FWHM_gas (component 1)")
	require.True(t, ok)
	assert.InDelta(t, 50*2*math.Sqrt(2*math.Ln2), fwhm[0], 1e-9)
	assert.True(t, math.IsNaN(fwhm[1]))

	fwhmErr, ok := tbl.Float("FWHM_gas error (component 1)")
	require.True(t, ok)
	assert.InDelta(t, 5*2*math.Sqrt(2*math.Ln2), fwhmErr[0], 1e-9)
}

func TestComputeEquivalentWidths(t *testing.T) {
	tbl := table.New(3)
	require.NoError(t, tbl.AddFloat("HALPHA continuum", []float64{5, 0, 2}))
	require.NoError(t, tbl.AddFloat("HALPHA continuum error", []float64{0.5, 0.1, 0.2}))
	require.NoError(t, tbl.AddFloat("HALPHA (total)", []float64{50, 10, math.NaN()}))
	require.NoError(t, tbl.AddFloat("HALPHA error (total)", []float64{5, 1, 1}))

	ComputeEquivalentWidths(tbl, 1)

	ew, ok := tbl.Float("HALPHA EW (total)")
	require.True(t, ok)
	assert.InDelta(t, 10.0, ew[0], 1e-12)
	assert.True(t, math.IsNaN(ew[1])) // zero continuum
	assert.True(t, math.IsNaN(ew[2]))

	ewErr, ok := tbl.Float("HALPHA EW error (total)")
	require.True(t, ok)
	assert.InDelta(t, 10*math.Hypot(5.0/50, 0.5/5), ewErr[0], 1e-12)
}

func TestComputeSFROnlyForStarFormingRows(t *testing.T) {
	tbl := table.New(3)
	require.NoError(t, tbl.AddFloat("HALPHA luminosity (total)", []float64{1e41, 2e41, 3e41}))
	require.NoError(t, tbl.AddFloat("HALPHA luminosity error (total)", []float64{1e40, 2e40, 3e40}))
	require.NoError(t, tbl.AddFloat("BPT (numeric) (total)", []float64{0, 2, -1}))

	ComputeSFR(tbl, 3)

	sfr, ok := tbl.Float("SFR (total)")
	require.True(t, ok)
	assert.InDelta(t, 1e41*calzettiSFRPerLum, sfr[0], 1e-9)
	assert.True(t, math.IsNaN(sfr[1]))
	assert.True(t, math.IsNaN(sfr[2]))

	sfrErr, ok := tbl.Float("SFR error (total)")
	require.True(t, ok)
	assert.InDelta(t, 1e40*calzettiSFRPerLum, sfrErr[0], 1e-9)
}
