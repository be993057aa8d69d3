package dqcut

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifukit/spaxelpipe/internal/table"
)

func TestLineFluxSNRCut(t *testing.T) {
	tbl := table.New(2)
	require.NoError(t, tbl.AddFloat("NII6583 (total)", []float64{10, 20}))
	require.NoError(t, tbl.AddFloat("NII6583 error (total)", []float64{2.5, 2}))
	require.NoError(t, tbl.AddFloat("NII6583 S/N (total)", []float64{4, 10}))

	opts := Options{
		NComponents:    1,
		ElineList:      []string{"NII6583"},
		LineFluxSNRCut: true,
		ElineSNRMin:    5,
	}
	require.NoError(t, Apply(tbl, opts))

	flux, _ := tbl.Float("NII6583 (total)")
	assert.True(t, math.IsNaN(flux[0]))
	assert.Equal(t, 20.0, flux[1])
	fluxErr, _ := tbl.Float("NII6583 error (total)")
	assert.True(t, math.IsNaN(fluxErr[0]))
}

func TestLineFluxSNRCutHalphaMasksKinematics(t *testing.T) {
	tbl := table.New(1)
	require.NoError(t, tbl.AddFloat("HALPHA (component 1)", []float64{10}))
	require.NoError(t, tbl.AddFloat("HALPHA error (component 1)", []float64{5}))
	require.NoError(t, tbl.AddFloat("HALPHA S/N (component 1)", []float64{2}))
	require.NoError(t, tbl.AddFloat("HALPHA EW (component 1)", []float64{3}))
	require.NoError(t, tbl.AddFloat("v_gas (component 1)", []float64{120}))
	require.NoError(t, tbl.AddFloat("sigma_gas (component 1)", []float64{60}))

	opts := Options{
		NComponents:    1,
		ElineList:      []string{"HALPHA"},
		LineFluxSNRCut: true,
		ElineSNRMin:    5,
	}
	require.NoError(t, Apply(tbl, opts))

	for _, col := range []string{
		"HALPHA (component 1)", "HALPHA EW (component 1)",
		"v_gas (component 1)", "sigma_gas (component 1)",
	} {
		vals, ok := tbl.Float(col)
		require.True(t, ok, col)
		assert.True(t, math.IsNaN(vals[0]), col)
	}
}

func TestSigmaGasSNRCut(t *testing.T) {
	// Row 0: broad component with small error, easily believable.
	// Row 1: narrow component with large error, below the inflated
	// target S/N once the 29.6 km/s instrumental resolution is added.
	tbl := table.New(2)
	require.NoError(t, tbl.AddFloat("sigma_gas (component 1)", []float64{50, 15}))
	require.NoError(t, tbl.AddFloat("sigma_gas error (component 1)", []float64{5, 10}))

	opts := Options{
		NComponents:    1,
		SigmaGasSNRCut: true,
		SigmaGasSNRMin: 3,
		SigmaInstKMS:   29.6,
	}
	require.NoError(t, Apply(tbl, opts))

	sigma, _ := tbl.Float("sigma_gas (component 1)")
	assert.Equal(t, 50.0, sigma[0])
	assert.True(t, math.IsNaN(sigma[1]))

	obs, ok := tbl.Float("sigma_obs (component 1)")
	require.True(t, ok)
	assert.InDelta(t, math.Sqrt(50*50+29.6*29.6), obs[0], 1e-9)

	target, ok := tbl.Float("sigma_obs target S/N (component 1)")
	require.True(t, ok)
	assert.InDelta(t, 3*(1+29.6*29.6/(50.0*50.0)), target[0], 1e-9)

	count, _ := tbl.Float("Number of components")
	assert.Equal(t, []float64{1, 0}, count)
}

func TestVgradCut(t *testing.T) {
	tbl := table.New(2)
	require.NoError(t, tbl.AddFloat("sigma_gas (component 1)", []float64{30, 100}))
	require.NoError(t, tbl.AddFloat("sigma_gas error (component 1)", []float64{2, 2}))
	require.NoError(t, tbl.AddFloat("v_gas (component 1)", []float64{10, 10}))
	require.NoError(t, tbl.AddFloat("v_grad (component 1)", []float64{40, 10}))

	opts := Options{NComponents: 1, VgradCut: true}
	require.NoError(t, Apply(tbl, opts))

	sigma, _ := tbl.Float("sigma_gas (component 1)")
	assert.True(t, math.IsNaN(sigma[0])) // 30 < 2*40
	assert.Equal(t, 100.0, sigma[1])
	v, _ := tbl.Float("v_gas (component 1)")
	assert.True(t, math.IsNaN(v[0]))
}

func TestLineAmplitudeSNRCut(t *testing.T) {
	tbl := table.New(2)
	require.NoError(t, tbl.AddFloat("HALPHA (component 1)", []float64{100, 5}))
	require.NoError(t, tbl.AddFloat("sigma_gas (component 1)", []float64{50, 50}))
	require.NoError(t, tbl.AddFloat("HALPHA continuum std. dev.", []float64{1, 1}))
	require.NoError(t, tbl.AddFloat("z", []float64{0.05, 0.05}))

	opts := Options{NComponents: 1, LineAmplitudeSNRCut: true}
	require.NoError(t, Apply(tbl, opts))

	flux, _ := tbl.Float("HALPHA (component 1)")
	assert.Equal(t, 100.0, flux[0])
	assert.True(t, math.IsNaN(flux[1]))
}

func TestFluxFractionCut(t *testing.T) {
	tbl := table.New(2)
	require.NoError(t, tbl.AddFloat("HALPHA (component 1)", []float64{100, 100}))
	require.NoError(t, tbl.AddFloat("HALPHA (component 2)", []float64{2, 50}))
	require.NoError(t, tbl.AddFloat("sigma_gas (component 2)", []float64{80, 80}))

	opts := Options{NComponents: 2, FluxFractionCut: true}
	require.NoError(t, Apply(tbl, opts))

	c2, _ := tbl.Float("HALPHA (component 2)")
	assert.True(t, math.IsNaN(c2[0])) // 2 < 0.05*100
	assert.Equal(t, 50.0, c2[1])
	c1, _ := tbl.Float("HALPHA (component 1)")
	assert.Equal(t, []float64{100, 100}, c1)
}

func TestStellarKinematicsCut(t *testing.T) {
	tbl := table.New(4)
	require.NoError(t, tbl.AddFloat("sigma_*", []float64{50, 30, 50, 50}))
	require.NoError(t, tbl.AddFloat("sigma_* error", []float64{5, 5, 40, 5}))
	require.NoError(t, tbl.AddFloat("v_*", []float64{100, 100, 100, 100}))
	require.NoError(t, tbl.AddFloat("v_* error", []float64{10, 10, 10, 35}))

	opts := Options{NComponents: 1, StellarKinematicsCut: true}
	require.NoError(t, Apply(tbl, opts))

	sigma, _ := tbl.Float("sigma_*")
	v, _ := tbl.Float("v_*")
	assert.Equal(t, 50.0, sigma[0]) // passes all criteria
	assert.True(t, math.IsNaN(sigma[1]))
	assert.True(t, math.IsNaN(sigma[2])) // error 40 >= 0.1*50 + 25
	assert.True(t, math.IsNaN(v[3]))     // v_* error 35 >= 30
}

func TestRecountComponents(t *testing.T) {
	tbl := table.New(3)
	require.NoError(t, tbl.AddFloat("sigma_gas (component 1)", []float64{60, 60, math.NaN()}))
	require.NoError(t, tbl.AddFloat("sigma_gas error (component 1)", []float64{2, 2, 2}))
	require.NoError(t, tbl.AddFloat("sigma_gas (component 2)", []float64{90, math.NaN(), math.NaN()}))
	require.NoError(t, tbl.AddFloat("sigma_gas error (component 2)", []float64{3, 3, 3}))

	require.NoError(t, Apply(tbl, Options{NComponents: 2}))

	count, ok := tbl.Float("Number of components")
	require.True(t, ok)
	assert.Equal(t, []float64{2, 1, 0}, count)
}

func TestApplyRejectsZeroComponents(t *testing.T) {
	require.Error(t, Apply(table.New(1), Options{}))
}

func TestComputeExtraColumns(t *testing.T) {
	tbl := table.New(2)
	require.NoError(t, tbl.AddFloat("HALPHA EW (total)", []float64{10, -1}))
	require.NoError(t, tbl.AddFloat("sigma_gas (component 1)", []float64{100, 50}))
	require.NoError(t, tbl.AddFloat("sigma_gas (component 2)", []float64{150, math.NaN()}))
	require.NoError(t, tbl.AddFloat("v_gas (component 1)", []float64{20, 30}))
	require.NoError(t, tbl.AddFloat("v_gas (component 2)", []float64{50, 30}))
	require.NoError(t, tbl.AddFloat("SFR (total)", []float64{0.01, 0}))

	ComputeExtraColumns(tbl, 2)

	logEW, ok := tbl.Float("log HALPHA EW (total)")
	require.True(t, ok)
	assert.InDelta(t, 1.0, logEW[0], 1e-12)
	assert.True(t, math.IsNaN(logEW[1])) // negative EW

	logSigma, ok := tbl.Float("log sigma_gas (component 1)")
	require.True(t, ok)
	assert.InDelta(t, 2.0, logSigma[0], 1e-12)

	logSFR, ok := tbl.Float("log SFR (total)")
	require.True(t, ok)
	assert.InDelta(t, -2.0, logSFR[0], 1e-12)
	assert.True(t, math.IsNaN(logSFR[1])) // zero SFR

	dsig, ok := tbl.Float("delta sigma_gas (2/1)")
	require.True(t, ok)
	assert.InDelta(t, 50.0, dsig[0], 1e-12)
	assert.True(t, math.IsNaN(dsig[1]))

	dv, ok := tbl.Float("delta v_gas (2/1)")
	require.True(t, ok)
	assert.InDelta(t, 30.0, dv[0], 1e-12)
}
