package metallicity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixtureRow returns line fluxes typical of a star-forming spaxel, with the
// doublet sums the line-ratio stage would have added.
func fixtureRow() row {
	return row{
		"HALPHA":            100,
		"HBETA":             35,
		"NII6583":           30,
		"OIII5007":          20,
		"OII3726+OII3729":   28,
		"SII6716+SII6731":   31,
		"NII6548+NII6583":   30 + 30/3.06,
		"OIII4959+OIII5007": 20 + 20/2.94,
	}
}

func TestSimpleDiagnostics(t *testing.T) {
	r := fixtureRow()
	cases := []struct {
		diag Diagnostic
		want float64
	}{
		{N2HaPP04, 8.60729691592956},
		{N2HaM13, 8.501430019680484},
		{O3N2PP04, 8.640450977089907},
		{O3N2M13, 8.473114090928874},
		{N2S2HaD16, 8.617751224245218},
		{N2O2KD02, 9.128185387437608},
		{ONSP10, 8.635465191744112},
		{ONP10, 8.634986292275997},
	}
	for _, tc := range cases {
		t.Run(string(tc.diag), func(t *testing.T) {
			z, u := evaluateRow(Options{Diagnostic: tc.diag}, r)
			assert.InDelta(t, tc.want, z, 1e-12)
			assert.True(t, math.IsNaN(u))
		})
	}
}

func TestDiagnosticValidityLimits(t *testing.T) {
	r := fixtureRow()

	// [NII]/Halpha of unity sits outside every N2Ha calibration range.
	r["NII6583"] = 100
	assert.True(t, math.IsNaN(evalSimple(N2HaPP04, r)))
	assert.True(t, math.IsNaN(evalSimple(N2HaM13, r)))

	// Missing flux propagates.
	r["NII6583"] = math.NaN()
	assert.True(t, math.IsNaN(evalSimple(N2HaPP04, r)))
	assert.True(t, math.IsNaN(evalSimple(N2O2KD02, r)))
}

func TestPG16Branches(t *testing.T) {
	r := fixtureRow()

	// The fixture's [NII]/Hbeta falls between the two calibration
	// branches, where the diagnostic is undefined.
	assert.True(t, math.IsNaN(evalSimple(RcalPG16, r)))
	assert.True(t, math.IsNaN(evalSimple(ScalPG16, r)))

	// Weak nitrogen selects the lower branch.
	r["NII6548+NII6583"] = 5
	assert.InDelta(t, 7.230646539294102, evalSimple(RcalPG16, r), 1e-12)
	assert.InDelta(t, 7.352678301477133, evalSimple(ScalPG16, r), 1e-12)
}

func TestPilyugin2010Branches(t *testing.T) {
	r := fixtureRow()

	// Warm branch: weak nitrogen, comparable sulphur.
	r["NII6548+NII6583"] = 2
	r["SII6716+SII6731"] = 2.2
	assert.InDelta(t, 7.963438181732425, evalSimple(ONSP10, r), 1e-12)
	assert.InDelta(t, 7.904423570101056, evalSimple(ONP10, r), 1e-12)

	// Hot branch: weak nitrogen, strong sulphur.
	r["SII6716+SII6731"] = 31
	assert.InDelta(t, 7.35703518476299, evalSimple(ONSP10, r), 1e-12)
	assert.InDelta(t, 6.989038330042838, evalSimple(ONP10, r), 1e-12)

	// NaN nitrogen matches no branch.
	r["NII6548+NII6583"] = math.NaN()
	assert.True(t, math.IsNaN(evalSimple(ONSP10, r)))
}

func TestK19Iterative(t *testing.T) {
	r := fixtureRow()
	r["NII6583"] = 10
	r["OII3726+OII3729"] = 60

	z, u := evalK19Iterative(N2O2K19, O3O2K19, r, defaultMaxIters)
	assert.InDelta(t, 8.650828758785346, z, 1e-12)
	assert.InDelta(t, -3.1110530269625105, u, 1e-12)

	// The default fixture converges to log(U) above the O3O2 calibration
	// ceiling, so both outputs are masked.
	z, u = evalK19Iterative(N2O2K19, O3O2K19, fixtureRow(), defaultMaxIters)
	assert.True(t, math.IsNaN(z))
	assert.True(t, math.IsNaN(u))

	// Missing ratio.
	r["OIII5007"] = math.NaN()
	z, u = evalK19Iterative(N2O2K19, O3O2K19, r, defaultMaxIters)
	assert.True(t, math.IsNaN(z))
	assert.True(t, math.IsNaN(u))
}

func TestK19FixedLogU(t *testing.T) {
	r := fixtureRow()
	r["NII6583"] = 10
	r["OII3726+OII3729"] = 60

	z, u := evalK19Fixed(N2O2K19, r, -3.0)
	assert.InDelta(t, 8.6602261682388, z, 1e-12)
	assert.Equal(t, -3.0, u)
}

func TestKK04(t *testing.T) {
	r := fixtureRow()

	z, u := evalKK04Iterative(r, defaultMaxIters)
	assert.InDelta(t, 9.089919605255842, z, 1e-12)
	assert.InDelta(t, -2.408651478145517, u, 1e-12)

	z, u = evalKK04Fixed(r, -3.0)
	assert.InDelta(t, 9.122243062834588, z, 1e-12)
	assert.Equal(t, -3.0, u)

	// The calibration is undefined for log(R23) > 1.
	r["HBETA"] = 1
	z, u = evalKK04Iterative(r, defaultMaxIters)
	assert.True(t, math.IsNaN(z))
	assert.True(t, math.IsNaN(u))
	z, _ = evalKK04Fixed(r, -3.0)
	assert.True(t, math.IsNaN(z))
}

func TestValidateDiagnostics(t *testing.T) {
	require.Error(t, validateDiagnostics(Options{Diagnostic: "bogus"}))

	// Ionisation diagnostics are not metallicity diagnostics.
	require.Error(t, validateDiagnostics(Options{Diagnostic: O3O2K19}))
	require.Error(t, validateDiagnostics(Options{Diagnostic: O3O2KK04}))

	// K19 family needs a log(U), fixed or iterated.
	require.Error(t, validateDiagnostics(Options{Diagnostic: N2O2K19}))
	require.NoError(t, validateDiagnostics(Options{Diagnostic: N2O2K19, HasFixedLogU: true, FixedLogU: -3}))
	require.NoError(t, validateDiagnostics(Options{Diagnostic: N2O2K19, ComputeLogU: true, IonDiagnostic: O3O2K19}))

	// R23_KK04 pairs only with O3O2_KK04.
	require.Error(t, validateDiagnostics(Options{Diagnostic: R23KK04, ComputeLogU: true, IonDiagnostic: O3O2K19}))
	require.NoError(t, validateDiagnostics(Options{Diagnostic: R23KK04, ComputeLogU: true, IonDiagnostic: O3O2KK04}))

	// Diagnostics without an ionisation parameter reject ComputeLogU.
	require.Error(t, validateDiagnostics(Options{Diagnostic: N2HaPP04, ComputeLogU: true, IonDiagnostic: O3O2K19}))
	require.NoError(t, validateDiagnostics(Options{Diagnostic: N2HaPP04}))
}

func TestQuantile(t *testing.T) {
	vals := []float64{4, 1, 3, 2}
	assert.InDelta(t, 1.0, quantile(vals, 0), 1e-12)
	assert.InDelta(t, 4.0, quantile(vals, 1), 1e-12)
	assert.InDelta(t, 2.5, quantile(vals, 0.5), 1e-12)
	assert.InDelta(t, 1.48, quantile(vals, 0.16), 1e-12)

	// A single NaN poisons the quantile but not the mean.
	vals = append(vals, math.NaN())
	assert.True(t, math.IsNaN(quantile(vals, 0.5)))
	assert.InDelta(t, 2.5, nanMean(vals), 1e-12)

	assert.True(t, math.IsNaN(nanMean([]float64{math.NaN()})))
	assert.True(t, math.IsNaN(quantile(nil, 0.5)))
}
