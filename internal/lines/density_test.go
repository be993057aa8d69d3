package lines

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ifukit/spaxelpipe/internal/table"
)

func TestNEProxauf2014(t *testing.T) {
	ne, lo, up := NEProxauf2014(1.0)
	assert.InDelta(t, 449.3936099807812, ne, 1e-9)
	assert.False(t, lo)
	assert.False(t, up)

	// Saturation at the high-density end.
	for _, r := range []float64{0.1, -0.2, 0.3} {
		ne, lo, up = NEProxauf2014(r)
		assert.Equal(t, 1e4, ne)
		assert.False(t, lo)
		assert.True(t, up)
	}

	// Saturation at the low-density end.
	for _, r := range []float64{1.6, 2.0, 999} {
		ne, lo, up = NEProxauf2014(r)
		assert.Equal(t, 40.0, ne)
		assert.True(t, lo)
		assert.False(t, up)
	}

	// Non-finite input.
	for _, r := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		ne, lo, up = NEProxauf2014(r)
		assert.True(t, math.IsNaN(ne))
		assert.False(t, lo)
		assert.False(t, up)
	}
}

func TestNESanders2016(t *testing.T) {
	ne, lo, up, err := NESanders2016("[OII]", 1.0)
	require.NoError(t, err)
	assert.InDelta(t, 469.2290897415315, ne, 1e-9)
	assert.False(t, lo)
	assert.False(t, up)

	ne, _, _, err = NESanders2016("[SII]", 1.0)
	require.NoError(t, err)
	assert.InDelta(t, 496.1662269129286, ne, 1e-9)

	// High-density saturation.
	for _, r := range []float64{0.1, -0.2, 0.38} {
		ne, lo, up, err = NESanders2016("[OII]", r)
		require.NoError(t, err)
		assert.Equal(t, 1e5, ne)
		assert.True(t, up)
		assert.False(t, lo)
	}

	// Low-density saturation.
	for _, r := range []float64{1.46, 2.0, 999} {
		ne, lo, up, err = NESanders2016("[SII]", r)
		require.NoError(t, err)
		assert.Equal(t, 1.0, ne)
		assert.True(t, lo)
		assert.False(t, up)
	}

	ne, lo, up, err = NESanders2016("[OII]", math.NaN())
	require.NoError(t, err)
	assert.True(t, math.IsNaN(ne))
	assert.False(t, lo)
	assert.False(t, up)

	_, _, _, err = NESanders2016("[NII]", 1.0)
	require.Error(t, err)
}

func TestComputeElectronDensity(t *testing.T) {
	rvals := []float64{math.NaN(), 0.1, 1.6, 1.0}
	tbl := table.New(len(rvals))
	require.NoError(t, tbl.AddFloat("[SII] ratio (component 1)", rvals))

	require.NoError(t, ComputeElectronDensity(tbl, "[SII]", "Proxauf2014", table.ComponentSuffix(1)))

	ne, ok := tbl.Float("n_e (Proxauf2014 ([SII])) (component 1)")
	require.True(t, ok)
	assert.True(t, math.IsNaN(ne[0]))
	assert.Equal(t, 1e4, ne[1])
	assert.Equal(t, 40.0, ne[2])
	assert.InDelta(t, 449.3936099807812, ne[3], 1e-9)

	lolim, ok := tbl.Bool("n_e (Proxauf2014 ([SII])) lower limit? (component 1)")
	require.True(t, ok)
	uplim, ok := tbl.Bool("n_e (Proxauf2014 ([SII])) upper limit? (component 1)")
	require.True(t, ok)
	assert.Equal(t, []bool{false, false, true, false}, lolim)
	assert.Equal(t, []bool{false, true, false, false}, uplim)
}

func TestComputeElectronDensityValidation(t *testing.T) {
	tbl := table.New(1)
	require.NoError(t, tbl.AddFloat("[OII] ratio (total)", []float64{1}))

	// Proxauf2014 is [SII]-only.
	err := ComputeElectronDensity(tbl, "[OII]", "Proxauf2014", table.TotalSuffix)
	require.Error(t, err)

	// Missing ratio column.
	err = ComputeElectronDensity(tbl, "[SII]", "Sanders2016", table.TotalSuffix)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "[SII] ratio (total)")

	require.NoError(t, ComputeElectronDensity(tbl, "[OII]", "Sanders2016", table.TotalSuffix))
	ne, ok := tbl.Float("n_e (Sanders2016 ([OII])) (total)")
	require.True(t, ok)
	assert.InDelta(t, 469.2290897415315, ne[0], 1e-9)
}
