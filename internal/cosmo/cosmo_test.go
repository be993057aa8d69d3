package cosmo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Reference values computed with an independent high-resolution
// integration of the same cosmology (H0=70, Om0=0.3).
func TestComovingDistance(t *testing.T) {
	c := FlatLambdaCDM{H0: 70, Om0: 0.3}
	assert.InDelta(t, 42.730926, c.ComovingDistance(0.01), 1e-3)
	assert.InDelta(t, 211.703862, c.ComovingDistance(0.05), 1e-3)
	assert.InDelta(t, 418.454488, c.ComovingDistance(0.1), 1e-3)
}

func TestLuminosityAndAngularDiameterDistance(t *testing.T) {
	c := FlatLambdaCDM{H0: 70, Om0: 0.3}
	assert.InDelta(t, 460.299936, c.LuminosityDistance(0.1), 1e-3)
	assert.InDelta(t, 380.413171, c.AngularDiameterDistance(0.1), 1e-3)
}

func TestKpcPerArcsec(t *testing.T) {
	c := FlatLambdaCDM{H0: 70, Om0: 0.3}
	assert.InDelta(t, 1.8442951, c.KpcPerArcsec(0.1), 1e-5)
	assert.InDelta(t, 0.20511423, c.KpcPerArcsec(0.01), 1e-6)
}

func TestZeroRedshift(t *testing.T) {
	c := FlatLambdaCDM{H0: 70, Om0: 0.3}
	assert.Equal(t, 0.0, c.ComovingDistance(0))
	assert.Equal(t, 0.0, c.LuminosityDistance(0))
	assert.Equal(t, 0.0, c.KpcPerArcsec(-0.1))
}

func TestDistanceOrdering(t *testing.T) {
	c := FlatLambdaCDM{H0: 70, Om0: 0.3}
	z := 0.05
	dc := c.ComovingDistance(z)
	assert.Greater(t, c.LuminosityDistance(z), dc)
	assert.Less(t, c.AngularDiameterDistance(z), dc)
}
