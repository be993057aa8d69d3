// Package cosmo computes flat ΛCDM distances. Only the quantities the
// pipeline needs are implemented: comoving, luminosity and angular
// diameter distance, and the projected physical scale per arcsecond.
package cosmo

import "math"

const cKms = 299792.458 // speed of light, km/s

// FlatLambdaCDM is a flat cosmology: ΩΛ = 1 - Ωm.
type FlatLambdaCDM struct {
	H0  float64 // Hubble constant, km/s/Mpc
	Om0 float64 // matter density today
}

// efunc is E(z) = H(z)/H0 for a flat universe.
func (c FlatLambdaCDM) efunc(z float64) float64 {
	zp1 := 1 + z
	return math.Sqrt(c.Om0*zp1*zp1*zp1 + (1 - c.Om0))
}

// hubbleDistance returns c/H0 in Mpc.
func (c FlatLambdaCDM) hubbleDistance() float64 {
	return cKms / c.H0
}

// ComovingDistance returns D_C(z) in Mpc, by composite Simpson
// integration of dz'/E(z'). The step count gives sub-ppm accuracy over
// the survey redshift range (z < 0.15).
func (c FlatLambdaCDM) ComovingDistance(z float64) float64 {
	if z <= 0 {
		return 0
	}
	const n = 1000 // even
	h := z / n
	sum := 1/c.efunc(0) + 1/c.efunc(z)
	for i := 1; i < n; i++ {
		w := 2.0
		if i%2 == 1 {
			w = 4.0
		}
		sum += w / c.efunc(float64(i)*h)
	}
	return c.hubbleDistance() * sum * h / 3
}

// LuminosityDistance returns D_L(z) in Mpc.
func (c FlatLambdaCDM) LuminosityDistance(z float64) float64 {
	return (1 + z) * c.ComovingDistance(z)
}

// AngularDiameterDistance returns D_A(z) in Mpc.
func (c FlatLambdaCDM) AngularDiameterDistance(z float64) float64 {
	return c.ComovingDistance(z) / (1 + z)
}

// KpcPerArcsec returns the projected physical scale at z in kpc/arcsec.
func (c FlatLambdaCDM) KpcPerArcsec(z float64) float64 {
	const arcsecToRad = math.Pi / 180 / 3600
	return c.AngularDiameterDistance(z) * 1e3 * arcsecToRad
}
