package lines

import (
	"math"

	"github.com/ifukit/spaxelpipe/internal/table"
)

// cmPerMpc converts Mpc to cm (1 pc = 3.086e18 cm).
const cmPerMpc = 1e6 * 3.086e18

// sigmaToFWHM converts a Gaussian dispersion to FWHM.
var sigmaToFWHM = 2 * math.Sqrt(2*math.Ln2)

// ComputeLuminosities adds per-line luminosity surface density columns
// (erg/s per square kpc), for the total and each component, from the
// luminosity distance and bin area columns. fluxUnits is the flux unit
// scale in erg/s/cm^2.
func ComputeLuminosities(t *table.Table, ncomponentsMax int, elines []string, fluxUnits float64) {
	dl, dlok := t.Float("D_L (Mpc)")
	area, areaok := t.Float("Bin size (square kpc)")
	if !dlok || !areaok {
		return
	}
	suffixes := allSuffixes(ncomponentsMax)
	for _, eline := range elines {
		for _, suffix := range suffixes {
			v := t.ViewOf(suffix)
			flux, fok := v.Float(eline)
			ferr, feok := v.Float(eline + " error")
			if !fok || !feok {
				continue
			}
			lum := v.Ensure(eline + " luminosity")
			lumErr := v.Ensure(eline + " luminosity error")
			for i := range lum {
				dcm := dl[i] * cmPerMpc
				scale := fluxUnits * 4 * math.Pi * dcm * dcm / area[i]
				lum[i] = flux[i] * scale
				lumErr[i] = ferr[i] * scale
			}
		}
	}
}

// ComputeFWHM converts the per-component gas velocity dispersions to
// full widths at half maximum.
func ComputeFWHM(t *table.Table, ncomponentsMax int) {
	for n := 1; n <= ncomponentsMax; n++ {
		v := t.ViewOf(table.ComponentSuffix(n))
		if sigma, ok := v.Float("sigma_gas"); ok {
			out := v.Ensure("FWHM_gas")
			for i := range out {
				out[i] = sigma[i] * sigmaToFWHM
			}
		}
		if sigmaErr, ok := v.Float("sigma_gas error"); ok {
			out := v.Ensure("FWHM_gas error")
			for i := range out {
				out[i] = sigmaErr[i] * sigmaToFWHM
			}
		}
	}
}

// ComputeEquivalentWidths adds Hα equivalent width columns from the
// line flux and the continuum level.
func ComputeEquivalentWidths(t *table.Table, ncomponentsMax int) {
	cont, contok := t.Float("HALPHA continuum")
	if !contok {
		return
	}
	contErr, contErrOK := t.Float("HALPHA continuum error")
	for _, suffix := range allSuffixes(ncomponentsMax) {
		v := t.ViewOf(suffix)
		flux, fok := v.Float("HALPHA")
		if !fok {
			continue
		}
		ew := v.Ensure("HALPHA EW")
		for i := range ew {
			ew[i] = flux[i] / cont[i]
			if cont[i] <= 0 {
				ew[i] = math.NaN()
			}
		}
		ferr, feok := v.Float("HALPHA error")
		if !feok || !contErrOK {
			continue
		}
		ewErr := v.Ensure("HALPHA EW error")
		for i := range ewErr {
			ewErr[i] = ew[i] * math.Hypot(ferr[i]/flux[i], contErr[i]/cont[i])
		}
	}
}

// calzettiSFRPerLum is the Calzetti (2013) SFR calibration factor,
// valid for a 0.1-100 Msun stellar mass range, tau >= 6 Myr,
// T_e = 10^4 K and n_e = 100 cm^-3.
const calzettiSFRPerLum = 5.5e-42

// ComputeSFR adds star formation rate columns from the Hα luminosity
// via Calzetti (2013), for the total and each kinematic component. The
// SFR is only computed in rows whose BPT classification in that
// component is star-forming; all other rows stay NaN.
func ComputeSFR(t *table.Table, ncomponentsMax int) {
	for _, suffix := range allSuffixes(ncomponentsMax) {
		v := t.ViewOf(suffix)
		lum, lok := v.Float("HALPHA luminosity")
		bpt, bok := v.Float("BPT (numeric)")
		if !lok || !bok {
			continue
		}
		sfr := v.Ensure("SFR")
		for i := range sfr {
			if bpt[i] == BPTSF {
				sfr[i] = lum[i] * calzettiSFRPerLum
			}
		}
		lumErr, ok := v.Float("HALPHA luminosity error")
		if !ok {
			continue
		}
		sfrErr := v.Ensure("SFR error")
		for i := range sfrErr {
			if bpt[i] == BPTSF {
				sfrErr[i] = lumErr[i] * calzettiSFRPerLum
			}
		}
	}
}

// allSuffixes returns the total suffix followed by each component
// suffix up to ncomponentsMax.
func allSuffixes(ncomponentsMax int) []string {
	suffixes := []string{table.TotalSuffix}
	for n := 1; n <= ncomponentsMax; n++ {
		suffixes = append(suffixes, table.ComponentSuffix(n))
	}
	return suffixes
}
