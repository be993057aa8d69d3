package lines

import (
	"fmt"
	"math"

	"github.com/ifukit/spaxelpipe/internal/table"
)

// Case B recombination Hα/Hβ ratio (T_e = 10^4 K, n_e ~ 100 cm^-3).
const balmerIntrinsic = 2.86

// ccm89 returns A(λ)/A_V for the Cardelli, Clayton & Mathis (1989)
// reddening curve. wavelength is in Angstroms. The curve assumes
// R_V = 3.1; do not change rv from that value for survey data.
func ccm89(wavelengthA, rv float64) (float64, error) {
	x := 1e4 / wavelengthA // inverse microns
	var a, b float64
	switch {
	case x >= 0.3 && x < 1.1:
		// Infrared.
		t := math.Pow(x, 1.61)
		a = 0.574 * t
		b = -0.527 * t
	case x >= 1.1 && x <= 3.3:
		// Optical/NIR.
		y := x - 1.82
		a = 1 + 0.17699*y - 0.50447*y*y - 0.02427*math.Pow(y, 3) +
			0.72085*math.Pow(y, 4) + 0.01979*math.Pow(y, 5) -
			0.77530*math.Pow(y, 6) + 0.32999*math.Pow(y, 7)
		b = 1.41338*y + 2.28305*y*y + 1.07233*math.Pow(y, 3) -
			5.38434*math.Pow(y, 4) - 0.62251*math.Pow(y, 5) +
			5.30260*math.Pow(y, 6) - 2.09002*math.Pow(y, 7)
	default:
		return 0, fmt.Errorf("wavelength %.1f A outside the reddening curve range", wavelengthA)
	}
	return a + b/rv, nil
}

// ExtinctionOptions configures the Balmer-decrement correction.
type ExtinctionOptions struct {
	// RestWavelengths maps line names to vacuum rest wavelengths in
	// Angstroms; every line listed is corrected.
	RestWavelengths map[string]float64
	// BalmerSNRMin is the minimum Balmer decrement S/N required to
	// compute A_V for a row.
	BalmerSNRMin float64
	RV           float64
}

// ComputeBalmerDecrement adds "Balmer decrement" and its error for one
// component suffix.
func ComputeBalmerDecrement(t *table.Table, suffix string) {
	v := t.ViewOf(suffix)
	ha, haok := v.Float("HALPHA")
	hb, hbok := v.Float("HBETA")
	if !haok || !hbok || v.Has("Balmer decrement") {
		return
	}
	bd := v.Ensure("Balmer decrement")
	for i := range bd {
		bd[i] = ha[i] / hb[i]
	}
	hae, haok := v.Float("HALPHA error")
	hbe, hbok := v.Float("HBETA error")
	if !haok || !hbok {
		return
	}
	bde := v.Ensure("Balmer decrement error")
	for i := range bde {
		bde[i] = bd[i] * math.Hypot(hae[i]/ha[i], hbe[i]/hb[i])
	}
}

// ComputeExtinctionCorrection computes per-row A_V from the Balmer
// decrement and scales every configured line flux and flux error by the
// wavelength-dependent correction factor. Equivalent widths are left
// uncorrected. Rows where the Balmer decrement S/N is below the
// threshold get NaN A_V and are left uncorrected, as are rows with a
// decrement below the Case B value (A_V clipped to zero).
func ComputeExtinctionCorrection(t *table.Table, opts ExtinctionOptions, suffix string) error {
	if opts.RV == 0 {
		opts.RV = 3.1
	}
	kHa, err := ccm89(6562.8, opts.RV)
	if err != nil {
		return err
	}
	kHb, err := ccm89(4861.325, opts.RV)
	if err != nil {
		return err
	}

	ComputeBalmerDecrement(t, suffix)
	v := t.ViewOf(suffix)
	bd, ok := v.Float("Balmer decrement")
	if !ok {
		return fmt.Errorf("Balmer decrement unavailable: HALPHA%s or HBETA%s missing", suffix, suffix)
	}
	bde, hasErr := v.Float("Balmer decrement error")

	av := v.Ensure("A_V")
	avErr := v.Ensure("A_V error")
	slope := 2.5 / (kHb - kHa)
	for i := range av {
		if hasErr && opts.BalmerSNRMin > 0 {
			if snr := bd[i] / bde[i]; !(snr >= opts.BalmerSNRMin) {
				continue
			}
		}
		val := slope * math.Log10(bd[i]/balmerIntrinsic)
		if math.IsNaN(val) {
			continue
		}
		if val < 0 {
			val = 0
		}
		av[i] = val
		if hasErr {
			avErr[i] = slope * bde[i] / (bd[i] * math.Ln10)
		}
	}

	// Scale fluxes. Factors are per-line, constant across rows given A_V.
	for line, wavelength := range opts.RestWavelengths {
		k, err := ccm89(wavelength, opts.RV)
		if err != nil {
			return fmt.Errorf("line %s: %w", line, err)
		}
		for _, col := range []string{line, line + " error"} {
			vals, ok := v.Float(col)
			if !ok {
				continue
			}
			for i := range vals {
				if math.IsNaN(av[i]) || av[i] <= 0 {
					continue
				}
				vals[i] *= math.Pow(10, 0.4*av[i]*k)
			}
		}
	}
	return nil
}
