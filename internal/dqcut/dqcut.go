// Package dqcut applies data-quality and signal-to-noise cuts to a spaxel
// table. Cuts never drop rows; they NaN out measurements that fail, so the
// table keeps one row per spaxel and downstream stages see NaN where data
// were rejected.
package dqcut

import (
	"fmt"
	"math"

	"github.com/ifukit/spaxelpipe/internal/table"
)

// Options selects which cuts to apply. The zero value applies nothing;
// Defaults returns the standard survey configuration.
type Options struct {
	NComponents int
	ElineList   []string

	// Line fluxes with S/N below ElineSNRMin are masked, per component
	// and in the total. Masking the Halpha flux also masks the
	// equivalent width and the component kinematics.
	LineFluxSNRCut bool
	ElineSNRMin    float64

	// Velocity dispersions are masked when the dispersion S/N falls
	// below SigmaGasSNRMin after accounting for the instrumental
	// resolution: narrow components need proportionally higher S/N to
	// be believable.
	SigmaGasSNRCut bool
	SigmaGasSNRMin float64
	SigmaInstKMS   float64

	// Component kinematics likely dominated by beam smearing
	// (sigma_gas < 2 v_grad) are masked. Off by default since it also
	// removes nuclear spaxels.
	VgradCut bool

	// Components whose Gaussian amplitude is below 3x the continuum RMS
	// near Halpha are masked. Good at removing shallow components caused
	// by poor continuum fits.
	LineAmplitudeSNRCut bool

	// Secondary and tertiary components with Halpha amplitudes under 5%
	// of the primary are masked. Off by default.
	FluxFractionCut bool

	// Stellar kinematics failing the Croom et al. (2021) quality
	// criteria are masked.
	StellarKinematicsCut bool
}

// Defaults mirrors the standard cut configuration for SAMI-like inputs.
func Defaults(ncomponents int, elines []string) Options {
	return Options{
		NComponents:          ncomponents,
		ElineList:            elines,
		LineFluxSNRCut:       true,
		ElineSNRMin:          5,
		SigmaGasSNRCut:       true,
		SigmaGasSNRMin:       3,
		SigmaInstKMS:         29.6,
		LineAmplitudeSNRCut:  true,
		StellarKinematicsCut: true,
	}
}

const (
	haRestA       = 6562.8
	speedKMS      = 299792.458
	amplitudeSNR  = 3.0
	fluxFracFloor = 0.05
)

// suffixes returns the total suffix plus one per fitted component.
func suffixes(ncomponents int) []string {
	out := []string{table.TotalSuffix}
	for nn := 1; nn <= ncomponents; nn++ {
		out = append(out, table.ComponentSuffix(nn))
	}
	return out
}

// Apply runs the enabled cuts in order and recomputes the component count.
func Apply(t *table.Table, opts Options) error {
	if opts.NComponents < 1 {
		return fmt.Errorf("dqcut: NComponents must be at least 1, got %d", opts.NComponents)
	}

	if opts.LineFluxSNRCut {
		applyLineFluxSNRCut(t, opts)
	}
	if opts.SigmaGasSNRCut {
		applySigmaGasSNRCut(t, opts)
	}
	if opts.VgradCut {
		applyVgradCut(t, opts)
	}
	if opts.LineAmplitudeSNRCut {
		applyAmplitudeCut(t, opts)
	}
	if opts.FluxFractionCut {
		applyFluxFractionCut(t, opts)
	}
	if opts.StellarKinematicsCut {
		applyStellarKinematicsCut(t)
	}

	recountComponents(t, opts.NComponents)
	return nil
}

// maskFloats sets row rr to NaN in every named column that exists.
func maskFloats(t *table.Table, rr int, names ...string) {
	for _, name := range names {
		if vals, ok := t.Float(name); ok {
			vals[rr] = math.NaN()
		}
	}
}

// componentQuantities are the per-component measurements tied to one
// Gaussian component; masking a component masks all of them.
func componentQuantities(suffix string) []string {
	return []string{
		"HALPHA" + suffix,
		"HALPHA error" + suffix,
		"HALPHA EW" + suffix,
		"HALPHA EW error" + suffix,
		"v_gas" + suffix,
		"v_gas error" + suffix,
		"sigma_gas" + suffix,
		"sigma_gas error" + suffix,
	}
}

func applyLineFluxSNRCut(t *table.Table, opts Options) {
	for _, eline := range opts.ElineList {
		for _, suffix := range suffixes(opts.NComponents) {
			snCol, ok := t.Float(eline + " S/N" + suffix)
			if !ok {
				continue
			}
			for rr, sn := range snCol {
				if !(sn < opts.ElineSNRMin) {
					continue
				}
				maskFloats(t, rr, eline+suffix, eline+" error"+suffix)
				// A rejected Halpha flux invalidates everything fitted
				// with it.
				if eline == "HALPHA" {
					if suffix == table.TotalSuffix {
						maskFloats(t, rr, "HALPHA EW (total)", "HALPHA EW error (total)")
					} else {
						maskFloats(t, rr, componentQuantities(suffix)...)
					}
				}
			}
		}
	}
}

// applySigmaGasSNRCut masks velocity dispersions whose S/N is too low once
// the instrumental resolution is folded in. The observed dispersion is
// sigma_obs = sqrt(sigma_gas^2 + sigma_inst^2); components narrower than the
// instrument need a target S/N inflated by (1 + sigma_inst^2/sigma_gas^2).
func applySigmaGasSNRCut(t *table.Table, opts Options) {
	for nn := 1; nn <= opts.NComponents; nn++ {
		suffix := table.ComponentSuffix(nn)
		sigma, ok := t.Float("sigma_gas" + suffix)
		if !ok {
			continue
		}
		sigmaErr, ok := t.Float("sigma_gas error" + suffix)
		if !ok {
			continue
		}

		n := t.NumRows()
		sigmaObs := table.NaNs(n)
		obsSN := table.NaNs(n)
		targetSN := table.NaNs(n)
		for rr := range sigma {
			sigmaObs[rr] = math.Sqrt(sigma[rr]*sigma[rr] + opts.SigmaInstKMS*opts.SigmaInstKMS)
			obsSN[rr] = sigmaObs[rr] / sigmaErr[rr]
			targetSN[rr] = opts.SigmaGasSNRMin * (1 + opts.SigmaInstKMS*opts.SigmaInstKMS/(sigma[rr]*sigma[rr]))
			if obsSN[rr] < targetSN[rr] {
				maskFloats(t, rr, "sigma_gas"+suffix, "sigma_gas error"+suffix)
			}
		}
		_ = t.AddFloat("sigma_obs"+suffix, sigmaObs)
		_ = t.AddFloat("sigma_obs S/N"+suffix, obsSN)
		_ = t.AddFloat("sigma_obs target S/N"+suffix, targetSN)
	}
}

// applyVgradCut masks component kinematics where beam smearing dominates
// the measured dispersion.
func applyVgradCut(t *table.Table, opts Options) {
	for nn := 1; nn <= opts.NComponents; nn++ {
		suffix := table.ComponentSuffix(nn)
		sigma, ok := t.Float("sigma_gas" + suffix)
		if !ok {
			continue
		}
		vgrad, ok := t.Float("v_grad" + suffix)
		if !ok {
			continue
		}
		for rr := range sigma {
			if sigma[rr] < 2*vgrad[rr] {
				maskFloats(t, rr,
					"v_gas"+suffix, "v_gas error"+suffix,
					"sigma_gas"+suffix, "sigma_gas error"+suffix)
			}
		}
	}
}

// applyAmplitudeCut reconstructs each component's Gaussian amplitude from
// its flux and width and masks components shallower than three times the
// continuum RMS near Halpha.
func applyAmplitudeCut(t *table.Table, opts Options) {
	contStd, ok := t.Float("HALPHA continuum std. dev.")
	if !ok {
		return
	}
	zvals, ok := t.Float("z")
	if !ok {
		return
	}
	for nn := 1; nn <= opts.NComponents; nn++ {
		suffix := table.ComponentSuffix(nn)
		flux, ok := t.Float("HALPHA" + suffix)
		if !ok {
			continue
		}
		sigma, ok := t.Float("sigma_gas" + suffix)
		if !ok {
			continue
		}
		for rr := range flux {
			// Dispersion in Angstroms at the observed wavelength.
			sigmaA := sigma[rr] / speedKMS * haRestA * (1 + zvals[rr])
			amp := flux[rr] / (math.Sqrt(2*math.Pi) * sigmaA)
			if amp < amplitudeSNR*contStd[rr] {
				maskFloats(t, rr, componentQuantities(suffix)...)
			}
		}
	}
}

// applyFluxFractionCut masks broad secondary components with amplitudes
// far below the narrow primary.
func applyFluxFractionCut(t *table.Table, opts Options) {
	primary, ok := t.Float("HALPHA (component 1)")
	if !ok {
		return
	}
	for nn := 2; nn <= opts.NComponents; nn++ {
		suffix := table.ComponentSuffix(nn)
		flux, ok := t.Float("HALPHA" + suffix)
		if !ok {
			continue
		}
		for rr := range flux {
			if flux[rr] < fluxFracFloor*primary[rr] {
				maskFloats(t, rr, componentQuantities(suffix)...)
			}
		}
	}
}

// applyStellarKinematicsCut enforces the Croom et al. (2021) stellar
// kinematics quality criteria: sigma_* > 35 km/s, v_* error < 30 km/s and
// sigma_* error < 0.1 sigma_* + 25 km/s.
func applyStellarKinematicsCut(t *table.Table) {
	sigma, ok := t.Float("sigma_*")
	if !ok {
		return
	}
	sigmaErr, _ := t.Float("sigma_* error")
	vErr, _ := t.Float("v_* error")
	for rr := range sigma {
		bad := !(sigma[rr] > 35)
		if vErr != nil && !(vErr[rr] < 30) {
			bad = true
		}
		if sigmaErr != nil && !(sigmaErr[rr] < 0.1*sigma[rr]+25) {
			bad = true
		}
		if bad {
			maskFloats(t, rr, "sigma_*", "sigma_* error", "v_*", "v_* error")
		}
	}
}

// recountComponents writes "Number of components": how many fitted
// components survived the cuts, judged by their velocity dispersions.
func recountComponents(t *table.Table, ncomponents int) {
	n := t.NumRows()
	count := make([]float64, n)
	for nn := 1; nn <= ncomponents; nn++ {
		sigma, ok := t.Float("sigma_gas" + table.ComponentSuffix(nn))
		if !ok {
			continue
		}
		for rr, v := range sigma {
			if !math.IsNaN(v) {
				count[rr]++
			}
		}
	}
	_ = t.AddFloat("Number of components", count)
}
