// Package metallicity implements strong-line gas-phase metallicity
// diagnostics. Each diagnostic maps a set of emission-line fluxes to
// log(O/H) + 12, optionally together with a self-consistent ionisation
// parameter log(U). Calibrations are only trusted inside their published
// validity ranges; out-of-range results are NaN.
package metallicity

import (
	"fmt"
	"math"
)

// Diagnostic names a strong-line calibration.
type Diagnostic string

const (
	N2HaPP04  Diagnostic = "N2Ha_PP04"
	N2HaM13   Diagnostic = "N2Ha_M13"
	O3N2PP04  Diagnostic = "O3N2_PP04"
	O3N2M13   Diagnostic = "O3N2_M13"
	N2S2HaD16 Diagnostic = "N2S2Ha_D16"
	N2O2KD02  Diagnostic = "N2O2_KD02"
	RcalPG16  Diagnostic = "Rcal_PG16"
	ScalPG16  Diagnostic = "Scal_PG16"
	ONSP10    Diagnostic = "ONS_P10"
	ONP10     Diagnostic = "ON_P10"
	N2HaK19   Diagnostic = "N2Ha_K19"
	O3N2K19   Diagnostic = "O3N2_K19"
	N2O2K19   Diagnostic = "N2O2_K19"
	R23KK04   Diagnostic = "R23_KK04"

	// Ionisation parameter diagnostics.
	O3O2K19  Diagnostic = "O3O2_K19"
	S32K19   Diagnostic = "S32_K19"
	O3O2KK04 Diagnostic = "O3O2_KK04"
)

// requiredLines lists the emission-line columns each diagnostic reads.
// Doublet sums are expected to exist already, as produced by the line-ratio
// stage.
var requiredLines = map[Diagnostic][]string{
	N2HaPP04:  {"NII6583", "HALPHA"},
	N2HaM13:   {"NII6583", "HALPHA"},
	O3N2PP04:  {"OIII5007", "HBETA", "HALPHA", "NII6583"},
	O3N2M13:   {"OIII5007", "HBETA", "HALPHA", "NII6583"},
	N2S2HaD16: {"NII6583", "SII6716+SII6731", "HALPHA"},
	N2O2KD02:  {"NII6583", "OII3726+OII3729"},
	RcalPG16:  {"OII3726+OII3729", "HBETA", "NII6548+NII6583", "OIII4959+OIII5007"},
	ScalPG16:  {"HBETA", "NII6548+NII6583", "OIII4959+OIII5007", "SII6716+SII6731"},
	ONSP10:    {"OII3726+OII3729", "OIII4959+OIII5007", "NII6548+NII6583", "SII6716+SII6731", "HBETA"},
	ONP10:     {"OII3726+OII3729", "OIII4959+OIII5007", "NII6548+NII6583", "SII6716+SII6731", "HBETA"},
	N2HaK19:   {"NII6583", "HALPHA"},
	O3N2K19:   {"OIII5007", "HBETA", "NII6583", "HALPHA"},
	N2O2K19:   {"NII6583", "OII3726+OII3729"},
	R23KK04:   {"NII6583", "OII3726+OII3729", "HBETA", "OIII4959+OIII5007"},
	O3O2K19:   {"OIII5007", "OII3726+OII3729"},
	S32K19:    {"SIII9069", "SIII9531", "SII6716+SII6731"},
	O3O2KK04:  {"OIII4959+OIII5007", "OII3726+OII3729"},
}

// k19Coeffs holds one Kewley (2019) bivariate cubic surface together with
// its validity limits. Metallicity surfaces use only Zmin/Zmax; ionisation
// parameter surfaces additionally bound log(U).
type k19Coeffs struct {
	A, B, C, D, E, F, G, H, I, J float64
	Zmin, Zmax                   float64
	Umin, Umax                   float64
}

// Valid for log(P/k) = 5.0 and -3.98 < log(U) < -1.98.
var metCoeffsK19 = map[Diagnostic]k19Coeffs{
	N2HaK19: {
		A: 10.526, B: 1.9958, C: -0.6741, D: 0.2892, E: 0.5712,
		F: -0.6597, G: 0.0101, H: 0.0800, I: 0.0782, J: -0.0982,
		Zmin: 7.63, Zmax: 8.53,
	},
	O3N2K19: {
		A: 10.312, B: -1.6575, C: 2.2525, D: -1.3594, E: 0.4764,
		F: 1.1730, G: -0.2968, H: 0.1974, I: -0.0544, J: 0.1891,
		Zmin: 8.23, Zmax: 8.93,
	},
	N2O2K19: {
		A: 9.4772, B: 1.1797, C: 0.5085, D: 0.6879, E: 0.2807,
		F: 0.1612, G: 0.1187, H: 0.1200, I: 0.2293, J: 0.0164,
		Zmin: 7.63, Zmax: 9.23,
	},
}

var ionCoeffsK19 = map[Diagnostic]k19Coeffs{
	O3O2K19: {
		A: 13.768, B: 9.4940, C: -4.3223, D: -2.3531, E: -0.5769,
		F: 0.2794, G: 0.1574, H: 0.0890, I: 0.0311, J: 0.0000,
		Zmin: 7.63, Zmax: 8.93, Umin: -3.98, Umax: -2.98,
	},
	S32K19: {
		A: 90.017, B: 21.934, C: -34.095, D: -5.0818, E: -1.4762,
		F: 4.1343, G: 0.3096, H: 0.1786, I: 0.1959, J: -0.1668,
		Zmin: 7.63, Zmax: 9.23, Umin: -3.98, Umax: -2.48,
	},
}

const (
	// Initial guesses and convergence tolerance for the self-consistent
	// metallicity / ionisation parameter iteration.
	k19StartLogOH12 = 8.0
	k19StartLogU    = -3.0
	iterTol         = 0.001
	defaultMaxIters = 10

	speedOfLightCGS = 2.99792458e10 // cm/s
)

// row holds one spaxel's emission-line fluxes keyed by line name.
type row map[string]float64

func (r row) logRatio(num, den string) float64 {
	return math.Log10(r[num] / r[den])
}

func isK19(d Diagnostic) bool {
	_, ok := metCoeffsK19[d]
	return ok
}

// needsLogU reports whether the diagnostic requires an ionisation
// parameter, fixed or iterated.
func needsLogU(d Diagnostic) bool {
	return isK19(d) || d == R23KK04
}

// surfaceK19 evaluates a K19 cubic surface at (x, y).
func surfaceK19(c k19Coeffs, x, y float64) float64 {
	return c.A + c.B*x + c.C*y + c.D*x*y + c.E*x*x + c.F*y*y +
		c.G*x*y*y + c.H*y*x*x + c.I*x*x*x + c.J*y*y*y
}

// metRatioK19 computes the metallicity-sensitive line ratio for a K19
// diagnostic.
func metRatioK19(d Diagnostic, r row) float64 {
	switch d {
	case N2HaK19:
		return r.logRatio("NII6583", "HALPHA")
	case O3N2K19:
		return math.Log10((r["OIII5007"] / r["HBETA"]) / (r["NII6583"] / r["HALPHA"]))
	case N2O2K19:
		return r.logRatio("NII6583", "OII3726+OII3729")
	}
	return math.NaN()
}

// ionRatioK19 computes the ionisation-sensitive line ratio for a K19
// ionisation parameter diagnostic.
func ionRatioK19(d Diagnostic, r row) float64 {
	switch d {
	case O3O2K19:
		return r.logRatio("OIII5007", "OII3726+OII3729")
	case S32K19:
		return math.Log10((r["SIII9069"] + r["SIII9531"]) / r["SII6716+SII6731"])
	}
	return math.NaN()
}

// evalK19Fixed evaluates a K19 diagnostic at a fixed log(U).
func evalK19Fixed(d Diagnostic, r row, logU float64) (float64, float64) {
	c := metCoeffsK19[d]
	z := surfaceK19(c, metRatioK19(d, r), logU)
	if !(z > c.Zmin && z < c.Zmax) {
		return math.NaN(), math.NaN()
	}
	return z, logU
}

// evalK19Iterative alternates the metallicity and ionisation parameter
// surfaces until both converge, then applies the validity limits of both
// calibrations.
func evalK19Iterative(d, ion Diagnostic, r row, maxIters int) (float64, float64) {
	metC := metCoeffsK19[d]
	ionC := ionCoeffsK19[ion]
	xMet := metRatioK19(d, r)
	xIon := ionRatioK19(ion, r)
	if math.IsNaN(xMet) || math.IsNaN(xIon) {
		return math.NaN(), math.NaN()
	}

	zOld, uOld := k19StartLogOH12, k19StartLogU
	var z, u float64
	for n := 0; n < maxIters; n++ {
		u = surfaceK19(ionC, xIon, zOld)
		z = surfaceK19(metC, xMet, u)
		if math.Abs(z-zOld) < iterTol && math.Abs(u-uOld) < iterTol {
			break
		}
		zOld, uOld = z, u
	}

	ok := z > metC.Zmin && z < metC.Zmax
	ok = ok && z > ionC.Zmin && z < ionC.Zmax
	ok = ok && u > ionC.Umin && u < ionC.Umax
	if !ok {
		return math.NaN(), math.NaN()
	}
	return z, u
}

// kk04LogQ is the ionisation parameter relation from Kobulnicky & Kewley
// (2004). Note the version printed in Poetrodjojo+2021 contains a
// transcription error; this follows the original paper.
func kk04LogQ(logO3O2, logOH12 float64) float64 {
	num := 32.81 - 1.153*logO3O2*logO3O2 +
		logOH12*(-3.396-0.025*logO3O2+0.1444*logO3O2*logO3O2)
	den := 4.603 - 0.3119*logO3O2 - 0.163*logO3O2*logO3O2 +
		logOH12*(-0.48+0.0271*logO3O2+0.02037*logO3O2*logO3O2)
	return num / den
}

// kk04Metallicity evaluates the R23 calibration on the branch selected by
// log([NII]/[OII]).
func kk04Metallicity(logR23, logq float64, lowerBranch bool) float64 {
	if lowerBranch {
		return 9.40 + 4.65*logR23 - 3.17*logR23*logR23 -
			logq*(0.272+0.547*logR23-0.513*logR23*logR23)
	}
	r2 := logR23 * logR23
	return 9.72 - 0.777*logR23 - 0.951*r2 - 0.072*r2*logR23 - 0.811*r2*r2 -
		logq*(0.0737-0.0713*logR23-0.141*r2+0.0373*r2*logR23-0.058*r2*r2)
}

// evalKK04Fixed evaluates R23_KK04 at a fixed log(U).
func evalKK04Fixed(r row, logU float64) (float64, float64) {
	logN2O2 := r.logRatio("NII6583", "OII3726+OII3729")
	logR23 := math.Log10((r["OII3726+OII3729"] + r["OIII4959+OIII5007"]) / r["HBETA"])
	logq := logU + math.Log10(speedOfLightCGS)

	var z float64
	switch {
	case logN2O2 < -1.2:
		z = kk04Metallicity(logR23, logq, true)
	case logN2O2 >= -1.2:
		z = kk04Metallicity(logR23, logq, false)
	default:
		return math.NaN(), math.NaN()
	}

	// The calibration is not defined for logR23 > 1.
	if !(logR23 < 1.0) {
		return math.NaN(), math.NaN()
	}
	return z, logU
}

// evalKK04Iterative computes a self-consistent metallicity and ionisation
// parameter for R23_KK04 using O3O2_KK04.
func evalKK04Iterative(r row, maxIters int) (float64, float64) {
	logN2O2 := r.logRatio("NII6583", "OII3726+OII3729")
	logO3O2 := r.logRatio("OIII4959+OIII5007", "OII3726+OII3729")
	logR23 := math.Log10((r["OII3726+OII3729"] + r["OIII4959+OIII5007"]) / r["HBETA"])
	if math.IsNaN(logN2O2) || math.IsNaN(logO3O2) || math.IsNaN(logR23) {
		return math.NaN(), math.NaN()
	}

	lowerBranch := logN2O2 < -1.2
	zOld := 8.7
	if lowerBranch {
		zOld = 8.2
	}
	var z, logq float64
	for n := 0; n < maxIters; n++ {
		logq = kk04LogQ(logO3O2, zOld)
		z = kk04Metallicity(logR23, logq, lowerBranch)
		if math.Abs(z-zOld) < iterTol {
			break
		}
		zOld = z
	}

	if !(logR23 < 1.0) {
		return math.NaN(), math.NaN()
	}
	return z, logq - math.Log10(speedOfLightCGS)
}

// evalSimple evaluates the diagnostics that need no ionisation parameter.
func evalSimple(d Diagnostic, r row) float64 {
	switch d {
	case N2HaPP04:
		x := r.logRatio("NII6583", "HALPHA")
		if !(x > -2.5 && x < -0.3) {
			return math.NaN()
		}
		return 9.37 + 2.03*x + 1.26*x*x + 0.32*x*x*x

	case N2HaM13:
		x := r.logRatio("NII6583", "HALPHA")
		if !(x > -1.6 && x < -0.2) {
			return math.NaN()
		}
		return 8.743 + 0.462*x

	case O3N2PP04:
		x := math.Log10((r["OIII5007"] / r["HBETA"]) / (r["NII6583"] / r["HALPHA"]))
		if !(x > -1 && x < 1.9) {
			return math.NaN()
		}
		return 8.73 - 0.32*x

	case O3N2M13:
		x := math.Log10((r["OIII5007"] / r["HBETA"]) / (r["NII6583"] / r["HALPHA"]))
		if !(x > -1.1 && x < 1.7) {
			return math.NaN()
		}
		return 8.533 - 0.214*x

	case N2S2HaD16:
		y := r.logRatio("NII6583", "SII6716+SII6731") +
			0.264*r.logRatio("NII6583", "HALPHA")
		if !(y > -1.1 && y < 0.5) {
			return math.NaN()
		}
		y3 := y + 0.3
		return 8.77 + y + 0.45*y3*y3*y3*y3*y3

	case N2O2KD02:
		// Only reliable above half-solar metallicity.
		x := r.logRatio("NII6583", "OII3726+OII3729")
		z := math.Log10(1.54020+1.26602*x+0.167977*x*x) + 8.93
		if !(z > 8.6 && z < 9.4) {
			return math.NaN()
		}
		return z

	case RcalPG16:
		logO32 := r.logRatio("OIII4959+OIII5007", "OII3726+OII3729")
		logN2Hb := r.logRatio("NII6548+NII6583", "HBETA")
		logO2Hb := r.logRatio("OII3726+OII3729", "HBETA")
		switch {
		case logN2Hb < -0.6:
			return 7.932 + 0.944*logO32 + 0.695*logN2Hb +
				(0.970-0.291*logO32-0.019*logN2Hb)*logO2Hb
		case logN2Hb >= 0.6:
			return 8.589 + 0.022*logO32 + 0.399*logN2Hb +
				(-0.137+0.164*logO32+0.589*logN2Hb)*logO2Hb
		}
		return math.NaN()

	case ScalPG16:
		logO3S2 := r.logRatio("OIII4959+OIII5007", "SII6716+SII6731")
		logN2Hb := r.logRatio("NII6548+NII6583", "HBETA")
		logS2Hb := r.logRatio("SII6716+SII6731", "HBETA")
		switch {
		case logN2Hb < -0.6:
			return 8.072 + 0.789*logO3S2 + 0.726*logN2Hb +
				(1.069-0.170*logO3S2+0.022*logN2Hb)*logS2Hb
		case logN2Hb >= 0.6:
			return 8.424 + 0.030*logO3S2 + 0.751*logN2Hb +
				(-0.349+0.182*logO3S2+0.508*logN2Hb)*logS2Hb
		}
		return math.NaN()

	case ONSP10, ONP10:
		return evalPilyugin2010(d, r)
	}
	return math.NaN()
}

// evalPilyugin2010 implements the ONS and ON calibrations, which split
// spaxels into cool, warm and hot branches by nitrogen excitation.
func evalPilyugin2010(d Diagnostic, r row) float64 {
	logN2 := r.logRatio("NII6548+NII6583", "HBETA")
	logS2 := r.logRatio("SII6716+SII6731", "HBETA")
	logR3 := r.logRatio("OIII4959+OIII5007", "HBETA")
	logR2 := r.logRatio("OII3726+OII3729", "HBETA")

	if d == ONSP10 {
		r3 := r["OIII4959+OIII5007"] / r["HBETA"]
		r2 := r["OII3726+OII3729"] / r["HBETA"]
		p := r3 / (r3 + r2)
		switch {
		case logN2 >= -0.1:
			return 8.277 + 0.657*p - 0.399*logR3 -
				0.061*(logN2-logR2) + 0.005*(logS2-logR2)
		case logN2 < -0.1 && (logN2-logS2) >= -0.25:
			return 8.816 - 0.733*p + 0.454*logR3 +
				0.710*(logN2-logR2) - 0.337*(logS2-logR2)
		case logN2 < -0.1 && (logN2-logS2) < -0.25:
			return 8.774 - 1.855*p + 1.517*logR3 +
				0.304*(logN2-logR2) + 0.328*(logS2-logR2)
		}
		return math.NaN()
	}

	switch {
	case logN2 >= -0.1:
		return 8.606 - 0.105*logR3 - 0.410*logR2 - 0.150*(logN2-logR2)
	case logN2 < -0.1 && (logN2-logS2) >= -0.25:
		return 8.642 + 0.077*logR3 + 0.411*logR2 + 0.601*(logN2-logR2)
	case logN2 < -0.1 && (logN2-logS2) < -0.25:
		return 8.013 + 0.905*logR3 + 0.602*logR2 + 0.751*(logN2-logR2)
	}
	return math.NaN()
}

// validateDiagnostics checks the diagnostic / ionisation diagnostic pairing.
func validateDiagnostics(opts Options) error {
	d := opts.Diagnostic
	if _, ok := requiredLines[d]; !ok {
		return fmt.Errorf("metallicity: unknown diagnostic %q", d)
	}
	if _, ion := ionCoeffsK19[d]; ion || d == O3O2KK04 {
		return fmt.Errorf("metallicity: %q is an ionisation parameter diagnostic, not a metallicity diagnostic", d)
	}
	if needsLogU(d) && !opts.ComputeLogU && !opts.HasFixedLogU {
		return fmt.Errorf("metallicity: diagnostic %q requires a fixed log(U) or ComputeLogU", d)
	}
	if opts.ComputeLogU {
		switch {
		case d == R23KK04:
			if opts.IonDiagnostic != O3O2KK04 {
				return fmt.Errorf("metallicity: %q requires ionisation diagnostic %q, got %q", d, O3O2KK04, opts.IonDiagnostic)
			}
		case isK19(d):
			if _, ok := ionCoeffsK19[opts.IonDiagnostic]; !ok {
				return fmt.Errorf("metallicity: %q requires a Kewley 2019 ionisation diagnostic, got %q", d, opts.IonDiagnostic)
			}
		default:
			return fmt.Errorf("metallicity: diagnostic %q does not use an ionisation parameter", d)
		}
	}
	return nil
}

// evaluateRow computes log(O/H) + 12 and log(U) for a single spaxel.
// Diagnostics that carry no ionisation parameter return NaN for log(U).
func evaluateRow(opts Options, r row) (float64, float64) {
	d := opts.Diagnostic
	switch {
	case isK19(d) && opts.ComputeLogU:
		return evalK19Iterative(d, opts.IonDiagnostic, r, opts.maxIters())
	case isK19(d):
		return evalK19Fixed(d, r, opts.FixedLogU)
	case d == R23KK04 && opts.ComputeLogU:
		return evalKK04Iterative(r, opts.maxIters())
	case d == R23KK04:
		return evalKK04Fixed(r, opts.FixedLogU)
	}
	return evalSimple(d, r), math.NaN()
}
