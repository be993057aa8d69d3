package lines

import (
	"math"

	"github.com/ifukit/spaxelpipe/internal/table"
)

// Fixed doublet flux ratios set by atomic physics.
const (
	RatioNII  = 3.06  // NII6583 / NII6548
	RatioOIII = 2.94  // OIII5007 / OIII4959
	RatioSIII = 2.947 // SIII9531 / SIII9069
)

// ComputeRatios fills in doublet sums and missing doublet partners,
// then adds the diagnostic ratio columns for one component suffix:
// the BPT axes (log N2, log S2, log O3, log O1) with asymmetric log
// errors, the metallicity ratios (N2O2, N2S2, O3N2, R23, S23, O3O2,
// S32, Dopita+2016) and the density-sensitive [SII] and [OII] ratios.
// Each column is only added when its input lines are present.
func ComputeRatios(t *table.Table, suffix string) {
	v := t.ViewOf(suffix)
	completeDoublets(t, v)

	// Metallicity and ionisation-parameter ratios.
	addLog2(t, v, "N2O2", "NII6583", "OII3726+OII3729")
	addLog2(t, v, "N2S2", "NII6583", "SII6716+SII6731")
	addO3N2(t, v)
	addR23(t, v)
	addS23(t, v)
	addLog2(t, v, "O3O2", "OIII5007", "OII3726+OII3729")
	addLog2(t, v, "S32", "SIII9069+SIII9531", "SII6716+SII6731")
	addDopita2016(t, v)

	// BPT axes with linear ratios and asymmetric log errors.
	addBPTAxis(t, v, "N2", "NII6583", "HALPHA")
	addBPTAxis(t, v, "O1", "OI6300", "HALPHA")
	addBPTAxis(t, v, "S2", "SII6716+SII6731", "HALPHA")
	addBPTAxis(t, v, "O3", "OIII5007", "HBETA")

	// Density-sensitive doublet ratios.
	addLinearRatio(t, v, "[SII] ratio", "SII6716", "SII6731")
	addLinearRatio(t, v, "[OII] ratio", "OII3729", "OII3726")
}

// completeDoublets adds doublet sums, and reconstructs the weak line of
// each fixed-ratio doublet when only the strong one was fitted.
func completeDoublets(t *table.Table, v *table.View) {
	addSum(t, v, "OII3726+OII3729", "OII3726", "OII3729")
	addSum(t, v, "SII6716+SII6731", "SII6716", "SII6731")

	addPartner(t, v, "NII6583", "NII6548", RatioNII)
	addPartner(t, v, "OIII5007", "OIII4959", RatioOIII)
	addPartner(t, v, "SIII9531", "SIII9069", RatioSIII)

	addSum(t, v, "NII6548+NII6583", "NII6548", "NII6583")
	addSum(t, v, "OIII4959+OIII5007", "OIII4959", "OIII5007")
	addSum(t, v, "SIII9069+SIII9531", "SIII9069", "SIII9531")
}

// addSum adds name = a + b with quadrature errors, when both lines are
// present and the sum is not.
func addSum(t *table.Table, v *table.View, name, a, b string) {
	av, aok := v.Float(a)
	bv, bok := v.Float(b)
	if aok && bok && !v.Has(name) {
		out := v.Ensure(name)
		for i := range out {
			out[i] = av[i] + bv[i]
		}
	}
	ae, aok := v.Float(a + " error")
	be, bok := v.Float(b + " error")
	if aok && bok && !v.Has(name+" error") {
		out := v.Ensure(name + " error")
		for i := range out {
			out[i] = math.Hypot(ae[i], be[i])
		}
	}
}

// addPartner reconstructs weak = strong / ratio when absent.
func addPartner(t *table.Table, v *table.View, strong, weak string, ratio float64) {
	if sv, ok := v.Float(strong); ok && !v.Has(weak) {
		out := v.Ensure(weak)
		for i := range out {
			out[i] = sv[i] / ratio
		}
	}
	if se, ok := v.Float(strong + " error"); ok && !v.Has(weak+" error") {
		out := v.Ensure(weak + " error")
		for i := range out {
			out[i] = se[i] / ratio
		}
	}
}

// addLog2 adds name = log10(a/b).
func addLog2(t *table.Table, v *table.View, name, a, b string) {
	av, aok := v.Float(a)
	bv, bok := v.Float(b)
	if !aok || !bok || v.Has(name) {
		return
	}
	out := v.Ensure(name)
	for i := range out {
		out[i] = math.Log10(av[i] / bv[i])
	}
}

func addO3N2(t *table.Table, v *table.View) {
	if !v.HasAll("OIII5007", "HBETA", "NII6583", "HALPHA") || v.Has("O3N2") {
		return
	}
	o3, _ := v.Float("OIII5007")
	hb, _ := v.Float("HBETA")
	n2, _ := v.Float("NII6583")
	ha, _ := v.Float("HALPHA")
	out := v.Ensure("O3N2")
	for i := range out {
		out[i] = math.Log10((o3[i] / hb[i]) / (n2[i] / ha[i]))
	}
}

func addR23(t *table.Table, v *table.View) {
	if !v.HasAll("OIII4959+OIII5007", "OII3726+OII3729", "HBETA") || v.Has("R23") {
		return
	}
	o3, _ := v.Float("OIII4959+OIII5007")
	o2, _ := v.Float("OII3726+OII3729")
	hb, _ := v.Float("HBETA")
	out := v.Ensure("R23")
	for i := range out {
		out[i] = math.Log10((o3[i] + o2[i]) / hb[i])
	}
}

func addS23(t *table.Table, v *table.View) {
	if !v.HasAll("SII6716+SII6731", "SIII9069+SIII9531", "HALPHA") || v.Has("S23") {
		return
	}
	s2, _ := v.Float("SII6716+SII6731")
	s3, _ := v.Float("SIII9069+SIII9531")
	ha, _ := v.Float("HALPHA")
	out := v.Ensure("S23")
	for i := range out {
		out[i] = math.Log10((s2[i] + s3[i]) / ha[i])
	}
}

// addDopita2016 adds y = log([NII]/[SII]) + 0.264 log([NII]/Hα),
// eqn. 13 of Kewley et al. (2019).
func addDopita2016(t *table.Table, v *table.View) {
	if !v.HasAll("NII6583", "SII6716+SII6731", "HALPHA") || v.Has("Dopita+2016") {
		return
	}
	n2, _ := v.Float("NII6583")
	s2, _ := v.Float("SII6716+SII6731")
	ha, _ := v.Float("HALPHA")
	out := v.Ensure("Dopita+2016")
	for i := range out {
		out[i] = math.Log10(n2[i]/s2[i]) + 0.264*math.Log10(n2[i]/ha[i])
	}
}

// addBPTAxis adds the linear ratio, its log, and the asymmetric lower
// and upper log errors for one BPT axis.
func addBPTAxis(t *table.Table, v *table.View, short, num, den string) {
	nv, nok := v.Float(num)
	dv, dok := v.Float(den)
	if !nok || !dok || v.Has("log "+short) {
		return
	}
	lin := v.Ensure(short)
	lg := v.Ensure("log " + short)
	for i := range lin {
		lin[i] = nv[i] / dv[i]
		lg[i] = math.Log10(lin[i])
	}

	ne, neok := v.Float(num + " error")
	de, deok := v.Float(den + " error")
	if !neok || !deok {
		return
	}
	errLin := v.Ensure(short + " error")
	errLo := v.Ensure("log " + short + " error (lower)")
	errHi := v.Ensure("log " + short + " error (upper)")
	for i := range errLin {
		errLin[i] = lin[i] * math.Hypot(ne[i]/nv[i], de[i]/dv[i])
		errLo[i] = lg[i] - math.Log10(lin[i]-errLin[i])
		errHi[i] = math.Log10(lin[i]+errLin[i]) - lg[i]
	}
}

// addLinearRatio adds name = a/b with a propagated linear error.
func addLinearRatio(t *table.Table, v *table.View, name, a, b string) {
	av, aok := v.Float(a)
	bv, bok := v.Float(b)
	if !aok || !bok || v.Has(name) {
		return
	}
	out := v.Ensure(name)
	for i := range out {
		out[i] = av[i] / bv[i]
	}
	ae, aok := v.Float(a + " error")
	be, bok := v.Float(b + " error")
	if !aok || !bok {
		return
	}
	errOut := v.Ensure(name + " error")
	for i := range errOut {
		errOut[i] = out[i] * math.Hypot(ae[i]/av[i], be[i]/bv[i])
	}
}
