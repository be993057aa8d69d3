package dqcut

import (
	"fmt"
	"math"

	"github.com/ifukit/spaxelpipe/internal/table"
)

// log10Col writes dst = log10(src) where src is positive, NaN elsewhere.
func log10Col(t *table.Table, src, dst string) {
	vals, ok := t.Float(src)
	if !ok {
		return
	}
	out := table.NaNs(t.NumRows())
	for rr, v := range vals {
		if v > 0 {
			out[rr] = math.Log10(v)
		}
	}
	_ = t.AddFloat(dst, out)
}

// ComputeExtraColumns derives the convenience columns used for plotting
// and selection: log quantities and inter-component kinematic differences.
func ComputeExtraColumns(t *table.Table, ncomponents int) {
	for _, suffix := range suffixes(ncomponents) {
		log10Col(t, "HALPHA EW"+suffix, "log HALPHA EW"+suffix)
	}
	for nn := 1; nn <= ncomponents; nn++ {
		suffix := table.ComponentSuffix(nn)
		log10Col(t, "sigma_gas"+suffix, "log sigma_gas"+suffix)
	}
	log10Col(t, "SFR (total)", "log SFR (total)")
	log10Col(t, "SFR surface density (total)", "log SFR surface density (total)")

	// Kinematic offsets between successive components.
	for nn := 2; nn <= ncomponents; nn++ {
		lo := table.ComponentSuffix(nn - 1)
		hi := table.ComponentSuffix(nn)
		diffCol(t, "sigma_gas"+hi, "sigma_gas"+lo, fmt.Sprintf("delta sigma_gas (%d/%d)", nn, nn-1))
		diffCol(t, "v_gas"+hi, "v_gas"+lo, fmt.Sprintf("delta v_gas (%d/%d)", nn, nn-1))
	}
}

func diffCol(t *table.Table, a, b, dst string) {
	av, ok := t.Float(a)
	if !ok {
		return
	}
	bv, ok := t.Float(b)
	if !ok {
		return
	}
	out := make([]float64, t.NumRows())
	for rr := range av {
		out[rr] = av[rr] - bv[rr]
	}
	_ = t.AddFloat(dst, out)
}
