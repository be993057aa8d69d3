package pipeline

import (
	"fmt"
	"math"

	"github.com/ifukit/spaxelpipe/internal/dqcut"
	"github.com/ifukit/spaxelpipe/internal/table"
)

// concatTables stacks per-galaxy tables into one. Column order follows
// first appearance; columns missing from a galaxy fill with the kind's
// missing value (NaN, empty string, zero, false).
func concatTables(tables []*table.Table) (*table.Table, error) {
	total := 0
	for _, t := range tables {
		total += t.NumRows()
	}
	out := table.New(total)

	var names []string
	kinds := map[string]table.Kind{}
	for _, t := range tables {
		for _, name := range t.ColumnNames() {
			c := t.Column(name)
			if k, seen := kinds[name]; seen {
				if k != c.Kind {
					return nil, fmt.Errorf("column %q is %v in one galaxy and %v in another", name, k, c.Kind)
				}
				continue
			}
			kinds[name] = c.Kind
			names = append(names, name)
		}
	}

	for _, name := range names {
		switch kinds[name] {
		case table.Float:
			vals := make([]float64, 0, total)
			for _, t := range tables {
				if col, ok := t.Float(name); ok {
					vals = append(vals, col...)
				} else {
					vals = append(vals, table.NaNs(t.NumRows())...)
				}
			}
			if err := out.AddFloat(name, vals); err != nil {
				return nil, err
			}
		case table.Int:
			vals := make([]int64, 0, total)
			for _, t := range tables {
				if col, ok := t.Int(name); ok {
					vals = append(vals, col...)
				} else {
					vals = append(vals, make([]int64, t.NumRows())...)
				}
			}
			if err := out.AddInt(name, vals); err != nil {
				return nil, err
			}
		case table.String:
			vals := make([]string, 0, total)
			for _, t := range tables {
				if col, ok := t.Str(name); ok {
					vals = append(vals, col...)
				} else {
					vals = append(vals, make([]string, t.NumRows())...)
				}
			}
			if err := out.AddString(name, vals); err != nil {
				return nil, err
			}
		case table.Bool:
			vals := make([]bool, 0, total)
			for _, t := range tables {
				if col, ok := t.Bool(name); ok {
					vals = append(vals, col...)
				} else {
					vals = append(vals, make([]bool, t.NumRows())...)
				}
			}
			if err := out.AddBool(name, vals); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// completeElineTotals fills in missing total-flux columns as the NaN-skipping
// sum over the fitted components, with quadrature errors. Lines measured
// directly as totals are left alone.
func completeElineTotals(t *table.Table, ncomponents int) {
	n := t.NumRows()
	for _, eline := range ElineList {
		if t.Has(eline + table.TotalSuffix) {
			continue
		}
		var comps, errs [][]float64
		for nn := 1; nn <= ncomponents; nn++ {
			suffix := table.ComponentSuffix(nn)
			if vals, ok := t.Float(eline + suffix); ok {
				comps = append(comps, vals)
			}
			if vals, ok := t.Float(eline + " error" + suffix); ok {
				errs = append(errs, vals)
			}
		}
		if len(comps) == 0 {
			continue
		}

		tot := table.NaNs(n)
		for i := 0; i < n; i++ {
			sum, finite := 0.0, false
			for _, c := range comps {
				if !math.IsNaN(c[i]) {
					sum += c[i]
					finite = true
				}
			}
			if finite {
				tot[i] = sum
			}
		}
		_ = t.AddFloat(eline+table.TotalSuffix, tot)

		if len(errs) == 0 {
			continue
		}
		totErr := table.NaNs(n)
		for i := 0; i < n; i++ {
			sum, finite := 0.0, false
			for _, e := range errs {
				if !math.IsNaN(e[i]) {
					sum += e[i] * e[i]
					finite = true
				}
			}
			if finite {
				totErr[i] = math.Sqrt(sum)
			}
		}
		_ = t.AddFloat(eline+" error"+table.TotalSuffix, totErr)
	}
}

// addSNRColumns adds "{eline} S/N{suffix}" for every line with both a
// flux and an error column, in the total and each component.
func addSNRColumns(t *table.Table, ncomponents int) {
	suffixes := []string{table.TotalSuffix}
	for nn := 1; nn <= ncomponents; nn++ {
		suffixes = append(suffixes, table.ComponentSuffix(nn))
	}
	for _, eline := range ElineList {
		for _, suffix := range suffixes {
			flux, fok := t.Float(eline + suffix)
			ferr, feok := t.Float(eline + " error" + suffix)
			if !fok || !feok || t.Has(eline+" S/N"+suffix) {
				continue
			}
			sn := make([]float64, t.NumRows())
			for i := range sn {
				sn[i] = flux[i] / ferr[i]
			}
			_ = t.AddFloat(eline+" S/N"+suffix, sn)
		}
	}
}

// clampContinuum floors small negative continuum levels at zero so the
// equivalent widths stay NaN there instead of going negative.
func clampContinuum(t *table.Table) {
	if cont, ok := t.Float("HALPHA continuum"); ok {
		for i, v := range cont {
			if v < 0 {
				cont[i] = 0
			}
		}
	}
}

// recordOriginalComponents snapshots the fitted component count before
// the quality cuts rewrite it.
func recordOriginalComponents(t *table.Table, ncomponents int) {
	n := t.NumRows()
	count := make([]float64, n)
	for nn := 1; nn <= ncomponents; nn++ {
		sigma, ok := t.Float("sigma_gas" + table.ComponentSuffix(nn))
		if !ok {
			continue
		}
		for i, v := range sigma {
			if !math.IsNaN(v) {
				count[i]++
			}
		}
	}
	_ = t.AddFloat("Number of components (original)", count)
}

// stampProvenance records the cut configuration and the extinction flag
// as constant columns, so a dataset is self-describing.
func stampProvenance(t *table.Table, cuts dqcut.Options, extinctionApplied bool) {
	n := t.NumRows()
	boolCol := func(name string, val bool) {
		vals := make([]bool, n)
		for i := range vals {
			vals[i] = val
		}
		_ = t.AddBool(name, vals)
	}
	floatCol := func(name string, val float64) {
		vals := make([]float64, n)
		for i := range vals {
			vals[i] = val
		}
		_ = t.AddFloat(name, vals)
	}

	boolCol("Corrected for extinction?", extinctionApplied)
	boolCol("Extinction correction applied", extinctionApplied)
	boolCol("line_flux_SNR_cut", cuts.LineFluxSNRCut)
	floatCol("eline_SNR_min", cuts.ElineSNRMin)
	boolCol("sigma_gas_SNR_cut", cuts.SigmaGasSNRCut)
	floatCol("sigma_gas_SNR_min", cuts.SigmaGasSNRMin)
	boolCol("vgrad_cut", cuts.VgradCut)
	boolCol("line_amplitude_SNR_cut", cuts.LineAmplitudeSNRCut)
	boolCol("flux_fraction_cut", cuts.FluxFractionCut)
	boolCol("stekin_cut", cuts.StellarKinematicsCut)
}
