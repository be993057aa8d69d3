package metallicity

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/ifukit/spaxelpipe/internal/table"
)

// Options configures one metallicity computation.
type Options struct {
	Diagnostic Diagnostic

	// ComputeLogU iterates a self-consistent ionisation parameter using
	// IonDiagnostic. When false, diagnostics that need log(U) use
	// FixedLogU instead (HasFixedLogU must be set).
	ComputeLogU   bool
	IonDiagnostic Diagnostic
	FixedLogU     float64
	HasFixedLogU  bool

	// ComputeErrors estimates 1-sigma error bars by resampling the line
	// fluxes with Gaussian noise at their quoted errors, NIters times per
	// spaxel. The reported value is the mean of the draws and the error
	// bars span the 16th to 84th percentiles.
	ComputeErrors bool
	NIters        int

	// Seed makes the resampling reproducible. Each row derives its own
	// generator from Seed and the row index, so results do not depend on
	// scheduling order.
	Seed    int64
	Workers int

	// MaxIters bounds the self-consistent iteration. Zero means the
	// default of 10.
	MaxIters int
}

func (o Options) maxIters() int {
	if o.MaxIters <= 0 {
		return defaultMaxIters
	}
	return o.MaxIters
}

func (o Options) workers() int {
	if o.Workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return o.Workers
}

func (o Options) niters() int {
	if o.NIters <= 0 {
		return 1000
	}
	return o.NIters
}

// label is the parenthesised diagnostic tag used in output column names,
// e.g. "N2O2_K19/O3O2_K19" when a self-consistent log(U) is computed.
func (o Options) label() string {
	if o.ComputeLogU {
		return string(o.Diagnostic) + "/" + string(o.IonDiagnostic)
	}
	return string(o.Diagnostic)
}

// Calculate computes log(O/H) + 12 for every spaxel classified SF on the
// optical diagnostic diagram, reading and writing columns carrying the
// given suffix. Non-SF spaxels get NaN. New columns:
//
//	log(O/H) + 12 (<label>)<suffix>
//	log(O/H) + 12 (<label>) error (lower)<suffix>   (ComputeErrors)
//	log(O/H) + 12 (<label>) error (upper)<suffix>   (ComputeErrors)
//	log(U) (<label>)<suffix>                        (diagnostics using log U)
//	log(U) (<label>) error (lower/upper)<suffix>    (ComputeLogU + ComputeErrors)
func Calculate(ctx context.Context, t *table.Table, opts Options, suffix string) error {
	if err := validateDiagnostics(opts); err != nil {
		return err
	}

	needed := append([]string(nil), requiredLines[opts.Diagnostic]...)
	if opts.ComputeLogU {
		needed = append(needed, requiredLines[opts.IonDiagnostic]...)
	}
	v := t.ViewOf(suffix)
	for _, line := range needed {
		if !v.Has(line) {
			return fmt.Errorf("metallicity: diagnostic %q requires column %q", opts.label(), v.Name(line))
		}
		if opts.ComputeErrors && !v.Has(line+" error") {
			return fmt.Errorf("metallicity: error estimation requires column %q", v.Name(line+" error"))
		}
	}

	labels, ok := t.Str(v.Name("BPT"))
	if !ok {
		return fmt.Errorf("metallicity: column %q not found; classify spaxels first", v.Name("BPT"))
	}

	nrows := t.NumRows()
	fluxes := make(map[string][]float64, len(needed))
	errs := make(map[string][]float64, len(needed))
	for _, line := range needed {
		fluxes[line], _ = t.Float(v.Name(line))
		if opts.ComputeErrors {
			errs[line], _ = t.Float(v.Name(line + " error"))
		}
	}

	zVal := table.NaNs(nrows)
	zLo := table.NaNs(nrows)
	zHi := table.NaNs(nrows)
	uVal := table.NaNs(nrows)
	uLo := table.NaNs(nrows)
	uHi := table.NaNs(nrows)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for rr := 0; rr < nrows; rr++ {
		if labels[rr] != "SF" {
			continue
		}
		rr := rr
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			base := make(row, len(needed))
			for _, line := range needed {
				base[line] = fluxes[line][rr]
			}
			if !opts.ComputeErrors {
				zVal[rr], uVal[rr] = evaluateRow(opts, base)
				return nil
			}
			resampleRow(opts, rr, base, errs, zVal, zLo, zHi, uVal, uLo, uHi)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	zBase := "log(O/H) + 12 (" + opts.label() + ")"
	uBase := "log(U) (" + opts.label() + ")"
	if err := t.AddFloat(zBase+suffix, zVal); err != nil {
		return err
	}
	if opts.ComputeErrors {
		if err := t.AddFloat(zBase+" error (lower)"+suffix, zLo); err != nil {
			return err
		}
		if err := t.AddFloat(zBase+" error (upper)"+suffix, zHi); err != nil {
			return err
		}
	}
	if opts.ComputeLogU || (needsLogU(opts.Diagnostic) && opts.HasFixedLogU) {
		if err := t.AddFloat(uBase+suffix, uVal); err != nil {
			return err
		}
	}
	if opts.ComputeLogU && opts.ComputeErrors {
		if err := t.AddFloat(uBase+" error (lower)"+suffix, uLo); err != nil {
			return err
		}
		if err := t.AddFloat(uBase+" error (upper)"+suffix, uHi); err != nil {
			return err
		}
	}
	return nil
}

// resampleRow runs the Monte Carlo error estimate for one spaxel and fills
// its slots in the output slices.
func resampleRow(opts Options, rr int, base row, errs map[string][]float64,
	zVal, zLo, zHi, uVal, uLo, uHi []float64) {

	rng := rand.New(rand.NewSource(opts.Seed + int64(rr)))
	niters := opts.niters()
	zDraws := make([]float64, niters)
	uDraws := make([]float64, niters)

	perturbed := make(row, len(base))
	for nn := 0; nn < niters; nn++ {
		for line, flux := range base {
			perturbed[line] = flux
		}
		// Lines shared between the metallicity and ionisation line sets
		// are perturbed once per appearance.
		for _, line := range requiredLines[opts.Diagnostic] {
			perturbed[line] += rng.NormFloat64() * errs[line][rr]
		}
		if opts.ComputeLogU {
			for _, line := range requiredLines[opts.IonDiagnostic] {
				perturbed[line] += rng.NormFloat64() * errs[line][rr]
			}
		}
		zDraws[nn], uDraws[nn] = evaluateRow(opts, perturbed)
	}

	zMean := nanMean(zDraws)
	zVal[rr] = zMean
	zLo[rr] = zMean - quantile(zDraws, 0.16)
	zHi[rr] = quantile(zDraws, 0.84) - zMean

	switch {
	case opts.ComputeLogU:
		uMean := nanMean(uDraws)
		uVal[rr] = uMean
		uLo[rr] = uMean - quantile(uDraws, 0.16)
		uHi[rr] = quantile(uDraws, 0.84) - uMean
	case needsLogU(opts.Diagnostic) && opts.HasFixedLogU:
		if !math.IsNaN(zMean) {
			uVal[rr] = opts.FixedLogU
		}
	}
}

// nanMean is the mean of the finite entries, NaN when there are none.
func nanMean(vals []float64) float64 {
	sum, n := 0.0, 0
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// quantile interpolates linearly between order statistics. Any NaN in the
// sample makes the quantile NaN, so error bars are only reported when
// every draw landed inside the calibration range.
func quantile(vals []float64, q float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	for _, v := range sorted {
		if math.IsNaN(v) {
			return math.NaN()
		}
	}
	sort.Float64s(sorted)
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
