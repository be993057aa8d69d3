// Package pipeline orchestrates one table build: ingest the catalogue,
// fan out per-galaxy product ingestion, stack the per-bin tables, apply
// the quality cuts and derived-quantity stages and stamp provenance.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ifukit/spaxelpipe/internal/dqcut"
	"github.com/ifukit/spaxelpipe/internal/ingest"
	"github.com/ifukit/spaxelpipe/internal/lines"
	"github.com/ifukit/spaxelpipe/internal/metallicity"
	"github.com/ifukit/spaxelpipe/internal/survey"
	"github.com/ifukit/spaxelpipe/internal/table"
)

// Result is one built dataset, ready to persist.
type Result struct {
	Table    *table.Table
	Filename string
	RunID    string
	Galaxies int
}

// Build runs the full generate step for one configuration tuple.
func Build(ctx context.Context, cfg survey.Config, opts Options, src Source) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	slog.Info("build starting",
		"run_id", runID,
		"survey", cfg.Name,
		"binning", opts.BinScheme,
		"components", opts.Components,
		"extcorr", opts.ExtinctionCorrection,
		"min_snr", opts.EffectiveMinSNR(),
		"debug", opts.Debug,
	)

	galaxies, err := selectGalaxies(src, opts)
	if err != nil {
		return nil, err
	}
	ncomp := opts.Components.MaxComponents()

	perGalaxy, err := ingestGalaxies(ctx, cfg, opts, src, galaxies)
	if err != nil {
		return nil, err
	}
	t, err := concatTables(perGalaxy)
	if err != nil {
		return nil, stageErr(StageIngest, "", err)
	}
	slog.Info("galaxies ingested", "run_id", runID, "galaxies", len(galaxies), "rows", t.NumRows())

	// Pre-cut derived columns: totals, S/N and equivalent widths, plus
	// the fitted component count before masking rewrites it.
	completeElineTotals(t, ncomp)
	addSNRColumns(t, ncomp)
	clampContinuum(t)
	lines.ComputeEquivalentWidths(t, ncomp)
	recordOriginalComponents(t, ncomp)

	cuts := dqcut.Defaults(ncomp, ElineList)
	cuts.ElineSNRMin = float64(opts.EffectiveMinSNR())
	cuts.SigmaInstKMS = cfg.SigmaInstKms
	if err := dqcut.Apply(t, cuts); err != nil {
		return nil, stageErr(StageQuality, "", err)
	}

	if opts.ExtinctionCorrection {
		extOpts := lines.ExtinctionOptions{
			RestWavelengths: extinctionWavelengths(cfg),
			BalmerSNRMin:    5,
		}
		if err := lines.ComputeExtinctionCorrection(t, extOpts, table.TotalSuffix); err != nil {
			return nil, stageErr(StageExtinction, "", err)
		}
	}

	lines.ComputeRatios(t, table.TotalSuffix)
	lines.ComputeBPT(t, table.TotalSuffix)
	lines.ComputeLaw2021(t, table.TotalSuffix)
	if t.Has("[SII] ratio" + table.TotalSuffix) {
		if err := lines.ComputeElectronDensity(t, "[SII]", "Proxauf2014", table.TotalSuffix); err != nil {
			return nil, stageErr(StageDerived, "", err)
		}
		if err := lines.ComputeElectronDensity(t, "[SII]", "Sanders2016", table.TotalSuffix); err != nil {
			return nil, stageErr(StageDerived, "", err)
		}
	}
	if t.Has("[OII] ratio" + table.TotalSuffix) {
		if err := lines.ComputeElectronDensity(t, "[OII]", "Sanders2016", table.TotalSuffix); err != nil {
			return nil, stageErr(StageDerived, "", err)
		}
	}
	lines.ComputeLuminosities(t, ncomp, ElineList, cfg.FluxUnits)
	lines.ComputeFWHM(t, ncomp)
	lines.ComputeSFR(t, ncomp)
	dqcut.ComputeExtraColumns(t, ncomp)

	// Metallicities need dereddened fluxes; an uncorrected build skips
	// them rather than report biased abundances.
	if opts.ExtinctionCorrection {
		for _, mo := range metallicityPlan(opts) {
			slog.Debug("computing metallicity", "run_id", runID, "diagnostic", mo.Diagnostic)
			if err := metallicity.Calculate(ctx, t, mo, table.TotalSuffix); err != nil {
				return nil, stageErr(StageMetallicity, "", fmt.Errorf("%s: %w", mo.Diagnostic, err))
			}
		}
	}

	stampProvenance(t, cuts, opts.ExtinctionCorrection)

	res := &Result{
		Table:    t,
		Filename: DatasetFilename(cfg.Name, opts),
		RunID:    runID,
		Galaxies: len(galaxies),
	}
	slog.Info("build finished",
		"run_id", runID,
		"filename", res.Filename,
		"rows", t.NumRows(),
		"columns", t.NumColumns(),
	)
	return res, nil
}

// selectGalaxies reads the catalogue and keeps the good entries, truncated
// in debug mode.
func selectGalaxies(src Source, opts Options) ([]ingest.Galaxy, error) {
	all, err := src.Catalogue()
	if err != nil {
		return nil, stageErr(StageCatalogue, "", err)
	}
	var galaxies []ingest.Galaxy
	for _, g := range all {
		if g.Good {
			galaxies = append(galaxies, g)
		}
	}
	if len(galaxies) == 0 {
		return nil, stageErr(StageCatalogue, "", fmt.Errorf("no good galaxies in catalogue"))
	}
	if opts.Debug && len(galaxies) > DebugGalaxyLimit {
		galaxies = galaxies[:DebugGalaxyLimit]
	}
	return galaxies, nil
}

// ingestGalaxies loads and assembles every galaxy's per-bin table in
// parallel, preserving catalogue order in the result.
func ingestGalaxies(ctx context.Context, cfg survey.Config, opts Options, src Source, galaxies []ingest.Galaxy) ([]*table.Table, error) {
	tables := make([]*table.Table, len(galaxies))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for i, gal := range galaxies {
		i, gal := i, gal
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			products, err := src.Products(gal.ID, opts.BinScheme, opts.Components)
			if err != nil {
				return stageErr(StageIngest, gal.ID, err)
			}
			t, err := ingest.Assemble(cfg, gal, products, opts.BinScheme, opts.Components)
			if err != nil {
				return stageErr(StageIngest, gal.ID, err)
			}
			slog.Debug("galaxy assembled", "galaxy", gal.ID, "rows", t.NumRows())
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tables, nil
}

// extinctionWavelengths lists the rest wavelength of every column the
// dereddening touches, including the unresolved [OII] doublet sum which
// gets the mean of its members.
func extinctionWavelengths(cfg survey.Config) map[string]float64 {
	out := make(map[string]float64, len(cfg.ElineRestWavelengths)+1)
	for name, w := range cfg.ElineRestWavelengths {
		out[name] = w
	}
	if a, aok := out["OII3726"]; aok {
		if b, bok := out["OII3729"]; bok {
			out["OII3726+OII3729"] = (a + b) / 2
		}
	}
	return out
}

// metallicityPlan lists every diagnostic a corrected build computes, all
// with Monte Carlo error bars on the total fluxes.
func metallicityPlan(opts Options) []metallicity.Options {
	base := metallicity.Options{
		ComputeErrors: true,
		NIters:        opts.MetallicityIters,
		Seed:          opts.Seed,
		Workers:       opts.Workers,
	}

	var plan []metallicity.Options
	for _, d := range []metallicity.Diagnostic{
		metallicity.N2HaPP04, metallicity.N2HaM13,
		metallicity.O3N2PP04, metallicity.O3N2M13,
		metallicity.N2S2HaD16, metallicity.N2O2KD02,
		metallicity.RcalPG16, metallicity.ScalPG16,
		metallicity.ONP10, metallicity.ONSP10,
	} {
		mo := base
		mo.Diagnostic = d
		plan = append(plan, mo)
	}
	for _, d := range []metallicity.Diagnostic{
		metallicity.N2HaK19, metallicity.O3N2K19, metallicity.N2O2K19,
	} {
		mo := base
		mo.Diagnostic = d
		mo.ComputeLogU = true
		mo.IonDiagnostic = metallicity.O3O2K19
		plan = append(plan, mo)
	}
	mo := base
	mo.Diagnostic = metallicity.R23KK04
	mo.ComputeLogU = true
	mo.IonDiagnostic = metallicity.O3O2KK04
	plan = append(plan, mo)
	return plan
}
