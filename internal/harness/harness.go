package harness

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ifukit/spaxelpipe/internal/pipeline"
	"github.com/ifukit/spaxelpipe/internal/store"
	"github.com/ifukit/spaxelpipe/internal/survey"
	"github.com/ifukit/spaxelpipe/internal/testutil"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Errors lists assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Scenario is the scenario name.
	Scenario string `json:"scenario"`

	// Filename is the dataset file the run produced.
	Filename string `json:"filename"`

	// RunID identifies this build.
	RunID string `json:"run_id"`

	// Rows is the built table's row count.
	Rows int `json:"rows"`

	// Fingerprint is the built table's content fingerprint.
	Fingerprint string `json:"fingerprint"`

	// DatasetID is the stored dataset id; Inserted is false when an
	// identical table was already stored under that id.
	DatasetID int64 `json:"dataset_id"`
	Inserted  bool  `json:"inserted"`
}

const defaultGridSize = 20

// scenarioConfig derives the survey configuration for a scenario's
// fixture geometry. The IFU centre sits at the grid midpoint.
func scenarioConfig(f FixtureSpec) survey.Config {
	cfg := survey.DefaultConfig()
	nx, ny := f.NX, f.NY
	if nx == 0 {
		nx = defaultGridSize
	}
	if ny == 0 {
		ny = defaultGridSize
	}
	cfg.NX, cfg.NY = nx, ny
	cfg.X0Px, cfg.Y0Px = float64(nx)/2, float64(ny)/2
	return cfg
}

// Run executes a scenario: build the table against the synthetic fixture,
// persist it to a dataset file under workDir, then evaluate assertions.
// Assertion failures are collected in the Result; only infrastructure
// failures return an error.
func Run(ctx context.Context, scenario *Scenario, workDir string) (*Result, error) {
	cfg := scenarioConfig(scenario.Fixture)
	fixture := testutil.NewFixture(cfg, scenario.Fixture.Seed, scenario.Fixture.Galaxies)

	opts := pipeline.Options{
		BinScheme:            survey.BinScheme(scenario.Build.Binning),
		Components:           survey.ComponentModel(scenario.Build.Components),
		ExtinctionCorrection: scenario.Build.Extcorr,
		MinSNR:               scenario.Build.MinSNR,
		Debug:                scenario.Build.Debug,
		Workers:              scenario.Build.Workers,
		MetallicityIters:     scenario.Build.MetallicityIters,
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	built, err := pipeline.Build(ctx, cfg, opts, fixture)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	st, err := store.Open(filepath.Join(workDir, built.Filename))
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	defer st.Close()

	meta := store.DatasetMeta{
		RunID:      built.RunID,
		Survey:     cfg.Name,
		Binning:    scenario.Build.Binning,
		Components: scenario.Build.Components,
		Extcorr:    scenario.Build.Extcorr,
		MinSNR:     opts.EffectiveMinSNR(),
		Debug:      scenario.Build.Debug,
		Filename:   built.Filename,
	}
	id, inserted, err := st.WriteDataset(ctx, meta, built.Table)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	fingerprint, err := built.Table.Fingerprint()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	result := &Result{
		Pass:        true,
		Scenario:    scenario.Name,
		Filename:    built.Filename,
		RunID:       built.RunID,
		Rows:        built.Table.NumRows(),
		Fingerprint: fingerprint,
		DatasetID:   id,
		Inserted:    inserted,
	}
	for _, msg := range EvaluateAssertions(ctx, built.Table, st, scenario.Assertions) {
		result.Errors = append(result.Errors, msg)
		result.Pass = false
	}
	return result, nil
}
