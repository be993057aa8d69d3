package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ifukit/spaxelpipe/internal/pipeline"
	"github.com/ifukit/spaxelpipe/internal/store"
	"github.com/ifukit/spaxelpipe/internal/survey"
	"github.com/ifukit/spaxelpipe/internal/testutil"
)

// BuildResult summarizes one built dataset for CLI output.
type BuildResult struct {
	Filename  string `json:"filename"`
	RunID     string `json:"run_id"`
	Galaxies  int    `json:"galaxies"`
	Rows      int    `json:"rows"`
	DatasetID int64  `json:"dataset_id"`
	Inserted  bool   `json:"inserted"`
}

func (r BuildResult) String() string {
	status := "wrote"
	if !r.Inserted {
		status = "unchanged"
	}
	return fmt.Sprintf("%s %s (galaxies=%d rows=%d dataset=%d)",
		status, r.Filename, r.Galaxies, r.Rows, r.DatasetID)
}

type buildFlags struct {
	configPath string
	specPath   string
	binning    string
	components string
	extcorr    bool
	minSNR     int
	debug      bool
	workers    int
	seed       int64
	iters      int
	all        bool
	synthetic  int
	outDir     string
}

// NewBuildCommand creates the build command.
func NewBuildCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &buildFlags{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build spaxel tables for one or all configurations",
		Long: `Build the spaxel table for a configuration tuple (binning scheme,
component model, extinction correction, S/N floor) and persist it as a
dataset file named after the tuple. With --all, every binning scheme and
component model combination is built in turn.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(rootOpts, flags, cmd)
		},
	}

	cmd.Flags().StringVar(&flags.configPath, "config", "", "survey config YAML (defaults embedded)")
	cmd.Flags().StringVar(&flags.specPath, "survey-spec", "", "CUE survey definition; configurations it does not provide are rejected")
	cmd.Flags().StringVar(&flags.binning, "binning", "default", "binning scheme (default|adaptive|sectors)")
	cmd.Flags().StringVar(&flags.components, "components", "1", "component model (1|recom)")
	cmd.Flags().BoolVar(&flags.extcorr, "extcorr", false, "correct line fluxes for extinction")
	cmd.Flags().IntVar(&flags.minSNR, "min-snr", 0, "emission line S/N floor (0 = default)")
	cmd.Flags().BoolVar(&flags.debug, "debug", false, "build only the first galaxies, mark file as DEBUG")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "worker pool size (0 = GOMAXPROCS)")
	cmd.Flags().Int64Var(&flags.seed, "seed", 0, "seed for metallicity error resampling")
	cmd.Flags().IntVar(&flags.iters, "metallicity-iters", 0, "Monte Carlo iterations per spaxel (0 = default)")
	cmd.Flags().BoolVar(&flags.all, "all", false, "build every binning scheme and component model")
	cmd.Flags().IntVar(&flags.synthetic, "synthetic", 0, "build from a synthetic fixture with N galaxies instead of survey files")
	cmd.Flags().StringVar(&flags.outDir, "out", "", "output directory (defaults to the config output path)")

	return cmd
}

func runBuild(rootOpts *RootOptions, flags *buildFlags, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd)

	cfg := survey.DefaultConfig()
	if flags.configPath != "" {
		loaded, err := survey.LoadConfig(flags.configPath)
		if err != nil {
			_ = formatter.Error(err.Error(), nil)
			return WrapExitError(ExitCommandError, "loading config", err)
		}
		cfg = loaded
	}

	var spec *survey.Spec
	if flags.specPath != "" {
		loaded, err := survey.LoadSpecFile(flags.specPath)
		if err != nil {
			_ = formatter.Error(err.Error(), nil)
			return WrapExitError(ExitCommandError, "loading survey spec", err)
		}
		spec = loaded
	}

	var src pipeline.Source = pipeline.FileSource{Config: cfg}
	if flags.synthetic > 0 {
		src = testutil.NewFixture(cfg, flags.seed, flags.synthetic)
	}

	outDir := flags.outDir
	if outDir == "" {
		outDir = cfg.OutputPath
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		_ = formatter.Error(err.Error(), nil)
		return WrapExitError(ExitCommandError, "creating output directory", err)
	}

	var tuples []pipeline.Options
	if flags.all {
		schemes := []survey.BinScheme{survey.BinDefault, survey.BinAdaptive, survey.BinSectors}
		models := []survey.ComponentModel{survey.CompOne, survey.CompRecom}
		if spec != nil {
			schemes, models = spec.BinSchemes, spec.ComponentModels
		}
		for _, scheme := range schemes {
			for _, model := range models {
				tuples = append(tuples, buildOptions(flags, scheme, model))
			}
		}
	} else {
		tuples = append(tuples, buildOptions(flags,
			survey.BinScheme(flags.binning), survey.ComponentModel(flags.components)))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var results []BuildResult
	for _, opts := range tuples {
		if err := opts.Validate(); err != nil {
			_ = formatter.Error(err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid configuration", err)
		}
		if spec != nil && !spec.HasConfiguration(opts.BinScheme, opts.Components) {
			err := fmt.Errorf("survey %s does not provide binning %q with components %q",
				spec.Name, opts.BinScheme, opts.Components)
			_ = formatter.Error(err.Error(), nil)
			return WrapExitError(ExitCommandError, "unsupported configuration", err)
		}
		formatter.VerboseLog("building %s", pipeline.DatasetFilename(cfg.Name, opts))

		result, err := buildOne(ctx, cfg, opts, src, outDir)
		if err != nil {
			_ = formatter.Error(err.Error(), nil)
			return WrapExitError(ExitFailure, "build failed", err)
		}
		results = append(results, result)
	}

	if formatter.Format == "json" {
		return formatter.Success(results)
	}
	for _, r := range results {
		fmt.Fprintln(formatter.Writer, r)
	}
	return nil
}

func buildOptions(flags *buildFlags, scheme survey.BinScheme, model survey.ComponentModel) pipeline.Options {
	return pipeline.Options{
		BinScheme:            scheme,
		Components:           model,
		ExtinctionCorrection: flags.extcorr,
		MinSNR:               flags.minSNR,
		Debug:                flags.debug,
		Workers:              flags.workers,
		MetallicityIters:     flags.iters,
		Seed:                 flags.seed,
	}
}

func buildOne(ctx context.Context, cfg survey.Config, opts pipeline.Options, src pipeline.Source, outDir string) (BuildResult, error) {
	built, err := pipeline.Build(ctx, cfg, opts, src)
	if err != nil {
		return BuildResult{}, err
	}

	st, err := store.Open(filepath.Join(outDir, built.Filename))
	if err != nil {
		return BuildResult{}, err
	}
	defer st.Close()

	meta := store.DatasetMeta{
		RunID:      built.RunID,
		Survey:     cfg.Name,
		Binning:    string(opts.BinScheme),
		Components: string(opts.Components),
		Extcorr:    opts.ExtinctionCorrection,
		MinSNR:     opts.EffectiveMinSNR(),
		Debug:      opts.Debug,
		Filename:   built.Filename,
	}
	id, inserted, err := st.WriteDataset(ctx, meta, built.Table)
	if err != nil {
		return BuildResult{}, err
	}

	return BuildResult{
		Filename:  built.Filename,
		RunID:     built.RunID,
		Galaxies:  built.Galaxies,
		Rows:      built.Table.NumRows(),
		DatasetID: id,
		Inserted:  inserted,
	}, nil
}
