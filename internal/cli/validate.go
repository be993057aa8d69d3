package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ifukit/spaxelpipe/internal/harness"
	"github.com/ifukit/spaxelpipe/internal/pipeline"
	"github.com/ifukit/spaxelpipe/internal/store"
	"github.com/ifukit/spaxelpipe/internal/survey"
)

// ValidationResult holds the assertion outcomes for one dataset.
type ValidationResult struct {
	Filename string   `json:"filename"`
	Rows     int      `json:"rows"`
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		dataDir  string
		specPath string
		extcorr  bool
		debug    bool
	)

	cmd := &cobra.Command{
		Use:   "validate <ncomponents> <binning> <minSNR>",
		Short: "Run standard assertions against a built dataset",
		Long: `Validate the built dataset for a configuration tuple. The dataset file
is located in the data directory by its configuration-derived name, then
checked against the standard assertion set: required columns, the S/N
floor on every carried emission line, and stored provenance. Any failed
assertion exits non-zero.`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, dataDir, specPath, extcorr, debug, cmd)
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", ".", "directory holding built dataset files")
	cmd.Flags().StringVar(&specPath, "survey-spec", "", "CUE survey definition; configurations it does not provide are rejected")
	cmd.Flags().BoolVar(&extcorr, "extcorr", false, "validate the extinction-corrected dataset")
	cmd.Flags().BoolVar(&debug, "debug", false, "validate the DEBUG dataset")

	return cmd
}

func runValidate(rootOpts *RootOptions, args []string, dataDir, specPath string, extcorr, debug bool, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd)

	model, err := survey.ParseComponentModel(args[0])
	if err != nil {
		_ = formatter.Error(err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid component model", err)
	}
	scheme, err := survey.ParseBinScheme(args[1])
	if err != nil {
		_ = formatter.Error(err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid binning scheme", err)
	}
	minSNR, err := strconv.Atoi(args[2])
	if err != nil || minSNR < 0 {
		_ = formatter.Error(fmt.Sprintf("invalid minimum S/N %q", args[2]), nil)
		return NewExitError(ExitCommandError, "invalid minimum S/N")
	}

	if specPath != "" {
		spec, err := survey.LoadSpecFile(specPath)
		if err != nil {
			_ = formatter.Error(err.Error(), nil)
			return WrapExitError(ExitCommandError, "loading survey spec", err)
		}
		if !spec.HasConfiguration(scheme, model) {
			err := fmt.Errorf("survey %s does not provide binning %q with components %q",
				spec.Name, scheme, model)
			_ = formatter.Error(err.Error(), nil)
			return WrapExitError(ExitCommandError, "unsupported configuration", err)
		}
	}

	opts := pipeline.Options{
		BinScheme:            scheme,
		Components:           model,
		ExtinctionCorrection: extcorr,
		MinSNR:               minSNR,
		Debug:                debug,
	}
	cfg := survey.DefaultConfig()
	filename := pipeline.DatasetFilename(cfg.Name, opts)
	path := filepath.Join(dataDir, filename)
	formatter.VerboseLog("validating %s", path)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(path)
	if err != nil {
		_ = formatter.Error(err.Error(), nil)
		return WrapExitError(ExitCommandError, "opening dataset", err)
	}
	defer st.Close()

	_, tbl, err := st.ReadLatest(ctx)
	if err != nil {
		_ = formatter.Error(err.Error(), nil)
		return WrapExitError(ExitCommandError, "reading dataset", err)
	}

	failures := harness.EvaluateAssertions(ctx, tbl, st, standardAssertions(opts))
	result := ValidationResult{
		Filename: filename,
		Rows:     tbl.NumRows(),
		Valid:    len(failures) == 0,
		Errors:   failures,
	}
	return outputValidation(formatter, result)
}

// standardAssertions is the assertion set every built dataset must pass.
func standardAssertions(opts pipeline.Options) []harness.Assertion {
	floor := float64(opts.EffectiveMinSNR())
	assertions := []harness.Assertion{
		{Type: harness.AssertRowCount, MinRows: 1},
		{Type: harness.AssertColumnExists, Column: "ID"},
		{Type: harness.AssertColumnExists, Column: "HALPHA (total)"},
		{Type: harness.AssertColumnExists, Column: "BPT (total)"},
		{Type: harness.AssertColumnExists, Column: "Number of components"},
	}
	for _, eline := range pipeline.ElineList {
		assertions = append(assertions, harness.Assertion{
			Type: harness.AssertSNRFloor, Eline: eline, Min: &floor,
		})
	}
	assertions = append(assertions, harness.Assertion{
		Type:  harness.AssertFinalState,
		Table: "datasets",
		Where: map[string]interface{}{
			"binning":    string(opts.BinScheme),
			"components": string(opts.Components),
		},
		Expect: map[string]interface{}{
			"min_snr": opts.EffectiveMinSNR(),
			"extcorr": opts.ExtinctionCorrection,
		},
	})
	if opts.ExtinctionCorrection {
		assertions = append(assertions, harness.Assertion{
			Type: harness.AssertColumnExists, Column: "A_V (total)",
		})
	}
	return assertions
}

func outputValidation(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else if result.Valid {
		fmt.Fprintf(formatter.Writer, "%s: %d rows, all assertions passed\n", result.Filename, result.Rows)
	} else {
		fmt.Fprintf(formatter.Writer, "%s: validation failed\n", result.Filename)
		for _, msg := range result.Errors {
			fmt.Fprintf(formatter.Writer, "  %s\n", msg)
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))
	}
	return nil
}
