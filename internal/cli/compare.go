package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ifukit/spaxelpipe/internal/store"
	"github.com/ifukit/spaxelpipe/internal/table"
)

// CompareResult summarizes a regression comparison for CLI output.
type CompareResult struct {
	File          string `json:"file"`
	Reference     string `json:"reference"`
	Equal         bool   `json:"equal"`
	Fingerprint   string `json:"fingerprint"`
	RefFingerprnt string `json:"reference_fingerprint"`
	Report        string `json:"report,omitempty"`
}

// NewCompareCommand creates the compare command.
func NewCompareCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		refPath string
		absTol  float64
		relTol  float64
	)

	cmd := &cobra.Command{
		Use:   "compare <file>",
		Short: "Compare a built dataset against its reference",
		Long: `Compare the latest dataset in a built file against the latest dataset
in a reference file. Matching fingerprints short-circuit; otherwise a
cell-level diff within the given tolerances decides, and mismatches exit
non-zero with a descriptive report. NaN cells compare equal to NaN.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(rootOpts, args[0], refPath, absTol, relTol, cmd)
		},
	}

	defaults := table.DefaultDiffOptions()
	cmd.Flags().StringVar(&refPath, "reference", "", "reference dataset file (required)")
	cmd.Flags().Float64Var(&absTol, "abs-tol", defaults.AbsTol, "absolute tolerance for float cells")
	cmd.Flags().Float64Var(&relTol, "rel-tol", defaults.RelTol, "relative tolerance for float cells")
	_ = cmd.MarkFlagRequired("reference")

	return cmd
}

func runCompare(rootOpts *RootOptions, path, refPath string, absTol, relTol float64, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	gotMeta, got, err := readLatest(ctx, path)
	if err != nil {
		_ = formatter.Error(err.Error(), nil)
		return WrapExitError(ExitCommandError, "reading dataset", err)
	}
	refMeta, want, err := readLatest(ctx, refPath)
	if err != nil {
		_ = formatter.Error(err.Error(), nil)
		return WrapExitError(ExitCommandError, "reading reference", err)
	}
	formatter.VerboseLog("comparing %s (run %s) against %s (run %s)",
		path, gotMeta.RunID, refPath, refMeta.RunID)

	result := CompareResult{
		File:          path,
		Reference:     refPath,
		Fingerprint:   gotMeta.Fingerprint,
		RefFingerprnt: refMeta.Fingerprint,
	}

	if gotMeta.Fingerprint == refMeta.Fingerprint {
		result.Equal = true
		return outputCompare(formatter, result)
	}

	opts := table.DefaultDiffOptions()
	opts.AbsTol = absTol
	opts.RelTol = relTol
	report := table.Diff(got, want, opts)
	result.Equal = report.Equal
	if !report.Equal {
		result.Report = report.String()
	}
	return outputCompare(formatter, result)
}

func readLatest(ctx context.Context, path string) (*store.DatasetMeta, *table.Table, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer st.Close()
	return st.ReadLatest(ctx)
}

func outputCompare(formatter *OutputFormatter, result CompareResult) error {
	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else if result.Equal {
		fmt.Fprintln(formatter.Writer, "tables match")
	} else {
		fmt.Fprintf(formatter.Writer, "tables differ:\n%s", result.Report)
	}

	if !result.Equal {
		return NewExitError(ExitFailure, "comparison failed")
	}
	return nil
}
