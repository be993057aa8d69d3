package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ifukit/spaxelpipe/internal/store"
)

// DatasetInfo is the provenance of one stored dataset for CLI output.
type DatasetInfo struct {
	ID          int64  `json:"id"`
	RunID       string `json:"run_id"`
	Binning     string `json:"binning"`
	Components  string `json:"components"`
	Extcorr     bool   `json:"extcorr"`
	MinSNR      int    `json:"min_snr"`
	Debug       bool   `json:"debug,omitempty"`
	Rows        int    `json:"rows"`
	Fingerprint string `json:"fingerprint"`
	CreatedAt   string `json:"created_at"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "List the datasets stored in a dataset file",
		Long: `List every dataset in a dataset file with its provenance: run id,
configuration tuple, row count, content fingerprint and creation time.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runInspect(rootOpts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd)
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

	metas, err := st.List(ctx)
	if err != nil {
		_ = formatter.Error(err.Error(), nil)
		return WrapExitError(ExitCommandError, "listing datasets", err)
	}

	infos := make([]DatasetInfo, len(metas))
	for i, m := range metas {
		infos[i] = DatasetInfo{
			ID:          m.ID,
			RunID:       m.RunID,
			Binning:     m.Binning,
			Components:  m.Components,
			Extcorr:     m.Extcorr,
			MinSNR:      m.MinSNR,
			Debug:       m.Debug,
			Rows:        m.Rows,
			Fingerprint: m.Fingerprint,
			CreatedAt:   m.CreatedAt,
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(infos)
	}

	if len(infos) == 0 {
		fmt.Fprintln(formatter.Writer, "no datasets")
		return nil
	}
	w := tabwriter.NewWriter(formatter.Writer, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tRUN\tBINNING\tCOMPONENTS\tEXTCORR\tMINSNR\tROWS\tCREATED")
	for _, info := range infos {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\t%d\t%d\t%s\n",
			info.ID, shortID(info.RunID), info.Binning, info.Components,
			info.Extcorr, info.MinSNR, info.Rows, info.CreatedAt)
	}
	return w.Flush()
}

// shortID truncates a run UUID for table display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
