package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/nllfacts/internal/analysis"
	"github.com/roach88/nllfacts/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Unit     string
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Recompute stored units and verify determinism",
		Long: `Recompute every unit recorded in the database from its stored facts.

For each unit the stored facts are re-hashed and checked against the
snapshot hash recorded at compute time, then the analysis is run again with
the unit's algorithm and the Result Set hash is compared.

Exit codes:
  0 - Every unit replayed identically
  1 - At least one unit was tampered with or nondeterministic
  2 - Command error (database not found, etc.)

Examples:
  nllfacts replay --db units.db
  nllfacts replay --db units.db --unit main
  nllfacts replay --db units.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Unit, "unit", "", "only replay units recorded under this name")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	out := newFormatter(cmd, opts.RootOptions)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var report store.ReplayReport
	if opts.Unit != "" {
		report, err = st.ReplayNamed(cmd.Context(), analysis.NewDatalog(), opts.Unit)
	} else {
		report, err = st.Replay(cmd.Context(), analysis.NewDatalog())
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "replay failed", err)
	}

	if out.JSON() {
		if report.Failed > 0 {
			msg := fmt.Sprintf("%d unit(s) did not replay cleanly", report.Failed)
			if err := out.Failure(CodeReplayMismatch, msg, report); err != nil {
				return err
			}
			return NewExitError(ExitFailure, msg)
		}
		return out.Success(report)
	}
	return outputReplayText(cmd, report, opts.Unit, opts.Verbose)
}

func outputReplayText(cmd *cobra.Command, report store.ReplayReport, unit string, verbose bool) error {
	w := cmd.OutOrStdout()

	if len(report.Results) == 0 {
		if unit != "" {
			fmt.Fprintf(w, "No units named %q found in database.\n", unit)
			return nil
		}
		fmt.Fprintln(w, "No units found in database.")
		return nil
	}

	for _, r := range report.Results {
		name := r.Unit.ID
		if r.Unit.Name != "" {
			name = fmt.Sprintf("%s (%s)", r.Unit.ID, r.Unit.Name)
		}
		switch {
		case r.OK():
			fmt.Fprintf(w, "✓ %s\n", name)
		case r.Err != "":
			fmt.Fprintf(w, "✗ %s: %s\n", name, r.Err)
		case !r.SnapshotIntact:
			fmt.Fprintf(w, "✗ %s: stored facts do not match snapshot hash\n", name)
		case !r.OutputIntact:
			fmt.Fprintf(w, "✗ %s: stored output does not match output hash\n", name)
		default:
			fmt.Fprintf(w, "✗ %s: output hash changed\n", name)
		}
		if verbose {
			fmt.Fprintf(w, "  seq=%d algorithm=%s facts=%d\n", r.Unit.Seq, r.Unit.Algorithm, r.Unit.FactCount)
			fmt.Fprintf(w, "  recorded %s\n  replayed %s\n", r.Unit.OutputHash, r.OutputHash)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Replay Summary: %d unit(s), %d failed\n", len(report.Results), report.Failed)

	if report.Failed > 0 {
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	fmt.Fprintln(w, "✓ All units deterministic")
	return nil
}
