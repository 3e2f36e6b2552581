package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/nllfacts/internal/analysis"
	"github.com/roach88/nllfacts/internal/bridge"
	"github.com/roach88/nllfacts/internal/facts"
	"github.com/roach88/nllfacts/internal/store"
)

// ComputeOptions holds flags for the compute command.
// Flags left unset fall back to the configuration file.
type ComputeOptions struct {
	*RootOptions
	Algorithm string
	Database  string
	DumpDir   string
	Metrics   string
	Jobs      int
}

// UnitResult is the outcome of one facts directory.
type UnitResult struct {
	Dir     string           `json:"dir"`
	Unit    string           `json:"unit"`
	Facts   int              `json:"facts"`
	Summary analysis.Summary `json:"summary"`
	Output  *analysis.Output `json:"output,omitempty"`
}

// ComputeResult is the outcome of the compute command.
type ComputeResult struct {
	Algorithm       string       `json:"algorithm"`
	Units           []UnitResult `json:"units"`
	UnitsWithErrors int          `json:"units_with_errors"`
}

// NewComputeCommand creates the compute command.
func NewComputeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ComputeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compute <facts-dir>...",
		Short: "Run the borrow-check analysis over .facts directories",
		Long: `Load each .facts directory into its own unit and compute it.

Units are computed concurrently. Each directory holds one file per input
relation, named <relation>.facts, with one tab-separated tuple per line.

Exit codes:
  0 - No unit reported an error
  1 - At least one unit reported a loan, subset or move error
  2 - Command error (unreadable facts, bad flags, database failure)

Examples:
  nllfacts compute ./nll-facts/main
  nllfacts compute ./nll-facts/* --algorithm location_insensitive
  nllfacts compute ./nll-facts/* --db units.db --jobs 8
  nllfacts compute ./nll-facts/main --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompute(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Algorithm, "algorithm", "", "analysis variant (default from config: naive)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record computed units to this SQLite database")
	cmd.Flags().StringVar(&opts.DumpDir, "dump", "", "write the facts of every unit under this directory")
	cmd.Flags().StringVar(&opts.Metrics, "metrics", "", "write bridge metrics in Prometheus text format to this file")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", 0, "units computed in parallel (default from config: 4)")

	return cmd
}

// resolve merges flags over the configuration file.
func (o *ComputeOptions) resolve() (analysis.Algorithm, string, string, int, error) {
	cfg, err := o.Config()
	if err != nil {
		return 0, "", "", 0, err
	}
	name := cfg.Algorithm
	if o.Algorithm != "" {
		name = o.Algorithm
	}
	algo, err := analysis.ParseAlgorithm(name)
	if err != nil {
		return 0, "", "", 0, WrapExitError(ExitCommandError, "invalid algorithm", err)
	}
	if !analysis.NewDatalog().Supports(algo) {
		return 0, "", "", 0, NewExitError(ExitCommandError, fmt.Sprintf("algorithm %s is not supported by the bundled engine", algo))
	}
	db := cfg.Store.Path
	if o.Database != "" {
		db = o.Database
	}
	dump := cfg.Dump.Dir
	if o.DumpDir != "" {
		dump = o.DumpDir
	}
	jobs := cfg.Jobs
	if o.Jobs != 0 {
		jobs = o.Jobs
	}
	if jobs < 1 {
		return 0, "", "", 0, NewExitError(ExitCommandError, fmt.Sprintf("--jobs must be at least 1, got %d", jobs))
	}
	return algo, db, dump, jobs, nil
}

func runCompute(opts *ComputeOptions, dirs []string, cmd *cobra.Command) error {
	out := newFormatter(cmd, opts.RootOptions)

	algo, dbPath, dumpDir, jobs, err := opts.resolve()
	if err != nil {
		return err
	}

	bopts := []bridge.Option{bridge.WithAlgorithm(algo)}
	if dbPath != "" {
		st, err := store.Open(dbPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()
		seq, err := st.LastSeq(cmd.Context())
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read database", err)
		}
		bopts = append(bopts, bridge.WithRecorder(st), bridge.WithClock(bridge.NewClockAt(seq)))
	}
	b := bridge.New(bopts...)

	results := make([]UnitResult, len(dirs))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(jobs)
	for i, dir := range dirs {
		g.Go(func() error {
			res, err := computeDir(ctx, b, dir, dumpDir)
			if err != nil {
				return err
			}
			if !opts.Verbose {
				res.Output = nil
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, r := range results {
		out.VerboseLog("computed %s: %s", r.Dir, r.Summary)
	}
	if opts.Metrics != "" {
		if err := writeMetrics(opts.Metrics, b.Metrics().Registry()); err != nil {
			return WrapExitError(ExitCommandError, "failed to write metrics", err)
		}
	}

	result := ComputeResult{Algorithm: algo.String(), Units: results}
	for _, r := range results {
		if r.Summary != (analysis.Summary{}) {
			result.UnitsWithErrors++
		}
	}

	if out.JSON() {
		if result.UnitsWithErrors > 0 {
			msg := fmt.Sprintf("%d unit(s) reported errors", result.UnitsWithErrors)
			if err := out.Failure(CodeUnitErrors, msg, result); err != nil {
				return err
			}
			return NewExitError(ExitFailure, msg)
		}
		return out.Success(result)
	}
	return outputComputeText(cmd, result)
}

// computeDir runs one facts directory through its own handle.
func computeDir(ctx context.Context, b *bridge.Bridge, dir, dumpDir string) (UnitResult, error) {
	src, err := facts.ReadDir(dir)
	if err != nil {
		return UnitResult{}, WrapExitError(ExitCommandError, "failed to load facts", err)
	}

	h := b.OpenNamed(filepath.Base(filepath.Clean(dir)))
	defer func() {
		if err := b.Close(h); err != nil {
			slog.Warn("close failed", "handle", h.String(), "error", err)
		}
	}()

	if err := b.Load(h, src); err != nil {
		return UnitResult{}, fmt.Errorf("load %s: %w", dir, err)
	}
	output, err := b.Compute(ctx, h)
	if err != nil {
		return UnitResult{}, WrapExitError(ExitCommandError, fmt.Sprintf("failed to compute %s", dir), err)
	}
	id, _, err := b.Unit(h)
	if err != nil {
		return UnitResult{}, err
	}

	if dumpDir != "" {
		snap, err := b.Facts(h)
		if err != nil {
			return UnitResult{}, err
		}
		if err := facts.WriteDir(filepath.Join(dumpDir, id), snap); err != nil {
			return UnitResult{}, WrapExitError(ExitCommandError, "failed to dump facts", err)
		}
	}

	return UnitResult{
		Dir:     dir,
		Unit:    id,
		Facts:   src.Len(),
		Summary: output.Summary(),
		Output:  output,
	}, nil
}

// writeMetrics dumps every collector of reg in the text exposition format.
func writeMetrics(path string, reg prometheus.Gatherer) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(f, mf); err != nil {
			f.Close()
			return err
		}
	}
	return f.Close()
}

func outputComputeText(cmd *cobra.Command, result ComputeResult) error {
	w := cmd.OutOrStdout()

	for _, u := range result.Units {
		mark := "✓"
		if u.Summary != (analysis.Summary{}) {
			mark = "✗"
		}
		fmt.Fprintf(w, "%s %s (%d facts): %s\n", mark, u.Dir, u.Facts, u.Summary)
		if u.Output == nil {
			continue
		}
		for _, e := range u.Output.Errors {
			fmt.Fprintf(w, "  loan %s invalidated at %s while live\n", e.Loan, e.Point)
		}
		for _, e := range u.Output.SubsetErrors {
			fmt.Fprintf(w, "  %s: %s required at %s but not declared\n", e.Sub, e.Sup, e.Point)
		}
		for _, e := range u.Output.MoveErrors {
			fmt.Fprintf(w, "  %s accessed at %s after move\n", e.Path, e.Point)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Compute Summary: %d unit(s), %d with errors (%s)\n",
		len(result.Units), result.UnitsWithErrors, result.Algorithm)

	if result.UnitsWithErrors > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d unit(s) reported errors", result.UnitsWithErrors))
	}
	return nil
}
