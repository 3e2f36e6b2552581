package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/nllfacts/internal/config"
	"github.com/roach88/nllfacts/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	config *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Config returns the configuration named by --config, loading it on first
// use. Commands built without the root command (as in tests) load it lazily.
func (o *RootOptions) Config() (*config.Config, error) {
	if o.config != nil {
		return o.config, nil
	}
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	o.config = cfg
	return cfg, nil
}

// NewRootCommand creates the nllfacts command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "nllfacts",
		Short: "Borrow-check fact bridge",
		Long: `nllfacts collects borrow-check facts into per-function units and runs
the NLL analysis over them.

Facts are loaded from .facts dump directories, one tab-separated file per
relation. Computed units can be recorded to SQLite and replayed later to
verify that the analysis is deterministic.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			cfg, err := opts.Config()
			if err != nil {
				return err
			}
			logOpts := cfg.LoggingOptions()
			if opts.Verbose {
				logOpts.Level = "debug"
			}
			logOpts.Writer = cmd.ErrOrStderr()
			if _, err := logging.Init(logOpts); err != nil {
				return WrapExitError(ExitCommandError, "invalid logging configuration", err)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a nllfacts.cue configuration file")

	cmd.AddCommand(NewComputeCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewReplayCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))

	return cmd
}
