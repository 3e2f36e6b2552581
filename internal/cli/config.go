package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/nllfacts/internal/config"
)

// NewConfigCommand creates the config command.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		Long: `Print the configuration after applying schema defaults to --config.

Examples:
  nllfacts config
  nllfacts config --config nllfacts.cue --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.Config()
			if err != nil {
				return err
			}
			out := newFormatter(cmd, rootOpts)
			if out.JSON() {
				return out.Success(cfg)
			}
			return printConfig(cmd, cfg)
		},
	}
}

func printConfig(cmd *cobra.Command, cfg *config.Config) error {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "algorithm:  %s\n", cfg.Algorithm)
	fmt.Fprintf(w, "log.level:  %s\n", cfg.Log.Level)
	fmt.Fprintf(w, "log.format: %s\n", cfg.Log.Format)
	fmt.Fprintf(w, "store.path: %q\n", cfg.Store.Path)
	fmt.Fprintf(w, "dump.dir:   %q\n", cfg.Dump.Dir)
	_, err := fmt.Fprintf(w, "jobs:       %d\n", cfg.Jobs)
	return err
}
