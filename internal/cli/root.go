package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/qstream/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	// Settings is populated before any subcommand runs. Commands built
	// without a root fall back to config.Defaults.
	Settings *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the qstream CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "qstream",
		Short: "qstream - object identity and replication registry",
		Long: `Tools for the qstream object registry.

Bootstrap the local core identity, compile class declarations, run
registry scenarios, and inspect the change journal.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			opts.Settings = &cfg
			return opts.configureLogging(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ./"+config.FileName+")")

	cmd.AddCommand(NewIDCommand(opts))
	cmd.AddCommand(NewClassesCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewJournalCommand(opts))

	return cmd
}

// settings returns the loaded config, or the defaults.
func (o *RootOptions) settings() config.Config {
	if o.Settings != nil {
		return *o.Settings
	}
	return config.Defaults()
}

// configureLogging installs the process logger. Logs go to stderr so that
// JSON output on stdout stays parseable.
func (o *RootOptions) configureLogging(cmd *cobra.Command) error {
	level, err := o.settings().Level()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid log level", err)
	}
	if o.Verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
	return nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
