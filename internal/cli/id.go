package cli

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/qstream/internal/config"
	"github.com/roach88/qstream/internal/core"
)

// IDOptions holds flags for the id command.
type IDOptions struct {
	*RootOptions
	File string // overrides identity_file
}

// IDResult describes the local core identity.
type IDResult struct {
	ID     string `json:"id"`
	File   string `json:"file"`
	Prefix string `json:"prefix"`
	Seed   uint32 `json:"seed"`
	Port   uint16 `json:"port"`
}

// NewIDCommand creates the id command.
func NewIDCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IDOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "id",
		Short: "Show the local core identity",
		Long: `Load the core id from the identity file, generating and saving one
when the file is missing or unreadable.

Examples:
  qstream id
  qstream id --file ./QSCore.cfg --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runID(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.File, "file", "", "identity file (default from config)")

	return cmd
}

func runID(opts *IDOptions, cmd *cobra.Command) error {
	path := opts.File
	if path == "" {
		path = opts.settings().IdentityFile
	}

	cfg, err := core.Bootstrap(config.IdentityFile{Path: path})
	if err != nil {
		out := newFormatter(opts.RootOptions, cmd)
		_ = out.Error(CodeIdentityError, err.Error(), map[string]string{"file": path})
		return WrapExitError(ExitCommandError, "failed to bootstrap identity", err)
	}

	prefix := cfg.Prefix()
	result := IDResult{
		ID:     string(core.FormatIdentity(cfg.ID)),
		File:   path,
		Prefix: hex.EncodeToString(prefix[:]),
		Seed:   cfg.MachineSeed(),
		Port:   cfg.Port(),
	}
	return newFormatter(opts.RootOptions, cmd).Success(result, func(w io.Writer) {
		fmt.Fprintln(w, result.ID)
		if opts.Verbose {
			fmt.Fprintf(w, "  file:   %s\n", result.File)
			fmt.Fprintf(w, "  prefix: %s\n", result.Prefix)
			fmt.Fprintf(w, "  seed:   %08x\n", result.Seed)
			fmt.Fprintf(w, "  port:   %d\n", result.Port)
		}
	})
}
