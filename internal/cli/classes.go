package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/qstream/internal/compiler"
	"github.com/roach88/qstream/internal/factory"
	"github.com/roach88/qstream/internal/ir"
)

// ClassesOptions holds flags for the classes command.
type ClassesOptions struct {
	*RootOptions
	Watch bool
}

// ClassesResult lists the classes compiled from a directory.
type ClassesResult struct {
	Dir       string         `json:"dir"`
	FileCount int            `json:"file_count"`
	Classes   []ir.ClassSpec `json:"classes"`
}

// NewClassesCommand creates the classes command.
func NewClassesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClassesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "classes <dir>",
		Short: "Compile and check class declarations",
		Long: `Compile the CUE class declarations in a directory and register them
with a factory, reporting every error found.

With --watch, the directory is recompiled whenever a CUE file changes
until interrupted.

Exit codes:
  0 - All classes valid
  1 - One or more classes invalid
  2 - Command error (directory not found, etc.)

Examples:
  qstream classes ./classes
  qstream classes ./classes --watch
  qstream classes ./classes --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Watch {
				return watchClasses(cmd.Context(), opts, args[0], cmd)
			}
			return checkClasses(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "recompile on change")

	return cmd
}

func checkClasses(opts *ClassesOptions, dir string, cmd *cobra.Command) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("classes directory not found: %s", dir))
	}

	out := newFormatter(opts.RootOptions, cmd)
	result, errs := compileDir(dir)
	if len(errs) > 0 {
		messages := make([]string, len(errs))
		for i, err := range errs {
			messages[i] = err.Error()
		}
		_ = out.Error(CodeClassError, fmt.Sprintf("%d class error(s)", len(errs)), messages)
		if !out.JSON() {
			for _, m := range messages {
				fmt.Fprintf(out.Writer, "  %s\n", m)
			}
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d class error(s)", len(errs)))
	}

	return out.Success(result, func(w io.Writer) {
		for _, c := range result.Classes {
			fmt.Fprintf(w, "%s%s\n", c.Name, baseSuffix(c.Base))
			if opts.Verbose {
				for _, f := range c.Fields {
					fmt.Fprintf(w, "  %s: %s\n", f.Name, f.Kind)
				}
			}
		}
		fmt.Fprintf(w, "\n%d class(es) in %d file(s)\n", len(result.Classes), result.FileCount)
	})
}

// compileDir compiles dir and registers the classes with a scratch
// factory, so unknown bases and field conflicts are reported too.
func compileDir(dir string) (ClassesResult, []error) {
	loaded, errs := compiler.Load(dir, compiler.LoadModeCollectAll)
	if len(errs) > 0 {
		return ClassesResult{}, errs
	}
	if err := factory.New().Register(loaded.Classes...); err != nil {
		return ClassesResult{}, []error{err}
	}
	return ClassesResult{Dir: dir, FileCount: loaded.FileCount, Classes: loaded.Classes}, nil
}

func watchClasses(ctx context.Context, opts *ClassesOptions, dir string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("classes directory not found: %s", dir))
	}

	w, err := compiler.NewWatcher(dir, 0)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to watch classes", err)
	}
	defer w.Stop()

	changes, err := w.Start()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to watch classes", err)
	}

	report := func() {
		if err := checkClasses(opts, dir, cmd); err != nil {
			slog.Debug("classes invalid", "dir", dir, "error", err)
		}
	}
	report()
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			slog.Info("classes changed, recompiling", "dir", dir)
			report()
		}
	}
}

func baseSuffix(base string) string {
	if base == "" {
		return ""
	}
	return " : " + strings.TrimSpace(base)
}
