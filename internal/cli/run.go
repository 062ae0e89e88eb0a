package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/roach88/qstream/internal/harness"
	"github.com/roach88/qstream/internal/journal"
	"github.com/roach88/qstream/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Journal string // SQLite journal for drained batches; overrides config
	Update  bool   // regenerate golden files
	Filter  string // scenario filter (glob pattern)
	Trace   bool   // print drain spans to stderr
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name    string   `json:"name"`
	Pass    bool     `json:"pass"`
	Batches int      `json:"batches"`
	Golden  string   `json:"golden,omitempty"` // "match", "updated", or "" when absent
	Errors  []string `json:"errors,omitempty"`
}

// RunResult holds the overall result.
type RunResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario-file-or-dir>",
		Short: "Run registry scenarios",
		Long: `Run YAML scenarios against a fresh registry and check their assertions.

When golden/<name>.golden exists next to a scenario, the final snapshot
must match it byte for byte. With --journal, every drained change batch
is also written to a SQLite journal. Sequence numbers then continue from
the journal's last batch, so golden files are not compared.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  qstream run ./scenarios
  qstream run ./scenarios --filter "forward-*"
  qstream run ./scenarios/mirror.yaml --journal ./qstream.db
  qstream run ./scenarios --update
  qstream run ./scenarios --trace`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "SQLite journal path (default from config)")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "print drain spans to stderr")

	return cmd
}

func runScenarios(opts *RunOptions, path string, cmd *cobra.Command) error {
	files, err := findScenarioFiles(path, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	var runOpts []harness.Option
	journaled := false
	if dbPath := opts.journalPath(); dbPath != "" {
		st, err := store.Open(dbPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer st.Close()
		last, err := st.LastSeq(cmd.Context())
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read journal", err)
		}
		runOpts = append(runOpts, harness.WithSink(st), harness.WithClock(journal.NewClockAt(last)))
		journaled = true
	}
	if opts.Trace {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(cmd.ErrOrStderr()), stdouttrace.WithPrettyPrint())
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create span exporter", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
		defer func() { _ = tp.Shutdown(context.Background()) }()
		runOpts = append(runOpts, harness.WithTracer(tp.Tracer("qstream/run")))
	}
	runOpts = append(runOpts, harness.WithLogger(slog.Default()))

	out := newFormatter(opts.RootOptions, cmd)
	result := RunResult{Scenarios: make([]ScenarioResult, 0, len(files)), Total: len(files)}
	for _, file := range files {
		out.VerboseLog("running %s", file)
		sr := runScenario(opts, file, journaled, runOpts)
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	render := func(w io.Writer) {
		if len(files) == 0 {
			fmt.Fprintln(w, "No scenarios found.")
			return
		}
		for _, sr := range result.Scenarios {
			mark := "PASS"
			if !sr.Pass {
				mark = "FAIL"
			}
			suffix := ""
			if sr.Golden == "updated" {
				suffix = " (golden updated)"
			}
			fmt.Fprintf(w, "%s %s%s\n", mark, sr.Name, suffix)
			for _, e := range sr.Errors {
				fmt.Fprintf(w, "  %s\n", strings.ReplaceAll(e, "\n", "\n  "))
			}
		}
		fmt.Fprintf(w, "\nSummary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	}

	if result.Failed > 0 {
		msg := fmt.Sprintf("%d scenario(s) failed", result.Failed)
		if err := out.Failure(CodeScenarioError, msg, result, render); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}
	return out.Success(result, render)
}

func (o *RunOptions) journalPath() string {
	if o.Journal != "" {
		return o.Journal
	}
	return o.settings().Journal
}

// runScenario executes one scenario file and checks its golden snapshot.
func runScenario(opts *RunOptions, file string, journaled bool, runOpts []harness.Option) ScenarioResult {
	name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	fail := func(format string, args ...any) ScenarioResult {
		return ScenarioResult{Name: name, Errors: []string{fmt.Sprintf(format, args...)}}
	}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return fail("failed to load scenario: %v", err)
	}
	name = scenario.Name

	result, err := harness.Run(scenario, runOpts...)
	if err != nil {
		return fail("execution failed: %v", err)
	}
	sr := ScenarioResult{Name: name, Pass: result.Pass, Batches: len(result.Batches), Errors: result.Errors}
	if journaled {
		return sr
	}

	snapshot, err := harness.SnapshotJSON(result)
	if err != nil {
		return fail("failed to marshal snapshot: %v", err)
	}
	golden := goldenFilePath(file)

	if opts.Update {
		if err := os.MkdirAll(filepath.Dir(golden), 0o755); err != nil {
			return fail("failed to create golden directory: %v", err)
		}
		if err := os.WriteFile(golden, snapshot, 0o644); err != nil {
			return fail("failed to write golden file: %v", err)
		}
		sr.Golden = "updated"
		return sr
	}

	want, err := os.ReadFile(golden)
	if os.IsNotExist(err) {
		return sr
	}
	if err != nil {
		return fail("failed to read golden file: %v", err)
	}
	if !bytes.Equal(want, snapshot) {
		sr.Pass = false
		sr.Errors = append(sr.Errors, "snapshot does not match golden file (run with --update to regenerate)")
		return sr
	}
	sr.Golden = "match"
	return sr
}

// findScenarioFiles returns path itself when it is a file, or the YAML
// files under it matching filter.
func findScenarioFiles(path, filter string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if p != path && info.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}

		ext := filepath.Ext(p)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			matched, err := filepath.Match(filter, strings.TrimSuffix(filepath.Base(p), ext))
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, p)
		return nil
	})
	return files, err
}

// goldenFilePath returns the golden file for a scenario file.
func goldenFilePath(scenarioFile string) string {
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(scenarioFile), "golden", name+".golden")
}
