package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/qstream/internal/ir"
	"github.com/roach88/qstream/internal/store"
)

// JournalOptions holds flags for the journal command.
type JournalOptions struct {
	*RootOptions
	Database string
	Repo     string // optional - only batches of this repository key
	Key      string // optional - change history of one entity
	Batch    string // optional - a single batch by id
}

// BatchSummary is one line of the journal listing.
type BatchSummary struct {
	ID      string `json:"id"`
	Repo    string `json:"repo"`
	Seq     int64  `json:"seq"`
	Added   int    `json:"added"`
	Updated int    `json:"updated"`
	Deleted int    `json:"deleted"`
}

// JournalResult holds the batch listing.
type JournalResult struct {
	Repos   []string       `json:"repos"`
	LastSeq int64          `json:"last_seq"`
	Batches []BatchSummary `json:"batches"`
}

// HistoryItem is one change of an entity.
type HistoryItem struct {
	Seq    int64  `json:"seq"`
	Batch  string `json:"batch"`
	Repo   string `json:"repo"`
	Op     ir.Op  `json:"op"`
	Type   string `json:"type,omitempty"`
	Fields ir.Map `json:"fields,omitempty"`
}

// NewJournalCommand creates the journal command.
func NewJournalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &JournalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Inspect the change journal",
		Long: `Inspect the change batches written to a SQLite journal.

Without filters, lists every batch in sequence order with its entry
counts. --key shows the history of one entity across repositories.
--batch prints a single batch with its entries.

Examples:
  qstream journal --db ./qstream.db
  qstream journal --db ./qstream.db --repo 11223344-67e8-0001-0000-000000000000
  qstream journal --db ./qstream.db --key 11223344-67e8-0000-0000-000000000001
  qstream journal --db ./qstream.db --batch <id> --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJournal(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (default from config)")
	cmd.Flags().StringVar(&opts.Repo, "repo", "", "filter to one repository key")
	cmd.Flags().StringVar(&opts.Key, "key", "", "show the history of one entity key")
	cmd.Flags().StringVar(&opts.Batch, "batch", "", "show one batch by id")
	cmd.MarkFlagsMutuallyExclusive("repo", "key", "batch")

	return cmd
}

func runJournal(opts *JournalOptions, cmd *cobra.Command) error {
	path := opts.Database
	if path == "" {
		path = opts.settings().Journal
	}
	if path == "" {
		return NewExitError(ExitCommandError, "no journal: pass --db or set journal in config")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("journal not found: %s", path))
	}

	st, err := store.Open(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer st.Close()

	out := newFormatter(opts.RootOptions, cmd)
	switch {
	case opts.Key != "":
		return showHistory(opts, st, out, cmd)
	case opts.Batch != "":
		return showBatch(opts, st, out, cmd)
	}
	return listBatches(opts, st, out, cmd)
}

func listBatches(opts *JournalOptions, st *store.Store, out *OutputFormatter, cmd *cobra.Command) error {
	ctx := cmd.Context()

	var batches []ir.ChangeBatch
	var err error
	if opts.Repo != "" {
		batches, err = st.ReadBatches(ctx, opts.Repo)
	} else {
		batches, err = st.ReadAllBatches(ctx)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read batches", err)
	}
	repos, err := st.Repos(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read repositories", err)
	}
	last, err := st.LastSeq(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read last seq", err)
	}

	result := JournalResult{Repos: repos, LastSeq: last, Batches: make([]BatchSummary, len(batches))}
	for i, b := range batches {
		added, updated, deleted := b.Counts()
		result.Batches[i] = BatchSummary{ID: b.ID, Repo: b.Repo, Seq: b.Seq, Added: added, Updated: updated, Deleted: deleted}
	}

	return out.Success(result, func(w io.Writer) {
		if len(result.Batches) == 0 {
			fmt.Fprintln(w, "No batches.")
			return
		}
		for _, b := range result.Batches {
			fmt.Fprintf(w, "%6d  %s  +%d ~%d -%d  %s\n", b.Seq, b.Repo, b.Added, b.Updated, b.Deleted, shortID(b.ID))
		}
		fmt.Fprintf(w, "\n%d batch(es) across %d repositor(ies)\n", len(result.Batches), len(result.Repos))
	})
}

func showHistory(opts *JournalOptions, st *store.Store, out *OutputFormatter, cmd *cobra.Command) error {
	history, err := st.History(cmd.Context(), opts.Key)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read history", err)
	}

	items := make([]HistoryItem, len(history))
	for i, h := range history {
		items[i] = HistoryItem{
			Seq:    h.Seq,
			Batch:  h.BatchID,
			Repo:   h.Repo,
			Op:     h.Entry.Op,
			Type:   h.Entry.Type,
			Fields: h.Entry.Fields,
		}
	}

	return out.Success(items, func(w io.Writer) {
		if len(items) == 0 {
			fmt.Fprintf(w, "No changes recorded for %s.\n", opts.Key)
			return
		}
		for _, it := range items {
			fmt.Fprintf(w, "%6d  %-7s  %s", it.Seq, it.Op, it.Repo)
			if it.Fields != nil {
				data, err := ir.MarshalCanonical(it.Fields)
				if err == nil {
					fmt.Fprintf(w, "  %s", data)
				}
			}
			fmt.Fprintln(w)
		}
	})
}

func showBatch(opts *JournalOptions, st *store.Store, out *OutputFormatter, cmd *cobra.Command) error {
	batch, err := st.ReadBatch(cmd.Context(), opts.Batch)
	if errors.Is(err, store.ErrNotFound) {
		_ = out.Error(CodeJournalError, "batch not found", map[string]string{"id": opts.Batch})
		return WrapExitError(ExitFailure, "batch not found", err)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read batch", err)
	}

	return out.Success(batch, func(w io.Writer) {
		fmt.Fprintf(w, "batch %s\n  repo: %s\n  seq:  %d\n", batch.ID, batch.Repo, batch.Seq)
		for _, e := range batch.Entries {
			fmt.Fprintf(w, "  %-7s %s %s\n", e.Op, e.Key, e.Type)
		}
	})
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
