package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/splice/internal/journal"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Session  string
}

// HistoryEntry is one journaled event in command output.
type HistoryEntry struct {
	Seq         int64  `json:"seq"`
	Kind        string `json:"kind"`
	Label       string `json:"label"`
	ActionID    string `json:"action_id"`
	StateDigest string `json:"state_digest,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled history events",
		Long: `List the do, undo and redo events stored in a journal, oldest first.

Examples:
  splice history --db ./history.db
  splice history --db ./history.db --session take-1 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "only show this session")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// journal.Open creates missing files; a typo should not leave one behind.
	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "journal not found", err)
	}
	j, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer func() {
		if closeErr := j.Close(); closeErr != nil {
			slog.Error("error closing journal", "error", closeErr)
		}
	}()

	events, err := j.ListEvents(ctx, opts.Session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read journal", err)
	}

	entries := make([]HistoryEntry, len(events))
	for i, e := range events {
		entries[i] = HistoryEntry{
			Seq:         e.Seq,
			Kind:        e.Kind,
			Label:       e.Label,
			ActionID:    e.ActionID,
			StateDigest: e.StateDigest,
		}
	}

	if opts.Format == "json" {
		return newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr()).Success(entries)
	}

	w := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(w, "No history.")
		return nil
	}
	for _, e := range entries {
		digest := "-"
		if e.StateDigest != "" {
			digest = shortDigest(e.StateDigest)
		}
		fmt.Fprintf(w, "%4d  %-4s  %-14s  %s  %s\n", e.Seq, e.Kind, e.Label, e.ActionID, digest)
	}
	return nil
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
