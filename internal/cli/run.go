package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/splice/internal/harness"
	"github.com/roach88/splice/internal/journal"
	"github.com/roach88/splice/internal/snapshot"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Session  string
}

// RunReport is the JSON payload of the run command.
type RunReport struct {
	Scenario string               `json:"scenario"`
	Pass     bool                 `json:"pass"`
	Steps    []harness.StepResult `json:"steps"`
	Errors   []string             `json:"errors,omitempty"`
	State    map[string]any       `json:"state"`
	Digest   string               `json:"digest"`
	Session  string               `json:"session,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Run one edit script",
		Long: `Run an edit script against a fresh timeline and print the final layout.

With --db, every do, undo and redo is journaled to a SQLite database under
the given session (a random id by default), together with the digest of the
timeline state after each step.

Exit codes:
  0 - Every step behaved as scripted and every assertion held
  1 - A step or assertion failed
  2 - Command error (unreadable script, bad catalog, database error)

Examples:
  splice run ./scripts/rough_cut.yaml
  splice run --db ./history.db --session take-1 ./scripts/rough_cut.yaml
  splice run --format json ./scripts/rough_cut.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScript(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (optional)")
	cmd.Flags().StringVar(&opts.Session, "session", "", "journal session name (default: random)")

	return cmd
}

func runScript(opts *RunOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load script", err)
	}

	var runOpts []harness.Option
	session := ""
	if opts.Database != "" {
		j, err := journal.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				slog.Error("error closing journal", "error", closeErr)
			}
		}()

		session = opts.Session
		if session == "" {
			session = uuid.NewString()
		}
		runOpts = append(runOpts, harness.WithRecorder(journal.NewRecorder(j, session)))
		slog.Info("journaling run", "db", opts.Database, "session", session)
	}

	result, err := harness.Run(ctx, scenario, runOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run script", err)
	}

	if opts.Format == "json" {
		formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
		if err := outputRunJSON(formatter, scenario.Name, session, result); err != nil {
			return err
		}
	} else {
		outputRunText(cmd, session, result)
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("script %s failed", scenario.Name))
	}
	return nil
}

func outputRunJSON(f *OutputFormatter, name, session string, result *harness.Result) error {
	report := RunReport{
		Scenario: name,
		Pass:     result.Pass,
		Steps:    result.Steps,
		Errors:   result.Errors,
		State:    snapshot.FromLayout(result.Layout).Value(),
		Digest:   result.Digest,
		Session:  session,
	}
	if !result.Pass {
		return f.Failure("E_SCRIPT_FAILED", fmt.Sprintf("%d failure(s)", len(result.Errors)), report)
	}
	return f.Success(report)
}

func outputRunText(cmd *cobra.Command, session string, result *harness.Result) {
	w := cmd.OutOrStdout()
	fmt.Fprint(w, result.Rendered)
	fmt.Fprintf(w, "digest %s\n", result.Digest)
	if session != "" {
		fmt.Fprintf(w, "session %s\n", session)
	}
	if result.Pass {
		fmt.Fprintf(w, "✓ %d step(s) ok\n", len(result.Steps))
		return
	}
	fmt.Fprintln(w, "✗ failed")
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}
