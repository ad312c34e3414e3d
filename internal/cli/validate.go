package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/splice/internal/bin"
	"github.com/roach88/splice/internal/harness"
)

// ValidationResult holds validation results for one script.
type ValidationResult struct {
	Path   string `json:"path"`
	Name   string `json:"name,omitempty"`
	Valid  bool   `json:"valid"`
	Steps  int    `json:"steps"`
	Assets int    `json:"assets"`
	Error  string `json:"error,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <script>...",
		Short: "Check edit scripts without running them",
		Long: `Parse edit scripts and their asset catalogs without running them.

Reports unknown fields, unknown operations, steps missing a required field
and catalog errors. Faster than run for authoring feedback.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	results := make([]ValidationResult, 0, len(paths))
	invalid := 0
	for _, path := range paths {
		formatter.VerboseLog("Validating %s", path)
		r := validateScript(path)
		if !r.Valid {
			invalid++
		}
		results = append(results, r)
	}

	if opts.Format == "json" {
		var err error
		if invalid > 0 {
			err = formatter.Failure("E_INVALID_SCRIPT", fmt.Sprintf("%d invalid script(s)", invalid), results)
		} else {
			err = formatter.Success(results)
		}
		if err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for _, r := range results {
			if r.Valid {
				fmt.Fprintf(w, "✓ %s (%d steps, %d assets)\n", r.Path, r.Steps, r.Assets)
			} else {
				fmt.Fprintf(w, "✗ %s\n  %s\n", r.Path, r.Error)
			}
		}
	}

	if invalid > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d invalid script(s)", invalid))
	}
	return nil
}

func validateScript(path string) ValidationResult {
	r := ValidationResult{Path: path}
	s, err := harness.LoadScenario(path)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.Name = s.Name
	r.Steps = len(s.Steps)
	r.Assets = len(s.Assets)

	if s.Catalog != "" {
		specs, err := bin.LoadCatalog(s.Catalog)
		if err != nil {
			r.Error = fmt.Sprintf("catalog: %v", err)
			return r
		}
		r.Assets += len(specs)
	}
	r.Valid = true
	return r
}
