package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/splice/internal/bin"
	"github.com/roach88/splice/internal/media"
)

// AssetEntry describes one catalog asset after defaults are applied.
type AssetEntry struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Length  int    `json:"length"`
	Limited bool   `json:"limited"`
	Audio   bool   `json:"audio"`
	Video   bool   `json:"video"`
}

// NewAssetsCommand creates the assets command.
func NewAssetsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assets <catalog.cue>",
		Short: "List the assets of a CUE catalog",
		Long: `Load a CUE asset catalog, build every asset and list them.

Example:
  splice assets ./scripts/assets.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAssets(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runAssets(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	specs, err := bin.LoadCatalog(path)
	if err != nil {
		_ = formatter.Error("E_CATALOG", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load catalog", err)
	}
	formatter.VerboseLog("Loaded %d asset(s) from %s", len(specs), path)

	project, err := bin.BuildProject(media.NewSimulator(), specs)
	if err != nil {
		_ = formatter.Error("E_CATALOG", err.Error(), nil)
		return WrapExitError(ExitFailure, "invalid catalog", err)
	}

	assets := project.Assets()
	entries := make([]AssetEntry, len(assets))
	for i, a := range assets {
		entries[i] = AssetEntry{
			ID:      a.ID(),
			Name:    a.Name(),
			Length:  a.Length(),
			Limited: a.HasLimitedDuration(),
			Audio:   a.AudioIndex() >= 0,
			Video:   a.VideoIndex() >= 0,
		}
	}

	if opts.Format == "json" {
		return formatter.Success(entries)
	}

	w := cmd.OutOrStdout()
	for _, e := range entries {
		flags := ""
		if !e.Limited {
			flags += " endless"
		}
		if !e.Audio {
			flags += " no-audio"
		}
		if !e.Video {
			flags += " no-video"
		}
		fmt.Fprintf(w, "%-12s %-20s %6d%s\n", e.ID, e.Name, e.Length, flags)
	}
	return nil
}
