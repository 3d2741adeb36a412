package cli

import (
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"
)

// NewStatsCommand creates the stats command.
func NewStatsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show collection counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.openApp(cmd, true)
			if err != nil {
				return err
			}
			defer closeApp(a)

			stats := a.Facade.Stats(rootOpts.collection(a).Snapshot())
			out := cmd.OutOrStdout()
			if rootOpts.Format == "json" {
				return writeJSON(out, stats)
			}
			fmt.Fprintf(out, "entities:   %d\n", stats.Total)
			fmt.Fprintf(out, "favorites:  %d\n", stats.Favorites)
			fmt.Fprintf(out, "copies:     %d\n", stats.TotalCopies)
			fmt.Fprintf(out, "views:      %d\n", stats.TotalViews)
			for _, cat := range slices.Sorted(maps.Keys(stats.Categories)) {
				fmt.Fprintf(out, "  %-12s %d\n", cat, stats.Categories[cat])
			}
			return nil
		},
	}
}
