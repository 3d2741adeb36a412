package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sakif/snippetbase/internal/query"
)

// SearchOptions holds flags for the search command.
type SearchOptions struct {
	*RootOptions
	Category   string
	Collection string
	Sort       string
	Page       int
	PerPage    int
}

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SearchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "search [terms...]",
		Short: "Search and list a collection",
		Long: `Search a collection by relevance, or list it in sort order when no terms
are given. Filters and pagination work the same as the API.

Example:
  snippetbase search broadcast join
  snippetbase search --category pyspark --sort newest
  snippetbase -d cheat_sheets search git --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, opts, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVar(&opts.Category, "category", "", "only this category")
	cmd.Flags().StringVar(&opts.Collection, "collection", "", "only this tag collection")
	cmd.Flags().StringVar(&opts.Sort, "sort", string(query.SortMostUsed), "mostUsed|newest|alphabetical (ignored when searching)")
	cmd.Flags().IntVar(&opts.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&opts.PerPage, "per-page", query.DefaultPerPage, "results per page")

	return cmd
}

func runSearch(cmd *cobra.Command, opts *SearchOptions, text string) error {
	a, err := opts.openApp(cmd, true)
	if err != nil {
		return err
	}
	defer closeApp(a)

	res, err := a.Facade.Apply(opts.collection(a).Snapshot(), query.Options{
		Text:       text,
		Category:   opts.Category,
		Collection: opts.Collection,
		Sort:       query.Sort(opts.Sort),
		Page:       opts.Page,
		PerPage:    opts.PerPage,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid search", err)
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		return writeJSON(out, res)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tUSED\tFAV")
	for _, e := range res.Items {
		fav := ""
		if e.IsFavorite {
			fav = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", e.ID, e.Title, e.Category, e.TimesUsed, fav)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "page %d of %d (%d results)\n", res.Page, max(res.Pages, 1), res.Total)
	return nil
}
