// Package cli implements the snippetbase command line.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/sakif/snippetbase/internal/app"
	"github.com/sakif/snippetbase/internal/model"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Format     string // "json" | "text"
	DomainName string

	domain     model.Domain
	appOptions []app.Option
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command. appOpts are passed to every
// app.New, which lets tests swap the engine or seed.
func NewRootCommand(appOpts ...app.Option) *cobra.Command {
	opts := &RootOptions{appOptions: appOpts}

	cmd := &cobra.Command{
		Use:   "snippetbase",
		Short: "Local-first snippet and cheat sheet browser",
		Long: `snippetbase keeps a curated library of code snippets and cheat sheets
alongside your own additions, favorites and usage counts, and serves them
over a small JSON API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			d, err := model.ParseDomain(opts.DomainName)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --domain", err)
			}
			opts.domain = d
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default $CONFIG_PATH or ./config.yaml)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.DomainName, "domain", "d", string(model.Snippets), "collection to operate on (snippets|cheat_sheets)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewSearchCommand(opts))
	cmd.AddCommand(NewStatsCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}
