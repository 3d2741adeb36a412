package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/snippetbase/internal/transfer"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Output string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a collection as an export document",
		Long: `Write the selected collection, including favorites and usage counts, as
a JSON export document.

Example:
  snippetbase export -o snippets.json
  snippetbase -d cheat_sheets export > sheets.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "file to write (default stdout)")

	return cmd
}

func runExport(cmd *cobra.Command, opts *ExportOptions) error {
	a, err := opts.openApp(cmd, true)
	if err != nil {
		return err
	}
	defer closeApp(a)

	doc := opts.collection(a).Export()
	if opts.Output == "" {
		return writeJSON(cmd.OutOrStdout(), doc)
	}

	var buf bytes.Buffer
	if err := writeJSON(&buf, doc); err != nil {
		return err
	}
	if err := os.WriteFile(opts.Output, buf.Bytes(), 0o644); err != nil {
		return WrapExitError(ExitCommandError, "writing export", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "exported %d entities to %s\n", doc.TotalEntities, opts.Output)
	return nil
}

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	Policy string
}

// ImportResult is the json output of the import command.
type ImportResult struct {
	Policy   transfer.Policy `json:"policy"`
	Imported int             `json:"imported"`
	Total    int             `json:"total"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Apply an export document to a collection",
		Long: `Apply an export document. With the merge policy, entities whose id is
already present are kept as they are and new ones are appended; replace
swaps the whole collection. A document with any invalid entity changes
nothing.

Example:
  snippetbase import backup.json
  snippetbase import --policy replace backup.json
  cat backup.json | snippetbase import -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Policy, "policy", string(transfer.Merge), "merge|replace")

	return cmd
}

func runImport(cmd *cobra.Command, opts *ImportOptions, path string) error {
	policy, err := transfer.ParsePolicy(opts.Policy)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --policy", err)
	}

	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return WrapExitError(ExitCommandError, "opening import file", err)
		}
		defer f.Close()
		r = f
	}
	doc, err := transfer.Decode(r)
	if err != nil {
		return WrapExitError(ExitFailure, "reading import document", err)
	}

	a, err := opts.openApp(cmd, true)
	if err != nil {
		return err
	}
	defer closeApp(a)

	total, err := opts.collection(a).Import(commandContext(cmd), doc, policy)
	if err != nil {
		return WrapExitError(ExitFailure, "import rejected", err)
	}

	res := ImportResult{Policy: policy, Imported: len(doc.Entities), Total: total}
	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		return writeJSON(out, res)
	}
	fmt.Fprintf(out, "imported %d entities (%s), collection now has %d\n", res.Imported, res.Policy, res.Total)
	return nil
}
