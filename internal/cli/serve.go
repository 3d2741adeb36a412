package cli

import (
	"github.com/spf13/cobra"

	"github.com/sakif/snippetbase/internal/server"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Host string
	Port int
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Long: `Start the HTTP API over every collection. Collections load in the
background; reads wait for them and /healthz reports progress.

Example:
  snippetbase serve --config ./config.yaml
  snippetbase serve --port 9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Host, "host", "", "listen host (overrides server.host)")
	cmd.Flags().IntVarP(&opts.Port, "port", "p", 0, "listen port (overrides server.port)")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	a, err := opts.openApp(cmd, false)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("host") {
		a.Config.Server.Host = opts.Host
	}
	if cmd.Flags().Changed("port") {
		a.Config.Server.Port = opts.Port
	}
	// Start closes the app on the way out.
	if err := server.New(a).Start(); err != nil {
		return WrapExitError(ExitFailure, "serving", err)
	}
	return nil
}
