package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/snippetbase/internal/auth"
)

// TokenOptions holds flags for the token command.
type TokenOptions struct {
	*RootOptions
	Subject string
	TTL     time.Duration
}

// NewTokenCommand creates the token command.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TokenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an API token for the mutating endpoints",
		Long: `Print a signed API token. Requires auth.token_secret in the config.
Send it as "Authorization: Bearer <token>".

Example:
  snippetbase token
  snippetbase token --ttl 24h --subject ci`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToken(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Subject, "subject", auth.DefaultSubject, "token subject")
	cmd.Flags().DurationVar(&opts.TTL, "ttl", 0, "lifetime (default auth.token_ttl)")

	return cmd
}

func runToken(cmd *cobra.Command, opts *TokenOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Auth.Enabled() {
		return NewExitError(ExitCommandError, "auth is disabled: set auth.token_secret or AUTH_TOKEN_SECRET")
	}
	tokens, err := auth.NewTokenService(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return WrapExitError(ExitCommandError, "creating token service", err)
	}

	ttl := cfg.Auth.TokenTTL
	if opts.TTL > 0 {
		ttl = opts.TTL
	}
	token, err := tokens.GenerateWithDuration(opts.Subject, ttl)
	if err != nil {
		return WrapExitError(ExitFailure, "signing token", err)
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		return writeJSON(out, map[string]any{
			"token":     token,
			"subject":   opts.Subject,
			"expiresIn": ttl.String(),
		})
	}
	fmt.Fprintln(out, token)
	return nil
}
