package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/snippetbase/internal/app"
	"github.com/sakif/snippetbase/internal/collection"
	"github.com/sakif/snippetbase/internal/config"
)

const (
	loadTimeout  = 30 * time.Second
	closeTimeout = 10 * time.Second
)

func (o *RootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "loading config", err)
	}
	return cfg, nil
}

// openApp loads config, wires the app and starts its collections. With
// settle set it also waits for every collection to finish loading, so
// one-shot commands see the reconciled data.
func (o *RootOptions) openApp(cmd *cobra.Command, settle bool) (*app.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := app.NewLogger(cfg.Log, cmd.ErrOrStderr())
	a, err := app.New(cfg, logger, o.appOptions...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "starting", err)
	}

	ctx := commandContext(cmd)
	a.Start(ctx)
	if !settle {
		return a, nil
	}

	waitCtx, cancel := context.WithTimeout(ctx, loadTimeout)
	defer cancel()
	if err := a.WaitSettled(waitCtx); err != nil {
		closeApp(a)
		return nil, WrapExitError(ExitFailure, "waiting for collections to load", err)
	}
	return a, nil
}

// collection returns the collection selected by --domain.
func (o *RootOptions) collection(a *app.App) *collection.Collection {
	return a.Collection(o.domain)
}

func closeApp(a *app.App) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		a.Logger.Error("closing", slog.String("error", err.Error()))
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
