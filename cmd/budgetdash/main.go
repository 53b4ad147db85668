package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"budgetdash/internal/adapters"
	"budgetdash/internal/backend"
	"budgetdash/internal/cli"
	"budgetdash/internal/config"
	"budgetdash/internal/controller"
	apphttp "budgetdash/internal/http"
	applog "budgetdash/internal/log"
	"budgetdash/internal/render"
	"budgetdash/internal/render/svg"
	"budgetdash/internal/store"
	"budgetdash/internal/store/remote"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig((*config.Config).Validate)

	budget, err := cfg.Budget()
	if err != nil {
		logger.Error("Invalid budget", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	expenses, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to open expense store", applog.FieldError, err, "source", cfg.Source)
		os.Exit(1)
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("Failed to close expense store", applog.FieldError, err)
		}
	}()

	page := apphttp.NewPage()
	renderer := render.New(page, svg.NewFactory(page, svg.DefaultMountID), cfg.CurrencySymbol, render.WithLogger(logger))
	defer renderer.Close()
	dashboard := controller.New(expenses, renderer, page, budget, controller.WithLogger(logger))

	srv, err := apphttp.NewServer(":"+cfg.Port, dashboard, page, apphttp.Settings{
		CurrencySymbol: cfg.CurrencySymbol,
		Budget:         budget.Format(cfg.CurrencySymbol),
		RequestTimeout: cfg.RemoteTimeout + 5*time.Second,
	}, logger)
	if err != nil {
		logger.Error("Failed to create server", applog.FieldError, err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting budgetdash",
			"port", cfg.Port,
			"source", cfg.Source,
			applog.FieldEndpoint, cfg.Endpoint)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

// openStore returns the remote client, or a backend wired in-process when
// the dashboard runs in local mode.
func openStore(ctx context.Context, cfg *config.Config, logger *applog.Logger) (store.Store, func() error, error) {
	if cfg.Source == config.SourceLocal {
		bc, err := backend.FromAppConfig(cfg)
		if err != nil {
			return nil, nil, err
		}
		res, err := backend.NewFactory(logger).CreateBackend(ctx, bc)
		if err != nil {
			return nil, nil, err
		}
		return adapters.NewLocalStore(res.Backend), res.Close, nil
	}

	client, err := remote.New(cfg.Endpoint,
		remote.WithTimeout(cfg.RemoteTimeout),
		remote.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return client, func() error { return nil }, nil
}
