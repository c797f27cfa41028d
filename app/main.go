package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"example.com/storefront-cart/app/internal/config"
	"example.com/storefront-cart/app/internal/infra/notify"
	"example.com/storefront-cart/app/internal/infra/security"
	httpiface "example.com/storefront-cart/app/internal/interface/http"
	"example.com/storefront-cart/app/internal/obs"
	cartuc "example.com/storefront-cart/app/internal/usecase/cart"
	sessionuc "example.com/storefront-cart/app/internal/usecase/session"
)

func main() {
	cfg := config.Load()
	logger := obs.New(obs.Options{Service: "storefront-cart", Env: cfg.AppEnv, Level: cfg.LogLevel})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("service_failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	b := newBackends(cfg, logger)
	defer b.Close()

	repo, err := b.cartRepository(ctx)
	if err != nil {
		return err
	}
	catalog, stock, err := b.catalog(ctx)
	if err != nil {
		return err
	}

	carts := cartuc.NewRegistry(cfg.CartNamespace, cartuc.Dependencies{
		Catalog:    catalog,
		Stock:      stock,
		Repository: repo,
		Notifier:   notify.Request{},
		Logger:     logger,
	})
	go carts.Run(ctx, cfg.CartSweepInterval, cfg.CartIdleTTL)

	sessionSvc := sessionuc.NewService(security.NewJWTService(cfg.JWTSecret, cfg.JWTTTL))

	api := httpiface.NewAPI(httpiface.Dependencies{
		SessionService: sessionSvc,
		Carts:          carts,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("http_listen", "addr", srv.Addr, "cart_backend", cfg.CartBackend, "catalog_backend", cfg.CatalogBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutdown_signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	logger.Info("service_stopped")
	return nil
}
