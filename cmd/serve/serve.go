// Package serve implements the serve command: discovery, the polling
// loops, scheduled maintenance and the metrics endpoint.
package serve

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Brobert48/nhl-led-scoreboard/internal/cache"
	"github.com/Brobert48/nhl-led-scoreboard/internal/config"
	"github.com/Brobert48/nhl-led-scoreboard/internal/discovery"
	"github.com/Brobert48/nhl-led-scoreboard/internal/events"
	"github.com/Brobert48/nhl-led-scoreboard/internal/httpclient"
	"github.com/Brobert48/nhl-led-scoreboard/internal/logger"
	"github.com/Brobert48/nhl-led-scoreboard/internal/normalize"
	"github.com/Brobert48/nhl-led-scoreboard/internal/poller"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

var metricsAddr string

// Command returns the serve command.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the polling backend",
		Long: `Discovers endpoints for every configured domain, starts the
per-domain polling loops and serves prometheus metrics until
interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9100", "prometheus metrics listen address")

	return cmd
}

func run(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(&cfg.Logger)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	store, err := cache.New(cfg.Cache.BasePath, log)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}

	client := httpclient.New(httpclient.Config{
		MaxConcurrent:  cfg.HTTP.MaxConcurrentRequests,
		MaxPerHost:     cfg.HTTP.MaxPerHost,
		ConnectTimeout: time.Duration(cfg.HTTP.ConnectTimeoutSeconds) * time.Second,
		RequestTimeout: time.Duration(cfg.HTTP.RequestTimeoutSeconds) * time.Second,
	})

	registry := discovery.NewManager(cfg, store, log,
		discovery.NewHTMLScanStrategy(client, log),
	)

	if registry.LoadCached() {
		registry.RevalidateStale(ctx)
	} else {
		registry.DiscoverAll(ctx)
	}

	normalizer := normalize.New(store, log)
	bus := events.NewBus(log)

	p := poller.New(cfg, store, client, normalizer, registry, bus, log)
	p.Start(ctx)

	maintenance := startMaintenance(ctx, cfg, store, registry, log)

	metricsServer := &http.Server{
		Addr:              metricsAddr,
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info("metrics listening", "addr", metricsAddr)
		if serveErr := metricsServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			log.Error("metrics server failed", "error", serveErr.Error())
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	maintenance.Stop()
	p.Stop()
	bus.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if shutdownErr := metricsServer.Shutdown(shutdownCtx); shutdownErr != nil {
		log.Warn("metrics server shutdown", "error", shutdownErr.Error())
	}

	return nil
}

// startMaintenance schedules cache cleanup and endpoint revalidation.
func startMaintenance(
	ctx context.Context,
	cfg *config.Config,
	store *cache.Cache,
	registry *discovery.Manager,
	log logger.Interface,
) *cron.Cron {
	c := cron.New()

	cleanupSpec := fmt.Sprintf("@every %ds", cfg.Cache.CleanupIntervalSeconds)
	if _, err := c.AddFunc(cleanupSpec, func() {
		removed := store.CleanupExpired()
		log.Debug("cache maintenance ran", "removed", removed)
	}); err != nil {
		log.Warn("failed to schedule cache cleanup", "error", err.Error())
	}

	if _, err := c.AddFunc("@hourly", func() {
		checked := registry.RevalidateStale(ctx)
		log.Debug("endpoint revalidation ran", "checked", checked)
	}); err != nil {
		log.Warn("failed to schedule endpoint revalidation", "error", err.Error())
	}

	c.Start()

	return c
}
