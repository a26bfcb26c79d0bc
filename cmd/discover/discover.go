// Package discover implements the discover command, which runs
// endpoint discovery once and prints the resulting registry.
package discover

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Brobert48/nhl-led-scoreboard/internal/cache"
	"github.com/Brobert48/nhl-led-scoreboard/internal/config"
	"github.com/Brobert48/nhl-led-scoreboard/internal/discovery"
	"github.com/Brobert48/nhl-led-scoreboard/internal/httpclient"
	"github.com/Brobert48/nhl-led-scoreboard/internal/logger"
)

// Command returns the discover command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "discover",
		Short: "Run endpoint discovery and print the registry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd)
		},
	}
}

func run(cmd *cobra.Command) error {
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
	defer client.CloseIdleConnections()

	registry := discovery.NewManager(cfg, store, log,
		discovery.NewHTMLScanStrategy(client, log),
	)

	results := registry.DiscoverAll(cmd.Context())

	encoded, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}

	cmd.Println(string(encoded))

	return nil
}
