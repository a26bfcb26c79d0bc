// Package config loads and validates backend configuration from YAML
// files and environment variables via viper.
package config

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/viper"

	"github.com/Brobert48/nhl-led-scoreboard/internal/logger"
)

// SourceConfig describes one upstream provider for a domain.
type SourceConfig struct {
	// Name identifies the source in logs, cache keys and rate limits.
	Name string `mapstructure:"name"`
	// BaseURL is the provider root. A file:// URL marks a local source.
	BaseURL string `mapstructure:"base_url"`
	// Priority orders sources within a domain; lower polls first.
	Priority int `mapstructure:"priority"`
	// Enabled toggles the source without removing its configuration.
	Enabled bool `mapstructure:"enabled"`
	// RequiresAPIKey marks sources that need an API key attached.
	RequiresAPIKey bool `mapstructure:"requires_api_key"`
	// APIKey is the key value when RequiresAPIKey is set.
	APIKey string `mapstructure:"api_key"`
	// TimeoutSeconds bounds a single request to this source.
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	// RateLimitPerMinute caps requests in a rolling 60s window.
	RateLimitPerMinute int `mapstructure:"rate_limit_per_minute"`
}

// PollingConfig holds per-domain base polling intervals in seconds.
type PollingConfig struct {
	LiveGameFast   int `mapstructure:"live_game_fast"`
	LiveGameSlow   int `mapstructure:"live_game_slow"`
	Pregame        int `mapstructure:"pregame"`
	Postgame       int `mapstructure:"postgame"`
	Standings      int `mapstructure:"standings"`
	TeamInfo       int `mapstructure:"team_info"`
	Schedule       int `mapstructure:"schedule"`
	PlayerStats    int `mapstructure:"player_stats"`
	Playoffs       int `mapstructure:"playoffs"`
	SeasonSchedule int `mapstructure:"season_schedule"`
	Offline        int `mapstructure:"offline"`
}

// CacheConfig holds cache location and maintenance settings.
type CacheConfig struct {
	// BasePath is the root directory for the on-disk cache.
	BasePath string `mapstructure:"base_path"`
	// MaxAgeSeconds is the default TTL when a caller does not pass one.
	MaxAgeSeconds int `mapstructure:"max_age_seconds"`
	// CleanupIntervalSeconds is how often expired entries are swept.
	CleanupIntervalSeconds int `mapstructure:"cleanup_interval_seconds"`
}

// HTTPConfig holds shared HTTP client limits.
type HTTPConfig struct {
	// MaxConcurrentRequests is the global in-flight request ceiling.
	MaxConcurrentRequests int `mapstructure:"max_concurrent_requests"`
	// MaxPerHost is the in-flight ceiling per upstream host.
	MaxPerHost int `mapstructure:"max_per_host"`
	// ConnectTimeoutSeconds bounds connection establishment.
	ConnectTimeoutSeconds int `mapstructure:"connect_timeout_seconds"`
	// RequestTimeoutSeconds bounds a whole request.
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// Config is the root backend configuration.
type Config struct {
	// PreferredTeams lists team names used for parameterized endpoints.
	PreferredTeams []string `mapstructure:"preferred_teams"`
	// Timezone is an IANA zone name used for date parameters.
	Timezone string `mapstructure:"timezone"`

	Logger  logger.Config `mapstructure:"logger"`
	Polling PollingConfig `mapstructure:"polling"`
	Cache   CacheConfig   `mapstructure:"cache"`
	HTTP    HTTPConfig    `mapstructure:"http"`

	// Sources maps a domain name to its providers.
	Sources map[string][]SourceConfig `mapstructure:"sources"`
}

// Load reads configuration from the given viper instance, applying
// defaults for anything the file and environment leave unset.
func Load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Cache.BasePath == "" {
		return errors.New("cache.base_path must be specified")
	}

	if c.HTTP.MaxConcurrentRequests <= 0 {
		return errors.New("http.max_concurrent_requests must be positive")
	}

	for domain, sources := range c.Sources {
		for i := range sources {
			src := &sources[i]
			if src.Name == "" {
				return fmt.Errorf("source %d for domain %q has no name", i, domain)
			}
			if src.BaseURL == "" {
				return fmt.Errorf("source %q for domain %q has no base_url", src.Name, domain)
			}
			if src.RequiresAPIKey && src.APIKey == "" {
				return fmt.Errorf("source %q for domain %q requires an api key but none is set", src.Name, domain)
			}
			if src.RateLimitPerMinute < 0 {
				return fmt.Errorf("source %q for domain %q has negative rate limit", src.Name, domain)
			}
		}
	}

	return nil
}

// SourcesForDomain returns the enabled sources for a domain sorted by
// priority, lowest first. Returns nil for unknown domains.
func (c *Config) SourcesForDomain(domain string) []SourceConfig {
	configured, ok := c.Sources[domain]
	if !ok {
		return nil
	}

	enabled := make([]SourceConfig, 0, len(configured))
	for i := range configured {
		if configured[i].Enabled {
			enabled = append(enabled, configured[i])
		}
	}

	sort.SliceStable(enabled, func(i, j int) bool {
		return enabled[i].Priority < enabled[j].Priority
	})

	return enabled
}

// SourceByName looks a source up across all domains.
func (c *Config) SourceByName(name string) (SourceConfig, bool) {
	for _, sources := range c.Sources {
		for i := range sources {
			if sources[i].Name == name {
				return sources[i], true
			}
		}
	}

	return SourceConfig{}, false
}

// Domains returns the configured domain names in sorted order.
func (c *Config) Domains() []string {
	domains := make([]string, 0, len(c.Sources))
	for domain := range c.Sources {
		domains = append(domains, domain)
	}
	sort.Strings(domains)

	return domains
}
