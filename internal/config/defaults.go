package config

import "github.com/spf13/viper"

// Default interval and limit values, matching the cadences the NHL and
// ESPN upstreams tolerate.
const (
	DefaultLiveGameFast = 3
	DefaultLiveGameSlow = 20
	DefaultPregame      = 60
	DefaultPostgame     = 300
	DefaultStandings    = 1800
	DefaultTeamInfo     = 3600
	DefaultSchedule     = 3600
	DefaultPlayerStats  = 900
	DefaultPlayoffs     = 3600
	DefaultSeasonSched  = 86400
	DefaultOffline      = 14400

	DefaultMaxAgeSeconds   = 3600
	DefaultCleanupInterval = 3600

	DefaultMaxConcurrentRequests = 5
	DefaultMaxPerHost            = 3
	DefaultConnectTimeout        = 10
	DefaultRequestTimeout        = 30

	DefaultSourceTimeout   = 10
	DefaultRateLimitPerMin = 60
)

// setDefaults registers production-safe defaults on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("preferred_teams", []string{})
	v.SetDefault("timezone", "America/New_York")

	v.SetDefault("logger", map[string]any{
		"level":       "info",
		"encoding":    "console",
		"development": false,
	})

	v.SetDefault("polling", map[string]any{
		"live_game_fast":  DefaultLiveGameFast,
		"live_game_slow":  DefaultLiveGameSlow,
		"pregame":         DefaultPregame,
		"postgame":        DefaultPostgame,
		"standings":       DefaultStandings,
		"team_info":       DefaultTeamInfo,
		"schedule":        DefaultSchedule,
		"player_stats":    DefaultPlayerStats,
		"playoffs":        DefaultPlayoffs,
		"season_schedule": DefaultSeasonSched,
		"offline":         DefaultOffline,
	})

	v.SetDefault("cache", map[string]any{
		"base_path":                "/tmp/scoreboard-cache",
		"max_age_seconds":          DefaultMaxAgeSeconds,
		"cleanup_interval_seconds": DefaultCleanupInterval,
	})

	v.SetDefault("http", map[string]any{
		"max_concurrent_requests": DefaultMaxConcurrentRequests,
		"max_per_host":            DefaultMaxPerHost,
		"connect_timeout_seconds": DefaultConnectTimeout,
		"request_timeout_seconds": DefaultRequestTimeout,
	})

	v.SetDefault("sources", defaultSources())
}

// defaultSources returns the stock provider registry used when no
// sources are configured. The NHL official API is primary everywhere;
// the legacy stats API, ESPN and a local backup file serve as
// fallbacks. Playoffs and season_schedule are supported when a source
// is configured for them but ship without defaults.
func defaultSources() map[string]any {
	nhlOfficial := func(name string) map[string]any {
		return map[string]any{
			"name":                  name,
			"base_url":              "https://api-web.nhle.com/v1",
			"priority":              1,
			"enabled":               true,
			"timeout_seconds":       DefaultSourceTimeout,
			"rate_limit_per_minute": DefaultRateLimitPerMin,
		}
	}

	nhlLegacy := func(priority int) map[string]any {
		return map[string]any{
			"name":                  "nhl_legacy",
			"base_url":              "https://api.nhle.com/stats/rest/en",
			"priority":              priority,
			"enabled":               true,
			"timeout_seconds":       DefaultSourceTimeout,
			"rate_limit_per_minute": DefaultRateLimitPerMin,
		}
	}

	espn := func(baseURL string, priority int) map[string]any {
		return map[string]any{
			"name":                  "espn",
			"base_url":              baseURL,
			"priority":              priority,
			"enabled":               true,
			"timeout_seconds":       15,
			"rate_limit_per_minute": DefaultRateLimitPerMin,
		}
	}

	return map[string]any{
		"live_game": []map[string]any{
			nhlOfficial("nhl_official"),
			nhlLegacy(2),
			espn("https://site.api.espn.com/apis/site/v2/sports/hockey/nhl", 3),
		},
		"standings": []map[string]any{
			nhlOfficial("nhl_official"),
			espn("https://site.api.espn.com/apis/v2/sports/hockey/nhl", 2),
		},
		"team_info": []map[string]any{
			nhlOfficial("nhl_official"),
			{
				"name":                  "backup_json",
				"base_url":              "file://data/backup_teams.json",
				"priority":              99,
				"enabled":               true,
				"timeout_seconds":       5,
				"rate_limit_per_minute": DefaultRateLimitPerMin,
			},
		},
		"schedule": []map[string]any{
			nhlOfficial("nhl_official"),
			espn("https://site.api.espn.com/apis/v2/sports/hockey/nhl", 2),
		},
		"player_stats": []map[string]any{
			nhlOfficial("nhl_official"),
		},
	}
}
