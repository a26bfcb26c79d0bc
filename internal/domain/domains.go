// Package domain defines the data domains the backend tracks and the
// canonical record types produced by normalization.
package domain

import "time"

// Domain names. Each domain has its own canonical schema, polling
// cadence and cache TTL.
const (
	LiveGame       = "live_game"
	Standings      = "standings"
	TeamInfo       = "team_info"
	Schedule       = "schedule"
	PlayerStats    = "player_stats"
	Playoffs       = "playoffs"
	SeasonSchedule = "season_schedule"
)

// All lists every known domain.
func All() []string {
	return []string{LiveGame, Standings, TeamInfo, Schedule, PlayerStats, Playoffs, SeasonSchedule}
}

// Cache TTLs per domain. Live data goes stale in seconds; team info is
// effectively static. Playoffs and season dates use the default.
const (
	liveGameTTL    = 30 * time.Second
	standingsTTL   = time.Hour
	teamInfoTTL    = 24 * time.Hour
	scheduleTTL    = time.Hour
	playerStatsTTL = 30 * time.Minute
	defaultTTL     = time.Hour
)

// CacheTTL returns the response cache TTL for a domain.
func CacheTTL(domain string) time.Duration {
	switch domain {
	case LiveGame:
		return liveGameTTL
	case Standings:
		return standingsTTL
	case TeamInfo:
		return teamInfoTTL
	case Schedule:
		return scheduleTTL
	case PlayerStats:
		return playerStatsTTL
	default:
		return defaultTTL
	}
}

// Game states reported by the canonical schema.
const (
	GameStateLive      = "LIVE"
	GameStateCritical  = "CRIT"
	GameStateFuture    = "FUT"
	GameStatePregame   = "PRE"
	GameStateFinal     = "FINAL"
	GameStateOfficial  = "OFF"
	GameStatePostponed = "PPD"
	GameStateCanceled  = "CAN"
	GameStateUnknown   = "UNKNOWN"
)
