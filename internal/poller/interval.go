package poller

import (
	"time"

	"github.com/Brobert48/nhl-led-scoreboard/internal/config"
	"github.com/Brobert48/nhl-led-scoreboard/internal/domain"
)

// defaultInterval covers domains without a configured cadence.
const defaultInterval = 5 * time.Minute

// adaptiveInterval computes the next polling interval for a domain.
// Most domains use their configured base interval; the game-tracking
// domain additionally tracks derived game activity.
func adaptiveInterval(cfg config.PollingConfig, state *domainState) time.Duration {
	seconds := func(n int) time.Duration { return time.Duration(n) * time.Second }

	switch state.domain {
	case domain.LiveGame:
		switch {
		case state.liveGame && state.intermission:
			return seconds(cfg.LiveGameSlow)
		case state.liveGame:
			return seconds(cfg.LiveGameFast)
		case state.activity == ActivityScheduled:
			return seconds(cfg.Pregame)
		case state.activity == ActivityFinal:
			return seconds(cfg.Postgame)
		default:
			return seconds(cfg.Offline)
		}
	case domain.Standings:
		return seconds(cfg.Standings)
	case domain.TeamInfo:
		// Team info is effectively static; never poll faster than hourly.
		if cfg.TeamInfo < 3600 {
			return time.Hour
		}
		return seconds(cfg.TeamInfo)
	case domain.Schedule:
		return seconds(cfg.Schedule)
	case domain.PlayerStats:
		return seconds(cfg.PlayerStats)
	case domain.Playoffs:
		return seconds(cfg.Playoffs)
	case domain.SeasonSchedule:
		return seconds(cfg.SeasonSchedule)
	default:
		return defaultInterval
	}
}
