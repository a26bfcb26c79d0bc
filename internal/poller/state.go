package poller

import (
	"time"

	"github.com/Brobert48/nhl-led-scoreboard/internal/domain"
)

// Derived activity states for the game-tracking domain, used by the
// adaptive interval rule.
const (
	ActivityLive      = "LIVE"
	ActivityScheduled = "SCHEDULED"
	ActivityFinal     = "FINAL"
	ActivityOffDay    = "OFF_DAY"
	ActivityNoGames   = "NO_GAMES"
	ActivityUnknown   = "UNKNOWN"
)

// PollResult is the outcome of one fetch attempt or one whole cycle.
type PollResult struct {
	Success      bool
	Data         map[string]any
	SourceName   string
	EndpointURL  string
	HTTPStatus   int
	Cached       bool
	Err          *PollError
	Duration     time.Duration
	ETag         string
	LastModified string
}

// domainState is the per-domain polling state machine. Mutated only by
// the domain's own loop; read under the poller mutex for stats.
type domainState struct {
	domain              string
	lastPoll            time.Time
	lastSuccess         time.Time
	interval            time.Duration
	consecutiveFailures int
	activeSourceIndex   int
	lastGood            map[string]any

	activity     string
	liveGame     bool
	intermission bool
}

// DomainStats is the externally visible snapshot of one domain's
// polling state.
type DomainStats struct {
	Domain              string    `json:"domain"`
	LastPoll            time.Time `json:"last_poll"`
	LastSuccess         time.Time `json:"last_success"`
	CurrentInterval     float64   `json:"current_interval_seconds"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	ActiveSourceIndex   int       `json:"active_source_index"`
	Activity            string    `json:"activity"`
	Intermission        bool      `json:"intermission"`
	HasData             bool      `json:"has_data"`
}

// snapshot converts the internal state to its stats form.
func (s *domainState) snapshot() DomainStats {
	return DomainStats{
		Domain:              s.domain,
		LastPoll:            s.lastPoll,
		LastSuccess:         s.lastSuccess,
		CurrentInterval:     s.interval.Seconds(),
		ConsecutiveFailures: s.consecutiveFailures,
		ActiveSourceIndex:   s.activeSourceIndex,
		Activity:            s.activity,
		Intermission:        s.intermission,
		HasData:             s.lastGood != nil,
	}
}

// updateActivity derives the game activity from the latest canonical
// game list: live beats scheduled beats final; an empty list means no
// games today.
func (s *domainState) updateActivity(payload *domain.GamePayload) {
	if payload == nil || len(payload.Games) == 0 {
		s.liveGame = false
		s.intermission = false
		s.activity = ActivityNoGames
		return
	}

	var firstLive *domain.Game
	hasUpcoming := false
	hasFinal := false

	for i := range payload.Games {
		game := &payload.Games[i]

		switch game.GameState {
		case domain.GameStateLive, domain.GameStateCritical:
			if firstLive == nil {
				firstLive = game
			}
		case domain.GameStateFuture, domain.GameStatePregame:
			hasUpcoming = true
		case domain.GameStateFinal, domain.GameStateOfficial:
			hasFinal = true
		}
	}

	switch {
	case firstLive != nil:
		s.liveGame = true
		s.activity = ActivityLive
		s.intermission = firstLive.Clock.InIntermission
	case hasUpcoming:
		s.liveGame = false
		s.intermission = false
		s.activity = ActivityScheduled
	case hasFinal:
		s.liveGame = false
		s.intermission = false
		s.activity = ActivityFinal
	default:
		s.liveGame = false
		s.intermission = false
		s.activity = ActivityOffDay
	}
}
