package poller

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Brobert48/nhl-led-scoreboard/internal/config"
	"github.com/Brobert48/nhl-led-scoreboard/internal/domain"
)

func game(state string, intermission bool) domain.Game {
	return domain.Game{
		GameState: state,
		Clock:     domain.Clock{InIntermission: intermission},
	}
}

func TestUpdateActivity(t *testing.T) {
	tests := []struct {
		name             string
		games            []domain.Game
		wantActivity     string
		wantIntermission bool
	}{
		{
			name:         "empty list means no games today",
			games:        []domain.Game{},
			wantActivity: ActivityNoGames,
		},
		{
			name: "live game wins over everything",
			games: []domain.Game{
				game("FINAL", false),
				game("LIVE", false),
				game("FUT", false),
			},
			wantActivity: ActivityLive,
		},
		{
			name:         "critical counts as live",
			games:        []domain.Game{game("CRIT", false)},
			wantActivity: ActivityLive,
		},
		{
			name:             "intermission carried from the first live game",
			games:            []domain.Game{game("LIVE", true)},
			wantActivity:     ActivityLive,
			wantIntermission: true,
		},
		{
			name:         "upcoming games only",
			games:        []domain.Game{game("FUT", false), game("PRE", false)},
			wantActivity: ActivityScheduled,
		},
		{
			name:         "all games over",
			games:        []domain.Game{game("FINAL", false), game("OFF", false)},
			wantActivity: ActivityFinal,
		},
		{
			name:         "unrecognized states fall back to off day",
			games:        []domain.Game{game("PPD", false)},
			wantActivity: ActivityOffDay,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &domainState{domain: "live_game", activity: ActivityUnknown}
			state.updateActivity(&domain.GamePayload{Games: tt.games})

			assert.Equal(t, tt.wantActivity, state.activity)
			assert.Equal(t, tt.wantIntermission, state.intermission)
		})
	}
}

func TestUpdateActivityNilPayload(t *testing.T) {
	state := &domainState{domain: "live_game", activity: ActivityUnknown}
	state.updateActivity(nil)

	assert.Equal(t, ActivityNoGames, state.activity)
}

func TestAdaptiveInterval(t *testing.T) {
	cfg := config.PollingConfig{
		LiveGameFast:   10,
		LiveGameSlow:   30,
		Pregame:        60,
		Postgame:       120,
		Standings:      300,
		TeamInfo:       86400,
		Schedule:       3600,
		PlayerStats:    900,
		Playoffs:       3600,
		SeasonSchedule: 86400,
		Offline:        600,
	}

	tests := []struct {
		name  string
		state *domainState
		want  time.Duration
	}{
		{
			name:  "live game polls fast",
			state: &domainState{domain: "live_game", liveGame: true},
			want:  10 * time.Second,
		},
		{
			name:  "intermission slows down",
			state: &domainState{domain: "live_game", liveGame: true, intermission: true},
			want:  30 * time.Second,
		},
		{
			name:  "scheduled games use the pregame cadence",
			state: &domainState{domain: "live_game", activity: ActivityScheduled},
			want:  time.Minute,
		},
		{
			name:  "finished games use the postgame cadence",
			state: &domainState{domain: "live_game", activity: ActivityFinal},
			want:  2 * time.Minute,
		},
		{
			name:  "no games backs off to the offline cadence",
			state: &domainState{domain: "live_game", activity: ActivityNoGames},
			want:  10 * time.Minute,
		},
		{
			name:  "standings",
			state: &domainState{domain: "standings"},
			want:  5 * time.Minute,
		},
		{
			name:  "team info",
			state: &domainState{domain: "team_info"},
			want:  24 * time.Hour,
		},
		{
			name:  "schedule",
			state: &domainState{domain: "schedule"},
			want:  time.Hour,
		},
		{
			name:  "player stats",
			state: &domainState{domain: "player_stats"},
			want:  15 * time.Minute,
		},
		{
			name:  "playoffs",
			state: &domainState{domain: "playoffs"},
			want:  time.Hour,
		},
		{
			name:  "season schedule",
			state: &domainState{domain: "season_schedule"},
			want:  24 * time.Hour,
		},
		{
			name:  "unknown domain uses the default",
			state: &domainState{domain: "mystery"},
			want:  defaultInterval,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, adaptiveInterval(cfg, tt.state))
		})
	}
}

func TestAdaptiveIntervalTeamInfoFloor(t *testing.T) {
	cfg := config.PollingConfig{TeamInfo: 60}

	got := adaptiveInterval(cfg, &domainState{domain: "team_info"})
	assert.Equal(t, time.Hour, got, "team info never polls faster than hourly")
}
