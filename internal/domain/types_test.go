package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brobert48/nhl-led-scoreboard/internal/domain"
)

func TestDecodeGamePayload(t *testing.T) {
	payload := map[string]any{
		"gameDate": "2026-01-15",
		"games": []any{
			map[string]any{
				"id":        float64(2026020500),
				"gameDate":  "2026-01-15",
				"gameState": "LIVE",
				"awayTeam": map[string]any{
					"id":     float64(10),
					"name":   map[string]any{"default": "Toronto Maple Leafs"},
					"abbrev": "TOR",
					// Looser upstreams deliver scores as strings.
					"score": "2",
				},
				"homeTeam": map[string]any{
					"id":     float64(6),
					"name":   map[string]any{"default": "Boston Bruins"},
					"abbrev": "BOS",
					"score":  float64(1),
				},
				"clock": map[string]any{
					"timeRemaining":  "12:34",
					"inIntermission": true,
				},
				"periodDescriptor": map[string]any{
					"number":     float64(2),
					"periodType": "REG",
				},
			},
		},
		"_source_info": map[string]any{
			"source_name": "nhl_official",
			"domain":      "live_game",
			"parsed_at":   "2026-01-15T19:00:00Z",
		},
	}

	decoded, err := domain.DecodeGamePayload(payload)
	require.NoError(t, err)

	require.Len(t, decoded.Games, 1)
	game := decoded.Games[0]

	assert.Equal(t, domain.GameStateLive, game.GameState)
	assert.Equal(t, "TOR", game.AwayTeam.Abbrev)
	assert.Equal(t, 2, game.AwayTeam.Score, "string score decodes weakly")
	assert.Equal(t, 1, game.HomeTeam.Score)
	assert.True(t, game.Clock.InIntermission)
	assert.Equal(t, 2, game.PeriodDescriptor.Number)
	assert.Equal(t, "nhl_official", decoded.SourceInfo.SourceName)
}

func TestDecodeStandingsPayload(t *testing.T) {
	payload := map[string]any{
		"standings": []any{
			map[string]any{
				"teamName":   map[string]any{"default": "Boston Bruins"},
				"teamAbbrev": map[string]any{"default": "BOS"},
				"wins":       float64(30),
				"losses":     float64(10),
				"otLosses":   float64(4),
				"points":     float64(64),
			},
		},
	}

	decoded, err := domain.DecodeStandingsPayload(payload)
	require.NoError(t, err)

	require.Len(t, decoded.Standings, 1)
	assert.Equal(t, "Boston Bruins", decoded.Standings[0].TeamName.Default)
	assert.Equal(t, 30, decoded.Standings[0].Wins)
	assert.Equal(t, 64, decoded.Standings[0].Points)
}

func TestDecodeTeamPayload(t *testing.T) {
	payload := map[string]any{
		"data": []any{
			map[string]any{
				"id":       float64(6),
				"triCode":  "BOS",
				"fullName": "Boston Bruins",
			},
		},
	}

	decoded, err := domain.DecodeTeamPayload(payload)
	require.NoError(t, err)

	require.Len(t, decoded.Data, 1)
	assert.Equal(t, "BOS", decoded.Data[0].TriCode)
}

func TestCacheTTLPerDomain(t *testing.T) {
	assert.Equal(t, 30*time.Second, domain.CacheTTL(domain.LiveGame))
	assert.Equal(t, time.Hour, domain.CacheTTL(domain.Standings))
	assert.Equal(t, 24*time.Hour, domain.CacheTTL(domain.TeamInfo))
	assert.Equal(t, time.Hour, domain.CacheTTL(domain.Schedule))
	assert.Equal(t, 30*time.Minute, domain.CacheTTL(domain.PlayerStats))
	assert.Equal(t, time.Hour, domain.CacheTTL(domain.Playoffs))
	assert.Equal(t, time.Hour, domain.CacheTTL(domain.SeasonSchedule))
	assert.Equal(t, time.Hour, domain.CacheTTL("unknown"))
}

func TestAllDomains(t *testing.T) {
	assert.Equal(t,
		[]string{
			domain.LiveGame, domain.Standings, domain.TeamInfo, domain.Schedule,
			domain.PlayerStats, domain.Playoffs, domain.SeasonSchedule,
		},
		domain.All(),
	)
}
