package discovery_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brobert48/nhl-led-scoreboard/internal/cache"
	"github.com/Brobert48/nhl-led-scoreboard/internal/config"
	"github.com/Brobert48/nhl-led-scoreboard/internal/discovery"
	"github.com/Brobert48/nhl-led-scoreboard/internal/logger"
)

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()

	c, err := cache.New(t.TempDir(), logger.NewNoop())
	require.NoError(t, err)

	return c
}

func testConfig(sources map[string][]config.SourceConfig) *config.Config {
	return &config.Config{
		PreferredTeams: []string{"Toronto Maple Leafs"},
		Sources:        sources,
	}
}

func TestDiscoverStaticEndpoints(t *testing.T) {
	cfg := testConfig(map[string][]config.SourceConfig{
		"live_game": {
			{Name: "nhl_official", BaseURL: "https://api.test/v1", Priority: 1, Enabled: true},
		},
	})

	m := discovery.NewManager(cfg, newTestCache(t), logger.NewNoop())
	registry := m.DiscoverAll(context.Background())

	endpoints := registry["live_game"]
	require.Len(t, endpoints, 2)

	assert.Equal(t, "https://api.test/v1/score/{date}", endpoints[0].URL)
	assert.True(t, endpoints[0].RequiresParams)
	assert.Equal(t, discovery.MethodStatic, endpoints[0].DiscoveryMethod)
	assert.True(t, endpoints[0].ValidationOK)
	assert.Equal(t, "TOR", endpoints[0].SampleParams["team_abbrev"])
}

func TestDiscoverStaticEndpointsForStatsDomains(t *testing.T) {
	cfg := testConfig(map[string][]config.SourceConfig{
		"player_stats":    {{Name: "nhl_official", BaseURL: "https://api.test/v1", Priority: 1, Enabled: true}},
		"playoffs":        {{Name: "nhl_official", BaseURL: "https://api.test/v1", Priority: 1, Enabled: true}},
		"season_schedule": {{Name: "nhl_official", BaseURL: "https://api.test/v1", Priority: 1, Enabled: true}},
	})

	m := discovery.NewManager(cfg, newTestCache(t), logger.NewNoop())
	registry := m.DiscoverAll(context.Background())

	players := registry["player_stats"]
	require.Len(t, players, 2)
	assert.Equal(t, "https://api.test/v1/people/{player_id}", players[0].URL)
	assert.Equal(t, "8478402", players[0].SampleParams["player_id"])

	playoffs := registry["playoffs"]
	require.Len(t, playoffs, 4)
	assert.Equal(t, "https://api.test/v1/tournaments/playoffs", playoffs[0].URL)

	seasons := registry["season_schedule"]
	require.Len(t, seasons, 4)
	assert.Equal(t, "https://api.test/v1/seasons/current", seasons[0].URL)
	assert.Contains(t, seasons[1].URL, "{season_id}")
}

func TestEndpointResolveSubstitutesParams(t *testing.T) {
	endpoint := &discovery.Endpoint{
		URL:            "https://api.test/v1/club-schedule-season/{team_abbrev}/{season}",
		RequiresParams: true,
	}

	resolved := endpoint.Resolve(map[string]string{
		"team_abbrev": "BOS",
		"season":      "20252026",
	})

	assert.Equal(t, "https://api.test/v1/club-schedule-season/BOS/20252026", resolved)
}

func TestEndpointResolveLeavesUnknownPlaceholders(t *testing.T) {
	endpoint := &discovery.Endpoint{
		URL:            "https://api.test/v1/gamecenter/{game_id}/play-by-play",
		RequiresParams: true,
	}

	resolved := endpoint.Resolve(map[string]string{"date": "2026-01-15"})
	assert.Contains(t, resolved, "{game_id}")
}

func TestDiscoverFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "teams.json")
	payload := `{"data":[{"id":10,"triCode":"TOR","fullName":"Toronto Maple Leafs"}]}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	cfg := testConfig(map[string][]config.SourceConfig{
		"team_info": {
			{Name: "backup_json", BaseURL: "file://" + path, Priority: 99, Enabled: true},
		},
	})

	store := newTestCache(t)
	m := discovery.NewManager(cfg, store, logger.NewNoop())
	registry := m.DiscoverAll(context.Background())

	endpoints := registry["team_info"]
	require.Len(t, endpoints, 1)
	assert.True(t, endpoints[0].ValidationOK)
	assert.NotEmpty(t, endpoints[0].FingerprintHash)

	// File validation records a fingerprint for the pair.
	_, ok := store.Fingerprint("backup_json", "team_info")
	assert.True(t, ok)
}

func TestDiscoverFileSourceRejectsBadStructure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "teams.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"wrong":"shape"}`), 0o644))

	cfg := testConfig(map[string][]config.SourceConfig{
		"team_info": {
			{Name: "backup_json", BaseURL: "file://" + path, Priority: 99, Enabled: true},
		},
	})

	m := discovery.NewManager(cfg, newTestCache(t), logger.NewNoop())
	registry := m.DiscoverAll(context.Background())

	assert.Empty(t, registry["team_info"])
}

func TestLoadCachedRoundTrip(t *testing.T) {
	cfg := testConfig(map[string][]config.SourceConfig{
		"standings": {
			{Name: "nhl_official", BaseURL: "https://api.test/v1", Priority: 1, Enabled: true},
		},
	})

	store := newTestCache(t)

	first := discovery.NewManager(cfg, store, logger.NewNoop())
	first.DiscoverAll(context.Background())

	second := discovery.NewManager(cfg, store, logger.NewNoop())
	require.True(t, second.LoadCached())

	endpoints := second.EndpointsForDomain("standings")
	require.Len(t, endpoints, 2)
	assert.Equal(t, "https://api.test/v1/standings", endpoints[0].URL)
}

func TestLoadCachedEmptyCache(t *testing.T) {
	cfg := testConfig(nil)
	m := discovery.NewManager(cfg, newTestCache(t), logger.NewNoop())

	assert.False(t, m.LoadCached())
}

func TestEndpointsSortedByMethodThenPriority(t *testing.T) {
	cfg := testConfig(map[string][]config.SourceConfig{
		"live_game": {
			{Name: "nhl_official", BaseURL: "https://a.test", Priority: 1, Enabled: true},
			{Name: "espn", BaseURL: "https://b.test", Priority: 2, Enabled: true},
		},
	})

	store := newTestCache(t)
	registry := map[string][]*discovery.Endpoint{
		"live_game": {
			{URL: "https://b.test/scanned", SourceName: "espn", Domain: "live_game", DiscoveryMethod: discovery.MethodHTML, ValidationOK: true},
			{URL: "https://b.test/score/{date}", SourceName: "espn", Domain: "live_game", DiscoveryMethod: discovery.MethodStatic, ValidationOK: true},
			{URL: "https://a.test/score/{date}", SourceName: "nhl_official", Domain: "live_game", DiscoveryMethod: discovery.MethodStatic, ValidationOK: true},
			{URL: "https://a.test/invalid", SourceName: "nhl_official", Domain: "live_game", DiscoveryMethod: discovery.MethodStatic, ValidationOK: false},
		},
	}
	require.NoError(t, store.Set("discovery_results", registry, time.Hour, cache.Meta{}))

	m := discovery.NewManager(cfg, store, logger.NewNoop())
	require.True(t, m.LoadCached())

	endpoints := m.EndpointsForDomain("live_game")
	require.Len(t, endpoints, 3)
	assert.Equal(t, "https://a.test/score/{date}", endpoints[0].URL)
	assert.Equal(t, "https://b.test/score/{date}", endpoints[1].URL)
	assert.Equal(t, "https://b.test/scanned", endpoints[2].URL)
}

func TestValidatePayload(t *testing.T) {
	valid := map[string]any{
		"games": []any{
			map[string]any{
				"awayTeam":  map[string]any{"abbrev": "TOR"},
				"homeTeam":  map[string]any{"abbrev": "BOS"},
				"gameState": "LIVE",
			},
		},
		"gameDate": "2026-01-15",
	}
	assert.NoError(t, discovery.ValidatePayload("live_game", valid))

	// Missing top-level key.
	assert.Error(t, discovery.ValidatePayload("live_game", map[string]any{"games": []any{}}))

	// Empty game list is a valid "no games today" answer.
	assert.NoError(t, discovery.ValidatePayload("live_game", map[string]any{
		"games":    []any{},
		"gameDate": "2026-01-15",
	}))

	// First element missing a required key.
	assert.Error(t, discovery.ValidatePayload("live_game", map[string]any{
		"games": []any{
			map[string]any{"awayTeam": map[string]any{}},
		},
		"gameDate": "2026-01-15",
	}))

	// Player records need their identifying keys.
	assert.NoError(t, discovery.ValidatePayload("player_stats", map[string]any{
		"people": []any{
			map[string]any{"id": float64(8478402), "fullName": "Connor McDavid", "stats": []any{}},
		},
	}))
	assert.Error(t, discovery.ValidatePayload("player_stats", map[string]any{
		"people": []any{map[string]any{"id": float64(8478402)}},
	}))

	// Bracket and season payloads are validated on their top-level keys.
	assert.NoError(t, discovery.ValidatePayload("playoffs", map[string]any{"rounds": []any{}}))
	assert.Error(t, discovery.ValidatePayload("playoffs", map[string]any{"series": []any{}}))
	assert.NoError(t, discovery.ValidatePayload("season_schedule", map[string]any{"seasonId": "20252026"}))
	assert.Error(t, discovery.ValidatePayload("season_schedule", map[string]any{}))
}

func TestRevalidateStaleLeavesNetworkTimestampsUntouched(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "teams.json")
	payload := `{"data":[{"id":10,"triCode":"TOR","fullName":"Toronto Maple Leafs"}]}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	cfg := testConfig(map[string][]config.SourceConfig{
		"live_game": {{Name: "nhl_official", BaseURL: "https://a.test", Priority: 1, Enabled: true}},
		"team_info": {{Name: "backup_json", BaseURL: "file://" + path, Priority: 99, Enabled: true}},
	})

	staleAt := time.Now().Add(-3 * time.Hour).Unix()
	registry := map[string][]*discovery.Endpoint{
		"live_game": {
			{URL: "https://a.test/score/{date}", SourceName: "nhl_official", Domain: "live_game", DiscoveryMethod: discovery.MethodStatic, ValidationOK: true, LastValidated: staleAt},
		},
		"team_info": {
			{URL: "file://" + path, SourceName: "backup_json", Domain: "team_info", DiscoveryMethod: discovery.MethodStatic, ValidationOK: true, LastValidated: staleAt},
		},
	}

	store := newTestCache(t)
	require.NoError(t, store.Set("discovery_results", registry, time.Hour, cache.Meta{}))

	m := discovery.NewManager(cfg, store, logger.NewNoop())
	require.True(t, m.LoadCached())

	count := m.RevalidateStale(context.Background())
	assert.Equal(t, 1, count, "only the file endpoint can be re-checked locally")

	games := m.EndpointsForDomain("live_game")
	require.Len(t, games, 1)
	assert.Equal(t, staleAt, games[0].LastValidated,
		"an unconfirmed network endpoint keeps its stale timestamp until a poll succeeds")

	teams := m.EndpointsForDomain("team_info")
	require.Len(t, teams, 1)
	assert.Greater(t, teams[0].LastValidated, staleAt)
}

func TestRelevantURL(t *testing.T) {
	assert.True(t, discovery.RelevantURL("standings", "https://api.test/v2/standings"))
	assert.True(t, discovery.RelevantURL("live_game", "https://api.test/scoreboard"))
	assert.False(t, discovery.RelevantURL("standings", "https://api.test/news"))
}
