package cache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brobert48/nhl-led-scoreboard/internal/cache"
	"github.com/Brobert48/nhl-led-scoreboard/internal/logger"
)

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()

	c, err := cache.New(t.TempDir(), logger.NewNoop())
	require.NoError(t, err)

	return c
}

func TestSetGetRoundTrip(t *testing.T) {
	c := newTestCache(t)

	payload := map[string]any{
		"games": []any{
			map[string]any{"id": float64(42), "gameState": "LIVE"},
		},
		"gameDate": "2026-01-15",
	}

	err := c.Set("poll:nhl_official:live_game:https://example.test/score", payload, time.Minute, cache.Meta{
		ETag:         `"abc123"`,
		LastModified: "Mon, 12 Jan 2026 10:00:00 GMT",
		SourceURL:    "https://example.test/score",
	})
	require.NoError(t, err)

	entry, ok := c.Get("poll:nhl_official:live_game:https://example.test/score")
	require.True(t, ok)

	assert.Equal(t, payload, entry.Data)
	assert.Equal(t, `"abc123"`, entry.ETag)
	assert.Equal(t, "Mon, 12 Jan 2026 10:00:00 GMT", entry.LastModified)
	assert.Equal(t, "https://example.test/score", entry.SourceURL)
	assert.NotEmpty(t, entry.ContentHash)
}

func TestGetMissingKey(t *testing.T) {
	c := newTestCache(t)

	_, ok := c.Get("never-set")
	assert.False(t, ok)
}

func TestTTLExpiry(t *testing.T) {
	c := newTestCache(t)

	now := time.Now()
	c.SetClock(func() time.Time { return now })

	require.NoError(t, c.Set("short-lived", map[string]any{"v": float64(1)}, 30*time.Second, cache.Meta{}))

	_, ok := c.Get("short-lived")
	require.True(t, ok)

	// Jump past the TTL.
	c.SetClock(func() time.Time { return now.Add(31 * time.Second) })

	_, ok = c.Get("short-lived")
	assert.False(t, ok)

	stats := c.GetStats()
	assert.NotContains(t, stats.Keys, "short-lived")
}

func TestOverwriteReplacesEntry(t *testing.T) {
	c := newTestCache(t)

	require.NoError(t, c.Set("key", map[string]any{"v": float64(1)}, time.Minute, cache.Meta{}))
	require.NoError(t, c.Set("key", map[string]any{"v": float64(2)}, time.Minute, cache.Meta{}))

	entry, ok := c.Get("key")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"v": float64(2)}, entry.Data)
}

func TestDeleteIsIdempotent(t *testing.T) {
	c := newTestCache(t)

	require.NoError(t, c.Set("key", map[string]any{"v": float64(1)}, time.Minute, cache.Meta{}))

	c.Delete("key")
	c.Delete("key")

	_, ok := c.Get("key")
	assert.False(t, ok)
}

func TestCleanupExpired(t *testing.T) {
	c := newTestCache(t)

	now := time.Now()
	c.SetClock(func() time.Time { return now })

	require.NoError(t, c.Set("stale", map[string]any{"v": float64(1)}, time.Second, cache.Meta{}))
	require.NoError(t, c.Set("fresh", map[string]any{"v": float64(2)}, time.Hour, cache.Meta{}))

	c.SetClock(func() time.Time { return now.Add(time.Minute) })

	removed := c.CleanupExpired()
	assert.Equal(t, 1, removed)

	stats := c.GetStats()
	assert.Equal(t, 1, stats.TotalEntries)
	assert.Contains(t, stats.Keys, "fresh")
}

func TestIndexSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	c, err := cache.New(dir, logger.NewNoop())
	require.NoError(t, err)
	require.NoError(t, c.Set("key", map[string]any{"v": float64(7)}, time.Hour, cache.Meta{}))

	reopened, err := cache.New(dir, logger.NewNoop())
	require.NoError(t, err)

	entry, ok := reopened.Get("key")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"v": float64(7)}, entry.Data)
}

func TestContentHashTracksPayload(t *testing.T) {
	first, err := cache.ContentHash(map[string]any{"a": 1})
	require.NoError(t, err)

	same, err := cache.ContentHash(map[string]any{"a": 1})
	require.NoError(t, err)

	different, err := cache.ContentHash(map[string]any{"a": 2})
	require.NoError(t, err)

	assert.Equal(t, first, same)
	assert.NotEqual(t, first, different)
}
