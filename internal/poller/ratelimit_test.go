package poller

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterRejectsOverLimit(t *testing.T) {
	rl := NewRateLimiter(map[string]int{"nhl_official": 3})

	now := time.Now()
	rl.SetClock(func() time.Time { return now })

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("nhl_official"), "request %d should pass", i+1)
	}

	// The N+1th request inside the window is rejected.
	assert.False(t, rl.Allow("nhl_official"))
}

func TestRateLimiterWindowSlides(t *testing.T) {
	rl := NewRateLimiter(map[string]int{"espn": 2})

	now := time.Now()
	rl.SetClock(func() time.Time { return now })

	assert.True(t, rl.Allow("espn"))
	assert.True(t, rl.Allow("espn"))
	assert.False(t, rl.Allow("espn"))

	// Once the first requests age out of the rolling window, capacity
	// returns.
	rl.SetClock(func() time.Time { return now.Add(61 * time.Second) })
	assert.True(t, rl.Allow("espn"))
}

func TestRateLimiterUnconfiguredSourceIsUnlimited(t *testing.T) {
	rl := NewRateLimiter(nil)

	for i := 0; i < 100; i++ {
		assert.True(t, rl.Allow("anything"))
	}
}

func TestRateLimiterTracksSourcesIndependently(t *testing.T) {
	rl := NewRateLimiter(map[string]int{"a": 1, "b": 1})

	now := time.Now()
	rl.SetClock(func() time.Time { return now })

	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
}
