package poller

import (
	"sync"
	"time"
)

// rateWindow is the rolling window over which per-source request
// counts are enforced.
const rateWindow = 60 * time.Second

// RateLimiter enforces a per-source request rate over a rolling
// window. It bounds rate, not concurrency; the HTTP client's
// semaphores handle the latter. Safe for concurrent use across domain
// loops that share a source.
type RateLimiter struct {
	mu     sync.Mutex
	limits map[string]int
	stamps map[string][]time.Time
	now    func() time.Time
}

// NewRateLimiter creates a limiter with the given per-source limits
// (requests per rolling 60 seconds). Sources without a configured
// limit are unlimited.
func NewRateLimiter(limits map[string]int) *RateLimiter {
	if limits == nil {
		limits = make(map[string]int)
	}

	return &RateLimiter{
		limits: limits,
		stamps: make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Allow reports whether a request for the source may proceed now, and
// records it if so. The Nth+1 request within the window is rejected
// when the limit is N.
func (rl *RateLimiter) Allow(sourceName string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rateWindow)

	recent := rl.stamps[sourceName][:0]
	for _, stamp := range rl.stamps[sourceName] {
		if stamp.After(cutoff) {
			recent = append(recent, stamp)
		}
	}
	rl.stamps[sourceName] = recent

	if limit, ok := rl.limits[sourceName]; ok && len(recent) >= limit {
		return false
	}

	rl.stamps[sourceName] = append(rl.stamps[sourceName], now)

	return true
}

// SetClock replaces the limiter's time source. Test hook.
func (rl *RateLimiter) SetClock(now func() time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.now = now
}
