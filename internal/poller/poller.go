// Package poller runs one adaptive polling loop per data domain:
// endpoint selection with sticky fallback, conditional fetch, rate
// limiting, normalization and subscriber notification.
package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/Brobert48/nhl-led-scoreboard/internal/cache"
	"github.com/Brobert48/nhl-led-scoreboard/internal/config"
	"github.com/Brobert48/nhl-led-scoreboard/internal/discovery"
	"github.com/Brobert48/nhl-led-scoreboard/internal/domain"
	"github.com/Brobert48/nhl-led-scoreboard/internal/events"
	"github.com/Brobert48/nhl-led-scoreboard/internal/httpclient"
	"github.com/Brobert48/nhl-led-scoreboard/internal/logger"
	"github.com/Brobert48/nhl-led-scoreboard/internal/metrics"
	"github.com/Brobert48/nhl-led-scoreboard/internal/normalize"
	"github.com/Brobert48/nhl-led-scoreboard/internal/season"
)

// fallbackThreshold is how many consecutive all-endpoint failures a
// domain tolerates before advancing its active source index.
const fallbackThreshold = 3

// Poller owns the per-domain polling loops.
type Poller struct {
	cfg        *config.Config
	cache      *cache.Cache
	client     *httpclient.Client
	normalizer *normalize.Normalizer
	registry   *discovery.Manager
	bus        *events.Bus
	limiter    *RateLimiter
	log        logger.Interface

	mu     sync.Mutex
	states map[string]*domainState

	wg     sync.WaitGroup
	cancel context.CancelFunc

	now func() time.Time
}

// New wires a poller from its collaborators. Rate limits come from the
// configured per-source requests-per-minute values.
func New(
	cfg *config.Config,
	c *cache.Cache,
	client *httpclient.Client,
	normalizer *normalize.Normalizer,
	registry *discovery.Manager,
	bus *events.Bus,
	log logger.Interface,
) *Poller {
	limits := make(map[string]int)
	for _, sources := range cfg.Sources {
		for i := range sources {
			if sources[i].RateLimitPerMinute > 0 {
				limits[sources[i].Name] = sources[i].RateLimitPerMinute
			}
		}
	}

	return &Poller{
		cfg:        cfg,
		cache:      c,
		client:     client,
		normalizer: normalizer,
		registry:   registry,
		bus:        bus,
		limiter:    NewRateLimiter(limits),
		log:        log,
		states:     make(map[string]*domainState),
		now:        time.Now,
	}
}

// Start launches one polling loop per configured domain. The loops run
// until Stop is called or the context is canceled.
func (p *Poller) Start(ctx context.Context) {
	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for _, domainName := range p.cfg.Domains() {
		state := &domainState{
			domain:   domainName,
			activity: ActivityUnknown,
			interval: time.Second,
		}

		p.mu.Lock()
		p.states[domainName] = state
		p.mu.Unlock()

		p.wg.Add(1)
		go p.loop(loopCtx, state)
	}

	p.log.Info("polling started", "domains", len(p.states))
}

// Stop cancels every loop and waits for acknowledgement before
// releasing HTTP resources.
func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
	}

	p.wg.Wait()
	p.client.CloseIdleConnections()
	p.log.Info("polling stopped")
}

// loop runs one domain's cycles strictly sequentially.
func (p *Poller) loop(ctx context.Context, state *domainState) {
	defer p.wg.Done()

	for {
		p.mu.Lock()
		next := state.lastPoll.Add(state.interval)
		p.mu.Unlock()

		delay := time.Until(next)
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}

		if ctx.Err() != nil {
			return
		}

		result := p.pollDomain(ctx, state)
		p.updateState(state, result)

		if result.Success && !result.Cached && result.Data != nil {
			// Notify only after the cache write for fresh data, so a
			// subscriber can never observe a miss for data it was just
			// told about.
			p.bus.Publish(state.domain, result.Data)
		}
	}
}

// pollDomain runs one cycle: walk the endpoint list from the active
// source index, return the first success, fall back to cached data
// when every endpoint fails.
func (p *Poller) pollDomain(ctx context.Context, state *domainState) PollResult {
	endpoints := p.registry.EndpointsForDomain(state.domain)
	if len(endpoints) == 0 {
		return PollResult{
			Success: false,
			Err: &PollError{
				Type:  ErrTypeUnexpected,
				Level: LevelError,
				Cause: fmt.Errorf("no endpoints for domain %s", state.domain),
			},
		}
	}

	p.mu.Lock()
	activeIndex := state.activeSourceIndex
	p.mu.Unlock()

	if activeIndex >= len(endpoints) {
		activeIndex = 0
	}

	for i, endpoint := range endpoints {
		if i < activeIndex {
			continue
		}

		if ctx.Err() != nil {
			return PollResult{Success: false, Err: ClassifyNetworkError(ctx.Err(), endpoint.URL)}
		}

		result := p.pollEndpoint(ctx, endpoint, state.domain)
		if result.Success {
			p.mu.Lock()
			if state.activeSourceIndex != 0 {
				p.log.Info("restored primary source", "domain", state.domain)
				state.activeSourceIndex = 0
			}
			state.consecutiveFailures = 0
			p.mu.Unlock()

			return result
		}

		p.logPollError(state.domain, result.Err)
		if result.Err != nil && result.Err.Type != ErrTypeRateLimited {
			metrics.SourceFailures.WithLabelValues(endpoint.SourceName, state.domain).Inc()
		}
	}

	p.mu.Lock()
	state.consecutiveFailures++
	if state.consecutiveFailures >= fallbackThreshold && state.activeSourceIndex < len(endpoints)-1 {
		state.activeSourceIndex++
		p.log.Warn("switching to fallback source",
			"domain", state.domain,
			"active_index", state.activeSourceIndex,
		)
	}
	lastGood := state.lastGood
	p.mu.Unlock()

	if lastGood != nil {
		p.log.Warn("serving stale data after polling failures", "domain", state.domain)

		return PollResult{
			Success:    true,
			Data:       lastGood,
			Cached:     true,
			SourceName: "cache",
		}
	}

	return PollResult{
		Success: false,
		Err: &PollError{
			Type:  ErrTypeUnexpected,
			Level: LevelError,
			Cause: fmt.Errorf("%w for domain %s", ErrAllSourcesExhausted, state.domain),
		},
	}
}

// pollEndpoint fetches one endpoint: rate limit check, conditional
// GET, contract validation, normalization and cache write.
func (p *Poller) pollEndpoint(ctx context.Context, endpoint *discovery.Endpoint, domainName string) PollResult {
	start := p.now()

	if !p.limiter.Allow(endpoint.SourceName) {
		metrics.RateLimitSkips.WithLabelValues(endpoint.SourceName).Inc()

		return PollResult{
			Success:    false,
			SourceName: endpoint.SourceName,
			Err:        RateLimitSkip(endpoint.SourceName),
		}
	}

	if endpoint.IsFile() {
		return p.pollFileEndpoint(endpoint, domainName, start)
	}

	pollURL := endpoint.Resolve(season.Params(p.now(), p.cfg.PreferredTeams))
	cacheKey := fmt.Sprintf("poll:%s:%s:%s", endpoint.SourceName, domainName, pollURL)

	var etag, lastModified string
	cached, hasCached := p.cache.Get(cacheKey)
	if hasCached {
		etag = cached.ETag
		lastModified = cached.LastModified
	}

	source, _ := p.cfg.SourceByName(endpoint.SourceName)

	params := httpclient.FetchParams{
		URL:          pollURL,
		ETag:         etag,
		LastModified: lastModified,
		Timeout:      time.Duration(source.TimeoutSeconds) * time.Second,
	}
	if source.RequiresAPIKey {
		params.APIKey = source.APIKey
	}

	resp, err := p.client.Fetch(ctx, params)
	if err != nil {
		return PollResult{
			Success:     false,
			SourceName:  endpoint.SourceName,
			EndpointURL: pollURL,
			Err:         ClassifyNetworkError(err, pollURL),
			Duration:    p.now().Sub(start),
		}
	}

	if resp.NotModified() {
		metrics.CacheHits.WithLabelValues(domainName).Inc()

		var data map[string]any
		if hasCached {
			data, _ = cached.Data.(map[string]any)
		}

		return PollResult{
			Success:     true,
			Data:        data,
			SourceName:  endpoint.SourceName,
			EndpointURL: pollURL,
			HTTPStatus:  http.StatusNotModified,
			Cached:      true,
			Duration:    p.now().Sub(start),
		}
	}

	if resp.StatusCode != http.StatusOK {
		return PollResult{
			Success:     false,
			SourceName:  endpoint.SourceName,
			EndpointURL: pollURL,
			HTTPStatus:  resp.StatusCode,
			Err:         ClassifyHTTPStatus(resp.StatusCode, pollURL),
			Duration:    p.now().Sub(start),
		}
	}

	var raw map[string]any
	if unmarshalErr := json.Unmarshal(resp.Body, &raw); unmarshalErr != nil {
		return PollResult{
			Success:     false,
			SourceName:  endpoint.SourceName,
			EndpointURL: pollURL,
			HTTPStatus:  resp.StatusCode,
			Err:         ClassifyMalformedResponse(unmarshalErr, pollURL),
			Duration:    p.now().Sub(start),
		}
	}

	if validateErr := discovery.ValidatePayload(domainName, raw); validateErr != nil {
		return PollResult{
			Success:     false,
			SourceName:  endpoint.SourceName,
			EndpointURL: pollURL,
			HTTPStatus:  resp.StatusCode,
			Err:         ClassifyValidationError(validateErr, pollURL),
			Duration:    p.now().Sub(start),
		}
	}

	normalized := p.normalizer.Parse(raw, domainName, endpoint.SourceName)

	if setErr := p.cache.Set(cacheKey, normalized, domain.CacheTTL(domainName), cache.Meta{
		ETag:         resp.ETag,
		LastModified: resp.LastModified,
		SourceURL:    pollURL,
	}); setErr != nil {
		// Cache degradation is not a poll failure; the fresh data is
		// still good.
		p.log.Warn("failed to cache poll result", "key", cacheKey, "error", setErr.Error())
	}

	fingerprintHash := ""
	if fp, ok := p.cache.Fingerprint(endpoint.SourceName, domainName); ok {
		fingerprintHash = fp.VersionHash
	}
	p.registry.MarkValidated(domainName, endpoint.URL, fingerprintHash)

	return PollResult{
		Success:      true,
		Data:         normalized,
		SourceName:   endpoint.SourceName,
		EndpointURL:  pollURL,
		HTTPStatus:   resp.StatusCode,
		Duration:     p.now().Sub(start),
		ETag:         resp.ETag,
		LastModified: resp.LastModified,
	}
}

// pollFileEndpoint reads and normalizes a local file source.
func (p *Poller) pollFileEndpoint(endpoint *discovery.Endpoint, domainName string, start time.Time) PollResult {
	raw, err := os.ReadFile(endpoint.FilePath())
	if err != nil {
		return PollResult{
			Success:     false,
			SourceName:  endpoint.SourceName,
			EndpointURL: endpoint.URL,
			Err:         ClassifyNetworkError(err, endpoint.URL),
			Duration:    p.now().Sub(start),
		}
	}

	var payload map[string]any
	if unmarshalErr := json.Unmarshal(raw, &payload); unmarshalErr != nil {
		return PollResult{
			Success:     false,
			SourceName:  endpoint.SourceName,
			EndpointURL: endpoint.URL,
			Err:         ClassifyMalformedResponse(unmarshalErr, endpoint.URL),
			Duration:    p.now().Sub(start),
		}
	}

	normalized := p.normalizer.Parse(payload, domainName, endpoint.SourceName)

	return PollResult{
		Success:     true,
		Data:        normalized,
		SourceName:  endpoint.SourceName,
		EndpointURL: endpoint.URL,
		HTTPStatus:  http.StatusOK,
		Duration:    p.now().Sub(start),
	}
}

// updateState records a cycle's outcome and computes the next
// interval.
func (p *Poller) updateState(state *domainState, result PollResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	state.lastPoll = p.now()

	outcome := "failed"
	if result.Success {
		state.lastSuccess = p.now()
		if result.Data != nil {
			state.lastGood = result.Data
			if state.domain == domain.LiveGame {
				typed, decodeErr := domain.DecodeGamePayload(result.Data)
				if decodeErr != nil {
					p.log.Warn("canonical game decode failed",
						"domain", state.domain,
						"error", decodeErr.Error(),
					)
				} else {
					state.updateActivity(typed)
				}
			}
		}

		outcome = "fresh"
		if result.Cached {
			outcome = "cached"
			if result.SourceName == "cache" {
				outcome = "stale"
			}
		}
	}

	state.interval = adaptiveInterval(p.cfg.Polling, state)

	metrics.Polls.WithLabelValues(state.domain, outcome).Inc()
	metrics.ConsecutiveFailures.WithLabelValues(state.domain).Set(float64(state.consecutiveFailures))
	metrics.ActiveSourceIndex.WithLabelValues(state.domain).Set(float64(state.activeSourceIndex))
	metrics.PollInterval.WithLabelValues(state.domain).Set(state.interval.Seconds())
}

// logPollError logs a classified failure at its level.
func (p *Poller) logPollError(domainName string, pollErr *PollError) {
	if pollErr == nil {
		return
	}

	fields := []any{
		"domain", domainName,
		"type", string(pollErr.Type),
		"error", pollErr.Error(),
	}

	if pollErr.Level == LevelError {
		p.log.Error("poll attempt failed", fields...)
		return
	}

	p.log.Warn("poll attempt failed", fields...)
}

// RegisterDataCallback subscribes a handler to fresh updates for a
// domain and returns the subscription id.
func (p *Poller) RegisterDataCallback(domainName string, handler events.Handler) string {
	return p.bus.Subscribe(domainName, handler)
}

// LatestData returns the last known canonical payload for a domain.
func (p *Poller) LatestData(domainName string) (map[string]any, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	state, ok := p.states[domainName]
	if !ok || state.lastGood == nil {
		return nil, false
	}

	return state.lastGood, true
}

// ErrNoData is returned by the typed accessors before a domain has
// produced its first successful payload.
var ErrNoData = errors.New("no data for domain")

// LatestGames returns the last known payload for a game-list domain
// (live_game or schedule) in its typed canonical form.
func (p *Poller) LatestGames(domainName string) (*domain.GamePayload, error) {
	data, ok := p.LatestData(domainName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoData, domainName)
	}

	return domain.DecodeGamePayload(data)
}

// LatestStandings returns the last known standings payload in its
// typed canonical form.
func (p *Poller) LatestStandings() (*domain.StandingsPayload, error) {
	data, ok := p.LatestData(domain.Standings)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoData, domain.Standings)
	}

	return domain.DecodeStandingsPayload(data)
}

// LatestTeams returns the last known team payload in its typed
// canonical form.
func (p *Poller) LatestTeams() (*domain.TeamPayload, error) {
	data, ok := p.LatestData(domain.TeamInfo)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoData, domain.TeamInfo)
	}

	return domain.DecodeTeamPayload(data)
}

// PollingStats returns a snapshot of every domain's polling state.
func (p *Poller) PollingStats() map[string]DomainStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	stats := make(map[string]DomainStats, len(p.states))
	for name, state := range p.states {
		stats[name] = state.snapshot()
	}

	return stats
}

// SetClock replaces the poller's time source. Test hook.
func (p *Poller) SetClock(now func() time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.now = now
}
