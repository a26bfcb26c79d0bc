// Package discovery builds and maintains the registry of candidate
// endpoints per data domain and source. Static path templates are
// tried first; pluggable page-scan strategies fill gaps. Networked
// endpoints are optimistically marked valid and checked for real on
// first poll; file endpoints are validated immediately.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/Brobert48/nhl-led-scoreboard/internal/cache"
	"github.com/Brobert48/nhl-led-scoreboard/internal/config"
	"github.com/Brobert48/nhl-led-scoreboard/internal/logger"
	"github.com/Brobert48/nhl-led-scoreboard/internal/season"
)

const (
	// registryCacheKey stores the whole registry, all domains at once.
	registryCacheKey = "discovery_results"
	// registryCacheTTL is how long a discovery run stays usable.
	registryCacheTTL = 24 * time.Hour
	// revalidationInterval is the age beyond which an endpoint is
	// re-checked instead of trusted.
	revalidationInterval = time.Hour
)

// Manager owns the endpoint registry. The registry is written during
// DiscoverAll/LoadCached/Revalidate and read-only during polling.
type Manager struct {
	cfg   *config.Config
	cache *cache.Cache
	log   logger.Interface

	strategies []Strategy

	mu        sync.RWMutex
	endpoints map[string][]*Endpoint

	now func() time.Time
}

// NewManager creates a discovery manager. Strategies are tried in
// order when static templates yield nothing for a source.
func NewManager(cfg *config.Config, c *cache.Cache, log logger.Interface, strategies ...Strategy) *Manager {
	return &Manager{
		cfg:        cfg,
		cache:      c,
		log:        log,
		strategies: strategies,
		endpoints:  make(map[string][]*Endpoint),
		now:        time.Now,
	}
}

// DiscoverAll builds the registry for every configured domain and
// caches the result.
func (m *Manager) DiscoverAll(ctx context.Context) map[string][]*Endpoint {
	m.log.Info("starting endpoint discovery")

	registry := make(map[string][]*Endpoint)

	for _, domainName := range m.cfg.Domains() {
		if ctx.Err() != nil {
			break
		}

		discovered := make([]*Endpoint, 0)
		for _, source := range m.cfg.SourcesForDomain(domainName) {
			endpoints, err := m.discoverSource(ctx, domainName, source)
			if err != nil {
				m.log.Error("endpoint discovery failed",
					"source", source.Name,
					"domain", domainName,
					"error", err.Error(),
				)
				continue
			}

			discovered = append(discovered, endpoints...)
			m.log.Info("discovered endpoints",
				"source", source.Name,
				"domain", domainName,
				"count", len(endpoints),
			)
		}

		registry[domainName] = discovered
	}

	m.mu.Lock()
	m.endpoints = registry
	m.mu.Unlock()

	m.persistRegistry(registry)
	m.log.Info("endpoint discovery complete", "domains", len(registry))

	return registry
}

// discoverSource finds endpoints for one (domain, source) pair.
func (m *Manager) discoverSource(ctx context.Context, domainName string, source config.SourceConfig) ([]*Endpoint, error) {
	if strings.HasPrefix(source.BaseURL, "file://") {
		return m.discoverFileSource(domainName, source)
	}

	discovered := m.staticEndpoints(domainName, source)

	if len(discovered) == 0 {
		for _, strategy := range m.strategies {
			extra, err := strategy.Discover(ctx, domainName, source)
			if err != nil {
				m.log.Warn("discovery strategy failed",
					"strategy", strategy.Name(),
					"source", source.Name,
					"domain", domainName,
					"error", err.Error(),
				)
				continue
			}

			discovered = append(discovered, extra...)
		}
	}

	// Networked endpoints are checked for real on first poll.
	now := m.now().Unix()
	for _, endpoint := range discovered {
		endpoint.ValidationOK = true
		endpoint.LastValidated = now
	}

	return discovered, nil
}

// discoverFileSource emits a single endpoint for a local file source
// and validates it immediately by reading the file.
func (m *Manager) discoverFileSource(domainName string, source config.SourceConfig) ([]*Endpoint, error) {
	endpoint := &Endpoint{
		URL:             source.BaseURL,
		Domain:          domainName,
		SourceName:      source.Name,
		Method:          http.MethodGet,
		DiscoveryMethod: MethodStatic,
	}

	if err := m.validateFileEndpoint(endpoint); err != nil {
		return nil, fmt.Errorf("file source %q: %w", source.Name, err)
	}

	return []*Endpoint{endpoint}, nil
}

// validateFileEndpoint reads and structurally checks a file endpoint,
// recording a fingerprint on success.
func (m *Manager) validateFileEndpoint(endpoint *Endpoint) error {
	raw, err := os.ReadFile(endpoint.FilePath())
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	var payload map[string]any
	if unmarshalErr := json.Unmarshal(raw, &payload); unmarshalErr != nil {
		return fmt.Errorf("decode: %w", unmarshalErr)
	}

	if validateErr := ValidatePayload(endpoint.Domain, payload); validateErr != nil {
		return fmt.Errorf("contract: %w", validateErr)
	}

	fp, _, fpErr := m.cache.UpdateFingerprint(payload, endpoint.SourceName, endpoint.Domain)
	if fpErr != nil {
		m.log.Warn("failed to persist file source fingerprint",
			"source", endpoint.SourceName,
			"domain", endpoint.Domain,
			"error", fpErr.Error(),
		)
	} else {
		endpoint.FingerprintHash = fp.VersionHash
		endpoint.ExpectedKeys = fp.KeyPaths
	}

	endpoint.ValidationOK = true
	endpoint.LastValidated = m.now().Unix()

	return nil
}

// staticEndpoints expands the domain's path templates against the
// source base URL, substituting current parameter values.
func (m *Manager) staticEndpoints(domainName string, source config.SourceConfig) []*Endpoint {
	params := season.Params(m.now(), m.cfg.PreferredTeams)
	base := strings.TrimRight(source.BaseURL, "/")

	endpoints := make([]*Endpoint, 0)
	for _, template := range ContractFor(domainName).Templates {
		url := base + template

		endpoints = append(endpoints, &Endpoint{
			URL:             url,
			Domain:          domainName,
			SourceName:      source.Name,
			Method:          http.MethodGet,
			RequiresParams:  hasPlaceholders(url),
			SampleParams:    params,
			DiscoveryMethod: MethodStatic,
		})
	}

	return endpoints
}

// persistRegistry caches the whole registry.
func (m *Manager) persistRegistry(registry map[string][]*Endpoint) {
	if err := m.cache.Set(registryCacheKey, registry, registryCacheTTL, cache.Meta{}); err != nil {
		m.log.Warn("failed to cache discovery results", "error", err.Error())
	}
}

// LoadCached restores the registry from the cache. Returns false when
// no usable cached registry exists, in which case the caller should run
// DiscoverAll.
func (m *Manager) LoadCached() bool {
	entry, ok := m.cache.Get(registryCacheKey)
	if !ok {
		return false
	}

	registry := make(map[string][]*Endpoint)
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &registry,
	})
	if err != nil {
		return false
	}

	if decodeErr := decoder.Decode(entry.Data); decodeErr != nil {
		m.log.Warn("corrupt cached discovery results", "error", decodeErr.Error())
		m.cache.Delete(registryCacheKey)
		return false
	}

	total := 0
	for _, endpoints := range registry {
		total += len(endpoints)
	}

	if total == 0 {
		return false
	}

	m.mu.Lock()
	m.endpoints = registry
	m.mu.Unlock()

	m.log.Info("loaded cached discovery results", "domains", len(registry), "endpoints", total)

	return true
}

// EndpointsForDomain returns the validated endpoints for a domain,
// sorted by discovery method priority then source priority.
func (m *Manager) EndpointsForDomain(domainName string) []*Endpoint {
	m.mu.RLock()
	defer m.mu.RUnlock()

	validated := make([]*Endpoint, 0)
	for _, endpoint := range m.endpoints[domainName] {
		if endpoint.ValidationOK {
			validated = append(validated, endpoint)
		}
	}

	sort.SliceStable(validated, func(i, j int) bool {
		mi := methodPriority[validated[i].DiscoveryMethod]
		mj := methodPriority[validated[j].DiscoveryMethod]
		if mi != mj {
			return mi < mj
		}

		return m.sourcePriority(validated[i].SourceName) < m.sourcePriority(validated[j].SourceName)
	})

	return validated
}

// sourcePriority looks up a source's configured priority. Unknown
// sources sort last.
func (m *Manager) sourcePriority(name string) int {
	if source, ok := m.cfg.SourceByName(name); ok {
		return source.Priority
	}

	return int(^uint(0) >> 1)
}

// RevalidateStale re-checks endpoints whose last validation is older
// than the revalidation interval. Only file endpoints can be checked
// without a network round trip; networked endpoints keep their stale
// timestamp until the next successful poll confirms them through
// MarkValidated, so the registry never reports freshness it has not
// observed.
func (m *Manager) RevalidateStale(ctx context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-revalidationInterval).Unix()

	revalidated := 0
	for _, endpoints := range m.endpoints {
		for _, endpoint := range endpoints {
			if ctx.Err() != nil {
				return revalidated
			}

			if endpoint.LastValidated >= cutoff || !endpoint.IsFile() {
				continue
			}

			if err := m.validateFileEndpoint(endpoint); err != nil {
				m.log.Warn("file endpoint failed revalidation",
					"source", endpoint.SourceName,
					"domain", endpoint.Domain,
					"error", err.Error(),
				)
				endpoint.ValidationOK = false
			}
			revalidated++
		}
	}

	if revalidated > 0 {
		m.persistRegistry(m.endpoints)
	}

	return revalidated
}

// MarkValidated records a successful structural validation for the
// endpoint serving a (domain, URL) pair. Called by the poller after a
// payload passes the domain contract.
func (m *Manager) MarkValidated(domainName, url, fingerprintHash string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, endpoint := range m.endpoints[domainName] {
		if endpoint.URL == url {
			endpoint.ValidationOK = true
			endpoint.LastValidated = m.now().Unix()
			if fingerprintHash != "" {
				endpoint.FingerprintHash = fingerprintHash
			}
			return
		}
	}
}

// SetClock replaces the manager's time source. Test hook.
func (m *Manager) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.now = now
}
