// Package normalize converts any supported source's native response
// shape into the canonical per-domain shape via declarative rule sets,
// tolerating provider-side schema evolution through drift-driven rule
// adaptation.
package normalize

import (
	"crypto/md5" //nolint:gosec // change detection, not security
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/Brobert48/nhl-led-scoreboard/internal/cache"
	"github.com/Brobert48/nhl-led-scoreboard/internal/logger"
	"github.com/Brobert48/nhl-led-scoreboard/internal/metrics"
)

// Normalizer applies per-(domain, source) rule sets. Rule adaptation
// persists across parses, so a schema rename is paid for once.
type Normalizer struct {
	cache *cache.Cache
	log   logger.Interface

	mu    sync.Mutex
	rules map[string]map[string][]*Rule

	now func() time.Time
}

// New creates a normalizer with the built-in rule table.
func New(c *cache.Cache, log logger.Interface) *Normalizer {
	return &Normalizer{
		cache: c,
		log:   log,
		rules: buildRuleSets(),
		now:   time.Now,
	}
}

// Parse normalizes a decoded payload. It never fails: on any error the
// raw payload is returned unchanged so callers always receive an
// object-shaped value.
func (n *Normalizer) Parse(raw map[string]any, domainName, sourceName string) (result map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			n.log.Error("normalization panicked, returning raw payload",
				"source", sourceName,
				"domain", domainName,
				"panic", fmt.Sprint(r),
			)
			result = raw
		}
	}()

	rules := n.rulesFor(domainName, sourceName)
	if rules == nil {
		n.log.Warn("no parsing rules for source",
			"source", sourceName,
			"domain", domainName,
		)
		return raw
	}

	rawJSON, err := json.Marshal(raw)
	if err != nil {
		n.log.Error("failed to encode payload for normalization",
			"source", sourceName,
			"domain", domainName,
			"error", err.Error(),
		)
		return raw
	}

	n.checkDrift(raw, rules, domainName, sourceName)

	result = n.applyRules(rawJSON, rules)
	result["_source_info"] = map[string]any{
		"source_name":             sourceName,
		"domain":                  domainName,
		"parsed_at":               n.now().UTC().Format(time.RFC3339),
		"original_structure_hash": StructureHash(raw),
	}

	return result
}

// rulesFor returns the live rule slice for (domain, source). The slice
// is shared so that adaptation persists; rule pointers are only mutated
// under n.mu.
func (n *Normalizer) rulesFor(domainName, sourceName string) []*Rule {
	n.mu.Lock()
	defer n.mu.Unlock()

	domainRules, ok := n.rules[domainName]
	if !ok {
		return nil
	}

	rules, found := matchSource(domainRules, sourceName)
	if !found {
		return nil
	}

	return rules
}

// checkDrift updates the stored fingerprint and, when the structural
// change crosses the significance threshold, adapts the rule set to
// the new shape before it is applied.
func (n *Normalizer) checkDrift(raw map[string]any, rules []*Rule, domainName, sourceName string) {
	_, hadPrior := n.cache.Fingerprint(sourceName, domainName)

	_, diff, err := n.cache.UpdateFingerprint(raw, sourceName, domainName)
	if err != nil {
		n.log.Warn("failed to update schema fingerprint",
			"source", sourceName,
			"domain", domainName,
			"error", err.Error(),
		)
		return
	}

	if !hadPrior || !diff.Significant() {
		return
	}

	metrics.DriftEvents.WithLabelValues(sourceName, domainName).Inc()
	n.adaptRules(rules, diff, raw, domainName, sourceName)
}

// applyRules evaluates a rule set against a JSON document. When the
// root rule resolves to a list, item rules fan out over each element
// and the results are collected in order.
func (n *Normalizer) applyRules(rawJSON []byte, rules []*Rule) map[string]any {
	n.mu.Lock()
	snapshot := make([]*Rule, len(rules))
	copy(snapshot, rules)
	n.mu.Unlock()

	root := rootListRule(rawJSON, snapshot)
	if root == nil {
		return n.applyFlat(rawJSON, snapshot)
	}

	result := make(map[string]any)

	for _, rule := range snapshot {
		if rule.Scope == ScopeTop {
			n.applyOne(rawJSON, rule, result)
		}
	}

	items := make([]any, 0)
	list := gjson.GetBytes(rawJSON, gjsonPath(root.SourcePath))
	list.ForEach(func(_, item gjson.Result) bool {
		itemResult := make(map[string]any)
		for _, rule := range snapshot {
			if rule.Scope == ScopeItem {
				n.applyOne([]byte(item.Raw), rule, itemResult)
			}
		}

		if len(itemResult) > 0 {
			items = append(items, itemResult)
		}

		return true
	})

	setPath(result, root.TargetPath, items)

	return result
}

// applyFlat evaluates every non-root rule against the whole document.
func (n *Normalizer) applyFlat(rawJSON []byte, rules []*Rule) map[string]any {
	result := make(map[string]any)

	for _, rule := range rules {
		if rule.Scope == ScopeRoot {
			continue
		}

		n.applyOne(rawJSON, rule, result)
	}

	return result
}

// applyOne evaluates a single rule: resolve, default, transform, write.
// A missing required value is a logged warning, never an error; the
// target field is simply left absent when no default exists.
func (n *Normalizer) applyOne(rawJSON []byte, rule *Rule, result map[string]any) {
	value, found := rule.resolve(rawJSON)

	if !found || value == nil {
		if rule.Required {
			n.log.Warn("required field missing", "path", rule.SourcePath)
		}

		value = rule.Default
	}

	if value != nil && rule.Transform != nil {
		transformed, err := rule.Transform(value)
		if err != nil {
			n.log.Debug("transform failed",
				"path", rule.SourcePath,
				"error", err.Error(),
			)
			value = rule.Default
		} else {
			value = transformed
		}
	}

	if value != nil {
		setPath(result, rule.TargetPath, value)
	}
}

// rootListRule returns the ScopeRoot rule whose source resolves to a
// list, or nil when the payload is a single object.
func rootListRule(rawJSON []byte, rules []*Rule) *Rule {
	for _, rule := range rules {
		if rule.Scope != ScopeRoot {
			continue
		}

		if gjson.GetBytes(rawJSON, gjsonPath(rule.SourcePath)).IsArray() {
			return rule
		}
	}

	return nil
}

// StructureHash returns a cheap hash of a payload's type skeleton,
// used for change detection at call sites independent of the
// fingerprint mechanism.
func StructureHash(data any) string {
	skeleton := typeSkeleton(data)

	raw, err := json.Marshal(skeleton)
	if err != nil {
		raw = []byte(fmt.Sprint(skeleton))
	}

	sum := md5.Sum(raw) //nolint:gosec // change detection, not security

	return hex.EncodeToString(sum[:])
}

// typeSkeleton reduces a decoded value to its shape: maps keep their
// keys, lists are sampled as the type names of their first elements.
func typeSkeleton(data any) any {
	const listSample = 3

	switch v := data.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		skeleton := make(map[string]any, len(v))
		for _, key := range keys {
			skeleton[key] = typeSkeleton(v[key])
		}

		return skeleton
	case []any:
		names := make([]string, 0, listSample)
		for i, item := range v {
			if i >= listSample {
				break
			}
			names = append(names, fmt.Sprintf("%T", item))
		}

		return names
	default:
		return fmt.Sprintf("%T", v)
	}
}
