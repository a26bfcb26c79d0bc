package discovery

import (
	"regexp"
	"strings"
)

// Discovery methods, in surfacing priority order.
const (
	MethodStatic = "static"
	MethodHTML   = "html"
)

// methodPriority orders endpoints by how they were found. Statically
// templated endpoints are trusted over page-derived ones.
var methodPriority = map[string]int{
	MethodStatic: 0,
	MethodHTML:   1,
}

// Endpoint is one candidate URL for a (domain, source) pair. Identity
// is URL + domain + source; the remaining fields are mutable validation
// state.
type Endpoint struct {
	URL             string            `json:"url" mapstructure:"url"`
	Domain          string            `json:"domain" mapstructure:"domain"`
	SourceName      string            `json:"source_name" mapstructure:"source_name"`
	Method          string            `json:"method" mapstructure:"method"`
	RequiresParams  bool              `json:"requires_params" mapstructure:"requires_params"`
	SampleParams    map[string]string `json:"sample_params,omitempty" mapstructure:"sample_params"`
	DiscoveryMethod string            `json:"discovery_method" mapstructure:"discovery_method"`
	LastValidated   int64             `json:"last_validated" mapstructure:"last_validated"`
	ValidationOK    bool              `json:"validation_success" mapstructure:"validation_success"`
	ExpectedKeys    []string          `json:"expected_keys,omitempty" mapstructure:"expected_keys"`
	FingerprintHash string            `json:"fingerprint_hash,omitempty" mapstructure:"fingerprint_hash"`
}

var placeholderPattern = regexp.MustCompile(`\{([a-z_]+)\}`)

// Resolve substitutes parameter values into the endpoint's URL
// template. Placeholders without a value are left in place so the
// failure is visible in logs rather than silently truncated.
func (e *Endpoint) Resolve(params map[string]string) string {
	if !e.RequiresParams {
		return e.URL
	}

	return placeholderPattern.ReplaceAllStringFunc(e.URL, func(match string) string {
		name := strings.Trim(match, "{}")
		if value, ok := params[name]; ok {
			return value
		}

		return match
	})
}

// hasPlaceholders reports whether a URL template carries {param}
// placeholders.
func hasPlaceholders(url string) bool {
	return placeholderPattern.MatchString(url)
}

// IsFile reports whether the endpoint points at a local file.
func (e *Endpoint) IsFile() bool {
	return strings.HasPrefix(e.URL, "file://")
}

// FilePath returns the local path for a file endpoint.
func (e *Endpoint) FilePath() string {
	return strings.TrimPrefix(e.URL, "file://")
}
