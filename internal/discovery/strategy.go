package discovery

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Brobert48/nhl-led-scoreboard/internal/config"
	"github.com/Brobert48/nhl-led-scoreboard/internal/httpclient"
	"github.com/Brobert48/nhl-led-scoreboard/internal/logger"
)

// Strategy is an auxiliary endpoint discovery mechanism tried when
// static templates produce nothing for a source. Strategies are best
// effort: an error degrades discovery for that source, never fails it.
type Strategy interface {
	Name() string
	Discover(ctx context.Context, domainName string, source config.SourceConfig) ([]*Endpoint, error)
}

// HTMLScanStrategy fetches a source's landing page and scans it for
// embedded API URLs relevant to the domain.
type HTMLScanStrategy struct {
	client *httpclient.Client
	log    logger.Interface
}

// NewHTMLScanStrategy creates the page-scan strategy.
func NewHTMLScanStrategy(client *httpclient.Client, log logger.Interface) *HTMLScanStrategy {
	return &HTMLScanStrategy{client: client, log: log}
}

// Name identifies the strategy in logs.
func (s *HTMLScanStrategy) Name() string {
	return "html_scan"
}

// scriptURLPattern matches absolute API-looking URLs embedded in
// script bodies.
var scriptURLPattern = regexp.MustCompile(`https?://[^\s"'<>]+/(?:api|v\d)[^\s"'<>]*`)

// Discover fetches the landing page and extracts candidate API URLs
// from anchors, script sources and inline script text.
func (s *HTMLScanStrategy) Discover(ctx context.Context, domainName string, source config.SourceConfig) ([]*Endpoint, error) {
	resp, err := s.client.Fetch(ctx, httpclient.FetchParams{
		URL:     source.BaseURL,
		Timeout: time.Duration(source.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("html scan fetch: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("html scan status %d", resp.StatusCode)
	}

	doc, parseErr := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if parseErr != nil {
		return nil, fmt.Errorf("html scan parse: %w", parseErr)
	}

	seen := make(map[string]struct{})
	candidates := make([]string, 0)

	collect := func(rawURL string) {
		rawURL = strings.TrimSpace(rawURL)
		if rawURL == "" || !strings.HasPrefix(rawURL, "http") {
			return
		}
		if _, dup := seen[rawURL]; dup {
			return
		}

		seen[rawURL] = struct{}{}
		candidates = append(candidates, rawURL)
	}

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Attr("href"); ok {
			collect(href)
		}
	})

	doc.Find("script[src]").Each(func(_ int, sel *goquery.Selection) {
		if src, ok := sel.Attr("src"); ok {
			collect(src)
		}
	})

	doc.Find("script").Each(func(_ int, sel *goquery.Selection) {
		for _, match := range scriptURLPattern.FindAllString(sel.Text(), -1) {
			collect(match)
		}
	})

	endpoints := make([]*Endpoint, 0)
	for _, rawURL := range candidates {
		if !RelevantURL(domainName, rawURL) {
			continue
		}

		endpoints = append(endpoints, &Endpoint{
			URL:             rawURL,
			Domain:          domainName,
			SourceName:      source.Name,
			Method:          http.MethodGet,
			DiscoveryMethod: MethodHTML,
		})
	}

	s.log.Debug("html scan complete",
		"source", source.Name,
		"domain", domainName,
		"candidates", len(candidates),
		"relevant", len(endpoints),
	)

	return endpoints, nil
}
