package discovery_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brobert48/nhl-led-scoreboard/internal/config"
	"github.com/Brobert48/nhl-led-scoreboard/internal/discovery"
	"github.com/Brobert48/nhl-led-scoreboard/internal/httpclient"
	"github.com/Brobert48/nhl-led-scoreboard/internal/logger"
)

const landingPage = `<!doctype html>
<html>
<head>
<script src="https://cdn.test/static/app.js"></script>
<script>
var config = {
  scores: "https://api.test/v1/scoreboard",
  news: "https://api.test/v1/news"
};
</script>
</head>
<body>
<a href="https://api.test/v1/standings">League standings</a>
<a href="/relative/ignored">Relative</a>
</body>
</html>`

func TestHTMLScanStrategyExtractsRelevantURLs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(landingPage))
	}))
	defer server.Close()

	client := httpclient.New(httpclient.Config{})
	strategy := discovery.NewHTMLScanStrategy(client, logger.NewNoop())

	source := config.SourceConfig{Name: "espn", BaseURL: server.URL, TimeoutSeconds: 5}

	endpoints, err := strategy.Discover(context.Background(), "standings", source)
	require.NoError(t, err)

	require.Len(t, endpoints, 1)
	assert.Equal(t, "https://api.test/v1/standings", endpoints[0].URL)
	assert.Equal(t, discovery.MethodHTML, endpoints[0].DiscoveryMethod)
	assert.Equal(t, "espn", endpoints[0].SourceName)
}

func TestHTMLScanStrategyScoreKeywords(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(landingPage))
	}))
	defer server.Close()

	client := httpclient.New(httpclient.Config{})
	strategy := discovery.NewHTMLScanStrategy(client, logger.NewNoop())

	source := config.SourceConfig{Name: "espn", BaseURL: server.URL, TimeoutSeconds: 5}

	endpoints, err := strategy.Discover(context.Background(), "live_game", source)
	require.NoError(t, err)

	// The inline-script scoreboard URL matches the live_game keywords.
	require.Len(t, endpoints, 1)
	assert.Equal(t, "https://api.test/v1/scoreboard", endpoints[0].URL)
}

func TestHTMLScanStrategyNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := httpclient.New(httpclient.Config{})
	strategy := discovery.NewHTMLScanStrategy(client, logger.NewNoop())

	source := config.SourceConfig{Name: "espn", BaseURL: server.URL, TimeoutSeconds: 5}

	_, err := strategy.Discover(context.Background(), "standings", source)
	assert.Error(t, err)
}
