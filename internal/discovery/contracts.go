package discovery

import (
	"fmt"
	"strings"

	"github.com/Brobert48/nhl-led-scoreboard/internal/domain"
)

// Contract describes what a valid response for a domain must look like
// and which path templates are known to serve it.
type Contract struct {
	// RequiredKeys must all be present at the top level.
	RequiredKeys []string
	// ListField names the list-valued top-level field whose first
	// element is checked, if any.
	ListField string
	// ElementKeys must all be present on the first element of ListField.
	ElementKeys []string
	// Templates are provider paths relative to a source base URL.
	// {param} placeholders are substituted before use.
	Templates []string
	// Keywords classify URLs found by page-scan strategies.
	Keywords []string
}

// contracts holds the per-domain validation patterns and known path
// templates.
var contracts = map[string]Contract{
	domain.LiveGame: {
		RequiredKeys: []string{"games", "gameDate"},
		ListField:    "games",
		ElementKeys:  []string{"awayTeam", "homeTeam", "gameState"},
		Templates: []string{
			"/score/{date}",
			"/gamecenter/{game_id}/play-by-play",
		},
		Keywords: []string{"game", "score", "live", "play-by-play"},
	},
	domain.Standings: {
		RequiredKeys: []string{"standings"},
		ListField:    "standings",
		ElementKeys:  []string{"teamName", "wins", "losses"},
		Templates: []string{
			"/standings",
			"/standings/wildCardWithLeaders",
		},
		Keywords: []string{"standing", "ranking", "table"},
	},
	domain.TeamInfo: {
		RequiredKeys: []string{"data"},
		ListField:    "data",
		ElementKeys:  []string{"id", "triCode", "fullName"},
		Templates: []string{
			"/teams",
			"/stats/rest/en/team",
		},
		Keywords: []string{"team", "roster", "info"},
	},
	domain.Schedule: {
		RequiredKeys: []string{"games"},
		ListField:    "games",
		ElementKeys:  []string{"gameDate", "awayTeam", "homeTeam"},
		Templates: []string{
			"/schedule",
			"/club-schedule-season/{team_abbrev}/{season}",
		},
		Keywords: []string{"schedule", "calendar", "upcoming"},
	},
	domain.PlayerStats: {
		RequiredKeys: []string{"people"},
		ListField:    "people",
		ElementKeys:  []string{"id", "fullName", "stats"},
		Templates: []string{
			"/people/{player_id}",
			"/stats/rest/en/skater",
		},
		Keywords: []string{"player", "people", "skater", "stat"},
	},
	domain.Playoffs: {
		RequiredKeys: []string{"rounds"},
		Templates: []string{
			"/tournaments/playoffs",
			"/playoffs/{season}",
			"/tournaments/{tournament_id}",
			"/standings-season",
		},
		Keywords: []string{"playoff", "tournament", "bracket"},
	},
	domain.SeasonSchedule: {
		RequiredKeys: []string{"seasonId"},
		Templates: []string{
			"/seasons/current",
			"/seasons/{season_id}",
			"/schedule-calendar/{season}",
			"/season",
		},
		Keywords: []string{"season"},
	},
}

// ContractFor returns the contract for a domain. Unknown domains get an
// empty contract, which accepts any object.
func ContractFor(domainName string) Contract {
	return contracts[domainName]
}

// ValidatePayload checks a decoded response against the domain
// contract: required top-level keys, and the minimal key set on the
// first element of the list field.
func ValidatePayload(domainName string, payload map[string]any) error {
	contract := ContractFor(domainName)

	for _, key := range contract.RequiredKeys {
		if _, ok := payload[key]; !ok {
			return fmt.Errorf("missing required key %q", key)
		}
	}

	if contract.ListField == "" {
		return nil
	}

	list, ok := payload[contract.ListField].([]any)
	if !ok || len(list) == 0 {
		// An empty list is a valid answer (no games today).
		return nil
	}

	first, ok := list[0].(map[string]any)
	if !ok {
		return fmt.Errorf("first element of %q is not an object", contract.ListField)
	}

	for _, key := range contract.ElementKeys {
		if _, ok := first[key]; !ok {
			return fmt.Errorf("element of %q missing key %q", contract.ListField, key)
		}
	}

	return nil
}

// RelevantURL reports whether a scanned URL looks like it serves the
// domain, based on the contract's keywords.
func RelevantURL(domainName, rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, keyword := range ContractFor(domainName).Keywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}

	return false
}
