// Package season computes the parameter values substituted into
// templated endpoint URLs: current date, season string and team
// abbreviation. Discovery and polling both use this package so the two
// stages can never disagree about season rollover.
package season

import (
	"fmt"
	"time"
)

// Sample identifiers, syntactically valid values used when a template
// needs an id before any real one is known.
const (
	sampleGameID       = "2023020001"
	samplePlayerID     = "8478402"
	sampleTournamentID = "1"
)

// rolloverMonth is the last month attributed to the previous season.
// A date in June or earlier belongs to the season that started the
// year before.
const rolloverMonth = time.June

// String returns the season identifier for a point in time, formatted
// as the concatenated start and end years (e.g. "20252026").
func String(at time.Time) string {
	startYear := at.Year()
	if at.Month() <= rolloverMonth {
		startYear--
	}

	return fmt.Sprintf("%d%d", startYear, startYear+1)
}

// Date returns the date parameter value for a point in time.
func Date(at time.Time) string {
	return at.Format("2006-01-02")
}

// Params returns the substitution values for every placeholder a
// templated endpoint may carry.
func Params(at time.Time, preferredTeams []string) map[string]string {
	abbrev := "TOR"
	if len(preferredTeams) > 0 {
		abbrev = TeamAbbrev(preferredTeams[0])
	}

	return map[string]string{
		"date":          Date(at),
		"season":        String(at),
		"season_id":     String(at),
		"team_abbrev":   abbrev,
		"game_id":       sampleGameID,
		"player_id":     samplePlayerID,
		"tournament_id": sampleTournamentID,
	}
}

// teamAbbrevs maps full team names to their tri-code abbreviations.
var teamAbbrevs = map[string]string{
	"Anaheim Ducks":         "ANA",
	"Boston Bruins":         "BOS",
	"Buffalo Sabres":        "BUF",
	"Calgary Flames":        "CGY",
	"Carolina Hurricanes":   "CAR",
	"Chicago Blackhawks":    "CHI",
	"Colorado Avalanche":    "COL",
	"Columbus Blue Jackets": "CBJ",
	"Dallas Stars":          "DAL",
	"Detroit Red Wings":     "DET",
	"Edmonton Oilers":       "EDM",
	"Florida Panthers":      "FLA",
	"Los Angeles Kings":     "LAK",
	"Minnesota Wild":        "MIN",
	"Montreal Canadiens":    "MTL",
	"Nashville Predators":   "NSH",
	"New Jersey Devils":     "NJD",
	"New York Islanders":    "NYI",
	"New York Rangers":      "NYR",
	"Ottawa Senators":       "OTT",
	"Philadelphia Flyers":   "PHI",
	"Pittsburgh Penguins":   "PIT",
	"San Jose Sharks":       "SJS",
	"Seattle Kraken":        "SEA",
	"St. Louis Blues":       "STL",
	"Tampa Bay Lightning":   "TBL",
	"Toronto Maple Leafs":   "TOR",
	"Utah Hockey Club":      "UTA",
	"Vancouver Canucks":     "VAN",
	"Vegas Golden Knights":  "VGK",
	"Washington Capitals":   "WSH",
	"Winnipeg Jets":         "WPG",
}

// TeamAbbrev converts a full team name to its abbreviation, falling
// back to TOR for unknown names.
func TeamAbbrev(teamName string) string {
	if abbrev, ok := teamAbbrevs[teamName]; ok {
		return abbrev
	}

	return "TOR"
}
