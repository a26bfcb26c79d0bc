package normalize

import (
	"strings"

	"github.com/Brobert48/nhl-led-scoreboard/internal/domain"
)

// Source names with built-in rule sets. Configured sources match these
// by exact name first, then case-insensitive containment either way.
const (
	sourceNHLOfficial = "nhl_official"
	sourceNHLLegacy   = "nhl_legacy"
	sourceESPN        = "espn"
	sourceBackupJSON  = "backup_json"
)

// buildRuleSets constructs the static rule table, keyed by domain then
// source.
func buildRuleSets() map[string]map[string][]*Rule {
	return map[string]map[string][]*Rule{
		domain.LiveGame: {
			sourceNHLOfficial: officialGameRules(),
			sourceNHLLegacy:   legacyGameRules(),
			sourceESPN:        espnGameRules(),
		},
		domain.Standings: {
			sourceNHLOfficial: officialStandingsRules(),
			sourceESPN:        espnStandingsRules(),
		},
		domain.TeamInfo: {
			sourceNHLOfficial: officialTeamRules(),
			sourceBackupJSON:  officialTeamRules(),
		},
		domain.Schedule: {
			sourceNHLOfficial: officialScheduleRules(),
			sourceESPN:        espnScheduleRules(),
		},
		domain.PlayerStats: {
			sourceNHLOfficial: officialPlayerRules(),
		},
		domain.Playoffs: {
			sourceNHLOfficial: officialPlayoffsRules(),
			sourceESPN:        espnPlayoffsRules(),
		},
		domain.SeasonSchedule: {
			sourceNHLOfficial: officialSeasonRules(),
			sourceESPN:        espnSeasonRules(),
		},
	}
}

// officialGameRules maps the official score feed to the canonical game
// shape. The feed already uses canonical names, so most rules are
// pass-through with defaults for fields absent before puck drop.
func officialGameRules() []*Rule {
	return []*Rule{
		{SourcePath: "games", TargetPath: "games", Scope: ScopeRoot, Required: true},
		{SourcePath: "date", TargetPath: "gameDate", Scope: ScopeTop},

		{SourcePath: "id", TargetPath: "id", Required: true},
		{SourcePath: "gameDate", TargetPath: "gameDate", Required: true},
		{SourcePath: "startTimeUTC", TargetPath: "startTimeUTC", Required: true},
		{SourcePath: "gameState", TargetPath: "gameState", Required: true},
		{SourcePath: "gameType", TargetPath: "gameType", Default: 2},

		{SourcePath: "awayTeam.id", TargetPath: "awayTeam.id", Required: true},
		{SourcePath: "awayTeam.name.default", TargetPath: "awayTeam.name.default", Required: true},
		{SourcePath: "awayTeam.abbrev", TargetPath: "awayTeam.abbrev", Required: true},
		{SourcePath: "awayTeam.score", TargetPath: "awayTeam.score", Default: 0},
		{SourcePath: "awayTeam.sog", TargetPath: "awayTeam.sog", Default: 0},

		{SourcePath: "homeTeam.id", TargetPath: "homeTeam.id", Required: true},
		{SourcePath: "homeTeam.name.default", TargetPath: "homeTeam.name.default", Required: true},
		{SourcePath: "homeTeam.abbrev", TargetPath: "homeTeam.abbrev", Required: true},
		{SourcePath: "homeTeam.score", TargetPath: "homeTeam.score", Default: 0},
		{SourcePath: "homeTeam.sog", TargetPath: "homeTeam.sog", Default: 0},

		{SourcePath: "clock.timeRemaining", TargetPath: "clock.timeRemaining"},
		{SourcePath: "clock.inIntermission", TargetPath: "clock.inIntermission", Default: false},
		{SourcePath: "periodDescriptor.number", TargetPath: "periodDescriptor.number", Default: 1},
		{SourcePath: "periodDescriptor.periodType", TargetPath: "periodDescriptor.periodType"},

		{SourcePath: "situation", TargetPath: "situation"},
	}
}

// espnGameRules maps the alternate scoreboard feed. Competitor index 0
// is the home side, index 1 the away side.
func espnGameRules() []*Rule {
	return []*Rule{
		{SourcePath: "events", TargetPath: "games", Scope: ScopeRoot, Required: true},
		{SourcePath: "day.date", TargetPath: "gameDate", Scope: ScopeTop},

		{SourcePath: "id", TargetPath: "id", Required: true},
		{SourcePath: "date", TargetPath: "gameDate", Transform: isoDate},
		{SourcePath: "date", TargetPath: "startTimeUTC", Transform: isoToUTC},
		{SourcePath: "status.type.name", TargetPath: "gameState", Transform: mapAlternateStatus},

		{SourcePath: "competitions[0].competitors[1].team.id", TargetPath: "awayTeam.id", Required: true},
		{SourcePath: "competitions[0].competitors[1].team.displayName", TargetPath: "awayTeam.name.default", Required: true},
		{SourcePath: "competitions[0].competitors[1].team.abbreviation", TargetPath: "awayTeam.abbrev", Required: true},
		{SourcePath: "competitions[0].competitors[1].score", TargetPath: "awayTeam.score", Transform: toInt, Default: 0},

		{SourcePath: "competitions[0].competitors[0].team.id", TargetPath: "homeTeam.id", Required: true},
		{SourcePath: "competitions[0].competitors[0].team.displayName", TargetPath: "homeTeam.name.default", Required: true},
		{SourcePath: "competitions[0].competitors[0].team.abbreviation", TargetPath: "homeTeam.abbrev", Required: true},
		{SourcePath: "competitions[0].competitors[0].score", TargetPath: "homeTeam.score", Transform: toInt, Default: 0},
	}
}

func officialStandingsRules() []*Rule {
	return []*Rule{
		{SourcePath: "standings", TargetPath: "standings", Scope: ScopeRoot, Required: true},

		{SourcePath: "teamName.default", TargetPath: "teamName.default", Required: true},
		{SourcePath: "teamAbbrev.default", TargetPath: "teamAbbrev.default", Required: true},
		{SourcePath: "wins", TargetPath: "wins", Required: true},
		{SourcePath: "losses", TargetPath: "losses", Required: true},
		{SourcePath: "otLosses", TargetPath: "otLosses", Default: 0},
		{SourcePath: "points", TargetPath: "points", Required: true},
		{SourcePath: "divisionSequence", TargetPath: "divisionSequence"},
		{SourcePath: "conferenceSequence", TargetPath: "conferenceSequence"},
		{SourcePath: "leagueSequence", TargetPath: "leagueSequence"},
	}
}

// espnStandingsRules maps the alternate standings feed, whose stat
// values sit in a positional array.
func espnStandingsRules() []*Rule {
	return []*Rule{
		{SourcePath: "children[0].standings.entries", TargetPath: "standings", Scope: ScopeRoot, Required: true},

		{SourcePath: "team.displayName", TargetPath: "teamName.default", Required: true},
		{SourcePath: "team.abbreviation", TargetPath: "teamAbbrev.default", Required: true},
		{SourcePath: "stats[0].value", TargetPath: "wins", Transform: toInt, Required: true},
		{SourcePath: "stats[1].value", TargetPath: "losses", Transform: toInt, Required: true},
		{SourcePath: "stats[2].value", TargetPath: "otLosses", Transform: toInt, Default: 0},
		{SourcePath: "stats[7].value", TargetPath: "points", Transform: toInt, Required: true},
	}
}

func officialTeamRules() []*Rule {
	return []*Rule{
		{SourcePath: "data", TargetPath: "data", Scope: ScopeRoot, Required: true},

		{SourcePath: "id", TargetPath: "id", Required: true},
		{SourcePath: "triCode", TargetPath: "triCode", Required: true},
		{SourcePath: "fullName", TargetPath: "fullName", Required: true},
		{SourcePath: "teamName", TargetPath: "teamName"},
		{SourcePath: "locationName", TargetPath: "locationName"},
	}
}

func officialScheduleRules() []*Rule {
	return []*Rule{
		{SourcePath: "games", TargetPath: "games", Scope: ScopeRoot, Required: true},

		{SourcePath: "id", TargetPath: "id", Required: true},
		{SourcePath: "gameDate", TargetPath: "gameDate", Required: true},
		{SourcePath: "startTimeUTC", TargetPath: "startTimeUTC", Required: true},
		{SourcePath: "gameState", TargetPath: "gameState", Required: true},
		{SourcePath: "awayTeam", TargetPath: "awayTeam", Required: true},
		{SourcePath: "homeTeam", TargetPath: "homeTeam", Required: true},
	}
}

func espnScheduleRules() []*Rule {
	return []*Rule{
		{SourcePath: "events", TargetPath: "games", Scope: ScopeRoot, Required: true},

		{SourcePath: "id", TargetPath: "id", Required: true},
		{SourcePath: "date", TargetPath: "gameDate", Transform: isoDate},
		{SourcePath: "date", TargetPath: "startTimeUTC", Transform: isoToUTC},
		{SourcePath: "status.type.name", TargetPath: "gameState", Transform: mapAlternateStatus},
	}
}

// legacyGameRules covers the legacy stats API, which serves the same
// structural shape as the current official feed.
func legacyGameRules() []*Rule {
	return officialGameRules()
}

func officialPlayerRules() []*Rule {
	return []*Rule{
		{SourcePath: "people", TargetPath: "people", Scope: ScopeRoot, Required: true},

		{SourcePath: "id", TargetPath: "id", Required: true},
		{SourcePath: "fullName", TargetPath: "fullName", Required: true},
		{SourcePath: "currentTeam.id", TargetPath: "currentTeam.id"},
		{SourcePath: "stats", TargetPath: "stats", Default: []any{}},
	}
}

func officialPlayoffsRules() []*Rule {
	return []*Rule{
		{SourcePath: "rounds", TargetPath: "rounds", Scope: ScopeRoot, Required: true},
		{SourcePath: "defaultRound", TargetPath: "defaultRound", Scope: ScopeTop, Required: true},
		{SourcePath: "season", TargetPath: "season", Scope: ScopeTop},

		{SourcePath: "seriesLetter", TargetPath: "seriesLetter", Required: true},
		{SourcePath: "matchupTeams", TargetPath: "matchupTeams", Required: true},
		{SourcePath: "currentGame.seriesStatus", TargetPath: "currentGame.seriesStatus"},
		{SourcePath: "seriesRecord.wins", TargetPath: "seriesRecord.wins", Default: 0},
		{SourcePath: "seriesRecord.losses", TargetPath: "seriesRecord.losses", Default: 0},
	}
}

// espnPlayoffsRules maps the alternate bracket feed. Tournaments and
// competitors need structural transforms into the canonical rounds and
// matchup shapes.
func espnPlayoffsRules() []*Rule {
	return []*Rule{
		{SourcePath: "tournaments", TargetPath: "rounds", Transform: espnTournamentRounds},
		{SourcePath: "season.year", TargetPath: "season"},
		{SourcePath: "name", TargetPath: "seriesLetter"},
		{SourcePath: "competitors", TargetPath: "matchupTeams", Transform: espnMatchupTeams},
	}
}

func officialSeasonRules() []*Rule {
	return []*Rule{
		{SourcePath: "seasonId", TargetPath: "seasonId", Required: true},
		{SourcePath: "regularSeasonStartDate", TargetPath: "regularSeasonStartDate"},
		{SourcePath: "regularSeasonEndDate", TargetPath: "regularSeasonEndDate"},
		{SourcePath: "playoffStartDate", TargetPath: "playoffStartDate"},
		{SourcePath: "playoffEndDate", TargetPath: "playoffEndDate"},
		{SourcePath: "startDate", TargetPath: "startDate"},
		{SourcePath: "endDate", TargetPath: "endDate"},
	}
}

func espnSeasonRules() []*Rule {
	return []*Rule{
		{SourcePath: "season.year", TargetPath: "seasonId", Transform: espnSeasonID},
		{SourcePath: "season.startDate", TargetPath: "regularSeasonStartDate", Transform: isoDate},
		{SourcePath: "season.endDate", TargetPath: "regularSeasonEndDate", Transform: isoDate},
	}
}

// matchSource resolves a configured source name against the rule table
// keys: exact match first, then case-insensitive containment in either
// direction.
func matchSource(domainRules map[string][]*Rule, sourceName string) ([]*Rule, bool) {
	if rules, ok := domainRules[sourceName]; ok {
		return rules, true
	}

	lower := strings.ToLower(sourceName)
	for key, rules := range domainRules {
		keyLower := strings.ToLower(key)
		if strings.Contains(lower, keyLower) || strings.Contains(keyLower, lower) {
			return rules, true
		}
	}

	return nil, false
}
