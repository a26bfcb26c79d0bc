package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Scope controls where a rule is evaluated when a payload carries a
// root-level list.
type Scope int

const (
	// ScopeItem rules apply to each element of the root list (or to the
	// whole payload when there is no root list).
	ScopeItem Scope = iota
	// ScopeRoot marks the rule whose source resolves to the root list.
	ScopeRoot
	// ScopeTop rules apply to the payload's top level even when a root
	// list is present.
	ScopeTop
)

// Transform converts an extracted value before it is written to the
// target path.
type Transform func(value any) (any, error)

// Rule maps one source path to one target path. Rules are defined
// statically per (domain, source); only drift adaptation mutates them
// afterwards (path substitution or required-to-optional relaxation).
type Rule struct {
	SourcePath string
	TargetPath string
	Scope      Scope
	Transform  Transform
	Required   bool
	Default    any
}

var bracketIndex = regexp.MustCompile(`\[(\d+)\]`)

// gjsonPath converts bracket indexing to gjson syntax:
// a[0].b becomes a.0.b.
func gjsonPath(path string) string {
	return bracketIndex.ReplaceAllString(path, ".$1")
}

// resolve extracts the rule's source value from a JSON document.
func (r *Rule) resolve(rawJSON []byte) (any, bool) {
	result := gjson.GetBytes(rawJSON, gjsonPath(r.SourcePath))
	if !result.Exists() {
		return nil, false
	}

	return result.Value(), true
}

// setPath writes a value into a nested map, creating intermediate maps
// along the dotted target path.
func setPath(target map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := target

	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}

	current[parts[len(parts)-1]] = value
}

// terminalSegment returns the last path segment, stripped of any index.
func terminalSegment(path string) string {
	parts := strings.Split(path, ".")
	last := parts[len(parts)-1]

	if idx := strings.IndexByte(last, '['); idx >= 0 {
		last = last[:idx]
	}

	return last
}

// defaultForTarget picks a type-appropriate default for a relaxed rule
// based on what the target path names.
func defaultForTarget(targetPath string) any {
	lower := strings.ToLower(targetPath)

	switch {
	case strings.Contains(lower, "score"), strings.Contains(lower, "sog"):
		return 0
	case strings.Contains(lower, "intermission"):
		return false
	case strings.Contains(lower, "plays"):
		return []any{}
	case strings.Contains(lower, "id"):
		return 0
	case strings.Contains(lower, "name"):
		return "Unknown"
	case strings.Contains(lower, "state"):
		return "UNKNOWN"
	default:
		return nil
	}
}

// toInt coerces JSON numbers and numeric strings to int.
func toInt(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("to int: %w", err)
		}
		return parsed, nil
	default:
		return nil, fmt.Errorf("to int: unsupported type %T", value)
	}
}

// isoDate extracts the date part of an ISO datetime string.
func isoDate(value any) (any, error) {
	str, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("iso date: unsupported type %T", value)
	}

	if idx := strings.IndexByte(str, 'T'); idx >= 0 {
		return str[:idx], nil
	}

	return str, nil
}

// isoToUTC reformats an ISO datetime into the canonical UTC form.
func isoToUTC(value any) (any, error) {
	str, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("iso to utc: unsupported type %T", value)
	}

	parsed, err := time.Parse(time.RFC3339, strings.Replace(str, "Z", "+00:00", 1))
	if err != nil {
		// Pass unparseable values through unchanged.
		return str, nil //nolint:nilerr // deliberate pass-through
	}

	return parsed.UTC().Format("2006-01-02T15:04:05Z"), nil
}

// alternateStatusMap translates the alternate provider's verbose game
// statuses to the canonical state vocabulary. Unmapped statuses pass
// through unchanged.
var alternateStatusMap = map[string]string{
	"STATUS_SCHEDULED":   "FUT",
	"STATUS_IN_PROGRESS": "LIVE",
	"STATUS_FINAL":       "FINAL",
	"STATUS_POSTPONED":   "PPD",
	"STATUS_CANCELED":    "CAN",
}

func mapAlternateStatus(value any) (any, error) {
	str, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("map status: unsupported type %T", value)
	}

	if mapped, found := alternateStatusMap[str]; found {
		return mapped, nil
	}

	return str, nil
}

// espnTournamentRounds restructures the alternate provider's tournament
// list into the canonical numbered rounds object.
func espnTournamentRounds(value any) (any, error) {
	tournaments, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("tournament rounds: unsupported type %T", value)
	}

	rounds := make(map[string]any, len(tournaments))
	for i, item := range tournaments {
		tournament, isMap := item.(map[string]any)
		if !isMap {
			continue
		}

		series, _ := tournament["events"].([]any)
		if series == nil {
			series = []any{}
		}

		name, _ := tournament["name"].(string)
		if name == "" {
			name = fmt.Sprintf("Round %d", i+1)
		}

		rounds[strconv.Itoa(i+1)] = map[string]any{
			"series": series,
			"name":   name,
		}
	}

	return rounds, nil
}

// espnMatchupTeams converts the alternate provider's competitor list to
// the canonical matchup shape. Fewer than two competitors is not a
// matchup.
func espnMatchupTeams(value any) (any, error) {
	competitors, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("matchup teams: unsupported type %T", value)
	}

	if len(competitors) < 2 {
		return []any{}, nil
	}

	teams := make([]any, 0, len(competitors))
	for _, item := range competitors {
		competitor, isMap := item.(map[string]any)
		if !isMap {
			continue
		}

		team, _ := competitor["team"].(map[string]any)

		wins := competitor["wins"]
		if wins == nil {
			wins = 0
		}
		losses := competitor["losses"]
		if losses == nil {
			losses = 0
		}

		teams = append(teams, map[string]any{
			"team": map[string]any{
				"id":      team["id"],
				"name":    team["displayName"],
				"triCode": team["abbreviation"],
			},
			"seriesRecord": map[string]any{
				"wins":   wins,
				"losses": losses,
			},
		})
	}

	return teams, nil
}

// espnSeasonID converts a season start year to the canonical
// eight-digit season id, 2023 becoming "20232024".
func espnSeasonID(value any) (any, error) {
	switch v := value.(type) {
	case float64:
		year := int(v)
		return fmt.Sprintf("%d%d", year, year+1), nil
	case int:
		return fmt.Sprintf("%d%d", v, v+1), nil
	default:
		return fmt.Sprint(value), nil
	}
}
