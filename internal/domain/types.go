package domain

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// SourceInfo is the provenance block attached to every normalized
// payload under the "_source_info" key.
type SourceInfo struct {
	SourceName            string `mapstructure:"source_name" json:"source_name"`
	Domain                string `mapstructure:"domain" json:"domain"`
	ParsedAt              string `mapstructure:"parsed_at" json:"parsed_at"`
	OriginalStructureHash string `mapstructure:"original_structure_hash" json:"original_structure_hash"`
}

// LocalizedName mirrors the official API's {default: "..."} name shape.
type LocalizedName struct {
	Default string `mapstructure:"default" json:"default"`
}

// TeamSide is one side of a game.
type TeamSide struct {
	ID     int           `mapstructure:"id" json:"id"`
	Name   LocalizedName `mapstructure:"name" json:"name"`
	Abbrev string        `mapstructure:"abbrev" json:"abbrev"`
	Score  int           `mapstructure:"score" json:"score"`
	SOG    int           `mapstructure:"sog" json:"sog"`
}

// Clock is the game clock descriptor.
type Clock struct {
	TimeRemaining  string `mapstructure:"timeRemaining" json:"timeRemaining"`
	InIntermission bool   `mapstructure:"inIntermission" json:"inIntermission"`
}

// PeriodDescriptor identifies the current period.
type PeriodDescriptor struct {
	Number     int    `mapstructure:"number" json:"number"`
	PeriodType string `mapstructure:"periodType" json:"periodType"`
}

// Game is one canonical game record.
type Game struct {
	ID               int              `mapstructure:"id" json:"id"`
	GameDate         string           `mapstructure:"gameDate" json:"gameDate"`
	StartTimeUTC     string           `mapstructure:"startTimeUTC" json:"startTimeUTC"`
	GameState        string           `mapstructure:"gameState" json:"gameState"`
	AwayTeam         TeamSide         `mapstructure:"awayTeam" json:"awayTeam"`
	HomeTeam         TeamSide         `mapstructure:"homeTeam" json:"homeTeam"`
	Clock            Clock            `mapstructure:"clock" json:"clock"`
	PeriodDescriptor PeriodDescriptor `mapstructure:"periodDescriptor" json:"periodDescriptor"`
}

// GamePayload is the canonical live_game / schedule domain payload.
type GamePayload struct {
	Games      []Game     `mapstructure:"games" json:"games"`
	GameDate   string     `mapstructure:"gameDate" json:"gameDate"`
	SourceInfo SourceInfo `mapstructure:"_source_info" json:"_source_info"`
}

// Standing is one canonical standings row.
type Standing struct {
	TeamName   LocalizedName `mapstructure:"teamName" json:"teamName"`
	TeamAbbrev LocalizedName `mapstructure:"teamAbbrev" json:"teamAbbrev"`
	Wins       int           `mapstructure:"wins" json:"wins"`
	Losses     int           `mapstructure:"losses" json:"losses"`
	OTLosses   int           `mapstructure:"otLosses" json:"otLosses"`
	Points     int           `mapstructure:"points" json:"points"`
}

// StandingsPayload is the canonical standings domain payload.
type StandingsPayload struct {
	Standings  []Standing `mapstructure:"standings" json:"standings"`
	SourceInfo SourceInfo `mapstructure:"_source_info" json:"_source_info"`
}

// Team is one canonical team_info record.
type Team struct {
	ID       int    `mapstructure:"id" json:"id"`
	TriCode  string `mapstructure:"triCode" json:"triCode"`
	FullName string `mapstructure:"fullName" json:"fullName"`
}

// TeamPayload is the canonical team_info domain payload.
type TeamPayload struct {
	Data       []Team     `mapstructure:"data" json:"data"`
	SourceInfo SourceInfo `mapstructure:"_source_info" json:"_source_info"`
}

// DecodeGamePayload converts a normalized map payload into the typed
// canonical form. Decoding is weakly typed so that scores delivered as
// strings or floats by looser upstreams still land.
func DecodeGamePayload(payload map[string]any) (*GamePayload, error) {
	var out GamePayload
	if err := decode(payload, &out); err != nil {
		return nil, fmt.Errorf("decode game payload: %w", err)
	}

	return &out, nil
}

// DecodeStandingsPayload converts a normalized map payload into the
// typed standings form.
func DecodeStandingsPayload(payload map[string]any) (*StandingsPayload, error) {
	var out StandingsPayload
	if err := decode(payload, &out); err != nil {
		return nil, fmt.Errorf("decode standings payload: %w", err)
	}

	return &out, nil
}

// DecodeTeamPayload converts a normalized map payload into the typed
// team_info form.
func DecodeTeamPayload(payload map[string]any) (*TeamPayload, error) {
	var out TeamPayload
	if err := decode(payload, &out); err != nil {
		return nil, fmt.Errorf("decode team payload: %w", err)
	}

	return &out, nil
}

// decode runs a weakly-typed mapstructure decode into target.
func decode(payload map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("new decoder: %w", err)
	}

	return decoder.Decode(payload)
}
