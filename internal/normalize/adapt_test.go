package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuleReferences(t *testing.T) {
	tests := []struct {
		name       string
		sourcePath string
		removedKey string
		want       bool
	}{
		{
			name:       "relative item path matches its absolute form",
			sourcePath: "gameState",
			removedKey: "games[0].gameState",
			want:       true,
		},
		{
			name:       "nested relative path matches",
			sourcePath: "awayTeam.abbrev",
			removedKey: "games[0].awayTeam.abbrev",
			want:       true,
		},
		{
			name:       "exact match",
			sourcePath: "standings",
			removedKey: "standings",
			want:       true,
		},
		{
			name:       "removed key inside a longer rule path",
			sourcePath: "children[0].standings.entries",
			removedKey: "children[0].standings",
			want:       true,
		},
		{
			name:       "trailing fragment of a segment does not match",
			sourcePath: "State",
			removedKey: "games[0].gameState",
			want:       false,
		},
		{
			name:       "unrelated paths do not match",
			sourcePath: "homeTeam.score",
			removedKey: "games[0].awayTeam.score",
			want:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := &Rule{SourcePath: tt.sourcePath}
			assert.Equal(t, tt.want, ruleReferences(rule, tt.removedKey))
		})
	}
}
