package classify

import (
	"testing"

	"coh3-monitor/internal/domain"

	"github.com/stretchr/testify/assert"
)

func testRoster() *Roster {
	return NewRoster([]domain.Player{
		{PlayerID: "100", PlayerName: "alpha"},
		{PlayerID: "200", PlayerName: "bravo"},
		{PlayerID: "300", PlayerName: "charlie"},
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		record   domain.MatchRecord
		expected Label
	}{
		{
			name: "custom type with three registered on one side",
			record: domain.MatchRecord{
				MatchType: "Custom Game",
				AxisPlayers: []domain.Participant{
					{PlayerID: "100"}, {PlayerID: "200"}, {PlayerID: "300"},
				},
				AlliesPlayers: []domain.Participant{
					{PlayerName: "stranger"},
				},
			},
			expected: CustomGame,
		},
		{
			name: "custom type with registered players split across sides",
			record: domain.MatchRecord{
				MatchType:     "Custom Game",
				AxisPlayers:   []domain.Participant{{PlayerID: "100"}},
				AlliesPlayers: []domain.Participant{{PlayerID: "200"}},
			},
			expected: CustomGame,
		},
		{
			name: "automatch type with one registered participant",
			record: domain.MatchRecord{
				MatchType:     "Ranked 1v1",
				AxisPlayers:   []domain.Participant{{PlayerID: "100"}},
				AlliesPlayers: []domain.Participant{{PlayerName: "stranger"}},
			},
			expected: AutoMatch,
		},
		{
			name: "custom type with only one registered participant",
			record: domain.MatchRecord{
				MatchType:     "Custom Game",
				AxisPlayers:   []domain.Participant{{PlayerID: "100"}},
				AlliesPlayers: []domain.Participant{{PlayerName: "stranger"}},
			},
			expected: AutoMatch,
		},
		{
			name: "ranked match between registered players stays automatch",
			record: domain.MatchRecord{
				MatchType:     "Ranked 2v2",
				AxisPlayers:   []domain.Participant{{PlayerID: "100"}, {PlayerID: "200"}},
				AlliesPlayers: []domain.Participant{{PlayerName: "stranger"}},
			},
			expected: AutoMatch,
		},
		{
			name: "no registered participants",
			record: domain.MatchRecord{
				MatchType:     "Custom Game",
				AxisPlayers:   []domain.Participant{{PlayerName: "stranger"}},
				AlliesPlayers: []domain.Participant{{PlayerName: "other"}},
			},
			expected: Discard,
		},
		{
			name: "registered participant matched by name only",
			record: domain.MatchRecord{
				MatchType:     "Ranked 1v1",
				AxisPlayers:   []domain.Participant{{PlayerName: "ALPHA"}},
				AlliesPlayers: []domain.Participant{{PlayerName: "stranger"}},
			},
			expected: AutoMatch,
		},
	}

	roster := testRoster()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(&tt.record, roster))
		})
	}
}

func TestLabelCollection(t *testing.T) {
	collection, ok := CustomGame.Collection()
	assert.True(t, ok)
	assert.Equal(t, domain.CollectionCustomGames, collection)

	collection, ok = AutoMatch.Collection()
	assert.True(t, ok)
	assert.Equal(t, domain.CollectionAutomatches, collection)

	_, ok = Discard.Collection()
	assert.False(t, ok)
}
