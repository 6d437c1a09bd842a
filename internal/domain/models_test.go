package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUniqueMatchID(t *testing.T) {
	axis := []Participant{
		{PlayerID: "100", PlayerName: "alpha"},
		{PlayerID: "200", PlayerName: "bravo"},
	}
	allies := []Participant{
		{PlayerID: "300", PlayerName: "charlie"},
		{PlayerName: "unknown"},
	}

	id := UniqueMatchID("9001", "2026-08-01 20:15:00", axis, allies)
	assert.Len(t, id, 32)

	t.Run("identical across participant views", func(t *testing.T) {
		// Another participant's page lists the same sides in a different
		// order; the key must not change.
		shuffledAxis := []Participant{axis[1], axis[0]}
		shuffledAllies := []Participant{allies[1], allies[0]}

		assert.Equal(t, id, UniqueMatchID("9001", "2026-08-01 20:15:00", shuffledAxis, shuffledAllies))
		assert.Equal(t, id, UniqueMatchID("9001", "2026-08-01 20:15:00", allies, axis))
	})

	t.Run("differs per match", func(t *testing.T) {
		assert.NotEqual(t, id, UniqueMatchID("9002", "2026-08-01 20:15:00", axis, allies))
		assert.NotEqual(t, id, UniqueMatchID("9001", "2026-08-01 21:00:00", axis, allies))
		assert.NotEqual(t, id, UniqueMatchID("9001", "2026-08-01 20:15:00", axis, axis))
	})

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, id, UniqueMatchID("9001", "2026-08-01 20:15:00", axis, allies))
	})
}

func TestParticipants(t *testing.T) {
	record := MatchRecord{
		AxisPlayers:   []Participant{{PlayerID: "1"}},
		AlliesPlayers: []Participant{{PlayerID: "2"}, {PlayerID: "3"}},
	}

	got := record.Participants()
	assert.Len(t, got, 3)
	assert.Equal(t, "1", got[0].PlayerID)
	assert.Equal(t, "3", got[2].PlayerID)
}
