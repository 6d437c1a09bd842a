package classify

import (
	"strings"

	"coh3-monitor/internal/domain"
)

// Label is the classification outcome deciding the destination collection.
type Label int

const (
	// Discard marks a record with no registered participants. Records come
	// from a registered player's own page, so this should not happen, but
	// it is checked rather than assumed.
	Discard Label = iota
	CustomGame
	AutoMatch
)

func (l Label) String() string {
	switch l {
	case CustomGame:
		return "custom_game"
	case AutoMatch:
		return "automatch"
	default:
		return "discard"
	}
}

// Collection returns the destination for a label; ok is false for Discard.
func (l Label) Collection() (domain.Collection, bool) {
	switch l {
	case CustomGame:
		return domain.CollectionCustomGames, true
	case AutoMatch:
		return domain.CollectionAutomatches, true
	default:
		return "", false
	}
}

// Roster is the set of registered players a record is judged against,
// indexed by id and by lowercased name for participants without ids.
type Roster struct {
	ids   map[string]struct{}
	names map[string]struct{}
}

func NewRoster(players []domain.Player) *Roster {
	r := &Roster{
		ids:   make(map[string]struct{}, len(players)),
		names: make(map[string]struct{}, len(players)),
	}
	for _, p := range players {
		if p.PlayerID != "" {
			r.ids[p.PlayerID] = struct{}{}
		}
		if p.PlayerName != "" {
			r.names[strings.ToLower(p.PlayerName)] = struct{}{}
		}
	}
	return r
}

func (r *Roster) Contains(p domain.Participant) bool {
	if p.PlayerID != "" {
		if _, ok := r.ids[p.PlayerID]; ok {
			return true
		}
	}
	if p.PlayerName != "" {
		if _, ok := r.names[strings.ToLower(p.PlayerName)]; ok {
			return true
		}
	}
	return false
}

// Classify labels one record. A custom-lobby match with at least two
// registered participants across both sides is a CustomGame; any match with
// at least one registered participant is an AutoMatch; anything else is
// discarded.
func Classify(record *domain.MatchRecord, roster *Roster) Label {
	registered := 0
	for _, p := range record.Participants() {
		if roster.Contains(p) {
			registered++
		}
	}

	if registered == 0 {
		return Discard
	}
	if isCustomType(record.MatchType) && registered >= 2 {
		return CustomGame
	}
	return AutoMatch
}

func isCustomType(matchType string) bool {
	return strings.Contains(strings.ToLower(matchType), "custom")
}
