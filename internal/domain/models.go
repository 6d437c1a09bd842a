package domain

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// Collection names the two destination tables for classified matches.
type Collection string

const (
	CollectionCustomGames Collection = "custom_games"
	CollectionAutomatches Collection = "automatches"
)

// Player is a registered roster entry. The roster is owned by the
// registration process; this service only reads it and refreshes names.
type Player struct {
	PlayerID   string
	PlayerName string
	AddedAt    time.Time
}

// Participant is one player on one side of a match. The id may be empty
// when the source does not expose it for unregistered opponents.
type Participant struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
}

// MatchRecord is the canonical shape every raw payload is normalized into.
// DiscoveredAt is set by the store on the first successful insert and never
// updated afterwards.
type MatchRecord struct {
	MatchID       string
	UniqueMatchID string
	PlayerID      string
	PlayerName    string
	MatchDate     string
	MatchType     string
	MatchResult   string
	MapName       string
	AxisPlayers   []Participant
	AlliesPlayers []Participant
	IsSimulated   bool
	IsScraped     bool
	ScrapedAt     time.Time
	DiscoveredAt  time.Time
}

// Participants returns both sides in axis-then-allies order.
func (m *MatchRecord) Participants() []Participant {
	out := make([]Participant, 0, len(m.AxisPlayers)+len(m.AlliesPlayers))
	out = append(out, m.AxisPlayers...)
	out = append(out, m.AlliesPlayers...)
	return out
}

// UniqueMatchID derives the dedup key for a match. Every participant's view
// of the same match yields the same key: the source match id, the sorted set
// of participant identities and the match date all agree across views.
func UniqueMatchID(matchID, matchDate string, axis, allies []Participant) string {
	ids := make([]string, 0, len(axis)+len(allies))
	for _, p := range axis {
		ids = append(ids, participantKey(p))
	}
	for _, p := range allies {
		ids = append(ids, participantKey(p))
	}
	sort.Strings(ids)

	sum := md5.Sum([]byte(matchID + "_" + strings.Join(ids, "-") + "_" + matchDate))
	return hex.EncodeToString(sum[:])
}

func participantKey(p Participant) string {
	if p.PlayerID != "" {
		return p.PlayerID
	}
	return strings.ToLower(p.PlayerName)
}
