package normalize

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"time"

	"coh3-monitor/internal/domain"
	"coh3-monitor/internal/fetch"
	"coh3-monitor/internal/scrape"
	"coh3-monitor/internal/source"

	"github.com/rs/zerolog"
)

// Normalizer turns raw payloads into canonical match records. It is the one
// place that absorbs source format drift: both strategies' shapes land here
// and nowhere else. Given the same payload it always yields the same record
// set.
type Normalizer struct {
	logger zerolog.Logger
}

func NewNormalizer(logger zerolog.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

var matchTypeNames = map[int]string{
	0: "Custom Game",
	1: "Ranked 1v1",
	2: "Ranked 2v2",
	3: "Ranked 3v3",
	4: "Ranked 4v4",
}

func matchTypeName(id int) string {
	if name, ok := matchTypeNames[id]; ok {
		return name
	}
	return "Unknown"
}

// Normalize maps one payload to zero or more records. A record missing its
// match id or missing participants on both sides is dropped with a logged
// reason; the rest of the payload still goes through.
func (n *Normalizer) Normalize(payload *fetch.Payload) []domain.MatchRecord {
	if payload == nil {
		return nil
	}

	var records []domain.MatchRecord
	switch {
	case payload.API != nil:
		records = n.fromListing(payload, payload.API.History.MatchHistoryStats, payload.API.History.ProfileIndex())
	case payload.Scrape != nil && len(payload.Scrape.Matches) > 0:
		records = n.fromListing(payload, payload.Scrape.Matches, nil)
	case payload.Scrape != nil:
		records = n.fromRows(payload, payload.Scrape.Rows)
	}
	return records
}

func (n *Normalizer) fromListing(payload *fetch.Payload, matches []source.MatchHistory, profiles map[int64]source.Profile) []domain.MatchRecord {
	records := make([]domain.MatchRecord, 0, len(matches))
	for _, match := range matches {
		if match.ID == 0 {
			n.logger.Warn().
				Str("player_id", payload.Player.PlayerID).
				Msg("dropping match without id")
			continue
		}

		var axis, allies []domain.Participant
		for _, report := range match.ReportResults {
			participant := domain.Participant{
				PlayerID:   strconv.FormatInt(report.ProfileID, 10),
				PlayerName: resolveName(report, profiles),
			}
			// Wehrmacht and DAK race ids mark the axis side.
			if report.RaceID == 0 || report.RaceID == 3 {
				axis = append(axis, participant)
			} else {
				allies = append(allies, participant)
			}
		}

		if len(axis) == 0 && len(allies) == 0 {
			n.logger.Warn().
				Int64("match_id", match.ID).
				Str("player_id", payload.Player.PlayerID).
				Msg("dropping match without participants")
			continue
		}

		matchID := strconv.FormatInt(match.ID, 10)
		matchDate := formatMatchDate(match.CompletionTime, match.StartGameTime)

		records = append(records, domain.MatchRecord{
			MatchID:       matchID,
			UniqueMatchID: domain.UniqueMatchID(matchID, matchDate, axis, allies),
			PlayerID:      payload.Player.PlayerID,
			PlayerName:    payload.Player.PlayerName,
			MatchDate:     matchDate,
			MatchType:     matchTypeName(match.MatchTypeID),
			MatchResult:   resultFor(match.ReportResults, payload.Player.PlayerID),
			MapName:       match.MapName,
			AxisPlayers:   axis,
			AlliesPlayers: allies,
			IsSimulated:   false,
			IsScraped:     payload.Scraped,
			ScrapedAt:     payload.ScrapedAt,
		})
	}
	return records
}

func (n *Normalizer) fromRows(payload *fetch.Payload, rows []scrape.TableRow) []domain.MatchRecord {
	records := make([]domain.MatchRecord, 0, len(rows))
	for _, row := range rows {
		if len(row.Axis) == 0 && len(row.Allies) == 0 {
			n.logger.Warn().
				Str("player_id", payload.Player.PlayerID).
				Str("row", row.Raw).
				Msg("dropping table row without participants")
			continue
		}

		// Table rows carry no source match id; the row text is the only
		// stable identity available.
		sum := md5.Sum([]byte(row.Raw))
		matchID := hex.EncodeToString(sum[:])

		records = append(records, domain.MatchRecord{
			MatchID:       matchID,
			UniqueMatchID: domain.UniqueMatchID(matchID, row.Date, row.Axis, row.Allies),
			PlayerID:      payload.Player.PlayerID,
			PlayerName:    payload.Player.PlayerName,
			MatchDate:     row.Date,
			MatchType:     row.Mode,
			MatchResult:   row.Result,
			MapName:       row.Map,
			AxisPlayers:   row.Axis,
			AlliesPlayers: row.Allies,
			IsSimulated:   false,
			IsScraped:     payload.Scraped,
			ScrapedAt:     payload.ScrapedAt,
		})
	}
	return records
}

func resolveName(report source.ReportResult, profiles map[int64]source.Profile) string {
	if report.Profile != nil {
		if report.Profile.Alias != "" {
			return report.Profile.Alias
		}
		if report.Profile.Name != "" {
			return report.Profile.Name
		}
	}
	if profile, ok := profiles[report.ProfileID]; ok {
		if profile.Alias != "" {
			return profile.Alias
		}
		return profile.Name
	}
	return ""
}

func resultFor(reports []source.ReportResult, playerID string) string {
	for _, report := range reports {
		if strconv.FormatInt(report.ProfileID, 10) != playerID {
			continue
		}
		switch report.ResultType {
		case 1:
			return "Victory"
		case 2:
			return "Defeat"
		}
		return ""
	}
	return ""
}

func formatMatchDate(completionTime, startGameTime int64) string {
	ts := completionTime
	if ts == 0 {
		ts = startGameTime
	}
	if ts == 0 {
		return ""
	}
	return time.Unix(ts, 0).UTC().Format("2006-01-02 15:04:05")
}
