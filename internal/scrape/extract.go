package scrape

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"coh3-monitor/internal/domain"
	"coh3-monitor/internal/source"

	"github.com/PuerkitoBio/goquery"
)

// Result is a scrape payload: structured matches recovered from the page's
// __NEXT_DATA__ blob when available, otherwise rows lifted from the rendered
// match-history table.
type Result struct {
	Matches []source.MatchHistory
	Rows    []TableRow
}

// TableRow is one extracted match-history table row. Participant ids come
// from profile links; the source does not always expose them.
type TableRow struct {
	Date   string
	Result string
	Axis   []domain.Participant
	Allies []domain.Participant
	Map    string
	Mode   string
	Raw    string
}

type nextData struct {
	Props struct {
		PageProps map[string]json.RawMessage `json:"pageProps"`
	} `json:"props"`
}

// matchKeys are tried in order; the site has moved the listing between them
// across deployments.
var matchKeys = []string{"matches", "recentMatches"}

// ParseNextData recovers the structured match listing embedded in the page.
// The payload mirrors the relic API shape, so the listing converts directly.
func ParseNextData(raw json.RawMessage) ([]source.MatchHistory, error) {
	var data nextData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse __NEXT_DATA__: %w", err)
	}

	props := data.Props.PageProps
	for _, key := range matchKeys {
		if matches, ok := decodeMatches(props[key]); ok {
			return matches, nil
		}
	}

	// Some page versions nest the listing one level deeper.
	if nested, ok := props["playerDataAPI"]; ok {
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(nested, &inner); err == nil {
			for _, key := range matchKeys {
				if matches, ok := decodeMatches(inner[key]); ok {
					return matches, nil
				}
			}
		}
	}

	return nil, errors.New("no match listing in __NEXT_DATA__")
}

func decodeMatches(raw json.RawMessage) ([]source.MatchHistory, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var matches []source.MatchHistory
	if err := json.Unmarshal(raw, &matches); err != nil || len(matches) == 0 {
		return nil, false
	}
	return matches, true
}

var playerHrefPattern = regexp.MustCompile(`/players/(\d+)`)

// ParseMatchTable extracts match rows from the rendered page. Rows need the
// recognizable column structure (date, result, axis, allies, map, mode);
// anything shorter is skipped.
func ParseMatchTable(pageHTML string) ([]TableRow, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page HTML: %w", err)
	}

	var rows []TableRow
	doc.Find("table tr").Each(func(i int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 6 {
			return
		}

		row := TableRow{
			Date:   cellText(cells, 0),
			Result: cellText(cells, 1),
			Axis:   extractParticipants(cells.Eq(2)),
			Allies: extractParticipants(cells.Eq(3)),
			Map:    cellText(cells, 4),
			Mode:   cellText(cells, 5),
			Raw:    strings.TrimSpace(tr.Text()),
		}
		rows = append(rows, row)
	})

	return rows, nil
}

func cellText(cells *goquery.Selection, index int) string {
	return strings.TrimSpace(cells.Eq(index).Text())
}

func extractParticipants(cell *goquery.Selection) []domain.Participant {
	var participants []domain.Participant
	cell.Find("a").Each(func(i int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		m := playerHrefPattern.FindStringSubmatch(href)
		if m == nil {
			return
		}
		participants = append(participants, domain.Participant{
			PlayerID:   m[1],
			PlayerName: strings.TrimSpace(link.Text()),
		})
	})
	return participants
}
