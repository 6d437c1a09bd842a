package source

import "strconv"

// PlayerData bundles everything one structured fetch yields for a player.
type PlayerData struct {
	History *RecentMatchHistoryResponse

	// Alias is the player's current display name, empty when the personal
	// stat lookup was unavailable.
	Alias string
}

type RecentMatchHistoryResponse struct {
	Result            ResultStatus   `json:"result"`
	MatchHistoryStats []MatchHistory `json:"matchHistoryStats"`
	Profiles          []Profile      `json:"profiles"`
}

type ResultStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type MatchHistory struct {
	ID             int64          `json:"id"`
	MapName        string         `json:"mapname"`
	MatchTypeID    int            `json:"matchtype_id"`
	Description    string         `json:"description"`
	StartGameTime  int64          `json:"startgametime"`
	CompletionTime int64          `json:"completiontime"`
	ReportResults  []ReportResult `json:"matchhistoryreportresults"`
}

type ReportResult struct {
	MatchHistoryID int64    `json:"matchhistory_id"`
	ProfileID      int64    `json:"profile_id"`
	ResultType     int      `json:"resulttype"`
	RaceID         int      `json:"race_id"`
	Profile        *Profile `json:"profile,omitempty"`
}

type Profile struct {
	ProfileID int64  `json:"profile_id"`
	Name      string `json:"name"`
	Alias     string `json:"alias"`
}

// ProfileIndex maps profile ids to their entries for participant name
// resolution when report results do not embed profiles.
func (r *RecentMatchHistoryResponse) ProfileIndex() map[int64]Profile {
	idx := make(map[int64]Profile, len(r.Profiles))
	for _, p := range r.Profiles {
		idx[p.ProfileID] = p
	}
	return idx
}

type PersonalStatResponse struct {
	Result     ResultStatus `json:"result"`
	StatGroups []StatGroup  `json:"statGroups"`
}

type StatGroup struct {
	ID      int64     `json:"id"`
	Members []Profile `json:"members"`
}

// AliasFor returns the display alias of the given player id, if present.
func (r *PersonalStatResponse) AliasFor(playerID string) string {
	for _, group := range r.StatGroups {
		for _, member := range group.Members {
			if strconv.FormatInt(member.ProfileID, 10) == playerID {
				return member.Alias
			}
		}
	}
	return ""
}
