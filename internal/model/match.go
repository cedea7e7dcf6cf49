package model

import (
	"slices"
	"strings"
	"time"
)

// Match is a doubles game played on a court during a session
type Match struct {
	ID           string              `json:"id"`
	SessionID    string              `json:"session_id"`
	CourtID      string              `json:"court_id"`
	ClubID       string              `json:"club_id"`
	StartTime    time.Time           `json:"start_time"`
	EndTime      time.Time           `json:"end_time"`
	Participants []*MatchParticipant `json:"participants"`
}

// MatchParticipant is a member playing in a match on a team
type MatchParticipant struct {
	ID       string `json:"id"`
	MatchID  string `json:"match_id"`
	MemberID string `json:"member_id"`
	Team     Team   `json:"team"`
}

// MemberIDs returns the participant member ids in stored order
func (m *Match) MemberIDs() []string {
	ids := make([]string, 0, len(m.Participants))
	for _, p := range m.Participants {
		ids = append(ids, p.MemberID)
	}
	return ids
}

// HistoryKey identifies a group of members regardless of order or team.
func HistoryKey(memberIDs []string) string {
	sorted := slices.Clone(memberIDs)
	slices.Sort(sorted)
	return strings.Join(sorted, "-")
}

// MatchHistory is the set of groups that already played together in a session
type MatchHistory map[string]struct{}

// NewMatchHistory builds a history from the member id groups of prior matches
func NewMatchHistory(groups ...[]string) MatchHistory {
	h := make(MatchHistory, len(groups))
	for _, g := range groups {
		h.Add(g)
	}
	return h
}

// Add records a group
func (h MatchHistory) Add(memberIDs []string) {
	h[HistoryKey(memberIDs)] = struct{}{}
}

// Contains reports whether the group keyed by key already played
func (h MatchHistory) Contains(key string) bool {
	_, ok := h[key]
	return ok
}

// MatchProposal is the generator's output: a balanced group of four with its
// team split. It has no side effects until committed as a pool.
type MatchProposal struct {
	// Group holds the chosen candidates in queue order
	Group      []*QueueCandidate `json:"group"`
	TeamA      []*QueueCandidate `json:"team_a"`
	TeamB      []*QueueCandidate `json:"team_b"`
	PowerA     int               `json:"power_a"`
	PowerB     int               `json:"power_b"`
	Difference int               `json:"difference"`
	// Repeat is set when no fresh group was good enough and a group that
	// already played together was chosen.
	Repeat bool `json:"repeat"`
}

// Seat is a candidate placed on a team
type Seat struct {
	Candidate *QueueCandidate
	Team      Team
}

// Seats returns the proposal's team assignments, team A first
func (p *MatchProposal) Seats() []Seat {
	seats := make([]Seat, 0, len(p.TeamA)+len(p.TeamB))
	for _, c := range p.TeamA {
		seats = append(seats, Seat{Candidate: c, Team: TeamA})
	}
	for _, c := range p.TeamB {
		seats = append(seats, Seat{Candidate: c, Team: TeamB})
	}
	return seats
}
