package model

import "time"

// MatchPool is a transient group of members assembled from a session queue,
// waiting to be promoted to a match. It is deleted on promotion or disband.
type MatchPool struct {
	ID           string             `json:"id"`
	SessionID    string             `json:"session_id"`
	CreatedAt    time.Time          `json:"created_at"`
	Participants []*PoolParticipant `json:"participants"`
}

// PoolParticipant is a member seated on a team within a pool
type PoolParticipant struct {
	ID        string    `json:"id"`
	PoolID    string    `json:"pool_id"`
	MemberID  string    `json:"member_id"`
	Team      Team      `json:"team"`
	CreatedAt time.Time `json:"created_at"`
}

// Team label within a doubles pool or match
type Team string

const (
	TeamA Team = "A"
	TeamB Team = "B"
)

// Valid reports whether t is a known team label
func (t Team) Valid() bool {
	return t == TeamA || t == TeamB
}

// Pool capacity
const (
	TeamSize = 2
	PoolSize = 2 * TeamSize
)

// TeamCount returns how many participants are seated on team t
func (p *MatchPool) TeamCount(t Team) int {
	n := 0
	for _, pp := range p.Participants {
		if pp.Team == t {
			n++
		}
	}
	return n
}

// HasMember reports whether memberID is already seated in the pool
func (p *MatchPool) HasMember(memberID string) bool {
	for _, pp := range p.Participants {
		if pp.MemberID == memberID {
			return true
		}
	}
	return false
}

// Complete reports whether both teams are full
func (p *MatchPool) Complete() bool {
	return len(p.Participants) == PoolSize && p.TeamCount(TeamA) == TeamSize && p.TeamCount(TeamB) == TeamSize
}

// PoolList is a page of pools for a session
type PoolList struct {
	Pools      []*MatchPool `json:"pools"`
	Total      int          `json:"total"`
	Page       int          `json:"page"`
	Limit      int          `json:"limit"`
	TotalPages int          `json:"total_pages"`
}

// Pagination defaults
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Guard codes raised by the store when a condition re-checked inside an
// atomic write no longer holds.
const (
	GuardQueueEntryConsumed = "queue_entry_consumed"
	GuardPoolGone           = "pool_gone"
	GuardPoolChanged        = "pool_changed"
	GuardMemberInPool       = "member_in_pool"
	GuardTeamFull           = "team_full"
	GuardPoolIncomplete     = "pool_incomplete"
	GuardCourtBooked        = "court_booked"
	GuardCourtGone          = "court_gone"
	GuardParticipantGone    = "participant_gone"
	GuardSessionInactive    = "session_inactive"
	GuardAlreadyQueued      = "already_queued"
	GuardMemberPooled       = "member_pooled"
)
