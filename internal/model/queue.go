package model

import (
	"fmt"
	"strings"
	"time"
)

// QueueEntry is a member waiting in a session queue. Entries are ordered by
// JoinedAt and removed when the member is pooled or leaves.
type QueueEntry struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	MemberID  string    `json:"member_id"`
	JoinedAt  time.Time `json:"joined_at"`
}

// QueueCandidate is a queue entry joined with the member attributes the
// generator needs.
type QueueCandidate struct {
	EntryID  string     `json:"entry_id"`
	MemberID string     `json:"member_id"`
	Level    SkillLevel `json:"level"`
	Gender   Gender     `json:"gender"`
	JoinedAt time.Time  `json:"joined_at"`
}

// GenderFilter restricts which candidates are eligible for a generation call
type GenderFilter string

const (
	GenderAny          GenderFilter = "ANY"
	GenderFilterMale   GenderFilter = "MALE"
	GenderFilterFemale GenderFilter = "FEMALE"
	genderLegacy                    = "MIXED"
)

// ParseGenderFilter accepts ANY, MALE or FEMALE (case-insensitive). An empty
// value and the legacy MIXED both mean ANY.
func ParseGenderFilter(s string) (GenderFilter, error) {
	switch v := strings.ToUpper(strings.TrimSpace(s)); v {
	case "", string(GenderAny), genderLegacy:
		return GenderAny, nil
	case string(GenderFilterMale), string(GenderFilterFemale):
		return GenderFilter(v), nil
	default:
		return "", fmt.Errorf("invalid gender filter %q", s)
	}
}

// Allows reports whether a member of gender g passes the filter
func (f GenderFilter) Allows(g Gender) bool {
	if f == GenderAny || f == "" {
		return true
	}
	return string(f) == string(g)
}

// QueueView is the ordered queue of a session
type QueueView struct {
	SessionID string            `json:"session_id"`
	Entries   []*QueueCandidate `json:"entries"`
}
