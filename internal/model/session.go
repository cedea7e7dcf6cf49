package model

import (
	"strings"
	"time"
)

// Session is a club play session. Its queue is owned 1:1 by the session.
type Session struct {
	ID        string    `json:"id"`
	ClubID    string    `json:"club_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	IsActive  bool      `json:"is_active"`
}

// SessionCourt is a court assigned to a session. IsBooked is set when a match
// is played on it.
type SessionCourt struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	CourtID   string `json:"court_id"`
	IsBooked  bool   `json:"is_booked"`
}

// Member is a club member as seen by the matching engine
type Member struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Gender Gender     `json:"gender"`
	Level  SkillLevel `json:"level"`
}

// Gender of a member
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
)

// SkillLevel is a member's declared playing level
type SkillLevel string

const (
	SkillCasual       SkillLevel = "CASUAL"
	SkillBeginner     SkillLevel = "BEGINNER"
	SkillIntermediate SkillLevel = "INTERMEDIATE"
	SkillAdvanced     SkillLevel = "ADVANCED"
)

// ParseSkillLevel normalizes a level name. Unknown names are returned as-is
// so the skill model can apply its fallback.
func ParseSkillLevel(s string) SkillLevel {
	return SkillLevel(strings.ToUpper(strings.TrimSpace(s)))
}
