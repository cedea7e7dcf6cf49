package fixtures

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/forgo/courtside/api/internal/database"
	"github.com/forgo/courtside/api/internal/model"
)

// Factory creates test entities in the database
type Factory struct {
	db database.Database
}

// New creates a new fixture factory
func New(db database.Database) *Factory {
	return &Factory{db: db}
}

// randomID generates a random hex ID
func randomID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// ctx returns a context with timeout
func ctx() context.Context {
	c, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	// Store cancel to prevent leak warning
	_ = cancel
	return c
}

// ============================================================================
// Member Fixtures
// ============================================================================

// MemberOpts customizes member creation
type MemberOpts struct {
	Name   string
	Gender model.Gender
	Level  model.SkillLevel
}

// WithLevel sets the member's skill level
func WithLevel(level model.SkillLevel) func(*MemberOpts) {
	return func(o *MemberOpts) { o.Level = level }
}

// WithGender sets the member's gender
func WithGender(g model.Gender) func(*MemberOpts) {
	return func(o *MemberOpts) { o.Gender = g }
}

// CreateMember creates a member with optional customizations
func (f *Factory) CreateMember(t *testing.T, opts ...func(*MemberOpts)) *model.Member {
	t.Helper()

	o := &MemberOpts{
		Name:   fmt.Sprintf("member_%s", randomID()),
		Gender: model.GenderMale,
		Level:  model.SkillIntermediate,
	}
	for _, fn := range opts {
		fn(o)
	}

	query := `CREATE member CONTENT { name: $name, gender: $gender, level: $level }`
	results, err := f.db.Query(ctx(), query, map[string]interface{}{
		"name":   o.Name,
		"gender": string(o.Gender),
		"level":  string(o.Level),
	})
	if err != nil {
		t.Fatalf("fixtures: failed to create member: %v", err)
	}

	data := extractFirstResult(t, results)
	return &model.Member{
		ID:     getString(data, "id"),
		Name:   o.Name,
		Gender: o.Gender,
		Level:  o.Level,
	}
}

// ============================================================================
// Session Fixtures
// ============================================================================

// SessionOpts customizes session creation
type SessionOpts struct {
	ClubID   string
	Start    time.Time
	Duration time.Duration
	Active   bool
}

// Inactive creates the session closed to new queue entries
func Inactive() func(*SessionOpts) {
	return func(o *SessionOpts) { o.Active = false }
}

// CreateSession creates a club session with optional customizations
func (f *Factory) CreateSession(t *testing.T, opts ...func(*SessionOpts)) *model.Session {
	t.Helper()

	o := &SessionOpts{
		ClubID:   fmt.Sprintf("club_%s", randomID()),
		Start:    time.Now().UTC().Truncate(time.Second),
		Duration: 3 * time.Hour,
		Active:   true,
	}
	for _, fn := range opts {
		fn(o)
	}

	query := `
		CREATE session CONTENT {
			club: $club,
			start_time: $start_time,
			end_time: $end_time,
			is_active: $is_active
		}
	`
	results, err := f.db.Query(ctx(), query, map[string]interface{}{
		"club":       o.ClubID,
		"start_time": o.Start,
		"end_time":   o.Start.Add(o.Duration),
		"is_active":  o.Active,
	})
	if err != nil {
		t.Fatalf("fixtures: failed to create session: %v", err)
	}

	data := extractFirstResult(t, results)
	return &model.Session{
		ID:        getString(data, "id"),
		ClubID:    o.ClubID,
		StartTime: o.Start,
		EndTime:   o.Start.Add(o.Duration),
		IsActive:  o.Active,
	}
}

// CreateCourt attaches a free court to a session
func (f *Factory) CreateCourt(t *testing.T, session *model.Session) *model.SessionCourt {
	t.Helper()

	courtID := fmt.Sprintf("court_%s", randomID())
	query := `CREATE session_court CONTENT { session: type::record($session_id), court: $court, is_booked: false }`
	results, err := f.db.Query(ctx(), query, map[string]interface{}{
		"session_id": session.ID,
		"court":      courtID,
	})
	if err != nil {
		t.Fatalf("fixtures: failed to create court: %v", err)
	}

	data := extractFirstResult(t, results)
	return &model.SessionCourt{
		ID:        getString(data, "id"),
		SessionID: session.ID,
		CourtID:   courtID,
	}
}

// ============================================================================
// Queue Fixtures
// ============================================================================

// Enqueue puts a member in the session queue at joinedAt
func (f *Factory) Enqueue(t *testing.T, session *model.Session, member *model.Member, joinedAt time.Time) *model.QueueEntry {
	t.Helper()

	query := `
		CREATE queue_entry CONTENT {
			session: type::record($session_id),
			member: type::record($member_id),
			joined_at: $joined_at
		}
	`
	results, err := f.db.Query(ctx(), query, map[string]interface{}{
		"session_id": session.ID,
		"member_id":  member.ID,
		"joined_at":  joinedAt,
	})
	if err != nil {
		t.Fatalf("fixtures: failed to enqueue member: %v", err)
	}

	data := extractFirstResult(t, results)
	return &model.QueueEntry{
		ID:        getString(data, "id"),
		SessionID: session.ID,
		MemberID:  member.ID,
		JoinedAt:  joinedAt,
	}
}

// EnqueueMembers creates n members of the given level and queues them one
// second apart
func (f *Factory) EnqueueMembers(t *testing.T, session *model.Session, n int, level model.SkillLevel) []*model.QueueEntry {
	t.Helper()

	start := session.StartTime
	entries := make([]*model.QueueEntry, 0, n)
	for i := range n {
		m := f.CreateMember(t, WithLevel(level))
		entries = append(entries, f.Enqueue(t, session, m, start.Add(time.Duration(i)*time.Second)))
	}
	return entries
}

// ============================================================================
// Match Fixtures
// ============================================================================

// RecordMatch stores a finished match between members, two per team in
// order, so the group counts as already played
func (f *Factory) RecordMatch(t *testing.T, session *model.Session, memberIDs ...string) {
	t.Helper()

	if len(memberIDs) != model.PoolSize {
		t.Fatalf("fixtures: a match needs %d members, got %d", model.PoolSize, len(memberIDs))
	}

	batch := database.NewAtomicBatch().
		Add(`LET $played = CREATE ONLY match CONTENT {
			session: type::record($session_id),
			court: $court,
			club: $club,
			start_time: $start_time,
			end_time: $end_time
		}`, map[string]interface{}{
			"session_id": session.ID,
			"court":      "court_history",
			"club":       session.ClubID,
			"start_time": session.StartTime,
			"end_time":   session.StartTime.Add(time.Hour),
		})
	for i, id := range memberIDs {
		team := model.TeamA
		if i >= model.TeamSize {
			team = model.TeamB
		}
		batch.Add(`CREATE match_participant CONTENT {
			match: $played.id,
			member: type::record($member_id),
			team: $team
		}`, map[string]interface{}{"member_id": id, "team": string(team)})
	}

	if err := batch.Execute(ctx(), f.db); err != nil {
		t.Fatalf("fixtures: failed to record match: %v", err)
	}
}

// ============================================================================
// Data Extraction Helpers
// ============================================================================

func extractFirstResult(t *testing.T, results []interface{}) map[string]interface{} {
	t.Helper()
	if len(results) == 0 {
		t.Fatal("fixtures: no results returned")
	}

	// Handle SurrealDB response wrapper
	resp, ok := results[0].(map[string]interface{})
	if !ok {
		t.Fatalf("fixtures: unexpected result type: %T", results[0])
	}

	result, ok := resp["result"]
	if !ok {
		t.Fatal("fixtures: no result in response")
	}

	// Handle array result
	if arr, ok := result.([]interface{}); ok {
		if len(arr) == 0 {
			t.Fatal("fixtures: empty result array")
		}
		data, ok := arr[0].(map[string]interface{})
		if !ok {
			t.Fatalf("fixtures: unexpected array item type: %T", arr[0])
		}
		return data
	}

	// Handle single result
	data, ok := result.(map[string]interface{})
	if !ok {
		t.Fatalf("fixtures: unexpected result type: %T", result)
	}
	return data
}

func getString(data map[string]interface{}, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	// Handle record ID types - could be a struct or map
	if v := data[key]; v != nil {
		if m, ok := v.(map[string]interface{}); ok {
			if tb, ok := m["tb"].(string); ok {
				if id := m["id"]; id != nil {
					return fmt.Sprintf("%s:%v", tb, id)
				}
			}
		}
		// Fallback: use string conversion but fix the format if needed
		s := fmt.Sprintf("%v", v)
		// Convert "{table id}" to "table:id"
		if len(s) > 2 && s[0] == '{' && s[len(s)-1] == '}' {
			inner := s[1 : len(s)-1]
			for i, c := range inner {
				if c == ' ' {
					return inner[:i] + ":" + inner[i+1:]
				}
			}
		}
		return s
	}
	return ""
}
