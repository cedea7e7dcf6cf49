// Package memstore is an in-memory match pool store for tests.
//
// Every method runs under one mutex, so each mutating call is atomic and
// isolated the same way a SurrealDB transaction is. Guard failures are
// reported with the same *database.GuardError codes the SurrealDB
// repository raises.
package memstore

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/forgo/courtside/api/internal/database"
	"github.com/forgo/courtside/api/internal/model"
)

// Store holds sessions, queues, pools and matches in maps
type Store struct {
	mu           sync.Mutex
	seq          int
	order        map[string]int
	sessions     map[string]*model.Session
	members      map[string]*model.Member
	courts       map[string]*model.SessionCourt
	entries      map[string]*model.QueueEntry
	pools        map[string]*model.MatchPool
	participants map[string]*model.PoolParticipant
	matches      map[string]*model.Match
}

// New creates an empty store
func New() *Store {
	return &Store{
		order:        make(map[string]int),
		sessions:     make(map[string]*model.Session),
		members:      make(map[string]*model.Member),
		courts:       make(map[string]*model.SessionCourt),
		entries:      make(map[string]*model.QueueEntry),
		pools:        make(map[string]*model.MatchPool),
		participants: make(map[string]*model.PoolParticipant),
		matches:      make(map[string]*model.Match),
	}
}

func newID(table string) string {
	return table + ":" + uuid.NewString()
}

// track records insertion order for stable sorting of equal timestamps
func (s *Store) track(id string) {
	s.seq++
	s.order[id] = s.seq
}

func guard(code string) error {
	return &database.GuardError{Code: code}
}

// ============================================================================
// Seeding
// ============================================================================

// PutSession stores a session, assigning an ID when empty
func (s *Store) PutSession(session model.Session) *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session.ID == "" {
		session.ID = newID("session")
	}
	s.sessions[session.ID] = &session
	c := session
	return &c
}

// PutMember stores a member, assigning an ID when empty
func (s *Store) PutMember(member model.Member) *model.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	if member.ID == "" {
		member.ID = newID("member")
	}
	s.members[member.ID] = &member
	c := member
	return &c
}

// PutCourt stores a session court, assigning an ID when empty
func (s *Store) PutCourt(court model.SessionCourt) *model.SessionCourt {
	s.mu.Lock()
	defer s.mu.Unlock()
	if court.ID == "" {
		court.ID = newID("session_court")
	}
	s.courts[court.ID] = &court
	c := court
	return &c
}

// ============================================================================
// Inspection
// ============================================================================

// Court returns a copy of a court's current state
func (s *Store) Court(id string) *model.SessionCourt {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.courts[id]
	if !ok {
		return nil
	}
	cp := *c
	return &cp
}

// Matches returns copies of a session's matches
func (s *Store) Matches(sessionID string) []*model.Match {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Match
	for _, m := range s.sortedMatches() {
		if m.SessionID == sessionID {
			out = append(out, copyMatch(m))
		}
	}
	return out
}

// Counts reports queue entries, pools and participants for a session
func (s *Store) Counts(sessionID string) (queued, pools, pooled int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.SessionID == sessionID {
			queued++
		}
	}
	for _, p := range s.pools {
		if p.SessionID == sessionID {
			pools++
			pooled += len(s.poolParticipants(p.ID))
		}
	}
	return queued, pools, pooled
}

// ============================================================================
// Reads
// ============================================================================

func (s *Store) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.sessions[sessionID]; ok {
		c := *v
		return &c, nil
	}
	return nil, nil
}

func (s *Store) GetMember(ctx context.Context, memberID string) (*model.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.members[memberID]; ok {
		c := *v
		return &c, nil
	}
	return nil, nil
}

func (s *Store) GetQueue(ctx context.Context, sessionID string) ([]*model.QueueCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*model.QueueCandidate
	for _, e := range s.sessionEntries(sessionID) {
		c := &model.QueueCandidate{
			EntryID:  e.ID,
			MemberID: e.MemberID,
			JoinedAt: e.JoinedAt,
		}
		if m, ok := s.members[e.MemberID]; ok {
			c.Level = m.Level
			c.Gender = m.Gender
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Store) GetQueueEntry(ctx context.Context, entryID string) (*model.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.entries[entryID]; ok {
		c := *v
		return &c, nil
	}
	return nil, nil
}

func (s *Store) GetMatchHistory(ctx context.Context, sessionID string) (model.MatchHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := model.NewMatchHistory()
	for _, m := range s.matches {
		if m.SessionID == sessionID {
			h.Add(m.MemberIDs())
		}
	}
	return h, nil
}

func (s *Store) GetPool(ctx context.Context, poolID string) (*model.MatchPool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pools[poolID]
	if !ok {
		return nil, nil
	}
	return s.hydratePool(p), nil
}

func (s *Store) ListPools(ctx context.Context, sessionID string, limit, offset int) ([]*model.MatchPool, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var all []*model.MatchPool
	for _, p := range s.pools {
		if p.SessionID == sessionID {
			all = append(all, p)
		}
	}
	slices.SortFunc(all, func(a, b *model.MatchPool) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return s.order[a.ID] - s.order[b.ID]
	})

	total := len(all)
	if offset >= total {
		return []*model.MatchPool{}, total, nil
	}
	end := min(offset+limit, total)
	out := make([]*model.MatchPool, 0, end-offset)
	for _, p := range all[offset:end] {
		out = append(out, s.hydratePool(p))
	}
	return out, total, nil
}

func (s *Store) GetPoolParticipant(ctx context.Context, participantID string) (*model.PoolParticipant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.participants[participantID]; ok {
		c := *v
		return &c, nil
	}
	return nil, nil
}

func (s *Store) GetCourt(ctx context.Context, sessionCourtID string) (*model.SessionCourt, error) {
	return s.Court(sessionCourtID), nil
}

// ============================================================================
// Atomic writes
// ============================================================================

func (s *Store) JoinQueue(ctx context.Context, entry *model.QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[entry.SessionID]
	if !ok || !session.IsActive {
		return guard(model.GuardSessionInactive)
	}
	for _, e := range s.entries {
		if e.SessionID == entry.SessionID && e.MemberID == entry.MemberID {
			return guard(model.GuardAlreadyQueued)
		}
	}
	if s.memberPooled(entry.SessionID, entry.MemberID) {
		return guard(model.GuardMemberPooled)
	}

	s.insertEntry(entry)
	return nil
}

func (s *Store) LeaveQueue(ctx context.Context, entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[entryID]; !ok {
		return guard(model.GuardQueueEntryConsumed)
	}
	delete(s.entries, entryID)
	return nil
}

func (s *Store) AddPoolParticipant(ctx context.Context, p *model.PoolParticipant, entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pools[p.PoolID]; !ok {
		return guard(model.GuardPoolGone)
	}
	if _, ok := s.entries[entryID]; !ok {
		return guard(model.GuardQueueEntryConsumed)
	}
	team := 0
	for _, pp := range s.poolParticipants(p.PoolID) {
		if pp.MemberID == p.MemberID {
			return guard(model.GuardMemberInPool)
		}
		if pp.Team == p.Team {
			team++
		}
	}
	if team >= model.TeamSize {
		return guard(model.GuardTeamFull)
	}

	delete(s.entries, entryID)
	s.insertParticipant(p)
	return nil
}

func (s *Store) RemovePoolParticipant(ctx context.Context, participantID string, entry *model.QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.participants[participantID]; !ok {
		return guard(model.GuardParticipantGone)
	}
	delete(s.participants, participantID)
	s.insertEntry(entry)
	return nil
}

func (s *Store) CreatePool(ctx context.Context, pool *model.MatchPool, entryIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// check every guard before the first write
	for _, id := range entryIDs {
		if _, ok := s.entries[id]; !ok {
			return guard(model.GuardQueueEntryConsumed)
		}
	}

	pool.ID = newID("match_pool")
	stored := *pool
	stored.Participants = nil
	s.pools[pool.ID] = &stored
	s.track(pool.ID)

	for i, p := range pool.Participants {
		p.PoolID = pool.ID
		s.insertParticipant(p)
		delete(s.entries, entryIDs[i])
	}
	return nil
}

func (s *Store) DisbandPool(ctx context.Context, pool *model.MatchPool, entries []*model.QueueEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pools[pool.ID]; !ok {
		return guard(model.GuardPoolGone)
	}
	if !s.sameParticipants(pool) {
		return guard(model.GuardPoolChanged)
	}

	for _, pp := range s.poolParticipants(pool.ID) {
		delete(s.participants, pp.ID)
	}
	delete(s.pools, pool.ID)
	for _, e := range entries {
		s.insertEntry(e)
	}
	return nil
}

func (s *Store) PromotePool(ctx context.Context, pool *model.MatchPool, court *model.SessionCourt, match *model.Match) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pools[pool.ID]; !ok {
		return guard(model.GuardPoolGone)
	}
	if !s.sameParticipants(pool) {
		return guard(model.GuardPoolChanged)
	}
	stored := &model.MatchPool{Participants: s.poolParticipants(pool.ID)}
	if stored.TeamCount(model.TeamA) != model.TeamSize || stored.TeamCount(model.TeamB) != model.TeamSize {
		return guard(model.GuardPoolIncomplete)
	}
	c, ok := s.courts[court.ID]
	if !ok {
		return guard(model.GuardCourtGone)
	}
	if c.IsBooked {
		return guard(model.GuardCourtBooked)
	}

	match.ID = newID("match")
	for _, mp := range match.Participants {
		mp.ID = newID("match_participant")
		mp.MatchID = match.ID
	}
	s.matches[match.ID] = copyMatch(match)
	s.track(match.ID)

	for _, pp := range s.poolParticipants(pool.ID) {
		delete(s.participants, pp.ID)
	}
	delete(s.pools, pool.ID)
	c.IsBooked = true
	return nil
}

// ============================================================================
// Internal helpers (callers hold mu)
// ============================================================================

func (s *Store) insertEntry(entry *model.QueueEntry) {
	entry.ID = newID("queue_entry")
	c := *entry
	s.entries[entry.ID] = &c
	s.track(entry.ID)
}

func (s *Store) insertParticipant(p *model.PoolParticipant) {
	p.ID = newID("pool_participant")
	c := *p
	s.participants[p.ID] = &c
	s.track(p.ID)
}

func (s *Store) sessionEntries(sessionID string) []*model.QueueEntry {
	var out []*model.QueueEntry
	for _, e := range s.entries {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	slices.SortFunc(out, func(a, b *model.QueueEntry) int {
		if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
			return c
		}
		return s.order[a.ID] - s.order[b.ID]
	})
	return out
}

func (s *Store) poolParticipants(poolID string) []*model.PoolParticipant {
	var out []*model.PoolParticipant
	for _, pp := range s.participants {
		if pp.PoolID == poolID {
			out = append(out, pp)
		}
	}
	slices.SortFunc(out, func(a, b *model.PoolParticipant) int {
		return s.order[a.ID] - s.order[b.ID]
	})
	return out
}

func (s *Store) hydratePool(p *model.MatchPool) *model.MatchPool {
	c := *p
	c.Participants = nil
	for _, pp := range s.poolParticipants(p.ID) {
		cp := *pp
		c.Participants = append(c.Participants, &cp)
	}
	return &c
}

// sameParticipants reports whether the stored participants of pool are
// exactly the ones the caller read.
func (s *Store) sameParticipants(pool *model.MatchPool) bool {
	stored := s.poolParticipants(pool.ID)
	if len(stored) != len(pool.Participants) {
		return false
	}
	want := make(map[string]struct{}, len(pool.Participants))
	for _, pp := range pool.Participants {
		want[pp.ID] = struct{}{}
	}
	for _, pp := range stored {
		if _, ok := want[pp.ID]; !ok {
			return false
		}
	}
	return true
}

func (s *Store) memberPooled(sessionID, memberID string) bool {
	for _, pp := range s.participants {
		if pp.MemberID != memberID {
			continue
		}
		if p, ok := s.pools[pp.PoolID]; ok && p.SessionID == sessionID {
			return true
		}
	}
	return false
}

func (s *Store) sortedMatches() []*model.Match {
	ms := slices.Collect(maps.Values(s.matches))
	slices.SortFunc(ms, func(a, b *model.Match) int {
		return s.order[a.ID] - s.order[b.ID]
	})
	return ms
}

func copyMatch(m *model.Match) *model.Match {
	c := *m
	c.Participants = make([]*model.MatchParticipant, len(m.Participants))
	for i, p := range m.Participants {
		cp := *p
		c.Participants[i] = &cp
	}
	return &c
}
