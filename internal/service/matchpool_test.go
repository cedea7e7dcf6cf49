package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/forgo/courtside/api/internal/database"
	"github.com/forgo/courtside/api/internal/model"
)

// ============================================================================
// Mock Repository
// ============================================================================

type mockMatchPoolRepo struct {
	getSessionFunc            func(ctx context.Context, sessionID string) (*model.Session, error)
	getMemberFunc             func(ctx context.Context, memberID string) (*model.Member, error)
	getQueueFunc              func(ctx context.Context, sessionID string) ([]*model.QueueCandidate, error)
	getQueueEntryFunc         func(ctx context.Context, entryID string) (*model.QueueEntry, error)
	getMatchHistoryFunc       func(ctx context.Context, sessionID string) (model.MatchHistory, error)
	getPoolFunc               func(ctx context.Context, poolID string) (*model.MatchPool, error)
	listPoolsFunc             func(ctx context.Context, sessionID string, limit, offset int) ([]*model.MatchPool, int, error)
	getPoolParticipantFunc    func(ctx context.Context, participantID string) (*model.PoolParticipant, error)
	getCourtFunc              func(ctx context.Context, sessionCourtID string) (*model.SessionCourt, error)
	joinQueueFunc             func(ctx context.Context, entry *model.QueueEntry) error
	leaveQueueFunc            func(ctx context.Context, entryID string) error
	addPoolParticipantFunc    func(ctx context.Context, p *model.PoolParticipant, entryID string) error
	removePoolParticipantFunc func(ctx context.Context, participantID string, entry *model.QueueEntry) error
	createPoolFunc            func(ctx context.Context, pool *model.MatchPool, entryIDs []string) error
	disbandPoolFunc           func(ctx context.Context, pool *model.MatchPool, entries []*model.QueueEntry) error
	promotePoolFunc           func(ctx context.Context, pool *model.MatchPool, court *model.SessionCourt, match *model.Match) error
}

func (m *mockMatchPoolRepo) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	if m.getSessionFunc != nil {
		return m.getSessionFunc(ctx, sessionID)
	}
	return &model.Session{ID: sessionID, ClubID: "club-1", IsActive: true}, nil
}

func (m *mockMatchPoolRepo) GetMember(ctx context.Context, memberID string) (*model.Member, error) {
	if m.getMemberFunc != nil {
		return m.getMemberFunc(ctx, memberID)
	}
	return nil, nil
}

func (m *mockMatchPoolRepo) GetQueue(ctx context.Context, sessionID string) ([]*model.QueueCandidate, error) {
	if m.getQueueFunc != nil {
		return m.getQueueFunc(ctx, sessionID)
	}
	return nil, nil
}

func (m *mockMatchPoolRepo) GetQueueEntry(ctx context.Context, entryID string) (*model.QueueEntry, error) {
	if m.getQueueEntryFunc != nil {
		return m.getQueueEntryFunc(ctx, entryID)
	}
	return nil, nil
}

func (m *mockMatchPoolRepo) GetMatchHistory(ctx context.Context, sessionID string) (model.MatchHistory, error) {
	if m.getMatchHistoryFunc != nil {
		return m.getMatchHistoryFunc(ctx, sessionID)
	}
	return model.NewMatchHistory(), nil
}

func (m *mockMatchPoolRepo) GetPool(ctx context.Context, poolID string) (*model.MatchPool, error) {
	if m.getPoolFunc != nil {
		return m.getPoolFunc(ctx, poolID)
	}
	return nil, nil
}

func (m *mockMatchPoolRepo) ListPools(ctx context.Context, sessionID string, limit, offset int) ([]*model.MatchPool, int, error) {
	if m.listPoolsFunc != nil {
		return m.listPoolsFunc(ctx, sessionID, limit, offset)
	}
	return nil, 0, nil
}

func (m *mockMatchPoolRepo) GetPoolParticipant(ctx context.Context, participantID string) (*model.PoolParticipant, error) {
	if m.getPoolParticipantFunc != nil {
		return m.getPoolParticipantFunc(ctx, participantID)
	}
	return nil, nil
}

func (m *mockMatchPoolRepo) GetCourt(ctx context.Context, sessionCourtID string) (*model.SessionCourt, error) {
	if m.getCourtFunc != nil {
		return m.getCourtFunc(ctx, sessionCourtID)
	}
	return nil, nil
}

func (m *mockMatchPoolRepo) JoinQueue(ctx context.Context, entry *model.QueueEntry) error {
	if m.joinQueueFunc != nil {
		return m.joinQueueFunc(ctx, entry)
	}
	return nil
}

func (m *mockMatchPoolRepo) LeaveQueue(ctx context.Context, entryID string) error {
	if m.leaveQueueFunc != nil {
		return m.leaveQueueFunc(ctx, entryID)
	}
	return nil
}

func (m *mockMatchPoolRepo) AddPoolParticipant(ctx context.Context, p *model.PoolParticipant, entryID string) error {
	if m.addPoolParticipantFunc != nil {
		return m.addPoolParticipantFunc(ctx, p, entryID)
	}
	return nil
}

func (m *mockMatchPoolRepo) RemovePoolParticipant(ctx context.Context, participantID string, entry *model.QueueEntry) error {
	if m.removePoolParticipantFunc != nil {
		return m.removePoolParticipantFunc(ctx, participantID, entry)
	}
	return nil
}

func (m *mockMatchPoolRepo) CreatePool(ctx context.Context, pool *model.MatchPool, entryIDs []string) error {
	if m.createPoolFunc != nil {
		return m.createPoolFunc(ctx, pool, entryIDs)
	}
	return nil
}

func (m *mockMatchPoolRepo) DisbandPool(ctx context.Context, pool *model.MatchPool, entries []*model.QueueEntry) error {
	if m.disbandPoolFunc != nil {
		return m.disbandPoolFunc(ctx, pool, entries)
	}
	return nil
}

func (m *mockMatchPoolRepo) PromotePool(ctx context.Context, pool *model.MatchPool, court *model.SessionCourt, match *model.Match) error {
	if m.promotePoolFunc != nil {
		return m.promotePoolFunc(ctx, pool, court, match)
	}
	return nil
}

type recordedOp struct {
	op      string
	outcome string
}

type stubMetrics struct {
	ops       []recordedOp
	proposals int
}

func (s *stubMetrics) OperationCompleted(op, outcome string) {
	s.ops = append(s.ops, recordedOp{op, outcome})
}

func (s *stubMetrics) ProposalGenerated(difference int, repeat bool) {
	s.proposals++
}

var fixedNow = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

func newTestMatchPoolService(repo MatchPoolRepository, metrics MetricsRecorder) *MatchPoolService {
	cfg := MatchPoolServiceConfig{
		Repo:  repo,
		Clock: func() time.Time { return fixedNow },
	}
	if metrics != nil {
		cfg.Metrics = metrics
	}
	return NewMatchPoolService(cfg)
}

func fullPool(id, sessionID string) *model.MatchPool {
	return &model.MatchPool{
		ID:        id,
		SessionID: sessionID,
		Participants: []*model.PoolParticipant{
			{ID: "pp-1", PoolID: id, MemberID: "m1", Team: model.TeamA},
			{ID: "pp-2", PoolID: id, MemberID: "m2", Team: model.TeamA},
			{ID: "pp-3", PoolID: id, MemberID: "m3", Team: model.TeamB},
			{ID: "pp-4", PoolID: id, MemberID: "m4", Team: model.TeamB},
		},
	}
}

func candidates(levels ...model.SkillLevel) []*model.QueueCandidate {
	out := make([]*model.QueueCandidate, len(levels))
	for i, l := range levels {
		id := string(rune('a' + i))
		out[i] = &model.QueueCandidate{
			EntryID:  "qe-" + id,
			MemberID: "m-" + id,
			Level:    l,
			Gender:   model.GenderMale,
			JoinedAt: fixedNow.Add(time.Duration(i) * time.Minute),
		}
	}
	return out
}

// ============================================================================
// Generate Tests
// ============================================================================

func TestGenerate_SessionNotFound(t *testing.T) {
	t.Parallel()
	repo := &mockMatchPoolRepo{
		getSessionFunc: func(ctx context.Context, sessionID string) (*model.Session, error) {
			return nil, nil
		},
	}
	svc := newTestMatchPoolService(repo, nil)

	_, err := svc.Generate(context.Background(), "session-x", "")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	if !errors.Is(err, ErrValidation) {
		t.Errorf("expected validation category, got %v", err)
	}
}

func TestGenerate_InvalidGender(t *testing.T) {
	t.Parallel()
	svc := newTestMatchPoolService(&mockMatchPoolRepo{}, nil)

	_, err := svc.Generate(context.Background(), "session-1", "OTHER")
	if !errors.Is(err, ErrInvalidGender) {
		t.Errorf("expected ErrInvalidGender, got %v", err)
	}
}

func TestGenerate_NotEnoughCandidates(t *testing.T) {
	t.Parallel()
	repo := &mockMatchPoolRepo{
		getQueueFunc: func(ctx context.Context, sessionID string) ([]*model.QueueCandidate, error) {
			return candidates(model.SkillAdvanced, model.SkillBeginner, model.SkillCasual), nil
		},
	}
	metrics := &stubMetrics{}
	svc := newTestMatchPoolService(repo, metrics)

	_, err := svc.Generate(context.Background(), "session-1", "ANY")
	if !errors.Is(err, ErrInsufficientParticipants) {
		t.Errorf("expected ErrInsufficientParticipants, got %v", err)
	}
	if !errors.Is(err, ErrCapacity) {
		t.Errorf("expected capacity category, got %v", err)
	}
	if len(metrics.ops) != 1 || metrics.ops[0].outcome != "capacity" {
		t.Errorf("expected one capacity outcome, got %+v", metrics.ops)
	}
}

func TestGenerate_GenderFilterLeavesTooFew(t *testing.T) {
	t.Parallel()
	queue := candidates(model.SkillAdvanced, model.SkillAdvanced, model.SkillAdvanced, model.SkillAdvanced)
	queue[0].Gender = model.GenderFemale
	repo := &mockMatchPoolRepo{
		getQueueFunc: func(ctx context.Context, sessionID string) ([]*model.QueueCandidate, error) {
			return queue, nil
		},
	}
	svc := newTestMatchPoolService(repo, nil)

	_, err := svc.Generate(context.Background(), "session-1", "MALE")
	if !errors.Is(err, ErrInsufficientParticipants) {
		t.Errorf("expected ErrInsufficientParticipants, got %v", err)
	}
}

func TestGenerate_Success(t *testing.T) {
	t.Parallel()
	repo := &mockMatchPoolRepo{
		getQueueFunc: func(ctx context.Context, sessionID string) ([]*model.QueueCandidate, error) {
			return candidates(model.SkillAdvanced, model.SkillBeginner, model.SkillIntermediate, model.SkillCasual), nil
		},
	}
	metrics := &stubMetrics{}
	svc := newTestMatchPoolService(repo, metrics)

	p, err := svc.Generate(context.Background(), "session-1", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Difference != 0 {
		t.Errorf("expected difference 0, got %d", p.Difference)
	}
	if p.Repeat {
		t.Error("expected a fresh proposal")
	}
	if metrics.proposals != 1 {
		t.Errorf("expected one proposal recorded, got %d", metrics.proposals)
	}
}

func TestGenerate_RepositoryErrorPropagates(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	repo := &mockMatchPoolRepo{
		getQueueFunc: func(ctx context.Context, sessionID string) ([]*model.QueueCandidate, error) {
			return nil, boom
		},
	}
	metrics := &stubMetrics{}
	svc := newTestMatchPoolService(repo, metrics)

	_, err := svc.Generate(context.Background(), "session-1", "")
	if !errors.Is(err, boom) {
		t.Errorf("expected repository error, got %v", err)
	}
	if metrics.ops[0].outcome != "error" {
		t.Errorf("expected error outcome, got %q", metrics.ops[0].outcome)
	}
}

// ============================================================================
// CreatePool Tests
// ============================================================================

func TestCreatePool_InvalidProposal(t *testing.T) {
	t.Parallel()
	svc := newTestMatchPoolService(&mockMatchPoolRepo{}, nil)
	c := candidates(model.SkillCasual, model.SkillCasual, model.SkillCasual)

	tests := []struct {
		name     string
		proposal *model.MatchProposal
	}{
		{"nil", nil},
		{"short team", &model.MatchProposal{TeamA: c[:1], TeamB: c[1:3]}},
		{"duplicate entry", &model.MatchProposal{TeamA: c[:2], TeamB: []*model.QueueCandidate{c[2], c[0]}}},
		{"missing entry id", &model.MatchProposal{TeamA: c[:2], TeamB: []*model.QueueCandidate{c[2], {MemberID: "m-z"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreatePool(context.Background(), "session-1", tt.proposal)
			if !errors.Is(err, ErrInvalidProposal) {
				t.Errorf("expected ErrInvalidProposal, got %v", err)
			}
		})
	}
}

func TestCreatePool_EntryFromOtherSession(t *testing.T) {
	t.Parallel()
	c := candidates(model.SkillCasual, model.SkillCasual, model.SkillCasual, model.SkillCasual)
	repo := &mockMatchPoolRepo{
		getQueueEntryFunc: func(ctx context.Context, entryID string) (*model.QueueEntry, error) {
			return &model.QueueEntry{ID: entryID, SessionID: "session-2", MemberID: "m"}, nil
		},
		createPoolFunc: func(ctx context.Context, pool *model.MatchPool, entryIDs []string) error {
			t.Error("CreatePool must not be called")
			return nil
		},
	}
	svc := newTestMatchPoolService(repo, nil)

	_, err := svc.CreatePool(context.Background(), "session-1", &model.MatchProposal{TeamA: c[:2], TeamB: c[2:]})
	if !errors.Is(err, ErrSessionMismatch) {
		t.Errorf("expected ErrSessionMismatch, got %v", err)
	}
}

func TestCreatePool_SeatsTeamsInOrder(t *testing.T) {
	t.Parallel()
	c := candidates(model.SkillCasual, model.SkillCasual, model.SkillCasual, model.SkillCasual)
	var gotEntries []string
	repo := &mockMatchPoolRepo{
		getQueueEntryFunc: func(ctx context.Context, entryID string) (*model.QueueEntry, error) {
			return &model.QueueEntry{ID: entryID, SessionID: "session-1", MemberID: "member-of-" + entryID}, nil
		},
		createPoolFunc: func(ctx context.Context, pool *model.MatchPool, entryIDs []string) error {
			pool.ID = "pool-1"
			gotEntries = entryIDs
			return nil
		},
	}
	svc := newTestMatchPoolService(repo, nil)

	pool, err := svc.CreatePool(context.Background(), "session-1", &model.MatchProposal{TeamA: c[:2], TeamB: c[2:]})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pool.ID != "pool-1" {
		t.Errorf("expected pool-1, got %q", pool.ID)
	}
	wantTeams := []model.Team{model.TeamA, model.TeamA, model.TeamB, model.TeamB}
	for i, pp := range pool.Participants {
		if pp.Team != wantTeams[i] {
			t.Errorf("seat %d: expected team %s, got %s", i, wantTeams[i], pp.Team)
		}
		if pp.MemberID != "member-of-"+gotEntries[i] {
			t.Errorf("seat %d: member %q does not match entry %q", i, pp.MemberID, gotEntries[i])
		}
		if !pp.CreatedAt.Equal(fixedNow) {
			t.Errorf("seat %d: expected created_at %v, got %v", i, fixedNow, pp.CreatedAt)
		}
	}
}

func TestCreatePool_ConsumedEntryIsConflict(t *testing.T) {
	t.Parallel()
	c := candidates(model.SkillCasual, model.SkillCasual, model.SkillCasual, model.SkillCasual)
	repo := &mockMatchPoolRepo{
		getQueueEntryFunc: func(ctx context.Context, entryID string) (*model.QueueEntry, error) {
			return &model.QueueEntry{ID: entryID, SessionID: "session-1"}, nil
		},
		createPoolFunc: func(ctx context.Context, pool *model.MatchPool, entryIDs []string) error {
			return &database.GuardError{Code: model.GuardQueueEntryConsumed}
		},
	}
	svc := newTestMatchPoolService(repo, nil)

	_, err := svc.CreatePool(context.Background(), "session-1", &model.MatchProposal{TeamA: c[:2], TeamB: c[2:]})
	if !errors.Is(err, ErrQueueEntryConsumed) {
		t.Errorf("expected ErrQueueEntryConsumed, got %v", err)
	}
	if !errors.Is(err, ErrConflict) {
		t.Errorf("expected conflict category, got %v", err)
	}
}

// ============================================================================
// AddToPool Tests
// ============================================================================

func TestAddToPool_Validation(t *testing.T) {
	t.Parallel()
	pool := &model.MatchPool{
		ID:        "pool-1",
		SessionID: "session-1",
		Participants: []*model.PoolParticipant{
			{ID: "pp-1", MemberID: "m1", Team: model.TeamA},
			{ID: "pp-2", MemberID: "m2", Team: model.TeamA},
		},
	}
	entries := map[string]*model.QueueEntry{
		"qe-m1":    {ID: "qe-m1", SessionID: "session-1", MemberID: "m1"},
		"qe-m3":    {ID: "qe-m3", SessionID: "session-1", MemberID: "m3"},
		"qe-other": {ID: "qe-other", SessionID: "session-2", MemberID: "m9"},
	}
	repo := &mockMatchPoolRepo{
		getPoolFunc: func(ctx context.Context, poolID string) (*model.MatchPool, error) {
			if poolID == pool.ID {
				return pool, nil
			}
			return nil, nil
		},
		getQueueEntryFunc: func(ctx context.Context, entryID string) (*model.QueueEntry, error) {
			return entries[entryID], nil
		},
		addPoolParticipantFunc: func(ctx context.Context, p *model.PoolParticipant, entryID string) error {
			t.Errorf("unexpected write for entry %s", entryID)
			return nil
		},
	}
	svc := newTestMatchPoolService(repo, nil)

	tests := []struct {
		name    string
		poolID  string
		entryID string
		team    string
		want    error
	}{
		{"bad team", "pool-1", "qe-m3", "C", ErrInvalidTeam},
		{"lowercase team", "pool-1", "qe-m3", "a", ErrInvalidTeam},
		{"missing pool", "pool-x", "qe-m3", "B", ErrPoolNotFound},
		{"missing entry", "pool-1", "qe-x", "B", ErrQueueEntryNotFound},
		{"other session", "pool-1", "qe-other", "B", ErrSessionMismatch},
		{"already seated", "pool-1", "qe-m1", "B", ErrMemberAlreadyInPool},
		{"team full", "pool-1", "qe-m3", "A", ErrTeamFull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddToPool(context.Background(), tt.poolID, tt.entryID, tt.team)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestAddToPool_Success(t *testing.T) {
	t.Parallel()
	var consumed string
	repo := &mockMatchPoolRepo{
		getPoolFunc: func(ctx context.Context, poolID string) (*model.MatchPool, error) {
			return &model.MatchPool{ID: poolID, SessionID: "session-1"}, nil
		},
		getQueueEntryFunc: func(ctx context.Context, entryID string) (*model.QueueEntry, error) {
			return &model.QueueEntry{ID: entryID, SessionID: "session-1", MemberID: "m3"}, nil
		},
		addPoolParticipantFunc: func(ctx context.Context, p *model.PoolParticipant, entryID string) error {
			p.ID = "pp-new"
			consumed = entryID
			return nil
		},
	}
	svc := newTestMatchPoolService(repo, nil)

	p, err := svc.AddToPool(context.Background(), "pool-1", "qe-3", "B")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != "pp-new" || p.MemberID != "m3" || p.Team != model.TeamB || p.PoolID != "pool-1" {
		t.Errorf("unexpected participant %+v", p)
	}
	if consumed != "qe-3" {
		t.Errorf("expected qe-3 consumed, got %q", consumed)
	}
}

func TestAddToPool_GuardTranslation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		code string
		want error
	}{
		{model.GuardPoolGone, ErrPoolGone},
		{model.GuardQueueEntryConsumed, ErrQueueEntryConsumed},
		{model.GuardMemberInPool, ErrMemberAlreadyInPool},
		{model.GuardTeamFull, ErrTeamFull},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			repo := &mockMatchPoolRepo{
				getPoolFunc: func(ctx context.Context, poolID string) (*model.MatchPool, error) {
					return &model.MatchPool{ID: poolID, SessionID: "session-1"}, nil
				},
				getQueueEntryFunc: func(ctx context.Context, entryID string) (*model.QueueEntry, error) {
					return &model.QueueEntry{ID: entryID, SessionID: "session-1", MemberID: "m3"}, nil
				},
				addPoolParticipantFunc: func(ctx context.Context, p *model.PoolParticipant, entryID string) error {
					return &database.GuardError{Code: tt.code}
				},
			}
			svc := newTestMatchPoolService(repo, nil)

			_, err := svc.AddToPool(context.Background(), "pool-1", "qe-3", "A")
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

// ============================================================================
// RemoveFromPool / DisbandPool Tests
// ============================================================================

func TestRemoveFromPool_NotFound(t *testing.T) {
	t.Parallel()
	svc := newTestMatchPoolService(&mockMatchPoolRepo{}, nil)

	_, err := svc.RemoveFromPool(context.Background(), "pp-x")
	if !errors.Is(err, ErrParticipantNotFound) {
		t.Errorf("expected ErrParticipantNotFound, got %v", err)
	}
}

func TestRemoveFromPool_RequeuesInPoolSession(t *testing.T) {
	t.Parallel()
	repo := &mockMatchPoolRepo{
		getPoolParticipantFunc: func(ctx context.Context, participantID string) (*model.PoolParticipant, error) {
			return &model.PoolParticipant{ID: participantID, PoolID: "pool-1", MemberID: "m2", Team: model.TeamA}, nil
		},
		getPoolFunc: func(ctx context.Context, poolID string) (*model.MatchPool, error) {
			return &model.MatchPool{ID: poolID, SessionID: "session-7"}, nil
		},
		removePoolParticipantFunc: func(ctx context.Context, participantID string, entry *model.QueueEntry) error {
			entry.ID = "qe-new"
			return nil
		},
	}
	svc := newTestMatchPoolService(repo, nil)

	entry, err := svc.RemoveFromPool(context.Background(), "pp-2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.SessionID != "session-7" {
		t.Errorf("expected entry in session-7, got %q", entry.SessionID)
	}
	if entry.MemberID != "m2" || entry.ID != "qe-new" {
		t.Errorf("unexpected entry %+v", entry)
	}
	if !entry.JoinedAt.Equal(fixedNow) {
		t.Errorf("expected joined_at now, got %v", entry.JoinedAt)
	}
}

func TestRemoveFromPool_ConcurrentRemoval(t *testing.T) {
	t.Parallel()
	repo := &mockMatchPoolRepo{
		getPoolParticipantFunc: func(ctx context.Context, participantID string) (*model.PoolParticipant, error) {
			return &model.PoolParticipant{ID: participantID, PoolID: "pool-1", MemberID: "m2"}, nil
		},
		getPoolFunc: func(ctx context.Context, poolID string) (*model.MatchPool, error) {
			return &model.MatchPool{ID: poolID, SessionID: "session-1"}, nil
		},
		removePoolParticipantFunc: func(ctx context.Context, participantID string, entry *model.QueueEntry) error {
			return &database.GuardError{Code: model.GuardParticipantGone}
		},
	}
	svc := newTestMatchPoolService(repo, nil)

	_, err := svc.RemoveFromPool(context.Background(), "pp-2")
	if !errors.Is(err, ErrPoolChanged) {
		t.Errorf("expected ErrPoolChanged, got %v", err)
	}
}

func TestDisbandPool_RequeuesInSeatOrder(t *testing.T) {
	t.Parallel()
	repo := &mockMatchPoolRepo{
		getPoolFunc: func(ctx context.Context, poolID string) (*model.MatchPool, error) {
			return fullPool(poolID, "session-1"), nil
		},
	}
	svc := newTestMatchPoolService(repo, nil)

	entries, err := svc.DisbandPool(context.Background(), "pool-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	for i, e := range entries {
		if want := []string{"m1", "m2", "m3", "m4"}[i]; e.MemberID != want {
			t.Errorf("entry %d: expected %s, got %s", i, want, e.MemberID)
		}
		if i > 0 && !entries[i-1].JoinedAt.Before(e.JoinedAt) {
			t.Errorf("entry %d joined_at not after entry %d", i, i-1)
		}
	}
}

// ============================================================================
// Promote Tests
// ============================================================================

func TestPromote_Preconditions(t *testing.T) {
	t.Parallel()
	partial := fullPool("pool-partial", "session-1")
	partial.Participants = partial.Participants[:3]

	courts := map[string]*model.SessionCourt{
		"sc-free":   {ID: "sc-free", SessionID: "session-1", CourtID: "court-1"},
		"sc-booked": {ID: "sc-booked", SessionID: "session-1", CourtID: "court-2", IsBooked: true},
		"sc-other":  {ID: "sc-other", SessionID: "session-2", CourtID: "court-3"},
	}
	repo := &mockMatchPoolRepo{
		getPoolFunc: func(ctx context.Context, poolID string) (*model.MatchPool, error) {
			switch poolID {
			case "pool-full":
				return fullPool(poolID, "session-1"), nil
			case "pool-partial":
				return partial, nil
			}
			return nil, nil
		},
		getCourtFunc: func(ctx context.Context, id string) (*model.SessionCourt, error) {
			return courts[id], nil
		},
		promotePoolFunc: func(ctx context.Context, pool *model.MatchPool, court *model.SessionCourt, match *model.Match) error {
			t.Error("PromotePool must not be called")
			return nil
		},
	}
	svc := newTestMatchPoolService(repo, nil)

	tests := []struct {
		name   string
		poolID string
		court  string
		want   error
	}{
		{"missing pool", "pool-x", "sc-free", ErrPoolNotFound},
		{"three players", "pool-partial", "sc-free", ErrPoolIncomplete},
		{"missing court", "pool-full", "sc-x", ErrCourtNotFound},
		{"other session court", "pool-full", "sc-other", ErrSessionMismatch},
		{"booked court", "pool-full", "sc-booked", ErrCourtBooked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Promote(context.Background(), tt.poolID, tt.court)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestPromote_IncompleteCheckedBeforeCourt(t *testing.T) {
	t.Parallel()
	repo := &mockMatchPoolRepo{
		getPoolFunc: func(ctx context.Context, poolID string) (*model.MatchPool, error) {
			return &model.MatchPool{ID: poolID, SessionID: "session-1"}, nil
		},
		getCourtFunc: func(ctx context.Context, id string) (*model.SessionCourt, error) {
			t.Error("court must not be read for an incomplete pool")
			return nil, nil
		},
	}
	svc := newTestMatchPoolService(repo, nil)

	_, err := svc.Promote(context.Background(), "pool-1", "sc-1")
	if !errors.Is(err, ErrPoolIncomplete) {
		t.Errorf("expected ErrPoolIncomplete, got %v", err)
	}
}

func TestPromote_BuildsMatch(t *testing.T) {
	t.Parallel()
	var got *model.Match
	repo := &mockMatchPoolRepo{
		getSessionFunc: func(ctx context.Context, sessionID string) (*model.Session, error) {
			return &model.Session{ID: sessionID, ClubID: "club-9", IsActive: true}, nil
		},
		getPoolFunc: func(ctx context.Context, poolID string) (*model.MatchPool, error) {
			return fullPool(poolID, "session-1"), nil
		},
		getCourtFunc: func(ctx context.Context, id string) (*model.SessionCourt, error) {
			return &model.SessionCourt{ID: id, SessionID: "session-1", CourtID: "court-4"}, nil
		},
		promotePoolFunc: func(ctx context.Context, pool *model.MatchPool, court *model.SessionCourt, match *model.Match) error {
			match.ID = "match-1"
			got = match
			return nil
		},
	}
	svc := NewMatchPoolService(MatchPoolServiceConfig{
		Repo:          repo,
		Clock:         func() time.Time { return fixedNow },
		MatchDuration: 45 * time.Minute,
	})

	m, err := svc.Promote(context.Background(), "pool-1", "sc-4")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m != got || m.ID != "match-1" {
		t.Fatalf("expected the committed match, got %+v", m)
	}
	if m.ClubID != "club-9" || m.CourtID != "court-4" || m.SessionID != "session-1" {
		t.Errorf("unexpected match ownership %+v", m)
	}
	if !m.StartTime.Equal(fixedNow) || !m.EndTime.Equal(fixedNow.Add(45*time.Minute)) {
		t.Errorf("unexpected match window %v - %v", m.StartTime, m.EndTime)
	}
	if len(m.Participants) != 4 {
		t.Fatalf("expected 4 participants, got %d", len(m.Participants))
	}
	for i, mp := range m.Participants {
		pp := fullPool("pool-1", "session-1").Participants[i]
		if mp.MemberID != pp.MemberID || mp.Team != pp.Team {
			t.Errorf("participant %d: expected %s/%s, got %s/%s", i, pp.MemberID, pp.Team, mp.MemberID, mp.Team)
		}
	}
}

func TestPromote_StoreFailures(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"court booked concurrently", &database.GuardError{Code: model.GuardCourtBooked}, ErrCourtBooked},
		{"pool promoted concurrently", &database.GuardError{Code: model.GuardPoolGone}, ErrPoolGone},
		{"participants changed", &database.GuardError{Code: model.GuardPoolChanged}, ErrPoolChanged},
		{"transaction conflict", database.ErrTxConflict, ErrConcurrentUpdate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockMatchPoolRepo{
				getPoolFunc: func(ctx context.Context, poolID string) (*model.MatchPool, error) {
					return fullPool(poolID, "session-1"), nil
				},
				getCourtFunc: func(ctx context.Context, id string) (*model.SessionCourt, error) {
					return &model.SessionCourt{ID: id, SessionID: "session-1", CourtID: "court-1"}, nil
				},
				promotePoolFunc: func(ctx context.Context, pool *model.MatchPool, court *model.SessionCourt, match *model.Match) error {
					return tt.err
				},
			}
			svc := newTestMatchPoolService(repo, nil)

			_, err := svc.Promote(context.Background(), "pool-1", "sc-1")
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

// ============================================================================
// Queue / Listing Tests
// ============================================================================

func TestJoinQueue_InactiveSession(t *testing.T) {
	t.Parallel()
	repo := &mockMatchPoolRepo{
		getSessionFunc: func(ctx context.Context, sessionID string) (*model.Session, error) {
			return &model.Session{ID: sessionID, IsActive: false}, nil
		},
	}
	svc := newTestMatchPoolService(repo, nil)

	_, err := svc.JoinQueue(context.Background(), "session-1", "m1")
	if !errors.Is(err, ErrSessionInactive) {
		t.Errorf("expected ErrSessionInactive, got %v", err)
	}
}

func TestJoinQueue_UnknownMember(t *testing.T) {
	t.Parallel()
	svc := newTestMatchPoolService(&mockMatchPoolRepo{}, nil)

	_, err := svc.JoinQueue(context.Background(), "session-1", "m-x")
	if !errors.Is(err, ErrMemberNotFound) {
		t.Errorf("expected ErrMemberNotFound, got %v", err)
	}
}

func TestJoinQueue_Duplicate(t *testing.T) {
	t.Parallel()
	repo := &mockMatchPoolRepo{
		getMemberFunc: func(ctx context.Context, memberID string) (*model.Member, error) {
			return &model.Member{ID: memberID}, nil
		},
		joinQueueFunc: func(ctx context.Context, entry *model.QueueEntry) error {
			return &database.GuardError{Code: model.GuardAlreadyQueued}
		},
	}
	svc := newTestMatchPoolService(repo, nil)

	_, err := svc.JoinQueue(context.Background(), "session-1", "m1")
	if !errors.Is(err, ErrAlreadyQueued) {
		t.Errorf("expected ErrAlreadyQueued, got %v", err)
	}
}

func TestLeaveQueue_NotFound(t *testing.T) {
	t.Parallel()
	svc := newTestMatchPoolService(&mockMatchPoolRepo{}, nil)

	if err := svc.LeaveQueue(context.Background(), "qe-x"); !errors.Is(err, ErrQueueEntryNotFound) {
		t.Errorf("expected ErrQueueEntryNotFound, got %v", err)
	}
}

func TestListPools_Pagination(t *testing.T) {
	t.Parallel()
	var gotLimit, gotOffset int
	repo := &mockMatchPoolRepo{
		listPoolsFunc: func(ctx context.Context, sessionID string, limit, offset int) ([]*model.MatchPool, int, error) {
			gotLimit, gotOffset = limit, offset
			return nil, 45, nil
		},
	}
	svc := newTestMatchPoolService(repo, nil)

	tests := []struct {
		name       string
		page       int
		limit      int
		wantLimit  int
		wantOffset int
		wantPages  int
	}{
		{"defaults", 0, 0, model.DefaultPageLimit, 0, 3},
		{"third page", 3, 10, 10, 20, 5},
		{"limit capped", 1, 500, model.MaxPageLimit, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			list, err := svc.ListPools(context.Background(), "session-1", tt.page, tt.limit)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if gotLimit != tt.wantLimit || gotOffset != tt.wantOffset {
				t.Errorf("expected limit/offset %d/%d, got %d/%d", tt.wantLimit, tt.wantOffset, gotLimit, gotOffset)
			}
			if list.TotalPages != tt.wantPages {
				t.Errorf("expected %d pages, got %d", tt.wantPages, list.TotalPages)
			}
			if list.Pools == nil {
				t.Error("expected empty slice, got nil")
			}
		})
	}
}

// ============================================================================
// Error Translation Tests
// ============================================================================

func TestTranslateStoreError(t *testing.T) {
	t.Parallel()
	plain := errors.New("socket closed")
	if got := translateStoreError(plain); got != plain {
		t.Errorf("expected passthrough, got %v", got)
	}

	err := translateStoreError(&database.GuardError{Code: "something_new"})
	if !errors.Is(err, ErrState) {
		t.Errorf("expected unknown guard to map to ErrState, got %v", err)
	}
}

func TestErrorCategory(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{ErrPoolNotFound, "validation"},
		{ErrTeamFull, "capacity"},
		{ErrCourtBooked, "conflict"},
		{ErrPoolGone, "state"},
		{errors.New("x"), "error"},
	}
	for _, tt := range tests {
		if got := ErrorCategory(tt.err); got != tt.want {
			t.Errorf("ErrorCategory(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
