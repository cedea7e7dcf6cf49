package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/forgo/courtside/api/internal/database"
	"github.com/forgo/courtside/api/internal/matching"
	"github.com/forgo/courtside/api/internal/model"
)

// DefaultMatchDuration is how long a promoted match books its court
const DefaultMatchDuration = time.Hour

// MatchPoolRepository defines the storage the match pool service needs.
// Getters return nil, nil when the record does not exist. Mutating methods
// apply all of their writes in one transaction and re-check their
// preconditions inside it, failing with *database.GuardError when one no
// longer holds.
type MatchPoolRepository interface {
	GetSession(ctx context.Context, sessionID string) (*model.Session, error)
	GetMember(ctx context.Context, memberID string) (*model.Member, error)
	GetQueue(ctx context.Context, sessionID string) ([]*model.QueueCandidate, error)
	GetQueueEntry(ctx context.Context, entryID string) (*model.QueueEntry, error)
	GetMatchHistory(ctx context.Context, sessionID string) (model.MatchHistory, error)
	GetPool(ctx context.Context, poolID string) (*model.MatchPool, error)
	ListPools(ctx context.Context, sessionID string, limit, offset int) ([]*model.MatchPool, int, error)
	GetPoolParticipant(ctx context.Context, participantID string) (*model.PoolParticipant, error)
	GetCourt(ctx context.Context, sessionCourtID string) (*model.SessionCourt, error)

	// JoinQueue creates entry, setting its ID.
	JoinQueue(ctx context.Context, entry *model.QueueEntry) error
	// LeaveQueue deletes an entry that must still exist.
	LeaveQueue(ctx context.Context, entryID string) error
	// AddPoolParticipant creates p and consumes the queue entry.
	AddPoolParticipant(ctx context.Context, p *model.PoolParticipant, entryID string) error
	// RemovePoolParticipant deletes the participant and creates entry at the
	// back of the queue.
	RemovePoolParticipant(ctx context.Context, participantID string, entry *model.QueueEntry) error
	// CreatePool creates pool with its participants and consumes entryIDs,
	// where entryIDs[i] is the queue entry of pool.Participants[i].
	CreatePool(ctx context.Context, pool *model.MatchPool, entryIDs []string) error
	// DisbandPool deletes pool and its participants and re-queues entries.
	DisbandPool(ctx context.Context, pool *model.MatchPool, entries []*model.QueueEntry) error
	// PromotePool creates match from pool, deletes the pool and books court.
	PromotePool(ctx context.Context, pool *model.MatchPool, court *model.SessionCourt, match *model.Match) error
}

// MetricsRecorder receives operation outcomes. Optional.
type MetricsRecorder interface {
	OperationCompleted(op, outcome string)
	ProposalGenerated(difference int, repeat bool)
}

// MatchPoolService turns a session queue into balanced pools and pools into
// court matches.
type MatchPoolService struct {
	repo          MatchPoolRepository
	generator     *matching.Generator
	metrics       MetricsRecorder
	matchDuration time.Duration
	now           func() time.Time
	logger        *slog.Logger
}

// MatchPoolServiceConfig holds configuration for the match pool service
type MatchPoolServiceConfig struct {
	Repo          MatchPoolRepository
	Generator     *matching.Generator // Optional, default skill table and config
	Metrics       MetricsRecorder     // Optional
	MatchDuration time.Duration       // Optional, defaults to DefaultMatchDuration
	Clock         func() time.Time    // Optional, defaults to time.Now
	Logger        *slog.Logger        // Optional, defaults to slog.Default()
}

// NewMatchPoolService creates a new match pool service
func NewMatchPoolService(cfg MatchPoolServiceConfig) *MatchPoolService {
	s := &MatchPoolService{
		repo:          cfg.Repo,
		generator:     cfg.Generator,
		metrics:       cfg.Metrics,
		matchDuration: cfg.MatchDuration,
		now:           cfg.Clock,
		logger:        cfg.Logger,
	}
	if s.generator == nil {
		s.generator = matching.NewGenerator(nil, matching.DefaultConfig)
	}
	if s.matchDuration <= 0 {
		s.matchDuration = DefaultMatchDuration
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Generate proposes a balanced group of four from the session queue. It
// performs no writes and is safe to retry.
func (s *MatchPoolService) Generate(ctx context.Context, sessionID, gender string) (p *model.MatchProposal, err error) {
	defer s.observe("generate", &err)

	filter, err := model.ParseGenderFilter(gender)
	if err != nil {
		return nil, ErrInvalidGender
	}
	if _, err := s.requireSession(ctx, sessionID); err != nil {
		return nil, err
	}

	queue, err := s.repo.GetQueue(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	history, err := s.repo.GetMatchHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	p, err = s.generator.Generate(queue, filter, history)
	if errors.Is(err, matching.ErrNotEnoughCandidates) {
		return nil, fmt.Errorf("%w (%v)", ErrInsufficientParticipants, err)
	}
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.ProposalGenerated(p.Difference, p.Repeat)
	}
	return p, nil
}

// GeneratePool generates a proposal and commits it as a pool in one call
func (s *MatchPoolService) GeneratePool(ctx context.Context, sessionID, gender string) (*model.MatchPool, *model.MatchProposal, error) {
	proposal, err := s.Generate(ctx, sessionID, gender)
	if err != nil {
		return nil, nil, err
	}
	pool, err := s.CreatePool(ctx, sessionID, proposal)
	if err != nil {
		return nil, proposal, err
	}
	return pool, proposal, nil
}

// CreatePool commits a proposal: the pool, its four participants and the
// removal of their queue entries apply together or not at all.
func (s *MatchPoolService) CreatePool(ctx context.Context, sessionID string, proposal *model.MatchProposal) (pool *model.MatchPool, err error) {
	defer s.observe("create_pool", &err)

	if err := validateProposal(proposal); err != nil {
		return nil, err
	}
	if _, err := s.requireSession(ctx, sessionID); err != nil {
		return nil, err
	}

	now := s.now()
	pool = &model.MatchPool{
		SessionID:    sessionID,
		CreatedAt:    now,
		Participants: make([]*model.PoolParticipant, 0, model.PoolSize),
	}
	entryIDs := make([]string, 0, model.PoolSize)

	for _, seat := range proposal.Seats() {
		entry, err := s.repo.GetQueueEntry(ctx, seat.Candidate.EntryID)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return nil, ErrQueueEntryNotFound
		}
		if entry.SessionID != sessionID {
			return nil, ErrSessionMismatch
		}
		pool.Participants = append(pool.Participants, &model.PoolParticipant{
			MemberID:  entry.MemberID,
			Team:      seat.Team,
			CreatedAt: now,
		})
		entryIDs = append(entryIDs, entry.ID)
	}

	if err := s.repo.CreatePool(ctx, pool, entryIDs); err != nil {
		return nil, translateStoreError(err)
	}

	s.logger.InfoContext(ctx, "pool created",
		slog.String("session_id", sessionID),
		slog.String("pool_id", pool.ID),
		slog.Int("difference", proposal.Difference),
		slog.Bool("repeat", proposal.Repeat),
	)
	return pool, nil
}

// AddToPool seats a queued member on a team, consuming their queue entry
func (s *MatchPoolService) AddToPool(ctx context.Context, poolID, queueEntryID, team string) (p *model.PoolParticipant, err error) {
	defer s.observe("add_to_pool", &err)

	t := model.Team(team)
	if !t.Valid() {
		return nil, ErrInvalidTeam
	}

	pool, err := s.requirePool(ctx, poolID)
	if err != nil {
		return nil, err
	}
	entry, err := s.repo.GetQueueEntry(ctx, queueEntryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrQueueEntryNotFound
	}
	if entry.SessionID != pool.SessionID {
		return nil, ErrSessionMismatch
	}
	if pool.HasMember(entry.MemberID) {
		return nil, ErrMemberAlreadyInPool
	}
	if pool.TeamCount(t) >= model.TeamSize {
		return nil, ErrTeamFull
	}

	p = &model.PoolParticipant{
		PoolID:    pool.ID,
		MemberID:  entry.MemberID,
		Team:      t,
		CreatedAt: s.now(),
	}
	if err := s.repo.AddPoolParticipant(ctx, p, entry.ID); err != nil {
		return nil, translateStoreError(err)
	}

	s.logger.InfoContext(ctx, "member pooled",
		slog.String("pool_id", pool.ID),
		slog.String("member_id", p.MemberID),
		slog.String("team", string(t)),
	)
	return p, nil
}

// RemoveFromPool returns a pooled member to the back of the session queue.
// The returned entry replaces the one consumed when they were pooled.
func (s *MatchPoolService) RemoveFromPool(ctx context.Context, participantID string) (entry *model.QueueEntry, err error) {
	defer s.observe("remove_from_pool", &err)

	pp, err := s.repo.GetPoolParticipant(ctx, participantID)
	if err != nil {
		return nil, err
	}
	if pp == nil {
		return nil, ErrParticipantNotFound
	}
	pool, err := s.repo.GetPool(ctx, pp.PoolID)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, ErrPoolGone
	}

	entry = &model.QueueEntry{
		SessionID: pool.SessionID,
		MemberID:  pp.MemberID,
		JoinedAt:  s.now(),
	}
	if err := s.repo.RemovePoolParticipant(ctx, pp.ID, entry); err != nil {
		return nil, translateStoreError(err)
	}

	s.logger.InfoContext(ctx, "member returned to queue",
		slog.String("pool_id", pool.ID),
		slog.String("member_id", pp.MemberID),
		slog.String("queue_entry_id", entry.ID),
	)
	return entry, nil
}

// DisbandPool deletes a pool and returns every participant to the back of
// the queue, in seat order.
func (s *MatchPoolService) DisbandPool(ctx context.Context, poolID string) (entries []*model.QueueEntry, err error) {
	defer s.observe("disband_pool", &err)

	pool, err := s.requirePool(ctx, poolID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	entries = lo.Map(pool.Participants, func(pp *model.PoolParticipant, i int) *model.QueueEntry {
		return &model.QueueEntry{
			SessionID: pool.SessionID,
			MemberID:  pp.MemberID,
			// keep seat order stable within the same instant
			JoinedAt: now.Add(time.Duration(i) * time.Microsecond),
		}
	})
	if err := s.repo.DisbandPool(ctx, pool, entries); err != nil {
		return nil, translateStoreError(err)
	}

	s.logger.InfoContext(ctx, "pool disbanded",
		slog.String("pool_id", pool.ID),
		slog.Int("requeued", len(entries)),
	)
	return entries, nil
}

// Promote turns a full pool into a match on a free court of the same
// session. Match creation, pool deletion and court booking apply together.
func (s *MatchPoolService) Promote(ctx context.Context, poolID, sessionCourtID string) (match *model.Match, err error) {
	defer s.observe("promote", &err)

	pool, err := s.requirePool(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if !pool.Complete() {
		return nil, ErrPoolIncomplete
	}

	court, err := s.repo.GetCourt(ctx, sessionCourtID)
	if err != nil {
		return nil, err
	}
	if court == nil {
		return nil, ErrCourtNotFound
	}
	if court.SessionID != pool.SessionID {
		return nil, ErrSessionMismatch
	}
	if court.IsBooked {
		return nil, ErrCourtBooked
	}

	session, err := s.requireSession(ctx, pool.SessionID)
	if err != nil {
		return nil, err
	}

	start := s.now()
	match = &model.Match{
		SessionID: pool.SessionID,
		CourtID:   court.CourtID,
		ClubID:    session.ClubID,
		StartTime: start,
		EndTime:   start.Add(s.matchDuration),
		Participants: lo.Map(pool.Participants, func(pp *model.PoolParticipant, _ int) *model.MatchParticipant {
			return &model.MatchParticipant{MemberID: pp.MemberID, Team: pp.Team}
		}),
	}
	if err := s.repo.PromotePool(ctx, pool, court, match); err != nil {
		return nil, translateStoreError(err)
	}

	s.logger.InfoContext(ctx, "pool promoted",
		slog.String("pool_id", pool.ID),
		slog.String("match_id", match.ID),
		slog.String("court_id", court.CourtID),
	)
	return match, nil
}

// GetPool returns a pool with its participants
func (s *MatchPoolService) GetPool(ctx context.Context, poolID string) (*model.MatchPool, error) {
	return s.requirePool(ctx, poolID)
}

// ListPools returns a page of the session's pools, oldest first
func (s *MatchPoolService) ListPools(ctx context.Context, sessionID string, page, limit int) (*model.PoolList, error) {
	if _, err := s.requireSession(ctx, sessionID); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = model.DefaultPageLimit
	}
	limit = min(limit, model.MaxPageLimit)

	pools, total, err := s.repo.ListPools(ctx, sessionID, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	if pools == nil {
		pools = []*model.MatchPool{}
	}
	return &model.PoolList{
		Pools:      pools,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

// GetQueue returns the session queue in arrival order
func (s *MatchPoolService) GetQueue(ctx context.Context, sessionID string) (*model.QueueView, error) {
	if _, err := s.requireSession(ctx, sessionID); err != nil {
		return nil, err
	}
	entries, err := s.repo.GetQueue(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*model.QueueCandidate{}
	}
	return &model.QueueView{SessionID: sessionID, Entries: entries}, nil
}

// JoinQueue adds a member to the back of an active session's queue
func (s *MatchPoolService) JoinQueue(ctx context.Context, sessionID, memberID string) (entry *model.QueueEntry, err error) {
	defer s.observe("join_queue", &err)

	session, err := s.requireSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsActive {
		return nil, ErrSessionInactive
	}
	member, err := s.repo.GetMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}

	entry = &model.QueueEntry{
		SessionID: sessionID,
		MemberID:  member.ID,
		JoinedAt:  s.now(),
	}
	if err := s.repo.JoinQueue(ctx, entry); err != nil {
		return nil, translateStoreError(err)
	}
	return entry, nil
}

// LeaveQueue removes a queue entry
func (s *MatchPoolService) LeaveQueue(ctx context.Context, entryID string) (err error) {
	defer s.observe("leave_queue", &err)

	entry, err := s.repo.GetQueueEntry(ctx, entryID)
	if err != nil {
		return err
	}
	if entry == nil {
		return ErrQueueEntryNotFound
	}
	if err := s.repo.LeaveQueue(ctx, entry.ID); err != nil {
		return translateStoreError(err)
	}
	return nil
}

func (s *MatchPoolService) requireSession(ctx context.Context, sessionID string) (*model.Session, error) {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (s *MatchPoolService) requirePool(ctx context.Context, poolID string) (*model.MatchPool, error) {
	pool, err := s.repo.GetPool(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, ErrPoolNotFound
	}
	return pool, nil
}

func (s *MatchPoolService) observe(op string, errp *error) {
	if s.metrics != nil {
		s.metrics.OperationCompleted(op, ErrorCategory(*errp))
	}
}

// validateProposal checks a proposal seats four distinct members, two per team
func validateProposal(p *model.MatchProposal) error {
	if p == nil || len(p.TeamA) != model.TeamSize || len(p.TeamB) != model.TeamSize {
		return ErrInvalidProposal
	}
	seats := p.Seats()
	for _, seat := range seats {
		if seat.Candidate == nil || seat.Candidate.EntryID == "" {
			return ErrInvalidProposal
		}
	}
	unique := lo.UniqBy(seats, func(seat model.Seat) string { return seat.Candidate.EntryID })
	if len(unique) != model.PoolSize {
		return ErrInvalidProposal
	}
	return nil
}

// translateStoreError maps guard failures raised inside a store transaction
// to service errors.
func translateStoreError(err error) error {
	code, ok := database.GuardCode(err)
	if !ok {
		if errors.Is(err, database.ErrTxConflict) {
			return fmt.Errorf("%w (%v)", ErrConcurrentUpdate, err)
		}
		return err
	}
	switch code {
	case model.GuardQueueEntryConsumed:
		return ErrQueueEntryConsumed
	case model.GuardPoolGone:
		return ErrPoolGone
	case model.GuardPoolChanged, model.GuardParticipantGone:
		return ErrPoolChanged
	case model.GuardMemberInPool:
		return ErrMemberAlreadyInPool
	case model.GuardTeamFull:
		return ErrTeamFull
	case model.GuardPoolIncomplete:
		return ErrPoolIncomplete
	case model.GuardCourtBooked:
		return ErrCourtBooked
	case model.GuardCourtGone:
		return ErrCourtNotFound
	case model.GuardSessionInactive:
		return ErrSessionInactive
	case model.GuardAlreadyQueued:
		return ErrAlreadyQueued
	case model.GuardMemberPooled:
		return ErrMemberPooled
	default:
		return fmt.Errorf("%w: unexpected guard %q", ErrState, code)
	}
}
