package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/forgo/courtside/api/internal/database"
	"github.com/forgo/courtside/api/internal/model"
)

// MatchPoolRepository handles sessions, queues, pools and matches.
// Every mutation is one write-set: its guards re-check the preconditions the
// service read, so a concurrent change aborts the whole set.
type MatchPoolRepository struct {
	db database.Database
}

// NewMatchPoolRepository creates a new match pool repository
func NewMatchPoolRepository(db database.Database) *MatchPoolRepository {
	return &MatchPoolRepository{db: db}
}

// missing renders a condition that holds when the record in $v does not exist
func missing(v string) string {
	return fmt.Sprintf("count(SELECT id FROM type::record($%s)) = 0", v)
}

// ============================================================================
// Reads
// ============================================================================

// GetSession retrieves a session by ID
func (r *MatchPoolRepository) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	data, err := r.getRecord(ctx, "session", sessionID)
	if err != nil || data == nil {
		return nil, err
	}
	return parseSession(data), nil
}

// GetMember retrieves a member by ID
func (r *MatchPoolRepository) GetMember(ctx context.Context, memberID string) (*model.Member, error) {
	data, err := r.getRecord(ctx, "member", memberID)
	if err != nil || data == nil {
		return nil, err
	}
	return parseMember(data), nil
}

// GetQueue returns a session's queue entries with each member's level and
// gender, oldest first
func (r *MatchPoolRepository) GetQueue(ctx context.Context, sessionID string) ([]*model.QueueCandidate, error) {
	query := `
		SELECT id, member, joined_at, member.level AS level, member.gender AS gender
		FROM queue_entry
		WHERE session = type::record($session_id)
		ORDER BY joined_at ASC
	`
	result, err := r.db.Query(ctx, query, map[string]interface{}{"session_id": sessionID})
	if err != nil {
		return nil, fmt.Errorf("failed to get queue: %w", err)
	}

	rows := statementRows(result, 0)
	candidates := make([]*model.QueueCandidate, 0, len(rows))
	for _, row := range rows {
		candidates = append(candidates, &model.QueueCandidate{
			EntryID:  extractRecordID(row["id"]),
			MemberID: extractRecordID(row["member"]),
			Level:    model.ParseSkillLevel(getString(row, "level")),
			Gender:   model.Gender(getString(row, "gender")),
			JoinedAt: parseTime(row["joined_at"]),
		})
	}
	return candidates, nil
}

// GetQueueEntry retrieves a queue entry by ID
func (r *MatchPoolRepository) GetQueueEntry(ctx context.Context, entryID string) (*model.QueueEntry, error) {
	data, err := r.getRecord(ctx, "queue_entry", entryID)
	if err != nil || data == nil {
		return nil, err
	}
	return parseQueueEntry(data), nil
}

// GetMatchHistory returns the member sets of every match already played in
// the session
func (r *MatchPoolRepository) GetMatchHistory(ctx context.Context, sessionID string) (model.MatchHistory, error) {
	query := `
		SELECT VALUE (SELECT VALUE member FROM match_participant WHERE match = $parent.id)
		FROM match
		WHERE session = type::record($session_id)
	`
	result, err := r.db.Query(ctx, query, map[string]interface{}{"session_id": sessionID})
	if err != nil {
		return nil, fmt.Errorf("failed to get match history: %w", err)
	}

	history := model.NewMatchHistory()
	for _, group := range statementValues(result, 0) {
		members, ok := group.([]interface{})
		if !ok {
			continue
		}
		ids := make([]string, 0, len(members))
		for _, m := range members {
			ids = append(ids, extractRecordID(m))
		}
		history.Add(ids)
	}
	return history, nil
}

const poolProjection = `
	SELECT *,
		(SELECT * FROM pool_participant WHERE pool = $parent.id ORDER BY team ASC, created_at ASC) AS participants
`

// GetPool retrieves a pool with its participants
func (r *MatchPoolRepository) GetPool(ctx context.Context, poolID string) (*model.MatchPool, error) {
	if !isRecordOf("match_pool", poolID) {
		return nil, nil
	}
	query := poolProjection + `FROM type::record($id)`
	result, err := r.db.QueryOne(ctx, query, map[string]interface{}{"id": poolID})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get pool: %w", err)
	}

	data, ok := result.(map[string]interface{})
	if !ok {
		return nil, errors.New("unexpected pool format")
	}
	return parsePool(data), nil
}

// ListPools returns a page of a session's pools, oldest first, and the total
// number of pools in the session
func (r *MatchPoolRepository) ListPools(ctx context.Context, sessionID string, limit, offset int) ([]*model.MatchPool, int, error) {
	query := poolProjection + `
		FROM match_pool
		WHERE session = type::record($session_id)
		ORDER BY created_at ASC
		LIMIT $limit START $offset;
		SELECT count() FROM match_pool WHERE session = type::record($session_id) GROUP ALL;
	`
	result, err := r.db.Query(ctx, query, map[string]interface{}{
		"session_id": sessionID,
		"limit":      limit,
		"offset":     offset,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list pools: %w", err)
	}

	rows := statementRows(result, 0)
	pools := make([]*model.MatchPool, 0, len(rows))
	for _, row := range rows {
		pools = append(pools, parsePool(row))
	}

	total := 0
	if counts := statementRows(result, 1); len(counts) > 0 {
		total = extractCountValue(counts[0]["count"])
	}
	return pools, total, nil
}

// GetPoolParticipant retrieves a pool participant by ID
func (r *MatchPoolRepository) GetPoolParticipant(ctx context.Context, participantID string) (*model.PoolParticipant, error) {
	data, err := r.getRecord(ctx, "pool_participant", participantID)
	if err != nil || data == nil {
		return nil, err
	}
	return parsePoolParticipant(data), nil
}

// GetCourt retrieves a session court by ID
func (r *MatchPoolRepository) GetCourt(ctx context.Context, sessionCourtID string) (*model.SessionCourt, error) {
	data, err := r.getRecord(ctx, "session_court", sessionCourtID)
	if err != nil || data == nil {
		return nil, err
	}
	return parseSessionCourt(data), nil
}

// getRecord reads one record of table, returning nil when the ID is for
// another table or the record does not exist
func (r *MatchPoolRepository) getRecord(ctx context.Context, table, id string) (map[string]interface{}, error) {
	if !isRecordOf(table, id) {
		return nil, nil
	}
	result, err := r.db.QueryOne(ctx, "SELECT * FROM type::record($id)", map[string]interface{}{"id": id})
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get %s: %w", table, err)
	}
	data, ok := result.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected %s format", table)
	}
	return data, nil
}

// ============================================================================
// Queue writes
// ============================================================================

// JoinQueue creates a queue entry for a member of an active session
func (r *MatchPoolRepository) JoinQueue(ctx context.Context, entry *model.QueueEntry) error {
	vars := map[string]interface{}{
		"session_id": entry.SessionID,
		"member_id":  entry.MemberID,
		"joined_at":  entry.JoinedAt,
	}

	uow := database.NewUnitOfWork(r.db).
		Guard("count(SELECT id FROM type::record($session_id) WHERE is_active = true) = 0", model.GuardSessionInactive, vars).
		Guard(`count(SELECT id FROM queue_entry
			WHERE session = type::record($session_id) AND member = type::record($member_id)) > 0`,
			model.GuardAlreadyQueued, vars).
		Guard(`count(SELECT id FROM pool_participant
			WHERE member = type::record($member_id) AND pool.session = type::record($session_id)) > 0`,
			model.GuardMemberPooled, vars).
		Add(createQueueEntry, vars)

	result, err := uow.Exec(ctx)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &database.GuardError{Code: model.GuardAlreadyQueued}
		}
		return fmt.Errorf("failed to join queue: %w", err)
	}

	created := createdByMember(result, "queue_entry")
	entry.ID = created[entry.MemberID]
	if entry.ID == "" {
		return errors.New("failed to extract created queue entry")
	}
	return nil
}

const createQueueEntry = `
	CREATE queue_entry CONTENT {
		session: type::record($session_id),
		member: type::record($member_id),
		joined_at: $joined_at
	}
`

// LeaveQueue deletes a queue entry
func (r *MatchPoolRepository) LeaveQueue(ctx context.Context, entryID string) error {
	vars := map[string]interface{}{"entry_id": entryID}
	uow := database.NewUnitOfWork(r.db).
		Guard(missing("entry_id"), model.GuardQueueEntryConsumed, vars).
		Add("DELETE type::record($entry_id)", vars)

	if err := uow.Commit(ctx); err != nil {
		return fmt.Errorf("failed to leave queue: %w", err)
	}
	return nil
}

// ============================================================================
// Pool writes
// ============================================================================

// AddPoolParticipant seats p in its pool and consumes the member's queue entry
func (r *MatchPoolRepository) AddPoolParticipant(ctx context.Context, p *model.PoolParticipant, entryID string) error {
	vars := map[string]interface{}{
		"pool_id":    p.PoolID,
		"entry_id":   entryID,
		"member_id":  p.MemberID,
		"team":       string(p.Team),
		"created_at": p.CreatedAt,
		"team_size":  model.TeamSize,
	}

	uow := database.NewUnitOfWork(r.db).
		Guard(missing("pool_id"), model.GuardPoolGone, vars).
		Guard(missing("entry_id"), model.GuardQueueEntryConsumed, vars).
		Guard(`count(SELECT id FROM pool_participant
			WHERE pool = type::record($pool_id) AND member = type::record($member_id)) > 0`,
			model.GuardMemberInPool, vars).
		Guard(`count(SELECT id FROM pool_participant
			WHERE pool = type::record($pool_id) AND team = $team) >= $team_size`,
			model.GuardTeamFull, vars).
		Add(bumpPool("type::record($pool_id)"), vars).
		Add(createPoolParticipant("type::record($pool_id)"), vars).
		Add("DELETE type::record($entry_id)", vars)

	result, err := uow.Exec(ctx)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &database.GuardError{Code: model.GuardMemberInPool}
		}
		return fmt.Errorf("failed to add pool participant: %w", err)
	}

	p.ID = createdByMember(result, "pool_participant")[p.MemberID]
	if p.ID == "" {
		return errors.New("failed to extract created pool participant")
	}
	return nil
}

func createPoolParticipant(pool string) string {
	return `
	CREATE pool_participant CONTENT {
		pool: ` + pool + `,
		member: type::record($member_id),
		team: $team,
		created_at: $created_at
	}
`
}

// RemovePoolParticipant deletes a participant and re-queues the member
func (r *MatchPoolRepository) RemovePoolParticipant(ctx context.Context, participantID string, entry *model.QueueEntry) error {
	vars := map[string]interface{}{
		"participant_id": participantID,
		"session_id":     entry.SessionID,
		"member_id":      entry.MemberID,
		"joined_at":      entry.JoinedAt,
	}

	uow := database.NewUnitOfWork(r.db).
		Guard(missing("participant_id"), model.GuardParticipantGone, vars).
		Add(bumpPool("(SELECT VALUE pool FROM ONLY type::record($participant_id))"), vars).
		Add("DELETE type::record($participant_id)", vars).
		Add(createQueueEntry, vars)

	result, err := uow.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to remove pool participant: %w", err)
	}

	entry.ID = createdByMember(result, "queue_entry")[entry.MemberID]
	if entry.ID == "" {
		return errors.New("failed to extract created queue entry")
	}
	return nil
}

// CreatePool creates a pool with its participants and consumes their queue
// entries
func (r *MatchPoolRepository) CreatePool(ctx context.Context, pool *model.MatchPool, entryIDs []string) error {
	if len(entryIDs) != len(pool.Participants) {
		return fmt.Errorf("%w: %d entries for %d participants", database.ErrQuery, len(entryIDs), len(pool.Participants))
	}

	uow := database.NewUnitOfWork(r.db)
	for _, id := range entryIDs {
		uow.Guard(missing("entry_id"), model.GuardQueueEntryConsumed, map[string]interface{}{"entry_id": id})
	}

	uow.Add(`LET $new_pool = CREATE ONLY match_pool CONTENT {
		session: type::record($session_id),
		created_at: $created_at
	}`, map[string]interface{}{
		"session_id": pool.SessionID,
		"created_at": pool.CreatedAt,
	})

	for i, p := range pool.Participants {
		vars := map[string]interface{}{
			"entry_id":   entryIDs[i],
			"member_id":  p.MemberID,
			"team":       string(p.Team),
			"created_at": p.CreatedAt,
		}
		uow.Add(createPoolParticipant("$new_pool.id"), vars).
			Add("DELETE type::record($entry_id)", vars)
	}

	result, err := uow.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create pool: %w", err)
	}

	rows := createdRows(result, "pool_participant")
	byMember := make(map[string]map[string]interface{}, len(rows))
	for _, row := range rows {
		byMember[extractRecordID(row["member"])] = row
	}
	for _, p := range pool.Participants {
		row, ok := byMember[p.MemberID]
		if !ok {
			return errors.New("failed to extract created pool participant")
		}
		p.ID = extractRecordID(row["id"])
		p.PoolID = extractRecordID(row["pool"])
		pool.ID = p.PoolID
	}
	return nil
}

// DisbandPool deletes a pool and its participants and re-queues entries
func (r *MatchPoolRepository) DisbandPool(ctx context.Context, pool *model.MatchPool, entries []*model.QueueEntry) error {
	uow := database.NewUnitOfWork(r.db)
	guardPoolUnchanged(uow, pool)

	for _, e := range entries {
		uow.Add(createQueueEntry, map[string]interface{}{
			"session_id": e.SessionID,
			"member_id":  e.MemberID,
			"joined_at":  e.JoinedAt,
		})
	}
	deletePool(uow, pool.ID)

	result, err := uow.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to disband pool: %w", err)
	}

	created := createdByMember(result, "queue_entry")
	for _, e := range entries {
		e.ID = created[e.MemberID]
	}
	return nil
}

// PromotePool books the court, creates the match with its participants and
// deletes the pool
func (r *MatchPoolRepository) PromotePool(ctx context.Context, pool *model.MatchPool, court *model.SessionCourt, match *model.Match) error {
	courtVars := map[string]interface{}{"court_id": court.ID}

	uow := database.NewUnitOfWork(r.db)
	guardPoolUnchanged(uow, pool)
	for _, team := range []model.Team{model.TeamA, model.TeamB} {
		uow.Guard(`count(SELECT id FROM pool_participant
			WHERE pool = type::record($pool_id) AND team = $team) != $team_size`,
			model.GuardPoolIncomplete, map[string]interface{}{
				"pool_id":   pool.ID,
				"team":      string(team),
				"team_size": model.TeamSize,
			})
	}
	uow.Guard(missing("court_id"), model.GuardCourtGone, courtVars).
		Guard("count(SELECT id FROM type::record($court_id) WHERE is_booked = true) > 0", model.GuardCourtBooked, courtVars).
		Add("UPDATE type::record($court_id) SET is_booked = true", courtVars)

	uow.Add(`LET $new_match = CREATE ONLY match CONTENT {
		session: type::record($session_id),
		court: $court,
		club: $club,
		start_time: $start_time,
		end_time: $end_time
	}`, map[string]interface{}{
		"session_id": match.SessionID,
		"court":      match.CourtID,
		"club":       match.ClubID,
		"start_time": match.StartTime,
		"end_time":   match.EndTime,
	})
	for _, mp := range match.Participants {
		uow.Add(`CREATE match_participant CONTENT {
			match: $new_match.id,
			member: type::record($member_id),
			team: $team
		}`, map[string]interface{}{
			"member_id": mp.MemberID,
			"team":      string(mp.Team),
		})
	}
	deletePool(uow, pool.ID)

	result, err := uow.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to promote pool: %w", err)
	}

	rows := createdRows(result, "match_participant")
	byMember := make(map[string]map[string]interface{}, len(rows))
	for _, row := range rows {
		byMember[extractRecordID(row["member"])] = row
	}
	for _, mp := range match.Participants {
		if row, ok := byMember[mp.MemberID]; ok {
			mp.ID = extractRecordID(row["id"])
			mp.MatchID = extractRecordID(row["match"])
			match.ID = mp.MatchID
		}
	}
	if match.ID == "" {
		return errors.New("failed to extract created match")
	}
	return nil
}

// guardPoolUnchanged aborts when the pool is gone or its participants differ
// from the ones read
func guardPoolUnchanged(uow *database.UnitOfWork, pool *model.MatchPool) {
	vars := map[string]interface{}{
		"pool_id": pool.ID,
		"count":   len(pool.Participants),
	}
	uow.Guard(missing("pool_id"), model.GuardPoolGone, vars).
		Guard("count(SELECT id FROM pool_participant WHERE pool = type::record($pool_id)) != $count",
			model.GuardPoolChanged, vars)
	for _, pp := range pool.Participants {
		uow.Guard(missing("participant_id"), model.GuardPoolChanged,
			map[string]interface{}{"participant_id": pp.ID})
	}
}

// bumpPool writes the pool record. Every write-set that changes a pool's
// participants writes that record, so two of them on the same pool conflict
// at commit even when their count guards read the same snapshot.
func bumpPool(pool string) string {
	return "UPDATE " + pool + " SET version += 1"
}

func deletePool(uow *database.UnitOfWork, poolID string) {
	vars := map[string]interface{}{"pool_id": poolID}
	uow.Add("DELETE pool_participant WHERE pool = type::record($pool_id)", vars).
		Add("DELETE type::record($pool_id)", vars)
}

// ============================================================================
// Row parsing
// ============================================================================

func parseSession(data map[string]interface{}) *model.Session {
	return &model.Session{
		ID:        extractRecordID(data["id"]),
		ClubID:    getString(data, "club"),
		StartTime: parseTime(data["start_time"]),
		EndTime:   parseTime(data["end_time"]),
		IsActive:  getBool(data, "is_active"),
	}
}

func parseMember(data map[string]interface{}) *model.Member {
	return &model.Member{
		ID:     extractRecordID(data["id"]),
		Name:   getString(data, "name"),
		Gender: model.Gender(getString(data, "gender")),
		Level:  model.ParseSkillLevel(getString(data, "level")),
	}
}

func parseSessionCourt(data map[string]interface{}) *model.SessionCourt {
	return &model.SessionCourt{
		ID:        extractRecordID(data["id"]),
		SessionID: extractRecordID(data["session"]),
		CourtID:   getString(data, "court"),
		IsBooked:  getBool(data, "is_booked"),
	}
}

func parseQueueEntry(data map[string]interface{}) *model.QueueEntry {
	return &model.QueueEntry{
		ID:        extractRecordID(data["id"]),
		SessionID: extractRecordID(data["session"]),
		MemberID:  extractRecordID(data["member"]),
		JoinedAt:  parseTime(data["joined_at"]),
	}
}

func parsePoolParticipant(data map[string]interface{}) *model.PoolParticipant {
	return &model.PoolParticipant{
		ID:        extractRecordID(data["id"]),
		PoolID:    extractRecordID(data["pool"]),
		MemberID:  extractRecordID(data["member"]),
		Team:      model.Team(getString(data, "team")),
		CreatedAt: parseTime(data["created_at"]),
	}
}

func parsePool(data map[string]interface{}) *model.MatchPool {
	pool := &model.MatchPool{
		ID:           extractRecordID(data["id"]),
		SessionID:    extractRecordID(data["session"]),
		CreatedAt:    parseTime(data["created_at"]),
		Participants: []*model.PoolParticipant{},
	}
	if rows, ok := data["participants"].([]interface{}); ok {
		for _, row := range rows {
			if m, ok := row.(map[string]interface{}); ok {
				pool.Participants = append(pool.Participants, parsePoolParticipant(m))
			}
		}
	}
	return pool
}

// createdByMember maps member ID to the ID of the record created for it in
// table
func createdByMember(result []interface{}, table string) map[string]string {
	rows := createdRows(result, table)
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[extractRecordID(row["member"])] = extractRecordID(row["id"])
	}
	return out
}
