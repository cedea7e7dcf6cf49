package handler

import (
	"log/slog"
	"net/http"

	"github.com/forgo/courtside/api/internal/model"
	"github.com/forgo/courtside/api/internal/service"
)

// MatchPoolHandler handles queue, pool and promotion HTTP requests
type MatchPoolHandler struct {
	svc *service.MatchPoolService
}

// NewMatchPoolHandler creates a new match pool handler
func NewMatchPoolHandler(svc *service.MatchPoolService) *MatchPoolHandler {
	return &MatchPoolHandler{svc: svc}
}

// RegisterRoutes registers match pool routes
func (h *MatchPoolHandler) RegisterRoutes(mux *http.ServeMux) {
	// Queue
	mux.HandleFunc("GET /v1/sessions/{sessionId}/queue", h.GetQueue)
	mux.HandleFunc("POST /v1/sessions/{sessionId}/queue", h.JoinQueue)
	mux.HandleFunc("DELETE /v1/queue-entries/{entryId}", h.LeaveQueue)

	// Proposals and pools
	mux.HandleFunc("POST /v1/sessions/{sessionId}/match-proposals", h.Generate)
	mux.HandleFunc("POST /v1/sessions/{sessionId}/pools", h.CreatePool)
	mux.HandleFunc("GET /v1/sessions/{sessionId}/pools", h.ListPools)
	mux.HandleFunc("GET /v1/pools/{poolId}", h.GetPool)
	mux.HandleFunc("DELETE /v1/pools/{poolId}", h.DisbandPool)

	// Participants
	mux.HandleFunc("POST /v1/pools/{poolId}/participants", h.AddParticipant)
	mux.HandleFunc("DELETE /v1/pool-participants/{participantId}", h.RemoveParticipant)

	// Promotion
	mux.HandleFunc("POST /v1/pools/{poolId}/promote", h.Promote)
}

// GenerateRequest selects the gender filter for a proposal
type GenerateRequest struct {
	Gender string `json:"gender,omitempty"`
}

// CreatePoolRequest either generates and commits a pool (Gender) or commits
// a proposal the client already holds (TeamA/TeamB queue entry IDs).
type CreatePoolRequest struct {
	Gender string   `json:"gender,omitempty"`
	TeamA  []string `json:"team_a,omitempty"`
	TeamB  []string `json:"team_b,omitempty"`
}

// AddParticipantRequest seats a queued member on a team
type AddParticipantRequest struct {
	QueueEntryID string `json:"queue_entry_id"`
	Team         string `json:"team"`
}

// PromoteRequest names the session court to book
type PromoteRequest struct {
	SessionCourtID string `json:"session_court_id"`
}

// JoinQueueRequest names the member joining the queue
type JoinQueueRequest struct {
	MemberID string `json:"member_id"`
}

// GetQueue handles GET /v1/sessions/{sessionId}/queue
func (h *MatchPoolHandler) GetQueue(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.GetQueue(r.Context(), r.PathValue("sessionId"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	WriteData(w, http.StatusOK, view, nil)
}

// JoinQueue handles POST /v1/sessions/{sessionId}/queue
func (h *MatchPoolHandler) JoinQueue(w http.ResponseWriter, r *http.Request) {
	var req JoinQueueRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}
	if req.MemberID == "" {
		WriteError(w, model.NewValidationError([]model.FieldError{
			{Field: "member_id", Message: "member_id is required"},
		}))
		return
	}

	entry, err := h.svc.JoinQueue(r.Context(), r.PathValue("sessionId"), req.MemberID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	WriteData(w, http.StatusCreated, entry, nil)
}

// LeaveQueue handles DELETE /v1/queue-entries/{entryId}
func (h *MatchPoolHandler) LeaveQueue(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.LeaveQueue(r.Context(), r.PathValue("entryId")); err != nil {
		h.handleError(w, r, err)
		return
	}
	WriteNoContent(w)
}

// Generate handles POST /v1/sessions/{sessionId}/match-proposals.
// The proposal is not persisted.
func (h *MatchPoolHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if r.ContentLength != 0 {
		if err := DecodeJSON(r, &req); err != nil {
			WriteError(w, model.NewBadRequestError("invalid request body"))
			return
		}
	}

	proposal, err := h.svc.Generate(r.Context(), r.PathValue("sessionId"), req.Gender)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	WriteData(w, http.StatusOK, proposal, nil)
}

// CreatePool handles POST /v1/sessions/{sessionId}/pools
func (h *MatchPoolHandler) CreatePool(w http.ResponseWriter, r *http.Request) {
	var req CreatePoolRequest
	if r.ContentLength != 0 {
		if err := DecodeJSON(r, &req); err != nil {
			WriteError(w, model.NewBadRequestError("invalid request body"))
			return
		}
	}
	sessionID := r.PathValue("sessionId")

	if len(req.TeamA) == 0 && len(req.TeamB) == 0 {
		pool, proposal, err := h.svc.GeneratePool(r.Context(), sessionID, req.Gender)
		if err != nil {
			h.handleError(w, r, err)
			return
		}
		WriteData(w, http.StatusCreated, map[string]interface{}{
			"pool":     pool,
			"proposal": proposal,
		}, poolLinks(pool))
		return
	}

	if req.Gender != "" {
		WriteError(w, model.NewValidationError([]model.FieldError{
			{Field: "gender", Message: "gender cannot be combined with explicit teams"},
		}))
		return
	}
	proposal := &model.MatchProposal{
		TeamA: entryCandidates(req.TeamA),
		TeamB: entryCandidates(req.TeamB),
	}
	pool, err := h.svc.CreatePool(r.Context(), sessionID, proposal)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	WriteData(w, http.StatusCreated, map[string]interface{}{"pool": pool}, poolLinks(pool))
}

// ListPools handles GET /v1/sessions/{sessionId}/pools?page=&limit=
func (h *MatchPoolHandler) ListPools(w http.ResponseWriter, r *http.Request) {
	page, limit := pageQuery(r)

	list, err := h.svc.ListPools(r.Context(), r.PathValue("sessionId"), page, limit)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	WriteCollection(w, http.StatusOK, list.Pools,
		newPagination(list.Page, list.Limit, list.Total, list.TotalPages), nil)
}

// GetPool handles GET /v1/pools/{poolId}
func (h *MatchPoolHandler) GetPool(w http.ResponseWriter, r *http.Request) {
	pool, err := h.svc.GetPool(r.Context(), r.PathValue("poolId"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	WriteData(w, http.StatusOK, pool, poolLinks(pool))
}

// DisbandPool handles DELETE /v1/pools/{poolId}; the response lists the new
// queue entries
func (h *MatchPoolHandler) DisbandPool(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.DisbandPool(r.Context(), r.PathValue("poolId"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	WriteData(w, http.StatusOK, entries, nil)
}

// AddParticipant handles POST /v1/pools/{poolId}/participants
func (h *MatchPoolHandler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	var req AddParticipantRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}

	var fieldErrors []model.FieldError
	if req.QueueEntryID == "" {
		fieldErrors = append(fieldErrors, model.FieldError{Field: "queue_entry_id", Message: "queue_entry_id is required"})
	}
	if req.Team == "" {
		fieldErrors = append(fieldErrors, model.FieldError{Field: "team", Message: "team is required"})
	}
	if len(fieldErrors) > 0 {
		WriteError(w, model.NewValidationError(fieldErrors))
		return
	}

	p, err := h.svc.AddToPool(r.Context(), r.PathValue("poolId"), req.QueueEntryID, req.Team)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	WriteData(w, http.StatusCreated, p, nil)
}

// RemoveParticipant handles DELETE /v1/pool-participants/{participantId};
// the response is the member's new queue entry
func (h *MatchPoolHandler) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	entry, err := h.svc.RemoveFromPool(r.Context(), r.PathValue("participantId"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	WriteData(w, http.StatusOK, entry, nil)
}

// Promote handles POST /v1/pools/{poolId}/promote
func (h *MatchPoolHandler) Promote(w http.ResponseWriter, r *http.Request) {
	var req PromoteRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteError(w, model.NewBadRequestError("invalid request body"))
		return
	}
	if req.SessionCourtID == "" {
		WriteError(w, model.NewValidationError([]model.FieldError{
			{Field: "session_court_id", Message: "session_court_id is required"},
		}))
		return
	}

	match, err := h.svc.Promote(r.Context(), r.PathValue("poolId"), req.SessionCourtID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	WriteData(w, http.StatusCreated, match, nil)
}

// handleError maps service errors to problem details, logging unexpected ones
func (h *MatchPoolHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	problem := MapServiceError(err)
	if problem.Status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "match pool request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	problem.Instance = r.URL.Path
	WriteError(w, problem)
}

func entryCandidates(ids []string) []*model.QueueCandidate {
	out := make([]*model.QueueCandidate, len(ids))
	for i, id := range ids {
		out[i] = &model.QueueCandidate{EntryID: id}
	}
	return out
}

func poolLinks(pool *model.MatchPool) map[string]string {
	self := "/v1/pools/" + pool.ID
	return map[string]string{
		"self":         self,
		"participants": self + "/participants",
		"promote":      self + "/promote",
	}
}
