package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sshgate/policy-governance-backend/interfaces"
	"github.com/sshgate/policy-governance-backend/lifecycle"
	"github.com/sshgate/policy-governance-backend/metrics"
	"github.com/sshgate/policy-governance-backend/resolver"
)

// maxBodySize is the maximum allowed request body size (1MB).
const maxBodySize = 1024 * 1024

// CreatePolicyRequest is the body of POST /api/v1/policies.
type CreatePolicyRequest struct {
	// RequestData is the base64-encoded signed request blob.
	RequestData []byte `json:"request_data"`

	RoleID           string `json:"role_id"`
	Threshold        int    `json:"threshold"`
	RequestedBy      string `json:"requested_by"`
	RequestedByEmail string `json:"requested_by_email,omitempty"`
	ContractType     string `json:"contract_type,omitempty"`
	ApprovalType     string `json:"approval_type,omitempty"`
	ExecutionType    string `json:"execution_type,omitempty"`
}

// VoteRequest is the body of POST /api/v1/policies/{policy_id}/votes.
type VoteRequest struct {
	VoterID    string `json:"voter_id"`
	VoterEmail string `json:"voter_email,omitempty"`
	Approve    bool   `json:"approve"`

	// RequestData carries the re-signed blob; required when Approve is true.
	RequestData []byte `json:"request_data,omitempty"`
}

// CancelRequest is the body of POST /api/v1/policies/{policy_id}/cancel.
type CancelRequest struct {
	ActorEmail string `json:"actor_email,omitempty"`
}

// CommitRequest is the body of POST /api/v1/policies/{policy_id}/commit.
type CommitRequest struct {
	ActorEmail string `json:"actor_email,omitempty"`

	// Signature is the base64-encoded external signature, if available.
	Signature []byte `json:"signature,omitempty"`
}

// PolicyResponse describes a pending policy record.
type PolicyResponse struct {
	ID               string    `json:"id"`
	RoleID           string    `json:"role_id"`
	Status           string    `json:"status"`
	Threshold        int       `json:"threshold"`
	RequestedBy      string    `json:"requested_by"`
	RequestedByEmail string    `json:"requested_by_email,omitempty"`
	ContractType     string    `json:"contract_type,omitempty"`
	ApprovalType     string    `json:"approval_type,omitempty"`
	ExecutionType    string    `json:"execution_type,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	Decisions []DecisionResponse `json:"decisions,omitempty"`
}

// DecisionResponse describes a single recorded vote.
type DecisionResponse struct {
	VoterID    string    `json:"voter_id"`
	VoterEmail string    `json:"voter_email,omitempty"`
	Approved   bool      `json:"approved"`
	Timestamp  time.Time `json:"timestamp"`
}

// TallyResponse reports the vote tally after a vote or revocation.
type TallyResponse struct {
	PolicyID        string `json:"policy_id"`
	Status          string `json:"status"`
	ApprovalCount   int    `json:"approval_count"`
	Threshold       int    `json:"threshold"`
	ApprovalRemoved *bool  `json:"approval_removed,omitempty"`
}

// AuditEntryResponse describes one audit log entry.
type AuditEntryResponse struct {
	ID            string    `json:"id"`
	PolicyID      string    `json:"policy_id"`
	RoleID        string    `json:"role_id"`
	Action        string    `json:"action"`
	Actor         string    `json:"actor,omitempty"`
	ActorEmail    string    `json:"actor_email,omitempty"`
	ApprovalCount int       `json:"approval_count"`
	Threshold     int       `json:"threshold"`
	Note          string    `json:"note,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Handler processes HTTP requests for the policy governance service. It
// translates between the JSON API surface and the lifecycle manager, mapping
// domain errors onto HTTP status codes.
type Handler struct {
	mgr      *lifecycle.Manager
	resolver *resolver.Resolver
	log      *slog.Logger
}

// NewHandler creates a new HTTP request handler.
//
// Parameters:
//   - mgr: Lifecycle manager owning all policy state transitions
//   - resolver: Read-side lookup for committed policies
//   - log: Structured logger for operational insights
func NewHandler(mgr *lifecycle.Manager, resolver *resolver.Resolver, log *slog.Logger) *Handler {
	return &Handler{
		mgr:      mgr,
		resolver: resolver,
		log:      log,
	}
}

// HandleCreatePolicy processes POST /api/v1/policies.
// Creation is idempotent on the request's unique id: resubmitting the same
// signed blob returns the existing record.
func (h *Handler) HandleCreatePolicy(w http.ResponseWriter, r *http.Request) {
	var req CreatePolicyRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	policy, err := h.mgr.Create(r.Context(), lifecycle.CreateParams{
		RequestData:      req.RequestData,
		RoleID:           interfaces.RoleID(req.RoleID),
		Threshold:        req.Threshold,
		RequestedBy:      req.RequestedBy,
		RequestedByEmail: req.RequestedByEmail,
		ContractType:     req.ContractType,
		ApprovalType:     req.ApprovalType,
		ExecutionType:    req.ExecutionType,
	})
	if err != nil {
		h.writeError(w, "create", err)
		return
	}
	metrics.TransitionsTotal.WithLabelValues("create", "ok").Inc()

	h.writeJSON(w, http.StatusCreated, policyToResponse(policy, nil))
}

// HandleListPolicies processes GET /api/v1/policies.
func (h *Handler) HandleListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.mgr.List(r.Context())
	if err != nil {
		h.writeError(w, "list", err)
		return
	}

	out := make([]PolicyResponse, 0, len(policies))
	for _, p := range policies {
		out = append(out, policyToResponse(p, nil))
	}
	h.writeJSON(w, http.StatusOK, out)
}

// HandleGetPolicy processes GET /api/v1/policies/{policy_id}.
func (h *Handler) HandleGetPolicy(w http.ResponseWriter, r *http.Request) {
	id := interfaces.PolicyID(chi.URLParam(r, "policy_id"))

	policy, decisions, err := h.mgr.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, "get", err)
		return
	}
	h.writeJSON(w, http.StatusOK, policyToResponse(policy, decisions))
}

// HandleVote processes POST /api/v1/policies/{policy_id}/votes.
func (h *Handler) HandleVote(w http.ResponseWriter, r *http.Request) {
	id := interfaces.PolicyID(chi.URLParam(r, "policy_id"))

	var req VoteRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.VoterID == "" {
		http.Error(w, "voter_id is required", http.StatusBadRequest)
		return
	}

	result, err := h.mgr.Vote(r.Context(), lifecycle.VoteParams{
		PolicyID:    id,
		VoterID:     req.VoterID,
		VoterEmail:  req.VoterEmail,
		Approve:     req.Approve,
		RequestData: req.RequestData,
	})
	if err != nil {
		h.writeError(w, "vote", err)
		return
	}
	metrics.TransitionsTotal.WithLabelValues("vote", "ok").Inc()

	h.writeJSON(w, http.StatusOK, TallyResponse{
		PolicyID:      string(result.PolicyID),
		Status:        string(result.Status),
		ApprovalCount: result.ApprovalCount,
		Threshold:     result.Threshold,
	})
}

// HandleRevoke processes DELETE /api/v1/policies/{policy_id}/votes/{voter_id}.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	id := interfaces.PolicyID(chi.URLParam(r, "policy_id"))
	voterID := chi.URLParam(r, "voter_id")
	voterEmail := r.URL.Query().Get("voter_email")

	result, err := h.mgr.Revoke(r.Context(), id, voterID, voterEmail)
	if err != nil {
		h.writeError(w, "revoke", err)
		return
	}
	metrics.TransitionsTotal.WithLabelValues("revoke", "ok").Inc()

	removed := result.ApprovalRemoved
	h.writeJSON(w, http.StatusOK, TallyResponse{
		PolicyID:        string(result.PolicyID),
		Status:          string(result.Status),
		ApprovalCount:   result.ApprovalCount,
		Threshold:       result.Threshold,
		ApprovalRemoved: &removed,
	})
}

// HandleCancel processes POST /api/v1/policies/{policy_id}/cancel.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	id := interfaces.PolicyID(chi.URLParam(r, "policy_id"))

	var req CancelRequest
	if r.ContentLength != 0 && !h.decodeBody(w, r, &req) {
		return
	}

	if err := h.mgr.Cancel(r.Context(), id, req.ActorEmail); err != nil {
		h.writeError(w, "cancel", err)
		return
	}
	metrics.TransitionsTotal.WithLabelValues("cancel", "ok").Inc()

	h.writeJSON(w, http.StatusOK, map[string]string{
		"policy_id": string(id),
		"status":    string(interfaces.StatusCancelled),
	})
}

// HandleCommit processes POST /api/v1/policies/{policy_id}/commit.
func (h *Handler) HandleCommit(w http.ResponseWriter, r *http.Request) {
	id := interfaces.PolicyID(chi.URLParam(r, "policy_id"))

	var req CommitRequest
	if r.ContentLength != 0 && !h.decodeBody(w, r, &req) {
		return
	}

	committed, err := h.mgr.Commit(r.Context(), lifecycle.CommitParams{
		PolicyID:   id,
		ActorEmail: req.ActorEmail,
		Signature:  req.Signature,
	})
	if err != nil {
		h.writeError(w, "commit", err)
		return
	}
	metrics.TransitionsTotal.WithLabelValues("commit", "ok").Inc()
	metrics.CommittedPolicies.WithLabelValues(string(committed.RoleID)).Inc()

	h.writeJSON(w, http.StatusOK, map[string]any{
		"policy_id":     string(id),
		"role_id":       string(committed.RoleID),
		"status":        string(interfaces.StatusCommitted),
		"artifact_hash": committed.ArtifactHash,
	})
}

// HandleRolePolicy processes GET /api/v1/roles/{role_id}/policy.
// The committed artifact is served verbatim as an octet stream; consumers
// decode and verify the envelope themselves.
func (h *Handler) HandleRolePolicy(w http.ResponseWriter, r *http.Request) {
	roleID := interfaces.RoleID(chi.URLParam(r, "role_id"))

	committed, err := h.resolver.ByRole(r.Context(), roleID)
	if err != nil {
		h.writeError(w, "resolve", err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("X-Policy-Source-Id", string(committed.SourcePolicyID))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(committed.PolicyData); err != nil {
		h.log.Error("Failed to write role policy response", "err", err)
	}
}

// HandleAuditTrail processes GET /api/v1/policies/{policy_id}/audit.
func (h *Handler) HandleAuditTrail(w http.ResponseWriter, r *http.Request) {
	id := interfaces.PolicyID(chi.URLParam(r, "policy_id"))

	entries, err := h.mgr.AuditTrail(r.Context(), id)
	if err != nil {
		h.writeError(w, "audit", err)
		return
	}

	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditEntryResponse{
			ID:            e.ID,
			PolicyID:      string(e.PolicyID),
			RoleID:        string(e.RoleID),
			Action:        string(e.Action),
			Actor:         e.Actor,
			ActorEmail:    e.ActorEmail,
			ApprovalCount: e.ApprovalCount,
			Threshold:     e.Threshold,
			Note:          e.Note,
			CreatedAt:     e.CreatedAt,
		})
	}
	h.writeJSON(w, http.StatusOK, out)
}

// decodeBody decodes a JSON request body, writing a 400 on failure.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := io.LimitReader(r.Body, maxBodySize)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		h.log.Debug("Failed to decode request body", "err", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// writeError maps domain errors onto HTTP status codes.
func (h *Handler) writeError(w http.ResponseWriter, action string, err error) {
	metrics.TransitionsTotal.WithLabelValues(action, "error").Inc()

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, interfaces.ErrMalformedRequest):
		status = http.StatusBadRequest
	case errors.Is(err, interfaces.ErrPolicyNotFound),
		errors.Is(err, interfaces.ErrNoDecision),
		errors.Is(err, interfaces.ErrNoCommittedPolicy):
		status = http.StatusNotFound
	case errors.Is(err, interfaces.ErrDuplicateVote),
		errors.Is(err, interfaces.ErrInvalidState):
		status = http.StatusConflict
	default:
		h.log.Error("Request failed", slog.String("action", action), "err", err)
	}

	http.Error(w, err.Error(), status)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}

func policyToResponse(p *interfaces.PendingPolicy, decisions []*interfaces.Decision) PolicyResponse {
	resp := PolicyResponse{
		ID:               string(p.ID),
		RoleID:           string(p.RoleID),
		Status:           string(p.Status),
		Threshold:        p.Threshold,
		RequestedBy:      p.RequestedBy,
		RequestedByEmail: p.RequestedByEmail,
		ContractType:     p.ContractType,
		ApprovalType:     p.ApprovalType,
		ExecutionType:    p.ExecutionType,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
	for _, d := range decisions {
		resp.Decisions = append(resp.Decisions, DecisionResponse{
			VoterID:    d.VoterID,
			VoterEmail: d.VoterEmail,
			Approved:   d.Approved,
			Timestamp:  d.Timestamp,
		})
	}
	return resp
}
