package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sshgate/policy-governance-backend/interfaces"
)

// Manager owns all state transitions of pending policies. All mutating
// methods serialize on a per-policy mutex; see the package documentation for
// the concurrency model.
type Manager struct {
	log       *slog.Logger
	store     interfaces.PolicyStore
	codec     interfaces.SignedRequestCodec
	audit     interfaces.AuditSink
	artifacts interfaces.StorageBackend // optional artifact replication, may be nil

	mu    sync.Mutex
	locks map[interfaces.PolicyID]*sync.Mutex
}

// NewManager creates a lifecycle manager.
//
// Parameters:
//   - store: Durable record store for policies, decisions, and audit entries
//   - codec: Decoder for the opaque signed request blob
//   - audit: Append-only transition log sink
//   - artifacts: Content-addressed backend for committed artifact
//     replication; nil disables replication
//   - log: Structured logger for operational insights
func NewManager(store interfaces.PolicyStore, codec interfaces.SignedRequestCodec, audit interfaces.AuditSink, artifacts interfaces.StorageBackend, log *slog.Logger) *Manager {
	return &Manager{
		log:       log,
		store:     store,
		codec:     codec,
		audit:     audit,
		artifacts: artifacts,
		locks:     make(map[interfaces.PolicyID]*sync.Mutex),
	}
}

// lockFor returns the mutex serializing operations on a policy id. Entries
// are never removed; the map is bounded by the distinct ids seen by this
// process.
func (m *Manager) lockFor(id interfaces.PolicyID) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[id] = lock
	}
	return lock
}

// CreateParams carries the inputs for creating a pending policy.
type CreateParams struct {
	// RequestData is the freshly-signed opaque request blob.
	RequestData []byte

	// RoleID is the access-control role the policy governs.
	RoleID interfaces.RoleID

	// Threshold is the required number of distinct approving voters.
	// Values below 1 default to 1.
	Threshold int

	// RequestedBy and RequestedByEmail identify the creator.
	RequestedBy      string
	RequestedByEmail string

	// ContractType, ApprovalType, and ExecutionType are descriptive
	// metadata carried onto the committed policy.
	ContractType  string
	ApprovalType  string
	ExecutionType string
}

// Create registers a new pending policy from a signed request blob.
//
// The policy id is derived from the request's unique identifier, which makes
// creation idempotent: if a policy with the same id already exists, the
// existing record is returned and nothing is written.
//
// Returns ErrMalformedRequest if the blob fails to decode or is not fully
// initialized; in that case nothing is persisted.
func (m *Manager) Create(ctx context.Context, params CreateParams) (*interfaces.PendingPolicy, error) {
	handle, err := m.codec.Decode(params.RequestData)
	if err != nil {
		if errors.Is(err, interfaces.ErrMalformedRequest) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", interfaces.ErrMalformedRequest, err)
	}
	if !handle.Initialized() {
		return nil, fmt.Errorf("%w: request is not fully initialized", interfaces.ErrMalformedRequest)
	}

	id, err := handle.UniqueID()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrMalformedRequest, err)
	}

	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	existing, err := m.store.PendingPolicy(ctx, id)
	if err == nil {
		m.log.Debug("Pending policy already exists, returning existing record",
			slog.String("policyID", string(id)))
		return existing, nil
	}
	if !errors.Is(err, interfaces.ErrPolicyNotFound) {
		return nil, err
	}

	threshold := params.Threshold
	if threshold < 1 {
		threshold = 1
	}

	now := time.Now().UTC()
	policy := &interfaces.PendingPolicy{
		ID:                id,
		RoleID:            params.RoleID,
		Status:            interfaces.StatusPending,
		Threshold:         threshold,
		RequestedBy:       params.RequestedBy,
		RequestedByEmail:  params.RequestedByEmail,
		PolicyRequestData: params.RequestData,
		ContractType:      params.ContractType,
		ApprovalType:      params.ApprovalType,
		ExecutionType:     params.ExecutionType,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := m.store.CreatePendingPolicy(ctx, policy); err != nil {
		return nil, err
	}

	m.audit.Record(ctx, &interfaces.AuditEntry{
		PolicyID:   id,
		RoleID:     params.RoleID,
		Action:     interfaces.AuditActionCreate,
		Actor:      params.RequestedBy,
		ActorEmail: params.RequestedByEmail,
		Threshold:  threshold,
	})

	return policy, nil
}

// VoteParams carries the inputs for casting a vote.
type VoteParams struct {
	PolicyID   interfaces.PolicyID
	VoterID    string
	VoterEmail string

	// Approve records the vote direction.
	Approve bool

	// RequestData must carry the re-signed request blob embedding this
	// voter's signature share when Approve is true. Ignored on rejection.
	RequestData []byte
}

// Vote records a voter's decision on a pending policy.
//
// A voter may vote exactly once until they explicitly revoke; a second vote
// fails with ErrDuplicateVote regardless of direction. On an approval the
// supplied re-signed request bytes replace the policy's current request data
// unconditionally, independent of whether the threshold is reached. When the
// approval count first reaches the threshold the policy transitions to
// approved.
func (m *Manager) Vote(ctx context.Context, params VoteParams) (*interfaces.VoteResult, error) {
	lock := m.lockFor(params.PolicyID)
	lock.Lock()
	defer lock.Unlock()

	policy, err := m.store.PendingPolicy(ctx, params.PolicyID)
	if err != nil {
		return nil, err
	}
	if policy.Status.Terminal() {
		return nil, interfaces.InvalidStateError(policy.Status)
	}

	_, err = m.store.Decision(ctx, params.PolicyID, params.VoterID)
	if err == nil {
		return nil, interfaces.ErrDuplicateVote
	}
	if !errors.Is(err, interfaces.ErrNoDecision) {
		return nil, err
	}

	if params.Approve {
		// The approval must carry the blob re-signed by the external
		// library; validate it before it becomes the policy's current
		// request data.
		if len(params.RequestData) == 0 {
			return nil, fmt.Errorf("%w: approval vote requires the re-signed request data", interfaces.ErrMalformedRequest)
		}
		handle, err := m.codec.Decode(params.RequestData)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", interfaces.ErrMalformedRequest, err)
		}
		newID, err := handle.UniqueID()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", interfaces.ErrMalformedRequest, err)
		}
		if newID != params.PolicyID {
			return nil, fmt.Errorf("%w: request id %s does not match policy %s", interfaces.ErrMalformedRequest, newID, params.PolicyID)
		}
		policy.PolicyRequestData = params.RequestData
	}

	if err := m.store.CreateDecision(ctx, &interfaces.Decision{
		PolicyRequestID: params.PolicyID,
		VoterID:         params.VoterID,
		Approved:        params.Approve,
		VoterEmail:      params.VoterEmail,
		Timestamp:       time.Now().UTC(),
	}); err != nil {
		return nil, err
	}

	approvals, err := m.store.CountApprovals(ctx, params.PolicyID)
	if err != nil {
		return nil, err
	}

	if policy.Status == interfaces.StatusPending && approvals >= policy.Threshold {
		policy.Status = interfaces.StatusApproved
		m.log.Info("Pending policy reached approval threshold",
			slog.String("policyID", string(params.PolicyID)),
			slog.Int("approvals", approvals),
			slog.Int("threshold", policy.Threshold))
	}

	policy.UpdatedAt = time.Now().UTC()
	if err := m.store.UpdatePendingPolicy(ctx, policy); err != nil {
		return nil, err
	}

	note := "rejected"
	if params.Approve {
		note = "approved"
	}
	m.audit.Record(ctx, &interfaces.AuditEntry{
		PolicyID:      params.PolicyID,
		RoleID:        policy.RoleID,
		Action:        interfaces.AuditActionVote,
		Actor:         params.VoterID,
		ActorEmail:    params.VoterEmail,
		ApprovalCount: approvals,
		Threshold:     policy.Threshold,
		Note:          note,
	})

	return &interfaces.VoteResult{
		PolicyID:      params.PolicyID,
		Status:        policy.Status,
		ApprovalCount: approvals,
		Threshold:     policy.Threshold,
	}, nil
}

// Revoke withdraws a voter's decision from a pending policy.
//
// If the decision was an approval, the voter's signature share is stripped
// from the current request blob. Share removal failure is a recoverable
// inconsistency: it is logged and audited but does not abort the tally-side
// revocation, because the local vote count remains authoritative for gating
// commit. If the policy was approved and the remaining approval count drops
// below the threshold, the status moves back to pending.
func (m *Manager) Revoke(ctx context.Context, id interfaces.PolicyID, voterID, voterEmail string) (*interfaces.RevokeResult, error) {
	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	policy, err := m.store.PendingPolicy(ctx, id)
	if err != nil {
		return nil, err
	}
	if policy.Status.Terminal() {
		return nil, interfaces.InvalidStateError(policy.Status)
	}

	decision, err := m.store.Decision(ctx, id, voterID)
	if err != nil {
		return nil, err
	}

	approvalRemoved := false
	var note string
	if decision.Approved {
		approvalRemoved, note = m.stripApproval(policy, voterID)
	}

	if err := m.store.DeleteDecision(ctx, id, voterID); err != nil {
		return nil, err
	}

	approvals, err := m.store.CountApprovals(ctx, id)
	if err != nil {
		return nil, err
	}

	if policy.Status == interfaces.StatusApproved && approvals < policy.Threshold {
		policy.Status = interfaces.StatusPending
		m.log.Info("Approval count dropped below threshold, policy back to pending",
			slog.String("policyID", string(id)),
			slog.Int("approvals", approvals),
			slog.Int("threshold", policy.Threshold))
	}

	policy.UpdatedAt = time.Now().UTC()
	if err := m.store.UpdatePendingPolicy(ctx, policy); err != nil {
		return nil, err
	}

	m.audit.Record(ctx, &interfaces.AuditEntry{
		PolicyID:      id,
		RoleID:        policy.RoleID,
		Action:        interfaces.AuditActionRevoke,
		Actor:         voterID,
		ActorEmail:    voterEmail,
		ApprovalCount: approvals,
		Threshold:     policy.Threshold,
		Note:          note,
	})

	return &interfaces.RevokeResult{
		PolicyID:        id,
		Status:          policy.Status,
		ApprovalCount:   approvals,
		Threshold:       policy.Threshold,
		ApprovalRemoved: approvalRemoved,
	}, nil
}

// stripApproval removes the voter's signature share from the policy's
// current request blob, updating PolicyRequestData in place on success.
// Returns whether removal succeeded and an audit note describing any soft
// failure.
func (m *Manager) stripApproval(policy *interfaces.PendingPolicy, voterID string) (bool, string) {
	handle, err := m.codec.Decode(policy.PolicyRequestData)
	if err != nil {
		m.log.Warn("Failed to decode request data during revocation",
			slog.String("policyID", string(policy.ID)),
			slog.String("voterID", voterID),
			"err", err)
		return false, fmt.Sprintf("approval removal failed: %v", err)
	}

	if !handle.RemoveApproval(voterID) {
		m.log.Warn("Signed request reported approval removal failure",
			slog.String("policyID", string(policy.ID)),
			slog.String("voterID", voterID))
		return false, interfaces.ErrApprovalRemovalFailed.Error()
	}

	encoded, err := handle.Encode()
	if err != nil {
		m.log.Warn("Failed to re-encode request data after approval removal",
			slog.String("policyID", string(policy.ID)),
			slog.String("voterID", voterID),
			"err", err)
		return false, fmt.Sprintf("approval removal failed: %v", err)
	}

	policy.PolicyRequestData = encoded
	return true, ""
}

// Cancel withdraws a pending policy. Cancellation is terminal: no votes,
// revocations, or commits are accepted afterward.
func (m *Manager) Cancel(ctx context.Context, id interfaces.PolicyID, actorEmail string) error {
	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	policy, err := m.store.PendingPolicy(ctx, id)
	if err != nil {
		return err
	}
	if policy.Status.Terminal() {
		return interfaces.InvalidStateError(policy.Status)
	}

	policy.Status = interfaces.StatusCancelled
	policy.UpdatedAt = time.Now().UTC()
	if err := m.store.UpdatePendingPolicy(ctx, policy); err != nil {
		return err
	}

	approvals, err := m.store.CountApprovals(ctx, id)
	if err != nil {
		approvals = 0
	}

	m.audit.Record(ctx, &interfaces.AuditEntry{
		PolicyID:      id,
		RoleID:        policy.RoleID,
		Action:        interfaces.AuditActionCancel,
		ActorEmail:    actorEmail,
		ApprovalCount: approvals,
		Threshold:     policy.Threshold,
	})

	return nil
}

// CommitParams carries the inputs for committing a policy.
type CommitParams struct {
	PolicyID   interfaces.PolicyID
	ActorEmail string

	// Signature is the external signature produced by the signing network.
	// Optional: the commit succeeds without one, with a logged warning,
	// since downstream consumers reject unsigned policies themselves.
	Signature []byte
}

// Commit produces the immutable committed policy artifact for the policy's
// role, replacing any prior committed policy for that role, and transitions
// the pending policy to committed.
//
// Commit is invoked after the external signing step has already produced
// quorum, so it does not hard-fail when the status is not yet approved; a
// below-threshold commit is logged and audited instead. Payload extraction
// failures and a missing signature are soft failures: they degrade the
// artifact but never abort the status transition.
//
// A second commit for the same policy fails with ErrInvalidState.
func (m *Manager) Commit(ctx context.Context, params CommitParams) (*interfaces.CommittedPolicy, error) {
	lock := m.lockFor(params.PolicyID)
	lock.Lock()
	defer lock.Unlock()

	policy, err := m.store.PendingPolicy(ctx, params.PolicyID)
	if err != nil {
		return nil, err
	}
	if policy.Status.Terminal() {
		return nil, interfaces.InvalidStateError(policy.Status)
	}

	approvals, err := m.store.CountApprovals(ctx, params.PolicyID)
	if err != nil {
		return nil, err
	}

	var notes []string
	if approvals < policy.Threshold {
		m.log.Warn("Committing policy below approval threshold",
			slog.String("policyID", string(params.PolicyID)),
			slog.Int("approvals", approvals),
			slog.Int("threshold", policy.Threshold))
		notes = append(notes, fmt.Sprintf("committed below threshold (%d/%d)", approvals, policy.Threshold))
	}

	payload := m.extractPayload(policy, &notes)

	if len(params.Signature) == 0 {
		m.log.Warn("Committing policy without an external signature",
			slog.String("policyID", string(params.PolicyID)))
		notes = append(notes, "no external signature attached")
	}

	artifact := &interfaces.SignedPolicyArtifact{
		Policy:    payload,
		Signature: params.Signature,
		RoleID:    policy.RoleID,
		Threshold: policy.Threshold,
	}
	artifactData, err := artifact.MarshalBinary()
	if err != nil {
		m.log.Warn("Failed to encode committed policy artifact",
			slog.String("policyID", string(params.PolicyID)),
			"err", err)
		notes = append(notes, fmt.Sprintf("artifact encoding failed: %v", err))
		artifactData = nil
	}

	committed := &interfaces.CommittedPolicy{
		RoleID:         policy.RoleID,
		PolicyData:     artifactData,
		ContractType:   policy.ContractType,
		ApprovalType:   policy.ApprovalType,
		ExecutionType:  policy.ExecutionType,
		Threshold:      policy.Threshold,
		SourcePolicyID: policy.ID,
		UpdatedAt:      time.Now().UTC(),
	}

	if m.artifacts != nil && len(artifactData) > 0 {
		committed.ArtifactHash = m.replicate(ctx, policy, artifactData, &notes)
	}

	if err := m.store.UpsertCommittedPolicy(ctx, committed); err != nil {
		return nil, err
	}

	policy.Status = interfaces.StatusCommitted
	policy.UpdatedAt = time.Now().UTC()
	if err := m.store.UpdatePendingPolicy(ctx, policy); err != nil {
		return nil, err
	}

	m.audit.Record(ctx, &interfaces.AuditEntry{
		PolicyID:      params.PolicyID,
		RoleID:        policy.RoleID,
		Action:        interfaces.AuditActionCommit,
		ActorEmail:    params.ActorEmail,
		ApprovalCount: approvals,
		Threshold:     policy.Threshold,
		Note:          strings.Join(notes, "; "),
	})

	return committed, nil
}

// extractPayload decodes the policy's current request blob and extracts the
// requested policy payload. Failures are soft: they append to notes and
// return nil so the commit proceeds.
func (m *Manager) extractPayload(policy *interfaces.PendingPolicy, notes *[]string) []byte {
	handle, err := m.codec.Decode(policy.PolicyRequestData)
	if err != nil {
		m.log.Warn("Failed to decode request data at commit",
			slog.String("policyID", string(policy.ID)),
			"err", err)
		*notes = append(*notes, fmt.Sprintf("payload extraction failed: %v", err))
		return nil
	}

	payload, err := handle.RequestedPolicy()
	if err != nil {
		m.log.Warn("Failed to extract requested policy at commit",
			slog.String("policyID", string(policy.ID)),
			"err", err)
		*notes = append(*notes, fmt.Sprintf("payload extraction failed: %v", err))
		return nil
	}
	return payload
}

// replicate pushes the artifact and the final request blob to the
// content-addressed backends. Best-effort: failures append to notes and
// return an empty hash.
func (m *Manager) replicate(ctx context.Context, policy *interfaces.PendingPolicy, artifactData []byte, notes *[]string) string {
	id, err := m.artifacts.Store(ctx, artifactData, interfaces.PolicyArtifactType)
	if err != nil {
		m.log.Warn("Failed to replicate committed policy artifact",
			slog.String("policyID", string(policy.ID)),
			slog.String("backend", m.artifacts.Name()),
			"err", err)
		*notes = append(*notes, fmt.Sprintf("artifact replication failed: %v", err))
		return ""
	}

	if _, err := m.artifacts.Store(ctx, policy.PolicyRequestData, interfaces.RequestArchiveType); err != nil {
		m.log.Warn("Failed to archive final signed request",
			slog.String("policyID", string(policy.ID)),
			"err", err)
	}

	m.log.Info("Replicated committed policy artifact",
		slog.String("policyID", string(policy.ID)),
		slog.String("artifactHash", id.String()))
	return id.String()
}

// Get returns a pending policy and its current decisions.
func (m *Manager) Get(ctx context.Context, id interfaces.PolicyID) (*interfaces.PendingPolicy, []*interfaces.Decision, error) {
	policy, err := m.store.PendingPolicy(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	decisions, err := m.store.ListDecisions(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return policy, decisions, nil
}

// List returns all pending policy records, newest first.
func (m *Manager) List(ctx context.Context) ([]*interfaces.PendingPolicy, error) {
	return m.store.ListPendingPolicies(ctx)
}

// AuditTrail returns the audit entries recorded for a policy, oldest first.
func (m *Manager) AuditTrail(ctx context.Context, id interfaces.PolicyID) ([]*interfaces.AuditEntry, error) {
	if _, err := m.store.PendingPolicy(ctx, id); err != nil {
		return nil, err
	}
	return m.store.AuditEntries(ctx, id)
}
