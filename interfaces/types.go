package interfaces

import (
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// PolicyID uniquely identifies a pending policy. It is derived from the
// signed request's unique identifier, never generated server-side, which
// makes policy creation idempotent by request content.
type PolicyID string

// String returns the raw identifier.
func (id PolicyID) String() string {
	return string(id)
}

// RoleID identifies the access-control role a policy governs, a logical
// resource/action pair in the identity system's namespace.
type RoleID string

// String returns the raw identifier.
func (id RoleID) String() string {
	return string(id)
}

// PolicyStatus is the lifecycle state of a pending policy.
//
// Transitions are forward-only with a single backward edge:
//
//	pending --(approvals >= threshold)--> approved
//	approved --(approvals < threshold after revoke)--> pending
//	pending|approved --(cancel)--> cancelled [terminal]
//	pending|approved --(commit)--> committed [terminal]
type PolicyStatus string

const (
	// StatusPending indicates the policy is collecting approvals.
	StatusPending PolicyStatus = "pending"

	// StatusApproved indicates the approval count has reached the threshold.
	StatusApproved PolicyStatus = "approved"

	// StatusCommitted indicates the final policy artifact has been produced.
	// Terminal.
	StatusCommitted PolicyStatus = "committed"

	// StatusCancelled indicates the policy was withdrawn. Terminal.
	StatusCancelled PolicyStatus = "cancelled"
)

// Terminal reports whether the status permits no further mutation.
func (s PolicyStatus) Terminal() bool {
	return s == StatusCommitted || s == StatusCancelled
}

// Valid reports whether s is one of the known lifecycle states.
func (s PolicyStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusCommitted, StatusCancelled:
		return true
	default:
		return false
	}
}

// PendingPolicy is an access-control policy change awaiting multi-party
// approval. PolicyRequestData holds the current serialized signed request and
// is mutable: every successful approval vote replaces it with a newer signed
// version, and every approval revocation replaces it with a version that has
// that signer's share stripped.
type PendingPolicy struct {
	// ID is derived from the signed request's unique identifier.
	ID PolicyID `json:"id"`

	// RoleID is the access-control role this policy governs.
	RoleID RoleID `json:"role_id"`

	// Status is the current lifecycle state.
	Status PolicyStatus `json:"status"`

	// Threshold is the minimum number of distinct approving voters required.
	Threshold int `json:"threshold"`

	// RequestedBy and RequestedByEmail identify the creator. Both are opaque
	// strings issued by the external identity system.
	RequestedBy      string `json:"requested_by"`
	RequestedByEmail string `json:"requested_by_email"`

	// PolicyRequestData is the current serialized signed request blob.
	PolicyRequestData []byte `json:"policy_request_data"`

	// ContractType, ApprovalType, and ExecutionType are descriptive metadata
	// supplied at creation and copied verbatim onto the committed policy.
	ContractType  string `json:"contract_type"`
	ApprovalType  string `json:"approval_type"`
	ExecutionType string `json:"execution_type"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Decision is a voter's single up-or-down vote on a pending policy. The
// composite identity (PolicyRequestID, VoterID) is unique: a voter holds at
// most one decision per pending policy at any time. Decisions are never
// updated in place; changing a vote requires revoke-then-revote.
type Decision struct {
	// PolicyRequestID is the pending policy this decision applies to.
	PolicyRequestID PolicyID `json:"policy_request_id"`

	// VoterID identifies the voter in the external identity system.
	VoterID string `json:"voter_id"`

	// Approved records the vote: true for approve, false for reject.
	Approved bool `json:"approved"`

	// VoterEmail is the voter's email as reported by the identity system.
	VoterEmail string `json:"voter_email"`

	// Timestamp is when the vote was cast.
	Timestamp time.Time `json:"timestamp"`
}

// CommittedPolicy is the final, signed policy artifact served to authorize
// access for a role. At most one committed policy exists per role; a new
// commit for the same role replaces the prior one.
type CommittedPolicy struct {
	// RoleID keys the committed policy.
	RoleID RoleID `json:"role_id"`

	// PolicyData is the CBOR-encoded SignedPolicyArtifact.
	PolicyData []byte `json:"policy_data"`

	// ContractType, ApprovalType, ExecutionType, and Threshold are copied
	// from the originating pending policy.
	ContractType  string `json:"contract_type"`
	ApprovalType  string `json:"approval_type"`
	ExecutionType string `json:"execution_type"`
	Threshold     int    `json:"threshold"`

	// SourcePolicyID is the pending policy this artifact was produced from.
	SourcePolicyID PolicyID `json:"source_policy_id"`

	// ArtifactHash is the hex content id of PolicyData, set when the artifact
	// has been replicated to content-addressed storage backends.
	ArtifactHash string `json:"artifact_hash,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// AuditAction names a lifecycle transition recorded in the audit log.
type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionVote   AuditAction = "vote"
	AuditActionRevoke AuditAction = "revoke"
	AuditActionCancel AuditAction = "cancel"
	AuditActionCommit AuditAction = "commit"
)

// AuditEntry is one append-only record of a lifecycle transition. Entries are
// never mutated or deleted.
type AuditEntry struct {
	// ID is assigned by the audit appender.
	ID string `json:"id"`

	PolicyID PolicyID    `json:"policy_id"`
	RoleID   RoleID      `json:"role_id"`
	Action   AuditAction `json:"action"`

	// Actor and ActorEmail identify who triggered the transition.
	Actor      string `json:"actor"`
	ActorEmail string `json:"actor_email"`

	// ApprovalCount and Threshold are the tallies after the transition.
	ApprovalCount int `json:"approval_count"`
	Threshold     int `json:"threshold"`

	// Note carries soft-failure diagnostics (approval removal failures,
	// extraction degradation at commit) for operator visibility.
	Note string `json:"note,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// VoteResult reports the post-vote tallies and status.
type VoteResult struct {
	PolicyID      PolicyID     `json:"policy_id"`
	Status        PolicyStatus `json:"status"`
	ApprovalCount int          `json:"approval_count"`
	Threshold     int          `json:"threshold"`
}

// RevokeResult reports the post-revocation tallies and status.
// ApprovalRemoved is false when the signer's share could not be stripped from
// the signed request blob; the tally-side revocation still took effect.
type RevokeResult struct {
	PolicyID        PolicyID     `json:"policy_id"`
	Status          PolicyStatus `json:"status"`
	ApprovalCount   int          `json:"approval_count"`
	Threshold       int          `json:"threshold"`
	ApprovalRemoved bool         `json:"approval_removed"`
}

// SignedPolicyArtifact is the envelope serialized into
// CommittedPolicy.PolicyData. The Signature field is produced by the external
// signing network; downstream consumers reject artifacts without one, but the
// commit path itself does not.
type SignedPolicyArtifact struct {
	// Policy is the requested policy payload extracted from the signed
	// request at commit time.
	Policy []byte `cbor:"1,keyasint"`

	// Signature is the external signature over Policy, if one was supplied.
	Signature []byte `cbor:"2,keyasint,omitempty"`

	// RoleID and Threshold describe the artifact's provenance.
	RoleID    RoleID `cbor:"3,keyasint"`
	Threshold int    `cbor:"4,keyasint"`
}

// MarshalBinary encodes the artifact envelope as deterministic CBOR.
func (a *SignedPolicyArtifact) MarshalBinary() ([]byte, error) {
	return cbor.Marshal(a)
}

// UnmarshalBinary decodes a CBOR artifact envelope.
func (a *SignedPolicyArtifact) UnmarshalBinary(data []byte) error {
	return cbor.Unmarshal(data, a)
}

var (
	// ErrMalformedRequest is returned when a signed request blob fails to
	// decode or is not fully initialized. Non-retryable; the caller must
	// resubmit a valid blob.
	ErrMalformedRequest = errors.New("malformed signed request")

	// ErrPolicyNotFound is returned for an unknown pending policy id.
	ErrPolicyNotFound = errors.New("pending policy not found")

	// ErrInvalidState is returned when an operation is not permitted in the
	// policy's current status. Wrapped errors carry the current status so the
	// caller can adjust.
	ErrInvalidState = errors.New("operation not permitted in current status")

	// ErrDuplicateVote is returned when a voter already holds a decision on
	// the policy. A voter must revoke before voting again.
	ErrDuplicateVote = errors.New("voter already has a decision for this policy")

	// ErrNoDecision is returned when a revocation targets a voter with no
	// existing decision on the policy.
	ErrNoDecision = errors.New("no decision exists for this voter")

	// ErrApprovalRemovalFailed indicates the signer's share could not be
	// stripped from the signed request blob during revocation. The tally-side
	// revocation still proceeds; the local vote count remains authoritative
	// for gating commit.
	ErrApprovalRemovalFailed = errors.New("failed to remove approval from signed request")

	// ErrNoCommittedPolicy is returned when no committed policy exists for
	// the requested role.
	ErrNoCommittedPolicy = errors.New("no committed policy for role")
)

// InvalidStateError wraps ErrInvalidState with the policy's current status.
func InvalidStateError(status PolicyStatus) error {
	return fmt.Errorf("%w: policy is %s", ErrInvalidState, status)
}
