package interfaces

import "context"

// PolicyStore provides durable storage for the three policy entity kinds and
// the append-only audit log. The lifecycle manager exclusively owns
// PendingPolicy and Decision mutation; the committed policy read path never
// writes.
//
// Approval counts are always derived from the decision set via
// CountApprovals, never stored independently, so the tally cannot drift from
// the decisions that back it.
type PolicyStore interface {
	// CreatePendingPolicy persists a new pending policy record.
	CreatePendingPolicy(ctx context.Context, policy *PendingPolicy) error

	// PendingPolicy retrieves a pending policy by id.
	// Returns ErrPolicyNotFound if no record exists.
	PendingPolicy(ctx context.Context, id PolicyID) (*PendingPolicy, error)

	// UpdatePendingPolicy persists mutations to an existing pending policy
	// (status, request data, timestamps).
	UpdatePendingPolicy(ctx context.Context, policy *PendingPolicy) error

	// ListPendingPolicies returns all pending policy records, newest first.
	ListPendingPolicies(ctx context.Context) ([]*PendingPolicy, error)

	// CreateDecision persists a voter's decision. Fails if a decision for
	// the same (policy, voter) pair already exists.
	CreateDecision(ctx context.Context, decision *Decision) error

	// Decision retrieves the decision a voter holds on a policy.
	// Returns ErrNoDecision if the voter has not voted.
	Decision(ctx context.Context, id PolicyID, voterID string) (*Decision, error)

	// DeleteDecision removes a voter's decision. Deletion is hard; revoked
	// decisions leave no row behind.
	DeleteDecision(ctx context.Context, id PolicyID, voterID string) error

	// ListDecisions returns all decisions for a policy.
	ListDecisions(ctx context.Context, id PolicyID) ([]*Decision, error)

	// CountApprovals returns the number of approval decisions for a policy.
	CountApprovals(ctx context.Context, id PolicyID) (int, error)

	// UpsertCommittedPolicy writes the committed policy for a role,
	// replacing any prior committed policy for the same role.
	UpsertCommittedPolicy(ctx context.Context, policy *CommittedPolicy) error

	// CommittedPolicyByRole retrieves the latest committed policy for a role.
	// Returns ErrNoCommittedPolicy if none exists.
	CommittedPolicyByRole(ctx context.Context, roleID RoleID) (*CommittedPolicy, error)

	// AppendAuditEntry appends a transition record to the audit log.
	AppendAuditEntry(ctx context.Context, entry *AuditEntry) error

	// AuditEntries returns the audit trail for a policy, oldest first.
	AuditEntries(ctx context.Context, id PolicyID) ([]*AuditEntry, error)
}

// AuditSink records lifecycle transitions for operator visibility. The sink
// is write-only and append-only; failures to record must not fail the
// enclosing operation.
type AuditSink interface {
	// Record appends an audit entry, assigning its id and timestamp.
	Record(ctx context.Context, entry *AuditEntry)
}
