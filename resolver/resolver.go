// Package resolver serves committed policies to downstream consumers. It is
// the read-only counterpart of the lifecycle manager: gateways resolve the
// single active policy for a role and verify its signature themselves.
package resolver

import (
	"context"
	"log/slog"

	"github.com/sshgate/policy-governance-backend/interfaces"
)

// Resolver answers role-to-policy lookups from the record store.
type Resolver struct {
	store interfaces.PolicyStore
	log   *slog.Logger
}

// NewResolver creates a resolver backed by the given record store.
func NewResolver(store interfaces.PolicyStore, log *slog.Logger) *Resolver {
	return &Resolver{store: store, log: log}
}

// ByRole returns the committed policy currently in force for a role.
// Returns ErrNoCommittedPolicy if no policy has ever been committed for it.
func (r *Resolver) ByRole(ctx context.Context, roleID interfaces.RoleID) (*interfaces.CommittedPolicy, error) {
	return r.store.CommittedPolicyByRole(ctx, roleID)
}

// ArtifactByRole returns the decoded signed artifact for a role. Consumers
// that only need the raw bytes should use ByRole and serve PolicyData as-is.
func (r *Resolver) ArtifactByRole(ctx context.Context, roleID interfaces.RoleID) (*interfaces.SignedPolicyArtifact, error) {
	committed, err := r.store.CommittedPolicyByRole(ctx, roleID)
	if err != nil {
		return nil, err
	}

	var artifact interfaces.SignedPolicyArtifact
	if err := artifact.UnmarshalBinary(committed.PolicyData); err != nil {
		r.log.Error("Stored committed policy artifact is corrupt",
			slog.String("roleID", string(roleID)),
			"err", err)
		return nil, err
	}
	return &artifact, nil
}
