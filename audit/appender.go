// Package audit implements the append-only audit log appender.
//
// Every lifecycle transition (creation, vote, revoke, commit, cancel) is
// recorded with the acting identity and the resulting tallies. The appender
// is a write-only sink: it never mutates or deletes entries, and a failure to
// append is logged but never propagated, so audit degradation cannot block
// the approval workflow.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sshgate/policy-governance-backend/interfaces"
)

// Appender writes audit entries through the policy record store and mirrors
// them to the structured log.
type Appender struct {
	store interfaces.PolicyStore
	log   *slog.Logger
}

// NewAppender creates an audit appender backed by the given store.
func NewAppender(store interfaces.PolicyStore, log *slog.Logger) *Appender {
	return &Appender{store: store, log: log}
}

// Record appends an audit entry, assigning its id and timestamp. Store
// failures are logged and swallowed.
func (a *Appender) Record(ctx context.Context, entry *interfaces.AuditEntry) {
	if entry.ID == "" {
		entry.ID = uuid.Must(uuid.NewRandom()).String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	a.log.Info("Policy lifecycle transition",
		slog.String("action", string(entry.Action)),
		slog.String("policyID", string(entry.PolicyID)),
		slog.String("roleID", string(entry.RoleID)),
		slog.String("actor", entry.Actor),
		slog.Int("approvalCount", entry.ApprovalCount),
		slog.Int("threshold", entry.Threshold),
		slog.String("note", entry.Note))

	if err := a.store.AppendAuditEntry(ctx, entry); err != nil {
		a.log.Error("Failed to append audit entry",
			slog.String("action", string(entry.Action)),
			slog.String("policyID", string(entry.PolicyID)),
			"err", err)
	}
}
