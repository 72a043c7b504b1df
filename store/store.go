package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sshgate/policy-governance-backend/interfaces"
)

// Store implements interfaces.PolicyStore over a sqlite database.
type Store struct {
	db  *gorm.DB
	log *slog.Logger
}

// CreatePendingPolicy persists a new pending policy record.
func (s *Store) CreatePendingPolicy(ctx context.Context, policy *interfaces.PendingPolicy) error {
	if err := s.db.WithContext(ctx).Create(pendingPolicyToRow(policy)).Error; err != nil {
		return fmt.Errorf("failed to create pending policy: %w", err)
	}
	return nil
}

// PendingPolicy retrieves a pending policy by id.
func (s *Store) PendingPolicy(ctx context.Context, id interfaces.PolicyID) (*interfaces.PendingPolicy, error) {
	var row pendingPolicyRow
	err := s.db.WithContext(ctx).First(&row, "id = ?", string(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, interfaces.ErrPolicyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read pending policy: %w", err)
	}
	return row.toPendingPolicy(), nil
}

// UpdatePendingPolicy persists mutations to an existing pending policy.
func (s *Store) UpdatePendingPolicy(ctx context.Context, policy *interfaces.PendingPolicy) error {
	res := s.db.WithContext(ctx).Save(pendingPolicyToRow(policy))
	if res.Error != nil {
		return fmt.Errorf("failed to update pending policy: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return interfaces.ErrPolicyNotFound
	}
	return nil
}

// ListPendingPolicies returns all pending policy records, newest first.
func (s *Store) ListPendingPolicies(ctx context.Context) ([]*interfaces.PendingPolicy, error) {
	var rows []pendingPolicyRow
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list pending policies: %w", err)
	}

	policies := make([]*interfaces.PendingPolicy, 0, len(rows))
	for i := range rows {
		policies = append(policies, rows[i].toPendingPolicy())
	}
	return policies, nil
}

// CreateDecision persists a voter's decision.
func (s *Store) CreateDecision(ctx context.Context, decision *interfaces.Decision) error {
	err := s.db.WithContext(ctx).Create(decisionToRow(decision)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
		return interfaces.ErrDuplicateVote
	}
	if err != nil {
		return fmt.Errorf("failed to create decision: %w", err)
	}
	return nil
}

// Decision retrieves the decision a voter holds on a policy.
func (s *Store) Decision(ctx context.Context, id interfaces.PolicyID, voterID string) (*interfaces.Decision, error) {
	var row decisionRow
	err := s.db.WithContext(ctx).
		First(&row, "policy_request_id = ? AND voter_id = ?", string(id), voterID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, interfaces.ErrNoDecision
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read decision: %w", err)
	}
	return row.toDecision(), nil
}

// DeleteDecision removes a voter's decision.
func (s *Store) DeleteDecision(ctx context.Context, id interfaces.PolicyID, voterID string) error {
	res := s.db.WithContext(ctx).
		Delete(&decisionRow{}, "policy_request_id = ? AND voter_id = ?", string(id), voterID)
	if res.Error != nil {
		return fmt.Errorf("failed to delete decision: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return interfaces.ErrNoDecision
	}
	return nil
}

// ListDecisions returns all decisions for a policy.
func (s *Store) ListDecisions(ctx context.Context, id interfaces.PolicyID) ([]*interfaces.Decision, error) {
	var rows []decisionRow
	err := s.db.WithContext(ctx).
		Where("policy_request_id = ?", string(id)).
		Order("timestamp ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}

	decisions := make([]*interfaces.Decision, 0, len(rows))
	for i := range rows {
		decisions = append(decisions, rows[i].toDecision())
	}
	return decisions, nil
}

// CountApprovals returns the number of approval decisions for a policy.
func (s *Store) CountApprovals(ctx context.Context, id interfaces.PolicyID) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&decisionRow{}).
		Where("policy_request_id = ? AND approved = ?", string(id), true).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count approvals: %w", err)
	}
	return int(count), nil
}

// UpsertCommittedPolicy writes the committed policy for a role, replacing any
// prior committed policy for the same role.
func (s *Store) UpsertCommittedPolicy(ctx context.Context, policy *interfaces.CommittedPolicy) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "role_id"}},
			UpdateAll: true,
		}).
		Create(committedPolicyToRow(policy)).Error
	if err != nil {
		return fmt.Errorf("failed to upsert committed policy: %w", err)
	}
	return nil
}

// CommittedPolicyByRole retrieves the latest committed policy for a role.
func (s *Store) CommittedPolicyByRole(ctx context.Context, roleID interfaces.RoleID) (*interfaces.CommittedPolicy, error) {
	var row committedPolicyRow
	err := s.db.WithContext(ctx).First(&row, "role_id = ?", string(roleID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, interfaces.ErrNoCommittedPolicy
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read committed policy: %w", err)
	}
	return row.toCommittedPolicy(), nil
}

// AppendAuditEntry appends a transition record to the audit log.
func (s *Store) AppendAuditEntry(ctx context.Context, entry *interfaces.AuditEntry) error {
	if err := s.db.WithContext(ctx).Create(auditEntryToRow(entry)).Error; err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// AuditEntries returns the audit trail for a policy, oldest first.
func (s *Store) AuditEntries(ctx context.Context, id interfaces.PolicyID) ([]*interfaces.AuditEntry, error) {
	var rows []auditRow
	err := s.db.WithContext(ctx).
		Where("policy_id = ?", string(id)).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}

	entries := make([]*interfaces.AuditEntry, 0, len(rows))
	for i := range rows {
		entries = append(entries, rows[i].toAuditEntry())
	}
	return entries, nil
}

// isUniqueViolation catches sqlite unique-constraint failures the dialector
// does not translate into gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
