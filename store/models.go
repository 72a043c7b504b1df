package store

import (
	"time"

	"github.com/sshgate/policy-governance-backend/interfaces"
)

// Row types mirror the interfaces records with storage tags. Conversions are
// kept here so the rest of the system never sees gorm types.

type pendingPolicyRow struct {
	ID                string `gorm:"primaryKey;column:id"`
	RoleID            string `gorm:"column:role_id;index"`
	Status            string `gorm:"column:status"`
	Threshold         int    `gorm:"column:threshold"`
	RequestedBy       string `gorm:"column:requested_by"`
	RequestedByEmail  string `gorm:"column:requested_by_email"`
	PolicyRequestData []byte `gorm:"column:policy_request_data"`
	ContractType      string `gorm:"column:contract_type"`
	ApprovalType      string `gorm:"column:approval_type"`
	ExecutionType     string `gorm:"column:execution_type"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (pendingPolicyRow) TableName() string { return "pending_policies" }

func pendingPolicyToRow(p *interfaces.PendingPolicy) *pendingPolicyRow {
	return &pendingPolicyRow{
		ID:                string(p.ID),
		RoleID:            string(p.RoleID),
		Status:            string(p.Status),
		Threshold:         p.Threshold,
		RequestedBy:       p.RequestedBy,
		RequestedByEmail:  p.RequestedByEmail,
		PolicyRequestData: p.PolicyRequestData,
		ContractType:      p.ContractType,
		ApprovalType:      p.ApprovalType,
		ExecutionType:     p.ExecutionType,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func (r *pendingPolicyRow) toPendingPolicy() *interfaces.PendingPolicy {
	return &interfaces.PendingPolicy{
		ID:                interfaces.PolicyID(r.ID),
		RoleID:            interfaces.RoleID(r.RoleID),
		Status:            interfaces.PolicyStatus(r.Status),
		Threshold:         r.Threshold,
		RequestedBy:       r.RequestedBy,
		RequestedByEmail:  r.RequestedByEmail,
		PolicyRequestData: r.PolicyRequestData,
		ContractType:      r.ContractType,
		ApprovalType:      r.ApprovalType,
		ExecutionType:     r.ExecutionType,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

type decisionRow struct {
	PolicyRequestID string    `gorm:"primaryKey;column:policy_request_id"`
	VoterID         string    `gorm:"primaryKey;column:voter_id"`
	Approved        bool      `gorm:"column:approved"`
	VoterEmail      string    `gorm:"column:voter_email"`
	Timestamp       time.Time `gorm:"column:timestamp"`
}

func (decisionRow) TableName() string { return "policy_decisions" }

func decisionToRow(d *interfaces.Decision) *decisionRow {
	return &decisionRow{
		PolicyRequestID: string(d.PolicyRequestID),
		VoterID:         d.VoterID,
		Approved:        d.Approved,
		VoterEmail:      d.VoterEmail,
		Timestamp:       d.Timestamp,
	}
}

func (r *decisionRow) toDecision() *interfaces.Decision {
	return &interfaces.Decision{
		PolicyRequestID: interfaces.PolicyID(r.PolicyRequestID),
		VoterID:         r.VoterID,
		Approved:        r.Approved,
		VoterEmail:      r.VoterEmail,
		Timestamp:       r.Timestamp,
	}
}

type committedPolicyRow struct {
	RoleID         string `gorm:"primaryKey;column:role_id"`
	PolicyData     []byte `gorm:"column:policy_data"`
	ContractType   string `gorm:"column:contract_type"`
	ApprovalType   string `gorm:"column:approval_type"`
	ExecutionType  string `gorm:"column:execution_type"`
	Threshold      int    `gorm:"column:threshold"`
	SourcePolicyID string `gorm:"column:source_policy_id"`
	ArtifactHash   string `gorm:"column:artifact_hash"`
	UpdatedAt      time.Time
}

func (committedPolicyRow) TableName() string { return "committed_policies" }

func committedPolicyToRow(p *interfaces.CommittedPolicy) *committedPolicyRow {
	return &committedPolicyRow{
		RoleID:         string(p.RoleID),
		PolicyData:     p.PolicyData,
		ContractType:   p.ContractType,
		ApprovalType:   p.ApprovalType,
		ExecutionType:  p.ExecutionType,
		Threshold:      p.Threshold,
		SourcePolicyID: string(p.SourcePolicyID),
		ArtifactHash:   p.ArtifactHash,
		UpdatedAt:      p.UpdatedAt,
	}
}

func (r *committedPolicyRow) toCommittedPolicy() *interfaces.CommittedPolicy {
	return &interfaces.CommittedPolicy{
		RoleID:         interfaces.RoleID(r.RoleID),
		PolicyData:     r.PolicyData,
		ContractType:   r.ContractType,
		ApprovalType:   r.ApprovalType,
		ExecutionType:  r.ExecutionType,
		Threshold:      r.Threshold,
		SourcePolicyID: interfaces.PolicyID(r.SourcePolicyID),
		ArtifactHash:   r.ArtifactHash,
		UpdatedAt:      r.UpdatedAt,
	}
}

type auditRow struct {
	ID            string `gorm:"primaryKey;column:id"`
	PolicyID      string `gorm:"column:policy_id;index"`
	RoleID        string `gorm:"column:role_id"`
	Action        string `gorm:"column:action"`
	Actor         string `gorm:"column:actor"`
	ActorEmail    string `gorm:"column:actor_email"`
	ApprovalCount int    `gorm:"column:approval_count"`
	Threshold     int    `gorm:"column:threshold"`
	Note          string `gorm:"column:note"`
	CreatedAt     time.Time
}

func (auditRow) TableName() string { return "audit_log" }

func auditEntryToRow(e *interfaces.AuditEntry) *auditRow {
	return &auditRow{
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
	}
}

func (r *auditRow) toAuditEntry() *interfaces.AuditEntry {
	return &interfaces.AuditEntry{
		ID:            r.ID,
		PolicyID:      interfaces.PolicyID(r.PolicyID),
		RoleID:        interfaces.RoleID(r.RoleID),
		Action:        interfaces.AuditAction(r.Action),
		Actor:         r.Actor,
		ActorEmail:    r.ActorEmail,
		ApprovalCount: r.ApprovalCount,
		Threshold:     r.Threshold,
		Note:          r.Note,
		CreatedAt:     r.CreatedAt,
	}
}
