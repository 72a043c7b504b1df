package store

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sshgate/policy-governance-backend/interfaces"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := Open(Config{DSN: ":memory:", BusyTimeoutMs: 1000}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testPolicy(id string) *interfaces.PendingPolicy {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &interfaces.PendingPolicy{
		ID:                interfaces.PolicyID(id),
		RoleID:            "prod-ssh",
		Status:            interfaces.StatusPending,
		Threshold:         2,
		RequestedBy:       "admin-1",
		RequestedByEmail:  "admin-1@example.com",
		PolicyRequestData: []byte("signed-request-bytes"),
		ContractType:      "access",
		ApprovalType:      "quorum",
		ExecutionType:     "ssh",
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func TestPendingPolicyCRUD(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.PendingPolicy(ctx, "missing")
	assert.ErrorIs(t, err, interfaces.ErrPolicyNotFound)

	p := testPolicy("pol-1")
	require.NoError(t, s.CreatePendingPolicy(ctx, p))

	got, err := s.PendingPolicy(ctx, "pol-1")
	require.NoError(t, err)
	assert.Equal(t, p.RoleID, got.RoleID)
	assert.Equal(t, interfaces.StatusPending, got.Status)
	assert.Equal(t, p.PolicyRequestData, got.PolicyRequestData)

	got.Status = interfaces.StatusApproved
	got.PolicyRequestData = []byte("newer-signed-bytes")
	require.NoError(t, s.UpdatePendingPolicy(ctx, got))

	updated, err := s.PendingPolicy(ctx, "pol-1")
	require.NoError(t, err)
	assert.Equal(t, interfaces.StatusApproved, updated.Status)
	assert.Equal(t, []byte("newer-signed-bytes"), updated.PolicyRequestData)

	require.NoError(t, s.CreatePendingPolicy(ctx, testPolicy("pol-2")))
	policies, err := s.ListPendingPolicies(ctx)
	require.NoError(t, err)
	assert.Len(t, policies, 2)
}

func TestDecisionLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreatePendingPolicy(ctx, testPolicy("pol-1")))

	_, err := s.Decision(ctx, "pol-1", "alice")
	assert.ErrorIs(t, err, interfaces.ErrNoDecision)

	d := &interfaces.Decision{
		PolicyRequestID: "pol-1",
		VoterID:         "alice",
		Approved:        true,
		VoterEmail:      "alice@example.com",
		Timestamp:       time.Now().UTC(),
	}
	require.NoError(t, s.CreateDecision(ctx, d))

	// The composite key rejects a second decision for the same voter.
	err = s.CreateDecision(ctx, d)
	assert.ErrorIs(t, err, interfaces.ErrDuplicateVote)

	// The same voter may hold decisions on distinct policies.
	require.NoError(t, s.CreatePendingPolicy(ctx, testPolicy("pol-2")))
	other := *d
	other.PolicyRequestID = "pol-2"
	require.NoError(t, s.CreateDecision(ctx, &other))

	got, err := s.Decision(ctx, "pol-1", "alice")
	require.NoError(t, err)
	assert.True(t, got.Approved)

	require.NoError(t, s.DeleteDecision(ctx, "pol-1", "alice"))
	_, err = s.Decision(ctx, "pol-1", "alice")
	assert.ErrorIs(t, err, interfaces.ErrNoDecision)

	err = s.DeleteDecision(ctx, "pol-1", "alice")
	assert.ErrorIs(t, err, interfaces.ErrNoDecision)
}

func TestCountApprovals(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreatePendingPolicy(ctx, testPolicy("pol-1")))

	count, err := s.CountApprovals(ctx, "pol-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	votes := []struct {
		voter    string
		approved bool
	}{
		{"alice", true},
		{"bob", true},
		{"carol", false},
	}
	for _, v := range votes {
		require.NoError(t, s.CreateDecision(ctx, &interfaces.Decision{
			PolicyRequestID: "pol-1",
			VoterID:         v.voter,
			Approved:        v.approved,
			Timestamp:       time.Now().UTC(),
		}))
	}

	// Rejections do not count towards the approval tally.
	count, err = s.CountApprovals(ctx, "pol-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	decisions, err := s.ListDecisions(ctx, "pol-1")
	require.NoError(t, err)
	assert.Len(t, decisions, 3)

	require.NoError(t, s.DeleteDecision(ctx, "pol-1", "alice"))
	count, err = s.CountApprovals(ctx, "pol-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCommittedPolicyUpsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.CommittedPolicyByRole(ctx, "prod-ssh")
	assert.ErrorIs(t, err, interfaces.ErrNoCommittedPolicy)

	first := &interfaces.CommittedPolicy{
		RoleID:         "prod-ssh",
		PolicyData:     []byte("artifact-v1"),
		ContractType:   "access",
		ApprovalType:   "quorum",
		ExecutionType:  "ssh",
		Threshold:      2,
		SourcePolicyID: "pol-1",
		UpdatedAt:      time.Now().UTC(),
	}
	require.NoError(t, s.UpsertCommittedPolicy(ctx, first))

	got, err := s.CommittedPolicyByRole(ctx, "prod-ssh")
	require.NoError(t, err)
	assert.Equal(t, []byte("artifact-v1"), got.PolicyData)

	// A later commit for the same role replaces the prior artifact.
	second := *first
	second.PolicyData = []byte("artifact-v2")
	second.SourcePolicyID = "pol-2"
	require.NoError(t, s.UpsertCommittedPolicy(ctx, &second))

	got, err = s.CommittedPolicyByRole(ctx, "prod-ssh")
	require.NoError(t, err)
	assert.Equal(t, []byte("artifact-v2"), got.PolicyData)
	assert.Equal(t, interfaces.PolicyID("pol-2"), got.SourcePolicyID)
}

func TestAuditLogAppendOnly(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	actions := []interfaces.AuditAction{
		interfaces.AuditActionCreate,
		interfaces.AuditActionVote,
		interfaces.AuditActionCommit,
	}
	for i, action := range actions {
		require.NoError(t, s.AppendAuditEntry(ctx, &interfaces.AuditEntry{
			ID:        string(rune('a' + i)),
			PolicyID:  "pol-1",
			RoleID:    "prod-ssh",
			Action:    action,
			Actor:     "admin-1",
			CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Millisecond),
		}))
	}

	entries, err := s.AuditEntries(ctx, "pol-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, interfaces.AuditActionCreate, entries[0].Action)
	assert.Equal(t, interfaces.AuditActionCommit, entries[2].Action)

	// Entries for other policies are not returned.
	entries, err = s.AuditEntries(ctx, "pol-2")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
