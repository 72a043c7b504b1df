package resolver

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sshgate/policy-governance-backend/interfaces"
	"github.com/sshgate/policy-governance-backend/store"
)

func TestResolver(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := store.Open(store.Config{DSN: ":memory:"}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	r := NewResolver(s, logger)
	ctx := context.Background()

	_, err = r.ByRole(ctx, "prod-ssh")
	assert.ErrorIs(t, err, interfaces.ErrNoCommittedPolicy)

	artifact := &interfaces.SignedPolicyArtifact{
		Policy:    []byte(`{"resource":"prod"}`),
		Signature: []byte("sig"),
		RoleID:    "prod-ssh",
		Threshold: 2,
	}
	data, err := artifact.MarshalBinary()
	require.NoError(t, err)

	require.NoError(t, s.UpsertCommittedPolicy(ctx, &interfaces.CommittedPolicy{
		RoleID:         "prod-ssh",
		PolicyData:     data,
		Threshold:      2,
		SourcePolicyID: "pol-1",
		UpdatedAt:      time.Now().UTC(),
	}))

	committed, err := r.ByRole(ctx, "prod-ssh")
	require.NoError(t, err)
	assert.Equal(t, data, committed.PolicyData)

	decoded, err := r.ArtifactByRole(ctx, "prod-ssh")
	require.NoError(t, err)
	assert.Equal(t, artifact.Policy, decoded.Policy)
	assert.Equal(t, artifact.Signature, decoded.Signature)
	assert.Equal(t, 2, decoded.Threshold)
}
