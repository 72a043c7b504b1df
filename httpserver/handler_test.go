package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sshgate/policy-governance-backend/audit"
	"github.com/sshgate/policy-governance-backend/codec"
	"github.com/sshgate/policy-governance-backend/interfaces"
	"github.com/sshgate/policy-governance-backend/lifecycle"
	"github.com/sshgate/policy-governance-backend/resolver"
	"github.com/sshgate/policy-governance-backend/store"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := store.Open(store.Config{DSN: ":memory:", BusyTimeoutMs: 1000}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	mgr := lifecycle.NewManager(s, codec.NewStubCodec(), audit.NewAppender(s, logger), nil, logger)
	handler := NewHandler(mgr, resolver.NewResolver(s, logger), logger)

	srv := &Server{
		cfg: &HTTPServerConfig{
			Log:           logger,
			DrainDuration: time.Millisecond,
		},
		log:     logger,
		handler: handler,
	}
	srv.isReady.Store(true)

	ts := httptest.NewServer(srv.getRouter())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func createPolicyViaAPI(t *testing.T, ts *httptest.Server, id string, threshold int) PolicyResponse {
	t.Helper()
	blob, err := codec.NewStubRequest(id, []byte(`{"resource":"prod"}`))
	require.NoError(t, err)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/policies", CreatePolicyRequest{
		RequestData: blob,
		RoleID:      "prod-ssh",
		Threshold:   threshold,
		RequestedBy: "admin-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeJSON[PolicyResponse](t, resp)
}

func voteViaAPI(t *testing.T, ts *httptest.Server, policyID, voter string) TallyResponse {
	t.Helper()

	// Fetch the current blob and add this voter's share before approving.
	resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/policies/"+policyID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeJSON[PolicyResponse](t, resp)

	blob, err := codec.NewStubRequest(policyID, []byte(`{"resource":"prod"}`))
	require.NoError(t, err)
	signed, err := codec.AddStubApproval(blob, voter)
	require.NoError(t, err)

	voteResp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/policies/"+policyID+"/votes", VoteRequest{
		VoterID:     voter,
		Approve:     true,
		RequestData: signed,
	})
	require.Equal(t, http.StatusOK, voteResp.StatusCode)
	return decodeJSON[TallyResponse](t, voteResp)
}

func TestAPI_CreatePolicy(t *testing.T) {
	ts := newTestServer(t)

	created := createPolicyViaAPI(t, ts, "pol-1", 2)
	assert.Equal(t, "pol-1", created.ID)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, 2, created.Threshold)

	// Malformed blobs are rejected with 400.
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/policies", CreatePolicyRequest{
		RequestData: []byte("garbage"),
		RoleID:      "prod-ssh",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Listing returns the single created policy.
	listResp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/policies", nil)
	require.Equal(t, http.StatusOK, listResp.StatusCode)
	list := decodeJSON[[]PolicyResponse](t, listResp)
	assert.Len(t, list, 1)
}

func TestAPI_VoteFlow(t *testing.T) {
	ts := newTestServer(t)
	createPolicyViaAPI(t, ts, "pol-1", 2)

	tally := voteViaAPI(t, ts, "pol-1", "alice")
	assert.Equal(t, "pending", tally.Status)
	assert.Equal(t, 1, tally.ApprovalCount)

	// Duplicate votes return 409.
	blob, err := codec.NewStubRequest("pol-1", []byte(`{"resource":"prod"}`))
	require.NoError(t, err)
	signed, err := codec.AddStubApproval(blob, "alice")
	require.NoError(t, err)
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/policies/pol-1/votes", VoteRequest{
		VoterID: "alice", Approve: true, RequestData: signed,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	tally = voteViaAPI(t, ts, "pol-1", "bob")
	assert.Equal(t, "approved", tally.Status)
	assert.Equal(t, 2, tally.ApprovalCount)

	// Policy details include both decisions.
	getResp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/policies/pol-1", nil)
	require.Equal(t, http.StatusOK, getResp.StatusCode)
	policy := decodeJSON[PolicyResponse](t, getResp)
	assert.Len(t, policy.Decisions, 2)

	// Votes on unknown policies return 404.
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/policies/missing/votes", VoteRequest{
		VoterID: "alice", Approve: false,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_Revoke(t *testing.T) {
	ts := newTestServer(t)
	createPolicyViaAPI(t, ts, "pol-1", 2)
	voteViaAPI(t, ts, "pol-1", "alice")
	voteViaAPI(t, ts, "pol-1", "bob")

	resp := doJSON(t, http.MethodDelete, ts.URL+"/api/v1/policies/pol-1/votes/bob", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tally := decodeJSON[TallyResponse](t, resp)
	assert.Equal(t, "pending", tally.Status)
	assert.Equal(t, 1, tally.ApprovalCount)
	require.NotNil(t, tally.ApprovalRemoved)
	assert.True(t, *tally.ApprovalRemoved)

	// Revoking a vote that does not exist returns 404.
	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/v1/policies/pol-1/votes/nobody", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_CommitAndServeRolePolicy(t *testing.T) {
	ts := newTestServer(t)
	createPolicyViaAPI(t, ts, "pol-1", 2)
	voteViaAPI(t, ts, "pol-1", "alice")
	voteViaAPI(t, ts, "pol-1", "bob")

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/policies/pol-1/commit", CommitRequest{
		Signature: []byte("external-sig"),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	commit := decodeJSON[map[string]any](t, resp)
	assert.Equal(t, "committed", commit["status"])

	// A second commit is rejected.
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/policies/pol-1/commit", CommitRequest{})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// The artifact is served verbatim for the role.
	artifactResp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/roles/prod-ssh/policy", nil)
	require.Equal(t, http.StatusOK, artifactResp.StatusCode)
	assert.Equal(t, "application/octet-stream", artifactResp.Header.Get("Content-Type"))
	assert.Equal(t, "pol-1", artifactResp.Header.Get("X-Policy-Source-Id"))

	data, err := io.ReadAll(artifactResp.Body)
	require.NoError(t, err)
	var artifact interfaces.SignedPolicyArtifact
	require.NoError(t, artifact.UnmarshalBinary(data))
	assert.Equal(t, []byte("external-sig"), artifact.Signature)

	// Roles without a committed policy return 404.
	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/roles/unknown/policy", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_Cancel(t *testing.T) {
	ts := newTestServer(t)
	createPolicyViaAPI(t, ts, "pol-1", 1)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/policies/pol-1/cancel", CancelRequest{
		ActorEmail: "admin@example.com",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Terminal policies reject further transitions.
	resp = doJSON(t, http.MethodPost, ts.URL+"/api/v1/policies/pol-1/cancel", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_AuditTrail(t *testing.T) {
	ts := newTestServer(t)
	createPolicyViaAPI(t, ts, "pol-1", 1)
	voteViaAPI(t, ts, "pol-1", "alice")

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/policies/pol-1/audit", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries := decodeJSON[[]AuditEntryResponse](t, resp)
	require.Len(t, entries, 2)
	assert.Equal(t, "create", entries[0].Action)
	assert.Equal(t, "vote", entries[1].Action)
	assert.Equal(t, "approved", entries[1].Note)

	resp = doJSON(t, http.MethodGet, ts.URL+"/api/v1/policies/missing/audit", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_HealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/livez", "/readyz"} {
		resp := doJSON(t, http.MethodGet, ts.URL+path, nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode, fmt.Sprintf("path %s", path))
	}

	resp := doJSON(t, http.MethodGet, ts.URL+"/drain", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, ts.URL+"/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, ts.URL+"/undrain", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, ts.URL+"/readyz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
