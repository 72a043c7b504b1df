package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sshgate/policy-governance-backend/httpserver"
	"github.com/sshgate/policy-governance-backend/interfaces"
)

// PolicyClient provides methods for driving the policy approval lifecycle
// over the HTTP API. It handles request encoding, response parsing, and
// error wrapping.
type PolicyClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewPolicyClient creates a new client for the policy governance API.
//
// Parameters:
//   - baseURL: The base URL of the service (e.g., "http://localhost:8080")
//   - timeout: Request timeout duration (optional, default 30 seconds)
//
// Returns:
//   - Configured PolicyClient instance
func NewPolicyClient(baseURL string, timeout ...time.Duration) *PolicyClient {
	clientTimeout := 30 * time.Second
	if len(timeout) > 0 {
		clientTimeout = timeout[0]
	}

	return &PolicyClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: clientTimeout,
		},
	}
}

// CreatePolicy submits a signed request blob for approval.
func (c *PolicyClient) CreatePolicy(ctx context.Context, req httpserver.CreatePolicyRequest) (*httpserver.PolicyResponse, error) {
	var out httpserver.PolicyResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/policies", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPolicies returns all pending policy records.
func (c *PolicyClient) ListPolicies(ctx context.Context) ([]httpserver.PolicyResponse, error) {
	var out []httpserver.PolicyResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/policies", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetPolicy returns a policy with its recorded decisions.
func (c *PolicyClient) GetPolicy(ctx context.Context, policyID string) (*httpserver.PolicyResponse, error) {
	var out httpserver.PolicyResponse
	path := "/api/v1/policies/" + url.PathEscape(policyID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Vote casts an approval or rejection on a pending policy. Approvals must
// carry the re-signed request blob in req.RequestData.
func (c *PolicyClient) Vote(ctx context.Context, policyID string, req httpserver.VoteRequest) (*httpserver.TallyResponse, error) {
	var out httpserver.TallyResponse
	path := "/api/v1/policies/" + url.PathEscape(policyID) + "/votes"
	if err := c.doJSON(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RevokeVote withdraws a voter's decision from a pending policy.
func (c *PolicyClient) RevokeVote(ctx context.Context, policyID, voterID string) (*httpserver.TallyResponse, error) {
	var out httpserver.TallyResponse
	path := "/api/v1/policies/" + url.PathEscape(policyID) + "/votes/" + url.PathEscape(voterID)
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Cancel withdraws a pending policy entirely.
func (c *PolicyClient) Cancel(ctx context.Context, policyID, actorEmail string) error {
	path := "/api/v1/policies/" + url.PathEscape(policyID) + "/cancel"
	return c.doJSON(ctx, http.MethodPost, path, httpserver.CancelRequest{ActorEmail: actorEmail}, nil)
}

// Commit produces the committed artifact for the policy's role.
func (c *PolicyClient) Commit(ctx context.Context, policyID string, req httpserver.CommitRequest) error {
	path := "/api/v1/policies/" + url.PathEscape(policyID) + "/commit"
	return c.doJSON(ctx, http.MethodPost, path, req, nil)
}

// AuditTrail returns the transition log of a policy.
func (c *PolicyClient) AuditTrail(ctx context.Context, policyID string) ([]httpserver.AuditEntryResponse, error) {
	var out []httpserver.AuditEntryResponse
	path := "/api/v1/policies/" + url.PathEscape(policyID) + "/audit"
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RolePolicy fetches the raw committed artifact for a role and decodes the
// signed envelope.
func (c *PolicyClient) RolePolicy(ctx context.Context, roleID string) (*interfaces.SignedPolicyArtifact, error) {
	path := "/api/v1/roles/" + url.PathEscape(roleID) + "/policy"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("role policy request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("role policy request failed with code %d: %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read role policy response: %w", err)
	}

	var artifact interfaces.SignedPolicyArtifact
	if err := artifact.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("failed to decode policy artifact: %w", err)
	}
	return &artifact, nil
}

// doJSON performs a JSON request, decoding the response into out when it is
// non-nil.
func (c *PolicyClient) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request failed with code %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
