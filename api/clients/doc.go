/*
Package clients provides a typed Go client for the policy governance API.

PolicyClient covers the full lifecycle surface: creating pending policies
from signed request blobs, casting and revoking votes, cancelling, committing,
reading the audit trail, and fetching the committed artifact for a role.

# Usage

	client := clients.NewPolicyClient("http://localhost:8080")

	policy, err := client.CreatePolicy(ctx, httpserver.CreatePolicyRequest{
	    RequestData: blob,
	    RoleID:      "prod-ssh",
	    Threshold:   2,
	    RequestedBy: "admin-1",
	})

	tally, err := client.Vote(ctx, policy.ID, httpserver.VoteRequest{
	    VoterID:     "alice",
	    Approve:     true,
	    RequestData: resignedBlob,
	})

Errors from non-2xx responses include the status code and the server's error
message.
*/
package clients
