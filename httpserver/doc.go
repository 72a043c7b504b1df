/*
Package httpserver implements the HTTP API of the policy governance service.

It exposes the policy approval lifecycle over a JSON API and serves committed
policy artifacts to downstream gateways. All state transitions are delegated
to the lifecycle manager; the server only handles transport concerns.

# API Routes

Lifecycle operations:

  - POST   /api/v1/policies                              - create a pending policy
  - GET    /api/v1/policies                              - list pending policies
  - GET    /api/v1/policies/{policy_id}                  - policy details with votes
  - POST   /api/v1/policies/{policy_id}/votes            - cast an approval or rejection
  - DELETE /api/v1/policies/{policy_id}/votes/{voter_id} - revoke a prior vote
  - POST   /api/v1/policies/{policy_id}/cancel           - cancel a pending policy
  - POST   /api/v1/policies/{policy_id}/commit           - produce the committed artifact
  - GET    /api/v1/policies/{policy_id}/audit            - transition audit trail

Read side for policy consumers:

  - GET /api/v1/roles/{role_id}/policy - committed artifact as octet stream

Health and diagnostics:

  - GET /livez, /readyz, /drain, /undrain
  - /debug (pprof, when enabled)

# Error Mapping

Domain errors map onto HTTP status codes: malformed signed requests return
400, unknown policies, voters, and roles return 404, duplicate votes and
transitions on terminal policies return 409.

# Observability

Requests are logged through the httplogger middleware and measured with
Prometheus histograms. The metrics endpoint runs on its own listener so it
can stay off the public address.
*/
package httpserver
