/*
Package api groups the client libraries for the policy governance service.

The clients subpackage provides typed Go clients over the HTTP API exposed by
the httpserver package. Operator tooling and downstream policy consumers use
these clients instead of hand-rolling HTTP calls.
*/
package api
