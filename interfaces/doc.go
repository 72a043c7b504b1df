// Package interfaces defines the core interfaces and types for the policy
// governance system.
//
// This package provides the contracts between different components of the
// system without including implementation details. It separates the interface
// definitions from their implementations, allowing for:
//
//   - Clear separation of concerns
//   - Multiple implementations of the same interface
//   - Better testability through stub implementations
//   - Reduced coupling between components
//
// The package contains several key interfaces:
//
// # Signed Request Interfaces
//
//   - SignedRequestCodec: Decodes the opaque, externally-signed policy change
//     request blob into a SignedRequest handle
//   - SignedRequest: Capability handle over a decoded request (unique id,
//     requested policy payload, approval removal, re-encoding)
//
// # Record Store Interfaces
//
//   - PolicyStore: Durable storage for pending policies, voter decisions,
//     committed policies, and the append-only audit log
//   - AuditSink: Write-only sink for lifecycle transition entries
//
// # Artifact Storage Interfaces
//
//   - StorageBackend: Represents any system that can store and retrieve
//     content-addressed policy artifacts
//   - StorageBackendFactory: Creates storage backends from URI strings
//
// # Type Definitions
//
// The package defines various types used throughout the system:
//
//   - PolicyID: Identifier of a pending policy, derived from the signed
//     request's unique identifier (content-addressed, not server-generated)
//   - RoleID: The access-control role a policy governs
//   - PolicyStatus: Lifecycle state of a pending policy
//   - PendingPolicy/Decision/CommittedPolicy/AuditEntry: Persisted records
//   - SignedPolicyArtifact: CBOR envelope of the final signed policy bytes
//   - ContentID: A 32-byte hash that uniquely identifies artifact content
//
// # Error Types
//
// Standard errors returned by lifecycle and storage operations:
//
//   - ErrMalformedRequest: Signed request blob fails to decode
//   - ErrPolicyNotFound: Unknown pending policy id
//   - ErrInvalidState: Operation not permitted in the current status
//   - ErrDuplicateVote / ErrNoDecision: Voter precondition violations
//   - ErrNoCommittedPolicy: No committed policy exists for a role
//   - ErrContentNotFound / ErrBackendUnavailable: Artifact storage failures
//
// # Usage Patterns
//
// Components should depend on interfaces rather than concrete implementations:
//
//	func NewManager(
//	    store interfaces.PolicyStore,
//	    codec interfaces.SignedRequestCodec,
//	    audit interfaces.AuditSink,
//	) *Manager {
//	    // ...
//	}
//
// This allows the lifecycle state machine to be tested with a stub codec,
// decoupling its correctness from the external signing library.
package interfaces
