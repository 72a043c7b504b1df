package interfaces

// SignedRequest is a capability handle over a decoded signed policy change
// request. The underlying blob is produced and consumed by an external
// signing library; this subsystem never interprets it beyond these
// operations.
type SignedRequest interface {
	// Initialized reports whether the request carries a complete, usable
	// payload. Decoding may succeed on a structurally valid but
	// uninitialized blob.
	Initialized() bool

	// UniqueID returns the request's stable identifier. The pending policy
	// id is derived from it.
	UniqueID() (PolicyID, error)

	// RequestedPolicy extracts the policy payload the request proposes.
	RequestedPolicy() ([]byte, error)

	// RemoveApproval strips the given voter's signature share from the
	// request. Returns false if the share was not present or could not be
	// removed; the caller treats that as a recoverable inconsistency.
	RemoveApproval(voterID string) bool

	// Encode re-serializes the request, reflecting any removed approvals.
	Encode() ([]byte, error)
}

// SignedRequestCodec decodes opaque signed request blobs. Implementations
// wrap the external signing library; the stub implementation in the codec
// package is used by tests and local development.
type SignedRequestCodec interface {
	// Decode parses a signed request blob. Returns an error wrapping
	// ErrMalformedRequest if the blob cannot be parsed.
	Decode(data []byte) (SignedRequest, error)
}
