// Package codec provides signed request codec implementations.
//
// The production codec wraps the external signing library and lives with the
// signing network integration. This package ships StubCodec, a deterministic
// implementation of interfaces.SignedRequestCodec used by tests and local
// development. It defines a private CBOR envelope whose only purpose is to
// exercise the lifecycle manager's capability contract: decode, unique id,
// requested policy extraction, approval removal, and re-encoding.
//
// The stub envelope is not the wire format of the real signing network and
// must never be served to it.
package codec
