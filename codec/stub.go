package codec

import (
	"fmt"
	"slices"

	"github.com/fxamacker/cbor/v2"

	"github.com/sshgate/policy-governance-backend/interfaces"
)

// stubEnvelope is the CBOR layout of a stub signed request. Integer keys keep
// the encoding compact and stable across versions.
type stubEnvelope struct {
	RequestID string   `cbor:"1,keyasint"`
	Policy    []byte   `cbor:"2,keyasint"`
	Approvers []string `cbor:"3,keyasint,omitempty"`
	Complete  bool     `cbor:"4,keyasint"`
}

// StubCodec implements interfaces.SignedRequestCodec for testing and local
// development. Decoding is deterministic: the same bytes always yield the
// same unique id, and approval removal mutates only the approver set.
type StubCodec struct{}

// NewStubCodec creates a stub codec.
func NewStubCodec() *StubCodec {
	return &StubCodec{}
}

// Decode parses a stub envelope. Returns an error wrapping
// interfaces.ErrMalformedRequest if the bytes are not a valid envelope.
func (c *StubCodec) Decode(data []byte) (interfaces.SignedRequest, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty request data", interfaces.ErrMalformedRequest)
	}

	var env stubEnvelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrMalformedRequest, err)
	}

	return &stubRequest{env: env}, nil
}

// stubRequest implements interfaces.SignedRequest over a decoded envelope.
type stubRequest struct {
	env stubEnvelope
}

func (r *stubRequest) Initialized() bool {
	return r.env.Complete && r.env.RequestID != ""
}

func (r *stubRequest) UniqueID() (interfaces.PolicyID, error) {
	if r.env.RequestID == "" {
		return "", fmt.Errorf("%w: missing request id", interfaces.ErrMalformedRequest)
	}
	return interfaces.PolicyID(r.env.RequestID), nil
}

func (r *stubRequest) RequestedPolicy() ([]byte, error) {
	if len(r.env.Policy) == 0 {
		return nil, fmt.Errorf("%w: no policy payload", interfaces.ErrMalformedRequest)
	}
	return r.env.Policy, nil
}

func (r *stubRequest) RemoveApproval(voterID string) bool {
	idx := slices.Index(r.env.Approvers, voterID)
	if idx < 0 {
		return false
	}
	r.env.Approvers = slices.Delete(r.env.Approvers, idx, idx+1)
	return true
}

func (r *stubRequest) Encode() ([]byte, error) {
	return cbor.Marshal(&r.env)
}

// Approvers exposes the accumulated approver ids for test assertions.
func (r *stubRequest) Approvers() []string {
	return slices.Clone(r.env.Approvers)
}

// NewStubRequest builds an initialized stub signed request blob.
func NewStubRequest(requestID string, policy []byte) ([]byte, error) {
	env := stubEnvelope{
		RequestID: requestID,
		Policy:    policy,
		Complete:  true,
	}
	return cbor.Marshal(&env)
}

// NewUninitializedStubRequest builds a structurally valid blob that fails the
// Initialized check, reproducing a half-signed request.
func NewUninitializedStubRequest(requestID string) ([]byte, error) {
	env := stubEnvelope{
		RequestID: requestID,
		Complete:  false,
	}
	return cbor.Marshal(&env)
}

// AddStubApproval returns a copy of the blob with the voter's approval share
// appended, mimicking the external signer's re-signing step.
func AddStubApproval(data []byte, voterID string) ([]byte, error) {
	var env stubEnvelope
	if err := cbor.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrMalformedRequest, err)
	}
	if !slices.Contains(env.Approvers, voterID) {
		env.Approvers = append(env.Approvers, voterID)
	}
	return cbor.Marshal(&env)
}
