/*
Package lifecycle implements the policy lifecycle manager, the state machine
at the center of the policy governance system.

A pending policy tracks an opaque, externally-signed policy change request
through a multi-party voting process. The manager owns every state
transition: creation, voting, revocation, cancellation, and commit. It
depends on the policy record store for durability and treats the signed
request codec as a pure function library over the opaque blob.

# State machine

	pending --(approvals >= threshold)--> approved
	approved --(approvals < threshold after revoke)--> pending
	pending|approved --(cancel)--> cancelled [terminal]
	pending|approved --(commit)--> committed [terminal]

Once a policy is committed or cancelled it is immutable; votes, revocations,
and further cancels are rejected with ErrInvalidState.

# Concurrency

All mutating operations on the same policy id are serialized by a per-id
mutex spanning the full read-check-write sequence, so two concurrent
approvals cannot race to overwrite the signed request bytes and a revoke
cannot race a commit on status. Operations on different policy ids proceed
without coordination; each pending policy is an independent unit of
consistency.

# Soft failures

The manager favors forward progress of the approval workflow over strict
transactional purity of the signed-artifact handling:

  - A failed approval-share removal during revoke is logged and audited, but
    the tally-side revocation still occurs. The local vote count remains
    authoritative for gating commit.
  - A missing external signature at commit is logged; the commit still
    succeeds. Downstream consumers are expected to reject unsigned policies.
  - Payload extraction failures at commit are logged; the status transition
    to committed proceeds so an admin has unambiguous confirmation the vote
    concluded, even if artifact extraction degraded.

All soft failures surface in the audit trail through the entry's note field.

# Idempotence

Creation is idempotent: the policy id is derived from the signed request's
unique identifier, so resubmitting byte-identical request blobs returns the
existing record. Vote, revoke, commit, and cancel are deliberately not
idempotent; repeats are rejected via the status and duplicate checks.
*/
package lifecycle
