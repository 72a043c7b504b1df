// Package store implements the durable policy record store on SQLite.
//
// It persists the three policy entity kinds (pending policies, voter
// decisions, committed policies) plus the append-only audit log, and
// implements interfaces.PolicyStore. The database is opened through gorm with
// the pure-Go sqlite driver, WAL journaling, and a busy timeout so concurrent
// request handlers block briefly instead of failing on lock contention.
//
// Approval counts are derived by count query over the decision set; no tally
// column exists that could drift from the decisions backing it.
//
// An in-memory DSN (":memory:") is supported for tests.
package store
