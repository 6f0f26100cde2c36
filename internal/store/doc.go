// Package store provides SQLite-backed durable storage for session logs.
//
// The store is append-only:
//   - Sessions: seed, canonical settings and the final outcome
//   - Events: every state change, in seq order
//   - Decisions: every provider attempt, the replay source
//
// # Ordering
//
// All reads order by seq ASC. Seq comes from the session's logical clock,
// never a timestamp, so reads are identical across replays.
//
// # Idempotency
//
// Writes use ON CONFLICT DO NOTHING on (session_id, seq). Re-appending a
// record is a no-op, not an error.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Events and decisions need their session row
//
// Record bodies are canonical JSON from internal/ir, so the stored text
// hashes to the record id.
package store
