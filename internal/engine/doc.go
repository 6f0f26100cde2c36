// Package engine runs one hidden-role session: it owns the game state,
// asks providers for decisions, and records everything as events.
//
// ARCHITECTURE:
//
// Single-Writer Loop:
// Machine.Run processes the session in one goroutine. Only the loop
// mutates game.State, and only through game transitions, so the event log
// is a total order of every change.
//
// Decision Flow:
//  1. game.Pending names the player who owes a decision
//  2. game.Legal builds the schema of legal options
//  3. The provider answers under a timeout (its own goroutine)
//  4. The answer is checked; recoverable errors re-prompt the provider
//  5. After the retry budget a default choice is forced
//  6. The transition is applied, invariants are checked, events emitted
//
// Determinism:
// Every event is stamped with a seq from Clock.Next and a logical
// timestamp derived from it. The session RNG is seeded once and consumed
// only by role assignment and deck shuffles. The same seed, settings and
// decision log reproduce the same trace byte for byte.
//
// Errors:
// Illegal actions, protocol violations and timeouts are absorbed. A
// broken invariant is a StateCorruption and aborts the session.
package engine
