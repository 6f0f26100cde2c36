// Package harness runs YAML scenarios against the real engine and checks
// the resulting event trace.
//
// # Scenario Format
//
//	name: chaos_after_three_rejections
//	description: "Three failed votes force the top card onto the track"
//	seed: 7
//	players: 5
//	halt_after_round: 3
//	script:
//	  p1:
//	    vote: [nein, nein, nein]
//	assertions:
//	  - type: event_count
//	    event: chaos_enactment
//	    count: 1
//	  - type: final_state
//	    expect: { failures: 0, previous_president: "" }
//
// Seats are p1..pN. Each scripted player answers from per-kind queues; a
// missing or exhausted queue falls back to the first legal option, so a
// scenario only scripts the decisions it cares about.
//
// # Assertion Types
//
//   - event_contains: some event has the name, player and details given
//   - event_count: the named event appears exactly count times
//   - event_order: the named events first appear in the order given
//   - final_state: the final state snapshot has the expected fields
//   - winner: the game ended with the given team (and condition)
//
// An event's name is its game_event for system events, its action for
// action events, and "speech" for speech events.
//
// # Determinism
//
// Every run uses a fixed session id, logical timestamps anchored at
// testutil.Epoch and a fresh in-memory SQLite store, so the same scenario
// always produces a byte-identical trace. RunWithGolden compares that trace
// against a goldie fixture.
package harness
