// Package ir defines the canonical record types for shadowgov sessions:
// the append-only Event log and the Decision log used for replay.
//
// All other internal packages may import ir; ir imports nothing internal.
//
// Key constraints:
//   - no float types anywhere; numbers are int64
//   - records serialize as RFC 8785 canonical JSON, so identical runs
//     produce byte-identical output
//   - JSON keys use snake_case
//   - ordering comes from the logical seq; timestamps are derived from it
package ir
