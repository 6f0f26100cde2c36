package testutil

// DefaultSessionID is used when a fixed generator is given no id.
const DefaultSessionID = "test-session"

// FixedSessionGenerator returns the same session id every time.
//
// Unlike engine.FixedGenerator, which hands out ids in sequence and panics
// when they run out, this generator never runs dry. Re-running a scenario
// with it yields byte-identical event logs.
//
// Implements engine.SessionIDGenerator.
type FixedSessionGenerator struct {
	id string
}

// NewFixedSessionGenerator returns a generator for id, or DefaultSessionID
// when id is empty.
func NewFixedSessionGenerator(id string) *FixedSessionGenerator {
	if id == "" {
		id = DefaultSessionID
	}
	return &FixedSessionGenerator{id: id}
}

// Generate returns the fixed id.
func (g *FixedSessionGenerator) Generate() string {
	return g.id
}
