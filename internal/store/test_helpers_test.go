package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/roach88/shadowgov/internal/ir"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSession inserts a session row so events can reference it.
func createTestSession(t *testing.T, s *Store, id string) {
	t.Helper()
	err := s.CreateSession(context.Background(), Session{
		ID:        id,
		Seed:      42,
		Settings:  `{"seed":42}`,
		StartedAt: "2024-01-01T00:00:00.000Z",
	})
	if err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
}

// createTestEvent creates a system event with its content-addressed id.
func createTestEvent(sessionID string, seq int64, player, gameEvent string) ir.Event {
	ev := ir.Event{
		SessionID:     sessionID,
		Seq:           seq,
		Round:         1,
		Timestamp:     fmt.Sprintf("2024-01-01T00:00:00.%03dZ", seq),
		Type:          ir.EventSystem,
		Player:        player,
		GameEvent:     gameEvent,
		ActionDetails: ir.Object{"n": ir.Int(seq)},
	}
	ev.ID = mustEventID(ev)
	return ev
}

// createTestDecision creates an accepted vote decision.
func createTestDecision(sessionID string, seq int64, player string, outcome ir.DecisionOutcome) ir.Decision {
	d := ir.Decision{
		SessionID: sessionID,
		Seq:       seq,
		Round:     1,
		Player:    player,
		Kind:      "vote",
		Choice:    "ja",
		Outcome:   outcome,
	}
	id, err := ir.DecisionID(d)
	if err != nil {
		panic(err)
	}
	d.ID = id
	return d
}

// mustEventID is EventID for fixtures known to hash.
func mustEventID(e ir.Event) string {
	id, err := ir.EventID(e)
	if err != nil {
		panic(err)
	}
	return id
}
