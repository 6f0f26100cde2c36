package store

import (
	"context"
	"fmt"

	"github.com/roach88/shadowgov/internal/ir"
)

// SessionState is a stored session plus an analysis of its log, used to
// spot sessions that stopped without a clean end.
type SessionState struct {
	Session   Session
	Events    int
	Decisions int
	LastSeq   int64
	Forced    int  // decisions substituted after exhausted retries
	GameOver  bool // a game_over event was recorded
}

// GetSessionState loads a session and summarizes its log.
func (s *Store) GetSessionState(ctx context.Context, id string) (SessionState, error) {
	sess, err := s.ReadSession(ctx, id)
	if err != nil {
		return SessionState{}, fmt.Errorf("get session state: %w", err)
	}
	state := SessionState{Session: sess}

	var over int
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(MAX(seq), 0),
		       COALESCE(SUM(CASE WHEN game_event = 'game_over' THEN 1 ELSE 0 END), 0)
		FROM events WHERE session_id = ?
	`, id).Scan(&state.Events, &state.LastSeq, &over)
	if err != nil {
		return state, fmt.Errorf("get session state: count events: %w", err)
	}
	state.GameOver = over > 0

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN outcome = ? THEN 1 ELSE 0 END), 0)
		FROM decisions WHERE session_id = ?
	`, string(ir.OutcomeForced), id).Scan(&state.Decisions, &state.Forced)
	if err != nil {
		return state, fmt.Errorf("get session state: count decisions: %w", err)
	}
	return state, nil
}

// GetLastSeq returns the highest event seq stored for a session, or 0.
func (s *Store) GetLastSeq(ctx context.Context, sessionID string) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM events WHERE session_id = ?
	`, sessionID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	return seq, nil
}
