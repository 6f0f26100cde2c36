package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/shadowgov/internal/ir"
)

const sessionColumns = `id, seed, settings, engine_version, record_version, started_at,
	status, winner, condition, rounds, trace_hash`

// ReadSession retrieves one session row.
// Returns ErrSessionNotFound if it does not exist.
func (s *Store) ReadSession(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, err
}

// ListSessions returns every session ordered by id. UUIDv7 ids sort by
// creation time.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM sessions ORDER BY id COLLATE BINARY ASC`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ReadEvents returns a session's events ordered by seq.
//
// Returns an empty slice (not nil) if the session has no events.
func (s *Store) ReadEvents(ctx context.Context, sessionID string) ([]ir.Event, error) {
	return s.ReadEventsFiltered(ctx, sessionID, EventFilter{})
}

// EventFilter narrows ReadEventsFiltered. Empty fields match everything.
type EventFilter struct {
	Player    string
	Type      ir.EventType
	GameEvent string
}

// ReadEventsFiltered returns the session's events matching f, ordered by seq.
func (s *Store) ReadEventsFiltered(ctx context.Context, sessionID string, f EventFilter) ([]ir.Event, error) {
	where := []string{"session_id = ?"}
	args := []any{sessionID}
	if f.Player != "" {
		where = append(where, "player = ?")
		args = append(args, f.Player)
	}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(f.Type))
	}
	if f.GameEvent != "" {
		where = append(where, "game_event = ?")
		args = append(args, f.GameEvent)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT body FROM events
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY seq ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []ir.Event{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev, err := unmarshalEvent(body)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// ReadDecisions returns a session's decision log ordered by seq. This is
// the input to agent.NewRecorded.
func (s *Store) ReadDecisions(ctx context.Context, sessionID string) ([]ir.Decision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT body FROM decisions
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query decisions: %w", err)
	}
	defer rows.Close()

	decisions := []ir.Decision{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		d, err := unmarshalDecision(body)
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decisions: %w", err)
	}
	return decisions, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var sess Session
	var status string
	err := row.Scan(
		&sess.ID,
		&sess.Seed,
		&sess.Settings,
		&sess.EngineVersion,
		&sess.RecordVersion,
		&sess.StartedAt,
		&status,
		&sess.Winner,
		&sess.Condition,
		&sess.Rounds,
		&sess.TraceHash,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, err
		}
		return Session{}, fmt.Errorf("scan session: %w", err)
	}
	sess.Status = SessionStatus(status)
	return sess, nil
}
