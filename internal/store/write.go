package store

import (
	"context"
	"fmt"

	"github.com/roach88/shadowgov/internal/ir"
)

// SessionStatus is the lifecycle of a stored session.
type SessionStatus string

const (
	StatusRunning  SessionStatus = "running"
	StatusFinished SessionStatus = "finished"
	StatusHalted   SessionStatus = "halted"
	StatusAborted  SessionStatus = "aborted"
)

// Session is one row of the sessions table.
type Session struct {
	ID            string
	Seed          int64
	Settings      string // canonical JSON, see engine.MarshalSettings
	EngineVersion string
	RecordVersion string
	StartedAt     string
	Status        SessionStatus
	Winner        string
	Condition     string
	Rounds        int
	TraceHash     string
}

// Summary is written when a session stops.
type Summary struct {
	Status    SessionStatus
	Winner    string
	Condition string
	Rounds    int
}

// CreateSession inserts the session row. It must exist before any event or
// decision for the session is written (foreign key constraint).
// Uses ON CONFLICT(id) DO NOTHING for idempotency.
func (s *Store) CreateSession(ctx context.Context, sess Session) error {
	if sess.EngineVersion == "" {
		sess.EngineVersion = ir.EngineVersion
	}
	if sess.RecordVersion == "" {
		sess.RecordVersion = ir.RecordVersion
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions
		(id, seed, settings, engine_version, record_version, started_at, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		sess.ID,
		sess.Seed,
		sess.Settings,
		sess.EngineVersion,
		sess.RecordVersion,
		sess.StartedAt,
		string(StatusRunning),
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// FinishSession records how a session stopped and the hash of its stored
// trace.
func (s *Store) FinishSession(ctx context.Context, id string, sum Summary) error {
	events, err := s.ReadEvents(ctx, id)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	hash, err := ir.TraceHash(events)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET status = ?, winner = ?, condition = ?, rounds = ?, trace_hash = ?
		WHERE id = ?
	`,
		string(sum.Status),
		sum.Winner,
		sum.Condition,
		sum.Rounds,
		hash,
		id,
	)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish session: %w: %s", ErrSessionNotFound, id)
	}
	return nil
}

// Append inserts an event. Implements engine.Sink.
// Uses ON CONFLICT DO NOTHING for idempotency - re-appending the same seq is
// silently ignored.
func (s *Store) Append(ctx context.Context, ev ir.Event) error {
	body, err := marshalEvent(ev)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events
		(id, session_id, seq, round, type, player, game_event, body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO NOTHING
	`,
		ev.ID,
		ev.SessionID,
		ev.Seq,
		ev.Round,
		string(ev.Type),
		ev.Player,
		ev.GameEvent,
		body,
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

// RecordDecision inserts a decision. Implements engine.DecisionRecorder.
func (s *Store) RecordDecision(ctx context.Context, d ir.Decision) error {
	body, err := marshalDecision(d)
	if err != nil {
		return fmt.Errorf("record decision: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO decisions
		(id, session_id, seq, round, player, kind, outcome, body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, seq) DO NOTHING
	`,
		d.ID,
		d.SessionID,
		d.Seq,
		d.Round,
		d.Player,
		d.Kind,
		string(d.Outcome),
		body,
	)
	if err != nil {
		return fmt.Errorf("record decision: %w", err)
	}
	return nil
}
