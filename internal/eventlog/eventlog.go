// Package eventlog holds the non-database event sinks: an append-only JSONL
// writer and an in-memory log.
package eventlog

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/roach88/shadowgov/internal/ir"
)

// JSONL writes one canonical event record per line. Two identical sessions
// produce byte-identical files.
type JSONL struct {
	mu sync.Mutex
	w  io.Writer
}

// NewJSONL wraps w. The caller owns w and closes it.
func NewJSONL(w io.Writer) *JSONL {
	return &JSONL{w: w}
}

// Append implements engine.Sink.
func (j *JSONL) Append(_ context.Context, ev ir.Event) error {
	line, err := ev.Canonical()
	if err != nil {
		return fmt.Errorf("jsonl: %w", err)
	}
	line = append(line, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.w.Write(line); err != nil {
		return fmt.Errorf("jsonl: write event %d: %w", ev.Seq, err)
	}
	return nil
}

// ReadJSONL parses a JSONL event log. Blank lines are skipped.
func ReadJSONL(r io.Reader) ([]ir.Event, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var events []ir.Event
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		ev, err := ir.ParseEvent(sc.Bytes())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		events = append(events, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read jsonl: %w", err)
	}
	return events, nil
}

// Memory keeps events and decisions in memory. It implements engine.Sink
// and engine.DecisionRecorder.
type Memory struct {
	mu        sync.Mutex
	events    []ir.Event
	decisions []ir.Decision
}

// NewMemory creates an empty log.
func NewMemory() *Memory {
	return &Memory{}
}

// Append implements engine.Sink.
func (m *Memory) Append(_ context.Context, ev ir.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

// RecordDecision implements engine.DecisionRecorder.
func (m *Memory) RecordDecision(_ context.Context, d ir.Decision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions = append(m.decisions, d)
	return nil
}

// Events returns a copy of the events in order.
func (m *Memory) Events() []ir.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ir.Event(nil), m.events...)
}

// Decisions returns a copy of the decisions in order.
func (m *Memory) Decisions() []ir.Decision {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ir.Decision(nil), m.decisions...)
}
