package ir

import (
	"encoding/json"
	"fmt"
)

// EventType classifies an event record.
type EventType string

const (
	EventSystem EventType = "system"
	EventSpeech EventType = "speech"
	EventAction EventType = "action"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case EventSystem, EventSpeech, EventAction:
		return true
	}
	return false
}

// Event is one append-only record of a state change.
//
// Optional string fields are omitted from the canonical form when empty, and
// ActionDetails is omitted when nil. Seq, Round, Timestamp and Type are always
// present.
type Event struct {
	ID            string    `json:"id"`
	SessionID     string    `json:"session_id"`
	Seq           int64     `json:"seq"`
	Round         int       `json:"round"`
	Timestamp     string    `json:"timestamp"`
	Type          EventType `json:"type"`
	Player        string    `json:"player,omitempty"`
	Role          string    `json:"role,omitempty"`
	Action        string    `json:"action,omitempty"`
	ActionDetails Object    `json:"action_details,omitempty"`
	Speech        string    `json:"speech,omitempty"`
	Thought       string    `json:"thought,omitempty"`
	GameEvent     string    `json:"game_event,omitempty"`
	RawMessage    string    `json:"raw_message,omitempty"`
}

// body is the hashed content: every field except ID.
func (e Event) body() Object {
	obj := Object{
		"session_id": String(e.SessionID),
		"seq":        Int(e.Seq),
		"round":      Int(int64(e.Round)),
		"timestamp":  String(e.Timestamp),
		"type":       String(string(e.Type)),
	}
	putString(obj, "player", e.Player)
	putString(obj, "role", e.Role)
	putString(obj, "action", e.Action)
	putString(obj, "speech", e.Speech)
	putString(obj, "thought", e.Thought)
	putString(obj, "game_event", e.GameEvent)
	putString(obj, "raw_message", e.RawMessage)
	if e.ActionDetails != nil {
		obj["action_details"] = e.ActionDetails
	}
	return obj
}

// Object returns the full record, ID included.
func (e Event) Object() Object {
	obj := e.body()
	putString(obj, "id", e.ID)
	return obj
}

// Canonical returns the RFC 8785 encoding of the full record.
func (e Event) Canonical() ([]byte, error) {
	return Marshal(e.Object())
}

// MarshalJSON implements json.Marshaler using the canonical encoding.
func (e Event) MarshalJSON() ([]byte, error) {
	return e.Canonical()
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *Event) UnmarshalJSON(data []byte) error {
	parsed, err := ParseEvent(data)
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// ParseEvent decodes one canonical event record.
func ParseEvent(data []byte) (Event, error) {
	var obj Object
	if err := json.Unmarshal(data, &obj); err != nil {
		return Event{}, fmt.Errorf("parse event: %w", err)
	}
	r := reader{obj: obj}
	e := Event{
		ID:         r.str("id"),
		SessionID:  r.str("session_id"),
		Seq:        r.int("seq"),
		Round:      int(r.int("round")),
		Timestamp:  r.str("timestamp"),
		Type:       EventType(r.str("type")),
		Player:     r.str("player"),
		Role:       r.str("role"),
		Action:     r.str("action"),
		Speech:     r.str("speech"),
		Thought:    r.str("thought"),
		GameEvent:  r.str("game_event"),
		RawMessage: r.str("raw_message"),
	}
	if v, ok := obj["action_details"]; ok {
		details, isObj := v.(Object)
		if !isObj {
			r.fail("action_details", "object")
		}
		e.ActionDetails = details
	}
	if r.err != nil {
		return Event{}, fmt.Errorf("parse event: %w", r.err)
	}
	if !e.Type.Valid() {
		return Event{}, fmt.Errorf("parse event: unknown type %q", e.Type)
	}
	return e, nil
}

// DecisionOutcome records what the engine did with one provider attempt.
type DecisionOutcome string

const (
	OutcomeAccepted DecisionOutcome = "accepted"
	OutcomeIllegal  DecisionOutcome = "illegal"
	OutcomeProtocol DecisionOutcome = "protocol"
	OutcomeTimeout  DecisionOutcome = "timeout"
	OutcomeForced   DecisionOutcome = "forced"
)

// Decision is one provider attempt, accepted or not. The ordered decision
// log of a session is enough to replay it exactly. Error holds the
// provider's own error text when it returned one; Reason explains a
// rejection or a forced default.
type Decision struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Seq       int64           `json:"seq"`
	Round     int             `json:"round"`
	Player    string          `json:"player"`
	Kind      string          `json:"kind"`
	Attempt   int             `json:"attempt"`
	Choice    string          `json:"choice,omitempty"`
	Speech    string          `json:"speech,omitempty"`
	Thought   string          `json:"thought,omitempty"`
	Raw       string          `json:"raw,omitempty"`
	Error     string          `json:"error,omitempty"`
	Outcome   DecisionOutcome `json:"outcome"`
	Reason    string          `json:"reason,omitempty"`
}

func (d Decision) body() Object {
	obj := Object{
		"session_id": String(d.SessionID),
		"seq":        Int(d.Seq),
		"round":      Int(int64(d.Round)),
		"player":     String(d.Player),
		"kind":       String(d.Kind),
		"attempt":    Int(int64(d.Attempt)),
		"outcome":    String(string(d.Outcome)),
	}
	putString(obj, "choice", d.Choice)
	putString(obj, "speech", d.Speech)
	putString(obj, "thought", d.Thought)
	putString(obj, "raw", d.Raw)
	putString(obj, "error", d.Error)
	putString(obj, "reason", d.Reason)
	return obj
}

// Canonical returns the RFC 8785 encoding of the full record.
func (d Decision) Canonical() ([]byte, error) {
	obj := d.body()
	putString(obj, "id", d.ID)
	return Marshal(obj)
}

// MarshalJSON implements json.Marshaler using the canonical encoding.
func (d Decision) MarshalJSON() ([]byte, error) {
	return d.Canonical()
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Decision) UnmarshalJSON(data []byte) error {
	parsed, err := ParseDecision(data)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// ParseDecision decodes one canonical decision record.
func ParseDecision(data []byte) (Decision, error) {
	var obj Object
	if err := json.Unmarshal(data, &obj); err != nil {
		return Decision{}, fmt.Errorf("parse decision: %w", err)
	}
	r := reader{obj: obj}
	d := Decision{
		ID:        r.str("id"),
		SessionID: r.str("session_id"),
		Seq:       r.int("seq"),
		Round:     int(r.int("round")),
		Player:    r.str("player"),
		Kind:      r.str("kind"),
		Attempt:   int(r.int("attempt")),
		Choice:    r.str("choice"),
		Speech:    r.str("speech"),
		Thought:   r.str("thought"),
		Raw:       r.str("raw"),
		Error:     r.str("error"),
		Outcome:   DecisionOutcome(r.str("outcome")),
		Reason:    r.str("reason"),
	}
	if r.err != nil {
		return Decision{}, fmt.Errorf("parse decision: %w", r.err)
	}
	return d, nil
}

func putString(obj Object, key, val string) {
	if val != "" {
		obj[key] = String(val)
	}
}

// reader pulls typed fields out of an Object, keeping the first type error.
type reader struct {
	obj Object
	err error
}

func (r *reader) str(key string) string {
	v, ok := r.obj[key]
	if !ok {
		return ""
	}
	s, ok := v.(String)
	if !ok {
		r.fail(key, "string")
		return ""
	}
	return string(s)
}

func (r *reader) int(key string) int64 {
	v, ok := r.obj[key]
	if !ok {
		return 0
	}
	n, ok := v.(Int)
	if !ok {
		r.fail(key, "int")
		return 0
	}
	return int64(n)
}

func (r *reader) fail(key, want string) {
	if r.err == nil {
		r.err = fmt.Errorf("field %q: expected %s", key, want)
	}
}
