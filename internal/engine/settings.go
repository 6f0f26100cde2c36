package engine

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/shadowgov/internal/game"
	"github.com/roach88/shadowgov/internal/ir"
)

// settingsRecord is the stored form of Settings.
type settingsRecord struct {
	SessionID  string      `json:"session_id"`
	Seats      []game.Seat `json:"seats"`
	Seed       int64       `json:"seed"`
	Rules      game.Rules  `json:"rules"`
	TimeoutMS  int64       `json:"timeout_ms"`
	Retries    int         `json:"retries"`
	Discussion bool        `json:"discussion"`
	StartTime  string      `json:"start_time"`
}

// MarshalSettings encodes s as canonical JSON. Together with the decision
// log it is everything a replay needs.
func MarshalSettings(s Settings) ([]byte, error) {
	raw, err := json.Marshal(settingsRecord{
		SessionID:  s.SessionID,
		Seats:      s.Seats,
		Seed:       s.Seed,
		Rules:      s.Rules,
		TimeoutMS:  s.Timeout.Milliseconds(),
		Retries:    s.Retries,
		Discussion: s.Discussion,
		StartTime:  s.StartTime.UTC().Format(TimestampLayout),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}
	var obj ir.Object
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("marshal settings: %w", err)
	}
	return ir.Marshal(obj)
}

// UnmarshalSettings decodes what MarshalSettings produced.
func UnmarshalSettings(data []byte) (Settings, error) {
	var rec settingsRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return Settings{}, fmt.Errorf("unmarshal settings: %w", err)
	}
	start, err := time.Parse(TimestampLayout, rec.StartTime)
	if err != nil {
		return Settings{}, fmt.Errorf("unmarshal settings: start_time: %w", err)
	}
	return Settings{
		SessionID:  rec.SessionID,
		Seats:      rec.Seats,
		Seed:       rec.Seed,
		Rules:      rec.Rules,
		Timeout:    time.Duration(rec.TimeoutMS) * time.Millisecond,
		Retries:    rec.Retries,
		Discussion: rec.Discussion,
		StartTime:  start,
	}, nil
}
