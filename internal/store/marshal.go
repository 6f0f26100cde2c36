package store

import (
	"fmt"

	"github.com/roach88/shadowgov/internal/ir"
)

// marshalEvent converts an event to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON for deterministic serialization.
func marshalEvent(ev ir.Event) (string, error) {
	data, err := ev.Canonical()
	if err != nil {
		return "", fmt.Errorf("marshal event %d: %w", ev.Seq, err)
	}
	return string(data), nil
}

// unmarshalEvent parses a stored event body. Integers go through
// json.Number, so seq and round never lose precision.
func unmarshalEvent(body string) (ir.Event, error) {
	ev, err := ir.ParseEvent([]byte(body))
	if err != nil {
		return ir.Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return ev, nil
}

func marshalDecision(d ir.Decision) (string, error) {
	data, err := d.Canonical()
	if err != nil {
		return "", fmt.Errorf("marshal decision %d: %w", d.Seq, err)
	}
	return string(data), nil
}

func unmarshalDecision(body string) (ir.Decision, error) {
	d, err := ir.ParseDecision([]byte(body))
	if err != nil {
		return ir.Decision{}, fmt.Errorf("unmarshal decision: %w", err)
	}
	return d, nil
}
