package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for an algorithm change.
const (
	DomainEvent    = "shadowgov/event/v1"
	DomainDecision = "shadowgov/decision/v1"
	DomainTrace    = "shadowgov/trace/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EventID computes the content-addressed ID of an event. The ID field itself
// is excluded from the hashed content.
func EventID(e Event) (string, error) {
	obj := e.body()
	canonical, err := Marshal(obj)
	if err != nil {
		return "", fmt.Errorf("EventID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainEvent, canonical), nil
}

// DecisionID computes the content-addressed ID of a decision record.
func DecisionID(d Decision) (string, error) {
	obj := d.body()
	canonical, err := Marshal(obj)
	if err != nil {
		return "", fmt.Errorf("DecisionID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainDecision, canonical), nil
}

// TraceHash folds an ordered event sequence into one digest. Two runs with
// the same hash emitted byte-identical records in the same order.
func TraceHash(events []Event) (string, error) {
	h := sha256.New()
	h.Write([]byte(DomainTrace))
	h.Write([]byte{0x00})
	for i, e := range events {
		line, err := e.Canonical()
		if err != nil {
			return "", fmt.Errorf("TraceHash: event %d: %w", i, err)
		}
		h.Write(line)
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
