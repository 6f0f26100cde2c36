package ir

// Version constants for the event record format and engine.
const (
	// RecordVersion is the event/decision record schema version.
	RecordVersion = "1"

	// EngineVersion is the shadowgov engine version.
	EngineVersion = "0.1.0"
)
