package ir

// Version constants for the engine and the journal schema.
const (
	// EngineVersion is the StateMQ engine version.
	EngineVersion = "0.3.0"

	// JournalVersion is the journal record format version.
	JournalVersion = "1"
)
