package testutil

// FixedRunID generates the same journal run id every time.
//
// Golden traces embed the run id, so tests pin it to keep output
// byte-identical across runs.
//
// Thread-safety: FixedRunID is stateless and safe for concurrent use.
type FixedRunID struct {
	id string
}

// NewFixedRunID creates a generator that always returns id.
// If id is empty, Generate returns "test-run-default".
func NewFixedRunID(id string) *FixedRunID {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunID{id: id}
}

// Generate returns the fixed run id.
func (g *FixedRunID) Generate() string {
	return g.id
}
