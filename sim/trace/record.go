// Package trace provides per-generation growth recording for tumour runs.
// This package has no dependencies on sim/ — it stores pure data types.
package trace

// GenerationRecord captures the population dynamics of one generation.
type GenerationRecord struct {
	Generation   int
	Population   int // occupied sites after the death phase
	Divisions    int
	Deaths       int
	NewMutations int // lineage records appended this generation
	Advantageous int // occupied sites carrying the advantageous clone
}

// AdvantageousRecord captures the advantageous-mutation event.
type AdvantageousRecord struct {
	Generation int
	Row        int
	Col        int
	Parent     int64 // handle the chosen cell carried before the event
	MutationID int64 // advantageous record created by the event
	Skipped    bool  // lattice was empty; no record was created
}
