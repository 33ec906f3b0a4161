package trace

// TraceLevel controls the verbosity of growth tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelGenerations captures one record per generation plus the
	// advantageous event.
	TraceLevelGenerations TraceLevel = "generations"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:        true,
	TraceLevelGenerations: true,
	"":                    true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// GrowthTrace collects per-generation records during a run.
type GrowthTrace struct {
	Level        TraceLevel
	Generations  []GenerationRecord
	Advantageous *AdvantageousRecord
}

// NewGrowthTrace creates a GrowthTrace ready for recording.
func NewGrowthTrace(level TraceLevel) *GrowthTrace {
	return &GrowthTrace{
		Level:       level,
		Generations: make([]GenerationRecord, 0),
	}
}

// Enabled reports whether records should be collected. Safe on nil.
func (gt *GrowthTrace) Enabled() bool {
	return gt != nil && gt.Level == TraceLevelGenerations
}

// RecordGeneration appends one generation's record.
func (gt *GrowthTrace) RecordGeneration(record GenerationRecord) {
	gt.Generations = append(gt.Generations, record)
}

// RecordAdvantageous stores the advantageous event. Only the first call is kept.
func (gt *GrowthTrace) RecordAdvantageous(record AdvantageousRecord) {
	if gt.Advantageous == nil {
		r := record
		gt.Advantageous = &r
	}
}
