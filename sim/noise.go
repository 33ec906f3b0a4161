package sim

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// NoiseConfig parameterises the sequencing noise model.
type NoiseConfig struct {
	ReadDepth  int        // mean (poisson) or exact (fixed) reads per mutation; must be > 0
	DepthModel DepthModel // "fixed" (default) or "poisson"
}

// ObservedRow is one mutation's simulated sequencing readout.
type ObservedRow struct {
	ID            MutationID `json:"id"`
	Parent        MutationID `json:"parent"`
	TrueFrequency float64    `json:"true_frequency"`
	Depth         int        `json:"depth"`
	Reads         int        `json:"reads"`
	VAF           float64    `json:"vaf"`
}

// ObservedTable is a frequency table after sequencing noise. It has exactly
// one row per row of the true table, in the same order.
type ObservedTable struct {
	Rows []ObservedRow `json:"rows"`
}

// VAFs returns the observed VAF column in row order.
func (ot *ObservedTable) VAFs() []float64 {
	out := make([]float64, len(ot.Rows))
	for i, r := range ot.Rows {
		out[i] = r.VAF
	}
	return out
}

// ApplySequencingNoise draws, for each mutation in id order, a depth (fixed or
// Poisson) and a Binomial(depth, f) supporting read count. Mutations with no
// supporting reads are kept with VAF 0.
func ApplySequencingNoise(table *FrequencyTable, cfg NoiseConfig, rng *rand.Rand) (*ObservedTable, error) {
	if cfg.ReadDepth <= 0 {
		return nil, fmt.Errorf("%w: read_depth must be positive, got %d", ErrInvalidParameters, cfg.ReadDepth)
	}
	model := cfg.DepthModel
	if model == "" {
		model = DepthFixed
	}
	if !validDepthModels[model] {
		return nil, fmt.Errorf("%w: unknown read_depth_model %q", ErrInvalidParameters, model)
	}

	out := &ObservedTable{Rows: make([]ObservedRow, 0, len(table.Rows))}
	for _, row := range table.Rows {
		depth := cfg.ReadDepth
		if model == DepthPoisson {
			depth = int(distuv.Poisson{Lambda: float64(cfg.ReadDepth), Src: rng}.Rand())
		}
		reads := drawReads(depth, row.Frequency, rng)
		vaf := 0.0
		if depth > 0 {
			vaf = float64(reads) / float64(depth)
		}
		out.Rows = append(out.Rows, ObservedRow{
			ID:            row.ID,
			Parent:        row.Parent,
			TrueFrequency: row.Frequency,
			Depth:         depth,
			Reads:         reads,
			VAF:           vaf,
		})
	}
	return out, nil
}

// drawReads samples Binomial(depth, f). The degenerate cases are resolved
// without consuming draws.
func drawReads(depth int, f float64, rng *rand.Rand) int {
	switch {
	case depth <= 0 || f <= 0:
		return 0
	case f >= 1:
		return depth
	}
	return int(distuv.Binomial{N: float64(depth), P: f, Src: rng}.Rand())
}
