package trace

// TraceSummary aggregates statistics from a GrowthTrace.
type TraceSummary struct {
	Generations          int
	FinalPopulation      int
	PeakPopulation       int
	PeakGeneration       int
	TotalDivisions       int
	TotalDeaths          int
	TotalMutations       int
	ExtinctionGeneration int // first generation ending with no cells; 0 if never
	AdvantageousFired    bool
	AdvantageousFinal    int // advantageous cells after the last recorded generation
}

// Summarize computes aggregate statistics from a GrowthTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(gt *GrowthTrace) *TraceSummary {
	summary := &TraceSummary{}
	if gt == nil {
		return summary
	}

	summary.Generations = len(gt.Generations)
	for _, g := range gt.Generations {
		summary.TotalDivisions += g.Divisions
		summary.TotalDeaths += g.Deaths
		summary.TotalMutations += g.NewMutations
		if g.Population > summary.PeakPopulation {
			summary.PeakPopulation = g.Population
			summary.PeakGeneration = g.Generation
		}
		if g.Population == 0 && summary.ExtinctionGeneration == 0 {
			summary.ExtinctionGeneration = g.Generation
		}
	}
	if n := len(gt.Generations); n > 0 {
		summary.FinalPopulation = gt.Generations[n-1].Population
		summary.AdvantageousFinal = gt.Generations[n-1].Advantageous
	}
	summary.AdvantageousFired = gt.Advantageous != nil && !gt.Advantageous.Skipped

	return summary
}
