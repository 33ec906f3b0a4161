package trace

import "testing"

func TestSummarize_NilTrace_ZeroValues(t *testing.T) {
	summary := Summarize(nil)
	if *summary != (TraceSummary{}) {
		t.Errorf("expected zero summary, got %+v", *summary)
	}
}

func TestSummarize_EmptyTrace_ZeroValues(t *testing.T) {
	// GIVEN an empty trace
	gt := NewGrowthTrace(TraceLevelGenerations)

	// WHEN summarized
	summary := Summarize(gt)

	// THEN all counts are zero
	if summary.Generations != 0 || summary.PeakPopulation != 0 || summary.FinalPopulation != 0 {
		t.Errorf("expected zero counts, got %+v", *summary)
	}
	if summary.AdvantageousFired {
		t.Error("expected no advantageous event")
	}
}

func TestSummarize_PopulatedTrace_CorrectTotals(t *testing.T) {
	// GIVEN a trace where the population grows then shrinks
	gt := NewGrowthTrace(TraceLevelGenerations)
	gt.RecordGeneration(GenerationRecord{Generation: 1, Population: 2, Divisions: 1, NewMutations: 1})
	gt.RecordGeneration(GenerationRecord{Generation: 2, Population: 4, Divisions: 2, NewMutations: 2})
	gt.RecordGeneration(GenerationRecord{Generation: 3, Population: 3, Divisions: 1, Deaths: 2, Advantageous: 1})
	gt.RecordAdvantageous(AdvantageousRecord{Generation: 3, MutationID: 5})

	// WHEN summarized
	summary := Summarize(gt)

	// THEN totals and peak match
	if summary.Generations != 3 {
		t.Errorf("expected 3 generations, got %d", summary.Generations)
	}
	if summary.TotalDivisions != 4 {
		t.Errorf("expected 4 divisions, got %d", summary.TotalDivisions)
	}
	if summary.TotalDeaths != 2 {
		t.Errorf("expected 2 deaths, got %d", summary.TotalDeaths)
	}
	if summary.TotalMutations != 3 {
		t.Errorf("expected 3 mutations, got %d", summary.TotalMutations)
	}
	if summary.PeakPopulation != 4 || summary.PeakGeneration != 2 {
		t.Errorf("expected peak 4 at generation 2, got %d at %d", summary.PeakPopulation, summary.PeakGeneration)
	}
	if summary.FinalPopulation != 3 {
		t.Errorf("expected final population 3, got %d", summary.FinalPopulation)
	}
	if !summary.AdvantageousFired || summary.AdvantageousFinal != 1 {
		t.Errorf("expected fired advantageous event with 1 cell, got %+v", *summary)
	}
	if summary.ExtinctionGeneration != 0 {
		t.Errorf("expected no extinction, got %d", summary.ExtinctionGeneration)
	}
}

func TestSummarize_Extinction_FirstEmptyGeneration(t *testing.T) {
	gt := NewGrowthTrace(TraceLevelGenerations)
	gt.RecordGeneration(GenerationRecord{Generation: 1, Population: 0, Deaths: 1})
	gt.RecordGeneration(GenerationRecord{Generation: 2, Population: 0})
	gt.RecordAdvantageous(AdvantageousRecord{Generation: 2, Skipped: true})

	summary := Summarize(gt)

	if summary.ExtinctionGeneration != 1 {
		t.Errorf("expected extinction at generation 1, got %d", summary.ExtinctionGeneration)
	}
	if summary.AdvantageousFired {
		t.Error("skipped event must not count as fired")
	}
}
