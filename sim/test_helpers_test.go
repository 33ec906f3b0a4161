package sim

import "testing"

// testParams returns DefaultParameters with mods applied.
func testParams(mods ...func(*Parameters)) Parameters {
	p := DefaultParameters()
	for _, mod := range mods {
		mod(&p)
	}
	return p
}

// mustSimulator builds a simulator or fails the test.
func mustSimulator(t *testing.T, p Parameters, seed int64) *Simulator {
	t.Helper()
	s, err := NewSimulator(p, NewSimulationKey(seed))
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	return s
}

// growingParams is a mid-sized configuration with every process active.
func growingParams(p *Parameters) {
	p.MatrixSize = 20
	p.NumberOfGenerations = 12
	p.DivisionProbability = 0.7
	p.AdvMutantDivisionProbability = 0.9
	p.DeathProbability = 0.1
	p.AdvMutantDeathProbability = 0.05
	p.MutationProbability = 0.6
	p.AdvMutantMutationProbability = 0.8
	p.NumberOfMutationsPerDivision = 2
	p.AdvMutationWaitTime = 4
	p.NumberOfInitialMutations = 2
}
