package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tumour-sim/casim/sim/internal/testutil"
)

func TestDefaultParameters_Valid(t *testing.T) {
	p := DefaultParameters()
	require.NoError(t, p.Validate())
	assert.Equal(t, 10, p.MatrixSize)
	assert.Equal(t, 2, p.NumberOfGenerations)
	assert.Equal(t, 0.8, p.MutationProbability)
	assert.Equal(t, MultiplicitySingle, p.Multiplicity())
	assert.Equal(t, DepthFixed, p.DepthModel())
}

func TestParameters_Validate_RejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Parameters)
	}{
		{"zero matrix", func(p *Parameters) { p.MatrixSize = 0 }},
		{"negative matrix", func(p *Parameters) { p.MatrixSize = -3 }},
		{"zero generations", func(p *Parameters) { p.NumberOfGenerations = 0 }},
		{"division above one", func(p *Parameters) { p.DivisionProbability = 1.5 }},
		{"adv division negative", func(p *Parameters) { p.AdvMutantDivisionProbability = -0.1 }},
		{"death NaN", func(p *Parameters) { p.DeathProbability = math.NaN() }},
		{"adv death above one", func(p *Parameters) { p.AdvMutantDeathProbability = 2 }},
		{"mutation negative", func(p *Parameters) { p.MutationProbability = -1 }},
		{"adv mutation above one", func(p *Parameters) { p.AdvMutantMutationProbability = 1.01 }},
		{"negative mutations per division", func(p *Parameters) { p.NumberOfMutationsPerDivision = -1 }},
		{"zero wait time", func(p *Parameters) { p.AdvMutationWaitTime = 0 }},
		{"negative initial mutations", func(p *Parameters) { p.NumberOfInitialMutations = -2 }},
		{"unknown multiplicity", func(p *Parameters) { p.TumourMultiplicity = "triple" }},
		{"double tumour on 1x1", func(p *Parameters) { p.MatrixSize = 1; p.TumourMultiplicity = MultiplicityDouble }},
		{"sampling fraction above one", func(p *Parameters) { p.SamplingFraction = 1.2 }},
		{"zero read depth", func(p *Parameters) { p.ReadDepth = 0 }},
		{"unknown depth model", func(p *Parameters) { p.ReadDepthModel = "gamma" }},
		{"malformed position", func(p *Parameters) { p.SamplingPositions = [][]int{{1}} }},
		{"position outside grid", func(p *Parameters) { p.SamplingPositions = [][]int{{0, 10}} }},
		{"negative position", func(p *Parameters) { p.SamplingPositions = [][]int{{-1, 3}} }},
		{"duplicate position", func(p *Parameters) { p.SamplingPositions = [][]int{{2, 3}, {2, 3}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testParams(tt.mod)
			err := p.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidParameters)
		})
	}
}

func TestParameters_Validate_AcceptsBoundaries(t *testing.T) {
	p := testParams(func(p *Parameters) {
		p.DivisionProbability = 0
		p.DeathProbability = 1
		p.NumberOfMutationsPerDivision = 0
		p.NumberOfInitialMutations = 0
		p.AdvMutationWaitTime = 1
		p.SamplingFraction = 1
		p.SamplingPositions = [][]int{{0, 0}, {9, 9}}
		p.TumourMultiplicity = MultiplicityDouble
		p.ReadDepthModel = DepthPoisson
	})
	assert.NoError(t, p.Validate())
	assert.Equal(t, []Coord{{0, 0}, {9, 9}}, p.Positions())
}

func TestLoadParameters_ValidYAML_OverridesDefaults(t *testing.T) {
	path := testutil.WriteTempFile(t, "params.yaml", `
matrix_size: 20
number_of_generations: 10
division_probability: 0.5
adv_mutant_division_probability: 0.3
death_probability: 0.1
adv_mutant_death_probability: 0.4
mutation_probability: 0.2
adv_mutant_mutation_probability: 0.8
number_of_mutations_per_division: 10
adv_mutation_wait_time: 30000
number_of_initial_mutations: 2
tumour_multiplicity: double
sampling_fraction: 0.1
sampling_positions:
  - [3, 4]
  - [10, 12]
read_depth: 200
read_depth_model: poisson
`)
	p, err := LoadParameters(path)
	require.NoError(t, err)
	assert.Equal(t, 20, p.MatrixSize)
	assert.Equal(t, 10, p.NumberOfGenerations)
	assert.Equal(t, 0.5, p.DivisionProbability)
	assert.Equal(t, 0.3, p.AdvMutantDivisionProbability)
	assert.Equal(t, 0.1, p.DeathProbability)
	assert.Equal(t, 0.4, p.AdvMutantDeathProbability)
	assert.Equal(t, 0.2, p.MutationProbability)
	assert.Equal(t, 0.8, p.AdvMutantMutationProbability)
	assert.Equal(t, 10, p.NumberOfMutationsPerDivision)
	assert.Equal(t, 30000, p.AdvMutationWaitTime)
	assert.Equal(t, 2, p.NumberOfInitialMutations)
	assert.Equal(t, MultiplicityDouble, p.TumourMultiplicity)
	assert.Equal(t, [][]int{{3, 4}, {10, 12}}, p.SamplingPositions)
	assert.Equal(t, 200, p.ReadDepth)
	assert.Equal(t, DepthPoisson, p.ReadDepthModel)
}

func TestLoadParameters_PartialYAML_KeepsDefaults(t *testing.T) {
	path := testutil.WriteTempFile(t, "params.yaml", "number_of_generations: 7\n")
	p, err := LoadParameters(path)
	require.NoError(t, err)
	want := DefaultParameters()
	want.NumberOfGenerations = 7
	assert.Equal(t, want, *p)
}

func TestLoadParameters_UnknownKey_ReturnsError(t *testing.T) {
	path := testutil.WriteTempFile(t, "params.yaml", "matrix_sise: 20\n")
	_, err := LoadParameters(path)
	assert.Error(t, err)
}

func TestLoadParameters_InvalidValue_ReturnsValidationError(t *testing.T) {
	path := testutil.WriteTempFile(t, "params.yaml", "death_probability: 1.5\n")
	_, err := LoadParameters(path)
	assert.ErrorIs(t, err, ErrInvalidParameters)
}

func TestLoadParameters_MissingFile_ReturnsError(t *testing.T) {
	_, err := LoadParameters("/nonexistent/params.yaml")
	assert.Error(t, err)
}
