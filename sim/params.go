package sim

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Error classes callers may branch on with errors.Is.
var (
	// ErrInvalidParameters wraps every configuration rejection.
	ErrInvalidParameters = errors.New("invalid parameters")
	// ErrSnapshotMismatch is returned when a snapshot cannot be restored
	// under the supplied parameters.
	ErrSnapshotMismatch = errors.New("snapshot incompatible with parameters")
	// ErrInvalidSample is returned for out-of-grid positions or fractions
	// that cannot be satisfied.
	ErrInvalidSample = errors.New("invalid sample request")
)

// Multiplicity selects how many seed cells the tumour starts from.
type Multiplicity string

const (
	MultiplicitySingle Multiplicity = "single"
	MultiplicityDouble Multiplicity = "double"
)

// DepthModel selects how the per-mutation sequencing depth is obtained.
type DepthModel string

const (
	// DepthFixed uses read_depth reads for every mutation.
	DepthFixed DepthModel = "fixed"
	// DepthPoisson draws each mutation's depth from Poisson(read_depth).
	DepthPoisson DepthModel = "poisson"
)

var (
	validMultiplicities = map[Multiplicity]bool{"": true, MultiplicitySingle: true, MultiplicityDouble: true}
	validDepthModels    = map[DepthModel]bool{"": true, DepthFixed: true, DepthPoisson: true}
)

// Parameters is the full run configuration, loadable from a YAML file.
// Field names follow the parameter file keys one to one.
type Parameters struct {
	MatrixSize          int `yaml:"matrix_size"`
	NumberOfGenerations int `yaml:"number_of_generations"`

	DivisionProbability          float64 `yaml:"division_probability"`
	AdvMutantDivisionProbability float64 `yaml:"adv_mutant_division_probability"`
	DeathProbability             float64 `yaml:"death_probability"`
	AdvMutantDeathProbability    float64 `yaml:"adv_mutant_death_probability"`
	MutationProbability          float64 `yaml:"mutation_probability"`
	AdvMutantMutationProbability float64 `yaml:"adv_mutant_mutation_probability"`

	NumberOfMutationsPerDivision int          `yaml:"number_of_mutations_per_division"`
	AdvMutationWaitTime          int          `yaml:"adv_mutation_wait_time"`
	NumberOfInitialMutations     int          `yaml:"number_of_initial_mutations"`
	TumourMultiplicity           Multiplicity `yaml:"tumour_multiplicity"`

	SamplingFraction  float64    `yaml:"sampling_fraction"`
	SamplingPositions [][]int    `yaml:"sampling_positions,omitempty"` // [row, col]; empty = one random position
	ReadDepth         int        `yaml:"read_depth"`
	ReadDepthModel    DepthModel `yaml:"read_depth_model,omitempty"`
}

// DefaultParameters returns the reference configuration: a 10x10 lattice,
// two generations of certain division and no death.
func DefaultParameters() Parameters {
	return Parameters{
		MatrixSize:                   10,
		NumberOfGenerations:          2,
		DivisionProbability:          1,
		AdvMutantDivisionProbability: 1,
		DeathProbability:             0,
		AdvMutantDeathProbability:    0,
		MutationProbability:          0.8,
		AdvMutantMutationProbability: 1,
		NumberOfMutationsPerDivision: 1,
		AdvMutationWaitTime:          50000,
		NumberOfInitialMutations:     1,
		TumourMultiplicity:           MultiplicitySingle,
		SamplingFraction:             0,
		ReadDepth:                    100,
		ReadDepthModel:               DepthFixed,
	}
}

// LoadParameters reads a YAML parameter file on top of DefaultParameters.
// Uses strict parsing: unrecognized keys (typos) are rejected. The result is
// validated before it is returned.
func LoadParameters(path string) (*Parameters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading parameter file: %w", err)
	}
	params := DefaultParameters()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&params); err != nil {
		return nil, fmt.Errorf("parsing parameter file: %w", err)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &params, nil
}

// Validate checks every field range. It never clamps.
func (p *Parameters) Validate() error {
	if p.MatrixSize <= 0 {
		return invalidf("matrix_size must be positive, got %d", p.MatrixSize)
	}
	if p.NumberOfGenerations <= 0 {
		return invalidf("number_of_generations must be positive, got %d", p.NumberOfGenerations)
	}
	probs := []struct {
		name string
		val  float64
	}{
		{"division_probability", p.DivisionProbability},
		{"adv_mutant_division_probability", p.AdvMutantDivisionProbability},
		{"death_probability", p.DeathProbability},
		{"adv_mutant_death_probability", p.AdvMutantDeathProbability},
		{"mutation_probability", p.MutationProbability},
		{"adv_mutant_mutation_probability", p.AdvMutantMutationProbability},
		{"sampling_fraction", p.SamplingFraction},
	}
	for _, pr := range probs {
		if err := validateProbability(pr.name, pr.val); err != nil {
			return err
		}
	}
	if p.NumberOfMutationsPerDivision < 0 {
		return invalidf("number_of_mutations_per_division must be non-negative, got %d", p.NumberOfMutationsPerDivision)
	}
	if p.AdvMutationWaitTime < 1 {
		return invalidf("adv_mutation_wait_time must be >= 1, got %d", p.AdvMutationWaitTime)
	}
	if p.NumberOfInitialMutations < 0 {
		return invalidf("number_of_initial_mutations must be non-negative, got %d", p.NumberOfInitialMutations)
	}
	if !validMultiplicities[p.TumourMultiplicity] {
		return invalidf("unknown tumour_multiplicity %q; valid: single, double", p.TumourMultiplicity)
	}
	if p.Multiplicity() == MultiplicityDouble && p.MatrixSize < 2 {
		return invalidf("tumour_multiplicity double needs matrix_size >= 2, got %d", p.MatrixSize)
	}
	if p.ReadDepth <= 0 {
		return invalidf("read_depth must be positive, got %d", p.ReadDepth)
	}
	if !validDepthModels[p.ReadDepthModel] {
		return invalidf("unknown read_depth_model %q; valid: fixed, poisson", p.ReadDepthModel)
	}
	seen := make(map[[2]int]bool, len(p.SamplingPositions))
	for i, pos := range p.SamplingPositions {
		if len(pos) != 2 {
			return invalidf("sampling_positions[%d] must be [row, col], got %v", i, pos)
		}
		if !inGrid(pos[0], pos[1], p.MatrixSize) {
			return invalidf("sampling_positions[%d] = %v lies outside the %dx%d lattice", i, pos, p.MatrixSize, p.MatrixSize)
		}
		if seen[[2]int{pos[0], pos[1]}] {
			return invalidf("sampling_positions[%d] = %v is listed twice", i, pos)
		}
		seen[[2]int{pos[0], pos[1]}] = true
	}
	return nil
}

// Multiplicity returns the tumour multiplicity, treating empty as single.
func (p *Parameters) Multiplicity() Multiplicity {
	if p.TumourMultiplicity == "" {
		return MultiplicitySingle
	}
	return p.TumourMultiplicity
}

// DepthModel returns the read-depth model, treating empty as fixed.
func (p *Parameters) DepthModel() DepthModel {
	if p.ReadDepthModel == "" {
		return DepthFixed
	}
	return p.ReadDepthModel
}

// Positions converts SamplingPositions to coordinates. Call after Validate.
func (p *Parameters) Positions() []Coord {
	coords := make([]Coord, 0, len(p.SamplingPositions))
	for _, pos := range p.SamplingPositions {
		coords = append(coords, Coord{Row: pos[0], Col: pos[1]})
	}
	return coords
}

// branchProbabilities are the per-cell draws thresholds for one record kind.
type branchProbabilities struct {
	division float64
	death    float64
	mutation float64
}

func (p *Parameters) probabilitiesFor(kind MutationKind) branchProbabilities {
	if kind == KindAdvantageous {
		return branchProbabilities{
			division: p.AdvMutantDivisionProbability,
			death:    p.AdvMutantDeathProbability,
			mutation: p.AdvMutantMutationProbability,
		}
	}
	return branchProbabilities{
		division: p.DivisionProbability,
		death:    p.DeathProbability,
		mutation: p.MutationProbability,
	}
}

func validateProbability(name string, val float64) error {
	if math.IsNaN(val) || val < 0 || val > 1 {
		return invalidf("%s must be in [0, 1], got %f", name, val)
	}
	return nil
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameters, fmt.Sprintf(format, args...))
}
