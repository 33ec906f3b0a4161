// sim/simulator.go
package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/tumour-sim/casim/sim/trace"
)

// Death records one cell removed during a death phase.
type Death struct {
	Generation int        `json:"generation"`
	Site       Coord      `json:"site"`
	Handle     MutationID `json:"handle"`
}

// AdvantageousEvent is the state of the once-per-run advantageous mutation.
type AdvantageousEvent struct {
	Fired      bool       `json:"fired"`
	Skipped    bool       `json:"skipped"` // lattice was empty at the wait time
	Generation int        `json:"generation"`
	Site       Coord      `json:"site"`
	Record     MutationID `json:"record"`
}

// GenerationStats counts what happened during one generation.
type GenerationStats struct {
	Generation   int
	Divisions    int
	Deaths       int
	NewMutations int
	Population   int
}

// Simulator is the growth engine. It exclusively owns the lattice and the
// lineage; Lattice() and Lineage() hand out views that callers must treat as
// read-only.
type Simulator struct {
	Params Parameters
	// Trace, when enabled, receives one record per generation.
	Trace *trace.GrowthTrace

	lattice    *Lattice
	lineage    *Lineage
	generation int
	adv        AdvantageousEvent
	deaths     []Death
	rng        *PartitionedRNG

	// reused per generation
	candidates []Coord
	neighbours []Coord
}

// NewSimulator validates params and seeds the tumour. Seeding consumes no
// random draws.
func NewSimulator(params Parameters, key SimulationKey) (*Simulator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	s := &Simulator{
		Params:  params,
		lattice: NewLattice(params.MatrixSize),
		lineage: NewLineage(),
		rng:     NewPartitionedRNG(key),
	}
	for _, site := range SeedSites(params.MatrixSize, params.Multiplicity()) {
		tip := s.lineage.AppendChain(GermlineID, params.NumberOfInitialMutations, 0)
		s.lattice.Place(site, tip)
	}
	logrus.Infof("Seeded %s tumour on %dx%d lattice with %d initial mutations per seed",
		params.Multiplicity(), params.MatrixSize, params.MatrixSize, params.NumberOfInitialMutations)
	return s, nil
}

// SeedSites returns the initial cell positions for a multiplicity.
func SeedSites(size int, m Multiplicity) []Coord {
	if m == MultiplicityDouble {
		return []Coord{{Row: size / 2, Col: size / 4}, {Row: size / 2, Col: 3 * size / 4}}
	}
	return []Coord{{Row: size / 2, Col: size / 2}}
}

// Lattice returns the live lattice. Do not mutate.
func (s *Simulator) Lattice() *Lattice { return s.lattice }

// Lineage returns the live lineage. Do not mutate.
func (s *Simulator) Lineage() *Lineage { return s.lineage }

// Generation returns the number of completed generations.
func (s *Simulator) Generation() int { return s.generation }

// Advantageous returns the advantageous event state.
func (s *Simulator) Advantageous() AdvantageousEvent { return s.adv }

// Deaths returns every death recorded so far, in order.
func (s *Simulator) Deaths() []Death {
	out := make([]Death, len(s.deaths))
	copy(out, s.deaths)
	return out
}

// RNG returns the partitioned RNG shared by growth, sampling and noise.
func (s *Simulator) RNG() *PartitionedRNG { return s.rng }

// Done reports whether the configured number of generations has been reached.
func (s *Simulator) Done() bool {
	return s.generation >= s.Params.NumberOfGenerations
}

// Run advances generations until Params.NumberOfGenerations is reached.
func (s *Simulator) Run() {
	for !s.Done() {
		s.Step()
	}
	logrus.Infof("[gen %05d] Growth ended with %d cells and %d lineage records",
		s.generation, s.lattice.Occupied(), s.lineage.Len())
}

// Step performs one generation: division phase, advantageous event, death
// phase. The growth stream is consumed in exactly that order.
func (s *Simulator) Step() GenerationStats {
	s.generation++
	stats := GenerationStats{Generation: s.generation}
	before := s.lineage.Len()

	stats.Divisions = s.divide()
	s.maybeFireAdvantageous()
	stats.Deaths = s.die()

	stats.NewMutations = s.lineage.Len() - before
	stats.Population = s.lattice.Occupied()

	logrus.Debugf("[gen %05d] population=%d divisions=%d deaths=%d mutations=%d",
		s.generation, stats.Population, stats.Divisions, stats.Deaths, stats.NewMutations)

	if s.Trace.Enabled() {
		s.Trace.RecordGeneration(trace.GenerationRecord{
			Generation:   stats.Generation,
			Population:   stats.Population,
			Divisions:    stats.Divisions,
			Deaths:       stats.Deaths,
			NewMutations: stats.NewMutations,
			Advantageous: s.countAdvantageous(),
		})
	}
	return stats
}

// divide runs the division phase and returns the number of divisions.
func (s *Simulator) divide() int {
	rng := s.rng.ForSubsystem(SubsystemGrowth)

	// Eligibility is fixed at the start of the phase so daughters born here
	// wait until the next generation.
	s.candidates = s.candidates[:0]
	for _, c := range s.lattice.OccupiedCoords() {
		if s.lattice.HasEmptyNeighbour(c) {
			s.candidates = append(s.candidates, c)
		}
	}

	divisions := 0
	for _, parent := range s.candidates {
		s.neighbours = s.lattice.EmptyNeighbours(s.neighbours[:0], parent)
		if len(s.neighbours) == 0 {
			continue
		}
		handle := s.lattice.At(parent)
		probs := s.Params.probabilitiesFor(s.lineage.Kind(handle))
		if rng.Float64() >= probs.division {
			continue
		}
		target := s.neighbours[rng.IntN(len(s.neighbours))]
		daughter := handle
		if rng.Float64() < probs.mutation {
			daughter = s.lineage.AppendChain(handle, s.Params.NumberOfMutationsPerDivision, s.generation)
		}
		s.lattice.Place(target, daughter)
		divisions++
	}
	return divisions
}

func (s *Simulator) maybeFireAdvantageous() {
	if s.adv.Fired || s.adv.Skipped || s.generation != s.Params.AdvMutationWaitTime {
		return
	}
	occupied := s.lattice.OccupiedCoords()
	if len(occupied) == 0 {
		s.adv = AdvantageousEvent{Skipped: true, Generation: s.generation, Record: NoParent}
		logrus.Warnf("[gen %05d] Advantageous mutation skipped: lattice is empty", s.generation)
		if s.Trace.Enabled() {
			s.Trace.RecordAdvantageous(trace.AdvantageousRecord{Generation: s.generation, Skipped: true, MutationID: int64(NoParent)})
		}
		return
	}

	site := occupied[s.rng.ForSubsystem(SubsystemGrowth).IntN(len(occupied))]
	parent := s.lattice.At(site)
	record := s.lineage.MarkAdvantageous(parent, s.generation)
	s.lattice.Set(site, record)
	s.adv = AdvantageousEvent{Fired: true, Generation: s.generation, Site: site, Record: record}

	logrus.Infof("[gen %05d] Advantageous mutation %d acquired at %v (parent %d)", s.generation, record, site, parent)
	if s.Trace.Enabled() {
		s.Trace.RecordAdvantageous(trace.AdvantageousRecord{
			Generation: s.generation,
			Row:        site.Row,
			Col:        site.Col,
			Parent:     int64(parent),
			MutationID: int64(record),
		})
	}
}

// die runs the death phase and returns the number of deaths.
func (s *Simulator) die() int {
	rng := s.rng.ForSubsystem(SubsystemGrowth)
	deaths := 0
	for _, c := range s.lattice.OccupiedCoords() {
		handle := s.lattice.At(c)
		probs := s.Params.probabilitiesFor(s.lineage.Kind(handle))
		if rng.Float64() < probs.death {
			s.lattice.Vacate(c)
			s.deaths = append(s.deaths, Death{Generation: s.generation, Site: c, Handle: handle})
			deaths++
		}
	}
	return deaths
}

func (s *Simulator) countAdvantageous() int {
	n := 0
	for _, c := range s.lattice.OccupiedCoords() {
		if s.lineage.Kind(s.lattice.At(c)) == KindAdvantageous {
			n++
		}
	}
	return n
}

// String summarises the run state for logs.
func (s *Simulator) String() string {
	return fmt.Sprintf("generation %d/%d, %d cells, %d records",
		s.generation, s.Params.NumberOfGenerations, s.lattice.Occupied(), s.lineage.Len())
}
