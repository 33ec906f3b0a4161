package sim

import (
	"fmt"
	"hash/fnv"
	"math/rand/v2"
	"sort"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run.
// Two simulations with the same SimulationKey and identical parameters
// MUST produce bit-for-bit identical lattices, lineages and tables.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === Subsystem Constants ===

const (
	// SubsystemGrowth drives the division/mutation/death draws and the
	// advantageous event. Uses the master seed directly.
	SubsystemGrowth = "growth"

	// SubsystemSampling picks random sampling positions.
	SubsystemSampling = "sampling"

	// SubsystemNoise draws read depths and supporting reads.
	SubsystemNoise = "noise"
)

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated PCG streams per subsystem.
//
// Derivation formula:
//   - For SubsystemGrowth: PCG(masterSeed, fnv1a64(name))
//   - For all other subsystems: PCG(masterSeed XOR fnv1a64(name), fnv1a64(name))
//
// Every stream's position can be captured with State and reinstated with
// RestorePartitionedRNG, which is what makes snapshots resumable.
//
// Thread-safety: NOT thread-safe. Must be called from single goroutine.
type PartitionedRNG struct {
	key        SimulationKey
	sources    map[string]*rand.PCG
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		sources:    make(map[string]*rand.PCG),
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns the stream for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	return p.install(name, p.newSource(name))
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// State serialises the position of every stream drawn from so far, keyed by
// subsystem name. Streams never requested are omitted; they restart from
// their derived seed after a restore, exactly as they would have.
func (p *PartitionedRNG) State() (map[string][]byte, error) {
	names := make([]string, 0, len(p.sources))
	for name := range p.sources {
		names = append(names, name)
	}
	sort.Strings(names)

	states := make(map[string][]byte, len(names))
	for _, name := range names {
		b, err := p.sources[name].MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("marshalling %s stream: %w", name, err)
		}
		states[name] = b
	}
	return states, nil
}

// RestorePartitionedRNG rebuilds a PartitionedRNG whose streams continue from
// the positions recorded by State.
func RestorePartitionedRNG(key SimulationKey, states map[string][]byte) (*PartitionedRNG, error) {
	p := NewPartitionedRNG(key)
	for name, b := range states {
		src := &rand.PCG{}
		if err := src.UnmarshalBinary(b); err != nil {
			return nil, fmt.Errorf("restoring %s stream: %w", name, err)
		}
		p.install(name, src)
	}
	return p, nil
}

func (p *PartitionedRNG) newSource(name string) *rand.PCG {
	stream := fnv1a64(name)
	seed := int64(p.key)
	if name != SubsystemGrowth {
		seed ^= stream
	}
	return rand.NewPCG(uint64(seed), uint64(stream))
}

func (p *PartitionedRNG) install(name string, src *rand.PCG) *rand.Rand {
	rng := rand.New(src)
	p.sources[name] = src
	p.subsystems[name] = rng
	return rng
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
