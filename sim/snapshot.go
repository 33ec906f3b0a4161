package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// SnapshotVersion is the current snapshot layout version.
const SnapshotVersion = 1

// Snapshot is a value copy of everything needed to resume growth exactly:
// lattice handles, lineage records, generation counter, advantageous event
// state, death list and RNG stream positions. It shares no memory with the
// simulator it was captured from.
type Snapshot struct {
	Version      int               `json:"version"`
	Seed         int64             `json:"seed"`
	MatrixSize   int               `json:"matrix_size"`
	Generation   int               `json:"generation"`
	Params       Parameters        `json:"params"`
	Cells        []MutationID      `json:"cells"` // row-major; Empty = -1
	Records      []MutationRecord  `json:"records"`
	Advantageous AdvantageousEvent `json:"advantageous"`
	Deaths       []Death           `json:"deaths"`
	RNG          map[string][]byte `json:"rng"`
}

// Capture freezes the current simulator state.
func (s *Simulator) Capture() (*Snapshot, error) {
	states, err := s.rng.State()
	if err != nil {
		return nil, fmt.Errorf("capturing rng state: %w", err)
	}
	return &Snapshot{
		Version:      SnapshotVersion,
		Seed:         int64(s.rng.Key()),
		MatrixSize:   s.lattice.Size(),
		Generation:   s.generation,
		Params:       s.Params,
		Cells:        s.lattice.Handles(),
		Records:      s.lineage.Records(),
		Advantageous: s.adv,
		Deaths:       s.Deaths(),
		RNG:          states,
	}, nil
}

// Restore rebuilds a simulator from a snapshot under params, which may differ
// from the parameters the snapshot was taken with (phased growth). The
// restored run ends at params.NumberOfGenerations. A matrix_size that does not
// match the snapshot is rejected with ErrSnapshotMismatch.
func Restore(snap *Snapshot, params Parameters) (*Simulator, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: snapshot version %d, want %d", ErrSnapshotMismatch, snap.Version, SnapshotVersion)
	}
	if snap.MatrixSize != params.MatrixSize {
		return nil, fmt.Errorf("%w: snapshot lattice is %dx%d, parameters ask for %dx%d",
			ErrSnapshotMismatch, snap.MatrixSize, snap.MatrixSize, params.MatrixSize, params.MatrixSize)
	}
	lineage, err := lineageFromRecords(snap.Records)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotMismatch, err)
	}
	lattice, err := latticeFromHandles(snap.MatrixSize, snap.Cells)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotMismatch, err)
	}
	for i, h := range snap.Cells {
		if h != Empty && (h < 0 || int(h) >= lineage.Len()) {
			return nil, fmt.Errorf("%w: site %d references unknown record %d", ErrSnapshotMismatch, i, h)
		}
	}
	rng, err := RestorePartitionedRNG(NewSimulationKey(snap.Seed), snap.RNG)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSnapshotMismatch, err)
	}

	deaths := make([]Death, len(snap.Deaths))
	copy(deaths, snap.Deaths)
	s := &Simulator{
		Params:     params,
		lattice:    lattice,
		lineage:    lineage,
		generation: snap.Generation,
		adv:        snap.Advantageous,
		deaths:     deaths,
		rng:        rng,
	}
	if s.Done() {
		logrus.Warnf("Restored snapshot is at generation %d; number_of_generations=%d leaves nothing to run",
			snap.Generation, params.NumberOfGenerations)
	}
	logrus.Infof("Restored snapshot at generation %d (%d cells, %d records)",
		snap.Generation, lattice.Occupied(), lineage.Len())
	return s, nil
}
