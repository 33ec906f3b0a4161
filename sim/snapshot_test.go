package sim

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pausedAt runs p up to gen generations and captures a snapshot.
func pausedAt(t *testing.T, p Parameters, seed int64, gen int) *Snapshot {
	t.Helper()
	early := p
	early.NumberOfGenerations = gen
	s := runToEnd(t, early, seed)
	snap, err := s.Capture()
	require.NoError(t, err)
	return snap
}

func TestRestore_ResumedRunMatchesUninterrupted(t *testing.T) {
	tests := []struct {
		name     string
		waitTime int
	}{
		{"advantageous event before snapshot", 3},
		{"advantageous event after snapshot", 9},
		{"no advantageous event", 50000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN an uninterrupted 12-generation run
			p := testParams(growingParams, func(p *Parameters) { p.AdvMutationWaitTime = tt.waitTime })
			full := runToEnd(t, p, 2024)

			// WHEN the same run is paused at 6, snapshotted and resumed
			snap := pausedAt(t, p, 2024, 6)
			resumed, err := Restore(snap, p)
			require.NoError(t, err)
			assert.Equal(t, 6, resumed.Generation())
			resumed.Run()

			// THEN the final state is identical
			assert.Equal(t, full.Generation(), resumed.Generation())
			assert.Equal(t, full.Lattice().Handles(), resumed.Lattice().Handles())
			assert.Equal(t, full.Lineage().Records(), resumed.Lineage().Records())
			assert.Equal(t, full.Deaths(), resumed.Deaths())
			assert.Equal(t, full.Advantageous(), resumed.Advantageous())
		})
	}
}

func TestRestore_SurvivesJSONRoundTrip(t *testing.T) {
	p := testParams(growingParams, func(p *Parameters) { p.SamplingFraction = 0.4 })
	full := runToEnd(t, p, 31)
	fullReport, err := Analyse(full)
	require.NoError(t, err)

	snap := pausedAt(t, p, 31, 5)
	data, err := json.Marshal(snap)
	require.NoError(t, err)
	var decoded Snapshot
	require.NoError(t, json.Unmarshal(data, &decoded))

	resumed, err := Restore(&decoded, p)
	require.NoError(t, err)
	resumed.Run()
	report, err := Analyse(resumed)
	require.NoError(t, err)

	assert.Equal(t, full.Lattice().Handles(), resumed.Lattice().Handles())
	assert.Equal(t, fullReport, report)
}

func TestCapture_SnapshotIsIndependentOfSimulator(t *testing.T) {
	p := testParams(growingParams)
	s := mustSimulator(t, p, 8)
	for i := 0; i < 4; i++ {
		s.Step()
	}
	snap, err := s.Capture()
	require.NoError(t, err)
	cells := append([]MutationID(nil), snap.Cells...)
	records := len(snap.Records)

	s.Run()

	assert.Equal(t, cells, snap.Cells)
	assert.Len(t, snap.Records, records)
	assert.Equal(t, 4, snap.Generation)
}

func TestRestore_TwoRestoresDoNotShareState(t *testing.T) {
	p := testParams(growingParams)
	snap := pausedAt(t, p, 12, 4)

	a, err := Restore(snap, p)
	require.NoError(t, err)
	b, err := Restore(snap, p)
	require.NoError(t, err)
	a.Run()

	assert.Equal(t, 4, b.Generation())
	assert.Equal(t, snap.Cells, b.Lattice().Handles())
	b.Run()
	assert.Equal(t, a.Lattice().Handles(), b.Lattice().Handles())
}

func TestRestore_ChangedParameters_ContinueUnderNewRegime(t *testing.T) {
	// GIVEN a snapshot taken under certain division
	p := testParams(func(p *Parameters) {
		p.NumberOfGenerations = 3
		p.MutationProbability = 0
	})
	snap := pausedAt(t, p, 1, 3)
	population := 0
	for _, h := range snap.Cells {
		if h != Empty {
			population++
		}
	}

	// WHEN growth resumes with division switched off and a later end
	next := p
	next.NumberOfGenerations = 6
	next.DivisionProbability = 0
	s, err := Restore(snap, next)
	require.NoError(t, err)
	s.Run()

	// THEN three more generations ran and the population did not change
	assert.Equal(t, 6, s.Generation())
	assert.Equal(t, population, s.Lattice().Occupied())
}

func TestRestore_AlreadyDone_RunIsNoOp(t *testing.T) {
	p := testParams()
	snap := pausedAt(t, p, 1, 2)
	s, err := Restore(snap, p)
	require.NoError(t, err)
	assert.True(t, s.Done())
	s.Run()
	assert.Equal(t, 2, s.Generation())
}

func TestRestore_Rejections(t *testing.T) {
	p := testParams()
	tests := []struct {
		name   string
		mutate func(*Snapshot, *Parameters)
		want   error
	}{
		{"matrix size mismatch", func(_ *Snapshot, p *Parameters) { p.MatrixSize = 12 }, ErrSnapshotMismatch},
		{"unknown version", func(s *Snapshot, _ *Parameters) { s.Version = 99 }, ErrSnapshotMismatch},
		{"truncated cells", func(s *Snapshot, _ *Parameters) { s.Cells = s.Cells[:10] }, ErrSnapshotMismatch},
		{"dangling handle", func(s *Snapshot, _ *Parameters) { s.Cells[0] = 500 }, ErrSnapshotMismatch},
		{"cyclic record", func(s *Snapshot, _ *Parameters) { s.Records[1].Parent = 1 }, ErrSnapshotMismatch},
		{"corrupt rng", func(s *Snapshot, _ *Parameters) { s.RNG[SubsystemGrowth] = []byte("bogus") }, ErrSnapshotMismatch},
		{"invalid parameters", func(_ *Snapshot, p *Parameters) { p.DeathProbability = -1 }, ErrInvalidParameters},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := pausedAt(t, p, 1, 1)
			params := p
			tt.mutate(snap, &params)
			_, err := Restore(snap, params)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
