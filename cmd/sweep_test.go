package cmd

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tumour-sim/casim/sim"
	"github.com/tumour-sim/casim/sim/export"
)

func TestRunSweep_OneRunPerSeed(t *testing.T) {
	// GIVEN a shared results database
	ctx := context.Background()
	db, err := export.OpenResultsDB(filepath.Join(t.TempDir(), "sweep.db"))
	require.NoError(t, err)
	defer db.Close()
	seeds := []int64{5, 1, 9, 3}

	// WHEN four seeds are grown two at a time
	results := runSweep(ctx, smallParams(), seeds, 2, db)

	// THEN every seed is stored once and results keep seed order
	require.Len(t, results, len(seeds))
	for i, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, seeds[i], r.Seed)
	}
	runs, err := db.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, len(seeds))
	stored := make(map[int64]int)
	for _, run := range runs {
		stored[run.Seed] = run.Population
	}
	for _, r := range results {
		assert.Equal(t, r.Population, stored[r.Seed])
	}
}

func TestRunSweep_MatchesSingleRun(t *testing.T) {
	db, err := export.OpenResultsDB(filepath.Join(t.TempDir(), "sweep.db"))
	require.NoError(t, err)
	defer db.Close()

	results := runSweep(context.Background(), smallParams(), []int64{21, 22}, 2, db)

	s, err := sim.NewSimulator(smallParams(), sim.NewSimulationKey(22))
	require.NoError(t, err)
	s.Run()
	require.NoError(t, results[1].Err)
	assert.Equal(t, s.Lattice().Occupied(), results[1].Population)
	assert.Equal(t, s.Lineage().Len(), results[1].Records)
}

func TestRunSweep_CancelledContext_AllFail(t *testing.T) {
	db, err := export.OpenResultsDB(filepath.Join(t.TempDir(), "sweep.db"))
	require.NoError(t, err)
	defer db.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := runSweep(ctx, smallParams(), []int64{1, 2}, 1, db)

	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
}

func TestPrintSweep_CountsFailures(t *testing.T) {
	var buf bytes.Buffer
	failed := printSweep(&buf, []sweepResult{
		{Seed: 1, RunID: 1, Population: 10, Records: 4},
		{Seed: 2, Err: errors.New("boom")},
	})
	assert.Equal(t, 1, failed)
	assert.Contains(t, buf.String(), "FAILED: boom")
	assert.Contains(t, buf.String(), "population 10")
}
