package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tumour-sim/casim/sim"
	"github.com/tumour-sim/casim/sim/export"
)

var (
	sweepSeeds   []int64 // One run per seed
	sweepWorkers int     // Runs grown at the same time
	sweepDBPath  string  // Shared results database
)

// sweepCmd grows one tumour per seed and stores them all in one database
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Grow one tumour per seed concurrently into a shared SQLite results database",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel(logLevel)

		if len(sweepSeeds) == 0 {
			logrus.Fatalf("--seeds must list at least one seed")
		}
		if sweepWorkers < 1 {
			logrus.Fatalf("--workers must be >= 1, got %d", sweepWorkers)
		}
		params, err := loadParams(sim.DefaultParameters())
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if cmd.Flags().Changed("generations") {
			params.NumberOfGenerations = generations
		}
		if err := params.Validate(); err != nil {
			logrus.Fatalf("%v", err)
		}

		path := sweepDBPath
		if path == "" {
			path = filepath.Join(outDir, "sweep.db")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			logrus.Fatalf("Cannot create %s: %v", filepath.Dir(path), err)
		}
		db, err := export.OpenResultsDB(path)
		if err != nil {
			logrus.Fatalf("Cannot open results database: %v", err)
		}
		defer db.Close()

		results := runSweep(cmd.Context(), params, sweepSeeds, sweepWorkers, db)
		if failed := printSweep(os.Stdout, results); failed > 0 {
			db.Close()
			logrus.Fatalf("%d of %d runs failed", failed, len(results))
		}
		logrus.Infof("Sweep of %d runs stored in %s", len(results), path)
	},
}

// sweepResult is the outcome of one seed of a sweep.
type sweepResult struct {
	Seed       int64
	RunID      int64
	Population int
	Records    int
	Err        error
}

// runSweep grows one simulation per seed with at most workers running at
// once. Results are returned in seed order regardless of completion order.
func runSweep(ctx context.Context, params sim.Parameters, seeds []int64, workers int, db *export.ResultsDB) []sweepResult {
	results := make([]sweepResult, len(seeds))
	slots := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, seed := range seeds {
		wg.Add(1)
		go func(i int, seed int64) {
			defer wg.Done()
			slots <- struct{}{}
			defer func() { <-slots }()
			results[i] = sweepOne(ctx, params, seed, db)
		}(i, seed)
	}
	wg.Wait()
	return results
}

func sweepOne(ctx context.Context, params sim.Parameters, seed int64, db *export.ResultsDB) sweepResult {
	res := sweepResult{Seed: seed}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}
	s, err := sim.NewSimulator(params, sim.NewSimulationKey(seed))
	if err != nil {
		res.Err = err
		return res
	}
	s.Run()
	report, err := sim.Analyse(s)
	if err != nil {
		res.Err = fmt.Errorf("analysing seed %d: %w", seed, err)
		return res
	}
	res.RunID, err = db.SaveRun(ctx, s, report)
	if err != nil {
		res.Err = fmt.Errorf("saving seed %d: %w", seed, err)
		return res
	}
	res.Population = s.Lattice().Occupied()
	res.Records = s.Lineage().Len()
	logrus.Debugf("Seed %d stored as run %d", seed, res.RunID)
	return res
}

// printSweep writes one line per seed and returns the number of failures.
func printSweep(out io.Writer, results []sweepResult) int {
	failed := 0
	fmt.Fprintln(out, "=== Sweep ===")
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(out, "seed %-10d FAILED: %v\n", r.Seed, r.Err)
			continue
		}
		fmt.Fprintf(out, "seed %-10d run %-4d population %-8d records %d\n", r.Seed, r.RunID, r.Population, r.Records)
	}
	return failed
}

func init() {
	sweepCmd.Flags().Int64SliceVar(&sweepSeeds, "seeds", nil, "Comma-separated seeds, one run each")
	sweepCmd.Flags().IntVar(&sweepWorkers, "workers", runtime.NumCPU(), "Runs grown concurrently")
	sweepCmd.Flags().StringVar(&sweepDBPath, "db", "", "Results database (default <outdir>/sweep.db)")
	sweepCmd.Flags().StringVar(&paramsPath, "params", "", "YAML parameter file (defaults are used for missing keys)")
	sweepCmd.Flags().StringVar(&outDir, "outdir", ".", "Directory for the default results database")
	sweepCmd.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	sweepCmd.Flags().IntVar(&generations, "generations", 0, "Override number_of_generations")

	rootCmd.AddCommand(sweepCmd)
}
