package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tumour-sim/casim/sim"
	"github.com/tumour-sim/casim/sim/dump"
	"github.com/tumour-sim/casim/sim/export"
	"github.com/tumour-sim/casim/sim/trace"
)

// SnapshotFile is the dump written into simOutput when --snapshot is set.
const SnapshotFile = "state.dump"

var (
	seed               int64   // Seed for every random draw of the run
	paramsPath         string  // YAML parameter file; defaults when empty
	outDir             string  // Parent of the cancer_<seed> run directory
	logLevel           string  // Log verbosity level
	exportFormats      string  // Comma-separated export formats
	writeSnapshot      bool    // Dump the final growth state for later resumption
	generations        int     // Overrides number_of_generations when set
	traceLevel         string  // Per-generation trace level
	detectionThreshold float64 // VAF above which a mutation counts as detected
	resumeFrom         string  // Snapshot dump to resume from
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "casim",
	Short: "Cellular automaton simulator of spatial tumour growth and sequencing",
}

// runOptions carries everything a run needs once flags are parsed.
type runOptions struct {
	Params     sim.Parameters
	OutDir     string
	Formats    []export.Format
	Snapshot   bool
	TraceLevel trace.TraceLevel
	Threshold  float64
}

// runCmd grows a tumour from its seed cells
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Grow a tumour and export its mutation frequency tables",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel(logLevel)

		params, err := loadParams(sim.DefaultParameters())
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		opts, err := buildOptions(cmd, params)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		s, err := sim.NewSimulator(opts.Params, sim.NewSimulationKey(seed))
		if err != nil {
			logrus.Fatalf("Cannot start simulation: %v", err)
		}
		if err := execute(cmd.Context(), s, opts, os.Stdout); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
	},
}

// resumeCmd continues growth from a snapshot dump
var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume growth from a snapshot, optionally under new parameters",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel(logLevel)

		if resumeFrom == "" {
			logrus.Fatalf("--from is required")
		}
		snap, err := dump.Read(resumeFrom)
		if err != nil {
			logrus.Fatalf("Cannot read snapshot %s: %v", resumeFrom, err)
		}
		// Without --params the run continues under the snapshot's own parameters.
		params, err := loadParams(snap.Params)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		opts, err := buildOptions(cmd, params)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		s, err := sim.Restore(snap, opts.Params)
		if err != nil {
			logrus.Fatalf("Cannot restore snapshot: %v", err)
		}
		if err := execute(cmd.Context(), s, opts, os.Stdout); err != nil {
			logrus.Fatalf("Simulation failed: %v", err)
		}
	},
}

func setLogLevel(name string) {
	level, err := logrus.ParseLevel(name)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", name)
	}
	logrus.SetLevel(level)
}

// loadParams reads --params when given and returns fallback otherwise.
func loadParams(fallback sim.Parameters) (sim.Parameters, error) {
	if paramsPath == "" {
		return fallback, nil
	}
	loaded, err := sim.LoadParameters(paramsPath)
	if err != nil {
		return sim.Parameters{}, fmt.Errorf("loading %s: %w", paramsPath, err)
	}
	return *loaded, nil
}

// buildOptions applies flag overrides to params and parses the remaining flags.
func buildOptions(cmd *cobra.Command, params sim.Parameters) (runOptions, error) {
	if cmd.Flags().Changed("generations") {
		params.NumberOfGenerations = generations
	}
	formats, err := export.ParseFormats(exportFormats)
	if err != nil {
		return runOptions{}, err
	}
	if !trace.IsValidTraceLevel(traceLevel) {
		return runOptions{}, fmt.Errorf("unknown trace level %q; valid: none, generations", traceLevel)
	}
	return runOptions{
		Params:     params,
		OutDir:     outDir,
		Formats:    formats,
		Snapshot:   writeSnapshot,
		TraceLevel: trace.TraceLevel(traceLevel),
		Threshold:  detectionThreshold,
	}, nil
}

// execute grows s to the end, then samples, exports and reports into a fresh
// cancer_<seed> directory under opts.OutDir.
func execute(ctx context.Context, s *sim.Simulator, opts runOptions, out io.Writer) error {
	key := int64(s.RNG().Key())
	dirs, err := prepareRunDir(opts.OutDir, key)
	if err != nil {
		return err
	}
	closeLog, err := attachLogFile(dirs.Log)
	if err != nil {
		return err
	}
	defer closeLog()
	if err := writeParams(dirs.Log, s.Params); err != nil {
		return err
	}

	if opts.TraceLevel == trace.TraceLevelGenerations {
		s.Trace = trace.NewGrowthTrace(opts.TraceLevel)
	}
	logrus.Infof("Starting simulation (seed %d): %s", key, s)
	startTime := time.Now()
	s.Run()

	// Capture before sampling so a resumed run analyses exactly like an
	// uninterrupted one.
	if opts.Snapshot {
		snap, err := s.Capture()
		if err != nil {
			return err
		}
		if err := dump.Write(filepath.Join(dirs.Output, SnapshotFile), snap); err != nil {
			return err
		}
	}

	report, err := sim.Analyse(s)
	if err != nil {
		return err
	}
	if err := export.WriteAll(ctx, dirs.Output, s, report, opts.Formats); err != nil {
		return err
	}

	printSummary(out, s, report, opts.Threshold)
	logrus.Infof("Simulation complete in %v; output in %s", time.Since(startTime), dirs.Root)
	return nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	for _, c := range []*cobra.Command{runCmd, resumeCmd} {
		c.Flags().StringVar(&paramsPath, "params", "", "YAML parameter file (defaults are used for missing keys)")
		c.Flags().StringVar(&outDir, "outdir", ".", "Directory that receives cancer_<seed>/")
		c.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
		c.Flags().StringVar(&exportFormats, "export", "tsv", "Comma-separated export formats (tsv, arrow, sqlite)")
		c.Flags().BoolVar(&writeSnapshot, "snapshot", false, "Write the final growth state to simOutput/"+SnapshotFile)
		c.Flags().IntVar(&generations, "generations", 0, "Override number_of_generations (absolute end generation on resume)")
		c.Flags().StringVar(&traceLevel, "trace-level", "none", "Per-generation trace level (none, generations)")
		c.Flags().Float64Var(&detectionThreshold, "detection-threshold", 0, "VAF above which a mutation counts as detected")
	}
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for every random draw of the run")
	resumeCmd.Flags().StringVar(&resumeFrom, "from", "", "Snapshot dump to resume from")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resumeCmd)
}
