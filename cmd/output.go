package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/tumour-sim/casim/sim"
)

// Names inside a run directory.
const (
	logDirName     = "log"
	outputDirName  = "simOutput"
	logFileName    = "casim.log"
	paramsFileName = "params.yaml"
)

// ErrRunDirExists is returned when the cancer_<seed> directory is already
// present; runs never overwrite earlier output.
var ErrRunDirExists = errors.New("run directory already exists")

// runDirs are the directories of one run.
type runDirs struct {
	Root   string // <outdir>/cancer_<seed>
	Log    string // Root/log
	Output string // Root/simOutput
}

// prepareRunDir creates <outdir>/cancer_<seed>/{log,simOutput}.
func prepareRunDir(outdir string, seed int64) (runDirs, error) {
	root := filepath.Join(outdir, fmt.Sprintf("cancer_%d", seed))
	dirs := runDirs{
		Root:   root,
		Log:    filepath.Join(root, logDirName),
		Output: filepath.Join(root, outputDirName),
	}
	if err := os.MkdirAll(outdir, 0755); err != nil {
		return runDirs{}, fmt.Errorf("creating %s: %w", outdir, err)
	}
	if err := os.Mkdir(root, 0755); err != nil {
		if errors.Is(err, os.ErrExist) {
			return runDirs{}, fmt.Errorf("%w: %s", ErrRunDirExists, root)
		}
		return runDirs{}, fmt.Errorf("creating %s: %w", root, err)
	}
	for _, d := range []string{dirs.Log, dirs.Output} {
		if err := os.Mkdir(d, 0755); err != nil {
			return runDirs{}, fmt.Errorf("creating %s: %w", d, err)
		}
	}
	return dirs, nil
}

// attachLogFile copies every log line into dir/casim.log until the returned
// function is called.
func attachLogFile(dir string) (func(), error) {
	f, err := os.Create(filepath.Join(dir, logFileName))
	if err != nil {
		return nil, fmt.Errorf("creating log file: %w", err)
	}
	previous := logrus.StandardLogger().Out
	logrus.SetOutput(io.MultiWriter(previous, f))
	return func() {
		logrus.SetOutput(previous)
		f.Close()
	}, nil
}

// writeParams records the effective parameters of the run as YAML, in the
// same layout LoadParameters accepts.
func writeParams(dir string, p sim.Parameters) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshaling parameters: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, paramsFileName), data, 0644); err != nil {
		return fmt.Errorf("writing parameters: %w", err)
	}
	return nil
}
