// Package export writes finished runs to disk: tab-separated text files, an
// Arrow IPC file of every frequency table, and a SQLite results database.
package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tumour-sim/casim/sim"
)

// Format names one output kind.
type Format string

const (
	FormatTSV    Format = "tsv"
	FormatArrow  Format = "arrow"
	FormatSQLite Format = "sqlite"
)

var validFormats = map[Format]bool{FormatTSV: true, FormatArrow: true, FormatSQLite: true}

// File names inside the output directory.
const (
	LatticeFile    = "mtx.tsv"
	LineageFile    = "mut_container.tsv"
	DeathsFile     = "death_list.tsv"
	WholeVAFFile   = "mtx_VAF.txt"
	ArrowFile      = "frequencies.arrow"
	ResultsDBFile  = "results.db"
	WholeTableName = "whole"
)

// ParseFormats splits a comma-separated list such as "tsv,sqlite".
// Duplicates collapse; an empty string yields no formats.
func ParseFormats(s string) ([]Format, error) {
	var formats []Format
	seen := make(map[Format]bool)
	for _, part := range strings.Split(s, ",") {
		f := Format(strings.ToLower(strings.TrimSpace(part)))
		if f == "" || seen[f] {
			continue
		}
		if !validFormats[f] {
			return nil, fmt.Errorf("unknown export format %q; valid: tsv, arrow, sqlite", f)
		}
		seen[f] = true
		formats = append(formats, f)
	}
	return formats, nil
}

// SampleTableName names the table of the sample taken around pos.
func SampleTableName(pos sim.Coord) string {
	return fmt.Sprintf("sample_%d_%d", pos.Row, pos.Col)
}

// SampleVAFFile is the text file name of the sample taken around pos.
func SampleVAFFile(pos sim.Coord) string {
	return SampleTableName(pos) + "_VAF.txt"
}

// WriteAll writes the requested formats for a finished run into dir, which
// must already exist.
func WriteAll(ctx context.Context, dir string, s *sim.Simulator, report *sim.Report, formats []Format) error {
	for _, f := range formats {
		var err error
		switch f {
		case FormatTSV:
			err = writeTSVFiles(dir, s, report)
		case FormatArrow:
			err = writeFile(filepath.Join(dir, ArrowFile), func(w io.Writer) error {
				return WriteArrow(w, report)
			})
		case FormatSQLite:
			err = writeResultsDB(ctx, filepath.Join(dir, ResultsDBFile), s, report)
		default:
			err = fmt.Errorf("unknown export format %q", f)
		}
		if err != nil {
			return fmt.Errorf("exporting %s: %w", f, err)
		}
		logrus.Infof("Exported %s output to %s", f, dir)
	}
	return nil
}

// namedTable is one frequency table of a report with its export name.
type namedTable struct {
	name     string
	table    *sim.FrequencyTable
	observed *sim.ObservedTable
}

// reportTables lists the whole tumour first, then each sample in order.
func reportTables(report *sim.Report) []namedTable {
	tables := []namedTable{{WholeTableName, report.WholeTumour, report.WholeObserved}}
	for _, s := range report.Samples {
		tables = append(tables, namedTable{SampleTableName(s.Position), s.True, s.Observed})
	}
	return tables
}

// outputFile pairs a file name with the function that fills it.
type outputFile struct {
	name  string
	write func(io.Writer) error
}

func writeTSVFiles(dir string, s *sim.Simulator, report *sim.Report) error {
	files := []outputFile{
		{LatticeFile, func(w io.Writer) error { return WriteLattice(w, s.Lattice()) }},
		{LineageFile, func(w io.Writer) error { return WriteLineage(w, s.Lineage()) }},
		{DeathsFile, func(w io.Writer) error { return WriteDeaths(w, s.Deaths()) }},
		{WholeVAFFile, func(w io.Writer) error { return WriteVAF(w, report.WholeTumour, report.WholeObserved) }},
	}
	for _, sample := range report.Samples {
		files = append(files, outputFile{SampleVAFFile(sample.Position), func(w io.Writer) error {
			return WriteVAF(w, sample.True, sample.Observed)
		}})
	}
	for _, file := range files {
		if err := writeFile(filepath.Join(dir, file.name), file.write); err != nil {
			return err
		}
	}
	return nil
}

func writeResultsDB(ctx context.Context, path string, s *sim.Simulator, report *sim.Report) error {
	db, err := OpenResultsDB(path)
	if err != nil {
		return err
	}
	defer db.Close()
	_, err = db.SaveRun(ctx, s, report)
	return err
}

// writeFile creates path and hands it to write, reporting close errors.
func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}
