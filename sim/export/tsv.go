package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/tumour-sim/casim/sim"
)

var (
	lineageColumns  = []string{"parent", "id", "generation", "kind"}
	deathColumns    = []string{"generation", "row", "col", "handle"}
	vafColumns      = []string{"id", "parent", "generation", "kind", "count", "frequency"}
	observedColumns = []string{"depth", "reads", "vaf"}
)

func newTSVWriter(w io.Writer) *csv.Writer {
	tw := csv.NewWriter(w)
	tw.Comma = '\t'
	return tw
}

// flushTSV flushes tw and reports any error from earlier writes.
func flushTSV(tw *csv.Writer) error {
	tw.Flush()
	return tw.Error()
}

// WriteLattice writes the handle grid, one lattice row per line. Empty sites
// are written as -1.
func WriteLattice(w io.Writer, l *sim.Lattice) error {
	tw := newTSVWriter(w)
	n := l.Size()
	row := make([]string, n)
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			row[c] = formatID(l.At(sim.Coord{Row: r, Col: c}))
		}
		if err := tw.Write(row); err != nil {
			return fmt.Errorf("writing lattice row %d: %w", r, err)
		}
	}
	return flushTSV(tw)
}

// WriteLineage writes one parent/id pair per mutation, germline excluded.
func WriteLineage(w io.Writer, lin *sim.Lineage) error {
	tw := newTSVWriter(w)
	if err := tw.Write(lineageColumns); err != nil {
		return fmt.Errorf("writing lineage header: %w", err)
	}
	for _, r := range lin.Records() {
		if r.ID == sim.GermlineID {
			continue
		}
		row := []string{formatID(r.Parent), formatID(r.ID), strconv.Itoa(r.Generation), r.Kind.String()}
		if err := tw.Write(row); err != nil {
			return fmt.Errorf("writing lineage record %d: %w", r.ID, err)
		}
	}
	return flushTSV(tw)
}

// WriteDeaths writes the death list in the order deaths happened.
func WriteDeaths(w io.Writer, deaths []sim.Death) error {
	tw := newTSVWriter(w)
	if err := tw.Write(deathColumns); err != nil {
		return fmt.Errorf("writing death header: %w", err)
	}
	for _, d := range deaths {
		row := []string{
			strconv.Itoa(d.Generation),
			strconv.Itoa(d.Site.Row),
			strconv.Itoa(d.Site.Col),
			formatID(d.Handle),
		}
		if err := tw.Write(row); err != nil {
			return fmt.Errorf("writing death at %v: %w", d.Site, err)
		}
	}
	return flushTSV(tw)
}

// WriteVAF writes a frequency table with its observed readout. observed may
// be nil, in which case the sequencing columns are left out.
func WriteVAF(w io.Writer, table *sim.FrequencyTable, observed *sim.ObservedTable) error {
	if observed != nil && len(observed.Rows) != len(table.Rows) {
		return fmt.Errorf("observed table has %d rows, true table has %d", len(observed.Rows), len(table.Rows))
	}
	tw := newTSVWriter(w)
	header := vafColumns
	if observed != nil {
		header = append(append([]string{}, vafColumns...), observedColumns...)
	}
	if err := tw.Write(header); err != nil {
		return fmt.Errorf("writing VAF header: %w", err)
	}
	for i, r := range table.Rows {
		row := []string{
			formatID(r.ID),
			formatID(r.Parent),
			strconv.Itoa(r.Generation),
			r.Kind.String(),
			strconv.Itoa(r.Count),
			formatFloat(r.Frequency),
		}
		if observed != nil {
			o := observed.Rows[i]
			row = append(row, strconv.Itoa(o.Depth), strconv.Itoa(o.Reads), formatFloat(o.VAF))
		}
		if err := tw.Write(row); err != nil {
			return fmt.Errorf("writing VAF row %d: %w", r.ID, err)
		}
	}
	return flushTSV(tw)
}

func formatID(id sim.MutationID) string {
	return strconv.FormatInt(int64(id), 10)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
