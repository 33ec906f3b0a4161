// Tracks run-wide population figures and summary statistics over VAF columns.

package sim

import (
	"fmt"
	"io"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Metrics aggregates statistics about a finished (or paused) run
// for final reporting.
type Metrics struct {
	Generation        int // completed generations
	Population        int // occupied sites
	LineageRecords    int // records in the arena, germline included
	Deaths            int // cells removed so far
	AdvantageousCells int // occupied sites carrying the advantageous clone
	AdvantageousFired bool
}

// CollectMetrics reads the current figures off a simulator.
func CollectMetrics(s *Simulator) Metrics {
	return Metrics{
		Generation:        s.Generation(),
		Population:        s.Lattice().Occupied(),
		LineageRecords:    s.Lineage().Len(),
		Deaths:            len(s.deaths),
		AdvantageousCells: s.countAdvantageous(),
		AdvantageousFired: s.Advantageous().Fired,
	}
}

// Print displays aggregated metrics at the end of the run.
func (m Metrics) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Simulation Metrics ===")
	fmt.Fprintf(w, "Generations          : %d\n", m.Generation)
	fmt.Fprintf(w, "Population           : %d cells\n", m.Population)
	fmt.Fprintf(w, "Lineage Records      : %d\n", m.LineageRecords)
	fmt.Fprintf(w, "Deaths               : %d\n", m.Deaths)
	if m.AdvantageousFired {
		fmt.Fprintf(w, "Advantageous Cells   : %d\n", m.AdvantageousCells)
	}
}

// VAFSummary describes one frequency column.
type VAFSummary struct {
	Mutations int     // rows in the table
	Detected  int     // rows with frequency strictly above the threshold
	Clonal    int     // rows present in every cell (frequency == 1)
	Mean      float64 // mean frequency; 0 for an empty column
	StdDev    float64 // sample standard deviation; 0 with fewer than two rows
	Median    float64
}

// SummarizeVAF computes a VAFSummary over freqs. The input is not modified.
func SummarizeVAF(freqs []float64, threshold float64) VAFSummary {
	summary := VAFSummary{Mutations: len(freqs)}
	if len(freqs) == 0 {
		return summary
	}
	for _, f := range freqs {
		if f > threshold {
			summary.Detected++
		}
		if f == 1 {
			summary.Clonal++
		}
	}
	sorted := make([]float64, len(freqs))
	copy(sorted, freqs)
	sort.Float64s(sorted)

	if len(sorted) > 1 {
		summary.Mean, summary.StdDev = stat.MeanStdDev(sorted, nil)
	} else {
		summary.Mean = sorted[0]
	}
	summary.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	return summary
}

// Print writes the summary under a heading.
func (v VAFSummary) Print(w io.Writer, title string) {
	fmt.Fprintf(w, "=== %s ===\n", title)
	fmt.Fprintf(w, "Mutations            : %d\n", v.Mutations)
	fmt.Fprintf(w, "Detected             : %d\n", v.Detected)
	fmt.Fprintf(w, "Clonal               : %d\n", v.Clonal)
	fmt.Fprintf(w, "Mean VAF             : %.4f\n", v.Mean)
	fmt.Fprintf(w, "Std VAF              : %.4f\n", v.StdDev)
	fmt.Fprintf(w, "Median VAF           : %.4f\n", v.Median)
}
