package cmd

import (
	"fmt"
	"io"

	"github.com/tumour-sim/casim/sim"
	"github.com/tumour-sim/casim/sim/export"
	"github.com/tumour-sim/casim/sim/trace"
)

// printSummary writes run metrics, VAF summaries and, when traced, the growth
// summary to out.
func printSummary(out io.Writer, s *sim.Simulator, report *sim.Report, threshold float64) {
	sim.CollectMetrics(s).Print(out)

	sim.SummarizeVAF(report.WholeTumour.Frequencies(), threshold).Print(out, "Whole Tumour (true frequencies)")
	sim.SummarizeVAF(report.WholeObserved.VAFs(), threshold).Print(out, "Whole Tumour (observed VAF)")
	for _, sample := range report.Samples {
		title := fmt.Sprintf("%s (%d cells, observed VAF)", export.SampleTableName(sample.Position), len(sample.Sites))
		sim.SummarizeVAF(sample.Observed.VAFs(), threshold).Print(out, title)
	}

	if s.Trace.Enabled() {
		printTraceSummary(out, trace.Summarize(s.Trace))
	}
}

func printTraceSummary(out io.Writer, ts *trace.TraceSummary) {
	fmt.Fprintln(out, "=== Growth Trace ===")
	fmt.Fprintf(out, "Traced Generations   : %d\n", ts.Generations)
	fmt.Fprintf(out, "Peak Population      : %d (generation %d)\n", ts.PeakPopulation, ts.PeakGeneration)
	fmt.Fprintf(out, "Total Divisions      : %d\n", ts.TotalDivisions)
	fmt.Fprintf(out, "Total Deaths         : %d\n", ts.TotalDeaths)
	fmt.Fprintf(out, "Total Mutations      : %d\n", ts.TotalMutations)
	if ts.ExtinctionGeneration > 0 {
		fmt.Fprintf(out, "Extinct At           : generation %d\n", ts.ExtinctionGeneration)
	}
	if ts.AdvantageousFired {
		fmt.Fprintf(out, "Advantageous Cells   : %d\n", ts.AdvantageousFinal)
	}
}
