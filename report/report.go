// Package report prints execution records for the foreground CLI run.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"seqbench/benchmark"
)

// DisplayResults writes the configuration and one row of timings per trial.
// Timings are raw nanoseconds; no aggregation is applied.
func DisplayResults(w io.Writer, rec benchmark.ExecutionRecord) error {
	title := color.New(color.FgCyan, color.Bold)
	if _, err := title.Fprintf(w, "\n%s results (run %s)\n", rec.Key, rec.ID); err != nil {
		return err
	}
	fmt.Fprintf(w, "Size: %d  Bound: %d  Trials: %d  Duration: %s\n\n",
		rec.Config.Size, rec.Config.Bound, rec.Config.Trials, rec.FinishedAt.Sub(rec.StartedAt))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "trial\tgenerate ns\tsort ns\tinsert ns\tdelete ns\tretrieve ns\t")
	for i, m := range rec.Measurements {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%d\t\n",
			i+1, m.GenerateNanos, m.SortNanos, m.InsertNanos, m.DeleteNanos, m.RetrieveNanos)
	}
	return tw.Flush()
}
