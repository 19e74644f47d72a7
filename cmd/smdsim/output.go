package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/embruze/SexualEqualityABM-1/internal/sensitivity"
	"github.com/embruze/SexualEqualityABM-1/internal/simulation"
)

// jsonOutput reports whether output should be JSON: when --json is given or
// stdout is not a terminal.
func jsonOutput(cmd *cobra.Command) bool {
	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		return true
	}
	fd := os.Stdout.Fd()
	return !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func printTrial(w io.Writer, t simulation.Trial) {
	tw := newTable(w)
	v := t.Values()
	for i, name := range simulation.Outcome {
		fmt.Fprintf(tw, "  %s\t%.4f\n", name, v[i])
	}
	tw.Flush()
}

func printRows(w io.Writer, title string, rows []sensitivity.Row) {
	if len(rows) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	tw := newTable(w)
	for _, r := range rows {
		fmt.Fprintf(tw, "  %s\t%.4f\n", r.Label, r.Value)
	}
	tw.Flush()
	fmt.Fprintln(w)
}

func printCorrelations(w io.Writer, corrs []sensitivity.Correlation) {
	if len(corrs) == 0 {
		return
	}
	fmt.Fprintln(w, "Regressions:")
	tw := newTable(w)
	fmt.Fprintln(tw, "  TEST\tUNCONCEALED\tCONCEALED\tOVERALL")
	for _, c := range corrs {
		fmt.Fprintf(tw, "  %s\t%.4f\t%.4f\t%.4f\n", c.Label, c.Unconcealed, c.Concealed, c.Overall)
	}
	tw.Flush()
	fmt.Fprintln(w)
}

func printSeries(w io.Writer, title string, series []sensitivity.Series) {
	if len(series) == 0 {
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
	for _, s := range series {
		fmt.Fprintf(w, "  %s\n", s.Label)
		tw := newTable(w)
		fmt.Fprintf(tw, "    X")
		for _, name := range simulation.Outcome {
			fmt.Fprintf(tw, "\t%s", name)
		}
		fmt.Fprintln(tw)
		for i, x := range s.X {
			fmt.Fprintf(tw, "    %.4g", x)
			for _, v := range s.Trials[i].Values() {
				fmt.Fprintf(tw, "\t%.4f", v)
			}
			fmt.Fprintln(tw)
		}
		tw.Flush()
	}
	fmt.Fprintln(w)
}

func printReport(w io.Writer, r *sensitivity.Report) {
	if r.RunID != "" {
		fmt.Fprintf(w, "Run %s\n\n", r.RunID)
	}
	printRows(w, "Odds ratios", r.OddsRatios)
	printCorrelations(w, r.Regressions)
	printSeries(w, "Impact sensitivity", r.Impact)
	printRows(w, "Impact correlations", r.ImpactCorrelation)
	printSeries(w, "Parameter sensitivity", r.Parameter)
}
