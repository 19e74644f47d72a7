package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/embruze/SexualEqualityABM-1/internal/sensitivity"
	"github.com/embruze/SexualEqualityABM-1/internal/store"
)

// storedReport is a run with everything its passes wrote.
type storedReport struct {
	Run               *store.Run           `json:"run"`
	OddsRatios        []sensitivity.Row    `json:"odds_ratios,omitempty"`
	Regressions       []sensitivity.Row    `json:"regressions,omitempty"`
	Impact            []sensitivity.Series `json:"impact,omitempty"`
	ImpactCorrelation []sensitivity.Row    `json:"impact_correlation,omitempty"`
	Parameter         []sensitivity.Series `json:"parameter,omitempty"`
}

func newResultsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "results [run-id]",
		Short: "List stored analyses or show one",
		Long: `Without arguments, list every stored sensitivity analysis, newest first.
With a run ID, print everything that run stored. Runs move between machines
with the export and import subcommands.

Examples:
  smdsim results
  smdsim results 6f1c0c1e-3a4b-4c8e-9d2f-2b7f6f0a9e11
  smdsim results 6f1c0c1e-3a4b-4c8e-9d2f-2b7f6f0a9e11 --delete`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			s, _, err := openResultsStore(cmd, cfg)
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()

			w := cmd.OutOrStdout()

			if len(args) == 0 {
				runs, err := s.ListRuns(ctx)
				if err != nil {
					return err
				}
				if jsonOutput(cmd) {
					if runs == nil {
						runs = []store.Run{}
					}
					return writeJSON(w, runs)
				}
				if len(runs) == 0 {
					fmt.Fprintln(w, "No stored runs.")
					return nil
				}
				tw := newTable(w)
				fmt.Fprintln(tw, "ID\tNAME\tSEED\tNODES\tSTEPS\tCREATED")
				for _, r := range runs {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n",
						r.ID, r.Name, r.Scenario.Seed, r.Scenario.Params.NodeCount, r.Scenario.Params.TimeSpan,
						r.CreatedAt.Local().Format("2006-01-02 15:04:05"))
				}
				return tw.Flush()
			}

			id := args[0]
			if del, _ := cmd.Flags().GetBool("delete"); del {
				if err := s.DeleteRun(ctx, id); err != nil {
					return err
				}
				if jsonOutput(cmd) {
					return writeJSON(w, map[string]string{"deleted": id})
				}
				fmt.Fprintf(w, "Deleted run %s\n", id)
				return nil
			}

			report, err := loadStoredReport(cmd, s, id)
			if err != nil {
				return err
			}
			if jsonOutput(cmd) {
				return writeJSON(w, report)
			}

			run := report.Run
			fmt.Fprintf(w, "Run %s\n", run.ID)
			fmt.Fprintf(w, "Scenario %q (seed %d, %d agents, p %.4g, %d steps)\n",
				run.Name, run.Scenario.Seed, run.Scenario.Params.NodeCount, run.Scenario.Params.P, run.Scenario.Params.TimeSpan)
			fmt.Fprintf(w, "Created %s\n\n", run.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			if run.Baseline != nil {
				fmt.Fprintln(w, "Baseline:")
				printTrial(w, *run.Baseline)
				fmt.Fprintln(w)
			}
			printRows(w, "Odds ratios", report.OddsRatios)
			printRows(w, "Regressions", report.Regressions)
			printSeries(w, "Impact sensitivity", report.Impact)
			printRows(w, "Impact correlations", report.ImpactCorrelation)
			printSeries(w, "Parameter sensitivity", report.Parameter)
			return nil
		},
	}

	cmd.Flags().Bool("delete", false, "Delete the run instead of showing it")

	cmd.AddCommand(newExportCmd(), newImportCmd(), newArchivesCmd(), newVerifyCmd())
	return cmd
}

func loadStoredReport(cmd *cobra.Command, s *store.SQLiteStore, id string) (*storedReport, error) {
	ctx := cmd.Context()
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	report := &storedReport{Run: run}

	rows := []struct {
		pass string
		dst  *[]sensitivity.Row
	}{
		{sensitivity.PassOddsRatio, &report.OddsRatios},
		{sensitivity.PassRegression, &report.Regressions},
		{sensitivity.PassImpactCorrelation, &report.ImpactCorrelation},
	}
	for _, r := range rows {
		if *r.dst, err = s.Rows(ctx, id, r.pass); err != nil {
			return nil, err
		}
	}

	series := []struct {
		pass string
		dst  *[]sensitivity.Series
	}{
		{sensitivity.PassImpact, &report.Impact},
		{sensitivity.PassParameter, &report.Parameter},
	}
	for _, sr := range series {
		if *sr.dst, err = s.Series(ctx, id, sr.pass); err != nil {
			return nil, err
		}
	}
	return report, nil
}
