package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/ingest"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/ranking"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored assets with live scores to a workbook",
	Long: `Export writes every stored asset to an .xlsx workbook whose columns match
the import template, followed by the computed scores. The file re-imports
cleanly. Filter and sort flags match the score command.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		view, err := viewFromFlags(cmd)
		if err != nil {
			return err
		}
		calc, err := initCalculator(cmd)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		assets, err := st.ListAssets(ctx, store.AssetFilter{})
		if err != nil {
			return eris.Wrap(err, "export: list assets")
		}
		rows := ranking.Apply(ranking.NewRows(assets, calc, currentYear(cmd)), view)

		out, _ := cmd.Flags().GetString("output")
		if err := ingest.ExportXLSX(out, rows); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d assets to %s\n", len(rows), out) //nolint:errcheck
		return nil
	},
}

func init() {
	f := exportCmd.Flags()
	f.String("output", "scored_projects.xlsx", "output path")
	f.String("project-type", "", "filter by project type (All, Redev, M&A, Owned)")
	f.String("rating", "", "filter by rating")
	f.String("iso", "", "filter by ISO/market")
	f.String("process", "", "filter by process type (P or B)")
	f.String("owner", "", "filter by plant owner")
	f.String("tech", "", "filter by technology")
	f.String("search", "", "free-text search")
	f.String("sort", "", "sort column key")
	f.Bool("desc", false, "sort descending")
	addScoringFlags(exportCmd)
	rootCmd.AddCommand(exportCmd)
}
