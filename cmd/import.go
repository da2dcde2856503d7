package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/pipeline"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a plant workbook and snapshot its scores",
	Long: `Import reads an .xlsx or .csv workbook (or an ftp:// URL), upserts every
row by project name and records a scored snapshot under a new run.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		calc, err := initCalculator(cmd)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		file, _ := cmd.Flags().GetString("file")
		p := pipeline.New(st, calc, currentYear(cmd))
		run, err := p.Import(ctx, file, importOptions(cmd))
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Run %s: %d assets (%d scored, %d N/A)\n", //nolint:errcheck
			run.ID, run.AssetsTotal, run.AssetsScored, run.AssetsNA)
		return nil
	},
}

func init() {
	importCmd.Flags().String("file", "", "workbook path (.xlsx/.csv) or ftp:// URL (required)")
	_ = importCmd.MarkFlagRequired("file")
	importCmd.Flags().String("sheet", "", "sheet name for xlsx files (overrides config)")
	addScoringFlags(importCmd)
	rootCmd.AddCommand(importCmd)
}
