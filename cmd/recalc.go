package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/pipeline"
)

var recalcCmd = &cobra.Command{
	Use:   "recalc",
	Short: "Rescore every stored asset with the current weights",
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

		concurrency, _ := cmd.Flags().GetInt("concurrency")
		p := pipeline.New(st, calc, currentYear(cmd), pipeline.WithConcurrency(concurrency))
		run, err := p.Recalc(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Run %s: %d assets (%d scored, %d N/A), config %s\n", //nolint:errcheck
			run.ID, run.AssetsTotal, run.AssetsScored, run.AssetsNA, truncateID(run.ConfigHash))
		return nil
	},
}

func init() {
	recalcCmd.Flags().Int("concurrency", 4, "scoring goroutines")
	addScoringFlags(recalcCmd)
	rootCmd.AddCommand(recalcCmd)
}
