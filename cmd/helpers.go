package main

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/config"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/ingest"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/resilience"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/scoring"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/store"
)

// initStore opens the configured store and brings its schema up to date.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, store.Config{
		Driver:      cfg.Store.Driver,
		DatabaseURL: cfg.Store.DatabaseURL,
		MaxConns:    cfg.Store.MaxConns,
		MinConns:    cfg.Store.MinConns,
	})
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// addScoringFlags registers the flags read by applyScoringOverrides.
func addScoringFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("weights", "", "YAML weights file (overrides config)")
	f.Float64("repower-multiplier", 0, "redevelopment multiplier for repower projects (overrides config)")
	f.Int("year", 0, "current year for Operating/Future status (default from config or clock)")
}

// applyScoringOverrides returns a copy of the base config with CLI flag overrides applied.
func applyScoringOverrides(cmd *cobra.Command, base config.ScoringConfig) config.ScoringConfig {
	c := base
	if v, _ := cmd.Flags().GetString("weights"); v != "" {
		c.WeightsFile = v
	}
	if v, _ := cmd.Flags().GetFloat64("repower-multiplier"); v > 0 {
		c.RepowerMultiplier = v
	}
	return c
}

// initCalculator resolves the scoring config with flag overrides.
func initCalculator(cmd *cobra.Command) (scoring.Calculator, error) {
	sc, err := applyScoringOverrides(cmd, cfg.Scoring).Resolve()
	if err != nil {
		return scoring.Calculator{}, eris.Wrap(err, "scoring config")
	}
	return scoring.NewCalculator(sc), nil
}

func currentYear(cmd *cobra.Command) int {
	if v, _ := cmd.Flags().GetInt("year"); v > 0 {
		return v
	}
	return cfg.Import.Year()
}

func importOptions(cmd *cobra.Command) ingest.Options {
	opts := ingest.Options{
		SheetName:  cfg.Import.Sheet,
		SheetIndex: cfg.Import.SheetIndex,
		FTPTimeout: cfg.Import.FTPTimeout(),
		FTPRetry:   resilience.RetryConfig{MaxAttempts: cfg.Import.FTPAttempts},
	}
	if v, _ := cmd.Flags().GetString("sheet"); v != "" {
		opts.SheetName = v
	}
	return opts
}

// openOutput returns stdout when path is empty.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "create output file %s", path)
	}
	return f, f.Close, nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
