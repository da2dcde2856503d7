package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/api"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/pipeline"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the scored dashboard API",
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

		port, _ := cmd.Flags().GetInt("port")
		if port == 0 {
			port = cfg.Server.Port
		}
		origins := cfg.Server.AllowedOrigins
		if v, _ := cmd.Flags().GetString("origins"); v != "" {
			origins = splitAndTrim(v)
		}

		year := currentYear(cmd)
		pl := pipeline.New(st, calc, year)
		srv := api.NewServer(st, calc, year,
			api.WithAllowedOrigins(origins),
			api.WithRecalcer(pl),
			api.WithAssetSaver(pl),
			api.WithWriteLimit(cfg.Server.WriteRPS, cfg.Server.WriteBurst),
		)
		return srv.Run(ctx, fmt.Sprintf(":%d", port))
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "server port (default from config)")
	serveCmd.Flags().String("origins", "", "comma-separated CORS origins (overrides config)")
	addScoringFlags(serveCmd)
	rootCmd.AddCommand(serveCmd)
}
