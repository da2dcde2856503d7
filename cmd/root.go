package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/config"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:     "dashboard",
	Version: version,
	Short:   "Score and rank power plant redevelopment opportunities",
	Long:    "Imports plant workbooks, computes Thermal Operating, Redevelopment and Overall scores, and serves the ranked pipeline over HTTP.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		c, err := config.LoadFile(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		zap.L().Debug("dashboard starting",
			zap.String("version", version),
			zap.String("command", cmd.Name()),
			zap.String("config", path),
			zap.String("store", cfg.Store.Driver),
		)

		return cfg.Validate(cmd.Name())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "path to a YAML config file (default ./config.yaml)")
	rootCmd.SetVersionTemplate("dashboard {{.Version}}\n")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
