package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/ingest"
)

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Write an empty import workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out, _ := cmd.Flags().GetString("output")
		if err := ingest.WriteTemplate(out); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Template written to %s\n", out) //nolint:errcheck
		return nil
	},
}

func init() {
	templateCmd.Flags().String("output", "import_template.xlsx", "output path")
	rootCmd.AddCommand(templateCmd)
}
