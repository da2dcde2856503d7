package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var weightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Print the effective scoring weights and their hash",
	RunE: func(cmd *cobra.Command, _ []string) error {
		calc, err := initCalculator(cmd)
		if err != nil {
			return err
		}
		c := calc.Config()

		out, err := yaml.Marshal(c)
		if err != nil {
			return eris.Wrap(err, "weights: marshal")
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "# hash: %s\n%s", c.Hash(), out) //nolint:errcheck
		return nil
	},
}

func init() {
	addScoringFlags(weightsCmd)
	rootCmd.AddCommand(weightsCmd)
}
