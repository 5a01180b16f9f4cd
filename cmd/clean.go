package main

import (
	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove derived pipeline outputs, keeping preprocessing artifacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		return printJSON(env.orch.CleanWorkdir())
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}
