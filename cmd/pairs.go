package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/aim-group/evidence-cli/internal/model"
)

var pairsCmd = &cobra.Command{
	Use:   "pairs",
	Short: "Inspect and update pair review decisions",
}

var pairsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List all pair decision records",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		records, err := env.state.ListStatuses(ctx)
		if err != nil {
			return err
		}
		return printJSON(records)
	},
}

var pairsSetCmd = &cobra.Command{
	Use:   "set <pair_id> <status>",
	Short: "Record a decision for one pair",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pairID, status := args[0], args[1]
		if !model.ValidStatus(status) {
			return eris.Errorf("status must be pending, accepted or declined, got %q", status)
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		return env.state.Upsert(ctx, pairID, status)
	},
}

func init() {
	pairsCmd.AddCommand(pairsStatusCmd, pairsSetCmd)
	rootCmd.AddCommand(pairsCmd)
}
