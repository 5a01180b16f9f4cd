package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/aim-group/evidence-cli/internal/model"
)

var scoresCmd = &cobra.Command{
	Use:   "scores",
	Short: "Inspect and rebuild score documents",
}

var scoresRecomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Rebuild summary and intervals, then recalibrate best-effort",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		summary, err := env.orch.RecomputeScores(ctx)
		if err != nil {
			return err
		}
		return printJSON(summary)
	},
}

var (
	calibrateForecastAlignment  float64
	calibrateRiskAlignment      float64
	calibrateForecastConfidence float64
	calibrateRiskConfidence     float64
)

var scoresCalibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Apply human factors to the AI intervals",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		record, err := env.orch.CalibrateScores(ctx, model.HumanFactors{
			ForecastAlignment:  calibrateForecastAlignment,
			RiskAlignment:      calibrateRiskAlignment,
			ForecastConfidence: calibrateForecastConfidence,
			RiskConfidence:     calibrateRiskConfidence,
		})
		if err != nil {
			return err
		}
		return printJSON(record)
	},
}

var (
	overrideForecastMean     float64
	overrideForecastWidthPct float64
	overrideRiskMean         float64
	overrideRiskWidthPct     float64
)

var scoresOverrideCmd = &cobra.Command{
	Use:   "override",
	Short: "Overwrite the calibrated intervals directly",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		record, err := env.orch.OverrideCalibration(ctx,
			overrideForecastMean, overrideForecastWidthPct,
			overrideRiskMean, overrideRiskWidthPct)
		if err != nil {
			return err
		}
		return printJSON(record)
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	scoresCalibrateCmd.Flags().Float64Var(&calibrateForecastAlignment, "forecast-alignment", 0.5, "forecast alignment factor [0,1]")
	scoresCalibrateCmd.Flags().Float64Var(&calibrateRiskAlignment, "risk-alignment", 0.5, "risk alignment factor [0,1]")
	scoresCalibrateCmd.Flags().Float64Var(&calibrateForecastConfidence, "forecast-confidence", 0.5, "forecast confidence factor [0,1]")
	scoresCalibrateCmd.Flags().Float64Var(&calibrateRiskConfidence, "risk-confidence", 0.5, "risk confidence factor [0,1]")

	scoresOverrideCmd.Flags().Float64Var(&overrideForecastMean, "forecast-mean", 0, "forecast mean [0,1]")
	scoresOverrideCmd.Flags().Float64Var(&overrideForecastWidthPct, "forecast-width-percent", 0, "forecast interval width in percent")
	scoresOverrideCmd.Flags().Float64Var(&overrideRiskMean, "risk-mean", 0, "risk mean [0,1]")
	scoresOverrideCmd.Flags().Float64Var(&overrideRiskWidthPct, "risk-width-percent", 0, "risk interval width in percent")

	scoresCmd.AddCommand(scoresRecomputeCmd, scoresCalibrateCmd, scoresOverrideCmd)
	rootCmd.AddCommand(scoresCmd)
}
