// Package scoring aggregates accepted evidence into per-category
// statistics, confidence intervals and human-calibrated intervals.
package scoring

import (
	"time"

	"go.uber.org/zap"

	"github.com/aim-group/evidence-cli/internal/model"
)

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func stats(values []float64) model.CategoryStats {
	if len(values) == 0 {
		return model.CategoryStats{Count: 0}
	}
	n := float64(len(values))
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / n
	sq := 0.0
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	variance := sq / n // population variance
	return model.CategoryStats{Count: len(values), Mean: &mean, Variance: &variance}
}

// Summarize computes the score summary over the accepted subset of the
// consolidated set. statusOf resolves each pair's effective decision.
// Risk-typed pairs feed the risk bucket; every other type, events
// included, feeds the forecast bucket. Pairs without a numeric
// combined_score are skipped.
func Summarize(pairs []model.EvidencePair, statusOf func(model.EvidencePair) string) model.ScoreSummary {
	summary := model.ScoreSummary{
		GeneratedAt:    timestamp(),
		ForecastScores: []float64{},
		RiskScores:     []float64{},
	}
	for _, p := range pairs {
		if p.PairID == "" {
			continue
		}
		if statusOf(p) != model.StatusAccepted {
			continue
		}
		if p.CombinedScore == nil {
			continue
		}
		summary.Counts.AcceptedTotal++
		ptype := p.PairType
		if ptype == "" {
			ptype = p.PairSource
		}
		if ptype == model.PairTypeRisk {
			summary.RiskScores = append(summary.RiskScores, *p.CombinedScore)
		} else {
			summary.ForecastScores = append(summary.ForecastScores, *p.CombinedScore)
		}
	}
	summary.Counts.AcceptedForecast = len(summary.ForecastScores)
	summary.Counts.AcceptedRisk = len(summary.RiskScores)
	summary.Counts.AllPairs = len(pairs)
	summary.Forecast = stats(summary.ForecastScores)
	summary.Risk = stats(summary.RiskScores)

	zap.L().Debug("score summary computed",
		zap.Int("accepted_total", summary.Counts.AcceptedTotal),
		zap.Int("forecast", summary.Counts.AcceptedForecast),
		zap.Int("risk", summary.Counts.AcceptedRisk))
	return summary
}
