package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aim-group/evidence-cli/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func acceptAll(model.EvidencePair) string { return model.StatusAccepted }

func TestSummarize_AcceptedOnly(t *testing.T) {
	pairs := []model.EvidencePair{
		{PairID: "a", PairType: model.PairTypeForecast, CombinedScore: fp(0.8)},
		{PairID: "b", PairType: model.PairTypeForecast, CombinedScore: fp(0.6)},
		{PairID: "c", PairType: model.PairTypeRisk, CombinedScore: fp(0.4)},
	}
	statusOf := func(p model.EvidencePair) string {
		if p.PairID == "b" {
			return model.StatusDeclined
		}
		return model.StatusAccepted
	}

	summary := Summarize(pairs, statusOf)
	assert.Equal(t, 2, summary.Counts.AcceptedTotal)
	assert.Equal(t, 1, summary.Counts.AcceptedForecast)
	assert.Equal(t, 1, summary.Counts.AcceptedRisk)
	assert.Equal(t, 3, summary.Counts.AllPairs)
	assert.Equal(t, []float64{0.8}, summary.ForecastScores)
	assert.Equal(t, []float64{0.4}, summary.RiskScores)
}

func TestSummarize_SkipsUnscorable(t *testing.T) {
	pairs := []model.EvidencePair{
		{PairID: "a", PairType: model.PairTypeForecast, CombinedScore: fp(0.8)},
		{PairID: "b", PairType: model.PairTypeForecast}, // no score
		{PairID: "", CombinedScore: fp(0.9)},            // no id
	}
	summary := Summarize(pairs, acceptAll)
	assert.Equal(t, 1, summary.Counts.AcceptedTotal)
	assert.Equal(t, []float64{0.8}, summary.ForecastScores)
}

func TestSummarize_TypeFallsBackToSource(t *testing.T) {
	pairs := []model.EvidencePair{
		{PairID: "a", PairSource: model.PairTypeRisk, CombinedScore: fp(0.3)},
		{PairID: "b", PairType: model.PairTypeEvent, CombinedScore: fp(0.7)},
	}
	summary := Summarize(pairs, acceptAll)
	assert.Equal(t, []float64{0.3}, summary.RiskScores)
	// Event pairs land in the forecast bucket.
	assert.Equal(t, []float64{0.7}, summary.ForecastScores)
}

func TestSummarize_PopulationVariance(t *testing.T) {
	pairs := []model.EvidencePair{
		{PairID: "a", PairType: model.PairTypeForecast, CombinedScore: fp(0.4)},
		{PairID: "b", PairType: model.PairTypeForecast, CombinedScore: fp(0.6)},
		{PairID: "c", PairType: model.PairTypeForecast, CombinedScore: fp(0.8)},
	}
	summary := Summarize(pairs, acceptAll)
	require.Equal(t, 3, summary.Forecast.Count)
	require.NotNil(t, summary.Forecast.Mean)
	assert.InDelta(t, 0.6, *summary.Forecast.Mean, 1e-9)
	require.NotNil(t, summary.Forecast.Variance)
	// Divides by n, not n-1.
	assert.InDelta(t, 0.08/3, *summary.Forecast.Variance, 1e-9)
}

func TestSummarize_EmptyBucket(t *testing.T) {
	summary := Summarize(nil, acceptAll)
	assert.Equal(t, 0, summary.Forecast.Count)
	assert.Nil(t, summary.Forecast.Mean)
	assert.Nil(t, summary.Forecast.Variance)
	assert.Equal(t, []float64{}, summary.ForecastScores)
}
