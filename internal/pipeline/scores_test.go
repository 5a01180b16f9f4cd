package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aim-group/evidence-cli/internal/model"
	"github.com/aim-group/evidence-cli/internal/store"
)

func seedMergedDoc(t *testing.T, e *testEnv, pairs []model.EvidencePair) {
	t.Helper()
	require.NoError(t, store.WriteDoc(context.Background(), e.store, store.KeyMergedPairs,
		model.MergedPairs{GeneratedAt: "2026-01-01T00:00:00Z", CombinedPairs: pairs}))
}

func score(v float64) *float64 { return &v }

func TestRecomputeScores_FullChain(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	seedMergedDoc(t, e, []model.EvidencePair{
		{PairID: "fc_001_h1", PairType: model.PairTypeForecast, CombinedScore: score(0.8)},
		{PairID: "fc_002_h1", PairType: model.PairTypeForecast, CombinedScore: score(0.6)},
		{PairID: "rk_001_h1", PairType: model.PairTypeRisk, CombinedScore: score(0.4)},
	})
	require.NoError(t, e.state.Upsert(ctx, "fc_001_h1", model.StatusAccepted))
	require.NoError(t, e.state.Upsert(ctx, "fc_002_h1", model.StatusAccepted))
	require.NoError(t, e.state.Upsert(ctx, "rk_001_h1", model.StatusAccepted))

	summary, err := e.orch.RecomputeScores(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Counts.AcceptedTotal)
	assert.Equal(t, 2, summary.Counts.AcceptedForecast)
	require.NotNil(t, summary.Intervals)
	require.NotNil(t, summary.Intervals.Forecast.Mean)
	assert.InDelta(t, 0.7, *summary.Intervals.Forecast.Mean, 1e-9)

	// Calibration and distribution were recomputed alongside.
	var record model.CalibrationRecord
	require.NoError(t, store.ReadDoc(ctx, e.store, store.KeyScoreCalibrated, &record))
	assert.Contains(t, record.Calibrated, "forecast")
	assert.Contains(t, record.Calibrated, "risk")

	var dist model.StrategyDistribution
	require.NoError(t, store.ReadDoc(ctx, e.store, store.KeyStrategyDistribution, &dist))
	assert.Len(t, dist.Cells, 3)
}

func TestRecomputeScores_RequiresMergedDoc(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.orch.RecomputeScores(context.Background())
	assert.True(t, store.IsNotFound(err))
}

func TestCalibrateScores_RequiresIntervals(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.orch.CalibrateScores(context.Background(), workflowDefaults())
	require.Error(t, err)
	assert.True(t, store.IsNotFound(err))
}

func workflowDefaults() model.HumanFactors {
	return model.HumanFactors{
		ForecastAlignment:  0.5,
		RiskAlignment:      0.5,
		ForecastConfidence: 0.5,
		RiskConfidence:     0.5,
	}
}

func TestOverrideCalibration_PreservesBase(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	seedMergedDoc(t, e, []model.EvidencePair{
		{PairID: "fc_001_h1", PairType: model.PairTypeForecast, CombinedScore: score(0.8)},
		{PairID: "rk_001_h1", PairType: model.PairTypeRisk, CombinedScore: score(0.4)},
	})
	require.NoError(t, e.state.Upsert(ctx, "fc_001_h1", model.StatusAccepted))
	require.NoError(t, e.state.Upsert(ctx, "rk_001_h1", model.StatusAccepted))
	_, err := e.orch.RecomputeScores(ctx)
	require.NoError(t, err)

	var before model.CalibrationRecord
	require.NoError(t, store.ReadDoc(ctx, e.store, store.KeyScoreCalibrated, &before))

	record, err := e.orch.OverrideCalibration(ctx, 0.7, 20, 0.3, 10)
	require.NoError(t, err)
	assert.Equal(t, before.AI, record.AI, "AI intervals untouched")
	assert.InDelta(t, 0.7, record.Calibrated["forecast"].Mean, 1e-9)
	assert.InDelta(t, 20.0, record.Calibrated["forecast"].WidthPercent, 1e-9)
	assert.InDelta(t, 0.3, record.Calibrated["risk"].Mean, 1e-9)
	assert.NotEqual(t, before.GeneratedAt, record.GeneratedAt)
}

func TestOverrideCalibration_WithoutBaseRecord(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	record, err := e.orch.OverrideCalibration(ctx, 0.6, 10, 0.4, 10)
	require.NoError(t, err)
	assert.Empty(t, record.AI)
	assert.InDelta(t, 0.6, record.Calibrated["forecast"].Mean, 1e-9)
}

func TestRunDistribution(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	_, err := e.orch.RunDistribution(ctx)
	assert.True(t, store.IsNotFound(err), "needs a calibration record")

	_, err = e.orch.OverrideCalibration(ctx, 0.2, 20, 0.2, 20)
	require.NoError(t, err)

	dist, err := e.orch.RunDistribution(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, dist.Distribution)
	assert.InDelta(t, 0.1, dist.Bounds["risk"].Lower, 1e-9)
}

func TestScoreSummary_AttachesIntervals(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	_, err := e.orch.ScoreSummary(ctx)
	assert.True(t, store.IsNotFound(err))

	seedMergedDoc(t, e, []model.EvidencePair{
		{PairID: "fc_001_h1", PairType: model.PairTypeForecast, CombinedScore: score(0.8)},
	})
	require.NoError(t, e.state.Upsert(ctx, "fc_001_h1", model.StatusAccepted))
	_, err = e.orch.RecomputeScores(ctx)
	require.NoError(t, err)

	summary, err := e.orch.ScoreSummary(ctx)
	require.NoError(t, err)
	require.NotNil(t, summary.Intervals)
	assert.Equal(t, 1, summary.Intervals.Forecast.Count)
}

func TestCalibratedScores_SynthesizesFallback(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	record, err := e.orch.CalibratedScores(ctx)
	require.NoError(t, err)
	assert.Empty(t, record.AI)
	assert.Empty(t, record.Calibrated)

	mean, lower, upper := 0.6, 0.5, 0.7
	require.NoError(t, store.WriteDoc(ctx, e.store, store.KeyScoreIntervals, model.ScoreIntervals{
		Forecast: model.ScoreInterval{Count: 5, Mean: &mean, Lower: &lower, Upper: &upper},
	}))
	record, err = e.orch.CalibratedScores(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, record.Calibrated["forecast"].Mean, 1e-9)
}
