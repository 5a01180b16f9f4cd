package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/aim-group/evidence-cli/internal/store"
)

// EMA weights for stage duration estimates.
const (
	emaOldWeight = 0.7
	emaNewWeight = 0.3
)

// unknownStageEstimate is assumed for stages without timing history.
const unknownStageEstimate = 30.0

// DefaultTimings seed the duration estimates before any run completed.
func DefaultTimings() map[string]float64 {
	return map[string]float64{
		"2-Hypothesen":                   10,
		"3-Embeddings":                   20,
		"3-Embeddings/Forecast-Retrieve": 30,
		"3-Embeddings/Risk-Retrieve":     20,
		"4-PremisePairs/forecast-reports": 60,
		"4-PremisePairs/risk-reports":     60,
		"5-Reports":                      10,
		"6-UserReview":                   5,
	}
}

// Timings tracks per-stage duration estimates, persisted across runs.
type Timings struct {
	store    store.Store
	estimate map[string]float64
}

// LoadTimings reads the timing history, falling back to the seeded
// defaults when the document is absent or unreadable.
func LoadTimings(ctx context.Context, s store.Store) *Timings {
	t := &Timings{store: s}
	var estimates map[string]float64
	if err := store.ReadDoc(ctx, s, store.KeyPipelineTimings, &estimates); err != nil || len(estimates) == 0 {
		estimates = DefaultTimings()
	}
	t.estimate = estimates
	return t
}

// Estimate returns the expected duration for a stage in seconds.
func (t *Timings) Estimate(stageID string) float64 {
	if v, ok := t.estimate[stageID]; ok {
		return v
	}
	return unknownStageEstimate
}

// TotalEstimate sums the estimates for an ordered stage list.
func (t *Timings) TotalEstimate(stages []Stage) float64 {
	total := 0.0
	for _, s := range stages {
		total += t.Estimate(s.ID())
	}
	return total
}

// Observe folds an observed stage duration into the history via an
// exponential moving average and persists it. Persistence problems are
// logged, not surfaced; a lost timing update never fails a run.
func (t *Timings) Observe(ctx context.Context, stageID string, seconds float64) {
	if old, ok := t.estimate[stageID]; ok {
		t.estimate[stageID] = old*emaOldWeight + seconds*emaNewWeight
	} else {
		t.estimate[stageID] = seconds
	}
	if err := store.WriteDoc(ctx, t.store, store.KeyPipelineTimings, t.estimate); err != nil {
		zap.L().Warn("stage timing not persisted",
			zap.String("stage", stageID), zap.Error(err))
	}
}
