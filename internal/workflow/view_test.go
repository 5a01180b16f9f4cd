package workflow

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aim-group/evidence-cli/internal/model"
	"github.com/aim-group/evidence-cli/internal/store"
)

func seedMerged(t *testing.T, w *StateStore, pairs []model.EvidencePair) {
	t.Helper()
	doc := model.MergedPairs{
		GeneratedAt:   "2026-01-01T00:00:00Z",
		CombinedPairs: pairs,
	}
	require.NoError(t, store.WriteDoc(context.Background(), w.store, store.KeyMergedPairs, doc))
}

func TestMergedPairs_StatusOverlay(t *testing.T) {
	ctx := context.Background()
	w := newTestState(t)

	nan := math.NaN()
	seedMerged(t, w, []model.EvidencePair{
		{PairID: "fc_001_h1", PairType: model.PairTypeForecast, Page: &nan},
		{PairID: "fc_002_h1", PairType: model.PairTypeForecast},
	})
	require.NoError(t, w.Upsert(ctx, "fc_001_h1", model.StatusAccepted))

	merged, err := w.MergedPairs(ctx)
	require.NoError(t, err)
	require.Len(t, merged.CombinedPairs, 2)
	assert.Equal(t, model.StatusAccepted, merged.CombinedPairs[0].Status)
	assert.Equal(t, model.StatusPending, merged.CombinedPairs[1].Status)
	assert.Nil(t, merged.CombinedPairs[0].Page, "NaN page cleared")
}

func TestMergedPairs_NotFound(t *testing.T) {
	w := newTestState(t)
	_, err := w.MergedPairs(context.Background())
	assert.True(t, store.IsNotFound(err))
}

func TestAcceptedPairs_Counts(t *testing.T) {
	ctx := context.Background()
	w := newTestState(t)

	seedMerged(t, w, []model.EvidencePair{
		{PairID: "fc_001_h1", PairType: model.PairTypeForecast},
		{PairID: "ev_001_h1", PairType: model.PairTypeEvent},
		{PairID: "rk_001_h1", PairType: model.PairTypeRisk},
		{PairID: "rk_002_h1", PairType: model.PairTypeRisk},
	})
	require.NoError(t, w.Upsert(ctx, "fc_001_h1", model.StatusAccepted))
	require.NoError(t, w.Upsert(ctx, "ev_001_h1", model.StatusAccepted))
	require.NoError(t, w.Upsert(ctx, "rk_001_h1", model.StatusAccepted))
	require.NoError(t, w.Upsert(ctx, "rk_002_h1", model.StatusDeclined))

	view, err := w.AcceptedPairs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Counts.Forecast)
	assert.Equal(t, 1, view.Counts.Event)
	assert.Equal(t, 1, view.Counts.Risk)
	assert.Equal(t, 3, view.Counts.TotalPairs)
	assert.Len(t, view.Pairs, 3)
}
