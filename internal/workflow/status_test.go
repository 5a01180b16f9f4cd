package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aim-group/evidence-cli/internal/model"
	"github.com/aim-group/evidence-cli/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestState(t *testing.T) *StateStore {
	t.Helper()
	s, err := store.NewFile(t.TempDir())
	require.NoError(t, err)
	return New(s)
}

func TestStatusIndex_ResolvePriority(t *testing.T) {
	idx := BuildIndex([]model.PairStatusRecord{
		{PairID: "fc_001_h1", Status: model.StatusAccepted},
		{PairID: "fc_002_h1", Status: model.StatusDeclined},
	})

	tests := []struct {
		name string
		pair model.EvidencePair
		want string
	}{
		{"exact match", model.EvidencePair{PairID: "fc_001_h1"}, model.StatusAccepted},
		{"prefix match inherits decision", model.EvidencePair{PairID: "fc_002_h7"}, model.StatusDeclined},
		{"embedded status", model.EvidencePair{PairID: "fc_099_h1", Status: model.StatusAccepted}, model.StatusAccepted},
		{"default pending", model.EvidencePair{PairID: "fc_099_h1"}, model.StatusPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, idx.Resolve(tt.pair))
		})
	}
}

func TestStatusIndex_ExactBeatsPrefix(t *testing.T) {
	idx := BuildIndex([]model.PairStatusRecord{
		{PairID: "fc_001_h1", Status: model.StatusDeclined},
		{PairID: "fc_001_h2", Status: model.StatusAccepted},
	})
	// fc_001_h1 has its own record even though the shared prefix carries
	// the later record's status.
	assert.Equal(t, model.StatusDeclined, idx.Resolve(model.EvidencePair{PairID: "fc_001_h1"}))
}

func TestUpsert_AppendVsMutate(t *testing.T) {
	ctx := context.Background()
	w := newTestState(t)

	require.NoError(t, w.Upsert(ctx, "a", model.StatusAccepted))
	require.NoError(t, w.Upsert(ctx, "b", model.StatusDeclined))

	records, err := w.ListStatuses(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Known id mutates in place, list length unchanged.
	require.NoError(t, w.Upsert(ctx, "a", model.StatusDeclined))
	records, err = w.ListStatuses(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].PairID)
	assert.Equal(t, model.StatusDeclined, records[0].Status)
}

func TestUpsert_RejectsInvalid(t *testing.T) {
	ctx := context.Background()
	w := newTestState(t)

	assert.Error(t, w.Upsert(ctx, "", model.StatusAccepted))
	assert.Error(t, w.Upsert(ctx, "a", "maybe"))
}

func TestInitializeForRun_KeepsDecisions(t *testing.T) {
	ctx := context.Background()
	w := newTestState(t)

	require.NoError(t, w.Upsert(ctx, "old", model.StatusAccepted))
	require.NoError(t, w.Upsert(ctx, "gone", model.StatusDeclined))

	require.NoError(t, w.InitializeForRun(ctx, []model.EvidencePair{
		{PairID: "old"},
		{PairID: "new"},
		{PairID: ""}, // skipped
	}))

	records, err := w.ListStatuses(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)

	byID := map[string]string{}
	for _, r := range records {
		byID[r.PairID] = r.Status
	}
	assert.Equal(t, model.StatusAccepted, byID["old"], "existing decision kept")
	assert.Equal(t, model.StatusDeclined, byID["gone"], "vanished id retained")
	assert.Equal(t, model.StatusPending, byID["new"], "new id seeded pending")
}

func TestHumanFactors_DefaultsWhenAbsent(t *testing.T) {
	ctx := context.Background()
	w := newTestState(t)

	factors, err := w.HumanFactors(ctx)
	require.NoError(t, err)
	assert.Equal(t, DefaultHumanFactors(), factors)

	saved := model.HumanFactors{ForecastAlignment: 0.9, RiskAlignment: 0.1, ForecastConfidence: 0.7, RiskConfidence: 0.3}
	require.NoError(t, w.SaveHumanFactors(ctx, saved))
	factors, err = w.HumanFactors(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, factors)
}

func TestMatrixAdjustments_Roundtrip(t *testing.T) {
	ctx := context.Background()
	w := newTestState(t)

	adjustments, err := w.MatrixAdjustments(ctx)
	require.NoError(t, err)
	assert.Empty(t, adjustments)

	require.NoError(t, w.SaveMatrixAdjustments(ctx, map[string]any{"cell-0-0": "renamed"}))
	adjustments, err = w.MatrixAdjustments(ctx)
	require.NoError(t, err)
	assert.Equal(t, "renamed", adjustments["cell-0-0"])
}
