package workflow

import (
	"context"

	"github.com/aim-group/evidence-cli/internal/model"
	"github.com/aim-group/evidence-cli/internal/store"
)

// SelectedStrategy loads the analyst's current strategy choice.
func (w *StateStore) SelectedStrategy(ctx context.Context) (*model.SelectedStrategy, error) {
	var s model.SelectedStrategy
	if err := store.ReadDoc(ctx, w.store, store.KeySelectedStrategy, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// SaveSelectedStrategy persists the strategy choice.
func (w *StateStore) SaveSelectedStrategy(ctx context.Context, s model.SelectedStrategy) error {
	return store.WriteDoc(ctx, w.store, store.KeySelectedStrategy, s)
}

// DefaultHumanFactors is the neutral factor set used until an analyst
// saves their own.
func DefaultHumanFactors() model.HumanFactors {
	return model.HumanFactors{
		ForecastAlignment:  0.5,
		RiskAlignment:      0.5,
		ForecastConfidence: 0.5,
		RiskConfidence:     0.5,
	}
}

// HumanFactors loads the stored calibration factors, falling back to the
// neutral defaults when none were saved yet.
func (w *StateStore) HumanFactors(ctx context.Context) (model.HumanFactors, error) {
	var f model.HumanFactors
	if err := store.ReadDoc(ctx, w.store, store.KeyHumanFactors, &f); err != nil {
		if store.IsNotFound(err) {
			return DefaultHumanFactors(), nil
		}
		return model.HumanFactors{}, err
	}
	return f, nil
}

// SaveHumanFactors persists the calibration factors.
func (w *StateStore) SaveHumanFactors(ctx context.Context, f model.HumanFactors) error {
	return store.WriteDoc(ctx, w.store, store.KeyHumanFactors, f)
}

// MatrixAdjustments loads the frontend's matrix adjustment document. The
// content is opaque to the pipeline; an absent document is an empty map.
func (w *StateStore) MatrixAdjustments(ctx context.Context) (map[string]any, error) {
	var m map[string]any
	if err := store.ReadDoc(ctx, w.store, store.KeyMatrixAdjustments, &m); err != nil {
		if store.IsNotFound(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}
	return m, nil
}

// SaveMatrixAdjustments persists the matrix adjustment document as-is.
func (w *StateStore) SaveMatrixAdjustments(ctx context.Context, m map[string]any) error {
	return store.WriteDoc(ctx, w.store, store.KeyMatrixAdjustments, m)
}
