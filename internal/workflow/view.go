package workflow

import (
	"context"
	"math"

	"github.com/aim-group/evidence-cli/internal/model"
	"github.com/aim-group/evidence-cli/internal/store"
)

// MergedPairs loads the consolidated set with the current decisions
// overlaid onto each pair's status field. Page values that arrived as
// NaN are cleared so the document stays serializable.
func (w *StateStore) MergedPairs(ctx context.Context) (*model.MergedPairs, error) {
	var merged model.MergedPairs
	if err := store.ReadDoc(ctx, w.store, store.KeyMergedPairs, &merged); err != nil {
		return nil, err
	}
	idx, err := w.LoadIndex(ctx)
	if err != nil {
		return nil, err
	}
	for i := range merged.CombinedPairs {
		p := &merged.CombinedPairs[i]
		p.Status = idx.Resolve(*p)
		if p.Page != nil && math.IsNaN(*p.Page) {
			p.Page = nil
		}
	}
	return &merged, nil
}

// AcceptedView is the accepted-only slice of the consolidated set.
type AcceptedView struct {
	GeneratedAt string           `json:"generated_at"`
	Counts      model.PairCounts `json:"counts"`
	Pairs       []model.EvidencePair `json:"pairs"`
}

// AcceptedPairs returns the accepted subset with per-category counts.
func (w *StateStore) AcceptedPairs(ctx context.Context) (*AcceptedView, error) {
	merged, err := w.MergedPairs(ctx)
	if err != nil {
		return nil, err
	}
	view := &AcceptedView{
		GeneratedAt: merged.GeneratedAt,
		Pairs:       []model.EvidencePair{},
	}
	for _, p := range merged.CombinedPairs {
		if p.Status != model.StatusAccepted {
			continue
		}
		view.Pairs = append(view.Pairs, p)
		switch p.PairType {
		case model.PairTypeRisk:
			view.Counts.Risk++
		case model.PairTypeEvent:
			view.Counts.Event++
		default:
			view.Counts.Forecast++
		}
	}
	view.Counts.TotalPairs = len(view.Pairs)
	return view, nil
}
