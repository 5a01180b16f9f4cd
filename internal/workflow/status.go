// Package workflow owns the durable analyst state: pair decisions, the
// selected strategy, human calibration factors and matrix adjustments.
package workflow

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aim-group/evidence-cli/internal/model"
	"github.com/aim-group/evidence-cli/internal/store"
)

// StateStore reads and writes analyst state through the document store.
type StateStore struct {
	store store.Store
	log   *zap.Logger
}

// New creates a StateStore on top of s.
func New(s store.Store) *StateStore {
	return &StateStore{store: s, log: zap.L().With(zap.String("component", "workflow"))}
}

// StatusIndex resolves pair decisions. Besides exact ids it indexes each
// pair_id with its trailing "_<suffix>" stripped, so hypothesis variants
// derived from the same premise inherit one decision.
type StatusIndex struct {
	exact  map[string]string
	prefix map[string]string
}

func statusPrefix(pairID string) string {
	if idx := strings.LastIndex(pairID, "_"); idx > 0 {
		return pairID[:idx]
	}
	return ""
}

// BuildIndex constructs the exact and prefix lookup maps from records.
func BuildIndex(records []model.PairStatusRecord) *StatusIndex {
	idx := &StatusIndex{
		exact:  make(map[string]string, len(records)),
		prefix: make(map[string]string, len(records)),
	}
	for _, r := range records {
		if r.PairID == "" {
			continue
		}
		idx.exact[r.PairID] = r.Status
		if prefix := statusPrefix(r.PairID); prefix != "" {
			idx.prefix[prefix] = r.Status
		}
	}
	return idx
}

// Resolve returns the effective status for a pair: exact record, else
// prefix record, else the pair's own embedded status, else pending.
func (idx *StatusIndex) Resolve(p model.EvidencePair) string {
	if s, ok := idx.exact[p.PairID]; ok {
		return s
	}
	if prefix := statusPrefix(p.PairID); prefix != "" {
		if s, ok := idx.prefix[prefix]; ok {
			return s
		}
	}
	if p.Status != "" {
		return p.Status
	}
	return model.StatusPending
}

// LoadIndex reads the stored records and builds their lookup index.
func (w *StateStore) LoadIndex(ctx context.Context) (*StatusIndex, error) {
	records, err := w.store.ListPairStatuses(ctx)
	if err != nil {
		return nil, err
	}
	return BuildIndex(records), nil
}

// Upsert records a decision. An existing record for the id is mutated in
// place, anything else appends; records are never deleted.
func (w *StateStore) Upsert(ctx context.Context, pairID, status string) error {
	if pairID == "" {
		return eris.New("workflow: pair_id required")
	}
	if !model.ValidStatus(status) {
		return eris.Errorf("workflow: invalid status %q", status)
	}
	records, err := w.store.ListPairStatuses(ctx)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	found := false
	for i := range records {
		if records[i].PairID == pairID {
			records[i].Status = status
			records[i].UpdatedAt = now
			found = true
			break
		}
	}
	if !found {
		records = append(records, model.PairStatusRecord{
			PairID: pairID, Status: status, UpdatedAt: now,
		})
	}
	w.log.Debug("pair status upserted",
		zap.String("pair_id", pairID),
		zap.String("status", status),
		zap.Bool("created", !found))
	return w.store.SavePairStatuses(ctx, records)
}

// InitializeForRun seeds pending records for every new pair_id in a fresh
// consolidated set. Existing decisions are kept untouched, and records
// for ids no longer present are retained so decisions survive re-runs.
func (w *StateStore) InitializeForRun(ctx context.Context, pairs []model.EvidencePair) error {
	records, err := w.store.ListPairStatuses(ctx)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(records))
	for _, r := range records {
		known[r.PairID] = true
	}
	now := time.Now().UTC().Format(time.RFC3339)
	added := 0
	for _, p := range pairs {
		if p.PairID == "" || known[p.PairID] {
			continue
		}
		known[p.PairID] = true
		records = append(records, model.PairStatusRecord{
			PairID: p.PairID, Status: model.StatusPending, UpdatedAt: now,
		})
		added++
	}
	w.log.Info("pair statuses initialized",
		zap.Int("pairs", len(pairs)),
		zap.Int("added", added),
		zap.Int("total_records", len(records)))
	return w.store.SavePairStatuses(ctx, records)
}

// ListStatuses exposes the raw record list.
func (w *StateStore) ListStatuses(ctx context.Context) ([]model.PairStatusRecord, error) {
	return w.store.ListPairStatuses(ctx)
}
