package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/aim-group/evidence-cli/internal/model"
)

// Well-known document keys. All cross-component communication goes through
// durable documents under these keys so a running pipeline can be observed
// by concurrent readers.
const (
	KeyMergedPairs          = "merged_pairs"
	KeyPairStatus           = "pair_status"
	KeyScoreSummary         = "score_summary"
	KeyScoreIntervals       = "score_intervals"
	KeyScoreCalibrated      = "score_human_calibrated"
	KeyStrategyDistribution = "strategy_distribution"
	KeyDistributionState    = "strategy_distribution_state"
	KeySelectedStrategy     = "selected_strategy"
	KeyHumanFactors         = "human_factors"
	KeyMatrixAdjustments    = "matrix_adjustments"
	KeyPipelineStatus       = "pipeline_status"
	KeyPipelineTimings      = "pipeline_timings"
)

// ErrNotFound reports an absent document. Callers with a documented
// fallback check for it via IsNotFound; everywhere else it is terminal.
var ErrNotFound = errors.New("store: document not found")

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Store is the persistence contract for pipeline documents and analyst
// pair decisions. Document writes must be atomic so a concurrent reader
// never observes a partially written document.
type Store interface {
	GetDocument(ctx context.Context, key string) ([]byte, error)
	PutDocument(ctx context.Context, key string, body []byte) error
	DeleteDocument(ctx context.Context, key string) error

	// ListPairStatuses returns the full decision record list in insertion
	// order; an absent list is an empty slice, not an error.
	ListPairStatuses(ctx context.Context) ([]model.PairStatusRecord, error)
	// SavePairStatuses replaces the decision record list wholesale.
	SavePairStatuses(ctx context.Context, records []model.PairStatusRecord) error

	Migrate(ctx context.Context) error
	Close() error
}

// ReadDoc loads and decodes a JSON document into out.
func ReadDoc(ctx context.Context, s Store, key string, out any) error {
	body, err := s.GetDocument(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrapf(err, "store: parse document %s", key)
	}
	return nil
}

// WriteDoc encodes v and writes it under key.
func WriteDoc(ctx context.Context, s Store, key string, v any) error {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "store: marshal document %s", key)
	}
	return s.PutDocument(ctx, key, body)
}
