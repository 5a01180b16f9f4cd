package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aim-group/evidence-cli/internal/distribution"
	"github.com/aim-group/evidence-cli/internal/model"
	"github.com/aim-group/evidence-cli/internal/scoring"
	"github.com/aim-group/evidence-cli/internal/store"
)

// RecomputeScores rebuilds the score summary and intervals from the
// consolidated set, then re-runs calibration and distribution on a
// best-effort basis. The primary summary is always returned when it
// could be computed; secondary failures are logged and swallowed.
func (o *Orchestrator) RecomputeScores(ctx context.Context) (*model.ScoreSummary, error) {
	var merged model.MergedPairs
	if err := store.ReadDoc(ctx, o.store, store.KeyMergedPairs, &merged); err != nil {
		return nil, err
	}
	idx, err := o.state.LoadIndex(ctx)
	if err != nil {
		return nil, err
	}

	summary := scoring.Summarize(merged.CombinedPairs, idx.Resolve)
	if err := store.WriteDoc(ctx, o.store, store.KeyScoreSummary, summary); err != nil {
		return nil, err
	}
	intervals := scoring.BuildIntervals(summary)
	if err := store.WriteDoc(ctx, o.store, store.KeyScoreIntervals, intervals); err != nil {
		return nil, err
	}

	// Secondary postprocessing is best-effort only.
	factors, ferr := o.state.HumanFactors(ctx)
	if ferr != nil {
		o.log.Warn("calibration skipped, human factors unreadable", zap.Error(ferr))
	} else {
		record := scoring.Calibrate(intervals, factors)
		if err := store.WriteDoc(ctx, o.store, store.KeyScoreCalibrated, record); err != nil {
			o.log.Warn("calibration not persisted", zap.Error(err))
		} else if err := o.computeDistribution(ctx, record); err != nil {
			o.log.Warn("distribution recompute failed", zap.Error(err))
		}
	}

	summary.Intervals = &intervals
	return &summary, nil
}

// ScoreSummary loads the stored summary with the interval document
// attached when present.
func (o *Orchestrator) ScoreSummary(ctx context.Context) (*model.ScoreSummary, error) {
	var summary model.ScoreSummary
	if err := store.ReadDoc(ctx, o.store, store.KeyScoreSummary, &summary); err != nil {
		return nil, err
	}
	var intervals model.ScoreIntervals
	if err := store.ReadDoc(ctx, o.store, store.KeyScoreIntervals, &intervals); err == nil {
		summary.Intervals = &intervals
	}
	return &summary, nil
}

// CalibrateScores applies the given human factors to the stored AI
// intervals and persists the audit snapshot.
func (o *Orchestrator) CalibrateScores(ctx context.Context, factors model.HumanFactors) (*model.CalibrationRecord, error) {
	var intervals model.ScoreIntervals
	if err := store.ReadDoc(ctx, o.store, store.KeyScoreIntervals, &intervals); err != nil {
		if store.IsNotFound(err) {
			return nil, eris.Wrap(err, "pipeline: score intervals missing, run scoring first")
		}
		return nil, err
	}
	record := scoring.Calibrate(intervals, factors)
	if err := store.WriteDoc(ctx, o.store, store.KeyScoreCalibrated, record); err != nil {
		return nil, err
	}
	return &record, nil
}

// CalibratedScores loads the calibration snapshot. When calibration
// never ran, a payload is synthesized from the raw AI intervals so
// callers always get a usable shape.
func (o *Orchestrator) CalibratedScores(ctx context.Context) (*model.CalibrationRecord, error) {
	var record model.CalibrationRecord
	err := store.ReadDoc(ctx, o.store, store.KeyScoreCalibrated, &record)
	if err == nil {
		return &record, nil
	}
	if !store.IsNotFound(err) {
		return nil, err
	}
	var intervals model.ScoreIntervals
	if ierr := store.ReadDoc(ctx, o.store, store.KeyScoreIntervals, &intervals); ierr != nil {
		fallback := scoring.FallbackCalibration(nil)
		return &fallback, nil
	}
	fallback := scoring.FallbackCalibration(&intervals)
	return &fallback, nil
}

// OverrideCalibration replaces the calibrated block with intervals built
// from analyst-supplied means and width percentages. The rest of the
// stored snapshot, factors and AI intervals included, is preserved.
func (o *Orchestrator) OverrideCalibration(ctx context.Context, forecastMean, forecastWidthPct, riskMean, riskWidthPct float64) (*model.CalibrationRecord, error) {
	var record model.CalibrationRecord
	if err := store.ReadDoc(ctx, o.store, store.KeyScoreCalibrated, &record); err != nil {
		if !store.IsNotFound(err) {
			return nil, err
		}
		record = model.CalibrationRecord{
			AI:          map[string]model.ScoreInterval{},
			SourceFiles: map[string]any{},
		}
	}
	record.Calibrated = map[string]model.CalibratedInterval{
		"forecast": scoring.OverrideInterval(forecastMean, forecastWidthPct),
		"risk":     scoring.OverrideInterval(riskMean, riskWidthPct),
	}
	if record.SourceFiles == nil {
		record.SourceFiles = map[string]any{}
	}
	record.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
	if err := store.WriteDoc(ctx, o.store, store.KeyScoreCalibrated, record); err != nil {
		return nil, err
	}
	return &record, nil
}

// RunDistribution recomputes the quadrant distribution from the stored
// calibration and persists it.
func (o *Orchestrator) RunDistribution(ctx context.Context) (*model.StrategyDistribution, error) {
	var record model.CalibrationRecord
	if err := store.ReadDoc(ctx, o.store, store.KeyScoreCalibrated, &record); err != nil {
		return nil, err
	}
	if err := o.computeDistribution(ctx, record); err != nil {
		return nil, err
	}
	return o.Distribution(ctx)
}

// Distribution loads the stored quadrant distribution document.
func (o *Orchestrator) Distribution(ctx context.Context) (*model.StrategyDistribution, error) {
	var dist model.StrategyDistribution
	if err := store.ReadDoc(ctx, o.store, store.KeyStrategyDistribution, &dist); err != nil {
		return nil, err
	}
	return &dist, nil
}

func (o *Orchestrator) computeDistribution(ctx context.Context, record model.CalibrationRecord) error {
	risk, ok := record.Calibrated["risk"]
	if !ok {
		return eris.New("pipeline: calibrated risk interval missing")
	}
	forecast, ok := record.Calibrated["forecast"]
	if !ok {
		return eris.New("pipeline: calibrated forecast interval missing")
	}
	dist := distribution.Compute(risk, forecast, o.cells)
	return store.WriteDoc(ctx, o.store, store.KeyStrategyDistribution, dist)
}
