package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/aim-group/evidence-cli/internal/config"
	"github.com/aim-group/evidence-cli/internal/consolidate"
	"github.com/aim-group/evidence-cli/internal/distribution"
	"github.com/aim-group/evidence-cli/internal/model"
	"github.com/aim-group/evidence-cli/internal/store"
	"github.com/aim-group/evidence-cli/internal/workflow"
)

const errorMessageLimit = 500

// Orchestrator sequences the pipeline stages one at a time, tracking
// progress and timing through durable documents so concurrent readers
// can observe a run in flight.
type Orchestrator struct {
	cfg    *config.Config
	store  store.Store
	state  *workflow.StateStore
	runner Runner
	cells  [][]model.MatrixCell
	group  singleflight.Group
	log    *zap.Logger

	mu    sync.Mutex
	runID string
}

// New wires an Orchestrator from its collaborators. The matrix cell
// definitions are loaded once at construction.
func New(cfg *config.Config, s store.Store, state *workflow.StateStore, runner Runner) *Orchestrator {
	return &Orchestrator{
		cfg:    cfg,
		store:  s,
		state:  state,
		runner: runner,
		cells:  distribution.LoadCells(cfg.Matrix.CellsFile),
		log:    zap.L().With(zap.String("component", "pipeline")),
	}
}

func (o *Orchestrator) stageTimeout() time.Duration {
	return time.Duration(o.cfg.Pipeline.StageTimeoutSecs) * time.Second
}

func (o *Orchestrator) scoringTimeout() time.Duration {
	return time.Duration(o.cfg.Pipeline.ScoringTimeoutSecs) * time.Second
}

func (o *Orchestrator) defaultStages() []Stage {
	return []Stage{
		{Dir: "2-Hypothesen", Script: "strategy_hypotheses.py", Label: "Generating hypotheses"},
		{Dir: "3-Embeddings/Forecast-Retrieve", Script: "retrieve_candidates.py", Label: "Retrieving forecast candidates"},
		{Dir: "3-Embeddings/Risk-Retrieve", Script: "retrieve_candidates.py", Label: "Retrieving risk candidates"},
		{Dir: "4-PremisePairs/forecast-reports", Script: "nli_premise_pairs.py", Label: "Analyzing forecast alignments"},
		{Dir: "4-PremisePairs/risk-reports", Script: "risk_nli_simple.py", Label: "Analyzing risk alignments"},
		{Dir: "5-Reports", Label: "Merging evidence reports", Fn: o.consolidateStage},
		{Dir: "6-UserReview", Label: "Initializing user review", Fn: o.initStatusStage},
	}
}

// Run executes the full pipeline. Concurrent invocations coalesce onto
// one in-flight run. A stage exiting non-zero is reported through the
// RunResult without an error; infrastructure faults and timeouts return
// an error alongside a persisted failed status.
func (o *Orchestrator) Run(ctx context.Context) (model.RunResult, error) {
	v, err, shared := o.group.Do("pipeline-run", func() (any, error) {
		return o.run(ctx)
	})
	if shared {
		o.log.Info("pipeline run coalesced with in-flight run")
	}
	result, _ := v.(model.RunResult)
	return result, err
}

func (o *Orchestrator) run(ctx context.Context) (model.RunResult, error) {
	o.mu.Lock()
	o.runID = uuid.NewString()
	o.mu.Unlock()
	o.log.Info("pipeline run starting", zap.String("run_id", o.currentRunID()))

	o.cleanupPreviousOutputs(ctx)
	timings := LoadTimings(ctx, o.store)

	presetID, err := o.selectedPresetID(ctx)
	if err != nil {
		return model.RunResult{}, err
	}
	if presetID != "" {
		bundlePath := o.presetBundlePath(presetID)
		if _, statErr := os.Stat(bundlePath); statErr == nil {
			return o.runPreset(ctx, presetID, bundlePath, timings)
		}
		if o.isKnownPreset(presetID) {
			o.writeStatus(ctx, "error",
				"Preset '"+presetID+"' selected but its evidence bundle is missing",
				model.RunStatusFailed, 0, 0)
			return model.RunResult{}, eris.Wrapf(ErrValidation,
				"preset %q selected but bundle %s is missing", presetID, bundlePath)
		}
	}

	if err := o.requireArtifacts(ctx); err != nil {
		return model.RunResult{}, err
	}

	stages := o.defaultStages()
	totalEstimate := timings.TotalEstimate(stages)
	o.writeStatus(ctx, "starting", "Initializing pipeline",
		model.RunStatusRunning, 0, totalEstimate)

	elapsed := 0.0
	for idx, stage := range stages {
		remaining := timings.Estimate(stage.ID())
		for _, later := range stages[idx+1:] {
			remaining += timings.Estimate(later.ID())
		}
		progress := 0.0
		if totalEstimate > 0 {
			progress = elapsed / totalEstimate * 100
		}
		o.writeStatus(ctx, stage.ID(), stage.Label, model.RunStatusRunning, progress, remaining)

		start := time.Now()
		if err := o.runStage(ctx, stage); err != nil {
			return o.stageError(ctx, stage, err, progress, remaining)
		}
		observed := time.Since(start).Seconds()
		timings.Observe(ctx, stage.ID(), observed)
		elapsed += observed
	}

	o.writeStatus(ctx, "completed", "Processing finished...", model.RunStatusSuccess, 100, 0)
	return model.RunResult{Status: model.RunStatusSuccess, Message: "Processing finished..."}, nil
}

func (o *Orchestrator) runStage(ctx context.Context, stage Stage) error {
	if stage.Fn != nil {
		fnCtx, cancel := context.WithTimeout(ctx, o.scoringTimeout())
		defer cancel()
		if err := stage.Fn(fnCtx); err != nil {
			if fnCtx.Err() == context.DeadlineExceeded {
				return &TimeoutError{Stage: stage, Timeout: o.scoringTimeout()}
			}
			return err
		}
		return nil
	}
	return o.runner.Run(ctx, stage, o.stageTimeout())
}

// stageError translates a stage error into the persisted status and the
// caller-facing outcome. Stage failures are reportable results, not
// errors; timeouts and infrastructure faults propagate.
func (o *Orchestrator) stageError(ctx context.Context, stage Stage, err error, progress, remaining float64) (model.RunResult, error) {
	var failure *StageFailure
	if errors.As(err, &failure) {
		o.writeStatus(ctx, stage.ID(), "Failed at "+stage.Label,
			model.RunStatusFailed, progress, remaining)
		o.log.Warn("pipeline stage failed",
			zap.String("stage", stage.ID()),
			zap.String("output", truncate(failure.Output, errorMessageLimit)))
		return model.RunResult{
			Status:  model.RunStatusFailed,
			Message: "Pipeline failed at stage: " + stage.ID(),
			Error:   truncate(failure.Output, errorMessageLimit),
		}, nil
	}
	var timeout *TimeoutError
	if errors.As(err, &timeout) {
		o.writeStatus(ctx, model.RunStatusTimeout, "Pipeline execution timed out",
			model.RunStatusFailed, 0, 0)
		return model.RunResult{}, err
	}
	o.writeStatus(ctx, "error", "Pipeline execution failed: "+truncate(err.Error(), errorMessageLimit),
		model.RunStatusFailed, 0, 0)
	return model.RunResult{}, err
}

func (o *Orchestrator) consolidateStage(ctx context.Context) error {
	loaded, err := consolidate.LoadReports(
		o.resolveAll(o.cfg.Reports.ForecastFiles),
		o.cfg.ResolveWork(o.cfg.Reports.EventFile),
		o.resolveAll(o.cfg.Reports.RiskFiles),
	)
	if err != nil {
		return err
	}
	res := consolidate.Merge(loaded.Categories)
	doc := consolidate.BuildDocument(loaded, res)
	return store.WriteDoc(ctx, o.store, store.KeyMergedPairs, doc)
}

func (o *Orchestrator) initStatusStage(ctx context.Context) error {
	var merged model.MergedPairs
	if err := store.ReadDoc(ctx, o.store, store.KeyMergedPairs, &merged); err != nil {
		return err
	}
	return o.state.InitializeForRun(ctx, merged.CombinedPairs)
}

func (o *Orchestrator) resolveAll(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = o.cfg.ResolveWork(p)
	}
	return out
}

// ParsedStrategy reads the strategy/hypotheses document the parsing
// stages write into the workdir.
func (o *Orchestrator) ParsedStrategy(_ context.Context) (*model.ParsedStrategy, error) {
	path := o.cfg.ResolveWork(o.cfg.Pipeline.StrategyFile)
	body, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, eris.Wrapf(store.ErrNotFound, "parsed strategy %s", path)
		}
		return nil, eris.Wrapf(err, "pipeline: read parsed strategy %s", path)
	}
	var parsed model.ParsedStrategy
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrapf(err, "pipeline: parse strategy document %s", path)
	}
	return &parsed, nil
}

// Status returns the current pipeline status, or the idle default when
// no run ever wrote one.
func (o *Orchestrator) Status(ctx context.Context) model.StageStatus {
	var status model.StageStatus
	if err := store.ReadDoc(ctx, o.store, store.KeyPipelineStatus, &status); err != nil {
		return model.IdleStageStatus()
	}
	return status
}

func (o *Orchestrator) currentRunID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.runID
}

func (o *Orchestrator) writeStatus(ctx context.Context, stage, label, runStatus string, progress, remaining float64) {
	status := model.StageStatus{
		RunID:              o.currentRunID(),
		Status:             runStatus,
		CurrentStage:       stage,
		StageName:          label,
		Timestamp:          time.Now().UTC().Format(time.RFC3339),
		Progress:           progress,
		EstimatedRemaining: remaining,
	}
	if err := store.WriteDoc(ctx, o.store, store.KeyPipelineStatus, status); err != nil {
		o.log.Warn("pipeline status not persisted", zap.Error(err))
	}
}

// cleanupPreviousOutputs removes the previous run's raw report files and
// the consolidated document so a fresh run never reads stale evidence.
func (o *Orchestrator) cleanupPreviousOutputs(ctx context.Context) {
	var targets []string
	targets = append(targets, o.resolveAll(o.cfg.Reports.ForecastFiles)...)
	targets = append(targets, o.cfg.ResolveWork(o.cfg.Reports.EventFile))
	targets = append(targets, o.resolveAll(o.cfg.Reports.RiskFiles)...)
	for _, path := range targets {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			o.log.Warn("stale report not removed", zap.String("path", path), zap.Error(err))
		}
	}
	if err := o.store.DeleteDocument(ctx, store.KeyMergedPairs); err != nil {
		o.log.Warn("stale merged pairs not removed", zap.Error(err))
	}
}

func (o *Orchestrator) presetBundlePath(id string) string {
	return filepath.Join(o.cfg.Presets.Dir, "pairs-"+id+".json")
}

func (o *Orchestrator) selectedPresetID(ctx context.Context) (string, error) {
	selected, err := o.state.SelectedStrategy(ctx)
	if err != nil {
		if store.IsNotFound(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(selected.StrategyID), nil
}

// isKnownPreset reports whether id appears in the preset index file or
// has a pairs bundle deployed.
func (o *Orchestrator) isKnownPreset(id string) bool {
	index := filepath.Join(o.cfg.Presets.Dir, "strategy-presets.json")
	if body, err := os.ReadFile(index); err == nil {
		var entries []struct {
			ID string `json:"id"`
		}
		if json.Unmarshal(body, &entries) == nil {
			for _, e := range entries {
				if strings.TrimSpace(e.ID) == id {
					return true
				}
			}
		}
	}
	matches, _ := filepath.Glob(filepath.Join(o.cfg.Presets.Dir, "pairs-*.json"))
	for _, m := range matches {
		stem := strings.TrimSuffix(filepath.Base(m), ".json")
		if strings.TrimPrefix(stem, "pairs-") == id {
			return true
		}
	}
	return false
}

func (o *Orchestrator) runPreset(ctx context.Context, id, bundlePath string, timings *Timings) (model.RunResult, error) {
	o.writeStatus(ctx, "preset", "Using preset evidence",
		model.RunStatusRunning, 0, timings.Estimate("6-UserReview"))

	body, err := os.ReadFile(bundlePath)
	if err != nil {
		return o.presetFail(ctx, eris.Wrapf(err, "pipeline: read preset bundle %s", bundlePath))
	}
	var bundle model.PresetBundle
	if err := json.Unmarshal(body, &bundle); err != nil {
		return o.presetFail(ctx, eris.Wrapf(err, "pipeline: parse preset bundle %s", bundlePath))
	}
	if bundle.CombinedPairs == nil {
		return o.presetFail(ctx, eris.Errorf("pipeline: preset %q missing combined_pairs", id))
	}

	merged := model.MergedPairs{
		GeneratedAt:   bundle.GeneratedAt,
		SourceFiles:   bundle.SourceFiles,
		Metadata:      bundle.Metadata,
		CombinedPairs: bundle.CombinedPairs,
	}
	if merged.GeneratedAt == "" {
		merged.GeneratedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if bundle.Counts != nil {
		merged.Counts = *bundle.Counts
	} else {
		merged.Counts = countByType(bundle.CombinedPairs)
	}
	if merged.Metadata == nil {
		merged.Metadata = map[string]any{}
	}
	merged.Metadata["preset_strategy_id"] = id
	if err := store.WriteDoc(ctx, o.store, store.KeyMergedPairs, merged); err != nil {
		return o.presetFail(ctx, err)
	}

	start := time.Now()
	if err := o.state.InitializeForRun(ctx, merged.CombinedPairs); err != nil {
		return o.presetFail(ctx, err)
	}
	timings.Observe(ctx, "6-UserReview", time.Since(start).Seconds())

	if _, err := o.RecomputeScores(ctx); err != nil {
		return o.presetFail(ctx, eris.Wrap(err, "pipeline: preset scoring"))
	}

	o.writeStatus(ctx, "completed", "Preset evidence ready...", model.RunStatusSuccess, 100, 0)
	return model.RunResult{Status: model.RunStatusSuccess, Message: "Preset evidence ready..."}, nil
}

func (o *Orchestrator) presetFail(ctx context.Context, err error) (model.RunResult, error) {
	o.writeStatus(ctx, "error", "Preset pipeline failed: "+truncate(err.Error(), errorMessageLimit),
		model.RunStatusFailed, 0, 0)
	return model.RunResult{}, err
}

func countByType(pairs []model.EvidencePair) model.PairCounts {
	counts := model.PairCounts{TotalPairs: len(pairs)}
	for _, p := range pairs {
		switch p.PairType {
		case model.PairTypeForecast:
			counts.Forecast++
		case model.PairTypeEvent:
			counts.Event++
		case model.PairTypeRisk:
			counts.Risk++
		}
	}
	return counts
}

// requireArtifacts verifies the four upstream preprocessing artifacts,
// copying each missing one from the defaults directory. All artifacts
// still missing afterwards are reported in a single error and no stage
// runs.
func (o *Orchestrator) requireArtifacts(ctx context.Context) error {
	artifacts := []struct {
		rel    string
		remedy string
	}{
		{o.cfg.Artifacts.RiskCatalog, "run risk preprocessing"},
		{o.cfg.Artifacts.PremiseCatalog, "run premise merging"},
		{o.cfg.Artifacts.ForecastIndex, "build the forecast vector index"},
		{o.cfg.Artifacts.RiskIndex, "build the risk vector index"},
	}
	var missing []string
	for _, a := range artifacts {
		target := o.cfg.ResolveWork(a.rel)
		if _, err := os.Stat(target); err == nil {
			continue
		}
		fallback := filepath.Join(o.cfg.Artifacts.DefaultsDir, a.rel)
		if _, err := os.Stat(fallback); err == nil {
			if err := copyFile(fallback, target); err == nil {
				continue
			} else {
				missing = append(missing, target+" (copy from "+fallback+" failed)")
				continue
			}
		}
		missing = append(missing, target+" ("+a.remedy+")")
	}
	if len(missing) > 0 {
		message := "Preprocessing required: " + strings.Join(missing, "; ")
		o.writeStatus(ctx, "preprocessing", message, model.RunStatusFailed, 0, 0)
		return eris.Wrap(ErrValidation, message)
	}
	return nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return eris.Wrapf(err, "pipeline: create dir for %s", dst)
	}
	in, err := os.Open(src)
	if err != nil {
		return eris.Wrapf(err, "pipeline: open %s", src)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return eris.Wrapf(err, "pipeline: create %s", dst)
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return eris.Wrapf(err, "pipeline: copy %s", dst)
	}
	return nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
