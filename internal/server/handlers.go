package server

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/aim-group/evidence-cli/internal/model"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePipelineRun(w http.ResponseWriter, r *http.Request) {
	if !s.runLimiter.Allow() {
		respondError(w, http.StatusTooManyRequests, "pipeline run rate limit exceeded")
		return
	}
	result, err := s.orch.Run(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, result)
}

func (s *Server) handlePipelineStatus(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, s.orch.Status(r.Context()))
}

func (s *Server) handlePipelineClean(w http.ResponseWriter, _ *http.Request) {
	respond(w, http.StatusOK, s.orch.CleanWorkdir())
}

func (s *Server) handleMergedPairs(w http.ResponseWriter, r *http.Request) {
	merged, err := s.state.MergedPairs(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, merged)
}

func (s *Server) handleAcceptedPairs(w http.ResponseWriter, r *http.Request) {
	view, err := s.state.AcceptedPairs(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, view)
}

func (s *Server) handlePairStatuses(w http.ResponseWriter, r *http.Request) {
	records, err := s.state.ListStatuses(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, records)
}

type pairStatusUpdate struct {
	PairID string `json:"pair_id"`
	Status string `json:"status"`
}

func (s *Server) handleUpdatePairStatus(w http.ResponseWriter, r *http.Request) {
	var payload pairStatusUpdate
	if err := decodeBody(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.PairID == "" {
		respondError(w, http.StatusBadRequest, "pair_id is required")
		return
	}
	if !model.ValidStatus(payload.Status) {
		respondError(w, http.StatusUnprocessableEntity, "status must be pending, accepted or declined")
		return
	}
	if err := s.state.Upsert(r.Context(), payload.PairID, payload.Status); err != nil {
		s.respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{
		"message": "Status updated successfully",
		"pair_id": payload.PairID,
		"status":  payload.Status,
	})
}

func (s *Server) handleScoreSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.orch.ScoreSummary(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, summary)
}

func (s *Server) handleRecomputeScores(w http.ResponseWriter, r *http.Request) {
	summary, err := s.orch.RecomputeScores(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, summary)
}

func validFactor(v float64) bool { return v >= 0 && v <= 1 }

func (s *Server) handleCalibrate(w http.ResponseWriter, r *http.Request) {
	var factors model.HumanFactors
	if err := decodeBody(r, &factors); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	for _, v := range []float64{
		factors.ForecastAlignment, factors.RiskAlignment,
		factors.ForecastConfidence, factors.RiskConfidence,
	} {
		if !validFactor(v) {
			respondError(w, http.StatusUnprocessableEntity, "factors must be within [0, 1]")
			return
		}
	}
	record, err := s.orch.CalibrateScores(r.Context(), factors)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, record)
}

func (s *Server) handleCalibratedScores(w http.ResponseWriter, r *http.Request) {
	record, err := s.orch.CalibratedScores(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, record)
}

type calibrationOverride struct {
	ForecastMean         float64 `json:"forecast_mean"`
	ForecastWidthPercent float64 `json:"forecast_width_percent"`
	RiskMean             float64 `json:"risk_mean"`
	RiskWidthPercent     float64 `json:"risk_width_percent"`
}

func (s *Server) handleOverrideCalibration(w http.ResponseWriter, r *http.Request) {
	var payload calibrationOverride
	if err := decodeBody(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	record, err := s.orch.OverrideCalibration(r.Context(),
		payload.ForecastMean, payload.ForecastWidthPercent,
		payload.RiskMean, payload.RiskWidthPercent)
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, record)
}

func (s *Server) handleDistribution(w http.ResponseWriter, r *http.Request) {
	dist, err := s.orch.Distribution(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, dist)
}

func (s *Server) handleRunDistribution(w http.ResponseWriter, r *http.Request) {
	dist, err := s.orch.RunDistribution(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, dist)
}

func (s *Server) handleParsedStrategy(w http.ResponseWriter, r *http.Request) {
	parsed, err := s.orch.ParsedStrategy(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, parsed)
}

func (s *Server) handleSelectedStrategy(w http.ResponseWriter, r *http.Request) {
	selected, err := s.state.SelectedStrategy(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, selected)
}

func (s *Server) handleSaveSelectedStrategy(w http.ResponseWriter, r *http.Request) {
	var payload model.SelectedStrategy
	if err := decodeBody(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.state.SaveSelectedStrategy(r.Context(), payload); err != nil {
		s.respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, payload)
}

func (s *Server) handleHumanFactors(w http.ResponseWriter, r *http.Request) {
	factors, err := s.state.HumanFactors(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, factors)
}

// handleSaveHumanFactors persists the factors and re-runs calibration
// with them on a best-effort basis; a calibration problem never fails
// the save.
func (s *Server) handleSaveHumanFactors(w http.ResponseWriter, r *http.Request) {
	var factors model.HumanFactors
	if err := decodeBody(r, &factors); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.state.SaveHumanFactors(r.Context(), factors); err != nil {
		s.respondServiceError(w, err)
		return
	}
	if _, err := s.orch.CalibrateScores(r.Context(), factors); err != nil {
		s.log.Warn("recalibration after factor save failed", zap.Error(err))
	}
	respond(w, http.StatusOK, factors)
}

func (s *Server) handleMatrixAdjustments(w http.ResponseWriter, r *http.Request) {
	adjustments, err := s.state.MatrixAdjustments(r.Context())
	if err != nil {
		s.respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, adjustments)
}

func (s *Server) handleSaveMatrixAdjustments(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := decodeBody(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.state.SaveMatrixAdjustments(r.Context(), payload); err != nil {
		s.respondServiceError(w, err)
		return
	}
	respond(w, http.StatusOK, payload)
}
