package scoring

import (
	"math"

	"github.com/aim-group/evidence-cli/internal/model"
)

const (
	// maxAlignmentAdjustment caps how far a fully aligned or fully
	// misaligned analyst can shift the interval mean.
	maxAlignmentAdjustment = 0.4

	// maxConfScale is the width multiplier at zero confidence; full
	// confidence collapses the width to zero.
	maxConfScale = 1.5

	// minEffectiveWidth is the width a low-confidence interval is widened
	// toward before scaling, so scaling has something to expand.
	minEffectiveWidth = 0.08

	neutralEpsilon = 1e-9
)

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// CalibrateDimension applies the alignment/confidence transform to one AI
// interval. Neutral factors (both exactly 0.5) pass the interval through
// unchanged apart from [0,1] clamping.
func CalibrateDimension(ai model.ScoreInterval, alignment, confidence float64) model.CalibratedInterval {
	meanAI := 0.0
	if ai.Mean != nil {
		meanAI = *ai.Mean
	}
	lowerAI, upperAI := meanAI, meanAI
	if ai.Lower != nil && ai.Upper != nil {
		lowerAI = *ai.Lower
		upperAI = *ai.Upper
	}
	widthAI := math.Max(0, upperAI-lowerAI)
	widthAIPct := widthAI * 100
	if ai.WidthPercent != nil {
		widthAIPct = *ai.WidthPercent
	}

	if math.Abs(alignment-0.5) < neutralEpsilon && math.Abs(confidence-0.5) < neutralEpsilon {
		pct := widthAIPct
		if pct <= 0 {
			pct = widthAI * 100
		}
		return model.CalibratedInterval{
			Mean:         clamp01(meanAI),
			Lower:        clamp01(lowerAI),
			Upper:        clamp01(upperAI),
			Width:        widthAI,
			WidthPercent: pct,
		}
	}

	delta := math.Max(-1, math.Min(1, (alignment-0.5)/0.5)) * maxAlignmentAdjustment
	meanCal := clamp01(meanAI * (1 + delta))
	scale := maxConfScale - confidence*maxConfScale

	effectiveWidth := widthAI
	if confidence < 0.5 && widthAI < minEffectiveWidth {
		widenRatio := (0.5 - confidence) / 0.5
		effectiveWidth = widthAI + (minEffectiveWidth-widthAI)*widenRatio
	}
	widthCal := effectiveWidth * scale
	lower := math.Max(0, meanCal-widthCal/2)
	upper := math.Min(1, meanCal+widthCal/2)
	widthFinal := math.Max(0, upper-lower)
	return model.CalibratedInterval{
		Mean:         meanCal,
		Lower:        lower,
		Upper:        upper,
		Width:        widthFinal,
		WidthPercent: widthFinal * 100,
	}
}

// Calibrate applies human factors to both AI intervals and returns the
// full audit snapshot. Factors are clamped to [0,1] first.
func Calibrate(intervals model.ScoreIntervals, factors model.HumanFactors) model.CalibrationRecord {
	factors.ForecastAlignment = clamp01(factors.ForecastAlignment)
	factors.RiskAlignment = clamp01(factors.RiskAlignment)
	factors.ForecastConfidence = clamp01(factors.ForecastConfidence)
	factors.RiskConfidence = clamp01(factors.RiskConfidence)

	return model.CalibrationRecord{
		GeneratedAt:  timestamp(),
		SourceFiles:  map[string]any{"score_intervals": "derived"},
		HumanFactors: &factors,
		AI: map[string]model.ScoreInterval{
			"forecast": intervals.Forecast,
			"risk":     intervals.Risk,
		},
		Calibrated: map[string]model.CalibratedInterval{
			"forecast": CalibrateDimension(intervals.Forecast, factors.ForecastAlignment, factors.ForecastConfidence),
			"risk":     CalibrateDimension(intervals.Risk, factors.RiskAlignment, factors.RiskConfidence),
		},
	}
}

// OverrideInterval rebuilds a calibrated interval from an explicit mean
// and width percentage supplied by the analyst.
func OverrideInterval(mean, widthPercent float64) model.CalibratedInterval {
	meanClamped := clamp01(mean)
	width := math.Max(0, widthPercent) / 100
	half := width / 2
	lower := math.Max(0, meanClamped-half)
	upper := math.Min(1, meanClamped+half)
	widthFinal := upper - lower
	return model.CalibratedInterval{
		Mean:         meanClamped,
		Lower:        lower,
		Upper:        upper,
		Width:        widthFinal,
		WidthPercent: widthFinal * 100,
	}
}

// FallbackCalibration synthesizes a calibration payload from raw AI
// intervals for callers that ask for calibrated scores before any
// calibration ran. The AI intervals double as the calibrated block.
func FallbackCalibration(intervals *model.ScoreIntervals) model.CalibrationRecord {
	record := model.CalibrationRecord{
		GeneratedAt: timestamp(),
		SourceFiles: map[string]any{},
		AI:          map[string]model.ScoreInterval{},
		Calibrated:  map[string]model.CalibratedInterval{},
	}
	if intervals == nil {
		return record
	}
	record.AI["forecast"] = intervals.Forecast
	record.AI["risk"] = intervals.Risk
	record.Calibrated["forecast"] = asCalibrated(intervals.Forecast)
	record.Calibrated["risk"] = asCalibrated(intervals.Risk)
	return record
}

func asCalibrated(iv model.ScoreInterval) model.CalibratedInterval {
	out := model.CalibratedInterval{}
	if iv.Mean != nil {
		out.Mean = clamp01(*iv.Mean)
	}
	if iv.Lower != nil {
		out.Lower = clamp01(*iv.Lower)
	}
	if iv.Upper != nil {
		out.Upper = clamp01(*iv.Upper)
	}
	out.Width = math.Max(0, out.Upper-out.Lower)
	out.WidthPercent = out.Width * 100
	return out
}
