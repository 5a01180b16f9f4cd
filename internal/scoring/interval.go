package scoring

import (
	"math"

	"github.com/aim-group/evidence-cli/internal/model"
)

// DefaultZ is the two-tailed 95% normal quantile.
const DefaultZ = 1.96

// Fallback half widths used when a bucket has one sample or no variance.
// The two call sites historically used different values; both are kept.
const (
	DefaultFallbackHalfWidth  = 0.05
	PipelineFallbackHalfWidth = 0.2
)

// BuildInterval derives a normal-approximation confidence interval from
// bucket statistics. Count 0 leaves every derived field nil; count 1 or
// missing variance uses fallbackHalfWidth with stddev, stderr and z nil;
// otherwise the usual z-interval clamped to [0,1].
func BuildInterval(count int, mean, variance *float64, z, fallbackHalfWidth float64) model.ScoreInterval {
	iv := model.ScoreInterval{Count: count, Mean: mean, Variance: variance}
	if count == 0 || mean == nil {
		return iv
	}
	if count == 1 || variance == nil {
		lower := math.Max(0, *mean-fallbackHalfWidth)
		upper := math.Min(1, *mean+fallbackHalfWidth)
		width := upper - lower
		widthPct := width * 100
		hw := fallbackHalfWidth
		iv.HalfWidth = &hw
		iv.Lower = &lower
		iv.Upper = &upper
		iv.Width = &width
		iv.WidthPercent = &widthPct
		return iv
	}
	stddev := math.Sqrt(*variance)
	stderr := stddev / math.Sqrt(float64(count))
	halfWidth := z * stderr
	lower := math.Max(0, *mean-halfWidth)
	upper := math.Min(1, *mean+halfWidth)
	width := upper - lower
	widthPct := width * 100
	zc := z
	iv.StdDev = &stddev
	iv.StdErr = &stderr
	iv.Z = &zc
	iv.HalfWidth = &halfWidth
	iv.Lower = &lower
	iv.Upper = &upper
	iv.Width = &width
	iv.WidthPercent = &widthPct
	return iv
}

// BuildIntervals derives both bucket intervals from a score summary using
// the pipeline fallback half width.
func BuildIntervals(summary model.ScoreSummary) model.ScoreIntervals {
	return model.ScoreIntervals{
		GeneratedAt: timestamp(),
		Forecast: BuildInterval(summary.Forecast.Count, summary.Forecast.Mean,
			summary.Forecast.Variance, DefaultZ, PipelineFallbackHalfWidth),
		Risk: BuildInterval(summary.Risk.Count, summary.Risk.Mean,
			summary.Risk.Variance, DefaultZ, PipelineFallbackHalfWidth),
	}
}
