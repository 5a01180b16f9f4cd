package model

// CategoryStats holds population statistics for one score bucket.
// Mean and Variance are nil when the bucket is empty.
type CategoryStats struct {
	Count    int      `json:"count"`
	Mean     *float64 `json:"mean"`
	Variance *float64 `json:"variance"`
}

// SummaryCounts breaks down how many pairs fed the summary.
type SummaryCounts struct {
	AcceptedTotal    int `json:"accepted_total"`
	AcceptedForecast int `json:"accepted_forecast"`
	AcceptedRisk     int `json:"accepted_risk"`
	AllPairs         int `json:"all_pairs"`
}

// ScoreSummary is the full scoring output, recomputed wholesale on every
// run. Raw score lists are retained for later rebuilds and inspection.
type ScoreSummary struct {
	GeneratedAt    string          `json:"generated_at"`
	Counts         SummaryCounts   `json:"counts"`
	Forecast       CategoryStats   `json:"forecast"`
	Risk           CategoryStats   `json:"risk"`
	ForecastScores []float64       `json:"forecast_scores"`
	RiskScores     []float64       `json:"risk_scores"`
	Intervals      *ScoreIntervals `json:"intervals,omitempty"`
}

// ScoreInterval is a normal-approximation confidence interval for one
// bucket. Every derived field is nil when the bucket was empty; the
// fallback branch leaves stddev, stderr and z nil as well.
type ScoreInterval struct {
	Count        int      `json:"count"`
	Mean         *float64 `json:"mean"`
	Variance     *float64 `json:"variance"`
	StdDev       *float64 `json:"stddev"`
	StdErr       *float64 `json:"stderr"`
	Z            *float64 `json:"z"`
	HalfWidth    *float64 `json:"half_width"`
	Lower        *float64 `json:"lower"`
	Upper        *float64 `json:"upper"`
	Width        *float64 `json:"width,omitempty"`
	WidthPercent *float64 `json:"width_percent,omitempty"`
}

// ScoreIntervals is the persisted interval document.
type ScoreIntervals struct {
	GeneratedAt string        `json:"generated_at"`
	Forecast    ScoreInterval `json:"forecast"`
	Risk        ScoreInterval `json:"risk"`
}

// HumanFactors are the analyst-supplied calibration inputs, each in [0,1].
type HumanFactors struct {
	ForecastAlignment  float64 `json:"forecast_alignment"`
	RiskAlignment      float64 `json:"risk_alignment"`
	ForecastConfidence float64 `json:"forecast_confidence"`
	RiskConfidence     float64 `json:"risk_confidence"`
}

// CalibratedInterval is the human-adjusted interval for one bucket.
type CalibratedInterval struct {
	Mean         float64 `json:"mean"`
	Lower        float64 `json:"lower"`
	Upper        float64 `json:"upper"`
	Width        float64 `json:"width"`
	WidthPercent float64 `json:"width_percent"`
}

// CalibrationRecord is the audit snapshot written after every
// calibration: the factors used, the AI intervals they applied to, and
// the calibrated result. Overwritten wholesale on recompute.
type CalibrationRecord struct {
	GeneratedAt  string                        `json:"generated_at"`
	SourceFiles  map[string]any                `json:"source_files,omitempty"`
	HumanFactors *HumanFactors                 `json:"human_factors"`
	AI           map[string]ScoreInterval      `json:"ai"`
	Calibrated   map[string]CalibratedInterval `json:"calibrated"`
}
