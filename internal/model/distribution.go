package model

// MatrixCell is one cell of the 3x3 strategic matrix as configured, plus
// the display coordinates the frontend renders it at.
type MatrixCell struct {
	ID          string `json:"id,omitempty" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description"`
	Icon        string `json:"icon,omitempty" yaml:"icon"`
	Row         int    `json:"row" yaml:"row"`
	Col         int    `json:"col" yaml:"col"`
	DisplayRow  int    `json:"display_row" yaml:"-"`
	DisplayCol  int    `json:"display_col" yaml:"-"`
	MatrixRow   int    `json:"matrix_row" yaml:"-"`
	MatrixCol   int    `json:"matrix_col" yaml:"-"`
}

// DistributionCell is the overlap of the calibrated rectangle with one
// grid cell.
type DistributionCell struct {
	Row        int        `json:"row"`
	Col        int        `json:"col"`
	Area       float64    `json:"area"`
	Percentage float64    `json:"percentage"`
	Label      string     `json:"label"`
	Cell       MatrixCell `json:"cell"`
}

// AxisBounds is one calibrated interval projected onto a grid axis.
type AxisBounds struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// StrategyDistribution is the persisted quadrant distribution document.
// Ephemeral: fully recomputed from the calibrated rectangle each run.
type StrategyDistribution struct {
	GeneratedAt  string                `json:"generated_at"`
	SourceFiles  map[string]any        `json:"source_files,omitempty"`
	Bounds       map[string]AxisBounds `json:"bounds"`
	Labels       [][]string            `json:"labels"`
	Cells        [][]MatrixCell        `json:"cells"`
	Distribution []DistributionCell    `json:"distribution"`
}
