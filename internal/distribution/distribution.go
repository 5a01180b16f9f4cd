package distribution

import (
	"math"
	"sort"
	"time"

	"github.com/aim-group/evidence-cli/internal/model"
)

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// Compute apportions the calibrated rectangle (risk on x, forecast on y)
// across the 3x3 grid. Inverted bounds are swapped; percentages are
// relative to the total overlapping area; results are sorted by
// percentage descending with ties kept in row-major scan order.
func Compute(risk, forecast model.CalibratedInterval, cells [][]model.MatrixCell) model.StrategyDistribution {
	xLeft := clamp01(risk.Lower)
	xRight := clamp01(risk.Upper)
	yBottom := clamp01(forecast.Lower)
	yTop := clamp01(forecast.Upper)
	if xRight < xLeft {
		xLeft, xRight = xRight, xLeft
	}
	if yTop < yBottom {
		yBottom, yTop = yTop, yBottom
	}

	var results []model.DistributionCell
	totalArea := 0.0
	for row := 0; row < GridSize; row++ {
		for col := 0; col < GridSize; col++ {
			cellX1 := float64(col) / GridSize
			cellX2 := float64(col+1) / GridSize
			cellY1 := float64(row) / GridSize
			cellY2 := float64(row+1) / GridSize
			overlapX := math.Max(0, math.Min(xRight, cellX2)-math.Max(xLeft, cellX1))
			overlapY := math.Max(0, math.Min(yTop, cellY2)-math.Max(yBottom, cellY1))
			area := overlapX * overlapY
			totalArea += area
			if area <= 0 {
				continue
			}
			// The matrix is authored top-down; grid row 0 is the bottom
			// visual row, so the metadata lookup flips the row index.
			displayRow := GridSize - 1 - row
			meta := cells[displayRow][col]
			meta.DisplayRow = displayRow
			meta.DisplayCol = col
			meta.MatrixRow = row
			meta.MatrixCol = col
			label := meta.Title
			if label == "" {
				label = DefaultLabels[displayRow][col]
			}
			results = append(results, model.DistributionCell{
				Row:   row,
				Col:   col,
				Area:  area,
				Label: label,
				Cell:  meta,
			})
		}
	}
	if totalArea > 0 {
		for i := range results {
			results[i].Percentage = results[i].Area / totalArea * 100
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Percentage > results[j].Percentage
	})
	if results == nil {
		results = []model.DistributionCell{}
	}

	labels := make([][]string, len(cells))
	for row := range cells {
		labels[row] = make([]string, len(cells[row]))
		for col := range cells[row] {
			labels[row][col] = cells[row][col].Title
		}
	}

	return model.StrategyDistribution{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Bounds: map[string]model.AxisBounds{
			"risk":     {Lower: xLeft, Upper: xRight},
			"forecast": {Lower: yBottom, Upper: yTop},
		},
		Labels:       labels,
		Cells:        cells,
		Distribution: results,
	}
}
