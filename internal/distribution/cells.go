// Package distribution maps the calibrated 2-D interval rectangle onto
// the 3x3 strategic matrix by area apportionment.
package distribution

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/aim-group/evidence-cli/internal/model"
)

// GridSize is the fixed matrix dimension.
const GridSize = 3

// DefaultLabels is the built-in strategic matrix used when no cell
// definitions file is configured or readable.
var DefaultLabels = [][]string{
	{"Protect Position", "Invest to Build", "Build Selectively"},
	{"Build Selectively", "Manage for Earnings", "Expand or Harvest"},
	{"Protect Position and Refocus", "Manage for Earnings", "Divest"},
}

func defaultCells() [][]model.MatrixCell {
	cells := make([][]model.MatrixCell, len(DefaultLabels))
	for row, labels := range DefaultLabels {
		cells[row] = make([]model.MatrixCell, len(labels))
		for col, title := range labels {
			cells[row][col] = model.MatrixCell{
				ID:    fmt.Sprintf("cell-%d-%d", row, col),
				Title: title,
				Icon:  "CircleArrowDown",
				Row:   row,
				Col:   col,
			}
		}
	}
	return cells
}

// LoadCells reads the 3x3 matrix cell definitions from a YAML file,
// falling back to the built-in default matrix on any problem.
func LoadCells(path string) [][]model.MatrixCell {
	if path == "" {
		return defaultCells()
	}
	body, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			zap.L().Warn("matrix cells file unreadable, using defaults",
				zap.String("path", path), zap.Error(err))
		}
		return defaultCells()
	}
	var cells [][]model.MatrixCell
	if err := yaml.Unmarshal(body, &cells); err != nil {
		zap.L().Warn("matrix cells file malformed, using defaults",
			zap.String("path", path), zap.Error(err))
		return defaultCells()
	}
	if len(cells) != GridSize {
		zap.L().Warn("matrix cells file has wrong shape, using defaults",
			zap.String("path", path), zap.Int("rows", len(cells)))
		return defaultCells()
	}
	for _, row := range cells {
		if len(row) != GridSize {
			return defaultCells()
		}
	}
	return cells
}
