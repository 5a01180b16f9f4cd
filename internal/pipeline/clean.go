package pipeline

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// preprocessingRoot is never cleaned; its artifacts are expensive to
// rebuild and survive across runs.
const preprocessingRoot = "0-preprocessing"

// CleanReport lists what workdir cleaning touched.
type CleanReport struct {
	Removed []string `json:"removed"`
	Skipped []string `json:"skipped"`
	Errors  []string `json:"errors"`
}

// CleanWorkdir removes every derived "out" directory under the workdir
// while preserving everything under the preprocessing root.
func (o *Orchestrator) CleanWorkdir() CleanReport {
	report := CleanReport{Removed: []string{}, Skipped: []string{}, Errors: []string{}}
	root := o.cfg.Pipeline.WorkDir
	if _, err := os.Stat(root); err != nil {
		return report
	}

	var outDirs []string
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if d.Name() != "out" {
			return nil
		}
		outDirs = append(outDirs, path)
		return filepath.SkipDir
	})

	preserve := filepath.Join(root, preprocessingRoot)
	for _, dir := range outDirs {
		if dir == preserve || strings.HasPrefix(dir, preserve+string(filepath.Separator)) {
			report.Skipped = append(report.Skipped, dir)
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			report.Errors = append(report.Errors, dir+": "+err.Error())
			continue
		}
		report.Removed = append(report.Removed, dir)
	}
	sort.Strings(report.Removed)
	sort.Strings(report.Skipped)

	o.log.Info("workdir cleaned",
		zap.Int("removed", len(report.Removed)),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("errors", len(report.Errors)))
	return report
}
