package consolidate

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aim-group/evidence-cli/internal/model"
)

// LoadedReports holds the raw category inputs plus their provenance.
type LoadedReports struct {
	Categories  []Category
	SourceFiles map[string]any
	Metadata    map[string]any
}

func readReport(path string) (*model.RawReport, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var report model.RawReport
	if err := json.Unmarshal(body, &report); err != nil {
		return nil, eris.Wrapf(err, "consolidate: parse report %s", path)
	}
	return &report, nil
}

// LoadReports reads the collaborator-written evidence reports. Every
// existing forecast file contributes; the first existing risk file is
// required; the event report is optional.
func LoadReports(forecastFiles []string, eventFile string, riskFiles []string) (*LoadedReports, error) {
	loaded := &LoadedReports{
		SourceFiles: make(map[string]any),
		Metadata:    make(map[string]any),
	}

	var forecastPairs []model.EvidencePair
	forecastMeta := make(map[string]any)
	var forecastSources []string
	for _, path := range forecastFiles {
		report, err := readReport(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		forecastPairs = append(forecastPairs, report.Pairs...)
		forecastMeta[baseName(path)] = report.Meta
		forecastSources = append(forecastSources, path)
	}
	if len(forecastSources) == 0 {
		zap.L().Info("consolidate: no forecast reports found",
			zap.Strings("tried", forecastFiles))
	}

	var eventPairs []model.EvidencePair
	eventMeta := map[string]any{}
	if eventFile != "" {
		report, err := readReport(eventFile)
		if err == nil {
			eventPairs = report.Pairs
			eventMeta = report.Meta
			loaded.SourceFiles["event"] = eventFile
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	var riskReport *model.RawReport
	var riskPath string
	for _, path := range riskFiles {
		report, err := readReport(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		riskReport = report
		riskPath = path
		break
	}
	if riskReport == nil {
		return nil, eris.Errorf("consolidate: risk pairs missing: tried %s", strings.Join(riskFiles, ", "))
	}

	loaded.Categories = []Category{
		{Label: model.PairTypeForecast, Pairs: forecastPairs},
		{Label: model.PairTypeEvent, Pairs: eventPairs},
		{Label: model.PairTypeRisk, Pairs: riskReport.Pairs},
	}
	loaded.SourceFiles["forecast"] = forecastSources
	loaded.SourceFiles["risk"] = riskPath
	loaded.Metadata["forecast"] = forecastMeta
	loaded.Metadata["event"] = eventMeta
	loaded.Metadata["risk"] = riskReport.Meta
	return loaded, nil
}

// BuildDocument assembles the consolidated evidence document.
func BuildDocument(loaded *LoadedReports, res Result) model.MergedPairs {
	combined := res.Combined
	if combined == nil {
		combined = []model.EvidencePair{}
	}
	return model.MergedPairs{
		GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
		SourceFiles:   loaded.SourceFiles,
		Counts:        res.Counts,
		Metadata:      loaded.Metadata,
		CombinedPairs: combined,
	}
}

func baseName(path string) string {
	if idx := strings.LastIndexAny(path, `/\`); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
