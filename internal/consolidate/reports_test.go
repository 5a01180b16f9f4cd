package consolidate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aim-group/evidence-cli/internal/model"
)

func writeReport(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadReports_MergesForecastFiles(t *testing.T) {
	dir := t.TempDir()
	fc1 := writeReport(t, dir, "forecast1.json", `{"results": [{"pair_id": "f1"}], "model": "a"}`)
	fc2 := writeReport(t, dir, "forecast2.json", `{"results": [{"pair_id": "f2"}]}`)
	risk := writeReport(t, dir, "risk.json", `{"results": [{"pair_id": "r1"}]}`)

	loaded, err := LoadReports(
		[]string{fc1, filepath.Join(dir, "missing.json"), fc2},
		"",
		[]string{risk},
	)
	require.NoError(t, err)

	require.Len(t, loaded.Categories, 3)
	assert.Equal(t, model.PairTypeForecast, loaded.Categories[0].Label)
	assert.Len(t, loaded.Categories[0].Pairs, 2)
	assert.Empty(t, loaded.Categories[1].Pairs) // no event report
	assert.Len(t, loaded.Categories[2].Pairs, 1)
	assert.Equal(t, risk, loaded.SourceFiles["risk"])
}

func TestLoadReports_FirstExistingRiskFileWins(t *testing.T) {
	dir := t.TempDir()
	fc := writeReport(t, dir, "forecast.json", `{"results": []}`)
	second := writeReport(t, dir, "risk2.json", `{"results": [{"pair_id": "r2"}]}`)

	loaded, err := LoadReports(
		[]string{fc},
		"",
		[]string{filepath.Join(dir, "risk1.json"), second},
	)
	require.NoError(t, err)
	assert.Equal(t, second, loaded.SourceFiles["risk"])
	assert.Equal(t, "r2", loaded.Categories[2].Pairs[0].PairID)
}

func TestLoadReports_RiskRequired(t *testing.T) {
	dir := t.TempDir()
	fc := writeReport(t, dir, "forecast.json", `{"results": []}`)

	_, err := LoadReports([]string{fc}, "", []string{filepath.Join(dir, "absent.json")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "risk pairs missing")
}

func TestLoadReports_OptionalEvent(t *testing.T) {
	dir := t.TempDir()
	fc := writeReport(t, dir, "forecast.json", `{"results": []}`)
	ev := writeReport(t, dir, "event.json", `{"results": [{"pair_id": "e1"}]}`)
	risk := writeReport(t, dir, "risk.json", `{"results": []}`)

	loaded, err := LoadReports([]string{fc}, ev, []string{risk})
	require.NoError(t, err)
	assert.Len(t, loaded.Categories[1].Pairs, 1)
	assert.Equal(t, ev, loaded.SourceFiles["event"])
}

func TestLoadReports_MalformedReport(t *testing.T) {
	dir := t.TempDir()
	fc := writeReport(t, dir, "forecast.json", `{"model": "no list here"}`)
	risk := writeReport(t, dir, "risk.json", `{"results": []}`)

	_, err := LoadReports([]string{fc}, "", []string{risk})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'results' missing")
}

func TestBuildDocument(t *testing.T) {
	loaded := &LoadedReports{
		SourceFiles: map[string]any{"risk": "risk.json"},
		Metadata:    map[string]any{},
	}
	res := Result{
		Combined: []model.EvidencePair{{PairID: "a"}},
		Counts:   model.PairCounts{Forecast: 1, TotalPairs: 1},
	}

	doc := BuildDocument(loaded, res)
	assert.NotEmpty(t, doc.GeneratedAt)
	assert.Equal(t, 1, doc.Counts.TotalPairs)
	assert.Len(t, doc.CombinedPairs, 1)
}
