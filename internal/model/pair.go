// Package model defines the document shapes shared by every component:
// evidence pairs, analyst decisions, score statistics, distributions and
// pipeline status records.
package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/rotisserie/eris"
)

// Analyst decision states for an evidence pair.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusDeclined = "declined"
)

// ValidStatus reports whether s is an allowed decision value.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusAccepted, StatusDeclined:
		return true
	}
	return false
}

// Evidence categories.
const (
	PairTypeForecast = "forecast"
	PairTypeEvent    = "event"
	PairTypeRisk     = "risk"
)

// EvidencePair is one scored (premise, hypothesis) comparison. The named
// fields are the canonical set; anything else a collaborator attaches
// lands in Extra and is dropped when the consolidated set is written.
type EvidencePair struct {
	PairID     string
	PairType   string
	PairSource string

	Hypothesis        string
	StrategyTitle     string
	StrategySegment   string
	StrategyRegion    string
	StrategyFocus     string
	StrategyDirection string

	PremiseID   string
	PremiseText string
	Quote       string
	Segment     string
	Region      string
	Year        *int

	CombinedScore       *float64
	Entailment          *float64
	Contradiction       *float64
	Neutral             *float64
	RetrievalSimilarity *float64

	RiskName string
	RiskType string

	PDFName string
	Page    *float64
	Source  string

	Status string

	Extra map[string]any
}

// AsFloat coerces a decoded JSON value to a float64. NaN counts as
// absent, as do non-numeric strings.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) {
			return 0, false
		}
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		if s == math.Trunc(s) && !math.IsInf(s, 0) && !math.IsNaN(s) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

// UnmarshalJSON decodes a pair from a loosely typed collaborator report.
// Canonical fields are coerced to their declared types; every other key
// is preserved in Extra.
func (p *EvidencePair) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return eris.Wrap(err, "model: decode evidence pair")
	}

	stringFields := map[string]*string{
		"pair_id":            &p.PairID,
		"pair_type":          &p.PairType,
		"pair_source":        &p.PairSource,
		"hypothesis":         &p.Hypothesis,
		"strategy_title":     &p.StrategyTitle,
		"strategy_segment":   &p.StrategySegment,
		"strategy_region":    &p.StrategyRegion,
		"strategy_focus":     &p.StrategyFocus,
		"strategy_direction": &p.StrategyDirection,
		"premise_id":         &p.PremiseID,
		"premise_text":       &p.PremiseText,
		"quote":              &p.Quote,
		"segment":            &p.Segment,
		"region":             &p.Region,
		"risk_name":          &p.RiskName,
		"risk_type":          &p.RiskType,
		"pdf_name":           &p.PDFName,
		"source":             &p.Source,
		"status":             &p.Status,
	}
	floatFields := map[string]**float64{
		"combined_score":       &p.CombinedScore,
		"entailment":           &p.Entailment,
		"contradiction":        &p.Contradiction,
		"neutral":              &p.Neutral,
		"retrieval_similarity": &p.RetrievalSimilarity,
		"page":                 &p.Page,
	}

	for key, value := range raw {
		if dst, ok := stringFields[key]; ok {
			*dst = asString(value)
			continue
		}
		if dst, ok := floatFields[key]; ok {
			if f, ok := AsFloat(value); ok {
				v := f
				*dst = &v
			}
			continue
		}
		if key == "year" {
			if f, ok := AsFloat(value); ok {
				y := int(f)
				p.Year = &y
			}
			continue
		}
		if p.Extra == nil {
			p.Extra = make(map[string]any)
		}
		p.Extra[key] = value
	}
	return nil
}

// MarshalJSON emits only the canonical fields that carry a value, the
// same allow-list projection applied when the consolidated set is
// written. Extra never round-trips.
func (p EvidencePair) MarshalJSON() ([]byte, error) {
	out := make(map[string]any)
	putStr := func(key, val string) {
		if val != "" {
			out[key] = val
		}
	}
	putFloat := func(key string, val *float64) {
		if val != nil {
			out[key] = *val
		}
	}

	putStr("pair_id", p.PairID)
	putStr("pair_type", p.PairType)
	putStr("pair_source", p.PairSource)
	putStr("hypothesis", p.Hypothesis)
	putStr("strategy_title", p.StrategyTitle)
	putStr("strategy_segment", p.StrategySegment)
	putStr("strategy_region", p.StrategyRegion)
	putStr("strategy_focus", p.StrategyFocus)
	putStr("strategy_direction", p.StrategyDirection)
	putStr("premise_id", p.PremiseID)
	putStr("premise_text", p.PremiseText)
	putStr("quote", p.Quote)
	putStr("segment", p.Segment)
	putStr("region", p.Region)
	putStr("risk_name", p.RiskName)
	putStr("risk_type", p.RiskType)
	putStr("pdf_name", p.PDFName)
	putStr("source", p.Source)
	putStr("status", p.Status)
	if p.Year != nil {
		out["year"] = *p.Year
	}
	putFloat("combined_score", p.CombinedScore)
	putFloat("entailment", p.Entailment)
	putFloat("contradiction", p.Contradiction)
	putFloat("neutral", p.Neutral)
	putFloat("retrieval_similarity", p.RetrievalSimilarity)
	putFloat("page", p.Page)

	return json.Marshal(out)
}

// PairStatusRecord is one durable analyst decision. Records are created
// on the first decision, mutated afterwards and never deleted.
type PairStatusRecord struct {
	PairID    string `json:"pair_id"`
	Status    string `json:"status"`
	UpdatedAt string `json:"updated_at"`
}

// PairCounts are the post-filter per-category sizes of a consolidated set.
type PairCounts struct {
	Forecast   int `json:"forecast"`
	Event      int `json:"event"`
	Risk       int `json:"risk"`
	TotalPairs int `json:"total_pairs"`
}

// MergedPairs is the consolidated evidence document.
type MergedPairs struct {
	GeneratedAt   string         `json:"generated_at"`
	SourceFiles   map[string]any `json:"source_files"`
	Counts        PairCounts     `json:"counts"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CombinedPairs []EvidencePair `json:"combined_pairs"`
}

// PresetBundle is a deployed evidence bundle keyed by strategy id. It
// stands in for the consolidated set when its strategy is selected.
type PresetBundle struct {
	GeneratedAt   string         `json:"generated_at,omitempty"`
	SourceFiles   map[string]any `json:"source_files,omitempty"`
	Counts        *PairCounts    `json:"counts,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	CombinedPairs []EvidencePair `json:"combined_pairs"`
}
