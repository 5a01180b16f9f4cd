// Package consolidate merges the raw per-category evidence reports into a
// single deduplicated, filtered, capped evidence set.
package consolidate

import (
	"sort"

	"go.uber.org/zap"

	"github.com/aim-group/evidence-cli/internal/model"
)

const (
	// scoreThreshold is the minimum entailment or contradiction mass an
	// item needs to survive filtering.
	scoreThreshold = 0.15

	// maxPerSource caps how many items a single provenance document may
	// contribute.
	maxPerSource = 2
)

// Category is one named raw evidence list.
type Category struct {
	Label string
	Pairs []model.EvidencePair
}

// Result is a consolidated evidence set with per-category counts.
type Result struct {
	PerCategory map[string][]model.EvidencePair
	Combined    []model.EvidencePair
	Counts      model.PairCounts
}

// Merge runs the consolidation passes per category, in the given order,
// and concatenates the survivors.
func Merge(categories []Category) Result {
	res := Result{PerCategory: make(map[string][]model.EvidencePair, len(categories))}
	for _, cat := range categories {
		tagged := tagSource(cat.Pairs, cat.Label)
		scored := filterByScore(tagged)
		regional := filterRegionMismatch(scored)
		deduped := dedupeByPremise(regional)
		limited := limitPerSource(deduped)
		final := dedupeByPairID(limited)
		for i := range final {
			final[i].Extra = nil // field projection: canonical set only
		}
		res.PerCategory[cat.Label] = final
		res.Combined = append(res.Combined, final...)

		switch cat.Label {
		case model.PairTypeForecast:
			res.Counts.Forecast = len(final)
		case model.PairTypeEvent:
			res.Counts.Event = len(final)
		case model.PairTypeRisk:
			res.Counts.Risk = len(final)
		}
		zap.L().Debug("consolidate: category filtered",
			zap.String("category", cat.Label),
			zap.Int("in", len(cat.Pairs)),
			zap.Int("out", len(final)),
		)
	}
	res.Counts.TotalPairs = len(res.Combined)
	return res
}

// Score is the single scalar used for ranking and dedup tie-breaks:
// combined_score when numeric, otherwise the first numeric value among
// similarity, nli_score, entailment, score, otherwise zero.
func Score(p model.EvidencePair) float64 {
	if p.CombinedScore != nil {
		return *p.CombinedScore
	}
	if f, ok := model.AsFloat(p.Extra["similarity"]); ok {
		return f
	}
	if f, ok := model.AsFloat(p.Extra["nli_score"]); ok {
		return f
	}
	if p.Entailment != nil {
		return *p.Entailment
	}
	if f, ok := model.AsFloat(p.Extra["score"]); ok {
		return f
	}
	return 0.0
}

// provenanceKey groups items by their source document.
func provenanceKey(p model.EvidencePair) string {
	if p.PDFName != "" {
		return p.PDFName
	}
	if p.Source != "" {
		return p.Source
	}
	return "unknown"
}

func tagSource(pairs []model.EvidencePair, label string) []model.EvidencePair {
	out := make([]model.EvidencePair, len(pairs))
	copy(out, pairs)
	for i := range out {
		if out[i].PairSource == "" {
			out[i].PairSource = label
		}
	}
	return out
}

func filterByScore(pairs []model.EvidencePair) []model.EvidencePair {
	var kept []model.EvidencePair
	for _, p := range pairs {
		ent := 0.0
		if p.Entailment != nil {
			ent = *p.Entailment
		}
		con := 0.0
		if p.Contradiction != nil {
			con = *p.Contradiction
		}
		if ent >= scoreThreshold || con >= scoreThreshold {
			kept = append(kept, p)
		}
	}
	return kept
}

func filterRegionMismatch(pairs []model.EvidencePair) []model.EvidencePair {
	var kept []model.EvidencePair
	for _, p := range pairs {
		if RegionsCompatible(p.StrategyRegion, p.Region) {
			kept = append(kept, p)
		}
	}
	return kept
}

// dedupeBy keeps the highest-scored item per key, preserving the order in
// which keys first appear. Items with an empty key are dropped.
func dedupeBy(pairs []model.EvidencePair, keyOf func(model.EvidencePair) string) []model.EvidencePair {
	best := make(map[string]model.EvidencePair)
	var order []string
	for _, p := range pairs {
		key := keyOf(p)
		if key == "" {
			continue
		}
		current, seen := best[key]
		if !seen {
			order = append(order, key)
			best[key] = p
			continue
		}
		if Score(p) > Score(current) {
			best[key] = p
		}
	}
	out := make([]model.EvidencePair, 0, len(order))
	for _, key := range order {
		out = append(out, best[key])
	}
	return out
}

func dedupeByPremise(pairs []model.EvidencePair) []model.EvidencePair {
	return dedupeBy(pairs, func(p model.EvidencePair) string {
		if p.PremiseID != "" {
			return p.PremiseID
		}
		return p.PairID
	})
}

func dedupeByPairID(pairs []model.EvidencePair) []model.EvidencePair {
	return dedupeBy(pairs, func(p model.EvidencePair) string { return p.PairID })
}

func limitPerSource(pairs []model.EvidencePair) []model.EvidencePair {
	grouped := make(map[string][]model.EvidencePair)
	var order []string
	for _, p := range pairs {
		key := provenanceKey(p)
		if _, seen := grouped[key]; !seen {
			order = append(order, key)
		}
		grouped[key] = append(grouped[key], p)
	}
	var limited []model.EvidencePair
	for _, key := range order {
		bucket := grouped[key]
		sort.SliceStable(bucket, func(i, j int) bool {
			return Score(bucket[i]) > Score(bucket[j])
		})
		if len(bucket) > maxPerSource {
			bucket = bucket[:maxPerSource]
		}
		limited = append(limited, bucket...)
	}
	return limited
}
