package model

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// ParsedStrategy is the strategy/hypotheses document produced by the
// external parsing collaborator.
type ParsedStrategy struct {
	Valid         bool     `json:"valid"`
	Hypotheses    []string `json:"hypotheses"`
	StrategyTitle string   `json:"strategy_title"`
	Segment       string   `json:"segment"`
	Region        string   `json:"region"`
	Focus         string   `json:"focus"`
	Direction     string   `json:"direction"`
	Raw           string   `json:"raw,omitempty"`
}

// SelectedStrategy is the analyst's current strategy choice. A non-empty
// StrategyID may refer to a deployed preset evidence bundle.
type SelectedStrategy struct {
	StrategyID string `json:"strategy_id"`
	Title      string `json:"title,omitempty"`
	Segment    string `json:"segment,omitempty"`
	Region     string `json:"region,omitempty"`
	Focus      string `json:"focus,omitempty"`
	Direction  string `json:"direction,omitempty"`
}

// RawReport is a collaborator-written evidence report. The pair list
// lives under "results" or, in older reports, "pairs"; everything else
// at the top level is report metadata.
type RawReport struct {
	Pairs []EvidencePair
	Meta  map[string]any
}

func (r *RawReport) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return eris.Wrap(err, "model: decode report")
	}

	listKey := ""
	for _, key := range []string{"results", "pairs"} {
		if body, ok := raw[key]; ok {
			var pairs []EvidencePair
			if err := json.Unmarshal(body, &pairs); err != nil {
				return eris.Wrapf(err, "model: decode report %s", key)
			}
			r.Pairs = pairs
			listKey = key
			break
		}
	}
	if listKey == "" {
		return eris.New("model: report malformed: 'results' missing or not a list")
	}

	r.Meta = make(map[string]any, len(raw)-1)
	for key, body := range raw {
		if key == listKey {
			continue
		}
		var v any
		if err := json.Unmarshal(body, &v); err != nil {
			continue
		}
		r.Meta[key] = v
	}
	return nil
}
