// internal/situation/situation.go
package situation

// Features summarizes a batch for the severity classifier: per-type event
// counts, zones touched (first-appearance order), and each member's anomaly
// score. The severity layer depends on this shape staying stable.
type Features struct {
	EventCounts   map[string]int `json:"event_counts"`
	Zones         []string       `json:"zones"`
	AnomalyScores []float64      `json:"anomaly_scores"`
}

// Situation is an ephemeral, corroborated cluster of sensor messages from
// one batch. It is built fresh per flush and discarded once narrated; no
// identity carries across batches.
type Situation struct {
	ID         string           `json:"id"`
	Messages   []map[string]any `json:"messages"`
	Features   Features         `json:"features"`
	Confidence float64          `json:"confidence"`
}

// RequiresResponse gates narration. Currently redundant with the
// corroboration precondition, kept as an independently testable hook for
// future tightening.
func (s *Situation) RequiresResponse() bool {
	return len(s.Messages) >= 2
}

// ToPromptJSON renders the stable payload contract consumed by the
// narration layer: {id, message_count, zones, event_counts, confidence,
// messages}.
func (s *Situation) ToPromptJSON() map[string]any {
	return map[string]any{
		"id":            s.ID,
		"message_count": len(s.Messages),
		"zones":         s.Features.Zones,
		"event_counts":  s.Features.EventCounts,
		"confidence":    s.Confidence,
		"messages":      s.Messages,
	}
}
