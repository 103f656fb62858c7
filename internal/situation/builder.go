// internal/situation/builder.go
package situation

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const corroborationConfidence = 0.8

// Builder clusters a flushed batch by zone and constructs a Situation when
// the corroboration gate holds: 2+ distinct sensors contributing anywhere
// in the batch, not per zone. Two sensors firing in unrelated zones still
// corroborate under this rule.
type Builder struct {
	entropy *ulid.MonotonicEntropy
	logger  *zap.Logger
}

func NewBuilder(logger *zap.Logger) *Builder {
	return &Builder{
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		logger:  logger,
	}
}

// Build returns nil when the batch is empty or uncorroborated.
func (b *Builder) Build(messages []map[string]any, plan *FloorPlan) *Situation {
	if len(messages) == 0 {
		return nil
	}

	zones := zoneOrder(messages)

	features := Features{
		EventCounts:   eventCounts(messages),
		Zones:         zones,
		AnomalyScores: anomalyScores(messages),
	}

	if !hasCorroboration(messages) {
		b.logger.Debug("no corroboration, discarding batch",
			zap.Int("message_count", len(messages)))
		return nil
	}

	sit := &Situation{
		ID:         fmt.Sprintf("sit-%s", ulid.MustNew(ulid.Timestamp(time.Now()), b.entropy)),
		Messages:   messages,
		Features:   features,
		Confidence: corroborationConfidence,
	}

	b.logger.Info("built situation",
		zap.String("id", sit.ID),
		zap.Int("message_count", len(messages)),
		zap.Strings("zones", zones))

	return sit
}

// zoneOrder lists zone ids in order of first appearance.
func zoneOrder(messages []map[string]any) []string {
	seen := make(map[string]bool)
	var zones []string
	for _, msg := range messages {
		zone := "unknown"
		if z, ok := msg["zone_id"].(string); ok {
			zone = z
		}
		if !seen[zone] {
			seen[zone] = true
			zones = append(zones, zone)
		}
	}
	return zones
}

func eventCounts(messages []map[string]any) map[string]int {
	counts := make(map[string]int)
	for _, msg := range messages {
		sensorType, _ := msg["sensor_type"].(string)
		counts[sensorType]++
	}
	return counts
}

// anomalyScores lists one score per message, 0 when absent.
func anomalyScores(messages []map[string]any) []float64 {
	scores := make([]float64, len(messages))
	for i, msg := range messages {
		if value, ok := msg["value"].(map[string]any); ok {
			if score, ok := value["anomaly_score"].(float64); ok {
				scores[i] = score
			}
		}
	}
	return scores
}

// hasCorroboration checks distinct sensor ids across the whole batch.
func hasCorroboration(messages []map[string]any) bool {
	sensors := make(map[any]bool)
	for _, msg := range messages {
		sensors[msg["sensor_id"]] = true
	}
	return len(sensors) >= 2
}
