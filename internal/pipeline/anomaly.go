// internal/pipeline/anomaly.go
package pipeline

import (
	"math"
	"strconv"

	"go.uber.org/zap"

	"github.com/harperreed/houseagent/internal/schema"
)

// numericKeys is the priority order for pulling a scalar out of a value map.
var numericKeys = []string{"celsius", "fahrenheit", "reading", "value", "count"}

const (
	maxHistory = 100
	minSamples = 3
)

// AnomalyDetector keeps a rolling window of recent values per sensor and
// flags readings whose Z-score against that window exceeds the threshold.
// Flagged readings still enter the window, so the baseline drifts rather
// than freezing on stale data.
type AnomalyDetector struct {
	threshold float64
	stats     map[string][]float64
	score     float64
	logger    *zap.Logger
}

func NewAnomalyDetector(threshold float64, logger *zap.Logger) *AnomalyDetector {
	return &AnomalyDetector{
		threshold: threshold,
		stats:     make(map[string][]float64),
		logger:    logger,
	}
}

// IsAnomalous judges msg against the sensor's history and records the new
// value. Messages without a numeric field are never anomalous and leave the
// history untouched.
func (d *AnomalyDetector) IsAnomalous(msg *schema.SensorMessage) bool {
	value, ok := extractNumeric(msg.Value)
	if !ok {
		return false
	}

	history := d.stats[msg.SensorID]

	if len(history) < minSamples {
		d.stats[msg.SensorID] = append(history, value)
		d.score = 0
		return false
	}

	mean := average(history)
	stdev := sampleStdDev(history, mean)

	if stdev == 0 {
		d.score = 0
	} else {
		d.score = math.Abs(value-mean) / stdev
	}

	history = append(history, value)
	if len(history) > maxHistory {
		history = history[1:]
	}
	d.stats[msg.SensorID] = history

	if d.score > d.threshold {
		d.logger.Info("anomalous reading",
			zap.String("sensor_id", msg.SensorID),
			zap.Float64("value", value),
			zap.Float64("z_score", d.score))
		return true
	}
	return false
}

// Score returns the Z-score computed by the most recent IsAnomalous call,
// or 0 when no score was defined.
func (d *AnomalyDetector) Score() float64 {
	return d.score
}

func extractNumeric(value map[string]any) (float64, bool) {
	for _, key := range numericKeys {
		raw, ok := value[key]
		if !ok {
			continue
		}
		switch v := raw.(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case int64:
			return float64(v), true
		case bool:
			if v {
				return 1.0, true
			}
			return 0.0, true
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func average(xs []float64) float64 {
	total := 0.0
	for _, v := range xs {
		total += v
	}
	return total / float64(len(xs))
}

// sampleStdDev uses the n-1 denominator, matching the detector's "at least
// 3 prior observations" requirement.
func sampleStdDev(xs []float64, mean float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var varianceSum float64
	for _, v := range xs {
		varianceSum += (v - mean) * (v - mean)
	}
	return math.Sqrt(varianceSum / float64(len(xs)-1))
}
