// internal/pipeline/noise.go
package pipeline

import (
	"reflect"
	"time"

	"go.uber.org/zap"

	"github.com/harperreed/houseagent/internal/schema"
)

const lowBatteryPct = 5.0

type dedupEntry struct {
	value map[string]any
	at    time.Time
}

// NoiseFilter suppresses repeated readings and readings from dying sensors
// before they reach the detector or the batch queue. Only a single
// (value, timestamp) pair is retained per sensor.
type NoiseFilter struct {
	window        map[string]dedupEntry
	windowSeconds time.Duration
	logger        *zap.Logger
}

func NewNoiseFilter(window time.Duration, logger *zap.Logger) *NoiseFilter {
	return &NoiseFilter{
		window:        make(map[string]dedupEntry),
		windowSeconds: window,
		logger:        logger,
	}
}

// ShouldSuppress reports whether msg is noise. The dedup check runs first;
// any message that reaches the window update resets the dedup clock, even
// one suppressed afterwards by the battery gate.
func (f *NoiseFilter) ShouldSuppress(msg *schema.SensorMessage) bool {
	if f.isDuplicate(msg) {
		return true
	}

	if msg.Quality != nil {
		if pct, ok := numericField(msg.Quality, "battery_pct"); ok && pct < lowBatteryPct {
			f.logger.Debug("suppressing low-battery sensor",
				zap.String("sensor_id", msg.SensorID),
				zap.Float64("battery_pct", pct))
			return true
		}
	}

	return false
}

func (f *NoiseFilter) isDuplicate(msg *schema.SensorMessage) bool {
	now, err := msg.EventTime()
	if err != nil {
		now = time.Now()
	}

	if prev, ok := f.window[msg.SensorID]; ok {
		if reflect.DeepEqual(prev.value, msg.Value) && now.Sub(prev.at) < f.windowSeconds {
			return true
		}
	}

	// Store a copy: later stages annotate msg.Value in place and must not
	// disturb the recorded last observation.
	stored := make(map[string]any, len(msg.Value))
	for k, v := range msg.Value {
		stored[k] = v
	}
	f.window[msg.SensorID] = dedupEntry{value: stored, at: now}
	return false
}

func numericField(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}
