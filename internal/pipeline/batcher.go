// internal/pipeline/batcher.go
package pipeline

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/harperreed/houseagent/internal/metrics"
	"github.com/harperreed/houseagent/internal/schema"
)

const (
	pollInterval = 100 * time.Millisecond
	minTimeout   = 100 * time.Millisecond
	maxTimeout   = 60 * time.Second
)

// Publisher is the slice of the transport layer the batcher needs:
// fire-and-forget delivery to a named topic.
type Publisher interface {
	Publish(topic string, payload []byte)
}

// AlertSink receives pipeline events worth surfacing outside the batch
// stream (dashboard broadcast). May be nil.
type AlertSink interface {
	MessageAccepted(msg map[string]any)
	AnomalyDetected(msg map[string]any, score float64)
	BatchPublished(count int, payload []byte)
}

type BatcherConfig struct {
	Timeout            time.Duration
	BatchSizeThreshold int
	IdleTimeThreshold  time.Duration
	BundleTopic        string
}

// Batcher accumulates normalized, filtered, anomaly-scored messages and
// flushes them as one bundle when the dynamic timeout, the size threshold,
// or the idle threshold fires.
//
// HandleRaw runs on the transport callback goroutine; Run polls on its own
// goroutine. The two share only the mutex-guarded queue and timing fields.
// Per-sensor state in the filter and detector is touched only from the
// callback goroutine.
type Batcher struct {
	cfg      BatcherConfig
	pub      Publisher
	noise    *NoiseFilter
	detector *AnomalyDetector
	zoneMap  map[string]string
	alerts   AlertSink
	logger   *zap.Logger

	mu           sync.Mutex
	queue        []map[string]any
	batchStart   time.Time
	lastReceived time.Time
	lastBatch    []byte

	stop     chan struct{}
	stopOnce sync.Once
}

func NewBatcher(cfg BatcherConfig, pub Publisher, noise *NoiseFilter, detector *AnomalyDetector, zoneMap map[string]string, alerts AlertSink, logger *zap.Logger) *Batcher {
	logger.Info("initialising message batcher",
		zap.Duration("timeout", cfg.Timeout),
		zap.Int("batch_size_threshold", cfg.BatchSizeThreshold),
		zap.Duration("idle_time_threshold", cfg.IdleTimeThreshold))

	return &Batcher{
		cfg:          cfg,
		pub:          pub,
		noise:        noise,
		detector:     detector,
		zoneMap:      zoneMap,
		alerts:       alerts,
		logger:       logger,
		lastReceived: time.Now(),
		stop:         make(chan struct{}),
	}
}

// HandleRaw processes one transport payload. Malformed JSON is the only
// thing truly discarded here; schema failures are tagged and forwarded, and
// suppressed messages never touch the batch timer.
func (b *Batcher) HandleRaw(payload []byte) {
	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		b.logger.Error("error decoding message payload",
			zap.ByteString("payload", payload), zap.Error(err))
		metrics.DecodeErrors.Inc()
		return
	}

	msg, ok := schema.Normalize(raw, b.zoneMap)

	var entry map[string]any
	if !ok {
		raw[schema.ValidationFailedKey] = true
		entry = raw
		metrics.ValidationFailures.Inc()
		b.logger.Warn("message failed schema validation, forwarding tagged",
			zap.Any("payload", raw))
	} else {
		if b.noise.ShouldSuppress(msg) {
			metrics.MessagesSuppressed.Inc()
			b.logger.Debug("suppressed noisy message", zap.String("sensor_id", msg.SensorID))
			return
		}

		if b.detector.IsAnomalous(msg) {
			score := b.detector.Score()
			msg.Value["anomaly_score"] = score
			metrics.AnomaliesDetected.WithLabelValues(msg.SensorType).Inc()
			if b.alerts != nil {
				b.alerts.AnomalyDetected(msg.Map(), score)
			}
		}

		entry = msg.Map()
	}

	now := time.Now()

	b.mu.Lock()
	b.lastReceived = now
	b.queue = append(b.queue, entry)
	if b.batchStart.IsZero() {
		b.logger.Debug("starting batch timer")
		b.batchStart = now
	}
	qsize := len(b.queue)
	b.mu.Unlock()

	metrics.MessagesReceived.Inc()
	metrics.QueueSize.Set(float64(qsize))

	if b.alerts != nil {
		b.alerts.MessageAccepted(entry)
	}
}

// DynamicTimeout adapts the flush timeout to the observed arrival rate.
// Bursts shrink the window so they flush quickly; sparse traffic shortens
// it relative to the inflated average so stragglers don't hold a batch
// open. Pure function of its inputs so it is testable without a clock.
func DynamicTimeout(queueSize int, elapsed time.Duration, base time.Duration) time.Duration {
	avg := base
	if queueSize > 1 {
		avg = elapsed / time.Duration(queueSize-1)
	}

	var dynamic time.Duration
	switch {
	case avg < base/2:
		dynamic = avg * 3 / 2
	case avg > base*2:
		dynamic = avg * 4 / 5
	default:
		dynamic = base
	}

	if dynamic < minTimeout {
		dynamic = minTimeout
	}
	if dynamic > maxTimeout {
		dynamic = maxTimeout
	}
	return dynamic
}

// Run polls the flush conditions until Stop is called. Per-message failures
// never abort the loop.
func (b *Batcher) Run() {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stop:
			return
		case <-ticker.C:
			b.checkFlush(time.Now())
		}
	}
}

func (b *Batcher) checkFlush(now time.Time) {
	b.mu.Lock()
	qsize := len(b.queue)
	started := !b.batchStart.IsZero()

	var elapsed, observed time.Duration
	if started {
		elapsed = now.Sub(b.batchStart)
		observed = b.lastReceived.Sub(b.batchStart)
	}
	idle := now.Sub(b.lastReceived)
	b.mu.Unlock()

	timeout := DynamicTimeout(qsize, observed, b.cfg.Timeout)

	if (started && elapsed >= timeout) || qsize >= b.cfg.BatchSizeThreshold {
		b.Flush()
		return
	}

	// Slow trickles never hit the size threshold and push the dynamic
	// timeout high; the idle threshold catches them.
	if idle >= b.cfg.IdleTimeThreshold && qsize > 0 {
		b.Flush()
	}
}

// Flush drains the queue in arrival order and publishes it as one bundle.
// The batch timer resets even when the queue was empty.
func (b *Batcher) Flush() {
	b.mu.Lock()
	batch := b.queue
	b.queue = nil
	b.batchStart = time.Time{}
	b.mu.Unlock()

	metrics.QueueSize.Set(0)

	if len(batch) == 0 {
		return
	}

	payload, err := json.Marshal(map[string]any{"messages": batch})
	if err != nil {
		b.logger.Error("error encoding batch", zap.Error(err))
		return
	}

	b.mu.Lock()
	b.lastBatch = payload
	b.mu.Unlock()

	b.pub.Publish(b.cfg.BundleTopic, payload)
	metrics.BatchesPublished.Inc()
	metrics.BatchSize.Observe(float64(len(batch)))
	if b.alerts != nil {
		b.alerts.BatchPublished(len(batch), payload)
	}

	b.logger.Info("sent batched messages", zap.Int("count", len(batch)))
}

// LastBatch returns the most recently published bundle payload, or nil.
func (b *Batcher) LastBatch() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastBatch
}

// QueueSize reports the number of messages waiting for the next flush.
func (b *Batcher) QueueSize() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

func (b *Batcher) Stop() {
	b.stopOnce.Do(func() {
		b.logger.Info("stopping message batcher")
		close(b.stop)
	})
}
