// internal/memory/semantic.go
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/harperreed/houseagent/internal/config"
)

// Embedder produces a vector for a piece of text. The production
// implementation lives in the agent package on top of the OpenAI client.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Entry is one recalled memory.
type Entry struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	Role       string    `json:"role"`
	At         time.Time `json:"at"`
	Similarity float64   `json:"similarity"`
}

// SemanticMemory keeps naturalized message text plus embeddings in Redis:
// one hash per entry, a sorted set scored by Unix timestamp for the recency
// window. Search is cosine similarity over the windowed candidates.
// Entirely optional; failures are logged and never crash the agent.
type SemanticMemory struct {
	client     *redis.Client
	embedder   Embedder
	collection string
	timeWindow time.Duration
	logger     *zap.Logger
}

func New(cfg config.MemoryConfig, embedder Embedder, logger *zap.Logger) (*SemanticMemory, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &SemanticMemory{
		client:     client,
		embedder:   embedder,
		collection: cfg.Collection,
		timeWindow: time.Duration(cfg.TimeWindowHours) * time.Hour,
		logger:     logger,
	}, nil
}

func (m *SemanticMemory) indexKey() string {
	return m.collection + ":index"
}

// AddMessage naturalizes, embeds, and stores a message keyed by role and
// Unix timestamp.
func (m *SemanticMemory) AddMessage(ctx context.Context, message map[string]any, role string) error {
	now := time.Now()
	text := Naturalize(message)

	vector, err := m.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embedding message: %w", err)
	}

	encoded, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("encoding embedding: %w", err)
	}

	id := fmt.Sprintf("%s:%s_%d", m.collection, role, now.UnixMicro())

	pipe := m.client.TxPipeline()
	pipe.HSet(ctx, id, map[string]any{
		"text":      text,
		"role":      role,
		"ts":        now.Unix(),
		"embedding": encoded,
	})
	pipe.ZAdd(ctx, m.indexKey(), redis.Z{Score: float64(now.Unix()), Member: id})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("storing memory entry: %w", err)
	}

	m.logger.Debug("added message to semantic memory",
		zap.String("id", id), zap.String("role", role))
	return nil
}

// Search returns up to limit entries inside the recency window, most
// similar first.
func (m *SemanticMemory) Search(ctx context.Context, query string, limit int) ([]Entry, error) {
	queryVec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	cutoff := time.Now().Add(-m.timeWindow).Unix()
	ids, err := m.client.ZRangeByScore(ctx, m.indexKey(), &redis.ZRangeBy{
		Min: strconv.FormatInt(cutoff, 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("querying memory index: %w", err)
	}

	var entries []Entry
	for _, id := range ids {
		fields, err := m.client.HGetAll(ctx, id).Result()
		if err != nil || len(fields) == 0 {
			continue
		}

		var vector []float32
		if err := json.Unmarshal([]byte(fields["embedding"]), &vector); err != nil {
			m.logger.Warn("undecodable embedding in memory entry", zap.String("id", id))
			continue
		}

		ts, _ := strconv.ParseInt(fields["ts"], 10, 64)
		entries = append(entries, Entry{
			ID:         id,
			Text:       fields["text"],
			Role:       fields["role"],
			At:         time.Unix(ts, 0),
			Similarity: cosineSimilarity(queryVec, vector),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Similarity > entries[j].Similarity
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (m *SemanticMemory) Close() error {
	return m.client.Close()
}

// Naturalize renders a message as prose for embedding. Batches flatten to
// one line per member; unrecognized shapes stringify.
func Naturalize(message map[string]any) string {
	if inner, ok := message["messages"].([]map[string]any); ok {
		out := ""
		for _, msg := range inner {
			if out != "" {
				out += " "
			}
			out += naturalizeSingle(msg)
		}
		return out
	}
	if inner, ok := message["messages"].([]any); ok {
		out := ""
		for _, raw := range inner {
			msg, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if out != "" {
				out += " "
			}
			out += naturalizeSingle(msg)
		}
		return out
	}
	return naturalizeSingle(message)
}

func naturalizeSingle(msg map[string]any) string {
	if sensorType, ok := msg["sensor_type"].(string); ok {
		zone, _ := msg["zone_id"].(string)
		if zone == "" {
			zone = "unknown location"
		}
		return fmt.Sprintf("%s %s: %v", zone, sensorType, msg["value"])
	}
	if sensor, ok := msg["sensor"].(string); ok {
		room, _ := msg["room"].(string)
		if room == "" {
			room = "unknown location"
		}
		return fmt.Sprintf("%s %s: %v", room, sensor, msg["value"])
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Sprintf("%v", msg)
	}
	return string(raw)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
