// internal/agent/listener.go
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/harperreed/houseagent/internal/memory"
	"github.com/harperreed/houseagent/internal/metrics"
	"github.com/harperreed/houseagent/internal/severity"
	"github.com/harperreed/houseagent/internal/situation"
	"github.com/harperreed/houseagent/internal/storage"
)

// Publisher is the transport slice the listener needs for notifications.
type Publisher interface {
	Publish(topic string, payload []byte)
}

const (
	llmTimeout      = 120 * time.Second
	memorySearchTop = 3
)

// Listener consumes message bundles, builds situations, and drives the
// narration flow: severity scoring, model routing, history, optional
// semantic memory, and publication of the response.
type Listener struct {
	builder           *situation.Builder
	plan              *situation.FloorPlan
	bot               *HouseBot
	history           *storage.History
	mem               *memory.SemanticMemory
	pub               Publisher
	notificationTopic string
	lastSituation     string
	logger            *zap.Logger
}

func NewListener(builder *situation.Builder, plan *situation.FloorPlan, bot *HouseBot, history *storage.History, mem *memory.SemanticMemory, pub Publisher, notificationTopic string, logger *zap.Logger) *Listener {
	return &Listener{
		builder:           builder,
		plan:              plan,
		bot:               bot,
		history:           history,
		mem:               mem,
		pub:               pub,
		notificationTopic: notificationTopic,
		logger:            logger,
	}
}

// HandleBundle processes one bundle payload from the collector. All
// failures are logged and swallowed; a bad bundle never takes the listener
// down.
func (l *Listener) HandleBundle(payload []byte) {
	var bundle struct {
		Messages []map[string]any `json:"messages"`
	}
	if err := json.Unmarshal(payload, &bundle); err != nil {
		l.logger.Error("error decoding bundle payload", zap.Error(err))
		return
	}

	sit := l.builder.Build(bundle.Messages, l.plan)
	if sit == nil {
		l.logger.Debug("bundle produced no situation",
			zap.Int("message_count", len(bundle.Messages)))
		return
	}
	metrics.SituationsBuilt.Inc()

	if !sit.RequiresResponse() {
		l.logger.Debug("situation does not require a response", zap.String("id", sit.ID))
		return
	}

	currentJSON, err := json.Marshal(sit.ToPromptJSON())
	if err != nil {
		l.logger.Error("error encoding situation", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), llmTimeout)
	defer cancel()

	// Pre-filter: the classifier tier vetoes routine activity before any
	// narration work happens. Fails open so a filter outage never mutes
	// the agent.
	respond, err := l.bot.ShouldRespond(ctx, string(currentJSON))
	if err != nil {
		l.logger.Warn("response filter failed, continuing", zap.Error(err))
	} else if !respond {
		l.logger.Info("response filter vetoed narration", zap.String("situation", sit.ID))
		return
	}

	score := severity.Score(map[string]any{
		"confidence":     sit.Confidence,
		"anomaly_scores": sit.Features.AnomalyScores,
		"zones":          sit.Features.Zones,
	})

	l.recordMemory(ctx, map[string]any{"messages": bundle.Messages}, "user")

	l.history.Add("user", l.userTurn(ctx, string(currentJSON), sit.Features.Zones))

	response, err := l.bot.GenerateResponse(ctx, score, string(currentJSON), l.lastSituation, l.history.Turns())
	l.lastSituation = string(currentJSON)
	if err != nil {
		l.logger.Error("narration failed", zap.String("situation", sit.ID), zap.Error(err))
		return
	}

	l.history.Add("assistant", response)
	l.recordMemory(ctx, map[string]any{"response": response}, "assistant")

	l.pub.Publish(l.notificationTopic, []byte(response))
	l.logger.Info("published notification",
		zap.String("situation", sit.ID),
		zap.Float64("severity", score))
}

// userTurn prepends spatial context and related memories, when available,
// to the situation JSON so the model sees more than the rolling history.
func (l *Listener) userTurn(ctx context.Context, currentJSON string, zones []string) string {
	return l.spatialContext(zones) + l.memoryContext(ctx, currentJSON) + currentJSON
}

// spatialContext renders the floor-plan neighborhood of the situation's
// zones, so the model can reason about movement between rooms.
func (l *Listener) spatialContext(zones []string) string {
	var lines string
	for _, zone := range zones {
		adjacent := l.plan.AdjacentZones(zone)
		if len(adjacent) == 0 {
			continue
		}
		lines += fmt.Sprintf("- %s borders %s\n", zone, strings.Join(adjacent, ", "))
	}
	if lines == "" {
		return ""
	}
	return "# Floor plan:\n" + lines + "\n"
}

func (l *Listener) memoryContext(ctx context.Context, currentJSON string) string {
	if l.mem == nil {
		return ""
	}

	entries, err := l.mem.Search(ctx, currentJSON, memorySearchTop)
	if err != nil {
		l.logger.Warn("semantic memory search failed", zap.Error(err))
		return ""
	}
	if len(entries) == 0 {
		return ""
	}

	related := "# Related recent activity:\n"
	for _, entry := range entries {
		related += fmt.Sprintf("- %s\n", entry.Text)
	}
	return related + "\n"
}

func (l *Listener) recordMemory(ctx context.Context, message map[string]any, role string) {
	if l.mem == nil {
		return
	}
	if err := l.mem.AddMessage(ctx, message, role); err != nil {
		l.logger.Warn("semantic memory write failed", zap.Error(err))
	}
}
