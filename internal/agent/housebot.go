// internal/agent/housebot.go
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/harperreed/houseagent/internal/config"
	"github.com/harperreed/houseagent/internal/metrics"
	"github.com/harperreed/houseagent/internal/severity"
	"github.com/harperreed/houseagent/internal/storage"
)

// ChatClient abstracts the chat-completion calls so the listener and bot can
// be tested without the OpenAI API. ChatCompletionJSON constrains the model
// to a JSON object response.
type ChatClient interface {
	ChatCompletion(ctx context.Context, model string, temperature float64, messages []storage.Turn) (string, error)
	ChatCompletionJSON(ctx context.Context, model string, temperature float64, messages []storage.Turn) (string, error)
}

var emojiPattern = regexp.MustCompile(`[\x{10000}-\x{10FFFF}]`)

const (
	defaultSystemPrompt = "You are a home monitoring narrator. Summarize the situation in one or two dry sentences. Default state: {default_state}"
	defaultHumanPrompt  = "# The current state is:\n{current_state}\n\n# The previous state was:\n{last_state}"
	defaultFilterPrompt = "You decide whether home sensor activity warrants a narrated notification. " +
		"Routine, repetitive activity does not. Respond with a JSON object: {\"should_respond\": true} or {\"should_respond\": false}."
)

// HouseBot turns a situation into a natural-language narration. Model tier
// is selected per call from the situation's severity score.
type HouseBot struct {
	client          ChatClient
	classifierModel string
	synthesisModel  string
	temperature     float64
	systemTemplate  string
	humanTemplate   string
	filterTemplate  string
	defaultState    string
	logger          *zap.Logger
}

func NewHouseBot(client ChatClient, cfg config.OpenAIConfig, logger *zap.Logger) *HouseBot {
	bot := &HouseBot{
		client:          client,
		classifierModel: cfg.ClassifierModel,
		synthesisModel:  cfg.SynthesisModel,
		temperature:     cfg.Temperature,
		systemTemplate:  defaultSystemPrompt,
		humanTemplate:   defaultHumanPrompt,
		defaultState:    "{}",
		logger:          logger,
	}

	bot.systemTemplate = loadTemplate(cfg.PromptDir, "housebot_system.txt", defaultSystemPrompt, logger)
	bot.humanTemplate = loadTemplate(cfg.PromptDir, "housebot_human.txt", defaultHumanPrompt, logger)
	bot.filterTemplate = loadTemplate(cfg.PromptDir, "should_respond_system.txt", defaultFilterPrompt, logger)
	bot.defaultState = loadTemplate(cfg.PromptDir, "default_state.json", "{}", logger)

	return bot
}

func loadTemplate(dir, name, fallback string, logger *zap.Logger) string {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		logger.Warn("prompt template missing, using built-in default",
			zap.String("template", name), zap.Error(err))
		return fallback
	}
	return string(data)
}

// ShouldRespond asks the classifier tier whether the situation is worth
// narrating at all. The model is held to a JSON object response and its
// verdict parsed from {"should_respond": bool}.
func (b *HouseBot) ShouldRespond(ctx context.Context, situationJSON string) (bool, error) {
	messages := []storage.Turn{
		{Role: "system", Content: b.filterTemplate},
		{Role: "user", Content: situationJSON},
	}

	result, err := b.client.ChatCompletionJSON(ctx, b.classifierModel, b.temperature, messages)
	if err != nil {
		metrics.LLMRequests.WithLabelValues(b.classifierModel, "error").Inc()
		return false, fmt.Errorf("response filter: %w", err)
	}
	metrics.LLMRequests.WithLabelValues(b.classifierModel, "ok").Inc()

	var verdict struct {
		ShouldRespond bool `json:"should_respond"`
	}
	if err := json.Unmarshal([]byte(result), &verdict); err != nil {
		return false, fmt.Errorf("decoding filter verdict %q: %w", result, err)
	}
	return verdict.ShouldRespond, nil
}

// GenerateResponse narrates the current situation. severityScore picks the
// model tier; message history, when present, replaces the two-state human
// prompt. The call is synchronous and is not retried on failure.
func (b *HouseBot) GenerateResponse(ctx context.Context, severityScore float64, currentState, lastState string, history []storage.Turn) (string, error) {
	model := severity.SelectModel(severityScore, b.classifierModel, b.synthesisModel)

	systemPrompt := strings.ReplaceAll(b.systemTemplate, "{default_state}", b.defaultState)
	messages := []storage.Turn{{Role: "system", Content: systemPrompt}}

	if len(history) > 0 {
		messages = append(messages, history...)
		b.logger.Debug("using message history", zap.Int("turns", len(history)))
	} else {
		if lastState == "" {
			lastState = b.defaultState
		}
		human := strings.ReplaceAll(b.humanTemplate, "{current_state}", currentState)
		human = strings.ReplaceAll(human, "{last_state}", lastState)
		messages = append(messages, storage.Turn{Role: "user", Content: human})
	}

	result, err := b.client.ChatCompletion(ctx, model, b.temperature, messages)
	if err != nil {
		metrics.LLMRequests.WithLabelValues(model, "error").Inc()
		return "", fmt.Errorf("chat completion: %w", err)
	}
	metrics.LLMRequests.WithLabelValues(model, "ok").Inc()

	return emojiPattern.ReplaceAllString(result, ""), nil
}

// OpenAIClient implements ChatClient and memory.Embedder over the OpenAI
// API.
type OpenAIClient struct {
	client *openai.Client
}

func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{client: openai.NewClient(apiKey)}
}

func (c *OpenAIClient) ChatCompletion(ctx context.Context, model string, temperature float64, messages []storage.Turn) (string, error) {
	return c.complete(ctx, model, temperature, messages, nil)
}

func (c *OpenAIClient) ChatCompletionJSON(ctx context.Context, model string, temperature float64, messages []storage.Turn) (string, error) {
	return c.complete(ctx, model, temperature, messages, &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONObject,
	})
}

func (c *OpenAIClient) complete(ctx context.Context, model string, temperature float64, messages []storage.Turn, format *openai.ChatCompletionResponseFormat) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:          model,
		Temperature:    float32(temperature),
		ResponseFormat: format,
	}
	for _, turn := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    turn.Role,
			Content: turn.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.SmallEmbedding3,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}
	return resp.Data[0].Embedding, nil
}
