package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/perchlabs/perch/internal/usecase/moderation"
)

const moderationPrompt = `You are a content moderator for a campus people-search app.
Classify search queries as ALLOW or BLOCK for a college social context.

ALLOW: playful or neutral appearance descriptions ("curly red hair",
"person with glasses", "most attractive"), style, neutral ethnic
descriptors used for face search, public-figure lookalikes, positive
personality or vibe queries, fun superlatives.

BLOCK: derogatory appearance queries ("ugliest", body shaming), crude
sexual content beyond simple attractiveness, mocking of disability,
animal comparisons, criminal or harmful implications ("school shooter
vibes"), racial slurs or negative stereotypes (neutral descriptors stay
allowed), lookalike comparisons to criminals or historical villains.

Be lenient with playful college queries. Block only genuinely harmful,
derogatory, or dangerous content.

Respond as JSON: {"decision": "ALLOW" or "BLOCK", "reason": "1-2 sentence explanation"}`

// Moderator classifies search queries with a chat-completion model.
type Moderator struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// ModeratorConfig holds the moderation provider settings.
type ModeratorConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// NewModerator creates a chat-completion backed moderator.
func NewModerator(cfg *ModeratorConfig) *Moderator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	return &Moderator{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		logger: cfg.Logger,
	}
}

// Classify implements moderation.Classifier. Errors are returned to the
// caller; the moderation service decides the fail-open policy.
func (m *Moderator) Classify(ctx context.Context, query string) (moderation.Decision, error) {
	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       m.model,
		Temperature: 0,
		MaxTokens:   100,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: moderationPrompt},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Query to moderate: %q", query)},
		},
	})
	if err != nil {
		return moderation.Decision{}, fmt.Errorf("moderation completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return moderation.Decision{}, fmt.Errorf("moderation completion: empty response")
	}

	var verdict struct {
		Decision string `json:"decision"`
		Reason   string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &verdict); err != nil {
		return moderation.Decision{}, fmt.Errorf("parse moderation verdict: %w", err)
	}

	// Anything that is not an explicit ALLOW blocks.
	return moderation.Decision{
		Allowed: strings.EqualFold(verdict.Decision, "ALLOW"),
		Reason:  verdict.Reason,
	}, nil
}
