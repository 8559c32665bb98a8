// Package anthropic implements the generation.Generator interface using
// the Anthropic Messages API.
package anthropic

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/draftforge/research-api/internal/config"
	"github.com/draftforge/research-api/internal/generation"
	"github.com/draftforge/research-api/internal/platform/secrets"
)

// researchInstruction is the fixed system instruction describing the
// structure of the desired research artifact.
const researchInstruction = `You are a research assistant producing source material for long-form articles.
Given a topic, respond with a markdown research brief containing:
1. An executive summary of the topic.
2. Key findings grouped into themes.
3. Notable statistics and data points.
4. Sources or references worth consulting.
5. Suggested angles for an article on this topic.`

// ResearchGenerator implements the generation.Generator interface using
// Anthropic's Messages API to produce research briefs.
type ResearchGenerator struct {
	logger    *slog.Logger
	secrets   secrets.Provider
	model     string
	maxTokens int64
}

// NewResearchGenerator creates a new ResearchGenerator with the provided
// dependencies. The API credential is resolved lazily through the secrets
// provider on the first request, not at construction time.
//
// Returns generation.ErrInvalidConfig if the configuration is incomplete.
func NewResearchGenerator(
	logger *slog.Logger,
	secretProvider secrets.Provider,
	cfg config.LLMConfig,
) (*ResearchGenerator, error) {
	if logger == nil {
		return nil, fmt.Errorf("%w: logger cannot be nil", generation.ErrInvalidConfig)
	}
	if secretProvider == nil {
		return nil, fmt.Errorf("%w: secrets provider cannot be nil", generation.ErrInvalidConfig)
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.MaxTokens <= 0 {
		return nil, fmt.Errorf("%w: max tokens must be positive", generation.ErrInvalidConfig)
	}

	return &ResearchGenerator{
		logger:    logger.With(slog.String("component", "research_generator")),
		secrets:   secretProvider,
		model:     cfg.Model,
		maxTokens: int64(cfg.MaxTokens),
	}, nil
}

// Ensure ResearchGenerator implements generation.Generator
var _ generation.Generator = (*ResearchGenerator)(nil)

// Research implements generation.Generator.Research.
// It performs a single synchronous Messages call and extracts the first
// text block from the response. Provider errors are wrapped in
// generation.ErrProviderFailure and never retried here; the work queue owns
// retry.
func (g *ResearchGenerator) Research(ctx context.Context, topic string) (string, error) {
	apiKey, err := g.secrets.APIKey(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", generation.ErrProviderFailure, err)
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	g.logger.Info("requesting research from provider",
		slog.String("model", g.model),
		slog.Int("topic_length", len(topic)))

	message, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: g.maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: researchInstruction},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(topic)),
		},
	})
	if err != nil {
		g.logger.Error("provider call failed",
			slog.String("error", err.Error()),
			slog.String("model", g.model))
		return "", fmt.Errorf("%w: %v", generation.ErrProviderFailure, err)
	}

	body, err := extractText(message)
	if err != nil {
		g.logger.Error("provider returned unusable response",
			slog.String("error", err.Error()),
			slog.Int("content_blocks", len(message.Content)))
		return "", err
	}

	g.logger.Info("research generated",
		slog.Int("artifact_bytes", len(body)))
	return body, nil
}

// extractText scans the response's typed content blocks and returns the
// content of the first text block. Non-text blocks (tool use, thinking) are
// skipped. Returns generation.ErrNoTextContent when no text block exists.
func extractText(message *anthropic.Message) (string, error) {
	if message == nil {
		return "", generation.ErrNoTextContent
	}

	for _, block := range message.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}

	return "", generation.ErrNoTextContent
}
