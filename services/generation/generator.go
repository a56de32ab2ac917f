// Package generation produces grounded answers from retrieved context.
package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/upb/publication-rag/services"
	"github.com/upb/publication-rag/services/providers"
	"go.uber.org/zap"
)

// FallbackAnswer is returned when the provider succeeds without usable text
const FallbackAnswer = "No answer generated."

const baseSystemPrompt = "You are a helpful assistant that answers questions about job publications. " +
	"Use the following publication information to answer the user's query. " +
	"If the information doesn't contain the answer, say so."

// PromptVariant selects the system instruction
type PromptVariant string

const (
	// PromptStrict only grounds the answer in the context
	PromptStrict PromptVariant = "strict"

	// PromptExplain additionally asks the model to justify each match
	PromptExplain PromptVariant = "explain"
)

// SystemPrompt returns the instruction message for the variant.
// Unknown variants fall back to PromptExplain.
func SystemPrompt(v PromptVariant) string {
	if v == PromptStrict {
		return baseSystemPrompt
	}
	return baseSystemPrompt + " Explain why you think each publication is a match"
}

// ParsePromptVariant validates a configured variant name
func ParsePromptVariant(s string) (PromptVariant, error) {
	switch PromptVariant(strings.ToLower(strings.TrimSpace(s))) {
	case PromptStrict:
		return PromptStrict, nil
	case PromptExplain, "":
		return PromptExplain, nil
	}
	return "", fmt.Errorf("unknown prompt variant %q", s)
}

// UserMessage renders the context and question into the user turn
func UserMessage(query, context string) string {
	return "Context:\n" + context + "\n\nQuestion: " + query
}

// Generator wraps the chat provider
type Generator struct {
	provider providers.ChatProvider
	model    string
	variant  PromptVariant
	logger   *zap.Logger
}

// NewGenerator creates an answer generator
func NewGenerator(provider providers.ChatProvider, model string, variant PromptVariant, logger *zap.Logger) *Generator {
	return &Generator{
		provider: provider,
		model:    model,
		variant:  variant,
		logger:   logger,
	}
}

// GenerateAnswer sends exactly a system and a user message. Blank completions
// yield FallbackAnswer; only a failed provider call is an error.
func (g *Generator) GenerateAnswer(ctx context.Context, query, contextText string) (string, error) {
	start := time.Now()

	resp, err := g.provider.ChatCompletion(ctx, &providers.ChatRequest{
		Model: g.model,
		Messages: []providers.Message{
			{Role: providers.RoleSystem, Content: SystemPrompt(g.variant)},
			{Role: providers.RoleUser, Content: UserMessage(query, contextText)},
		},
	})
	if err != nil {
		return "", services.WrapExternal("chat completion failed", err)
	}

	answer := resp.Text()
	if strings.TrimSpace(answer) == "" {
		g.logger.Warn("provider returned no answer text, using fallback",
			zap.String("provider", g.provider.Name()),
			zap.String("model", g.model))
		return FallbackAnswer, nil
	}

	g.logger.Debug("answer generated",
		zap.String("provider", g.provider.Name()),
		zap.String("model", g.model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("latency", time.Since(start)))

	return answer, nil
}
