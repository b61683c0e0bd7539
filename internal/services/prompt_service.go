// Package services – PromptService
//
// PromptService rewrites a short user idea into a detailed image-generation
// prompt using the chat-completion client.
package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/designai/studio-backend/internal/llm"
	"github.com/designai/studio-backend/internal/observability"
)

const enhanceSystemPrompt = "你是一名资深电商视觉设计师。请把用户的简短描述扩写成一段适合AI图像生成的详细提示词，" +
	"包含主体、场景、光线、构图与风格。只输出提示词本身，不要解释。"

// Chatter is the chat-completion contract. *llm.Client satisfies it.
type Chatter interface {
	Chat(ctx context.Context, messages []llm.Message) (string, error)
}

// PromptService enhances prompts through an LLM.
type PromptService struct {
	LLM            Chatter
	MaxPromptRunes int
}

// Enhance returns the rewritten prompt. A missing API key surfaces as
// ErrLLMUnavailable; upstream failures are returned unchanged.
func (s *PromptService) Enhance(ctx context.Context, userID, prompt string) (string, error) {
	ctx, span := otel.Tracer("services/PromptService").Start(ctx, "Enhance",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", ErrPromptRequired
	}
	if s.MaxPromptRunes > 0 && utf8.RuneCountInString(prompt) > s.MaxPromptRunes {
		return "", ErrPromptTooLong
	}
	if s.LLM == nil {
		return "", ErrLLMUnavailable
	}

	out, err := s.LLM.Chat(ctx, []llm.Message{
		{Role: "system", Content: enhanceSystemPrompt},
		{Role: "user", Content: prompt},
	})
	if errors.Is(err, llm.ErrMissingAPIKey) {
		return "", ErrLLMUnavailable
	}
	observability.RecordLLMCall(err == nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
