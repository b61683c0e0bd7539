package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/designai/studio-backend/internal/llm"
)

type stubChatter struct {
	reply string
	err   error
	got   []llm.Message
}

func (s *stubChatter) Chat(_ context.Context, msgs []llm.Message) (string, error) {
	s.got = msgs
	return s.reply, s.err
}

func TestEnhance_Success(t *testing.T) {
	ch := &stubChatter{reply: "  一只橘猫坐在木桌上，柔和自然光  "}
	svc := &PromptService{LLM: ch}

	out, err := svc.Enhance(context.Background(), "u1", " 橘猫 ")
	if err != nil || out != "一只橘猫坐在木桌上，柔和自然光" {
		t.Fatalf("Enhance = (%q, %v)", out, err)
	}
	if len(ch.got) != 2 || ch.got[0].Role != "system" || ch.got[1].Content != "橘猫" {
		t.Fatalf("unexpected messages: %+v", ch.got)
	}
}

func TestEnhance_Validation(t *testing.T) {
	svc := &PromptService{LLM: &stubChatter{}, MaxPromptRunes: 5}
	if _, err := svc.Enhance(context.Background(), "u1", "   "); !errors.Is(err, ErrPromptRequired) {
		t.Fatalf("expected ErrPromptRequired, got %v", err)
	}
	if _, err := svc.Enhance(context.Background(), "u1", strings.Repeat("猫", 6)); !errors.Is(err, ErrPromptTooLong) {
		t.Fatalf("expected ErrPromptTooLong, got %v", err)
	}
}

func TestEnhance_Unavailable(t *testing.T) {
	if _, err := (&PromptService{}).Enhance(context.Background(), "u1", "x"); !errors.Is(err, ErrLLMUnavailable) {
		t.Fatalf("nil client: expected ErrLLMUnavailable, got %v", err)
	}
	svc := &PromptService{LLM: &stubChatter{err: llm.ErrMissingAPIKey}}
	if _, err := svc.Enhance(context.Background(), "u1", "x"); !errors.Is(err, ErrLLMUnavailable) {
		t.Fatalf("missing key: expected ErrLLMUnavailable, got %v", err)
	}
}

func TestEnhance_UpstreamErrorPassesThrough(t *testing.T) {
	upstream := &llm.APIError{StatusCode: 500, Status: "500 Internal Server Error"}
	svc := &PromptService{LLM: &stubChatter{err: upstream}}

	_, err := svc.Enhance(context.Background(), "u1", "x")
	var apiErr *llm.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 500 {
		t.Fatalf("expected *llm.APIError, got %v", err)
	}
}
