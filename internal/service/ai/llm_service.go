package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/zhouzirui/cv-master/backend/internal/config"
	"github.com/zhouzirui/cv-master/backend/internal/model/cv"
)

// User-facing messages returned instead of provider output.
const (
	GenerationFailedMessage = "Неуспешно поврзување со AI сервисот."
	EmptyResultMessage      = "Се појави грешка при генерирањето. Ве молиме обидете се повторно."
)

// ErrProviderUnavailable is returned by the placeholder provider used when no credentials are configured.
var ErrProviderUnavailable = errors.New("generation provider not configured")

// Request is the narrow shape every generation provider accepts.
type Request struct {
	Model             string
	SystemInstruction string
	UserInstruction   string
	ThinkingBudget    int32
}

// Response carries the provider's raw text.
type Response struct {
	Text string
}

// Provider abstracts the external text-generation service.
type Provider interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// GenerationError is the only error Generate returns. Its message is fixed and safe to show to users;
// the provider cause is logged, never exposed.
type GenerationError struct {
	cause error
}

func (e *GenerationError) Error() string {
	return GenerationFailedMessage
}

// Service turns a completed draft into CV markup.
type Service struct {
	provider       Provider
	model          string
	thinkingBudget int32
	timeout        time.Duration
	prompts        *PromptBuilder
}

// NewService creates a generation service on top of the given provider.
func NewService(provider Provider, cfg config.AIConfig) *Service {
	if provider == nil {
		provider = unavailableProvider{}
	}
	return &Service{
		provider:       provider,
		model:          cfg.ModelName(),
		thinkingBudget: cfg.ThinkingBudget,
		timeout:        cfg.Timeout,
		prompts:        NewPromptBuilder(),
	}
}

// Generate asks the provider for a single self-contained HTML document.
func (s *Service) Generate(ctx context.Context, draft cv.Draft) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req := Request{
		Model:             s.model,
		SystemInstruction: s.prompts.SystemInstruction(),
		UserInstruction:   s.prompts.UserInstruction(draft),
		ThinkingBudget:    s.thinkingBudget,
	}

	resp, err := s.provider.Complete(ctx, req)
	if err != nil {
		log.Printf("[ai] generation failed, model=%s: %v", s.model, err)
		return "", &GenerationError{cause: fmt.Errorf("provider complete: %w", err)}
	}

	if resp.Text == "" {
		log.Printf("[ai] provider returned empty document, model=%s", s.model)
		return EmptyResultMessage, nil
	}

	log.Printf("[ai] generated document, model=%s, template=%s, length=%d", s.model, draft.TemplateChoice, len(resp.Text))
	return resp.Text, nil
}

type unavailableProvider struct{}

func (unavailableProvider) Complete(context.Context, Request) (Response, error) {
	return Response{}, ErrProviderUnavailable
}
