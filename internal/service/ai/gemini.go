package ai

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiProvider calls the Gemini API with extended thinking enabled.
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider creates a provider from a genai client configuration.
func NewGeminiProvider(ctx context.Context, cfg *genai.ClientConfig) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiProvider{client: client}, nil
}

// Complete implements Provider.
func (p *GeminiProvider) Complete(ctx context.Context, req Request) (Response, error) {
	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.SystemInstruction, genai.RoleUser),
	}
	if req.ThinkingBudget > 0 {
		budget := req.ThinkingBudget
		genCfg.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: &budget}
	}

	resp, err := p.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.UserInstruction), genCfg)
	if err != nil {
		return Response{}, err
	}

	return Response{Text: resp.Text()}, nil
}
