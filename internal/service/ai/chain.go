package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// ChainProvider runs the instructions through an eino prompt chain backed by any chat model.
// The thinking budget is a Gemini setting and is not forwarded.
type ChainProvider struct {
	chain compose.Runnable[map[string]any, *schema.Message]
}

// NewChainProvider compiles a system+user prompt chain around chatModel.
func NewChainProvider(ctx context.Context, chatModel model.ChatModel) (*ChainProvider, error) {
	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile generation chain: %w", err)
	}

	return &ChainProvider{chain: runnable}, nil
}

// Complete implements Provider.
func (p *ChainProvider) Complete(ctx context.Context, req Request) (Response, error) {
	msg, err := p.chain.Invoke(ctx, map[string]any{
		"system": req.SystemInstruction,
		"query":  req.UserInstruction,
	})
	if err != nil {
		return Response{}, fmt.Errorf("failed to run generation chain: %w", err)
	}
	if msg == nil {
		return Response{}, nil
	}
	return Response{Text: msg.Content}, nil
}
