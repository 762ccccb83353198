// Package content drafts post copy for listings. It is a boundary
// collaborator of the pipeline: the orchestrator treats any error here as
// item-fatal.
package content

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/propline/promopost/internal/config"
	"github.com/propline/promopost/internal/types"
)

// Generator drafts listing copy using Anthropic's Claude API.
type Generator struct {
	client    *anthropic.Client
	model     string
	maxTokens int
	agencyTag string
}

// New creates a generator from config.
func New(cfg config.ContentConfig, apiKey string) (*Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is not set")
	}
	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)
	return &Generator{
		client:    &client,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		agencyTag: cfg.AgencyTag,
	}, nil
}

// Draft produces the post text for one listing.
func (g *Generator) Draft(ctx context.Context, item types.ListingItem) (types.ContentDraft, error) {
	prompt := buildPrompt(item, g.agencyTag)

	message, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: int64(g.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return types.ContentDraft{}, fmt.Errorf("failed to call Claude API: %w", err)
	}

	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}
	if text == "" {
		return types.ContentDraft{}, fmt.Errorf("Claude returned empty response")
	}

	return types.ContentDraft{
		ItemID:    item.ID,
		Text:      text,
		Model:     g.model,
		CreatedAt: time.Now(),
	}, nil
}
