package worker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"go.temporal.io/sdk/temporal"
)

// Summarizer writes a short summary of a page's text.
type Summarizer interface {
	Summarize(ctx context.Context, title, text string) (string, error)
}

// Only the start of a page is sent along.
const maxSummarizeInput = 8000

const summarizeSystemPrompt = `You write summaries for a shared list of learning resources.
Given the title and text of a web page, reply with a summary of at most two sentences
that tells a reader what they would learn from it.
Reply with the summary only, no preamble and no markup.`

// ClaudeSummarizer summarizes with Claude.
type ClaudeSummarizer struct {
	client *anthropic.Client
}

func NewClaudeSummarizer(client *anthropic.Client) ClaudeSummarizer {
	return ClaudeSummarizer{client: client}
}

func (c ClaudeSummarizer) Summarize(ctx context.Context, title, text string) (string, error) {
	if len(text) > maxSummarizeInput {
		text = text[:maxSummarizeInput]
	}

	msg := fmt.Sprintf("Title: %s\n\n%s", title, text)
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model("claude-haiku-4-5"), // same value as ModelClaudeHaiku4_5 (absent in SDK v1.9.0, last release supporting go 1.21)
		MaxTokens: 256,
		System: []anthropic.TextBlockParam{
			{Text: summarizeSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(msg)),
		},
	})
	var claudeErr *anthropic.Error
	if errors.As(err, &claudeErr) && claudeErr.StatusCode == http.StatusTooManyRequests {
		return "", temporal.NewApplicationError("rate limited by claude", errTypeRateLimit, err)
	}
	if err != nil {
		return "", temporal.NewApplicationError("error summarizing", errTypeInternal, err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		b.WriteString(block.Text)
	}

	return strings.TrimSpace(b.String()), nil
}
