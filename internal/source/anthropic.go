package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// anthropicMessages talks to the Anthropic Messages API. The SDK's own
// retries are disabled; Client decides what is retried.
type anthropicMessages struct {
	client anthropic.Client
	model  anthropic.Model
}

func newAnthropic(cfg Config, httpClient *http.Client) *anthropicMessages {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(httpClient),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := anthropic.ModelClaudeHaiku4_5
	if cfg.Model != "" {
		model = anthropic.Model(cfg.Model)
	}

	return &anthropicMessages{
		client: anthropic.NewClient(opts...),
		model:  model,
	}
}

func (a *anthropicMessages) name() string { return ProviderAnthropic }

func (a *anthropicMessages) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{{
			Text: system,
		}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return "", &StatusError{StatusCode: apiErr.StatusCode, Body: apiErr.Error()}
	}
	if err != nil {
		return "", fmt.Errorf("error calling %s: %w", a.name(), err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	content := strings.TrimSpace(text.String())
	if content == "" {
		return "", &ParseError{Reason: fmt.Sprintf("message is empty (stop_reason=%q)", resp.StopReason)}
	}

	return content, nil
}
