package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	perplexityURL   = "https://api.perplexity.ai/chat/completions"
	perplexityModel = "sonar"

	maxResponseBytes = 1 << 20
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// perplexity talks to an OpenAI style chat completions endpoint.
type perplexity struct {
	url        string
	model      string
	apiKey     string
	httpClient *http.Client
}

func newPerplexity(cfg Config, httpClient *http.Client) *perplexity {
	p := &perplexity{
		url:        perplexityURL,
		model:      perplexityModel,
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}
	if cfg.BaseURL != "" {
		p.url = cfg.BaseURL
	}
	if cfg.Model != "" {
		p.model = cfg.Model
	}
	return p
}

func (p *perplexity) name() string { return ProviderPerplexity }

func (p *perplexity) complete(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("error encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("error building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error calling %s: %w", p.name(), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("error reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &ParseError{Reason: "completion envelope is not JSON", Snippet: summarize(string(raw)), Err: err}
	}
	if len(parsed.Choices) == 0 {
		return "", &ParseError{Reason: "completion has no choices", Snippet: summarize(string(raw))}
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", &ParseError{
			Reason:  fmt.Sprintf("completion is empty (finish_reason=%q)", parsed.Choices[0].FinishReason),
			Snippet: summarize(string(raw)),
		}
	}

	return content, nil
}
