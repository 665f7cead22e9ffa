package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL   = "https://api.openai.com/v1/chat/completions"
	defaultModel     = "gpt-4.1-mini"
	defaultMaxTokens = 1200
	defaultTimeout   = 60 * time.Second
)

// OpenAI calls an OpenAI-compatible chat-completions endpoint and returns
// the raw message content. Temperature is pinned to 0: drafts should be as
// reproducible as the provider allows.
type OpenAI struct {
	opts   Options
	client *http.Client
}

// NewOpenAI creates a provider for an OpenAI-compatible endpoint, filling in
// defaults for anything unset.
func NewOpenAI(opts Options) *OpenAI {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = defaultModel
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &OpenAI{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
	}
}

// GenerateJSON sends the prompt pair and returns the first choice's content
// with markdown fences stripped. Timeouts, non-2xx responses, and empty
// content are all plain errors; the caller falls back the same way for each.
func (p *OpenAI) GenerateJSON(ctx context.Context, templateKey, systemPrompt, userPrompt string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model": p.opts.Model,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userPrompt},
		},
		"max_tokens":  p.opts.MaxTokens,
		"temperature": 0,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.opts.BaseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.opts.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", templateKey, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s HTTP %d: %s", templateKey, resp.StatusCode, truncate(strings.TrimSpace(string(respBody)), 200))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil || len(result.Choices) == 0 {
		return "", fmt.Errorf("empty %s response", templateKey)
	}

	content := cleanJSON(result.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("empty %s content", templateKey)
	}
	return content, nil
}

// cleanJSON strips markdown fences some models wrap around JSON output.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
