package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// postJSON performs one JSON-in, JSON-out POST against a provider endpoint
// and decodes the body into out. Non-200 statuses become errors carrying
// the raw body, which is where providers report auth and quota failures.
func postJSON(ctx context.Context, client *http.Client, name, url string, headers map[string]string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: status %d: %s", name, resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", name, err)
	}
	return nil
}

// chatRequest is the OpenAI-compatible chat completion payload. The azure
// and openrouter adapters share this wire shape; only auth and routing
// differ between them.
type chatRequest struct {
	Model          string        `json:"model,omitempty"`
	Messages       []chatMessage `json:"messages"`
	MaxTokens      int           `json:"max_tokens,omitempty"`
	Temperature    float64       `json:"temperature"`
	ResponseFormat *chatFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *apiError    `json:"error,omitempty"`
}

type chatChoice struct {
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

// newChatRequest assembles the message list and per-call generation knobs.
// Model may be empty when the endpoint routes by URL (azure deployments).
func newChatRequest(model, prompt string, opts CompletionOpts) chatRequest {
	msgs := make([]chatMessage, 0, 2)
	if opts.System != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: opts.System})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: prompt})

	req := chatRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: opts.Temperature,
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	if jsonMode(opts) {
		req.ResponseFormat = &chatFormat{Type: "json_object"}
	}
	return req
}

func jsonMode(opts CompletionOpts) bool {
	return strings.EqualFold(opts.Format, "json")
}

// text extracts the first choice, surfacing in-body API errors first.
func (r chatResponse) text(name string) (string, error) {
	if r.Error != nil {
		return "", fmt.Errorf("%s: %s", name, r.Error.Message)
	}
	if len(r.Choices) == 0 {
		return "", fmt.Errorf("%s: response carried no choices", name)
	}
	return strings.TrimSpace(r.Choices[0].Message.Content), nil
}
