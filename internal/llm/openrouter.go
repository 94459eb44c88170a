package llm

import (
	"context"
	"net/http"
)

// openrouterProvider speaks the OpenAI-compatible chat API against
// OpenRouter, which multiplexes many upstream models behind one endpoint.
// Model ids keep their upstream prefix (e.g. "openai/gpt-4o-mini").
type openrouterProvider struct {
	apiKey  string
	model   string
	baseURL string
	client  http.Client
}

func (o *openrouterProvider) Name() string {
	return "openrouter/" + o.model
}

func (o *openrouterProvider) Complete(ctx context.Context, prompt string, opts CompletionOpts) (string, error) {
	model := o.model
	if opts.Model != "" {
		model = opts.Model
	}

	headers := map[string]string{
		"Authorization": "Bearer " + o.apiKey,
		// OpenRouter attribution headers; optional but rank the app in
		// their usage dashboards.
		"HTTP-Referer": "https://github.com/vaibhavtmnit/cg5",
		"X-Title":      "cg5",
	}

	var resp chatResponse
	err := postJSON(ctx, &o.client, "openrouter", o.baseURL+"/chat/completions",
		headers, newChatRequest(model, prompt, opts), &resp)
	if err != nil {
		return "", err
	}
	return resp.text("openrouter")
}
