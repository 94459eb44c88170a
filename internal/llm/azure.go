package llm

import (
	"context"
	"fmt"
	"net/http"
)

// azureAPIVersion pins the Azure OpenAI REST API version for all calls.
const azureAPIVersion = "2024-06-01"

// azureProvider routes OpenAI-compatible chat completions through an Azure
// deployment. The deployment name takes the place of a model id and lives
// in the URL, not the request body.
type azureProvider struct {
	apiKey     string
	deployment string
	endpoint   string
	client     http.Client
}

func (a *azureProvider) Name() string {
	return "azure/" + a.deployment
}

func (a *azureProvider) Complete(ctx context.Context, prompt string, opts CompletionOpts) (string, error) {
	deployment := a.deployment
	if opts.Model != "" {
		deployment = opts.Model
	}
	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		a.endpoint, deployment, azureAPIVersion)

	var resp chatResponse
	err := postJSON(ctx, &a.client, "azure", url,
		map[string]string{"api-key": a.apiKey},
		newChatRequest("", prompt, opts), &resp)
	if err != nil {
		return "", err
	}
	return resp.text("azure")
}
