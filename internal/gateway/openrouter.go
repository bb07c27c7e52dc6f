package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// openRouterURL is the OpenAI-compatible chat-completions endpoint.
const openRouterURL = "https://openrouter.ai/api/v1/chat/completions"

// OpenRouter calls the OpenRouter chat-completions API. It is the
// fallback provider: any model ID OpenRouter knows can be routed here,
// regardless of vendor prefix.
type OpenRouter struct {
	http    *http.Client
	apiKey  string
	baseURL string
}

// NewOpenRouter creates an OpenRouter provider. If apiKey is empty, it
// falls back to the OPENROUTER_API_KEY env var.
func NewOpenRouter(apiKey string) (*OpenRouter, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY environment variable is not set")
	}

	baseURL := openRouterURL
	if envURL := os.Getenv("OPENROUTER_BASE_URL"); envURL != "" {
		baseURL = strings.TrimRight(envURL, "/") + "/api/v1/chat/completions"
	}

	return &OpenRouter{
		// No client-level timeout: the router's per-call context carries
		// the deadline.
		http:    &http.Client{},
		apiKey:  apiKey,
		baseURL: baseURL,
	}, nil
}

// Name implements Provider.
func (o *OpenRouter) Name() string { return "openrouter" }

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete implements Provider via one chat-completions POST.
func (o *OpenRouter) Complete(ctx context.Context, model, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:    model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 300))
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("malformed response payload: no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}
