package gateway

import (
	"context"
	"fmt"
	"os"

	genai "google.golang.org/genai"
)

// Gemini calls Google models through the official genai client.
type Gemini struct {
	cli *genai.Client
}

// NewGemini creates a Gemini provider. If apiKey is empty, it falls back
// to the GEMINI_API_KEY env var.
func NewGemini(ctx context.Context, apiKey string) (*Gemini, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is not set")
	}

	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Gemini{cli: cli}, nil
}

// Name implements Provider.
func (g *Gemini) Name() string { return "google" }

// Complete implements Provider. Model IDs arrive as "google/<model>";
// the prefix is stripped before the API call.
func (g *Gemini) Complete(ctx context.Context, model, prompt string) (string, error) {
	resp, err := g.cli.Models.GenerateContent(ctx, stripVendorPrefix(model),
		[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("API call failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("malformed response payload: no candidates")
	}

	return resp.Candidates[0].Content.Parts[0].Text, nil
}
