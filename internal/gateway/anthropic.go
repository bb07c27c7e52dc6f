package gateway

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/aws/aws-sdk-go-v2/config"
)

// anthropicMaxTokens caps completion length for debate answers.
const anthropicMaxTokens = 8192

// Anthropic calls Claude models through the official SDK, either with a
// direct API key or via AWS Bedrock.
type Anthropic struct {
	inner anthropic.Client
}

// AnthropicConfig contains configuration for creating an Anthropic provider.
type AnthropicConfig struct {
	// APIKey is the Anthropic API key. If empty, uses ANTHROPIC_API_KEY.
	APIKey string
	// UseAWSBedrock indicates whether to use AWS Bedrock instead of the
	// direct API.
	UseAWSBedrock bool
	// AWSRegion is the AWS region for Bedrock (e.g., "us-west-2").
	AWSRegion string
	// AWSProfile is the optional AWS profile name to use.
	AWSProfile string
}

// NewAnthropic creates an Anthropic provider.
func NewAnthropic(cfg AnthropicConfig) (*Anthropic, error) {
	var opts []option.RequestOption

	if cfg.UseAWSBedrock {
		ctx := context.Background()

		var loadOpts []func(*config.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, config.WithRegion(cfg.AWSRegion))
		}
		if cfg.AWSProfile != "" {
			loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.AWSProfile))
		}

		opts = append(opts, bedrock.WithLoadDefaultConfig(ctx, loadOpts...))
	} else {
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set")
		}
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	return &Anthropic{inner: anthropic.NewClient(opts...)}, nil
}

// Name implements Provider.
func (a *Anthropic) Name() string { return "anthropic" }

// Complete implements Provider. Model IDs arrive as "anthropic/<model>";
// the prefix is stripped before the SDK call.
func (a *Anthropic) Complete(ctx context.Context, model, prompt string) (string, error) {
	resp, err := a.inner.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(stripVendorPrefix(model)),
		MaxTokens: anthropicMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("API call failed: %w", err)
	}

	var result strings.Builder
	for _, block := range resp.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			result.WriteString(variant.Text)
		}
	}

	return result.String(), nil
}

// stripVendorPrefix removes the "vendor/" routing prefix from a model ID.
func stripVendorPrefix(model string) string {
	if idx := strings.Index(model, "/"); idx > 0 {
		return model[idx+1:]
	}
	return model
}
