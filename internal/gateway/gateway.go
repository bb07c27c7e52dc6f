// Package gateway is the single outbound boundary for model calls.
// It routes each model identifier to a provider backend, enforces the
// per-call deadline, and reports every outcome as a ModelResponse so a
// slow or failing endpoint never aborts its siblings.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ShayCichocki/quorum/pkg/models"
)

// DefaultTimeout is the hard per-call deadline applied when the caller
// does not configure one.
const DefaultTimeout = 30 * time.Second

// Provider is a single model backend: given a model and a prompt, return
// the completion text or an error. Deadlines arrive via the context.
type Provider interface {
	// Name identifies the provider for diagnostics.
	Name() string
	// Complete returns the completion text for the prompt.
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// Router fans model calls out to provider backends by model-ID prefix.
// It implements the gateway contract the pipeline consumes: every call
// resolves to exactly one ModelResponse, success or failure.
type Router struct {
	providers map[string]Provider
	fallback  Provider
	timeout   time.Duration
	cache     *completionCache
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithTimeout sets the per-call deadline.
func WithTimeout(d time.Duration) RouterOption {
	return func(r *Router) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithProvider routes model IDs with the given prefix (e.g. "anthropic")
// to the provider instead of the fallback.
func WithProvider(prefix string, p Provider) RouterOption {
	return func(r *Router) {
		r.providers[prefix] = p
	}
}

// WithCache enables an LRU completion cache with the given capacity.
func WithCache(size int) RouterOption {
	return func(r *Router) {
		if c, err := newCompletionCache(size); err == nil {
			r.cache = c
		}
	}
}

// NewRouter creates a Router that sends unmatched model IDs to fallback.
func NewRouter(fallback Provider, opts ...RouterOption) *Router {
	r := &Router{
		providers: make(map[string]Provider),
		fallback:  fallback,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Timeout returns the configured per-call deadline.
func (r *Router) Timeout() time.Duration {
	return r.timeout
}

// Complete issues one model call with the configured deadline. The
// outcome is always a ModelResponse; transport errors and timeouts are
// recorded on the response, never propagated as Go errors, so one bad
// call cannot unwind a stage.
func (r *Router) Complete(ctx context.Context, model, prompt string) models.ModelResponse {
	if r.cache != nil {
		if text, ok := r.cache.get(model, prompt); ok {
			return models.ModelResponse{Model: model, Text: text, OK: true}
		}
	}

	provider := r.providerFor(model)

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	text, err := provider.Complete(callCtx, model, prompt)
	elapsed := time.Since(start)

	if err != nil {
		return models.ModelResponse{
			Model:   model,
			OK:      false,
			Error:   describeFailure(err, r.timeout),
			Elapsed: elapsed,
		}
	}

	if r.cache != nil {
		r.cache.add(model, prompt, text)
	}

	return models.ModelResponse{
		Model:   model,
		Text:    text,
		OK:      true,
		Elapsed: elapsed,
	}
}

// providerFor selects the backend for a model ID. IDs are of the form
// "vendor/model"; the vendor prefix picks the provider.
func (r *Router) providerFor(model string) Provider {
	if idx := strings.Index(model, "/"); idx > 0 {
		if p, ok := r.providers[model[:idx]]; ok {
			return p
		}
	}
	return r.fallback
}

// Unavailable is a Provider that fails every call with a fixed reason.
// It stands in for a backend whose credentials are not configured, so
// misrouted models surface a clear per-call failure instead of a panic.
type Unavailable struct {
	Reason string
}

// Name implements Provider.
func (u Unavailable) Name() string { return "unavailable" }

// Complete implements Provider.
func (u Unavailable) Complete(ctx context.Context, model, prompt string) (string, error) {
	return "", fmt.Errorf("no provider for %s: %s", model, u.Reason)
}

// describeFailure renders a provider error for the response record.
func describeFailure(err error, timeout time.Duration) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "deadline exceeded after " + timeout.String()
	}
	return err.Error()
}
