package debate

import (
	"context"
	"strings"
)

// AgreementChecker classifies whether a debate reply is a bare agreement
// ("I stand by my answer") using a fast model. When a reply is a bare
// agreement the orchestrator carries the model's previous-round response
// forward instead, so the synthesizer sees substance rather than filler.
type AgreementChecker struct {
	gw    Gateway
	model string
}

// NewAgreementChecker creates a checker using the given fast model.
func NewAgreementChecker(gw Gateway, model string) *AgreementChecker {
	return &AgreementChecker{gw: gw, model: model}
}

// IsAgreement reports whether reply is a simple agreement. Any failure
// of the classification call is treated as "not an agreement" - the
// reply is then used as-is, which is always safe.
func (a *AgreementChecker) IsAgreement(ctx context.Context, reply string) bool {
	resp := a.gw.Complete(ctx, a.model, buildAgreementPrompt(reply))
	if !resp.OK {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(resp.Text), "true")
}
