package models

import (
	"regexp"
	"sort"
	"strings"
)

// Discrepancy is a single claim the critic found contested: asserted by
// some models and missing or contradicted in others. Immutable once the
// critic pass that produced it completes.
type Discrepancy struct {
	// ClaimID is a stable slug identifying the claim across critic passes.
	ClaimID string `json:"claim_id,omitempty"`
	// Claim is the specific fact or logic in question.
	Claim string `json:"claim"`
	// ModelsWith lists the models that asserted the claim.
	ModelsWith []string `json:"models_with_claim"`
	// ModelsMissing lists the models that omitted or contradicted it.
	ModelsMissing []string `json:"models_missing_claim"`
	// Confidence is the critic's certainty (0.0-1.0), if provided.
	Confidence float64 `json:"confidence,omitempty"`
}

// Evaluation is the validated output of one critic pass: the full
// discrepancy set plus the critic's consensus determination.
type Evaluation struct {
	// ConsensusReached is true when no material discrepancies remain.
	ConsensusReached bool `json:"consensus_reached"`
	// Discrepancies lists every contested claim found in this pass.
	Discrepancies []Discrepancy `json:"discrepancies"`
}

// MissedBy returns the claims the given model omitted or contradicted,
// in discrepancy order.
func (e *Evaluation) MissedBy(model string) []string {
	var claims []string
	for _, d := range e.Discrepancies {
		for _, m := range d.ModelsMissing {
			if m == model {
				claims = append(claims, d.Claim)
				break
			}
		}
	}
	return claims
}

// Claims returns the set of claim texts in this evaluation.
func (e *Evaluation) Claims() map[string]bool {
	set := make(map[string]bool, len(e.Discrepancies))
	for _, d := range e.Discrepancies {
		set[d.Claim] = true
	}
	return set
}

// ResolvedSince returns the claims present in prev but absent here,
// sorted. These are the disagreements the debate round settled.
func (e *Evaluation) ResolvedSince(prev *Evaluation) []string {
	if prev == nil {
		return nil
	}
	current := e.Claims()
	var resolved []string
	for _, d := range prev.Discrepancies {
		if !current[d.Claim] {
			resolved = append(resolved, d.Claim)
		}
	}
	sort.Strings(resolved)
	return resolved
}

var (
	// Keep letters and digits in any script, not just ASCII word chars.
	claimIDStrip    = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	claimIDCollapse = regexp.MustCompile(`\s+`)
)

// claimIDMaxLen bounds generated claim IDs, in runes.
const claimIDMaxLen = 40

// ClaimIDFor generates a stable, lowercase, hyphenated ID from claim text.
func ClaimIDFor(claim string) string {
	s := claimIDStrip.ReplaceAllString(strings.ToLower(claim), "")
	s = claimIDCollapse.ReplaceAllString(s, "-")
	if r := []rune(s); len(r) > claimIDMaxLen {
		s = string(r[:claimIDMaxLen])
	}
	return strings.Trim(s, "-")
}
