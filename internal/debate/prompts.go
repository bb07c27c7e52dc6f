package debate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ShayCichocki/quorum/pkg/models"
)

// formatResponses renders a response set as a markdown block, one
// section per model, in stable model order.
func formatResponses(responses models.ResponseSet) string {
	var b strings.Builder
	for i, model := range responses.Models() {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "**%s**:\n%s", model, responses[model].Text)
	}
	return b.String()
}

const criticPreamble = `You are an expert Technical Auditor and the core decision engine for a multi-agent AI system.
Your job is to analyze the responses of different AI models to a specific User Prompt and determine if they have reached a functional consensus.

Your primary goal is to identify MATERIAL and FACTUAL discrepancies.

### What CONSTITUTES a Discrepancy:
* Direct contradictions in facts, math, or logic (e.g., Model A says X is True, Model B says X is False).
* Conflicting code implementations that would result in different programmatic behavior or bugs.
* A critical omission by one model that compromises the safety, accuracy, or functionality of the answer.

### What DOES NOT Constitute a Discrepancy (IGNORE THESE):
* Stylistic differences, tone, or verbosity.
* Different formatting (e.g., Markdown tables vs. bulleted lists).
* Variable naming conventions or functionally identical code structures.
* Additive information (e.g., a harmless "bonus tip"). This is a synthesis feature, not a discrepancy.`

const criticFirstPassInstructions = `### Instructions for This Pass:
1. **Identify All Discrepancies**: Analyze the responses and identify all material, factual discrepancies. A discrepancy exists when at least one model makes a claim that another model omits or contradicts.
2. **Consensus**: If there are no discrepancies, set ` + "`consensus_reached`" + ` to ` + "`true`" + `.
3. **Output Schema**: Your output MUST be a single, raw JSON object matching this schema. Do not add a ` + "`claim_id`" + ` on this first pass.
4. **Critical Rule**: The ` + "`models_missing_claim`" + ` array for any given discrepancy CANNOT be empty. If all models agree on a claim, it is NOT a discrepancy.

` + "```json" + `
{
  "consensus_reached": true or false,
  "discrepancies": [
    {
      "claim": "The specific fact/logic in question",
      "models_with_claim": ["model1", "model2"],
      "models_missing_claim": ["model3"]
    }
  ]
}
` + "```"

const criticFollowUpInstructions = `### Instructions for This Pass:
1. **Analyze Previous Claims**: For each ` + "`claim_id`" + ` above, check if the discrepancy still exists in the new responses. Look for the *semantic meaning* of the claim, not just an exact textual match.
2. **Preserve Existing Claims**: If a discrepancy persists, you MUST use the exact ` + "`claim_id`" + ` and ` + "`claim`" + ` text from the reference above in your JSON output.
3. **Identify New Claims**: If you find a completely new discrepancy not listed above, add it to the ` + "`discrepancies`" + ` list without a ` + "`claim_id`" + `.
4. **Consensus**: If all previous discrepancies are resolved and no new ones are found, set ` + "`consensus_reached`" + ` to ` + "`true`" + `.
5. **Confidence Score**: For each discrepancy, provide a ` + "`confidence`" + ` score (0.0 to 1.0) indicating your certainty that it is a genuine, material discrepancy.

### Output Schema
Your output MUST be a single, raw JSON object matching this schema.

` + "```json" + `
{
  "consensus_reached": true or false,
  "discrepancies": [
    {
      "claim_id": "optional-existing-id-from-reference",
      "claim": "The specific fact/logic in question. MUST match reference if claim_id is used.",
      "models_with_claim": ["model1", "model2"],
      "models_missing_claim": ["model3"],
      "confidence": 0.9
    }
  ]
}
` + "```"

// buildCriticPrompt constructs the critic prompt for one pass. When
// previous is non-nil its claims are included as a reference so the
// critic keeps claim identity stable across passes.
func buildCriticPrompt(responses models.ResponseSet, previous *models.Evaluation) string {
	names := responses.Models()

	var b strings.Builder
	b.WriteString(criticPreamble)
	fmt.Fprintf(&b, "\n\n---\n\nBelow are responses from %d different models:\n\n%s\n\nModel names available: [%s]\n",
		len(names), formatResponses(responses), strings.Join(names, ", "))

	if previous != nil && len(previous.Discrepancies) > 0 {
		b.WriteString("\n---\n\n### IMPORTANT: Previous Discrepancies Reference\n\nIn the PREVIOUS evaluation pass, these discrepancies were identified. Your task is to determine if they still exist.\n\n")
		for _, d := range previous.Discrepancies {
			id := d.ClaimID
			if id == "" {
				id = models.ClaimIDFor(d.Claim)
			}
			fmt.Fprintf(&b, "  - claim_id: %q\n    claim: %q\n", id, d.Claim)
		}
		b.WriteString("\n" + criticFollowUpInstructions)
	} else {
		b.WriteString("\n---\n\n" + criticFirstPassInstructions)
	}

	return b.String()
}

// buildDebatePrompt constructs the targeted re-prompt for one model. It
// embeds exactly the claims that model missed; with nothing missed, it
// asks the model to review and confirm its answer.
func buildDebatePrompt(prompt, initialResponse string, missedClaims []string) string {
	if len(missedClaims) == 0 {
		return fmt.Sprintf(`Original Question: %s

Your Initial Response:
%s

A parallel review found no significant discrepancies in your response. Please review your answer one more time and confirm or refine it if needed.`, prompt, initialResponse)
	}

	var claims strings.Builder
	for i, claim := range missedClaims {
		if i > 0 {
			claims.WriteString("\n")
		}
		claims.WriteString("- " + claim)
	}

	return fmt.Sprintf(`Original Question: %s

Your Initial Response:
%s

In a parallel review, other models mentioned the following claims/points that you did not include:
%s

Does this information change your reasoning? If so, why? Please re-evaluate your original response and provide an updated answer.`, prompt, initialResponse, claims.String())
}

// buildConsensusPrompt constructs the final synthesis prompt from the
// post-debate responses only.
func buildConsensusPrompt(prompt string, in SynthesisInput) string {
	return fmt.Sprintf(`You are an expert synthesizer tasked with creating the definitive "gold standard" answer to a question.

Original Question:
%s

Below are responses from multiple AI models AFTER they completed a debate round where they:
1. Provided initial answers
2. Reviewed discrepancies identified by a critic
3. Re-evaluated their positions based on what other models mentioned

These are their FINAL refined responses:

%s

Your task:
1. Analyze all the post-debate responses carefully
2. Identify the most accurate, complete, and well-reasoned points
3. Synthesize these insights into a single, authoritative answer
4. Ensure your answer is clear, concise, and comprehensive

Provide the final synthesized answer:`, prompt, formatResponses(in.responses))
}

// buildDivergencePrompt constructs the synthesis prompt used when the
// models could not converge: it presents the remaining discrepancies and
// asks for a transparent, trade-off-aware answer.
func buildDivergencePrompt(prompt string, in SynthesisInput, eval *models.Evaluation) string {
	var discrepancies strings.Builder
	for i, d := range eval.Discrepancies {
		if i > 0 {
			discrepancies.WriteString("\n")
		}
		with := append([]string(nil), d.ModelsWith...)
		missing := append([]string(nil), d.ModelsMissing...)
		sort.Strings(with)
		sort.Strings(missing)
		fmt.Fprintf(&discrepancies, "- %s\n  (Models with: %s; Models without: %s)",
			d.Claim, strings.Join(with, ", "), strings.Join(missing, ", "))
	}

	return fmt.Sprintf(`You are an expert synthesizer tasked with creating a transparent, balanced answer when AI models could NOT reach consensus.

Original Question:
%s

The models went through multiple debate rounds but still have material disagreements:

REMAINING DISCREPANCIES:
%s

FINAL MODEL RESPONSES:
%s

Your task:
1. Acknowledge that the models diverged on specific material points
2. Clearly explain the TRADE-OFFS and different approaches taken by the models
3. If possible, explain WHY the models might legitimately disagree
4. Provide a balanced synthesis that helps the user understand the different perspectives
5. If one approach is clearly superior, say so - but if both are valid, present them neutrally

DO NOT force a false consensus. Transparency about disagreement is valuable.

Provide the divergence-aware synthesized answer:`, prompt, discrepancies.String(), formatResponses(in.responses))
}

// buildAgreementPrompt constructs the classification prompt used to
// detect a bare "I stand by my answer" debate reply.
func buildAgreementPrompt(reply string) string {
	return fmt.Sprintf(`You are a text classification model. Your task is to determine if the following text is a simple agreement with a previous statement.

A simple agreement is a response that does not add any new information or claims, but simply confirms that the previous response was good.

Respond with "true" if the text is a simple agreement, and "false" otherwise.

---

Text:
%s

---

Is this a simple agreement? (true/false)`, reply)
}
