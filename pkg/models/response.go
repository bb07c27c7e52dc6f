package models

import "time"

// ModelResponse is one model's answer for one pipeline stage.
// Exactly one exists per model per stage; a failed call is recorded
// here with OK=false rather than omitted.
type ModelResponse struct {
	// Model is the stable identifier of the queried endpoint.
	Model string `json:"model"`
	// Text is the response body. Empty when the call failed.
	Text string `json:"text"`
	// OK indicates the call completed successfully.
	OK bool `json:"ok"`
	// Error describes the failure when OK is false.
	Error string `json:"error,omitempty"`
	// Elapsed is how long the call took, including failed calls.
	Elapsed time.Duration `json:"elapsed"`
}

// ResponseSet maps model identifiers to their responses for one stage.
type ResponseSet map[string]ModelResponse

// Succeeded returns the subset of responses that completed successfully.
func (rs ResponseSet) Succeeded() ResponseSet {
	out := make(ResponseSet)
	for model, resp := range rs {
		if resp.OK {
			out[model] = resp
		}
	}
	return out
}

// Models returns the model identifiers present in the set, sorted.
func (rs ResponseSet) Models() []string {
	return sortedKeys(rs)
}
