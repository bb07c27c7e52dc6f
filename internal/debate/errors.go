package debate

import (
	"errors"
	"fmt"

	"github.com/ShayCichocki/quorum/pkg/models"
)

// ErrNoResponses is returned by the critic when every initial call
// failed and there is nothing to evaluate.
var ErrNoResponses = errors.New("no successful responses to evaluate")

// ParseError reports critic output that could not be decoded. Raw
// carries the unparsed text for diagnostics.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse critic output: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ValidationError reports critic output that decoded but violates the
// required shape: a missing claim or a reference to a model that was not
// part of the evaluated response set.
type ValidationError struct {
	Claim string
	Model string
}

func (e *ValidationError) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("critic referenced unknown model %q in claim %q", e.Model, e.Claim)
	}
	return "critic produced a discrepancy with no claim text"
}

// StageError marks an error as pipeline-fatal at a specific stage.
type StageError struct {
	Stage models.Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
