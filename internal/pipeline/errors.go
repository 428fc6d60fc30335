package pipeline

import (
	"fmt"

	"github.com/spigell/resume-matcher/internal/stage"
)

// RunError is the terminal failure of a run. No report exists for it.
type RunError struct {
	RunID string
	Stage stage.Name
	Cause stage.Cause
	Err   error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run %s failed at %s (%s): %v", e.RunID, e.Stage, e.Cause, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

var causeText = map[stage.Cause]string{
	stage.CauseTransient:       "the completion service did not answer in time or was temporarily unavailable",
	stage.CauseMalformedOutput: "the completion service returned an answer that could not be used",
	stage.CauseInvalidInput:    "the input or credentials were rejected",
}

// Message is the user-facing description. It never includes service payloads.
func (e *RunError) Message() string {
	text, ok := causeText[e.Cause]
	if !ok {
		text = string(e.Cause)
	}
	return fmt.Sprintf("analysis failed at stage %q: %s (%s)", e.Stage, text, e.Cause)
}
