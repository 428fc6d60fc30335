// Package stage defines the contract every analysis stage honours: a static
// dependency declaration, classified failures and a bounded retry policy.
package stage

import (
	"errors"
	"fmt"

	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/spigell/resume-matcher/internal/schema"
)

// Name identifies a stage in logs, failures and the dependency graph.
type Name string

const (
	Extraction          Name = "extraction"
	SkillsGap           Name = "skills_gap"
	ExperienceEducation Name = "experience_education"
	Scoring             Name = "scoring"
	Suggestion          Name = "suggestion"

	// Aggregation is report assembly. It is not part of the analysis graph.
	Aggregation Name = "aggregation"
)

// Definition is the static declaration of a stage and the stages whose
// results it consumes.
type Definition struct {
	Name         Name
	Dependencies []Name
}

// Cause classifies why a stage failed.
type Cause string

const (
	CauseTransient       Cause = "transient"
	CauseMalformedOutput Cause = "malformed_output"
	CauseInvalidInput    Cause = "invalid_input"
)

// Failure is the only error a stage surfaces to the orchestrator.
type Failure struct {
	Stage Name
	Cause Cause
	Err   error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("stage %s failed: %s", f.Stage, f.Cause)
	}
	return fmt.Sprintf("stage %s failed: %s: %v", f.Stage, f.Cause, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

func Fail(stage Name, cause Cause, err error) *Failure {
	return &Failure{Stage: stage, Cause: cause, Err: err}
}

// AsFailure returns err as a Failure of stage. An existing Failure in the
// chain is kept as is, anything else is classified.
func AsFailure(stage Name, err error) *Failure {
	if err == nil {
		return nil
	}
	var failure *Failure
	if errors.As(err, &failure) {
		return failure
	}
	return Fail(stage, Classify(err), err)
}

// Classify maps an error returned by a stage attempt onto a failure cause.
func Classify(err error) Cause {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure.Cause
	}

	if kind, ok := ai.KindOf(err); ok {
		switch kind {
		case ai.KindInvalidCredentials:
			return CauseInvalidInput
		default:
			return CauseTransient
		}
	}

	if schema.IsViolation(err) {
		return CauseMalformedOutput
	}

	// Deadlines, cancellation and unexpected transport errors.
	return CauseTransient
}
