package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/resume-matcher/internal/stage"
)

func TestDefaultSettingsAreValid(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, s.Validate())
	assert.Equal(t, stage.Policy{Timeout: stage.DefaultTimeout, Backoff: stage.DefaultBackoff}, s.policy())
}

func TestSettingsValidate(t *testing.T) {
	cases := map[string]func(*Settings){
		"weights do not sum to one": func(s *Settings) { s.Weights.Skills = 0.9 },
		"no suggestions":            func(s *Settings) { s.MaxSuggestions = 0 },
		"zero timeout":              func(s *Settings) { s.StageTimeout = 0 },
		"perfect score above 100":   func(s *Settings) { s.PerfectScore = 101 },
		"negative backoff":          func(s *Settings) { s.RetryBackoff = -time.Second },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s := DefaultSettings()
			mutate(&s)
			assert.Error(t, s.Validate())
		})
	}
}

func TestRunErrorMessageHidesDetails(t *testing.T) {
	err := &RunError{RunID: "r", Stage: stage.Suggestion, Cause: stage.CauseMalformedOutput, Err: assert.AnError}
	assert.Equal(t, `analysis failed at stage "suggestion": the completion service returned an answer that could not be used (malformed_output)`, err.Message())
	assert.NotContains(t, err.Message(), assert.AnError.Error())
	assert.ErrorIs(t, err, assert.AnError)
}
