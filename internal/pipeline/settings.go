package pipeline

import (
	"fmt"
	"time"

	"github.com/spigell/resume-matcher/internal/analysis"
	"github.com/spigell/resume-matcher/internal/schema"
	"github.com/spigell/resume-matcher/internal/stage"
)

// Settings is the immutable configuration of a Pipeline.
type Settings struct {
	Weights        schema.Weights `mapstructure:"weights"`
	MaxSuggestions int            `mapstructure:"max-suggestions"`
	StageTimeout   time.Duration  `mapstructure:"stage-timeout"`
	PerfectScore   int            `mapstructure:"perfect-score"`
	// RetryBackoff is the pause before the single retry of a transient failure.
	RetryBackoff time.Duration `mapstructure:"retry-backoff"`
}

func DefaultSettings() Settings {
	return Settings{
		Weights:        schema.DefaultWeights(),
		MaxSuggestions: analysis.DefaultMaxSuggestions,
		StageTimeout:   stage.DefaultTimeout,
		PerfectScore:   analysis.DefaultPerfectScore,
		RetryBackoff:   stage.DefaultBackoff,
	}
}

// Validate rejects settings the pipeline cannot honour.
func (s Settings) Validate() error {
	if err := s.Weights.Validate(); err != nil {
		return fmt.Errorf("analysis weights: %w", err)
	}
	if s.MaxSuggestions <= 0 {
		return fmt.Errorf("max suggestions must be positive, got %d", s.MaxSuggestions)
	}
	if s.StageTimeout <= 0 {
		return fmt.Errorf("stage timeout must be positive, got %s", s.StageTimeout)
	}
	if s.PerfectScore <= 0 || s.PerfectScore > 100 {
		return fmt.Errorf("perfect score must be within 1..100, got %d", s.PerfectScore)
	}
	if s.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff must not be negative, got %s", s.RetryBackoff)
	}
	return nil
}

func (s Settings) policy() stage.Policy {
	return stage.Policy{Timeout: s.StageTimeout, Backoff: s.RetryBackoff}
}
