package analysis

import (
	"context"

	"github.com/spigell/resume-matcher/internal/schema"
	"github.com/spigell/resume-matcher/internal/stage"
)

// Scoring turns the analysis results into the headline score. It is pure
// arithmetic and never calls the completion service.
type Scoring struct {
	weights schema.Weights
}

// NewScoring rejects weights that are out of range or do not sum to 1.
func NewScoring(weights schema.Weights) (*Scoring, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &Scoring{weights: weights}, nil
}

func (s *Scoring) Definition() stage.Definition {
	return stage.Definition{
		Name:         stage.Scoring,
		Dependencies: []stage.Name{stage.SkillsGap, stage.ExperienceEducation},
	}
}

func (s *Scoring) Weights() schema.Weights { return s.weights }

func (s *Scoring) Run(ctx context.Context, gap schema.SkillGapResult, ee schema.ExperienceEducationResult) (schema.ScoreResult, error) {
	if err := ctx.Err(); err != nil {
		return schema.ScoreResult{}, stage.AsFailure(stage.Scoring, err)
	}
	if err := gap.Validate(); err != nil {
		return schema.ScoreResult{}, invalidInput(stage.Scoring, err)
	}
	if err := ee.Validate(); err != nil {
		return schema.ScoreResult{}, invalidInput(stage.Scoring, err)
	}

	components := map[schema.Category]float64{
		schema.CategorySkills:     schema.SkillsComponent(gap),
		schema.CategoryExperience: ee.Experience.Verdict.Score(),
		schema.CategoryEducation:  ee.Education.Verdict.Score(),
	}

	result := schema.ScoreResult{
		Overall:    s.weights.Overall(components),
		Components: components,
		Weights:    s.weights,
	}
	if err := result.Validate(); err != nil {
		return schema.ScoreResult{}, invalidInput(stage.Scoring, err)
	}
	return result, nil
}
