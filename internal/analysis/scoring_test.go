package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/resume-matcher/internal/schema"
	"github.com/spigell/resume-matcher/internal/stage"
)

func assessments(exp, edu schema.Verdict) schema.ExperienceEducationResult {
	levels := map[schema.Verdict][2]schema.ExperienceLevel{
		schema.DoesNotMeet:    {schema.ExperienceJunior, schema.ExperienceSenior},
		schema.PartiallyMeets: {schema.ExperienceMid, schema.ExperienceSenior},
		schema.Meets:          {schema.ExperienceSenior, schema.ExperienceSenior},
		schema.Exceeds:        {schema.ExperienceLead, schema.ExperienceSenior},
	}
	eduLevels := map[schema.Verdict][2]schema.EducationLevel{
		schema.DoesNotMeet:    {schema.EducationHighSchool, schema.EducationBachelor},
		schema.PartiallyMeets: {schema.EducationAssociate, schema.EducationBachelor},
		schema.Meets:          {schema.EducationBachelor, schema.EducationBachelor},
		schema.Exceeds:        {schema.EducationMaster, schema.EducationBachelor},
	}
	return schema.ExperienceEducationResult{
		Experience: schema.NewExperienceAssessment(levels[exp][0], levels[exp][1], "r"),
		Education:  schema.NewEducationAssessment(eduLevels[edu][0], eduLevels[edu][1], "r"),
	}
}

func TestScoringScenario(t *testing.T) {
	s, err := NewScoring(schema.DefaultWeights())
	require.NoError(t, err)

	gap := schema.SkillGapResult{Matching: []string{"Python", "SQL"}, Missing: []string{"Docker"}}
	got, err := s.Run(context.Background(), gap, assessments(schema.DoesNotMeet, schema.Meets))

	require.NoError(t, err)
	assert.InDelta(t, 66.67, got.Components[schema.CategorySkills], 0.01)
	assert.Equal(t, 0.0, got.Components[schema.CategoryExperience])
	assert.Equal(t, 85.0, got.Components[schema.CategoryEducation])
	assert.Equal(t, 50, got.Overall)
	require.NoError(t, got.Validate())
}

func TestScoringEmptyRequirementGetsFullMarks(t *testing.T) {
	s, err := NewScoring(schema.Weights{Skills: 1})
	require.NoError(t, err)

	got, err := s.Run(context.Background(), schema.SkillGapResult{}, assessments(schema.Meets, schema.Meets))

	require.NoError(t, err)
	assert.Equal(t, 100.0, got.Components[schema.CategorySkills])
	assert.Equal(t, 100, got.Overall)
}

func TestScoringOverallIsWeightedSum(t *testing.T) {
	s, err := NewScoring(schema.Weights{Skills: 0.4, Experience: 0.4, Education: 0.2})
	require.NoError(t, err)

	verdicts := []schema.Verdict{schema.DoesNotMeet, schema.PartiallyMeets, schema.Meets, schema.Exceeds}
	gap := schema.SkillGapResult{Matching: []string{"a"}, Missing: []string{"b", "c", "d"}}
	for _, exp := range verdicts {
		for _, edu := range verdicts {
			got, err := s.Run(context.Background(), gap, assessments(exp, edu))
			require.NoError(t, err)

			want := 0.4*25 + 0.4*exp.Score() + 0.2*edu.Score()
			assert.InDelta(t, want, float64(got.Overall), 0.5, "exp=%s edu=%s", exp, edu)
			assert.GreaterOrEqual(t, got.Overall, 0)
			assert.LessOrEqual(t, got.Overall, 100)
		}
	}
}

func TestNewScoringRejectsBadWeights(t *testing.T) {
	_, err := NewScoring(schema.Weights{Skills: 0.5, Experience: 0.5, Education: 0.5})
	assert.True(t, schema.IsViolation(err))
}

func TestScoringRejectsInconsistentInput(t *testing.T) {
	s, err := NewScoring(schema.DefaultWeights())
	require.NoError(t, err)

	ee := assessments(schema.Meets, schema.Meets)
	ee.Experience.Verdict = schema.Exceeds

	_, err = s.Run(context.Background(), schema.SkillGapResult{}, ee)

	var failure *stage.Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, stage.CauseInvalidInput, failure.Cause)
}
