package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/resume-matcher/internal/report"
	"github.com/spigell/resume-matcher/internal/schema"
)

func buildReport(t *testing.T, title string, at time.Time) *report.Report {
	t.Helper()

	gap := schema.SkillGapResult{Matching: []string{"Go"}, Missing: []string{}, Extra: []string{}, Equivalences: []schema.Equivalence{}}
	ee := schema.ExperienceEducationResult{
		Experience: schema.NewExperienceAssessment(schema.ExperienceNone, schema.ExperienceNone, "No requirement."),
		Education:  schema.NewEducationAssessment(schema.EducationNone, schema.EducationNone, "No requirement."),
	}
	components := map[schema.Category]float64{
		schema.CategorySkills:     100,
		schema.CategoryExperience: 85,
		schema.CategoryEducation:  85,
	}
	weights := schema.DefaultWeights()

	r, err := report.Assemble(report.Parts{
		Resume: schema.ResumeProfile{Skills: []string{"Go"}, Roles: []schema.Role{}, Education: []schema.Education{}},
		Job: schema.JobProfile{
			Title:            title,
			Skills:           []schema.SkillRequirement{{Name: "Go", Priority: schema.PriorityRequired}},
			Responsibilities: []string{},
		},
		SkillGap:            gap,
		ExperienceEducation: ee,
		Score:               schema.ScoreResult{Overall: weights.Overall(components), Components: components, Weights: weights},
		Suggestions:         schema.SuggestionResult{Items: []schema.Suggestion{}},
	}, at)
	require.NoError(t, err)
	return r
}

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "nested", "archive.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	r := buildReport(t, "Go Developer", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))

	require.NoError(t, s.Save(ctx, "run-1", r))

	got, err := s.Get(ctx, "run-1")
	require.NoError(t, err)

	want, err := r.Encode()
	require.NoError(t, err)
	body, err := got.Encode()
	require.NoError(t, err)
	assert.Equal(t, string(want), string(body))
}

func TestSaveIsWriteOnce(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	r := buildReport(t, "Go Developer", time.Now())

	require.NoError(t, s.Save(ctx, "run-1", r))
	assert.Error(t, s.Save(ctx, "run-1", r))
	assert.Error(t, s.Save(ctx, "", r))
}

func TestListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Save(ctx, "old", buildReport(t, "Old", base)))
	newest := buildReport(t, "New", base.Add(1500*time.Millisecond))
	require.NoError(t, s.Save(ctx, "new", newest))
	require.NoError(t, s.Save(ctx, "mid", buildReport(t, "Mid", base.Add(time.Second))))

	entries, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "new", entries[0].RunID)
	assert.Equal(t, "mid", entries[1].RunID)
	assert.Equal(t, newest.Score().Overall, entries[0].Overall)
	assert.Equal(t, "New", entries[0].JobTitle)
	assert.True(t, entries[0].GeneratedAt.Equal(base.Add(1500*time.Millisecond)))

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestGetUnknownRun(t *testing.T) {
	_, err := openStore(t).Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
