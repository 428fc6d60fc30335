package schema

import (
	"math"
	"time"
)

// Report is the terminal aggregate of one pipeline run.
type Report struct {
	Resume              ResumeProfile             `json:"resume"`
	Job                 JobProfile                `json:"job"`
	SkillGap            SkillGapResult            `json:"skill_gap"`
	ExperienceEducation ExperienceEducationResult `json:"experience_education"`
	Score               ScoreResult               `json:"score"`
	Suggestions         SuggestionResult          `json:"suggestions"`
	GeneratedAt         time.Time                 `json:"generated_at"`
}

// Validate checks every part and the invariants that tie them together.
func (r Report) Validate() error {
	if err := prefixed("resume", r.Resume.Validate()); err != nil {
		return err
	}
	if err := prefixed("job", r.Job.Validate()); err != nil {
		return err
	}
	if err := prefixed("skill_gap", r.SkillGap.ValidateAgainst(r.Resume, r.Job)); err != nil {
		return err
	}
	if err := prefixed("experience_education", r.ExperienceEducation.Validate()); err != nil {
		return err
	}
	if err := r.validateVerdictBasis(); err != nil {
		return err
	}
	if err := prefixed("score", r.Score.Validate()); err != nil {
		return err
	}
	if err := r.validateComponents(); err != nil {
		return err
	}
	gaps := IdentifyGaps(r.SkillGap, r.ExperienceEducation)
	if err := prefixed("suggestions", r.Suggestions.ValidateTraceable(gaps)); err != nil {
		return err
	}
	if r.GeneratedAt.IsZero() {
		return violationf("generated_at", "timestamp is required")
	}
	return nil
}

func (r Report) validateVerdictBasis() error {
	exp := r.ExperienceEducation.Experience
	if exp.Held != r.Resume.ExperienceLevel().String() {
		return violationf("experience_education.experience.held", "held %q differs from resume level %q", exp.Held, r.Resume.ExperienceLevel())
	}
	if exp.Required != r.Job.ExperienceLevel.String() {
		return violationf("experience_education.experience.required", "required %q differs from job level %q", exp.Required, r.Job.ExperienceLevel)
	}
	edu := r.ExperienceEducation.Education
	if edu.Held != r.Resume.EducationLevel().String() {
		return violationf("experience_education.education.held", "held %q differs from resume level %q", edu.Held, r.Resume.EducationLevel())
	}
	if edu.Required != r.Job.EducationLevel.String() {
		return violationf("experience_education.education.required", "required %q differs from job level %q", edu.Required, r.Job.EducationLevel)
	}
	return nil
}

// SkillsComponent is 100 * |matching| / |requested|, full marks when nothing is requested.
func SkillsComponent(gap SkillGapResult) float64 {
	total := len(gap.Matching) + len(gap.Missing)
	if total == 0 {
		return 100
	}
	return 100 * float64(len(gap.Matching)) / float64(total)
}

func (r Report) validateComponents() error {
	want := map[Category]float64{
		CategorySkills:     SkillsComponent(r.SkillGap),
		CategoryExperience: r.ExperienceEducation.Experience.Verdict.Score(),
		CategoryEducation:  r.ExperienceEducation.Education.Verdict.Score(),
	}
	for _, c := range Categories {
		if math.Abs(r.Score.Components[c]-want[c]) > 1e-9 {
			return violationf("score.components."+string(c), "component %v does not follow from analysis (%v)", r.Score.Components[c], want[c])
		}
	}
	return nil
}

// Clone returns a deep copy.
func (r Report) Clone() Report {
	return Report{
		Resume:              r.Resume.Clone(),
		Job:                 r.Job.Clone(),
		SkillGap:            r.SkillGap.Clone(),
		ExperienceEducation: r.ExperienceEducation.Clone(),
		Score:               r.Score.Clone(),
		Suggestions:         r.Suggestions.Clone(),
		GeneratedAt:         r.GeneratedAt,
	}
}
