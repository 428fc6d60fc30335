package analysis

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/schema"
	"github.com/spigell/resume-matcher/internal/stage"
)

//go:embed prompts/rationale.md
var rationalePrompt string

type rationaleResponse struct {
	ExperienceRationale string   `json:"experience_rationale"`
	EducationRationale  string   `json:"education_rationale"`
	RelevantExperience  []string `json:"relevant_experience"`
	MissingExperience   []string `json:"missing_experience"`
}

// ExperienceEducation computes both verdicts from ordinal levels and only
// asks the completion service to explain them.
type ExperienceEducation struct {
	completer ai.Completer
	policy    stage.Policy
	logger    *zap.Logger
}

func NewExperienceEducation(completer ai.Completer, policy stage.Policy, log *zap.Logger) *ExperienceEducation {
	return &ExperienceEducation{
		completer: completer,
		policy:    policy,
		logger:    logger.WithStage(log, string(stage.ExperienceEducation)),
	}
}

func (s *ExperienceEducation) Definition() stage.Definition {
	return stage.Definition{Name: stage.ExperienceEducation}
}

func (s *ExperienceEducation) Run(ctx context.Context, resume schema.ResumeProfile, job schema.JobProfile) (schema.ExperienceEducationResult, error) {
	if err := resume.Validate(); err != nil {
		return schema.ExperienceEducationResult{}, invalidInput(stage.ExperienceEducation, fmt.Errorf("resume: %w", err))
	}
	if err := job.Validate(); err != nil {
		return schema.ExperienceEducationResult{}, invalidInput(stage.ExperienceEducation, fmt.Errorf("job: %w", err))
	}

	heldExp, heldEdu := resume.ExperienceLevel(), resume.EducationLevel()
	expVerdict := schema.DeriveVerdict(int(heldExp), int(job.ExperienceLevel))
	eduVerdict := schema.DeriveVerdict(int(heldEdu), int(job.EducationLevel))

	s.logger.Debug("verdicts computed",
		zap.Stringer("experience_held", heldExp),
		zap.Stringer("experience_required", job.ExperienceLevel),
		zap.String("experience_verdict", string(expVerdict)),
		zap.Stringer("education_held", heldEdu),
		zap.Stringer("education_required", job.EducationLevel),
		zap.String("education_verdict", string(eduVerdict)),
	)

	prompt := fill(rationalePrompt, map[string]string{
		"EXPERIENCE_HELD":     heldExp.String(),
		"EXPERIENCE_REQUIRED": job.ExperienceLevel.String(),
		"EXPERIENCE_VERDICT":  string(expVerdict),
		"TOTAL_MONTHS":        strconv.Itoa(resume.TotalMonths()),
		"EDUCATION_HELD":      heldEdu.String(),
		"EDUCATION_REQUIRED":  job.EducationLevel.String(),
		"EDUCATION_VERDICT":   string(eduVerdict),
		"ROLES":               bulletList(describeRoles(resume.Roles)),
		"EDUCATION":           bulletList(describeEducation(resume.Education)),
		"RESPONSIBILITIES":    bulletList(job.Responsibilities),
	})

	resp, err := complete[rationaleResponse](ctx, s.logger, s.completer, s.policy, prompt, schema.ShapeRationale)
	if err != nil {
		return schema.ExperienceEducationResult{}, stage.AsFailure(stage.ExperienceEducation, err)
	}

	result := schema.ExperienceEducationResult{
		Experience: schema.NewExperienceAssessment(heldExp, job.ExperienceLevel, resp.ExperienceRationale).
			WithEvidence(resp.RelevantExperience, resp.MissingExperience),
		Education:  schema.NewEducationAssessment(heldEdu, job.EducationLevel, resp.EducationRationale),
	}
	if err := result.Validate(); err != nil {
		return schema.ExperienceEducationResult{}, stage.Fail(stage.ExperienceEducation, stage.CauseMalformedOutput, err)
	}

	return result, nil
}

func describeRoles(roles []schema.Role) []string {
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		line := role.Title
		if role.Organization != "" {
			line += " at " + role.Organization
		}
		out = append(out, fmt.Sprintf("%s (%d months)", line, role.DurationMonths))
	}
	return out
}

func describeEducation(entries []schema.Education) []string {
	out := make([]string, 0, len(entries))
	for _, edu := range entries {
		parts := []string{edu.Degree}
		if edu.Field != "" {
			parts = append(parts, edu.Field)
		}
		if edu.Institution != "" {
			parts = append(parts, edu.Institution)
		}
		out = append(out, fmt.Sprintf("%s [%s]", strings.Join(parts, ", "), edu.Level))
	}
	return out
}
