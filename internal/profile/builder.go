// Package profile builds typed resume and job profiles from extracted text.
package profile

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/schema"
	"github.com/spigell/resume-matcher/internal/stage"
)

// Shorter inputs cannot describe a candidate or a position.
const (
	MinResumeLength = 50
	MinJobLength    = 30
)

var (
	//go:embed prompts/resume.md
	resumePrompt string
	//go:embed prompts/job.md
	jobPrompt string
)

// Builder turns raw text into validated profiles. Failures are reported for
// the extraction stage.
type Builder struct {
	completer ai.Completer
	policy    stage.Policy
	logger    *zap.Logger
	now       func() time.Time
}

func NewBuilder(completer ai.Completer, policy stage.Policy, log *zap.Logger) *Builder {
	return &Builder{
		completer: completer,
		policy:    policy,
		logger:    logger.WithStage(log, string(stage.Extraction)),
		now:       time.Now,
	}
}

// WithClock sets the clock used to date ongoing roles.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) Resume(ctx context.Context, text string) (schema.ResumeProfile, error) {
	text = strings.TrimSpace(text)
	if err := checkLength("resume", text, MinResumeLength); err != nil {
		return schema.ResumeProfile{}, err
	}

	prompt := strings.NewReplacer(
		"{{RESUME_TEXT}}", text,
		"{{TODAY}}", b.now().Format("January 2006"),
	).Replace(resumePrompt)

	raw, err := build[schema.ResumeProfile](ctx, b, prompt, schema.ShapeResumeProfile)
	if err != nil {
		return schema.ResumeProfile{}, err
	}

	profile := raw.Normalize()
	if err := profile.Validate(); err != nil {
		return schema.ResumeProfile{}, stage.Fail(stage.Extraction, stage.CauseMalformedOutput, err)
	}

	b.logger.Info("resume profile built",
		zap.Int("skills", len(profile.Skills)),
		zap.Int("roles", len(profile.Roles)),
		zap.Stringer("experience_level", profile.ExperienceLevel()),
		zap.Stringer("education_level", profile.EducationLevel()),
	)
	return profile, nil
}

func (b *Builder) Job(ctx context.Context, text string) (schema.JobProfile, error) {
	text = strings.TrimSpace(text)
	if err := checkLength("job description", text, MinJobLength); err != nil {
		return schema.JobProfile{}, err
	}

	prompt := strings.ReplaceAll(jobPrompt, "{{JOB_TEXT}}", text)

	raw, err := build[schema.JobProfile](ctx, b, prompt, schema.ShapeJobProfile)
	if err != nil {
		return schema.JobProfile{}, err
	}

	profile := raw.Normalize()
	if err := profile.Validate(); err != nil {
		return schema.JobProfile{}, stage.Fail(stage.Extraction, stage.CauseMalformedOutput, err)
	}

	b.logger.Info("job profile built",
		zap.String("title", profile.Title),
		zap.Int("skills", len(profile.Skills)),
		zap.Stringer("experience_level", profile.ExperienceLevel),
		zap.Stringer("education_level", profile.EducationLevel),
	)
	return profile, nil
}

// checkLength rejects text shorter than minimum characters.
func checkLength(label, text string, minimum int) error {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return stage.Fail(stage.Extraction, stage.CauseInvalidInput, fmt.Errorf("%s text is empty", label))
	}
	if n < minimum {
		return stage.Fail(stage.Extraction, stage.CauseInvalidInput,
			fmt.Errorf("%s text is too short: %d characters, at least %d required", label, n, minimum))
	}
	return nil
}

func build[T any](ctx context.Context, b *Builder, prompt string, shape schema.Shape) (T, error) {
	out, err := stage.Invoke(ctx, b.logger, b.policy, func(callCtx context.Context) (T, error) {
		var out T
		raw, err := b.completer.Complete(callCtx, prompt, shape)
		if err != nil {
			return out, err
		}
		if err := schema.DecodeResponse(raw, shape, &out); err != nil {
			return out, err
		}
		return out, nil
	})
	if err != nil {
		return out, stage.AsFailure(stage.Extraction, err)
	}
	return out, nil
}
