package analysis

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/schema"
	"github.com/spigell/resume-matcher/internal/stage"
)

//go:embed prompts/suggestions.md
var suggestionsPrompt string

const (
	DefaultMaxSuggestions = 10
	DefaultPerfectScore   = 100
)

type suggestionsResponse struct {
	Suggestions []schema.Suggestion `json:"suggestions"`
}

type SuggestionOptions struct {
	// MaxItems caps the number of kept suggestions.
	MaxItems int
	// PerfectScore is the overall score at which an empty list is acceptable.
	PerfectScore int
}

// Suggestion asks the completion service for resume revisions and keeps only
// those that trace back to an identified gap.
type Suggestion struct {
	completer ai.Completer
	policy    stage.Policy
	opts      SuggestionOptions
	logger    *zap.Logger
}

func NewSuggestion(completer ai.Completer, policy stage.Policy, opts SuggestionOptions, log *zap.Logger) *Suggestion {
	if opts.MaxItems <= 0 {
		opts.MaxItems = DefaultMaxSuggestions
	}
	if opts.PerfectScore <= 0 {
		opts.PerfectScore = DefaultPerfectScore
	}
	return &Suggestion{
		completer: completer,
		policy:    policy,
		opts:      opts,
		logger:    logger.WithStage(log, string(stage.Suggestion)),
	}
}

func (s *Suggestion) Definition() stage.Definition {
	return stage.Definition{
		Name:         stage.Suggestion,
		Dependencies: []stage.Name{stage.SkillsGap, stage.ExperienceEducation, stage.Scoring},
	}
}

func (s *Suggestion) Run(ctx context.Context, gap schema.SkillGapResult, ee schema.ExperienceEducationResult, score schema.ScoreResult) (schema.SuggestionResult, error) {
	if err := gap.Validate(); err != nil {
		return schema.SuggestionResult{}, invalidInput(stage.Suggestion, err)
	}
	if err := ee.Validate(); err != nil {
		return schema.SuggestionResult{}, invalidInput(stage.Suggestion, err)
	}
	if err := score.Validate(); err != nil {
		return schema.SuggestionResult{}, invalidInput(stage.Suggestion, err)
	}

	gaps := schema.IdentifyGaps(gap, ee)
	if gaps.Len() == 0 {
		s.logger.Debug("no gaps identified, skipping suggestions")
		return schema.SuggestionResult{Items: []schema.Suggestion{}}, nil
	}

	prompt := fill(suggestionsPrompt, map[string]string{
		"OVERALL":         strconv.Itoa(score.Overall),
		"COMPONENTS":      describeComponents(score),
		"GAPS":            bulletList(describeGaps(gaps, ee)),
		"MAX_SUGGESTIONS": strconv.Itoa(s.opts.MaxItems),
	})

	resp, err := complete[suggestionsResponse](ctx, s.logger, s.completer, s.policy, prompt, schema.ShapeSuggestions)
	if err != nil {
		return schema.SuggestionResult{}, stage.AsFailure(stage.Suggestion, err)
	}

	items := s.filter(resp.Suggestions, gaps)
	if len(items) == 0 && score.Overall < s.opts.PerfectScore {
		return schema.SuggestionResult{}, stage.Fail(stage.Suggestion, stage.CauseMalformedOutput,
			errors.New("no suggestion addresses an identified gap"))
	}

	result, err := schema.NewSuggestionResult(items, gaps)
	if err != nil {
		return schema.SuggestionResult{}, stage.Fail(stage.Suggestion, stage.CauseMalformedOutput, err)
	}
	return result, nil
}

// filter drops blank, untraceable and duplicated suggestions, rewrites gap
// references to their canonical spelling and applies the cap.
func (s *Suggestion) filter(candidates []schema.Suggestion, gaps schema.GapSet) []schema.Suggestion {
	kept := make([]schema.Suggestion, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))

	for _, candidate := range candidates {
		text := strings.TrimSpace(candidate.Text)
		if text == "" {
			s.logger.Debug("dropping blank suggestion")
			continue
		}

		refs := make([]string, 0, len(candidate.Gaps))
		refSeen := make(map[string]struct{}, len(candidate.Gaps))
		for _, ref := range candidate.Gaps {
			id, ok := gaps.Resolve(ref)
			if !ok {
				continue
			}
			if _, dup := refSeen[id]; dup {
				continue
			}
			refSeen[id] = struct{}{}
			refs = append(refs, id)
		}
		if len(refs) == 0 {
			s.logger.Info("dropping untraceable suggestion",
				zap.String("text", text),
				zap.Strings("gaps", candidate.Gaps),
			)
			continue
		}

		key := strings.ToLower(text)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		if len(kept) == s.opts.MaxItems {
			s.logger.Debug("suggestion cap reached", zap.Int("max", s.opts.MaxItems))
			break
		}
		kept = append(kept, schema.Suggestion{Text: text, Gaps: refs})
	}

	return kept
}

func describeComponents(score schema.ScoreResult) string {
	parts := make([]string, 0, len(schema.Categories))
	for _, c := range schema.Categories {
		parts = append(parts, fmt.Sprintf("%s %.0f", c, score.Components[c]))
	}
	return strings.Join(parts, ", ")
}

func describeGaps(gaps schema.GapSet, ee schema.ExperienceEducationResult) []string {
	out := make([]string, 0, gaps.Len())
	for _, id := range gaps.IDs() {
		switch id {
		case schema.GapExperience:
			out = append(out, fmt.Sprintf("%s: holds %s, job requires %s (%s)",
				id, ee.Experience.Held, ee.Experience.Required, ee.Experience.Verdict))
		case schema.GapEducation:
			out = append(out, fmt.Sprintf("%s: holds %s, job requires %s (%s)",
				id, ee.Education.Held, ee.Education.Required, ee.Education.Verdict))
		default:
			out = append(out, id+": skill missing from the resume")
		}
	}
	return out
}
