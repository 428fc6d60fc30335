package analysis

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/schema"
	"github.com/spigell/resume-matcher/internal/stage"
)

var (
	//go:embed prompts/skill_equivalence.md
	skillEquivalencePrompt string
	//go:embed prompts/skills_summary.md
	skillsSummaryPrompt string
)

type summaryResponse struct {
	OverlapSummary string `json:"overlap_summary"`
	LackingSummary string `json:"lacking_summary"`
}

type equivalenceResponse struct {
	Equivalences []schema.Equivalence `json:"equivalences"`
	Missing      []string             `json:"missing"`
}

// SkillsGap partitions the requested skills into matching and missing.
// Canonical name comparison runs first, the completion service only judges
// what is left on both sides. Once the partition is fixed the service
// summarises it.
type SkillsGap struct {
	completer ai.Completer
	policy    stage.Policy
	logger    *zap.Logger
}

func NewSkillsGap(completer ai.Completer, policy stage.Policy, log *zap.Logger) *SkillsGap {
	return &SkillsGap{
		completer: completer,
		policy:    policy,
		logger:    logger.WithStage(log, string(stage.SkillsGap)),
	}
}

func (s *SkillsGap) Definition() stage.Definition {
	return stage.Definition{Name: stage.SkillsGap}
}

func (s *SkillsGap) Run(ctx context.Context, resume schema.ResumeProfile, job schema.JobProfile) (schema.SkillGapResult, error) {
	if err := resume.Validate(); err != nil {
		return schema.SkillGapResult{}, invalidInput(stage.SkillsGap, fmt.Errorf("resume: %w", err))
	}
	if err := job.Validate(); err != nil {
		return schema.SkillGapResult{}, invalidInput(stage.SkillsGap, fmt.Errorf("job: %w", err))
	}

	held := make(map[string]string, len(resume.Skills))
	for _, skill := range resume.Skills {
		held[schema.SkillKey(skill)] = skill
	}

	used := make(map[string]bool, len(resume.Skills))
	matched := make(map[string]bool, len(job.Skills))
	var unmatched []string
	for _, name := range job.SkillNames() {
		key := schema.SkillKey(name)
		if _, ok := held[key]; ok {
			matched[key] = true
			used[key] = true
			continue
		}
		unmatched = append(unmatched, name)
	}

	var unused []string
	for _, skill := range resume.Skills {
		if !used[schema.SkillKey(skill)] {
			unused = append(unused, skill)
		}
	}

	equivalent := make(map[string]schema.Equivalence)
	if len(unmatched) > 0 && len(unused) > 0 {
		resp, err := s.judgeEquivalences(ctx, unmatched, unused)
		if err != nil {
			return schema.SkillGapResult{}, stage.AsFailure(stage.SkillsGap, err)
		}
		equivalent = s.acceptEquivalences(resp, unmatched, unused, matched)
		for key, eq := range equivalent {
			matched[key] = true
			used[schema.SkillKey(eq.Candidate)] = true
		}
		s.logConflicts(resp.Missing, matched)
	}

	result := schema.SkillGapResult{
		Matching:     []string{},
		Missing:      []string{},
		Extra:        []string{},
		Equivalences: []schema.Equivalence{},
	}
	for _, name := range job.SkillNames() {
		key := schema.SkillKey(name)
		if !matched[key] {
			result.Missing = append(result.Missing, name)
			continue
		}
		result.Matching = append(result.Matching, name)
		if eq, ok := equivalent[key]; ok {
			result.Equivalences = append(result.Equivalences, eq)
		}
	}
	for _, skill := range resume.Skills {
		if !used[schema.SkillKey(skill)] {
			result.Extra = append(result.Extra, skill)
		}
	}

	if err := result.ValidateAgainst(resume, job); err != nil {
		return schema.SkillGapResult{}, stage.Fail(stage.SkillsGap, stage.CauseMalformedOutput, err)
	}

	summary, err := s.summarize(ctx, job, result)
	if err != nil {
		return schema.SkillGapResult{}, stage.AsFailure(stage.SkillsGap, err)
	}
	result.OverlapSummary = strings.TrimSpace(summary.OverlapSummary)
	result.LackingSummary = strings.TrimSpace(summary.LackingSummary)
	if result.OverlapSummary == "" || result.LackingSummary == "" {
		return schema.SkillGapResult{}, stage.Fail(stage.SkillsGap, stage.CauseMalformedOutput,
			errors.New("skills summary is blank"))
	}

	s.logger.Debug("skills gap computed",
		zap.Int("matching", len(result.Matching)),
		zap.Int("missing", len(result.Missing)),
		zap.Int("extra", len(result.Extra)),
		zap.Int("equivalences", len(result.Equivalences)),
	)

	return result, nil
}

func (s *SkillsGap) judgeEquivalences(ctx context.Context, unmatched, unused []string) (equivalenceResponse, error) {
	prompt := fill(skillEquivalencePrompt, map[string]string{
		"JOB_SKILLS":    bulletList(unmatched),
		"RESUME_SKILLS": bulletList(unused),
	})
	return complete[equivalenceResponse](ctx, s.logger, s.completer, s.policy, prompt, schema.ShapeSkillEquivalence)
}

func (s *SkillsGap) summarize(ctx context.Context, job schema.JobProfile, result schema.SkillGapResult) (summaryResponse, error) {
	title := job.Title
	if title == "" {
		title = "the position"
	}
	prompt := fill(skillsSummaryPrompt, map[string]string{
		"JOB_TITLE": title,
		"MATCHING":  bulletList(result.Matching),
		"MISSING":   bulletList(result.Missing),
		"EXTRA":     bulletList(result.Extra),
	})
	return complete[summaryResponse](ctx, s.logger, s.completer, s.policy, prompt, schema.ShapeSkillsSummary)
}

// acceptEquivalences keeps only equivalences between a still unmatched job
// skill and a still unused resume skill, keyed by the job skill. Spellings are
// taken from the profiles, not from the response.
func (s *SkillsGap) acceptEquivalences(resp equivalenceResponse, unmatched, unused []string, matched map[string]bool) map[string]schema.Equivalence {
	required := make(map[string]string, len(unmatched))
	for _, name := range unmatched {
		required[schema.SkillKey(name)] = name
	}
	candidates := make(map[string]string, len(unused))
	for _, name := range unused {
		candidates[schema.SkillKey(name)] = name
	}

	accepted := make(map[string]schema.Equivalence)
	for _, eq := range resp.Equivalences {
		reqKey := schema.SkillKey(eq.Required)
		candKey := schema.SkillKey(eq.Candidate)

		reqName, okReq := required[reqKey]
		candName, okCand := candidates[candKey]
		if !okReq || !okCand {
			s.logger.Info("ignoring equivalence for unknown skill",
				zap.String("required", eq.Required),
				zap.String("candidate", eq.Candidate),
				zap.Bool("already_matched", matched[reqKey]),
			)
			continue
		}
		if _, dup := accepted[reqKey]; dup {
			continue
		}
		accepted[reqKey] = schema.Equivalence{Required: reqName, Candidate: candName}
	}
	return accepted
}

// logConflicts reports skills the service called missing although they are
// matched. Matching wins.
func (s *SkillsGap) logConflicts(missing []string, matched map[string]bool) {
	for _, name := range missing {
		if matched[schema.SkillKey(name)] {
			s.logger.Warn("skill reported both matching and missing, keeping matching",
				zap.String("skill", name),
			)
		}
	}
}
