// Package pipeline orchestrates one analysis run: extraction, the stage
// dependency graph and report assembly.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/resume-matcher/internal/ai"
	"github.com/spigell/resume-matcher/internal/analysis"
	"github.com/spigell/resume-matcher/internal/extract"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/profile"
	"github.com/spigell/resume-matcher/internal/report"
	"github.com/spigell/resume-matcher/internal/schema"
	"github.com/spigell/resume-matcher/internal/stage"
)

// Input carries the raw documents of one run.
type Input struct {
	Resume extract.Document
	Job    extract.Document
}

// Result is a completed run.
type Result struct {
	RunID  string
	Report *report.Report
}

type Option func(*Pipeline)

func WithLogger(l *zap.Logger) Option { return func(p *Pipeline) { p.logger = l } }

func WithExtractor(e extract.Extractor) Option { return func(p *Pipeline) { p.extractor = e } }

// WithClock fixes the report timestamp source.
func WithClock(now func() time.Time) Option { return func(p *Pipeline) { p.now = now } }

func WithObserver(o Observer) Option { return func(p *Pipeline) { p.observer = o } }

// WithRunIDs replaces the run identifier generator.
func WithRunIDs(next func() string) Option { return func(p *Pipeline) { p.newRunID = next } }

// Pipeline is immutable after New and safe for concurrent runs.
type Pipeline struct {
	settings  Settings
	extractor extract.Extractor
	builder   *profile.Builder

	skillsGap           *analysis.SkillsGap
	experienceEducation *analysis.ExperienceEducation
	scoring             *analysis.Scoring
	suggestion          *analysis.Suggestion
	levels              [][]stage.Definition
	tasks               map[stage.Name]task

	logger   *zap.Logger
	now      func() time.Time
	newRunID func() string
	observer Observer
}

func New(completer ai.Completer, settings Settings, opts ...Option) (*Pipeline, error) {
	if completer == nil {
		return nil, errors.New("completion service is required")
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		settings:  settings,
		extractor: extract.NewTextExtractor(),
		now:       time.Now,
		newRunID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}

	policy := settings.policy()
	scoring, err := analysis.NewScoring(settings.Weights)
	if err != nil {
		return nil, err
	}
	p.builder = profile.NewBuilder(completer, policy, p.logger).WithClock(p.now)
	p.skillsGap = analysis.NewSkillsGap(completer, policy, p.logger)
	p.experienceEducation = analysis.NewExperienceEducation(completer, policy, p.logger)
	p.scoring = scoring
	p.suggestion = analysis.NewSuggestion(completer, policy, analysis.SuggestionOptions{
		MaxItems:     settings.MaxSuggestions,
		PerfectScore: settings.PerfectScore,
	}, p.logger)

	levels, err := stage.Plan([]stage.Definition{
		p.skillsGap.Definition(),
		p.experienceEducation.Definition(),
		p.scoring.Definition(),
		p.suggestion.Definition(),
	})
	if err != nil {
		return nil, err
	}
	p.tasks = p.stageTasks()
	if err := checkTasks(levels, p.tasks); err != nil {
		return nil, err
	}
	p.levels = levels

	p.logger.Debug("pipeline planned", zap.String("plan", stage.Describe(levels)))
	return p, nil
}

// Plan describes the stage execution order.
func (p *Pipeline) Plan() string { return stage.Describe(p.levels) }

// Run extracts both documents, builds the profiles and analyses them.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	r := p.start()

	if err := r.machine.moveTo(StateExtracting); err != nil {
		return nil, err
	}

	a := &artifacts{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		resume, err := p.resumeProfile(gctx, in.Resume)
		a.resume = resume
		return err
	})
	g.Go(func() error {
		job, err := p.jobProfile(gctx, in.Job)
		a.job = job
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, r.fail(stage.Extraction, err)
	}

	return p.analyse(ctx, r, a)
}

// RunProfiles analyses profiles that were built elsewhere.
func (p *Pipeline) RunProfiles(ctx context.Context, resume schema.ResumeProfile, job schema.JobProfile) (*Result, error) {
	r := p.start()
	a := &artifacts{resume: resume.Normalize(), job: job.Normalize()}
	return p.analyse(ctx, r, a)
}

func (p *Pipeline) start() *run {
	id := p.newRunID()
	log := logger.WithRun(p.logger, id)
	return &run{
		id:     id,
		logger: log,
		machine: &machine{
			runID:    id,
			state:    StatePending,
			observer: p.observer,
			onChange: func(from, to State) {
				log.Info("run state changed", zap.String("from", string(from)), zap.String("to", string(to)))
			},
		},
	}
}

func (p *Pipeline) analyse(ctx context.Context, r *run, a *artifacts) (*Result, error) {
	if err := r.machine.moveTo(StateAnalyzing); err != nil {
		return nil, err
	}

	for _, level := range p.levels {
		g, gctx := errgroup.WithContext(ctx)
		for _, def := range level {
			exec := p.tasks[def.Name]
			name := def.Name
			g.Go(func() error {
				started := time.Now()
				if err := exec(gctx, a); err != nil {
					return stage.AsFailure(name, err)
				}
				r.logger.Info("stage completed",
					zap.String(logger.FieldStage, string(name)),
					zap.Duration("took", time.Since(started)),
				)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, r.fail("", err)
		}
	}

	if err := r.machine.moveTo(StateAggregating); err != nil {
		return nil, err
	}

	rep, err := report.Assemble(report.Parts{
		Resume:              a.resume,
		Job:                 a.job,
		SkillGap:            a.gap,
		ExperienceEducation: a.ee,
		Score:               a.score,
		Suggestions:         a.suggestions,
	}, p.now())
	if err != nil {
		return nil, r.fail(stage.Aggregation, stage.Fail(stage.Aggregation, stage.CauseMalformedOutput, err))
	}

	if err := r.machine.moveTo(StateComplete); err != nil {
		return nil, err
	}
	r.logger.Info("run complete", zap.Int("overall", rep.Score().Overall))

	return &Result{RunID: r.id, Report: rep}, nil
}

// artifacts are private to one run. Every field has exactly one writer and is
// read only by stages of later levels.
type artifacts struct {
	resume      schema.ResumeProfile
	job         schema.JobProfile
	gap         schema.SkillGapResult
	ee          schema.ExperienceEducationResult
	score       schema.ScoreResult
	suggestions schema.SuggestionResult
}

// task runs one analysis stage against the artifacts of a run.
type task func(context.Context, *artifacts) error

func (p *Pipeline) stageTasks() map[stage.Name]task {
	return map[stage.Name]task{
		stage.SkillsGap: func(ctx context.Context, a *artifacts) (err error) {
			a.gap, err = p.skillsGap.Run(ctx, a.resume.Clone(), a.job.Clone())
			return err
		},
		stage.ExperienceEducation: func(ctx context.Context, a *artifacts) (err error) {
			a.ee, err = p.experienceEducation.Run(ctx, a.resume.Clone(), a.job.Clone())
			return err
		},
		stage.Scoring: func(ctx context.Context, a *artifacts) (err error) {
			a.score, err = p.scoring.Run(ctx, a.gap.Clone(), a.ee.Clone())
			return err
		},
		stage.Suggestion: func(ctx context.Context, a *artifacts) (err error) {
			a.suggestions, err = p.suggestion.Run(ctx, a.gap.Clone(), a.ee.Clone(), a.score.Clone())
			return err
		},
	}
}

// checkTasks makes sure every planned stage has a task to run.
func checkTasks(levels [][]stage.Definition, tasks map[stage.Name]task) error {
	for _, level := range levels {
		for _, def := range level {
			if tasks[def.Name] == nil {
				return fmt.Errorf("stage %q has no task", def.Name)
			}
		}
	}
	return nil
}

func (p *Pipeline) resumeProfile(ctx context.Context, doc extract.Document) (schema.ResumeProfile, error) {
	text, err := p.extractText(ctx, "resume", doc)
	if err != nil {
		return schema.ResumeProfile{}, err
	}
	return p.builder.Resume(ctx, text)
}

func (p *Pipeline) jobProfile(ctx context.Context, doc extract.Document) (schema.JobProfile, error) {
	text, err := p.extractText(ctx, "job description", doc)
	if err != nil {
		return schema.JobProfile{}, err
	}
	return p.builder.Job(ctx, text)
}

func (p *Pipeline) extractText(ctx context.Context, label string, doc extract.Document) (string, error) {
	mimeType := doc.MIME
	if mimeType == "" {
		mimeType = extract.Detect(doc.Name, doc.Data)
	}

	text, err := p.extractor.Extract(ctx, doc.Data, mimeType)
	if err != nil {
		if ctx.Err() != nil {
			return "", stage.Fail(stage.Extraction, stage.CauseTransient, ctx.Err())
		}
		var extractErr *extract.Error
		if errors.As(err, &extractErr) && extractErr.Source == "" {
			extractErr.Source = doc.Name
		}
		return "", stage.Fail(stage.Extraction, stage.CauseInvalidInput, fmt.Errorf("%s: %w", label, err))
	}
	return text, nil
}

type run struct {
	id      string
	logger  *zap.Logger
	machine *machine
}

// fail moves the run to failed and wraps err. The stage recorded in a
// Failure wins over fallback.
func (r *run) fail(fallback stage.Name, err error) error {
	failure := stage.AsFailure(fallback, err)
	runErr := &RunError{RunID: r.id, Stage: failure.Stage, Cause: failure.Cause, Err: failure}

	if moveErr := r.machine.moveTo(StateFailed); moveErr != nil {
		r.logger.Error("cannot record failure", zap.Error(moveErr))
	}
	r.logger.Error("run failed",
		zap.String(logger.FieldStage, string(runErr.Stage)),
		zap.String("cause", string(runErr.Cause)),
		zap.Error(err),
	)
	return runErr
}
