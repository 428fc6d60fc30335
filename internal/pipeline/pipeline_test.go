package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/resume-matcher/internal/ai/aitest"
	"github.com/spigell/resume-matcher/internal/extract"
	"github.com/spigell/resume-matcher/internal/schema"
	"github.com/spigell/resume-matcher/internal/stage"
)

const (
	resumeReply = `{
		"name":"Jane Doe",
		"skills":["Python","SQL"],
		"roles":[{"title":"Data Analyst","organization":"Acme","duration_months":40}],
		"education":[{"degree":"BSc","field":"Computer Science","level":"bachelor"}]
	}`
	jobReply = `{
		"title":"Data Engineer",
		"skills":[{"name":"Python","priority":"required"},{"name":"Docker","priority":"required"}],
		"experience_level":"senior",
		"education_level":"bachelor",
		"responsibilities":["Build pipelines"]
	}`
	equivalenceReply = `{"equivalences":[],"missing":["Docker"]}`
	summaryReply     = `{"overlap_summary":"Python carries over.","lacking_summary":"Docker is missing."}`
	rationaleReply   = `{"experience_rationale":"40 months as an analyst.","education_rationale":"Holds the requested degree."}`
	suggestionsReply = `{"suggestions":[
		{"text":"Containerise one of your projects with Docker.","gaps":["skill:docker"]},
		{"text":"Quantify the scope of your analyst work.","gaps":["experience"]}
	]}`
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func happyStub() *aitest.Stub {
	return aitest.NewStub().
		Text(schema.ShapeResumeProfile.Name, resumeReply).
		Text(schema.ShapeJobProfile.Name, jobReply).
		Text(schema.ShapeSkillEquivalence.Name, equivalenceReply).
		Text(schema.ShapeSkillsSummary.Name, summaryReply).
		Text(schema.ShapeRationale.Name, rationaleReply).
		Text(schema.ShapeSuggestions.Name, suggestionsReply)
}

func fastSettings() Settings {
	s := DefaultSettings()
	s.StageTimeout = 30 * time.Millisecond
	s.RetryBackoff = time.Millisecond
	return s
}

func input() Input {
	return Input{
		Resume: extract.Document{Name: "resume.md", Data: []byte("# Jane Doe\nData Analyst at Acme, 2019 to 2021. Python, SQL, Excel.")},
		Job:    extract.Text("job", "Senior Data Engineer. Python and Docker required."),
	}
}

type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) observe(_ string, _, to State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, to)
}

func (r *recorder) seen() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

func newPipeline(t *testing.T, stub *aitest.Stub, opts ...Option) *Pipeline {
	t.Helper()
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithRunIDs(func() string { return "run-1" }),
	}
	p, err := New(stub, fastSettings(), append(base, opts...)...)
	require.NoError(t, err)
	return p
}

func TestRunProducesReport(t *testing.T) {
	rec := &recorder{}
	core, logs := observer.New(zapcore.InfoLevel)
	p := newPipeline(t, happyStub(), WithObserver(rec.observe), WithLogger(zap.New(core)))

	res, err := p.Run(context.Background(), input())

	require.NoError(t, err)
	assert.Equal(t, "run-1", res.RunID)

	rep := res.Report
	assert.Equal(t, []string{"Python"}, rep.SkillGap().Matching)
	assert.Equal(t, []string{"Docker"}, rep.SkillGap().Missing)
	assert.Equal(t, []string{"SQL"}, rep.SkillGap().Extra)
	assert.Equal(t, "Python carries over.", rep.SkillGap().OverlapSummary)
	assert.Equal(t, schema.PartiallyMeets, rep.ExperienceEducation().Experience.Verdict)
	assert.Equal(t, schema.Meets, rep.ExperienceEducation().Education.Verdict)
	assert.Len(t, rep.Suggestions().Items, 2)
	assert.Equal(t, fixedNow, rep.GeneratedAt())

	assert.Equal(t, []State{StateExtracting, StateAnalyzing, StateAggregating, StateComplete}, rec.seen())
	assert.Equal(t, 4, logs.FilterMessage("stage completed").Len())
	for _, entry := range logs.FilterMessage("run complete").All() {
		assert.Equal(t, "run-1", entry.ContextMap()["run_id"])
	}
}

func TestRunIsDeterministicForFixedInputs(t *testing.T) {
	p := newPipeline(t, happyStub())

	first, err := p.Run(context.Background(), input())
	require.NoError(t, err)
	second, err := p.Run(context.Background(), input())
	require.NoError(t, err)

	a, err := first.Report.Encode()
	require.NoError(t, err)
	b, err := second.Report.Encode()
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRunFailsAfterRepeatedTimeout(t *testing.T) {
	stub := aitest.NewStub().
		Text(schema.ShapeResumeProfile.Name, resumeReply).
		Text(schema.ShapeJobProfile.Name, jobReply).
		On(schema.ShapeSkillEquivalence.Name, aitest.Reply{Block: true}).
		Text(schema.ShapeRationale.Name, rationaleReply).
		Text(schema.ShapeSuggestions.Name, suggestionsReply)

	rec := &recorder{}
	p := newPipeline(t, stub, WithObserver(rec.observe))

	res, err := p.Run(context.Background(), input())

	assert.Nil(t, res)
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, "run-1", runErr.RunID)
	assert.Equal(t, stage.SkillsGap, runErr.Stage)
	assert.Equal(t, stage.CauseTransient, runErr.Cause)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, runErr.Message(), `"skills_gap"`)

	assert.Equal(t, 2, stub.CallsFor(schema.ShapeSkillEquivalence.Name))
	assert.Zero(t, stub.CallsFor(schema.ShapeSuggestions.Name))
	assert.Equal(t, StateFailed, rec.seen()[len(rec.seen())-1])
}

func TestRunMalformedAnswerIsNotRetried(t *testing.T) {
	stub := aitest.NewStub().
		Text(schema.ShapeResumeProfile.Name, resumeReply).
		Text(schema.ShapeJobProfile.Name, jobReply).
		Text(schema.ShapeSkillEquivalence.Name, equivalenceReply).
		Text(schema.ShapeSkillsSummary.Name, summaryReply).
		Text(schema.ShapeRationale.Name, `{"verdict":"meets"}`)
	p := newPipeline(t, stub)

	_, err := p.Run(context.Background(), input())

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, stage.ExperienceEducation, runErr.Stage)
	assert.Equal(t, stage.CauseMalformedOutput, runErr.Cause)
	assert.Equal(t, 1, stub.CallsFor(schema.ShapeRationale.Name))
}

func TestRunHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := newPipeline(t, happyStub())

	_, err := p.Run(ctx, input())

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRunRejectsUnsupportedDocument(t *testing.T) {
	stub := happyStub()
	p := newPipeline(t, stub)

	in := input()
	in.Resume = extract.Document{Name: "resume.pdf", Data: []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj")}

	_, err := p.Run(context.Background(), in)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, stage.Extraction, runErr.Stage)
	assert.Equal(t, stage.CauseInvalidInput, runErr.Cause)

	var extractErr *extract.Error
	require.ErrorAs(t, err, &extractErr)
	assert.Equal(t, "resume.pdf", extractErr.Source)
	assert.Zero(t, stub.CallsFor(schema.ShapeSkillEquivalence.Name))
}

func TestRunProfilesSkipsExtraction(t *testing.T) {
	stub := happyStub()
	rec := &recorder{}
	p := newPipeline(t, stub, WithObserver(rec.observe))

	resume := schema.ResumeProfile{
		Skills:    []string{"Python", "Docker"},
		Roles:     []schema.Role{{Title: "Engineer", DurationMonths: 70}},
		Education: []schema.Education{{Degree: "BSc", Level: schema.EducationBachelor}},
	}
	job := schema.JobProfile{
		Skills:          []schema.SkillRequirement{{Name: "python", Priority: schema.PriorityRequired}},
		ExperienceLevel: schema.ExperienceSenior,
		EducationLevel:  schema.EducationBachelor,
	}

	res, err := p.RunProfiles(context.Background(), resume, job)

	require.NoError(t, err)
	assert.Equal(t, []State{StateAnalyzing, StateAggregating, StateComplete}, rec.seen())
	assert.Zero(t, stub.CallsFor(schema.ShapeResumeProfile.Name))
	assert.Empty(t, res.Report.Suggestions().Items)
	assert.Equal(t, []string{"python"}, res.Report.SkillGap().Matching)
	assert.Equal(t, schema.Meets, res.Report.ExperienceEducation().Experience.Verdict)
}

func TestNewRejectsInvalidSettings(t *testing.T) {
	s := DefaultSettings()
	s.MaxSuggestions = 0
	_, err := New(aitest.NewStub(), s)
	require.Error(t, err)

	s = DefaultSettings()
	s.Weights = schema.Weights{}
	_, err = New(aitest.NewStub(), s)
	require.Error(t, err)

	_, err = New(nil, DefaultSettings())
	require.Error(t, err)
}

func TestPlanOrdersStages(t *testing.T) {
	p := newPipeline(t, happyStub())
	assert.Equal(t, "skills_gap, experience_education -> scoring -> suggestion", p.Plan())
}

func TestCheckTasksRejectsStageWithoutTask(t *testing.T) {
	p := newPipeline(t, happyStub())
	require.NoError(t, checkTasks(p.levels, p.tasks))

	levels := append([][]stage.Definition{}, p.levels...)
	levels = append(levels, []stage.Definition{{Name: "ranking", Dependencies: []stage.Name{stage.Scoring}}})

	err := checkTasks(levels, p.tasks)

	require.Error(t, err)
	assert.Contains(t, err.Error(), `"ranking"`)
}

func TestMachineRejectsIllegalTransitions(t *testing.T) {
	m := &machine{runID: "r", state: StatePending}
	require.NoError(t, m.moveTo(StateExtracting))
	require.Error(t, m.moveTo(StateComplete))
	require.NoError(t, m.moveTo(StateFailed))
	assert.True(t, m.state.Terminal())
	require.Error(t, m.moveTo(StateAnalyzing))
}
