package analysis

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/resume-matcher/internal/schema"
	"github.com/spigell/resume-matcher/internal/stage"
)

var fastPolicy = stage.Policy{Timeout: 20 * time.Millisecond}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func resumeWith(skills ...string) schema.ResumeProfile {
	return schema.ResumeProfile{
		Name:   "Jane Doe",
		Skills: skills,
		Roles: []schema.Role{
			{Title: "Data Analyst", Organization: "Acme", DurationMonths: 18},
		},
		Education: []schema.Education{
			{Degree: "BSc", Field: "Computer Science", Level: schema.EducationBachelor},
		},
	}
}

func jobRequiring(skills ...string) schema.JobProfile {
	job := schema.JobProfile{
		Title:            "Data Engineer",
		ExperienceLevel:  schema.ExperienceSenior,
		EducationLevel:   schema.EducationBachelor,
		Responsibilities: []string{"Build pipelines"},
	}
	for _, s := range skills {
		job.Skills = append(job.Skills, schema.SkillRequirement{Name: s, Priority: schema.PriorityRequired})
	}
	return job
}
