// Package report assembles validated analysis results into the sealed report
// handed to the presentation layer.
package report

import (
	"fmt"
	"time"

	"github.com/spigell/resume-matcher/internal/schema"
)

// Parts are the validated artifacts of one run.
type Parts struct {
	Resume              schema.ResumeProfile
	Job                 schema.JobProfile
	SkillGap            schema.SkillGapResult
	ExperienceEducation schema.ExperienceEducationResult
	Score               schema.ScoreResult
	Suggestions         schema.SuggestionResult
}

// Report is immutable. Accessors return copies.
type Report struct {
	data schema.Report
}

// Assemble cross-validates the parts and seals them into a Report.
func Assemble(parts Parts, generatedAt time.Time) (*Report, error) {
	data := schema.Report{
		Resume:              parts.Resume,
		Job:                 parts.Job,
		SkillGap:            parts.SkillGap,
		ExperienceEducation: parts.ExperienceEducation,
		Score:               parts.Score,
		Suggestions:         parts.Suggestions,
		GeneratedAt:         generatedAt.UTC(),
	}
	return seal(data)
}

// Decode restores a previously encoded report, validating it again.
func Decode(data []byte) (*Report, error) {
	var r schema.Report
	if err := schema.Decode(data, &r); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return seal(r)
}

func seal(data schema.Report) (*Report, error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}
	return &Report{data: data.Clone()}, nil
}

func (r *Report) Resume() schema.ResumeProfile { return r.data.Resume.Clone() }

func (r *Report) Job() schema.JobProfile { return r.data.Job.Clone() }

func (r *Report) SkillGap() schema.SkillGapResult { return r.data.SkillGap.Clone() }

func (r *Report) ExperienceEducation() schema.ExperienceEducationResult {
	return r.data.ExperienceEducation.Clone()
}

func (r *Report) Score() schema.ScoreResult { return r.data.Score.Clone() }

func (r *Report) Suggestions() schema.SuggestionResult { return r.data.Suggestions.Clone() }

func (r *Report) GeneratedAt() time.Time { return r.data.GeneratedAt }

// Data returns a copy of the whole record.
func (r *Report) Data() schema.Report { return r.data.Clone() }

// Encode serializes the report as indented JSON.
func (r *Report) Encode() ([]byte, error) {
	return schema.Encode(r.data)
}
