package schema

import "time"

func sampleResume() ResumeProfile {
	return ResumeProfile{
		Name:   "Jane Doe",
		Skills: []string{"Python", "SQL", "Excel"},
		Roles: []Role{
			{Title: "Data Analyst", Organization: "Acme", DurationMonths: 18},
		},
		Education: []Education{
			{Degree: "BSc Computer Science", Institution: "State University", Level: EducationBachelor},
		},
	}
}

func sampleJob() JobProfile {
	return JobProfile{
		Title: "Senior Data Engineer",
		Skills: []SkillRequirement{
			{Name: "Python", Priority: PriorityRequired},
			{Name: "SQL", Priority: PriorityRequired},
			{Name: "Docker", Priority: PriorityRequired},
		},
		ExperienceLevel:  ExperienceSenior,
		EducationLevel:   EducationBachelor,
		Responsibilities: []string{"Build pipelines"},
	}
}

func sampleReport() Report {
	gap := SkillGapResult{
		Matching: []string{"Python", "SQL"},
		Missing:  []string{"Docker"},
		Extra:    []string{"Excel"},
	}
	ee := ExperienceEducationResult{
		Experience: NewExperienceAssessment(ExperienceJunior, ExperienceSenior, "18 months is well short of senior."),
		Education:  NewEducationAssessment(EducationBachelor, EducationBachelor, "Bachelor degree as requested."),
	}
	weights := DefaultWeights()
	components := map[Category]float64{
		CategorySkills:     SkillsComponent(gap),
		CategoryExperience: ee.Experience.Verdict.Score(),
		CategoryEducation:  ee.Education.Verdict.Score(),
	}
	return Report{
		Resume:              sampleResume(),
		Job:                 sampleJob(),
		SkillGap:            gap,
		ExperienceEducation: ee,
		Score: ScoreResult{
			Overall:    weights.Overall(components),
			Components: components,
			Weights:    weights,
		},
		Suggestions: SuggestionResult{Items: []Suggestion{
			{Text: "Containerise one of your projects with Docker.", Gaps: []string{"skill:Docker"}},
			{Text: "Highlight ownership of larger projects.", Gaps: []string{"experience"}},
		}},
		GeneratedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}
