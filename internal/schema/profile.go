package schema

import (
	"strings"
)

// ResumeProfile holds the facts extracted from a candidate resume.
type ResumeProfile struct {
	Name      string      `json:"name,omitempty"`
	Email     string      `json:"email,omitempty"`
	Skills    []string    `json:"skills" validate:"dive,required"`
	Roles     []Role      `json:"roles" validate:"dive"`
	Education []Education `json:"education" validate:"dive"`
}

type Role struct {
	Title          string `json:"title" validate:"required"`
	Organization   string `json:"organization,omitempty"`
	DurationMonths int    `json:"duration_months" validate:"gte=0"`
}

type Education struct {
	Degree      string         `json:"degree" validate:"required"`
	Institution string         `json:"institution,omitempty"`
	Field       string         `json:"field,omitempty"`
	Level       EducationLevel `json:"level"`
}

// Priority tags a job skill as a hard requirement or a nice-to-have.
type Priority string

const (
	PriorityRequired  Priority = "required"
	PriorityPreferred Priority = "preferred"
)

type SkillRequirement struct {
	Name     string   `json:"name" validate:"required"`
	Priority Priority `json:"priority" validate:"oneof=required preferred"`
}

// JobProfile holds the facts extracted from a job description.
type JobProfile struct {
	Title            string             `json:"title,omitempty"`
	Skills           []SkillRequirement `json:"skills" validate:"dive"`
	ExperienceLevel  ExperienceLevel    `json:"experience_level"`
	EducationLevel   EducationLevel     `json:"education_level"`
	Responsibilities []string           `json:"responsibilities" validate:"dive,required"`
}

// skillAliases folds common spellings of the same technology onto one key.
var skillAliases = map[string]string{
	"golang":     "go",
	"go lang":    "go",
	"js":         "javascript",
	"ts":         "typescript",
	"k8s":        "kubernetes",
	"react.js":   "react",
	"reactjs":    "react",
	"vue.js":     "vue",
	"vuejs":      "vue",
	"node":       "node.js",
	"nodejs":     "node.js",
	"postgres":   "postgresql",
	"psql":       "postgresql",
	"py":         "python",
	"python3":    "python",
	"gcp":        "google cloud",
	"aws cloud":  "aws",
	"c sharp":    "c#",
	"dotnet":     ".net",
	"ml":         "machine learning",
}

// SkillKey is the comparison key for a skill name: trimmed, lowercased,
// inner whitespace collapsed and known aliases folded.
func SkillKey(name string) string {
	key := strings.Join(strings.Fields(strings.ToLower(name)), " ")
	if canonical, ok := skillAliases[key]; ok {
		return canonical
	}
	return key
}

// Normalize trims fields, drops empty and case-insensitively duplicated
// skills (first spelling wins) and replaces nil slices with empty ones.
func (p ResumeProfile) Normalize() ResumeProfile {
	out := ResumeProfile{
		Name:      strings.TrimSpace(p.Name),
		Email:     strings.TrimSpace(p.Email),
		Skills:    make([]string, 0, len(p.Skills)),
		Roles:     make([]Role, 0, len(p.Roles)),
		Education: make([]Education, 0, len(p.Education)),
	}

	seen := make(map[string]struct{}, len(p.Skills))
	for _, skill := range p.Skills {
		skill = strings.TrimSpace(skill)
		key := SkillKey(skill)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out.Skills = append(out.Skills, skill)
	}

	for _, role := range p.Roles {
		role.Title = strings.TrimSpace(role.Title)
		role.Organization = strings.TrimSpace(role.Organization)
		out.Roles = append(out.Roles, role)
	}

	for _, edu := range p.Education {
		edu.Degree = strings.TrimSpace(edu.Degree)
		edu.Institution = strings.TrimSpace(edu.Institution)
		edu.Field = strings.TrimSpace(edu.Field)
		out.Education = append(out.Education, edu)
	}

	return out
}

func (p ResumeProfile) Validate() error {
	if err := fromValidator(validate.Struct(p)); err != nil {
		return err
	}
	if err := uniqueSkills("skills", p.Skills); err != nil {
		return err
	}
	for i, edu := range p.Education {
		if !edu.Level.Valid() {
			return violationf(indexPath("education", i)+".level", "unknown education level %d", int(edu.Level))
		}
	}
	return nil
}

// TotalMonths sums the duration of every listed role.
func (p ResumeProfile) TotalMonths() int {
	total := 0
	for _, role := range p.Roles {
		total += role.DurationMonths
	}
	return total
}

// ExperienceLevel is the held seniority derived from role durations.
func (p ResumeProfile) ExperienceLevel() ExperienceLevel {
	return ExperienceFromMonths(p.TotalMonths())
}

// EducationLevel is the highest level across education entries.
func (p ResumeProfile) EducationLevel() EducationLevel {
	highest := EducationNone
	for _, edu := range p.Education {
		if edu.Level > highest {
			highest = edu.Level
		}
	}
	return highest
}

func (p ResumeProfile) Clone() ResumeProfile {
	out := p
	out.Skills = cloneSlice(p.Skills)
	out.Roles = cloneSlice(p.Roles)
	out.Education = cloneSlice(p.Education)
	return out
}

// Normalize trims fields, drops empty skill names and merges duplicates.
// A skill listed both as required and preferred stays required.
func (j JobProfile) Normalize() JobProfile {
	out := JobProfile{
		Title:            strings.TrimSpace(j.Title),
		Skills:           make([]SkillRequirement, 0, len(j.Skills)),
		ExperienceLevel:  j.ExperienceLevel,
		EducationLevel:   j.EducationLevel,
		Responsibilities: make([]string, 0, len(j.Responsibilities)),
	}

	index := make(map[string]int, len(j.Skills))
	for _, req := range j.Skills {
		req.Name = strings.TrimSpace(req.Name)
		req.Priority = Priority(strings.ToLower(strings.TrimSpace(string(req.Priority))))
		key := SkillKey(req.Name)
		if key == "" {
			continue
		}
		if at, dup := index[key]; dup {
			if req.Priority == PriorityRequired {
				out.Skills[at].Priority = PriorityRequired
			}
			continue
		}
		index[key] = len(out.Skills)
		out.Skills = append(out.Skills, req)
	}

	for _, line := range j.Responsibilities {
		if line = strings.TrimSpace(line); line != "" {
			out.Responsibilities = append(out.Responsibilities, line)
		}
	}

	return out
}

func (j JobProfile) Validate() error {
	if err := fromValidator(validate.Struct(j)); err != nil {
		return err
	}
	if !j.ExperienceLevel.Valid() {
		return violationf("experience_level", "unknown experience level %d", int(j.ExperienceLevel))
	}
	if !j.EducationLevel.Valid() {
		return violationf("education_level", "unknown education level %d", int(j.EducationLevel))
	}
	return uniqueSkills("skills", j.SkillNames())
}

// SkillNames lists every requested skill, required and preferred, in job order.
func (j JobProfile) SkillNames() []string {
	names := make([]string, 0, len(j.Skills))
	for _, req := range j.Skills {
		names = append(names, req.Name)
	}
	return names
}

func (j JobProfile) Clone() JobProfile {
	out := j
	out.Skills = cloneSlice(j.Skills)
	out.Responsibilities = cloneSlice(j.Responsibilities)
	return out
}

func uniqueSkills(path string, names []string) error {
	seen := make(map[string]int, len(names))
	for i, name := range names {
		key := SkillKey(name)
		if first, dup := seen[key]; dup {
			return violationf(indexPath(path, i), "duplicates %s (case-insensitive)", indexPath(path, first))
		}
		seen[key] = i
	}
	return nil
}
