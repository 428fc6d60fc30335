package schema

import (
	"fmt"
	"strings"
)

// ExperienceLevel is the ordinal seniority scale: none < junior < mid < senior < lead.
type ExperienceLevel int

const (
	ExperienceNone ExperienceLevel = iota
	ExperienceJunior
	ExperienceMid
	ExperienceSenior
	ExperienceLead
)

var experienceNames = []string{"none", "junior", "mid", "senior", "lead"}

func (l ExperienceLevel) Valid() bool { return l >= ExperienceNone && l <= ExperienceLead }

func (l ExperienceLevel) String() string {
	if !l.Valid() {
		return fmt.Sprintf("experience(%d)", int(l))
	}
	return experienceNames[l]
}

func (l ExperienceLevel) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("unknown experience level %d", int(l))
	}
	return []byte(l.String()), nil
}

func (l *ExperienceLevel) UnmarshalText(text []byte) error {
	idx, err := lookupLevel(experienceNames, string(text))
	if err != nil {
		return fmt.Errorf("experience level: %w", err)
	}
	*l = ExperienceLevel(idx)
	return nil
}

// ParseExperienceLevel parses a level name, ignoring case and surrounding space.
func ParseExperienceLevel(s string) (ExperienceLevel, error) {
	var l ExperienceLevel
	err := l.UnmarshalText([]byte(s))
	return l, err
}

// Month thresholds for deriving held seniority from accumulated role duration.
const (
	juniorBelowMonths = 24
	midBelowMonths    = 60
	seniorBelowMonths = 96
)

// ExperienceFromMonths maps total professional months onto the seniority scale.
func ExperienceFromMonths(months int) ExperienceLevel {
	switch {
	case months <= 0:
		return ExperienceNone
	case months < juniorBelowMonths:
		return ExperienceJunior
	case months < midBelowMonths:
		return ExperienceMid
	case months < seniorBelowMonths:
		return ExperienceSenior
	default:
		return ExperienceLead
	}
}

// EducationLevel is the ordinal degree scale.
type EducationLevel int

const (
	EducationNone EducationLevel = iota
	EducationHighSchool
	EducationAssociate
	EducationBachelor
	EducationMaster
	EducationDoctorate
)

var educationNames = []string{"none", "high_school", "associate", "bachelor", "master", "doctorate"}

func (l EducationLevel) Valid() bool { return l >= EducationNone && l <= EducationDoctorate }

func (l EducationLevel) String() string {
	if !l.Valid() {
		return fmt.Sprintf("education(%d)", int(l))
	}
	return educationNames[l]
}

func (l EducationLevel) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("unknown education level %d", int(l))
	}
	return []byte(l.String()), nil
}

func (l *EducationLevel) UnmarshalText(text []byte) error {
	idx, err := lookupLevel(educationNames, string(text))
	if err != nil {
		return fmt.Errorf("education level: %w", err)
	}
	*l = EducationLevel(idx)
	return nil
}

// ParseEducationLevel parses a level name, ignoring case and surrounding space.
func ParseEducationLevel(s string) (EducationLevel, error) {
	var l EducationLevel
	err := l.UnmarshalText([]byte(s))
	return l, err
}

// lookupLevel matches level names case-insensitively. The response shapes
// use the same rule, so a level the shape accepts always decodes.
func lookupLevel(names []string, raw string) (int, error) {
	needle := strings.ToLower(strings.TrimSpace(raw))
	for i, name := range names {
		if name == needle {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown value %q (expected one of %s)", raw, strings.Join(names, ", "))
}

// Verdict is the ordinal outcome of comparing a held level against a required one.
type Verdict string

const (
	DoesNotMeet    Verdict = "does_not_meet"
	PartiallyMeets Verdict = "partially_meets"
	Meets          Verdict = "meets"
	Exceeds        Verdict = "exceeds"
)

var verdictRanks = map[Verdict]int{
	DoesNotMeet:    0,
	PartiallyMeets: 1,
	Meets:          2,
	Exceeds:        3,
}

// Fixed verdict to sub-score table used by scoring.
var verdictScores = map[Verdict]float64{
	DoesNotMeet:    0,
	PartiallyMeets: 50,
	Meets:          85,
	Exceeds:        100,
}

func (v Verdict) Valid() bool {
	_, ok := verdictRanks[v]
	return ok
}

// Rank orders verdicts: does_not_meet < partially_meets < meets < exceeds.
func (v Verdict) Rank() int { return verdictRanks[v] }

// Score returns the component score for the verdict.
func (v Verdict) Score() float64 { return verdictScores[v] }

// IsGap reports whether the verdict falls short of the requirement.
func (v Verdict) IsGap() bool { return v == DoesNotMeet || v == PartiallyMeets }

// DeriveVerdict compares ordinal ranks. One step short is a partial match,
// two or more steps short does not meet the requirement.
func DeriveVerdict(held, required int) Verdict {
	switch gap := required - held; {
	case gap >= 2:
		return DoesNotMeet
	case gap == 1:
		return PartiallyMeets
	case gap == 0:
		return Meets
	default:
		return Exceeds
	}
}
