package schema

import (
	"fmt"
	"math"
	"strings"
)

// Equivalence records a semantic match between a requested skill and a
// differently spelled resume skill.
type Equivalence struct {
	Required  string `json:"required" validate:"required"`
	Candidate string `json:"candidate" validate:"required"`
}

// SkillGapResult partitions the requested skills into matching and missing,
// and lists resume skills nobody asked for. The summaries describe the
// partition in prose; they never change it.
type SkillGapResult struct {
	Matching       []string      `json:"matching" validate:"dive,required"`
	Missing        []string      `json:"missing" validate:"dive,required"`
	Extra          []string      `json:"extra" validate:"dive,required"`
	Equivalences   []Equivalence `json:"equivalences" validate:"dive"`
	OverlapSummary string        `json:"overlap_summary,omitempty"`
	LackingSummary string        `json:"lacking_summary,omitempty"`
}

func (r SkillGapResult) Validate() error {
	if err := fromValidator(validate.Struct(r)); err != nil {
		return err
	}
	for _, field := range []struct {
		path  string
		names []string
	}{
		{"matching", r.Matching},
		{"missing", r.Missing},
		{"extra", r.Extra},
	} {
		if err := uniqueSkills(field.path, field.names); err != nil {
			return err
		}
	}

	matching := keySet(r.Matching)
	for i, name := range r.Missing {
		if _, ok := matching[SkillKey(name)]; ok {
			return violationf(indexPath("missing", i), "skill %q is both matching and missing", name)
		}
	}
	for i, eq := range r.Equivalences {
		if _, ok := matching[SkillKey(eq.Required)]; !ok {
			return violationf(indexPath("equivalences", i), "equivalence for %q which is not matching", eq.Required)
		}
	}
	return nil
}

// ValidateAgainst checks the result against the profiles it was computed
// from: matching and missing together are exactly the requested skills, every
// match is backed by a resume skill and extra skills come from the resume.
func (r SkillGapResult) ValidateAgainst(resume ResumeProfile, job JobProfile) error {
	if err := r.Validate(); err != nil {
		return err
	}

	requested := keySet(job.SkillNames())
	held := keySet(resume.Skills)

	covered := make(map[string]struct{}, len(requested))
	for i, name := range r.Matching {
		key := SkillKey(name)
		if _, ok := requested[key]; !ok {
			return violationf(indexPath("matching", i), "skill %q is not requested by the job", name)
		}
		if _, ok := held[key]; !ok && !r.hasEquivalence(name, held) {
			return violationf(indexPath("matching", i), "skill %q has no backing resume skill", name)
		}
		covered[key] = struct{}{}
	}
	for i, name := range r.Missing {
		key := SkillKey(name)
		if _, ok := requested[key]; !ok {
			return violationf(indexPath("missing", i), "skill %q is not requested by the job", name)
		}
		covered[key] = struct{}{}
	}
	for _, name := range job.SkillNames() {
		if _, ok := covered[SkillKey(name)]; !ok {
			return violationf("matching", "requested skill %q is neither matching nor missing", name)
		}
	}
	for i, name := range r.Extra {
		if _, ok := held[SkillKey(name)]; !ok {
			return violationf(indexPath("extra", i), "skill %q is not on the resume", name)
		}
	}
	return nil
}

func (r SkillGapResult) hasEquivalence(required string, held map[string]struct{}) bool {
	for _, eq := range r.Equivalences {
		if SkillKey(eq.Required) != SkillKey(required) {
			continue
		}
		if _, ok := held[SkillKey(eq.Candidate)]; ok {
			return true
		}
	}
	return false
}

func (r SkillGapResult) Clone() SkillGapResult {
	return SkillGapResult{
		Matching:       cloneSlice(r.Matching),
		Missing:        cloneSlice(r.Missing),
		Extra:          cloneSlice(r.Extra),
		Equivalences:   cloneSlice(r.Equivalences),
		OverlapSummary: r.OverlapSummary,
		LackingSummary: r.LackingSummary,
	}
}

// Assessment is the outcome for one dimension. The verdict is always the
// one derived from Held and Required; Rationale only explains it.
type Assessment struct {
	Required  string  `json:"required" validate:"required"`
	Held      string  `json:"held" validate:"required"`
	Verdict   Verdict `json:"verdict" validate:"required"`
	Rationale string  `json:"rationale" validate:"required"`
	// Relevant and Missing cite resume evidence for and against the
	// requirement. Only the experience assessment carries them.
	Relevant []string `json:"relevant,omitempty" validate:"dive,required"`
	Missing  []string `json:"missing,omitempty" validate:"dive,required"`
}

// WithEvidence returns a copy carrying the cleaned evidence lists: entries
// are trimmed, blanks and case-insensitive repeats dropped. Empty lists are
// stored as nil.
func (a Assessment) WithEvidence(relevant, missing []string) Assessment {
	a.Relevant = cleanEvidence(relevant)
	a.Missing = cleanEvidence(missing)
	return a
}

func (a Assessment) Clone() Assessment {
	a.Relevant = cloneSlice(a.Relevant)
	a.Missing = cloneSlice(a.Missing)
	return a
}

func cleanEvidence(items []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = strings.Join(strings.Fields(item), " ")
		key := strings.ToLower(item)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}

// NewExperienceAssessment derives the verdict for seniority levels.
func NewExperienceAssessment(held, required ExperienceLevel, rationale string) Assessment {
	return Assessment{
		Required:  required.String(),
		Held:      held.String(),
		Verdict:   DeriveVerdict(int(held), int(required)),
		Rationale: strings.TrimSpace(rationale),
	}
}

// NewEducationAssessment derives the verdict for degree levels.
func NewEducationAssessment(held, required EducationLevel, rationale string) Assessment {
	return Assessment{
		Required:  required.String(),
		Held:      held.String(),
		Verdict:   DeriveVerdict(int(held), int(required)),
		Rationale: strings.TrimSpace(rationale),
	}
}

type ExperienceEducationResult struct {
	Experience Assessment `json:"experience"`
	Education  Assessment `json:"education"`
}

func (r ExperienceEducationResult) Clone() ExperienceEducationResult {
	return ExperienceEducationResult{
		Experience: r.Experience.Clone(),
		Education:  r.Education.Clone(),
	}
}

func (r ExperienceEducationResult) Validate() error {
	if err := fromValidator(validate.Struct(r)); err != nil {
		return err
	}

	heldExp, err := ParseExperienceLevel(r.Experience.Held)
	if err != nil {
		return &Violation{Path: "experience.held", Invariant: "known experience level", Err: err}
	}
	reqExp, err := ParseExperienceLevel(r.Experience.Required)
	if err != nil {
		return &Violation{Path: "experience.required", Invariant: "known experience level", Err: err}
	}
	if want := DeriveVerdict(int(heldExp), int(reqExp)); r.Experience.Verdict != want {
		return violationf("experience.verdict", "verdict %q does not follow from held %s vs required %s (want %q)",
			r.Experience.Verdict, heldExp, reqExp, want)
	}

	heldEdu, err := ParseEducationLevel(r.Education.Held)
	if err != nil {
		return &Violation{Path: "education.held", Invariant: "known education level", Err: err}
	}
	reqEdu, err := ParseEducationLevel(r.Education.Required)
	if err != nil {
		return &Violation{Path: "education.required", Invariant: "known education level", Err: err}
	}
	if want := DeriveVerdict(int(heldEdu), int(reqEdu)); r.Education.Verdict != want {
		return violationf("education.verdict", "verdict %q does not follow from held %s vs required %s (want %q)",
			r.Education.Verdict, heldEdu, reqEdu, want)
	}
	if len(r.Education.Relevant) > 0 || len(r.Education.Missing) > 0 {
		return violationf("education", "evidence lists belong to the experience assessment")
	}
	return nil
}

// Category names a score component.
type Category string

const (
	CategorySkills     Category = "skills"
	CategoryExperience Category = "experience"
	CategoryEducation  Category = "education"
)

// Categories lists score components in report order.
var Categories = []Category{CategorySkills, CategoryExperience, CategoryEducation}

// WeightTolerance bounds how far the weight sum may drift from 1.0.
const WeightTolerance = 1e-6

type Weights struct {
	Skills     float64 `json:"skills" mapstructure:"skills"`
	Experience float64 `json:"experience" mapstructure:"experience"`
	Education  float64 `json:"education" mapstructure:"education"`
}

func DefaultWeights() Weights {
	return Weights{Skills: 0.5, Experience: 0.3, Education: 0.2}
}

func (w Weights) Of(c Category) float64 {
	switch c {
	case CategorySkills:
		return w.Skills
	case CategoryExperience:
		return w.Experience
	case CategoryEducation:
		return w.Education
	default:
		return 0
	}
}

func (w Weights) Validate() error {
	for _, c := range Categories {
		if v := w.Of(c); v < 0 || v > 1 || math.IsNaN(v) {
			return violationf("weights."+string(c), "weight %v outside [0,1]", v)
		}
	}
	if sum := w.Skills + w.Experience + w.Education; math.Abs(sum-1) > WeightTolerance {
		return violationf("weights", "weights sum to %v, want 1.0", sum)
	}
	return nil
}

// Overall is the weighted sum of components rounded to the nearest integer.
func (w Weights) Overall(components map[Category]float64) int {
	sum := 0.0
	for _, c := range Categories {
		sum += w.Of(c) * components[c]
	}
	return int(math.Round(sum))
}

type ScoreResult struct {
	Overall    int                  `json:"overall" validate:"gte=0,lte=100"`
	Components map[Category]float64 `json:"components"`
	Weights    Weights              `json:"weights"`
}

func (s ScoreResult) Validate() error {
	if err := fromValidator(validate.Struct(s)); err != nil {
		return err
	}
	if err := s.Weights.Validate(); err != nil {
		return err
	}
	if len(s.Components) != len(Categories) {
		return violationf("components", "want exactly %d categories, got %d", len(Categories), len(s.Components))
	}
	for _, c := range Categories {
		v, ok := s.Components[c]
		if !ok {
			return violationf("components."+string(c), "missing component")
		}
		if v < 0 || v > 100 || math.IsNaN(v) {
			return violationf("components."+string(c), "sub-score %v outside [0,100]", v)
		}
	}
	if want := s.Weights.Overall(s.Components); s.Overall != want {
		return violationf("overall", "overall %d is not the weighted sum of components (%d)", s.Overall, want)
	}
	return nil
}

func (s ScoreResult) Clone() ScoreResult {
	out := s
	out.Components = make(map[Category]float64, len(s.Components))
	for k, v := range s.Components {
		out.Components[k] = v
	}
	return out
}

// Gap identifiers referenced by suggestions.
const (
	GapExperience = "experience"
	GapEducation  = "education"
	gapSkillPref  = "skill:"
)

// SkillGapID is the identifier of a missing skill gap.
func SkillGapID(skill string) string {
	return gapSkillPref + skill
}

// GapSet holds the identified gaps a suggestion may reference, keyed
// case-insensitively.
type GapSet struct {
	ids   map[string]string
	order []string
}

// IdentifyGaps collects missing skills and every verdict short of the requirement.
func IdentifyGaps(gap SkillGapResult, ee ExperienceEducationResult) GapSet {
	set := GapSet{ids: make(map[string]string)}
	for _, skill := range gap.Missing {
		set.add(SkillGapID(skill))
	}
	if ee.Experience.Verdict.IsGap() {
		set.add(GapExperience)
	}
	if ee.Education.Verdict.IsGap() {
		set.add(GapEducation)
	}
	return set
}

func (g *GapSet) add(id string) {
	key := gapKey(id)
	if _, ok := g.ids[key]; ok {
		return
	}
	g.ids[key] = id
	g.order = append(g.order, id)
}

// Resolve returns the canonical spelling of a referenced gap.
func (g GapSet) Resolve(ref string) (string, bool) {
	id, ok := g.ids[gapKey(ref)]
	return id, ok
}

func (g GapSet) IDs() []string { return cloneSlice(g.order) }

func (g GapSet) Len() int { return len(g.order) }

func gapKey(id string) string {
	id = strings.TrimSpace(id)
	if len(id) > len(gapSkillPref) && strings.EqualFold(id[:len(gapSkillPref)], gapSkillPref) {
		return gapSkillPref + SkillKey(id[len(gapSkillPref):])
	}
	return strings.ToLower(id)
}

type Suggestion struct {
	Text string   `json:"text" validate:"required"`
	Gaps []string `json:"gaps" validate:"min=1,dive,required"`
}

type SuggestionResult struct {
	Items []Suggestion `json:"items" validate:"dive"`
}

// NewSuggestionResult builds a result and rejects it unless every
// suggestion is distinct and traces back to an identified gap.
func NewSuggestionResult(items []Suggestion, gaps GapSet) (SuggestionResult, error) {
	result := SuggestionResult{Items: cloneSuggestions(items)}
	if err := result.ValidateTraceable(gaps); err != nil {
		return SuggestionResult{}, err
	}
	return result, nil
}

func (r SuggestionResult) Validate() error {
	if err := fromValidator(validate.Struct(r)); err != nil {
		return err
	}
	seen := make(map[string]int, len(r.Items))
	for i, item := range r.Items {
		if strings.TrimSpace(item.Text) == "" {
			return violationf(indexPath("items", i)+".text", "blank suggestion")
		}
		key := strings.ToLower(strings.TrimSpace(item.Text))
		if first, dup := seen[key]; dup {
			return violationf(indexPath("items", i), "duplicates %s", indexPath("items", first))
		}
		seen[key] = i
	}
	return nil
}

// ValidateTraceable additionally requires each suggestion to reference a known gap.
func (r SuggestionResult) ValidateTraceable(gaps GapSet) error {
	if err := r.Validate(); err != nil {
		return err
	}
	for i, item := range r.Items {
		for j, ref := range item.Gaps {
			if _, ok := gaps.Resolve(ref); !ok {
				return violationf(fmt.Sprintf("items[%d].gaps[%d]", i, j), "gap %q was not identified", ref)
			}
		}
	}
	return nil
}

func (r SuggestionResult) Clone() SuggestionResult {
	return SuggestionResult{Items: cloneSuggestions(r.Items)}
}

func cloneSuggestions(items []Suggestion) []Suggestion {
	if items == nil {
		return nil
	}
	out := make([]Suggestion, len(items))
	for i, item := range items {
		out[i] = Suggestion{Text: item.Text, Gaps: cloneSlice(item.Gaps)}
	}
	return out
}

func keySet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[SkillKey(name)] = struct{}{}
	}
	return set
}
