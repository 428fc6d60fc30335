package report

import (
	"fmt"
	"strings"

	"github.com/spigell/resume-matcher/internal/schema"
)

// Band names the range an overall score falls into.
type Band string

const (
	BandExcellent        Band = "excellent match"
	BandGood             Band = "good match"
	BandModerate         Band = "moderate match"
	BandNeedsImprovement Band = "needs improvement"
)

func BandOf(score int) Band {
	switch {
	case score >= 80:
		return BandExcellent
	case score >= 60:
		return BandGood
	case score >= 40:
		return BandModerate
	default:
		return BandNeedsImprovement
	}
}

// Summary renders the report as text for the terminal.
func (r *Report) Summary() string {
	var b strings.Builder
	d := r.data

	title := d.Job.Title
	if title == "" {
		title = "job description"
	}
	fmt.Fprintf(&b, "Fit for %s: %d/100 (%s)\n", title, d.Score.Overall, BandOf(d.Score.Overall))
	for _, c := range schema.Categories {
		fmt.Fprintf(&b, "  %-10s %6.1f  (weight %.2f)\n", c, d.Score.Components[c], d.Score.Weights.Of(c))
	}

	b.WriteString("\n")
	b.WriteString(r.SkillsSection())
	b.WriteString("\n")
	b.WriteString(r.ExperienceSection())
	b.WriteString("\n")
	b.WriteString(r.SuggestionsSection())

	return b.String()
}

func (r *Report) SkillsSection() string {
	var b strings.Builder
	gap := r.data.SkillGap
	b.WriteString("Skills\n")
	fmt.Fprintf(&b, "  matching: %s\n", listOrNone(gap.Matching))
	fmt.Fprintf(&b, "  missing:  %s\n", listOrNone(gap.Missing))
	fmt.Fprintf(&b, "  extra:    %s\n", listOrNone(gap.Extra))
	for _, eq := range gap.Equivalences {
		fmt.Fprintf(&b, "  %s matched by %s\n", eq.Required, eq.Candidate)
	}
	if gap.OverlapSummary != "" {
		fmt.Fprintf(&b, "  overlap: %s\n", gap.OverlapSummary)
	}
	if gap.LackingSummary != "" {
		fmt.Fprintf(&b, "  lacking: %s\n", gap.LackingSummary)
	}
	return b.String()
}

func (r *Report) ExperienceSection() string {
	var b strings.Builder
	ee := r.data.ExperienceEducation
	b.WriteString("Experience and education\n")
	for _, item := range []struct {
		label string
		a     schema.Assessment
	}{
		{"experience", ee.Experience},
		{"education", ee.Education},
	} {
		fmt.Fprintf(&b, "  %s: %s (holds %s, requires %s)\n", item.label, item.a.Verdict, item.a.Held, item.a.Required)
		fmt.Fprintf(&b, "    %s\n", item.a.Rationale)
		if len(item.a.Relevant) > 0 {
			fmt.Fprintf(&b, "    relevant: %s\n", strings.Join(item.a.Relevant, "; "))
		}
		if len(item.a.Missing) > 0 {
			fmt.Fprintf(&b, "    missing:  %s\n", strings.Join(item.a.Missing, "; "))
		}
	}
	return b.String()
}

func (r *Report) SuggestionsSection() string {
	var b strings.Builder
	b.WriteString("Suggestions\n")
	items := r.data.Suggestions.Items
	if len(items) == 0 {
		b.WriteString("  none\n")
		return b.String()
	}
	for i, item := range items {
		fmt.Fprintf(&b, "  %d. %s [%s]\n", i+1, item.Text, strings.Join(item.Gaps, ", "))
	}
	return b.String()
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
