package matching

import (
	"fmt"
	"strings"

	"github.com/spigell/hr-matcher/internal/crm"
)

// candidateText renders the candidate as the plain text block handed to an assessor.
func candidateText(c *crm.Candidate) string {
	var b strings.Builder
	line(&b, "Name", c.Name)
	line(&b, "Current title", c.Title)
	line(&b, "Skills", c.Skills)
	line(&b, "Tags", tagList(c.Tags))
	line(&b, "City", c.City)
	if c.YearsOfExperience != nil {
		line(&b, "Years of experience", formatYears(*c.YearsOfExperience))
	}
	line(&b, "Notes", c.Notes)
	return b.String()
}

func positionText(p *crm.Position, profile *AIProfile) string {
	var b strings.Builder
	line(&b, "Title", p.Title)
	line(&b, "Employer", p.EmployerName())
	line(&b, "Location", p.Location)
	line(&b, "Salary", p.SalaryRange)
	line(&b, "Tags", tagList(p.Tags))
	line(&b, "Description", p.Description)
	line(&b, "Requirements", p.Requirements)
	if profile != nil {
		line(&b, "Required skills", strings.Join(profile.skills(), ", "))
		line(&b, "Must have", strings.Join(profile.MustHave, ", "))
		line(&b, "Ideal candidate", profile.IdealCandidate)
		if profile.MinExperienceYears != nil {
			line(&b, "Minimum experience", formatYears(*profile.MinExperienceYears)+" years")
		}
	}
	return b.String()
}

func line(b *strings.Builder, label, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	fmt.Fprintf(b, "%s: %s\n", label, value)
}

func tagList(tags []crm.Tag) string {
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		if name := strings.TrimSpace(t.Name); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}
