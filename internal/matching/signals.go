package matching

import (
	"sort"
	"strings"

	"github.com/spigell/hr-matcher/internal/crm"
)

// candidateSignals holds everything derived from a candidate that scoring looks at.
type candidateSignals struct {
	terms termSet
	// corpus is the normalized concatenation of all candidate free text.
	corpus string
	title  string
	city   string
	// rawCity is kept for region lookups, which apply their own normalization.
	rawCity string
}

// positionSignals holds the parsed and normalized view of a position.
type positionSignals struct {
	terms        []string
	profile      *AIProfile
	title        string
	description  string
	requirements string
	location     string
	rawLocation  string
}

func newCandidateSignals(c *crm.Candidate) candidateSignals {
	terms := termSet{}
	for _, tag := range c.Tags {
		name := normalize(tag.Name)
		terms.add(name)
		terms.add(words(name)...)
	}
	for _, phrase := range splitPhrases(c.Skills) {
		terms.add(phrase)
		terms.add(words(phrase)...)
	}

	tagNames := make([]string, 0, len(c.Tags))
	for _, tag := range c.Tags {
		tagNames = append(tagNames, tag.Name)
	}

	corpus := normalize(strings.Join([]string{
		c.Title,
		strings.Join(tagNames, " "),
		c.Skills,
		c.Notes,
	}, " "))

	return candidateSignals{
		terms:   terms,
		corpus:  corpus,
		title:   normalize(c.Title),
		city:    normalize(c.City),
		rawCity: c.City,
	}
}

func newPositionSignals(p *crm.Position) (positionSignals, error) {
	keywords, err := parseKeywords(p.KeywordsJSON)
	if err != nil {
		return positionSignals{}, err
	}
	profile, err := parseAIProfile(p.AIProfileJSON)
	if err != nil {
		return positionSignals{}, err
	}

	set := termSet{}
	for _, tag := range p.Tags {
		set.add(normalize(tag.Name))
	}
	for _, kw := range keywords {
		set.add(normalize(kw))
	}
	for _, skill := range profile.skills() {
		set.add(normalize(skill))
	}

	terms := make([]string, 0, len(set))
	for t := range set {
		terms = append(terms, t)
	}
	sort.Strings(terms)

	requirements := p.Requirements
	if profile != nil && len(profile.Requirements) > 0 {
		requirements = requirements + "\n" + strings.Join(profile.Requirements, "\n")
	}

	return positionSignals{
		terms:        terms,
		profile:      profile,
		title:        normalize(p.Title),
		description:  normalize(p.Description),
		requirements: requirements,
		location:     normalize(p.Location),
		rawLocation:  p.Location,
	}, nil
}
