package matching

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/spigell/hr-matcher/internal/crm"
)

// notes collects the human readable explanation of one factor.
type notes struct {
	strengths  []string
	weaknesses []string
}

func (n *notes) strength(format string, args ...any) {
	n.strengths = append(n.strengths, fmt.Sprintf(format, args...))
}

func (n *notes) weakness(format string, args ...any) {
	n.weaknesses = append(n.weaknesses, fmt.Sprintf(format, args...))
}

const (
	sparseSignal    = 3
	sparseRatioPart = 0.6
	sparseTermPart  = 0.2
)

// tagFraction is the share of the position signal the candidate covers.
func tagFraction(c candidateSignals, p positionSignals, n *notes) float64 {
	if len(p.terms) == 0 {
		n.weakness("position lists no skills, tags or keywords to compare")
		return 0
	}

	var overlap []string
	for _, term := range p.terms {
		if c.terms.has(term) {
			overlap = append(overlap, term)
		}
	}

	ratio := float64(len(overlap)) / float64(len(p.terms))
	fraction := ratio
	if len(p.terms) < sparseSignal {
		fraction = sparseRatioPart*ratio + sparseTermPart*math.Min(float64(len(overlap)), 2)
	}

	switch {
	case len(overlap) == 0:
		n.weakness("no tag overlap with position (%s)", strings.Join(p.terms, ", "))
	case fraction >= 0.5:
		n.strength("tag overlap: %s", strings.Join(overlap, ", "))
	default:
		n.weakness("partial tag overlap: %d of %d (%s)", len(overlap), len(p.terms), strings.Join(overlap, ", "))
	}

	return math.Min(fraction, 1)
}

const (
	titleExact       = 1.0
	titleSharedWord  = 0.6
	titleDescription = 0.3
)

func titleFraction(c candidateSignals, p positionSignals, n *notes) float64 {
	if c.title == "" {
		n.weakness("candidate has no current title")
		return 0
	}
	if p.title != "" && (c.title == p.title || containsPhrase(p.title, c.title) || containsPhrase(c.title, p.title)) {
		n.strength("title matches position: %s", p.title)
		return titleExact
	}

	candidateWords := significantWords(c.title)
	titleWords := termSet{}
	titleWords.add(significantWords(p.title)...)
	for _, w := range candidateWords {
		if titleWords.has(w) {
			n.strength("related title: %q", w)
			return titleSharedWord
		}
	}

	descWords := termSet{}
	descWords.add(words(p.description)...)
	for _, w := range candidateWords {
		if descWords.has(w) {
			return titleDescription
		}
	}

	n.weakness("title %q is unrelated to %q", c.title, p.title)
	return 0
}

var (
	mandatoryYearsRe = regexp.MustCompile(`(?i)(?:at least|minimum(?: of)?|must have|must)\s+(\d+(?:\.\d+)?)\+?\s*(?:years?|yrs?)`)
	rangeYearsRe     = regexp.MustCompile(`(?i)(at least\s+|minimum(?: of)?\s+|must have\s+|must\s+)?(\d+(?:\.\d+)?)\s*(?:-|\x{2013}|to)\s*(\d+(?:\.\d+)?)\s*\+?\s*(?:years?|yrs?)`)
	plainYearsRe     = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*\+?\s*(?:years?|yrs?)`)
)

// experienceRequirement is the minimum experience a position asks for.
// preferred is zero when the position names no upper target.
type experienceRequirement struct {
	years     float64
	preferred float64
	known     bool
	mandatory bool
}

func requiredExperience(p positionSignals) experienceRequirement {
	if p.profile != nil && p.profile.MinExperienceYears != nil {
		req := experienceRequirement{
			years:     *p.profile.MinExperienceYears,
			known:     true,
			mandatory: p.profile.ExperienceMandatory,
		}
		if pref := p.profile.PreferredExperienceYears; pref != nil && *pref > req.years {
			req.preferred = *pref
		}
		return req
	}
	// A range such as "3-5 years" asks for the lower bound.
	if m := rangeYearsRe.FindStringSubmatch(p.requirements); m != nil {
		low, errLow := strconv.ParseFloat(m[2], 64)
		high, errHigh := strconv.ParseFloat(m[3], 64)
		if errLow == nil && errHigh == nil {
			if high < low {
				low, high = high, low
			}
			return experienceRequirement{years: low, preferred: high, known: true, mandatory: m[1] != ""}
		}
	}
	if m := mandatoryYearsRe.FindStringSubmatch(p.requirements); m != nil {
		if years, err := strconv.ParseFloat(m[1], 64); err == nil {
			return experienceRequirement{years: years, known: true, mandatory: true}
		}
	}
	if m := plainYearsRe.FindStringSubmatch(p.requirements); m != nil {
		if years, err := strconv.ParseFloat(m[1], 64); err == nil {
			return experienceRequirement{years: years, known: true}
		}
	}
	return experienceRequirement{}
}

func experienceFraction(years *float64, req experienceRequirement, n *notes) float64 {
	if !req.known || req.years <= 0 {
		return 1
	}
	if years == nil {
		n.weakness("experience unknown, position asks for %s years", formatYears(req.years))
		return 0
	}
	if req.preferred > 0 && *years >= req.preferred {
		n.strength("experience: %s years meets the preferred %s", formatYears(*years), formatYears(req.preferred))
		return 1
	}
	if *years >= req.years {
		n.strength("experience: %s years meets the %s year minimum", formatYears(*years), formatYears(req.years))
		return 1
	}

	n.weakness("experience: %s of %s required years", formatYears(math.Max(*years, 0)), formatYears(req.years))
	return math.Max(*years, 0) / req.years
}

func formatYears(y float64) string {
	return strconv.FormatFloat(y, 'f', -1, 64)
}

const (
	earthRadiusKm = 6371.0

	sameCityCredit   = 0.6
	sameRegionCredit = 0.4
	remoteCredit     = 0.5
)

func haversineKm(a, b crm.GeoPoint) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

func isRemote(p positionSignals) bool {
	if p.profile != nil && p.profile.Remote {
		return true
	}
	return containsPhrase(p.location, "remote") || containsPhrase(p.title, "remote")
}

func (e *Engine) geographyFraction(c *crm.Candidate, cs candidateSignals, pos *crm.Position, ps positionSignals, n *notes) float64 {
	remote := isRemote(ps)

	if c.Coordinates != nil && pos.Coordinates != nil {
		dist := haversineKm(*c.Coordinates, *pos.Coordinates)
		fraction := e.distanceFraction(dist)
		switch {
		case fraction >= 0.5:
			n.strength("geography: %.1f km from position", dist)
		case remote:
			n.strength("remote position")
			return math.Max(fraction, remoteCredit)
		default:
			n.weakness("geography: %.1f km from position", dist)
		}
		return fraction
	}

	fraction := 0.0
	note := ""
	if sameCity(cs.city, ps.location) {
		fraction, note = sameCityCredit, "geography: same city "+cs.city
	} else if region, ok := e.sharedRegion(cs.rawCity, ps); ok {
		fraction, note = sameRegionCredit, "geography: same region "+region
	}
	if remote && remoteCredit > fraction {
		fraction, note = remoteCredit, "remote position"
	}

	if note != "" {
		n.strength("%s", note)
	} else {
		n.weakness("geography: no location match")
	}
	return fraction
}

// sameCity compares on words so "Tel Aviv" matches "Tel Aviv, Israel".
func sameCity(city, location string) bool {
	c := strings.Join(words(city), " ")
	l := strings.Join(words(location), " ")
	if c == "" || l == "" {
		return false
	}
	return c == l || containsPhrase(l, c)
}

func (e *Engine) distanceFraction(km float64) float64 {
	switch {
	case km <= e.cfg.CommuteRadiusKm:
		return 1
	case km >= e.cfg.MaxRadiusKm:
		return 0
	default:
		return (e.cfg.MaxRadiusKm - km) / (e.cfg.MaxRadiusKm - e.cfg.CommuteRadiusKm)
	}
}

func (e *Engine) sharedRegion(city string, p positionSignals) (string, bool) {
	if e.regions == nil || strings.TrimSpace(city) == "" {
		return "", false
	}
	candidateRegion, ok := e.regions.Region(city)
	if !ok {
		return "", false
	}

	positionRegion := ""
	if p.profile != nil {
		positionRegion = strings.TrimSpace(p.profile.Region)
		if r, ok := e.regions.Region(positionRegion); ok {
			positionRegion = r
		}
	}
	if positionRegion == "" {
		r, ok := e.regions.Region(p.rawLocation)
		if !ok {
			return "", false
		}
		positionRegion = r
	}

	if normalize(positionRegion) != normalize(candidateRegion) {
		return "", false
	}
	return candidateRegion, true
}

var (
	drivingRequiredRe  = regexp.MustCompile(`(?i)(driving|driver'?s?)\s+licen[cs]e`)
	drivingMandatoryRe = regexp.MustCompile(`(?i)\b(must|required|requires|mandatory|obligatory|valid|need|needs|needed|essential)\b`)
	drivingOptionalRe  = regexp.MustCompile(`(?i)\b(no|not|without|advantage|advantageous|preferred|preferably|nice to have|a plus|bonus|optional|desirable)\b`)
	drivingEvidenceRe  = regexp.MustCompile(`(?:driving|driver'?s?|drivers)\s+licen[cs]e|licen[cs]ed driver|own car`)
	clauseSplitRe      = regexp.MustCompile(`[.;\n•]+`)
)

// drivingLicenseRequired reports whether some clause of the requirements
// demands a driving license. Negated or optional mentions do not count.
func drivingLicenseRequired(requirements string) bool {
	for _, clause := range clauseSplitRe.Split(requirements, -1) {
		if !drivingRequiredRe.MatchString(clause) {
			continue
		}
		if drivingOptionalRe.MatchString(clause) {
			continue
		}
		if drivingMandatoryRe.MatchString(clause) {
			return true
		}
	}
	return false
}

// disqualifiers returns the requirement flags the candidate demonstrably fails.
func disqualifiers(c *crm.Candidate, cs candidateSignals, p positionSignals, req experienceRequirement, n *notes) bool {
	disqualified := false

	if req.known && req.mandatory && c.YearsOfExperience != nil && *c.YearsOfExperience < req.years {
		n.weakness("disqualified: requires at least %s years of experience", formatYears(req.years))
		disqualified = true
	}

	licenseRequired := drivingLicenseRequired(p.requirements)
	if p.profile != nil && p.profile.DrivingLicense {
		licenseRequired = true
	}
	if licenseRequired && !drivingEvidenceRe.MatchString(cs.corpus) {
		n.weakness("disqualified: driving license required")
		disqualified = true
	}

	if p.profile != nil {
		var missing []string
		for _, skill := range p.profile.MustHave {
			term := normalize(skill)
			if term == "" {
				continue
			}
			if !cs.terms.has(term) && !containsPhrase(cs.corpus, term) {
				missing = append(missing, term)
			}
		}
		if len(missing) > 0 {
			n.weakness("disqualified: missing mandatory %s", strings.Join(missing, ", "))
			disqualified = true
		}
	}

	return disqualified
}
