package matching

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// AIProfile is the curated metadata stored alongside a position.
type AIProfile struct {
	RequiredSkills           []string `mapstructure:"required_skills"`
	Skills                   []string `mapstructure:"skills"`
	Requirements             []string `mapstructure:"requirements"`
	IdealCandidate           string   `mapstructure:"ideal_candidate"`
	Region                   string   `mapstructure:"region"`
	MinExperienceYears       *float64 `mapstructure:"min_experience_years"`
	PreferredExperienceYears *float64 `mapstructure:"preferred_experience_years"`
	ExperienceMandatory      bool     `mapstructure:"experience_mandatory"`
	MustHave                 []string `mapstructure:"must_have"`
	DrivingLicense           bool     `mapstructure:"driving_license"`
	Remote                   bool     `mapstructure:"remote"`
}

// skills merges both spellings of the required skills list.
func (p *AIProfile) skills() []string {
	if p == nil {
		return nil
	}
	return append(append([]string{}, p.RequiredSkills...), p.Skills...)
}

func parseAIProfile(raw string) (*AIProfile, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil, nil
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("%w: ai profile: %v", ErrMalformedRecord, err)
	}

	var profile AIProfile
	if err := mapstructure.WeakDecode(data, &profile); err != nil {
		return nil, fmt.Errorf("%w: ai profile: %v", ErrMalformedRecord, err)
	}

	return &profile, nil
}

func parseKeywords(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil, nil
	}

	var items []any
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("%w: keywords: %v", ErrMalformedRecord, err)
	}

	keywords := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case nil:
			continue
		case string:
			keywords = append(keywords, v)
		case float64, bool:
			keywords = append(keywords, fmt.Sprint(v))
		default:
			return nil, fmt.Errorf("%w: keywords: unexpected element %T", ErrMalformedRecord, item)
		}
	}
	return keywords, nil
}
