package matching

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spigell/hr-matcher/internal/crm"
)

// Results is an ordered list of match results, best first.
type Results []*crm.MatchResult

func (r Results) Len() int {
	return len(r)
}

// Top returns at most n leading results. A non-positive n returns everything.
func (r Results) Top(n int) Results {
	if n <= 0 || n >= len(r) {
		return r
	}
	return r[:n]
}

// AboveScore keeps results scoring at least minScore, preserving order.
func (r Results) AboveScore(minScore float64) Results {
	out := make(Results, 0, len(r))
	for _, res := range r {
		if res.Score >= minScore {
			out = append(out, res)
		}
	}
	return out
}

// Proceeding keeps results flagged as worth pursuing.
func (r Results) Proceeding() Results {
	out := make(Results, 0, len(r))
	for _, res := range r {
		if res.ShouldProceed {
			out = append(out, res)
		}
	}
	return out
}

func (r Results) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "matches_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	return file.Name(), nil
}

// ReportByEmployer groups results under "Employer (id)" style keys.
func (r Results) ReportByEmployer() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, res := range r {
		key := res.EmployerName
		if key == "" {
			key = "unknown employer"
		}
		report[key] = append(report[key], map[string]string{
			"position":       fmt.Sprintf("%s (%s)", res.PositionTitle, res.PositionID),
			"candidate":      fmt.Sprintf("%s (%s)", res.CandidateName, res.CandidateID),
			"location":       res.Location,
			"score":          fmt.Sprintf("%.1f", res.Score),
			"recommendation": res.Recommendation,
			"should_proceed": fmt.Sprintf("%t", res.ShouldProceed),
			"strengths":      strings.Join(res.Strengths, "; "),
			"weaknesses":     strings.Join(res.Weaknesses, "; "),
		})
	}
	return report
}
