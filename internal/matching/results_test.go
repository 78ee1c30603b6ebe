package matching

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/hr-matcher/internal/crm"
)

func sampleResults() Results {
	return Results{
		{PositionID: "1", PositionTitle: "Sales Rep", EmployerName: "Acme", CandidateID: "c", CandidateName: "Dana", Score: 82.5, ShouldProceed: true, Strengths: []string{"tag overlap: sales"}, Recommendation: RecommendationStrong},
		{PositionID: "2", PositionTitle: "Cashier", EmployerName: "Acme", CandidateID: "c", CandidateName: "Dana", Score: 61, ShouldProceed: true},
		{PositionID: "3", PositionTitle: "Driver", CandidateID: "c", Score: 12, Weaknesses: []string{"a", "b"}},
	}
}

func TestResultsTopAndAboveScore(t *testing.T) {
	r := sampleResults()

	assert.Len(t, r.Top(2), 2)
	assert.Len(t, r.Top(0), 3)
	assert.Len(t, r.Top(10), 3)

	above := r.AboveScore(60)
	require.Len(t, above, 2)
	assert.Equal(t, "1", above[0].PositionID)
	assert.Equal(t, "2", above[1].PositionID)

	assert.Len(t, r.Proceeding(), 2)
	assert.Equal(t, 3, r.Len())
}

func TestResultsReportByEmployer(t *testing.T) {
	report := sampleResults().ReportByEmployer()

	entries, ok := report["Acme"]
	require.True(t, ok, "expected employer key in report")
	require.Len(t, entries, 2)

	entry := entries[0]
	assert.Equal(t, "Sales Rep (1)", entry["position"])
	assert.Equal(t, "Dana (c)", entry["candidate"])
	assert.Equal(t, "82.5", entry["score"])
	assert.Equal(t, "true", entry["should_proceed"])
	assert.Equal(t, "tag overlap: sales", entry["strengths"])

	unknown := report["unknown employer"]
	require.Len(t, unknown, 1)
	assert.Equal(t, "a; b", unknown[0]["weaknesses"])
}

func TestResultsDumpToTmpFile(t *testing.T) {
	path, err := sampleResults().DumpToTmpFile()
	require.NoError(t, err)
	t.Cleanup(func() { os.Remove(path) })

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded []crm.MatchResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 3)
	assert.Equal(t, 82.5, decoded[0].Score)
}
