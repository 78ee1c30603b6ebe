package matchmaker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/hr-matcher/internal/crm"
	"github.com/spigell/hr-matcher/internal/filtering"
	"github.com/spigell/hr-matcher/internal/matching"
	"github.com/spigell/hr-matcher/internal/store/sqlite"
)

func seededService(t *testing.T, filters *filtering.Config) *Service {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	telAviv := &crm.GeoPoint{Lat: 32.0853, Lng: 34.7818}
	years := 3.0
	require.NoError(t, store.Import(ctx, &crm.Dataset{
		Candidates: []crm.Candidate{
			{ID: "c1", Name: "Dana", Title: "Sales Representative", Tags: []crm.Tag{{Name: "sales"}}, YearsOfExperience: &years, City: "Tel Aviv", Coordinates: telAviv},
			{ID: "c2", Name: "Avi", Title: "Cook", Skills: "cooking"},
		},
		Positions: []crm.Position{
			{ID: "p1", Title: "Sales Representative", Active: true, Tags: []crm.Tag{{Name: "sales"}}, Location: "Tel Aviv", Coordinates: telAviv, Employer: &crm.Employer{ID: "e1", Name: "Acme"}},
			{ID: "p2", Title: "Line Cook", Active: true, KeywordsJSON: `["cooking"]`, Location: "Haifa"},
			{ID: "p3", Title: "Sales Lead", Active: true, Tags: []crm.Tag{{Name: "sales"}}},
			{ID: "p4", Title: "Closed", Active: false, Tags: []crm.Tag{{Name: "sales"}}},
			{ID: "p5", Title: "Broken", Active: true, KeywordsJSON: `[oops`},
		},
		Applications: []crm.Application{{CandidateID: "c1", PositionID: "p3"}},
	}))

	engine, err := matching.New(matching.DefaultConfig())
	require.NoError(t, err)

	return New(store, engine, filters, false, zap.NewNop())
}

func resultIDs(results matching.Results, candidate bool) []string {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		if candidate {
			ids = append(ids, r.CandidateID)
		} else {
			ids = append(ids, r.PositionID)
		}
	}
	return ids
}

func TestRankPositionsForCandidate(t *testing.T) {
	svc := seededService(t, nil)

	results, err := svc.RankPositionsForCandidate(context.Background(), "c1", Query{})
	require.NoError(t, err)

	assert.Equal(t, []string{"p1", "p2", "p5"}, resultIDs(results, false), "inactive and applied positions are filtered")
	assert.Equal(t, matching.RecommendationManualReview, results[2].Recommendation)
	assert.True(t, results[0].ShouldProceed)
}

func TestRankPositionsQuery(t *testing.T) {
	svc := seededService(t, &filtering.Config{IncludeApplied: true})

	results, err := svc.RankPositionsForCandidate(context.Background(), "c1", Query{Limit: 1})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "p1", results[0].PositionID)

	results, err = svc.RankPositionsForCandidate(context.Background(), "c1", Query{MinScore: 50})
	require.NoError(t, err)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, 50.0)
	}
	assert.Contains(t, resultIDs(results, false), "p3")
}

func TestRankCandidatesForPosition(t *testing.T) {
	svc := seededService(t, nil)

	results, err := svc.RankCandidatesForPosition(context.Background(), "p2", Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"c2", "c1"}, resultIDs(results, true))
}

func TestScorePair(t *testing.T) {
	svc := seededService(t, nil)
	ctx := context.Background()

	res, err := svc.ScorePair(ctx, "c1", "p1")
	require.NoError(t, err)
	assert.Equal(t, 91.0, res.Score)
	assert.Equal(t, matching.RecommendationStrong, res.Recommendation)
	assert.Equal(t, "Acme", res.EmployerName)

	_, err = svc.ScorePair(ctx, "missing", "p1")
	assert.True(t, errors.Is(err, crm.ErrNotFound))

	res, err = svc.ScorePair(ctx, "c1", "p5")
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Score)
	assert.Equal(t, matching.RecommendationManualReview, res.Recommendation)
	assert.Contains(t, res.Weaknesses[0], "could not analyze")
}

func TestUnknownRecords(t *testing.T) {
	svc := seededService(t, nil)

	_, err := svc.RankPositionsForCandidate(context.Background(), "nope", Query{})
	assert.True(t, errors.Is(err, crm.ErrNotFound))

	_, err = svc.RankCandidatesForPosition(context.Background(), "nope", Query{})
	assert.True(t, errors.Is(err, crm.ErrNotFound))
}

func TestFilters(t *testing.T) {
	svc := seededService(t, &filtering.Config{Employers: []string{"e9"}})

	statuses := svc.Filters()
	require.Len(t, statuses, 4)
	assert.Equal(t, "employers", statuses[1].Name)
	assert.Equal(t, "e9", statuses[1].Details["employers"])
}
