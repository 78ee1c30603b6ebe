package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/hr-matcher/internal/crm"
	"github.com/spigell/hr-matcher/internal/matching"
	"github.com/spigell/hr-matcher/internal/matchmaker"
)

type fakeMatcher struct {
	results   matching.Results
	pair      *crm.MatchResult
	err       error
	lastQuery matchmaker.Query
	lastID    string
}

func (f *fakeMatcher) RankPositionsForCandidate(_ context.Context, id string, q matchmaker.Query) (matching.Results, error) {
	f.lastID, f.lastQuery = id, q
	return f.results, f.err
}

func (f *fakeMatcher) RankCandidatesForPosition(_ context.Context, id string, q matchmaker.Query) (matching.Results, error) {
	f.lastID, f.lastQuery = id, q
	return f.results, f.err
}

func (f *fakeMatcher) ScorePair(_ context.Context, candidateID, positionID string) (*crm.MatchResult, error) {
	f.lastID = candidateID + "/" + positionID
	return f.pair, f.err
}

func call(args any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text
}

func TestRankPositions(t *testing.T) {
	m := &fakeMatcher{results: matching.Results{{CandidateID: "c1", PositionID: "p1", Score: 76}}}
	h := &handlers{matcher: m, logger: zap.NewNop()}

	res, err := h.rankPositions(context.Background(), call(map[string]interface{}{
		"candidate_id": "c1",
		"limit":        float64(3),
		"min_score":    float64(50),
	}))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var got []crm.MatchResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].PositionID)
	assert.Equal(t, matchmaker.Query{Limit: 3, MinScore: 50}, m.lastQuery)
}

func TestRankCandidatesDefaults(t *testing.T) {
	m := &fakeMatcher{}
	h := &handlers{matcher: m, logger: zap.NewNop()}

	res, err := h.rankCandidates(context.Background(), call(map[string]interface{}{"position_id": " p1 "}))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "p1", m.lastID)
	assert.Equal(t, defaultLimit, m.lastQuery.Limit)
}

func TestScorePair(t *testing.T) {
	m := &fakeMatcher{pair: &crm.MatchResult{CandidateID: "c1", PositionID: "p1", Score: 83.2, AIUsed: true}}
	h := &handlers{matcher: m, logger: zap.NewNop()}

	res, err := h.scorePair(context.Background(), call(map[string]interface{}{"candidate_id": "c1", "position_id": "p1"}))
	require.NoError(t, err)

	var got crm.MatchResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &got))
	assert.Equal(t, 83.2, got.Score)
	assert.True(t, got.AIUsed)
}

func TestArgumentErrors(t *testing.T) {
	h := &handlers{matcher: &fakeMatcher{}, logger: zap.NewNop()}
	ctx := context.Background()

	tests := []struct {
		name string
		fn   server.ToolHandlerFunc
		args any
	}{
		{name: "wrong format", fn: h.rankPositions, args: "c1"},
		{name: "missing candidate", fn: h.rankPositions, args: map[string]interface{}{}},
		{name: "missing position", fn: h.rankCandidates, args: map[string]interface{}{"position_id": ""}},
		{name: "pair needs both", fn: h.scorePair, args: map[string]interface{}{"candidate_id": "c1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.fn(ctx, call(tt.args))
			require.NoError(t, err)
			assert.True(t, res.IsError)
		})
	}
}

func TestServiceErrors(t *testing.T) {
	ctx := context.Background()
	args := map[string]interface{}{"candidate_id": "c1", "position_id": "p1"}

	h := &handlers{matcher: &fakeMatcher{err: fmt.Errorf("candidate c1: %w", crm.ErrNotFound)}, logger: zap.NewNop()}
	res, err := h.scorePair(ctx, call(args))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(t, res), "record not found")

	h = &handlers{matcher: &fakeMatcher{err: errors.New("connection reset")}, logger: zap.NewNop()}
	res, err = h.scorePair(ctx, call(args))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.NotContains(t, resultText(t, res), "connection reset")
}

func TestNewRegistersTools(t *testing.T) {
	s := New("hr-matcher", "test", &fakeMatcher{}, nil)
	require.NotNil(t, s)

	for _, tool := range []mcp.Tool{rankPositionsTool(), rankCandidatesTool(), scorePairTool()} {
		assert.NotEmpty(t, tool.Description)
		assert.NotEmpty(t, tool.InputSchema.Required)
	}
}
