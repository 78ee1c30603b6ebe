// Package mcpserver exposes the matching operations as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/spigell/hr-matcher/internal/crm"
	"github.com/spigell/hr-matcher/internal/matching"
	"github.com/spigell/hr-matcher/internal/matchmaker"
)

const defaultLimit = 10

// Matcher is the subset of the matchmaker service the tools call.
type Matcher interface {
	RankPositionsForCandidate(ctx context.Context, candidateID string, q matchmaker.Query) (matching.Results, error)
	RankCandidatesForPosition(ctx context.Context, positionID string, q matchmaker.Query) (matching.Results, error)
	ScorePair(ctx context.Context, candidateID, positionID string) (*crm.MatchResult, error)
}

// New builds an MCP server with every matching tool registered.
func New(name, version string, matcher Matcher, logger *zap.Logger) *server.MCPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := server.NewMCPServer(name, version)
	h := &handlers{matcher: matcher, logger: logger}

	s.AddTool(rankPositionsTool(), h.rankPositions)
	s.AddTool(rankCandidatesTool(), h.rankCandidates)
	s.AddTool(scorePairTool(), h.scorePair)

	return s
}

// Serve blocks serving the tools on stdin and stdout.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func rankPositionsTool() mcp.Tool {
	tool := mcp.NewTool("rank_positions_for_candidate",
		mcp.WithDescription("Rank open positions for a candidate by match score, best first"),
	)
	tool.InputSchema = mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"candidate_id": map[string]interface{}{"type": "string", "description": "Candidate id"},
			"limit":        map[string]interface{}{"type": "integer", "description": "Max matches to return (default: 10)"},
			"min_score":    map[string]interface{}{"type": "number", "description": "Drop matches scoring below this value (optional)"},
		},
		Required: []string{"candidate_id"},
	}
	return tool
}

func rankCandidatesTool() mcp.Tool {
	tool := mcp.NewTool("rank_candidates_for_position",
		mcp.WithDescription("Rank candidates for a position by match score, best first"),
	)
	tool.InputSchema = mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"position_id": map[string]interface{}{"type": "string", "description": "Position id"},
			"limit":       map[string]interface{}{"type": "integer", "description": "Max matches to return (default: 10)"},
			"min_score":   map[string]interface{}{"type": "number", "description": "Drop matches scoring below this value (optional)"},
		},
		Required: []string{"position_id"},
	}
	return tool
}

func scorePairTool() mcp.Tool {
	tool := mcp.NewTool("score_candidate_position",
		mcp.WithDescription("Score one candidate against one position with strengths, weaknesses and a recommendation"),
	)
	tool.InputSchema = mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"candidate_id": map[string]interface{}{"type": "string", "description": "Candidate id"},
			"position_id":  map[string]interface{}{"type": "string", "description": "Position id"},
		},
		Required: []string{"candidate_id", "position_id"},
	}
	return tool
}

type handlers struct {
	matcher Matcher
	logger  *zap.Logger
}

func (h *handlers) rankPositions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}
	candidateID := stringArg(args, "candidate_id")
	if candidateID == "" {
		return mcp.NewToolResultError("candidate_id is required"), nil
	}

	results, err := h.matcher.RankPositionsForCandidate(ctx, candidateID, queryArgs(args))
	if err != nil {
		return h.failure("rank positions", err), nil
	}
	return jsonResult(results)
}

func (h *handlers) rankCandidates(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}
	positionID := stringArg(args, "position_id")
	if positionID == "" {
		return mcp.NewToolResultError("position_id is required"), nil
	}

	results, err := h.matcher.RankCandidatesForPosition(ctx, positionID, queryArgs(args))
	if err != nil {
		return h.failure("rank candidates", err), nil
	}
	return jsonResult(results)
}

func (h *handlers) scorePair(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("invalid arguments format"), nil
	}
	candidateID, positionID := stringArg(args, "candidate_id"), stringArg(args, "position_id")
	if candidateID == "" || positionID == "" {
		return mcp.NewToolResultError("candidate_id and position_id are required"), nil
	}

	result, err := h.matcher.ScorePair(ctx, candidateID, positionID)
	if err != nil {
		return h.failure("score pair", err), nil
	}
	return jsonResult(result)
}

// failure turns a service error into a tool error. Unexpected errors are logged and masked.
func (h *handlers) failure(op string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, crm.ErrNotFound),
		errors.Is(err, matching.ErrInvalidInput):
		return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: %v", op, err))
	default:
		h.logger.Error("tool call failed", zap.String("operation", op), zap.Error(err))
		return mcp.NewToolResultError(fmt.Sprintf("Failed to %s: internal error", op))
	}
}

func stringArg(args map[string]interface{}, key string) string {
	v, _ := args[key].(string)
	return strings.TrimSpace(v)
}

func queryArgs(args map[string]interface{}) matchmaker.Query {
	q := matchmaker.Query{Limit: defaultLimit}
	if v, ok := args["limit"].(float64); ok && v > 0 {
		q.Limit = int(v)
	}
	if v, ok := args["min_score"].(float64); ok && v > 0 {
		q.MinScore = v
	}
	return q
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
