// Package matchmaker wires the store, the position filters and the matching
// engine into the operations exposed by the CLI, HTTP and MCP surfaces.
package matchmaker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/hr-matcher/internal/crm"
	"github.com/spigell/hr-matcher/internal/filtering"
	"github.com/spigell/hr-matcher/internal/logger"
	"github.com/spigell/hr-matcher/internal/matching"
	"github.com/spigell/hr-matcher/internal/metrics"
)

// Query narrows ranked output.
type Query struct {
	Limit    int
	MinScore float64
}

func (q Query) apply(results matching.Results) matching.Results {
	if q.MinScore > 0 {
		results = results.AboveScore(q.MinScore)
	}
	return results.Top(q.Limit)
}

type Service struct {
	store     crm.Store
	engine    *matching.Engine
	filters   *filtering.Config
	aiEnabled bool
	logger    *zap.Logger
	now       func() time.Time
}

func New(store crm.Store, engine *matching.Engine, filters *filtering.Config, aiEnabled bool, log *zap.Logger) *Service {
	if filters == nil {
		filters = &filtering.Config{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		store:     store,
		engine:    engine,
		filters:   filters,
		aiEnabled: aiEnabled,
		logger:    log,
		now:       time.Now,
	}
}

// RankPositionsForCandidate ranks the active positions that survive the filter pipeline.
func (s *Service) RankPositionsForCandidate(ctx context.Context, candidateID string, q Query) (matching.Results, error) {
	started := s.now()
	log := logger.WithPairFields(s.logger, candidateID, "")

	candidate, err := s.store.GetCandidate(ctx, candidateID)
	if err != nil {
		return nil, err
	}

	positions, err := s.store.ListActivePositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active positions: %w", err)
	}

	initial := len(positions)
	deps := filtering.Deps{Store: s.store, Logger: log, Candidate: candidate}
	positions, err = filtering.Run(ctx, s.filters, deps, filtering.Default(), positions)
	if err != nil {
		return nil, fmt.Errorf("filter positions: %w", err)
	}
	metrics.RecordFiltered(initial - len(positions))

	results := s.engine.RankPositions(ctx, candidate, positions)
	metrics.RecordResults(results, s.aiEnabled)
	metrics.RecordRank(metrics.DirectionPositions, s.now().Sub(started).Seconds())

	log.Info("ranked positions",
		zap.Int("positions", len(positions)),
		zap.Int("proceeding", results.Proceeding().Len()),
	)

	return q.apply(results), nil
}

// RankCandidatesForPosition ranks every stored candidate against one position.
func (s *Service) RankCandidatesForPosition(ctx context.Context, positionID string, q Query) (matching.Results, error) {
	started := s.now()
	log := logger.WithPairFields(s.logger, "", positionID)

	position, err := s.store.GetPosition(ctx, positionID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.store.ListCandidates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	results := s.engine.RankCandidates(ctx, position, candidates)
	metrics.RecordResults(results, s.aiEnabled)
	metrics.RecordRank(metrics.DirectionCandidates, s.now().Sub(started).Seconds())

	log.Info("ranked candidates",
		zap.Int("candidates", len(candidates)),
		zap.Int("proceeding", results.Proceeding().Len()),
	)

	return q.apply(results), nil
}

// ScorePair scores one candidate against one position. Store and engine errors are returned as is.
func (s *Service) ScorePair(ctx context.Context, candidateID, positionID string) (*crm.MatchResult, error) {
	candidate, err := s.store.GetCandidate(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	position, err := s.store.GetPosition(ctx, positionID)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.Score(ctx, candidate, position)
	if err != nil {
		return nil, err
	}
	metrics.RecordResults([]*crm.MatchResult{result}, s.aiEnabled)
	return result, nil
}

// Filters reports the configured pre-filter pipeline.
func (s *Service) Filters() []filtering.Status {
	steps := filtering.Default()
	for _, step := range steps {
		_ = step.Validate(s.filters)
	}
	return filtering.Describe(steps)
}
