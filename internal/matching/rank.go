package matching

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/hr-matcher/internal/crm"
	"github.com/spigell/hr-matcher/internal/logger"
)

var errMissingRecord = errors.New("missing record")

// RankPositions scores every position for the candidate and orders the results.
// The caller decides which positions are eligible; inactive ones are not dropped here.
// A pair that fails to score never aborts the batch.
func (e *Engine) RankPositions(ctx context.Context, c *crm.Candidate, positions []*crm.Position) Results {
	results := make([]*crm.MatchResult, len(positions))

	e.fanOut(ctx, len(positions), func(ctx context.Context, i int) {
		results[i] = e.scoreSafely(ctx, c, positions[i])
	})

	sortResults(results, true)
	return results
}

// RankCandidates scores every candidate for the position. Ties keep input order.
func (e *Engine) RankCandidates(ctx context.Context, p *crm.Position, candidates []*crm.Candidate) Results {
	results := make([]*crm.MatchResult, len(candidates))

	e.fanOut(ctx, len(candidates), func(ctx context.Context, i int) {
		results[i] = e.scoreSafely(ctx, candidates[i], p)
	})

	sortResults(results, false)
	return results
}

func (e *Engine) fanOut(ctx context.Context, n int, fn func(ctx context.Context, i int)) {
	var g errgroup.Group
	g.SetLimit(e.cfg.Concurrency)

	for i := 0; i < n; i++ {
		g.Go(func() error {
			fn(ctx, i)
			return nil
		})
	}

	// Workers never return errors.
	_ = g.Wait()
}

func (e *Engine) scoreSafely(ctx context.Context, c *crm.Candidate, p *crm.Position) (result *crm.MatchResult) {
	var candidateID, positionID string
	if c != nil {
		candidateID = c.ID
	}
	if p != nil {
		positionID = p.ID
	}
	log := logger.WithPairFields(e.logger, candidateID, positionID)

	defer func() {
		if r := recover(); r != nil {
			log.Error("scoring panicked", zap.Any("panic", r))
			result = failedResult(c, p, fmt.Errorf("panic: %v", r))
		}
	}()

	if c == nil || p == nil {
		return failedResult(c, p, errMissingRecord)
	}
	if err := ctx.Err(); err != nil {
		return failedResult(c, p, err)
	}

	res, err := e.Score(ctx, c, p)
	if err != nil {
		log.Warn("could not score pair", zap.Error(err))
		return failedResult(c, p, err)
	}
	return res
}

func failed(r *crm.MatchResult) bool {
	return r.Recommendation == RecommendationManualReview
}

// sortResults orders by score descending with unscored pairs last among equals.
// When byRecency is set, ties go to positions with a creation time before those
// without one, and newer before older. Remaining ties keep input order.
func sortResults(results []*crm.MatchResult, byRecency bool) {
	index := make(map[*crm.MatchResult]int, len(results))
	for i, r := range results {
		index[r] = i
	}

	slices.SortStableFunc(results, func(a, b *crm.MatchResult) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if af, bf := failed(a), failed(b); af != bf {
			if af {
				return 1
			}
			return -1
		}
		if byRecency {
			at, bt := a.PositionCreatedAt(), b.PositionCreatedAt()
			switch {
			case at.IsZero() && bt.IsZero():
			case at.IsZero():
				return 1
			case bt.IsZero():
				return -1
			default:
				if c := bt.Compare(at); c != 0 {
					return c
				}
			}
		}
		return cmp.Compare(index[a], index[b])
	})
}
