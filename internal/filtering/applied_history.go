package filtering

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/hr-matcher/internal/crm"
)

const includeAppliedMsg = "include-applied is set"

type appliedHistoryFilter struct {
	toggle
	ignore bool
}

// NewAppliedHistory creates a filter that removes positions the candidate already applied to.
func NewAppliedHistory() Filter {
	return &appliedHistoryFilter{}
}

func (f *appliedHistoryFilter) Name() string { return "applied_history" }

func (f *appliedHistoryFilter) Validate(cfg *Config) error {
	f.ignore = cfg != nil && cfg.IncludeApplied
	return nil
}

func (f *appliedHistoryFilter) Apply(ctx context.Context, deps Deps, positions []*crm.Position) ([]*crm.Position, Step, error) {
	initial := len(positions)
	if f.ignore {
		deps.Logger.Debug("keeping already applied positions", zap.String("reason", includeAppliedMsg))
		return positions, Step{Initial: initial, Left: initial}, nil
	}

	if deps.Candidate == nil || deps.Candidate.ID == "" {
		return positions, Step{Initial: initial, Left: initial}, nil
	}
	if deps.Store == nil {
		return positions, Step{}, fmt.Errorf("store is required")
	}

	applied, err := deps.Store.AppliedPositionIDs(ctx, deps.Candidate.ID)
	if err != nil {
		return positions, Step{}, fmt.Errorf("get applications of candidate %s: %w", deps.Candidate.ID, err)
	}

	ids := make(map[string]struct{}, len(applied))
	for _, id := range applied {
		ids[id] = struct{}{}
	}

	kept, removed := exclude(positions, func(p *crm.Position) bool {
		_, ok := ids[p.ID]
		return ok
	})
	if len(removed) > 0 {
		deps.Logger.Info("excluding positions the candidate already applied to",
			zap.String("candidate_id", deps.Candidate.ID),
			zap.Strings("excluded_positions", removed),
			zap.Int("positions_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: initial - len(kept), Left: len(kept)}, nil
}

func (f *appliedHistoryFilter) Status() Status {
	details := map[string]string{
		"exclude_applied": strconv.FormatBool(!f.ignore),
	}
	reason := f.reason
	if f.ignore && reason == "" {
		reason = includeAppliedMsg
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: reason, Details: details}
}
