package filtering

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/spigell/hr-matcher/internal/crm"
)

type activeFilter struct {
	toggle
	includeInactive bool
}

// NewActive creates a filter that removes closed positions.
func NewActive() Filter {
	return &activeFilter{}
}

func (f *activeFilter) Name() string { return "active" }

func (f *activeFilter) Validate(cfg *Config) error {
	f.includeInactive = cfg != nil && cfg.IncludeInactive
	return nil
}

func (f *activeFilter) Apply(_ context.Context, deps Deps, positions []*crm.Position) ([]*crm.Position, Step, error) {
	initial := len(positions)
	if f.includeInactive {
		return positions, Step{Initial: initial, Left: initial}, nil
	}

	kept, removed := exclude(positions, func(p *crm.Position) bool { return !p.Active })
	if len(removed) > 0 {
		deps.Logger.Info("excluding inactive positions",
			zap.Strings("excluded_positions", removed),
			zap.Int("positions_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: initial - len(kept), Left: len(kept)}, nil
}

func (f *activeFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: f.IsEnabled(),
		Reason:  f.reason,
		Details: map[string]string{"include_inactive": strconv.FormatBool(f.includeInactive)},
	}
}
