// Package filtering narrows the set of positions handed to the matching engine.
// The engine trusts its input, so eligibility rules live here on the caller side.
package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/hr-matcher/internal/crm"
)

// Filter represents a single filtering step applied to positions.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate(cfg *Config) error
	Apply(ctx context.Context, deps Deps, positions []*crm.Position) ([]*crm.Position, Step, error)
}

// Deps aggregates dependencies shared across all filtering steps.
type Deps struct {
	Store     crm.Store
	Logger    *zap.Logger
	Candidate *crm.Candidate
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Config contains configuration settings consumed by the filters.
type Config struct {
	// Employers lists employer ids or names whose positions are never proposed.
	Employers       []string `mapstructure:"employers"`
	ExcludeFile     string   `mapstructure:"exclude-file"`
	IncludeInactive bool     `mapstructure:"include-inactive"`
	IncludeApplied  bool     `mapstructure:"include-applied"`
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string            `json:"name"`
	Enabled bool              `json:"enabled"`
	Reason  string            `json:"reason,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type statusProvider interface {
	Status() Status
}

// Default returns the standard pipeline in execution order.
func Default() []Filter {
	return []Filter{
		NewActive(),
		NewEmployers(),
		NewExcludeFile(),
		NewAppliedHistory(),
	}
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Run executes the supplied filters sequentially and returns the remaining positions.
func Run(ctx context.Context, cfg *Config, deps Deps, steps []Filter, positions []*crm.Position) ([]*crm.Position, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	for _, step := range steps {
		if !step.IsEnabled() {
			deps.Logger.Debug("filter disabled", zap.String("name", step.Name()))
			continue
		}

		next, info, err := step.Apply(ctx, deps, positions)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		deps.Logger.Debug("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)

		positions = next
	}

	return positions, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

// exclude drops positions matching the predicate and returns the ids that were removed.
func exclude(positions []*crm.Position, drop func(p *crm.Position) bool) ([]*crm.Position, []string) {
	kept := make([]*crm.Position, 0, len(positions))
	var removed []string
	for _, p := range positions {
		if p == nil {
			continue
		}
		if drop(p) {
			removed = append(removed, p.ID)
			continue
		}
		kept = append(kept, p)
	}
	return kept, removed
}

// toggle is embedded by filters that may be switched off at runtime.
type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }
