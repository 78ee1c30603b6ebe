package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/hr-matcher/internal/crm"
)

type employersFilter struct {
	toggle
	employers []string
}

// NewEmployers creates a filter that removes positions of employers listed in the config.
// Entries match either the employer id or, case-insensitively, its name.
func NewEmployers() Filter {
	return &employersFilter{}
}

func (f *employersFilter) Name() string { return "employers" }

func (f *employersFilter) Validate(cfg *Config) error {
	f.employers = nil
	if cfg == nil {
		return nil
	}
	for _, e := range cfg.Employers {
		if e = strings.TrimSpace(e); e != "" {
			f.employers = append(f.employers, e)
		}
	}
	return nil
}

func (f *employersFilter) Apply(_ context.Context, deps Deps, positions []*crm.Position) ([]*crm.Position, Step, error) {
	initial := len(positions)
	if len(f.employers) == 0 {
		return positions, Step{Initial: initial, Left: initial}, nil
	}

	kept, removed := exclude(positions, f.excluded)
	if len(removed) > 0 {
		deps.Logger.Info("excluding positions by employers",
			zap.Strings("excluded_employers", f.employers),
			zap.Strings("excluded_positions", removed),
			zap.Int("positions_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: initial - len(kept), Left: len(kept)}, nil
}

func (f *employersFilter) excluded(p *crm.Position) bool {
	id, name := p.EmployerID(), p.EmployerName()
	for _, e := range f.employers {
		if (id != "" && e == id) || (name != "" && strings.EqualFold(e, name)) {
			return true
		}
	}
	return false
}

func (f *employersFilter) Status() Status {
	details := map[string]string{}
	if len(f.employers) > 0 {
		details["employers"] = strings.Join(f.employers, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
