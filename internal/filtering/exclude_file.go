package filtering

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/hr-matcher/internal/crm"
)

// ExcludedPositions is the on-disk list of positions a recruiter chose to skip.
type ExcludedPositions struct {
	Items []*ExcludedPosition `json:"items"`
}

type ExcludedPosition struct {
	ID           string    `json:"id"`
	Title        string    `json:"title,omitempty"`
	EmployerName string    `json:"employer_name,omitempty"`
	ExcludedAt   time.Time `json:"excluded_at"`
}

// ToExcluded converts match results into exclude file entries stamped with now.
func ToExcluded(results []*crm.MatchResult, now time.Time) *ExcludedPositions {
	excluded := &ExcludedPositions{}
	for _, r := range results {
		excluded.Items = append(excluded.Items, &ExcludedPosition{
			ID:           r.PositionID,
			Title:        r.PositionTitle,
			EmployerName: r.EmployerName,
			ExcludedAt:   now.UTC(),
		})
	}
	return excluded
}

// LoadExcludedPositions reads an exclude file. A missing or empty file yields an empty list.
func LoadExcludedPositions(path string) (*ExcludedPositions, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &ExcludedPositions{}, nil
	}
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return &ExcludedPositions{}, nil
	}

	var excluded ExcludedPositions
	if err := json.Unmarshal(data, &excluded); err != nil {
		return nil, fmt.Errorf("decode exclude file %q: %w", path, err)
	}
	return &excluded, nil
}

// Append adds entries whose ids are not present yet.
func (e *ExcludedPositions) Append(other *ExcludedPositions) {
	seen := make(map[string]struct{}, len(e.Items))
	for _, item := range e.Items {
		seen[item.ID] = struct{}{}
	}
	for _, item := range other.Items {
		if _, ok := seen[item.ID]; ok {
			continue
		}
		seen[item.ID] = struct{}{}
		e.Items = append(e.Items, item)
	}
}

func (e *ExcludedPositions) IDs() []string {
	ids := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

func (e *ExcludedPositions) ToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}

type excludeFileFilter struct {
	toggle
	path string
}

// NewExcludeFile creates a filter that removes positions listed in the exclude file.
func NewExcludeFile() Filter {
	return &excludeFileFilter{}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Validate(cfg *Config) error {
	f.path = ""
	if cfg != nil {
		f.path = strings.TrimSpace(cfg.ExcludeFile)
	}
	return nil
}

func (f *excludeFileFilter) Apply(_ context.Context, deps Deps, positions []*crm.Position) ([]*crm.Position, Step, error) {
	initial := len(positions)
	if f.path == "" {
		return positions, Step{Initial: initial, Left: initial}, nil
	}

	excluded, err := LoadExcludedPositions(f.path)
	if err != nil {
		return positions, Step{}, fmt.Errorf("getting excluded positions from file: %w", err)
	}

	ids := make(map[string]struct{}, len(excluded.Items))
	for _, id := range excluded.IDs() {
		ids[id] = struct{}{}
	}

	kept, removed := exclude(positions, func(p *crm.Position) bool {
		_, ok := ids[p.ID]
		return ok
	})
	if len(removed) > 0 {
		deps.Logger.Info("excluding positions based on exclude file",
			zap.String("path", f.path),
			zap.Strings("excluded_positions", removed),
			zap.Int("positions_left", len(kept)),
		)
	}

	return kept, Step{Initial: initial, Dropped: initial - len(kept), Left: len(kept)}, nil
}

func (f *excludeFileFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
