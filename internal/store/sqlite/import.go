package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/spigell/hr-matcher/internal/crm"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Import upserts every record of the dataset in a single transaction.
func (s *Store) Import(ctx context.Context, ds *crm.Dataset) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	for i := range ds.Employers {
		if err := saveEmployer(ctx, tx, &ds.Employers[i]); err != nil {
			return err
		}
	}
	for i := range ds.Positions {
		p := &ds.Positions[i]
		if p.Employer != nil && p.Employer.ID != "" {
			if err := saveEmployer(ctx, tx, p.Employer); err != nil {
				return err
			}
		}
		if err := savePosition(ctx, tx, p); err != nil {
			return err
		}
	}
	for i := range ds.Candidates {
		if err := saveCandidate(ctx, tx, &ds.Candidates[i]); err != nil {
			return err
		}
	}
	for _, a := range ds.Applications {
		if err := saveApplication(ctx, tx, a); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}

func (s *Store) SaveCandidate(ctx context.Context, c *crm.Candidate) error {
	return saveCandidate(ctx, s.db, c)
}

func (s *Store) SavePosition(ctx context.Context, p *crm.Position) error {
	if p.Employer != nil && p.Employer.ID != "" {
		if err := saveEmployer(ctx, s.db, p.Employer); err != nil {
			return err
		}
	}
	return savePosition(ctx, s.db, p)
}

func (s *Store) SaveApplication(ctx context.Context, a crm.Application) error {
	return saveApplication(ctx, s.db, a)
}

func saveEmployer(ctx context.Context, db execer, e *crm.Employer) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO employers (id, name) VALUES (?, ?)
		 ON CONFLICT (id) DO UPDATE SET name = excluded.name`,
		e.ID, e.Name)
	if err != nil {
		return fmt.Errorf("save employer %s: %w", e.ID, err)
	}
	return nil
}

func saveCandidate(ctx context.Context, db execer, c *crm.Candidate) error {
	lat, lng := coordinates(c.Coordinates)
	_, err := db.ExecContext(ctx,
		`INSERT INTO candidates (id, name, title, skills, notes, city, lat, lng, years_of_experience)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   name = excluded.name, title = excluded.title, skills = excluded.skills,
		   notes = excluded.notes, city = excluded.city, lat = excluded.lat, lng = excluded.lng,
		   years_of_experience = excluded.years_of_experience`,
		c.ID, c.Name, c.Title, c.Skills, c.Notes, c.City, lat, lng, c.YearsOfExperience)
	if err != nil {
		return fmt.Errorf("save candidate %s: %w", c.ID, err)
	}
	return replaceTags(ctx, db, "candidate_tags", "candidate_id", c.ID, c.Tags)
}

func savePosition(ctx context.Context, db execer, p *crm.Position) error {
	lat, lng := coordinates(p.Coordinates)
	var employerID any
	if id := p.EmployerID(); id != "" {
		employerID = id
	}
	createdAt := ""
	if !p.CreatedAt.IsZero() {
		createdAt = p.CreatedAt.UTC().Format(time.RFC3339Nano)
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO positions (id, title, description, requirements, location, lat, lng, employer_id,
		   salary_range, active, keywords, ai_profile, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   title = excluded.title, description = excluded.description, requirements = excluded.requirements,
		   location = excluded.location, lat = excluded.lat, lng = excluded.lng, employer_id = excluded.employer_id,
		   salary_range = excluded.salary_range, active = excluded.active, keywords = excluded.keywords,
		   ai_profile = excluded.ai_profile, created_at = excluded.created_at`,
		p.ID, p.Title, p.Description, p.Requirements, p.Location, lat, lng, employerID,
		p.SalaryRange, p.Active, p.KeywordsJSON, p.AIProfileJSON, createdAt)
	if err != nil {
		return fmt.Errorf("save position %s: %w", p.ID, err)
	}
	return replaceTags(ctx, db, "position_tags", "position_id", p.ID, p.Tags)
}

func saveApplication(ctx context.Context, db execer, a crm.Application) error {
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO applications (candidate_id, position_id, created_at) VALUES (?, ?, ?)
		 ON CONFLICT (candidate_id, position_id) DO NOTHING`,
		a.CandidateID, a.PositionID, createdAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save application %s/%s: %w", a.CandidateID, a.PositionID, err)
	}
	return nil
}

func replaceTags(ctx context.Context, db execer, table, ownerColumn, owner string, tags []crm.Tag) error {
	if _, err := db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, table, ownerColumn), owner); err != nil {
		return fmt.Errorf("clear %s of %s: %w", table, owner, err)
	}
	for _, tag := range tags {
		_, err := db.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s (%s, name, category) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`, table, ownerColumn),
			owner, tag.Name, tag.Category)
		if err != nil {
			return fmt.Errorf("save %s of %s: %w", table, owner, err)
		}
	}
	return nil
}

func coordinates(p *crm.GeoPoint) (lat, lng any) {
	if p == nil {
		return nil, nil
	}
	return p.Lat, p.Lng
}
