// Package postgres implements crm.Store over a PostgreSQL connection pool.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spigell/hr-matcher/internal/crm"
)

//go:embed schema.sql
var schema string

// Store wraps a PostgreSQL connection pool
type Store struct {
	pool *pgxpool.Pool
}

var _ crm.Store = (*Store)(nil)

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close closes the connection pool
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates missing tables. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

const candidateColumns = `id, name, title, skills, notes, city, lat, lng, years_of_experience`

const positionColumns = `p.id, p.title, p.description, p.requirements, p.location, p.lat, p.lng,
	COALESCE(p.employer_id, ''), COALESCE(e.name, ''), p.salary_range, p.active, p.keywords, p.ai_profile, p.created_at`

func scanCandidate(row pgx.Row) (*crm.Candidate, error) {
	var (
		c        crm.Candidate
		lat, lng *float64
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Title, &c.Skills, &c.Notes, &c.City, &lat, &lng, &c.YearsOfExperience); err != nil {
		return nil, err
	}
	c.Coordinates = crm.PointFrom(lat, lng)
	return &c, nil
}

func scanPosition(row pgx.Row) (*crm.Position, error) {
	var (
		p                    crm.Position
		lat, lng             *float64
		employerID, employer string
		createdAt            *time.Time
	)
	if err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Requirements, &p.Location, &lat, &lng,
		&employerID, &employer, &p.SalaryRange, &p.Active, &p.KeywordsJSON, &p.AIProfileJSON, &createdAt); err != nil {
		return nil, err
	}
	p.Coordinates = crm.PointFrom(lat, lng)
	if employerID != "" {
		p.Employer = &crm.Employer{ID: employerID, Name: employer}
	}
	if createdAt != nil {
		p.CreatedAt = *createdAt
	}
	return &p, nil
}

func (s *Store) GetCandidate(ctx context.Context, id string) (*crm.Candidate, error) {
	c, err := scanCandidate(s.pool.QueryRow(ctx, `SELECT `+candidateColumns+` FROM candidates WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("candidate %s: %w", id, crm.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get candidate %s: %w", id, err)
	}

	tags, err := s.tags(ctx, "candidate_tags", "candidate_id", id)
	if err != nil {
		return nil, err
	}
	c.Tags = tags[id]
	return c, nil
}

func (s *Store) ListCandidates(ctx context.Context) ([]*crm.Candidate, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+candidateColumns+` FROM candidates ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	var candidates []*crm.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}

	tags, err := s.tags(ctx, "candidate_tags", "candidate_id", "")
	if err != nil {
		return nil, err
	}
	for _, c := range candidates {
		c.Tags = tags[c.ID]
	}
	return candidates, nil
}

func (s *Store) GetPosition(ctx context.Context, id string) (*crm.Position, error) {
	p, err := scanPosition(s.pool.QueryRow(ctx, `SELECT `+positionColumns+`
		FROM positions p LEFT JOIN employers e ON e.id = p.employer_id
		WHERE p.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("position %s: %w", id, crm.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position %s: %w", id, err)
	}

	tags, err := s.tags(ctx, "position_tags", "position_id", id)
	if err != nil {
		return nil, err
	}
	p.Tags = tags[id]
	return p, nil
}

func (s *Store) ListActivePositions(ctx context.Context) ([]*crm.Position, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+positionColumns+`
		FROM positions p LEFT JOIN employers e ON e.id = p.employer_id
		WHERE p.active
		ORDER BY p.created_at DESC NULLS LAST, p.id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active positions: %w", err)
	}
	defer rows.Close()

	var positions []*crm.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list active positions: %w", err)
	}

	tags, err := s.tags(ctx, "position_tags", "position_id", "")
	if err != nil {
		return nil, err
	}
	for _, p := range positions {
		p.Tags = tags[p.ID]
	}
	return positions, nil
}

func (s *Store) AppliedPositionIDs(ctx context.Context, candidateID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT position_id FROM applications WHERE candidate_id = $1 ORDER BY position_id`, candidateID)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan applications: %w", err)
	}
	return ids, nil
}

func (s *Store) tags(ctx context.Context, table, ownerColumn, owner string) (map[string][]crm.Tag, error) {
	query := fmt.Sprintf(`SELECT %s, name, category FROM %s`, ownerColumn, table)
	var args []any
	if owner != "" {
		query += fmt.Sprintf(` WHERE %s = $1`, ownerColumn)
		args = append(args, owner)
	}
	query += ` ORDER BY id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", table, err)
	}
	defer rows.Close()

	out := make(map[string][]crm.Tag)
	for rows.Next() {
		var id string
		var tag crm.Tag
		if err := rows.Scan(&id, &tag.Name, &tag.Category); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}
		out[id] = append(out[id], tag)
	}
	return out, rows.Err()
}

// Import upserts every record of the dataset in a single transaction.
func (s *Store) Import(ctx context.Context, ds *crm.Dataset) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin import: %w", err)
	}
	defer tx.Rollback(ctx)

	employers := make(map[string]crm.Employer)
	for _, e := range ds.Employers {
		employers[e.ID] = e
	}
	for _, p := range ds.Positions {
		if p.Employer != nil && p.Employer.ID != "" {
			if _, ok := employers[p.Employer.ID]; !ok {
				employers[p.Employer.ID] = *p.Employer
			}
		}
	}

	batch := &pgx.Batch{}
	for _, e := range employers {
		batch.Queue(`INSERT INTO employers (id, name) VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`, e.ID, e.Name)
	}
	for _, p := range ds.Positions {
		queuePosition(batch, p)
	}
	for _, c := range ds.Candidates {
		queueCandidate(batch, c)
	}
	for _, a := range ds.Applications {
		createdAt := a.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		batch.Queue(`INSERT INTO applications (candidate_id, position_id, created_at) VALUES ($1, $2, $3)
			ON CONFLICT (candidate_id, position_id) DO NOTHING`, a.CandidateID, a.PositionID, createdAt)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to import dataset: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}
	return nil
}

func queueCandidate(batch *pgx.Batch, c crm.Candidate) {
	var lat, lng *float64
	if c.Coordinates != nil {
		lat, lng = &c.Coordinates.Lat, &c.Coordinates.Lng
	}
	batch.Queue(`INSERT INTO candidates (id, name, title, skills, notes, city, lat, lng, years_of_experience)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
		  name = EXCLUDED.name, title = EXCLUDED.title, skills = EXCLUDED.skills, notes = EXCLUDED.notes,
		  city = EXCLUDED.city, lat = EXCLUDED.lat, lng = EXCLUDED.lng,
		  years_of_experience = EXCLUDED.years_of_experience`,
		c.ID, c.Name, c.Title, c.Skills, c.Notes, c.City, lat, lng, c.YearsOfExperience)
	queueTags(batch, "candidate_tags", "candidate_id", c.ID, c.Tags)
}

func queuePosition(batch *pgx.Batch, p crm.Position) {
	var lat, lng *float64
	if p.Coordinates != nil {
		lat, lng = &p.Coordinates.Lat, &p.Coordinates.Lng
	}
	var employerID, createdAt any
	if id := p.EmployerID(); id != "" {
		employerID = id
	}
	if !p.CreatedAt.IsZero() {
		createdAt = p.CreatedAt
	}
	batch.Queue(`INSERT INTO positions (id, title, description, requirements, location, lat, lng, employer_id,
		  salary_range, active, keywords, ai_profile, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
		  title = EXCLUDED.title, description = EXCLUDED.description, requirements = EXCLUDED.requirements,
		  location = EXCLUDED.location, lat = EXCLUDED.lat, lng = EXCLUDED.lng, employer_id = EXCLUDED.employer_id,
		  salary_range = EXCLUDED.salary_range, active = EXCLUDED.active, keywords = EXCLUDED.keywords,
		  ai_profile = EXCLUDED.ai_profile, created_at = EXCLUDED.created_at`,
		p.ID, p.Title, p.Description, p.Requirements, p.Location, lat, lng, employerID,
		p.SalaryRange, p.Active, p.KeywordsJSON, p.AIProfileJSON, createdAt)
	queueTags(batch, "position_tags", "position_id", p.ID, p.Tags)
}

func queueTags(batch *pgx.Batch, table, ownerColumn, owner string, tags []crm.Tag) {
	batch.Queue(fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, table, ownerColumn), owner)
	for _, tag := range tags {
		batch.Queue(fmt.Sprintf(`INSERT INTO %s (%s, name, category) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
			table, ownerColumn), owner, tag.Name, tag.Category)
	}
}
