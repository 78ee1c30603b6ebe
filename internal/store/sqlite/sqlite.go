// Package sqlite implements crm.Store on top of a SQLite database file.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/spigell/hr-matcher/internal/crm"
)

//go:embed schema.sql
var schema string

const memoryPath = ":memory:"

type Store struct {
	db *sql.DB
}

var _ crm.Store = (*Store)(nil)

// Open opens (and creates when missing) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite serializes writers; one connection also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

const candidateColumns = `id, name, title, skills, notes, city, lat, lng, years_of_experience`

const positionColumns = `p.id, p.title, p.description, p.requirements, p.location, p.lat, p.lng,
	COALESCE(p.employer_id, ''), COALESCE(e.name, ''), p.salary_range, p.active, p.keywords, p.ai_profile, p.created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanCandidate(row scanner) (*crm.Candidate, error) {
	var (
		c        crm.Candidate
		lat, lng sql.NullFloat64
		years    sql.NullFloat64
	)
	if err := row.Scan(&c.ID, &c.Name, &c.Title, &c.Skills, &c.Notes, &c.City, &lat, &lng, &years); err != nil {
		return nil, err
	}
	c.Coordinates = crm.PointFrom(nullable(lat), nullable(lng))
	c.YearsOfExperience = nullable(years)
	return &c, nil
}

func scanPosition(row scanner) (*crm.Position, error) {
	var (
		p                    crm.Position
		lat, lng             sql.NullFloat64
		employerID, employer string
		createdAt            string
	)
	if err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Requirements, &p.Location, &lat, &lng,
		&employerID, &employer, &p.SalaryRange, &p.Active, &p.KeywordsJSON, &p.AIProfileJSON, &createdAt); err != nil {
		return nil, err
	}
	p.Coordinates = crm.PointFrom(nullable(lat), nullable(lng))
	if employerID != "" {
		p.Employer = &crm.Employer{ID: employerID, Name: employer}
	}
	if createdAt != "" {
		t, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("position %s: parse created_at: %w", p.ID, err)
		}
		p.CreatedAt = t
	}
	return &p, nil
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func (s *Store) GetCandidate(ctx context.Context, id string) (*crm.Candidate, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+candidateColumns+` FROM candidates WHERE id = ?`, id)
	c, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("candidate %s: %w", id, crm.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get candidate %s: %w", id, err)
	}

	tags, err := s.tags(ctx, "candidate_tags", "candidate_id", id)
	if err != nil {
		return nil, err
	}
	c.Tags = tags[id]
	return c, nil
}

func (s *Store) ListCandidates(ctx context.Context) ([]*crm.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+candidateColumns+` FROM candidates ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var candidates []*crm.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
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
	row := s.db.QueryRowContext(ctx, `SELECT `+positionColumns+`
		FROM positions p LEFT JOIN employers e ON e.id = p.employer_id
		WHERE p.id = ?`, id)
	p, err := scanPosition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("position %s: %w", id, crm.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get position %s: %w", id, err)
	}

	tags, err := s.tags(ctx, "position_tags", "position_id", id)
	if err != nil {
		return nil, err
	}
	p.Tags = tags[id]
	return p, nil
}

func (s *Store) ListActivePositions(ctx context.Context) ([]*crm.Position, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+positionColumns+`
		FROM positions p LEFT JOIN employers e ON e.id = p.employer_id
		WHERE p.active = 1
		ORDER BY p.created_at DESC, p.id`)
	if err != nil {
		return nil, fmt.Errorf("list active positions: %w", err)
	}
	defer rows.Close()

	var positions []*crm.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list active positions: %w", err)
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
	rows, err := s.db.QueryContext(ctx,
		`SELECT position_id FROM applications WHERE candidate_id = ? ORDER BY position_id`, candidateID)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// tags loads tags keyed by owner id. An empty owner loads every row of the table.
func (s *Store) tags(ctx context.Context, table, ownerColumn, owner string) (map[string][]crm.Tag, error) {
	query := fmt.Sprintf(`SELECT %s, name, category FROM %s`, ownerColumn, table)
	var args []any
	if owner != "" {
		query += fmt.Sprintf(` WHERE %s = ?`, ownerColumn)
		args = append(args, owner)
	}
	query += ` ORDER BY rowid`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", table, err)
	}
	defer rows.Close()

	out := make(map[string][]crm.Tag)
	for rows.Next() {
		var id string
		var tag crm.Tag
		if err := rows.Scan(&id, &tag.Name, &tag.Category); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		out[id] = append(out[id], tag)
	}
	return out, rows.Err()
}
