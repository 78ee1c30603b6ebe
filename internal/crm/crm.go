// Package crm holds the records the matching engine consumes and the
// read-only data-access contract used to fetch them.
package crm

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned by stores when a record with the given id does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the data-access collaborator. Implementations never get written
// through by the matching code.
type Store interface {
	GetCandidate(ctx context.Context, id string) (*Candidate, error)
	GetPosition(ctx context.Context, id string) (*Position, error)
	ListActivePositions(ctx context.Context) ([]*Position, error)
	ListCandidates(ctx context.Context) ([]*Candidate, error)
	// AppliedPositionIDs returns ids of positions the candidate already has an application for.
	AppliedPositionIDs(ctx context.Context, candidateID string) ([]string, error)
}

type GeoPoint struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

type Tag struct {
	Name     string `json:"name" yaml:"name"`
	Category string `json:"category,omitempty" yaml:"category"`
}

type Employer struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

type Candidate struct {
	ID                string    `json:"id" yaml:"id"`
	Name              string    `json:"name" yaml:"name"`
	Title             string    `json:"title,omitempty" yaml:"title"`
	Skills            string    `json:"skills,omitempty" yaml:"skills"`
	Notes             string    `json:"notes,omitempty" yaml:"notes"`
	City              string    `json:"city,omitempty" yaml:"city"`
	Coordinates       *GeoPoint `json:"coordinates,omitempty" yaml:"coordinates"`
	YearsOfExperience *float64  `json:"years_of_experience,omitempty" yaml:"years_of_experience"`
	Tags              []Tag     `json:"tags,omitempty" yaml:"tags"`
}

type Position struct {
	ID           string    `json:"id" yaml:"id"`
	Title        string    `json:"title" yaml:"title"`
	Description  string    `json:"description,omitempty" yaml:"description"`
	Requirements string    `json:"requirements,omitempty" yaml:"requirements"`
	Location     string    `json:"location,omitempty" yaml:"location"`
	Coordinates  *GeoPoint `json:"coordinates,omitempty" yaml:"coordinates"`
	Employer     *Employer `json:"employer,omitempty" yaml:"employer"`
	SalaryRange  string    `json:"salary_range,omitempty" yaml:"salary_range"`
	Active       bool      `json:"active" yaml:"active"`
	Tags         []Tag     `json:"tags,omitempty" yaml:"tags"`
	// KeywordsJSON and AIProfileJSON are kept as stored; the engine parses them.
	KeywordsJSON  string    `json:"keywords,omitempty" yaml:"keywords"`
	AIProfileJSON string    `json:"ai_profile,omitempty" yaml:"ai_profile"`
	CreatedAt     time.Time `json:"created_at,omitempty" yaml:"created_at"`
}

// EmployerName returns the employer name or an empty string.
func (p *Position) EmployerName() string {
	if p == nil || p.Employer == nil {
		return ""
	}
	return p.Employer.Name
}

// EmployerID returns the employer id or an empty string.
func (p *Position) EmployerID() string {
	if p == nil || p.Employer == nil {
		return ""
	}
	return p.Employer.ID
}

// Identifiable reports whether the candidate carries any usable identifying field.
func (c *Candidate) Identifiable() bool {
	return c != nil && (strings.TrimSpace(c.ID) != "" || strings.TrimSpace(c.Name) != "")
}

// Identifiable reports whether the position carries any usable identifying field.
func (p *Position) Identifiable() bool {
	return p != nil && (strings.TrimSpace(p.ID) != "" || strings.TrimSpace(p.Title) != "")
}

// Breakdown keeps the weighted contribution of every scoring factor.
type Breakdown struct {
	Tags       float64 `json:"tags"`
	Title      float64 `json:"title"`
	Experience float64 `json:"experience"`
	Geography  float64 `json:"geography"`
	AI         float64 `json:"ai,omitempty"`
}

// MatchResult is produced fresh for every scoring request and never persisted by the engine.
type MatchResult struct {
	CandidateID    string    `json:"candidate_id"`
	CandidateName  string    `json:"candidate_name,omitempty"`
	PositionID     string    `json:"position_id"`
	PositionTitle  string    `json:"position_title"`
	EmployerName   string    `json:"employer_name,omitempty"`
	Location       string    `json:"location,omitempty"`
	Score          float64   `json:"score"`
	Strengths      []string  `json:"strengths"`
	Weaknesses     []string  `json:"weaknesses"`
	Recommendation string    `json:"recommendation"`
	ShouldProceed  bool      `json:"should_proceed"`
	Disqualified   bool      `json:"disqualified,omitempty"`
	AIUsed         bool      `json:"ai_used,omitempty"`
	Breakdown      Breakdown `json:"breakdown"`

	createdAt time.Time
}

// PositionCreatedAt is the creation time of the scored position, used for ranking tie-breaks.
func (r *MatchResult) PositionCreatedAt() time.Time { return r.createdAt }

// SetPositionCreatedAt records the creation time of the scored position.
func (r *MatchResult) SetPositionCreatedAt(t time.Time) { r.createdAt = t }

// PointFrom builds coordinates from nullable columns. Both halves must be present.
func PointFrom(lat, lng *float64) *GeoPoint {
	if lat == nil || lng == nil {
		return nil
	}
	return &GeoPoint{Lat: *lat, Lng: *lng}
}

// Application links a candidate with a position they applied to.
type Application struct {
	CandidateID string    `json:"candidate_id" yaml:"candidate_id"`
	PositionID  string    `json:"position_id" yaml:"position_id"`
	CreatedAt   time.Time `json:"created_at,omitempty" yaml:"created_at"`
}

// Dataset is a bundle of records loaded in one go, e.g. from a fixture file.
type Dataset struct {
	Employers    []Employer    `json:"employers" yaml:"employers"`
	Candidates   []Candidate   `json:"candidates" yaml:"candidates"`
	Positions    []Position    `json:"positions" yaml:"positions"`
	Applications []Application `json:"applications" yaml:"applications"`
}
