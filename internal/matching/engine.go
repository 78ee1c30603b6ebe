// Package matching scores candidates against job positions and ranks them.
package matching

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/hr-matcher/internal/ai"
	"github.com/spigell/hr-matcher/internal/crm"
	"github.com/spigell/hr-matcher/internal/logger"
	"github.com/spigell/hr-matcher/internal/regions"
)

const (
	RecommendationStrong       = "strong match, proceed"
	RecommendationGood         = "good match, proceed"
	RecommendationPartial      = "partial match, review needed"
	RecommendationWeak         = "weak match"
	RecommendationManualReview = "manual review required"

	aiUnavailable = "AI analysis unavailable"
	couldNotScore = "could not analyze"
)

// Engine is stateless apart from its configuration and is safe for concurrent use.
type Engine struct {
	cfg      Config
	assessor ai.Assessor
	regions  regions.Lookup
	logger   *zap.Logger
}

type Option func(*Engine)

// WithAssessor enables the optional AI text comprehension step.
func WithAssessor(a ai.Assessor) Option {
	return func(e *Engine) { e.assessor = a }
}

// WithRegions sets the city to region table used by the textual geography fallback.
func WithRegions(l regions.Lookup) Option {
	return func(e *Engine) { e.regions = l }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matching config: %w", err)
	}

	e := &Engine{
		cfg:     cfg,
		regions: regions.New(regions.Default),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}

	return e, nil
}

func (e *Engine) Config() Config {
	return e.cfg
}

// Score computes the compatibility of one candidate with one position.
// It fails only with ErrInvalidInput. A position whose stored JSON can not be parsed
// yields a zero confidence result asking for manual review.
func (e *Engine) Score(ctx context.Context, c *crm.Candidate, p *crm.Position) (*crm.MatchResult, error) {
	if !c.Identifiable() && !p.Identifiable() {
		return nil, ErrInvalidInput
	}
	if c == nil {
		c = &crm.Candidate{}
	}
	if p == nil {
		p = &crm.Position{}
	}

	ps, err := newPositionSignals(p)
	if err != nil {
		logger.WithPairFields(e.logger, c.ID, p.ID).Warn("could not parse position", zap.Error(err))
		return failedResult(c, p, err), nil
	}
	cs := newCandidateSignals(c)

	var (
		tagNotes, titleNotes, expNotes, geoNotes, disqNotes notes
		w                                                   = e.cfg.Weights
	)

	req := requiredExperience(ps)
	breakdown := crm.Breakdown{
		Tags:       w.Tags * tagFraction(cs, ps, &tagNotes),
		Title:      w.Title * titleFraction(cs, ps, &titleNotes),
		Experience: w.Experience * experienceFraction(c.YearsOfExperience, req, &expNotes),
		Geography:  w.Geography * e.geographyFraction(c, cs, p, ps, &geoNotes),
	}
	disqualified := disqualifiers(c, cs, ps, req, &disqNotes)

	score := clamp(breakdown.Tags + breakdown.Title + breakdown.Experience + breakdown.Geography)

	result := &crm.MatchResult{
		CandidateID:   c.ID,
		CandidateName: c.Name,
		PositionID:    p.ID,
		PositionTitle: p.Title,
		EmployerName:  p.EmployerName(),
		Location:      p.Location,
		Strengths:     []string{},
		Weaknesses:    []string{},
		Disqualified:  disqualified,
	}
	result.SetPositionCreatedAt(p.CreatedAt)

	for _, n := range []notes{tagNotes, titleNotes, expNotes, geoNotes, disqNotes} {
		result.Strengths = append(result.Strengths, n.strengths...)
		result.Weaknesses = append(result.Weaknesses, n.weaknesses...)
	}

	if e.assessor != nil {
		score = e.blendAssessment(ctx, c, p, ps, score, result)
	}

	if disqualified {
		score = math.Min(score, e.cfg.DisqualifiedCeiling)
	}

	breakdown.AI = result.Breakdown.AI
	result.Score = round1(clamp(score))
	result.Breakdown = roundBreakdown(breakdown)
	result.Recommendation = e.recommendation(result.Score, disqualified)
	result.ShouldProceed = !disqualified && result.Score >= e.cfg.ProceedThreshold

	return result, nil
}

func (e *Engine) blendAssessment(ctx context.Context, c *crm.Candidate, p *crm.Position, ps positionSignals, heuristic float64, result *crm.MatchResult) float64 {
	log := logger.WithPairFields(e.logger, c.ID, p.ID)

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.AITimeout)
	defer cancel()

	assessment, err := e.assessor.Assess(callCtx, candidateText(c), positionText(p, ps.profile))
	if err != nil {
		log.Warn("ai assessment failed, using heuristic score", zap.Error(err))
		result.Weaknesses = append(result.Weaknesses, aiUnavailable)
		return heuristic
	}
	if assessment == nil || math.IsNaN(assessment.Score) {
		log.Warn("ai assessment returned no score, using heuristic score")
		result.Weaknesses = append(result.Weaknesses, aiUnavailable)
		return heuristic
	}

	hint := clamp(assessment.Score)
	result.AIUsed = true
	result.Breakdown.AI = round1(hint)
	result.Strengths = appendUnique(result.Strengths, assessment.Strengths...)
	result.Weaknesses = appendUnique(result.Weaknesses, assessment.Weaknesses...)

	log.Debug("ai assessment blended",
		zap.Float64("heuristic", heuristic),
		zap.Float64("ai", hint),
	)

	return (1-e.cfg.AIWeight)*heuristic + e.cfg.AIWeight*hint
}

func (e *Engine) recommendation(score float64, disqualified bool) string {
	switch {
	case disqualified:
		return RecommendationPartial
	case score >= 80:
		return RecommendationStrong
	case score >= e.cfg.ProceedThreshold:
		return RecommendationGood
	case score >= 40:
		return RecommendationPartial
	default:
		return RecommendationWeak
	}
}

// failedResult is the zero confidence result substituted for a pair that could not be scored.
func failedResult(c *crm.Candidate, p *crm.Position, err error) *crm.MatchResult {
	result := &crm.MatchResult{
		Strengths:      []string{},
		Weaknesses:     []string{fmt.Sprintf("%s: %v", couldNotScore, err)},
		Recommendation: RecommendationManualReview,
	}
	if c != nil {
		result.CandidateID = c.ID
		result.CandidateName = c.Name
	}
	if p != nil {
		result.PositionID = p.ID
		result.PositionTitle = p.Title
		result.EmployerName = p.EmployerName()
		result.Location = p.Location
		result.SetPositionCreatedAt(p.CreatedAt)
	}
	return result
}

func appendUnique(dst []string, items ...string) []string {
	seen := make(map[string]struct{}, len(dst))
	for _, s := range dst {
		seen[s] = struct{}{}
	}
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		dst = append(dst, item)
	}
	return dst
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func roundBreakdown(b crm.Breakdown) crm.Breakdown {
	return crm.Breakdown{
		Tags:       round1(b.Tags),
		Title:      round1(b.Title),
		Experience: round1(b.Experience),
		Geography:  round1(b.Geography),
		AI:         b.AI,
	}
}
