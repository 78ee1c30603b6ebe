package matching

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/hr-matcher/internal/ai"
	"github.com/spigell/hr-matcher/internal/crm"
)

var telAviv = crm.GeoPoint{Lat: 32.0853, Lng: 34.7818}

func years(v float64) *float64 { return &v }

func tags(names ...string) []crm.Tag {
	out := make([]crm.Tag, 0, len(names))
	for _, n := range names {
		out = append(out, crm.Tag{Name: n, Category: "skill"})
	}
	return out
}

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(DefaultConfig(), opts...)
	require.NoError(t, err)
	return e
}

func salesCandidate() *crm.Candidate {
	return &crm.Candidate{
		ID:                "c-1",
		Name:              "Dana Levi",
		Tags:              tags("sales", "customer-service"),
		YearsOfExperience: years(2),
		City:              "Tel Aviv",
		Coordinates:       &telAviv,
	}
}

func salesPosition() *crm.Position {
	return &crm.Position{
		ID:            "p-1",
		Title:         "Sales Representative",
		Tags:          tags("sales"),
		Location:      "Tel Aviv",
		Coordinates:   &crm.GeoPoint{Lat: telAviv.Lat + 0.018, Lng: telAviv.Lng},
		AIProfileJSON: `{"min_experience_years": 0}`,
		Employer:      &crm.Employer{ID: "e-1", Name: "Acme"},
		Active:        true,
	}
}

// strongPair is a pair that earns full marks on every factor.
func strongPair() (*crm.Candidate, *crm.Position) {
	c := &crm.Candidate{
		ID:                "c-2",
		Name:              "Noa",
		Title:             "Sales Representative",
		Tags:              tags("sales", "crm", "negotiation"),
		YearsOfExperience: years(6),
		City:              "Tel Aviv",
		Coordinates:       &telAviv,
	}
	p := &crm.Position{
		ID:          "p-2",
		Title:       "Sales Representative",
		Tags:        tags("Sales", "CRM", "Negotiation"),
		Location:    "Tel Aviv",
		Coordinates: &telAviv,
	}
	return c, p
}

func containsSubstring(list []string, sub string) bool {
	for _, s := range list {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func TestScoreTelAvivExample(t *testing.T) {
	e := newEngine(t)

	res, err := e.Score(context.Background(), salesCandidate(), salesPosition())
	require.NoError(t, err)

	assert.GreaterOrEqual(t, res.Score, 70.0)
	assert.InDelta(t, 76.0, res.Score, 0.01)
	assert.True(t, containsSubstring(res.Strengths, "tag overlap"), "strengths: %v", res.Strengths)
	assert.True(t, containsSubstring(res.Strengths, "geography"), "strengths: %v", res.Strengths)
	assert.True(t, res.ShouldProceed)
	assert.False(t, res.Disqualified)
	assert.Equal(t, RecommendationGood, res.Recommendation)
	assert.Equal(t, "Acme", res.EmployerName)
	assert.Equal(t, "c-1", res.CandidateID)
	assert.Equal(t, "p-1", res.PositionID)

	tagIdx, geoIdx := -1, -1
	for i, s := range res.Strengths {
		if strings.HasPrefix(s, "tag overlap") {
			tagIdx = i
		}
		if strings.HasPrefix(s, "geography") {
			geoIdx = i
		}
	}
	assert.Less(t, tagIdx, geoIdx, "tag notes come before geography notes")
}

func TestScoreFullMarks(t *testing.T) {
	e := newEngine(t)
	c, p := strongPair()

	res, err := e.Score(context.Background(), c, p)
	require.NoError(t, err)

	assert.Equal(t, 100.0, res.Score)
	assert.Equal(t, crm.Breakdown{Tags: 45, Title: 15, Experience: 15, Geography: 25}, res.Breakdown)
	assert.Equal(t, RecommendationStrong, res.Recommendation)
	assert.Empty(t, res.Weaknesses)
}

func TestScoreWithinRange(t *testing.T) {
	e := newEngine(t)
	strongC, strongP := strongPair()

	candidates := []*crm.Candidate{
		salesCandidate(),
		strongC,
		{ID: "bare"},
		{Name: "Only Name", YearsOfExperience: years(-3)},
		{ID: "far", Coordinates: &crm.GeoPoint{Lat: -33.86, Lng: 151.2}, Skills: "Go; Kubernetes / SQL"},
	}
	positions := []*crm.Position{
		salesPosition(),
		strongP,
		{ID: "empty"},
		{Title: "Driver", Requirements: "Must have 3 years and a driving license"},
		{ID: "kw", KeywordsJSON: `["go","kubernetes","sql","aws"]`, AIProfileJSON: `{"must_have":["aws"],"remote":true}`},
	}

	for _, c := range candidates {
		for _, p := range positions {
			res, err := e.Score(context.Background(), c, p)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, res.Score, 0.0)
			assert.LessOrEqual(t, res.Score, 100.0)
		}
	}
}

func TestScoreZeroSignalPosition(t *testing.T) {
	e := newEngine(t)

	res, err := e.Score(context.Background(), salesCandidate(), &crm.Position{ID: "p-empty"})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, res.Score, 0.0)
	assert.Equal(t, 0.0, res.Breakdown.Tags)
	assert.True(t, containsSubstring(res.Weaknesses, "no skills, tags or keywords"))
}

func TestScoreInvalidInput(t *testing.T) {
	e := newEngine(t)

	_, err := e.Score(context.Background(), &crm.Candidate{Skills: "sales"}, &crm.Position{Description: "x"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = e.Score(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = e.Score(context.Background(), &crm.Candidate{ID: "c"}, &crm.Position{})
	assert.NoError(t, err)

	_, err = e.Score(context.Background(), nil, &crm.Position{Title: "Cashier"})
	assert.NoError(t, err)
}

func TestScoreMalformedRecord(t *testing.T) {
	e := newEngine(t)

	tests := []struct {
		name   string
		modify func(p *crm.Position)
		reason string
	}{
		{name: "keywords", modify: func(p *crm.Position) { p.KeywordsJSON = `{not json` }, reason: "keywords"},
		{name: "truncated keywords", modify: func(p *crm.Position) { p.KeywordsJSON = `["sales",` }, reason: "keywords"},
		{name: "ai profile", modify: func(p *crm.Position) { p.AIProfileJSON = `{"min_experience_years": {"nested": true}}` }, reason: "ai profile"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := salesPosition()
			tt.modify(p)

			res, err := e.Score(context.Background(), salesCandidate(), p)
			require.NoError(t, err)
			require.NotNil(t, res)

			assert.Equal(t, 0.0, res.Score)
			assert.Equal(t, RecommendationManualReview, res.Recommendation)
			assert.False(t, res.ShouldProceed)
			assert.Equal(t, "p-1", res.PositionID)
			assert.Equal(t, "c-1", res.CandidateID)
			require.Len(t, res.Weaknesses, 1)
			assert.True(t, strings.HasPrefix(res.Weaknesses[0], couldNotScore), res.Weaknesses[0])
			assert.Contains(t, res.Weaknesses[0], tt.reason)
		})
	}
}

func TestScoreTagEqualityDominates(t *testing.T) {
	e := newEngine(t)

	c := &crm.Candidate{ID: "c", Title: "Engineer", Tags: tags("go", "kubernetes", "postgres")}
	matching := &crm.Position{ID: "a", Title: "Engineer", KeywordsJSON: `["Go", "Kubernetes", "Postgres"]`}
	unrelated := &crm.Position{ID: "b", Title: "Engineer", KeywordsJSON: `["cooking"]`}

	a, err := e.Score(context.Background(), c, matching)
	require.NoError(t, err)
	b, err := e.Score(context.Background(), c, unrelated)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, a.Score, b.Score)
	assert.Equal(t, 45.0, a.Breakdown.Tags)
	assert.Equal(t, 0.0, b.Breakdown.Tags)
}

func TestScoreSparseSignalPrefersDistinctOverlap(t *testing.T) {
	e := newEngine(t)

	c := &crm.Candidate{ID: "c", Skills: "excel, hebrew"}
	two := &crm.Position{ID: "two", Tags: tags("excel", "hebrew")}
	one := &crm.Position{ID: "one", Tags: tags("excel")}
	half := &crm.Position{ID: "half", Tags: tags("excel", "arabic")}

	resTwo, err := e.Score(context.Background(), c, two)
	require.NoError(t, err)
	resOne, err := e.Score(context.Background(), c, one)
	require.NoError(t, err)
	resHalf, err := e.Score(context.Background(), c, half)
	require.NoError(t, err)

	assert.Greater(t, resTwo.Breakdown.Tags, resOne.Breakdown.Tags)
	assert.Greater(t, resOne.Breakdown.Tags, resHalf.Breakdown.Tags)
	assert.Less(t, resOne.Breakdown.Tags, 45.0)
}

func TestScoreDisqualifiersCapScore(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *crm.Candidate, p *crm.Position)
		weakness string
	}{
		{
			name: "driving license from profile",
			mutate: func(_ *crm.Candidate, p *crm.Position) {
				p.AIProfileJSON = `{"driving_license": "true"}`
			},
			weakness: "driving license",
		},
		{
			name: "driving license from requirements",
			mutate: func(_ *crm.Candidate, p *crm.Position) {
				p.Requirements = "Valid driver's license required"
			},
			weakness: "driving license",
		},
		{
			name: "mandatory experience",
			mutate: func(c *crm.Candidate, p *crm.Position) {
				c.YearsOfExperience = years(4.9)
				p.Requirements = "At least 5 years in B2B sales"
			},
			weakness: "at least 5 years",
		},
		{
			name: "missing must have",
			mutate: func(_ *crm.Candidate, p *crm.Position) {
				p.AIProfileJSON = `{"must_have": ["Hebrew"]}`
			},
			weakness: "missing mandatory hebrew",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t)
			c, p := strongPair()
			tt.mutate(c, p)

			res, err := e.Score(context.Background(), c, p)
			require.NoError(t, err)

			assert.True(t, res.Disqualified)
			assert.LessOrEqual(t, res.Score, DefaultConfig().DisqualifiedCeiling)
			assert.Greater(t, res.Score, 0.0)
			assert.False(t, res.ShouldProceed)
			assert.Equal(t, RecommendationPartial, res.Recommendation)
			assert.True(t, containsSubstring(res.Weaknesses, tt.weakness), "weaknesses: %v", res.Weaknesses)
		})
	}
}

func TestScoreDisqualifierNeedsEvidence(t *testing.T) {
	e := newEngine(t)

	c, p := strongPair()
	c.Skills = "Driving-License B, Hebrew"
	p.AIProfileJSON = `{"driving_license": true, "must_have": ["hebrew"]}`

	res, err := e.Score(context.Background(), c, p)
	require.NoError(t, err)
	assert.False(t, res.Disqualified)
	assert.Equal(t, 100.0, res.Score)

	// Unknown experience is not proof of missing a mandatory minimum.
	c, p = strongPair()
	c.YearsOfExperience = nil
	p.Requirements = "Minimum 3 years of experience"
	res, err = e.Score(context.Background(), c, p)
	require.NoError(t, err)
	assert.False(t, res.Disqualified)
	assert.Equal(t, 0.0, res.Breakdown.Experience)
}

func TestScoreOptionalDrivingLicense(t *testing.T) {
	for _, requirements := range []string{
		"A driving license is an advantage",
		"No driving license required",
		"Driving license preferred",
	} {
		t.Run(requirements, func(t *testing.T) {
			e := newEngine(t)
			c, p := strongPair()
			p.Requirements = requirements

			res, err := e.Score(context.Background(), c, p)
			require.NoError(t, err)
			assert.False(t, res.Disqualified)
			assert.Greater(t, res.Score, DefaultConfig().DisqualifiedCeiling)
			assert.False(t, containsSubstring(res.Weaknesses, "driving license"), "weaknesses: %v", res.Weaknesses)
		})
	}
}

func TestScoreExperience(t *testing.T) {
	tests := []struct {
		name         string
		years        *float64
		requirements string
		profile      string
		want         float64
	}{
		{name: "no minimum", years: years(0), want: 15},
		{name: "meets profile minimum", years: years(3), profile: `{"min_experience_years": "3"}`, want: 15},
		{name: "over qualified", years: years(25), requirements: "2+ years in retail", want: 15},
		{name: "below linear", years: years(1), requirements: "2+ years in retail", want: 7.5},
		{name: "inside range", years: years(4), requirements: "3-5 years of experience", want: 15},
		{name: "below range", years: years(1.5), requirements: "3 to 5 years of experience", want: 7.5},
		{name: "unknown with minimum", years: nil, profile: `{"min_experience_years": 4}`, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t)
			c := &crm.Candidate{ID: "c", YearsOfExperience: tt.years}
			p := &crm.Position{ID: "p", Requirements: tt.requirements, AIProfileJSON: tt.profile}

			res, err := e.Score(context.Background(), c, p)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, res.Breakdown.Experience, 0.01)
		})
	}
}

func TestScoreTitle(t *testing.T) {
	tests := []struct {
		name      string
		candidate string
		position  string
		desc      string
		want      float64
	}{
		{name: "exact", candidate: "Sales Representative", position: "sales  representative", want: 15},
		{name: "contained", candidate: "Accountant", position: "Senior Accountant", want: 15},
		{name: "shared word", candidate: "Senior Sales Manager", position: "Sales Representative", want: 9},
		{name: "description only", candidate: "Bookkeeper", position: "Office Admin", desc: "Includes bookkeeper duties", want: 4.5},
		{name: "unrelated", candidate: "Chef", position: "Accountant", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t)
			res, err := e.Score(context.Background(),
				&crm.Candidate{ID: "c", Title: tt.candidate},
				&crm.Position{ID: "p", Title: tt.position, Description: tt.desc},
			)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, res.Breakdown.Title, 0.01)
		})
	}
}

func TestScoreGeographyMonotonic(t *testing.T) {
	e := newEngine(t)
	c := salesCandidate()

	var previous float64 = 101
	for _, offsetKm := range []float64{0, 5, 14, 20, 40, 70, 99, 150} {
		p := salesPosition()
		p.Coordinates = &crm.GeoPoint{Lat: telAviv.Lat + offsetKm/111.19, Lng: telAviv.Lng}

		res, err := e.Score(context.Background(), c, p)
		require.NoError(t, err)
		assert.LessOrEqual(t, res.Score, previous, "offset %v km", offsetKm)
		previous = res.Score
	}
	assert.Equal(t, 0.0, func() float64 {
		p := salesPosition()
		p.Coordinates = &crm.GeoPoint{Lat: 29.5577, Lng: 34.9519}
		res, err := e.Score(context.Background(), c, p)
		require.NoError(t, err)
		return res.Breakdown.Geography
	}())
}

func TestScoreGeographyTextFallback(t *testing.T) {
	tests := []struct {
		name     string
		city     string
		location string
		profile  string
		want     float64
	}{
		{name: "same city", city: "Tel Aviv", location: "Tel Aviv, Israel", want: 15},
		{name: "same region", city: "Ramat Gan", location: "Tel Aviv", want: 10},
		{name: "region from profile", city: "Haifa", location: "Industrial zone", profile: `{"region": "North"}`, want: 10},
		{name: "remote", city: "Eilat", location: "Remote", want: 12.5},
		{name: "different regions", city: "Haifa", location: "Beer Sheva", want: 0},
		{name: "no city", city: "", location: "Tel Aviv", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine(t)
			res, err := e.Score(context.Background(),
				&crm.Candidate{ID: "c", City: tt.city, Coordinates: &telAviv},
				&crm.Position{ID: "p", Location: tt.location, AIProfileJSON: tt.profile},
			)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, res.Breakdown.Geography, 0.01)
		})
	}
}

func TestScoreIdempotent(t *testing.T) {
	e := newEngine(t)
	c, p := salesCandidate(), salesPosition()
	p.KeywordsJSON = `["b2b", "sales", "crm"]`

	first, err := e.Score(context.Background(), c, p)
	require.NoError(t, err)
	second, err := e.Score(context.Background(), c, p)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

type stubAssessor struct {
	mu         sync.Mutex
	assessment *ai.Assessment
	err        error
	block      bool
	calls      int
}

func (s *stubAssessor) Assess(ctx context.Context, candidateText, positionText string) (*ai.Assessment, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if strings.Contains(positionText, "explode") {
		panic("assessor exploded")
	}
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.assessment, nil
}

func TestScoreBlendsAssessment(t *testing.T) {
	assessor := &stubAssessor{assessment: &ai.Assessment{
		Score:      100,
		Strengths:  []string{"long retail track record"},
		Weaknesses: []string{"no B2B exposure"},
	}}
	e := newEngine(t, WithAssessor(assessor))

	res, err := e.Score(context.Background(), salesCandidate(), salesPosition())
	require.NoError(t, err)

	assert.True(t, res.AIUsed)
	assert.InDelta(t, 0.7*76+0.3*100, res.Score, 0.05)
	assert.Equal(t, 100.0, res.Breakdown.AI)
	assert.Equal(t, "long retail track record", res.Strengths[len(res.Strengths)-1])
	assert.Equal(t, "no B2B exposure", res.Weaknesses[len(res.Weaknesses)-1])
	assert.Equal(t, 1, assessor.calls)
}

func TestScoreAssessorFailureFallsBack(t *testing.T) {
	tests := []struct {
		name     string
		assessor *stubAssessor
	}{
		{name: "error", assessor: &stubAssessor{err: errors.New("quota exceeded")}},
		{name: "nil assessment", assessor: &stubAssessor{}},
		{name: "timeout", assessor: &stubAssessor{block: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.AITimeout = 10 * time.Millisecond
			e, err := New(cfg, WithAssessor(tt.assessor))
			require.NoError(t, err)

			res, err := e.Score(context.Background(), salesCandidate(), salesPosition())
			require.NoError(t, err)

			assert.False(t, res.AIUsed)
			assert.InDelta(t, 76.0, res.Score, 0.01)
			assert.Contains(t, res.Weaknesses, aiUnavailable)
		})
	}
}

func TestScoreDisqualifierCapAppliesAfterBlend(t *testing.T) {
	e := newEngine(t, WithAssessor(&stubAssessor{assessment: &ai.Assessment{Score: 100}}))
	c, p := strongPair()
	p.AIProfileJSON = `{"driving_license": true}`

	res, err := e.Score(context.Background(), c, p)
	require.NoError(t, err)
	assert.Equal(t, 45.0, res.Score)
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weights.Tags = 80
	_, err := New(cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.AIWeight = 1.5
	_, err = New(cfg)
	assert.Error(t, err)

	cfg = DefaultConfig()
	cfg.MaxRadiusKm = 10
	_, err = New(cfg)
	assert.Error(t, err)

	_, err = New(Config{})
	assert.NoError(t, err, "zero config falls back to defaults")
}
