// Package server exposes the matching operations over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/spigell/hr-matcher/internal/crm"
	"github.com/spigell/hr-matcher/internal/matching"
	"github.com/spigell/hr-matcher/internal/matchmaker"
)

// Config holds the HTTP listener settings.
type Config struct {
	Listen          string        `mapstructure:"listen"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`
	DefaultLimit    int           `mapstructure:"default-limit"`
}

func DefaultConfig() Config {
	return Config{
		Listen:          ":8080",
		ShutdownTimeout: 10 * time.Second,
		DefaultLimit:    20,
	}
}

// Matcher is the subset of the matchmaker service the handlers call.
type Matcher interface {
	RankPositionsForCandidate(ctx context.Context, candidateID string, q matchmaker.Query) (matching.Results, error)
	RankCandidatesForPosition(ctx context.Context, positionID string, q matchmaker.Query) (matching.Results, error)
	ScorePair(ctx context.Context, candidateID, positionID string) (*crm.MatchResult, error)
}

type Server struct {
	cfg      Config
	matcher  Matcher
	logger   *zap.Logger
	echo     *echo.Echo
	validate *validator.Validate
}

func New(cfg Config, matcher Matcher, logger *zap.Logger) *Server {
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultConfig().DefaultLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		cfg:      cfg,
		matcher:  matcher,
		logger:   logger,
		echo:     echo.New(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.HTTPErrorHandler = errorHandler(logger)
	s.echo.Use(requestLogger(logger))

	s.echo.GET("/healthz", s.health)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/candidates/:id/matches", s.candidateMatches)
	s.echo.GET("/positions/:id/matches", s.positionMatches)
	s.echo.POST("/match", s.scorePair)

	return s
}

// Handler returns the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is cancelled and then shuts the listener down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("listen", s.cfg.Listen))
		errCh <- s.echo.Start(s.cfg.Listen)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultConfig().ShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(shutdownCtx)
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// matchesResponse wraps a ranked list.
type matchesResponse struct {
	Count   int                `json:"count"`
	Matches []*crm.MatchResult `json:"matches"`
}

func (s *Server) candidateMatches(c echo.Context) error {
	q, err := s.query(c)
	if err != nil {
		return err
	}
	results, err := s.matcher.RankPositionsForCandidate(c.Request().Context(), c.Param("id"), q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newMatchesResponse(results))
}

func (s *Server) positionMatches(c echo.Context) error {
	q, err := s.query(c)
	if err != nil {
		return err
	}
	results, err := s.matcher.RankCandidatesForPosition(c.Request().Context(), c.Param("id"), q)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newMatchesResponse(results))
}

type scoreRequest struct {
	CandidateID string `json:"candidate_id" validate:"required"`
	PositionID  string `json:"position_id" validate:"required"`
}

func (s *Server) scorePair(c echo.Context) error {
	var req scoreRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := s.validate.Struct(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, validationMessage(err))
	}

	result, err := s.matcher.ScorePair(c.Request().Context(), req.CandidateID, req.PositionID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) query(c echo.Context) (matchmaker.Query, error) {
	q := matchmaker.Query{Limit: s.cfg.DefaultLimit}

	if raw := c.QueryParam("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return q, echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
		}
		q.Limit = limit
	}
	if raw := c.QueryParam("min_score"); raw != "" {
		minScore, err := strconv.ParseFloat(raw, 64)
		if err != nil || minScore < 0 || minScore > 100 {
			return q, echo.NewHTTPError(http.StatusBadRequest, "min_score must be a number between 0 and 100")
		}
		q.MinScore = minScore
	}
	return q, nil
}

func newMatchesResponse(results matching.Results) matchesResponse {
	matches := []*crm.MatchResult(results)
	if matches == nil {
		matches = []*crm.MatchResult{}
	}
	return matchesResponse{Count: len(matches), Matches: matches}
}
