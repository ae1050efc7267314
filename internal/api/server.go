// Package api provides the read-only HTTP API over stored simulation runs.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/talgya/site-awareness/internal/batch"
	"github.com/talgya/site-awareness/internal/config"
	"github.com/talgya/site-awareness/internal/engine"
	"github.com/talgya/site-awareness/internal/persistence"
)

// Store is the read side of the results database.
type Store interface {
	ListRuns(ctx context.Context) ([]persistence.RunRecord, error)
	GetRun(ctx context.Context, runID string) (persistence.RunRecord, error)
	StepMetrics(ctx context.Context, runID string) ([]engine.StepMetrics, error)
	AgentMetrics(ctx context.Context, runID string, step *int) ([]engine.AgentMetrics, error)
}

// Server serves stored runs over HTTP.
type Server struct {
	store Store
	addr  string
	echo  *echo.Echo
}

// NewServer builds the router for store.
func NewServer(store Store, cfg config.APIConfig) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(requestLogger())
	if len(cfg.CORSOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.CORSOrigins,
			AllowMethods: []string{http.MethodGet, http.MethodOptions},
		}))
	}
	if cfg.RequestsPerMinute > 0 {
		e.Use(RateLimit(NewRateLimiter(cfg.RequestsPerMinute, time.Minute)))
	}

	s := &Server{store: store, addr: cfg.Addr, echo: e}

	v1 := e.Group("/api/v1")
	v1.GET("/status", s.handleStatus)
	v1.GET("/runs", s.handleRuns)
	v1.GET("/runs/:id", s.handleRun)
	v1.GET("/runs/:id/steps", s.handleSteps)
	v1.GET("/runs/:id/agents", s.handleAgents)
	v1.GET("/summary", s.handleSummary)

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	slog.Info("HTTP API starting", "addr", s.addr)

	errc := make(chan error, 1)
	go func() {
		errc <- s.echo.Start(s.addr)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	slog.Info("HTTP API stopping")
	return s.echo.Shutdown(shutdownCtx)
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				slog.Warn("request failed", append(attrs, "error", v.Error)...)
				return nil
			}
			slog.Debug("request", attrs...)
			return nil
		},
	})
}

func (s *Server) handleStatus(c echo.Context) error {
	runs, err := s.store.ListRuns(c.Request().Context())
	if err != nil {
		return s.internalError(c, "list runs", err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"runs":   len(runs),
	})
}

// handleRuns lists runs, optionally filtered by ?reporting= and ?org=.
func (s *Server) handleRuns(c echo.Context) error {
	runs, err := s.store.ListRuns(c.Request().Context())
	if err != nil {
		return s.internalError(c, "list runs", err)
	}
	rep, org := c.QueryParam("reporting"), c.QueryParam("org")
	out := make([]persistence.RunRecord, 0, len(runs))
	for _, r := range runs {
		if (rep == "" || r.ReportingStructure == rep) && (org == "" || r.OrgStructure == org) {
			out = append(out, r)
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleRun(c echo.Context) error {
	run, err := s.store.GetRun(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.lookupError(c, err)
	}
	return c.JSON(http.StatusOK, run)
}

func (s *Server) handleSteps(c echo.Context) error {
	rows, err := s.store.StepMetrics(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.lookupError(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

// handleAgents returns agent rows, all logged steps or just ?step=N.
func (s *Server) handleAgents(c echo.Context) error {
	var step *int
	if q := c.QueryParam("step"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "step must be a non-negative integer"})
		}
		step = &n
	}
	rows, err := s.store.AgentMetrics(c.Request().Context(), c.Param("id"), step)
	if err != nil {
		return s.lookupError(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

// handleSummary aggregates the final step of every stored run by configuration.
func (s *Server) handleSummary(c echo.Context) error {
	runs, err := batch.Stored(c.Request().Context(), s.store)
	if err != nil {
		return s.internalError(c, "summarize runs", err)
	}
	return c.JSON(http.StatusOK, batch.Summarize(runs))
}

func (s *Server) lookupError(c echo.Context, err error) error {
	if errors.Is(err, persistence.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "run not found"})
	}
	return s.internalError(c, "lookup run", err)
}

func (s *Server) internalError(c echo.Context, what string, err error) error {
	slog.Error("api error", "op", what, "path", c.Path(), "error", err)
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
}
