// Package api serves a workflow.API backend over HTTP. The client package
// speaks the same routes.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rustyeddy/hedger/hedge"
	"github.com/rustyeddy/hedger/sim"
	"github.com/rustyeddy/hedger/store"
	"github.com/rustyeddy/hedger/workflow"
)

// Journal adds listing and history routes when the backend has a store.
type Journal interface {
	List(ctx context.Context, f store.Filter) ([]hedge.Relationship, error)
	ListEvents(ctx context.Context, hedgeID string) ([]store.Event, error)
}

type Config struct {
	Host    string
	Port    int
	Metrics bool
}

type Server struct {
	echo    *echo.Echo
	api     workflow.API
	journal Journal
	logger  *zap.Logger
	config  *Config
}

type TemplateResponse struct {
	Exists bool `json:"exists"`
}

type AnalyticsResponse struct {
	Available bool `json:"available"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

// NewServer wires the routes. journal may be nil.
func NewServer(backend workflow.API, journal Journal, logger *zap.Logger, cfg *Config) (*Server, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 8080}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return nil
		}
	})

	s := &Server{echo: e, api: backend, journal: journal, logger: logger, config: cfg}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	if s.config.Metrics {
		s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	}

	v1 := s.echo.Group("/api/v1")
	v1.GET("/analytics", s.handleAnalytics)
	v1.POST("/hedges", s.handleSave)
	v1.GET("/hedges/:id", s.handleGet)
	v1.POST("/hedges/:id/regressions", s.handleRegression)
	v1.GET("/hedges/:id/template", s.handleTemplate)
	v1.POST("/hedges/:id/designate", s.handleDesignate)
	v1.GET("/hedges/:id/redesignation", s.handleRedesignateFetch)
	v1.POST("/hedges/:id/redesignation", s.handleRedesignateConfirm)
	v1.GET("/hedges/:id/dedesignation", s.handleDedesignateFetch)
	v1.POST("/hedges/:id/dedesignation", s.handleDedesignateConfirm)
	v1.POST("/hedges/:id/redraft", s.handleRedraft)
	v1.DELETE("/hedges/:id/amortizations/:aid", s.handleDeleteAmortization)

	if s.journal != nil {
		v1.GET("/hedges", s.handleList)
		v1.GET("/hedges/:id/events", s.handleEvents)
	}
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.echo }

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleAnalytics(c echo.Context) error {
	ok, err := s.api.CheckAnalyticsAvailable(c.Request().Context())
	if err != nil {
		return s.fail(err)
	}
	return c.JSON(http.StatusOK, AnalyticsResponse{Available: ok})
}

func (s *Server) handleGet(c echo.Context) error {
	rel, err := s.api.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.fail(err)
	}
	return c.JSON(http.StatusOK, rel)
}

func (s *Server) handleSave(c echo.Context) error {
	rel, err := bindRelationship(c)
	if err != nil {
		return err
	}
	out, err := s.api.Save(c.Request().Context(), rel)
	if err != nil {
		return s.fail(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleRegression(c echo.Context) error {
	rel, err := bindRelationship(c)
	if err != nil {
		return err
	}
	rel.ID = c.Param("id")

	rt := hedge.ResultType(c.QueryParam("type"))
	if rt == "" {
		rt = hedge.ResultUser
	}
	if !hedge.Valid(rt, hedge.ResultTypes) {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unknown result type %q", rt))
	}

	out, err := s.api.RunRegression(c.Request().Context(), rel, rt)
	if err != nil {
		return s.fail(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleTemplate(c echo.Context) error {
	ok, err := s.api.FindDocumentTemplate(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.fail(err)
	}
	return c.JSON(http.StatusOK, TemplateResponse{Exists: ok})
}

func (s *Server) handleDesignate(c echo.Context) error {
	rel, err := bindRelationship(c)
	if err != nil {
		return err
	}
	rel.ID = c.Param("id")
	if err := s.api.Designate(c.Request().Context(), rel); err != nil {
		return s.fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleRedesignateFetch(c echo.Context) error {
	p, err := s.api.RedesignateFetch(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.fail(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) handleRedesignateConfirm(c echo.Context) error {
	var p hedge.ReDesignation
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	out, err := s.api.RedesignateConfirm(c.Request().Context(), c.Param("id"), p)
	if err != nil {
		return s.fail(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleDedesignateFetch(c echo.Context) error {
	reason := hedge.DedesignationReason(c.QueryParam("reason"))
	p, err := s.api.DedesignateFetch(c.Request().Context(), c.Param("id"), reason)
	if err != nil {
		return s.fail(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) handleDedesignateConfirm(c echo.Context) error {
	var p hedge.DeDesignation
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	out, err := s.api.DedesignateConfirm(c.Request().Context(), c.Param("id"), p)
	if err != nil {
		return s.fail(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleRedraft(c echo.Context) error {
	out, err := s.api.Redraft(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.fail(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleDeleteAmortization(c echo.Context) error {
	if err := s.api.DeleteAmortization(c.Request().Context(), c.Param("id"), c.Param("aid")); err != nil {
		return s.fail(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleList(c echo.Context) error {
	f := store.Filter{
		State:     hedge.State(c.QueryParam("state")),
		HedgeType: hedge.HedgeType(c.QueryParam("type")),
	}
	rels, err := s.journal.List(c.Request().Context(), f)
	if err != nil {
		return s.fail(err)
	}
	if rels == nil {
		rels = []hedge.Relationship{}
	}
	return c.JSON(http.StatusOK, rels)
}

func (s *Server) handleEvents(c echo.Context) error {
	events, err := s.journal.ListEvents(c.Request().Context(), c.Param("id"))
	if err != nil {
		return s.fail(err)
	}
	if events == nil {
		events = []store.Event{}
	}
	return c.JSON(http.StatusOK, events)
}

func bindRelationship(c echo.Context) (hedge.Relationship, error) {
	var rel hedge.Relationship
	if err := c.Bind(&rel); err != nil {
		return hedge.Relationship{}, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return rel, nil
}

// fail maps backend errors onto HTTP statuses.
func (s *Server) fail(err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, sim.ErrState), errors.Is(err, sim.ErrBackloadRun):
		status = http.StatusConflict
	case errors.Is(err, sim.ErrBadReason), errors.Is(err, sim.ErrBadDate), errors.Is(err, sim.ErrNoTemplate):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("backend error", zap.Error(err))
	}
	return echo.NewHTTPError(status, err.Error())
}
