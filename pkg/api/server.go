// Package api exposes the pipeline's HTTP front door: submit a run,
// fetch its manifest, and a health check. It is a thin adapter over
// runmanager.Manager — no pipeline logic lives here.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/policypipeline/pkg/manifeststore"
	"github.com/codeready-toolchain/policypipeline/pkg/orchestrator"
	"github.com/codeready-toolchain/policypipeline/pkg/runmanager"
	"github.com/codeready-toolchain/policypipeline/pkg/telemetry"
)

// Server is the HTTP API server.
type Server struct {
	engine     *gin.Engine
	runs       *runmanager.Manager
	store      *manifeststore.Client
	newRunDeps func(SubmitRequest) (orchestrator.RunInput, error)
}

// NewServer builds a Server wired to runs and store. newRunDeps
// resolves an incoming request's document/questionnaire paths into a
// full orchestrator.RunInput (ingester, loader, scorer), since those
// collaborators are a deployment concern, not an HTTP concern.
func NewServer(runs *runmanager.Manager, store *manifeststore.Client, newRunDeps func(SubmitRequest) (orchestrator.RunInput, error)) *Server {
	s := &Server{
		engine:     gin.Default(),
		runs:       runs,
		store:      store,
		newRunDeps: newRunDeps,
	}
	s.setupRoutes()
	return s
}

// Handler returns the underlying http.Handler, for http.Server or tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Run starts the HTTP server listening on addr, blocking until it
// exits or fails.
func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}

func (s *Server) setupRoutes() {
	s.engine.POST("/runs", s.submitRun)
	s.engine.GET("/runs/:id", s.getRun)
	s.engine.GET("/healthz", s.health)
}

// SubmitRequest is the POST /runs request body.
type SubmitRequest struct {
	DocumentPath       string `json:"document_path" binding:"required"`
	QuestionnairePath  string `json:"questionnaire_path" binding:"required"`
	QuestionnaireHash  string `json:"questionnaire_hash" binding:"required"`
	CalibrationProfile string `json:"calibration_profile" binding:"required"`
	DefaultTimeoutMS   int64  `json:"default_timeout_ms" binding:"required"`
	AbortOnInsufficient bool  `json:"abort_on_insufficient"`
}

func (s *Server) submitRun(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	runInput, err := s.newRunDeps(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	run := s.runs.Submit(c.Request.Context(), runInput)

	if s.store != nil && run.Manifest != nil {
		if err := s.store.Save(c.Request.Context(), run.Manifest); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "manifest persisted failed: " + err.Error()})
			return
		}

		publisher := telemetry.NewPublisher(s.store.DB())
		if err := publisher.PublishManifest(c.Request.Context(), run.Manifest); err != nil {
			// Telemetry is a read-only observer of the run; a notify
			// failure never blocks or fails the submission it's
			// reporting on.
			slog.Warn("api: telemetry publish failed", "run_id", run.ID, "error", err)
		}
	}

	c.JSON(http.StatusCreated, gin.H{
		"run_id":         run.ID,
		"status":         run.Status,
		"overall_status": run.Manifest.OverallStatus,
	})
}

func (s *Server) getRun(c *gin.Context) {
	id := c.Param("id")

	run, err := s.runs.Get(id)
	if err == nil {
		c.JSON(http.StatusOK, gin.H{
			"run_id":      run.ID,
			"status":      run.Status,
			"manifest":    run.Manifest,
			"macro_score": run.MacroScore,
		})
		return
	}

	// The run isn't in memory, either the process restarted or the run
	// predates it. Fall back to the persisted manifest; macro_score
	// never survives to storage, so it comes back empty here.
	if s.store == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	manifest, storeErr := s.store.Get(c.Request.Context(), id)
	if storeErr != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":      id,
		"status":      manifest.OverallStatus,
		"manifest":    manifest,
		"macro_score": nil,
	})
}

func (s *Server) health(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "manifest_store": "disabled"})
		return
	}

	reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	dbHealth, err := manifeststore.Health(reqCtx, s.store.DB())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":         "unhealthy",
			"manifest_store": dbHealth,
			"error":          err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"manifest_store": dbHealth,
	})
}
