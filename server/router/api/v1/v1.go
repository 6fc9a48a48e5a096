// Package v1 exposes the ingestion, retrieval, and analysis API over HTTP.
package v1

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/doclave/doclave/internal/profile"
	"github.com/doclave/doclave/server/finops"
	"github.com/doclave/doclave/server/middleware"
	"github.com/doclave/doclave/server/service/ingest"
	"github.com/doclave/doclave/server/service/linter"
	"github.com/doclave/doclave/server/service/retrieval"
	"github.com/doclave/doclave/store"
)

// APIV1Service wires the pipeline services to HTTP routes.
type APIV1Service struct {
	Profile   *profile.Profile
	Store     *store.Store
	Ingestor  *ingest.Ingestor
	Retriever *retrieval.Retriever
	Linter    *linter.Linter
	Usage     *finops.UsageMonitor

	logger *slog.Logger
}

// NewAPIV1Service creates the API service.
func NewAPIV1Service(p *profile.Profile, s *store.Store, ingestor *ingest.Ingestor, retriever *retrieval.Retriever, lint *linter.Linter, usage *finops.UsageMonitor, logger *slog.Logger) *APIV1Service {
	return &APIV1Service{
		Profile:   p,
		Store:     s,
		Ingestor:  ingestor,
		Retriever: retriever,
		Linter:    lint,
		Usage:     usage,
		logger:    logger,
	}
}

// Register mounts all routes on the Echo instance.
func (s *APIV1Service) Register(e *echo.Echo) {
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestContextMiddleware())
	e.Use(echomw.CORS())

	e.GET("/healthz", s.Health)

	g := e.Group("/api/v1")
	g.Use(middleware.RateLimitMiddleware(middleware.NewRateLimiter(10, 20)))
	g.GET("/config", s.GetConfig)
	g.POST("/documents/analyze", s.AnalyzeDocument)
	g.POST("/documents/ingest", s.IngestDocument)
	g.POST("/documents/search", s.SearchDocuments)
	g.GET("/documents/stats", s.GetStats)
	g.GET("/usage", s.GetUsage)
	g.GET("/documents/:id/chunks", s.GetDocumentChunks)
	g.DELETE("/documents/:id", s.DeleteDocument)
}
