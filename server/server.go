// Package server assembles the pipeline services behind one HTTP server.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/doclave/doclave/internal/profile"
	"github.com/doclave/doclave/plugin/ai"
	"github.com/doclave/doclave/server/finops"
	apiv1 "github.com/doclave/doclave/server/router/api/v1"
	ingestrunner "github.com/doclave/doclave/server/runner/ingest"
	"github.com/doclave/doclave/server/service/ingest"
	"github.com/doclave/doclave/server/service/linter"
	"github.com/doclave/doclave/server/service/retrieval"
	"github.com/doclave/doclave/store"
)

// Server owns the HTTP server and the background inbox runner.
type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer  *echo.Echo
	ingestor    *ingest.Ingestor
	retriever   *retrieval.Retriever
	linter      *linter.Linter
	inboxRunner *ingestrunner.Runner
	logger      *slog.Logger
}

// NewServer wires the services from the profile and store.
func NewServer(ctx context.Context, p *profile.Profile, s *store.Store, logger *slog.Logger) (*Server, error) {
	aiConfig := ai.NewConfigFromProfile(p)
	if err := aiConfig.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid AI configuration")
	}

	usageMonitor := finops.NewUsageMonitor()
	aiConfig.Embedding.Usage = usageMonitor
	aiConfig.Chat.Usage = usageMonitor

	embedder, err := ai.NewEmbeddingService(&aiConfig.Embedding)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create embedding service")
	}

	// Chat is optional: without it the reference staleness check is
	// simply skipped.
	var chat ai.ChatService
	if aiConfig.Chat.Model != "" {
		chat, err = ai.NewChatService(&aiConfig.Chat)
		if err != nil {
			logger.Warn("chat service disabled", "error", err)
			chat = nil
		}
	}

	golden, err := linter.LoadGoldenEmbeddings(p.GoldenEmbeddings)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load golden embeddings")
	}

	ingestor := ingest.NewIngestor(s, embedder, p, logger)
	retriever := retrieval.NewRetriever(s, embedder, p, logger)
	if aiConfig.Reranker.Enabled {
		retriever.SetReranker(ai.NewRerankerService(&aiConfig.Reranker))
	}
	lint := linter.NewLinter(retriever, chat, embedder, golden, logger)

	srv := &Server{
		Profile:   p,
		Store:     s,
		ingestor:  ingestor,
		retriever: retriever,
		linter:    lint,
		logger:    logger,
	}

	echoServer := echo.New()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	apiService := apiv1.NewAPIV1Service(p, s, ingestor, retriever, lint, usageMonitor, logger)
	apiService.Register(echoServer)
	srv.echoServer = echoServer

	if p.InboxDir != "" {
		srv.inboxRunner = ingestrunner.NewRunner(ingestor, p.InboxDir, logger)
	}

	return srv, nil
}

// Start runs the background runner and serves HTTP. It blocks until
// the listener fails or the context is canceled.
func (s *Server) Start(ctx context.Context) error {
	if s.inboxRunner != nil {
		go s.inboxRunner.Run(ctx)
	}

	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	s.logger.Info("server started",
		slog.String("address", address),
		slog.String("driver", s.Profile.Driver),
		slog.String("collection", s.Profile.Collection),
	)
	return s.echoServer.Start(address)
}

// Shutdown stops the HTTP server and closes the store.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		s.logger.Error("failed to shut down server", "error", err)
	}
	if err := s.Store.Close(); err != nil {
		s.logger.Error("failed to close store", "error", err)
	}
	s.logger.Info("server shut down")
}
