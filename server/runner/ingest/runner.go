// Package ingest implements the inbox runner: a background task that
// periodically scans a directory and ingests any supported documents
// dropped into it.
package ingest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/doclave/doclave/plugin/decoder"
	"github.com/doclave/doclave/server/service/ingest"
)

type Runner struct {
	ingestor *ingest.Ingestor
	inboxDir string
	interval time.Duration
	logger   *slog.Logger
}

func NewRunner(ingestor *ingest.Ingestor, inboxDir string, logger *slog.Logger) *Runner {
	return &Runner{
		ingestor: ingestor,
		inboxDir: inboxDir,
		interval: 2 * time.Minute,
		logger:   logger,
	}
}

// Run starts the background task.
func (r *Runner) Run(ctx context.Context) {
	// Process once on startup
	r.processInbox(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.processInbox(ctx)
		case <-ctx.Done():
			r.logger.Info("inbox runner stopped")
			return
		}
	}
}

// RunOnce scans the inbox once (for manual trigger).
func (r *Runner) RunOnce(ctx context.Context) {
	r.processInbox(ctx)
}

func (r *Runner) processInbox(ctx context.Context) {
	entries, err := os.ReadDir(r.inboxDir)
	if err != nil {
		r.logger.Error("failed to read inbox directory", "dir", r.inboxDir, "error", err)
		return
	}

	var pending []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if decoder.Supported(entry.Name()) {
			pending = append(pending, entry.Name())
		}
	}
	if len(pending) == 0 {
		return
	}

	r.logger.Info("processing inbox documents", "count", len(pending))

	stored, skipped := 0, 0
	for _, name := range pending {
		select {
		case <-ctx.Done():
			r.logger.Info("inbox processing cancelled", "stored", stored, "skipped", skipped)
			return
		default:
		}

		content, err := os.ReadFile(filepath.Join(r.inboxDir, name))
		if err != nil {
			r.logger.Error("failed to read inbox document", "filename", name, "error", err)
			continue
		}

		result, err := r.ingestor.IngestFile(ctx, name, content)
		if err != nil {
			r.logger.Error("failed to ingest inbox document", "filename", name, "error", err)
			continue
		}
		switch result.Status {
		case ingest.StatusStored:
			stored++
		case ingest.StatusAlreadyExists:
			skipped++
		}
	}

	r.logger.Info("inbox scan complete", "stored", stored, "skipped", skipped)
}
