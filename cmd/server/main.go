// Package main provides the entry point for the Corpora API server
package main

import (
	"context"
	"log/slog"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/corpora-dev/corpora/domain/chunks"
	"github.com/corpora-dev/corpora/domain/containers"
	"github.com/corpora-dev/corpora/domain/documents"
	"github.com/corpora-dev/corpora/domain/folders"
	"github.com/corpora-dev/corpora/domain/health"
	"github.com/corpora-dev/corpora/domain/ingest"
	"github.com/corpora-dev/corpora/domain/reindex"
	"github.com/corpora-dev/corpora/domain/search"
	"github.com/corpora-dev/corpora/domain/settings"
	"github.com/corpora-dev/corpora/internal/config"
	"github.com/corpora-dev/corpora/internal/database"
	"github.com/corpora-dev/corpora/internal/jobs"
	"github.com/corpora-dev/corpora/internal/metrics"
	"github.com/corpora-dev/corpora/internal/migrate"
	"github.com/corpora-dev/corpora/internal/server"
	"github.com/corpora-dev/corpora/internal/storage"
	"github.com/corpora-dev/corpora/pkg/embeddings"
	"github.com/corpora-dev/corpora/pkg/logger"
	"github.com/corpora-dev/corpora/pkg/parser"
)

func main() {
	// Load .env files if present (for local development).
	// Load() won't overwrite existing vars, Overload() will.
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	fx.New(
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log}
		}),

		// Infrastructure modules
		logger.Module,
		config.Module,
		database.Module,
		migrate.Module,
		server.Module,
		storage.Module,
		jobs.Module,
		metrics.Module,

		// Schema migrations must run before any domain module touches
		// the database during startup
		fx.Invoke(runMigrations),

		// Shared service clients
		embeddings.Module,
		parser.Module,

		// Domain modules. Settings loads before ingest so the worker
		// pool sees persisted values at start.
		health.Module,
		settings.Module,
		containers.Module,
		folders.Module,
		documents.Module,
		chunks.Module,
		ingest.Module,
		search.Module,
		reindex.Module,
	).Run()
}

// runMigrations applies pending schema migrations before the server
// starts accepting traffic
func runMigrations(lc fx.Lifecycle, m *migrate.Migrator) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return m.Up(ctx)
		},
	})
}
