package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	appsvc "medassist/internal/app"
	"medassist/internal/bootstrap"
	"medassist/internal/corpus"
	"medassist/internal/repository"
	httptransport "medassist/internal/transport/http"
)

func main() {
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, logger)
	if err != nil {
		logger.Fatal("bootstrap failed", zap.Error(err))
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("close resources failed", zap.Error(err))
		}
	}()

	docRepo := repository.NewDocumentRepository(app.MySQL)
	ingestService := appsvc.NewIngestService(docRepo, app.Embedder, app.Index, app.Config.Corpus.Dir, logger)

	prepareKnowledgeBase(ctx, app.Config.Corpus.Dir, ingestService, logger)

	if app.Config.Corpus.Watch {
		watcher := corpus.NewWatcher(
			app.Config.Corpus.Dir,
			func(path string) {
				if _, err := ingestService.IngestFile(context.Background(), path); err != nil {
					logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(err))
				}
			},
			func(path string) {
				err := ingestService.RemoveByPath(context.Background(), path)
				if err != nil && !errors.Is(err, appsvc.ErrDocumentNotFound) {
					logger.Warn("watch remove failed", zap.String("path", path), zap.Error(err))
				}
			},
			logger,
		)
		if err := watcher.Start(ctx); err != nil {
			logger.Warn("corpus watcher failed to start", zap.Error(err))
		}
	}

	router := httptransport.NewRouter(app, ingestService)
	server := &http.Server{
		Addr:              app.Config.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown failed", zap.Error(err))
	}
}

// prepareKnowledgeBase ingests the corpus directory and seeds starter content
// into an empty index. Failures are logged, not fatal; the chat API can run
// with a partial knowledge base.
func prepareKnowledgeBase(ctx context.Context, corpusDir string, ingestService *appsvc.IngestService, logger *zap.Logger) {
	if corpusDir != "" {
		if _, err := os.Stat(corpusDir); err == nil {
			report, err := ingestService.LoadDir(ctx)
			if err != nil {
				logger.Warn("corpus load failed", zap.Error(err))
			} else {
				logger.Info("corpus loaded",
					zap.Int("documents", report.Documents),
					zap.Int("chunks", report.Chunks),
					zap.Int("skipped", report.Skipped),
					zap.Int("failed", report.Failed))
			}
		}
	}

	if err := ingestService.SeedIfEmpty(ctx); err != nil {
		logger.Warn("seed knowledge base failed", zap.Error(err))
	}
}
