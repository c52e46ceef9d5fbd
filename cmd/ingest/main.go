// Command ingest bulk-loads a corpus directory into the knowledge base
// without starting the API server.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	appsvc "medassist/internal/app"
	"medassist/internal/config"
	"medassist/internal/embedding"
	"medassist/internal/model"
	chromaClient "medassist/internal/platform/chroma"
	mysqlClient "medassist/internal/platform/mysql"
	"medassist/internal/repository"
	"medassist/internal/vector"
)

func main() {
	_ = godotenv.Load()

	dir := flag.String("dir", "", "corpus directory to ingest (defaults to the configured corpus dir)")
	force := flag.Bool("force", false, "re-ingest documents even when their content is unchanged")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger failed: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config failed", zap.Error(err))
	}
	corpusDir := cfg.Corpus.Dir
	if *dir != "" {
		corpusDir = *dir
	}

	ctx := context.Background()

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		logger.Fatal("connect mysql failed", zap.Error(err))
	}
	if err := mysqlDB.AutoMigrate(&model.Document{}); err != nil {
		logger.Fatal("auto migrate failed", zap.Error(err))
	}

	_, collection, err := chromaClient.New(ctx, cfg.Chroma.BaseURL, cfg.Chroma.Collection)
	if err != nil {
		logger.Fatal("connect chroma failed", zap.Error(err))
	}
	index := vector.NewChromaIndex(collection)

	embedder := embedding.NewHTTPEmbedder(embedding.HTTPConfig{
		BaseURL:    cfg.Embedding.BaseURL,
		APIKey:     cfg.Embedding.APIKey,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
	})

	docRepo := repository.NewDocumentRepository(mysqlDB)
	ingestService := appsvc.NewIngestService(docRepo, embedder, index, corpusDir, logger)

	var report *appsvc.LoadReport
	if *force {
		report, err = ingestService.Reindex(ctx)
	} else {
		report, err = ingestService.LoadDir(ctx)
	}
	if err != nil {
		logger.Fatal("ingest failed", zap.Error(err))
	}

	logger.Info("ingest complete",
		zap.String("dir", corpusDir),
		zap.Int("documents", report.Documents),
		zap.Int("chunks", report.Chunks),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed))
}
