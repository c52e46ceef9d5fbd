// Package bootstrap wires configuration, infrastructure clients, and the
// background worker into a ready-to-serve application.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"medassist/internal/ai"
	"medassist/internal/config"
	"medassist/internal/embedding"
	"medassist/internal/model"
	chromaClient "medassist/internal/platform/chroma"
	mysqlClient "medassist/internal/platform/mysql"
	rabbitmqClient "medassist/internal/platform/rabbitmq"
	redisClient "medassist/internal/platform/redis"
	"medassist/internal/repository"
	"medassist/internal/vector"
	"medassist/internal/worker"
)

type App struct {
	Config        *config.Config
	Logger        *zap.Logger
	MySQL         *gorm.DB
	Redis         *redis.Client
	MQConn        *amqp.Connection
	MessageWorker *worker.MessagePersistWorker
	Index         vector.Index
	Embedder      embedding.Embedder
	LLMClient     *ai.OpenAICompatibleClient
	ChatConfig    ai.ChatConfig

	StartedAt time.Time
}

func New(ctx context.Context, logger *zap.Logger) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(&model.User{}, &model.Conversation{}, &model.Message{}, &model.Document{}); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	index := newIndex(ctx, cfg, logger)
	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	messageRepo := repository.NewMessageRepository(mysqlDB)
	messageWorker := worker.NewMessagePersistWorker(mqConn, messageRepo, cfg.RabbitMQ.MessagePersistQueue, logger)
	if err := messageWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start message worker failed: %w", err)
	}

	return &App{
		Config:        cfg,
		Logger:        logger,
		MySQL:         mysqlDB,
		Redis:         redisCli,
		MQConn:        mqConn,
		MessageWorker: messageWorker,
		Index:         index,
		Embedder:      embedder,
		LLMClient:     ai.NewOpenAICompatibleClient(),
		ChatConfig: ai.ChatConfig{
			BaseURL:   cfg.LLM.BaseURL,
			APIKey:    cfg.LLM.APIKey,
			Model:     cfg.LLM.Model,
			MaxTokens: cfg.LLM.MaxTokens,
		},
		StartedAt: time.Now(),
	}, nil
}

// newIndex connects to ChromaDB, falling back to the in-memory index so the
// service still boots when the vector store is down. Retrieval quality
// degrades but chat keeps working.
func newIndex(ctx context.Context, cfg *config.Config, logger *zap.Logger) vector.Index {
	if cfg.Chroma.BaseURL == "" {
		logger.Info("no chroma base url configured, using in-memory vector index")
		return vector.NewMemoryIndex()
	}
	_, collection, err := chromaClient.New(ctx, cfg.Chroma.BaseURL, cfg.Chroma.Collection)
	if err != nil {
		logger.Warn("chroma unavailable, falling back to in-memory vector index", zap.Error(err))
		return vector.NewMemoryIndex()
	}
	logger.Info("chroma vector index ready",
		zap.String("base_url", cfg.Chroma.BaseURL),
		zap.String("collection", cfg.Chroma.Collection))
	return vector.NewChromaIndex(collection)
}

func newEmbedder(cfg *config.Config) (embedding.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "onnx":
		embedder, err := embedding.NewONNXEmbedder(
			cfg.Embedding.ModelPath,
			cfg.Embedding.Dimensions,
			cfg.Embedding.MaxTokens,
			cfg.Embedding.CacheSize,
		)
		if err != nil {
			return nil, fmt.Errorf("init onnx embedder failed: %w", err)
		}
		return embedder, nil
	default:
		return embedding.NewHTTPEmbedder(embedding.HTTPConfig{
			BaseURL:    cfg.Embedding.BaseURL,
			APIKey:     cfg.Embedding.APIKey,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
		}), nil
	}
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MessageWorker != nil {
		a.MessageWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Embedder != nil {
		if err := a.Embedder.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
