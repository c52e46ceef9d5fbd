package http

import (
	"time"

	"github.com/gin-gonic/gin"

	appsvc "medassist/internal/app"
	"medassist/internal/bootstrap"
	"medassist/internal/cache"
	"medassist/internal/platform/rabbitmq"
	"medassist/internal/repository"
	"medassist/internal/transport/http/handler"
	"medassist/internal/transport/http/middleware"
)

// NewRouter wires handlers onto the gin engine. ingestService is built by the
// caller because startup tasks (corpus load, seeding, the directory watcher)
// share it.
func NewRouter(app *bootstrap.App, ingestService *appsvc.IngestService) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery(), middleware.CORS())

	healthHandler := handler.NewHealthHandler(app)
	router.StaticFile("/", "web/index.html")
	router.GET("/healthz", healthHandler.Check)

	userRepo := repository.NewUserRepository(app.MySQL)
	conversationRepo := repository.NewConversationRepository(app.MySQL)
	messageRepo := repository.NewMessageRepository(app.MySQL)

	historyCache := cache.NewHistoryCache(
		app.Redis,
		time.Duration(app.Config.Redis.HistoryTTLSeconds)*time.Second,
		time.Duration(app.Config.Redis.HistoryDirtyTTLSeconds)*time.Second,
	)
	publisher := rabbitmq.NewMessagePublisher(app.MQConn, app.Config.RabbitMQ.MessagePersistQueue)

	conversationService := appsvc.NewConversationService(
		conversationRepo, messageRepo, publisher, historyCache, app.Logger)
	ragService := appsvc.NewRAGService(
		app.LLMClient,
		app.Embedder,
		app.Index,
		conversationService,
		app.ChatConfig,
		appsvc.RetrievalOptions{
			TopK:           app.Config.Retrieval.TopK,
			MinScore:       app.Config.Retrieval.MinScore,
			MaxPromptChars: app.Config.Retrieval.MaxPromptChars,
			MaxHistory:     app.Config.Retrieval.MaxHistory,
		},
		app.Logger,
	)
	authService := appsvc.NewAuthService(
		userRepo,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.JWTExpireMinute)*time.Minute,
	)

	authHandler := handler.NewAuthHandler(authService)
	chatHandler := handler.NewChatHandler(ragService, conversationService)
	documentHandler := handler.NewDocumentHandler(ingestService)

	v1 := router.Group("/api/v1")

	v1.POST("/chat", chatHandler.Chat)
	v1.POST("/chat/stream", chatHandler.ChatStream)
	v1.GET("/conversations/:id/history", chatHandler.GetHistory)
	v1.DELETE("/conversations/:id", chatHandler.DeleteConversation)
	v1.GET("/knowledge/stats", documentHandler.Stats)

	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(app.Config.Auth.JWTSecret), authHandler.Me)

	adminGroup := v1.Group("/admin")
	adminGroup.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))
	adminGroup.POST("/documents", documentHandler.Ingest)
	adminGroup.POST("/documents/upload", documentHandler.Upload)
	adminGroup.GET("/documents", documentHandler.List)
	adminGroup.DELETE("/documents/:title", documentHandler.Delete)
	adminGroup.POST("/reindex", documentHandler.Reindex)

	return router
}
