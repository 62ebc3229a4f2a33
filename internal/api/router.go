package api

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/Hidiczent/Behere-Backend/internal/api/handlers"
	"github.com/Hidiczent/Behere-Backend/internal/api/middleware"
	"github.com/Hidiczent/Behere-Backend/internal/config"
	"github.com/Hidiczent/Behere-Backend/internal/matching"
	"github.com/Hidiczent/Behere-Backend/internal/repository"
	"github.com/Hidiczent/Behere-Backend/internal/service"
	"github.com/Hidiczent/Behere-Backend/internal/websocket"
	"github.com/Hidiczent/Behere-Backend/pkg/database"
	jwtutil "github.com/Hidiczent/Behere-Backend/pkg/jwt"
	"github.com/Hidiczent/Behere-Backend/pkg/logger"
	"github.com/Hidiczent/Behere-Backend/pkg/ratelimit"
)

// SetupRouter API 라우터 설정
func SetupRouter(cfg *config.Config, db *database.DB) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 전역 미들웨어
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	// Repository 초기화
	userRepo := repository.NewUserRepository(db)
	convRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	ratingRepo := repository.NewRatingRepository(db)
	reportRepo := repository.NewReportRepository(db)

	// Service 초기화
	userService := service.NewUserService(userRepo)
	ratingService := service.NewRatingService(ratingRepo, convRepo, userRepo)
	reportService := service.NewReportService(reportRepo, convRepo, userRepo)
	chatStore := service.NewChatStore(convRepo, userRepo, messageRepo)

	// 매칭 엔진 + WebSocket Hub 초기화 및 시작
	matcher := matching.NewMatcher(matching.Config{
		Cooldown:        cfg.MatchCooldown,
		LongWait:        cfg.MatchLongWait,
		RequireBothLong: cfg.MatchFallbackRequireBoth,
	}, nil)
	wsHub := websocket.NewHub(matcher, chatStore, websocket.Config{
		GracePeriod:       cfg.WSGracePeriod,
		ReplaceCloseDelay: cfg.WSReplaceCloseDelay,
		RetryDelay:        cfg.MatchRetryDelay,
		MessageRateLimit:  cfg.WSMessageRateLimit,
	}, nil)
	go wsHub.Run()
	logger.Info("WebSocket Hub started")

	// Rate Limit: REDIS_URL이 있으면 분산, 없으면 in-memory
	var authLimit, reportLimit gin.HandlerFunc
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("Invalid REDIS_URL", "error", err)
		}
		redisLimiter := ratelimit.NewRedisRateLimiter(redis.NewClient(opts), "behere")
		authLimit = middleware.RedisAuthRateLimit(redisLimiter)
		reportLimit = middleware.RedisReportRateLimit(redisLimiter)
		logger.Info("Redis rate limiter enabled")
	} else {
		authLimit = middleware.AuthRateLimit()
		reportLimit = middleware.ReportRateLimit()
	}

	// Handler 초기화
	jwtManager := jwtutil.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)
	authHandler := handlers.NewAuthHandler(userService, cfg)
	userHandler := handlers.NewUserHandler(userService)
	ratingHandler := handlers.NewRatingHandler(ratingService)
	reportHandler := handlers.NewReportHandler(reportService)
	convHandler := handlers.NewConversationHandler(convRepo, messageRepo)
	wsHandler := handlers.NewWebSocketHandler(wsHub, jwtManager)

	// Health check
	router.GET("/health", handlers.HealthCheck)

	// API v1
	v1 := router.Group("/api/v1")
	{
		// WebSocket endpoint (토큰은 쿼리/쿠키, 핸들러에서 검증)
		v1.GET("/ws", wsHandler.HandleWebSocket)

		// Auth routes
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authLimit, authHandler.Register)
			auth.POST("/login", authLimit, authHandler.Login)
		}

		// User routes
		users := v1.Group("/users")
		users.Use(middleware.Auth(cfg))
		{
			users.GET("/me", userHandler.GetCurrentUser)
			users.PUT("/me", userHandler.UpdateCurrentUser)
		}

		// Conversation routes
		conversations := v1.Group("/conversations")
		conversations.Use(middleware.Auth(cfg))
		{
			conversations.GET("", convHandler.ListMyConversations)
			conversations.GET("/:id/messages", convHandler.GetConversationMessages)
			conversations.POST("/:id/rating", ratingHandler.RateConversation)
			conversations.POST("/:id/report", reportLimit, reportHandler.ReportConversation)
		}
	}

	return router
}
