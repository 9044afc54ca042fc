package main

import (
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/relaychat/moderation/config"
	"github.com/relaychat/moderation/internal/admin"
	"github.com/relaychat/moderation/internal/audit"
	"github.com/relaychat/moderation/internal/auth"
	"github.com/relaychat/moderation/internal/cache"
	"github.com/relaychat/moderation/internal/database"
	"github.com/relaychat/moderation/internal/handlers"
	"github.com/relaychat/moderation/internal/middleware"
	"github.com/relaychat/moderation/internal/repository"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("Failed to load config")
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "moderation").Logger()
	if cfg.Server.Env == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	// Connect to database
	db, err := database.NewPostgresDB(cfg.GetDSN())
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Run migrations
	logger.Info().Msg("Running database migrations")
	if err := database.RunMigrations(db.DB); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Resolve schema capabilities once; the cascade orchestrator branches on
	// this descriptor instead of probing per command.
	caps, err := database.DetectCapabilities(db.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to detect schema capabilities")
	}
	logger.Info().
		Bool("sessions", caps.HasSessions).
		Bool("friendships", caps.HasFriendships).
		Bool("channel_members", caps.HasChannelMembers).
		Bool("deactivated_column", caps.HasDeactivatedColumn).
		Msg("Schema capabilities resolved")

	// Connect to Redis
	redis, err := cache.NewRedisClient(cfg.GetRedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Warn().Err(err).Msg("Running without Redis - ban badge cache and shared rate limits disabled")
		redis = nil
	} else {
		defer redis.Close()
	}

	// Initialize services
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpiryHours)
	auditLog := audit.New(logger)

	// Initialize repositories
	accountRepo := repository.NewAccountRepository(db)
	channelRepo := repository.NewChannelRepository(db)
	banRepo := repository.NewBanRepository(db, auditLog, redis)
	cascadeRepo := repository.NewCascadeRepository(db, caps, auditLog)

	// Privileged command pipeline
	gate := admin.NewGate(accountRepo)
	dispatcher := admin.NewDispatcher(gate, accountRepo, channelRepo, banRepo, cascadeRepo, auditLog)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(accountRepo, jwtService)
	adminHandler := handlers.NewAdminHandler(dispatcher)
	moderationHandler := handlers.NewModerationHandler(banRepo, redis)

	// Initialize rate limiter (local fallback for the Redis token bucket)
	rateLimiter := middleware.NewRateLimiter(cfg.Admin.CommandsPerMinute)
	rateLimiter.Cleanup()

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Public routes
	router.POST("/auth/login", authHandler.Login)

	// Protected routes
	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(jwtService))
	{
		api.GET("/me", authHandler.GetMe)

		// Privileged commands: every call re-verifies the actor's secret.
		api.POST("/admin/command",
			middleware.CommandRateLimit(rateLimiter, redis, cfg.Admin.CommandsPerMinute),
			adminHandler.ExecuteCommand)

		// Read paths for presentation collaborators; no gate.
		api.GET("/moderation/:subject_type/:id/ban", moderationHandler.GetActiveBan)
		api.GET("/moderation/:subject_type/:id/audit", moderationHandler.ListAudit)
	}

	// Start server
	addr := ":" + cfg.Server.Port
	logger.Info().Str("addr", addr).Str("env", cfg.Server.Env).Msg("Starting moderation server")
	if err := router.Run(addr); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
}
