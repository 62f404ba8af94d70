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

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zfogg/tinyforum/backend/internal/auth"
	"github.com/zfogg/tinyforum/backend/internal/cache"
	"github.com/zfogg/tinyforum/backend/internal/config"
	"github.com/zfogg/tinyforum/backend/internal/database"
	"github.com/zfogg/tinyforum/backend/internal/email"
	"github.com/zfogg/tinyforum/backend/internal/events"
	"github.com/zfogg/tinyforum/backend/internal/forum"
	"github.com/zfogg/tinyforum/backend/internal/handlers"
	"github.com/zfogg/tinyforum/backend/internal/logger"
	"github.com/zfogg/tinyforum/backend/internal/metrics"
	"github.com/zfogg/tinyforum/backend/internal/middleware"
	"github.com/zfogg/tinyforum/backend/internal/search"
	"github.com/zfogg/tinyforum/backend/internal/telemetry"
	"github.com/zfogg/tinyforum/backend/internal/util"
	"github.com/zfogg/tinyforum/backend/internal/websocket"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	if err := cfg.Validate(); err != nil {
		logger.Log.Fatal("Invalid configuration", zap.Error(err))
	}

	logger.Log.Info("=== tinyforum server starting ===", zap.String("environment", cfg.Environment))

	ctx := context.Background()

	tracerProvider, err := telemetry.InitTracer(ctx, cfg)
	if err != nil {
		logger.Log.Warn("Tracing disabled", zap.Error(err))
	}

	// Initialize database
	if err := database.Initialize(cfg); err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer database.Close()

	if err := database.DB.Use(telemetry.GORMTracingPlugin(nil)); err != nil {
		logger.Log.Warn("Failed to register GORM tracing", zap.Error(err))
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		logger.Log.Fatal("Failed to run migrations", zap.Error(err))
	}

	metrics.Initialize()
	bus := events.NewBus()
	opts := []forum.Option{forum.WithEvents(bus)}

	var redisClient *cache.RedisClient
	if cfg.RedisEnabled() {
		redisClient, err = cache.NewRedisClient(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
		if err != nil {
			logger.Log.Warn("Redis unavailable, starred threads will not be cached", zap.Error(err))
		} else {
			defer redisClient.Close()
			opts = append(opts, forum.WithStarCache(cache.NewStarCache(redisClient)))
		}
	}

	if cfg.ElasticsearchURL != "" {
		searchClient, err := search.NewClient(cfg.ElasticsearchURL)
		if err == nil {
			err = searchClient.EnsureIndex(ctx)
		}
		if err != nil {
			logger.Log.Warn("Elasticsearch unavailable, falling back to SQL search", zap.Error(err))
		} else {
			search.SubscribeForumEvents(bus, searchClient)
			opts = append(opts, forum.WithSearcher(searchClient))
		}
	}

	var sender email.Sender = email.LogSender{}
	if cfg.EmailEnabled() {
		sesSender, err := email.NewSESSender(ctx, cfg.AWSRegion, cfg.EmailFrom, cfg.EmailFromName)
		if err != nil {
			logger.Log.Warn("SES unavailable, emails will only be logged", zap.Error(err))
		} else {
			sender = sesSender
		}
	}
	email.NewNotifier(sender, cfg.PublicBaseURL).Subscribe(bus)

	metrics.SubscribeForumEvents(bus)

	forumService := forum.NewService(database.DB, opts...)
	authService := auth.NewService(database.DB, cfg.JWTSecret)

	// Start WebSocket hub in background
	wsHub := websocket.NewHub()
	go wsHub.Run()
	websocket.SubscribeForumEvents(bus, wsHub)
	wsHandler := websocket.NewHandler(wsHub, forumService, cfg.CORSAllowedOrigins)

	// Initialize handlers
	h := handlers.NewHandlers(forumService, authService)
	if redisClient != nil {
		h.SetRedis(redisClient)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())
	if tracerProvider != nil {
		r.Use(middleware.TracingMiddleware(telemetry.ServiceName)...)
	}

	// CORS middleware
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", util.RequestIDHeader}
	r.Use(cors.New(corsConfig))
	r.Use(gzip.Gzip(gzip.DefaultCompression,
		gzip.WithExcludedPaths([]string{"/metrics"}),
		gzip.WithExcludedPathsRegexs([]string{`/ws$`}),
	))

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	defaultLimit := middleware.DefaultRateLimitConfig()
	defaultLimit.Limit = cfg.RateLimitPerMinute

	api := r.Group("/api/v1", middleware.NewRateLimiter(defaultLimit))
	h.RegisterRoutes(api, wsHandler.HandleThreadRoom, handlers.Limits{
		Auth:  middleware.NewRateLimiter(middleware.AuthRateLimitConfig()),
		Write: middleware.NewRateLimiter(middleware.WriteRateLimitConfig()),
	})
	api.GET("/ws/stats", auth.RequireAuth(authService), auth.RequireModerator(), wsHandler.HandleStats)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info("tinyforum listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown WebSocket connections gracefully
	if err := wsHub.Shutdown(shutdownCtx); err != nil {
		logger.Log.Warn("WebSocket shutdown warning", zap.Error(err))
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	if tracerProvider != nil {
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			logger.Log.Warn("Tracer shutdown warning", zap.Error(err))
		}
	}

	logger.Log.Info("Server exited")
}
