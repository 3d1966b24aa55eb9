package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/parleychat/parley/internal/auth"
	"github.com/parleychat/parley/internal/cache"
	"github.com/parleychat/parley/internal/config"
	"github.com/parleychat/parley/internal/domain"
	"github.com/parleychat/parley/internal/handler"
	"github.com/parleychat/parley/internal/hub"
	"github.com/parleychat/parley/internal/kafka"
	"github.com/parleychat/parley/internal/presence"
	"github.com/parleychat/parley/internal/repository"
	"github.com/parleychat/parley/internal/service"
	"github.com/parleychat/parley/pkg/database"
	pkglog "github.com/parleychat/parley/pkg/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load configuration")
	}

	pkglog.Init(pkglog.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty, ServiceName: "parley"})
	logger := pkglog.L()

	logger.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("starting parley")

	if cfg.Auth.JWTSecret == "" {
		logger.Fatal().Msg("JWT_SECRET is required")
	}
	verifier := auth.NewHMACVerifier(cfg.Auth.JWTSecret)

	// Database
	db, err := database.New(&cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.AutoMigrate(db,
		&domain.ChannelModel{},
		&domain.MessageModel{},
		&domain.BlockModel{},
		&domain.PresenceModel{},
	); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("connected to database")

	chatRepo := repository.NewGormChatRepository(db)
	blockRepo := repository.NewGormBlockRepository(db)
	presenceRepo := repository.NewGormPresenceRepository(db)

	// Channel cache (optional)
	var channelCache cache.ChannelCache
	if cfg.Redis.Enabled {
		rc, err := cache.NewRedisChannelCache(cfg.Redis.CacheConfig(), "parley")
		if err != nil {
			logger.Warn().Err(err).Msg("failed to connect to redis, channel cache disabled")
		} else {
			defer rc.Close()
			channelCache = rc
			logger.Info().Str("address", cfg.Redis.Address).Msg("connected to redis")
		}
	}

	// Kafka producer for integration events (optional)
	var producer kafka.EventProducer
	if cfg.Kafka.Enabled {
		p, err := kafka.NewConfluentProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Partitions)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to create kafka producer, chat events disabled")
		} else {
			defer p.Close()
			producer = p
			logger.Info().Str("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("connected to kafka")
		}
	}

	// Core components
	wsHub := hub.NewHub()
	tracker := presence.NewTracker(wsHub, presenceRepo, producer)
	chatSvc := service.NewChatService(wsHub, tracker, chatRepo, blockRepo, presenceRepo, channelCache, cfg.Redis.CacheTTL, producer)

	// Handlers
	wsHandler := handler.NewWSHandler(wsHub, chatSvc, verifier, cfg.WebSocket)
	httpHandler := handler.NewHTTPHandler(chatSvc, handler.RequireAuth(verifier))

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(pkglog.GinMiddleware(logger))
	httpHandler.RegisterRoutes(router)
	router.GET("/ws", gin.WrapF(wsHandler.HandleWebSocket))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("parley listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down parley")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("parley stopped")
}
