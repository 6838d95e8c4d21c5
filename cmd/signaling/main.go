package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/remotedeck/remotedeck/pkg/common"
	"github.com/remotedeck/remotedeck/pkg/config"
	"github.com/remotedeck/remotedeck/pkg/domain/session"
	handlers "github.com/remotedeck/remotedeck/pkg/handlers/http"
	wsHandlers "github.com/remotedeck/remotedeck/pkg/handlers/websocket"
	"github.com/remotedeck/remotedeck/pkg/infra/cache"
	infraLogger "github.com/remotedeck/remotedeck/pkg/infra/logger"
	"github.com/remotedeck/remotedeck/pkg/infra/registry"
	"github.com/remotedeck/remotedeck/pkg/middleware"
	"github.com/remotedeck/remotedeck/pkg/relay"
	"github.com/remotedeck/remotedeck/pkg/server"
	"golang.org/x/sync/errgroup"
)

func main() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	logger := infraLogger.NewLogger()

	if err := config.Load("config"); err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	cfg := config.GetConfig()

	sessionTTL, err := time.ParseDuration(cfg.Session.TTL)
	if err != nil {
		sessionTTL = common.DefaultSessionTTL
	}
	sweepInterval, err := time.ParseDuration(cfg.Session.SweepInterval)
	if err != nil {
		sweepInterval = common.DefaultSweepInterval
	}

	idGen := session.NewIDGenerator(cfg.Session.IDLength)

	var sessionRegistry session.Registry
	if cfg.Redis.Enabled {
		cacheClient, err := cache.NewClient(cfg.Redis)
		if err != nil {
			logger.Fatalf("Failed to initialize redis: %v", err)
		}
		defer func() { _ = cacheClient.Close() }()
		sessionRegistry = registry.NewRedisRegistry(cacheClient, logger, sessionTTL, idGen)
		logger.Info("using redis-backed session registry")
	} else {
		sessionRegistry = registry.NewMemoryRegistry(sessionTTL, idGen)
		logger.Info("using in-memory session registry")
	}

	sessionRelay := relay.NewRelay(sessionRegistry, logger)
	sweeper := relay.NewSweeper(sessionRegistry, logger, sweepInterval)

	middlewareTransport := &middleware.Transport{
		PanicRecoverMiddleware: middleware.NewPanicRecoverMiddleware(logger),
		WebSocketMiddleware:    middleware.NewWebsocketMiddleware(cfg, logger),
	}
	handlerTransport := &handlers.HandlerTransportDTO{
		GetVersionHandler: handlers.NewGetVersionHandler(logger),
		GetSessionHandler: handlers.NewGetSessionHandler(logger, cfg, sessionRelay),
	}
	wsHandlerTransport := &wsHandlers.HandlerTransportDTO{
		SignalingHandler: wsHandlers.NewSignalingHandler(cfg, logger, sessionRelay),
	}

	signalingServer := server.NewSignalingServer(server.SignalingServerDI{
		Config:              cfg,
		Logger:              logger,
		MiddlewareTransport: middlewareTransport,
		HandlerTransport:    handlerTransport,
		WsHandlerTransport:  wsHandlerTransport,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return signalingServer.Run()
	})
	group.Go(func() error {
		return sweeper.Run(groupCtx)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down signaling server")
		return signalingServer.Shutdown()
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		logger.WithError(err).Error("server exited with error")
	}
}
