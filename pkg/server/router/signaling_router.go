package router

import (
	"net/http"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/remotedeck/remotedeck/pkg/config"
	handlers "github.com/remotedeck/remotedeck/pkg/handlers/http"
	wsHandlers "github.com/remotedeck/remotedeck/pkg/handlers/websocket"
	"github.com/remotedeck/remotedeck/pkg/middleware"
)

const (
	HealthPath    = "/health"
	PingPath      = "/__/ping"
	VersionPath   = "/version"
	SessionPath   = "/sessions/:session_id"
	WebsocketPath = "/ws"
)

type signalingRouter struct {
	middlewareTransport *middleware.Transport
	handlerTransport    handlers.HandlerTransport
	wsHandlerTransport  wsHandlers.HandlerTransport
	config              *config.Config
}

func NewSignalingRouter(
	middlewareTransport *middleware.Transport,
	handlerTransport handlers.HandlerTransport,
	wsHandlerTransport wsHandlers.HandlerTransport,
	cfg *config.Config,
) ServerRouter {
	return &signalingRouter{
		middlewareTransport: middlewareTransport,
		handlerTransport:    handlerTransport,
		wsHandlerTransport:  wsHandlerTransport,
		config:              cfg,
	}
}

func (r *signalingRouter) BuildRoutes(router *fiber.App) error {
	handlerTransport, ok := r.handlerTransport.GetTransport().(*handlers.HandlerTransportDTO)
	if !ok {
		return ErrInvalidHandlerTransport
	}

	wsHandlerTransport, ok := r.wsHandlerTransport.GetTransport().(*wsHandlers.HandlerTransportDTO)
	if !ok {
		return ErrInvalidHandlerTransport
	}

	router.Use(r.middlewareTransport.PanicRecoverMiddleware.Middleware())

	router.Get(HealthPath, func(ctx *fiber.Ctx) error {
		return ctx.Status(http.StatusOK).JSON(fiber.Map{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	router.Get(PingPath, func(ctx *fiber.Ctx) error {
		return ctx.Status(http.StatusOK).JSON(fiber.Map{
			"message": "pong",
		})
	})

	router.Get(VersionPath, handlerTransport.GetVersionHandler.Handle)
	router.Get(SessionPath, handlerTransport.GetSessionHandler.Handle)

	router.Use(r.middlewareTransport.WebSocketMiddleware.Middleware())

	router.Get(WebsocketPath, websocket.New(
		wsHandlerTransport.SignalingHandler.Handle,
		websocket.Config{
			HandshakeTimeout: 15 * time.Second,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
	))

	return nil
}
