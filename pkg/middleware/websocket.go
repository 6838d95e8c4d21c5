package middleware

import (
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/remotedeck/remotedeck/pkg/common"
	"github.com/remotedeck/remotedeck/pkg/config"
	infra "github.com/remotedeck/remotedeck/pkg/infra/websocket"
	"github.com/sirupsen/logrus"
)

type websocketMiddleware struct {
	config    *config.Config
	logger    *logrus.Logger
	semaphore *infra.Semaphore
}

func NewWebsocketMiddleware(
	config *config.Config,
	logger *logrus.Logger,
) Middleware {
	semaphore := infra.NewSemaphore(infra.WithMaxConnections(config.WebSocket.MaxConnections))
	return &websocketMiddleware{
		config:    config,
		logger:    logger,
		semaphore: semaphore,
	}
}

func (m *websocketMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if strings.HasPrefix(c.Path(), "/ws") {
			if websocket.IsWebSocketUpgrade(c) {
				if !m.semaphore.Acquire() {
					m.logger.Warn("maximum websocket connections reached, rejecting connection")
					return fiber.ErrTooManyRequests
				}
				c.Locals(string(common.WsSemaphoreContextKey), m.semaphore)
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	}
}
