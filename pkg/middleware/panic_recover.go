package middleware

import (
	"runtime/debug"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// panicRecoverMiddleware converts handler panics into a 500 response. The
// signaling process is shared by every active session, so one bad request
// must never take it down.
type panicRecoverMiddleware struct {
	logger *logrus.Logger
}

func NewPanicRecoverMiddleware(logger *logrus.Logger) Middleware {
	return &panicRecoverMiddleware{logger: logger}
}

func (m *panicRecoverMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		defer func() {
			if r := recover(); r != nil {
				m.logger.WithFields(logrus.Fields{
					"panic": r,
					"path":  c.Path(),
					"stack": string(debug.Stack()),
				}).Error("recovered panic in signaling handler")

				if c.Response().Header.StatusCode() == 0 {
					_ = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
						"error": "internal server error",
					})
				}
			}
		}()

		return c.Next()
	}
}
