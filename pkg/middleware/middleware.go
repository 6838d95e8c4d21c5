package middleware

import "github.com/gofiber/fiber/v2"

type Middleware interface {
	Middleware() fiber.Handler
}

type Transport struct {
	PanicRecoverMiddleware Middleware
	WebSocketMiddleware    Middleware
}
