package http

import "github.com/gofiber/fiber/v2"

type Handler interface {
	Handle(c *fiber.Ctx) error
}

type HandlerTransport interface {
	GetTransport() HandlerTransport
}

type HandlerTransportDTO struct {
	GetVersionHandler Handler
	GetSessionHandler Handler
}

func (t *HandlerTransportDTO) GetTransport() HandlerTransport {
	return t
}
