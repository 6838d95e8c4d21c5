package http

import (
	"fmt"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/remotedeck/remotedeck/pkg/common"
	"github.com/remotedeck/remotedeck/pkg/config"
	"github.com/remotedeck/remotedeck/pkg/relay"
	"github.com/sirupsen/logrus"
)

// getSessionHandler is a read-only lookup used by the desktop page to
// refresh its countdown without holding protocol state. Expired and unknown
// ids answer identically. Lookups go through the relay so the returned
// snapshot is a consistent copy, never the live record.
type getSessionHandler struct {
	logger *logrus.Logger
	config *config.Config
	relay  *relay.Relay
}

func NewGetSessionHandler(logger *logrus.Logger, cfg *config.Config, relay *relay.Relay) Handler {
	return &getSessionHandler{
		logger: logger,
		config: cfg,
		relay:  relay,
	}
}

func (h *getSessionHandler) Handle(c *fiber.Ctx) error {
	id := c.Params("session_id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "missing session id",
		})
	}

	snap, err := h.relay.Snapshot(id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Session not found or expired",
		})
	}

	joinURL := fmt.Sprintf("%s%s?session=%s",
		h.config.Server.PublicURL, common.JoinPathPrefix, url.QueryEscape(snap.ID))

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"session":  snap,
		"join_url": joinURL,
	})
}
