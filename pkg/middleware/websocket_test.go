package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/remotedeck/remotedeck/pkg/common"
	"github.com/remotedeck/remotedeck/pkg/config"
	"github.com/remotedeck/remotedeck/pkg/middleware"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func upgradeRequest(path string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	return req
}

func newApp(cfg *config.Config) *fiber.App {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	mw := middleware.NewWebsocketMiddleware(cfg, logger)

	app := fiber.New()
	app.Use(mw.Middleware())
	app.Get("/ws", func(c *fiber.Ctx) error {
		if c.Locals(string(common.WsSemaphoreContextKey)) == nil {
			return c.SendStatus(http.StatusInternalServerError)
		}
		return c.SendStatus(http.StatusOK)
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})
	return app
}

func TestWebsocketMiddleware_RequiresUpgradeOnWsPath(t *testing.T) {
	cfg := &config.Config{WebSocket: config.WebSocketConfig{MaxConnections: 4}}
	app := newApp(cfg)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.NoError(t, err)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}

func TestWebsocketMiddleware_AdmitsUpgradeAndSharesSemaphore(t *testing.T) {
	cfg := &config.Config{WebSocket: config.WebSocketConfig{MaxConnections: 4}}
	app := newApp(cfg)

	resp, err := app.Test(upgradeRequest("/ws"))
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWebsocketMiddleware_RejectsOverCapacity(t *testing.T) {
	cfg := &config.Config{WebSocket: config.WebSocketConfig{MaxConnections: 1}}
	app := newApp(cfg)

	// The handler under test never releases, so the second upgrade
	// attempt finds the semaphore full.
	resp, err := app.Test(upgradeRequest("/ws"))
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(upgradeRequest("/ws"))
	assert.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestWebsocketMiddleware_IgnoresOtherPaths(t *testing.T) {
	cfg := &config.Config{WebSocket: config.WebSocketConfig{MaxConnections: 4}}
	app := newApp(cfg)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPanicRecoverMiddleware_Recovers(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	app := fiber.New()
	app.Use(middleware.NewPanicRecoverMiddleware(logger).Middleware())
	app.Get("/boom", func(c *fiber.Ctx) error {
		panic("boom")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
