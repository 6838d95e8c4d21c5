package server

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/remotedeck/remotedeck/pkg/config"
	infraPrometheus "github.com/remotedeck/remotedeck/pkg/infra/prometheus"
	"github.com/remotedeck/remotedeck/pkg/server/router"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Server interface defines the common behavior for all servers
type Server interface {
	Run() error
	Shutdown() error
}

type BaseServer struct {
	Config         *config.Config
	Logger         *logrus.Logger
	Router         *fiber.App
	metricsStarted bool
}

func NewBaseServer(config *config.Config, logger *logrus.Logger) *BaseServer {
	r := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReduceMemoryUsage:     true,
		Network:               fiber.NetworkTCP,
		EnablePrintRoutes:     false,
		ReadTimeout:           60 * time.Second,
		WriteTimeout:          60 * time.Second,
		IdleTimeout:           120 * time.Second,
	})

	r.Server().NoDefaultServerHeader = true
	r.Server().NoDefaultDate = true
	r.Server().NoDefaultContentType = true

	return &BaseServer{
		Config: config,
		Logger: logger,
		Router: r,
	}
}

func (s *BaseServer) WithRouters(routers ...router.ServerRouter) *BaseServer {
	for _, r := range routers {
		if err := r.BuildRoutes(s.Router); err != nil {
			s.Logger.WithError(err).Error("failed to build routes")
		}
	}
	return s
}

func (s *BaseServer) setupMetricsEndpoint() {
	if !s.Config.Metrics.Enabled {
		s.Logger.Info("prometheus metrics are disabled by configuration")
		return
	}
	if s.metricsStarted {
		return
	}
	s.metricsStarted = true

	metricsApp := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	metricsApp.Use(recover.New())

	metricsApp.Get("/metrics", func(c *fiber.Ctx) error {
		handler := fasthttpadaptor.NewFastHTTPHandler(
			promhttp.HandlerFor(infraPrometheus.Registry(), promhttp.HandlerOpts{}),
		)
		handler(c.Context())
		return nil
	})

	// Metrics listen on their own port so the signaling port stays
	// reachable from the public internet without exposing them.
	go func() {
		addr := fmt.Sprintf(":%d", s.Config.Server.MetricsPort)
		if err := metricsApp.Listen(addr); err != nil {
			if !strings.Contains(err.Error(), "address already in use") {
				s.Logger.WithError(err).Error("failed to start metrics server")
			}
		}
	}()
}
