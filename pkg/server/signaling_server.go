package server

import (
	"fmt"

	"github.com/remotedeck/remotedeck/pkg/config"
	handlers "github.com/remotedeck/remotedeck/pkg/handlers/http"
	wsHandlers "github.com/remotedeck/remotedeck/pkg/handlers/websocket"
	"github.com/remotedeck/remotedeck/pkg/middleware"
	"github.com/remotedeck/remotedeck/pkg/server/router"
	"github.com/sirupsen/logrus"
)

type (
	SignalingServerDI struct {
		Config              *config.Config
		Logger              *logrus.Logger
		MiddlewareTransport *middleware.Transport
		HandlerTransport    handlers.HandlerTransport
		WsHandlerTransport  wsHandlers.HandlerTransport
	}
	SignalingServer struct {
		*BaseServer
	}
)

func NewSignalingServer(di SignalingServerDI) *SignalingServer {
	s := &SignalingServer{
		BaseServer: NewBaseServer(di.Config, di.Logger),
	}

	s.WithRouters(router.NewSignalingRouter(
		di.MiddlewareTransport,
		di.HandlerTransport,
		di.WsHandlerTransport,
		di.Config,
	))
	s.setupMetricsEndpoint()

	return s
}

func (s *SignalingServer) Run() error {
	addr := fmt.Sprintf(":%d", s.Config.Server.Port)
	s.Logger.WithField("addr", addr).Info("starting signaling server")
	return s.Router.Listen(addr)
}

func (s *SignalingServer) Shutdown() error {
	return s.Router.Shutdown()
}
