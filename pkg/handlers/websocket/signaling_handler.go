package websocket

import (
	"encoding/json"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/remotedeck/remotedeck/pkg/common"
	"github.com/remotedeck/remotedeck/pkg/config"
	"github.com/remotedeck/remotedeck/pkg/domain/session"
	"github.com/remotedeck/remotedeck/pkg/infra/prometheus"
	infraWebsocket "github.com/remotedeck/remotedeck/pkg/infra/websocket"
	"github.com/remotedeck/remotedeck/pkg/relay"
	"github.com/sirupsen/logrus"
)

type signalingHandler struct {
	config *config.Config
	logger *logrus.Logger
	relay  *relay.Relay
}

func NewSignalingHandler(
	config *config.Config,
	logger *logrus.Logger,
	relay *relay.Relay,
) Handler {
	return &signalingHandler{
		config: config,
		logger: logger,
		relay:  relay,
	}
}

func (h *signalingHandler) Handle(c *websocket.Conn) {
	if semaphore, ok := c.Locals(string(common.WsSemaphoreContextKey)).(*infraWebsocket.Semaphore); ok {
		defer semaphore.Release()
	}

	prometheus.ConnectionsActive.Inc()
	defer prometheus.ConnectionsActive.Dec()

	peer := newWsPeer(c)

	// One connection occupies at most one role in one session.
	var boundSessionID string
	var boundRole session.Role

	defer func() {
		if boundSessionID != "" {
			h.relay.Disconnect(boundSessionID, boundRole, peer)
		}
	}()

	pongWait, err := time.ParseDuration(h.config.WebSocket.PongWait)
	if err != nil {
		pongWait = 45 * time.Second
	}
	pingPeriod, err := time.ParseDuration(h.config.WebSocket.PingPeriod)
	if err != nil {
		pingPeriod = 30 * time.Second
	}

	if err := c.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		h.logger.WithError(err).Error("failed to set read deadline")
		return
	}
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(pongWait))
	})

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := peer.Ping(); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			h.logger.WithError(err).Debug("websocket connection closed")
			return
		}

		msgType, err := infraWebsocket.PeekType(data)
		if err != nil {
			// A malformed frame from one client must never take the
			// shared relay down; drop it and keep reading.
			h.logger.WithError(err).Debug("dropping malformed message")
			prometheus.MessagesDroppedTotal.WithLabelValues("malformed").Inc()
			continue
		}

		switch msgType {
		case infraWebsocket.TypeSessionCreate:
			boundSessionID, boundRole = h.handleCreate(peer, data, boundSessionID, boundRole)

		case infraWebsocket.TypeSessionJoin:
			boundSessionID, boundRole = h.handleJoin(peer, data, boundSessionID, boundRole)

		case infraWebsocket.TypeCommand:
			h.handleRelayed(peer, data, boundSessionID, boundRole, session.RolePhone)

		case infraWebsocket.TypeDesktopState:
			h.handleRelayed(peer, data, boundSessionID, boundRole, session.RoleDesktop)

		default:
			h.logger.WithField("type", msgType).Debug("dropping message of unknown type")
			prometheus.MessagesDroppedTotal.WithLabelValues("unknown_type").Inc()
		}
	}
}

func (h *signalingHandler) handleCreate(peer *wsPeer, data []byte, curID string, curRole session.Role) (string, session.Role) {
	// One connection, one session. A second create would orphan the first
	// session until the sweep; reject it instead.
	if curID != "" {
		h.write(peer, infraWebsocket.ErrorResponse(infraWebsocket.TypeSessionCreate, "connection already bound to a session"))
		return curID, curRole
	}

	var env infraWebsocket.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		h.logger.WithError(err).Debug("dropping malformed create message")
		return curID, curRole
	}

	// A create carrying a session id is a reload reclaiming its session:
	// the new socket takes over the desktop role before the old socket's
	// teardown lands, so a paired phone keeps working. A failed reclaim
	// falls through to a fresh session.
	if env.SessionID != "" {
		if s, err := h.relay.BindRole(env.SessionID, session.RoleDesktop, peer); err == nil {
			h.write(peer, infraWebsocket.SuccessResponse(infraWebsocket.TypeSessionCreate, s.Snapshot()))
			return s.ID, session.RoleDesktop
		}
	}

	s, err := h.relay.CreateSession(peer)
	if err != nil {
		h.logger.WithError(err).Error("failed to create session")
		h.write(peer, infraWebsocket.ErrorResponse(infraWebsocket.TypeSessionCreate, "failed to create session"))
		return curID, curRole
	}
	h.write(peer, infraWebsocket.SuccessResponse(infraWebsocket.TypeSessionCreate, s.Snapshot()))
	return s.ID, session.RoleDesktop
}

func (h *signalingHandler) handleJoin(peer *wsPeer, data []byte, curID string, curRole session.Role) (string, session.Role) {
	var env infraWebsocket.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		h.logger.WithError(err).Debug("dropping malformed join message")
		return curID, curRole
	}
	if env.SessionID == "" {
		h.write(peer, infraWebsocket.ErrorResponse(infraWebsocket.TypeSessionJoin, infraWebsocket.ErrSessionNotFoundOrExpired))
		return curID, curRole
	}

	s, err := h.relay.BindRole(env.SessionID, session.RolePhone, peer)
	if err != nil {
		// Not-found and expired are indistinguishable on purpose; the
		// phone's only recovery in either case is a fresh scan.
		h.write(peer, infraWebsocket.ErrorResponse(infraWebsocket.TypeSessionJoin, infraWebsocket.ErrSessionNotFoundOrExpired))
		return curID, curRole
	}

	h.write(peer, infraWebsocket.SuccessResponse(infraWebsocket.TypeSessionJoin, s.Snapshot()))
	return s.ID, session.RolePhone
}

func (h *signalingHandler) handleRelayed(peer *wsPeer, data []byte, boundID string, boundRole, wantRole session.Role) {
	if boundID == "" || boundRole != wantRole {
		h.logger.WithFields(logrus.Fields{
			"bound_role": boundRole,
			"want_role":  wantRole,
		}).Debug("dropping relayed message from unbound or wrong-role connection")
		prometheus.MessagesDroppedTotal.WithLabelValues("unbound").Inc()
		return
	}

	var env infraWebsocket.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		h.logger.WithError(err).Debug("dropping malformed relayed message")
		prometheus.MessagesDroppedTotal.WithLabelValues("malformed").Inc()
		return
	}

	h.relay.Forward(boundID, boundRole, &env)
}

func (h *signalingHandler) write(peer *wsPeer, env *infraWebsocket.Envelope) {
	if err := peer.WriteEnvelope(env); err != nil {
		h.logger.WithError(err).Debug("failed to write response")
	}
}
