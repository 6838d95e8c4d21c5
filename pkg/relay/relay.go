package relay

import (
	"sync"
	"time"

	"github.com/remotedeck/remotedeck/pkg/domain/session"
	"github.com/remotedeck/remotedeck/pkg/infra/prometheus"
	infraWebsocket "github.com/remotedeck/remotedeck/pkg/infra/websocket"
	"github.com/sirupsen/logrus"
)

// Relay pairs a desktop and a phone connection through a session and
// forwards envelopes between them without interpreting command payloads.
// A single mutex serializes every operation; the protocol's ordering
// guarantees assume all session mutation happens one step at a time.
type Relay struct {
	mu       sync.Mutex
	registry session.Registry
	logger   *logrus.Logger
}

func NewRelay(registry session.Registry, logger *logrus.Logger) *Relay {
	return &Relay{
		registry: registry,
		logger:   logger,
	}
}

// CreateSession allocates a session and binds conn as its desktop. The
// desktop ref is never empty on a live session; the desktop is the party
// that asks for one.
func (r *Relay) CreateSession(conn session.PeerConn) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.registry.Create()
	if err != nil {
		return nil, err
	}
	s.DesktopConn = conn
	r.registry.Update(s)

	prometheus.SessionsCreatedTotal.Inc()
	prometheus.SessionsActive.Set(float64(r.registry.Len()))

	r.logger.WithFields(logrus.Fields{
		"session_id": s.ID,
		"expires_at": s.ExpiresAt,
	}).Info("session created")

	return s, nil
}

// BindRole attaches conn to the given role. A later binder replaces an
// earlier occupant of the same role; nothing is queued or rejected. The
// opposite peer, if present, is told its counterpart arrived.
func (r *Relay) BindRole(sessionID string, role session.Role, conn session.PeerConn) (*session.Session, error) {
	if !role.Valid() {
		return nil, session.ErrInvalidRole
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.registry.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if s.Expired(time.Now()) {
		// Lookup raced the sweeper; treat it as already gone.
		r.registry.Remove(sessionID)
		prometheus.SessionsActive.Set(float64(r.registry.Len()))
		return nil, session.ErrSessionExpired
	}

	switch role {
	case session.RoleDesktop:
		s.DesktopConn = conn
	case session.RolePhone:
		s.PhoneConn = conn
		s.PhoneConnected = true
	}
	r.registry.Update(s)

	r.logger.WithFields(logrus.Fields{
		"session_id": s.ID,
		"role":       role,
	}).Info("peer bound to session")

	r.notifyPeer(s, role.Opposite(), connectedNotification(role))

	return s, nil
}

// Snapshot returns a copy of the session's client-visible state. Reads take
// the relay mutex so they order against concurrent state pushes; handing out
// the live record would let read-only callers race the relay's writes.
func (r *Relay) Snapshot(sessionID string) (session.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.registry.Get(sessionID)
	if err != nil {
		return session.Snapshot{}, err
	}
	if s.Expired(time.Now()) {
		return session.Snapshot{}, session.ErrSessionExpired
	}
	return s.Snapshot(), nil
}

// Forward delivers env to the peer opposite fromRole. Exactly one delivery
// attempt is made; if the opposite peer is absent the message is dropped
// silently, which is the intended best-effort behavior for live control.
func (r *Relay) Forward(sessionID string, fromRole session.Role, env *infraWebsocket.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.registry.Get(sessionID)
	if err != nil {
		prometheus.MessagesDroppedTotal.WithLabelValues("no_session").Inc()
		return
	}

	// Desktop state pushes double as the stored snapshot so a phone that
	// joins late converges to the real desktop state.
	if fromRole == session.RoleDesktop && env.State != nil {
		r.applyState(s, env.State)
	}

	target := s.DesktopConn
	if fromRole == session.RoleDesktop {
		target = s.PhoneConn
	}
	if target == nil {
		prometheus.MessagesDroppedTotal.WithLabelValues("unpaired").Inc()
		return
	}

	if err := target.WriteEnvelope(env); err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"session_id": sessionID,
			"from":       fromRole,
		}).Debug("failed to deliver relayed message")
		prometheus.MessagesDroppedTotal.WithLabelValues("write_failed").Inc()
		return
	}
	prometheus.MessagesRelayedTotal.WithLabelValues(env.Type).Inc()
}

// Disconnect applies the asymmetric teardown rule: the desktop is the
// authority and its departure destroys the session; the phone is a
// satellite whose departure leaves the session waiting for a rejoin.
// A disconnect from a connection that was already replaced in its role is
// ignored so a stale socket closing late cannot tear down a live pairing.
func (r *Relay) Disconnect(sessionID string, role session.Role, conn session.PeerConn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, err := r.registry.Get(sessionID)
	if err != nil {
		return
	}

	switch role {
	case session.RoleDesktop:
		if !sameConn(s.DesktopConn, conn) {
			return
		}
		r.notifyPeer(s, session.RolePhone, infraWebsocket.Notification(infraWebsocket.TypeDesktopDisconnected))
		r.registry.Remove(sessionID)
		prometheus.SessionsActive.Set(float64(r.registry.Len()))
		r.logger.WithField("session_id", sessionID).Info("desktop disconnected, session removed")

	case session.RolePhone:
		if !sameConn(s.PhoneConn, conn) {
			return
		}
		s.PhoneConn = nil
		s.PhoneConnected = false
		r.registry.Update(s)
		r.notifyPeer(s, session.RoleDesktop, infraWebsocket.Notification(infraWebsocket.TypePhoneDisconnected))
		r.logger.WithField("session_id", sessionID).Info("phone disconnected, session awaiting rejoin")
	}
}

func (r *Relay) applyState(s *session.Session, state *infraWebsocket.StateUpdate) {
	switch state.Type {
	case infraWebsocket.StateCurrentRoute:
		var p infraWebsocket.RoutePayload
		if err := infraWebsocket.DecodePayload(state.Payload, &p); err == nil {
			s.CurrentRoute = p.Route
		}
	case infraWebsocket.StateMenuState:
		var p infraWebsocket.MenuPayload
		if err := infraWebsocket.DecodePayload(state.Payload, &p); err == nil {
			s.MenuOpen = p.Open
		}
	}
	r.registry.Update(s)
}

func (r *Relay) notifyPeer(s *session.Session, role session.Role, env *infraWebsocket.Envelope) {
	var conn session.PeerConn
	if role == session.RoleDesktop {
		conn = s.DesktopConn
	} else {
		conn = s.PhoneConn
	}
	if conn == nil {
		return
	}
	if err := conn.WriteEnvelope(env); err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"session_id": s.ID,
			"peer":       role,
		}).Debug("failed to notify peer")
	}
}

func connectedNotification(role session.Role) *infraWebsocket.Envelope {
	if role == session.RolePhone {
		return infraWebsocket.Notification(infraWebsocket.TypePhoneConnected)
	}
	return infraWebsocket.Notification(infraWebsocket.TypeDesktopConnected)
}

func sameConn(a, b session.PeerConn) bool {
	return a != nil && b != nil && a.RefID() == b.RefID()
}
