package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	infraWebsocket "github.com/remotedeck/remotedeck/pkg/infra/websocket"
	"github.com/sirupsen/logrus"
)

type PhoneStatus string

const (
	PhoneStatusIdle         PhoneStatus = "idle"
	PhoneStatusConnecting   PhoneStatus = "connecting"
	PhoneStatusConnected    PhoneStatus = "connected"
	PhoneStatusDisconnected PhoneStatus = "disconnected"
	PhoneStatusError        PhoneStatus = "error"
)

// ErrJoinRejected is returned when the server answers a join with a
// failure; the only recovery is rescanning a fresh QR code.
var ErrJoinRejected = errors.New("session not found or expired")

// PhoneController joins an existing session by scanned id and turns taps
// and swipes into relayed commands. It mirrors the desktop state pushed
// back through the relay.
type PhoneController struct {
	wsClient
	logger *logrus.Logger

	// Haptic fires after each successfully sent command. Purely a UX
	// affordance; a nil hook disables it.
	Haptic func()

	stateMu      sync.RWMutex
	status       PhoneStatus
	sessionID    string
	currentRoute string
	menuOpen     bool
	scrollY      float64
	sessionErr   error
	transportErr error

	done chan struct{}
}

func NewPhoneController(logger *logrus.Logger) *PhoneController {
	return &PhoneController{
		logger: logger,
		status: PhoneStatusIdle,
		done:   make(chan struct{}),
	}
}

// Join connects and claims the phone role on the given session. On success
// the local route and menu state are hydrated from the server's snapshot,
// so a phone joining after the desktop navigated still shows the truth.
func (p *PhoneController) Join(ctx context.Context, wsURL, sessionID string) error {
	if sessionID == "" {
		p.setSessionErr(ErrJoinRejected)
		return ErrJoinRejected
	}

	p.setStatus(PhoneStatusConnecting)

	if err := p.dial(ctx, wsURL); err != nil {
		p.setTransportErr(err)
		return err
	}

	err := p.writeEnvelope(&infraWebsocket.Envelope{
		Type:      infraWebsocket.TypeSessionJoin,
		SessionID: sessionID,
	})
	if err != nil {
		p.setTransportErr(err)
		return err
	}

	var resp infraWebsocket.Envelope
	if err := p.readEnvelope(&resp); err != nil {
		p.setTransportErr(err)
		return err
	}
	if resp.Success == nil || !*resp.Success || resp.Session == nil {
		p.setSessionErr(ErrJoinRejected)
		_ = p.close()
		return ErrJoinRejected
	}

	p.stateMu.Lock()
	p.status = PhoneStatusConnected
	p.sessionID = resp.Session.ID
	p.currentRoute = resp.Session.CurrentRoute
	p.menuOpen = resp.Session.MenuOpen
	p.stateMu.Unlock()

	go p.readLoop()
	return nil
}

func (p *PhoneController) readLoop() {
	for {
		select {
		case <-p.done:
			return
		default:
		}

		var env infraWebsocket.Envelope
		if err := p.readEnvelope(&env); err != nil {
			p.setTransportErr(err)
			p.setStatus(PhoneStatusDisconnected)
			return
		}

		switch env.Type {
		case infraWebsocket.TypeDesktopState:
			if env.State != nil {
				p.applyState(env.State)
			}

		case infraWebsocket.TypeDesktopConnected:
			// A reloaded desktop reclaimed the session; the pairing holds.
			p.setStatus(PhoneStatusConnected)

		case infraWebsocket.TypeDesktopDisconnected:
			// Nothing left to control; the session is gone server-side.
			p.setStatus(PhoneStatusDisconnected)

		default:
			p.logger.WithField("type", env.Type).Debug("ignoring message of unexpected type")
		}
	}
}

func (p *PhoneController) applyState(state *infraWebsocket.StateUpdate) {
	switch state.Type {
	case infraWebsocket.StateCurrentRoute:
		var payload infraWebsocket.RoutePayload
		if err := infraWebsocket.DecodePayload(state.Payload, &payload); err != nil {
			p.logger.WithError(err).Debug("ignoring malformed route state")
			return
		}
		p.stateMu.Lock()
		p.currentRoute = payload.Route
		p.stateMu.Unlock()

	case infraWebsocket.StateMenuState:
		var payload infraWebsocket.MenuPayload
		if err := infraWebsocket.DecodePayload(state.Payload, &payload); err != nil {
			p.logger.WithError(err).Debug("ignoring malformed menu state")
			return
		}
		p.stateMu.Lock()
		p.menuOpen = payload.Open
		p.stateMu.Unlock()

	case infraWebsocket.StateScrollPosition:
		var payload infraWebsocket.ScrollPositionPayload
		if err := infraWebsocket.DecodePayload(state.Payload, &payload); err != nil {
			p.logger.WithError(err).Debug("ignoring malformed scroll state")
			return
		}
		p.stateMu.Lock()
		p.scrollY = payload.Y
		p.stateMu.Unlock()
	}
}

// SendCommand packages a command with a client timestamp and relays it.
func (p *PhoneController) SendCommand(cmdType string, payload map[string]interface{}) error {
	if p.Status() != PhoneStatusConnected {
		return fmt.Errorf("not connected to a session")
	}

	err := p.writeEnvelope(&infraWebsocket.Envelope{
		Type: infraWebsocket.TypeCommand,
		Command: &infraWebsocket.Command{
			Type:      cmdType,
			Payload:   payload,
			Timestamp: time.Now().UnixMilli(),
		},
	})
	if err != nil {
		p.setTransportErr(err)
		return err
	}

	if p.Haptic != nil {
		p.Haptic()
	}
	return nil
}

func (p *PhoneController) Status() PhoneStatus {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.status
}

func (p *PhoneController) SessionID() string {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.sessionID
}

func (p *PhoneController) CurrentRoute() string {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.currentRoute
}

func (p *PhoneController) MenuOpen() bool {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.menuOpen
}

func (p *PhoneController) ScrollY() float64 {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.scrollY
}

// SessionErr reports join rejections; TransportErr reports connection
// failures. The UI renders "rescan" for the former and "retry" for the
// latter.
func (p *PhoneController) SessionErr() error {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.sessionErr
}

func (p *PhoneController) TransportErr() error {
	p.stateMu.RLock()
	defer p.stateMu.RUnlock()
	return p.transportErr
}

func (p *PhoneController) setStatus(status PhoneStatus) {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	p.status = status
}

func (p *PhoneController) setSessionErr(err error) {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	p.sessionErr = err
	p.status = PhoneStatusError
}

func (p *PhoneController) setTransportErr(err error) {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	if p.transportErr == nil {
		p.transportErr = err
	}
	if p.status == PhoneStatusConnecting {
		p.status = PhoneStatusError
	}
}

func (p *PhoneController) Close() error {
	select {
	case <-p.done:
	default:
		close(p.done)
	}
	return p.close()
}
