package client

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/remotedeck/remotedeck/pkg/common"
	infraWebsocket "github.com/remotedeck/remotedeck/pkg/infra/websocket"
	"github.com/sirupsen/logrus"
)

// swipeScrollDelta approximates one viewport of scroll for swipe up/down.
const swipeScrollDelta = 600

// UIAdapter is what the desktop controller drives when commands arrive.
// The host page wires it to its router, scroll container and menu state.
type UIAdapter interface {
	ScrollBy(deltaY float64)
	Navigate(path string)
	SetMenuOpen(open bool)
	// NextRoute and PrevRoute back the swipe left/right mapping.
	NextRoute(current string) string
	PrevRoute(current string) string
}

// DesktopController owns a session: it requests creation, exposes the id
// for QR encoding, applies relayed commands to the UI adapter and pushes
// the resulting state back so late-joining phones converge.
type DesktopController struct {
	wsClient
	logger *logrus.Logger
	ui     UIAdapter

	stateMu        sync.RWMutex
	sessionID      string
	expiresAt      time.Time
	phoneConnected bool
	currentRoute   string
	menuOpen       bool
	scrollY        float64
	transportErr   error

	done chan struct{}
}

func NewDesktopController(logger *logrus.Logger, ui UIAdapter) *DesktopController {
	return &DesktopController{
		logger: logger,
		ui:     ui,
		done:   make(chan struct{}),
	}
}

// Start connects, requests a session and begins applying relayed commands.
// It returns once the session is created; message handling continues in the
// background until Close.
func (d *DesktopController) Start(ctx context.Context, wsURL string) error {
	return d.start(ctx, wsURL, "")
}

// Resume reclaims an existing session after a page reload. The new
// connection takes over the desktop role before the old socket's teardown
// lands, so a paired phone keeps its session. If the session is already
// gone the server answers with a fresh one and its id replaces the old.
func (d *DesktopController) Resume(ctx context.Context, wsURL, sessionID string) error {
	return d.start(ctx, wsURL, sessionID)
}

func (d *DesktopController) start(ctx context.Context, wsURL, reclaimID string) error {
	if err := d.dial(ctx, wsURL); err != nil {
		d.setTransportErr(err)
		return err
	}

	err := d.writeEnvelope(&infraWebsocket.Envelope{
		Type:      infraWebsocket.TypeSessionCreate,
		SessionID: reclaimID,
	})
	if err != nil {
		d.setTransportErr(err)
		return err
	}

	var resp infraWebsocket.Envelope
	if err := d.readEnvelope(&resp); err != nil {
		d.setTransportErr(err)
		return err
	}
	if resp.Success == nil || !*resp.Success || resp.Session == nil {
		err := fmt.Errorf("session creation rejected: %s", resp.Error)
		d.setTransportErr(err)
		return err
	}

	d.stateMu.Lock()
	d.sessionID = resp.Session.ID
	d.expiresAt = resp.Session.ExpiresAt
	d.stateMu.Unlock()

	go d.readLoop()
	return nil
}

func (d *DesktopController) readLoop() {
	for {
		select {
		case <-d.done:
			return
		default:
		}

		var env infraWebsocket.Envelope
		if err := d.readEnvelope(&env); err != nil {
			d.setTransportErr(err)
			return
		}

		switch env.Type {
		case infraWebsocket.TypePhoneConnected:
			d.stateMu.Lock()
			d.phoneConnected = true
			d.stateMu.Unlock()
			// Push current state immediately so the fresh phone
			// hydrates even if it joined after navigation.
			d.pushState()

		case infraWebsocket.TypePhoneDisconnected:
			d.stateMu.Lock()
			d.phoneConnected = false
			d.stateMu.Unlock()

		case infraWebsocket.TypeCommand:
			if env.Command != nil {
				d.applyCommand(env.Command)
			}

		default:
			d.logger.WithField("type", env.Type).Debug("ignoring message of unexpected type")
		}
	}
}

func (d *DesktopController) applyCommand(cmd *infraWebsocket.Command) {
	switch cmd.Type {
	case infraWebsocket.CommandScroll:
		var p infraWebsocket.ScrollPayload
		if err := infraWebsocket.DecodePayload(cmd.Payload, &p); err != nil {
			d.logger.WithError(err).Debug("ignoring malformed scroll command")
			return
		}
		d.scrollBy(p.DeltaY)

	case infraWebsocket.CommandNavigate:
		var p infraWebsocket.NavigatePayload
		if err := infraWebsocket.DecodePayload(cmd.Payload, &p); err != nil || p.Path == "" {
			d.logger.Debug("ignoring malformed navigate command")
			return
		}
		d.navigate(p.Path)

	case infraWebsocket.CommandToggleMenu:
		d.stateMu.Lock()
		d.menuOpen = !d.menuOpen
		open := d.menuOpen
		d.stateMu.Unlock()
		d.ui.SetMenuOpen(open)
		d.pushMenuState(open)

	case infraWebsocket.CommandSwipe:
		var p infraWebsocket.SwipePayload
		if err := infraWebsocket.DecodePayload(cmd.Payload, &p); err != nil {
			d.logger.WithError(err).Debug("ignoring malformed swipe command")
			return
		}
		d.applySwipe(p.Direction)

	default:
		d.logger.WithField("command", cmd.Type).Debug("ignoring unknown command")
	}
}

func (d *DesktopController) applySwipe(direction string) {
	switch direction {
	case "up":
		d.scrollBy(swipeScrollDelta)
	case "down":
		d.scrollBy(-swipeScrollDelta)
	case "left":
		d.stateMu.RLock()
		current := d.currentRoute
		d.stateMu.RUnlock()
		if next := d.ui.NextRoute(current); next != "" {
			d.navigate(next)
		}
	case "right":
		d.stateMu.RLock()
		current := d.currentRoute
		d.stateMu.RUnlock()
		if prev := d.ui.PrevRoute(current); prev != "" {
			d.navigate(prev)
		}
	default:
		d.logger.WithField("direction", direction).Debug("ignoring unknown swipe direction")
	}
}

// scrollBy applies the delta and pushes the running scroll offset so the
// phone can mirror roughly where the desktop viewport is.
func (d *DesktopController) scrollBy(deltaY float64) {
	d.ui.ScrollBy(deltaY)
	d.stateMu.Lock()
	d.scrollY += deltaY
	y := d.scrollY
	d.stateMu.Unlock()
	d.pushScrollState(y)
}

func (d *DesktopController) navigate(path string) {
	d.ui.Navigate(path)
	d.stateMu.Lock()
	d.currentRoute = path
	d.stateMu.Unlock()
	d.pushRouteState(path)
}

// pushState pushes the full snapshot, one state message per field kind.
func (d *DesktopController) pushState() {
	d.stateMu.RLock()
	route := d.currentRoute
	menuOpen := d.menuOpen
	scrollY := d.scrollY
	d.stateMu.RUnlock()

	if route != "" {
		d.pushRouteState(route)
	}
	d.pushMenuState(menuOpen)
	d.pushScrollState(scrollY)
}

func (d *DesktopController) pushRouteState(route string) {
	d.sendState(&infraWebsocket.StateUpdate{
		Type:      infraWebsocket.StateCurrentRoute,
		Payload:   map[string]interface{}{"route": route},
		Timestamp: time.Now().UnixMilli(),
	})
}

func (d *DesktopController) pushMenuState(open bool) {
	d.sendState(&infraWebsocket.StateUpdate{
		Type:      infraWebsocket.StateMenuState,
		Payload:   map[string]interface{}{"open": open},
		Timestamp: time.Now().UnixMilli(),
	})
}

func (d *DesktopController) pushScrollState(y float64) {
	d.sendState(&infraWebsocket.StateUpdate{
		Type:      infraWebsocket.StateScrollPosition,
		Payload:   map[string]interface{}{"y": y},
		Timestamp: time.Now().UnixMilli(),
	})
}

func (d *DesktopController) sendState(state *infraWebsocket.StateUpdate) {
	err := d.writeEnvelope(&infraWebsocket.Envelope{
		Type:  infraWebsocket.TypeDesktopState,
		State: state,
	})
	if err != nil {
		d.logger.WithError(err).Debug("failed to push desktop state")
	}
}

func (d *DesktopController) SessionID() string {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	return d.sessionID
}

// JoinURL builds the URL the QR code encodes.
func (d *DesktopController) JoinURL(baseURL string) string {
	d.stateMu.RLock()
	id := d.sessionID
	d.stateMu.RUnlock()
	return fmt.Sprintf("%s%s?session=%s", baseURL, common.JoinPathPrefix, url.QueryEscape(id))
}

func (d *DesktopController) PhoneConnected() bool {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	return d.phoneConnected
}

// ExpiresIn feeds the countdown shown next to the QR code.
func (d *DesktopController) ExpiresIn() time.Duration {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	if d.expiresAt.IsZero() {
		return 0
	}
	remaining := time.Until(d.expiresAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (d *DesktopController) CurrentRoute() string {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	return d.currentRoute
}

func (d *DesktopController) MenuOpen() bool {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	return d.menuOpen
}

// TransportErr reports connection-level failures, kept separate from
// session-level errors so the UI can tell the two apart.
func (d *DesktopController) TransportErr() error {
	d.stateMu.RLock()
	defer d.stateMu.RUnlock()
	return d.transportErr
}

func (d *DesktopController) setTransportErr(err error) {
	d.stateMu.Lock()
	defer d.stateMu.Unlock()
	if d.transportErr == nil {
		d.transportErr = err
	}
}

// Close drops the connection. The server treats this as a desktop
// disconnect and destroys the session.
func (d *DesktopController) Close() error {
	select {
	case <-d.done:
	default:
		close(d.done)
	}
	return d.close()
}
