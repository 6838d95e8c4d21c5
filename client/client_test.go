package client_test

import (
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	gws "github.com/gorilla/websocket"
	"github.com/remotedeck/remotedeck/client"
	"github.com/remotedeck/remotedeck/pkg/config"
	"github.com/remotedeck/remotedeck/pkg/domain/session"
	handlers "github.com/remotedeck/remotedeck/pkg/handlers/http"
	wsHandlers "github.com/remotedeck/remotedeck/pkg/handlers/websocket"
	"github.com/remotedeck/remotedeck/pkg/infra/registry"
	infraWebsocket "github.com/remotedeck/remotedeck/pkg/infra/websocket"
	"github.com/remotedeck/remotedeck/pkg/middleware"
	"github.com/remotedeck/remotedeck/pkg/relay"
	"github.com/remotedeck/remotedeck/pkg/server/router"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUI struct {
	mu        sync.Mutex
	scrolls   []float64
	navigated []string
	menu      []bool
}

func (f *fakeUI) ScrollBy(deltaY float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrolls = append(f.scrolls, deltaY)
}

func (f *fakeUI) Navigate(path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.navigated = append(f.navigated, path)
}

func (f *fakeUI) SetMenuOpen(open bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.menu = append(f.menu, open)
}

func (f *fakeUI) NextRoute(current string) string { return "/next" }
func (f *fakeUI) PrevRoute(current string) string { return "/prev" }

func (f *fakeUI) lastNavigation() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.navigated) == 0 {
		return ""
	}
	return f.navigated[len(f.navigated)-1]
}

func (f *fakeUI) scrollCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.scrolls)
}

func startSignalingServer(t *testing.T) (string, *relay.Relay, func()) {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{PublicURL: "https://example.com"},
		WebSocket: config.WebSocketConfig{
			PongWait:       "45s",
			PingPeriod:     "30s",
			MaxConnections: 16,
		},
	}
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	reg := registry.NewMemoryRegistry(15*time.Minute, nil)
	rly := relay.NewRelay(reg, logger)

	mwTransport := &middleware.Transport{
		PanicRecoverMiddleware: middleware.NewPanicRecoverMiddleware(logger),
		WebSocketMiddleware:    middleware.NewWebsocketMiddleware(cfg, logger),
	}
	httpTransport := &handlers.HandlerTransportDTO{
		GetVersionHandler: handlers.NewGetVersionHandler(logger),
		GetSessionHandler: handlers.NewGetSessionHandler(logger, cfg, rly),
	}
	wsTransport := &wsHandlers.HandlerTransportDTO{
		SignalingHandler: wsHandlers.NewSignalingHandler(cfg, logger, rly),
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	r := router.NewSignalingRouter(mwTransport, httpTransport, wsTransport, cfg)
	require.NoError(t, r.BuildRoutes(app))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()

	wsURL := "ws://" + ln.Addr().String() + "/ws"
	shutdown := func() { _ = app.Shutdown() }
	return wsURL, rly, shutdown
}

func startDesktop(t *testing.T, wsURL string) (*client.DesktopController, *fakeUI) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	ui := &fakeUI{}
	desktop := client.NewDesktopController(logger, ui)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, desktop.Start(ctx, wsURL))
	return desktop, ui
}

func joinPhone(t *testing.T, wsURL, sessionID string) *client.PhoneController {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	phone := client.NewPhoneController(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, phone.Join(ctx, wsURL, sessionID))
	return phone
}

func TestDesktopController_CreatesSession(t *testing.T) {
	wsURL, rly, shutdown := startSignalingServer(t)
	defer shutdown()

	desktop, _ := startDesktop(t, wsURL)
	defer func() { _ = desktop.Close() }()

	id := desktop.SessionID()
	assert.Len(t, id, session.DefaultIDLength)
	for _, c := range id {
		assert.True(t, strings.ContainsRune(session.IDAlphabet, c))
	}

	assert.False(t, desktop.PhoneConnected())
	assert.Greater(t, desktop.ExpiresIn(), 14*time.Minute)
	assert.Contains(t, desktop.JoinURL("https://example.com"), "/remote?session="+id)

	_, err := rly.Snapshot(id)
	assert.NoError(t, err)
}

func TestSessionIDFromURL(t *testing.T) {
	assert.Equal(t, "AB23CD", client.SessionIDFromURL("https://example.com/remote?session=AB23CD"))
	assert.Equal(t, "", client.SessionIDFromURL("https://example.com/remote"))
	assert.Equal(t, "", client.SessionIDFromURL("://not-a-url"))
}

func TestJoinURL_RoundTripsThroughScan(t *testing.T) {
	wsURL, _, shutdown := startSignalingServer(t)
	defer shutdown()

	desktop, _ := startDesktop(t, wsURL)
	defer func() { _ = desktop.Close() }()

	scanned := client.SessionIDFromURL(desktop.JoinURL("https://example.com"))
	assert.Equal(t, desktop.SessionID(), scanned)
}

func TestPhoneController_JoinUnknownSession(t *testing.T) {
	wsURL, _, shutdown := startSignalingServer(t)
	defer shutdown()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	phone := client.NewPhoneController(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := phone.Join(ctx, wsURL, "ZZZZZZ")

	assert.ErrorIs(t, err, client.ErrJoinRejected)
	assert.Equal(t, client.PhoneStatusError, phone.Status())
	assert.Error(t, phone.SessionErr())
	assert.NoError(t, phone.TransportErr())
}

func TestEndToEnd_NavigateCommandConverges(t *testing.T) {
	wsURL, _, shutdown := startSignalingServer(t)
	defer shutdown()

	desktop, ui := startDesktop(t, wsURL)
	defer func() { _ = desktop.Close() }()

	hapticFired := false
	phone := joinPhone(t, wsURL, desktop.SessionID())
	phone.Haptic = func() { hapticFired = true }
	defer func() { _ = phone.Close() }()

	require.Eventually(t, desktop.PhoneConnected, 2*time.Second, 10*time.Millisecond,
		"desktop should learn the phone connected")

	require.NoError(t, phone.SendCommand(infraWebsocket.CommandNavigate, map[string]interface{}{
		"path": "/about",
	}))
	assert.True(t, hapticFired)

	require.Eventually(t, func() bool {
		return ui.lastNavigation() == "/about" && desktop.CurrentRoute() == "/about"
	}, 2*time.Second, 10*time.Millisecond, "desktop should apply the navigate command")

	require.Eventually(t, func() bool {
		return phone.CurrentRoute() == "/about"
	}, 2*time.Second, 10*time.Millisecond, "phone should converge to the pushed route")
}

func TestEndToEnd_ScrollAndSwipe(t *testing.T) {
	wsURL, _, shutdown := startSignalingServer(t)
	defer shutdown()

	desktop, ui := startDesktop(t, wsURL)
	defer func() { _ = desktop.Close() }()

	phone := joinPhone(t, wsURL, desktop.SessionID())
	defer func() { _ = phone.Close() }()

	require.Eventually(t, desktop.PhoneConnected, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, phone.SendCommand(infraWebsocket.CommandScroll, map[string]interface{}{
		"deltaY": 120,
	}))
	require.Eventually(t, func() bool { return ui.scrollCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	// The desktop pushes its running scroll offset back after applying.
	require.Eventually(t, func() bool { return phone.ScrollY() == 120 },
		2*time.Second, 10*time.Millisecond, "phone should mirror the scroll position")

	require.NoError(t, phone.SendCommand(infraWebsocket.CommandSwipe, map[string]interface{}{
		"direction": "left",
	}))
	require.Eventually(t, func() bool { return ui.lastNavigation() == "/next" },
		2*time.Second, 10*time.Millisecond, "swipe left should navigate to the next route")
}

func TestEndToEnd_RejoiningPhoneHydratesFromSnapshot(t *testing.T) {
	wsURL, _, shutdown := startSignalingServer(t)
	defer shutdown()

	desktop, _ := startDesktop(t, wsURL)
	defer func() { _ = desktop.Close() }()

	first := joinPhone(t, wsURL, desktop.SessionID())
	require.Eventually(t, desktop.PhoneConnected, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, first.SendCommand(infraWebsocket.CommandNavigate, map[string]interface{}{
		"path": "/blog",
	}))
	require.NoError(t, first.SendCommand(infraWebsocket.CommandToggleMenu, nil))
	require.Eventually(t, func() bool {
		return desktop.CurrentRoute() == "/blog" && desktop.MenuOpen()
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, first.Close())
	require.Eventually(t, func() bool { return !desktop.PhoneConnected() },
		2*time.Second, 10*time.Millisecond)

	// The snapshot travels in the join response, so the state is right
	// immediately, before any push arrives.
	second := joinPhone(t, wsURL, desktop.SessionID())
	defer func() { _ = second.Close() }()

	assert.Equal(t, "/blog", second.CurrentRoute())
	assert.True(t, second.MenuOpen())
}

func TestEndToEnd_DesktopCloseDestroysSession(t *testing.T) {
	wsURL, rly, shutdown := startSignalingServer(t)
	defer shutdown()

	desktop, _ := startDesktop(t, wsURL)
	sessionID := desktop.SessionID()

	phone := joinPhone(t, wsURL, sessionID)
	defer func() { _ = phone.Close() }()

	require.NoError(t, desktop.Close())

	require.Eventually(t, func() bool {
		_, err := rly.Snapshot(sessionID)
		return err != nil
	}, 2*time.Second, 10*time.Millisecond, "session should be removed on desktop disconnect")

	require.Eventually(t, func() bool {
		return phone.Status() == client.PhoneStatusDisconnected
	}, 2*time.Second, 10*time.Millisecond, "phone should be told the desktop left")
}

func TestEndToEnd_PhoneCloseKeepsSession(t *testing.T) {
	wsURL, rly, shutdown := startSignalingServer(t)
	defer shutdown()

	desktop, _ := startDesktop(t, wsURL)
	defer func() { _ = desktop.Close() }()
	sessionID := desktop.SessionID()

	phone := joinPhone(t, wsURL, sessionID)
	require.Eventually(t, desktop.PhoneConnected, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, phone.Close())

	require.Eventually(t, func() bool {
		return !desktop.PhoneConnected()
	}, 2*time.Second, 10*time.Millisecond, "desktop should see the phone leave")

	snap, err := rly.Snapshot(sessionID)
	require.NoError(t, err, "session survives a phone disconnect")
	assert.False(t, snap.PhoneConnected)

	// And a new phone can rejoin the same session.
	rejoined := joinPhone(t, wsURL, sessionID)
	defer func() { _ = rejoined.Close() }()
	assert.Equal(t, client.PhoneStatusConnected, rejoined.Status())
}

func TestEndToEnd_DesktopResumeKeepsPairing(t *testing.T) {
	wsURL, rly, shutdown := startSignalingServer(t)
	defer shutdown()

	first, _ := startDesktop(t, wsURL)
	sessionID := first.SessionID()

	phone := joinPhone(t, wsURL, sessionID)
	defer func() { _ = phone.Close() }()
	require.Eventually(t, first.PhoneConnected, 2*time.Second, 10*time.Millisecond)

	// A reloaded page reclaims the session on a fresh connection before the
	// old socket's teardown lands.
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	resumedUI := &fakeUI{}
	resumed := client.NewDesktopController(logger, resumedUI)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, resumed.Resume(ctx, wsURL, sessionID))
	defer func() { _ = resumed.Close() }()
	assert.Equal(t, sessionID, resumed.SessionID())

	require.NoError(t, first.Close())

	_, err := rly.Snapshot(sessionID)
	require.NoError(t, err, "the stale socket's close must not destroy the reclaimed session")

	require.NoError(t, phone.SendCommand(infraWebsocket.CommandNavigate, map[string]interface{}{
		"path": "/pricing",
	}))
	require.Eventually(t, func() bool {
		return resumedUI.lastNavigation() == "/pricing"
	}, 2*time.Second, 10*time.Millisecond, "commands should reach the reclaimed desktop")
}

func TestEndToEnd_ResumeOfGoneSessionFallsBackToFresh(t *testing.T) {
	wsURL, _, shutdown := startSignalingServer(t)
	defer shutdown()

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	desktop := client.NewDesktopController(logger, &fakeUI{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, desktop.Resume(ctx, wsURL, "ZZZZZZ"))
	defer func() { _ = desktop.Close() }()

	assert.NotEmpty(t, desktop.SessionID())
	assert.NotEqual(t, "ZZZZZZ", desktop.SessionID())
}

func TestSignalingServer_SecondCreateOnSameConnectionRejected(t *testing.T) {
	wsURL, _, shutdown := startSignalingServer(t)
	defer shutdown()

	conn, _, err := gws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	require.NoError(t, conn.WriteJSON(&infraWebsocket.Envelope{Type: infraWebsocket.TypeSessionCreate}))
	var first infraWebsocket.Envelope
	require.NoError(t, conn.ReadJSON(&first))
	require.NotNil(t, first.Success)
	require.True(t, *first.Success)

	require.NoError(t, conn.WriteJSON(&infraWebsocket.Envelope{Type: infraWebsocket.TypeSessionCreate}))
	var second infraWebsocket.Envelope
	require.NoError(t, conn.ReadJSON(&second))
	require.NotNil(t, second.Success)
	assert.False(t, *second.Success)
	assert.NotEmpty(t, second.Error)
}
