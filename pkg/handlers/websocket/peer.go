package websocket

import (
	"sync"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

// wsPeer adapts a server-side websocket connection to the relay's PeerConn.
// gorilla-based conns allow one concurrent writer, so all envelope writes
// funnel through the mutex here.
type wsPeer struct {
	refID string
	conn  *websocket.Conn
	mu    sync.Mutex
}

func newWsPeer(conn *websocket.Conn) *wsPeer {
	return &wsPeer{
		refID: uuid.NewString(),
		conn:  conn,
	}
}

func (p *wsPeer) RefID() string {
	return p.refID
}

func (p *wsPeer) WriteEnvelope(v interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.WriteJSON(v)
}

func (p *wsPeer) Ping() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.WriteMessage(websocket.PingMessage, []byte{})
}
