package websocket

import (
	"github.com/remotedeck/remotedeck/pkg/domain/session"
)

// Wire message vocabulary. Requests and server pushes share one envelope
// shape; Type selects which of the optional fields are meaningful.
const (
	TypeSessionCreate       = "session:create"
	TypeSessionJoin         = "session:join"
	TypeCommand             = "command"
	TypeDesktopState        = "desktop:state"
	TypePhoneConnected      = "phone:connected"
	TypePhoneDisconnected   = "phone:disconnected"
	TypeDesktopConnected    = "desktop:connected"
	TypeDesktopDisconnected = "desktop:disconnected"
)

// Command kinds sent by the phone.
const (
	CommandScroll     = "SCROLL"
	CommandNavigate   = "NAVIGATE"
	CommandToggleMenu = "TOGGLE_MENU"
	CommandSwipe      = "SWIPE"
)

// State kinds pushed by the desktop.
const (
	StateCurrentRoute   = "CURRENT_ROUTE"
	StateMenuState      = "MENU_STATE"
	StateScrollPosition = "SCROLL_POSITION"
)

// ErrSessionNotFoundOrExpired is the single user-facing join error; the
// phone cannot act differently on "never existed" vs "timed out".
const ErrSessionNotFoundOrExpired = "Session not found or expired"

type Envelope struct {
	Type      string            `json:"type"`
	SessionID string            `json:"session_id,omitempty"`
	Success   *bool             `json:"success,omitempty"`
	Error     string            `json:"error,omitempty"`
	Session   *session.Snapshot `json:"session,omitempty"`
	Command   *Command          `json:"command,omitempty"`
	State     *StateUpdate      `json:"state,omitempty"`
}

// Command is relayed phone to desktop. Payload stays an untyped map on the
// wire; the relay never interprets it and the desktop decodes it with the
// typed helpers below.
type Command struct {
	Type      string                 `json:"type"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

// StateUpdate is relayed desktop to phone.
type StateUpdate struct {
	Type      string                 `json:"type"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

func SuccessResponse(msgType string, snap session.Snapshot) *Envelope {
	ok := true
	return &Envelope{
		Type:    msgType,
		Success: &ok,
		Session: &snap,
	}
}

func ErrorResponse(msgType string, errMsg string) *Envelope {
	ok := false
	return &Envelope{
		Type:    msgType,
		Success: &ok,
		Error:   errMsg,
	}
}

func Notification(msgType string) *Envelope {
	return &Envelope{Type: msgType}
}
