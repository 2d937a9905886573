package transport

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// wsMaxMessageBytes bounds inbound frame size. Spectrum payloads and
// photon streams are small JSON documents; this is generous headroom
// rather than a tight budget.
const wsMaxMessageBytes = 16 * 1024 * 1024

// WebSocket adapts a *websocket.Conn to the Transport contract: one text
// frame per Send/Receive, matching the pulse protocol's one-pulse-per-frame
// framing. Grounded on the teacher's homeassistant WSClient, which wraps
// gorilla/websocket the same way (mutex-guarded writes, a closed flag
// checked up front).
type WebSocket struct {
	conn *websocket.Conn

	writeMu sync.Mutex
	closeMu sync.Mutex
	closed  bool
}

// NewWebSocket wraps an already-established *websocket.Conn.
func NewWebSocket(conn *websocket.Conn) *WebSocket {
	conn.SetReadLimit(wsMaxMessageBytes)
	return &WebSocket{conn: conn}
}

func (w *WebSocket) Send(data []byte) error {
	w.closeMu.Lock()
	closed := w.closed
	w.closeMu.Unlock()
	if closed {
		return ErrClosed
	}

	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if err := w.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("websocket send: %w", err)
	}
	return nil
}

func (w *WebSocket) Receive() ([]byte, bool, error) {
	for {
		w.closeMu.Lock()
		closed := w.closed
		w.closeMu.Unlock()
		if closed {
			return nil, false, ErrClosed
		}

		msgType, data, err := w.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived) {
				return nil, false, nil
			}
			return nil, false, fmt.Errorf("websocket receive: %w", err)
		}
		if msgType != websocket.TextMessage {
			// Protocol-malformed frame: drop and keep reading.
			continue
		}
		return data, true, nil
	}
}

func (w *WebSocket) Close() error {
	w.closeMu.Lock()
	defer w.closeMu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	// Send a normal-closure frame first so the peer's Receive sees a clean
	// close (ok=false) rather than an abnormal-closure error.
	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return w.conn.Close()
}
