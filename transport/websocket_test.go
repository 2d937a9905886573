package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// wsPair dials a real WebSocket connection against an httptest server and
// returns both ends wrapped in transport.WebSocket.
func wsPair(t *testing.T) (client, server *WebSocket, closeAll func()) {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	serverConnCh := make(chan *websocket.Conn, 1)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		serverConnCh <- conn
	}))

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	var serverConn *websocket.Conn
	select {
	case serverConn = <-serverConnCh:
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted connection")
	}

	client = NewWebSocket(clientConn)
	server = NewWebSocket(serverConn)
	return client, server, func() {
		_ = client.Close()
		_ = server.Close()
		ts.Close()
	}
}

func TestWebSocketSendReceive(t *testing.T) {
	client, server, closeAll := wsPair(t)
	defer closeAll()

	if err := client.Send([]byte("hello")); err != nil {
		t.Fatalf("send: %v", err)
	}

	data, ok, err := server.Receive()
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if !ok {
		t.Fatal("expected ok=true")
	}
	if string(data) != "hello" {
		t.Errorf("got %q, want %q", data, "hello")
	}
}

func TestWebSocketBidirectional(t *testing.T) {
	client, server, closeAll := wsPair(t)
	defer closeAll()

	if err := server.Send([]byte("reply")); err != nil {
		t.Fatalf("send: %v", err)
	}
	data, ok, err := client.Receive()
	if err != nil || !ok {
		t.Fatalf("receive: ok=%v err=%v", ok, err)
	}
	if string(data) != "reply" {
		t.Errorf("got %q", data)
	}
}

func TestWebSocketCloseSignalsPeer(t *testing.T) {
	client, server, closeAll := wsPair(t)
	defer closeAll()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, ok, err := server.Receive()
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if ok {
			t.Errorf("expected ok=false after peer close")
		}
	}()

	client.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("receive did not unblock after peer close")
	}
}

func TestWebSocketSendAfterCloseFails(t *testing.T) {
	client, server, closeAll := wsPair(t)
	defer closeAll()

	client.Close()
	if err := client.Send([]byte("x")); err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	_ = server
}

func TestWebSocketReceiveAfterSelfCloseFails(t *testing.T) {
	client, server, closeAll := wsPair(t)
	defer closeAll()

	client.Close()
	_, _, err := client.Receive()
	if err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	_ = server
}
