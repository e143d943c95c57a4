package conn

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

// newSocketServer runs handler for every upgraded connection and returns the
// ws:// address.
func newSocketServer(t *testing.T, handler func(conn *websocket.Conn)) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		socket, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		handler(socket)
	}))
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

// recorder collects callback invocations; everything runs on the test
// goroutine because Drain is only called from there.
type recorder struct {
	order    []string
	messages [][]byte
	errs     []error
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnOpen: func() { r.order = append(r.order, "open") },
		OnMessage: func(data []byte) {
			r.order = append(r.order, "message")
			r.messages = append(r.messages, data)
		},
		OnError: func(err error) {
			r.order = append(r.order, "error")
			r.errs = append(r.errs, err)
		},
		OnClose: func() { r.order = append(r.order, "close") },
	}
}

func drainUntil(t *testing.T, manager *Manager, rec *recorder, want string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		manager.Drain()
		for _, name := range rec.order {
			if name == want {
				return
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %q, saw %v", want, rec.order)
}

func TestConnectDeliversOpenAndMessages(t *testing.T) {
	address := newSocketServer(t, func(socket *websocket.Conn) {
		_ = socket.WriteMessage(websocket.BinaryMessage, []byte{0x01})
		_ = socket.WriteMessage(websocket.BinaryMessage, []byte{0x02})
		// Keep the connection open until the client goes away.
		for {
			if _, _, err := socket.ReadMessage(); err != nil {
				return
			}
		}
	})

	rec := &recorder{}
	manager := NewManager(rec.callbacks(), WithPingInterval(0))

	if err := manager.Connect(context.Background(), address); err != nil {
		t.Fatalf("Connect returned %v", err)
	}
	drainUntil(t, manager, rec, "message")

	if rec.order[0] != "open" {
		t.Fatalf("expected open before messages, got %v", rec.order)
	}
	drainUntil(t, manager, rec, "message")
	deadline := time.Now().Add(5 * time.Second)
	for len(rec.messages) < 2 && time.Now().Before(deadline) {
		manager.Drain()
		time.Sleep(10 * time.Millisecond)
	}
	if len(rec.messages) != 2 || rec.messages[0][0] != 0x01 || rec.messages[1][0] != 0x02 {
		t.Fatalf("messages out of order or missing: %v", rec.messages)
	}

	manager.Close()
	drainUntil(t, manager, rec, "close")
}

func TestSendBeforeConnectFails(t *testing.T) {
	manager := NewManager(Callbacks{})
	if err := manager.Send([]byte{0x01}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestConnectWhileActiveFails(t *testing.T) {
	connected := make(chan struct{})
	address := newSocketServer(t, func(socket *websocket.Conn) {
		close(connected)
		for {
			if _, _, err := socket.ReadMessage(); err != nil {
				return
			}
		}
	})

	rec := &recorder{}
	manager := NewManager(rec.callbacks(), WithPingInterval(0))
	if err := manager.Connect(context.Background(), address); err != nil {
		t.Fatalf("Connect returned %v", err)
	}
	<-connected

	if err := manager.Connect(context.Background(), address); !errors.Is(err, ErrAlreadyConnected) {
		t.Fatalf("expected ErrAlreadyConnected, got %v", err)
	}

	manager.Close()
	drainUntil(t, manager, rec, "close")
}

func TestSendReachesServer(t *testing.T) {
	var mu sync.Mutex
	var received [][]byte
	address := newSocketServer(t, func(socket *websocket.Conn) {
		for {
			_, data, err := socket.ReadMessage()
			if err != nil {
				return
			}
			mu.Lock()
			received = append(received, data)
			mu.Unlock()
		}
	})

	rec := &recorder{}
	manager := NewManager(rec.callbacks(), WithPingInterval(0))
	if err := manager.Connect(context.Background(), address); err != nil {
		t.Fatalf("Connect returned %v", err)
	}
	drainUntil(t, manager, rec, "open")

	if err := manager.Send([]byte{0xaa, 0xbb}); err != nil {
		t.Fatalf("Send returned %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		count := len(received)
		mu.Unlock()
		if count == 1 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(received) != 1 || received[0][0] != 0xaa {
		t.Fatalf("server did not receive the frame: %v", received)
	}
	manager.Close()
}

func TestServerCloseDeliversCloseWithoutError(t *testing.T) {
	address := newSocketServer(t, func(socket *websocket.Conn) {
		deadline := time.Now().Add(time.Second)
		_ = socket.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = socket.Close()
	})

	rec := &recorder{}
	manager := NewManager(rec.callbacks(), WithPingInterval(0))
	if err := manager.Connect(context.Background(), address); err != nil {
		t.Fatalf("Connect returned %v", err)
	}
	drainUntil(t, manager, rec, "close")

	closes := 0
	for _, name := range rec.order {
		if name == "close" {
			closes++
		}
		if name == "error" {
			t.Fatalf("normal closure reported an error: %v", rec.errs)
		}
	}
	if closes != 1 {
		t.Fatalf("expected exactly one close, got %d (%v)", closes, rec.order)
	}

	//1.- The attempt is finished, so a new Connect is legal again.
	if !errorsIsNil(manager.Connect(context.Background(), address)) {
		t.Fatalf("reconnect after close failed")
	}
	drainUntil(t, manager, rec, "close")
}

func errorsIsNil(err error) bool { return err == nil }

func TestDialFailureDeliversErrorThenClose(t *testing.T) {
	rec := &recorder{}
	manager := NewManager(rec.callbacks(), WithHandshakeTimeout(time.Second))

	if err := manager.Connect(context.Background(), "ws://127.0.0.1:1"); err != nil {
		t.Fatalf("Connect returned %v", err)
	}
	drainUntil(t, manager, rec, "close")

	if len(rec.errs) != 1 {
		t.Fatalf("expected exactly one error, got %v", rec.errs)
	}
	last := rec.order[len(rec.order)-1]
	if last != "close" {
		t.Fatalf("expected close last, got %v", rec.order)
	}
	for i, name := range rec.order {
		if name == "error" && rec.order[i+1] != "close" {
			t.Fatalf("expected close immediately after error, got %v", rec.order)
		}
	}
}

func TestDeliberateCloseSuppressesError(t *testing.T) {
	address := newSocketServer(t, func(socket *websocket.Conn) {
		for {
			if _, _, err := socket.ReadMessage(); err != nil {
				return
			}
		}
	})

	rec := &recorder{}
	manager := NewManager(rec.callbacks(), WithPingInterval(0))
	if err := manager.Connect(context.Background(), address); err != nil {
		t.Fatalf("Connect returned %v", err)
	}
	drainUntil(t, manager, rec, "open")

	manager.Close()
	manager.Close()
	drainUntil(t, manager, rec, "close")

	for _, name := range rec.order {
		if name == "error" {
			t.Fatalf("deliberate close reported an error: %v", rec.errs)
		}
	}
	if manager.Connected() {
		t.Fatalf("manager still reports connected after close")
	}
}
