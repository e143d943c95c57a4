// Package conn owns the WebSocket link. A background goroutine reads frames
// off the socket but never dispatches them: everything lands in a queue that
// the owner drains once per tick, so callbacks always run on the tick
// goroutine regardless of which goroutine observed the socket event.
package conn

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"interstellar/netclient/internal/logging"
)

var (
	// ErrNotConnected reports a send attempted before the socket opened or
	// after it closed.
	ErrNotConnected = errors.New("websocket not connected")
	// ErrAlreadyConnected reports a Connect while an attempt is live.
	ErrAlreadyConnected = errors.New("websocket already connected")
)

// Callbacks fire from Drain, in the order the events occurred. Per connection
// attempt, OnOpen and OnClose fire at most once each and OnError at most
// once. Nil entries are skipped.
type Callbacks struct {
	OnOpen    func()
	OnMessage func(data []byte)
	OnError   func(err error)
	OnClose   func()
}

type eventKind int

const (
	eventOpen eventKind = iota
	eventMessage
	eventError
	eventClose
)

type event struct {
	kind eventKind
	data []byte
	err  error
}

// Option customises manager construction.
type Option func(*Manager)

// WithLogger attaches a structured logger.
func WithLogger(log *logging.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

// WithMaxPayloadBytes caps inbound frame size; oversized frames close the
// connection.
func WithMaxPayloadBytes(limit int64) Option {
	return func(m *Manager) {
		if limit > 0 {
			m.maxPayload = limit
		}
	}
}

// WithPingInterval sets the keepalive cadence. Zero disables pings.
func WithPingInterval(interval time.Duration) Option {
	return func(m *Manager) { m.pingInterval = interval }
}

// WithHandshakeTimeout bounds the WebSocket dial.
func WithHandshakeTimeout(timeout time.Duration) Option {
	return func(m *Manager) {
		if timeout > 0 {
			m.handshakeTimeout = timeout
		}
	}
}

// Manager drives one WebSocket connection attempt at a time.
type Manager struct {
	log              *logging.Logger
	callbacks        Callbacks
	maxPayload       int64
	pingInterval     time.Duration
	handshakeTimeout time.Duration

	mu      sync.Mutex
	conn    *websocket.Conn
	active  bool
	closing bool
	queue   []event
	errored bool
	done    chan struct{}

	writeMu sync.Mutex
}

// NewManager constructs an idle manager. Callbacks must be fixed up front so
// no event can slip through before the owner is listening.
func NewManager(callbacks Callbacks, opts ...Option) *Manager {
	manager := &Manager{
		log:              logging.NewTestLogger(),
		callbacks:        callbacks,
		maxPayload:       1 << 20,
		pingInterval:     30 * time.Second,
		handshakeTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(manager)
	}
	return manager
}

// Connect dials address asynchronously. The outcome is reported through the
// drained callbacks: OnOpen on success, OnError then OnClose on failure.
func (m *Manager) Connect(ctx context.Context, address string) error {
	if m == nil {
		return errors.New("nil connection manager")
	}
	m.mu.Lock()
	if m.active {
		m.mu.Unlock()
		return ErrAlreadyConnected
	}
	m.active = true
	m.errored = false
	m.closing = false
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	ctx, log, _ := logging.WithTrace(ctx, m.log, "")
	go m.dial(ctx, log, address, done)
	return nil
}

func (m *Manager) dial(ctx context.Context, log *logging.Logger, address string, done chan struct{}) {
	dialer := websocket.Dialer{HandshakeTimeout: m.handshakeTimeout}
	conn, resp, err := dialer.DialContext(ctx, address, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		log.Error("websocket dial failed", logging.String("address", address), logging.Error(err))
		m.enqueueError(err)
		m.finish(done)
		return
	}
	conn.SetReadLimit(m.maxPayload)

	m.mu.Lock()
	m.conn = conn
	m.queue = append(m.queue, event{kind: eventOpen})
	m.mu.Unlock()

	log.Info("websocket connected", logging.String("address", address))
	if m.pingInterval > 0 {
		go m.pingLoop(conn, done)
	}
	m.readLoop(log, conn, done)
}

func (m *Manager) readLoop(log *logging.Logger, conn *websocket.Conn, done chan struct{}) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.mu.Lock()
			deliberate := m.closing
			m.mu.Unlock()
			if !deliberate && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn("websocket read failed", logging.Error(err))
				m.enqueueError(err)
			}
			m.finish(done)
			return
		}
		m.mu.Lock()
		m.queue = append(m.queue, event{kind: eventMessage, data: data})
		m.mu.Unlock()
	}
}

func (m *Manager) pingLoop(conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(m.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			m.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			m.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (m *Manager) enqueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errored {
		return
	}
	m.errored = true
	m.queue = append(m.queue, event{kind: eventError, err: err})
}

// finish closes out the attempt: the socket is released, OnClose is queued,
// and a fresh Connect becomes legal.
func (m *Manager) finish(done chan struct{}) {
	m.mu.Lock()
	if m.done != done {
		m.mu.Unlock()
		return
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.active = false
	m.done = nil
	m.queue = append(m.queue, event{kind: eventClose})
	m.mu.Unlock()
	close(done)
}

// Send writes a binary frame. Safe from any goroutine.
func (m *Manager) Send(data []byte) error {
	if m == nil {
		return errors.New("nil connection manager")
	}
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return conn.WriteMessage(websocket.BinaryMessage, data)
}

// Connected reports whether the socket is currently open.
func (m *Manager) Connected() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.conn != nil
}

// Drain dispatches every queued event in arrival order. Call it from exactly
// one goroutine, typically once per tick; it is the only place callbacks run.
func (m *Manager) Drain() {
	if m == nil {
		return
	}
	m.mu.Lock()
	queue := m.queue
	m.queue = nil
	m.mu.Unlock()

	for _, ev := range queue {
		switch ev.kind {
		case eventOpen:
			if m.callbacks.OnOpen != nil {
				m.callbacks.OnOpen()
			}
		case eventMessage:
			if m.callbacks.OnMessage != nil {
				m.callbacks.OnMessage(ev.data)
			}
		case eventError:
			if m.callbacks.OnError != nil {
				m.callbacks.OnError(ev.err)
			}
		case eventClose:
			if m.callbacks.OnClose != nil {
				m.callbacks.OnClose()
			}
		}
	}
}

// Close tears the socket down. Idempotent; the OnClose callback still arrives
// through Drain once the read loop observes the closure.
func (m *Manager) Close() {
	if m == nil {
		return
	}
	m.mu.Lock()
	conn := m.conn
	m.closing = conn != nil
	m.mu.Unlock()
	if conn == nil {
		return
	}
	m.writeMu.Lock()
	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	m.writeMu.Unlock()
	_ = conn.Close()
}
