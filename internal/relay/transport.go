// Package relay implements the client side of the relay link: a small state
// machine that tracks the match roster, forwards gameplay bytes, and exposes
// host- or client-flavoured callbacks depending on which role this peer took.
package relay

import (
	"crypto/md5"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"interstellar/netclient/internal/logging"
	"interstellar/netclient/internal/proxy"
	"interstellar/netclient/internal/wire"
)

// State tracks the relay link lifecycle. Transitions only move forward until
// Stop resets the machine to Disconnected, from which a fresh Start is legal.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateConnectedHost
	StateConnectedClient
	StateDisconnecting
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnectedHost:
		return "connected_host"
	case StateConnectedClient:
		return "connected_client"
	case StateDisconnecting:
		return "disconnecting"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

var (
	// ErrNotConnected reports an operation that needs an established link.
	ErrNotConnected = errors.New("relay not connected")
	// ErrAlreadyConnected reports a Start while a link is live or pending.
	ErrAlreadyConnected = errors.New("relay already connected")
	// ErrUnknownPeer reports a send addressed to a connection id that is not
	// in the roster.
	ErrUnknownPeer = errors.New("unknown peer connection id")
)

// ConnectionID derives the stable numeric peer identifier for a user: the
// little-endian int32 of the first four bytes of the MD5 digest of the user
// id. Every peer computes the same id for the same user without exchanging
// extra state.
func ConnectionID(userID string) int32 {
	sum := md5.Sum([]byte(userID))
	return int32(binary.LittleEndian.Uint32(sum[:4]))
}

// SendFunc transmits one encoded relay message.
type SendFunc func(data []byte) error

// Callbacks are invoked during HandleMessage and Stop, always from the drain
// goroutine, never concurrently. Nil entries are skipped.
type Callbacks struct {
	// Host-side callbacks, keyed by the connecting peer's connection id.
	OnServerConnected    func(connID int32)
	OnServerDisconnected func(connID int32)
	OnServerData         func(connID int32, channel int32, data []byte)

	// Client-side callbacks.
	OnClientConnected    func()
	OnClientDisconnected func()
	OnClientData         func(channel int32, data []byte)
}

// Option customises transport construction.
type Option func(*Transport)

// WithClock injects the timestamp source, primarily for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Transport) {
		if now != nil {
			t.now = now
		}
	}
}

// WithIDGenerator injects the message identifier source, primarily for tests.
func WithIDGenerator(newID func() string) Option {
	return func(t *Transport) {
		if newID != nil {
			t.newID = newID
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(log *logging.Logger) Option {
	return func(t *Transport) {
		if log != nil {
			t.log = log
		}
	}
}

// WithCorrelator binds a proxy correlator whose in-flight calls are failed
// with ErrConnectionClosed when the relay link tears down.
func WithCorrelator(correlator *proxy.Client) Option {
	return func(t *Transport) { t.correlator = correlator }
}

// Transport is the relay link state machine. It is not safe for concurrent
// use; the connection manager serialises HandleMessage and Send onto the
// drain goroutine.
type Transport struct {
	send       SendFunc
	now        func() time.Time
	newID      func() string
	log        *logging.Logger
	correlator *proxy.Client
	callbacks  Callbacks

	mu      sync.Mutex
	state   State
	hosting bool
	userID  string
	selfID  int32
	matchID string
	// roster maps both directions so outbound sends resolve a connection id
	// to a user id and inbound data resolves the reverse.
	userByConn map[int32]string
	connByUser map[string]int32
}

// NewTransport constructs an idle transport that transmits through send.
func NewTransport(send SendFunc, opts ...Option) *Transport {
	transport := &Transport{
		send:       send,
		now:        time.Now,
		newID:      uuid.NewString,
		log:        logging.NewTestLogger(),
		state:      StateIdle,
		userByConn: make(map[int32]string),
		connByUser: make(map[string]int32),
	}
	for _, opt := range opts {
		opt(transport)
	}
	return transport
}

// Configure binds the match and local user identity. Must be called before
// Start; the derived connection id is how other peers will address this
// client, so every peer has to derive it the same way.
func (t *Transport) Configure(matchID, userID string, callbacks Callbacks) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.matchID = matchID
	t.userID = userID
	t.selfID = ConnectionID(userID)
	t.callbacks = callbacks
}

// SelfID reports the connection id derived from the configured user.
func (t *Transport) SelfID() int32 {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.selfID
}

// State reports the current lifecycle state.
func (t *Transport) State() State {
	if t == nil {
		return StateIdle
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// MatchID reports the match announced by the last MatchReady, if any.
func (t *Transport) MatchID() string {
	if t == nil {
		return ""
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.matchID
}

// StartHost begins connecting in the host role. The link is established once
// the relay announces MatchReady.
func (t *Transport) StartHost() error { return t.start(true) }

// StartClient begins connecting in the client role.
func (t *Transport) StartClient() error { return t.start(false) }

// HandleOpen reacts to the relay socket opening. The host announces its
// readiness for the configured match; clients wait passively for MatchReady.
func (t *Transport) HandleOpen() {
	if t == nil {
		return
	}
	t.mu.Lock()
	if !t.hosting || t.state != StateConnecting {
		t.mu.Unlock()
		return
	}
	msg := &wire.RelayMessage{
		Mid:      t.newID(),
		Type:     wire.RelayMessageTypeMatchHostReady,
		SendTime: t.now().Unix(),
		Sender:   t.userID,
		MatchHostReady: &wire.MatchHostReady{
			MatchID: t.matchID,
		},
	}
	t.mu.Unlock()
	if err := t.send(wire.EncodeRelayMessage(msg)); err != nil {
		t.log.Warn("host ready announce failed", logging.Error(err))
	}
}

func (t *Transport) start(hosting bool) error {
	if t == nil {
		return errors.New("nil transport")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.userID == "" {
		return errors.New("transport not configured")
	}
	switch t.state {
	case StateIdle, StateDisconnected:
	default:
		return fmt.Errorf("%w: state %s", ErrAlreadyConnected, t.state)
	}
	t.state = StateConnecting
	t.hosting = hosting
	t.userByConn = make(map[int32]string)
	t.connByUser = make(map[string]int32)
	t.log.Info("relay connecting",
		logging.Bool("hosting", hosting),
		logging.Int32("self_id", t.selfID))
	return nil
}

// Send forwards gameplay bytes over the relay. Hosts address peers by
// connection id, with zero meaning every peer; clients always send to the
// host, so target is ignored.
func (t *Transport) Send(target int32, channel int32, data []byte) error {
	if t == nil {
		return errors.New("nil transport")
	}
	t.mu.Lock()
	var recipients []string
	switch t.state {
	case StateConnectedHost:
		if target != 0 {
			user, ok := t.userByConn[target]
			if !ok {
				t.mu.Unlock()
				return fmt.Errorf("%w: %d", ErrUnknownPeer, target)
			}
			recipients = []string{user}
		}
	case StateConnectedClient:
		// Client data is unaddressed; the relay forwards it to the host.
	default:
		state := t.state
		t.mu.Unlock()
		return fmt.Errorf("%w: state %s", ErrNotConnected, state)
	}
	msg := &wire.RelayMessage{
		Mid:        t.newID(),
		Type:       wire.RelayMessageTypeRelayData,
		SendTime:   t.now().Unix(),
		Sender:     t.userID,
		Recipients: recipients,
		RelayData: &wire.RelayData{
			MatchID: t.matchID,
			Channel: channel,
			Data:    data,
		},
	}
	t.mu.Unlock()
	return t.send(wire.EncodeRelayMessage(msg))
}

// HandleMessage applies one decoded relay message to the state machine.
func (t *Transport) HandleMessage(msg *wire.RelayMessage) {
	if t == nil || msg == nil {
		return
	}
	switch msg.Type {
	case wire.RelayMessageTypeMatchReady:
		t.handleMatchReady(msg.MatchReady)
	case wire.RelayMessageTypeMatchJoined:
		t.handleMatchJoined(msg.MatchJoined)
	case wire.RelayMessageTypeMatchLeft:
		t.handleMatchLeft(msg.MatchLeft)
	case wire.RelayMessageTypeMatchOver:
		t.handleMatchOver(msg.MatchOver)
	case wire.RelayMessageTypeMatchHostReady:
		if ready := msg.MatchHostReady; ready != nil {
			t.log.Debug("host readiness announced",
				logging.String("match_id", ready.MatchID),
				logging.String("reason", ready.ReasonForUnready))
		}
	case wire.RelayMessageTypeRelayData:
		t.handleRelayData(msg)
	default:
		t.log.Warn("unknown relay message type",
			logging.String("mid", msg.Mid),
			logging.Int32("type", int32(msg.Type)))
	}
}

func (t *Transport) handleMatchReady(ready *wire.MatchReady) {
	if ready == nil {
		return
	}
	t.mu.Lock()
	if t.state != StateConnecting {
		t.mu.Unlock()
		t.log.Warn("match ready outside of connect",
			logging.String("match_id", ready.MatchID))
		return
	}
	t.matchID = ready.MatchID
	var joined []int32
	for _, player := range ready.MatchPlayers {
		connID := t.addPlayerLocked(player)
		if player.UserID != t.userID {
			joined = append(joined, connID)
		}
	}
	hosting := t.hosting
	if hosting {
		t.state = StateConnectedHost
	} else {
		t.state = StateConnectedClient
	}
	callbacks := t.callbacks
	t.mu.Unlock()

	t.log.Info("relay match ready",
		logging.String("match_id", ready.MatchID),
		logging.Int("players", len(ready.MatchPlayers)),
		logging.Bool("hosting", hosting))
	if hosting {
		if callbacks.OnServerConnected != nil {
			for _, connID := range joined {
				callbacks.OnServerConnected(connID)
			}
		}
	} else if callbacks.OnClientConnected != nil {
		callbacks.OnClientConnected()
	}
}

func (t *Transport) handleMatchJoined(joined *wire.MatchJoined) {
	if joined == nil {
		return
	}
	t.mu.Lock()
	if !t.connectedLocked() {
		t.mu.Unlock()
		return
	}
	t.syncRosterLocked(joined.MatchPlayers)
	if _, ok := t.connByUser[joined.PlayerJoinedID]; !ok && joined.PlayerJoinedID != "" {
		t.addPlayerLocked(wire.MatchPlayer{UserID: joined.PlayerJoinedID})
	}
	connID, known := t.connByUser[joined.PlayerJoinedID]
	hosting := t.hosting
	callbacks := t.callbacks
	t.mu.Unlock()

	t.log.Info("peer joined match",
		logging.String("match_id", joined.MatchID),
		logging.String("user_id", joined.PlayerJoinedID))
	if hosting && known && callbacks.OnServerConnected != nil {
		callbacks.OnServerConnected(connID)
	}
}

func (t *Transport) handleMatchLeft(left *wire.MatchLeft) {
	if left == nil {
		return
	}
	t.mu.Lock()
	if !t.connectedLocked() {
		t.mu.Unlock()
		return
	}
	connID, known := t.connByUser[left.PlayerLeftID]
	if known {
		delete(t.connByUser, left.PlayerLeftID)
		delete(t.userByConn, connID)
	}
	t.syncRosterLocked(left.MatchPlayers)
	hosting := t.hosting
	callbacks := t.callbacks
	t.mu.Unlock()

	t.log.Info("peer left match",
		logging.String("match_id", left.MatchID),
		logging.String("user_id", left.PlayerLeftID))
	if hosting && known && callbacks.OnServerDisconnected != nil {
		callbacks.OnServerDisconnected(connID)
	}
}

func (t *Transport) handleMatchOver(over *wire.MatchOver) {
	reason := "match over"
	matchID := ""
	if over != nil {
		matchID = over.MatchID
		if over.ReasonForOver != "" {
			reason = over.ReasonForOver
		}
	}
	t.log.Info("relay match over",
		logging.String("match_id", matchID),
		logging.String("reason", reason))
	t.teardown()
}

func (t *Transport) handleRelayData(msg *wire.RelayMessage) {
	data := msg.RelayData
	if data == nil {
		return
	}
	t.mu.Lock()
	state := t.state
	callbacks := t.callbacks
	connID, known := t.connByUser[msg.Sender]
	t.mu.Unlock()

	switch state {
	case StateConnectedHost:
		if !known {
			t.log.Warn("dropping relay data from unknown sender",
				logging.String("sender", msg.Sender),
				logging.String("match_id", data.MatchID))
			return
		}
		if callbacks.OnServerData != nil {
			callbacks.OnServerData(connID, data.Channel, data.Data)
		}
	case StateConnectedClient:
		if callbacks.OnClientData != nil {
			callbacks.OnClientData(data.Channel, data.Data)
		}
	default:
		t.log.Warn("dropping relay data outside of connection",
			logging.String("state", state.String()))
	}
}

// Stop tears the link down. Safe to call in any state and repeatedly; only
// the first call after a connect fires disconnect callbacks.
func (t *Transport) Stop() {
	t.teardown()
}

func (t *Transport) teardown() {
	if t == nil {
		return
	}
	t.mu.Lock()
	if t.state == StateDisconnected || t.state == StateIdle {
		t.mu.Unlock()
		return
	}
	t.state = StateDisconnecting
	hosting := t.hosting
	callbacks := t.callbacks
	peers := make([]int32, 0, len(t.userByConn))
	for connID, user := range t.userByConn {
		if user != t.userID {
			peers = append(peers, connID)
		}
	}
	t.userByConn = make(map[int32]string)
	t.connByUser = make(map[string]int32)
	t.matchID = ""
	t.hosting = false
	t.state = StateDisconnected
	t.mu.Unlock()

	if hosting {
		if callbacks.OnServerDisconnected != nil {
			for _, connID := range peers {
				callbacks.OnServerDisconnected(connID)
			}
		}
	} else if callbacks.OnClientDisconnected != nil {
		callbacks.OnClientDisconnected()
	}
	if t.correlator != nil {
		t.correlator.FailAll(proxy.ErrConnectionClosed)
	}
	t.log.Info("relay disconnected")
}

func (t *Transport) connectedLocked() bool {
	return t.state == StateConnectedHost || t.state == StateConnectedClient
}

func (t *Transport) addPlayerLocked(player wire.MatchPlayer) int32 {
	connID := ConnectionID(player.UserID)
	t.userByConn[connID] = player.UserID
	t.connByUser[player.UserID] = connID
	return connID
}

// syncRosterLocked refreshes the roster from an authoritative player list.
// Messages that omit the list leave the current roster untouched.
func (t *Transport) syncRosterLocked(players []wire.MatchPlayer) {
	if len(players) == 0 {
		return
	}
	t.userByConn = make(map[int32]string, len(players))
	t.connByUser = make(map[string]int32, len(players))
	for _, player := range players {
		t.addPlayerLocked(player)
	}
}

// Roster returns the user ids currently in the match keyed by connection id.
func (t *Transport) Roster() map[int32]string {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	roster := make(map[int32]string, len(t.userByConn))
	for connID, user := range t.userByConn {
		roster[connID] = user
	}
	return roster
}
