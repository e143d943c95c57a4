package relay

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"interstellar/netclient/internal/proxy"
	"interstellar/netclient/internal/wire"
)

func discardSend([]byte) error { return nil }

func testOptions() []Option {
	var n int
	return []Option{
		WithClock(func() time.Time { return time.Unix(1700000000, 0) }),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("relay-mid-%d", n)
		}),
	}
}

func matchReady(players ...wire.MatchPlayer) *wire.RelayMessage {
	return &wire.RelayMessage{
		Mid:        "server-1",
		Type:       wire.RelayMessageTypeMatchReady,
		MatchReady: &wire.MatchReady{MatchID: "match-9", MatchPlayers: players},
	}
}

func TestConnectionIDDerivation(t *testing.T) {
	//1.- Known digests pin the derivation so every peer computes identical ids.
	cases := map[string]int32{
		"abc123": -1005020439,
		"host-1": 814971177,
		"peer-a": -1130533146,
		"peer-b": 1201970728,
	}
	for userID, want := range cases {
		if got := ConnectionID(userID); got != want {
			t.Fatalf("ConnectionID(%q) = %d, want %d", userID, got, want)
		}
	}
	if ConnectionID("abc123") != ConnectionID("abc123") {
		t.Fatalf("ConnectionID is not stable")
	}
}

func TestStartHostThenMatchReady(t *testing.T) {
	transport := NewTransport(discardSend, testOptions()...)

	var connected []int32
	transport.Configure("match-9", "host-1", Callbacks{
		OnServerConnected: func(connID int32) { connected = append(connected, connID) },
	})

	if err := transport.StartHost(); err != nil {
		t.Fatalf("StartHost returned %v", err)
	}
	if transport.State() != StateConnecting {
		t.Fatalf("expected connecting state, got %s", transport.State())
	}

	transport.HandleMessage(matchReady(
		wire.MatchPlayer{UserID: "host-1", Username: "ada"},
		wire.MatchPlayer{UserID: "peer-a", Username: "bea"},
		wire.MatchPlayer{UserID: "peer-b", Username: "cal"},
	))

	if transport.State() != StateConnectedHost {
		t.Fatalf("expected connected host, got %s", transport.State())
	}
	if transport.MatchID() != "match-9" {
		t.Fatalf("unexpected match id %q", transport.MatchID())
	}
	if len(connected) != 2 {
		t.Fatalf("expected two peer connects, got %v", connected)
	}
	seen := map[int32]bool{}
	for _, connID := range connected {
		seen[connID] = true
	}
	if !seen[ConnectionID("peer-a")] || !seen[ConnectionID("peer-b")] {
		t.Fatalf("unexpected peer ids: %v", connected)
	}
	if seen[ConnectionID("host-1")] {
		t.Fatalf("host reported itself as a connecting peer")
	}
}

func TestStartClientThenMatchReady(t *testing.T) {
	transport := NewTransport(discardSend, testOptions()...)

	var connects int
	transport.Configure("match-9", "peer-a", Callbacks{
		OnClientConnected: func() { connects++ },
	})

	if err := transport.StartClient(); err != nil {
		t.Fatalf("StartClient returned %v", err)
	}
	transport.HandleMessage(matchReady(
		wire.MatchPlayer{UserID: "host-1"},
		wire.MatchPlayer{UserID: "peer-a"},
	))

	if transport.State() != StateConnectedClient {
		t.Fatalf("expected connected client, got %s", transport.State())
	}
	if connects != 1 {
		t.Fatalf("expected one client connect, got %d", connects)
	}
}

func TestHostAnnouncesReadinessOnOpen(t *testing.T) {
	var sent [][]byte
	transport := NewTransport(func(data []byte) error {
		sent = append(sent, data)
		return nil
	}, testOptions()...)
	transport.Configure("match-9", "host-1", Callbacks{})

	if err := transport.StartHost(); err != nil {
		t.Fatalf("StartHost returned %v", err)
	}
	transport.HandleOpen()

	if len(sent) != 1 {
		t.Fatalf("expected one announce frame, got %d", len(sent))
	}
	msg, err := wire.DecodeRelayMessage(sent[0])
	if err != nil {
		t.Fatalf("announce frame does not decode: %v", err)
	}
	if msg.Type != wire.RelayMessageTypeMatchHostReady || msg.Sender != "host-1" {
		t.Fatalf("unexpected announce message: %+v", msg)
	}
	if msg.MatchHostReady == nil || msg.MatchHostReady.MatchID != "match-9" {
		t.Fatalf("unexpected host ready body: %+v", msg.MatchHostReady)
	}
}

func TestClientOpenIsSilent(t *testing.T) {
	var sent int
	transport := NewTransport(func([]byte) error {
		sent++
		return nil
	}, testOptions()...)
	transport.Configure("match-9", "peer-a", Callbacks{})

	if err := transport.StartClient(); err != nil {
		t.Fatalf("StartClient returned %v", err)
	}
	transport.HandleOpen()

	if sent != 0 {
		t.Fatalf("client announced on open, %d frames sent", sent)
	}
}

func TestStartWhileConnectedFails(t *testing.T) {
	transport := NewTransport(discardSend, testOptions()...)
	transport.Configure("match-9", "host-1", Callbacks{})

	if err := transport.StartHost(); err != nil {
		t.Fatalf("StartHost returned %v", err)
	}
	if err := transport.StartHost(); !errors.Is(err, ErrAlreadyConnected) {
		t.Fatalf("expected ErrAlreadyConnected, got %v", err)
	}
	if err := transport.StartClient(); !errors.Is(err, ErrAlreadyConnected) {
		t.Fatalf("expected ErrAlreadyConnected, got %v", err)
	}
}

func TestSendRequiresConnection(t *testing.T) {
	transport := NewTransport(discardSend, testOptions()...)
	transport.Configure("match-9", "host-1", Callbacks{})

	if err := transport.Send(0, 1, []byte{0x01}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestHostSendAddressing(t *testing.T) {
	var sent [][]byte
	transport := NewTransport(func(data []byte) error {
		sent = append(sent, data)
		return nil
	}, testOptions()...)
	transport.Configure("match-9", "host-1", Callbacks{})

	if err := transport.StartHost(); err != nil {
		t.Fatalf("StartHost returned %v", err)
	}
	transport.HandleMessage(matchReady(
		wire.MatchPlayer{UserID: "host-1"},
		wire.MatchPlayer{UserID: "peer-a"},
		wire.MatchPlayer{UserID: "peer-b"},
	))

	//1.- Targeted send resolves the connection id back to the peer's user id.
	if err := transport.Send(ConnectionID("peer-a"), 2, []byte{0xaa}); err != nil {
		t.Fatalf("targeted Send returned %v", err)
	}
	msg, err := wire.DecodeRelayMessage(sent[len(sent)-1])
	if err != nil {
		t.Fatalf("sent frame does not decode: %v", err)
	}
	if msg.Type != wire.RelayMessageTypeRelayData || msg.Sender != "host-1" {
		t.Fatalf("unexpected relay message: %+v", msg)
	}
	if len(msg.Recipients) != 1 || msg.Recipients[0] != "peer-a" {
		t.Fatalf("unexpected recipients: %v", msg.Recipients)
	}
	if msg.RelayData == nil || msg.RelayData.Channel != 2 {
		t.Fatalf("unexpected relay data: %+v", msg.RelayData)
	}

	//2.- Target zero broadcasts: no recipients listed.
	if err := transport.Send(0, 1, []byte{0xbb}); err != nil {
		t.Fatalf("broadcast Send returned %v", err)
	}
	msg, err = wire.DecodeRelayMessage(sent[len(sent)-1])
	if err != nil {
		t.Fatalf("sent frame does not decode: %v", err)
	}
	if len(msg.Recipients) != 0 {
		t.Fatalf("broadcast must not list recipients, got %v", msg.Recipients)
	}

	//3.- Unknown connection ids are rejected before anything is sent.
	frames := len(sent)
	if err := transport.Send(12345, 1, nil); !errors.Is(err, ErrUnknownPeer) {
		t.Fatalf("expected ErrUnknownPeer, got %v", err)
	}
	if len(sent) != frames {
		t.Fatalf("rejected send still transmitted a frame")
	}
}

func TestHostReceivesRelayData(t *testing.T) {
	transport := NewTransport(discardSend, testOptions()...)

	type delivery struct {
		connID  int32
		channel int32
		data    []byte
	}
	var deliveries []delivery
	transport.Configure("match-9", "host-1", Callbacks{
		OnServerData: func(connID, channel int32, data []byte) {
			deliveries = append(deliveries, delivery{connID, channel, data})
		},
	})

	if err := transport.StartHost(); err != nil {
		t.Fatalf("StartHost returned %v", err)
	}
	transport.HandleMessage(matchReady(
		wire.MatchPlayer{UserID: "host-1"},
		wire.MatchPlayer{UserID: "peer-a"},
	))

	transport.HandleMessage(&wire.RelayMessage{
		Mid:       "server-2",
		Type:      wire.RelayMessageTypeRelayData,
		Sender:    "peer-a",
		RelayData: &wire.RelayData{MatchID: "match-9", Channel: 3, Data: []byte{0x01, 0x02}},
	})
	//1.- Data from a sender outside the roster is dropped.
	transport.HandleMessage(&wire.RelayMessage{
		Mid:       "server-3",
		Type:      wire.RelayMessageTypeRelayData,
		Sender:    "stranger",
		RelayData: &wire.RelayData{MatchID: "match-9", Channel: 3, Data: []byte{0x03}},
	})

	if len(deliveries) != 1 {
		t.Fatalf("expected one delivery, got %d", len(deliveries))
	}
	if deliveries[0].connID != ConnectionID("peer-a") || deliveries[0].channel != 3 {
		t.Fatalf("unexpected delivery: %+v", deliveries[0])
	}
}

func TestClientReceivesRelayData(t *testing.T) {
	transport := NewTransport(discardSend, testOptions()...)

	var channels []int32
	transport.Configure("match-9", "peer-a", Callbacks{
		OnClientData: func(channel int32, data []byte) { channels = append(channels, channel) },
	})

	if err := transport.StartClient(); err != nil {
		t.Fatalf("StartClient returned %v", err)
	}
	transport.HandleMessage(matchReady(
		wire.MatchPlayer{UserID: "host-1"},
		wire.MatchPlayer{UserID: "peer-a"},
	))
	transport.HandleMessage(&wire.RelayMessage{
		Type:      wire.RelayMessageTypeRelayData,
		Sender:    "host-1",
		RelayData: &wire.RelayData{MatchID: "match-9", Channel: 1, Data: []byte{0x01}},
	})

	if len(channels) != 1 || channels[0] != 1 {
		t.Fatalf("unexpected deliveries: %v", channels)
	}
}

func TestMatchJoinedAndLeft(t *testing.T) {
	transport := NewTransport(discardSend, testOptions()...)

	var connected, disconnected []int32
	transport.Configure("match-9", "host-1", Callbacks{
		OnServerConnected:    func(connID int32) { connected = append(connected, connID) },
		OnServerDisconnected: func(connID int32) { disconnected = append(disconnected, connID) },
	})

	if err := transport.StartHost(); err != nil {
		t.Fatalf("StartHost returned %v", err)
	}
	transport.HandleMessage(matchReady(
		wire.MatchPlayer{UserID: "host-1"},
		wire.MatchPlayer{UserID: "peer-a"},
	))
	connected = nil

	transport.HandleMessage(&wire.RelayMessage{
		Type: wire.RelayMessageTypeMatchJoined,
		MatchJoined: &wire.MatchJoined{
			MatchID:        "match-9",
			PlayerJoinedID: "peer-b",
			MatchPlayers: []wire.MatchPlayer{
				{UserID: "host-1"},
				{UserID: "peer-a"},
				{UserID: "peer-b"},
			},
		},
	})
	if len(connected) != 1 || connected[0] != ConnectionID("peer-b") {
		t.Fatalf("unexpected join callbacks: %v", connected)
	}

	transport.HandleMessage(&wire.RelayMessage{
		Type: wire.RelayMessageTypeMatchLeft,
		MatchLeft: &wire.MatchLeft{
			MatchID:      "match-9",
			PlayerLeftID: "peer-a",
			MatchPlayers: []wire.MatchPlayer{
				{UserID: "host-1"},
				{UserID: "peer-b"},
			},
		},
	})
	if len(disconnected) != 1 || disconnected[0] != ConnectionID("peer-a") {
		t.Fatalf("unexpected leave callbacks: %v", disconnected)
	}
	if _, ok := transport.Roster()[ConnectionID("peer-a")]; ok {
		t.Fatalf("departed peer still in roster")
	}
}

func TestMatchOverTearsDownAndFailsCorrelator(t *testing.T) {
	correlator := proxy.New(func([]byte) error { return nil })

	var failures []error
	if _, err := correlator.Call("/matchmaking.MatchmakingService/CreateTicket", nil, func(r proxy.Response) {
		failures = append(failures, r.Err)
	}); err != nil {
		t.Fatalf("Call returned %v", err)
	}

	transport := NewTransport(discardSend, append(testOptions(), WithCorrelator(correlator))...)

	var disconnects int
	transport.Configure("match-9", "peer-a", Callbacks{
		OnClientDisconnected: func() { disconnects++ },
	})
	if err := transport.StartClient(); err != nil {
		t.Fatalf("StartClient returned %v", err)
	}
	transport.HandleMessage(matchReady(
		wire.MatchPlayer{UserID: "host-1"},
		wire.MatchPlayer{UserID: "peer-a"},
	))

	transport.HandleMessage(&wire.RelayMessage{
		Type:      wire.RelayMessageTypeMatchOver,
		MatchOver: &wire.MatchOver{MatchID: "match-9", ReasonForOver: "host left"},
	})

	if transport.State() != StateDisconnected {
		t.Fatalf("expected disconnected, got %s", transport.State())
	}
	if disconnects != 1 {
		t.Fatalf("expected one disconnect callback, got %d", disconnects)
	}
	if len(failures) != 1 || !errors.Is(failures[0], proxy.ErrConnectionClosed) {
		t.Fatalf("pending call not failed with ErrConnectionClosed: %v", failures)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	transport := NewTransport(discardSend, testOptions()...)

	var disconnects int
	transport.Configure("match-9", "peer-a", Callbacks{
		OnClientDisconnected: func() { disconnects++ },
	})
	if err := transport.StartClient(); err != nil {
		t.Fatalf("StartClient returned %v", err)
	}
	transport.HandleMessage(matchReady(wire.MatchPlayer{UserID: "peer-a"}))

	transport.Stop()
	transport.Stop()
	transport.Stop()

	if disconnects != 1 {
		t.Fatalf("expected one disconnect callback, got %d", disconnects)
	}
	if transport.State() != StateDisconnected {
		t.Fatalf("expected disconnected, got %s", transport.State())
	}
}

func TestRestartAfterStop(t *testing.T) {
	transport := NewTransport(discardSend, testOptions()...)
	transport.Configure("match-9", "host-1", Callbacks{})

	if err := transport.StartHost(); err != nil {
		t.Fatalf("StartHost returned %v", err)
	}
	transport.Stop()

	if err := transport.StartClient(); err != nil {
		t.Fatalf("restart after stop failed: %v", err)
	}
	if transport.State() != StateConnecting {
		t.Fatalf("expected connecting after restart, got %s", transport.State())
	}
}
