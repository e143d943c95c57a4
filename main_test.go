package main

import (
	"testing"
	"time"

	"interstellar/netclient/internal/config"
	"interstellar/netclient/internal/events"
	"interstellar/netclient/internal/logging"
	"interstellar/netclient/internal/relay"
	"interstellar/netclient/internal/session"
	"interstellar/netclient/internal/snapapi"
)

func newTestDriver(t *testing.T) *driver {
	t.Helper()
	cfg := &config.Config{
		SnapendURL:       "https://gateway.example",
		Username:         "ada",
		AuthToken:        "tok-1",
		MaxPayloadBytes:  1 << 20,
		HandshakeTimeout: time.Second,
	}
	client, err := session.NewClient(cfg, logging.NewTestLogger())
	if err != nil {
		t.Fatalf("NewClient returned %v", err)
	}
	t.Cleanup(client.Close)
	return &driver{
		cfg:    cfg,
		log:    logging.NewTestLogger(),
		client: client,
		api:    snapapi.New(client.Proxy(), cfg.Username),
	}
}

func TestClientDisconnectReleasesRelayLink(t *testing.T) {
	d := newTestDriver(t)
	d.queued = true

	d.joinRelay(events.MatchCreated{
		MatchID:          "match-9",
		ConnectionString: "wss://relay.example",
		JoinCode:         "JX94KQ",
	})
	if d.link == nil {
		t.Fatalf("relay link was not created")
	}
	link := d.link

	//1.- Stopping the transport fires the client disconnect callback, which
	// must close the link and clear the driver's slot.
	link.Transport().Stop()

	if d.link != nil {
		t.Fatalf("relay link still held after disconnect")
	}
	if link.Transport().State() != relay.StateDisconnected {
		t.Fatalf("expected disconnected transport, got %s", link.Transport().State())
	}
	if d.queued {
		t.Fatalf("matchmaking not rearmed after disconnect")
	}
}

func TestStepSweepsFinishedHostLink(t *testing.T) {
	d := newTestDriver(t)
	d.queued = true

	d.joinRelay(events.MatchCreated{
		MatchID:          "match-9",
		ConnectionString: "wss://relay.example",
		JoinCode:         "JX94KQ",
		IsHost:           true,
	})
	if d.link == nil {
		t.Fatalf("relay link was not created")
	}

	//1.- A host teardown has no client disconnect callback; the next tick
	// must still release the link.
	d.link.Transport().Stop()
	d.step()

	if d.link != nil {
		t.Fatalf("finished host link still held after step")
	}
	if d.queued {
		t.Fatalf("matchmaking not rearmed after host link finished")
	}
}
