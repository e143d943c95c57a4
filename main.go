// Command netclient is a demo driver for the session protocol stack. It
// connects to the configured snapend, queues for matchmaking, and when a
// match is created takes the announced relay role, echoing relay traffic to
// the log. Engine and gameplay concerns stay out of this binary.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"interstellar/netclient/internal/config"
	"interstellar/netclient/internal/events"
	"interstellar/netclient/internal/logging"
	"interstellar/netclient/internal/relay"
	"interstellar/netclient/internal/session"
	"interstellar/netclient/internal/snapapi"
	"interstellar/netclient/internal/wire"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "netclient: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initialise logging: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	client, err := session.NewClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("build session client: %w", err)
	}
	defer client.Close()

	api := snapapi.New(client.Proxy(), cfg.Username)
	driver := &driver{cfg: cfg, log: logger, client: client, api: api}
	driver.subscribe()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := client.Connect(ctx); err != nil {
		return fmt.Errorf("connect session: %w", err)
	}
	logger.Info("session dial started", logging.String("snapend", cfg.SnapendURL))

	ticker := time.NewTicker(cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutdown requested")
			return nil
		case <-ticker.C:
			client.Tick()
			driver.step()
		}
	}
}

// driver holds the demo's matchmaking progress between ticks. Everything here
// runs on the tick goroutine, so no locking is needed.
type driver struct {
	cfg    *config.Config
	log    *logging.Logger
	client *session.Client
	api    *snapapi.Client

	queued   bool
	ticketID string
	link     *session.RelayLink
}

// step releases a finished relay link and queues a matchmaking ticket once
// the session link is up. Everything after that is event-driven.
func (d *driver) step() {
	//1.- A host link ends without a client-side disconnect callback, so the
	// tick loop sweeps any link whose transport reached Disconnected.
	if d.link != nil && d.link.Transport().State() == relay.StateDisconnected {
		d.releaseLink()
	}
	if d.queued || !d.client.Connected() {
		return
	}
	d.queued = true
	mid, err := d.api.Matchmaking.CreateTicket(wire.Metadata{"client": "netclient-demo"}, nil, func(resp *wire.CreateTicketResponse, err error) {
		if err != nil {
			d.log.Error("create ticket failed", logging.Error(err))
			d.queued = false
			return
		}
		d.ticketID = resp.TicketID
		d.log.Info("matchmaking ticket queued", logging.String("ticket_id", resp.TicketID))
	})
	if err != nil {
		d.log.Error("create ticket send failed", logging.Error(err))
		d.queued = false
		return
	}
	d.log.Debug("create ticket sent", logging.String("mid", mid))
}

// releaseLink closes the active relay link so the session client stops
// draining it, then rearms matchmaking.
func (d *driver) releaseLink() {
	if d.link == nil {
		return
	}
	d.link.Close()
	d.link = nil
	d.queued = false
}

func (d *driver) subscribe() {
	router := d.client.Events()

	router.Matchmaking.MatchFound.Subscribe(func(event events.MatchFound) {
		d.log.Info("match found",
			logging.String("match_id", event.MatchID),
			logging.String("ticket_id", event.TicketID))
		if _, err := d.api.Matchmaking.AcceptMatch(event.MatchID, true, func(err error) {
			if err != nil {
				d.log.Error("accept match failed", logging.Error(err))
			}
		}); err != nil {
			d.log.Error("accept match send failed", logging.Error(err))
		}
	})

	router.Matchmaking.MatchCreated.Subscribe(func(event events.MatchCreated) {
		d.log.Info("match created",
			logging.String("match_id", event.MatchID),
			logging.Bool("is_host", event.IsHost))
		d.joinRelay(event)
	})

	router.Matchmaking.MatchCancelled.Subscribe(func(event events.MatchCancelled) {
		d.log.Warn("match cancelled", logging.String("reason", event.Reason))
		d.queued = false
	})

	router.Matchmaking.MatchCreateError.Subscribe(func(event events.MatchCreateError) {
		d.log.Error("match create failed", logging.String("error", event.Error))
		d.queued = false
	})
}

// joinRelay spins up the relay link for a created match and wires the demo's
// relay callbacks. The host echoes every payload back to its sender.
func (d *driver) joinRelay(event events.MatchCreated) {
	if d.link != nil {
		d.log.Warn("relay link already active, ignoring match",
			logging.String("match_id", event.MatchID))
		return
	}

	link := d.client.NewRelayLink(event.MatchID, d.cfg.Username, relay.Callbacks{
		OnServerConnected: func(connID int32) {
			d.log.Info("peer joined relay", logging.Int32("conn_id", connID))
		},
		OnServerDisconnected: func(connID int32) {
			d.log.Info("peer left relay", logging.Int32("conn_id", connID))
		},
		OnClientConnected: func() {
			d.log.Info("connected to relay host")
		},
		OnClientDisconnected: func() {
			d.log.Info("disconnected from relay host")
			d.releaseLink()
		},
		OnServerData: func(connID int32, channel int32, data []byte) {
			d.log.Debug("relay payload",
				logging.Int32("conn_id", connID),
				logging.Int32("channel", channel),
				logging.Int("size", len(data)))
			if d.link == nil {
				return
			}
			if err := d.link.Transport().Send(connID, channel, data); err != nil {
				d.log.Warn("relay echo failed", logging.Error(err))
			}
		},
		OnClientData: func(channel int32, data []byte) {
			d.log.Debug("relay payload",
				logging.Int32("channel", channel),
				logging.Int("size", len(data)))
		},
	})

	start := link.Transport().StartClient
	if event.IsHost {
		start = link.Transport().StartHost
	}
	if err := start(); err != nil {
		d.log.Error("relay start failed", logging.Error(err))
		link.Close()
		return
	}
	if err := link.Connect(context.Background(), event.ConnectionString, event.JoinCode); err != nil {
		d.log.Error("relay dial failed", logging.Error(err))
		link.Close()
		return
	}
	d.link = link
}
