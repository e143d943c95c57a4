// Package session wires the connection manager, the API correlator, and the
// event router into the client-facing session link, and spawns relay links
// when a match is handed over to the relay.
package session

import (
	"context"
	"errors"
	"sync"

	"interstellar/netclient/internal/capture"
	"interstellar/netclient/internal/config"
	"interstellar/netclient/internal/conn"
	"interstellar/netclient/internal/events"
	"interstellar/netclient/internal/logging"
	"interstellar/netclient/internal/proxy"
	"interstellar/netclient/internal/wire"
)

// Client owns the session WebSocket and everything multiplexed over it.
// Inbound traffic is queued by the connection manager and only dispatched
// from Tick, so all callbacks run on the goroutine calling Tick.
type Client struct {
	cfg      *config.Config
	log      *logging.Logger
	manager  *conn.Manager
	proxy    *proxy.Client
	events   *events.Router
	recorder *capture.Recorder

	mu    sync.Mutex
	links []*RelayLink
}

// NewClient constructs a disconnected session client. When cfg names a
// capture directory, every frame on every link is recorded there.
func NewClient(cfg *config.Config, log *logging.Logger) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config must be provided")
	}
	if log == nil {
		log = logging.NewTestLogger()
	}
	client := &Client{
		cfg:    cfg,
		log:    log,
		events: events.NewRouter(log),
	}

	if cfg.CaptureDir != "" {
		recorder, manifest, err := capture.NewRecorder(cfg.CaptureDir, cfg.Username, nil)
		if err != nil {
			return nil, err
		}
		client.recorder = recorder
		log.Info("capture enabled",
			logging.String("dir", recorder.Directory()),
			logging.String("created_at", manifest.CreatedAt))
	}

	client.manager = conn.NewManager(conn.Callbacks{
		OnOpen:    func() { client.log.Info("session link open") },
		OnMessage: client.handleFrame,
		OnError: func(err error) {
			client.log.Error("session link error", logging.Error(err))
		},
		OnClose: client.handleClose,
	},
		conn.WithLogger(log),
		conn.WithMaxPayloadBytes(cfg.MaxPayloadBytes),
		conn.WithPingInterval(cfg.PingInterval),
		conn.WithHandshakeTimeout(cfg.HandshakeTimeout),
	)

	client.proxy = proxy.New(client.sendSessionFrame, proxy.WithLogger(log))
	return client, nil
}

// Proxy exposes the API correlator for proxied service calls.
func (c *Client) Proxy() *proxy.Client { return c.proxy }

// Events exposes the per-service event routers for subscriptions.
func (c *Client) Events() *events.Router { return c.events }

// Connected reports whether the session socket is open.
func (c *Client) Connected() bool { return c.manager.Connected() }

// Connect dials the session socket using the configured snapend URL and
// credentials. The outcome surfaces through Tick.
func (c *Client) Connect(ctx context.Context) error {
	address, err := BuildSessionURL(c.cfg.SnapendURL, c.cfg.AuthToken, c.cfg.Username)
	if err != nil {
		return err
	}
	return c.manager.Connect(ctx, address)
}

// Tick drains the session link and every live relay link. Call it from one
// goroutine at a fixed cadence; it is where all callbacks fire.
func (c *Client) Tick() {
	c.manager.Drain()
	c.mu.Lock()
	links := append([]*RelayLink(nil), c.links...)
	c.mu.Unlock()
	for _, link := range links {
		link.Drain()
	}
}

// Close tears down the session socket and every relay link. The final close
// events still arrive through Tick.
func (c *Client) Close() {
	c.mu.Lock()
	links := append([]*RelayLink(nil), c.links...)
	c.mu.Unlock()
	for _, link := range links {
		link.Close()
	}
	c.manager.Close()
	if c.recorder != nil {
		if err := c.recorder.Close(); err != nil {
			c.log.Warn("capture close failed", logging.Error(err))
		}
	}
}

func (c *Client) sendSessionFrame(data []byte) error {
	if err := c.manager.Send(data); err != nil {
		return err
	}
	if err := c.recorder.Record(capture.DirectionOutbound, capture.LinkSession, data); err != nil {
		c.log.Warn("capture write failed", logging.Error(err))
	}
	return nil
}

// handleFrame decodes one inbound session frame and hands it to the layer
// that owns its message type. Malformed frames and unknown message types are
// logged and dropped.
func (c *Client) handleFrame(data []byte) {
	if err := c.recorder.Record(capture.DirectionInbound, capture.LinkSession, data); err != nil {
		c.log.Warn("capture write failed", logging.Error(err))
	}
	env, err := wire.DecodeEnvelope(data)
	if err != nil {
		c.log.Warn("dropping malformed session frame",
			logging.Int("size", len(data)),
			logging.Error(err))
		return
	}
	switch env.Type {
	case wire.MessageTypeSnapAPIProxy, wire.MessageTypeError:
		c.proxy.HandleResponse(env)
	case wire.MessageTypeSnapEvent:
		c.events.Route(env)
	default:
		c.log.Warn("dropping envelope with unknown message type",
			logging.String("mid", env.Mid),
			logging.Int32("type", int32(env.Type)))
	}
}

func (c *Client) handleClose() {
	c.log.Info("session link closed")
	c.proxy.FailAll(proxy.ErrConnectionClosed)
}
