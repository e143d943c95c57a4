package session

import (
	"context"

	"interstellar/netclient/internal/capture"
	"interstellar/netclient/internal/conn"
	"interstellar/netclient/internal/logging"
	"interstellar/netclient/internal/relay"
	"interstellar/netclient/internal/wire"
)

// RelayLink couples a dedicated WebSocket to a relay transport. The session
// client drains it alongside the session link so relay callbacks share the
// tick goroutine.
type RelayLink struct {
	client    *Client
	log       *logging.Logger
	manager   *conn.Manager
	transport *relay.Transport
}

// NewRelayLink builds a relay link for the given match and user identity.
// The caller picks host or client role through the transport before
// connecting.
func (c *Client) NewRelayLink(matchID, userID string, callbacks relay.Callbacks) *RelayLink {
	link := &RelayLink{
		client: c,
		log:    c.log.With(logging.String("link", "relay")),
	}
	link.manager = conn.NewManager(conn.Callbacks{
		OnOpen: func() {
			link.log.Info("relay link open")
			link.transport.HandleOpen()
		},
		OnMessage: link.handleFrame,
		OnError: func(err error) {
			link.log.Error("relay link error", logging.Error(err))
		},
		OnClose: func() {
			link.log.Info("relay link closed")
			link.transport.Stop()
		},
	},
		conn.WithLogger(link.log),
		conn.WithMaxPayloadBytes(c.cfg.MaxPayloadBytes),
		conn.WithPingInterval(c.cfg.PingInterval),
		conn.WithHandshakeTimeout(c.cfg.HandshakeTimeout),
	)
	link.transport = relay.NewTransport(link.sendFrame, relay.WithLogger(link.log))
	link.transport.Configure(matchID, userID, callbacks)

	c.mu.Lock()
	c.links = append(c.links, link)
	c.mu.Unlock()
	return link
}

// Transport exposes the relay state machine for starts, sends, and state
// queries.
func (l *RelayLink) Transport() *relay.Transport { return l.transport }

// Connect dials the relay endpoint announced by the match, attaching the
// join code and username credentials.
func (l *RelayLink) Connect(ctx context.Context, address, joinCode string) error {
	relayURL, err := BuildRelayURL(address, joinCode, l.client.cfg.Username)
	if err != nil {
		return err
	}
	return l.manager.Connect(ctx, relayURL)
}

// Drain dispatches queued relay socket events. The session client calls this
// from Tick.
func (l *RelayLink) Drain() {
	l.manager.Drain()
}

// Close stops the transport and tears down the socket, then detaches the
// link from the session client.
func (l *RelayLink) Close() {
	l.transport.Stop()
	l.manager.Close()

	c := l.client
	c.mu.Lock()
	for i, link := range c.links {
		if link == l {
			c.links = append(c.links[:i], c.links[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
}

func (l *RelayLink) sendFrame(data []byte) error {
	if err := l.manager.Send(data); err != nil {
		return err
	}
	if err := l.client.recorder.Record(capture.DirectionOutbound, capture.LinkRelay, data); err != nil {
		l.log.Warn("capture write failed", logging.Error(err))
	}
	return nil
}

func (l *RelayLink) handleFrame(data []byte) {
	if err := l.client.recorder.Record(capture.DirectionInbound, capture.LinkRelay, data); err != nil {
		l.log.Warn("capture write failed", logging.Error(err))
	}
	msg, err := wire.DecodeRelayMessage(data)
	if err != nil {
		l.log.Warn("dropping malformed relay frame",
			logging.Int("size", len(data)),
			logging.Error(err))
		return
	}
	l.transport.HandleMessage(msg)
}
