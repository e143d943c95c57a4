// Package proxy correlates proxied API requests with their responses. Every
// outbound call is stamped with a fresh message identifier; the matching
// response resolves exactly one pending callback unless the caller opted into
// a long-lived watch.
package proxy

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc/codes"

	"interstellar/netclient/internal/logging"
	"interstellar/netclient/internal/wire"
)

// ErrConnectionClosed resolves pending correlations when the underlying
// connection goes away before the response arrives.
var ErrConnectionClosed = errors.New("connection closed")

// APIError is the structured failure returned by a backend service for a
// proxied call.
type APIError struct {
	Code    codes.Code
	Message string
	Details []string
}

func (e *APIError) Error() string {
	if e == nil {
		return "api error"
	}
	return fmt.Sprintf("api error %s: %s", e.Code, e.Message)
}

// Response is delivered to callbacks registered via Call or Watch. Exactly
// one of Payload and Err is meaningful.
type Response struct {
	MessageID string
	Payload   []byte
	Err       error
}

// SendFunc transmits one encoded envelope over the session link.
type SendFunc func(data []byte) error

// Option customises client construction.
type Option func(*Client)

// WithClock injects the timestamp source, primarily for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithIDGenerator injects the message identifier source, primarily for tests.
func WithIDGenerator(newID func() string) Option {
	return func(c *Client) {
		if newID != nil {
			c.newID = newID
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(log *logging.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// Client tracks in-flight proxied calls keyed by message identifier.
type Client struct {
	send  SendFunc
	now   func() time.Time
	newID func() string
	log   *logging.Logger

	mu       sync.Mutex
	pending  map[string]func(Response)
	watchers map[string]func(Response)
}

// New constructs a correlator that transmits through send.
func New(send SendFunc, opts ...Option) *Client {
	client := &Client{
		send:     send,
		now:      time.Now,
		newID:    uuid.NewString,
		log:      logging.NewTestLogger(),
		pending:  make(map[string]func(Response)),
		watchers: make(map[string]func(Response)),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Call transmits a proxied request and registers fn for its response. The
// callback fires at most once; the returned message identifier can seed a
// Watch for follow-up pushes reusing the same identifier.
func (c *Client) Call(method string, payload []byte, fn func(Response)) (string, error) {
	if c == nil {
		return "", errors.New("nil proxy client")
	}
	mid := c.newID()
	if fn != nil {
		c.mu.Lock()
		c.pending[mid] = fn
		c.mu.Unlock()
	}
	if err := c.transmit(mid, method, payload); err != nil {
		c.mu.Lock()
		delete(c.pending, mid)
		c.mu.Unlock()
		return "", err
	}
	return mid, nil
}

// Send transmits a proxied request without tracking the response.
func (c *Client) Send(method string, payload []byte) (string, error) {
	return c.Call(method, payload, nil)
}

// Watch registers fn for every response carrying mid until Unwatch. Watches
// are consulted after one-shot callbacks and are never auto-removed.
func (c *Client) Watch(mid string, fn func(Response)) {
	if c == nil || mid == "" || fn == nil {
		return
	}
	c.mu.Lock()
	c.watchers[mid] = fn
	c.mu.Unlock()
}

// Unwatch removes a previously registered watch.
func (c *Client) Unwatch(mid string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.watchers, mid)
	c.mu.Unlock()
}

func (c *Client) transmit(mid, method string, payload []byte) error {
	env := &wire.Envelope{
		Mid:       mid,
		Type:      wire.MessageTypeSnapAPIProxy,
		Timestamp: c.now().Unix(),
		APIRequest: &wire.SnapAPIRequest{
			Method:  method,
			Payload: payload,
		},
	}
	if c.send == nil {
		return errors.New("proxy client has no transport")
	}
	return c.send(wire.EncodeEnvelope(env))
}

// HandleResponse resolves the pending callback matching the envelope's
// message identifier. Responses with no pending callback and no watch are
// logged and dropped.
func (c *Client) HandleResponse(env *wire.Envelope) {
	if c == nil || env == nil {
		return
	}
	response := Response{MessageID: env.Mid}
	switch {
	case env.Type == wire.MessageTypeError && env.Error != nil:
		response.Err = &APIError{
			Code:    codes.Code(env.Error.Code),
			Message: env.Error.Message,
		}
	case env.APIResponse != nil && env.APIResponse.Errored:
		apiErr := &APIError{Code: codes.Unknown}
		if detail := env.APIResponse.Error; detail != nil {
			apiErr.Code = codes.Code(detail.Code)
			apiErr.Message = detail.Message
			apiErr.Details = detail.Details
		}
		response.Err = apiErr
	case env.APIResponse != nil:
		response.Payload = env.APIResponse.Payload
	default:
		c.log.Warn("response envelope has no payload",
			logging.String("mid", env.Mid),
			logging.String("message_type", env.Type.String()))
		return
	}

	c.mu.Lock()
	fn := c.pending[env.Mid]
	delete(c.pending, env.Mid)
	watch := c.watchers[env.Mid]
	c.mu.Unlock()

	if fn == nil && watch == nil {
		c.log.Debug("dropping uncorrelated response",
			logging.String("mid", env.Mid))
		return
	}
	if fn != nil {
		fn(response)
	}
	if watch != nil {
		watch(response)
	}
}

// FailAll resolves every pending callback and watch with err, then clears
// both tables. Used when the session link closes under in-flight calls.
func (c *Client) FailAll(err error) {
	if c == nil {
		return
	}
	if err == nil {
		err = ErrConnectionClosed
	}
	c.mu.Lock()
	pending := c.pending
	watchers := c.watchers
	c.pending = make(map[string]func(Response))
	c.watchers = make(map[string]func(Response))
	c.mu.Unlock()

	for mid, fn := range pending {
		fn(Response{MessageID: mid, Err: err})
	}
	for mid, fn := range watchers {
		if _, alsoPending := pending[mid]; alsoPending {
			continue
		}
		fn(Response{MessageID: mid, Err: err})
	}
}

// PendingCount reports how many calls are awaiting a response.
func (c *Client) PendingCount() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
