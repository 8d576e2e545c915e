package remote

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/patchbay/internal/control"
	"github.com/specialistvlad/patchbay/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// DefaultTimeout applies when the context carries no deadline.
const DefaultTimeout = 10 * time.Second

// ErrTimeout is returned when no acknowledgement arrives in time.
var ErrTimeout = errors.New("timed out")

// Option configures a Client.
type Option func(*Client)

// WithNamespace selects the socket.io namespace.
func WithNamespace(ns string) Option {
	return func(c *Client) { c.namespace = ns }
}

// WithInsecureSkipVerify disables TLS certificate verification.
func WithInsecureSkipVerify() Option {
	return func(c *Client) { c.insecure = true }
}

// Client talks to a control server.
type Client struct {
	url       string
	namespace string
	insecure  bool
}

// New creates a client for the server at rawURL, e.g. http://localhost:7777.
func New(rawURL string, opts ...Option) *Client {
	c := &Client{url: rawURL, namespace: "/"}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type result struct {
	ack control.Ack
	err error
}

// Send emits event with payload and waits for the acknowledgement.
func (c *Client) Send(ctx context.Context, event string, payload any) (control.Ack, error) {
	logger := ctxlog.FromContext(ctx).With("url", c.url, "event", event)
	logger.Debug("Sending control event.")

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultTimeout)
		defer cancel()
	}

	parsed, err := url.Parse(c.url)
	if err != nil {
		return control.Ack{}, fmt.Errorf("failed to parse URL: %w", err)
	}
	base := fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)

	opts := socket.DefaultOptions()
	if parsed.Path != "" && parsed.Path != "/" {
		opts.SetPath(parsed.Path)
	}
	if c.insecure {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(base, opts)
	io := manager.Socket(c.namespace, opts)
	defer func() {
		logger.Debug("Disconnecting socket client")
		io.Disconnect()
	}()

	var connected atomic.Bool
	done := make(chan result, 1)
	finish := func(r result) {
		select {
		case done <- r:
		default:
		}
	}

	io.On(types.EventName("connect"), func(...any) {
		connected.Store(true)
		logger.Debug("Connected.", "sid", io.Id())
		io.Emit(event, payload, func(args []any, err error) {
			if err != nil {
				finish(result{err: err})
				return
			}
			finish(decodeAck(args))
		})
	})
	io.On(types.EventName("connect_error"), func(errs ...any) {
		err, _ := errs[0].(error)
		if err == nil {
			err = fmt.Errorf("connect error: %v", errs[0])
		}
		finish(result{err: err})
	})

	io.Connect()

	select {
	case <-ctx.Done():
		if connected.Load() {
			return control.Ack{}, fmt.Errorf("%w waiting for the acknowledgement of %s", ErrTimeout, event)
		}
		return control.Ack{}, fmt.Errorf("%w waiting for the connection to %s", ErrTimeout, c.url)
	case r := <-done:
		return r.ack, r.err
	}
}

func decodeAck(args []any) result {
	if len(args) == 0 {
		return result{err: errors.New("empty acknowledgement")}
	}
	data, err := json.Marshal(args[0])
	if err != nil {
		return result{err: fmt.Errorf("failed to decode acknowledgement: %w", err)}
	}
	var ack control.Ack
	if err := json.Unmarshal(data, &ack); err != nil {
		return result{err: fmt.Errorf("failed to decode acknowledgement: %w", err)}
	}
	return result{ack: ack}
}
