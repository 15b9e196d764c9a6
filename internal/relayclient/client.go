// Package relayclient is a Go client for the realtime relay. It keeps one
// socket open, reconnecting with bounded exponential backoff.
package relayclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/spec-kit/orgchat-service/internal/relay"
)

var (
	// ErrReconnectExhausted is returned by Run once every dial attempt of a
	// reconnect round has failed.
	ErrReconnectExhausted = errors.New("relay reconnect attempts exhausted")
	// ErrUnauthorized means the server rejected the token; retrying will not help.
	ErrUnauthorized = errors.New("relay rejected credentials")
	// ErrNotConnected is returned by Send while no socket is open.
	ErrNotConnected = errors.New("relay not connected")
)

// Handler receives every frame the server sends.
type Handler func(relay.OutboundFrame)

// Options configures a Client.
type Options struct {
	URL   string
	Token string

	KeepAlive       time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxAttempts     uint

	Dialer *websocket.Dialer
	Logger *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.KeepAlive <= 0 {
		o.KeepAlive = 25 * time.Second
	}
	if o.InitialInterval <= 0 {
		o.InitialInterval = time.Second
	}
	if o.MaxInterval <= 0 {
		o.MaxInterval = 30 * time.Second
	}
	if o.MaxAttempts == 0 {
		o.MaxAttempts = 10
	}
	if o.Dialer == nil {
		o.Dialer = websocket.DefaultDialer
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Client maintains a relay connection.
type Client struct {
	opts    Options
	handler Handler

	mu   sync.Mutex
	conn *websocket.Conn
}

// New builds a client. handler may be nil.
func New(opts Options, handler Handler) *Client {
	if handler == nil {
		handler = func(relay.OutboundFrame) {}
	}
	return &Client{opts: opts.withDefaults(), handler: handler}
}

// Run connects and serves until ctx is cancelled (returning nil) or a
// reconnect round fails.
func (c *Client) Run(ctx context.Context) error {
	for {
		conn, err := c.connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		err = c.serve(ctx, conn)
		if ctx.Err() != nil {
			return nil
		}
		c.opts.Logger.Warn("relay connection lost; reconnecting", zap.Error(err))
	}
}

func (c *Client) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.InitialInterval
	b.MaxInterval = c.opts.MaxInterval
	b.Multiplier = 2
	b.RandomizationFactor = 0.5
	return b
}

func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.opts.Token)

	attempt := 0
	conn, err := backoff.Retry(ctx, func() (*websocket.Conn, error) {
		attempt++
		conn, resp, err := c.opts.Dialer.DialContext(ctx, c.opts.URL, header)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			if resp != nil && resp.StatusCode == http.StatusUnauthorized {
				return nil, backoff.Permanent(ErrUnauthorized)
			}
			return nil, err
		}
		return conn, nil
	},
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.opts.MaxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.opts.Logger.Debug("relay dial failed",
				zap.Int("attempt", attempt),
				zap.Duration("retry_in", next),
				zap.Error(err))
		}),
	)
	if err != nil {
		if errors.Is(err, ErrUnauthorized) || ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w after %d attempts: %v", ErrReconnectExhausted, attempt, err)
	}
	c.opts.Logger.Info("relay connected", zap.String("url", c.opts.URL))
	return conn, nil
}

func (c *Client) serve(ctx context.Context, conn *websocket.Conn) error {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	done := make(chan struct{})
	defer func() {
		close(done)
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()
	}()

	if err := c.Send(relay.InboundFrame{Type: relay.FrameStatus}); err != nil {
		return err
	}

	go func() {
		ticker := time.NewTicker(c.opts.KeepAlive)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				_ = conn.Close()
				return
			case <-ticker.C:
				if err := c.Send(relay.InboundFrame{Type: relay.FramePing}); err != nil {
					_ = conn.Close()
					return
				}
			}
		}
	}()

	for {
		var frame relay.OutboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return err
		}
		c.handler(frame)
	}
}

// Connected reports whether a socket is currently open.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Send writes a frame on the current socket.
func (c *Client) Send(frame relay.InboundFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(frame)
}

// SendText sends a text message to receiverID.
func (c *Client) SendText(receiverID int64, content string) error {
	return c.Send(relay.InboundFrame{Type: relay.FrameText, ReceiverID: receiverID, Content: content})
}

// SendVoice sends a voice message reference to receiverID.
func (c *Client) SendVoice(receiverID int64, content string) error {
	return c.Send(relay.InboundFrame{Type: relay.FrameVoice, ReceiverID: receiverID, Content: content})
}
