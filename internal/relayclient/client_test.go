package relayclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/orgchat-service/internal/domain"
	"github.com/spec-kit/orgchat-service/internal/relay"
)

type bearerAuth struct{}

func (bearerAuth) Authenticate(token string) (*domain.Principal, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(token, "user-"), 10, 64)
	if err != nil {
		return nil, errors.New("bad token")
	}
	return &domain.Principal{UserID: id, Role: domain.RoleEmployee}, nil
}

type nopSender struct{}

func (nopSender) Send(context.Context, int64, int64, domain.MessageType, string) (*domain.Message, error) {
	return &domain.Message{ID: 1}, nil
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

type frameLog struct {
	mu     sync.Mutex
	frames []relay.OutboundFrame
}

func (l *frameLog) add(f relay.OutboundFrame) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.frames = append(l.frames, f)
}

func (l *frameLog) has(match func(relay.OutboundFrame) bool) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, f := range l.frames {
		if match(f) {
			return true
		}
	}
	return false
}

func TestClientReceivesStatusAndDeliveries(t *testing.T) {
	hub := relay.NewHub(relay.NewRegistry(), nopSender{}, nil, nil, relay.Options{PingInterval: time.Hour})
	server := httptest.NewServer(relay.NewRouter(relay.NewHandler(hub, bearerAuth{}, nil, nil), nil))
	defer server.Close()

	log := &frameLog{}
	client := New(Options{URL: wsURL(server), Token: "user-3"}, log.add)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	require.Eventually(t, func() bool {
		return log.has(func(f relay.OutboundFrame) bool { return f.Type == relay.FrameStatus && f.SenderID == 3 })
	}, 2*time.Second, 10*time.Millisecond)

	require.True(t, hub.Deliver(3, relay.OutboundFrame{Type: relay.FrameText, SenderID: 8, Content: "hi", MessageID: 11}))
	require.Eventually(t, func() bool {
		return log.has(func(f relay.OutboundFrame) bool { return f.MessageID == 11 })
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("client did not stop")
	}
}

func TestClientReconnectsAfterDrop(t *testing.T) {
	var accepted atomic.Int32
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if accepted.Add(1) == 1 {
			_ = conn.Close()
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	client := New(Options{URL: wsURL(server), Token: "t", InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = client.Run(ctx) }()

	require.Eventually(t, func() bool { return accepted.Load() >= 2 && client.Connected() }, 2*time.Second, 10*time.Millisecond)
}

func TestClientGivesUpAfterMaxAttempts(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(Options{
		URL:             wsURL(server),
		Token:           "t",
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxAttempts:     3,
	}, nil)

	err := client.Run(context.Background())
	require.ErrorIs(t, err, ErrReconnectExhausted)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestClientStopsOnUnauthorized(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "no", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := New(Options{URL: wsURL(server), Token: "bad", InitialInterval: time.Millisecond}, nil)
	err := client.Run(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestSendWithoutConnection(t *testing.T) {
	client := New(Options{URL: "ws://127.0.0.1:0/ws"}, nil)
	assert.ErrorIs(t, client.SendText(1, "x"), ErrNotConnected)
}
