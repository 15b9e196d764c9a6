package relay

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/orgchat-service/internal/domain"
	apperrors "github.com/spec-kit/orgchat-service/pkg/util/errorutil"
)

// tokenAuth accepts tokens of the form "user-<id>".
type tokenAuth struct{}

func (tokenAuth) Authenticate(token string) (*domain.Principal, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(token, "user-"), 10, 64)
	if err != nil || !strings.HasPrefix(token, "user-") {
		return nil, errors.New("bad token")
	}
	return &domain.Principal{UserID: id, Role: domain.RoleEmployee}, nil
}

// fakeSender persists into memory and forwards the way the notifier does.
type fakeSender struct {
	mu     sync.Mutex
	hub    *Hub
	nextID int64
	sent   []domain.Message
	err    error
}

func (f *fakeSender) Send(_ context.Context, senderID, receiverID int64, msgType domain.MessageType, content string) (*domain.Message, error) {
	f.mu.Lock()
	if f.err != nil {
		f.mu.Unlock()
		return nil, f.err
	}
	f.nextID++
	msg := domain.Message{
		ID:         f.nextID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Type:       msgType,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}
	f.sent = append(f.sent, msg)
	f.mu.Unlock()

	ts := msg.CreatedAt
	f.hub.Deliver(receiverID, OutboundFrame{
		Type:      FrameType(msg.Type),
		SenderID:  msg.SenderID,
		Content:   msg.Content,
		MessageID: msg.ID,
		Timestamp: &ts,
	})
	return &msg, nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type testRelay struct {
	hub    *Hub
	sender *fakeSender
	server *httptest.Server
}

func newTestRelay(t *testing.T) *testRelay {
	t.Helper()
	sender := &fakeSender{}
	hub := NewHub(NewRegistry(), sender, nil, nil, Options{PingInterval: time.Hour, WriteWait: time.Second})
	sender.hub = hub
	server := httptest.NewServer(NewRouter(NewHandler(hub, tokenAuth{}, nil, nil), nil))
	t.Cleanup(server.Close)
	return &testRelay{hub: hub, sender: sender, server: server}
}

func (r *testRelay) dial(t *testing.T, userID int64) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(r.server.URL, "http") + "/ws?token=user-" + strconv.FormatInt(userID, 10)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.Eventually(t, func() bool { return r.hub.Online(userID) }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) OutboundFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f OutboundFrame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(150*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	var netErr interface{ Timeout() bool }
	require.True(t, errors.As(err, &netErr) && netErr.Timeout(), "expected a read timeout, got %v", err)
}

func TestUpgradeRequiresToken(t *testing.T) {
	r := newTestRelay(t)
	url := "ws" + strings.TrimPrefix(r.server.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(url+"?token=garbage", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestUpgradeAcceptsAuthorizationHeader(t *testing.T) {
	r := newTestRelay(t)
	url := "ws" + strings.TrimPrefix(r.server.URL, "http") + "/ws"

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Authorization": []string{"Bearer user-9"}})
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return r.hub.Online(9) }, 2*time.Second, 10*time.Millisecond)
}

func TestStatusAndPing(t *testing.T) {
	r := newTestRelay(t)
	conn := r.dial(t, 4)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "status", "senderId": 4}))
	f := readFrame(t, conn)
	assert.Equal(t, FrameStatus, f.Type)
	assert.Equal(t, "connected", f.Content)
	assert.Equal(t, int64(4), f.SenderID)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "ping"}))
	assert.Equal(t, FramePing, readFrame(t, conn).Type)
}

func TestSenderMismatchIsRejected(t *testing.T) {
	r := newTestRelay(t)
	conn := r.dial(t, 4)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "text", "senderId": 5, "receiverId": 6, "content": "hi"}))
	f := readFrame(t, conn)
	assert.Equal(t, FrameError, f.Type)
	assert.Equal(t, ErrContentSenderMismatch, f.Content)
	assert.Equal(t, 0, r.sender.count())
}

func TestMalformedFrameKeepsConnection(t *testing.T) {
	r := newTestRelay(t)
	conn := r.dial(t, 4)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	f := readFrame(t, conn)
	assert.Equal(t, FrameError, f.Type)
	assert.Equal(t, ErrContentMalformed, f.Content)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "ping"}))
	assert.Equal(t, FramePing, readFrame(t, conn).Type)
	assert.True(t, r.hub.Online(4))
}

func TestTextReachesOnlineReceiverOnce(t *testing.T) {
	r := newTestRelay(t)
	alice := r.dial(t, 1)
	bob := r.dial(t, 2)

	require.NoError(t, alice.WriteJSON(map[string]any{"type": "text", "receiverId": 2, "content": "hello"}))

	f := readFrame(t, bob)
	assert.Equal(t, FrameText, f.Type)
	assert.Equal(t, int64(1), f.SenderID)
	assert.Equal(t, "hello", f.Content)
	assert.Equal(t, int64(1), f.MessageID)
	require.NotNil(t, f.Timestamp)

	expectSilence(t, bob)
	expectSilence(t, alice)
}

func TestTextToOfflineReceiverIsPersistedOnly(t *testing.T) {
	r := newTestRelay(t)
	alice := r.dial(t, 1)

	require.NoError(t, alice.WriteJSON(map[string]any{"type": "voice", "receiverId": 2, "content": base64.StdEncoding.EncodeToString([]byte("OggS voice clip"))}))
	require.Eventually(t, func() bool { return r.sender.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	expectSilence(t, alice)
}

func TestSendRejectionsBecomeErrorFrames(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"forbidden", apperrors.NewForbidden("no"), ErrContentNotAllowed},
		{"not found", apperrors.NewNotFound("user", nil), ErrContentNotFound},
		{"validation", apperrors.NewValidationError("content too long", nil), "content too long"},
		{"other", errors.New("db down"), ErrContentFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRelay(t)
			r.sender.err = tc.err
			conn := r.dial(t, 1)

			require.NoError(t, conn.WriteJSON(map[string]any{"type": "text", "receiverId": 2, "content": "x"}))
			f := readFrame(t, conn)
			assert.Equal(t, FrameError, f.Type)
			assert.Equal(t, tc.want, f.Content)
		})
	}
}

func TestIncompleteChatFrame(t *testing.T) {
	r := newTestRelay(t)
	conn := r.dial(t, 1)

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "text", "content": "x"}))
	f := readFrame(t, conn)
	assert.Equal(t, ErrContentIncomplete, f.Content)
}

func TestNewConnectionReplacesOld(t *testing.T) {
	r := newTestRelay(t)
	first := r.dial(t, 3)
	old, ok := r.hub.Registry().Lookup(3)
	require.True(t, ok)

	second := r.dial(t, 3)
	require.Eventually(t, func() bool {
		current, ok := r.hub.Registry().Lookup(3)
		return ok && current != old
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, first.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := first.ReadMessage()
	require.Error(t, err)

	require.NoError(t, second.WriteJSON(map[string]any{"type": "ping"}))
	assert.Equal(t, FramePing, readFrame(t, second).Type)
	assert.Equal(t, 1, r.hub.Registry().Len())
}

func TestSweepClosesUnresponsiveConnections(t *testing.T) {
	r := newTestRelay(t)
	conn := r.dial(t, 7)

	// The test client never reads, so the server ping goes unanswered.
	r.hub.Sweep()
	assert.True(t, r.hub.Online(7))
	r.hub.Sweep()
	assert.False(t, r.hub.Online(7))
	assert.Equal(t, 0, r.hub.Registry().Len())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func TestDeliverToOfflineUser(t *testing.T) {
	r := newTestRelay(t)
	assert.False(t, r.hub.Deliver(42, OutboundFrame{Type: FrameText, Content: "x"}))
}

func TestRunClosesEverythingOnShutdown(t *testing.T) {
	r := newTestRelay(t)
	r.dial(t, 1)
	r.dial(t, 2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.hub.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("hub did not stop")
	}
	assert.Equal(t, 0, r.hub.Registry().Len())
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRelay(t)
	r.dial(t, 1)

	resp, err := http.Get(r.server.URL + "/ws/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
