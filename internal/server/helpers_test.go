package server

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/npezzotti/go-chatrelay/internal/config"
	"github.com/npezzotti/go-chatrelay/internal/stats"
	"github.com/npezzotti/go-chatrelay/internal/store"
	"github.com/npezzotti/go-chatrelay/internal/testutil"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const testTypingWindow = 100 * time.Millisecond

func newTestConfig() *config.Config {
	return &config.Config{
		ServerAddr:      "localhost:0",
		HistoryCapacity: 100,
		BackfillLimit:   50,
		TypingWindow:    testTypingWindow,
		RateLimit:       config.RateLimit{Burst: 100, Interval: time.Second},
	}
}

func newTestStats() *stats.MockStatsUpdater {
	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything).Maybe()
	su.On("RegisterGauge", mock.Anything, mock.Anything).Maybe()
	su.On("Incr", mock.Anything).Maybe()
	su.On("Decr", mock.Anything).Maybe()
	return su
}

// newTestChatServer creates a ChatServer backed by an in-memory store
func newTestChatServer(t *testing.T) *ChatServer {
	cfg := newTestConfig()
	cs, err := NewChatServer(testutil.TestLogger(t), cfg, store.NewMemoryStore(cfg.HistoryCapacity), newTestStats())
	require.NoError(t, err)
	return cs
}

func startTestChatServer(t *testing.T) *ChatServer {
	cs := newTestChatServer(t)
	go cs.Run()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		cs.Shutdown(ctx)
	})
	return cs
}

// newTestClient builds a client without a websocket; tests read its send
// channel directly.
func newTestClient(t *testing.T, cs *ChatServer) *Client {
	return &Client{
		id:         uuid.NewString(),
		chatServer: cs,
		log:        testutil.TestLogger(t),
		send:       make(chan *ServerMessage, 64),
		limiter:    rate.NewLimiter(rate.Inf, 1),
		stop:       make(chan struct{}),
	}
}

func connect(t *testing.T, cs *ChatServer) *Client {
	c := newTestClient(t, cs)
	require.True(t, cs.Register(c), "expected registration to succeed")
	return c
}

var (
	reqIdMu sync.Mutex
	reqId   int
)

func nextReqId() int {
	reqIdMu.Lock()
	defer reqIdMu.Unlock()
	reqId++
	return reqId
}

// request sends msg from c and waits for the response carrying its id.
func request(t *testing.T, c *Client, msg *ClientMessage) *Response {
	t.Helper()
	resp, _ := requestCollect(t, c, msg)
	return resp
}

// requestCollect is request but also returns every message read before the
// response, the response included.
func requestCollect(t *testing.T, c *Client, msg *ClientMessage) (*Response, []*ServerMessage) {
	t.Helper()
	msg.Id = nextReqId()
	c.dispatch(msg)
	seen := drainUntil(t, c, func(m *ServerMessage) bool {
		return m.Response != nil && m.Id == msg.Id
	})
	return seen[len(seen)-1].Response, seen
}

// drainUntil reads from c until match returns true and returns everything read.
func drainUntil(t *testing.T, c *Client, match func(*ServerMessage) bool) []*ServerMessage {
	t.Helper()
	var out []*ServerMessage
	timeout := time.After(time.Second)
	for {
		select {
		case m := <-c.send:
			out = append(out, m)
			if match(m) {
				return out
			}
		case <-timeout:
			t.Fatalf("timeout waiting for message on %s", c.id)
			return out
		}
	}
}

func identify(t *testing.T, c *Client, username string) {
	t.Helper()
	resp := request(t, c, &ClientMessage{Identify: &Identify{Username: username}})
	require.Equal(t, 200, resp.ResponseCode, "identify failed: %s", resp.Error)
}

// expectMessage reads from c until match returns true, discarding other
// messages, and fails the test after a second.
func expectMessage(t *testing.T, c *Client, match func(*ServerMessage) bool) *ServerMessage {
	t.Helper()
	timeout := time.After(time.Second)
	for {
		select {
		case m := <-c.send:
			if match(m) {
				return m
			}
		case <-timeout:
			t.Fatalf("timeout waiting for message on %s", c.id)
			return nil
		}
	}
}

// drain returns everything currently queued for c.
func drain(c *Client) []*ServerMessage {
	var out []*ServerMessage
	for {
		select {
		case m := <-c.send:
			out = append(out, m)
		default:
			return out
		}
	}
}

func isRoomMessage(m *ServerMessage) bool    { return m.RoomMessage != nil }
func isPrivateMessage(m *ServerMessage) bool { return m.PrivateMessage != nil }
func isPresence(m *ServerMessage) bool {
	return m.Notification != nil && m.Notification.Presence != nil
}
func isTyping(m *ServerMessage) bool {
	return m.Notification != nil && m.Notification.Typing != nil
}
func isReadReceipt(m *ServerMessage) bool {
	return m.Notification != nil && m.Notification.ReadReceipt != nil
}

func firstMatch(msgs []*ServerMessage, match func(*ServerMessage) bool) *ServerMessage {
	for _, m := range msgs {
		if match(m) {
			return m
		}
	}
	return nil
}

func count(msgs []*ServerMessage, match func(*ServerMessage) bool) int {
	n := 0
	for _, m := range msgs {
		if match(m) {
			n++
		}
	}
	return n
}

// recorder is a Dispatcher that keeps what it was given.
type recorder struct {
	mu         sync.Mutex
	delivered  map[string][]*ServerMessage
	broadcasts []*ServerMessage
}

func newRecorder() *recorder {
	return &recorder{delivered: make(map[string][]*ServerMessage)}
}

func (r *recorder) Deliver(connId string, msg *ServerMessage) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delivered[connId] = append(r.delivered[connId], msg)
	return true
}

func (r *recorder) Broadcast(msg *ServerMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcasts = append(r.broadcasts, msg)
}

func (r *recorder) to(connId string) []*ServerMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*ServerMessage(nil), r.delivered[connId]...)
}
