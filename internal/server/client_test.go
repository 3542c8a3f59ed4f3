package server

import (
	"net/http"
	"testing"
	"time"

	"github.com/npezzotti/go-chatrelay/internal/testutil"
	"github.com/npezzotti/go-chatrelay/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func Test_queueMessage(t *testing.T) {
	t.Run("successful queue", func(t *testing.T) {
		c := &Client{
			send: make(chan *ServerMessage, 1),
			log:  testutil.TestLogger(t),
		}

		res := c.queueMessage(&ServerMessage{})
		assert.True(t, res, "expected queueMessage to return true when channel is not full")

		select {
		case msg := <-c.send:
			assert.NotNil(t, msg, "expected a message to be sent to the client")
		default:
			t.Error("expected a message to be sent to the client, but none was sent")
		}
	})
	t.Run("channel full", func(t *testing.T) {
		c := &Client{
			send: make(chan *ServerMessage, 1),
			log:  testutil.TestLogger(t),
		}

		c.send <- &ServerMessage{} // Pre-fill the send channel to simulate a full channel
		res := c.queueMessage(&ServerMessage{})
		assert.False(t, res, "expected queueMessage to return false when channel is full")
	})
}

func Test_serializeMessage(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	tcases := []struct {
		name     string
		msg      *ServerMessage
		expected string
	}{
		{
			name: "response",
			msg: &ServerMessage{
				BaseMessage: BaseMessage{Id: 1, Timestamp: ts},
				Response:    &Response{ResponseCode: 200, Data: "test data"},
			},
			expected: `{"id":1,"timestamp":"2024-01-02T03:04:05Z","response":{"response_code":200,"data":"test data"}}`,
		},
		{
			name: "presence",
			msg: &ServerMessage{
				BaseMessage:  BaseMessage{Timestamp: ts},
				Notification: &Notification{Presence: &Presence{Usernames: []string{"alice"}}},
			},
			expected: `{"timestamp":"2024-01-02T03:04:05Z","notification":{"presence":{"usernames":["alice"]}}}`,
		},
		{
			name: "room message",
			msg: &ServerMessage{
				BaseMessage: BaseMessage{Timestamp: ts},
				RoomMessage: &types.Message{Id: "m1", From: "alice", Text: "hi", Room: "global", Timestamp: ts, Status: types.StatusSent},
			},
			expected: `{"timestamp":"2024-01-02T03:04:05Z","room_message":{"id":"m1","from":"alice","text":"hi","room":"global","timestamp":"2024-01-02T03:04:05Z","status":"sent"}}`,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			bytes, err := serializeMessage(tc.msg)
			assert.NoError(t, err, "expected no error during serialization")
			assert.Equal(t, tc.expected, string(bytes))
		})
	}
}

func Test_stopClient(t *testing.T) {
	c := &Client{
		stop: make(chan struct{}),
	}

	c.stopClient()
	c.stopClient()

	select {
	case <-c.stop:
		// Channel is closed as expected
	default:
		t.Error("expected stop channel to be closed")
	}
}

func TestNewClient(t *testing.T) {
	cs := newTestChatServer(t)
	a := NewClient(nil, cs, testutil.TestLogger(t))
	b := NewClient(nil, cs, testutil.TestLogger(t))

	assert.NotEmpty(t, a.Id())
	assert.NotEqual(t, a.Id(), b.Id(), "connection ids must be unique")
	assert.Equal(t, sendBufferSize, cap(a.send))
	assert.Equal(t, cs.cfg.RateLimit.Burst, a.limiter.Burst())
}

func Test_dispatch(t *testing.T) {
	t.Run("forwards a valid message", func(t *testing.T) {
		cs := newTestChatServer(t)
		c := newTestClient(t, cs)

		c.dispatch(&ClientMessage{BaseMessage: BaseMessage{Id: 3}, Publish: &Publish{Text: "hi"}})

		select {
		case msg := <-cs.clientMsgChan:
			assert.Equal(t, 3, msg.Id)
			assert.Equal(t, c, msg.client, "expected message to carry its client")
			assert.False(t, msg.Timestamp.IsZero())
		default:
			t.Error("expected message to be forwarded to the chat server")
		}
	})

	t.Run("rejects frames without exactly one action", func(t *testing.T) {
		cs := newTestChatServer(t)
		c := newTestClient(t, cs)

		c.dispatch(&ClientMessage{BaseMessage: BaseMessage{Id: 4}})
		c.dispatch(&ClientMessage{
			BaseMessage: BaseMessage{Id: 5},
			Publish:     &Publish{Text: "hi"},
			Typing:      &Typing{Room: "global"},
		})

		for _, id := range []int{4, 5} {
			msg := <-c.send
			assert.Equal(t, id, msg.Id)
			assert.Equal(t, http.StatusBadRequest, msg.Response.ResponseCode)
		}
		assert.Len(t, cs.clientMsgChan, 0)
	})

	t.Run("rate limited", func(t *testing.T) {
		cs := newTestChatServer(t)
		c := newTestClient(t, cs)
		c.limiter = rate.NewLimiter(rate.Every(time.Hour), 1)

		c.dispatch(&ClientMessage{BaseMessage: BaseMessage{Id: 1}, Publish: &Publish{Text: "one"}})
		c.dispatch(&ClientMessage{BaseMessage: BaseMessage{Id: 2}, Publish: &Publish{Text: "two"}})

		require.Len(t, c.send, 1)
		msg := <-c.send
		assert.Equal(t, 2, msg.Id)
		assert.Equal(t, http.StatusTooManyRequests, msg.Response.ResponseCode)
		assert.Len(t, cs.clientMsgChan, 1)
	})

	t.Run("hub saturated", func(t *testing.T) {
		cs := newTestChatServer(t)
		cs.clientMsgChan = make(chan *ClientMessage)
		c := newTestClient(t, cs)

		c.dispatch(&ClientMessage{BaseMessage: BaseMessage{Id: 9}, Publish: &Publish{Text: "hi"}})

		msg := <-c.send
		assert.Equal(t, 9, msg.Id)
		assert.Equal(t, http.StatusServiceUnavailable, msg.Response.ResponseCode)
	})
}

func TestChatServer_Deliver(t *testing.T) {
	cs := newTestChatServer(t)
	c := newTestClient(t, cs)
	cs.addClient(c)

	assert.True(t, cs.Deliver(c.id, &ServerMessage{}))
	assert.False(t, cs.Deliver("gone", &ServerMessage{}), "delivery to an unknown connection fails quietly")

	for i := 0; i < cap(c.send); i++ {
		c.queueMessage(&ServerMessage{})
	}
	assert.False(t, cs.Deliver(c.id, &ServerMessage{}), "delivery to a saturated connection fails quietly")
}
