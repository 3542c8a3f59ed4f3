package server

import (
	"net/http"
	"time"

	"github.com/npezzotti/go-chatrelay/internal/types"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage is an inbound frame. Exactly one action field is set.
type ClientMessage struct {
	BaseMessage
	Identify *Identify `json:"identify,omitempty"`
	Join     *Join     `json:"join,omitempty"`
	Leave    *Leave    `json:"leave,omitempty"`
	Publish  *Publish  `json:"publish,omitempty"`
	Typing   *Typing   `json:"typing,omitempty"`
	Read     *Read     `json:"read,omitempty"`
	client   *Client   `json:"-"`
}

func (m *ClientMessage) numActions() int {
	n := 0
	for _, set := range []bool{
		m.Identify != nil, m.Join != nil, m.Leave != nil,
		m.Publish != nil, m.Typing != nil, m.Read != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

type Identify struct {
	Username string `json:"username"`
}

type Join struct {
	Room string `json:"room"`
}

type Leave struct {
	Room string `json:"room"`
}

type Publish struct {
	Room          string `json:"room,omitempty"`
	To            string `json:"to,omitempty"`
	Text          string `json:"text,omitempty"`
	AttachmentRef string `json:"attachment_ref,omitempty"`
}

type Typing struct {
	Room string `json:"room,omitempty"`
	To   string `json:"to,omitempty"`
}

type Read struct {
	MessageId string `json:"message_id"`
	Room      string `json:"room"`
}

type ServerMessage struct {
	BaseMessage
	Response       *Response      `json:"response,omitempty"`
	RoomMessage    *types.Message `json:"room_message,omitempty"`
	PrivateMessage *types.Message `json:"private_message,omitempty"`
	Notification   *Notification  `json:"notification,omitempty"`
}

type Response struct {
	ResponseCode int    `json:"response_code"`
	Error        string `json:"error,omitempty"`
	Data         any    `json:"data,omitempty"`
}

type Notification struct {
	Presence        *Presence              `json:"presence,omitempty"`
	Typing          *types.TypingIndicator `json:"typing,omitempty"`
	ReadReceipt     *types.ReadReceipt     `json:"read_receipt,omitempty"`
	UserLeft        *UserLeft              `json:"user_left,omitempty"`
	NewMessageAlert *NewMessageAlert       `json:"new_message_alert,omitempty"`
}

type Presence struct {
	Usernames []string `json:"usernames"`
}

type UserLeft struct {
	Username string `json:"username"`
}

type NewMessageAlert struct {
	From string `json:"from"`
}

type JoinResult struct {
	Room    string          `json:"room"`
	History []types.Message `json:"history"`
}

type PublishResult struct {
	MessageId string    `json:"message_id"`
	Timestamp time.Time `json:"timestamp"`
}

func response(id int, code int, errMsg string, data any) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: code,
			Error:        errMsg,
			Data:         data,
		},
	}
}

func NoErrOK(id int, data any) *ServerMessage {
	return response(id, http.StatusOK, "", data)
}

func ErrBadRequest(id int, err error) *ServerMessage {
	return response(id, http.StatusBadRequest, err.Error(), nil)
}

func ErrForbidden(id int, err error) *ServerMessage {
	return response(id, http.StatusForbidden, err.Error(), nil)
}

func ErrMalformedMessage(id int) *ServerMessage {
	return response(id, http.StatusBadRequest, "invalid message format", nil)
}

func ErrUnidentified(id int) *ServerMessage {
	return response(id, http.StatusUnauthorized, ErrNotIdentified.Error(), nil)
}

func ErrTooManyRequests(id int) *ServerMessage {
	return response(id, http.StatusTooManyRequests, ErrRateLimited.Error(), nil)
}

func ErrServiceUnavailable(id int) *ServerMessage {
	return response(id, http.StatusServiceUnavailable, "service unavailable", nil)
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
