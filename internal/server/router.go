package server

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/npezzotti/go-chatrelay/internal/stats"
	"github.com/npezzotti/go-chatrelay/internal/store"
	"github.com/npezzotti/go-chatrelay/internal/types"
	"github.com/teris-io/shortid"
)

const privateKeyPrefix = "dm:"

// PrivateKey names the history shared by two users. It is the same for
// either argument order.
func PrivateKey(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	return privateKeyPrefix + pair[0] + ":" + pair[1]
}

// IsPrivateKey reports whether room names a private history. Such keys are
// only written by private sends.
func IsPrivateKey(room string) bool {
	return strings.HasPrefix(room, privateKeyPrefix)
}

// IsParticipant reports whether username is one of the two users whose
// private history is stored under key.
func IsParticipant(key, username string) bool {
	pair, ok := strings.CutPrefix(key, privateKeyPrefix)
	if !ok || username == "" {
		return false
	}

	// usernames may contain ':' so match against the rebuilt key
	if other, ok := strings.CutPrefix(pair, username+":"); ok && PrivateKey(username, other) == key {
		return true
	}
	if other, ok := strings.CutSuffix(pair, ":"+username); ok && PrivateKey(username, other) == key {
		return true
	}
	return false
}

func newMessageId(ts time.Time) string {
	return fmt.Sprintf("%d-%s", ts.UnixMilli(), shortid.MustGenerate())
}

type RouteResult struct {
	MessageId string
	Timestamp time.Time
	Private   bool
	// Delivered counts the connections the message was queued for.
	Delivered int
}

// Router stamps, stores and dispatches chat messages and read receipts.
type Router struct {
	log        *log.Logger
	store      store.MessageStore
	registry   *Registry
	dispatcher Dispatcher
	stats      stats.StatsProvider
	now        func() time.Time
}

func NewRouter(logger *log.Logger, st store.MessageStore, registry *Registry, d Dispatcher, su stats.StatsProvider) *Router {
	return &Router{
		log:        logger,
		store:      st,
		registry:   registry,
		dispatcher: d,
		stats:      su,
		now:        Now,
	}
}

// Route validates p, assigns its id and server timestamp, saves it and hands
// it to the connections that should see it. A private message for a user
// who is offline is saved and acknowledged but delivered to nobody.
func (rt *Router) Route(sender string, p *Publish) (RouteResult, error) {
	if strings.TrimSpace(p.Text) == "" && strings.TrimSpace(p.AttachmentRef) == "" {
		return RouteResult{}, ErrEmptyMessage
	}

	to := strings.TrimSpace(p.To)
	if to != "" && p.Room != "" {
		return RouteResult{}, ErrAmbiguousTarget
	}
	if to == "" && IsPrivateKey(p.Room) {
		return RouteResult{}, ErrReservedRoom
	}

	ts := rt.now()
	msg := types.Message{
		Id:            newMessageId(ts),
		From:          sender,
		Text:          p.Text,
		AttachmentRef: p.AttachmentRef,
		To:            to,
		Timestamp:     ts,
		Status:        types.StatusSent,
	}

	res := RouteResult{
		MessageId: msg.Id,
		Timestamp: ts,
	}

	if msg.IsPrivate() {
		msg.Room = PrivateKey(sender, to)
		res.Private = true
		rt.store.Append(msg.Room, msg)
		res.Delivered = rt.dispatchPrivate(msg)
	} else {
		msg.Room = p.Room
		if msg.Room == "" {
			msg.Room = types.DefaultRoom
		}
		members := rt.store.Append(msg.Room, msg)
		res.Delivered = rt.dispatchRoom(msg, members)
	}

	rt.stats.Incr(stats.NumMessagesRouted)
	return res, nil
}

func (rt *Router) dispatchRoom(msg types.Message, members []string) int {
	out := &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: msg.Timestamp},
		RoomMessage: &msg,
	}

	delivered := 0
	for _, connId := range members {
		if rt.dispatcher.Deliver(connId, out) {
			delivered++
		}
	}
	return delivered
}

// dispatchPrivate delivers to the recipient and echoes to the sender. When
// the recipient is offline nothing is delivered; the sender reconciles from
// the publish ack.
func (rt *Router) dispatchPrivate(msg types.Message) int {
	recipientConn, online := rt.registry.Resolve(msg.To)
	if !online {
		rt.log.Printf("recipient %q is offline, message %s saved only", msg.To, msg.Id)
		return 0
	}

	out := &ServerMessage{
		BaseMessage:    BaseMessage{Timestamp: msg.Timestamp},
		PrivateMessage: &msg,
	}

	delivered := 0
	if rt.dispatcher.Deliver(recipientConn, out) {
		delivered++
	}
	rt.dispatcher.Deliver(recipientConn, &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: msg.Timestamp},
		Notification: &Notification{
			NewMessageAlert: &NewMessageAlert{From: msg.From},
		},
	})

	if senderConn, ok := rt.registry.Resolve(msg.From); ok && senderConn != recipientConn {
		if rt.dispatcher.Deliver(senderConn, out) {
			delivered++
		}
	}
	return delivered
}

// MarkRead moves a message to read and tells its sender, once. Unknown ids
// and reads of one's own message are ignored. Only the two participants of a
// private history may mark its messages read.
func (rt *Router) MarkRead(room, messageId, reader string) error {
	if IsPrivateKey(room) && !IsParticipant(room, reader) {
		return ErrNotParticipant
	}

	found, ok := rt.store.FindById(room, messageId)
	if !ok {
		rt.log.Printf("read receipt for unknown message %s in %q dropped", messageId, room)
		return nil
	}
	if found.From == reader {
		return nil
	}

	msg, transitioned, ok := rt.store.MarkRead(room, messageId)
	if !ok || !transitioned {
		return nil
	}

	senderConn, online := rt.registry.Resolve(msg.From)
	if !online {
		return nil
	}

	rt.dispatcher.Deliver(senderConn, &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: rt.now()},
		Notification: &Notification{
			ReadReceipt: &types.ReadReceipt{
				MessageId: messageId,
				Room:      room,
				ReadBy:    reader,
			},
		},
	})
	return nil
}
