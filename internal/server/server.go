package server

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/npezzotti/go-chatrelay/internal/config"
	"github.com/npezzotti/go-chatrelay/internal/stats"
	"github.com/npezzotti/go-chatrelay/internal/store"
	"github.com/npezzotti/go-chatrelay/internal/types"
)

// ChatServer owns every connection. Connect, disconnect and inbound client
// events are all handled on the Run goroutine, so a join's history reply is
// always queued before any later live message for that connection.
type ChatServer struct {
	log            *log.Logger
	cfg            *config.Config
	store          store.MessageStore
	registry       *Registry
	router         *Router
	typing         *TypingTracker
	presence       *PresenceBroadcaster
	stats          stats.StatsProvider
	clients        map[string]*Client
	clientsLock    sync.RWMutex
	registerChan   chan *Client
	deRegisterChan chan *Client
	clientMsgChan  chan *ClientMessage
	stop           chan struct{}
	stopOnce       sync.Once
	done           chan struct{}
}

func NewChatServer(logger *log.Logger, cfg *config.Config, st store.MessageStore, su stats.StatsProvider) (*ChatServer, error) {
	cs := &ChatServer{
		log:            logger,
		cfg:            cfg,
		store:          st,
		registry:       NewRegistry(),
		typing:         NewTypingTracker(cfg.TypingWindow),
		stats:          su,
		clients:        make(map[string]*Client),
		registerChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		clientMsgChan:  make(chan *ClientMessage, 256),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}

	cs.router = NewRouter(logger, st, cs.registry, cs, su)
	cs.presence = NewPresenceBroadcaster(logger, cs.registry, cs)

	su.RegisterMetric(stats.NumConnections)
	su.RegisterMetric(stats.NumMessagesRouted)
	su.RegisterGauge(stats.NumIdentified, func() int64 { return int64(cs.registry.Len()) })
	su.RegisterGauge(stats.NumRooms, func() int64 { return int64(st.NumRooms()) })

	return cs, nil
}

func (cs *ChatServer) Run() {
	for {
		select {
		case c := <-cs.registerChan:
			cs.log.Printf("adding connection %s", c.id)
			cs.addClient(c)
		case c := <-cs.deRegisterChan:
			cs.handleDisconnect(c)
		case msg := <-cs.clientMsgChan:
			cs.handleClientMessage(msg)
		case <-cs.stop:
			cs.log.Println("stopping clients")
			cs.clientsLock.RLock()
			for _, c := range cs.clients {
				c.stopClient()
			}
			cs.clientsLock.RUnlock()
			cs.typing.Stop()

			close(cs.done)
			return
		}
	}
}

// Register hands a newly accepted connection to the hub. It returns false
// once the server is shutting down.
func (cs *ChatServer) Register(c *Client) bool {
	select {
	case cs.registerChan <- c:
		return true
	case <-cs.done:
		return false
	}
}

func (cs *ChatServer) deregister(c *Client) {
	select {
	case cs.deRegisterChan <- c:
	case <-cs.done:
	}
}

func (cs *ChatServer) submit(msg *ClientMessage) bool {
	select {
	case cs.clientMsgChan <- msg:
		return true
	default:
		cs.log.Println("clientMsgChan full")
		return false
	}
}

// OnlineUsers returns the current presence snapshot.
func (cs *ChatServer) OnlineUsers() []string {
	return cs.registry.AllUsernames()
}

func (cs *ChatServer) addClient(c *Client) {
	cs.clientsLock.Lock()
	cs.clients[c.id] = c
	cs.clientsLock.Unlock()

	cs.stats.Incr(stats.NumConnections)
}

func (cs *ChatServer) removeClient(c *Client) bool {
	cs.clientsLock.Lock()
	defer cs.clientsLock.Unlock()

	if _, ok := cs.clients[c.id]; !ok {
		return false
	}
	delete(cs.clients, c.id)
	return true
}

// Deliver queues msg for a single connection. Missing or saturated
// connections are logged and skipped.
func (cs *ChatServer) Deliver(connId string, msg *ServerMessage) bool {
	cs.clientsLock.RLock()
	c, ok := cs.clients[connId]
	cs.clientsLock.RUnlock()

	if !ok {
		cs.log.Printf("deliver: connection %s is gone", connId)
		return false
	}
	return c.queueMessage(msg)
}

func (cs *ChatServer) Broadcast(msg *ServerMessage) {
	cs.clientsLock.RLock()
	defer cs.clientsLock.RUnlock()

	for _, c := range cs.clients {
		c.queueMessage(msg)
	}
}

func (cs *ChatServer) handleDisconnect(c *Client) {
	if !cs.removeClient(c) {
		return
	}
	cs.log.Printf("removing connection %s", c.id)
	cs.stats.Decr(stats.NumConnections)

	left := cs.store.LeaveAll(c.id)
	username, identified := cs.registry.Unregister(c.id)
	if !identified {
		return
	}
	cs.log.Printf("%q left, was in rooms %v", username, left)

	cs.presence.OnPresenceChange()
	cs.broadcastUserLeft(username)
}

func (cs *ChatServer) broadcastUserLeft(username string) {
	cs.Broadcast(&ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Notification: &Notification{
			UserLeft: &UserLeft{Username: username},
		},
	})
}

func (cs *ChatServer) handleClientMessage(msg *ClientMessage) {
	c := msg.client

	if msg.Identify != nil {
		cs.handleIdentify(msg)
		return
	}

	username, ok := cs.registry.UsernameOf(c.id)
	if !ok {
		c.queueMessage(ErrUnidentified(msg.Id))
		return
	}

	switch {
	case msg.Join != nil:
		cs.handleJoin(msg, username)
	case msg.Leave != nil:
		cs.handleLeave(msg)
	case msg.Publish != nil:
		cs.handlePublish(msg, username)
	case msg.Typing != nil:
		cs.handleTyping(msg, username)
	case msg.Read != nil:
		if err := cs.router.MarkRead(msg.Read.Room, msg.Read.MessageId, username); err != nil {
			c.queueMessage(ErrForbidden(msg.Id, err))
		}
	}
}

func (cs *ChatServer) handleIdentify(msg *ClientMessage) {
	c := msg.client
	username := strings.TrimSpace(msg.Identify.Username)
	if username == "" {
		c.queueMessage(ErrBadRequest(msg.Id, ErrEmptyUsername))
		return
	}

	previous, renamed := cs.registry.UsernameOf(c.id)
	renamed = renamed && previous != username

	if superseded := cs.registry.Register(c.id, username); superseded != "" {
		// the old connection stays open but anonymous
		cs.store.LeaveAll(superseded)
		cs.log.Printf("%q moved from connection %s to %s", username, superseded, c.id)
	}

	history, _ := cs.store.Join(types.DefaultRoom, c.id, cs.cfg.BackfillLimit)
	c.queueMessage(NoErrOK(msg.Id, JoinResult{Room: types.DefaultRoom, History: history}))

	cs.presence.OnPresenceChange()
	if renamed {
		cs.broadcastUserLeft(previous)
	}
}

func (cs *ChatServer) handleJoin(msg *ClientMessage, username string) {
	room := msg.Join.Room
	if room == "" {
		room = types.DefaultRoom
	}
	if IsPrivateKey(room) && !IsParticipant(room, username) {
		msg.client.queueMessage(ErrForbidden(msg.Id, ErrNotParticipant))
		return
	}

	history, _ := cs.store.Join(room, msg.client.id, cs.cfg.BackfillLimit)
	msg.client.queueMessage(NoErrOK(msg.Id, JoinResult{Room: room, History: history}))
}

func (cs *ChatServer) handleLeave(msg *ClientMessage) {
	cs.store.Leave(msg.Leave.Room, msg.client.id)
	msg.client.queueMessage(NoErrOK(msg.Id, nil))
}

func (cs *ChatServer) handlePublish(msg *ClientMessage, username string) {
	res, err := cs.router.Route(username, msg.Publish)
	if err != nil {
		msg.client.queueMessage(ErrBadRequest(msg.Id, err))
		return
	}

	msg.client.queueMessage(NoErrOK(msg.Id, PublishResult{
		MessageId: res.MessageId,
		Timestamp: res.Timestamp,
	}))
}

// handleTyping records the signal and notifies the room's other members, or
// the single recipient. Nothing is sent when the signal expires.
func (cs *ChatServer) handleTyping(msg *ClientMessage, username string) {
	c := msg.client
	scope := TypingScope{Room: msg.Typing.Room, To: strings.TrimSpace(msg.Typing.To)}
	if scope.Private() && scope.Room != "" {
		c.queueMessage(ErrBadRequest(msg.Id, ErrAmbiguousTarget))
		return
	}
	if !scope.Private() && IsPrivateKey(scope.Room) {
		c.queueMessage(ErrBadRequest(msg.Id, ErrReservedRoom))
		return
	}
	if !scope.Private() && scope.Room == "" {
		scope.Room = types.DefaultRoom
	}

	cs.typing.Signal(username, scope)

	out := &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Notification: &Notification{
			Typing: &types.TypingIndicator{
				From:    username,
				Room:    scope.Room,
				Private: scope.Private(),
			},
		},
	}

	if scope.Private() {
		if connId, ok := cs.registry.Resolve(scope.To); ok {
			cs.Deliver(connId, out)
		}
		return
	}

	for _, connId := range cs.store.Members(scope.Room) {
		if connId != c.id {
			cs.Deliver(connId, out)
		}
	}
}

// ActiveTypers reports who is currently typing in room.
func (cs *ChatServer) ActiveTypers(room string) []string {
	return cs.typing.ActiveTypers(TypingScope{Room: room})
}

func (cs *ChatServer) Shutdown(ctx context.Context) error {
	cs.log.Println("received shutdown signal")
	cs.stopOnce.Do(func() { close(cs.stop) })

	select {
	case <-cs.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
