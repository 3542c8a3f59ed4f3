package server

import "log"

// Dispatcher hands server messages to live connections. Delivery is
// best effort: failures are logged by the implementation and never returned
// to the caller as errors.
type Dispatcher interface {
	Deliver(connId string, msg *ServerMessage) bool
	Broadcast(msg *ServerMessage)
}

type PresenceBroadcaster struct {
	log        *log.Logger
	registry   *Registry
	dispatcher Dispatcher
}

func NewPresenceBroadcaster(logger *log.Logger, registry *Registry, d Dispatcher) *PresenceBroadcaster {
	return &PresenceBroadcaster{
		log:        logger,
		registry:   registry,
		dispatcher: d,
	}
}

// OnPresenceChange pushes the full online list to every connection.
func (p *PresenceBroadcaster) OnPresenceChange() {
	usernames := p.registry.AllUsernames()
	p.log.Printf("presence changed, %d user(s) online", len(usernames))
	p.dispatcher.Broadcast(&ServerMessage{
		BaseMessage: BaseMessage{
			Timestamp: Now(),
		},
		Notification: &Notification{
			Presence: &Presence{Usernames: usernames},
		},
	})
}
