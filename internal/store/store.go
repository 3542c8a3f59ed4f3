// Package store keeps per-room message history and room membership in memory.
package store

import "github.com/npezzotti/go-chatrelay/internal/types"

// MessageStore is the single owner of room history and membership.
// Every method is atomic with respect to every other method.
type MessageStore interface {
	EnsureRoom(name string) *Room
	// Append saves msg under room, evicting the oldest entry when the room is
	// at capacity, and returns the room's members at the time of the append.
	Append(room string, msg types.Message) []string
	RecentHistory(room string, limit int) []types.Message
	FindById(room, messageId string) (types.Message, bool)
	// MarkRead moves a message from sent to read. transitioned is true only
	// for the call that performed the transition.
	MarkRead(room, messageId string) (msg types.Message, transitioned bool, found bool)
	// Join adds connId to room and returns up to limit recent messages taken
	// under the same lock as the membership change. A connection that is
	// already a member gets no history and joined is false, since it has seen
	// every message since it joined.
	Join(room, connId string, limit int) (history []types.Message, joined bool)
	Leave(room, connId string) bool
	LeaveAll(connId string) []string
	Members(room string) []string
	NumRooms() int
}

// Room is a handle to a named channel. Its contents are only reachable
// through the MessageStore that created it.
type Room struct {
	name    string
	history *ring
	index   map[string]*types.Message
	members map[string]struct{}
}

func newRoom(name string, capacity int) *Room {
	return &Room{
		name:    name,
		history: newRing(capacity),
		index:   make(map[string]*types.Message),
		members: make(map[string]struct{}),
	}
}

func (r *Room) Name() string {
	return r.name
}
