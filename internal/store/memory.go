package store

import (
	"sort"
	"sync"

	"github.com/npezzotti/go-chatrelay/internal/types"
)

// DefaultCapacity is the number of messages kept per room when none is configured.
const DefaultCapacity = 1000

// MemoryStore is a MessageStore guarded by a single lock. Rooms are created
// lazily and live for the lifetime of the store.
type MemoryStore struct {
	mu       sync.RWMutex
	capacity int
	rooms    map[string]*Room
}

func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &MemoryStore{
		capacity: capacity,
		rooms:    make(map[string]*Room),
	}
}

func (s *MemoryStore) EnsureRoom(name string) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ensureRoom(name)
}

func (s *MemoryStore) ensureRoom(name string) *Room {
	r, ok := s.rooms[name]
	if !ok {
		r = newRoom(name, s.capacity)
		s.rooms[name] = r
	}
	return r
}

func (s *MemoryStore) Append(room string, msg types.Message) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.ensureRoom(room)
	m := &msg
	if evicted := r.history.push(m); evicted != nil {
		delete(r.index, evicted.Id)
	}
	r.index[m.Id] = m

	return memberList(r)
}

func (s *MemoryStore) RecentHistory(room string, limit int) []types.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[room]
	if !ok {
		return []types.Message{}
	}
	return snapshot(r, limit)
}

func (s *MemoryStore) FindById(room, messageId string) (types.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[room]
	if !ok {
		return types.Message{}, false
	}

	m, ok := r.index[messageId]
	if !ok {
		return types.Message{}, false
	}
	return *m, true
}

func (s *MemoryStore) MarkRead(room, messageId string) (types.Message, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[room]
	if !ok {
		return types.Message{}, false, false
	}

	m, ok := r.index[messageId]
	if !ok {
		return types.Message{}, false, false
	}

	if m.Status == types.StatusRead {
		return *m, false, true
	}

	m.Status = types.StatusRead
	return *m, true, true
}

func (s *MemoryStore) Join(room, connId string, limit int) ([]types.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.ensureRoom(room)
	if _, ok := r.members[connId]; ok {
		return []types.Message{}, false
	}
	r.members[connId] = struct{}{}
	return snapshot(r, limit), true
}

func (s *MemoryStore) Leave(room, connId string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[room]
	if !ok {
		return false
	}

	if _, ok := r.members[connId]; !ok {
		return false
	}
	delete(r.members, connId)
	return true
}

func (s *MemoryStore) LeaveAll(connId string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var left []string
	for name, r := range s.rooms {
		if _, ok := r.members[connId]; ok {
			delete(r.members, connId)
			left = append(left, name)
		}
	}

	sort.Strings(left)
	return left
}

func (s *MemoryStore) Members(room string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rooms[room]
	if !ok {
		return []string{}
	}
	return memberList(r)
}

func (s *MemoryStore) NumRooms() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.rooms)
}

// snapshot copies the newest limit messages so callers never share the
// stored values. Caller must hold s.mu.
func snapshot(r *Room, limit int) []types.Message {
	stored := r.history.last(limit)
	out := make([]types.Message, len(stored))
	for i, m := range stored {
		out[i] = *m
	}
	return out
}

func memberList(r *Room) []string {
	members := make([]string, 0, len(r.members))
	for id := range r.members {
		members = append(members, id)
	}
	sort.Strings(members)
	return members
}
