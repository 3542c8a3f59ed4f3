package server

import (
	"sort"
	"sync"
)

// Registry binds connection ids to usernames. It holds at most one
// connection per username and at most one username per connection.
type Registry struct {
	mu     sync.RWMutex
	byConn map[string]string
	byName map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		byConn: make(map[string]string),
		byName: make(map[string]string),
	}
}

// Register binds connId to username. A different connection already holding
// username loses its binding and is returned as superseded; it is not closed.
func (r *Registry) Register(connId, username string) (superseded string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byConn[connId]; ok && prev != username {
		if r.byName[prev] == connId {
			delete(r.byName, prev)
		}
	}

	if holder, ok := r.byName[username]; ok && holder != connId {
		delete(r.byConn, holder)
		superseded = holder
	}

	r.byConn[connId] = username
	r.byName[username] = connId
	return superseded
}

func (r *Registry) Resolve(username string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connId, ok := r.byName[username]
	return connId, ok
}

func (r *Registry) UsernameOf(connId string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	username, ok := r.byConn[connId]
	return username, ok
}

// Unregister removes the binding for connId and returns the username it held.
func (r *Registry) Unregister(connId string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	username, ok := r.byConn[connId]
	if !ok {
		return "", false
	}

	delete(r.byConn, connId)
	if r.byName[username] == connId {
		delete(r.byName, username)
	}
	return username, true
}

// AllUsernames returns the online usernames in lexical order.
func (r *Registry) AllUsernames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byName)
}
