package server

import (
	"sort"
	"sync"
	"time"
)

// TypingScope is where a typing signal is shown: a room, or a single
// recipient when To is set.
type TypingScope struct {
	Room string
	To   string
}

func (s TypingScope) Private() bool {
	return s.To != ""
}

type typingKey struct {
	from  string
	scope TypingScope
}

type typingSignal struct {
	timer *time.Timer
	gen   uint64
}

// TypingTracker holds typing signals until they expire. Each (user, scope)
// pair owns at most one pending timer.
type TypingTracker struct {
	mu     sync.Mutex
	window time.Duration
	gen    uint64
	active map[typingKey]typingSignal
}

func NewTypingTracker(window time.Duration) *TypingTracker {
	return &TypingTracker{
		window: window,
		active: make(map[typingKey]typingSignal),
	}
}

// Signal records a typing signal or restarts the window of an existing one.
// It reports whether the signal was not already active.
func (t *TypingTracker) Signal(from string, scope TypingScope) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := typingKey{from: from, scope: scope}
	prev, refreshed := t.active[key]
	if refreshed {
		prev.timer.Stop()
	}

	t.gen++
	gen := t.gen
	t.active[key] = typingSignal{
		timer: time.AfterFunc(t.window, func() { t.expire(key, gen) }),
		gen:   gen,
	}

	return !refreshed
}

// expire drops key only if gen is still the current signal's generation, so
// a timer that lost the race with a refresh is a no-op.
func (t *TypingTracker) expire(key typingKey, gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if sig, ok := t.active[key]; ok && sig.gen == gen {
		delete(t.active, key)
	}
}

func (t *TypingTracker) ActiveTypers(scope TypingScope) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	typers := []string{}
	for key := range t.active {
		if key.scope == scope {
			typers = append(typers, key.from)
		}
	}
	sort.Strings(typers)
	return typers
}

// Stop cancels every pending expiry.
func (t *TypingTracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key, sig := range t.active {
		sig.timer.Stop()
		delete(t.active, key)
	}
}
