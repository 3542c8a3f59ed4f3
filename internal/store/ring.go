package store

import "github.com/npezzotti/go-chatrelay/internal/types"

// ring is a fixed capacity FIFO of messages. Not safe for concurrent use.
type ring struct {
	buf  []*types.Message
	head int
	size int
}

func newRing(capacity int) *ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &ring{buf: make([]*types.Message, capacity)}
}

// push appends m and returns the message it displaced, if any.
func (r *ring) push(m *types.Message) *types.Message {
	var evicted *types.Message
	tail := (r.head + r.size) % len(r.buf)
	if r.size == len(r.buf) {
		evicted = r.buf[r.head]
		r.head = (r.head + 1) % len(r.buf)
	} else {
		r.size++
	}
	r.buf[tail] = m
	return evicted
}

// last returns up to n of the newest messages, oldest first.
func (r *ring) last(n int) []*types.Message {
	if n <= 0 || n > r.size {
		n = r.size
	}
	out := make([]*types.Message, 0, n)
	start := r.size - n
	for i := start; i < r.size; i++ {
		out = append(out, r.buf[(r.head+i)%len(r.buf)])
	}
	return out
}

func (r *ring) len() int {
	return r.size
}

func (r *ring) capacity() int {
	return len(r.buf)
}
