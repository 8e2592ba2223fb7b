// Package uci talks to a UCI chess engine: a line queue fed by the engine's
// output listener, a session speaking the protocol, and a two-slot session pool.
package uci

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
)

// ErrConcurrentReceive is returned when a second consumer calls Get while
// another Get is still waiting. The queue supports exactly one consumer.
var ErrConcurrentReceive = errors.New("uci: concurrent receive on line queue")

// LineQueue is an unbounded FIFO of engine output lines with a single consumer.
// Put never blocks; Get waits for the next line.
type LineQueue struct {
	mu        sync.Mutex
	pending   []string
	closed    bool
	signal    chan struct{} // capacity 1, non-empty when pending may have grown
	receiving atomic.Bool
}

// NewLineQueue creates an empty queue.
func NewLineQueue() *LineQueue {
	return &LineQueue{signal: make(chan struct{}, 1)}
}

// Put appends a line and wakes a waiting consumer.
func (q *LineQueue) Put(line string) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.pending = append(q.pending, line)
	q.mu.Unlock()
	q.wake()
}

// Close marks the end of the stream. Buffered lines are still delivered;
// after that Get returns io.EOF.
func (q *LineQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wake()
}

func (q *LineQueue) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Len returns the number of buffered lines.
func (q *LineQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Get returns the next line, waiting for a Put if none is buffered.
// It only gives up when ctx is done or the queue is closed and drained.
func (q *LineQueue) Get(ctx context.Context) (string, error) {
	if !q.receiving.CompareAndSwap(false, true) {
		return "", ErrConcurrentReceive
	}
	defer q.receiving.Store(false)

	for {
		q.mu.Lock()
		if len(q.pending) > 0 {
			line := q.pending[0]
			q.pending[0] = ""
			q.pending = q.pending[1:]
			q.mu.Unlock()
			return line, nil
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return "", io.EOF
		}

		select {
		case <-q.signal:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}
