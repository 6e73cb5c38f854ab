package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// runMsg carries a callback to be executed on the Bubble Tea loop
type runMsg func()

// loopQueue is the Poster used while the program runs. Post never blocks, so
// it is safe to call from inside Update (a session closing synchronously
// notifies its observers). A single forwarder keeps callbacks in post order.
type loopQueue struct {
	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
}

func newLoopQueue() *loopQueue {
	return &loopQueue{wake: make(chan struct{}, 1)}
}

// Post enqueues f; it has the views.Poster signature
func (q *loopQueue) Post(f func()) {
	q.mu.Lock()
	q.pending = append(q.pending, f)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *loopQueue) next() (func(), bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil, false
	}
	f := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	return f, true
}

// forward hands queued callbacks to send until ctx is done
func (q *loopQueue) forward(ctx context.Context, send func(tea.Msg)) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.wake:
		}
		for {
			f, ok := q.next()
			if !ok {
				break
			}
			send(runMsg(f))
		}
	}
}
