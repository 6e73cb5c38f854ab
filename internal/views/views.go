// Package views contains the UI-independent controllers behind the Select
// and Display screens. Controllers observe a ha.Channel, but never touch
// their own state from the channel's reader goroutine: every callback is
// handed to a Poster, which runs it on the single UI loop.
package views

import (
	"context"
	"errors"
)

// Poster schedules f on the UI loop. Callbacks posted from one goroutine run
// in the order they were posted.
type Poster func(f func())

// Immediate runs f on the calling goroutine. Only valid with a channel that
// delivers messages synchronously on the caller's goroutine, like
// ha.MockChannel; a live ha.Session calls observers from its reader goroutine,
// so use a Queue there.
func Immediate(f func()) { f() }

// Queue is a Poster for callers without a UI loop of their own, such as
// headless commands. Callbacks are buffered and run by RunUntil on the
// caller's goroutine.
type Queue struct {
	funcs  chan func()
	closed chan struct{}
}

// NewQueue creates an empty queue
func NewQueue() *Queue {
	return &Queue{
		funcs:  make(chan func(), 64),
		closed: make(chan struct{}),
	}
}

// Post queues f. After Close it drops f instead of blocking the sender.
func (q *Queue) Post(f func()) {
	select {
	case q.funcs <- f:
	case <-q.closed:
	}
}

// RunUntil runs posted callbacks until cond holds or ctx is done
func (q *Queue) RunUntil(ctx context.Context, cond func() bool) error {
	for !cond() {
		select {
		case f := <-q.funcs:
			f()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Close releases any sender blocked in Post. Safe to call more than once.
func (q *Queue) Close() {
	select {
	case <-q.closed:
	default:
		close(q.closed)
	}
}

// Navigation guards. Screens redirect when Mount returns one of these.
var (
	ErrNoSession   = errors.New("no open session")
	ErrNoSelection = errors.New("no entities selected")
)

// ErrEmptySelection is returned by Confirm when nothing is checked
var ErrEmptySelection = errors.New("please select at least one device")
