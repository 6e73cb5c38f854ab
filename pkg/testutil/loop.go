package testutil

import (
	"testing"
	"time"
)

// Loop stands in for the UI loop in tests. Controllers post callbacks from the
// session reader goroutine; the test goroutine runs them with RunUntil, so
// controller state is only ever touched by the test.
type Loop struct {
	funcs chan func()
}

// NewLoop creates a loop with room for a burst of callbacks
func NewLoop() *Loop {
	return &Loop{funcs: make(chan func(), 256)}
}

// Post queues f. It has the views.Poster signature.
func (l *Loop) Post(f func()) {
	l.funcs <- f
}

// RunUntil runs posted callbacks until cond holds or timeout passes
func (l *Loop) RunUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.After(timeout)
	for !cond() {
		select {
		case f := <-l.funcs:
			f()
		case <-deadline:
			t.Fatalf("condition not met within %s", timeout)
		}
	}
}

// Drain runs whatever is queued right now without waiting
func (l *Loop) Drain() {
	for {
		select {
		case f := <-l.funcs:
			f()
		default:
			return
		}
	}
}
