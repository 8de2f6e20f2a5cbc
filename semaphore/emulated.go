package semaphore

import (
	"math"
	"slices"
	"time"

	"github.com/sasha-s/go-deadlock"
)

const emulatedMaxCount = math.MaxInt

// emulated is the default backend. Blocked waiters are parked goroutines, not
// OS threads, so any number of them can wait at once. A post that finds blocked waiters hands
// its token directly to the oldest one by closing that waiter's channel, so
// the count only grows while nobody is waiting. Because a token is never
// left in the count for a waiter to race for, a woken waiter cannot miss it.
type emulated struct {
	mu      deadlock.Mutex
	count   uint
	max     uint
	waiters []chan struct{}
}

func newEmulated(initial, limit uint) (*emulated, error) {
	if initial > limit {
		return nil, ErrInvalidCount
	}
	return &emulated{count: initial, max: limit}, nil
}

func (e *emulated) backend() string { return "emulated" }

func (e *emulated) post() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.waiters) > 0 {
		w := e.waiters[0]
		e.waiters[0] = nil
		e.waiters = e.waiters[1:]
		close(w)
		return nil
	}
	if e.count >= e.max {
		return ErrOverflow
	}
	e.count++
	return nil
}

func (e *emulated) tryWait() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.count == 0 {
		return false
	}
	e.count--
	return true
}

// enqueue either takes a token immediately, returning a nil channel, or
// registers the caller as a waiter.
func (e *emulated) enqueue() chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.count > 0 {
		e.count--
		return nil
	}
	w := make(chan struct{})
	e.waiters = append(e.waiters, w)
	return w
}

func (e *emulated) wait() error {
	w := e.enqueue()
	if w != nil {
		<-w
	}
	return nil
}

func (e *emulated) waitUntil(deadline time.Time) (bool, error) {
	timeout := time.Until(deadline)
	if timeout <= 0 {
		return e.tryWait(), nil
	}
	w := e.enqueue()
	if w == nil {
		return true, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-w:
		return true, nil
	case <-timer.C:
	}
	return e.dequeue(w), nil
}

// dequeue withdraws a timed-out waiter. It reports true if a post handed the
// waiter a token between the timer firing and the lock being taken, in which
// case the token belongs to the caller.
func (e *emulated) dequeue(w chan struct{}) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := slices.Index(e.waiters, w)
	if i < 0 {
		return true
	}
	e.waiters = slices.Delete(e.waiters, i, i+1)
	return false
}

func (e *emulated) value() (uint, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.count, nil
}

func (e *emulated) close() error { return nil }
