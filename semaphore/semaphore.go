package semaphore

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Semaphore is a counting semaphore owning one backend primitive: parked
// goroutines by default, or a kernel object when WithKernelObject is given.
//
// The count never drops below zero and never exceeds the maximum of the
// backend. It changes only through Post, which adds one, and through the
// successful waits, which each take one.
//
// A Semaphore must not be copied; create it with New and share the pointer.
// All methods are safe for concurrent use, but Close must not be called while
// other goroutines are blocked in Wait.
//
// A Semaphore has no TimedWait method. Use NewTimed to create a
// TimedSemaphore when bounded waits are needed.
type Semaphore struct {
	_ noCopy

	h   handle
	log *logrus.Entry

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// New creates a semaphore holding initial tokens.
//
// It fails if initial exceeds the maximum count or if the backend primitive
// cannot be created; a failed New never returns a usable semaphore.
func New(initial uint, opts ...Option) (*Semaphore, error) {
	s := new(Semaphore)
	if err := s.init(initial, opts); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Semaphore) init(initial uint, opts []Option) error {
	c := newConfig(opts)
	h, err := newHandle(initial, c)
	if err != nil {
		c.log.WithFields(logrus.Fields{
			"initial": initial,
			"error":   err,
		}).Error("creating semaphore failed")
		if errors.Is(err, ErrInvalidCount) {
			return err
		}
		return fatal("create", err)
	}
	s.h = h
	s.log = c.log.WithField("backend", h.backend())
	s.log.WithField("initial", initial).Debug("semaphore created")
	return nil
}

// String returns a human-readable representation of the semaphore's state.
func (s *Semaphore) String() string {
	if s.closed.Load() {
		return "Semaphore(closed)"
	}
	return fmt.Sprintf("Semaphore(%v, %v)", s.h.backend(), s.Value())
}

// HasTimedWait reports whether the semaphore supports TimedWait. It is false
// for every *Semaphore and true for every *TimedSemaphore.
func (s *Semaphore) HasTimedWait() bool {
	return false
}

// Post adds one token, waking one goroutine blocked in Wait or TimedWait if
// there is any. Which waiter is woken is unspecified. Post never blocks.
//
// Posting when the count is already at the maximum returns an error wrapping
// ErrOverflow and leaves the count unchanged; it means tokens are released
// faster than any waiter could ever take them. Such errors, and backend
// failures, are fatal in the sense of IsFatal.
func (s *Semaphore) Post() error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := s.h.post(); err != nil {
		s.log.WithFields(logrus.Fields{"op": "post", "error": err}).Error("post failed")
		return fatal("post", err)
	}
	return nil
}

// Wait blocks until a token is available and takes it. There is no timeout
// and no way to cancel a Wait; every Post releases at most one waiter.
//
// A non-nil error means the backend failed and the semaphore is unusable.
func (s *Semaphore) Wait() error {
	if s.closed.Load() {
		return ErrClosed
	}
	if err := s.h.wait(); err != nil {
		s.log.WithFields(logrus.Fields{"op": "wait", "error": err}).Error("wait failed")
		return fatal("wait", err)
	}
	return nil
}

// TryWait takes a token if one is available without blocking. It reports
// whether a token was taken; on false the count is unchanged.
//
// Note: TryWait may take a token while other goroutines are blocked in Wait,
// because on kernel backends a released token is not reserved for the woken
// waiter.
func (s *Semaphore) TryWait() bool {
	if s.closed.Load() {
		return false
	}
	return s.h.tryWait()
}

// Value returns the current count. The result is a snapshot that may be
// stale by the time it is returned, so it is only suitable for diagnostics,
// never for deciding whether a Wait would block. On backends that cannot read
// the count directly, Value takes and returns a token, leaving the count as
// it found it. If the count cannot be read, Value returns 0.
func (s *Semaphore) Value() uint {
	if s.closed.Load() {
		return 0
	}
	v, err := s.h.value()
	if err != nil {
		s.log.WithFields(logrus.Fields{"op": "value", "error": err}).Error("reading count failed")
		return 0
	}
	return v
}

// Close releases the backend primitive. Only the first call has an effect;
// later calls return nil. After Close, Post, Wait and TimedWait return
// ErrClosed, TryWait returns false and Value returns 0.
//
// The caller must make sure no goroutine is blocked in Wait or TimedWait when
// Close is called. Closing under a waiter leaves that waiter blocked forever
// or, with kernel backends, undefined.
func (s *Semaphore) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		if err := s.h.close(); err != nil {
			s.closeErr = fatal("close", err)
			s.log.WithFields(logrus.Fields{"op": "close", "error": err}).Error("close failed")
			return
		}
		s.log.Debug("semaphore closed")
	})
	return s.closeErr
}
