package semaphore

import (
	"time"

	"github.com/sirupsen/logrus"
)

// TimedSemaphore is a Semaphore that also supports waits bounded by a
// deadline. Every method of Semaphore is available on it.
type TimedSemaphore struct {
	Semaphore
}

// NewTimed is like New but returns a semaphore with TimedWait.
func NewTimed(initial uint, opts ...Option) (*TimedSemaphore, error) {
	s := new(TimedSemaphore)
	if err := s.init(initial, opts); err != nil {
		return nil, err
	}
	return s, nil
}

// HasTimedWait always reports true.
func (s *TimedSemaphore) HasTimedWait() bool {
	return true
}

// TimedWait blocks until a token is available or the absolute deadline
// passes, whichever comes first. It reports whether a token was taken; a
// timeout is (false, nil), not an error.
//
// The remaining time is computed from the deadline and the current time when
// the wait starts, and again after every wakeup. A deadline that has already
// passed makes TimedWait behave like TryWait.
//
// A non-nil error means the backend failed and the semaphore is unusable.
func (s *TimedSemaphore) TimedWait(deadline time.Time) (bool, error) {
	if s.closed.Load() {
		return false, ErrClosed
	}
	ok, err := s.h.waitUntil(deadline)
	if err != nil {
		s.log.WithFields(logrus.Fields{"op": "timed_wait", "error": err}).Error("timed wait failed")
		return false, fatal("timed_wait", err)
	}
	return ok, nil
}
