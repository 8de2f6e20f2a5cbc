package semaphore

import "time"

// A handle is the backend owning the count. Every method must be safe for
// concurrent use; close is called at most once.
type handle interface {
	// post increments the count by one and wakes at most one waiter. It
	// returns ErrOverflow if the count is already at the maximum.
	post() error
	// wait blocks until it can decrement the count.
	wait() error
	// tryWait decrements the count if it is positive.
	tryWait() bool
	// waitUntil is wait bounded by an absolute deadline. A timeout is
	// reported as (false, nil).
	waitUntil(deadline time.Time) (bool, error)
	// value reads the count without changing it.
	value() (uint, error)
	close() error
	// backend names the implementation for diagnostics.
	backend() string
}

func newHandle(initial uint, c config) (handle, error) {
	if c.kernel {
		return newNative(initial, c)
	}
	e, err := newEmulated(initial, c.maxCount(emulatedMaxCount))
	if err != nil {
		return nil, err
	}
	return e, nil
}
