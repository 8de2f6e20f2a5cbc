package semaphore

import (
	"math"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const futexMaxCount = math.MaxInt32

// Operation codes from linux/futex.h.
const (
	futexWaitPrivate = 0 | 128
	futexWakePrivate = 1 | 128
)

// futex is the Linux backend: the count is a 32-bit word that the kernel
// sleeps on directly. Waiters only enter the kernel while the word reads 0,
// and FUTEX_WAIT re-checks that atomically, so a post landing between the
// check and the sleep makes the syscall return EAGAIN instead of sleeping.
type futex struct {
	// count must only be accessed atomically.
	count uint32
	// sleepers counts goroutines that may be inside FUTEX_WAIT, so post can
	// skip the wake syscall when nobody is sleeping.
	sleepers atomic.Int32
	max      uint32
}

func newNative(initial uint, c config) (handle, error) {
	limit := c.maxCount(futexMaxCount)
	if initial > limit {
		return nil, ErrInvalidCount
	}
	return &futex{count: uint32(initial), max: uint32(limit)}, nil
}

func (f *futex) backend() string { return "futex" }

func (f *futex) post() error {
	for {
		c := atomic.LoadUint32(&f.count)
		if c >= f.max {
			return ErrOverflow
		}
		if atomic.CompareAndSwapUint32(&f.count, c, c+1) {
			break
		}
	}
	if f.sleepers.Load() == 0 {
		return nil
	}
	if errno := futexCall(&f.count, futexWakePrivate, 1, nil); errno != 0 {
		return errors.Wrap(errno, "futex wake")
	}
	return nil
}

func (f *futex) tryWait() bool {
	for {
		c := atomic.LoadUint32(&f.count)
		if c == 0 {
			return false
		}
		if atomic.CompareAndSwapUint32(&f.count, c, c-1) {
			return true
		}
	}
}

func (f *futex) wait() error {
	if f.tryWait() {
		return nil
	}
	f.sleepers.Add(1)
	defer f.sleepers.Add(-1)
	for !f.tryWait() {
		switch errno := futexCall(&f.count, futexWaitPrivate, 0, nil); errno {
		case 0, unix.EAGAIN, unix.EINTR:
		default:
			return errors.Wrap(errno, "futex wait")
		}
	}
	return nil
}

func (f *futex) waitUntil(deadline time.Time) (bool, error) {
	if f.tryWait() {
		return true, nil
	}
	f.sleepers.Add(1)
	defer f.sleepers.Add(-1)
	for !f.tryWait() {
		// The kernel takes a relative timeout, so it is derived from the
		// deadline again after every wakeup.
		timeout := time.Until(deadline)
		if timeout <= 0 {
			return f.tryWait(), nil
		}
		ts := unix.NsecToTimespec(int64(timeout))
		switch errno := futexCall(&f.count, futexWaitPrivate, 0, &ts); errno {
		case 0, unix.EAGAIN, unix.EINTR, unix.ETIMEDOUT:
		default:
			return false, errors.Wrap(errno, "futex wait")
		}
	}
	return true, nil
}

func (f *futex) value() (uint, error) {
	return uint(atomic.LoadUint32(&f.count)), nil
}

// close is a no-op: the futex word is ordinary memory and the kernel keeps no
// state for it once no thread is sleeping on it.
func (f *futex) close() error { return nil }

func futexCall(addr *uint32, op int, val uint32, ts *unix.Timespec) syscall.Errno {
	_, _, errno := unix.Syscall6(unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(op),
		uintptr(val),
		uintptr(unsafe.Pointer(ts)),
		0, 0)
	return errno
}
