package semaphore

import (
	"math"
	"syscall"
	"time"
	"unsafe"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

// LONG is the counting type of Win32 semaphores.
const win32MaxCount = math.MaxInt32

// Return values of WaitForSingleObject.
const (
	waitObject0 = 0x00000000
	waitTimeout = 0x00000102
	infinite    = 0xFFFFFFFF
)

// ERROR_TOO_MANY_POSTS, returned when a release would exceed the maximum.
const errTooManyPosts = syscall.Errno(298)

var (
	modkernel32          = windows.NewLazySystemDLL("kernel32.dll")
	procCreateSemaphoreW = modkernel32.NewProc("CreateSemaphoreW")
	procReleaseSemaphore = modkernel32.NewProc("ReleaseSemaphore")
)

// win32 is the Windows backend wrapping an unnamed kernel semaphore object.
type win32 struct {
	h windows.Handle
}

func newNative(initial uint, c config) (handle, error) {
	limit := c.maxCount(win32MaxCount)
	if initial > limit {
		return nil, ErrInvalidCount
	}
	r, _, err := procCreateSemaphoreW.Call(0, uintptr(initial), uintptr(limit), 0)
	if r == 0 {
		return nil, errors.Wrap(err, "CreateSemaphoreW")
	}
	return &win32{h: windows.Handle(r)}, nil
}

func (w *win32) backend() string { return "win32" }

// release adds one to the count and returns the count before the release.
func (w *win32) release() (int32, error) {
	var prev int32
	r, _, err := procReleaseSemaphore.Call(uintptr(w.h), 1, uintptr(unsafe.Pointer(&prev)))
	if r == 0 {
		if errors.Is(err, errTooManyPosts) {
			return 0, ErrOverflow
		}
		return 0, errors.Wrap(err, "ReleaseSemaphore")
	}
	return prev, nil
}

func (w *win32) post() error {
	_, err := w.release()
	return err
}

func (w *win32) waitFor(ms uint32) (bool, error) {
	ev, err := windows.WaitForSingleObject(w.h, ms)
	switch ev {
	case waitObject0:
		return true, nil
	case waitTimeout:
		return false, nil
	}
	if err == nil {
		err = errors.Errorf("unexpected wait status %#x", ev)
	}
	return false, errors.Wrap(err, "WaitForSingleObject")
}

func (w *win32) wait() error {
	_, err := w.waitFor(infinite)
	return err
}

func (w *win32) tryWait() bool {
	ok, _ := w.waitFor(0)
	return ok
}

func (w *win32) waitUntil(deadline time.Time) (bool, error) {
	for {
		timeout := time.Until(deadline)
		if timeout <= 0 {
			return w.tryWait(), nil
		}
		// Round up so the wait never ends before the deadline.
		ms := (timeout + time.Millisecond - 1) / time.Millisecond
		if ms >= infinite {
			ms = infinite - 1
		}
		ok, err := w.waitFor(uint32(ms))
		if ok || err != nil {
			return ok, err
		}
	}
}

// value reads the count with an acquire/release pair: ReleaseSemaphore only
// reports the previous count of a release it performs, so a token is taken
// first and given back, leaving the count as it was.
func (w *win32) value() (uint, error) {
	if !w.tryWait() {
		return 0, nil
	}
	prev, err := w.restore()
	if err != nil {
		return 0, err
	}
	return uint(prev) + 1, nil
}

// restoreBackOff bounds how long restore keeps retrying a full semaphore.
func restoreBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Millisecond
	b.MaxInterval = 50 * time.Millisecond
	b.MaxElapsedTime = time.Second
	return b
}

// restore gives back the token taken by value. Posts that fill the semaphore
// in the meantime make the release overflow; it is retried until a waiter
// makes room again. Any other failure, or a semaphore that stays full, loses
// the token.
func (w *win32) restore() (int32, error) {
	var prev int32
	err := backoff.Retry(func() error {
		var err error
		prev, err = w.release()
		if err != nil && !errors.Is(err, ErrOverflow) {
			return backoff.Permanent(err)
		}
		return err
	}, restoreBackOff())
	if err != nil {
		return 0, errors.Wrap(err, "token taken to read the count was lost")
	}
	return prev, nil
}

func (w *win32) close() error {
	return errors.Wrap(windows.CloseHandle(w.h), "CloseHandle")
}
