// Package semaphore provides a process-local counting semaphore with post,
// wait, try-wait, timed-wait and count inspection, optionally backed by the
// kernel primitive of the platform.
//
// # Why This Package Exists
//
// Buffered channels make fine concurrency limiters, but they model a
// semaphore whose capacity is fixed up front and whose tokens are "borrowed"
// and returned. A classic counting semaphore is different: it starts from an
// arbitrary count, any goroutine may add a token with Post at any time, and
// there is no capacity to fill. Signalling between producers and consumers,
// where the number of posts is unrelated to the number of prior waits, is the
// natural use.
//
// # Operations
//
//   - Post adds one token and wakes at most one blocked waiter. It never blocks.
//   - Wait blocks until a token is available and takes it.
//   - TryWait takes a token if one is available and reports whether it did.
//   - TimedWait, on a TimedSemaphore only, waits until an absolute deadline.
//   - Value returns a best-effort snapshot of the count, for diagnostics.
//   - Close releases the backend primitive.
//
// Only Wait and TimedWait ever block. Each Post enables exactly one
// decrement; when several goroutines wait, which one is released is
// unspecified. There is no FIFO or priority ordering, and TryWait may take a
// token ahead of goroutines already blocked in Wait.
//
// # Timed Waits
//
// Whether an instance supports TimedWait is decided by its type: New returns
// a *Semaphore, which has no TimedWait method, and NewTimed returns a
// *TimedSemaphore, which has. Calling TimedWait on the former does not
// compile.
//
// TimedWait takes an absolute deadline rather than a duration. The remaining
// time is derived from the deadline when the wait begins and after every
// wakeup, so spurious wakeups never extend the wait. A deadline in the past
// turns TimedWait into TryWait.
//
// # Errors
//
// Running out of tokens is not an error: TryWait and TimedWait report it as
// false with a nil error. Errors are reserved for conditions that indicate a
// bug or a broken primitive, and IsFatal reports them:
//
//   - New fails if the backend cannot be created; no half-built semaphore is
//     ever returned. An initial count above the maximum yields ErrInvalidCount.
//   - Post fails with ErrOverflow if the count is already at its maximum.
//   - Post, Wait and TimedWait fail if the backend rejects the operation.
//
// # Lifecycle
//
// A Semaphore must not be copied; vet reports copies. Close releases the
// primitive exactly once. Closing a semaphore that still has blocked waiters
// is a caller error that the package does not detect.
//
// # Backends
//
// By default the count is guarded by a mutex and every blocked waiter is a
// parked goroutine holding its own channel, so the number of waiters is
// bounded only by memory.
//
// WithKernelObject switches to the kernel primitive instead: a futex word on
// Linux, an unnamed kernel semaphore object on Windows. There every blocked
// waiter holds an OS thread, so it suits only a handful of waiters. On
// Windows, Value needs to take and return a token to read the count, which
// leaves the count unchanged. Platforms without a kernel primitive keep the
// default backend. All backends behave the same through this API.
package semaphore
