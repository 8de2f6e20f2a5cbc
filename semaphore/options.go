package semaphore

import (
	"github.com/sirupsen/logrus"

	"github.com/notorious-go/sync/internal/debug"
)

type config struct {
	max    uint
	kernel bool
	log    *logrus.Entry
}

func newConfig(opts []Option) config {
	c := config{
		log: debug.WithComponent("semaphore"),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// An Option configures a semaphore at construction time.
type Option func(*config)

// WithMaxCount lowers the maximum count of the semaphore to n. Values above
// the ceiling of the selected backend are clamped to that ceiling, and zero
// means "use the backend ceiling".
func WithMaxCount(n uint) Option {
	return func(c *config) {
		c.max = n
	}
}

// WithKernelObject selects the kernel primitive of the platform (a futex on
// Linux, a semaphore object on Windows) instead of the default backend.
//
// Each goroutine blocked in Wait or TimedWait on a kernel object occupies an
// OS thread for the duration of the wait, and the runtime aborts the process
// once more threads than debug.SetMaxThreads allows are in use. Only use it
// when the number of concurrent waiters is known to be small. Platforms
// without a kernel backend ignore this option.
func WithKernelObject() Option {
	return func(c *config) {
		c.kernel = true
	}
}

// WithLogger routes the diagnostics of the semaphore to the given entry.
func WithLogger(l *logrus.Entry) Option {
	return func(c *config) {
		if l != nil {
			c.log = l
		}
	}
}

// maxCount resolves the configured maximum against a backend ceiling.
func (c config) maxCount(ceiling uint) uint {
	if c.max == 0 || c.max > ceiling {
		return ceiling
	}
	return c.max
}
