package semaphore

import (
	"os"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/notorious-go/sync/internal/debug"
)

// brokenHandle fails every blocking operation with err.
type brokenHandle struct {
	err error
}

func (h brokenHandle) post() error { return h.err }
func (h brokenHandle) wait() error { return h.err }
func (h brokenHandle) tryWait() bool { return false }
func (h brokenHandle) waitUntil(time.Time) (bool, error) { return false, h.err }
func (h brokenHandle) value() (uint, error) { return 0, h.err }
func (h brokenHandle) close() error { return nil }
func (h brokenHandle) backend() string { return "broken" }

func TestTimedWaitReportsBackendFailure(t *testing.T) {
	s := &TimedSemaphore{Semaphore{
		h:   brokenHandle{err: os.ErrInvalid},
		log: debug.WithComponent("semaphore"),
	}}

	ok, err := s.TimedWait(time.Now().Add(time.Second))
	if ok {
		t.Fatal("TimedWait took a token from a broken backend")
	}
	if !IsFatal(err) {
		t.Fatalf("TimedWait error %v is not fatal", err)
	}
	if !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("TimedWait error %v does not wrap the backend error", err)
	}
}

func TestValueReportsZeroOnBackendFailure(t *testing.T) {
	s := &Semaphore{
		h:   brokenHandle{err: os.ErrInvalid},
		log: debug.WithComponent("semaphore"),
	}
	if got := s.Value(); got != 0 {
		t.Fatalf("Value() = %d on a broken backend, want 0", got)
	}
}
