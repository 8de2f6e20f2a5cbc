package semaphore

import (
	"testing"
	"time"
)

func TestEmulatedHandoff(t *testing.T) {
	e, err := newEmulated(0, emulatedMaxCount)
	if err != nil {
		t.Fatal(err)
	}

	w := e.enqueue()
	if w == nil {
		t.Fatal("enqueue took a token from an empty semaphore")
	}
	if err := e.post(); err != nil {
		t.Fatal(err)
	}
	// The token went to the waiter, not to the count.
	if v, _ := e.value(); v != 0 {
		t.Fatalf("count = %d after handing a token to a waiter, want 0", v)
	}
	select {
	case <-w:
	default:
		t.Fatal("post did not wake the waiter")
	}

	// A waiter that times out just as it is handed a token keeps the token.
	if !e.dequeue(w) {
		t.Fatal("dequeue discarded a handed-off token")
	}
}

func TestEmulatedDequeue(t *testing.T) {
	e, err := newEmulated(0, emulatedMaxCount)
	if err != nil {
		t.Fatal(err)
	}
	first, second := e.enqueue(), e.enqueue()
	if e.dequeue(first) {
		t.Fatal("dequeue of a waiting waiter reported a token")
	}
	if len(e.waiters) != 1 || e.waiters[0] != second {
		t.Fatalf("waiters = %v after dequeue, want only the second waiter", e.waiters)
	}
	if err := e.post(); err != nil {
		t.Fatal(err)
	}
	select {
	case <-second:
	default:
		t.Fatal("post did not wake the remaining waiter")
	}
}

func TestEmulatedTimeoutLeavesNoWaiter(t *testing.T) {
	e, err := newEmulated(0, emulatedMaxCount)
	if err != nil {
		t.Fatal(err)
	}
	ok, err := e.waitUntil(time.Now().Add(5 * time.Millisecond))
	if ok || err != nil {
		t.Fatalf("waitUntil = %v, %v; want false, nil", ok, err)
	}
	if len(e.waiters) != 0 {
		t.Fatalf("%d waiters left behind after a timeout", len(e.waiters))
	}
	// The next post must land in the count instead of a stale waiter.
	if err := e.post(); err != nil {
		t.Fatal(err)
	}
	if !e.tryWait() {
		t.Fatal("post after a timed-out wait was lost")
	}
}
