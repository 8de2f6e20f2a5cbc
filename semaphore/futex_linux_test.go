package semaphore

import (
	"testing"
	"time"
)

func TestFutexSleepersBalanced(t *testing.T) {
	h, err := newNative(0, config{})
	if err != nil {
		t.Fatal(err)
	}
	f := h.(*futex)

	done := make(chan error, 1)
	go func() { done <- f.wait() }()

	deadline := time.Now().Add(5 * time.Second)
	for f.sleepers.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("waiter never registered as a sleeper")
		}
		time.Sleep(time.Millisecond)
	}
	if err := f.post(); err != nil {
		t.Fatal(err)
	}
	if err := <-done; err != nil {
		t.Fatalf("wait: %v", err)
	}
	if n := f.sleepers.Load(); n != 0 {
		t.Fatalf("sleepers = %d after the waiter returned, want 0", n)
	}

	if ok, err := f.waitUntil(time.Now().Add(5 * time.Millisecond)); ok || err != nil {
		t.Fatalf("waitUntil = %v, %v; want false, nil", ok, err)
	}
	if n := f.sleepers.Load(); n != 0 {
		t.Fatalf("sleepers = %d after a timed-out wait, want 0", n)
	}
}

func TestFutexPostWithoutSleepers(t *testing.T) {
	h, err := newNative(0, config{max: 3})
	if err != nil {
		t.Fatal(err)
	}
	for range 3 {
		if err := h.post(); err != nil {
			t.Fatal(err)
		}
	}
	if err := h.post(); err != ErrOverflow {
		t.Fatalf("post past the maximum: got %v, want ErrOverflow", err)
	}
	if v, _ := h.value(); v != 3 {
		t.Fatalf("value = %d, want 3", v)
	}
}
