// Package semtest provides a conformance suite for counting semaphores. It
// checks the properties every backend of package semaphore must share, and
// can be pointed at any type with the same method set.
//
// # Example Usage
//
//	func TestConformance(t *testing.T) {
//		semtest.Test(t, func(initial uint) (*semaphore.Semaphore, error) {
//			return semaphore.New(initial)
//		})
//	}
//
// Each property runs as a sub-test against a fresh semaphore obtained from
// the factory, and the semaphore is closed when the sub-test ends.
package semtest

import (
	"math/rand/v2"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sync/errgroup"
)

// Semaphore is the method set under test.
type Semaphore interface {
	Post() error
	Wait() error
	TryWait() bool
	Value() uint
	Close() error
}

// TimedSemaphore is a Semaphore with deadline-bounded waits.
type TimedSemaphore interface {
	Semaphore
	TimedWait(deadline time.Time) (bool, error)
}

// Factory creates a semaphore holding initial tokens.
type Factory[S Semaphore] func(initial uint) (S, error)

// settle is how long the suite watches for goroutines that must stay blocked.
const settle = 50 * time.Millisecond

// Test runs the untimed properties against semaphores made by newSem.
func Test[S Semaphore](t *testing.T, newSem Factory[S]) {
	t.Helper()
	t.Run("RoundTrip", func(t *testing.T) { testRoundTrip(t, open(t, newSem, 3)) })
	t.Run("TryWaitEmpty", func(t *testing.T) { testTryWaitEmpty(t, open(t, newSem, 0)) })
	t.Run("PostThenTryWait", func(t *testing.T) { testPostThenTryWait(t, open(t, newSem, 0)) })
	t.Run("ValueIsReadOnly", func(t *testing.T) { testValueIsReadOnly(t, open(t, newSem, 5)) })
	t.Run("NetCount", func(t *testing.T) { testNetCount(t, open(t, newSem, 4), 4) })
	t.Run("ConcurrentNetCount", func(t *testing.T) { testConcurrentNetCount(t, open(t, newSem, 2), 2) })
	t.Run("OnePostOneWaiter", func(t *testing.T) { testOnePostOneWaiter(t, open(t, newSem, 0)) })
	t.Run("WaitersReleasedPerPost", func(t *testing.T) { testWaitersReleasedPerPost(t, open(t, newSem, 0)) })
}

// TestTimed runs Test and, in addition, the TimedWait properties.
func TestTimed[S TimedSemaphore](t *testing.T, newSem Factory[S]) {
	t.Helper()
	Test(t, newSem)
	t.Run("PastDeadline", func(t *testing.T) { testPastDeadline(t, open(t, newSem, 0)) })
	t.Run("PastDeadlineWithToken", func(t *testing.T) { testPastDeadlineWithToken(t, open(t, newSem, 1)) })
	t.Run("DeadlineElapses", func(t *testing.T) { testDeadlineElapses(t, open(t, newSem, 0)) })
	t.Run("PostBeforeDeadline", func(t *testing.T) { testPostBeforeDeadline(t, open(t, newSem, 0)) })
}

func open[S Semaphore](t *testing.T, newSem Factory[S], initial uint) S {
	t.Helper()
	s, err := newSem(initial)
	if err != nil {
		t.Fatalf("creating semaphore with count %d: %v", initial, err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing semaphore: %v", err)
		}
	})
	return s
}

func post(t *testing.T, s Semaphore) {
	t.Helper()
	if err := s.Post(); err != nil {
		t.Fatalf("Post: %v", err)
	}
}

func checkValue(t *testing.T, s Semaphore, want uint) {
	t.Helper()
	if got := s.Value(); got != want {
		t.Errorf("Value() = %d, want %d", got, want)
	}
}

func testRoundTrip(t *testing.T, s Semaphore) {
	got := []bool{s.TryWait(), s.TryWait(), s.TryWait(), s.TryWait()}
	want := []bool{true, true, true, false}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("TryWait results mismatch (-want +got):\n%s", diff)
	}
	post(t, s)
	if !s.TryWait() {
		t.Fatal("TryWait after Post returned false")
	}
	checkValue(t, s, 0)
}

func testTryWaitEmpty(t *testing.T, s Semaphore) {
	for range 3 {
		if s.TryWait() {
			t.Fatal("TryWait on an empty semaphore returned true")
		}
	}
	checkValue(t, s, 0)
}

func testPostThenTryWait(t *testing.T, s Semaphore) {
	post(t, s)
	checkValue(t, s, 1)
	if !s.TryWait() {
		t.Fatal("TryWait after Post returned false")
	}
	checkValue(t, s, 0)
}

func testValueIsReadOnly(t *testing.T, s Semaphore) {
	first, second := s.Value(), s.Value()
	if first != 5 || second != 5 {
		t.Fatalf("Value() returned %d then %d, want 5 twice", first, second)
	}
	for i := range first {
		if !s.TryWait() {
			t.Fatalf("TryWait #%d failed while draining %d tokens", i+1, first)
		}
	}
	if s.TryWait() {
		t.Fatal("semaphore held more tokens than Value reported")
	}
}

// testNetCount applies a random sequence of operations and compares the
// semaphore against a plain counter.
func testNetCount(t *testing.T, s Semaphore, initial uint) {
	rng := rand.New(rand.NewPCG(1, 2))
	model := initial
	for i := range 1000 {
		switch rng.IntN(3) {
		case 0:
			post(t, s)
			model++
		case 1:
			if model == 0 {
				continue
			}
			if err := s.Wait(); err != nil {
				t.Fatalf("op %d: Wait: %v", i, err)
			}
			model--
		case 2:
			if got, want := s.TryWait(), model > 0; got != want {
				t.Fatalf("op %d: TryWait() = %v with count %d", i, got, model)
			}
			if model > 0 {
				model--
			}
		}
	}
	checkValue(t, s, model)
}

// testConcurrentNetCount runs balanced posts and waits from many goroutines;
// the count must end where it started.
func testConcurrentNetCount(t *testing.T, s Semaphore, initial uint) {
	const workers, rounds = 8, 200
	var g errgroup.Group
	for w := range workers {
		g.Go(func() error {
			for r := range rounds {
				if err := s.Post(); err != nil {
					return err
				}
				if (w+r)%2 == 0 {
					if err := s.Wait(); err != nil {
						return err
					}
				} else {
					for !s.TryWait() {
						runtime.Gosched()
					}
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	checkValue(t, s, initial)
}

func testOnePostOneWaiter(t *testing.T, s Semaphore) {
	done := make(chan error, 1)
	go func() { done <- s.Wait() }()

	select {
	case err := <-done:
		t.Fatalf("Wait on an empty semaphore returned early: %v", err)
	case <-time.After(settle):
	}

	post(t, s)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Wait: %v", err)
		}
	case <-t.Context().Done():
		t.Fatal("test interrupted before the waiter was released")
	}
	checkValue(t, s, 0)
}

// testWaitersReleasedPerPost blocks N goroutines, posts M < N times and
// expects exactly M of them to return, then releases the rest. The posts are
// only issued once the waiters had time to block, so they go through the
// wake path rather than into the count.
func testWaitersReleasedPerPost(t *testing.T, s Semaphore) {
	const waiters, posts = 8, 3
	var returned atomic.Int32
	var g errgroup.Group
	for range waiters {
		g.Go(func() error {
			if err := s.Wait(); err != nil {
				return err
			}
			returned.Add(1)
			return nil
		})
	}

	time.Sleep(settle)
	if got := returned.Load(); got != 0 {
		t.Fatalf("%d waiters returned from an empty semaphore", got)
	}

	for range posts {
		post(t, s)
	}
	waitFor(t, func() bool { return returned.Load() == posts })
	time.Sleep(settle)
	if got := returned.Load(); got != posts {
		t.Fatalf("%d waiters returned after %d posts", got, posts)
	}

	for range waiters - posts {
		post(t, s)
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if got := returned.Load(); got != waiters {
		t.Fatalf("%d of %d waiters returned", got, waiters)
	}
	checkValue(t, s, 0)
}

// timedWait calls TimedWait and fails the test on an error, which a healthy
// semaphore never returns.
func timedWait(t *testing.T, s TimedSemaphore, deadline time.Time) bool {
	t.Helper()
	ok, err := s.TimedWait(deadline)
	if err != nil {
		t.Fatalf("TimedWait: %v", err)
	}
	return ok
}

func testPastDeadline(t *testing.T, s TimedSemaphore) {
	start := time.Now()
	if timedWait(t, s, start.Add(-time.Second)) {
		t.Fatal("TimedWait with a past deadline took a token from an empty semaphore")
	}
	if elapsed := time.Since(start); elapsed > settle {
		t.Fatalf("TimedWait with a past deadline blocked for %v", elapsed)
	}
}

func testPastDeadlineWithToken(t *testing.T, s TimedSemaphore) {
	if !timedWait(t, s, time.Now().Add(-time.Second)) {
		t.Fatal("TimedWait with a past deadline did not take an available token")
	}
	checkValue(t, s, 0)
}

func testDeadlineElapses(t *testing.T, s TimedSemaphore) {
	const timeout = 30 * time.Millisecond
	start := time.Now()
	if timedWait(t, s, start.Add(timeout)) {
		t.Fatal("TimedWait on an empty semaphore returned true")
	}
	if elapsed := time.Since(start); elapsed < timeout {
		t.Fatalf("TimedWait returned after %v, before the %v deadline", elapsed, timeout)
	}
	checkValue(t, s, 0)
}

func testPostBeforeDeadline(t *testing.T, s TimedSemaphore) {
	const delay = 20 * time.Millisecond
	posted := make(chan error, 1)
	go func() {
		time.Sleep(delay)
		posted <- s.Post()
	}()

	deadline := time.Now().Add(10 * time.Second)
	if !timedWait(t, s, deadline) {
		t.Fatal("TimedWait timed out although a token was posted before the deadline")
	}
	if time.Now().After(deadline) {
		t.Fatal("TimedWait returned true after its deadline")
	}
	if err := <-posted; err != nil {
		t.Fatalf("Post: %v", err)
	}
	checkValue(t, s, 0)
}

// waitFor polls cond until it holds or the test context ends.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	tick := time.NewTicker(time.Millisecond)
	defer tick.Stop()
	for !cond() {
		select {
		case <-tick.C:
		case <-t.Context().Done():
			t.Fatal("test interrupted while waiting for a condition")
		}
	}
}
