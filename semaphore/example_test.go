package semaphore_test

import (
	"fmt"
	"sync"
	"time"

	"github.com/notorious-go/sync/semaphore"
)

func Example() {
	sem, err := semaphore.New(3)
	if err != nil {
		panic(err)
	}
	defer sem.Close()
	fmt.Println("Created:", sem)

	// TryWait takes a token if there is one and never blocks.
	for i := range 4 {
		fmt.Printf("TryWait #%d: %v\n", i+1, sem.TryWait())
	}

	// Post gives a token back; any goroutine may post, not just one that
	// previously took a token.
	if err := sem.Post(); err != nil {
		panic(err)
	}
	fmt.Println("After Post:", sem)
	fmt.Println("TryWait:", sem.TryWait())

	// Output:
	// Created: Semaphore(emulated, 3)
	// TryWait #1: true
	// TryWait #2: true
	// TryWait #3: true
	// TryWait #4: false
	// After Post: Semaphore(emulated, 1)
	// TryWait: true
}

// This example demonstrates signalling between goroutines: each Post releases
// exactly one goroutine blocked in Wait.
func Example_signal() {
	sem, err := semaphore.New(0)
	if err != nil {
		panic(err)
	}
	defer sem.Close()

	results := make(chan int, 3)
	var wg sync.WaitGroup
	for i := range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sem.Wait(); err != nil {
				panic(err)
			}
			results <- i
		}()
	}

	for range 3 {
		if err := sem.Post(); err != nil {
			panic(err)
		}
	}
	wg.Wait()
	close(results)

	// The order in which waiters are released is unspecified, so only count them.
	released := 0
	for range results {
		released++
	}
	fmt.Println("released:", released)

	// Output:
	// released: 3
}

// This example demonstrates bounded waits with an absolute deadline.
func ExampleTimedSemaphore_TimedWait() {
	sem, err := semaphore.NewTimed(0)
	if err != nil {
		panic(err)
	}
	defer sem.Close()

	// Nothing is posted, so the wait gives up at the deadline.
	ok, err := sem.TimedWait(time.Now().Add(10 * time.Millisecond))
	if err != nil {
		panic(err)
	}
	fmt.Println("empty:", ok)

	// A post that arrives before the deadline ends the wait early.
	go func() {
		time.Sleep(10 * time.Millisecond)
		if err := sem.Post(); err != nil {
			panic(err)
		}
	}()
	ok, err = sem.TimedWait(time.Now().Add(time.Minute))
	if err != nil {
		panic(err)
	}
	fmt.Println("posted:", ok)

	// A deadline in the past makes TimedWait behave like TryWait.
	ok, err = sem.TimedWait(time.Now().Add(-time.Second))
	if err != nil {
		panic(err)
	}
	fmt.Println("past:", ok)

	// Output:
	// empty: false
	// posted: true
	// past: false
}
