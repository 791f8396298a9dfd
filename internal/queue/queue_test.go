package queue

import (
	"sync"
	"testing"
	"time"
)

func TestQueue_PushPopOrder(t *testing.T) {
	q := New[int]()

	for i := 0; i < 100; i++ {
		if !q.Push(i) {
			t.Fatalf("Push(%d) returned false", i)
		}
	}

	if n := q.Stats().Len; n != 100 {
		t.Errorf("Stats().Len = %d, want 100", n)
	}

	for i := 0; i < 100; i++ {
		val, ok := q.Pop()
		if !ok {
			t.Fatalf("Pop() returned false for item %d", i)
		}
		if val != i {
			t.Errorf("popped %d, want %d", val, i)
		}
	}

	q.Close()
	if _, ok := q.Pop(); ok {
		t.Error("Pop() on closed empty queue returned true")
	}
}

func TestQueue_BlockingPop(t *testing.T) {
	q := New[string]()

	got := make(chan string, 1)
	go func() {
		val, ok := q.Pop()
		if ok {
			got <- val
		}
	}()

	// Give the consumer time to start waiting
	time.Sleep(10 * time.Millisecond)
	q.Push("open")

	select {
	case val := <-got:
		if val != "open" {
			t.Errorf("popped %q, want %q", val, "open")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for Pop")
	}
}

func TestQueue_CloseDrainsThenStops(t *testing.T) {
	q := New[int]()
	q.Push(1)
	q.Push(2)
	q.Close()

	if q.Push(3) {
		t.Error("Push after Close returned true")
	}

	for _, want := range []int{1, 2} {
		val, ok := q.Pop()
		if !ok || val != want {
			t.Errorf("Pop() = (%d, %v), want (%d, true)", val, ok, want)
		}
	}

	if _, ok := q.Pop(); ok {
		t.Error("Pop() on closed empty queue returned true")
	}
}

func TestQueue_CloseWakesWaiters(t *testing.T) {
	q := New[int]()

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Pop()
		}()
	}

	time.Sleep(10 * time.Millisecond)
	q.Close()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiters not woken by Close")
	}
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	q := New[int]()

	const producers, perProducer = 8, 500
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(p*perProducer + i)
			}
		}(p)
	}
	wg.Wait()

	// Per-producer order must be preserved
	last := make([]int, producers)
	for i := range last {
		last[i] = -1
	}
	for i := 0; i < producers*perProducer; i++ {
		val, ok := q.Pop()
		if !ok {
			t.Fatalf("Pop() returned false after %d items", i)
		}
		p, seq := val/perProducer, val%perProducer
		if seq <= last[p] {
			t.Fatalf("producer %d out of order: %d after %d", p, seq, last[p])
		}
		last[p] = seq
	}

	stats := q.Stats()
	if stats.Pushed != producers*perProducer || stats.Popped != producers*perProducer {
		t.Errorf("Stats() = %+v, want %d pushed and popped", stats, producers*perProducer)
	}
	if stats.Peak != producers*perProducer {
		t.Errorf("Peak = %d, want %d", stats.Peak, producers*perProducer)
	}
}
