// File: core/concurrency/ring_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package concurrency

import (
	"sync"
	"testing"
)

func TestRingBufferEnqueueDequeue(t *testing.T) {
	r := NewRingBuffer[int](4)
	if r.Cap() != 4 {
		t.Fatalf("expected capacity 4, got %d", r.Cap())
	}

	for i := 0; i < 4; i++ {
		if !r.Enqueue(i) {
			t.Fatalf("enqueue %d should succeed", i)
		}
	}
	if r.Enqueue(99) {
		t.Fatal("enqueue into full ring should fail")
	}

	for i := 0; i < 4; i++ {
		v, ok := r.Dequeue()
		if !ok || v != i {
			t.Fatalf("dequeue expected %d, got %d ok=%v", i, v, ok)
		}
	}
	if _, ok := r.Dequeue(); ok {
		t.Fatal("dequeue from empty ring should fail")
	}
}

func TestRingBufferRoundsToPowerOfTwo(t *testing.T) {
	r := NewRingBuffer[int](5)
	if r.Cap() != 8 {
		t.Fatalf("expected capacity 8, got %d", r.Cap())
	}
}

func TestRingBufferConcurrentProducersConsumers(t *testing.T) {
	r := NewRingBuffer[int](1024)
	const producers = 4
	const perProducer = 10_000

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				for !r.Enqueue(i) {
				}
			}
		}()
	}

	var consumed sync.WaitGroup
	total := 0
	consumed.Add(1)
	go func() {
		defer consumed.Done()
		for total < producers*perProducer {
			if _, ok := r.Dequeue(); ok {
				total++
			}
		}
	}()

	wg.Wait()
	consumed.Wait()
	if total != producers*perProducer {
		t.Fatalf("expected %d items, got %d", producers*perProducer, total)
	}
	if r.Len() != 0 {
		t.Fatalf("ring should be drained, %d left", r.Len())
	}
}
