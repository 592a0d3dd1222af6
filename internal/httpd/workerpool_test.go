package httpd

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerPoolRunsTasks(t *testing.T) {
	p := NewWorkerPool(4, 16)

	var ran atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		ok := p.Submit(func() {
			ran.Add(1)
			wg.Done()
		})
		if !ok {
			wg.Done()
		}
	}
	wg.Wait()
	p.Stop()

	if ran.Load() == 0 {
		t.Fatal("no tasks ran")
	}
}

func TestWorkerPoolSubmitFullQueue(t *testing.T) {
	p := NewWorkerPool(1, 1)
	defer p.Stop()

	block := make(chan struct{})
	started := make(chan struct{})
	if !p.Submit(func() {
		close(started)
		<-block
	}) {
		t.Fatal("first submit rejected")
	}
	<-started

	// Fill the single queue slot, then the next submit must fail fast.
	if !p.Submit(func() {}) {
		t.Fatal("queued submit rejected")
	}
	if p.Submit(func() {}) {
		t.Error("submit succeeded with a full queue")
	}
	close(block)
}

func TestWorkerPoolStopDrains(t *testing.T) {
	p := NewWorkerPool(2, 8)

	var ran atomic.Int32
	submitted := 0
	for i := 0; i < 8; i++ {
		if p.Submit(func() {
			time.Sleep(5 * time.Millisecond)
			ran.Add(1)
		}) {
			submitted++
		}
	}

	p.Stop()

	if got := int(ran.Load()); got != submitted {
		t.Fatalf("ran %d tasks after Stop, want %d", got, submitted)
	}
	if p.Submit(func() {}) {
		t.Error("submit succeeded after Stop")
	}
}

func TestWorkerPoolStopIdempotent(t *testing.T) {
	p := NewWorkerPool(1, 1)
	p.Stop()
	p.Stop()
}
