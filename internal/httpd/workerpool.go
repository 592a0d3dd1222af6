package httpd

import "sync"

// WorkerPool executes tasks on a fixed set of goroutines draining a
// shared queue. Each connection is processed start to finish by one
// worker.
type WorkerPool struct {
	tasks chan func()
	wg    sync.WaitGroup

	mu      sync.Mutex
	stopped bool
}

// NewWorkerPool starts workers goroutines behind a queue of queueDepth
// pending tasks.
func NewWorkerPool(workers, queueDepth int) *WorkerPool {
	p := &WorkerPool{tasks: make(chan func(), queueDepth)}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.work()
	}
	return p
}

func (p *WorkerPool) work() {
	defer p.wg.Done()
	for task := range p.tasks {
		task()
	}
}

// Submit enqueues a task. Returns false, without blocking, when the pool
// is stopped or the queue is full.
func (p *WorkerPool) Submit(task func()) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return false
	}
	select {
	case p.tasks <- task:
		return true
	default:
		return false
	}
}

// Stop rejects further submissions, lets queued and in-flight tasks
// drain, and joins every worker.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
}
