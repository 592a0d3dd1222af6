package httpd

import "golang.org/x/sync/semaphore"

// Gate bounds the number of in-flight connections. The check happens
// before a connection is handed to the worker pool, so a rejected
// connection never consumes a worker.
type Gate struct {
	sem *semaphore.Weighted
}

// NewGate creates a gate admitting at most limit concurrent connections.
func NewGate(limit int) *Gate {
	return &Gate{sem: semaphore.NewWeighted(int64(limit))}
}

// TryAcquire claims one in-flight slot without blocking.
func (g *Gate) TryAcquire() bool {
	return g.sem.TryAcquire(1)
}

// Release returns an in-flight slot.
func (g *Gate) Release() {
	g.sem.Release(1)
}
