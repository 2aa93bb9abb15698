package world

import (
	"runtime"
	"sync"
)

// workerPool fans independent sub-steps of one event, such as chunk
// generation or snapshot building over disjoint coordinate sets, out across
// a fixed set of worker goroutines. Results are merged back into the single
// owner sequentially by the caller: the pool provides data parallelism, not
// concurrent mutation.
type workerPool struct {
	tasks   chan func()
	closing chan struct{}
	running sync.WaitGroup
}

// newWorkerPool starts a pool of n workers. If n is zero or lower, the
// worker count is derived from the host's available CPUs.
func newWorkerPool(n int) *workerPool {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	p := &workerPool{
		tasks:   make(chan func(), n*4),
		closing: make(chan struct{}),
	}
	p.running.Add(n)
	for i := 0; i < n; i++ {
		go p.worker()
	}
	return p
}

// worker continuously runs tasks until the pool is closed, draining any
// remaining queued tasks on shutdown so no Batch ever blocks forever.
func (p *workerPool) worker() {
	defer p.running.Done()
	for {
		select {
		case task := <-p.tasks:
			task()
		case <-p.closing:
			for {
				select {
				case task := <-p.tasks:
					task()
				default:
					return
				}
			}
		}
	}
}

// Batch runs n tasks on the pool and blocks until all of them completed.
// The function passed is called with indices 0 through n-1 and must only
// touch state disjoint from every other index.
func (p *workerPool) Batch(n int, f func(i int)) {
	if n == 0 {
		return
	}
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		i := i
		task := func() {
			defer wg.Done()
			f(i)
		}
		select {
		case p.tasks <- task:
		default:
			// The queue is full; run inline rather than blocking the
			// simulation goroutine on its own pool.
			task()
		}
	}
	wg.Wait()
}

// Close stops the workers. Tasks still queued are drained before the
// workers exit.
func (p *workerPool) Close() {
	close(p.closing)
	p.running.Wait()
}
