package engine

import (
	"container/heap"
	"sync"

	"shelfstalk/internal/types"
)

// Frontier is a thread-safe priority queue of pending page requests.
// Detail pages drain ahead of list pages so budget slots reserved for
// them are settled before new listings are paged in.
type Frontier struct {
	mu     sync.Mutex
	pq     priorityQueue
	closed bool
}

// NewFrontier creates a new Frontier.
func NewFrontier() *Frontier {
	f := &Frontier{
		pq: make(priorityQueue, 0, 256),
	}
	heap.Init(&f.pq)
	return f
}

// Push adds a request to the frontier. Pushes after Close are dropped.
func (f *Frontier) Push(req *types.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	heap.Push(&f.pq, &pqItem{request: req, priority: req.Priority})
}

// TryPop attempts a non-blocking dequeue. Returns nil if empty.
func (f *Frontier) TryPop() *types.Request {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pq.Len() == 0 {
		return nil
	}
	item := heap.Pop(&f.pq).(*pqItem)
	return item.request
}

// Len returns the number of requests in the frontier.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pq.Len()
}

// Close closes the frontier. Subsequent pushes are ignored.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

// IsClosed returns true if the frontier has been closed.
func (f *Frontier) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// --- Priority Queue Implementation ---

type pqItem struct {
	request  *types.Request
	priority int
	index    int
}

type priorityQueue []*pqItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	// Lower priority value = higher priority
	return pq[i].priority < pq[j].priority
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	n := len(*pq)
	item := x.(*pqItem)
	item.index = n
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // GC
	item.index = -1
	*pq = old[:n-1]
	return item
}
