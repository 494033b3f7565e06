package alert

import (
	"container/heap"
	"sync"
	"time"

	"github.com/confabhq/confab/pkg/meeting"
)

// queued is one pending alert with its enqueue time for FIFO ordering
// within a priority class.
type queued struct {
	alert *meeting.Alert
	at    time.Time
	seq   int
}

// alertHeap orders by priority descending, then enqueue order.
type alertHeap []*queued

func (h alertHeap) Len() int { return len(h) }

func (h alertHeap) Less(i, j int) bool {
	if h[i].alert.Priority != h[j].alert.Priority {
		return h[i].alert.Priority > h[j].alert.Priority
	}
	return h[i].seq < h[j].seq
}

func (h alertHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *alertHeap) Push(x any) { *h = append(*h, x.(*queued)) }

func (h *alertHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Queue is a thread-safe priority queue of alerts drained at a fixed
// rate by the engine.
type Queue struct {
	mu   sync.Mutex
	heap alertHeap
	seq  int
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push enqueues an alert.
func (q *Queue) Push(a *meeting.Alert) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq++
	heap.Push(&q.heap, &queued{alert: a, at: time.Now(), seq: q.seq})
}

// Pop removes and returns the highest-priority alert, or nil when
// empty.
func (q *Queue) Pop() *meeting.Alert {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.heap) == 0 {
		return nil
	}
	return heap.Pop(&q.heap).(*queued).alert
}

// Len returns the number of pending alerts.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}
