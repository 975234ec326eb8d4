package sim

import (
	"container/heap"
	"sync"
)

// An EventQueue is a queue of events ordered by (time, priority, insertion
// sequence), all ascending. The sequence number is assigned by the queue at
// insertion time, so that same-time, same-priority events pop in FIFO order.
type EventQueue interface {
	Push(evt Event) *EventHandle
	Pop() Event
	Peek() Event
	Len() int
	Cancel(h *EventHandle) bool
}

// An EventHandle refers to a pending event in an EventQueue and can be used
// to cancel it before it fires.
type EventHandle struct {
	evt       Event
	seq       uint64
	cancelled bool
	fired     bool
}

// EventQueueImpl provides a thread safe event queue with cancellation.
type EventQueueImpl struct {
	sync.Mutex

	events  eventHeap
	nextSeq uint64
	live    int
}

// NewEventQueue creates and returns a newly created EventQueue.
func NewEventQueue() *EventQueueImpl {
	q := new(EventQueueImpl)
	q.events = make(eventHeap, 0)
	heap.Init(&q.events)
	return q
}

// Push adds an event to the event queue and returns a handle that can cancel
// it.
func (q *EventQueueImpl) Push(evt Event) *EventHandle {
	q.Lock()
	defer q.Unlock()

	h := &EventHandle{evt: evt, seq: q.nextSeq}
	q.nextSeq++
	q.live++

	heap.Push(&q.events, h)

	return h
}

// Pop returns the next earliest event, or nil if the queue is empty.
// Cancelled entries are skipped lazily.
func (q *EventQueueImpl) Pop() Event {
	q.Lock()
	defer q.Unlock()

	for q.events.Len() > 0 {
		h := heap.Pop(&q.events).(*EventHandle)
		if h.cancelled {
			continue
		}

		h.fired = true
		q.live--

		return h.evt
	}

	return nil
}

// Peek returns the event at the front of the queue without removing it, or
// nil if the queue is empty.
func (q *EventQueueImpl) Peek() Event {
	q.Lock()
	defer q.Unlock()

	for q.events.Len() > 0 {
		h := q.events[0]
		if !h.cancelled {
			return h.evt
		}

		heap.Pop(&q.events)
	}

	return nil
}

// Len returns the number of pending (not cancelled) events in the queue.
func (q *EventQueueImpl) Len() int {
	q.Lock()
	defer q.Unlock()

	return q.live
}

// Cancel removes the event referred to by the handle. It returns true if the
// event was still pending and is now removed, false if it already fired or
// was already cancelled. The heap entry is tombstoned and skipped on a later
// Pop or Peek.
func (q *EventQueueImpl) Cancel(h *EventHandle) bool {
	if h == nil {
		return false
	}

	q.Lock()
	defer q.Unlock()

	if h.fired || h.cancelled {
		return false
	}

	h.cancelled = true
	q.live--

	return true
}

type eventHeap []*EventHandle

func (h eventHeap) Len() int {
	return len(h)
}

// Less determines the order between two events. It returns true if the i-th
// event fires before the j-th event.
func (h eventHeap) Less(i, j int) bool {
	if h[i].evt.Time() != h[j].evt.Time() {
		return h[i].evt.Time() < h[j].evt.Time()
	}

	if h[i].evt.Priority() != h[j].evt.Priority() {
		return h[i].evt.Priority() < h[j].evt.Priority()
	}

	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

func (h *eventHeap) Push(x interface{}) {
	*h = append(*h, x.(*EventHandle))
}

func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	entry := old[n-1]
	*h = old[0 : n-1]
	return entry
}
