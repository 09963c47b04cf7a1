package midi

import (
	"sort"
	"sync"
)

// EventQueue collects events from a control thread and hands them out sorted
// by sample offset.
type EventQueue struct {
	events []Event
	mu     sync.Mutex
	sorted bool
}

func NewEventQueue() *EventQueue {
	return &EventQueue{
		events: make([]Event, 0, 128),
		sorted: true,
	}
}

func (q *EventQueue) Add(event Event) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.events = append(q.events, event)
	q.sorted = false
}

func (q *EventQueue) AddMultiple(events []Event) {
	if len(events) == 0 {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.events = append(q.events, events...)
	q.sorted = false
}

// EventsInRange appends the events with startSample <= offset < endSample to
// dst and returns it. Offsets are rebased so startSample becomes 0.
func (q *EventQueue) EventsInRange(startSample, endSample int32, dst []Event) []Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.sorted {
		q.sortEvents()
	}

	// Binary search for start position
	startIdx := sort.Search(len(q.events), func(i int) bool {
		return q.events[i].SampleOffset() >= startSample
	})

	for i := startIdx; i < len(q.events) && q.events[i].SampleOffset() < endSample; i++ {
		e := q.events[i]
		dst = append(dst, e.WithOffset(e.SampleOffset()-startSample))
	}
	return dst
}

// RemoveProcessedEvents drops every event with an offset below upToSample
func (q *EventQueue) RemoveProcessedEvents(upToSample int32) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.sorted {
		q.sortEvents()
	}

	// Find the first event that should be kept
	keepIdx := sort.Search(len(q.events), func(i int) bool {
		return q.events[i].SampleOffset() >= upToSample
	})

	if keepIdx > 0 {
		n := copy(q.events, q.events[keepIdx:])
		for i := n; i < len(q.events); i++ {
			q.events[i] = nil
		}
		q.events = q.events[:n]
	}
}

func (q *EventQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i := range q.events {
		q.events[i] = nil
	}
	q.events = q.events[:0]
	q.sorted = true
}

func (q *EventQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

func (q *EventQueue) IsEmpty() bool {
	return q.Size() == 0
}

// LastOffset returns the largest offset in the queue, or 0 when empty
func (q *EventQueue) LastOffset() int32 {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.sorted {
		q.sortEvents()
	}
	if len(q.events) == 0 {
		return 0
	}
	return q.events[len(q.events)-1].SampleOffset()
}

func (q *EventQueue) sortEvents() {
	sort.SliceStable(q.events, func(i, j int) bool {
		return q.events[i].SampleOffset() < q.events[j].SampleOffset()
	})
	q.sorted = true
}

// Handler receives events, usually on the audio thread
type Handler interface {
	HandleEvent(event Event)
}
