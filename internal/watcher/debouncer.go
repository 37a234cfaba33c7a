package watcher

import (
	"sync"
	"time"
)

// BatchDebouncer collects events until a quiet period has passed, then
// emits them as one batch. Repeated events for a path collapse into one.
type BatchDebouncer struct {
	delay  time.Duration
	timer  *time.Timer
	mu     sync.Mutex
	order  []string
	byPath map[string]Event
	emit   func([]Event)
}

// NewBatchDebouncer creates a new batch debouncer. A zero delay emits
// every event immediately.
func NewBatchDebouncer(delay time.Duration, emit func([]Event)) *BatchDebouncer {
	return &BatchDebouncer{
		delay:  delay,
		byPath: make(map[string]Event),
		emit:   emit,
	}
}

// Add adds an event to the batch and restarts the quiet period.
func (b *BatchDebouncer) Add(event Event) {
	b.mu.Lock()
	prev, seen := b.byPath[event.Path]
	if !seen {
		b.order = append(b.order, event.Path)
	}
	b.byPath[event.Path] = merge(prev, event, seen)

	if b.delay <= 0 {
		b.mu.Unlock()
		b.flush()
		return
	}
	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.delay, b.flush)
	b.mu.Unlock()
}

// merge folds next into prev. A file created and then modified within one
// batch is still a creation; a file created and deleted is a deletion.
func merge(prev, next Event, seen bool) Event {
	if !seen {
		return next
	}
	if prev.Type == EventCreate && next.Type == EventModify {
		next.Type = EventCreate
	}
	return next
}

func (b *BatchDebouncer) flush() {
	b.mu.Lock()
	events := make([]Event, 0, len(b.order))
	for _, p := range b.order {
		events = append(events, b.byPath[p])
	}
	b.order = nil
	b.byPath = make(map[string]Event)
	b.timer = nil
	b.mu.Unlock()

	if len(events) > 0 && b.emit != nil {
		b.emit(events)
	}
}

// Cancel drops any pending events.
func (b *BatchDebouncer) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.order = nil
	b.byPath = make(map[string]Event)
}

// Flush immediately emits any pending events
func (b *BatchDebouncer) Flush() {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.mu.Unlock()

	b.flush()
}

// EventCount returns the number of pending paths.
func (b *BatchDebouncer) EventCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.order)
}
