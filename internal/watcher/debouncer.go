package watcher

import (
	"sort"
	"sync"
	"time"
)

// Debouncer coalesces events per path and flushes them once no new event
// arrived for the window, or as soon as maxBatch distinct paths are pending.
// The flush callback always runs without the lock held.
type Debouncer struct {
	window   time.Duration
	maxBatch int
	onFlush  func([]FileEvent)

	mu      sync.Mutex
	pending map[string]FileEvent
	timer   *time.Timer
	closed  bool
}

func NewDebouncer(window time.Duration, maxBatch int, onFlush func([]FileEvent)) *Debouncer {
	return &Debouncer{
		window:   window,
		maxBatch: maxBatch,
		onFlush:  onFlush,
		pending:  make(map[string]FileEvent),
	}
}

// Add records event, replacing any earlier event for the same path.
func (d *Debouncer) Add(event FileEvent) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}

	d.pending[event.Path] = event

	if d.maxBatch > 0 && len(d.pending) >= d.maxBatch {
		batch := d.takeLocked()
		d.mu.Unlock()
		d.deliver(batch)
		return
	}

	if d.timer == nil {
		d.timer = time.AfterFunc(d.window, d.fire)
	} else {
		d.timer.Reset(d.window)
	}
	d.mu.Unlock()
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	batch := d.takeLocked()
	d.mu.Unlock()

	d.deliver(batch)
}

// Pending reports how many paths are waiting for the next flush.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Stop flushes what is pending and drops every later event.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	batch := d.takeLocked()
	d.mu.Unlock()

	d.deliver(batch)
}

// takeLocked empties the pending set and returns it sorted by path.
func (d *Debouncer) takeLocked() []FileEvent {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if len(d.pending) == 0 {
		return nil
	}

	batch := make([]FileEvent, 0, len(d.pending))
	for _, ev := range d.pending {
		batch = append(batch, ev)
	}
	d.pending = make(map[string]FileEvent)

	sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
	return batch
}

func (d *Debouncer) deliver(batch []FileEvent) {
	if len(batch) > 0 && d.onFlush != nil {
		d.onFlush(batch)
	}
}
