package upload

import (
	"maps"
	"sync"
)

// Tracker folds a batch's events into the latest percentage per file.
type Tracker struct {
	mu       sync.Mutex
	progress map[string]int
	failed   map[string]error
}

func NewTracker() *Tracker {
	return &Tracker{progress: map[string]int{}, failed: map[string]error{}}
}

func (t *Tracker) Observe(event Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if event.Phase == PhaseFailed {
		t.failed[event.File] = event.Err
		return
	}
	t.progress[event.File] = event.Percent
}

// Consume reads events until the channel closes.
func (t *Tracker) Consume(events <-chan Event) {
	for event := range events {
		t.Observe(event)
	}
}

func (t *Tracker) Snapshot() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return maps.Clone(t.progress)
}

// Overall is the mean percentage across tracked files.
func (t *Tracker) Overall() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.progress) == 0 {
		return 0
	}
	total := 0
	for _, percent := range t.progress {
		total += percent
	}
	return total / len(t.progress)
}

func (t *Tracker) Failed() map[string]error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return maps.Clone(t.failed)
}
