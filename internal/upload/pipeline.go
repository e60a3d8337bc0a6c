// Package upload compresses and uploads batches of files concurrently and
// reports per-file progress as a stream of events.
package upload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

var (
	ErrEmptyBatch    = errors.New("upload batch is empty")
	ErrDuplicateFile = errors.New("upload batch names a file twice")
)

// Phase is where a file is in the pipeline.
type Phase string

const (
	PhaseCompressing Phase = "compressing"
	PhaseUploading   Phase = "uploading"
	PhaseDone        Phase = "done"
	PhaseFailed      Phase = "failed"
)

const (
	compressWeight = 50
	defaultLimit   = 3
	// 0..100 inclusive plus the terminal event.
	eventsPerFile = 102
)

// Event reports one file's progress. Percent never decreases for a file.
type Event struct {
	File    string
	Phase   Phase
	Percent int
	Err     error
}

// Summary is the outcome of a finished batch.
type Summary struct {
	Succeeded []string
	Failed    map[string]error
}

// AllSucceeded is true only when every file uploaded.
func (s Summary) AllSucceeded() bool { return len(s.Failed) == 0 }

// PartiallyFailed is true when some but not all files failed.
func (s Summary) PartiallyFailed() bool {
	return len(s.Failed) > 0 && len(s.Succeeded) > 0
}

type Pipeline struct {
	compressor Compressor
	store      ObjectStore
	limit      int
}

func NewPipeline(compressor Compressor, store ObjectStore, limit int) *Pipeline {
	if compressor == nil {
		compressor = PassthroughCompressor{}
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	return &Pipeline{compressor: compressor, store: store, limit: limit}
}

// Batch is a running set of uploads.
type Batch struct {
	events chan Event
	done   chan struct{}

	mu      sync.Mutex
	summary Summary
	// object key -> file that claimed it
	keys map[string]string
}

// Events is closed once every file has finished. The channel is sized so
// producers never block on a slow consumer.
func (b *Batch) Events() <-chan Event { return b.events }

// Wait blocks until every file has finished and returns the outcome.
func (b *Batch) Wait() Summary {
	<-b.done
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.summary
}

// Start launches one task per file. A failing file never cancels its
// siblings; cancelling ctx stops them all.
func (p *Pipeline) Start(ctx context.Context, userID string, files []File) (*Batch, error) {
	if len(files) == 0 {
		return nil, ErrEmptyBatch
	}
	seen := make(map[string]struct{}, len(files))
	for _, f := range files {
		key := ObjectKey(userID, f.Name)
		if _, ok := seen[key]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateFile, f.Name)
		}
		seen[key] = struct{}{}
	}

	batch := &Batch{
		events:  make(chan Event, len(files)*eventsPerFile),
		done:    make(chan struct{}),
		summary: Summary{Failed: map[string]error{}},
		keys:    make(map[string]string, len(files)),
	}

	var g errgroup.Group
	g.SetLimit(p.limit)
	go func() {
		for _, file := range files {
			g.Go(func() error {
				err := p.run(ctx, userID, file, batch)
				batch.finish(file.Name, err)
				return nil
			})
		}
		_ = g.Wait()
		batch.mu.Lock()
		sort.Strings(batch.summary.Succeeded)
		batch.mu.Unlock()
		close(batch.events)
		close(batch.done)
	}()
	return batch, nil
}

func (p *Pipeline) run(ctx context.Context, userID string, file File, batch *Batch) error {
	report := newReporter(file.Name, batch.events)
	if err := ctx.Err(); err != nil {
		return err
	}

	compressed := file
	if file.IsAudio() {
		report.emit(PhaseCompressing, 0)
		out, err := p.compressor.Compress(ctx, file, func(fraction float64) {
			report.emit(PhaseCompressing, int(fraction*compressWeight))
		})
		if err != nil {
			return fmt.Errorf("compress %s: %w", file.Name, err)
		}
		compressed = out
		if compressed.Path != file.Path {
			defer os.Remove(compressed.Path)
		}
	}
	report.emit(PhaseUploading, compressWeight)

	r, err := os.Open(compressed.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", file.Name, err)
	}
	defer r.Close()
	size := compressed.Size
	if size <= 0 {
		if info, err := r.Stat(); err == nil {
			size = info.Size()
		}
	}

	key := ObjectKey(userID, compressed.Name)
	if err := batch.claim(key, file.Name); err != nil {
		return err
	}
	err = p.store.Put(ctx, key, r, size, compressed.ContentType, func(sent int64) {
		if size <= 0 {
			return
		}
		fraction := min(float64(sent)/float64(size), 1)
		report.emit(PhaseUploading, compressWeight+int(fraction*(100-compressWeight)))
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", file.Name, err)
	}
	return nil
}

// claim reserves an object key for one file. Compression can rename a file
// onto a key another file in the batch already holds.
func (b *Batch) claim(key, name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if owner, ok := b.keys[key]; ok && owner != name {
		return fmt.Errorf("%w: %s and %s both upload to %s", ErrDuplicateFile, owner, name, key)
	}
	b.keys[key] = name
	return nil
}

func (b *Batch) finish(name string, err error) {
	b.mu.Lock()
	if err != nil {
		b.summary.Failed[name] = err
	} else {
		b.summary.Succeeded = append(b.summary.Succeeded, name)
	}
	b.mu.Unlock()

	if err != nil {
		b.events <- Event{File: name, Phase: PhaseFailed, Err: err}
		return
	}
	b.events <- Event{File: name, Phase: PhaseDone, Percent: 100}
}

// reporter drops any percentage not above the last one sent, which keeps
// a file's progress monotonic and bounds the events it can produce.
type reporter struct {
	file   string
	events chan<- Event
	mu     sync.Mutex
	last   int
}

func newReporter(file string, events chan<- Event) *reporter {
	return &reporter{file: file, events: events, last: -1}
}

func (r *reporter) emit(phase Phase, percent int) {
	percent = max(0, min(percent, 100))
	r.mu.Lock()
	defer r.mu.Unlock()
	if percent <= r.last {
		return
	}
	r.last = percent
	r.events <- Event{File: r.file, Phase: phase, Percent: percent}
}
