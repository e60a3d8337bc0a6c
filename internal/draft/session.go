// Package draft keeps the canonical and working copies of an analysis
// document and moves between viewing and editing them.
package draft

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"crucible/api/internal/analysis"
)

// Mode selects which copy of the document readers see.
type Mode int

const (
	Viewing Mode = iota
	Editing
)

func (m Mode) String() string {
	switch m {
	case Viewing:
		return "viewing"
	case Editing:
		return "editing"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

var (
	ErrNotLoaded    = errors.New("document not loaded")
	ErrNotEditing   = errors.New("session is not in edit mode")
	ErrCommitFailed = errors.New("commit failed")

	// ErrCommitInProgress is returned by Apply and Commit while an earlier
	// commit is still waiting on the committer.
	ErrCommitInProgress = errors.New("commit in progress")
)

// Fetcher loads the canonical document for a job.
type Fetcher interface {
	Fetch(ctx context.Context, jobID string) (*analysis.Document, error)
}

// Committer persists a whole document in one call.
type Committer interface {
	Commit(ctx context.Context, jobID string, doc *analysis.Document) error
}

// Session holds one job's canonical and draft documents. Readers see the
// draft while editing and the canonical copy otherwise.
//
// The draft starts out sharing structure with the canonical copy. Edits go
// through analysis mutations, which copy what they change, so the two never
// alias written memory.
type Session struct {
	jobID     string
	committer Committer
	observers []Observer

	mu         sync.Mutex
	mode       Mode
	canonical  *analysis.Document
	draft      *analysis.Document
	fetchErr   error
	committing bool
}

type Option func(*Session)

// WithObserver registers a callback for session events.
func WithObserver(observer Observer) Option {
	return func(s *Session) {
		if observer != nil {
			s.observers = append(s.observers, observer)
		}
	}
}

func NewSession(jobID string, committer Committer, opts ...Option) *Session {
	s := &Session{jobID: jobID, committer: committer}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) JobID() string { return s.jobID }

// Load fetches the document and installs it as canonical. A failed fetch is
// remembered and returned by ActiveDocument until a later load succeeds,
// unless the session is editing: the open draft stays readable.
func (s *Session) Load(ctx context.Context, fetcher Fetcher) error {
	doc, err := fetcher.Fetch(ctx, s.jobID)
	if err != nil {
		s.mu.Lock()
		if s.mode != Editing {
			s.fetchErr = fmt.Errorf("fetch %s: %w", s.jobID, err)
		}
		s.mu.Unlock()
		s.publish(Event{Type: EventFetchFailed, JobID: s.jobID, Err: err})
		return err
	}
	s.Refresh(doc)
	return nil
}

// Refresh installs a revalidated document. It is ignored while editing so
// an open edit session never has its draft replaced underneath it.
func (s *Session) Refresh(doc *analysis.Document) bool {
	if doc == nil {
		return false
	}
	s.mu.Lock()
	if s.mode == Editing {
		s.mu.Unlock()
		s.publish(Event{Type: EventRefreshIgnored, JobID: s.jobID})
		return false
	}
	s.canonical = doc.Clone()
	s.draft = s.canonical
	s.fetchErr = nil
	s.mu.Unlock()
	s.publish(Event{Type: EventLoaded, JobID: s.jobID})
	return true
}

// ActiveDocument returns the draft while editing and the canonical copy
// otherwise. The returned document must be treated as read-only.
func (s *Session) ActiveDocument() (*analysis.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	if s.canonical == nil {
		return nil, ErrNotLoaded
	}
	if s.mode == Editing {
		return s.draft, nil
	}
	return s.canonical, nil
}

func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Session) Canonical() *analysis.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canonical
}

func (s *Session) Draft() *analysis.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// EnterEdit switches to editing. The draft is already in sync with the
// canonical copy.
func (s *Session) EnterEdit() error {
	s.mu.Lock()
	if s.canonical == nil {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	changed := s.mode != Editing
	s.mode = Editing
	s.mu.Unlock()
	if changed {
		s.publish(Event{Type: EventModeChanged, JobID: s.jobID, Mode: Editing})
	}
	return nil
}

// Apply runs mutations against the draft in call order.
func (s *Session) Apply(mutations ...analysis.Mutation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != Editing {
		return ErrNotEditing
	}
	if s.committing {
		return ErrCommitInProgress
	}
	s.draft = analysis.Apply(s.draft, mutations...)
	return nil
}

// Cancel discards every pending edit and returns to viewing. Calling it
// repeatedly is harmless.
func (s *Session) Cancel() {
	s.mu.Lock()
	changed := s.mode != Viewing
	s.draft = s.canonical
	s.mode = Viewing
	s.mu.Unlock()
	if changed {
		s.publish(Event{Type: EventModeChanged, JobID: s.jobID, Mode: Viewing})
	}
}

// Commit sends the whole draft to the committer. On success the draft
// becomes canonical without a re-fetch and the session returns to viewing;
// on failure the session stays in edit mode with the draft untouched. Edits
// are refused until the committer returns.
func (s *Session) Commit(ctx context.Context) error {
	s.mu.Lock()
	if s.mode != Editing {
		s.mu.Unlock()
		return ErrNotEditing
	}
	if s.committing {
		s.mu.Unlock()
		return ErrCommitInProgress
	}
	s.committing = true
	snapshot := s.draft
	s.mu.Unlock()

	err := s.committer.Commit(ctx, s.jobID, snapshot)
	s.mu.Lock()
	s.committing = false
	s.mu.Unlock()
	if err != nil {
		wrapped := fmt.Errorf("%w: %w", ErrCommitFailed, err)
		s.publish(Event{Type: EventCommitFailed, JobID: s.jobID, Mode: Editing, Err: err})
		return wrapped
	}

	s.mu.Lock()
	s.canonical = snapshot
	s.draft = snapshot
	s.mode = Viewing
	s.mu.Unlock()
	s.publish(Event{Type: EventCommitted, JobID: s.jobID, Mode: Viewing})
	return nil
}

func (s *Session) publish(event Event) {
	for _, observer := range s.observers {
		observer(event)
	}
}
