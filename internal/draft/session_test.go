package draft

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crucible/api/internal/analysis"
)

type fakeFetcher struct {
	doc   *analysis.Document
	err   error
	calls int
}

func (f *fakeFetcher) Fetch(_ context.Context, jobID string) (*analysis.Document, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.doc, nil
}

type fakeCommitter struct {
	err       error
	committed []*analysis.Document
}

func (f *fakeCommitter) Commit(_ context.Context, jobID string, doc *analysis.Document) error {
	if f.err != nil {
		return f.err
	}
	f.committed = append(f.committed, doc.Clone())
	return nil
}

func loadedSession(t *testing.T, doc *analysis.Document, committer Committer, opts ...Option) *Session {
	t.Helper()
	session := NewSession(doc.JobID, committer, opts...)
	require.NoError(t, session.Load(context.Background(), &fakeFetcher{doc: doc}))
	return session
}

func summaryDoc() *analysis.Document {
	return &analysis.Document{
		JobID:   "job_1",
		Title:   "A",
		Results: []analysis.Section{&analysis.ContentSection{ID: "s1", Summary: "x"}},
	}
}

func summaryOf(t *testing.T, doc *analysis.Document) string {
	t.Helper()
	section, ok := doc.Section("s1")
	require.True(t, ok)
	return section.(*analysis.ContentSection).Summary
}

func TestActiveDocumentBeforeLoad(t *testing.T) {
	session := NewSession("job_1", &fakeCommitter{})
	_, err := session.ActiveDocument()
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.ErrorIs(t, session.EnterEdit(), ErrNotLoaded)
	assert.Equal(t, Viewing, session.Mode())
}

func TestFetchFailureMakesDocumentUnavailable(t *testing.T) {
	var events []Event
	session := NewSession("job_1", &fakeCommitter{}, WithObserver(func(e Event) { events = append(events, e) }))
	boom := errors.New("boom")

	err := session.Load(context.Background(), &fakeFetcher{err: boom})
	require.ErrorIs(t, err, boom)

	_, err = session.ActiveDocument()
	assert.ErrorIs(t, err, boom)
	require.Len(t, events, 1)
	assert.Equal(t, EventFetchFailed, events[0].Type)

	require.NoError(t, session.Load(context.Background(), &fakeFetcher{doc: summaryDoc()}))
	doc, err := session.ActiveDocument()
	require.NoError(t, err)
	assert.Equal(t, "A", doc.Title)
}

func TestEditCancelRoundTrip(t *testing.T) {
	session := loadedSession(t, summaryDoc(), &fakeCommitter{})

	require.NoError(t, session.EnterEdit())
	require.NoError(t, session.Apply(analysis.SetTitle("B")))
	active, err := session.ActiveDocument()
	require.NoError(t, err)
	assert.Equal(t, "B", active.Title)

	session.Cancel()

	active, err = session.ActiveDocument()
	require.NoError(t, err)
	assert.Equal(t, "A", active.Title)
	assert.Equal(t, Viewing, session.Mode())
}

func TestCancelIsIdempotent(t *testing.T) {
	session := loadedSession(t, summaryDoc(), &fakeCommitter{})
	require.NoError(t, session.EnterEdit())
	require.NoError(t, session.Apply(
		analysis.SetField("s1", analysis.FieldSummary, "y"),
		analysis.AddListItem("s1", analysis.ListKeyTakeaways),
		analysis.AddSynthesisItem(analysis.SynthesisOverarchingThemes),
	))

	for i := 0; i < 3; i++ {
		session.Cancel()
		assert.True(t, analysis.Equal(session.Canonical(), session.Draft()))
	}
}

func TestEditCommitRoundTrip(t *testing.T) {
	committer := &fakeCommitter{}
	session := loadedSession(t, summaryDoc(), committer)

	require.NoError(t, session.EnterEdit())
	require.NoError(t, session.Apply(analysis.SetField("s1", analysis.FieldSummary, "y")))
	draft := session.Draft()

	require.NoError(t, session.Commit(context.Background()))

	assert.Equal(t, Viewing, session.Mode())
	assert.Equal(t, "y", summaryOf(t, session.Canonical()))
	active, err := session.ActiveDocument()
	require.NoError(t, err)
	assert.True(t, analysis.Equal(draft, active))
	require.Len(t, committer.committed, 1)
	assert.Equal(t, "y", summaryOf(t, committer.committed[0]))
}

func TestFailedCommitPreservesDraft(t *testing.T) {
	var notices []string
	committer := &fakeCommitter{err: errors.New("503 from backend")}
	session := loadedSession(t, summaryDoc(), committer, WithObserver(func(e Event) {
		if notice := e.Notice(); notice != "" {
			notices = append(notices, notice)
		}
	}))

	require.NoError(t, session.EnterEdit())
	require.NoError(t, session.Apply(analysis.SetField("s1", analysis.FieldSummary, "y")))

	err := session.Commit(context.Background())
	require.ErrorIs(t, err, ErrCommitFailed)

	assert.Equal(t, Editing, session.Mode())
	assert.Equal(t, "y", summaryOf(t, session.Draft()))
	assert.Equal(t, "x", summaryOf(t, session.Canonical()))
	require.Len(t, notices, 1)
	assert.True(t, strings.Contains(notices[0], "503 from backend"))

	committer.err = nil
	require.NoError(t, session.Commit(context.Background()))
	assert.Equal(t, "y", summaryOf(t, session.Canonical()))
}

func TestApplyRequiresEditMode(t *testing.T) {
	session := loadedSession(t, summaryDoc(), &fakeCommitter{})
	assert.ErrorIs(t, session.Apply(analysis.SetTitle("B")), ErrNotEditing)
	assert.ErrorIs(t, session.Commit(context.Background()), ErrNotEditing)
}

func TestRefreshWhileViewingReplacesBoth(t *testing.T) {
	session := loadedSession(t, summaryDoc(), &fakeCommitter{})

	next := summaryDoc()
	next.Title = "server"
	assert.True(t, session.Refresh(next))

	assert.Equal(t, "server", session.Canonical().Title)
	assert.Equal(t, "server", session.Draft().Title)
}

func TestRefreshWhileEditingIsIgnored(t *testing.T) {
	session := loadedSession(t, summaryDoc(), &fakeCommitter{})
	require.NoError(t, session.EnterEdit())
	require.NoError(t, session.Apply(analysis.SetTitle("draft")))

	next := summaryDoc()
	next.Title = "server"
	assert.False(t, session.Refresh(next))

	assert.Equal(t, "A", session.Canonical().Title)
	assert.Equal(t, "draft", session.Draft().Title)
}

func TestFailedFetchWhileEditingKeepsDraftReadable(t *testing.T) {
	var events []EventType
	session := loadedSession(t, summaryDoc(), &fakeCommitter{}, WithObserver(func(e Event) {
		events = append(events, e.Type)
	}))
	require.NoError(t, session.EnterEdit())
	require.NoError(t, session.Apply(analysis.SetTitle("B")))

	err := session.Load(context.Background(), &fakeFetcher{err: errors.New("network down")})
	require.Error(t, err)

	assert.Equal(t, Editing, session.Mode())
	active, err := session.ActiveDocument()
	require.NoError(t, err)
	assert.Equal(t, "B", active.Title)
	assert.Contains(t, events, EventFetchFailed)

	session.Cancel()
	active, err = session.ActiveDocument()
	require.NoError(t, err)
	assert.Equal(t, "A", active.Title)
}

type blockingCommitter struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingCommitter) Commit(ctx context.Context, _ string, _ *analysis.Document) error {
	close(b.started)
	<-b.release
	return nil
}

func TestApplyDuringCommitIsRefused(t *testing.T) {
	committer := &blockingCommitter{started: make(chan struct{}), release: make(chan struct{})}
	session := loadedSession(t, summaryDoc(), committer)
	require.NoError(t, session.EnterEdit())
	require.NoError(t, session.Apply(analysis.SetTitle("B")))

	done := make(chan error, 1)
	go func() { done <- session.Commit(context.Background()) }()
	<-committer.started

	assert.ErrorIs(t, session.Apply(analysis.SetBlogPost("late edit")), ErrCommitInProgress)
	assert.ErrorIs(t, session.Commit(context.Background()), ErrCommitInProgress)

	close(committer.release)
	require.NoError(t, <-done)

	assert.Equal(t, Viewing, session.Mode())
	assert.Equal(t, "B", session.Canonical().Title)
	assert.Empty(t, session.Canonical().BlogPost)
	require.NoError(t, session.EnterEdit())
	require.NoError(t, session.Apply(analysis.SetBlogPost("after commit")))
	assert.Equal(t, "after commit", session.Draft().BlogPost)
}

func TestDraftNeverAliasesCanonical(t *testing.T) {
	source := summaryDoc()
	session := loadedSession(t, source, &fakeCommitter{})
	require.NoError(t, session.EnterEdit())
	require.NoError(t, session.Apply(
		analysis.SetField("s1", analysis.FieldSummary, "y"),
		analysis.AddListItem("s1", analysis.ListKeyTakeaways),
	))

	assert.Equal(t, "x", summaryOf(t, session.Canonical()))
	assert.Equal(t, "x", summaryOf(t, source), "fetched payload is not shared with the session")
}

func TestReadScript(t *testing.T) {
	script := `[
		{"op":"setTitle","value":"B"},
		{"op":"setField","section":"s1","field":"summary","value":"y"},
		{"op":"addSynthesisItem","field":"overarchingThemes"}
	]`
	mutations, err := ReadScript(strings.NewReader(script))
	require.NoError(t, err)

	out := analysis.Apply(summaryDoc(), mutations...)
	assert.Equal(t, "B", out.Title)
	assert.Equal(t, "y", summaryOf(t, out))
	assert.Equal(t, []string{analysis.NewItemText}, out.SynthesisResults.OverarchingThemes)

	_, err = ReadScript(strings.NewReader(`[{"op":"explode"}]`))
	assert.Error(t, err)
}
