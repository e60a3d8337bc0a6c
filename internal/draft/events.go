package draft

// EventType identifies what happened to a session.
type EventType string

const (
	EventLoaded         EventType = "loaded"
	EventFetchFailed    EventType = "fetch_failed"
	EventRefreshIgnored EventType = "refresh_ignored"
	EventModeChanged    EventType = "mode_changed"
	EventCommitted      EventType = "committed"
	EventCommitFailed   EventType = "commit_failed"
)

// Event is published to observers after the session state settles.
type Event struct {
	Type  EventType
	JobID string
	Mode  Mode
	Err   error
}

// Observer receives session events synchronously. It must not call back
// into the session that published the event.
type Observer func(Event)

// Notice renders an event as the one-line message a user would see, or ""
// for events that need no notice.
func (e Event) Notice() string {
	switch e.Type {
	case EventCommitted:
		return "Changes saved."
	case EventCommitFailed:
		if e.Err != nil {
			return "Could not save changes: " + e.Err.Error()
		}
		return "Could not save changes."
	case EventFetchFailed:
		return "Could not load analysis results."
	default:
		return ""
	}
}
