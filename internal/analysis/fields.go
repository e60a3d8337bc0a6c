package analysis

import "slices"

// TextField names a scalar text field of a section.
type TextField string

const (
	FieldGeneratedTitle     TextField = "generatedTitle"
	FieldOneSentenceSummary TextField = "oneSentenceSummary"
	FieldSummary            TextField = "summary"
	FieldTopic              TextField = "topic"
)

// ListField names a string list of a section.
type ListField string

const (
	ListKeyTakeaways  ListField = "keyTakeaways"
	ListNotableQuotes ListField = "notableQuotes"
)

// RecordField names a list of multi-property records of a section.
type RecordField string

const (
	RecordEntities            RecordField = "entities"
	RecordLessons             RecordField = "lessons"
	RecordQuestionsAndAnswers RecordField = "questionsAndAnswers"
	RecordViewpoints          RecordField = "viewpoints"
)

// Property names one property of a record.
type Property string

const (
	PropName        Property = "name"
	PropExplanation Property = "explanation"
	PropConcept     Property = "concept"
	PropQuestion    Property = "question"
	PropAnswer      Property = "answer"
	PropSpeaker     Property = "speaker"
	PropStance      Property = "stance"
	PropRationale   Property = "rationale"
	PropPointA      Property = "pointA"
	PropPointB      Property = "pointB"
	PropAnalysis    Property = "analysis"
)

func (s *ContentSection) text(f TextField) (*string, bool) {
	switch f {
	case FieldGeneratedTitle:
		return &s.GeneratedTitle, true
	case FieldOneSentenceSummary:
		return &s.OneSentenceSummary, true
	case FieldSummary:
		return &s.Summary, true
	default:
		return nil, false
	}
}

func (s *LessonSection) text(f TextField) (*string, bool) {
	switch f {
	case FieldGeneratedTitle:
		return &s.GeneratedTitle, true
	case FieldSummary:
		return &s.Summary, true
	default:
		return nil, false
	}
}

func (s *DebateSection) text(f TextField) (*string, bool) {
	switch f {
	case FieldGeneratedTitle:
		return &s.GeneratedTitle, true
	case FieldTopic:
		return &s.Topic, true
	case FieldSummary:
		return &s.Summary, true
	default:
		return nil, false
	}
}

func (s *ContentSection) list(f ListField) (*[]string, bool) {
	switch f {
	case ListKeyTakeaways:
		return &s.KeyTakeaways, true
	case ListNotableQuotes:
		return &s.NotableQuotes, true
	default:
		return nil, false
	}
}

func (s *LessonSection) list(f ListField) (*[]string, bool) {
	switch f {
	case ListKeyTakeaways:
		return &s.KeyTakeaways, true
	default:
		return nil, false
	}
}

func (s *DebateSection) list(f ListField) (*[]string, bool) {
	switch f {
	case ListKeyTakeaways:
		return &s.KeyTakeaways, true
	default:
		return nil, false
	}
}

func (s *ContentSection) records(f RecordField) (recordList, bool) {
	switch f {
	case RecordEntities:
		return recordSlice[Entity, *Entity]{items: &s.Entities}, true
	default:
		return nil, false
	}
}

func (s *LessonSection) records(f RecordField) (recordList, bool) {
	switch f {
	case RecordLessons:
		return recordSlice[Lesson, *Lesson]{items: &s.Lessons}, true
	case RecordQuestionsAndAnswers:
		return recordSlice[QAPair, *QAPair]{items: &s.QuestionsAndAnswers}, true
	default:
		return nil, false
	}
}

func (s *DebateSection) records(f RecordField) (recordList, bool) {
	switch f {
	case RecordViewpoints:
		return recordSlice[Viewpoint, *Viewpoint]{items: &s.Viewpoints}, true
	default:
		return nil, false
	}
}

func (e *Entity) setProperty(p Property, v string) bool {
	switch p {
	case PropName:
		e.Name = v
	case PropExplanation:
		e.Explanation = v
	default:
		return false
	}
	return true
}

func (l *Lesson) setProperty(p Property, v string) bool {
	switch p {
	case PropConcept:
		l.Concept = v
	case PropExplanation:
		l.Explanation = v
	default:
		return false
	}
	return true
}

func (q *QAPair) setProperty(p Property, v string) bool {
	switch p {
	case PropQuestion:
		q.Question = v
	case PropAnswer:
		q.Answer = v
	default:
		return false
	}
	return true
}

func (vp *Viewpoint) setProperty(p Property, v string) bool {
	switch p {
	case PropSpeaker:
		vp.Speaker = v
	case PropStance:
		vp.Stance = v
	case PropRationale:
		vp.Rationale = v
	default:
		return false
	}
	return true
}

func (c *Contradiction) setProperty(p Property, v string) bool {
	switch p {
	case PropPointA:
		c.PointA = v
	case PropPointB:
		c.PointB = v
	case PropAnalysis:
		c.Analysis = v
	default:
		return false
	}
	return true
}

// recordList edits one record list in place of its owning struct. Every
// operation installs a fresh slice so the previous backing array, which may
// be shared with another document, is never written.
type recordList interface {
	set(i int, p Property, v string) bool
	add()
	remove(i int) bool
}

type propertySetter interface {
	setProperty(p Property, v string) bool
}

type recordSlice[T any, P interface {
	*T
	propertySetter
}] struct {
	items *[]T
}

func (r recordSlice[T, P]) set(i int, p Property, v string) bool {
	if i < 0 || i >= len(*r.items) {
		return false
	}
	next := slices.Clone(*r.items)
	if !P(&next[i]).setProperty(p, v) {
		return false
	}
	*r.items = next
	return true
}

func (r recordSlice[T, P]) add() {
	var zero T
	*r.items = appendCopy(*r.items, zero)
}

func (r recordSlice[T, P]) remove(i int) bool {
	next, ok := deleteAt(*r.items, i)
	if ok {
		*r.items = next
	}
	return ok
}

func setAt[T any](items []T, i int, v T) ([]T, bool) {
	if i < 0 || i >= len(items) {
		return items, false
	}
	next := slices.Clone(items)
	next[i] = v
	return next, true
}

func appendCopy[T any](items []T, v T) []T {
	next := make([]T, len(items), len(items)+1)
	copy(next, items)
	return append(next, v)
}

func deleteAt[T any](items []T, i int) ([]T, bool) {
	if i < 0 || i >= len(items) {
		return items, false
	}
	next := make([]T, 0, len(items)-1)
	next = append(next, items[:i]...)
	return append(next, items[i+1:]...), true
}
