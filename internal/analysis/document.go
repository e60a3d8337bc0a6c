// Package analysis models the analysis document produced for a job and the
// copy-on-write mutators used to edit it.
package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind discriminates the section variants stored in Document.Results.
type Kind string

const (
	KindContent Kind = "content"
	KindLesson  Kind = "lesson"
	KindDebate  Kind = "debate"
)

// Document is the analysis result for one job.
type Document struct {
	JobID              string              `json:"jobId"`
	Title              string              `json:"title"`
	Results            []Section           `json:"results"`
	SynthesisResults   *Synthesis          `json:"synthesisResults,omitempty"`
	ArgumentStructure  *ArgumentStructure  `json:"argumentStructure,omitempty"`
	SlideOutline       []Slide             `json:"slideOutline"`
	QuizQuestions      []QuizQuestion      `json:"quizQuestions"`
	OpenEndedQuestions []OpenEndedQuestion `json:"openEndedQuestions"`
	GlobalBriefing     string              `json:"globalBriefing"`
	BlogPost           string              `json:"blogPost"`
	XThread            []string            `json:"xThread"`
	Version            int                 `json:"version"`
}

// Section is one entry of Document.Results. The set of implementations is
// closed: ContentSection, LessonSection and DebateSection.
type Section interface {
	SectionID() string
	Kind() Kind

	text(f TextField) (*string, bool)
	list(f ListField) (*[]string, bool)
	records(f RecordField) (recordList, bool)
	shallow() Section
	clone() Section
	equal(other Section) bool
}

type Entity struct {
	Name        string `json:"name"`
	Explanation string `json:"explanation"`
}

type Lesson struct {
	Concept     string `json:"concept"`
	Explanation string `json:"explanation"`
}

type QAPair struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

type Viewpoint struct {
	Speaker   string `json:"speaker"`
	Stance    string `json:"stance"`
	Rationale string `json:"rationale"`
}

type Contradiction struct {
	PointA   string `json:"pointA"`
	PointB   string `json:"pointB"`
	Analysis string `json:"analysis"`
}

// ContentSection is the general-purpose summary section.
type ContentSection struct {
	ID                 string   `json:"id"`
	GeneratedTitle     string   `json:"generatedTitle"`
	OneSentenceSummary string   `json:"oneSentenceSummary"`
	Summary            string   `json:"summary"`
	KeyTakeaways       []string `json:"keyTakeaways"`
	NotableQuotes      []string `json:"notableQuotes"`
	Entities           []Entity `json:"entities"`
}

// LessonSection carries the learning-oriented breakdown of a segment.
type LessonSection struct {
	ID                  string   `json:"id"`
	GeneratedTitle      string   `json:"generatedTitle"`
	Summary             string   `json:"summary"`
	KeyTakeaways        []string `json:"keyTakeaways"`
	Lessons             []Lesson `json:"lessons"`
	QuestionsAndAnswers []QAPair `json:"questionsAndAnswers"`
}

// DebateSection captures the competing viewpoints raised in a segment.
type DebateSection struct {
	ID             string      `json:"id"`
	GeneratedTitle string      `json:"generatedTitle"`
	Topic          string      `json:"topic"`
	Summary        string      `json:"summary"`
	KeyTakeaways   []string    `json:"keyTakeaways"`
	Viewpoints     []Viewpoint `json:"viewpoints"`
}

type Synthesis struct {
	NarrativeSynthesis string          `json:"narrativeSynthesis"`
	OverarchingThemes  []string        `json:"overarchingThemes"`
	UnifyingInsights   []string        `json:"unifyingInsights"`
	Contradictions     []Contradiction `json:"contradictions"`
}

type ArgumentStructure struct {
	MainThesis                string   `json:"mainThesis"`
	SupportingArguments       []string `json:"supportingArguments"`
	CounterargumentsMentioned []string `json:"counterargumentsMentioned"`
}

type Slide struct {
	Title   string   `json:"title"`
	Bullets []string `json:"bullets"`
}

type QuizQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

type OpenEndedQuestion struct {
	Question      string   `json:"question"`
	GuidingPoints []string `json:"guidingPoints"`
}

// EmptySynthesis returns the shape a synthesis block takes when it is
// created by an edit.
func EmptySynthesis() *Synthesis {
	return &Synthesis{
		OverarchingThemes: []string{},
		UnifyingInsights:  []string{},
		Contradictions:    []Contradiction{},
	}
}

// EmptyArgumentStructure returns the shape an argument structure takes when
// it is created by an edit.
func EmptyArgumentStructure() *ArgumentStructure {
	return &ArgumentStructure{
		SupportingArguments:       []string{},
		CounterargumentsMentioned: []string{},
	}
}

// Section finds a result section by id.
func (d *Document) Section(id string) (Section, bool) {
	if d == nil {
		return nil, false
	}
	for _, section := range d.Results {
		if section != nil && section.SectionID() == id {
			return section, true
		}
	}
	return nil, false
}

var (
	ErrDuplicateSection = errors.New("duplicate section id")
	ErrMissingSectionID = errors.New("section id is required")
	ErrNilSection       = errors.New("section is null")
)

// Validate checks the structural rules the results API enforces on save.
func (d *Document) Validate() error {
	if d == nil {
		return errors.New("document is required")
	}
	seen := make(map[string]struct{}, len(d.Results))
	for i, section := range d.Results {
		if section == nil {
			return fmt.Errorf("results[%d]: %w", i, ErrNilSection)
		}
		id := strings.TrimSpace(section.SectionID())
		if id == "" {
			return fmt.Errorf("results[%d]: %w", i, ErrMissingSectionID)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("results[%d] %q: %w", i, id, ErrDuplicateSection)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func (s *ContentSection) SectionID() string { return s.ID }
func (s *ContentSection) Kind() Kind        { return KindContent }
func (s *LessonSection) SectionID() string  { return s.ID }
func (s *LessonSection) Kind() Kind         { return KindLesson }
func (s *DebateSection) SectionID() string  { return s.ID }
func (s *DebateSection) Kind() Kind         { return KindDebate }

func (s ContentSection) MarshalJSON() ([]byte, error) {
	type alias ContentSection
	return json.Marshal(struct {
		Kind Kind `json:"kind"`
		alias
	}{KindContent, alias(s)})
}

func (s LessonSection) MarshalJSON() ([]byte, error) {
	type alias LessonSection
	return json.Marshal(struct {
		Kind Kind `json:"kind"`
		alias
	}{KindLesson, alias(s)})
}

func (s DebateSection) MarshalJSON() ([]byte, error) {
	type alias DebateSection
	return json.Marshal(struct {
		Kind Kind `json:"kind"`
		alias
	}{KindDebate, alias(s)})
}

// UnmarshalJSON decodes results by their "kind" discriminator. A missing kind
// is read as a content section.
func (d *Document) UnmarshalJSON(data []byte) error {
	type alias Document
	aux := struct {
		*alias
		Results []json.RawMessage `json:"results"`
	}{alias: (*alias)(d)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Results == nil {
		d.Results = nil
		return nil
	}
	sections, err := DecodeSections(aux.Results)
	if err != nil {
		return err
	}
	d.Results = sections
	return nil
}

// DecodeSections decodes raw JSON sections into their variants.
func DecodeSections(raw []json.RawMessage) ([]Section, error) {
	sections := make([]Section, 0, len(raw))
	for i, item := range raw {
		section, err := decodeSection(item)
		if err != nil {
			return nil, fmt.Errorf("results[%d]: %w", i, err)
		}
		sections = append(sections, section)
	}
	return sections, nil
}

func decodeSection(raw json.RawMessage) (Section, error) {
	var head struct {
		Kind Kind `json:"kind"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}
	var target Section
	switch head.Kind {
	case KindContent, "":
		target = &ContentSection{}
	case KindLesson:
		target = &LessonSection{}
	case KindDebate:
		target = &DebateSection{}
	default:
		return nil, fmt.Errorf("unknown section kind %q", head.Kind)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return nil, err
	}
	return target, nil
}
