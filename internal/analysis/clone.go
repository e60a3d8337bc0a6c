package analysis

import "slices"

// Clone returns a deep copy of d. No slice or pointer of the result is
// reachable from d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := *d
	if d.Results != nil {
		out.Results = make([]Section, len(d.Results))
		for i, section := range d.Results {
			if section != nil {
				out.Results[i] = section.clone()
			}
		}
	}
	out.SynthesisResults = d.SynthesisResults.clone()
	out.ArgumentStructure = d.ArgumentStructure.clone()
	if d.SlideOutline != nil {
		out.SlideOutline = make([]Slide, len(d.SlideOutline))
		for i, slide := range d.SlideOutline {
			out.SlideOutline[i] = Slide{Title: slide.Title, Bullets: slices.Clone(slide.Bullets)}
		}
	}
	if d.QuizQuestions != nil {
		out.QuizQuestions = make([]QuizQuestion, len(d.QuizQuestions))
		for i, q := range d.QuizQuestions {
			q.Options = slices.Clone(q.Options)
			out.QuizQuestions[i] = q
		}
	}
	if d.OpenEndedQuestions != nil {
		out.OpenEndedQuestions = make([]OpenEndedQuestion, len(d.OpenEndedQuestions))
		for i, q := range d.OpenEndedQuestions {
			q.GuidingPoints = slices.Clone(q.GuidingPoints)
			out.OpenEndedQuestions[i] = q
		}
	}
	out.XThread = slices.Clone(d.XThread)
	return &out
}

func (d *Document) shallow() *Document {
	out := *d
	return &out
}

func (s *Synthesis) clone() *Synthesis {
	if s == nil {
		return nil
	}
	return &Synthesis{
		NarrativeSynthesis: s.NarrativeSynthesis,
		OverarchingThemes:  slices.Clone(s.OverarchingThemes),
		UnifyingInsights:   slices.Clone(s.UnifyingInsights),
		Contradictions:     slices.Clone(s.Contradictions),
	}
}

func (a *ArgumentStructure) clone() *ArgumentStructure {
	if a == nil {
		return nil
	}
	return &ArgumentStructure{
		MainThesis:                a.MainThesis,
		SupportingArguments:       slices.Clone(a.SupportingArguments),
		CounterargumentsMentioned: slices.Clone(a.CounterargumentsMentioned),
	}
}

func (s *ContentSection) shallow() Section {
	out := *s
	return &out
}

func (s *LessonSection) shallow() Section {
	out := *s
	return &out
}

func (s *DebateSection) shallow() Section {
	out := *s
	return &out
}

func (s *ContentSection) clone() Section {
	out := *s
	out.KeyTakeaways = slices.Clone(s.KeyTakeaways)
	out.NotableQuotes = slices.Clone(s.NotableQuotes)
	out.Entities = slices.Clone(s.Entities)
	return &out
}

func (s *LessonSection) clone() Section {
	out := *s
	out.KeyTakeaways = slices.Clone(s.KeyTakeaways)
	out.Lessons = slices.Clone(s.Lessons)
	out.QuestionsAndAnswers = slices.Clone(s.QuestionsAndAnswers)
	return &out
}

func (s *DebateSection) clone() Section {
	out := *s
	out.KeyTakeaways = slices.Clone(s.KeyTakeaways)
	out.Viewpoints = slices.Clone(s.Viewpoints)
	return &out
}

// Equal reports whether a and b hold the same content. Nil and empty lists
// compare equal.
func Equal(a, b *Document) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.JobID != b.JobID || a.Title != b.Title || a.Version != b.Version ||
		a.GlobalBriefing != b.GlobalBriefing || a.BlogPost != b.BlogPost {
		return false
	}
	if !slices.EqualFunc(a.Results, b.Results, sectionsEqual) {
		return false
	}
	if !synthesisEqual(a.SynthesisResults, b.SynthesisResults) ||
		!argumentsEqual(a.ArgumentStructure, b.ArgumentStructure) {
		return false
	}
	if !slices.EqualFunc(a.SlideOutline, b.SlideOutline, func(x, y Slide) bool {
		return x.Title == y.Title && slices.Equal(x.Bullets, y.Bullets)
	}) {
		return false
	}
	if !slices.EqualFunc(a.QuizQuestions, b.QuizQuestions, func(x, y QuizQuestion) bool {
		return x.Question == y.Question && x.CorrectAnswer == y.CorrectAnswer &&
			x.Explanation == y.Explanation && slices.Equal(x.Options, y.Options)
	}) {
		return false
	}
	if !slices.EqualFunc(a.OpenEndedQuestions, b.OpenEndedQuestions, func(x, y OpenEndedQuestion) bool {
		return x.Question == y.Question && slices.Equal(x.GuidingPoints, y.GuidingPoints)
	}) {
		return false
	}
	return slices.Equal(a.XThread, b.XThread)
}

func sectionsEqual(a, b Section) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.equal(b)
}

func synthesisEqual(a, b *Synthesis) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.NarrativeSynthesis == b.NarrativeSynthesis &&
		slices.Equal(a.OverarchingThemes, b.OverarchingThemes) &&
		slices.Equal(a.UnifyingInsights, b.UnifyingInsights) &&
		slices.Equal(a.Contradictions, b.Contradictions)
}

func argumentsEqual(a, b *ArgumentStructure) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.MainThesis == b.MainThesis &&
		slices.Equal(a.SupportingArguments, b.SupportingArguments) &&
		slices.Equal(a.CounterargumentsMentioned, b.CounterargumentsMentioned)
}

func (s *ContentSection) equal(other Section) bool {
	o, ok := other.(*ContentSection)
	if !ok {
		return false
	}
	return s.ID == o.ID && s.GeneratedTitle == o.GeneratedTitle &&
		s.OneSentenceSummary == o.OneSentenceSummary && s.Summary == o.Summary &&
		slices.Equal(s.KeyTakeaways, o.KeyTakeaways) &&
		slices.Equal(s.NotableQuotes, o.NotableQuotes) &&
		slices.Equal(s.Entities, o.Entities)
}

func (s *LessonSection) equal(other Section) bool {
	o, ok := other.(*LessonSection)
	if !ok {
		return false
	}
	return s.ID == o.ID && s.GeneratedTitle == o.GeneratedTitle && s.Summary == o.Summary &&
		slices.Equal(s.KeyTakeaways, o.KeyTakeaways) &&
		slices.Equal(s.Lessons, o.Lessons) &&
		slices.Equal(s.QuestionsAndAnswers, o.QuestionsAndAnswers)
}

func (s *DebateSection) equal(other Section) bool {
	o, ok := other.(*DebateSection)
	if !ok {
		return false
	}
	return s.ID == o.ID && s.GeneratedTitle == o.GeneratedTitle && s.Topic == o.Topic &&
		s.Summary == o.Summary &&
		slices.Equal(s.KeyTakeaways, o.KeyTakeaways) &&
		slices.Equal(s.Viewpoints, o.Viewpoints)
}
