package analysis

import "slices"

// NewItemText is the placeholder appended to synthesis and argument lists.
const NewItemText = "New Item"

// NewSlideTitle is the title given to an appended slide.
const NewSlideTitle = "New Slide"

// Mutation transforms a document without modifying it. The returned document
// shares every untouched subtree with its input; anything a mutation changes
// is copied first. A mutation that cannot be applied (unknown section,
// field not valid for the section kind, index out of range) returns its
// input unchanged.
type Mutation func(*Document) *Document

// SynthesisList names a string list of the synthesis block.
type SynthesisList string

const (
	SynthesisOverarchingThemes SynthesisList = "overarchingThemes"
	SynthesisUnifyingInsights  SynthesisList = "unifyingInsights"
)

// ArgumentList names a string list of the argument structure.
type ArgumentList string

const (
	ArgumentsSupporting ArgumentList = "supportingArguments"
	ArgumentsCounter    ArgumentList = "counterargumentsMentioned"
)

// Apply runs mutations in order and returns the final document.
func Apply(doc *Document, mutations ...Mutation) *Document {
	for _, mutate := range mutations {
		if mutate == nil {
			continue
		}
		doc = mutate(doc)
	}
	return doc
}

func SetTitle(value string) Mutation {
	return func(doc *Document) *Document {
		if doc == nil {
			return nil
		}
		out := doc.shallow()
		out.Title = value
		return out
	}
}

func SetGlobalBriefing(value string) Mutation {
	return func(doc *Document) *Document {
		if doc == nil {
			return nil
		}
		out := doc.shallow()
		out.GlobalBriefing = value
		return out
	}
}

func SetBlogPost(value string) Mutation {
	return func(doc *Document) *Document {
		if doc == nil {
			return nil
		}
		out := doc.shallow()
		out.BlogPost = value
		return out
	}
}

func SetXThreadPost(index int, value string) Mutation {
	return func(doc *Document) *Document {
		if doc == nil {
			return nil
		}
		next, ok := setAt(doc.XThread, index, value)
		if !ok {
			return doc
		}
		out := doc.shallow()
		out.XThread = next
		return out
	}
}

func AddXThreadPost() Mutation {
	return func(doc *Document) *Document {
		if doc == nil {
			return nil
		}
		out := doc.shallow()
		out.XThread = appendCopy(doc.XThread, "")
		return out
	}
}

func DeleteXThreadPost(index int) Mutation {
	return func(doc *Document) *Document {
		if doc == nil {
			return nil
		}
		next, ok := deleteAt(doc.XThread, index)
		if !ok {
			return doc
		}
		out := doc.shallow()
		out.XThread = next
		return out
	}
}

// updateSection applies fn to a private copy of the section with the given
// id and splices the copy into a new document. fn reports whether it changed
// anything.
func updateSection(doc *Document, sectionID string, fn func(Section) bool) *Document {
	if doc == nil {
		return nil
	}
	for i, section := range doc.Results {
		if section == nil || section.SectionID() != sectionID {
			continue
		}
		next := section.shallow()
		if !fn(next) {
			return doc
		}
		out := doc.shallow()
		out.Results = slices.Clone(doc.Results)
		out.Results[i] = next
		return out
	}
	return doc
}

// SetField replaces a scalar text field of a section.
func SetField(sectionID string, field TextField, value string) Mutation {
	return func(doc *Document) *Document {
		return updateSection(doc, sectionID, func(s Section) bool {
			target, ok := s.text(field)
			if !ok {
				return false
			}
			*target = value
			return true
		})
	}
}

// SetListItem replaces one element of a section's string list.
func SetListItem(sectionID string, field ListField, index int, value string) Mutation {
	return func(doc *Document) *Document {
		return updateSection(doc, sectionID, func(s Section) bool {
			items, ok := s.list(field)
			if !ok {
				return false
			}
			next, ok := setAt(*items, index, value)
			if !ok {
				return false
			}
			*items = next
			return true
		})
	}
}

// AddListItem appends an empty string to a section's string list.
func AddListItem(sectionID string, field ListField) Mutation {
	return func(doc *Document) *Document {
		return updateSection(doc, sectionID, func(s Section) bool {
			items, ok := s.list(field)
			if !ok {
				return false
			}
			*items = appendCopy(*items, "")
			return true
		})
	}
}

// DeleteListItem removes one element of a section's string list.
func DeleteListItem(sectionID string, field ListField, index int) Mutation {
	return func(doc *Document) *Document {
		return updateSection(doc, sectionID, func(s Section) bool {
			items, ok := s.list(field)
			if !ok {
				return false
			}
			next, ok := deleteAt(*items, index)
			if !ok {
				return false
			}
			*items = next
			return true
		})
	}
}

// SetRecordProperty replaces one property of one record in a section's
// record list.
func SetRecordProperty(sectionID string, field RecordField, index int, prop Property, value string) Mutation {
	return func(doc *Document) *Document {
		return updateSection(doc, sectionID, func(s Section) bool {
			list, ok := s.records(field)
			if !ok {
				return false
			}
			return list.set(index, prop, value)
		})
	}
}

// AddRecord appends a zero-valued record to a section's record list.
func AddRecord(sectionID string, field RecordField) Mutation {
	return func(doc *Document) *Document {
		return updateSection(doc, sectionID, func(s Section) bool {
			list, ok := s.records(field)
			if !ok {
				return false
			}
			list.add()
			return true
		})
	}
}

func DeleteRecord(sectionID string, field RecordField, index int) Mutation {
	return func(doc *Document) *Document {
		return updateSection(doc, sectionID, func(s Section) bool {
			list, ok := s.records(field)
			if !ok {
				return false
			}
			return list.remove(index)
		})
	}
}

// updateSynthesis creates the synthesis block with its defaults when absent
// and applies fn to a private copy of it.
func updateSynthesis(doc *Document, fn func(*Synthesis) bool) *Document {
	if doc == nil {
		return nil
	}
	created := doc.SynthesisResults == nil
	var next Synthesis
	if created {
		next = *EmptySynthesis()
	} else {
		next = *doc.SynthesisResults
	}
	if !fn(&next) && !created {
		return doc
	}
	out := doc.shallow()
	out.SynthesisResults = &next
	return out
}

func (s *Synthesis) list(field SynthesisList) (*[]string, bool) {
	switch field {
	case SynthesisOverarchingThemes:
		return &s.OverarchingThemes, true
	case SynthesisUnifyingInsights:
		return &s.UnifyingInsights, true
	default:
		return nil, false
	}
}

func SetSynthesisNarrative(value string) Mutation {
	return func(doc *Document) *Document {
		return updateSynthesis(doc, func(s *Synthesis) bool {
			s.NarrativeSynthesis = value
			return true
		})
	}
}

func SetSynthesisItem(field SynthesisList, index int, value string) Mutation {
	return func(doc *Document) *Document {
		return updateSynthesis(doc, func(s *Synthesis) bool {
			items, ok := s.list(field)
			if !ok {
				return false
			}
			next, ok := setAt(*items, index, value)
			if !ok {
				return false
			}
			*items = next
			return true
		})
	}
}

// AddSynthesisItem appends NewItemText to a synthesis list.
func AddSynthesisItem(field SynthesisList) Mutation {
	return func(doc *Document) *Document {
		return updateSynthesis(doc, func(s *Synthesis) bool {
			items, ok := s.list(field)
			if !ok {
				return false
			}
			*items = appendCopy(*items, NewItemText)
			return true
		})
	}
}

func DeleteSynthesisItem(field SynthesisList, index int) Mutation {
	return func(doc *Document) *Document {
		return updateSynthesis(doc, func(s *Synthesis) bool {
			items, ok := s.list(field)
			if !ok {
				return false
			}
			next, ok := deleteAt(*items, index)
			if !ok {
				return false
			}
			*items = next
			return true
		})
	}
}

func SetContradiction(index int, prop Property, value string) Mutation {
	return func(doc *Document) *Document {
		return updateSynthesis(doc, func(s *Synthesis) bool {
			list := recordSlice[Contradiction, *Contradiction]{items: &s.Contradictions}
			return list.set(index, prop, value)
		})
	}
}

func AddContradiction() Mutation {
	return func(doc *Document) *Document {
		return updateSynthesis(doc, func(s *Synthesis) bool {
			recordSlice[Contradiction, *Contradiction]{items: &s.Contradictions}.add()
			return true
		})
	}
}

func DeleteContradiction(index int) Mutation {
	return func(doc *Document) *Document {
		return updateSynthesis(doc, func(s *Synthesis) bool {
			list := recordSlice[Contradiction, *Contradiction]{items: &s.Contradictions}
			return list.remove(index)
		})
	}
}

func updateArguments(doc *Document, fn func(*ArgumentStructure) bool) *Document {
	if doc == nil {
		return nil
	}
	created := doc.ArgumentStructure == nil
	var next ArgumentStructure
	if created {
		next = *EmptyArgumentStructure()
	} else {
		next = *doc.ArgumentStructure
	}
	if !fn(&next) && !created {
		return doc
	}
	out := doc.shallow()
	out.ArgumentStructure = &next
	return out
}

func (a *ArgumentStructure) list(field ArgumentList) (*[]string, bool) {
	switch field {
	case ArgumentsSupporting:
		return &a.SupportingArguments, true
	case ArgumentsCounter:
		return &a.CounterargumentsMentioned, true
	default:
		return nil, false
	}
}

func SetMainThesis(value string) Mutation {
	return func(doc *Document) *Document {
		return updateArguments(doc, func(a *ArgumentStructure) bool {
			a.MainThesis = value
			return true
		})
	}
}

func SetArgumentItem(field ArgumentList, index int, value string) Mutation {
	return func(doc *Document) *Document {
		return updateArguments(doc, func(a *ArgumentStructure) bool {
			items, ok := a.list(field)
			if !ok {
				return false
			}
			next, ok := setAt(*items, index, value)
			if !ok {
				return false
			}
			*items = next
			return true
		})
	}
}

// AddArgumentItem appends NewItemText to an argument list.
func AddArgumentItem(field ArgumentList) Mutation {
	return func(doc *Document) *Document {
		return updateArguments(doc, func(a *ArgumentStructure) bool {
			items, ok := a.list(field)
			if !ok {
				return false
			}
			*items = appendCopy(*items, NewItemText)
			return true
		})
	}
}

func DeleteArgumentItem(field ArgumentList, index int) Mutation {
	return func(doc *Document) *Document {
		return updateArguments(doc, func(a *ArgumentStructure) bool {
			items, ok := a.list(field)
			if !ok {
				return false
			}
			next, ok := deleteAt(*items, index)
			if !ok {
				return false
			}
			*items = next
			return true
		})
	}
}

// updateSlide applies fn to a private copy of slide i.
func updateSlide(doc *Document, index int, fn func(*Slide) bool) *Document {
	if doc == nil {
		return nil
	}
	if index < 0 || index >= len(doc.SlideOutline) {
		return doc
	}
	slide := doc.SlideOutline[index]
	if !fn(&slide) {
		return doc
	}
	out := doc.shallow()
	out.SlideOutline = slices.Clone(doc.SlideOutline)
	out.SlideOutline[index] = slide
	return out
}

func SetSlideTitle(index int, value string) Mutation {
	return func(doc *Document) *Document {
		return updateSlide(doc, index, func(s *Slide) bool {
			s.Title = value
			return true
		})
	}
}

func SetSlideBullet(index, bullet int, value string) Mutation {
	return func(doc *Document) *Document {
		return updateSlide(doc, index, func(s *Slide) bool {
			next, ok := setAt(s.Bullets, bullet, value)
			if !ok {
				return false
			}
			s.Bullets = next
			return true
		})
	}
}

func AddSlideBullet(index int) Mutation {
	return func(doc *Document) *Document {
		return updateSlide(doc, index, func(s *Slide) bool {
			s.Bullets = appendCopy(s.Bullets, "")
			return true
		})
	}
}

func DeleteSlideBullet(index, bullet int) Mutation {
	return func(doc *Document) *Document {
		return updateSlide(doc, index, func(s *Slide) bool {
			next, ok := deleteAt(s.Bullets, bullet)
			if !ok {
				return false
			}
			s.Bullets = next
			return true
		})
	}
}

func AddSlide() Mutation {
	return func(doc *Document) *Document {
		if doc == nil {
			return nil
		}
		out := doc.shallow()
		out.SlideOutline = appendCopy(doc.SlideOutline, Slide{Title: NewSlideTitle, Bullets: []string{}})
		return out
	}
}

func DeleteSlide(index int) Mutation {
	return func(doc *Document) *Document {
		if doc == nil {
			return nil
		}
		next, ok := deleteAt(doc.SlideOutline, index)
		if !ok {
			return doc
		}
		out := doc.shallow()
		out.SlideOutline = next
		return out
	}
}
