package analysis

import "encoding/json"

// BulkUpdate is the whole-document payload sent on commit. Every editable
// part of the document travels together; quiz and open-ended questions are
// not editable and are kept from the stored copy.
type BulkUpdate struct {
	UpdatedJobTitle          string             `json:"updatedJobTitle"`
	UpdatedResults           []Section          `json:"updatedResults"`
	UpdatedSlideDeck         []Slide            `json:"updatedSlideDeck"`
	UpdatedSynthesisResults  *Synthesis         `json:"updatedSynthesisResults"`
	UpdatedArgumentStructure *ArgumentStructure `json:"updatedArgumentStructure"`
	UpdatedGlobalBriefing    string             `json:"updatedGlobalBriefing"`
	UpdatedBlogPost          string             `json:"updatedBlogPost"`
	UpdatedXThread           []string           `json:"updatedXThread"`
}

// NewBulkUpdate captures the editable parts of doc.
func NewBulkUpdate(doc *Document) BulkUpdate {
	if doc == nil {
		return BulkUpdate{}
	}
	return BulkUpdate{
		UpdatedJobTitle:          doc.Title,
		UpdatedResults:           doc.Results,
		UpdatedSlideDeck:         doc.SlideOutline,
		UpdatedSynthesisResults:  doc.SynthesisResults,
		UpdatedArgumentStructure: doc.ArgumentStructure,
		UpdatedGlobalBriefing:    doc.GlobalBriefing,
		UpdatedBlogPost:          doc.BlogPost,
		UpdatedXThread:           doc.XThread,
	}
}

// ApplyTo returns a new document made of base's read-only parts and the
// update's editable parts. base is not modified.
func (b BulkUpdate) ApplyTo(base *Document) *Document {
	next := &Document{}
	if base != nil {
		next = base.Clone()
	}
	next.Title = b.UpdatedJobTitle
	next.Results = b.UpdatedResults
	next.SlideOutline = b.UpdatedSlideDeck
	next.SynthesisResults = b.UpdatedSynthesisResults
	next.ArgumentStructure = b.UpdatedArgumentStructure
	next.GlobalBriefing = b.UpdatedGlobalBriefing
	next.BlogPost = b.UpdatedBlogPost
	next.XThread = b.UpdatedXThread
	return next.Clone()
}

func (b *BulkUpdate) UnmarshalJSON(data []byte) error {
	type alias BulkUpdate
	aux := struct {
		*alias
		UpdatedResults []json.RawMessage `json:"updatedResults"`
	}{alias: (*alias)(b)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.UpdatedResults == nil {
		b.UpdatedResults = nil
		return nil
	}
	sections, err := DecodeSections(aux.UpdatedResults)
	if err != nil {
		return err
	}
	b.UpdatedResults = sections
	return nil
}
