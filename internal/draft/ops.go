package draft

import (
	"encoding/json"
	"fmt"
	"io"

	"crucible/api/internal/analysis"
)

// Op is a serialisable edit instruction. Scripts of ops are how the CLI
// drives an edit session.
type Op struct {
	Op       string `json:"op"`
	Section  string `json:"section,omitempty"`
	Field    string `json:"field,omitempty"`
	Property string `json:"property,omitempty"`
	Index    int    `json:"index,omitempty"`
	Item     int    `json:"item,omitempty"`
	Value    string `json:"value,omitempty"`
}

// Mutation compiles the op. Unknown op names are rejected here; bad
// locators are not, they become no-op mutations like any other.
func (o Op) Mutation() (analysis.Mutation, error) {
	switch o.Op {
	case "setTitle":
		return analysis.SetTitle(o.Value), nil
	case "setGlobalBriefing":
		return analysis.SetGlobalBriefing(o.Value), nil
	case "setBlogPost":
		return analysis.SetBlogPost(o.Value), nil
	case "setXThreadPost":
		return analysis.SetXThreadPost(o.Index, o.Value), nil
	case "addXThreadPost":
		return analysis.AddXThreadPost(), nil
	case "deleteXThreadPost":
		return analysis.DeleteXThreadPost(o.Index), nil
	case "setField":
		return analysis.SetField(o.Section, analysis.TextField(o.Field), o.Value), nil
	case "setListItem":
		return analysis.SetListItem(o.Section, analysis.ListField(o.Field), o.Index, o.Value), nil
	case "addListItem":
		return analysis.AddListItem(o.Section, analysis.ListField(o.Field)), nil
	case "deleteListItem":
		return analysis.DeleteListItem(o.Section, analysis.ListField(o.Field), o.Index), nil
	case "setRecord":
		return analysis.SetRecordProperty(o.Section, analysis.RecordField(o.Field), o.Index, analysis.Property(o.Property), o.Value), nil
	case "addRecord":
		return analysis.AddRecord(o.Section, analysis.RecordField(o.Field)), nil
	case "deleteRecord":
		return analysis.DeleteRecord(o.Section, analysis.RecordField(o.Field), o.Index), nil
	case "setSynthesisNarrative":
		return analysis.SetSynthesisNarrative(o.Value), nil
	case "setSynthesisItem":
		return analysis.SetSynthesisItem(analysis.SynthesisList(o.Field), o.Index, o.Value), nil
	case "addSynthesisItem":
		return analysis.AddSynthesisItem(analysis.SynthesisList(o.Field)), nil
	case "deleteSynthesisItem":
		return analysis.DeleteSynthesisItem(analysis.SynthesisList(o.Field), o.Index), nil
	case "setContradiction":
		return analysis.SetContradiction(o.Index, analysis.Property(o.Property), o.Value), nil
	case "addContradiction":
		return analysis.AddContradiction(), nil
	case "deleteContradiction":
		return analysis.DeleteContradiction(o.Index), nil
	case "setMainThesis":
		return analysis.SetMainThesis(o.Value), nil
	case "setArgumentItem":
		return analysis.SetArgumentItem(analysis.ArgumentList(o.Field), o.Index, o.Value), nil
	case "addArgumentItem":
		return analysis.AddArgumentItem(analysis.ArgumentList(o.Field)), nil
	case "deleteArgumentItem":
		return analysis.DeleteArgumentItem(analysis.ArgumentList(o.Field), o.Index), nil
	case "setSlideTitle":
		return analysis.SetSlideTitle(o.Index, o.Value), nil
	case "setSlideBullet":
		return analysis.SetSlideBullet(o.Index, o.Item, o.Value), nil
	case "addSlide":
		return analysis.AddSlide(), nil
	case "deleteSlide":
		return analysis.DeleteSlide(o.Index), nil
	case "addSlideBullet":
		return analysis.AddSlideBullet(o.Index), nil
	case "deleteSlideBullet":
		return analysis.DeleteSlideBullet(o.Index, o.Item), nil
	default:
		return nil, fmt.Errorf("unknown op %q", o.Op)
	}
}

// ReadScript decodes a JSON array of ops and compiles them in order.
func ReadScript(r io.Reader) ([]analysis.Mutation, error) {
	var ops []Op
	if err := json.NewDecoder(r).Decode(&ops); err != nil {
		return nil, fmt.Errorf("decode edit script: %w", err)
	}
	mutations := make([]analysis.Mutation, 0, len(ops))
	for i, op := range ops {
		mutation, err := op.Mutation()
		if err != nil {
			return nil, fmt.Errorf("op %d: %w", i, err)
		}
		mutations = append(mutations, mutation)
	}
	return mutations, nil
}
