package analysis

import "strings"

// Summaries returns each section's summary in order, skipping blanks.
func (d *Document) Summaries() []string {
	if d == nil {
		return nil
	}
	out := make([]string, 0, len(d.Results))
	for _, section := range d.Results {
		if section == nil {
			continue
		}
		if summary, ok := section.text(FieldSummary); ok && strings.TrimSpace(*summary) != "" {
			out = append(out, *summary)
		}
	}
	return out
}

// Takeaways flattens every section's key takeaways.
func (d *Document) Takeaways() []string {
	if d == nil {
		return nil
	}
	var out []string
	for _, section := range d.Results {
		if section == nil {
			continue
		}
		if items, ok := section.list(ListKeyTakeaways); ok {
			out = append(out, *items...)
		}
	}
	return out
}

// SearchText is the plain text a document is found by.
func (d *Document) SearchText() string {
	if d == nil {
		return ""
	}
	parts := append(d.Summaries(), d.Takeaways()...)
	if d.GlobalBriefing != "" {
		parts = append(parts, d.GlobalBriefing)
	}
	return strings.Join(parts, "\n")
}
