package export

import (
	"fmt"
	"strings"

	"crucible/api/internal/analysis"
)

// RenderMarkdown writes doc as a Markdown report.
func RenderMarkdown(doc *analysis.Document, meta Meta) string {
	data := NewTemplateData(doc, meta)
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", data.Title)
	var byline []string
	if data.Author != "" {
		byline = append(byline, data.Author)
	}
	byline = append(byline, data.UpdatedAt.Format("Jan 2, 2006"))
	if data.Version != "" {
		byline = append(byline, "version "+data.Version)
	}
	fmt.Fprintf(&b, "_%s_\n\n", strings.Join(byline, " | "))

	if data.GlobalBriefing != "" {
		fmt.Fprintf(&b, "## Briefing\n\n%s\n\n", data.GlobalBriefing)
	}

	for _, section := range data.Sections {
		fmt.Fprintf(&b, "## %s\n\n", section.Title)
		if section.Subtitle != "" {
			fmt.Fprintf(&b, "_%s_\n\n", section.Subtitle)
		}
		if section.Summary != "" {
			fmt.Fprintf(&b, "%s\n\n", section.Summary)
		}
		writeBullets(&b, "Key takeaways", section.Takeaways)
		if len(section.Quotes) > 0 {
			b.WriteString("### Notable quotes\n\n")
			for _, quote := range section.Quotes {
				fmt.Fprintf(&b, "> %s\n\n", quote)
			}
		}
		for _, group := range section.Groups {
			fmt.Fprintf(&b, "### %s\n\n", group.Label)
			for _, record := range group.Records {
				fmt.Fprintf(&b, "- **%s**: %s\n", record.Heading, record.Body)
			}
			b.WriteString("\n")
		}
	}

	if s := data.Synthesis; s != nil {
		b.WriteString("## Synthesis\n\n")
		if s.NarrativeSynthesis != "" {
			fmt.Fprintf(&b, "%s\n\n", s.NarrativeSynthesis)
		}
		writeBullets(&b, "Overarching themes", s.OverarchingThemes)
		writeBullets(&b, "Unifying insights", s.UnifyingInsights)
		if len(s.Contradictions) > 0 {
			b.WriteString("### Contradictions\n\n")
			for _, c := range s.Contradictions {
				fmt.Fprintf(&b, "- **%s** vs **%s**: %s\n", c.PointA, c.PointB, c.Analysis)
			}
			b.WriteString("\n")
		}
	}

	if a := data.Arguments; a != nil {
		b.WriteString("## Argument structure\n\n")
		if a.MainThesis != "" {
			fmt.Fprintf(&b, "**Thesis:** %s\n\n", a.MainThesis)
		}
		writeBullets(&b, "Supporting arguments", a.SupportingArguments)
		writeBullets(&b, "Counterarguments", a.CounterargumentsMentioned)
	}

	if len(data.Slides) > 0 {
		b.WriteString("## Slide outline\n\n")
		for i, slide := range data.Slides {
			fmt.Fprintf(&b, "%d. %s\n", i+1, slide.Title)
			for _, bullet := range slide.Bullets {
				fmt.Fprintf(&b, "   - %s\n", bullet)
			}
		}
		b.WriteString("\n")
	}

	if len(data.Quiz) > 0 {
		b.WriteString("## Quiz\n\n")
		for i, q := range data.Quiz {
			fmt.Fprintf(&b, "%d. %s\n", i+1, q.Question)
			for _, option := range q.Options {
				fmt.Fprintf(&b, "   - %s\n", option)
			}
			fmt.Fprintf(&b, "   \n   Answer: %s\n", q.CorrectAnswer)
		}
		b.WriteString("\n")
	}

	if len(data.OpenEnded) > 0 {
		b.WriteString("## Discussion questions\n\n")
		for i, q := range data.OpenEnded {
			fmt.Fprintf(&b, "%d. %s\n", i+1, q.Question)
			for _, point := range q.GuidingPoints {
				fmt.Fprintf(&b, "   - %s\n", point)
			}
		}
		b.WriteString("\n")
	}

	if data.BlogPost != "" {
		fmt.Fprintf(&b, "## Blog post\n\n%s\n\n", data.BlogPost)
	}

	if len(data.XThread) > 0 {
		b.WriteString("## Thread\n\n")
		for i, post := range data.XThread {
			fmt.Fprintf(&b, "%d. %s\n", i+1, post)
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func writeBullets(b *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "### %s\n\n", heading)
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}
