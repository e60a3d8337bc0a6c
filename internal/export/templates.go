package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"time"

	"crucible/api/internal/analysis"
)

//go:embed templates/*.html
var templateFS embed.FS

var documentTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"lower": strings.ToLower,
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
		"inc": func(i int) int { return i + 1 },
	}

	templateContent, err := templateFS.ReadFile("templates/document.html")
	if err != nil {
		// Fallback to built-in template if file not found
		documentTemplate = template.Must(template.New("document").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}

	documentTemplate = template.Must(template.New("document").Funcs(funcMap).Parse(string(templateContent)))
}

// TemplateData holds data for document template rendering
type TemplateData struct {
	Title          string
	Author         string
	Version        string
	UpdatedAt      time.Time
	Sections       []TemplateSection
	Synthesis      *analysis.Synthesis
	Arguments      *analysis.ArgumentStructure
	Slides         []analysis.Slide
	Quiz           []analysis.QuizQuestion
	OpenEnded      []analysis.OpenEndedQuestion
	GlobalBriefing string
	BlogPost       string
	XThread        []string
}

// TemplateSection flattens one result section for rendering.
type TemplateSection struct {
	Kind      string
	Title     string
	Subtitle  string
	Summary   string
	Takeaways []string
	Quotes    []string
	Groups    []TemplateGroup
}

// TemplateGroup is a labelled list of records, e.g. "Entities".
type TemplateGroup struct {
	Label   string
	Records []TemplateRecord
}

// TemplateRecord holds one entity, lesson, Q&A pair or viewpoint.
type TemplateRecord struct {
	Heading string
	Body    string
}

// NewTemplateData builds the render model for doc.
func NewTemplateData(doc *analysis.Document, meta Meta) TemplateData {
	data := TemplateData{
		Title:          doc.Title,
		Author:         meta.Author,
		Version:        meta.Version,
		UpdatedAt:      meta.UpdatedAt,
		Synthesis:      doc.SynthesisResults,
		Arguments:      doc.ArgumentStructure,
		Slides:         doc.SlideOutline,
		Quiz:           doc.QuizQuestions,
		OpenEnded:      doc.OpenEndedQuestions,
		GlobalBriefing: doc.GlobalBriefing,
		BlogPost:       doc.BlogPost,
		XThread:        doc.XThread,
	}
	if data.Title == "" {
		data.Title = "Untitled analysis"
	}
	if data.UpdatedAt.IsZero() {
		data.UpdatedAt = time.Now()
	}
	for _, section := range doc.Results {
		if section == nil {
			continue
		}
		data.Sections = append(data.Sections, templateSection(section))
	}
	return data
}

func templateSection(section analysis.Section) TemplateSection {
	out := TemplateSection{Kind: string(section.Kind())}
	switch s := section.(type) {
	case *analysis.ContentSection:
		out.Title = s.GeneratedTitle
		out.Subtitle = s.OneSentenceSummary
		out.Summary = s.Summary
		out.Takeaways = s.KeyTakeaways
		out.Quotes = s.NotableQuotes
		group := TemplateGroup{Label: "Entities"}
		for _, e := range s.Entities {
			group.Records = append(group.Records, TemplateRecord{Heading: e.Name, Body: e.Explanation})
		}
		out.Groups = appendGroup(out.Groups, group)
	case *analysis.LessonSection:
		out.Title = s.GeneratedTitle
		out.Summary = s.Summary
		out.Takeaways = s.KeyTakeaways
		lessons := TemplateGroup{Label: "Lessons"}
		for _, l := range s.Lessons {
			lessons.Records = append(lessons.Records, TemplateRecord{Heading: l.Concept, Body: l.Explanation})
		}
		qa := TemplateGroup{Label: "Questions and answers"}
		for _, p := range s.QuestionsAndAnswers {
			qa.Records = append(qa.Records, TemplateRecord{Heading: p.Question, Body: p.Answer})
		}
		out.Groups = appendGroup(appendGroup(out.Groups, lessons), qa)
	case *analysis.DebateSection:
		out.Title = s.GeneratedTitle
		out.Subtitle = s.Topic
		out.Summary = s.Summary
		out.Takeaways = s.KeyTakeaways
		group := TemplateGroup{Label: "Viewpoints"}
		for _, v := range s.Viewpoints {
			heading := v.Speaker
			if v.Stance != "" {
				heading += ": " + v.Stance
			}
			group.Records = append(group.Records, TemplateRecord{Heading: heading, Body: v.Rationale})
		}
		out.Groups = appendGroup(out.Groups, group)
	}
	if out.Title == "" {
		out.Title = section.SectionID()
	}
	return out
}

func appendGroup(groups []TemplateGroup, group TemplateGroup) []TemplateGroup {
	if len(group.Records) == 0 {
		return groups
	}
	return append(groups, group)
}

// RenderDocumentHTML renders the document template with provided data
func RenderDocumentHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := documentTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fallbackTemplate is used if the embedded template fails to load
const fallbackTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; max-width: 800px; margin: 2rem auto; }
    h1 { border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
  </style>
</head>
<body>
  <h1>{{.Title}}</h1>
  <div class="meta">{{.Author}} | {{.UpdatedAt.Format "Jan 2, 2006"}}</div>
  {{range .Sections}}
  <h2>{{.Title}}</h2>
  <p>{{.Summary}}</p>
  {{if .Takeaways}}<ul>{{range .Takeaways}}<li>{{.}}</li>{{end}}</ul>{{end}}
  {{end}}
  {{if .GlobalBriefing}}<h2>Briefing</h2><p>{{.GlobalBriefing}}</p>{{end}}
</body>
</html>`
