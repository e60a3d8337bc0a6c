package export

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"crucible/api/internal/analysis"
)

func sampleDocument() *analysis.Document {
	return &analysis.Document{
		Title: "Quarterly Review",
		Results: []analysis.Section{
			&analysis.ContentSection{
				ID:                 "s1",
				GeneratedTitle:     "Opening remarks",
				OneSentenceSummary: "The team met its targets.",
				Summary:            "Revenue grew & churn fell.",
				KeyTakeaways:       []string{"Growth is steady"},
				NotableQuotes:      []string{"We did it"},
				Entities:           []analysis.Entity{{Name: "Acme", Explanation: "Largest customer"}},
			},
			&analysis.DebateSection{
				ID:         "s2",
				Topic:      "Pricing",
				Viewpoints: []analysis.Viewpoint{{Speaker: "Ana", Stance: "Raise", Rationale: "Margins"}},
			},
		},
		SynthesisResults: &analysis.Synthesis{
			NarrativeSynthesis: "A good quarter.",
			OverarchingThemes:  []string{"Focus"},
			Contradictions:     []analysis.Contradiction{{PointA: "Hire", PointB: "Freeze", Analysis: "Budget tension"}},
		},
		SlideOutline:   []analysis.Slide{{Title: "Results", Bullets: []string{"Up 10%"}}},
		QuizQuestions:  []analysis.QuizQuestion{{Question: "Growth?", Options: []string{"5%", "10%"}, CorrectAnswer: "10%"}},
		GlobalBriefing: "Short briefing.",
		XThread:        []string{"1/ Quarter done"},
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "Hello-World"},
		{"My Document v1.2", "My-Document-v12"},
		{"Special!@#$%Chars", "SpecialChars"},
		{"", "document"},
		{"Café Notes", "Caf-Notes"},
		{"under_score-dash", "under_score-dash"},
		{"Very Long Title That Exceeds Fifty Characters Limit", "Very-Long-Title-That-Exceeds-Fifty-Characters-Limi"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := sanitizeFilename(tt.input)
			if result != tt.expected {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestPercentEncodeForDataURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"hello world", "hello%20world"},
		{"test+sign", "test%2Bsign"},
		{"special<>", "special%3C%3E"},
		{"normal-text.txt", "normal-text.txt"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := percentEncodeForDataURL(tt.input)
			if result != tt.expected {
				t.Errorf("percentEncodeForDataURL(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	for input, want := range map[string]Format{"pdf": FormatPDF, "docx": FormatDOCX, "markdown": FormatMarkdown, "md": FormatMarkdown} {
		got, err := ParseFormat(input)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", input, got, err)
		}
	}
	if _, err := ParseFormat("rtf"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestRenderDocumentHTML(t *testing.T) {
	meta := Meta{Author: "Dana", UpdatedAt: time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), Version: "abc123"}
	html, err := RenderDocumentHTML(NewTemplateData(sampleDocument(), meta))
	if err != nil {
		t.Fatalf("RenderDocumentHTML() error = %v", err)
	}

	for _, want := range []string{
		"Quarterly Review",
		"Mar 4, 2026",
		"version abc123",
		"Opening remarks",
		"Growth is steady",
		"Acme",
		"Ana: Raise",
		"Budget tension",
		"Up 10%",
		"Short briefing.",
		"1/ Quarter done",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("HTML missing %q", want)
		}
	}
	if !strings.Contains(html, "Revenue grew &amp; churn fell.") {
		t.Error("section text should be HTML escaped")
	}
}

func TestUntitledSectionFallsBackToID(t *testing.T) {
	data := NewTemplateData(sampleDocument(), Meta{})
	if data.Sections[1].Title != "s2" {
		t.Fatalf("section title = %q", data.Sections[1].Title)
	}
	if data.Sections[1].Subtitle != "Pricing" {
		t.Fatalf("debate subtitle = %q", data.Sections[1].Subtitle)
	}
	if data.UpdatedAt.IsZero() {
		t.Fatal("UpdatedAt should default to now")
	}
}

func TestExportMarkdown(t *testing.T) {
	result, err := NewService().Export(context.Background(), sampleDocument(), Meta{Author: "Dana"}, FormatMarkdown)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if result.Filename != "Quarterly-Review.md" {
		t.Errorf("Filename = %q", result.Filename)
	}
	if !strings.HasPrefix(result.MimeType, "text/markdown") {
		t.Errorf("MimeType = %q", result.MimeType)
	}
	md := string(result.Data)
	for _, want := range []string{
		"# Quarterly Review\n",
		"## Opening remarks",
		"- Growth is steady",
		"> We did it",
		"- **Acme**: Largest customer",
		"- **Hire** vs **Freeze**: Budget tension",
		"1. Results\n   - Up 10%",
		"Answer: 10%",
		"## Thread",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	_, err := NewService().Export(context.Background(), sampleDocument(), Meta{}, Format("rtf"))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}
