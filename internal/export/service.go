package export

import (
	"context"
	"fmt"

	"crucible/api/internal/analysis"
)

// Service provides document export functionality
type Service struct{}

// NewService creates a new export service
func NewService() *Service {
	return &Service{}
}

// Export renders doc in the requested format
func (s *Service) Export(ctx context.Context, doc *analysis.Document, meta Meta, format Format) (*Result, error) {
	if doc == nil {
		return nil, fmt.Errorf("export: nil document")
	}

	if format == FormatMarkdown {
		return &Result{
			Data:     []byte(RenderMarkdown(doc, meta)),
			Filename: sanitizeFilename(doc.Title) + ".md",
			MimeType: "text/markdown; charset=utf-8",
		}, nil
	}

	html, err := RenderDocumentHTML(NewTemplateData(doc, meta))
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	switch format {
	case FormatPDF:
		return exportPDF(ctx, html, doc.Title)
	case FormatDOCX:
		return exportDOCX(ctx, html, doc.Title)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
