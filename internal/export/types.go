// Package export renders analysis documents as PDF, DOCX or Markdown.
package export

import (
	"errors"
	"time"
)

// Format represents the export output format
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
	FormatMarkdown Format = "markdown"
)

// ParseFormat accepts the format names used in query strings.
func ParseFormat(value string) (Format, error) {
	switch Format(value) {
	case FormatPDF, FormatDOCX, FormatMarkdown:
		return Format(value), nil
	case "md":
		return FormatMarkdown, nil
	default:
		return "", ErrUnsupportedFormat
	}
}

// Meta is the byline printed under the title.
type Meta struct {
	Author    string
	UpdatedAt time.Time
	Version   string
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrUnsupportedFormat is returned for formats other than pdf, docx and markdown.
	ErrUnsupportedFormat = errors.New("export format unsupported")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrDOCXDependencyMissing indicates DOCX export runtime dependencies are unavailable.
	ErrDOCXDependencyMissing = errors.New("export docx dependency missing")
)
