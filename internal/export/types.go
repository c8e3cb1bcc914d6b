// Package export renders session documents as PDF, JSON, email text, HTML and DOCX.
package export

import (
	"errors"
	"time"

	"beliefpad/api/internal/document"
)

// Format represents the export output format
type Format string

const (
	FormatPDF   Format = "pdf"
	FormatJSON  Format = "json"
	FormatEmail Format = "email"
	FormatHTML  Format = "html"
	// FormatPrint renders the HTML view through headless Chrome.
	FormatPrint Format = "print"
	FormatDOCX  Format = "docx"
)

// Formats lists every supported format.
var Formats = []Format{FormatPDF, FormatJSON, FormatEmail, FormatHTML, FormatPrint, FormatDOCX}

// ParseFormat validates a user supplied format name.
func ParseFormat(value string) (Format, error) {
	for _, f := range Formats {
		if string(f) == value {
			return f, nil
		}
	}
	return "", ErrUnsupportedFormat
}

// Request contains parameters for an export operation
type Request struct {
	Document document.Document
	Format   Format
	// Now stamps JSON output and the session date. Zero means time.Now.
	Now time.Time
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrUnsupportedFormat is returned for unknown format names.
	ErrUnsupportedFormat = errors.New("unsupported export format")
	// ErrPDFDependencyMissing indicates print export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	// ErrDOCXDependencyMissing indicates DOCX export runtime dependencies are unavailable.
	ErrDOCXDependencyMissing = errors.New("export docx dependency missing")
)
