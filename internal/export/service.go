package export

import (
	"context"
	"fmt"
	"strings"
	"time"

	"beliefpad/api/internal/document"
	"beliefpad/api/internal/logging"
	"beliefpad/api/internal/store"
)

// Service renders documents in every export format.
type Service struct {
	logger logging.Logger
}

// NewService creates a new export service
func NewService(logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{logger: logger}
}

// Export generates an export in the requested format
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	now := req.Now
	if now.IsZero() {
		now = time.Now()
	}

	if req.Format == FormatJSON {
		if err := document.ValidateForSave(req.Document); err != nil {
			return nil, err
		}
	} else if err := document.ValidateForExport(req.Document); err != nil {
		return nil, err
	}

	var (
		result *Result
		err    error
	)
	switch req.Format {
	case FormatPDF:
		result, err = s.exportPDF(req.Document, now)
	case FormatJSON:
		result, err = s.exportJSON(req.Document, now)
	case FormatEmail:
		email := EmailContent(req.Document, now)
		result = &Result{
			Data:     []byte(email.Body),
			Filename: baseName(req.Document) + ".txt",
			MimeType: "text/plain; charset=utf-8",
		}
	case FormatHTML:
		var html string
		html, err = s.sessionHTML(req.Document, now)
		if err == nil {
			result = &Result{Data: []byte(html), Filename: baseName(req.Document) + ".html", MimeType: "text/html; charset=utf-8"}
		}
	case FormatPrint:
		result, err = s.exportPrint(ctx, req.Document, now)
	case FormatDOCX:
		result, err = s.exportDOCX(ctx, req.Document, now)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}
	if err != nil {
		s.logger.Error("export", "export failed", map[string]any{"format": string(req.Format), "error": err.Error()})
		return nil, err
	}

	s.logger.Info("export", "document exported", map[string]any{
		"format": string(req.Format),
		"bytes":  len(result.Data),
	})
	return result, nil
}

func (s *Service) exportPDF(d document.Document, now time.Time) (*Result, error) {
	data, err := RenderPDF(d, now)
	if err != nil {
		return nil, err
	}
	return &Result{Data: data, Filename: PDFFilename(d), MimeType: "application/pdf"}, nil
}

// exportJSON writes the same record the catalogue stores, named after its key.
func (s *Service) exportJSON(d document.Document, now time.Time) (*Result, error) {
	data, err := document.EncodeIndent(d, now)
	if err != nil {
		return nil, err
	}
	return &Result{
		Data:     data,
		Filename: store.NewKey(d.Title, now) + ".json",
		MimeType: "application/json",
	}, nil
}

func (s *Service) sessionHTML(d document.Document, now time.Time) (string, error) {
	html, err := RenderSessionHTML(NewTemplateData(d, now, true))
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return html, nil
}

// exportPrint renders the HTML view to PDF in headless Chrome.
func (s *Service) exportPrint(ctx context.Context, d document.Document, now time.Time) (*Result, error) {
	html, err := s.sessionHTML(d, now)
	if err != nil {
		return nil, err
	}
	data, err := printPDF(ctx, html)
	if err != nil {
		return nil, err
	}
	return &Result{Data: data, Filename: baseName(d) + ".pdf", MimeType: "application/pdf"}, nil
}

// exportDOCX converts the HTML view with pandoc.
func (s *Service) exportDOCX(ctx context.Context, d document.Document, now time.Time) (*Result, error) {
	html, err := s.sessionHTML(d, now)
	if err != nil {
		return nil, err
	}
	data, err := htmlToDOCX(ctx, html)
	if err != nil {
		return nil, err
	}
	return &Result{
		Data:     data,
		Filename: baseName(d) + ".docx",
		MimeType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}, nil
}

func baseName(d document.Document) string {
	return strings.TrimSuffix(PDFFilename(d), ".pdf")
}
