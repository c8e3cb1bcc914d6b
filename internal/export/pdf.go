package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"beliefpad/api/internal/document"
)

// fpdfMeasurer measures with the core Helvetica metrics of the document being built.
type fpdfMeasurer struct {
	pdf       *fpdf.Fpdf
	translate func(string) string
}

func (m fpdfMeasurer) TextWidth(text string, style FontStyle, size float64) float64 {
	m.pdf.SetFont("Helvetica", string(style), size)
	return m.pdf.GetStringWidth(m.translate(text))
}

// RenderPDF produces the paginated session PDF.
func RenderPDF(d document.Document, date time.Time) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(Margin, Margin, Margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(EmailSubject(d), true)
	pdf.SetCreator("beliefpad", true)
	translate := pdf.UnicodeTranslatorFromDescriptor("")

	layout := LayoutPDF(d, date, fpdfMeasurer{pdf: pdf, translate: translate})

	page := 0
	for _, op := range layout.Ops {
		for page < op.Page {
			pdf.AddPage()
			page++
		}
		switch op.Kind {
		case OpText:
			pdf.SetFont("Helvetica", string(op.Style), op.Size)
			pdf.Text(op.X, op.Y, translate(op.Text))
		case OpRule:
			pdf.SetLineWidth(0.5)
			pdf.Line(op.X, op.Y, op.X2, op.Y)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// PDFFilename is the download name of the session PDF.
func PDFFilename(d document.Document) string {
	return fmt.Sprintf("Belief Code for %s - %s.pdf", strings.TrimSpace(d.Title), d.Subject)
}
