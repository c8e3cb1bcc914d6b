package export

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"beliefpad/api/internal/document"
)

// fixedMeasurer gives every rune the same width.
type fixedMeasurer float64

func (m fixedMeasurer) TextWidth(text string, _ FontStyle, _ float64) float64 {
	return float64(utf8.RuneCountInString(text)) * float64(m)
}

func TestWrap(t *testing.T) {
	m := fixedMeasurer(2)
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"fits", "short", []string{"short"}},
		{"greedy", "aaa bbb ccc", []string{"aaa bbb", "ccc"}},
		{"long word", "abcdefghijklmnopqrstuvwxy", []string{"abcdefghij", "klmnopqrst", "uvwxy"}},
		{"newlines kept", "a\n\nb", []string{"a", "", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Wrap(tt.input, 20, m, Regular, 12)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Wrap(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestLayoutPDFHeaderAndPlaceholder(t *testing.T) {
	doc := document.New()
	doc.Title = "Jane"
	doc.Sections = []document.Section{{ID: "1", Heading: "NP", Content: " "}}

	layout := LayoutPDF(doc, sessionDay, fixedMeasurer(1.5))
	texts := layout.Texts()
	if texts[0] != "Belief Code Session for Jane" {
		t.Fatalf("unexpected title %q", texts[0])
	}
	joined := strings.Join(texts, "|")
	if !strings.Contains(joined, "Session Date: 3/5/2024") {
		t.Fatalf("expected session date in %s", joined)
	}
	if !strings.Contains(joined, "NO SECTIONS|No content available.") {
		t.Fatalf("expected placeholder section, got %s", joined)
	}
	if strings.Contains(joined, "NEGATIVE PROGRAM") {
		t.Fatalf("blank section should be skipped")
	}
}

func TestLayoutPDFPaginates(t *testing.T) {
	doc := document.New()
	doc.Title = "Jane"
	for i := 0; i < 60; i++ {
		doc.Sections = append(doc.Sections, document.Section{
			ID:      fmt.Sprint(i),
			Heading: "NP",
			Content: strings.Repeat("word ", 30),
		})
	}

	layout := LayoutPDF(doc, sessionDay, fixedMeasurer(2))
	if layout.Pages < 2 {
		t.Fatalf("expected several pages, got %d", layout.Pages)
	}
	page := 1
	for _, op := range layout.Ops {
		if op.Page < page {
			t.Fatalf("pages must not go backwards")
		}
		page = op.Page
		if op.Y > PageHeight-Margin {
			t.Fatalf("op %q drawn in bottom margin at y=%.1f", op.Text, op.Y)
		}
	}
	if page != layout.Pages {
		t.Fatalf("expected last op on page %d, got %d", layout.Pages, page)
	}
}

func TestLayoutPDFLongHeadingMovesContentDown(t *testing.T) {
	doc := document.New()
	doc.Title = "Jane"
	heading := strings.Repeat("X", 70)
	doc.Sections = []document.Section{{ID: "1", Heading: heading, Content: "content"}}

	layout := LayoutPDF(doc, sessionDay, fixedMeasurer(2))
	var headingOp, contentOp Op
	for _, op := range layout.Ops {
		switch op.Text {
		case heading:
			headingOp = op
		case "content":
			contentOp = op
		}
	}
	if contentOp.X != Margin+HeadingGap {
		t.Fatalf("expected content at the indented margin, got x=%.1f", contentOp.X)
	}
	if contentOp.Y != headingOp.Y+LineHeight {
		t.Fatalf("expected content one line below heading")
	}
}

func TestLayoutPDFContentBesideHeading(t *testing.T) {
	doc := document.New()
	doc.Title = "Jane"
	doc.Sections = []document.Section{{ID: "1", Heading: "NP", Content: "content"}}

	layout := LayoutPDF(doc, sessionDay, fixedMeasurer(2))
	for _, op := range layout.Ops {
		if op.Text == "content" {
			want := Margin + 2*float64(len("NEGATIVE PROGRAM")) + HeadingGap
			if op.X != want {
				t.Fatalf("expected content at x=%.1f, got %.1f", want, op.X)
			}
			return
		}
	}
	t.Fatalf("content not laid out")
}

func TestRenderPDF(t *testing.T) {
	doc := document.New()
	doc.Title = "Jane"
	doc.Subject = "Flying"
	doc.Sections = []document.Section{{ID: "1", Heading: "NP", Content: "I am unsafe"}}

	data, err := RenderPDF(doc, sessionDay)
	if err != nil {
		t.Fatalf("RenderPDF() error = %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("expected PDF header")
	}
	if got := PDFFilename(doc); got != "Belief Code for Jane - Flying.pdf" {
		t.Fatalf("PDFFilename() = %q", got)
	}
}
