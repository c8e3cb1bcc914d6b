package export

import (
	"strings"
	"time"

	"beliefpad/api/internal/catalog"
	"beliefpad/api/internal/document"
)

// Page geometry in millimetres (A4 portrait).
const (
	PageWidth  = 210.0
	PageHeight = 297.0
	Margin     = 20.0
	LineHeight = 7.0
	// Gap between a section heading and its content column.
	HeadingGap = 8.0
	// Content narrower than this starts on the line below its heading.
	minContentWidth = 30.0
)

// FontStyle selects regular or bold text.
type FontStyle string

const (
	Regular FontStyle = ""
	Bold    FontStyle = "B"
)

// Measurer reports rendered text widths in millimetres.
type Measurer interface {
	TextWidth(text string, style FontStyle, size float64) float64
}

// OpKind is the kind of a drawing operation.
type OpKind int

const (
	OpText OpKind = iota
	OpRule
)

// Op is one positioned drawing operation.
type Op struct {
	Kind  OpKind
	Page  int
	X     float64
	Y     float64
	X2    float64
	Text  string
	Style FontStyle
	Size  float64
}

// Layout is a paginated list of drawing operations.
type Layout struct {
	Ops   []Op
	Pages int
}

// Texts returns the text of every text op in order.
func (l Layout) Texts() []string {
	out := make([]string, 0, len(l.Ops))
	for _, op := range l.Ops {
		if op.Kind == OpText {
			out = append(out, op.Text)
		}
	}
	return out
}

// PlaceholderSection stands in when a document has nothing to render.
var PlaceholderSection = document.Section{Heading: "No Sections", Content: "No content available."}

type layouter struct {
	measure Measurer
	ops     []Op
	page    int
	y       float64
}

// LayoutPDF positions the session document on A4 pages.
func LayoutPDF(d document.Document, date time.Time, m Measurer) Layout {
	l := &layouter{measure: m, page: 1, y: Margin}
	fullWidth := PageWidth - 2*Margin

	l.text(Margin, "Belief Code Session for "+d.Title, Bold, 18)
	l.y += LineHeight * 1.5

	for _, paragraph := range Preamble {
		for _, line := range Wrap(paragraph, fullWidth, m, Regular, 10) {
			l.breakLine()
			l.text(Margin, line, Regular, 10)
			l.y += LineHeight
		}
		l.y += LineHeight
	}

	l.breakLine()
	l.text(Margin, "Session Date: "+SessionDate(date), Regular, 12)
	l.y += LineHeight * 1.5

	l.labelled("Subject:", d.Subject, fullWidth)
	l.labelled("Details:", d.Details, fullWidth)

	if strings.TrimSpace(d.SourceOfBelief) != "" {
		l.breakLine()
		l.text(Margin, "Source of Belief: "+d.SourceOfBelief, Bold, 12)
		l.y += LineHeight * 1.5
	}
	if strings.TrimSpace(d.SessionType) != "" {
		l.breakLine()
		l.text(Margin, "Session Type: "+d.SessionType, Bold, 12)
		l.y += LineHeight * 1.5
	}

	emotions := document.WithContent(d.ConnectedEmotionsSections)
	sections := document.WithContent(d.Sections)
	if len(emotions) == 0 && len(sections) == 0 {
		sections = []document.Section{PlaceholderSection}
	}

	l.breakLine()
	l.ops = append(l.ops, Op{Kind: OpRule, Page: l.page, X: Margin, Y: l.y, X2: PageWidth - Margin})
	l.y += LineHeight * 2

	if len(emotions) > 0 {
		l.breakSection()
		l.text(Margin, "CONNECTED EMOTIONS", Bold, 14)
		l.y += LineHeight * 1.5
		for _, section := range emotions {
			l.section(catalog.Emotions(), section)
		}
	}
	for _, section := range sections {
		l.section(catalog.Primary(), section)
	}

	return Layout{Ops: l.ops, Pages: l.page}
}

func (l *layouter) text(x float64, text string, style FontStyle, size float64) {
	l.ops = append(l.ops, Op{Kind: OpText, Page: l.page, X: x, Y: l.y, Text: text, Style: style, Size: size})
}

func (l *layouter) newPage() {
	l.page++
	l.y = Margin
}

// breakLine starts a new page when the next line would sit in the bottom margin.
func (l *layouter) breakLine() {
	if l.y > PageHeight-Margin {
		l.newPage()
	}
}

// breakSection keeps a heading from starting within two margins of the bottom.
func (l *layouter) breakSection() {
	if l.y > PageHeight-2*Margin {
		l.newPage()
	}
}

func (l *layouter) labelled(label, value string, width float64) {
	if strings.TrimSpace(value) == "" {
		return
	}
	l.breakLine()
	l.text(Margin, label, Regular, 12)
	l.y += LineHeight
	for _, line := range Wrap(value, width, l.measure, Regular, 12) {
		l.breakLine()
		l.text(Margin, line, Regular, 12)
		l.y += LineHeight
	}
	l.y += LineHeight
}

func (l *layouter) section(cat *catalog.Catalog, section document.Section) {
	l.breakSection()

	heading := cat.DisplayHeading(section.Heading)
	l.text(Margin, heading, Bold, 12)

	contentX := Margin + l.measure.TextWidth(heading, Bold, 12) + HeadingGap
	width := PageWidth - contentX - Margin
	if width < minContentWidth {
		contentX = Margin + HeadingGap
		width = PageWidth - contentX - Margin
		l.y += LineHeight
	}

	for i, line := range Wrap(section.Content, width, l.measure, Regular, 12) {
		if i > 0 {
			l.y += LineHeight
			l.breakLine()
		}
		l.text(contentX, line, Regular, 12)
	}
	l.y += LineHeight * 1.5
}

// Wrap splits text into lines no wider than width. Explicit newlines are kept
// and words longer than a line are broken by character.
func Wrap(text string, width float64, m Measurer, style FontStyle, size float64) []string {
	var lines []string
	for _, paragraph := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		current := ""
		for _, word := range words {
			candidate := word
			if current != "" {
				candidate = current + " " + word
			}
			if m.TextWidth(candidate, style, size) <= width {
				current = candidate
				continue
			}
			if current != "" {
				lines = append(lines, current)
				current = ""
			}
			for m.TextWidth(word, style, size) > width {
				head, tail := splitWord(word, width, m, style, size)
				lines = append(lines, head)
				word = tail
			}
			current = word
		}
		if current != "" {
			lines = append(lines, current)
		}
	}
	return lines
}

func splitWord(word string, width float64, m Measurer, style FontStyle, size float64) (string, string) {
	runes := []rune(word)
	cut := 1
	for cut < len(runes) && m.TextWidth(string(runes[:cut+1]), style, size) <= width {
		cut++
	}
	return string(runes[:cut]), string(runes[cut:])
}
