package export

import (
	"bytes"
	"embed"
	"html/template"
	"strings"
	"time"

	"beliefpad/api/internal/catalog"
	"beliefpad/api/internal/document"
)

//go:embed templates/*.html
var templateFS embed.FS

var sessionTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"upper": strings.ToUpper,
	}

	templateContent, err := templateFS.ReadFile("templates/session.html")
	if err != nil {
		sessionTemplate = template.Must(template.New("session").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}
	sessionTemplate = template.Must(template.New("session").Funcs(funcMap).Parse(string(templateContent)))
}

// TemplateData holds data for session template rendering
type TemplateData struct {
	Title           string
	SessionDate     string
	Subject         string
	Details         string
	SessionType     string
	SourceOfBelief  string
	IncludePreamble bool
	Preamble        []string
	EmotionSections []TemplateSection
	Sections        []TemplateSection
}

// TemplateSection is a section with its display heading resolved
type TemplateSection struct {
	Heading string
	Content string
}

// NewTemplateData resolves headings and drops blank sections.
func NewTemplateData(d document.Document, date time.Time, includePreamble bool) TemplateData {
	data := TemplateData{
		Title:           d.Title,
		SessionDate:     SessionDate(date),
		Subject:         strings.TrimSpace(d.Subject),
		Details:         strings.TrimSpace(d.Details),
		SessionType:     strings.TrimSpace(d.SessionType),
		SourceOfBelief:  strings.TrimSpace(d.SourceOfBelief),
		IncludePreamble: includePreamble,
		Preamble:        Preamble,
	}
	for _, section := range document.WithContent(d.ConnectedEmotionsSections) {
		data.EmotionSections = append(data.EmotionSections, TemplateSection{
			Heading: catalog.Emotions().DisplayHeading(section.Heading),
			Content: section.Content,
		})
	}
	for _, section := range document.WithContent(d.Sections) {
		data.Sections = append(data.Sections, TemplateSection{
			Heading: catalog.Primary().DisplayHeading(section.Heading),
			Content: section.Content,
		})
	}
	return data
}

// RenderSessionHTML renders the session view
func RenderSessionHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := sessionTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fallbackTemplate is used if the embedded template fails to load
const fallbackTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Belief Code Session for {{.Title}}</title></head>
<body>
  <h1>Belief Code Session for {{.Title}}</h1>
  <p>Session Date: {{.SessionDate}}</p>
  {{range .EmotionSections}}<p><strong>{{.Heading}}</strong> {{.Content}}</p>{{end}}
  {{range .Sections}}<p><strong>{{.Heading}}</strong> {{.Content}}</p>{{end}}
</body>
</html>`
