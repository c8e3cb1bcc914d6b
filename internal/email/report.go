package email

import (
	"bytes"
	"fmt"
	"html/template"
)

// ReportSection is one heading/content row of the HTML report.
type ReportSection struct {
	Heading string
	Content string
}

// ReportData feeds the HTML session report sent by the delivery endpoint.
type ReportData struct {
	ClientName  string
	SessionType string
	Details     string
	Message     string
	Sections    []ReportSection
	SenderName  string
	SenderEmail string
	Year        int
}

var reportTemplate = template.Must(template.New("report").Parse(sessionReportTemplate))

// RenderSessionReport renders the HTML alternative of a delivered session.
func RenderSessionReport(data ReportData) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render session report: %w", err)
	}
	return buf.String(), nil
}

const sessionReportTemplate = `<div style="font-family: Arial, sans-serif; color: #333; max-width: 600px; margin: auto; border: 1px solid #ddd; border-radius: 8px; overflow: hidden;">
  <div style="background-color: #f8f8f8; padding: 20px; text-align: center; border-bottom: 1px solid #ddd;">
    <h1 style="color: #4A90E2; font-size: 24px; margin: 0;">Session Report</h1>
  </div>
  <div style="padding: 20px;">
    <h2 style="color: #4A90E2; margin-top: 0;">Session Report: {{.SessionType}}</h2>
    <p><strong>Client:</strong> {{.ClientName}}</p>
    {{if .Details}}<p><strong>Details:</strong> {{.Details}}</p>{{end}}
    {{if .Message}}<p><strong>Message:</strong> {{.Message}}</p>{{end}}
    <table style="border-collapse: collapse; width: 100%; margin-top: 20px;">
      <tbody>
      {{range .Sections}}
        <tr>
          <td style="padding: 10px; border: 1px solid #ddd;">
            <strong>{{.Heading}}:</strong><br/>
            {{.Content}}
          </td>
        </tr>
      {{end}}
      </tbody>
    </table>
  </div>
  <div style="background-color: #f8f8f8; padding: 15px; text-align: center; font-size: 12px; color: #888;">
    Sent by {{.SenderName}}{{if .SenderEmail}} ({{.SenderEmail}}){{end}}<br/>
    &copy; {{.Year}} Cameron's Transformational Healing
  </div>
</div>`
