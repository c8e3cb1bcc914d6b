// Package document defines the session document, its section list operations
// and its JSON form.
package document

import (
	"encoding/json"
	"errors"
	"strings"
)

var (
	// ErrTitleRequired is returned when the client name is blank.
	ErrTitleRequired = errors.New("client name is required")
	// ErrNoSections is returned when an export has neither ordinary nor emotion sections.
	ErrNoSections = errors.New("at least one section is required")
	// ErrNoContent is returned when every section is blank.
	ErrNoContent = errors.New("at least one section must have content")
	// ErrInvalidFormat is returned when JSON parses but lacks the required shape.
	ErrInvalidFormat = errors.New("invalid session document format")
	// ErrParse is returned when input is not JSON at all.
	ErrParse = errors.New("failed to parse session document")
)

// Section is one heading and content pair. Heading is a catalog code; unknown
// codes are kept verbatim.
type Section struct {
	ID      string `json:"id"`
	Heading string `json:"heading"`
	Content string `json:"content"`
}

// UnmarshalJSON accepts the older "subheading" and "selectedHeading" field
// names alongside "heading".
func (s *Section) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID              json.RawMessage `json:"id"`
		Heading         *string         `json:"heading"`
		Subheading      *string         `json:"subheading"`
		SelectedHeading *string         `json:"selectedHeading"`
		Content         *string         `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Section{ID: decodeID(raw.ID)}
	switch {
	case raw.Heading != nil:
		s.Heading = *raw.Heading
	case raw.Subheading != nil:
		s.Heading = *raw.Subheading
	case raw.SelectedHeading != nil:
		s.Heading = *raw.SelectedHeading
	}
	if raw.Content != nil {
		s.Content = *raw.Content
	}
	return nil
}

// Older records sometimes carry numeric ids.
func decodeID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// HasContent reports whether the section carries non-whitespace content.
func (s Section) HasContent() bool {
	return strings.TrimSpace(s.Content) != ""
}

// Document is one therapy session.
type Document struct {
	Title                     string
	Subject                   string
	Details                   string
	SessionType               string
	SourceOfBelief            string
	Sections                  []Section
	ConnectedEmotionsSections []Section
}

// New returns an empty document.
func New() Document {
	return Document{
		Sections:                  []Section{},
		ConnectedEmotionsSections: []Section{},
	}
}

// Clone returns a deep copy so callers can edit without aliasing slices.
func (d Document) Clone() Document {
	out := d
	out.Sections = append([]Section{}, d.Sections...)
	out.ConnectedEmotionsSections = append([]Section{}, d.ConnectedEmotionsSections...)
	return out
}

// TrimmedTitle is the client name without surrounding whitespace.
func (d Document) TrimmedTitle() string {
	return strings.TrimSpace(d.Title)
}

// ValidateForSave checks what a save needs.
func ValidateForSave(d Document) error {
	if d.TrimmedTitle() == "" {
		return ErrTitleRequired
	}
	return nil
}

// ValidateForExport checks what a rendered export (PDF, email) needs.
func ValidateForExport(d Document) error {
	if err := ValidateForSave(d); err != nil {
		return err
	}
	if len(d.Sections) == 0 && len(d.ConnectedEmotionsSections) == 0 {
		return ErrNoSections
	}
	if len(WithContent(d.Sections)) == 0 && len(WithContent(d.ConnectedEmotionsSections)) == 0 {
		return ErrNoContent
	}
	return nil
}
