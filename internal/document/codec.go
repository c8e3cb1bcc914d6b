package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is the ISO-8601 form used in records and catalogue keys.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTimestamp renders t in UTC with millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Record is the persisted and exported JSON shape of a document.
type Record struct {
	Title                     string    `json:"title"`
	Subject                   string    `json:"subject"`
	Details                   string    `json:"details"`
	SessionType               string    `json:"sessionType"`
	SourceOfBelief            string    `json:"sourceOfBelief"`
	Sections                  []Section `json:"sections"`
	ConnectedEmotionsSections []Section `json:"connectedEmotionsSections"`
	Timestamp                 string    `json:"timestamp"`
}

// ToRecord maps d field by field and stamps it with now. No section is dropped.
func ToRecord(d Document, now time.Time) Record {
	sections := d.Sections
	if sections == nil {
		sections = []Section{}
	}
	emotions := d.ConnectedEmotionsSections
	if emotions == nil {
		emotions = []Section{}
	}
	return Record{
		Title:                     d.Title,
		Subject:                   d.Subject,
		Details:                   d.Details,
		SessionType:               d.SessionType,
		SourceOfBelief:            d.SourceOfBelief,
		Sections:                  sections,
		ConnectedEmotionsSections: emotions,
		Timestamp:                 FormatTimestamp(now),
	}
}

// Document converts the record back, dropping the timestamp.
func (r Record) Document() Document {
	d := Document{
		Title:                     r.Title,
		Subject:                   r.Subject,
		Details:                   r.Details,
		SessionType:               r.SessionType,
		SourceOfBelief:            r.SourceOfBelief,
		Sections:                  r.Sections,
		ConnectedEmotionsSections: r.ConnectedEmotionsSections,
	}
	if d.Sections == nil {
		d.Sections = []Section{}
	}
	if d.ConnectedEmotionsSections == nil {
		d.ConnectedEmotionsSections = []Section{}
	}
	return d
}

// Encode serializes d as compact JSON stamped with now. This is the stored form.
func Encode(d Document, now time.Time) ([]byte, error) {
	payload, err := json.Marshal(ToRecord(d, now))
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return payload, nil
}

// EncodeIndent is Encode with two-space indentation, for downloaded files.
func EncodeIndent(d Document, now time.Time) ([]byte, error) {
	payload, err := json.MarshalIndent(ToRecord(d, now), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return payload, nil
}

// wireRecord tracks which fields were present in the input.
type wireRecord struct {
	Title                     *string    `json:"title"`
	Subject                   *string    `json:"subject"`
	Details                   *string    `json:"details"`
	SessionType               *string    `json:"sessionType"`
	SourceOfBelief            *string    `json:"sourceOfBelief"`
	Sections                  *[]Section `json:"sections"`
	ConnectedEmotionsSections *[]Section `json:"connectedEmotionsSections"`
	Timestamp                 *string    `json:"timestamp"`
}

func decodeWire(data []byte) (wireRecord, error) {
	var wire wireRecord
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return wire, ErrParse
	}
	if trimmed[0] != '{' {
		return wire, fmt.Errorf("%w: expected a JSON object", ErrInvalidFormat)
	}
	if err := json.Unmarshal(trimmed, &wire); err != nil {
		return wire, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return wire, nil
}

func (w wireRecord) record() Record {
	r := Record{
		Title:                     deref(w.Title),
		Subject:                   deref(w.Subject),
		Details:                   deref(w.Details),
		SessionType:               deref(w.SessionType),
		SourceOfBelief:            deref(w.SourceOfBelief),
		Sections:                  []Section{},
		ConnectedEmotionsSections: []Section{},
		Timestamp:                 deref(w.Timestamp),
	}
	if w.Sections != nil && *w.Sections != nil {
		r.Sections = *w.Sections
	}
	if w.ConnectedEmotionsSections != nil && *w.ConnectedEmotionsSections != nil {
		r.ConnectedEmotionsSections = *w.ConnectedEmotionsSections
	}
	return r
}

// Decode reads a stored record. A title field is required; every other field
// defaults to empty when missing or null.
func Decode(data []byte) (Record, error) {
	wire, err := decodeWire(data)
	if err != nil {
		return Record{}, err
	}
	if wire.Title == nil {
		return Record{}, fmt.Errorf("%w: missing title", ErrInvalidFormat)
	}
	return wire.record(), nil
}

// ParseImport reads a user supplied file. It needs a non-blank title and at
// least one of the two section lists.
func ParseImport(data []byte) (Document, error) {
	wire, err := decodeWire(data)
	if err != nil {
		return Document{}, err
	}
	if wire.Title == nil || strings.TrimSpace(*wire.Title) == "" {
		return Document{}, fmt.Errorf("%w: title is required", ErrInvalidFormat)
	}
	if wire.Sections == nil && wire.ConnectedEmotionsSections == nil {
		return Document{}, fmt.Errorf("%w: sections are required", ErrInvalidFormat)
	}
	return wire.record().Document(), nil
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
