package document

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
	"time"
)

func sampleDocument() Document {
	return Document{
		Title:          "Jane Doe",
		Subject:        "Work",
		Details:        "Recurring stress",
		SessionType:    "Tangled",
		SourceOfBelief: "something unlisted",
		Sections: []Section{
			{ID: "1", Heading: "NP", Content: "I am not good enough"},
			{ID: "2", Heading: "UNKNOWN", Content: "   "},
		},
		ConnectedEmotionsSections: []Section{
			{ID: "3", Heading: "Fear", Content: ""},
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	doc := sampleDocument()
	now := time.Date(2024, 5, 1, 10, 30, 0, 123000000, time.UTC)

	payload, err := Encode(doc, now)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	record, err := Decode(payload)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if record.Timestamp != "2024-05-01T10:30:00.123Z" {
		t.Errorf("unexpected timestamp %q", record.Timestamp)
	}
	if got := record.Document(); !reflect.DeepEqual(got, doc) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, doc)
	}
}

func TestEncodeIsCompactAndEncodeIndentIsNot(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	compact, err := Encode(sampleDocument(), now)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if bytes.ContainsRune(compact, '\n') || !bytes.Contains(compact, []byte(`"title":"Jane Doe"`)) {
		t.Errorf("expected compact JSON, got %s", compact)
	}

	indented, err := EncodeIndent(sampleDocument(), now)
	if err != nil {
		t.Fatalf("EncodeIndent() error = %v", err)
	}
	if !bytes.Contains(indented, []byte("\n  \"title\": \"Jane Doe\"")) {
		t.Errorf("expected indented JSON, got %s", indented)
	}
	a, _ := Decode(compact)
	b, _ := Decode(indented)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("compact and indented records differ:\n%+v\n%+v", a, b)
	}
}

func TestEncodeEmptyDocumentUsesEmptyLists(t *testing.T) {
	payload, err := Encode(Document{Title: "A"}, time.Now())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	record, err := Decode(payload)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if record.Sections == nil || record.ConnectedEmotionsSections == nil {
		t.Fatal("expected non-nil section lists")
	}
}

func TestDecodeLegacyFieldNames(t *testing.T) {
	payload := []byte(`{
		"title": "Jane",
		"sections": [{"id": "1700000000000", "subheading": "LB 2", "content": "x"}],
		"connectedEmotionsSections": [{"id": 1700000000001, "selectedHeading": "Anger", "content": "y"}]
	}`)
	record, err := Decode(payload)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if record.Sections[0].Heading != "LB 2" {
		t.Errorf("expected subheading mapped to heading, got %+v", record.Sections[0])
	}
	if record.ConnectedEmotionsSections[0].Heading != "Anger" || record.ConnectedEmotionsSections[0].ID != "1700000000001" {
		t.Errorf("unexpected emotion section %+v", record.ConnectedEmotionsSections[0])
	}
}

func TestDecodeDefaultsMissingFields(t *testing.T) {
	record, err := Decode([]byte(`{"title":"Jane","subject":null}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if record.Subject != "" || len(record.Sections) != 0 || record.Sections == nil {
		t.Errorf("expected defaults, got %+v", record)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"not json", `{title:`, ErrParse},
		{"empty", ``, ErrParse},
		{"array", `[1,2]`, ErrInvalidFormat},
		{"missing title", `{"sections":[]}`, ErrInvalidFormat},
		{"wrong type", `{"title":5}`, ErrInvalidFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.in))
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseImport(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr error
	}{
		{"valid", `{"title":"Jane","sections":[{"id":"1","heading":"NP","content":"x"}]}`, nil},
		{"emotions only", `{"title":"Jane","connectedEmotionsSections":[]}`, nil},
		{"blank title", `{"title":"","sections":[{"id":"1","heading":"NP","content":"x"}]}`, ErrInvalidFormat},
		{"whitespace title", `{"title":"   ","sections":[]}`, ErrInvalidFormat},
		{"no sections", `{"title":"Jane"}`, ErrInvalidFormat},
		{"garbage", `not json`, ErrParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseImport([]byte(tt.in))
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ParseImport() error = %v", err)
				}
				if doc.Title != "Jane" || doc.Sections == nil || doc.ConnectedEmotionsSections == nil {
					t.Errorf("unexpected document %+v", doc)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseImport() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
