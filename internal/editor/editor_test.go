package editor

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"beliefpad/api/internal/catalog"
	"beliefpad/api/internal/document"
	"beliefpad/api/internal/email"
	"beliefpad/api/internal/export"
	"beliefpad/api/internal/store"
)

var fixedNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type fakeClipboard struct {
	text string
	err  error
}

func (f fakeClipboard) ReadText(context.Context) (string, error) { return f.text, f.err }

type savedFile struct {
	name, mime string
	data       []byte
}

type fakeFiles struct {
	files []savedFile
	err   error
}

func (f *fakeFiles) Save(_ context.Context, name, mime string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.files = append(f.files, savedFile{name, mime, data})
	return nil
}

type fakeMail struct{ links []string }

func (f *fakeMail) Open(_ context.Context, link string) error {
	f.links = append(f.links, link)
	return nil
}

type fakeDelivery struct {
	requests []email.SendRequest
	err      error
}

func (f *fakeDelivery) Send(_ context.Context, req email.SendRequest) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.requests = append(f.requests, req)
	return "<id@test>", nil
}

type fixture struct {
	editor    *Editor
	kv        *store.MemoryKV
	catalogue *store.Catalogue
	files     *fakeFiles
	mail      *fakeMail
	delivery  *fakeDelivery
}

func newFixture(t *testing.T, clip Clipboard) fixture {
	t.Helper()
	kv := store.NewMemoryKV(0)
	catalogue := store.NewCatalogue(kv, nil, store.DefaultQuota)
	catalogue.SetClock(func() time.Time { return fixedNow })
	f := fixture{kv: kv, catalogue: catalogue, files: &fakeFiles{}, mail: &fakeMail{}, delivery: &fakeDelivery{}}
	f.editor = New(catalogue, export.NewService(nil), Options{
		Clipboard: clip,
		Files:     f.files,
		Mail:      f.mail,
		Delivery:  f.delivery,
		Now:       func() time.Time { return fixedNow },
	})
	return f
}

// janeSession fills the editor with a one-section session for Jane Doe.
func janeSession(t *testing.T, e *Editor) document.Section {
	t.Helper()
	e.SetTitle("Jane Doe")
	e.SetSubject("Public speaking")
	section, err := e.AddSection("NP")
	if err != nil {
		t.Fatalf("add section: %v", err)
	}
	e.UpdateContent(section.ID, "I will fail")
	return section
}

func TestNewEditorIsEmpty(t *testing.T) {
	f := newFixture(t, nil)
	doc := f.editor.Document()
	if doc.Title != "" || len(doc.Sections) != 0 || len(doc.ConnectedEmotionsSections) != 0 {
		t.Fatalf("expected empty document, got %+v", doc)
	}
	if f.editor.CurrentKey() != "" || f.editor.Dirty() {
		t.Fatalf("expected no key and a clean editor")
	}
}

func TestAddSectionUsesDefaultContent(t *testing.T) {
	f := newFixture(t, nil)
	section, err := f.editor.AddSection("NP")
	if err != nil {
		t.Fatalf("add section: %v", err)
	}
	if section.Heading != "NP" || section.Content != catalog.Primary().DefaultContent("NP") {
		t.Fatalf("unexpected section %+v", section)
	}
	if _, err := f.editor.AddSection("  "); !errors.Is(err, ErrHeadingRequired) {
		t.Fatalf("expected ErrHeadingRequired, got %v", err)
	}
	if _, err := f.editor.AddEmotion(""); !errors.Is(err, ErrHeadingRequired) {
		t.Fatalf("expected ErrHeadingRequired for emotions, got %v", err)
	}
	if len(f.editor.Document().Sections) != 1 {
		t.Fatalf("failed adds must not change the document")
	}
}

func TestAddShortcut(t *testing.T) {
	f := newFixture(t, nil)
	tests := []struct {
		key  string
		mods catalog.Modifiers
		want string
	}{
		{key: "n", want: "NP"},
		{key: "B", mods: catalog.Modifiers{Shift: true}, want: "FCB 2"},
		{key: "l", mods: catalog.Modifiers{Shift: true, Alt: true}, want: "LB 3"},
	}
	for _, tt := range tests {
		section, ok := f.editor.AddShortcut(tt.key, tt.mods)
		if !ok || section.Heading != tt.want {
			t.Errorf("shortcut %q %+v: got %q ok=%v, want %q", tt.key, tt.mods, section.Heading, ok, tt.want)
		}
	}
	if _, ok := f.editor.AddShortcut("z", catalog.Modifiers{}); ok {
		t.Fatalf("expected unbound key to be ignored")
	}
	if got := len(f.editor.Document().Sections); got != len(tests) {
		t.Fatalf("expected %d sections, got %d", len(tests), got)
	}
}

func TestSectionOperationsFindTheRightList(t *testing.T) {
	f := newFixture(t, nil)
	primary, _ := f.editor.AddSection("NP")
	emotion, _ := f.editor.AddEmotion("Anger")
	second, _ := f.editor.AddEmotion("Anger")

	f.editor.UpdateContent(emotion.ID, "furious")
	f.editor.Move(second.ID, -1)
	f.editor.Duplicate(primary.ID)

	doc := f.editor.Document()
	if len(doc.Sections) != 2 || doc.Sections[0].ID != primary.ID {
		t.Fatalf("unexpected primary sections %+v", doc.Sections)
	}
	if doc.ConnectedEmotionsSections[0].ID != second.ID || doc.ConnectedEmotionsSections[1].Content != "furious" {
		t.Fatalf("unexpected emotion sections %+v", doc.ConnectedEmotionsSections)
	}

	f.editor.Remove(emotion.ID)
	if got := len(f.editor.Document().ConnectedEmotionsSections); got != 1 {
		t.Fatalf("expected one emotion left, got %d", got)
	}
}

func TestDuplicateThenRemoveLeavesOriginal(t *testing.T) {
	f := newFixture(t, nil)
	original := janeSession(t, f.editor)

	f.editor.Duplicate(original.ID)
	doc := f.editor.Document()
	if len(doc.Sections) != 2 {
		t.Fatalf("expected duplicate, got %+v", doc.Sections)
	}
	copyID := doc.Sections[1].ID
	if copyID == original.ID || doc.Sections[1].Content != catalog.Primary().DefaultContent("NP") {
		t.Fatalf("expected fresh copy with default content, got %+v", doc.Sections[1])
	}

	f.editor.Remove(copyID)
	doc = f.editor.Document()
	if len(doc.Sections) != 1 || doc.Sections[0].ID != original.ID || doc.Sections[0].Content != "I will fail" {
		t.Fatalf("expected original section back, got %+v", doc.Sections)
	}
}

func TestPaste(t *testing.T) {
	tests := []struct {
		name    string
		clip    Clipboard
		want    string
		wantErr bool
	}{
		{name: "text replaces content", clip: fakeClipboard{text: "pasted"}, want: "pasted"},
		{name: "empty clipboard is ignored", clip: fakeClipboard{}, want: "I will fail"},
		{name: "read failure", clip: fakeClipboard{err: errors.New("denied")}, want: "I will fail", wantErr: true},
		{name: "no clipboard", clip: nil, want: "I will fail", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.clip)
			section := janeSession(t, f.editor)
			err := f.editor.Paste(context.Background(), section.ID)
			if tt.wantErr != (err != nil) {
				t.Fatalf("unexpected error %v", err)
			}
			if err != nil && !errors.Is(err, ErrClipboard) {
				t.Fatalf("expected ErrClipboard, got %v", err)
			}
			if got := f.editor.Document().Sections[0].Content; got != tt.want {
				t.Fatalf("expected content %q, got %q", tt.want, got)
			}
		})
	}
}

func TestSaveThenSaveAgainUpdatesInPlace(t *testing.T) {
	f := newFixture(t, nil)
	janeSession(t, f.editor)
	ctx := context.Background()

	first, err := f.editor.Save(ctx)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if f.editor.CurrentKey() != first.Key || f.editor.Dirty() {
		t.Fatalf("expected key %q to be current and editor clean", first.Key)
	}

	f.editor.SetDetails("follow up")
	second, err := f.editor.Save(ctx)
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if second.Key != first.Key || !second.Updated {
		t.Fatalf("expected in-place update, got %+v", second)
	}
	if f.kv.Len() != 1 {
		t.Fatalf("expected one stored form, got %d", f.kv.Len())
	}
}

func TestSaveBlankTitleFails(t *testing.T) {
	f := newFixture(t, nil)
	f.editor.SetTitle("   ")
	if _, err := f.editor.Save(context.Background()); !errors.Is(err, document.ErrTitleRequired) {
		t.Fatalf("expected ErrTitleRequired, got %v", err)
	}
	if f.editor.CurrentKey() != "" || f.kv.Writes() != 0 {
		t.Fatalf("failed save must not touch storage or the key")
	}
}

func TestLoad(t *testing.T) {
	f := newFixture(t, nil)
	janeSession(t, f.editor)
	ctx := context.Background()
	saved, _ := f.editor.Save(ctx)

	f.editor.ClearForm()
	if err := f.editor.Load(ctx, saved.Key); err != nil {
		t.Fatalf("load: %v", err)
	}
	if f.editor.Document().Title != "Jane Doe" || f.editor.CurrentKey() != saved.Key {
		t.Fatalf("expected loaded form, got %+v key=%q", f.editor.Document(), f.editor.CurrentKey())
	}

	f.editor.SetTitle("Edited")
	if err := f.editor.Load(ctx, "session-form-missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if f.editor.Document().Title != "Edited" || f.editor.CurrentKey() != saved.Key {
		t.Fatalf("failed load must leave the editor unchanged")
	}
}

func TestImport(t *testing.T) {
	f := newFixture(t, nil)
	janeSession(t, f.editor)
	saved, _ := f.editor.Save(context.Background())

	data := []byte(`{"title":"John","sections":[{"id":1,"heading":"NP","content":"x"}]}`)
	if err := f.editor.Import(data); err != nil {
		t.Fatalf("import: %v", err)
	}
	doc := f.editor.Document()
	if doc.Title != "John" || doc.Subject != "" || len(doc.Sections) != 1 || len(doc.ConnectedEmotionsSections) != 0 {
		t.Fatalf("unexpected imported document %+v", doc)
	}
	if f.editor.CurrentKey() != "" {
		t.Fatalf("expected import to forget key %q", saved.Key)
	}
}

func TestImportBlankTitleLeavesDocumentUnchanged(t *testing.T) {
	f := newFixture(t, nil)
	janeSession(t, f.editor)
	saved, _ := f.editor.Save(context.Background())
	before := f.editor.Document()

	err := f.editor.Import([]byte(`{"title":"  ","sections":[]}`))
	if !errors.Is(err, document.ErrInvalidFormat) {
		t.Fatalf("expected ErrInvalidFormat, got %v", err)
	}
	after := f.editor.Document()
	if after.Title != before.Title || len(after.Sections) != len(before.Sections) {
		t.Fatalf("document changed after failed import: %+v", after)
	}
	if f.editor.CurrentKey() != saved.Key {
		t.Fatalf("expected key to survive failed import")
	}
}

func TestExportSendsFilesToSink(t *testing.T) {
	f := newFixture(t, nil)
	janeSession(t, f.editor)
	ctx := context.Background()

	if _, err := f.editor.ExportPDF(ctx); err != nil {
		t.Fatalf("export pdf: %v", err)
	}
	if _, err := f.editor.ExportJSON(ctx); err != nil {
		t.Fatalf("export json: %v", err)
	}
	if len(f.files.files) != 2 {
		t.Fatalf("expected two files, got %d", len(f.files.files))
	}
	if f.files.files[0].name != "Belief Code for Jane Doe - Public speaking.pdf" || !strings.HasPrefix(string(f.files.files[0].data), "%PDF") {
		t.Fatalf("unexpected pdf file %q", f.files.files[0].name)
	}
	if f.files.files[1].name != "session-form-Jane-Doe-2024-05-01T10:00:00.000Z.json" || f.files.files[1].mime != "application/json" {
		t.Fatalf("unexpected json file %q %q", f.files.files[1].name, f.files.files[1].mime)
	}
}

func TestExportValidation(t *testing.T) {
	f := newFixture(t, nil)
	f.editor.SetTitle("Jane")
	if _, err := f.editor.ExportPDF(context.Background()); !errors.Is(err, document.ErrNoSections) {
		t.Fatalf("expected ErrNoSections, got %v", err)
	}
	if len(f.files.files) != 0 {
		t.Fatalf("expected nothing downloaded")
	}
}

func TestOpenMailClient(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	janeSession(t, f.editor)

	if err := f.editor.OpenMailClient(ctx, "  "); !errors.Is(err, ErrRecipientRequired) {
		t.Fatalf("expected ErrRecipientRequired, got %v", err)
	}
	if err := f.editor.OpenMailClient(ctx, "client@example.com"); err != nil {
		t.Fatalf("open mail client: %v", err)
	}
	if len(f.mail.links) != 1 {
		t.Fatalf("expected one link, got %v", f.mail.links)
	}
	parsed, err := url.Parse(f.mail.links[0])
	if err != nil {
		t.Fatalf("parse link: %v", err)
	}
	if parsed.Scheme != "mailto" || parsed.Opaque != "client@example.com" {
		t.Fatalf("unexpected link %q", f.mail.links[0])
	}
	if got := parsed.Query().Get("subject"); got != "Belief Code Session for Jane Doe" {
		t.Fatalf("unexpected subject %q", got)
	}
	if !strings.Contains(parsed.Query().Get("body"), "I will fail") {
		t.Fatalf("expected section content in body")
	}
}

func TestSendEmail(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	janeSession(t, f.editor)

	if _, err := f.editor.SendEmail(ctx, SendOptions{PIN: "1234"}); !errors.Is(err, ErrRecipientRequired) {
		t.Fatalf("expected ErrRecipientRequired, got %v", err)
	}

	id, err := f.editor.SendEmail(ctx, SendOptions{To: " client@example.com ", SenderName: "Dr. Lee", PIN: "1234"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if id != "<id@test>" {
		t.Fatalf("unexpected id %q", id)
	}
	req := f.delivery.requests[0]
	if req.RecipientEmail != "client@example.com" || req.PIN != "1234" || req.SenderName != "Dr. Lee" {
		t.Fatalf("unexpected request %+v", req)
	}
	if req.EmailSubject != "Belief Code Session for Jane Doe" || req.Document.Title != "Jane Doe" {
		t.Fatalf("unexpected subject or document %+v", req)
	}

	f.delivery.err = email.ErrDelivery
	if _, err := f.editor.SendEmail(ctx, SendOptions{To: "client@example.com", PIN: "0000"}); !errors.Is(err, email.ErrDelivery) {
		t.Fatalf("expected ErrDelivery, got %v", err)
	}
}

func TestDeleteCurrentFormForgetsKey(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	janeSession(t, f.editor)
	saved, _ := f.editor.Save(ctx)

	if err := f.editor.Delete(ctx, saved.Key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if f.editor.CurrentKey() != "" {
		t.Fatalf("expected key to be forgotten")
	}
	if f.editor.Document().Title != "Jane Doe" {
		t.Fatalf("delete must not clear the open document")
	}
	if err := f.editor.Delete(ctx, saved.Key); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClearAllAndClearForm(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.editor.ClearAll(ctx); !errors.Is(err, store.ErrNothingToClear) {
		t.Fatalf("expected ErrNothingToClear, got %v", err)
	}

	janeSession(t, f.editor)
	if _, err := f.editor.Save(ctx); err != nil {
		t.Fatalf("save: %v", err)
	}
	removed, err := f.editor.ClearAll(ctx)
	if err != nil || removed != 1 {
		t.Fatalf("expected one removed, got %d err=%v", removed, err)
	}
	if f.editor.Document().Title != "" || f.editor.CurrentKey() != "" {
		t.Fatalf("expected editor reset after clear all")
	}

	janeSession(t, f.editor)
	f.editor.ClearForm()
	if len(f.editor.Document().Sections) != 0 || f.editor.Dirty() {
		t.Fatalf("expected empty clean form")
	}
}

func TestExportAll(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.editor.ExportAll(ctx); !errors.Is(err, store.ErrNothingToExport) {
		t.Fatalf("expected ErrNothingToExport, got %v", err)
	}
	janeSession(t, f.editor)
	_, _ = f.editor.Save(ctx)

	archive, err := f.editor.ExportAll(ctx)
	if err != nil {
		t.Fatalf("export all: %v", err)
	}
	if archive.Count != 1 || len(f.files.files) != 1 || f.files.files[0].name != "all_saved_forms.zip" {
		t.Fatalf("unexpected archive %+v files=%d", archive, len(f.files.files))
	}
}
