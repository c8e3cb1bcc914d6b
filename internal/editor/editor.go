// Package editor holds the session being edited and routes it to the
// catalogue, the serializers and the delivery collaborators.
package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"beliefpad/api/internal/catalog"
	"beliefpad/api/internal/document"
	"beliefpad/api/internal/email"
	"beliefpad/api/internal/export"
	"beliefpad/api/internal/logging"
	"beliefpad/api/internal/store"
)

var (
	ErrHeadingRequired   = errors.New("select a heading first")
	ErrRecipientRequired = errors.New("recipient email is required")
	ErrClipboard         = errors.New("failed to paste from clipboard")
	ErrUnavailable       = errors.New("capability not available")
)

// Clipboard yields the text currently on the system clipboard.
type Clipboard interface {
	ReadText(ctx context.Context) (string, error)
}

// FileSink receives downloads.
type FileSink interface {
	Save(ctx context.Context, filename, mimeType string, data []byte) error
}

// MailClient opens a mailto link in the user's mail program.
type MailClient interface {
	Open(ctx context.Context, link string) error
}

// Delivery sends a document through a remote server.
type Delivery interface {
	Send(ctx context.Context, req email.SendRequest) (string, error)
}

// Catalogue is the persistence the editor needs. *store.Catalogue implements it.
type Catalogue interface {
	Save(ctx context.Context, doc document.Document, existingKey string) (store.SaveResult, error)
	Load(ctx context.Context, key string) (document.Document, error)
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) (int, error)
	ExportAll(ctx context.Context) (store.Archive, error)
}

// Exporter renders documents. *export.Service implements it.
type Exporter interface {
	Export(ctx context.Context, req export.Request) (*export.Result, error)
}

type Options struct {
	Clipboard Clipboard
	Files     FileSink
	Mail      MailClient
	Delivery  Delivery
	Logger    logging.Logger
	Now       func() time.Time
}

// Editor owns the current document and the key it was last saved under.
// Failed operations leave both untouched.
type Editor struct {
	doc   document.Document
	key   string
	dirty bool

	catalogue Catalogue
	exporter  Exporter
	clipboard Clipboard
	files     FileSink
	mail      MailClient
	delivery  Delivery
	logger    logging.Logger
	now       func() time.Time
}

func New(catalogue Catalogue, exporter Exporter, opts Options) *Editor {
	e := &Editor{
		doc:       document.New(),
		catalogue: catalogue,
		exporter:  exporter,
		clipboard: opts.Clipboard,
		files:     opts.Files,
		mail:      opts.Mail,
		delivery:  opts.Delivery,
		logger:    opts.Logger,
		now:       opts.Now,
	}
	if e.logger == nil {
		e.logger = logging.Nop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Document returns a copy of the current document.
func (e *Editor) Document() document.Document {
	return e.doc.Clone()
}

// CurrentKey is the catalogue key of the loaded or last saved form, or "".
func (e *Editor) CurrentKey() string {
	return e.key
}

// Dirty reports unsaved changes.
func (e *Editor) Dirty() bool {
	return e.dirty
}

func (e *Editor) SetTitle(v string)          { e.doc.Title = v; e.dirty = true }
func (e *Editor) SetSubject(v string)        { e.doc.Subject = v; e.dirty = true }
func (e *Editor) SetDetails(v string)        { e.doc.Details = v; e.dirty = true }
func (e *Editor) SetSessionType(v string)    { e.doc.SessionType = v; e.dirty = true }
func (e *Editor) SetSourceOfBelief(v string) { e.doc.SourceOfBelief = v; e.dirty = true }

// AddSection appends a primary section with the catalog's default content.
func (e *Editor) AddSection(code string) (document.Section, error) {
	if strings.TrimSpace(code) == "" {
		return document.Section{}, ErrHeadingRequired
	}
	section := document.NewSection(catalog.Primary(), code)
	e.doc.Sections = append(e.doc.Sections, section)
	e.dirty = true
	return section, nil
}

// AddEmotion appends a connected-emotion section.
func (e *Editor) AddEmotion(code string) (document.Section, error) {
	if strings.TrimSpace(code) == "" {
		return document.Section{}, ErrHeadingRequired
	}
	section := document.NewSection(catalog.Emotions(), code)
	e.doc.ConnectedEmotionsSections = append(e.doc.ConnectedEmotionsSections, section)
	e.dirty = true
	return section, nil
}

// AddShortcut adds the section bound to a keyboard shortcut. ok is false
// when the combination is unbound.
func (e *Editor) AddShortcut(key string, mods catalog.Modifiers) (document.Section, bool) {
	code, ok := catalog.Shortcut(key, mods)
	if !ok {
		return document.Section{}, false
	}
	section, err := e.AddSection(code)
	return section, err == nil
}

// Duplicate inserts a fresh copy of section id right after it. Unknown ids
// are ignored.
func (e *Editor) Duplicate(id string) {
	if document.IndexOf(e.doc.Sections, id) >= 0 {
		e.doc.Sections = document.Duplicate(e.doc.Sections, catalog.Primary(), id)
		e.dirty = true
		return
	}
	if document.IndexOf(e.doc.ConnectedEmotionsSections, id) >= 0 {
		e.doc.ConnectedEmotionsSections = document.Duplicate(e.doc.ConnectedEmotionsSections, catalog.Emotions(), id)
		e.dirty = true
	}
}

// Remove deletes section id from whichever list holds it.
func (e *Editor) Remove(id string) {
	before := len(e.doc.Sections) + len(e.doc.ConnectedEmotionsSections)
	e.doc.Sections = document.Remove(e.doc.Sections, id)
	e.doc.ConnectedEmotionsSections = document.Remove(e.doc.ConnectedEmotionsSections, id)
	if len(e.doc.Sections)+len(e.doc.ConnectedEmotionsSections) != before {
		e.dirty = true
	}
}

// UpdateContent replaces the text of section id.
func (e *Editor) UpdateContent(id, text string) {
	if document.IndexOf(e.doc.Sections, id) >= 0 {
		e.doc.Sections = document.UpdateContent(e.doc.Sections, id, text)
		e.dirty = true
		return
	}
	if document.IndexOf(e.doc.ConnectedEmotionsSections, id) >= 0 {
		e.doc.ConnectedEmotionsSections = document.UpdateContent(e.doc.ConnectedEmotionsSections, id, text)
		e.dirty = true
	}
}

// Move swaps section id with its neighbour delta positions away.
func (e *Editor) Move(id string, delta int) {
	if document.IndexOf(e.doc.Sections, id) >= 0 {
		e.doc.Sections = document.Move(e.doc.Sections, id, delta)
		e.dirty = true
		return
	}
	if document.IndexOf(e.doc.ConnectedEmotionsSections, id) >= 0 {
		e.doc.ConnectedEmotionsSections = document.Move(e.doc.ConnectedEmotionsSections, id, delta)
		e.dirty = true
	}
}

// Paste replaces the content of section id with the clipboard text. An
// empty clipboard changes nothing.
func (e *Editor) Paste(ctx context.Context, id string) error {
	if e.clipboard == nil {
		return fmt.Errorf("%w: %w", ErrClipboard, ErrUnavailable)
	}
	text, err := e.clipboard.ReadText(ctx)
	if err != nil {
		e.logger.Warn("editor", "clipboard read failed", map[string]any{"error": err.Error()})
		return fmt.Errorf("%w: %v", ErrClipboard, err)
	}
	if text == "" {
		return nil
	}
	e.UpdateContent(id, text)
	return nil
}

// Save persists the document, updating the current entry when it still exists.
func (e *Editor) Save(ctx context.Context) (store.SaveResult, error) {
	result, err := e.catalogue.Save(ctx, e.doc.Clone(), e.key)
	if err != nil {
		return store.SaveResult{}, err
	}
	e.key = result.Key
	e.dirty = false
	return result, nil
}

// Load replaces the document with a saved form.
func (e *Editor) Load(ctx context.Context, key string) error {
	doc, err := e.catalogue.Load(ctx, key)
	if err != nil {
		return err
	}
	e.doc = doc
	e.key = key
	e.dirty = false
	return nil
}

// Import replaces the document with an exported JSON file. The imported
// form is unsaved and has no key.
func (e *Editor) Import(data []byte) error {
	doc, err := document.ParseImport(data)
	if err != nil {
		return err
	}
	e.doc = doc
	e.key = ""
	e.dirty = false
	return nil
}

// Render produces an export of the current document without saving it.
func (e *Editor) Render(ctx context.Context, format export.Format) (*export.Result, error) {
	return e.exporter.Export(ctx, export.Request{Document: e.doc.Clone(), Format: format, Now: e.now()})
}

// Export renders the document and hands it to the file sink.
func (e *Editor) Export(ctx context.Context, format export.Format) (*export.Result, error) {
	if e.files == nil {
		return nil, ErrUnavailable
	}
	result, err := e.Render(ctx, format)
	if err != nil {
		return nil, err
	}
	if err := e.files.Save(ctx, result.Filename, result.MimeType, result.Data); err != nil {
		return nil, fmt.Errorf("save %s: %w", result.Filename, err)
	}
	return result, nil
}

func (e *Editor) ExportJSON(ctx context.Context) (*export.Result, error) {
	return e.Export(ctx, export.FormatJSON)
}

func (e *Editor) ExportPDF(ctx context.Context) (*export.Result, error) {
	return e.Export(ctx, export.FormatPDF)
}

// MailtoLink builds the mail client link for the current document.
func (e *Editor) MailtoLink(to string) (string, error) {
	if strings.TrimSpace(to) == "" {
		return "", ErrRecipientRequired
	}
	if err := document.ValidateForExport(e.doc); err != nil {
		return "", err
	}
	return export.MailtoLink(to, export.EmailContent(e.doc, e.now())), nil
}

// OpenMailClient hands the rendered email to the user's mail program.
func (e *Editor) OpenMailClient(ctx context.Context, to string) error {
	if e.mail == nil {
		return ErrUnavailable
	}
	link, err := e.MailtoLink(to)
	if err != nil {
		return err
	}
	return e.mail.Open(ctx, link)
}

// SendOptions are the user supplied parts of a remote send.
type SendOptions struct {
	To          string
	SenderName  string
	SenderEmail string
	Subject     string
	Message     string
	PIN         string
}

// SendEmail asks the delivery collaborator to send the current document.
// The PIN is sent with every request.
func (e *Editor) SendEmail(ctx context.Context, opts SendOptions) (string, error) {
	if e.delivery == nil {
		return "", ErrUnavailable
	}
	if strings.TrimSpace(opts.To) == "" {
		return "", ErrRecipientRequired
	}
	if err := document.ValidateForExport(e.doc); err != nil {
		return "", err
	}
	subject := opts.Subject
	if strings.TrimSpace(subject) == "" {
		subject = export.EmailSubject(e.doc)
	}
	id, err := e.delivery.Send(ctx, email.SendRequest{
		Document:       document.ToRecord(e.doc, e.now()),
		RecipientEmail: strings.TrimSpace(opts.To),
		SenderName:     opts.SenderName,
		SenderEmail:    opts.SenderEmail,
		EmailSubject:   subject,
		EmailMessage:   opts.Message,
		PIN:            opts.PIN,
	})
	if err != nil {
		return "", err
	}
	e.logger.Info("editor", "email sent", map[string]any{"message_id": id})
	return id, nil
}

// Delete removes a saved form. Deleting the current form forgets its key,
// so the next save creates a new entry.
func (e *Editor) Delete(ctx context.Context, key string) error {
	if err := e.catalogue.Remove(ctx, key); err != nil {
		return err
	}
	if key == e.key {
		e.key = ""
	}
	return nil
}

// ClearAll removes every saved form and resets the editor.
func (e *Editor) ClearAll(ctx context.Context) (int, error) {
	removed, err := e.catalogue.Clear(ctx)
	if err != nil {
		return 0, err
	}
	e.ClearForm()
	return removed, nil
}

// ExportAll downloads the archive of every saved form.
func (e *Editor) ExportAll(ctx context.Context) (store.Archive, error) {
	if e.files == nil {
		return store.Archive{}, ErrUnavailable
	}
	archive, err := e.catalogue.ExportAll(ctx)
	if err != nil {
		return store.Archive{}, err
	}
	if err := e.files.Save(ctx, archive.Filename, "application/zip", archive.Data); err != nil {
		return store.Archive{}, fmt.Errorf("save %s: %w", archive.Filename, err)
	}
	return archive, nil
}

// ClearForm starts a new empty document.
func (e *Editor) ClearForm() {
	e.doc = document.New()
	e.key = ""
	e.dirty = false
}
