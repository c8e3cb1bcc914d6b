package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"beliefpad/api/internal/auth"
	"beliefpad/api/internal/backup"
	"beliefpad/api/internal/catalog"
	"beliefpad/api/internal/config"
	"beliefpad/api/internal/document"
	"beliefpad/api/internal/email"
	"beliefpad/api/internal/export"
	"beliefpad/api/internal/history"
	"beliefpad/api/internal/logging"
	"beliefpad/api/internal/search"
	"beliefpad/api/internal/store"
)

type catalogueStore interface {
	Save(context.Context, document.Document, string) (store.SaveResult, error)
	Raw(context.Context, string) (string, error)
	List(context.Context) ([]store.Entry, error)
	Remove(context.Context, string) error
	Clear(context.Context) (int, error)
	ExportAll(context.Context) (store.Archive, error)
	Capacity(context.Context) (store.Capacity, error)
}

type exporter interface {
	Export(context.Context, export.Request) (*export.Result, error)
}

type historyLog interface {
	Log(string, int) ([]history.CommitInfo, error)
	Revision(string, string) (document.Document, error)
}

type searcher interface {
	Search(context.Context, search.Query) search.Response
}

type mailer interface {
	IsConfigured() bool
	Send(context.Context, email.Message) (string, error)
}

type backupStore interface {
	Upload(context.Context, store.Archive) (backup.Object, error)
	List(context.Context) ([]backup.Object, error)
}

type pinVerifier interface {
	Verify(client, pin string) error
}

// Dependencies are the collaborators behind the HTTP API. Catalogue and
// Exporter are required; the rest switch their endpoints off when nil.
type Dependencies struct {
	Catalogue catalogueStore
	Exporter  exporter
	History   historyLog
	Search    searcher
	Mailer    mailer
	PIN       pinVerifier
	Backup    backupStore
	Logger    logging.Logger
}

// ClientLog is a log line forwarded by a client.
type ClientLog struct {
	Level     string         `json:"level" validate:"required,oneof=debug info warn error"`
	Component string         `json:"component" validate:"required,max=200"`
	Message   string         `json:"message" validate:"required"`
	Data      any            `json:"data,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
	Timestamp string         `json:"timestamp"`
}

type Service struct {
	cfg       config.Config
	catalogue catalogueStore
	exporter  exporter
	history   historyLog
	search    searcher
	mailer    mailer
	pin       pinVerifier
	backup    backupStore
	logger    logging.Logger
	validate  *validator.Validate
	now       func() time.Time
}

func New(cfg config.Config, deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{
		cfg:       cfg,
		catalogue: deps.Catalogue,
		exporter:  deps.Exporter,
		history:   deps.History,
		search:    deps.Search,
		mailer:    deps.Mailer,
		pin:       deps.PIN,
		backup:    deps.Backup,
		logger:    logger,
		validate:  newValidator(),
		now:       time.Now,
	}
}

// Ping runs the catalogue capacity probe, which writes and removes a key.
func (s *Service) Ping(ctx context.Context) (store.Capacity, error) {
	return s.catalogue.Capacity(ctx)
}

func (s *Service) ListForms(ctx context.Context) ([]store.Entry, error) {
	return s.catalogue.List(ctx)
}

// Form returns the stored record of key, timestamp included.
func (s *Service) Form(ctx context.Context, key string) (document.Record, error) {
	raw, err := s.catalogue.Raw(ctx, key)
	if err != nil {
		return document.Record{}, err
	}
	record, err := document.Decode([]byte(raw))
	if err != nil {
		return document.Record{}, fmt.Errorf("%w: %w", store.ErrMalformed, err)
	}
	return record, nil
}

// CreateForm saves record under a new key.
func (s *Service) CreateForm(ctx context.Context, record document.Record) (store.SaveResult, error) {
	return s.catalogue.Save(ctx, record.Document(), "")
}

// UpdateForm overwrites an existing form in place.
func (s *Service) UpdateForm(ctx context.Context, key string, record document.Record) (store.SaveResult, error) {
	if _, err := s.catalogue.Raw(ctx, key); err != nil {
		return store.SaveResult{}, err
	}
	return s.catalogue.Save(ctx, record.Document(), key)
}

func (s *Service) DeleteForm(ctx context.Context, key string) error {
	return s.catalogue.Remove(ctx, key)
}

func (s *Service) ClearForms(ctx context.Context) (int, error) {
	return s.catalogue.Clear(ctx)
}

func (s *Service) Archive(ctx context.Context) (store.Archive, error) {
	return s.catalogue.ExportAll(ctx)
}

func (s *Service) Capacity(ctx context.Context) (store.Capacity, error) {
	return s.catalogue.Capacity(ctx)
}

// ImportForm validates an exported file and saves it as a new form.
func (s *Service) ImportForm(ctx context.Context, data []byte) (store.SaveResult, document.Document, error) {
	doc, err := document.ParseImport(data)
	if err != nil {
		return store.SaveResult{}, document.Document{}, err
	}
	result, err := s.catalogue.Save(ctx, doc, "")
	if err != nil {
		return store.SaveResult{}, document.Document{}, err
	}
	return result, doc, nil
}

func (s *Service) Search(ctx context.Context, q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text, Engine: "none"}
	}
	return s.search.Search(ctx, q)
}

// History lists the recorded revisions of a form. Only form keys name a
// history repository.
func (s *Service) History(key string, limit int) ([]history.CommitInfo, error) {
	if s.history == nil {
		return nil, domainError(http.StatusServiceUnavailable, "HISTORY_UNAVAILABLE", "History is not enabled", nil)
	}
	if !store.IsFormKey(key) {
		return nil, store.ErrNotFound
	}
	return s.history.Log(key, limit)
}

func (s *Service) Revision(key, hash string) (document.Document, error) {
	if s.history == nil {
		return document.Document{}, domainError(http.StatusServiceUnavailable, "HISTORY_UNAVAILABLE", "History is not enabled", nil)
	}
	if !store.IsFormKey(key) {
		return document.Document{}, store.ErrNotFound
	}
	return s.history.Revision(key, hash)
}

// Export renders record without storing it.
func (s *Service) Export(ctx context.Context, format string, record document.Record) (*export.Result, error) {
	f, err := export.ParseFormat(strings.ToLower(strings.TrimSpace(format)))
	if err != nil {
		return nil, err
	}
	return s.exporter.Export(ctx, export.Request{Document: record.Document(), Format: f, Now: s.now()})
}

// SendEmail checks the shared PIN and delivers the document by SMTP with a
// plain text body, an HTML report and the PDF attached.
func (s *Service) SendEmail(ctx context.Context, client string, req email.SendRequest) (string, error) {
	if s.pin == nil {
		return "", auth.ErrInvalidPIN
	}
	if err := s.pin.Verify(client, req.PIN); err != nil {
		s.logger.Warn("email", "rejected send attempt", map[string]any{"client": client, "error": err.Error()})
		return "", err
	}
	if err := s.validateStruct(req); err != nil {
		return "", err
	}
	if s.mailer == nil || !s.mailer.IsConfigured() {
		return "", email.ErrNotConfigured
	}

	doc := req.Document.Document()
	if err := document.ValidateForExport(doc); err != nil {
		return "", err
	}
	now := s.now()

	html, err := email.RenderSessionReport(reportData(doc, req, now))
	if err != nil {
		return "", err
	}
	pdf, err := export.RenderPDF(doc, now)
	if err != nil {
		return "", err
	}

	text := export.EmailContent(doc, now).Body
	if msg := strings.TrimSpace(req.EmailMessage); msg != "" {
		text = msg + "\n\n" + text
	}

	id, err := s.mailer.Send(ctx, email.Message{
		To:       req.RecipientEmail,
		ReplyTo:  req.SenderEmail,
		FromName: req.SenderName,
		Subject:  firstNonBlank(req.EmailSubject, export.EmailSubject(doc)),
		Text:     text,
		HTML:     html,
		Attachments: []email.Attachment{{
			Filename:    export.PDFFilename(doc),
			ContentType: "application/pdf",
			Data:        pdf,
		}},
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("email", "session emailed", map[string]any{"message_id": id, "client_name": doc.Title})
	return id, nil
}

func reportData(doc document.Document, req email.SendRequest, now time.Time) email.ReportData {
	data := email.ReportData{
		ClientName:  doc.Title,
		SessionType: doc.SessionType,
		Details:     doc.Details,
		Message:     req.EmailMessage,
		SenderName:  req.SenderName,
		SenderEmail: req.SenderEmail,
		Year:        now.Year(),
	}
	for _, section := range document.WithContent(doc.ConnectedEmotionsSections) {
		data.Sections = append(data.Sections, email.ReportSection{
			Heading: catalog.Emotions().FullName(section.Heading),
			Content: section.Content,
		})
	}
	for _, section := range document.WithContent(doc.Sections) {
		data.Sections = append(data.Sections, email.ReportSection{
			Heading: catalog.Primary().FullName(section.Heading),
			Content: section.Content,
		})
	}
	return data
}

// RecordClientLog writes a client log line through the server logger and
// returns the id it was filed under.
func (s *Service) RecordClientLog(entry ClientLog) (string, error) {
	if err := s.validateStruct(entry); err != nil {
		return "", err
	}
	id := uuid.NewString()
	details := map[string]any{
		"log_id":           id,
		"data":             entry.Data,
		"context":          entry.Context,
		"client_timestamp": entry.Timestamp,
		"environment":      s.cfg.Environment,
	}
	module := "client:" + entry.Component
	switch entry.Level {
	case "debug":
		s.logger.Debug(module, entry.Message, details)
	case "warn":
		s.logger.Warn(module, entry.Message, details)
	case "error":
		s.logger.Error(module, entry.Message, details)
	default:
		s.logger.Info(module, entry.Message, details)
	}
	return id, nil
}

// Backup uploads the archive of every saved form to object storage.
func (s *Service) Backup(ctx context.Context) (backup.Object, error) {
	if s.backup == nil {
		return backup.Object{}, backup.ErrNotConfigured
	}
	archive, err := s.catalogue.ExportAll(ctx)
	if err != nil {
		return backup.Object{}, err
	}
	return s.backup.Upload(ctx, archive)
}

func (s *Service) Backups(ctx context.Context) ([]backup.Object, error) {
	if s.backup == nil {
		return nil, backup.ErrNotConfigured
	}
	return s.backup.List(ctx)
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *Service) validateStruct(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}
	fields := make([]map[string]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		fields = append(fields, map[string]string{"field": fe.Field(), "rule": fe.Tag()})
	}
	return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid request", fields)
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
