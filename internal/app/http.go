package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"beliefpad/api/internal/auth"
	"beliefpad/api/internal/backup"
	"beliefpad/api/internal/document"
	"beliefpad/api/internal/email"
	"beliefpad/api/internal/export"
	"beliefpad/api/internal/history"
	"beliefpad/api/internal/logging"
	"beliefpad/api/internal/search"
	"beliefpad/api/internal/store"
)

const maxImportBytes = 5 * 1024 * 1024

type HTTPServer struct {
	service    *Service
	corsOrigin string
	logger     logging.Logger
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin, logger: service.logger}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{}

		capacity, err := s.service.Ping(ctx)
		if err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["storage"] = map[string]any{"status": "error", "error": err.Error()}
		} else {
			checks["storage"] = map[string]any{"status": "ok", "capacity": capacity}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	if r.URL.Path == "/api/logs" {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		var body ClientLog
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		id, err := s.service.RecordClientLog(body)
		if err != nil {
			s.writeMappedError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Log received", "logId": id})
		return
	}

	if r.URL.Path == "/api/send-email" {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		s.handleSendEmail(w, r)
		return
	}

	if r.URL.Path == "/api/export" {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		var body struct {
			Format   string          `json:"format"`
			Document document.Record `json:"document"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		result, err := s.service.Export(r.Context(), body.Format, body.Document)
		if err != nil {
			s.writeMappedError(w, err)
			return
		}
		writeFile(w, result.Filename, result.MimeType, result.Data)
		return
	}

	if r.URL.Path == "/api/backups" {
		switch r.Method {
		case http.MethodGet:
			objects, err := s.service.Backups(r.Context())
			if err != nil {
				s.writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"backups": objects})
		case http.MethodPost:
			object, err := s.service.Backup(r.Context())
			if err != nil {
				s.writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, object)
		default:
			methodNotAllowed(w)
		}
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) >= 2 && parts[0] == "api" && parts[1] == "forms" {
		s.handleForms(w, r, parts[2:])
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleForms(w http.ResponseWriter, r *http.Request, parts []string) {
	if len(parts) == 0 {
		switch r.Method {
		case http.MethodGet:
			entries, err := s.service.ListForms(r.Context())
			if err != nil {
				s.writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"forms": entries})
		case http.MethodPost:
			var body document.Record
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			result, err := s.service.CreateForm(r.Context(), body)
			if err != nil {
				s.writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, result)
		case http.MethodDelete:
			removed, err := s.service.ClearForms(r.Context())
			if err != nil {
				s.writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"removed": removed})
		default:
			methodNotAllowed(w)
		}
		return
	}

	if len(parts) == 1 {
		switch parts[0] {
		case "archive":
			if r.Method != http.MethodGet {
				methodNotAllowed(w)
				return
			}
			archive, err := s.service.Archive(r.Context())
			if err != nil {
				s.writeMappedError(w, err)
				return
			}
			w.Header().Set("X-Form-Count", strconv.Itoa(archive.Count))
			writeFile(w, archive.Filename, "application/zip", archive.Data)
			return
		case "capacity":
			if r.Method != http.MethodGet {
				methodNotAllowed(w)
				return
			}
			capacity, err := s.service.Capacity(r.Context())
			if err != nil {
				s.writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"usedBytes":    capacity.UsedBytes,
				"totalBytes":   capacity.TotalBytes,
				"usedFraction": capacity.UsedFraction,
				"percent":      capacity.Percent(),
				"warning":      capacity.Warning,
			})
			return
		case "search":
			if r.Method != http.MethodGet {
				methodNotAllowed(w)
				return
			}
			limit, err := pageParam(r, "limit")
			if err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error(), nil)
				return
			}
			offset, err := pageParam(r, "offset")
			if err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error(), nil)
				return
			}
			writeJSON(w, http.StatusOK, s.service.Search(r.Context(), search.Query{
				Text:   r.URL.Query().Get("q"),
				Limit:  limit,
				Offset: offset,
			}))
			return
		case "import":
			if r.Method != http.MethodPost {
				methodNotAllowed(w)
				return
			}
			data, err := io.ReadAll(io.LimitReader(r.Body, maxImportBytes))
			if err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", "could not read body", nil)
				return
			}
			result, doc, err := s.service.ImportForm(r.Context(), data)
			if err != nil {
				s.writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]any{
				"key":      result.Key,
				"capacity": result.Capacity,
				"document": document.ToRecord(doc, s.service.now()),
			})
			return
		}
	}

	key := parts[0]
	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			record, err := s.service.Form(r.Context(), key)
			if err != nil {
				s.writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"key": key, "document": record})
		case http.MethodPut:
			var body document.Record
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			result, err := s.service.UpdateForm(r.Context(), key, body)
			if err != nil {
				s.writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, result)
		case http.MethodDelete:
			if err := s.service.DeleteForm(r.Context(), key); err != nil {
				s.writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true, "key": key})
		default:
			methodNotAllowed(w)
		}
		return
	}

	if parts[1] == "history" && r.Method == http.MethodGet {
		if len(parts) == 2 {
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
			commits, err := s.service.History(key, limit)
			if err != nil {
				s.writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"key": key, "commits": commits})
			return
		}
		if len(parts) == 3 {
			doc, err := s.service.Revision(key, parts[2])
			if err != nil {
				s.writeMappedError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"key":      key,
				"hash":     parts[2],
				"document": document.ToRecord(doc, s.service.now()),
			})
			return
		}
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleSendEmail(w http.ResponseWriter, r *http.Request) {
	var body email.SendRequest
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	id, err := s.service.SendEmail(r.Context(), clientAddress(r), body)
	if err != nil {
		if errors.Is(err, email.ErrDelivery) {
			s.logger.Error("email", "delivery failed", map[string]any{"error": err.Error()})
			writeJSON(w, http.StatusInternalServerError, email.SendResponse{Success: false, Message: err.Error()})
			return
		}
		s.writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, email.SendResponse{Success: true, MessageID: id})
}

func (s *HTTPServer) writeMappedError(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("http", "request failed", map[string]any{"code": code, "error": err.Error()})
	}
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		s.logger.Info("http", "request", map[string]any{
			"request_id":  requestID,
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      writer.status,
			"duration_ms": time.Since(started).Milliseconds(),
		})
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Access-Control-Expose-Headers", "Content-Disposition, X-Form-Count")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func writeFile(w http.ResponseWriter, filename, mimeType string, data []byte) {
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

// clientAddress identifies the caller for PIN throttling.
// pageParam reads an optional non-negative integer query parameter.
func pageParam(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", name)
	}
	return value, nil
}

func clientAddress(r *http.Request) string {
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	switch {
	case errors.Is(err, document.ErrTitleRequired),
		errors.Is(err, document.ErrNoSections),
		errors.Is(err, document.ErrNoContent):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", rootMessage(err), nil
	case errors.Is(err, document.ErrInvalidFormat), errors.Is(err, document.ErrParse):
		return http.StatusBadRequest, "INVALID_DOCUMENT", err.Error(), nil
	case errors.Is(err, store.ErrNotFound), errors.Is(err, history.ErrNoHistory):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, store.ErrMalformed):
		return http.StatusUnprocessableEntity, "MALFORMED_FORM", "Saved form is malformed", nil
	case errors.Is(err, store.ErrNothingToExport):
		return http.StatusConflict, "NOTHING_TO_EXPORT", "No saved forms to export", nil
	case errors.Is(err, store.ErrNothingToClear):
		return http.StatusConflict, "NOTHING_TO_CLEAR", "No saved forms to clear", nil
	case errors.Is(err, store.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Storage is full or unavailable", nil
	case errors.Is(err, auth.ErrInvalidPIN):
		return http.StatusForbidden, "INVALID_PIN", "Invalid PIN", nil
	case errors.Is(err, auth.ErrTooManyAttempts):
		return http.StatusTooManyRequests, "TOO_MANY_ATTEMPTS", "Too many invalid PIN attempts", nil
	case errors.Is(err, email.ErrNotConfigured):
		return http.StatusServiceUnavailable, "EMAIL_UNAVAILABLE", "Email delivery is not configured", nil
	case errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusBadRequest, "UNSUPPORTED_FORMAT", "Unsupported export format", nil
	case errors.Is(err, export.ErrPDFDependencyMissing), errors.Is(err, export.ErrDOCXDependencyMissing):
		return http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", err.Error(), nil
	case errors.Is(err, backup.ErrNotConfigured):
		return http.StatusServiceUnavailable, "BACKUP_UNAVAILABLE", "Backups are not configured", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}

// rootMessage drops wrapping prefixes so validation errors read as sentences.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
