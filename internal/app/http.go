package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/huangjulu/camping-gear/internal/export"
	"github.com/huangjulu/camping-gear/internal/search"
	"github.com/huangjulu/camping-gear/internal/util"
	"github.com/huangjulu/camping-gear/internal/wizard"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
	metrics    http.Handler
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{
		service:    service,
		corsOrigin: corsOrigin,
		metrics:    promhttp.Handler(),
	}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
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
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}

		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/metrics" {
		s.metrics.ServeHTTP(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/sheet" {
		payload, err := s.service.Sheet(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not load sheet", nil)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/assignments" {
		assignments, err := s.service.Assignments(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not list assignments", nil)
			return
		}
		items := make([]map[string]any, 0, len(assignments))
		for _, a := range assignments {
			entry := map[string]any{
				"id":        a.ID,
				"itemId":    a.ItemID,
				"userName":  a.UserName,
				"createdAt": a.CreatedAt,
			}
			if a.CustomNote != nil {
				entry["customNote"] = *a.CustomNote
			}
			items = append(items, entry)
		}
		writeJSON(w, http.StatusOK, map[string]any{"assignments": items})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/search" {
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		limit := 20
		if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
				return
			}
			limit = parsed
		}
		offset := 0
		if raw := strings.TrimSpace(r.URL.Query().Get("offset")); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "offset must be an integer", nil)
				return
			}
			offset = parsed
		}
		payload := s.service.SearchClaims(search.Query{Text: q, Limit: limit, Offset: offset})
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/export" {
		format := export.Format(strings.TrimSpace(r.URL.Query().Get("format")))
		if format == "" {
			format = export.FormatCSV
		}
		result, err := s.service.ExportSheet(r.Context(), format)
		if err != nil {
			if errors.Is(err, export.ErrUnsupportedFormat) {
				writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "format must be pdf or csv", nil)
				return
			}
			if errors.Is(err, export.ErrPDFDependencyMissing) {
				writeError(w, http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "PDF export is not available", nil)
				return
			}
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Export failed", nil)
			return
		}
		w.Header().Set("Content-Type", result.MimeType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(result.Data)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/history" {
		limit := 20
		if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
				return
			}
			limit = parsed
		}
		commits, err := s.service.History(limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not list history", nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"history": commits})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/events" {
		s.handleEvents(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/drafts" {
		id := s.service.OpenDraft()
		payload, err := s.service.DraftView(id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not open draft", nil)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	parts := splitPath(r.URL.Path)

	if len(parts) == 3 && parts[0] == "api" && parts[1] == "assignments" && r.Method == http.MethodDelete {
		if err := s.service.DeleteAssignment(r.Context(), parts[2]); err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "drafts" {
		s.handleDraft(w, r, parts[2], parts[3:])
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

// handleDraft dispatches the wizard routes under /api/drafts/{id}.
func (s *HTTPServer) handleDraft(w http.ResponseWriter, r *http.Request, draftID string, rest []string) {
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			payload, err := s.service.DraftView(draftID)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, payload)
			return
		case http.MethodDelete:
			// Explicit cancel discards all draft state immediately.
			s.service.CloseDraft(draftID)
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
			return
		}
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}

	action := strings.Join(rest, "/")
	var err error
	switch action {
	case "name":
		var body struct {
			Name string `json:"name"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		err = s.service.WithDraft(draftID, func(d *wizard.Draft) error {
			return d.SetName(body.Name)
		})

	case "categories/toggle":
		var body struct {
			CategoryID string `json:"categoryId"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		err = s.service.WithDraft(draftID, func(d *wizard.Draft) error {
			return d.ToggleCategory(body.CategoryID)
		})

	case "categories/custom":
		var body struct {
			Name string `json:"name"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		err = s.service.WithDraft(draftID, func(d *wizard.Draft) error {
			_, addErr := d.AddCustomCategory(body.Name)
			return addErr
		})

	case "items/toggle", "items/add":
		var body struct {
			ItemID string `json:"itemId"`
			Note   string `json:"note"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		snap, snapErr := s.service.Snapshot(r.Context())
		if snapErr != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not load catalog", nil)
			return
		}
		err = s.service.WithDraft(draftID, func(d *wizard.Draft) error {
			if action == "items/add" {
				return d.AddItem(snap, body.ItemID, body.Note)
			}
			return d.ToggleItem(snap, body.ItemID, body.Note)
		})

	case "items/note":
		var body struct {
			ItemID string `json:"itemId"`
			Note   string `json:"note"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		err = s.service.WithDraft(draftID, func(d *wizard.Draft) error {
			return d.UpdateNote(body.ItemID, body.Note)
		})

	case "items/custom":
		var body struct {
			CategoryID string `json:"categoryId"`
			Text       string `json:"text"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		err = s.service.WithDraft(draftID, func(d *wizard.Draft) error {
			return d.AddCustomEntry(body.CategoryID, body.Text)
		})

	case "items/custom/remove":
		var body struct {
			ItemID string `json:"itemId"`
			Index  int    `json:"index"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		err = s.service.WithDraft(draftID, func(d *wizard.Draft) error {
			return d.RemoveCustomEntry(body.ItemID, body.Index)
		})

	case "next":
		err = s.service.WithDraft(draftID, func(d *wizard.Draft) error {
			return d.Next()
		})

	case "back":
		err = s.service.WithDraft(draftID, func(d *wizard.Draft) error {
			return d.Back()
		})

	case "confirm":
		inserted, message, confirmErr := s.service.ConfirmDraft(r.Context(), draftID)
		if confirmErr != nil {
			status, code, msg, details := mapError(confirmErr)
			writeError(w, status, code, msg, details)
			return
		}
		created := make([]map[string]any, 0, len(inserted))
		for _, a := range inserted {
			entry := map[string]any{
				"id":        a.ID,
				"itemId":    a.ItemID,
				"userName":  a.UserName,
				"createdAt": a.CreatedAt,
			}
			if a.CustomNote != nil {
				entry["customNote"] = *a.CustomNote
			}
			created = append(created, entry)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"message":     message,
			"assignments": created,
		})
		return

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}

	payload, viewErr := s.service.DraftView(draftID)
	if viewErr != nil {
		status, code, message, details := mapError(viewErr)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

// handleEvents bridges the change broker to an SSE stream. Clients re-read
// on every event; the stream carries no payload worth decoding.
func (s *HTTPServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Streaming unsupported", nil)
		return
	}

	events, cancel := s.service.SubscribeChanges(r.Context())
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	keepalive := time.NewTicker(25 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case event, open := <-events:
			if !open {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: change\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = util.NewID("req")
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		requestsTotal.WithLabelValues(r.Method, strconv.Itoa(writer.status)).Inc()
		slog.Info("request",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", writer.status,
			"duration_ms", time.Since(started).Milliseconds(),
		)
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

// Flush keeps SSE working through the status recorder.
func (r *statusRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func setCORSHeaders(header http.Header, origin string) {
	if origin == "" {
		origin = "*"
	}
	header.Set("Access-Control-Allow-Origin", origin)
	header.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	header.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
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

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
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
	case errors.Is(err, sql.ErrNoRows), errors.Is(err, wizard.ErrDraftNotFound):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, wizard.ErrItemFull):
		return http.StatusConflict, "LIMIT_REACHED", "Item limit reached", nil
	case errors.Is(err, wizard.ErrSubmitting):
		return http.StatusConflict, "SUBMIT_IN_FLIGHT", "Submission already in progress", nil
	case errors.Is(err, wizard.ErrWrongStep):
		return http.StatusConflict, "WRONG_STEP", "Action not allowed in current step", nil
	case errors.Is(err, wizard.ErrNameRequired),
		errors.Is(err, wizard.ErrTextRequired),
		errors.Is(err, wizard.ErrNoCategories),
		errors.Is(err, wizard.ErrNoSelections),
		errors.Is(err, wizard.ErrNotSelected),
		errors.Is(err, wizard.ErrCategoryNotSelected),
		errors.Is(err, wizard.ErrIndexOutOfRange):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
