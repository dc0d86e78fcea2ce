// Package api exposes HTTP handlers for the workout entry store.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/caseydemo/workout-app/internal/domain"
	"github.com/caseydemo/workout-app/internal/logging"
)

const maxBodyBytes = 1 << 20

// Handler coordinates HTTP requests with the domain service.
type Handler struct {
	service *domain.Service
	logger  *slog.Logger
}

// NewHandler builds a Handler. A nil logger discards server error logs.
func NewHandler(service *domain.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/", h.entries)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// entries routes /v1/{category}/entries and /v1/{category}/entries/{id}.
func (h *Handler) entries(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/"), "/"), "/")
	if len(parts) < 2 || len(parts) > 3 || parts[1] != "entries" {
		writeError(w, http.StatusNotFound, "not_found", "no such route")
		return
	}

	category, err := domain.ParseCategory(parts[0])
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}

	if len(parts) == 2 {
		switch r.Method {
		case http.MethodGet:
			h.listEntries(w, r, category)
		case http.MethodPost:
			h.createEntry(w, r, category)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		}
		return
	}

	id := parts[2]
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing entry id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getEntry(w, r, category, id)
	case http.MethodPut:
		h.updateEntry(w, r, category, id)
	case http.MethodDelete:
		h.deleteEntry(w, r, category, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) createEntry(w http.ResponseWriter, r *http.Request, category domain.Category) {
	payload, ok := readPayload(w, r)
	if !ok {
		return
	}

	entry, err := h.service.CreateEntry(r.Context(), category, payload)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntryView(*entry))
}

func (h *Handler) getEntry(w http.ResponseWriter, r *http.Request, category domain.Category, id string) {
	entry, err := h.service.GetEntry(r.Context(), category, id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryView(*entry))
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request, category domain.Category) {
	entries, err := h.service.ListEntries(r.Context(), category)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	items := make([]EntryView, 0, len(entries))
	for _, entry := range entries {
		items = append(items, toEntryView(entry))
	}
	writeJSON(w, http.StatusOK, ListEntriesResponse{Items: items})
}

func (h *Handler) updateEntry(w http.ResponseWriter, r *http.Request, category domain.Category, id string) {
	payload, ok := readPayload(w, r)
	if !ok {
		return
	}

	entry, err := h.service.UpdateEntry(r.Context(), category, id, payload)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntryView(*entry))
}

func (h *Handler) deleteEntry(w http.ResponseWriter, r *http.Request, category domain.Category, id string) {
	if err := h.service.DeleteEntry(r.Context(), category, id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func readPayload(w http.ResponseWriter, r *http.Request) (json.RawMessage, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to read body")
		return nil, false
	}
	if !json.Valid(body) {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return nil, false
	}
	return body, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *domain.ValidationError
	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, "validation_failed", validation.Error())
	case errors.Is(err, domain.ErrEntryNotFound):
		writeError(w, http.StatusNotFound, "not_found", "entry not found")
	case errors.Is(err, domain.ErrUnknownCategory):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "entry request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

// EntryView is the wire representation of a stored entry.
type EntryView struct {
	ID        string          `json:"id"`
	Category  string          `json:"category"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ListEntriesResponse packages list results.
type ListEntriesResponse struct {
	Items []EntryView `json:"items"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Type   string `json:"type"`
	Detail string `json:"detail"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, ErrorResponse{Type: code, Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toEntryView(entry domain.Entry) EntryView {
	return EntryView{
		ID:        entry.ID,
		Category:  string(entry.Category),
		Payload:   entry.Payload,
		CreatedAt: entry.CreatedAt,
		UpdatedAt: entry.UpdatedAt,
	}
}
