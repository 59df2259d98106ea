// Package rest exposes the read-only operational API: health, metrics and
// task lookups. It never mutates state; all writes happen through the bot.
package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/mediagrab/mediagrab/internal/logctx"
	"github.com/mediagrab/mediagrab/internal/storage"
	"github.com/mediagrab/mediagrab/internal/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultTaskLimit = 20
	maxTaskLimit     = 100
)

type taskView struct {
	ID           int64  `json:"id"`
	URL          string `json:"url"`
	Platform     string `json:"platform"`
	Status       string `json:"status"`
	FileSize     int64  `json:"file_size,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	CreatedAt    string `json:"created_at"`
	CompletedAt  string `json:"completed_at,omitempty"`
}

// StatusHandler serves the operational endpoints.
type StatusHandler struct {
	tasks     storage.TaskRepository
	telemetry *telemetry.Telemetry
}

func NewStatusHandler(tasks storage.TaskRepository, tel *telemetry.Telemetry) *StatusHandler {
	return &StatusHandler{tasks: tasks, telemetry: tel}
}

// Router assembles the ops router with telemetry, request id and logging
// middleware applied to every route.
func (h *StatusHandler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(telemetry.TagRequests)
	r.Use(telemetry.HTTPLogging)
	r.Use(telemetry.NewHTTPMiddleware(h.telemetry).Middleware)

	r.Get("/healthz", h.health)
	r.Get("/tasks", h.listTasks)
	r.Method(http.MethodGet, "/metrics", h.telemetry.Handler())

	return otelhttp.NewHandler(r, "ops")
}

func (h *StatusHandler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *StatusHandler) listTasks(w http.ResponseWriter, r *http.Request) {
	logger := logctx.LoggerFromContext(r.Context())

	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required and must be an integer"})

		return
	}

	limit := defaultTaskLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})

			return
		}

		if limit > maxTaskLimit {
			limit = maxTaskLimit
		}
	}

	records, err := h.tasks.ListUserTasks(r.Context(), userID, limit)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		logger.Error("failed to list tasks", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})

		return
	}

	views := make([]taskView, 0, len(records))
	for _, rec := range records {
		views = append(views, toTaskView(rec))
	}

	writeJSON(w, http.StatusOK, map[string]any{"tasks": views})
}

func toTaskView(rec storage.TaskRecord) taskView {
	v := taskView{
		ID:           rec.ID,
		URL:          rec.URL,
		Platform:     rec.Platform,
		Status:       rec.Status,
		FileSize:     rec.FileSize,
		ErrorMessage: rec.ErrorMessage,
		CreatedAt:    rec.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}

	if rec.CompletedAt != nil {
		v.CompletedAt = rec.CompletedAt.UTC().Format("2006-01-02T15:04:05Z")
	}

	return v
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(body)
}
