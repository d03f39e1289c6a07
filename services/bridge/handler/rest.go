package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/michaelfortunato/pueue-webui/internal/backend"
	"github.com/michaelfortunato/pueue-webui/internal/cache"
	"github.com/michaelfortunato/pueue-webui/internal/domain"
	"github.com/michaelfortunato/pueue-webui/internal/pueue"
	"github.com/michaelfortunato/pueue-webui/internal/stats"
	"github.com/michaelfortunato/pueue-webui/pkg/telemetry"
)

// REST serves the bridge's JSON API in front of a Backend.
type REST struct {
	backend backend.Backend
	cache   *cache.StatusCache
	logger  *slog.Logger
}

// NewREST creates the handler set. The cache is injected so tests can build
// isolated instances per case.
func NewREST(b backend.Backend, c *cache.StatusCache, logger *slog.Logger) *REST {
	return &REST{backend: b, cache: c, logger: logger}
}

// Routes mounts every endpoint on r.
func (h *REST) Routes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Get("/status", h.Status)
	r.Get("/logs/{id}", h.Logs)
	r.Post("/task/{id}", h.TaskAction)
	r.Post("/tasks", h.AddTask)
	r.Post("/groups", h.GroupAction)
	r.Get("/config/callback", h.GetCallbackConfig)
	r.Post("/config/callback", h.UpdateCallbackConfig)
}

// Health handles GET /health.
func (h *REST) Health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// statusResponse is the GET /status success body.
type statusResponse struct {
	OK     bool            `json:"ok"`
	Status domain.Snapshot `json:"status"`
	Stats  stats.Stats     `json:"stats"`
	Digest string          `json:"digest"`
	Cached bool            `json:"cached,omitempty"`
}

// Status handles GET /status: cache first, daemon on a miss. The cache lock
// is never held across the backend call, so concurrent misses may fetch
// twice; the second writer wins.
func (h *REST) Status(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("bridge").Start(r.Context(), "bridge.status")
	defer span.End()

	if entry, ok := h.cache.Get(); ok {
		telemetry.StatusCacheHits.Inc()
		span.SetAttributes(attribute.Bool("cache.hit", true))
		writeJSON(w, http.StatusOK, statusResponse{
			OK:     true,
			Status: entry.Payload,
			Stats:  entry.Stats,
			Digest: entry.Digest,
			Cached: true,
		})
		return
	}
	telemetry.StatusCacheMisses.Inc()

	snapshot, err := h.backend.Status(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "status fetch failed")
		h.logger.Error("status fetch failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	derived, digest := stats.Compute(snapshot)
	h.cache.Put(snapshot, derived, digest)
	span.SetAttributes(attribute.String("status.digest", digest))

	writeJSON(w, http.StatusOK, statusResponse{
		OK:     true,
		Status: snapshot,
		Stats:  derived,
		Digest: digest,
	})
}

// Logs handles GET /logs/{id}?lines=N.
func (h *REST) Logs(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("bridge").Start(r.Context(), "bridge.logs")
	defer span.End()

	taskID, ok := parseTaskID(w, r)
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int("task.id", taskID))

	var lines *int
	if raw := r.URL.Query().Get("lines"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil {
			lines = &value
		}
	}

	logs, err := h.backend.Logs(ctx, taskID, lines)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("log fetch failed", slog.Int("task_id", taskID), slog.String("error", err.Error()))
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "log": logs})
}

// taskActionRequest is the POST /task/{id} body.
type taskActionRequest struct {
	Action string `json:"action"`
}

// TaskAction handles POST /task/{id}.
func (h *REST) TaskAction(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("bridge").Start(r.Context(), "bridge.task_action")
	defer span.End()

	taskID, ok := parseTaskID(w, r)
	if !ok {
		return
	}

	var body taskActionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	span.SetAttributes(
		attribute.Int("task.id", taskID),
		attribute.String("task.action", body.Action),
	)

	result, err := h.backend.Action(ctx, taskID, body.Action)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("task action failed",
			slog.Int("task_id", taskID),
			slog.String("action", body.Action),
			slog.String("error", err.Error()),
		)
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "result": result})
}

// AddTask handles POST /tasks.
func (h *REST) AddTask(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("bridge").Start(r.Context(), "bridge.add_task")
	defer span.End()

	var body domain.AddTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(body.Command) == "" {
		writeError(w, http.StatusBadRequest, "missing command")
		return
	}
	span.SetAttributes(attribute.String("task.command", body.Command))

	result, err := h.backend.AddTask(ctx, body)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("add task failed", slog.String("error", err.Error()))
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "result": result})
}

// GroupAction handles POST /groups.
func (h *REST) GroupAction(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("bridge").Start(r.Context(), "bridge.group_action")
	defer span.End()

	var body domain.GroupActionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	span.SetAttributes(
		attribute.String("group.action", body.Action),
		attribute.String("group.name", body.Name),
	)

	result, err := h.backend.GroupAction(ctx, body)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("group action failed",
			slog.String("action", body.Action),
			slog.String("group", body.Name),
			slog.String("error", err.Error()),
		)
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "result": result})
}

// callbackConfigRequest is the POST /config/callback body.
type callbackConfigRequest struct {
	Callback         *string `json:"callback"`
	CallbackLogLines *int    `json:"callback_log_lines"`
}

// GetCallbackConfig handles GET /config/callback.
func (h *REST) GetCallbackConfig(w http.ResponseWriter, _ *http.Request) {
	configPath := pueue.ConfigPathOverride()
	settings, found, err := pueue.ReadSettings(configPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"config": callbackConfigBody(settings, &found, configPath),
	})
}

// UpdateCallbackConfig handles POST /config/callback: read-modify-write of
// the daemon config file. An empty trimmed callback clears the setting.
func (h *REST) UpdateCallbackConfig(w http.ResponseWriter, r *http.Request) {
	var body callbackConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	configPath := pueue.ConfigPathOverride()
	settings, _, err := pueue.ReadSettings(configPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if body.Callback != nil {
		trimmed := strings.TrimSpace(*body.Callback)
		if trimmed == "" {
			settings.Daemon.Callback = nil
		} else {
			settings.Daemon.Callback = &trimmed
		}
	}
	if body.CallbackLogLines != nil {
		settings.Daemon.CallbackLogLines = *body.CallbackLogLines
	}

	if err := pueue.SaveSettings(settings, configPath); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.logger.Info("callback config updated")
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"config": callbackConfigBody(settings, nil, configPath),
	})
}

func callbackConfigBody(settings pueue.Settings, found *bool, configPath *string) map[string]any {
	body := map[string]any{
		"callback":           settings.Daemon.Callback,
		"callback_log_lines": settings.Daemon.CallbackLogLines,
		"config_path":        configPath,
	}
	if found != nil {
		body["found"] = *found
	}
	return body
}

func parseTaskID(w http.ResponseWriter, r *http.Request) (int, bool) {
	taskID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || taskID < 0 {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return 0, false
	}
	return taskID, true
}

// writeBackendError maps the error taxonomy onto status codes: caller
// mistakes are 400s, everything else is a 500.
func writeBackendError(w http.ResponseWriter, err error) {
	var validation *domain.ValidationError
	var unsupported *domain.UnsupportedActionError
	if errors.As(err, &validation) || errors.As(err, &unsupported) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"ok": false, "error": msg})
}

func writeJSON(w http.ResponseWriter, code int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(value)
}
