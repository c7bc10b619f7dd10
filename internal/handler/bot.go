// Package handler provides HTTP handlers for the API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/trivium-ai/bot-platform/internal/middleware"
	"github.com/trivium-ai/bot-platform/internal/model"
	"github.com/trivium-ai/bot-platform/internal/service"
	"github.com/trivium-ai/bot-platform/pkg/logger"
)

// modelAliases maps client-facing model names to the models actually
// used for generation.
var modelAliases = map[string]string{
	"gpt-3.5-turbo": "gpt-4o",
}

// BotHandler handles bot endpoints.
type BotHandler struct {
	service *service.BotService
	logger  *logger.Logger
}

// NewBotHandler creates a new bot handler.
func NewBotHandler(svc *service.BotService, log *logger.Logger) *BotHandler {
	return &BotHandler{
		service: svc,
		logger:  log,
	}
}

// Chat handles POST /api/v1/bot/chat
func (h *BotHandler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateQuery(req.Query); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ThreadID != "" {
		if err := middleware.ValidateThreadID(req.ThreadID); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if err := middleware.ValidateTemperature(req.Temperature); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateMaxTokens(req.MaxTokens); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req.Model = h.mapModelSelection(req.Model)

	thread, err := h.service.ProcessChat(ctx, userID, &req)
	if err != nil {
		h.writeServiceError(w, err, "failed to process chat request")
		return
	}

	writeJSON(w, http.StatusOK, thread)
}

// GetThread handles GET /api/v1/bot/threads/{threadID}
func (h *BotHandler) GetThread(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	threadID := chi.URLParam(r, "threadID")

	if err := middleware.ValidateThreadID(threadID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	thread, err := h.service.GetThread(ctx, userID, threadID)
	if err != nil {
		h.writeServiceError(w, err, "failed to load thread")
		return
	}

	writeJSON(w, http.StatusOK, thread)
}

// ListThreads handles GET /api/v1/bot/threads
func (h *BotHandler) ListThreads(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	limit := 50
	skip := 0

	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if s := r.URL.Query().Get("skip"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil && parsed >= 0 {
			skip = parsed
		}
	}

	page, err := h.service.ListThreads(ctx, userID, limit, skip)
	if err != nil {
		h.writeServiceError(w, err, "failed to list threads")
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// SwitchResponse handles POST /api/v1/bot/switch_response
func (h *BotHandler) SwitchResponse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req model.ToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateThreadID(req.ThreadID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateResponseKey(req.ResponseKey); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ack, err := h.service.SwitchPreference(ctx, userID, &req)
	if err != nil {
		h.writeServiceError(w, err, "failed to update preference")
		return
	}

	writeJSON(w, http.StatusOK, ack)
}

// Config handles GET /api/v1/bot/config
func (h *BotHandler) Config(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Config())
}

// Stats handles GET /api/v1/bot/conversation_stats
func (h *BotHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "failed to collect stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// mapModelSelection swaps client-facing model aliases for the backend
// model actually used.
func (h *BotHandler) mapModelSelection(m *string) *string {
	if m == nil {
		return nil
	}
	if mapped, ok := modelAliases[*m]; ok {
		h.logger.Info("model selection mapped",
			zap.String("requested", *m),
			zap.String("mapped", mapped),
		)
		return &mapped
	}
	return m
}

// writeServiceError maps service errors onto the HTTP error taxonomy.
func (h *BotHandler) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrThreadNotFound):
		writeError(w, http.StatusNotFound, "Thread not found")
	case errors.Is(err, service.ErrAccessDenied):
		writeError(w, http.StatusForbidden, "Access denied")
	case errors.Is(err, service.ErrProviderUnknown), errors.Is(err, service.ErrProviderUnavailable):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(fallback, zap.Error(err))
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
