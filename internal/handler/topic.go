package handler

import (
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"knowledge/internal/config"
	"knowledge/internal/domain/models"
	"knowledge/internal/domain/services"
	"knowledge/internal/httputil"
)

// TopicHandler handles topic HTTP requests
type TopicHandler struct {
	topicService services.TopicService
	logger       *slog.Logger
}

// NewTopicHandler creates a new topic handler
func NewTopicHandler(topicService services.TopicService, logger *slog.Logger) *TopicHandler {
	return &TopicHandler{
		topicService: topicService,
		logger:       logger,
	}
}

// ListTopics returns the user's topics with display paths
// GET /api/v1/topics
func (h *TopicHandler) ListTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.topicService.ListTopics(r.Context(), httputil.GetUserID(r))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondOK(w, map[string]any{"topics": topics})
}

// EnsurePath resolves a topic path, creating what is missing
// POST /api/v1/topics/ensure-path
func (h *TopicHandler) EnsurePath(w http.ResponseWriter, r *http.Request) {
	var req models.EnsurePathRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	err := validation.ValidateStruct(&req,
		validation.Field(&req.Path,
			validation.Required.Error("path is required"),
			validation.Length(1, config.MaxTopicPathLength),
		),
	)
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	result, err := h.topicService.EnsurePath(r.Context(), httputil.GetUserID(r), req.Path)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondOK(w, map[string]any{
		"topicId":       result.TopicID,
		"createdTopics": result.CreatedTopics,
	})
}

// DeleteTopic removes a topic, detaching its notes and children
// DELETE /api/v1/topics/{id}
func (h *TopicHandler) DeleteTopic(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		badRequest(w, "topic id is required")
		return
	}

	if err := h.topicService.DeleteTopic(r.Context(), httputil.GetUserID(r), id); err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondOK(w, nil)
}
