package handler

import (
	"net/http"

	"knowledge/internal/httputil"
	"knowledge/internal/topicpath"
)

// GetTree returns the user's topics nested by parent
// GET /api/v1/topics/tree
func (h *TopicHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	topics, err := h.topicService.ListTopics(r.Context(), httputil.GetUserID(r))
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondOK(w, map[string]any{"tree": topicpath.BuildTree(topics, nil)})
}

// HealthCheck is a simple health check endpoint
// GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondOK(w, map[string]any{"status": "ok"})
}
