package handler

import (
	"log/slog"
	"net/http"

	"knowledge/internal/httputil"
)

// handleError converts domain errors to an ok:false envelope. Internal
// errors are logged and their text withheld.
func handleError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := statusFromError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"user_id", httputil.GetUserID(r),
			"error", err,
		)
		message = "internal server error"
	}
	httputil.RespondError(w, status, httputil.CodeFromStatus(status), message)
}

// badRequest writes a 400 envelope.
func badRequest(w http.ResponseWriter, message string) {
	httputil.RespondError(w, http.StatusBadRequest, httputil.CodeFromStatus(http.StatusBadRequest), message)
}
