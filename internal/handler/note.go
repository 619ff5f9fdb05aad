package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"knowledge/internal/domain/models"
	"knowledge/internal/domain/services"
	"knowledge/internal/httputil"
)

// NoteHandler handles note HTTP requests
type NoteHandler struct {
	noteService services.NoteService
	logger      *slog.Logger
}

// NewNoteHandler creates a new note handler
func NewNoteHandler(noteService services.NoteService, logger *slog.Logger) *NoteHandler {
	return &NoteHandler{
		noteService: noteService,
		logger:      logger,
	}
}

// SearchNotes returns one page of matching notes
// GET /api/v1/notes/search?q=&topic=&offset=&limit=&mode=
func (h *NoteHandler) SearchNotes(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	mode, err := models.ParseSearchMode(query.Get("mode"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	req := &models.SearchRequest{
		Query:  query.Get("q"),
		Offset: httputil.QueryInt(r, "offset", models.DefaultSearchOffset),
		Limit:  httputil.QueryInt(r, "limit", models.DefaultSearchLimit),
		Mode:   mode,
		UserID: httputil.GetUserID(r),
	}
	if topic := strings.TrimSpace(query.Get("topic")); topic != "" {
		req.TopicID = &topic
	}

	resp, err := h.noteService.SearchNotes(r.Context(), req)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondOK(w, map[string]any{
		"items":  resp.Items,
		"total":  resp.Total,
		"offset": resp.Offset,
		"limit":  resp.Limit,
	})
}

// CreateNote stores a new note
// POST /api/v1/notes
// A duplicate client id yields 409
func (h *NoteHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req services.CreateNoteRequest
	if err := httputil.ParseJSON(w, r, &req.NoteInput); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	req.UserID = httputil.GetUserID(r)

	note, err := h.noteService.CreateNote(r.Context(), &req)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondOK(w, map[string]any{"note": note})
}

// UpdateNote replaces an existing note
// PUT /api/v1/notes/{id}
func (h *NoteHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		badRequest(w, "note id is required")
		return
	}

	var req services.UpdateNoteRequest
	if err := httputil.ParseJSON(w, r, &req.NoteInput); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	req.NoteID = id
	req.UserID = httputil.GetUserID(r)

	note, err := h.noteService.UpdateNote(r.Context(), &req)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondOK(w, map[string]any{"note": note})
}

// DeleteNote removes a note
// DELETE /api/v1/notes/{id}
func (h *NoteHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		badRequest(w, "note id is required")
		return
	}

	if err := h.noteService.DeleteNote(r.Context(), httputil.GetUserID(r), id); err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondOK(w, nil)
}

// SetFavorite sets the favorite flag
// PATCH /api/v1/notes/{id}/favorite
func (h *NoteHandler) SetFavorite(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		badRequest(w, "note id is required")
		return
	}

	var req models.FavoriteRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	note, err := h.noteService.SetFavorite(r.Context(), httputil.GetUserID(r), id, req.IsFavorite)
	if err != nil {
		handleError(w, r, h.logger, err)
		return
	}

	httputil.RespondOK(w, map[string]any{"note": note})
}
