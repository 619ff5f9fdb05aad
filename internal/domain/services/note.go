package services

import (
	"context"

	"knowledge/internal/domain/models"
)

// NoteService defines business logic for notes held by the remote authority
type NoteService interface {
	// CreateNote stores a new note. A client-supplied ID is kept; otherwise one is generated.
	CreateNote(ctx context.Context, req *CreateNoteRequest) (*models.Note, error)

	// UpdateNote replaces the editable fields of an existing note
	UpdateNote(ctx context.Context, req *UpdateNoteRequest) (*models.Note, error)

	// DeleteNote removes a note with its attachments
	DeleteNote(ctx context.Context, userID, noteID string) error

	// SetFavorite sets the favorite flag explicitly (not a blind toggle)
	SetFavorite(ctx context.Context, userID, noteID string, isFavorite bool) (*models.Note, error)

	// SearchNotes returns a page of notes matching the request
	SearchNotes(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error)
}

// NoteInput is the editable part of a note as sent over the wire.
type NoteInput struct {
	ID          string              `json:"id,omitempty"`
	Title       string              `json:"title"`
	Text        string              `json:"text"`
	URL         *string             `json:"url"`
	ImageURL    *string             `json:"imageUrl"`
	TopicID     *string             `json:"topicId"`
	IsFavorite  bool                `json:"isFavorite"`
	Attachments []models.Attachment `json:"attachments"`
}

// CreateNoteRequest is the server-side create command
type CreateNoteRequest struct {
	NoteInput
	UserID string `json:"-"`
}

// UpdateNoteRequest is the server-side update command
type UpdateNoteRequest struct {
	NoteInput
	NoteID string `json:"-"`
	UserID string `json:"-"`
}
