package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"knowledge/internal/config"
	"knowledge/internal/domain"
	"knowledge/internal/domain/models"
	"knowledge/internal/domain/repositories"
	"knowledge/internal/domain/services"
)

type noteService struct {
	noteRepo repositories.NoteRepository
	logger   *slog.Logger
	now      func() time.Time
}

// NewNoteService creates a new note service
func NewNoteService(noteRepo repositories.NoteRepository, logger *slog.Logger) services.NoteService {
	return &noteService{
		noteRepo: noteRepo,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateNote stores a new note
func (s *noteService) CreateNote(ctx context.Context, req *services.CreateNoteRequest) (*models.Note, error) {
	if err := s.validateInput(&req.NoteInput); err != nil {
		return nil, err
	}

	now := s.now()
	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.NewString()
	}

	note := &models.Note{
		ID:        id,
		UserID:    req.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.apply(note, &req.NoteInput, now)

	if err := s.noteRepo.Create(ctx, note); err != nil {
		return nil, err
	}

	s.logger.Info("note created",
		"id", note.ID,
		"user_id", req.UserID,
		"topic_id", note.TopicID,
		"attachments", len(note.Attachments),
	)

	return note, nil
}

// UpdateNote replaces the editable fields of an existing note
func (s *noteService) UpdateNote(ctx context.Context, req *services.UpdateNoteRequest) (*models.Note, error) {
	if err := s.validateInput(&req.NoteInput); err != nil {
		return nil, err
	}

	note, err := s.noteRepo.GetByID(ctx, req.NoteID, req.UserID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !now.After(note.UpdatedAt) {
		now = note.UpdatedAt.Add(time.Millisecond)
	}
	s.apply(note, &req.NoteInput, now)
	note.UpdatedAt = now

	if err := s.noteRepo.Update(ctx, note); err != nil {
		return nil, err
	}

	s.logger.Info("note updated", "id", note.ID, "user_id", req.UserID)
	return note, nil
}

// DeleteNote removes a note with its attachments
func (s *noteService) DeleteNote(ctx context.Context, userID, noteID string) error {
	if err := s.noteRepo.Delete(ctx, noteID, userID); err != nil {
		return err
	}
	s.logger.Info("note deleted", "id", noteID, "user_id", userID)
	return nil
}

// SetFavorite sets the favorite flag
func (s *noteService) SetFavorite(ctx context.Context, userID, noteID string, isFavorite bool) (*models.Note, error) {
	note, err := s.noteRepo.SetFavorite(ctx, noteID, userID, isFavorite)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("note favorite set", "id", noteID, "is_favorite", isFavorite)
	return note, nil
}

// SearchNotes returns a page of matches. A notes-mode search needs a query.
func (s *noteService) SearchNotes(ctx context.Context, req *models.SearchRequest) (*models.SearchResponse, error) {
	req.Query = strings.TrimSpace(req.Query)
	if req.TopicID != nil && strings.TrimSpace(*req.TopicID) == "" {
		req.TopicID = nil
	}
	req.ApplyDefaults()

	if req.Mode == models.SearchModeNotes && req.Query == "" {
		return nil, &domain.ValidationError{Message: "search query is required"}
	}

	items, total, err := s.noteRepo.Search(ctx, req)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Note{}
	}

	s.logger.Debug("notes searched",
		"user_id", req.UserID,
		"mode", req.Mode,
		"query", req.Query,
		"topic_id", req.TopicID,
		"total", total,
		"returned", len(items),
	)

	return &models.SearchResponse{
		Items:  items,
		Total:  total,
		Offset: req.Offset,
		Limit:  req.Limit,
	}, nil
}

func (s *noteService) apply(note *models.Note, in *services.NoteInput, now time.Time) {
	note.Title = strings.TrimSpace(in.Title)
	note.Text = in.Text
	note.URL = deref(in.URL)
	note.ImageURL = deref(in.ImageURL)
	note.TopicID = in.TopicID
	if note.TopicID != nil && strings.TrimSpace(*note.TopicID) == "" {
		note.TopicID = nil
	}
	note.SetFavorite(in.IsFavorite)

	attachments := make([]models.Attachment, 0, len(in.Attachments))
	for _, a := range in.Attachments {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		attachments = append(attachments, a)
	}
	note.Attachments = attachments
}

func (s *noteService) validateInput(in *services.NoteInput) error {
	in.Title = strings.TrimSpace(in.Title)
	err := validation.ValidateStruct(in,
		validation.Field(&in.Title,
			validation.Required.Error("title is required"),
			validation.RuneLength(1, config.MaxNoteTitleLength),
		),
		validation.Field(&in.Attachments,
			validation.Length(0, config.MaxAttachmentsPerNote),
		),
	)
	if err != nil {
		return &domain.ValidationError{Message: fmt.Sprintf("%v: %v", domain.ErrValidation, err)}
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
