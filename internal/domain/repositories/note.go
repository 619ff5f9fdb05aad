package repositories

import (
	"context"

	"knowledge/internal/domain/models"
)

// NoteRepository defines data access operations for notes. Every method is
// scoped to one user.
type NoteRepository interface {
	// Create inserts a note. Returns a ConflictError when the id is taken.
	Create(ctx context.Context, note *models.Note) error

	// GetByID retrieves a note by ID
	GetByID(ctx context.Context, id, userID string) (*models.Note, error)

	// Update replaces the mutable fields of an existing note
	Update(ctx context.Context, note *models.Note) error

	// Delete removes a note and its attachments
	Delete(ctx context.Context, id, userID string) error

	// SetFavorite flips the favorite flag and bumps updated_at
	SetFavorite(ctx context.Context, id, userID string, isFavorite bool) (*models.Note, error)

	// Search returns one page of matches ordered by updated_at desc plus the total match count
	Search(ctx context.Context, req *models.SearchRequest) ([]models.Note, int, error)

	// DetachTopic clears topic_id on every note filed under topicID
	DetachTopic(ctx context.Context, topicID, userID string) error
}
