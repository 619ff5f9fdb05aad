package services

import (
	"context"

	"knowledge/internal/domain/models"
)

// RemoteAPI is the system of record as seen by the client. Every call may
// fail with a timeout, a transport error or a rejection (domain.RemoteError).
type RemoteAPI interface {
	SearchNotes(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error)

	// SaveNote and UpdateNote report a rejection as OK=false or as a rejected RemoteError
	SaveNote(ctx context.Context, note models.Note) (*models.SaveResult, error)
	UpdateNote(ctx context.Context, note models.Note) (*models.SaveResult, error)
	DeleteNote(ctx context.Context, id string) (*models.DeleteResult, error)

	// ToggleFavorite fails when the note does not exist
	ToggleFavorite(ctx context.Context, id string, isFavorite bool) (*models.Note, error)

	GetTopics(ctx context.Context) ([]models.Topic, error)
	EnsureTopicPath(ctx context.Context, path string) (*models.EnsurePathResult, error)
	DeleteTopic(ctx context.Context, id string) (*models.DeleteResult, error)
}
