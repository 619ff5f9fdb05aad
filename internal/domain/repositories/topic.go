package repositories

import (
	"context"

	"knowledge/internal/domain/models"
)

// TopicRepository defines data access operations for topics
type TopicRepository interface {
	// ListAll returns the user's whole topic forest as a flat list
	ListAll(ctx context.Context, userID string) ([]models.Topic, error)

	// GetByID retrieves a topic by ID
	GetByID(ctx context.Context, id, userID string) (*models.Topic, error)

	// FindByNameAndParent returns nil, nil when no such topic exists
	FindByNameAndParent(ctx context.Context, userID, name string, parentID *string) (*models.Topic, error)

	// CreateIfNotExists returns the existing (name, parent) topic or creates it.
	// created reports which of the two happened.
	CreateIfNotExists(ctx context.Context, userID string, parentID *string, name string) (topic *models.Topic, created bool, err error)

	// Delete removes a topic and detaches its children (parent_id = NULL)
	Delete(ctx context.Context, id, userID string) error
}
