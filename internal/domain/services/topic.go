package services

import (
	"context"

	"knowledge/internal/domain/models"
)

// TopicService defines business logic for the topic forest
type TopicService interface {
	// ListTopics returns every topic of the user with computed display paths
	ListTopics(ctx context.Context, userID string) ([]models.Topic, error)

	// EnsurePath resolves a slash-delimited path, creating missing topics top-down
	EnsurePath(ctx context.Context, userID, path string) (*models.EnsurePathResult, error)

	// DeleteTopic removes a topic, detaching (not deleting) its children and notes
	DeleteTopic(ctx context.Context, userID, topicID string) error
}
