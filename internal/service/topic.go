package service

import (
	"context"
	"log/slog"

	"knowledge/internal/domain/models"
	"knowledge/internal/domain/repositories"
	"knowledge/internal/domain/services"
	"knowledge/internal/topicpath"
)

type topicService struct {
	topicRepo repositories.TopicRepository
	noteRepo  repositories.NoteRepository
	txManager repositories.TransactionManager
	logger    *slog.Logger
}

// NewTopicService creates a new topic service
func NewTopicService(
	topicRepo repositories.TopicRepository,
	noteRepo repositories.NoteRepository,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) services.TopicService {
	return &topicService{
		topicRepo: topicRepo,
		noteRepo:  noteRepo,
		txManager: txManager,
		logger:    logger,
	}
}

// ListTopics returns every topic of the user with computed display paths
func (s *topicService) ListTopics(ctx context.Context, userID string) ([]models.Topic, error) {
	topics, err := s.topicRepo.ListAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	if topics == nil {
		return []models.Topic{}, nil
	}
	for i := range topics {
		topics[i].Path = topicpath.FullPath(topics, topics[i].ID)
	}
	return topics, nil
}

// EnsurePath resolves path top-down inside one transaction, creating the
// missing tail
func (s *topicService) EnsurePath(ctx context.Context, userID, path string) (*models.EnsurePathResult, error) {
	// Reject bad input before opening a transaction
	if _, err := topicpath.Split(path); err != nil {
		return nil, err
	}

	var result *models.EnsurePathResult
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		authority := &repoAuthority{repo: s.topicRepo, userID: userID, created: make(map[string]bool)}
		resolved, err := topicpath.Resolve(txCtx, authority, path)
		if err != nil {
			return err
		}

		// A topic that appeared between lookup and insert was not created by us
		created := resolved.CreatedTopics[:0]
		for _, t := range resolved.CreatedTopics {
			if authority.created[t.ID] {
				created = append(created, t)
			}
		}
		resolved.CreatedTopics = created
		result = resolved
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("topic path ensured",
		"user_id", userID,
		"path", path,
		"topic_id", result.TopicID,
		"created", len(result.CreatedTopics),
	)
	return result, nil
}

// DeleteTopic removes a topic. Its notes and children are detached, never deleted.
func (s *topicService) DeleteTopic(ctx context.Context, userID, topicID string) error {
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if _, err := s.topicRepo.GetByID(txCtx, topicID, userID); err != nil {
			return err
		}
		if err := s.noteRepo.DetachTopic(txCtx, topicID, userID); err != nil {
			return err
		}
		return s.topicRepo.Delete(txCtx, topicID, userID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("topic deleted", "id", topicID, "user_id", userID)
	return nil
}

// repoAuthority adapts a TopicRepository to the resolver for one user.
type repoAuthority struct {
	repo    repositories.TopicRepository
	userID  string
	created map[string]bool
}

func (a *repoAuthority) FindTopic(ctx context.Context, name string, parentID *string) (*models.Topic, error) {
	return a.repo.FindByNameAndParent(ctx, a.userID, name, parentID)
}

func (a *repoAuthority) CreateTopic(ctx context.Context, name string, parentID *string) (*models.Topic, error) {
	topic, created, err := a.repo.CreateIfNotExists(ctx, a.userID, parentID, name)
	if err != nil {
		return nil, err
	}
	if created {
		a.created[topic.ID] = true
	}
	return topic, nil
}
