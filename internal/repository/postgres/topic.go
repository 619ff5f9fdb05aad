package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"knowledge/internal/domain"
	"knowledge/internal/domain/models"
	"knowledge/internal/domain/repositories"
)

// PostgresTopicRepository implements the TopicRepository interface
type PostgresTopicRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewTopicRepository creates a new topic repository
func NewTopicRepository(config *RepositoryConfig) repositories.TopicRepository {
	return &PostgresTopicRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// ListAll returns every topic of the user, oldest first
func (r *PostgresTopicRepository) ListAll(ctx context.Context, userID string) ([]models.Topic, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, parent_id, name, created_at, updated_at
		FROM %s
		WHERE user_id = $1
		ORDER BY created_at ASC, name ASC
	`, r.tables.Topics)

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	defer rows.Close()

	topics := []models.Topic{}
	for rows.Next() {
		var topic models.Topic
		if err := rows.Scan(
			&topic.ID,
			&topic.UserID,
			&topic.ParentID,
			&topic.Name,
			&topic.CreatedAt,
			&topic.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		topics = append(topics, topic)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate topics: %w", err)
	}

	return topics, nil
}

// GetByID retrieves a topic by ID
func (r *PostgresTopicRepository) GetByID(ctx context.Context, id, userID string) (*models.Topic, error) {
	query := fmt.Sprintf(`
		SELECT id, user_id, parent_id, name, created_at, updated_at
		FROM %s
		WHERE id = $1 AND user_id = $2
	`, r.tables.Topics)

	var topic models.Topic
	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, id, userID).Scan(
		&topic.ID,
		&topic.UserID,
		&topic.ParentID,
		&topic.Name,
		&topic.CreatedAt,
		&topic.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("topic not found: %s", id)}
		}
		return nil, fmt.Errorf("get topic: %w", err)
	}

	return &topic, nil
}

// FindByNameAndParent finds a topic by exact name under parentID; nil, nil when absent
func (r *PostgresTopicRepository) FindByNameAndParent(ctx context.Context, userID, name string, parentID *string) (*models.Topic, error) {
	var query string
	var args []interface{}

	if parentID == nil {
		query = fmt.Sprintf(`
			SELECT id, user_id, parent_id, name, created_at, updated_at
			FROM %s
			WHERE user_id = $1 AND name = $2 AND parent_id IS NULL
		`, r.tables.Topics)
		args = append(args, userID, name)
	} else {
		query = fmt.Sprintf(`
			SELECT id, user_id, parent_id, name, created_at, updated_at
			FROM %s
			WHERE user_id = $1 AND name = $2 AND parent_id = $3
		`, r.tables.Topics)
		args = append(args, userID, name, *parentID)
	}

	var topic models.Topic
	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, args...).Scan(
		&topic.ID,
		&topic.UserID,
		&topic.ParentID,
		&topic.Name,
		&topic.CreatedAt,
		&topic.UpdatedAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, nil // Not found, not an error
		}
		return nil, fmt.Errorf("get topic by name and parent: %w", err)
	}

	return &topic, nil
}

// CreateIfNotExists inserts the (name, parent) topic unless it exists. A
// concurrent insert of the same topic loses on the unique index and the
// winner's row is returned instead.
func (r *PostgresTopicRepository) CreateIfNotExists(ctx context.Context, userID string, parentID *string, name string) (*models.Topic, bool, error) {
	existing, err := r.FindByNameAndParent(ctx, userID, name, parentID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	now := time.Now().UTC()
	topic := &models.Topic{
		ID:        uuid.NewString(),
		UserID:    userID,
		ParentID:  parentID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, parent_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT DO NOTHING
		RETURNING id
	`, r.tables.Topics)

	var id string
	err = GetExecutor(ctx, r.pool).QueryRow(ctx, query,
		topic.ID,
		topic.UserID,
		topic.ParentID,
		topic.Name,
		topic.CreatedAt,
		topic.UpdatedAt,
	).Scan(&id)
	if err != nil {
		if !isNoRows(err) {
			if isForeignKeyViolation(err) {
				return nil, false, &domain.NotFoundError{Message: "parent topic not found"}
			}
			return nil, false, fmt.Errorf("create topic: %w", err)
		}
		// Lost the race: someone else inserted the same (name, parent)
		r.logger.Debug("topic created concurrently, reusing", "name", name)
		winner, err := r.FindByNameAndParent(ctx, userID, name, parentID)
		if err != nil {
			return nil, false, err
		}
		if winner == nil {
			return nil, false, fmt.Errorf("topic '%s': %w", name, domain.ErrConflict)
		}
		return winner, false, nil
	}

	return topic, true, nil
}

// Delete removes a topic; children and notes are detached by the caller and
// by ON DELETE SET NULL
func (r *PostgresTopicRepository) Delete(ctx context.Context, id, userID string) error {
	exec := GetExecutor(ctx, r.pool)

	detach := fmt.Sprintf(`
		UPDATE %s SET parent_id = NULL, updated_at = NOW()
		WHERE parent_id = $1 AND user_id = $2
	`, r.tables.Topics)
	if _, err := exec.Exec(ctx, detach, id, userID); err != nil {
		if isUniqueViolation(err) {
			return &domain.ConflictError{Message: "a child topic has the same name as an existing root topic", ResourceType: "topic", ResourceID: id}
		}
		return fmt.Errorf("detach child topics: %w", err)
	}

	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1 AND user_id = $2
	`, r.tables.Topics)

	result, err := exec.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete topic: %w", err)
	}

	if result.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("topic not found: %s", id)}
	}

	return nil
}
