package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"knowledge/internal/domain"
	"knowledge/internal/domain/models"
	"knowledge/internal/domain/repositories"
)

const noteColumns = `id, user_id, topic_id, title, text, url, image_url, is_favorite, attachments, created_at, updated_at`

// PostgresNoteRepository implements the NoteRepository interface
type PostgresNoteRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewNoteRepository creates a new note repository
func NewNoteRepository(config *RepositoryConfig) repositories.NoteRepository {
	return &PostgresNoteRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Create inserts a note with its caller-assigned id
func (r *PostgresNoteRepository) Create(ctx context.Context, note *models.Note) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, topic_id, title, text, url, image_url, is_favorite, attachments, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, r.tables.Notes)

	_, err := GetExecutor(ctx, r.pool).Exec(ctx, query,
		note.ID,
		note.UserID,
		note.TopicID,
		note.Title,
		note.Text,
		nullable(note.URL),
		nullable(note.ImageURL),
		note.Favorite(),
		attachmentsOrEmpty(note.Attachments),
		note.CreatedAt,
		note.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.ConflictError{Message: "note already exists", ResourceType: "note", ResourceID: note.ID}
		}
		if isForeignKeyViolation(err) {
			return &domain.ValidationError{Message: "topic does not exist"}
		}
		return fmt.Errorf("create note: %w", err)
	}

	return nil
}

// GetByID retrieves a note by ID
func (r *PostgresNoteRepository) GetByID(ctx context.Context, id, userID string) (*models.Note, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1 AND user_id = $2
	`, noteColumns, r.tables.Notes)

	note, err := scanNote(GetExecutor(ctx, r.pool).QueryRow(ctx, query, id, userID))
	if err != nil {
		if isNoRows(err) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("note not found: %s", id)}
		}
		return nil, fmt.Errorf("get note: %w", err)
	}

	return note, nil
}

// Update replaces the mutable fields of an existing note
func (r *PostgresNoteRepository) Update(ctx context.Context, note *models.Note) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET topic_id = $1, title = $2, text = $3, url = $4, image_url = $5,
			is_favorite = $6, attachments = $7, updated_at = $8
		WHERE id = $9 AND user_id = $10
	`, r.tables.Notes)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query,
		note.TopicID,
		note.Title,
		note.Text,
		nullable(note.URL),
		nullable(note.ImageURL),
		note.Favorite(),
		attachmentsOrEmpty(note.Attachments),
		note.UpdatedAt,
		note.ID,
		note.UserID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return &domain.ValidationError{Message: "topic does not exist"}
		}
		return fmt.Errorf("update note: %w", err)
	}

	if result.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("note not found: %s", note.ID)}
	}

	return nil
}

// Delete removes a note; its attachments live in the same row
func (r *PostgresNoteRepository) Delete(ctx context.Context, id, userID string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1 AND user_id = $2
	`, r.tables.Notes)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}

	if result.RowsAffected() == 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("note not found: %s", id)}
	}

	return nil
}

// SetFavorite sets the flag, bumps updated_at and returns the stored note
func (r *PostgresNoteRepository) SetFavorite(ctx context.Context, id, userID string, isFavorite bool) (*models.Note, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET is_favorite = $1, updated_at = GREATEST(NOW(), updated_at + INTERVAL '1 millisecond')
		WHERE id = $2 AND user_id = $3
		RETURNING %s
	`, r.tables.Notes, noteColumns)

	note, err := scanNote(GetExecutor(ctx, r.pool).QueryRow(ctx, query, isFavorite, id, userID))
	if err != nil {
		if isNoRows(err) {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("note not found: %s", id)}
		}
		return nil, fmt.Errorf("set favorite: %w", err)
	}

	return note, nil
}

// Search matches the query case-insensitively against title and text,
// newest first. The total counts every match, not only the page.
func (r *PostgresNoteRepository) Search(ctx context.Context, req *models.SearchRequest) ([]models.Note, int, error) {
	req.ApplyDefaults()

	conditions := []string{"user_id = $1"}
	args := []interface{}{req.UserID}

	if q := strings.TrimSpace(req.Query); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR text ILIKE $%d)", n, n))
	}
	if req.TopicID != nil {
		args = append(args, *req.TopicID)
		conditions = append(conditions, fmt.Sprintf("topic_id = $%d", len(args)))
	}
	where := strings.Join(conditions, " AND ")
	exec := GetExecutor(ctx, r.pool)

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, r.tables.Notes, where)
	if err := exec.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notes: %w", err)
	}

	pageArgs := append(args, req.Limit, req.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s
		ORDER BY updated_at DESC, id ASC
		LIMIT $%d OFFSET $%d
	`, noteColumns, r.tables.Notes, where, len(pageArgs)-1, len(pageArgs))

	rows, err := exec.Query(ctx, query, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("search notes: %w", err)
	}
	defer rows.Close()

	notes := []models.Note{}
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan note: %w", err)
		}
		notes = append(notes, *note)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate notes: %w", err)
	}

	r.logger.Debug("notes searched",
		"user_id", req.UserID,
		"query", req.Query,
		"returned", len(notes),
		"total", total,
	)
	return notes, total, nil
}

// DetachTopic clears topic_id on every note filed under topicID
func (r *PostgresNoteRepository) DetachTopic(ctx context.Context, topicID, userID string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET topic_id = NULL
		WHERE topic_id = $1 AND user_id = $2
	`, r.tables.Notes)

	if _, err := GetExecutor(ctx, r.pool).Exec(ctx, query, topicID, userID); err != nil {
		return fmt.Errorf("detach notes from topic: %w", err)
	}
	return nil
}

func scanNote(row pgx.Row) (*models.Note, error) {
	var (
		note       models.Note
		url        *string
		imageURL   *string
		isFavorite bool
	)
	err := row.Scan(
		&note.ID,
		&note.UserID,
		&note.TopicID,
		&note.Title,
		&note.Text,
		&url,
		&imageURL,
		&isFavorite,
		&note.Attachments,
		&note.CreatedAt,
		&note.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if url != nil {
		note.URL = *url
	}
	if imageURL != nil {
		note.ImageURL = *imageURL
	}
	note.SetFavorite(isFavorite)
	if note.Attachments == nil {
		note.Attachments = []models.Attachment{}
	}
	return &note, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func attachmentsOrEmpty(a []models.Attachment) []models.Attachment {
	if a == nil {
		return []models.Attachment{}
	}
	return a
}

// escapeLike escapes LIKE wildcards so the query matches literally
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
