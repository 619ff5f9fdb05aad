package postgres

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge/internal/domain"
	"knowledge/internal/domain/models"
	"knowledge/internal/topicpath"
)

// ============================================================================
// UNIT TESTS
// ============================================================================

func TestSearchRequest_ApplyDefaults(t *testing.T) {
	tests := []struct {
		name       string
		input      models.SearchRequest
		wantLimit  int
		wantOffset int
		wantMode   models.SearchMode
	}{
		{name: "applies all defaults", input: models.SearchRequest{Query: "x"}, wantLimit: 50, wantOffset: 0, wantMode: models.SearchModeNotes},
		{name: "preserves custom values", input: models.SearchRequest{Limit: 20, Offset: 10, Mode: models.SearchModeTopics}, wantLimit: 20, wantOffset: 10, wantMode: models.SearchModeTopics},
		{name: "caps limit", input: models.SearchRequest{Limit: 500}, wantLimit: 100, wantMode: models.SearchModeNotes},
		{name: "corrects negative offset", input: models.SearchRequest{Offset: -5}, wantLimit: 50, wantOffset: 0, wantMode: models.SearchModeNotes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.input
			req.ApplyDefaults()

			if req.Limit != tt.wantLimit {
				t.Errorf("Limit = %d, want %d", req.Limit, tt.wantLimit)
			}
			if req.Offset != tt.wantOffset {
				t.Errorf("Offset = %d, want %d", req.Offset, tt.wantOffset)
			}
			if req.Mode != tt.wantMode {
				t.Errorf("Mode = %s, want %s", req.Mode, tt.wantMode)
			}
		})
	}
}

func TestEscapeLike(t *testing.T) {
	tests := map[string]string{
		"meeting":   "meeting",
		"100%":      `100\%`,
		"a_b":       `a\_b`,
		`back\sl`:   `back\\sl`,
		"%_mixed\\": `\%\_mixed\\`,
	}
	for in, want := range tests {
		if got := escapeLike(in); got != want {
			t.Errorf("escapeLike(%q) = %q, want %q", in, got, want)
		}
	}
}

// ============================================================================
// INTEGRATION TESTS - need TEST_DATABASE_URL
// ============================================================================

func setupRepos(t *testing.T) (*PostgresNoteRepository, *PostgresTopicRepository) {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := CreateConnectionPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	prefix := fmt.Sprintf("test_%d_", time.Now().UnixNano())
	tables := NewTableNames(prefix)
	require.NoError(t, EnsureSchema(ctx, pool, tables))
	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, "DROP TABLE IF EXISTS "+tables.Notes+" CASCADE")
		_, _ = pool.Exec(ctx, "DROP TABLE IF EXISTS "+tables.Topics+" CASCADE")
	})

	cfg := &RepositoryConfig{Pool: pool, Tables: tables, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	return NewNoteRepository(cfg).(*PostgresNoteRepository), NewTopicRepository(cfg).(*PostgresTopicRepository)
}

func TestPostgres_SearchOrdersAndCounts(t *testing.T) {
	notes, _ := setupRepos(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 120; i++ {
		title := "Weekly meeting"
		if i%2 == 1 {
			title = "Shopping"
		}
		n := &models.Note{
			ID: fmt.Sprintf("n%03d", i), UserID: "u1", Title: title,
			CreatedAt: base, UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, notes.Create(ctx, n))
	}

	items, total, err := notes.Search(ctx, &models.SearchRequest{UserID: "u1", Query: "MEETING", Limit: 50})
	require.NoError(t, err)
	assert.Equal(t, 60, total)
	require.Len(t, items, 50)
	assert.Equal(t, "n118", items[0].ID)
	for i := 1; i < len(items); i++ {
		assert.False(t, items[i].UpdatedAt.After(items[i-1].UpdatedAt))
	}

	err = notes.Create(ctx, &models.Note{ID: "n000", UserID: "u1", Title: "dup"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestPostgres_ResolvePathIsIdempotent(t *testing.T) {
	_, topics := setupRepos(t)
	ctx := context.Background()
	authority := &repoAuthority{repo: topics, userID: "u1"}

	first, err := topicpath.Resolve(ctx, authority, "Work/Projects/2024")
	require.NoError(t, err)
	assert.Len(t, first.CreatedTopics, 3)

	again, err := topicpath.Resolve(ctx, authority, "Work/Projects/2024")
	require.NoError(t, err)
	assert.Equal(t, first.TopicID, again.TopicID)
	assert.Empty(t, again.CreatedTopics)
}

type repoAuthority struct {
	repo   *PostgresTopicRepository
	userID string
}

func (a *repoAuthority) FindTopic(ctx context.Context, name string, parentID *string) (*models.Topic, error) {
	return a.repo.FindByNameAndParent(ctx, a.userID, name, parentID)
}

func (a *repoAuthority) CreateTopic(ctx context.Context, name string, parentID *string) (*models.Topic, error) {
	topic, _, err := a.repo.CreateIfNotExists(ctx, a.userID, parentID, name)
	return topic, err
}
