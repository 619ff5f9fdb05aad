package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge/internal/domain"
	"knowledge/internal/domain/models"
	"knowledge/internal/domain/services"
	"knowledge/internal/repository/memory"
)

const testUser = "u1"

type fixture struct {
	notes  services.NoteService
	topics services.TopicService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()
	noteRepo := memory.NewNoteRepository(store)
	topicRepo := memory.NewTopicRepository(store)
	return &fixture{
		notes:  NewNoteService(noteRepo, logger),
		topics: NewTopicService(topicRepo, noteRepo, memory.NewTransactionManager(), logger),
	}
}

func ptr(s string) *string { return &s }

func TestCreateNote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	withID, err := f.notes.CreateNote(ctx, &services.CreateNoteRequest{
		UserID: testUser,
		NoteInput: services.NoteInput{
			ID:          "local-1",
			Title:       "  Meeting  ",
			Text:        "agenda",
			URL:         ptr("https://example.com"),
			Attachments: []models.Attachment{{Name: "a.txt", MimeType: "text/plain", Size: 3, DataURL: "data:,abc"}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "local-1", withID.ID)
	assert.Equal(t, "Meeting", withID.Title)
	assert.Equal(t, "https://example.com", withID.URL)
	require.Len(t, withID.Attachments, 1)
	assert.NotEmpty(t, withID.Attachments[0].ID)
	assert.False(t, withID.Attachments[0].CreatedAt.IsZero())
	require.NotNil(t, withID.IsFavorite)
	assert.False(t, *withID.IsFavorite)

	generated, err := f.notes.CreateNote(ctx, &services.CreateNoteRequest{
		UserID:    testUser,
		NoteInput: services.NoteInput{Title: "second"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, generated.ID)
	assert.NotEqual(t, "local-1", generated.ID)

	_, err = f.notes.CreateNote(ctx, &services.CreateNoteRequest{
		UserID:    testUser,
		NoteInput: services.NoteInput{ID: "local-1", Title: "dup"},
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestCreateNote_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input services.NoteInput
	}{
		{name: "blank title", input: services.NoteInput{Title: "   "}},
		{name: "unknown topic", input: services.NoteInput{Title: "x", TopicID: ptr("missing")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.notes.CreateNote(ctx, &services.CreateNoteRequest{UserID: testUser, NoteInput: tt.input})
			var validationErr *domain.ValidationError
			assert.True(t, errors.As(err, &validationErr), "got %v", err)
		})
	}
}

func TestUpdateNote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.notes.CreateNote(ctx, &services.CreateNoteRequest{
		UserID:    testUser,
		NoteInput: services.NoteInput{ID: "n1", Title: "old"},
	})
	require.NoError(t, err)

	updated, err := f.notes.UpdateNote(ctx, &services.UpdateNoteRequest{
		NoteID:    "n1",
		UserID:    testUser,
		NoteInput: services.NoteInput{Title: "new", IsFavorite: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Title)
	assert.True(t, updated.Favorite())
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	_, err = f.notes.UpdateNote(ctx, &services.UpdateNoteRequest{
		NoteID:    "missing",
		UserID:    testUser,
		NoteInput: services.NoteInput{Title: "x"},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.notes.UpdateNote(ctx, &services.UpdateNoteRequest{
		NoteID:    "n1",
		UserID:    "someone-else",
		NoteInput: services.NoteInput{Title: "x"},
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteAndFavorite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.notes.CreateNote(ctx, &services.CreateNoteRequest{
		UserID:    testUser,
		NoteInput: services.NoteInput{ID: "n1", Title: "fav me"},
	})
	require.NoError(t, err)

	fav, err := f.notes.SetFavorite(ctx, testUser, "n1", true)
	require.NoError(t, err)
	assert.True(t, fav.Favorite())

	_, err = f.notes.SetFavorite(ctx, testUser, "missing", true)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, f.notes.DeleteNote(ctx, testUser, "n1"))
	assert.ErrorIs(t, f.notes.DeleteNote(ctx, testUser, "n1"), domain.ErrNotFound)
}

func TestSearchNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ensured, err := f.topics.EnsurePath(ctx, testUser, "Work")
	require.NoError(t, err)

	for _, in := range []services.NoteInput{
		{ID: "a", Title: "meeting notes", TopicID: ptr(ensured.TopicID)},
		{ID: "b", Title: "groceries"},
		{ID: "c", Title: "weekly meeting"},
	} {
		_, err := f.notes.CreateNote(ctx, &services.CreateNoteRequest{UserID: testUser, NoteInput: in})
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	t.Run("empty notes query is rejected", func(t *testing.T) {
		_, err := f.notes.SearchNotes(ctx, &models.SearchRequest{UserID: testUser, Query: "  "})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("query matches newest first", func(t *testing.T) {
		resp, err := f.notes.SearchNotes(ctx, &models.SearchRequest{UserID: testUser, Query: "MEETING"})
		require.NoError(t, err)
		assert.Equal(t, 2, resp.Total)
		require.Len(t, resp.Items, 2)
		assert.Equal(t, "c", resp.Items[0].ID)
		assert.Equal(t, models.DefaultSearchLimit, resp.Limit)
	})

	t.Run("topic browse without query", func(t *testing.T) {
		resp, err := f.notes.SearchNotes(ctx, &models.SearchRequest{
			UserID:  testUser,
			TopicID: ptr(ensured.TopicID),
			Mode:    models.SearchModeTopics,
		})
		require.NoError(t, err)
		require.Len(t, resp.Items, 1)
		assert.Equal(t, "a", resp.Items[0].ID)
	})

	t.Run("no matches yields empty list", func(t *testing.T) {
		resp, err := f.notes.SearchNotes(ctx, &models.SearchRequest{UserID: testUser, Query: "zzz"})
		require.NoError(t, err)
		assert.NotNil(t, resp.Items)
		assert.Empty(t, resp.Items)
	})
}

func TestEnsurePath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.topics.EnsurePath(ctx, testUser, "Work/Projects/2024")
	require.NoError(t, err)
	require.Len(t, first.CreatedTopics, 3)
	assert.Equal(t, first.CreatedTopics[2].ID, first.TopicID)
	assert.Nil(t, first.CreatedTopics[0].ParentID)
	assert.Equal(t, first.CreatedTopics[0].ID, *first.CreatedTopics[1].ParentID)

	again, err := f.topics.EnsurePath(ctx, testUser, " Work // Projects / 2024 ")
	require.NoError(t, err)
	assert.Equal(t, first.TopicID, again.TopicID)
	assert.Empty(t, again.CreatedTopics)

	branch, err := f.topics.EnsurePath(ctx, testUser, "Work/Ideas")
	require.NoError(t, err)
	require.Len(t, branch.CreatedTopics, 1)
	assert.Equal(t, "Ideas", branch.CreatedTopics[0].Name)
	assert.Equal(t, first.CreatedTopics[0].ID, *branch.CreatedTopics[0].ParentID)

	_, err = f.topics.EnsurePath(ctx, testUser, " / / ")
	assert.ErrorIs(t, err, domain.ErrValidation)

	topics, err := f.topics.ListTopics(ctx, testUser)
	require.NoError(t, err)
	paths := make(map[string]string)
	for _, tp := range topics {
		paths[tp.ID] = tp.Path
	}
	assert.Equal(t, "Work/Projects/2024", paths[first.TopicID])
	assert.Equal(t, "Work/Ideas", paths[branch.TopicID])

	other, err := f.topics.ListTopics(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestDeleteTopic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ensured, err := f.topics.EnsurePath(ctx, testUser, "Work/Projects")
	require.NoError(t, err)
	workID := ensured.CreatedTopics[0].ID

	_, err = f.notes.CreateNote(ctx, &services.CreateNoteRequest{
		UserID:    testUser,
		NoteInput: services.NoteInput{ID: "n1", Title: "filed", TopicID: ptr(workID)},
	})
	require.NoError(t, err)

	require.NoError(t, f.topics.DeleteTopic(ctx, testUser, workID))

	topics, err := f.topics.ListTopics(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, "Projects", topics[0].Name)
	assert.Nil(t, topics[0].ParentID)

	resp, err := f.notes.SearchNotes(ctx, &models.SearchRequest{UserID: testUser, Query: "filed"})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Nil(t, resp.Items[0].TopicID)

	assert.ErrorIs(t, f.topics.DeleteTopic(ctx, testUser, workID), domain.ErrNotFound)
}
