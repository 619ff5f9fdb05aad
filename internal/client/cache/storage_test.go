package cache

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge/internal/domain/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleState() models.AppState {
	topic := "t1"
	fav := true
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return models.AppState{
		Notes: []models.Note{{
			ID:          "n1",
			Title:       "Meeting notes",
			Text:        "agenda",
			TopicID:     &topic,
			Attachments: []models.Attachment{},
			CreatedAt:   ts,
			UpdatedAt:   ts,
			IsFavorite:  &fav,
		}},
		Topics: []models.Topic{{ID: "t1", Name: "Work", CreatedAt: ts, UpdatedAt: ts}},
	}
}

func TestLoadState(t *testing.T) {
	tests := []struct {
		name      string
		stored    []byte
		wantNotes int
	}{
		{name: "missing key", stored: nil, wantNotes: 0},
		{name: "malformed json", stored: []byte("{not json"), wantNotes: 0},
		{name: "notes not an array", stored: []byte(`{"notes":{},"topics":[]}`), wantNotes: 0},
		{name: "topics missing", stored: []byte(`{"notes":[]}`), wantNotes: 0},
		{name: "valid", stored: []byte(`{"notes":[{"id":"a","title":"x","text":"","topicId":null,"attachments":[],"createdAt":"2024-01-01T00:00:00Z","updatedAt":"2024-01-01T00:00:00Z"}],"topics":[]}`), wantNotes: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewMemoryStorage()
			if tt.stored != nil {
				require.NoError(t, s.Store(StateKey, tt.stored))
			}

			state := LoadState(s, discardLogger())
			assert.Len(t, state.Notes, tt.wantNotes)
			assert.NotNil(t, state.Notes)
			assert.NotNil(t, state.Topics)
		})
	}
}

func TestFileStorage_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStorage(dir)
	require.NoError(t, err)

	want := sampleState()
	require.NoError(t, SaveState(s, want))

	_, err = os.Stat(filepath.Join(dir, StateKey+".json"))
	require.NoError(t, err)

	got := LoadState(s, discardLogger())
	require.Len(t, got.Notes, 1)
	assert.Equal(t, "Meeting notes", got.Notes[0].Title)
	assert.True(t, got.Notes[0].Favorite())
	assert.Equal(t, "t1", *got.Notes[0].TopicID)
	require.Len(t, got.Topics, 1)
	assert.Equal(t, "Work", got.Topics[0].Name)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files should not be left behind")
}

func TestFileStorage_CorruptFileDegradesToEmpty(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStorage(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(s.Path(StateKey), []byte("garbage"), 0644))

	state := LoadState(s, discardLogger())
	assert.Empty(t, state.Notes)
	assert.Empty(t, state.Topics)
}

func TestFileStorage_WatchSignalsOnWrite(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStorage(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := s.Watch(ctx, StateKey, discardLogger())
	require.NoError(t, err)

	require.NoError(t, SaveState(s, sampleState()))

	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("expected a change notification")
	}
}

func TestSQLiteStorage_RoundTrip(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	defer s.Close()

	data, err := s.Load(StateKey)
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, SaveState(s, sampleState()))
	require.NoError(t, SaveState(s, models.EmptyState()))

	got := LoadState(s, discardLogger())
	assert.Empty(t, got.Notes, "second save should overwrite the first")
}
