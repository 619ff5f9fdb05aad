package search

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge/internal/client/clienttest"
	"knowledge/internal/client/notify"
	"knowledge/internal/client/sequence"
	"knowledge/internal/client/state"
	"knowledge/internal/domain"
	"knowledge/internal/domain/models"
)

type fixture struct {
	remote   *clienttest.Remote
	store    *state.Store
	guard    *sequence.Guard
	recorder *notify.Recorder
	coord    *Coordinator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		remote:   clienttest.NewRemote(),
		store:    state.NewFromState(models.EmptyState(), logger),
		guard:    sequence.New(),
		recorder: notify.NewRecorder(),
	}
	f.coord = NewCoordinator(f.remote, f.store, f.guard, f.recorder, 50, logger)
	return f
}

func titled(id, title string) models.Note {
	return models.Note{ID: id, Title: title, Attachments: []models.Attachment{}}
}

func resultIDs(s *state.Store) []string {
	var ids []string
	for _, n := range s.Results() {
		ids = append(ids, n.ID)
	}
	return ids
}

func TestSearch_EmptyNotesQueryFailsWithoutRemoteCall(t *testing.T) {
	f := newFixture(t)
	f.coord.SetQuery("   ")

	err := f.coord.Search(context.Background())

	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, f.remote.CallCount("SearchNotes"))
	st := f.store.Status()
	assert.False(t, st.HasSearched)
	assert.NotEmpty(t, st.Error)
}

func TestSearch_ReplacesResultsWholesale(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		n := titled(fmt.Sprintf("m%d", i), "Meeting")
		n.UpdatedAt = base.Add(time.Duration(i) * time.Hour)
		f.remote.PutNote(n)
	}
	f.remote.PutNote(titled("other", "Groceries"))
	f.store.ReplaceResults([]models.Note{titled("stale", "old result")})

	f.coord.SetQuery("meeting")
	require.NoError(t, f.coord.Search(context.Background()))

	assert.Equal(t, []string{"m2", "m1", "m0"}, resultIDs(f.store))
	st := f.store.Status()
	assert.True(t, st.HasSearched)
	assert.False(t, st.Loading)
	assert.Empty(t, st.Error)
	require.NotNil(t, st.LastSearch)
	assert.Equal(t, "meeting", st.LastSearch.Query)
}

func TestSearch_FailureClearsResultsAndNotifies(t *testing.T) {
	f := newFixture(t)
	f.store.ReplaceResults([]models.Note{titled("a", "x")})
	f.remote.SearchFunc = func(context.Context, models.SearchRequest) (*models.SearchResponse, error) {
		return nil, clienttest.Timeout()
	}

	f.coord.SetQuery("x")
	err := f.coord.Search(context.Background())

	assert.ErrorIs(t, err, domain.ErrTimeout)
	assert.Empty(t, f.store.Results())
	st := f.store.Status()
	assert.True(t, st.HasSearched)
	assert.False(t, st.Loading)
	assert.Equal(t, "request timed out", st.Error)
	assert.Equal(t, 1, f.recorder.Count(notify.TypeError))
}

func TestSearch_SlowFirstRequestNeverOverwritesSecond(t *testing.T) {
	f := newFixture(t)
	release := make(chan struct{})
	started := make(chan struct{})

	f.remote.SearchFunc = func(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error) {
		if req.Query == "slow" {
			close(started)
			<-release
			return &models.SearchResponse{Items: []models.Note{titled("slow", "slow")}, Total: 1}, nil
		}
		return &models.SearchResponse{Items: []models.Note{titled("fast", "fast")}, Total: 1}, nil
	}

	firstDone := make(chan error, 1)
	f.coord.SetQuery("slow")
	go func() { firstDone <- f.coord.Search(context.Background()) }()
	<-started

	f.coord.SetQuery("fast")
	require.NoError(t, f.coord.Search(context.Background()))
	assert.Equal(t, []string{"fast"}, resultIDs(f.store))

	close(release)
	assert.ErrorIs(t, <-firstDone, sequence.ErrSuperseded)
	assert.Equal(t, []string{"fast"}, resultIDs(f.store))
	assert.False(t, f.store.Status().Loading)
}

func TestSearch_StaleFailureIsSuppressed(t *testing.T) {
	f := newFixture(t)
	release := make(chan struct{})
	started := make(chan struct{})

	f.remote.SearchFunc = func(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error) {
		if req.Query == "doomed" {
			close(started)
			<-release
			return nil, errors.New("connection reset")
		}
		return &models.SearchResponse{Items: []models.Note{titled("ok", "ok")}, Total: 1}, nil
	}

	done := make(chan error, 1)
	f.coord.SetQuery("doomed")
	go func() { done <- f.coord.Search(context.Background()) }()
	<-started

	f.coord.SetQuery("ok")
	require.NoError(t, f.coord.Search(context.Background()))
	close(release)
	<-done

	assert.Equal(t, []string{"ok"}, resultIDs(f.store))
	assert.Empty(t, f.store.Status().Error)
	assert.Zero(t, f.recorder.Count(notify.TypeError))
}

func TestSetMode_InvalidatesInFlightAndKeepsResults(t *testing.T) {
	f := newFixture(t)
	f.store.ReplaceResults([]models.Note{titled("shown", "shown")})

	release := make(chan struct{})
	started := make(chan struct{})
	f.remote.SearchFunc = func(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error) {
		close(started)
		<-release
		return &models.SearchResponse{Items: []models.Note{titled("late", "late")}}, nil
	}

	done := make(chan error, 1)
	f.coord.SetQuery("late")
	go func() { done <- f.coord.Search(context.Background()) }()
	<-started

	f.coord.SetMode(models.SearchModeTopics)
	assert.False(t, f.store.Status().Loading)
	assert.Empty(t, f.coord.Query())

	close(release)
	assert.ErrorIs(t, <-done, sequence.ErrSuperseded)
	assert.Equal(t, []string{"shown"}, resultIDs(f.store))
}

func TestSetMode_NotesClearsTopicScope(t *testing.T) {
	f := newFixture(t)
	work := "work"
	require.NoError(t, f.coord.SelectTopic(context.Background(), &work))
	require.NotNil(t, f.coord.SelectedTopic())

	f.coord.SetMode(models.SearchModeNotes)

	assert.Nil(t, f.coord.SelectedTopic())
}

func TestSelectTopic_BrowsesWithEmptyQuery(t *testing.T) {
	f := newFixture(t)
	work := "work"
	inWork := titled("a", "anything")
	inWork.TopicID = &work
	f.remote.PutNote(inWork)
	f.remote.PutNote(titled("b", "elsewhere"))

	require.NoError(t, f.coord.SelectTopic(context.Background(), &work))

	assert.Equal(t, []string{"a"}, resultIDs(f.store))
	st := f.store.Status()
	require.NotNil(t, st.LastSearch)
	assert.Equal(t, models.SearchModeTopics, st.LastSearch.Mode)
	assert.Equal(t, "work", *st.LastSearch.TopicID)
}

func TestRefresh_NoopWithoutTopic(t *testing.T) {
	f := newFixture(t)
	ticket := f.guard.Issue()

	require.NoError(t, f.coord.Refresh(context.Background(), ticket))
	assert.Zero(t, f.remote.CallCount("SearchNotes"))
}

func TestClearTopic(t *testing.T) {
	f := newFixture(t)
	work := "work"
	require.NoError(t, f.coord.SelectTopic(context.Background(), &work))

	f.coord.ClearTopic("other")
	assert.NotNil(t, f.coord.SelectedTopic())

	f.coord.ClearTopic("work")
	assert.Nil(t, f.coord.SelectedTopic())
}
