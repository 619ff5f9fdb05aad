package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledge/internal/auth"
	"knowledge/internal/client/api"
	"knowledge/internal/client/notify"
	"knowledge/internal/client/reconcile"
	"knowledge/internal/client/search"
	"knowledge/internal/client/sequence"
	"knowledge/internal/client/state"
	"knowledge/internal/domain"
	"knowledge/internal/domain/models"
	"knowledge/internal/middleware"
)

type clientRig struct {
	store    *state.Store
	search   *search.Coordinator
	engine   *reconcile.Engine
	recorder *notify.Recorder
}

func newClientRig(t *testing.T, baseURL, initData string) *clientRig {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	remote := api.NewClient(baseURL, initData, 5*time.Second, logger)
	store := state.NewFromState(models.EmptyState(), logger)
	guard := sequence.New()
	recorder := notify.NewRecorder()
	coordinator := search.NewCoordinator(remote, store, guard, recorder, models.DefaultSearchLimit, logger)
	return &clientRig{
		store:    store,
		search:   coordinator,
		engine:   reconcile.NewEngine(remote, store, guard, coordinator, recorder, logger),
		recorder: recorder,
	}
}

func lastType(r *notify.Recorder) notify.Type {
	n, _ := r.Last()
	return n.Type
}

func TestClientRoundTrip(t *testing.T) {
	srv := newServer(t, middleware.AuthConfig{DevMode: true})
	rig := newClientRig(t, srv.URL+"/api/v1", "")
	ctx := context.Background()

	saved, err := rig.engine.SaveNote(ctx, models.NoteDraft{
		Title:     "Meeting",
		Text:      "agenda",
		TopicPath: "Work/Meetings",
	})
	require.NoError(t, err)
	require.NotNil(t, saved.TopicID)
	assert.Len(t, rig.store.Topics(), 2)
	assert.True(t, rig.store.IsCached(saved.ID))
	assert.Equal(t, notify.TypeSuccess, lastType(rig.recorder))

	rig.search.SetQuery("meet")
	require.NoError(t, rig.search.Search(ctx))
	results := rig.store.Results()
	require.Len(t, results, 1)
	assert.Equal(t, saved.ID, results[0].ID)
	assert.True(t, rig.store.Status().HasSearched)

	fav, err := rig.engine.ToggleFavorite(ctx, saved.ID)
	require.NoError(t, err)
	assert.True(t, fav.Favorite())

	// A second save of the same id is an update on the server too
	edited, err := rig.engine.SaveNote(ctx, models.NoteDraft{ID: saved.ID, Title: "Meeting v2", Text: "agenda", TopicID: saved.TopicID})
	require.NoError(t, err)
	assert.Equal(t, "Meeting v2", edited.Title)
	assert.True(t, edited.Favorite())

	fresh := newClientRig(t, srv.URL+"/api/v1", "")
	require.NoError(t, fresh.engine.LoadTopics(ctx))
	paths := make([]string, 0)
	for _, tp := range fresh.store.TopicsWithPaths() {
		paths = append(paths, tp.Path)
	}
	assert.ElementsMatch(t, []string{"Work", "Work/Meetings"}, paths)

	work := rig.store.Topics()[0]
	if work.ParentID != nil {
		work = rig.store.Topics()[1]
	}
	require.NoError(t, rig.engine.DeleteTopic(ctx, work.ID))
	_, ok := rig.store.Topic(work.ID)
	assert.False(t, ok)

	require.NoError(t, rig.engine.DeleteNote(ctx, saved.ID))
	assert.False(t, rig.store.IsCached(saved.ID))

	err = rig.engine.DeleteTopic(ctx, work.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, notify.TypeError, lastType(rig.recorder))
}

func TestClientRoundTrip_TelegramAuth(t *testing.T) {
	const botToken = "42:SECRET"
	srv := newServer(t, middleware.AuthConfig{InitData: auth.NewTelegramVerifier(botToken, time.Hour)})
	ctx := context.Background()

	values := url.Values{}
	values.Set("auth_date", strconv.FormatInt(time.Now().Unix(), 10))
	values.Set("user", `{"id":1001,"first_name":"Ann"}`)

	alice := newClientRig(t, srv.URL+"/api/v1", auth.SignInitData(values, botToken))
	_, err := alice.engine.EnsureTopicPath(ctx, "Private")
	require.NoError(t, err)

	values.Set("user", `{"id":2002,"first_name":"Bob"}`)
	bob := newClientRig(t, srv.URL+"/api/v1", auth.SignInitData(values, botToken))
	require.NoError(t, bob.engine.LoadTopics(ctx))
	assert.Empty(t, bob.store.Topics())

	forged := newClientRig(t, srv.URL+"/api/v1", auth.SignInitData(values, "wrong"))
	err = forged.engine.LoadTopics(ctx)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
