// Package reconcile applies user mutations to the local store optimistically
// and reconciles them with the remote API, rolling back on failure.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"knowledge/internal/client/notify"
	"knowledge/internal/client/search"
	"knowledge/internal/client/sequence"
	"knowledge/internal/client/state"
	"knowledge/internal/config"
	"knowledge/internal/domain"
	"knowledge/internal/domain/models"
	"knowledge/internal/domain/services"
	"knowledge/internal/topicpath"
)

// User-facing fallbacks, used when the remote gives no message.
const (
	msgNoteSaved         = "note saved"
	msgNoteSaveFailed    = "failed to save note"
	msgNoteDeleted       = "note deleted"
	msgNoteDeleteFailed  = "failed to delete note"
	msgFavoriteFailed    = "could not update favorite"
	msgTopicDeleted      = "topic deleted"
	msgTopicDeleteFailed = "could not delete topic"
	msgTopicCreateFailed = "could not create topic"
	msgTopicsLoadFailed  = "could not load topics"
	notePrefix           = "note_"
	attachmentPrefix     = "att_"
)

// Engine owns every note and topic mutation issued by the client.
type Engine struct {
	api      services.RemoteAPI
	store    *state.Store
	guard    *sequence.Guard
	search   *search.Coordinator
	notifier notify.Notifier
	logger   *slog.Logger

	now   func() time.Time
	newID func(prefix string) string
}

// NewEngine wires an engine. guard must be the one the coordinator uses.
func NewEngine(
	api services.RemoteAPI,
	store *state.Store,
	guard *sequence.Guard,
	coordinator *search.Coordinator,
	notifier notify.Notifier,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		api:      api,
		store:    store,
		guard:    guard,
		search:   coordinator,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		newID:    func(prefix string) string { return prefix + uuid.NewString() },
	}
}

// SaveNote creates or updates a note from an editor draft. A draft whose id
// is unknown locally is a create and must pass create validation. A topic
// path on the draft is ensured first; if that fails nothing is saved.
//
// The note is written locally before the remote call. On rejection or
// transport failure the store is restored to its exact prior state.
func (e *Engine) SaveNote(ctx context.Context, draft models.NoteDraft) (*models.Note, error) {
	normalizeDraft(&draft)

	existing, isUpdate := models.Note{}, false
	if draft.ID != "" {
		existing, isUpdate = e.store.Note(draft.ID)
	}

	if err := validateDraft(&draft, !isUpdate); err != nil {
		e.store.SetError(err.Error())
		notify.Error(e.notifier, err.Error())
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	if draft.TopicPath != "" {
		topicID, err := e.EnsureTopicPath(ctx, draft.TopicPath)
		if err != nil {
			return nil, err
		}
		draft.TopicID = &topicID
	}

	note := e.buildNote(draft, existing, isUpdate)
	logger := e.logger.With("note_id", note.ID, "update", isUpdate)

	snap := e.store.Snapshot()
	e.store.UpsertNote(note)
	ticket := e.guard.Issue()
	e.store.SetLoading(true)
	logger = logger.With("request_seq", uint64(ticket))

	var (
		res *models.SaveResult
		err error
	)
	if isUpdate {
		res, err = e.api.UpdateNote(ctx, note)
	} else {
		res, err = e.api.SaveNote(ctx, note)
	}
	if err == nil && (res == nil || !res.OK) {
		err = &domain.RemoteError{Kind: domain.RemoteRejected, Message: msgNoteSaveFailed}
	}

	if err != nil {
		msg := domain.UserMessage(err, msgNoteSaveFailed)
		if !e.guard.Do(ticket, func() {
			e.store.Restore(snap)
			e.store.SetError(msg)
			e.store.SetLoading(false)
		}) {
			logger.Debug("stale save failure ignored", "error", err)
			return nil, sequence.ErrSuperseded
		}
		logger.Warn("save rolled back", "error", err)
		notify.Error(e.notifier, msg)
		return nil, err
	}

	saved := note
	if res.Note.ID == note.ID {
		saved = res.Note
	}
	if !e.guard.Do(ticket, func() {
		e.store.UpsertNote(saved)
		e.store.SetError("")
	}) {
		logger.Debug("save confirmed after being superseded")
		return &saved, nil
	}
	notify.Success(e.notifier, msgNoteSaved)
	logger.Info("note saved")

	e.refresh(ctx, ticket)
	return &saved, nil
}

// DeleteNote removes a note locally, then remotely. On failure the exact
// prior record is put back.
func (e *Engine) DeleteNote(ctx context.Context, id string) error {
	if _, ok := e.store.Note(id); !ok {
		return &domain.NotFoundError{Message: fmt.Sprintf("note not found: %s", id)}
	}

	snap := e.store.Snapshot()
	e.store.RemoveNote(id)
	ticket := e.guard.Issue()
	e.store.SetLoading(true)
	logger := e.logger.With("note_id", id, "request_seq", uint64(ticket))

	res, err := e.api.DeleteNote(ctx, id)
	if err == nil && (res == nil || !res.OK) {
		err = &domain.RemoteError{Kind: domain.RemoteRejected, Message: msgNoteDeleteFailed}
	}

	if err != nil {
		msg := domain.UserMessage(err, msgNoteDeleteFailed)
		if !e.guard.Do(ticket, func() {
			e.store.Restore(snap)
			e.store.SetError(msg)
			e.store.SetLoading(false)
		}) {
			logger.Debug("stale delete failure ignored", "error", err)
			return sequence.ErrSuperseded
		}
		logger.Warn("delete rolled back", "error", err)
		notify.Error(e.notifier, msg)
		return err
	}

	if !e.guard.Do(ticket, func() { e.store.SetError("") }) {
		return nil
	}
	notify.Success(e.notifier, msgNoteDeleted)
	logger.Info("note deleted")

	e.refresh(ctx, ticket)
	return nil
}

// refresh re-lists the selected topic after a confirmed mutation and clears
// the loading flag if the mutation is still current.
func (e *Engine) refresh(ctx context.Context, ticket sequence.Ticket) {
	if err := e.search.Refresh(ctx, ticket); err != nil && !errors.Is(err, sequence.ErrSuperseded) {
		e.logger.Warn("results not refreshed", "error", err)
	}
	e.guard.Do(ticket, func() { e.store.SetLoading(false) })
}

// ToggleFavorite flips a note's favorite flag in place. Since results and
// the cache share one record, both views change together. The remote's
// flag and updatedAt win on success; on failure the whole pre-toggle record
// is restored.
func (e *Engine) ToggleFavorite(ctx context.Context, id string) (*models.Note, error) {
	before, ok := e.store.Note(id)
	if !ok {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("note not found: %s", id)}
	}
	next := !before.Favorite()

	e.store.SetFavorite(id, next, e.now())
	ticket := e.guard.Issue()
	e.store.SetLoading(true)
	logger := e.logger.With("note_id", id, "favorite", next, "request_seq", uint64(ticket))

	confirmed, err := e.api.ToggleFavorite(ctx, id, next)
	if err != nil {
		msg := domain.UserMessage(err, msgFavoriteFailed)
		if !e.guard.Do(ticket, func() {
			e.store.ReplaceNote(before)
			e.store.SetError(msg)
			e.store.SetLoading(false)
		}) {
			logger.Debug("stale favorite failure ignored", "error", err)
			return nil, sequence.ErrSuperseded
		}
		logger.Warn("favorite rolled back", "error", err)
		notify.Error(e.notifier, msg)
		return nil, err
	}

	if !e.guard.Do(ticket, func() {
		e.store.SetFavorite(id, confirmed.Favorite(), confirmed.UpdatedAt)
		e.store.SetError("")
		e.store.SetLoading(false)
	}) {
		return confirmed, nil
	}
	logger.Debug("favorite confirmed")

	// The cached record can vanish while the toggle is in flight
	out, ok := e.store.Note(id)
	if !ok {
		return confirmed, nil
	}
	return &out, nil
}

// DeleteTopic deletes a topic remotely and only then detaches its children
// and notes locally. A failure leaves local state untouched.
func (e *Engine) DeleteTopic(ctx context.Context, id string) error {
	logger := e.logger.With("topic_id", id)

	res, err := e.api.DeleteTopic(ctx, id)
	if err == nil && (res == nil || !res.OK) {
		err = &domain.RemoteError{Kind: domain.RemoteRejected, Message: msgTopicDeleteFailed}
	}
	if err != nil {
		msg := domain.UserMessage(err, msgTopicDeleteFailed)
		logger.Warn("topic delete failed", "error", err)
		e.store.SetError(msg)
		notify.Error(e.notifier, msg)
		return err
	}

	e.store.DeleteTopic(id)
	e.search.ClearTopic(id)
	notify.Success(e.notifier, msgTopicDeleted)
	logger.Info("topic deleted")
	return nil
}

// RenameTopic changes a topic's name and parent locally.
func (e *Engine) RenameTopic(id, name string, parentID *string) error {
	name = strings.TrimSpace(name)
	if err := validation.Validate(name,
		validation.Required.Error("topic name is required"),
		validation.Length(1, config.MaxTopicNameLength),
		validation.By(noSeparator),
	); err != nil {
		return &domain.ValidationError{Message: err.Error()}
	}
	if parentID != nil && *parentID == "" {
		parentID = nil
	}
	return e.store.RenameTopic(id, name, parentID, e.now())
}

func noSeparator(value interface{}) error {
	if s, _ := value.(string); strings.Contains(s, topicpath.Separator) {
		return errors.New("topic name cannot contain slashes")
	}
	return nil
}

// EnsureTopicPath resolves path remotely, creating the missing tail, and
// merges only the newly created topics into the cache. An empty path fails
// without a remote call.
func (e *Engine) EnsureTopicPath(ctx context.Context, path string) (string, error) {
	if _, err := topicpath.Split(path); err != nil {
		return "", err
	}

	res, err := e.api.EnsureTopicPath(ctx, path)
	if err != nil {
		msg := domain.UserMessage(err, msgTopicCreateFailed)
		e.logger.Warn("ensure topic path failed", "path", path, "error", err)
		notify.Error(e.notifier, msg)
		return "", err
	}

	e.store.MergeTopics(res.CreatedTopics)
	e.logger.Debug("topic path ensured", "path", path, "topic_id", res.TopicID, "created", len(res.CreatedTopics))
	return res.TopicID, nil
}

// LoadTopics replaces the cached topics with the remote's. On failure the
// cache is kept.
func (e *Engine) LoadTopics(ctx context.Context) error {
	topics, err := e.api.GetTopics(ctx)
	if err != nil {
		msg := domain.UserMessage(err, msgTopicsLoadFailed)
		e.logger.Warn("failed to load topics", "error", err)
		notify.Error(e.notifier, msg)
		return err
	}
	e.store.ReplaceTopics(topics)
	e.logger.Debug("topics loaded", "count", len(topics))
	return nil
}

func (e *Engine) buildNote(d models.NoteDraft, existing models.Note, isUpdate bool) models.Note {
	now := e.now()
	n := models.Note{
		ID:          d.ID,
		Title:       d.Title,
		Text:        d.Text,
		URL:         d.URL,
		ImageURL:    d.ImageURL,
		TopicID:     d.TopicID,
		Attachments: make([]models.Attachment, 0, len(d.Attachments)),
		CreatedAt:   now,
		UpdatedAt:   now,
		IsFavorite:  d.IsFavorite,
	}
	if n.ID == "" {
		n.ID = e.newID(notePrefix)
	}
	if isUpdate {
		n.CreatedAt = existing.CreatedAt
		if n.IsFavorite == nil {
			n.IsFavorite = existing.IsFavorite
		}
	}
	for _, a := range d.Attachments {
		if a.ID == "" {
			a.ID = e.newID(attachmentPrefix)
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		n.Attachments = append(n.Attachments, a)
	}
	return n.Clone()
}

func normalizeDraft(d *models.NoteDraft) {
	d.ID = strings.TrimSpace(d.ID)
	d.Title = strings.TrimSpace(d.Title)
	d.URL = strings.TrimSpace(d.URL)
	d.TopicPath = strings.TrimSpace(d.TopicPath)
	if d.TopicID != nil && strings.TrimSpace(*d.TopicID) == "" {
		d.TopicID = nil
	}
}

// validateDraft checks the editor's required fields. Creates need a title, a
// topic (by id or path) and some content; updates only get length checks.
func validateDraft(d *models.NoteDraft, create bool) error {
	title := []validation.Rule{validation.Length(0, config.MaxNoteTitleLength)}
	topicPath := []validation.Rule{validation.Length(0, config.MaxTopicPathLength)}
	var text []validation.Rule
	if create {
		title = append(title, validation.Required.Error("title is required"))
		topicPath = append(topicPath,
			validation.When(d.TopicID == nil, validation.Required.Error("choose a topic or enter a topic path")))
		text = append(text,
			validation.When(d.URL == "" && len(d.Attachments) == 0,
				validation.Required.Error("add text, a link or an attachment")))
	}
	return validation.ValidateStruct(d,
		validation.Field(&d.Title, title...),
		validation.Field(&d.TopicPath, topicPath...),
		validation.Field(&d.Text, text...),
		validation.Field(&d.Attachments, validation.Length(0, config.MaxAttachmentsPerNote)),
	)
}
