// Package search coordinates note searches and topic browsing against the
// remote API. Only the newest search may write results.
package search

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"knowledge/internal/client/notify"
	"knowledge/internal/client/sequence"
	"knowledge/internal/client/state"
	"knowledge/internal/domain"
	"knowledge/internal/domain/models"
)

const (
	msgEmptyQuery   = "enter text to search"
	msgSearchFailed = "search failed"
	msgTopicFailed  = "topic search failed"
)

// Searcher is the part of the remote API the coordinator needs.
type Searcher interface {
	SearchNotes(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error)
}

// Coordinator owns the query text, mode and topic scope, and writes results
// into the shared store.
type Coordinator struct {
	api      Searcher
	store    *state.Store
	guard    *sequence.Guard
	notifier notify.Notifier
	logger   *slog.Logger
	limit    int

	mu      sync.Mutex
	mode    models.SearchMode
	query   string
	topicID *string
}

// NewCoordinator creates a coordinator in notes mode. limit <= 0 means the default page size.
func NewCoordinator(api Searcher, store *state.Store, guard *sequence.Guard, notifier notify.Notifier, limit int, logger *slog.Logger) *Coordinator {
	if limit <= 0 {
		limit = models.DefaultSearchLimit
	}
	return &Coordinator{
		api:      api,
		store:    store,
		guard:    guard,
		notifier: notifier,
		logger:   logger,
		limit:    limit,
		mode:     models.SearchModeNotes,
	}
}

// SetQuery sets the query text used by the next search.
func (c *Coordinator) SetQuery(q string) {
	c.mu.Lock()
	c.query = q
	c.mu.Unlock()
}

func (c *Coordinator) Query() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

func (c *Coordinator) Mode() models.SearchMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// SelectedTopic returns the topic scope, nil when none.
func (c *Coordinator) SelectedTopic() *string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyID(c.topicID)
}

// SetMode switches between notes and topics mode. The other mode's input is
// reset and any in-flight search is superseded. Displayed results stay until
// the next search completes.
func (c *Coordinator) SetMode(m models.SearchMode) {
	c.mu.Lock()
	c.mode = m
	if m == models.SearchModeTopics {
		c.query = ""
	} else {
		c.topicID = nil
	}
	c.mu.Unlock()

	c.guard.Invalidate()
	c.store.SetLoading(false)
	c.logger.Debug("search mode changed", "mode", m)
}

// ClearTopic drops the topic scope if it points at id.
func (c *Coordinator) ClearTopic(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.topicID != nil && *c.topicID == id {
		c.topicID = nil
	}
}

// Search runs a search with the current query, mode and topic scope. In notes
// mode an empty query fails locally without a remote call.
func (c *Coordinator) Search(ctx context.Context) error {
	c.mu.Lock()
	q := strings.TrimSpace(c.query)
	mode := c.mode
	topicID := copyID(c.topicID)
	c.mu.Unlock()

	if q == "" && mode == models.SearchModeNotes {
		c.store.SetError(msgEmptyQuery)
		c.store.ClearResults()
		c.store.ResetSearched()
		return &domain.ValidationError{Message: msgEmptyQuery}
	}

	req := models.SearchRequest{Query: q, TopicID: topicID, Limit: c.limit, Mode: mode}
	last := &models.LastSearch{Mode: mode, Query: q, TopicID: topicID}
	return c.run(ctx, req, last, msgSearchFailed)
}

// SelectTopic sets the topic scope and browses it in topics mode. The query
// may be empty. A nil id browses every topic.
func (c *Coordinator) SelectTopic(ctx context.Context, id *string) error {
	c.mu.Lock()
	c.topicID = copyID(id)
	q := strings.TrimSpace(c.query)
	c.mu.Unlock()

	req := models.SearchRequest{Query: q, TopicID: copyID(id), Limit: c.limit, Mode: models.SearchModeTopics}
	last := &models.LastSearch{Mode: models.SearchModeTopics, TopicID: copyID(id)}
	return c.run(ctx, req, last, msgTopicFailed)
}

func (c *Coordinator) run(ctx context.Context, req models.SearchRequest, last *models.LastSearch, fallback string) error {
	ticket := c.guard.Issue()
	c.store.SetError("")
	c.store.SetLoading(true)

	logger := c.logger.With("request_seq", uint64(ticket), "mode", req.Mode)
	logger.Debug("search started", "query", req.Query)

	res, err := c.api.SearchNotes(ctx, req)

	var msg string
	applied := c.guard.Do(ticket, func() {
		if err != nil {
			msg = domain.UserMessage(err, fallback)
			c.store.SetError(msg)
			c.store.ClearResults()
		} else {
			c.store.ReplaceResults(res.Items)
		}
		c.store.SetSearched(last)
		c.store.SetLoading(false)
	})
	if !applied {
		logger.Debug("search result discarded", "superseded_by", uint64(c.guard.Current()))
		return sequence.ErrSuperseded
	}
	if err != nil {
		logger.Warn("search failed", "error", err)
		notify.Error(c.notifier, msg)
		return err
	}
	logger.Debug("search completed", "items", len(res.Items), "total", res.Total)
	return nil
}

// Refresh re-runs the active topic's listing on behalf of a mutation holding
// ticket, without drawing a new ticket. It does nothing when no topic is
// selected. A failed refresh leaves the displayed results as they were.
func (c *Coordinator) Refresh(ctx context.Context, ticket sequence.Ticket) error {
	c.mu.Lock()
	q := strings.TrimSpace(c.query)
	mode := c.mode
	topicID := copyID(c.topicID)
	c.mu.Unlock()

	if topicID == nil {
		return nil
	}

	res, err := c.api.SearchNotes(ctx, models.SearchRequest{Query: q, TopicID: topicID, Limit: c.limit, Mode: mode})
	if err != nil {
		c.logger.Warn("refresh after mutation failed", "topic_id", *topicID, "error", err)
		return err
	}
	if !c.guard.Do(ticket, func() {
		c.store.ReplaceResults(res.Items)
		c.store.SetSearched(nil)
	}) {
		return sequence.ErrSuperseded
	}
	return nil
}

func copyID(id *string) *string {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
