// Package state holds the client's single source of truth: one record per
// note id, with the cached list and the displayed search results kept as
// ordered id views over the same records.
package state

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"knowledge/internal/client/cache"
	"knowledge/internal/domain"
	"knowledge/internal/domain/models"
	"knowledge/internal/topicpath"
)

// Status is the shared UI status of the active operation.
type Status struct {
	Loading     bool
	Error       string // sticky inline error, "" when clear
	HasSearched bool
	LastSearch  *models.LastSearch
}

// Store is safe for concurrent use. Every change to the cached notes or
// topics is persisted through the configured storage.
type Store struct {
	mu        sync.RWMutex
	records   map[string]models.Note
	cacheIDs  []string // most recent first
	resultIDs []string // order returned by the last search
	topics    []models.Topic
	status    Status

	storage cache.Storage
	logger  *slog.Logger
}

// Snapshot is an opaque copy of the store taken before an optimistic write.
type Snapshot struct {
	records   map[string]models.Note
	cacheIDs  []string
	resultIDs []string
	topics    []models.Topic
}

// New creates a store seeded from storage. A nil storage keeps state in memory only.
func New(storage cache.Storage, logger *slog.Logger) *Store {
	s := &Store{
		records: make(map[string]models.Note),
		storage: storage,
		logger:  logger,
	}
	if storage != nil {
		s.load(cache.LoadState(storage, logger))
	}
	return s
}

// NewFromState creates an unpersisted store holding st.
func NewFromState(st models.AppState, logger *slog.Logger) *Store {
	s := &Store{records: make(map[string]models.Note), logger: logger}
	s.load(st)
	return s
}

func (s *Store) load(st models.AppState) {
	s.cacheIDs = s.cacheIDs[:0]
	for _, n := range st.Notes {
		if slices.Contains(s.cacheIDs, n.ID) {
			continue
		}
		s.records[n.ID] = n.Clone()
		s.cacheIDs = append(s.cacheIDs, n.ID)
	}
	s.topics = make([]models.Topic, 0, len(st.Topics))
	for _, t := range st.Topics {
		s.topics = append(s.topics, t.Clone())
	}
}

// Reload replaces the cached notes and topics with what storage holds now.
// Displayed results are kept.
func (s *Store) Reload() {
	if s.storage == nil {
		return
	}
	st := cache.LoadState(s.storage, s.logger)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.load(st)
	s.collect()
}

// ---- reads ----

// Notes returns the cached notes, most recent first.
func (s *Store) Notes() []models.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view(s.cacheIDs)
}

// Results returns the displayed search results in server order.
func (s *Store) Results() []models.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view(s.resultIDs)
}

func (s *Store) view(ids []string) []models.Note {
	out := make([]models.Note, 0, len(ids))
	for _, id := range ids {
		if n, ok := s.records[id]; ok {
			out = append(out, n.Clone())
		}
	}
	return out
}

// Note returns the record for id from either view.
func (s *Store) Note(id string) (models.Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.records[id]
	if !ok {
		return models.Note{}, false
	}
	return n.Clone(), true
}

// IsCached reports whether id is part of the cached notes.
func (s *Store) IsCached(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.cacheIDs, id)
}

// Topics returns the cached topics.
func (s *Store) Topics() []models.Topic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Topic, len(s.topics))
	for i, t := range s.topics {
		out[i] = t.Clone()
	}
	return out
}

// Topic returns the cached topic with id.
func (s *Store) Topic(id string) (models.Topic, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.topicIndex(id); i >= 0 {
		return s.topics[i].Clone(), true
	}
	return models.Topic{}, false
}

// TopicsWithPaths returns the cached topics with Path filled in.
func (s *Store) TopicsWithPaths() []models.Topic {
	topics := s.Topics()
	for i := range topics {
		topics[i].Path = topicpath.FullPath(topics, topics[i].ID)
	}
	return topics
}

// TopicsMatching returns topics whose full path matches the glob pattern,
// e.g. "Work/**".
func (s *Store) TopicsMatching(pattern string) ([]models.Topic, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("invalid pattern %q", pattern)}
	}
	var out []models.Topic
	for _, t := range s.TopicsWithPaths() {
		ok, err := doublestar.Match(pattern, t.Path)
		if err != nil {
			return nil, fmt.Errorf("match %q: %w", pattern, err)
		}
		if ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// Tree returns the cached topics as a forest with cached note counts.
func (s *Store) Tree() []*models.TopicTreeNode {
	s.mu.RLock()
	counts := make(map[string]int)
	for _, id := range s.cacheIDs {
		if n := s.records[id]; n.TopicID != nil {
			counts[*n.TopicID]++
		}
	}
	s.mu.RUnlock()
	return topicpath.BuildTree(s.Topics(), counts)
}

// State returns the persistable snapshot: cached notes and topics.
func (s *Store) State() models.AppState {
	return models.AppState{Notes: s.Notes(), Topics: s.Topics()}
}

// Status returns a copy of the shared status.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.status
	if st.LastSearch != nil {
		ls := *st.LastSearch
		st.LastSearch = &ls
	}
	return st
}

// ---- snapshots ----

// Snapshot copies notes, both views and topics.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		records:   make(map[string]models.Note, len(s.records)),
		cacheIDs:  slices.Clone(s.cacheIDs),
		resultIDs: slices.Clone(s.resultIDs),
		topics:    make([]models.Topic, len(s.topics)),
	}
	for id, n := range s.records {
		snap.records[id] = n.Clone()
	}
	for i, t := range s.topics {
		snap.topics[i] = t.Clone()
	}
	return snap
}

// Restore puts the store back exactly as it was when snap was taken.
func (s *Store) Restore(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]models.Note, len(snap.records))
	for id, n := range snap.records {
		s.records[id] = n.Clone()
	}
	s.cacheIDs = slices.Clone(snap.cacheIDs)
	s.resultIDs = slices.Clone(snap.resultIDs)
	s.topics = make([]models.Topic, len(snap.topics))
	for i, t := range snap.topics {
		s.topics[i] = t.Clone()
	}
	s.persist()
}

// ---- note writes ----

// UpsertNote replaces the record with the same id in place, or inserts a new
// one at the front of the cached notes.
func (s *Store) UpsertNote(n models.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.Attachments == nil {
		n.Attachments = []models.Attachment{}
	}
	s.records[n.ID] = n.Clone()
	if !slices.Contains(s.cacheIDs, n.ID) {
		s.cacheIDs = append([]string{n.ID}, s.cacheIDs...)
	}
	s.persist()
}

// RemoveNote drops the note from both views. It reports whether it existed.
func (s *Store) RemoveNote(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[id]
	delete(s.records, id)
	s.cacheIDs = slices.DeleteFunc(s.cacheIDs, func(x string) bool { return x == id })
	s.resultIDs = slices.DeleteFunc(s.resultIDs, func(x string) bool { return x == id })
	if ok {
		s.persist()
	}
	return ok
}

// SetFavorite sets the flag and updatedAt on the single record, so both views
// see the change at once.
func (s *Store) SetFavorite(id string, favorite bool, updatedAt time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.records[id]
	if !ok {
		return false
	}
	n.SetFavorite(favorite)
	n.UpdatedAt = updatedAt
	s.records[id] = n
	s.persist()
	return true
}

// ReplaceNote overwrites an existing record without touching either view's
// order. It reports whether the record existed.
func (s *Store) ReplaceNote(n models.Note) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[n.ID]; !ok {
		return false
	}
	s.records[n.ID] = n.Clone()
	s.persist()
	return true
}

// ReplaceResults swaps the displayed results wholesale. Records are refreshed
// with the server copies.
func (s *Store) ReplaceResults(items []models.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resultIDs = make([]string, 0, len(items))
	for _, n := range items {
		if n.Attachments == nil {
			n.Attachments = []models.Attachment{}
		}
		s.records[n.ID] = n.Clone()
		s.resultIDs = append(s.resultIDs, n.ID)
	}
	s.collect()
	s.persist()
}

// ClearResults empties the displayed results.
func (s *Store) ClearResults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resultIDs = nil
	s.collect()
}

// collect drops records that neither view references. Caller holds mu.
func (s *Store) collect() {
	live := make(map[string]bool, len(s.cacheIDs)+len(s.resultIDs))
	for _, id := range s.cacheIDs {
		live[id] = true
	}
	for _, id := range s.resultIDs {
		live[id] = true
	}
	for id := range s.records {
		if !live[id] {
			delete(s.records, id)
		}
	}
}

// ---- topic writes ----

// ReplaceTopics swaps the cached topic set.
func (s *Store) ReplaceTopics(topics []models.Topic) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics = make([]models.Topic, 0, len(topics))
	for _, t := range topics {
		s.topics = append(s.topics, t.Clone())
	}
	s.persist()
}

// MergeTopics appends topics not yet cached.
func (s *Store) MergeTopics(topics []models.Topic) {
	if len(topics) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range topics {
		if s.topicIndex(t.ID) < 0 {
			s.topics = append(s.topics, t.Clone())
		}
	}
	s.persist()
}

// DeleteTopic removes the topic and detaches its child topics and its notes.
func (s *Store) DeleteTopic(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	topics := s.topics[:0]
	for _, t := range s.topics {
		if t.ID == id {
			continue
		}
		if t.ParentID != nil && *t.ParentID == id {
			t.ParentID = nil
		}
		topics = append(topics, t)
	}
	s.topics = topics
	for nid, n := range s.records {
		if n.InTopic(id) {
			n.TopicID = nil
			s.records[nid] = n
		}
	}
	s.persist()
}

// RenameTopic updates name and parent of a cached topic. Moving a topic under
// itself or one of its descendants is rejected.
func (s *Store) RenameTopic(id, name string, parentID *string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.topicIndex(id)
	if i < 0 {
		return &domain.NotFoundError{Message: fmt.Sprintf("topic not found: %s", id)}
	}
	if parentID != nil {
		if s.topicIndex(*parentID) < 0 {
			return &domain.NotFoundError{Message: fmt.Sprintf("parent topic not found: %s", *parentID)}
		}
		for cur := parentID; cur != nil; {
			if *cur == id {
				return &domain.ValidationError{Message: "topic cannot be moved under itself"}
			}
			j := s.topicIndex(*cur)
			if j < 0 {
				break
			}
			cur = s.topics[j].ParentID
		}
		p := *parentID
		parentID = &p
	}
	s.topics[i].Name = name
	s.topics[i].ParentID = parentID
	s.topics[i].UpdatedAt = now
	s.persist()
	return nil
}

func (s *Store) topicIndex(id string) int {
	return slices.IndexFunc(s.topics, func(t models.Topic) bool { return t.ID == id })
}

// ---- status writes ----

// SetLoading sets the loading flag.
func (s *Store) SetLoading(v bool) {
	s.mu.Lock()
	s.status.Loading = v
	s.mu.Unlock()
}

// SetError sets the sticky inline error; "" clears it.
func (s *Store) SetError(msg string) {
	s.mu.Lock()
	s.status.Error = msg
	s.mu.Unlock()
}

// SetSearched marks that a search ran and records its descriptor.
func (s *Store) SetSearched(last *models.LastSearch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.HasSearched = true
	if last != nil {
		ls := *last
		s.status.LastSearch = &ls
	}
}

// ResetSearched clears the searched flag.
func (s *Store) ResetSearched() {
	s.mu.Lock()
	s.status.HasSearched = false
	s.mu.Unlock()
}

// persist writes the cached view. Caller holds mu.
func (s *Store) persist() {
	if s.storage == nil {
		return
	}
	st := models.AppState{Notes: s.view(s.cacheIDs), Topics: make([]models.Topic, len(s.topics))}
	copy(st.Topics, s.topics)
	if err := cache.SaveState(s.storage, st); err != nil {
		s.logger.Error("failed to persist state", "error", err)
	}
}
