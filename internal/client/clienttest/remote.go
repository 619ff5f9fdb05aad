// Package clienttest provides an in-memory RemoteAPI for client tests.
package clienttest

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sort"
	"sync"
	"time"

	"knowledge/internal/domain"
	"knowledge/internal/domain/models"
	"knowledge/internal/topicpath"
)

// Remote is a RemoteAPI backed by maps. Each *Func field, when set, replaces
// the default behavior of its method; Calls records every invocation by name.
type Remote struct {
	mu     sync.Mutex
	notes  map[string]models.Note
	topics []models.Topic
	calls  []string
	seq    int

	SearchFunc      func(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error)
	SaveFunc        func(ctx context.Context, note models.Note) (*models.SaveResult, error)
	UpdateFunc      func(ctx context.Context, note models.Note) (*models.SaveResult, error)
	DeleteFunc      func(ctx context.Context, id string) (*models.DeleteResult, error)
	FavoriteFunc    func(ctx context.Context, id string, isFavorite bool) (*models.Note, error)
	GetTopicsFunc   func(ctx context.Context) ([]models.Topic, error)
	EnsurePathFunc  func(ctx context.Context, path string) (*models.EnsurePathResult, error)
	DeleteTopicFunc func(ctx context.Context, id string) (*models.DeleteResult, error)

	Now func() time.Time
}

// NewRemote creates an empty remote.
func NewRemote() *Remote {
	return &Remote{notes: make(map[string]models.Note), Now: time.Now}
}

// Rejected builds the error a remote returns for a refused request.
func Rejected(status int, message string) error {
	return &domain.RemoteError{Kind: domain.RemoteRejected, Status: status, Message: message}
}

// Timeout builds the error of a request that ran out of time.
func Timeout() error {
	return &domain.RemoteError{Kind: domain.RemoteTimeout, Message: "request timed out"}
}

// PutNote stores n as if it had been created earlier.
func (r *Remote) PutNote(n models.Note) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes[n.ID] = n.Clone()
}

// PutTopic stores t as if it had been created earlier.
func (r *Remote) PutTopic(t models.Topic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, t.Clone())
}

// RemoteNote returns the stored copy of a note.
func (r *Remote) RemoteNote(id string) (models.Note, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notes[id]
	return n, ok
}

// RemoteTopics returns the stored topics.
func (r *Remote) RemoteTopics() []models.Topic {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.topics)
}

// Calls returns the names of the methods invoked so far.
func (r *Remote) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// CallCount returns how many times method was invoked.
func (r *Remote) CallCount(method string) int {
	n := 0
	for _, c := range r.Calls() {
		if c == method {
			n++
		}
	}
	return n
}

func (r *Remote) record(method string) {
	r.mu.Lock()
	r.calls = append(r.calls, method)
	r.mu.Unlock()
}

func (r *Remote) SearchNotes(ctx context.Context, req models.SearchRequest) (*models.SearchResponse, error) {
	r.record("SearchNotes")
	if r.SearchFunc != nil {
		return r.SearchFunc(ctx, req)
	}
	req.ApplyDefaults()

	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []models.Note
	for _, n := range r.notes {
		if req.TopicID != nil && !n.InTopic(*req.TopicID) {
			continue
		}
		if n.Matches(req.Query) {
			matched = append(matched, n.Clone())
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].UpdatedAt.After(matched[j].UpdatedAt) })

	total := len(matched)
	start := min(req.Offset, total)
	end := min(start+req.Limit, total)
	return &models.SearchResponse{Items: matched[start:end], Total: total, Offset: req.Offset, Limit: req.Limit}, nil
}

func (r *Remote) SaveNote(ctx context.Context, note models.Note) (*models.SaveResult, error) {
	r.record("SaveNote")
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, note)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.notes[note.ID]; exists {
		return nil, Rejected(http.StatusConflict, "note already exists")
	}
	note.UpdatedAt = r.Now()
	r.notes[note.ID] = note.Clone()
	return &models.SaveResult{OK: true, Note: note}, nil
}

func (r *Remote) UpdateNote(ctx context.Context, note models.Note) (*models.SaveResult, error) {
	r.record("UpdateNote")
	if r.UpdateFunc != nil {
		return r.UpdateFunc(ctx, note)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.notes[note.ID]; !exists {
		return &models.SaveResult{OK: false}, nil
	}
	note.UpdatedAt = r.Now()
	r.notes[note.ID] = note.Clone()
	return &models.SaveResult{OK: true, Note: note}, nil
}

func (r *Remote) DeleteNote(ctx context.Context, id string) (*models.DeleteResult, error) {
	r.record("DeleteNote")
	if r.DeleteFunc != nil {
		return r.DeleteFunc(ctx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.notes[id]; !exists {
		return &models.DeleteResult{OK: false}, nil
	}
	delete(r.notes, id)
	return &models.DeleteResult{OK: true}, nil
}

func (r *Remote) ToggleFavorite(ctx context.Context, id string, isFavorite bool) (*models.Note, error) {
	r.record("ToggleFavorite")
	if r.FavoriteFunc != nil {
		return r.FavoriteFunc(ctx, id, isFavorite)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	n, exists := r.notes[id]
	if !exists {
		return nil, Rejected(http.StatusNotFound, "note not found")
	}
	n.SetFavorite(isFavorite)
	n.UpdatedAt = r.Now()
	r.notes[id] = n
	out := n.Clone()
	return &out, nil
}

func (r *Remote) GetTopics(ctx context.Context) ([]models.Topic, error) {
	r.record("GetTopics")
	if r.GetTopicsFunc != nil {
		return r.GetTopicsFunc(ctx)
	}
	return r.RemoteTopics(), nil
}

func (r *Remote) EnsureTopicPath(ctx context.Context, path string) (*models.EnsurePathResult, error) {
	r.record("EnsureTopicPath")
	if r.EnsurePathFunc != nil {
		return r.EnsurePathFunc(ctx, path)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return topicpath.Resolve(ctx, (*authority)(r), path)
}

func (r *Remote) DeleteTopic(ctx context.Context, id string) (*models.DeleteResult, error) {
	r.record("DeleteTopic")
	if r.DeleteTopicFunc != nil {
		return r.DeleteTopicFunc(ctx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	i := slices.IndexFunc(r.topics, func(t models.Topic) bool { return t.ID == id })
	if i < 0 {
		return nil, Rejected(http.StatusNotFound, "topic not found")
	}
	r.topics = slices.Delete(r.topics, i, i+1)
	for j := range r.topics {
		if r.topics[j].ParentID != nil && *r.topics[j].ParentID == id {
			r.topics[j].ParentID = nil
		}
	}
	for nid, n := range r.notes {
		if n.InTopic(id) {
			n.TopicID = nil
			r.notes[nid] = n
		}
	}
	return &models.DeleteResult{OK: true}, nil
}

// authority resolves paths against the remote's topics. Callers hold r.mu.
type authority Remote

func (a *authority) FindTopic(_ context.Context, name string, parentID *string) (*models.Topic, error) {
	for i := range a.topics {
		if a.topics[i].Name == name && a.topics[i].IsChildOf(parentID) {
			t := a.topics[i].Clone()
			return &t, nil
		}
	}
	return nil, nil
}

func (a *authority) CreateTopic(_ context.Context, name string, parentID *string) (*models.Topic, error) {
	a.seq++
	now := a.Now()
	t := models.Topic{ID: fmt.Sprintf("topic_%d", a.seq), Name: name, CreatedAt: now, UpdatedAt: now}
	if parentID != nil {
		p := *parentID
		t.ParentID = &p
	}
	a.topics = append(a.topics, t)
	return &t, nil
}
