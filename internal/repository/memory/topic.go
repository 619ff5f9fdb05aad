package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"knowledge/internal/domain"
	"knowledge/internal/domain/models"
	"knowledge/internal/domain/repositories"
)

// TopicRepository implements repositories.TopicRepository in memory.
// (user, parent, name) is unique, as in the database schema.
type TopicRepository struct {
	s *Store
}

// NewTopicRepository creates a topic repository over s
func NewTopicRepository(s *Store) repositories.TopicRepository {
	return &TopicRepository{s: s}
}

func (r *TopicRepository) ListAll(ctx context.Context, userID string) ([]models.Topic, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	topics := []models.Topic{}
	for _, id := range r.s.order {
		if t := r.s.topics[id]; t.UserID == userID {
			topics = append(topics, t.Clone())
		}
	}
	return topics, nil
}

func (r *TopicRepository) GetByID(ctx context.Context, id, userID string) (*models.Topic, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.topics[id]
	if !ok || t.UserID != userID {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("topic not found: %s", id)}
	}
	out := t.Clone()
	return &out, nil
}

func (r *TopicRepository) FindByNameAndParent(ctx context.Context, userID, name string, parentID *string) (*models.Topic, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.find(userID, name, parentID), nil
}

// find returns a copy of the matching topic or nil. Caller holds the lock.
func (r *TopicRepository) find(userID, name string, parentID *string) *models.Topic {
	for _, id := range r.s.order {
		t := r.s.topics[id]
		if t.UserID == userID && t.Name == name && t.IsChildOf(parentID) {
			out := t.Clone()
			return &out
		}
	}
	return nil
}

func (r *TopicRepository) CreateIfNotExists(ctx context.Context, userID string, parentID *string, name string) (*models.Topic, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if existing := r.find(userID, name, parentID); existing != nil {
		return existing, false, nil
	}
	if parentID != nil {
		if p, ok := r.s.topics[*parentID]; !ok || p.UserID != userID {
			return nil, false, &domain.NotFoundError{Message: "parent topic not found"}
		}
	}

	now := time.Now().UTC()
	t := models.Topic{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if parentID != nil {
		p := *parentID
		t.ParentID = &p
	}
	r.s.topics[t.ID] = t
	r.s.order = append(r.s.order, t.ID)
	out := t.Clone()
	return &out, true, nil
}

func (r *TopicRepository) Delete(ctx context.Context, id, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.topics[id]
	if !ok || t.UserID != userID {
		return &domain.NotFoundError{Message: fmt.Sprintf("topic not found: %s", id)}
	}

	var children []string
	for cid, c := range r.s.topics {
		if c.ParentID != nil && *c.ParentID == id {
			if r.find(userID, c.Name, nil) != nil {
				return &domain.ConflictError{Message: "a child topic has the same name as an existing root topic", ResourceType: "topic", ResourceID: id}
			}
			children = append(children, cid)
		}
	}

	now := time.Now().UTC()
	for _, cid := range children {
		c := r.s.topics[cid]
		c.ParentID = nil
		c.UpdatedAt = now
		r.s.topics[cid] = c
	}
	for nid, n := range r.s.notes {
		if n.InTopic(id) {
			n.TopicID = nil
			r.s.notes[nid] = n
		}
	}
	delete(r.s.topics, id)
	r.s.order = slices.DeleteFunc(r.s.order, func(x string) bool { return x == id })
	return nil
}
