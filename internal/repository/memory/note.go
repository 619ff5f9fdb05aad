package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"knowledge/internal/domain"
	"knowledge/internal/domain/models"
	"knowledge/internal/domain/repositories"
)

// NoteRepository implements repositories.NoteRepository in memory
type NoteRepository struct {
	s *Store
}

// NewNoteRepository creates a note repository over s
func NewNoteRepository(s *Store) repositories.NoteRepository {
	return &NoteRepository{s: s}
}

func (r *NoteRepository) Create(ctx context.Context, note *models.Note) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.notes[note.ID]; exists {
		return &domain.ConflictError{Message: "note already exists", ResourceType: "note", ResourceID: note.ID}
	}
	if err := r.checkTopic(note); err != nil {
		return err
	}
	r.s.notes[note.ID] = note.Clone()
	return nil
}

func (r *NoteRepository) GetByID(ctx context.Context, id, userID string) (*models.Note, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n, ok := r.s.notes[id]
	if !ok || n.UserID != userID {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("note not found: %s", id)}
	}
	out := n.Clone()
	return &out, nil
}

func (r *NoteRepository) Update(ctx context.Context, note *models.Note) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.notes[note.ID]
	if !ok || existing.UserID != note.UserID {
		return &domain.NotFoundError{Message: fmt.Sprintf("note not found: %s", note.ID)}
	}
	if err := r.checkTopic(note); err != nil {
		return err
	}
	r.s.notes[note.ID] = note.Clone()
	return nil
}

func (r *NoteRepository) Delete(ctx context.Context, id, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notes[id]
	if !ok || n.UserID != userID {
		return &domain.NotFoundError{Message: fmt.Sprintf("note not found: %s", id)}
	}
	delete(r.s.notes, id)
	return nil
}

func (r *NoteRepository) SetFavorite(ctx context.Context, id, userID string, isFavorite bool) (*models.Note, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n, ok := r.s.notes[id]
	if !ok || n.UserID != userID {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("note not found: %s", id)}
	}
	n.SetFavorite(isFavorite)
	now := time.Now().UTC()
	if !now.After(n.UpdatedAt) {
		now = n.UpdatedAt.Add(time.Millisecond)
	}
	n.UpdatedAt = now
	r.s.notes[id] = n
	out := n.Clone()
	return &out, nil
}

func (r *NoteRepository) Search(ctx context.Context, req *models.SearchRequest) ([]models.Note, int, error) {
	req.ApplyDefaults()

	r.s.mu.RLock()
	var matched []models.Note
	for _, n := range r.s.notes {
		if n.UserID != req.UserID {
			continue
		}
		if req.TopicID != nil && !n.InTopic(*req.TopicID) {
			continue
		}
		if n.Matches(req.Query) {
			matched = append(matched, n.Clone())
		}
	}
	r.s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].UpdatedAt.Equal(matched[j].UpdatedAt) {
			return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	start := min(req.Offset, total)
	end := min(start+req.Limit, total)
	page := make([]models.Note, end-start)
	copy(page, matched[start:end])
	return page, total, nil
}

func (r *NoteRepository) DetachTopic(ctx context.Context, topicID, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, n := range r.s.notes {
		if n.UserID == userID && n.InTopic(topicID) {
			n.TopicID = nil
			r.s.notes[id] = n
		}
	}
	return nil
}

// checkTopic mirrors the foreign key on topic_id. Caller holds the lock.
func (r *NoteRepository) checkTopic(note *models.Note) error {
	if note.TopicID == nil {
		return nil
	}
	t, ok := r.s.topics[*note.TopicID]
	if !ok || t.UserID != note.UserID {
		return &domain.ValidationError{Message: "topic does not exist"}
	}
	return nil
}
