// Package cache persists the client's AppState snapshot under a fixed key.
package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"knowledge/internal/domain/models"
)

// StateKey is the storage key of the AppState snapshot.
const StateKey = "knowledge2_state_v1"

// Storage is a small key/value persistence backend. Load returns nil, nil for
// a key that was never stored.
type Storage interface {
	Load(key string) ([]byte, error)
	Store(key string, data []byte) error
	Close() error
}

// snapshot mirrors AppState with pointer slices so missing fields are detectable.
type snapshot struct {
	Notes  *[]models.Note  `json:"notes"`
	Topics *[]models.Topic `json:"topics"`
}

// LoadState reads the snapshot from s. Missing, unreadable or malformed data
// degrades to an empty state; it never fails.
func LoadState(s Storage, logger *slog.Logger) models.AppState {
	data, err := s.Load(StateKey)
	if err != nil {
		logger.Warn("state load failed, starting empty", "key", StateKey, "error", err)
		return models.EmptyState()
	}
	if len(data) == 0 {
		return models.EmptyState()
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		logger.Warn("state corrupt, starting empty", "key", StateKey, "error", err)
		return models.EmptyState()
	}
	if snap.Notes == nil || snap.Topics == nil {
		logger.Warn("state incomplete, starting empty", "key", StateKey)
		return models.EmptyState()
	}

	state := models.AppState{Notes: *snap.Notes, Topics: *snap.Topics}
	for i := range state.Notes {
		if state.Notes[i].Attachments == nil {
			state.Notes[i].Attachments = []models.Attachment{}
		}
	}
	return state
}

// SaveState writes state to s as one JSON document.
func SaveState(s Storage, state models.AppState) error {
	if state.Notes == nil {
		state.Notes = []models.Note{}
	}
	if state.Topics == nil {
		state.Topics = []models.Topic{}
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := s.Store(StateKey, data); err != nil {
		return fmt.Errorf("store state: %w", err)
	}
	return nil
}

// MemoryStorage keeps values in process memory.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string][]byte)}
}

func (m *MemoryStorage) Load(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryStorage) Store(key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(data))
	copy(v, data)
	m.values[key] = v
	return nil
}

func (m *MemoryStorage) Close() error { return nil }
