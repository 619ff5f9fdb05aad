// Package memory holds in-process repositories used when no database is
// configured. Data lives for the lifetime of the process.
package memory

import (
	"context"
	"sync"

	"knowledge/internal/domain/models"
	"knowledge/internal/domain/repositories"
)

// Store is the shared backing state of the memory repositories, so topic
// deletion can detach notes under one lock.
type Store struct {
	mu     sync.RWMutex
	notes  map[string]models.Note
	topics map[string]models.Topic
	order  []string // topic ids in creation order
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		notes:  make(map[string]models.Note),
		topics: make(map[string]models.Topic),
	}
}

// TransactionManager serializes units of work. Writes are not rolled back
// on error; every repository method is individually atomic.
type TransactionManager struct {
	mu sync.Mutex
}

// NewTransactionManager creates a new transaction manager
func NewTransactionManager() repositories.TransactionManager {
	return &TransactionManager{}
}

func (tm *TransactionManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return fn(ctx)
}
