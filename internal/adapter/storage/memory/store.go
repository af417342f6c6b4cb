// Package memory is an in-process storage backend implementing the
// repository ports. It is selected with database.driver=memory and keeps
// the locking and rollback behaviour of the PostgreSQL adapter so service
// code runs unchanged against either.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"linkpay/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrForeignTx is returned when a repository receives a transaction that
// was not started by this store.
var ErrForeignTx = errors.New("memory: transaction not started by this store")

// Store holds all tables. mu guards the maps; row locks taken inside a Tx
// serialize writers of the same row until commit or rollback.
type Store struct {
	mu           sync.RWMutex
	merchants    map[string]domain.Merchant
	users        map[string]domain.User
	links        map[string]domain.Link
	transactions []domain.Transaction
	seq          int64
	requests     map[uuid.UUID]domain.Request
	reminders    map[uuid.UUID]domain.Reminder
	audits       []domain.AuditLog

	locksMu  sync.Mutex
	rowLocks map[string]*sync.Mutex
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		merchants: make(map[string]domain.Merchant),
		users:     make(map[string]domain.User),
		links:     make(map[string]domain.Link),
		requests:  make(map[uuid.UUID]domain.Request),
		reminders: make(map[uuid.UUID]domain.Reminder),
		rowLocks:  make(map[string]*sync.Mutex),
	}
}

// Begin starts a transaction. It implements ports.DBTransactor.
func (s *Store) Begin(_ context.Context) (pgx.Tx, error) {
	return &Tx{store: s, held: make(map[string]*sync.Mutex)}, nil
}

// Ping implements ports.HealthChecker.
func (s *Store) Ping(_ context.Context) error { return nil }

// Name implements ports.HealthChecker.
func (s *Store) Name() string { return "memory" }

func (s *Store) rowLock(key string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	m, ok := s.rowLocks[key]
	if !ok {
		m = &sync.Mutex{}
		s.rowLocks[key] = m
	}
	return m
}

// Tx is a store transaction. Only Commit and Rollback are implemented; the
// embedded pgx.Tx is nil and exists to satisfy the interface.
type Tx struct {
	pgx.Tx

	store *Store
	mu    sync.Mutex
	held  map[string]*sync.Mutex
	undo  []func()
	done  bool
}

// Commit keeps all writes and releases the row locks.
func (t *Tx) Commit(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.undo = nil
	t.release()
	return nil
}

// Rollback reverts all writes in reverse order and releases the row locks.
// It is a no-op after Commit.
func (t *Tx) Rollback(_ context.Context) error {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return nil
	}
	t.done = true
	undo := t.undo
	t.undo = nil
	t.mu.Unlock()

	t.store.mu.Lock()
	for i := len(undo) - 1; i >= 0; i-- {
		undo[i]()
	}
	t.store.mu.Unlock()

	t.mu.Lock()
	t.release()
	t.mu.Unlock()
	return nil
}

// lock takes the row lock for key unless this transaction already holds it.
func (t *Tx) lock(key string) error {
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return pgx.ErrTxClosed
	}
	if _, ok := t.held[key]; ok {
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()

	m := t.store.rowLock(key)
	m.Lock()

	t.mu.Lock()
	t.held[key] = m
	t.mu.Unlock()
	return nil
}

// onRollback registers an undo step. Callers hold store.mu.
func (t *Tx) onRollback(fn func()) {
	t.mu.Lock()
	t.undo = append(t.undo, fn)
	t.mu.Unlock()
}

func (t *Tx) release() {
	keys := make([]string, 0, len(t.held))
	for k := range t.held {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		t.held[k].Unlock()
	}
	t.held = map[string]*sync.Mutex{}
}

func (s *Store) asTx(tx pgx.Tx) (*Tx, error) {
	mt, ok := tx.(*Tx)
	if !ok || mt.store != s {
		return nil, ErrForeignTx
	}
	return mt, nil
}

func linkKey(merchantID, userID string) string {
	return merchantID + "|" + userID
}
