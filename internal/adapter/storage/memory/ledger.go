package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"linkpay/internal/core/domain"
	"linkpay/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// LinkRepo implements ports.LinkRepository.
type LinkRepo struct{ s *Store }

// NewLinkRepo creates a memory-backed link repository.
func NewLinkRepo(s *Store) *LinkRepo { return &LinkRepo{s: s} }

func (r *LinkRepo) Create(_ context.Context, tx pgx.Tx, l *domain.Link) error {
	mt, err := r.s.asTx(tx)
	if err != nil {
		return err
	}
	key := linkKey(l.MerchantID, l.UserID)
	if err := mt.lock("link:" + key); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.links[key]; ok {
		return fmt.Errorf("insert link: %w", ports.ErrAlreadyExists)
	}
	for _, other := range r.s.links {
		if other.ID == l.ID {
			return fmt.Errorf("insert link: %w", ports.ErrDuplicateID)
		}
	}
	r.s.links[key] = *l
	mt.onRollback(func() { delete(r.s.links, key) })
	return nil
}

func (r *LinkRepo) Get(_ context.Context, merchantID, userID string) (*domain.Link, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if l, ok := r.s.links[linkKey(merchantID, userID)]; ok {
		return &l, nil
	}
	return nil, nil
}

func (r *LinkRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Link, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, l := range r.s.links {
		if l.ID == id {
			return &l, nil
		}
	}
	return nil, nil
}

// GetForUpdate blocks until the pair's row lock is free, then reads the link.
func (r *LinkRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, merchantID, userID string) (*domain.Link, error) {
	mt, err := r.s.asTx(tx)
	if err != nil {
		return nil, err
	}
	if err := mt.lock("link:" + linkKey(merchantID, userID)); err != nil {
		return nil, err
	}
	return r.Get(ctx, merchantID, userID)
}

func (r *LinkRepo) UpdateBalance(_ context.Context, tx pgx.Tx, id uuid.UUID, balance decimal.Decimal) error {
	mt, err := r.s.asTx(tx)
	if err != nil {
		return err
	}
	key, ok := r.keyOf(id)
	if !ok {
		return fmt.Errorf("link not found: %s", id)
	}
	if err := mt.lock("link:" + key); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.links[key]
	if !ok {
		return fmt.Errorf("link not found: %s", id)
	}
	prev := l
	l.Balance = balance
	l.UpdatedAt = time.Now().UTC()
	r.s.links[key] = l
	mt.onRollback(func() { r.s.links[key] = prev })
	return nil
}

func (r *LinkRepo) Delete(_ context.Context, tx pgx.Tx, merchantID, userID string) error {
	mt, err := r.s.asTx(tx)
	if err != nil {
		return err
	}
	key := linkKey(merchantID, userID)
	if err := mt.lock("link:" + key); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.links[key]
	if !ok {
		return fmt.Errorf("link not found: %s/%s", merchantID, userID)
	}
	delete(r.s.links, key)
	mt.onRollback(func() { r.s.links[key] = l })
	return nil
}

func (r *LinkRepo) ListByMerchant(_ context.Context, merchantID string) ([]domain.LinkSummary, error) {
	return r.summaries(func(l *domain.Link) bool { return l.MerchantID == merchantID }), nil
}

func (r *LinkRepo) ListByUser(_ context.Context, userID string) ([]domain.LinkSummary, error) {
	return r.summaries(func(l *domain.Link) bool { return l.UserID == userID }), nil
}

func (r *LinkRepo) summaries(match func(*domain.Link) bool) []domain.LinkSummary {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.LinkSummary
	for _, l := range r.s.links {
		if !match(&l) {
			continue
		}
		out = append(out, domain.LinkSummary{
			Link:      l,
			StoreName: r.s.merchants[l.MerchantID].StoreName,
			UserName:  r.s.users[l.UserID].UserName,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *LinkRepo) keyOf(id uuid.UUID) (string, bool) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for key, l := range r.s.links {
		if l.ID == id {
			return key, true
		}
	}
	return "", false
}

// TransactionRepo implements ports.TransactionRepository.
type TransactionRepo struct{ s *Store }

// NewTransactionRepo creates a memory-backed ledger entry repository.
func NewTransactionRepo(s *Store) *TransactionRepo { return &TransactionRepo{s: s} }

// Create appends an entry and assigns the next sequence number. Like a
// database sequence, numbers consumed by a rolled-back entry are not reused.
func (r *TransactionRepo) Create(_ context.Context, tx pgx.Tx, t *domain.Transaction) error {
	mt, err := r.s.asTx(tx)
	if err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.seq++
	t.Seq = r.s.seq
	r.s.transactions = append(r.s.transactions, *t)
	id := t.ID
	mt.onRollback(func() {
		for i := len(r.s.transactions) - 1; i >= 0; i-- {
			if r.s.transactions[i].ID == id {
				r.s.transactions = append(r.s.transactions[:i], r.s.transactions[i+1:]...)
				return
			}
		}
	})
	return nil
}

// List returns entries newest first.
func (r *TransactionRepo) List(_ context.Context, params ports.TransactionListParams) ([]domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.Transaction
	for i := len(r.s.transactions) - 1; i >= 0; i-- {
		t := r.s.transactions[i]
		if params.MerchantID != "" && t.MerchantID != params.MerchantID {
			continue
		}
		if params.UserID != "" && t.UserID != params.UserID {
			continue
		}
		out = append(out, t)
		if params.Limit > 0 && len(out) == params.Limit {
			break
		}
	}
	return out, nil
}
