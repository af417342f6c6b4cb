package memory

import (
	"context"
	"fmt"

	"linkpay/internal/core/domain"
	"linkpay/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// MerchantRepo implements ports.MerchantRepository.
type MerchantRepo struct{ s *Store }

// NewMerchantRepo creates a memory-backed merchant repository.
func NewMerchantRepo(s *Store) *MerchantRepo { return &MerchantRepo{s: s} }

func (r *MerchantRepo) Create(_ context.Context, m *domain.Merchant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.merchants[m.ID]; ok {
		return fmt.Errorf("insert merchant: %w", ports.ErrDuplicateID)
	}
	if err := r.uniqueLocked(m); err != nil {
		return fmt.Errorf("insert merchant: %w", err)
	}
	r.s.merchants[m.ID] = *m
	return nil
}

func (r *MerchantRepo) GetByID(_ context.Context, id string) (*domain.Merchant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if m, ok := r.s.merchants[id]; ok {
		return &m, nil
	}
	return nil, nil
}

func (r *MerchantRepo) GetByPhone(_ context.Context, phone string) (*domain.Merchant, error) {
	return r.find(func(m *domain.Merchant) bool { return eq(m.Phone, phone) })
}

func (r *MerchantRepo) GetByGoogleSubject(_ context.Context, subject string) (*domain.Merchant, error) {
	return r.find(func(m *domain.Merchant) bool { return eq(m.GoogleSubject, subject) })
}

func (r *MerchantRepo) GetByGoogleEmail(_ context.Context, email string) (*domain.Merchant, error) {
	return r.find(func(m *domain.Merchant) bool { return eq(m.GoogleEmail, email) })
}

func (r *MerchantRepo) Update(_ context.Context, m *domain.Merchant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.merchants[m.ID]; !ok {
		return fmt.Errorf("merchant not found: %s", m.ID)
	}
	if err := r.uniqueLocked(m); err != nil {
		return fmt.Errorf("update merchant: %w", err)
	}
	r.s.merchants[m.ID] = *m
	return nil
}

func (r *MerchantRepo) find(match func(*domain.Merchant) bool) (*domain.Merchant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, m := range r.s.merchants {
		if match(&m) {
			return &m, nil
		}
	}
	return nil, nil
}

func (r *MerchantRepo) uniqueLocked(m *domain.Merchant) error {
	for id, other := range r.s.merchants {
		if id == m.ID {
			continue
		}
		if sameKey(m.Phone, other.Phone) || sameKey(m.GoogleSubject, other.GoogleSubject) {
			return ports.ErrAlreadyExists
		}
	}
	return nil
}

// UserRepo implements ports.UserRepository.
type UserRepo struct{ s *Store }

// NewUserRepo creates a memory-backed user repository.
func NewUserRepo(s *Store) *UserRepo { return &UserRepo{s: s} }

func (r *UserRepo) Create(_ context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[u.ID]; ok {
		return fmt.Errorf("insert user: %w", ports.ErrDuplicateID)
	}
	if err := r.uniqueLocked(u); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	r.s.users[u.ID] = *u
	return nil
}

func (r *UserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if u, ok := r.s.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (r *UserRepo) GetByPhone(_ context.Context, phone string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return eq(u.Phone, phone) })
}

func (r *UserRepo) GetByGoogleSubject(_ context.Context, subject string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return eq(u.GoogleSubject, subject) })
}

func (r *UserRepo) GetByGoogleEmail(_ context.Context, email string) (*domain.User, error) {
	return r.find(func(u *domain.User) bool { return eq(u.GoogleEmail, email) })
}

func (r *UserRepo) Update(_ context.Context, u *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[u.ID]; !ok {
		return fmt.Errorf("user not found: %s", u.ID)
	}
	if err := r.uniqueLocked(u); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	r.s.users[u.ID] = *u
	return nil
}

func (r *UserRepo) Delete(_ context.Context, tx pgx.Tx, id string) error {
	mt, err := r.s.asTx(tx)
	if err != nil {
		return err
	}
	if err := mt.lock("user:" + id); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return fmt.Errorf("user not found: %s", id)
	}
	delete(r.s.users, id)
	mt.onRollback(func() { r.s.users[id] = u })
	return nil
}

func (r *UserRepo) find(match func(*domain.User) bool) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if match(&u) {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *UserRepo) uniqueLocked(u *domain.User) error {
	for id, other := range r.s.users {
		if id == u.ID {
			continue
		}
		if sameKey(u.Phone, other.Phone) || sameKey(u.GoogleSubject, other.GoogleSubject) {
			return ports.ErrAlreadyExists
		}
	}
	return nil
}

func eq(p *string, v string) bool {
	return p != nil && *p == v
}

// sameKey mirrors a nullable UNIQUE column: NULLs never collide.
func sameKey(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}
