/**
 * @description
 * This file provides an in-memory implementation of the `Repository`
 * interface. It backs unit tests and lets the service boot without a
 * DATABASE_URL for local development.
 *
 * Atomic units of work stage their writes and apply them under the store
 * mutex only when the unit succeeds, so a failed transfer never leaves a
 * partial mutation behind. Exclusive holds per benefit come from the
 * in-process lock coordinator that the service layer wraps around every
 * Atomic call; this store guarantees that commits are all-or-nothing, that
 * readers never observe a half-applied commit, and that a commit fails with
 * ErrVersionConflict rather than overwrite a record whose version moved
 * since the unit of work read it.
 *
 * @dependencies
 * - sync, time: Standard Go libraries.
 * - github.com/google/uuid: Benefit identifiers.
 * - internal/domain: The benefit model.
 */

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/beneficio/benefit-service/internal/domain"
)

// MemoryRepository implements Repository with a map guarded by a RWMutex.
type MemoryRepository struct {
	mu       sync.RWMutex
	benefits map[uuid.UUID]*domain.Benefit
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{benefits: make(map[uuid.UUID]*domain.Benefit)}
}

// CreateBenefit stores a new benefit, assigning an id when none is set.
func (r *MemoryRepository) CreateBenefit(_ context.Context, b *domain.Benefit) (*domain.Benefit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *b
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	now := time.Now().UTC()
	stored.Version = 1
	stored.CreatedAt = now
	stored.UpdatedAt = now

	r.benefits[stored.ID] = &stored
	out := stored
	return &out, nil
}

// FindBenefitByID returns a copy of the stored benefit.
func (r *MemoryRepository) FindBenefitByID(_ context.Context, id uuid.UUID) (*domain.Benefit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.benefits[id]
	if !ok {
		return nil, ErrBenefitNotFound
	}
	out := *b
	return &out, nil
}

// ListBenefits returns copies of every benefit, newest first.
func (r *MemoryRepository) ListBenefits(_ context.Context) ([]domain.Benefit, error) {
	return r.list(nil), nil
}

// ListActiveBenefits returns copies of active benefits, newest first.
func (r *MemoryRepository) ListActiveBenefits(_ context.Context) ([]domain.Benefit, error) {
	return r.list(func(b *domain.Benefit) bool { return b.Active }), nil
}

func (r *MemoryRepository) list(keep func(*domain.Benefit) bool) []domain.Benefit {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []domain.Benefit{}
	for _, b := range r.benefits {
		if keep == nil || keep(b) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// UpdateBenefit applies a compare-and-set write keyed on the version token.
func (r *MemoryRepository) UpdateBenefit(_ context.Context, b *domain.Benefit) (*domain.Benefit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.benefits[b.ID]
	if !ok {
		return nil, ErrBenefitNotFound
	}
	if current.Version != b.Version {
		return nil, ErrVersionConflict
	}

	current.Name = b.Name
	current.Description = b.Description
	current.Balance = b.Balance
	current.Active = b.Active
	current.Version++
	current.UpdatedAt = time.Now().UTC()

	out := *current
	return &out, nil
}

// DeleteBenefit removes a benefit record.
func (r *MemoryRepository) DeleteBenefit(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.benefits[id]; !ok {
		return ErrBenefitNotFound
	}
	delete(r.benefits, id)
	return nil
}

// Atomic stages writes through a memTx and commits them in one critical
// section when fn succeeds. A failing fn leaves the store untouched, as does
// a commit-time version conflict.
func (r *MemoryRepository) Atomic(ctx context.Context, fn func(tx Tx) error) error {
	tx := &memTx{repo: r, staged: make(map[uuid.UUID]*domain.Benefit)}
	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

// memTx stages balance writes against snapshots until commit.
type memTx struct {
	repo   *MemoryRepository
	staged map[uuid.UUID]*domain.Benefit
}

// FindForUpdate returns the staged copy when the benefit was already read in
// this unit of work, so a later read observes earlier staged writes.
func (t *memTx) FindForUpdate(ctx context.Context, id uuid.UUID) (*domain.Benefit, error) {
	if staged, ok := t.staged[id]; ok {
		out := *staged
		return &out, nil
	}
	return t.repo.FindBenefitByID(ctx, id)
}

func (t *memTx) Save(_ context.Context, b *domain.Benefit) error {
	copied := *b
	t.staged[b.ID] = &copied
	return nil
}

// commit applies the staged balances in one critical section. Each staged
// snapshot carries the version it was read at; a record whose version moved
// in the meantime was written through the plain update path, and clobbering
// that write would lose it, so the whole unit of work fails instead.
func (t *memTx) commit() error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()

	for id, staged := range t.staged {
		current, ok := t.repo.benefits[id]
		if !ok {
			return ErrBenefitNotFound
		}
		if current.Version != staged.Version {
			return ErrVersionConflict
		}
	}

	now := time.Now().UTC()
	for id, staged := range t.staged {
		current := t.repo.benefits[id]
		current.Balance = staged.Balance
		current.Version++
		current.UpdatedAt = now
	}
	return nil
}
